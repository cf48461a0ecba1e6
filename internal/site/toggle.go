package site

import (
	"context"
	"fmt"

	"go_sitectl/internal/driver"
)

// Enable starts the container group and only then records the site as enabled
func (e *Engine) Enable(ctx context.Context, url string, force bool) error {
	url, err := siteURL(ActionEnable, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionEnable, url, false, func(ctx context.Context, op *Operation) error {
		site, err := e.find(ctx, op)
		if err != nil {
			return err
		}
		if site.Enabled && !force {
			return precondition(op, ErrAlreadyEnabled)
		}

		if err := e.Containers.Up(ctx, site.FSPath); err != nil {
			return operational(op, fmt.Errorf("start containers: %w", err))
		}
		site.Enabled = true
		if err := e.Store.Save(ctx, site); err != nil {
			return operational(op, err)
		}

		if err := e.Containers.ReloadProxy(ctx); err != nil {
			op.log.WithError(err).Warn("Failed to reload proxy")
		}
		return nil
	})
}

// Disable stops the container group and only then records the site as disabled
func (e *Engine) Disable(ctx context.Context, url string) error {
	url, err := siteURL(ActionDisable, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionDisable, url, false, func(ctx context.Context, op *Operation) error {
		site, err := e.find(ctx, op)
		if err != nil {
			return err
		}
		if !site.Enabled {
			return precondition(op, ErrAlreadyDisabled)
		}

		if err := e.Containers.Down(ctx, site.FSPath); err != nil {
			if !driver.IsAbsent(err) {
				return operational(op, fmt.Errorf("stop containers: %w", err))
			}
			op.log.Debug("Containers already stopped")
		}
		site.Enabled = false
		if err := e.Store.Save(ctx, site); err != nil {
			return operational(op, err)
		}
		return nil
	})
}
