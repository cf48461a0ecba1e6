package site

import (
	"context"
	"fmt"

	"go_sitectl/internal/model"
)

// serviceWhitelist lists the services each site type runs
var serviceWhitelist = map[string][]string{
	model.SiteTypeHTML: {"nginx"},
	model.SiteTypePHP:  {"nginx", "php"},
	model.SiteTypeWP:   {"nginx", "php"},
}

// reloadCommands reloads a service in place inside its running container
var reloadCommands = map[string][]string{
	"nginx": {"sh", "-c", "nginx -t && nginx -s reload"},
	"php":   {"kill", "-USR2", "1"},
}

// Services returns the services the caller may address for a site type
func Services(siteType string) []string {
	return append([]string(nil), serviceWhitelist[siteType]...)
}

// SelectServices picks the services an operation touches: the whole
// whitelist when all is set or nothing was named, else exactly the named ones
func SelectServices(siteType string, named []string, all bool) ([]string, error) {
	whitelist := serviceWhitelist[siteType]
	if all || len(named) == 0 {
		return append([]string(nil), whitelist...), nil
	}

	selected := make([]string, 0, len(named))
	seen := map[string]bool{}
	for _, svc := range named {
		if !contains(whitelist, svc) {
			return nil, fmt.Errorf("%w: %s (available: %v)", ErrUnknownService, svc, whitelist)
		}
		if !seen[svc] {
			seen[svc] = true
			selected = append(selected, svc)
		}
	}
	return selected, nil
}

// Restart restarts the selected services of an enabled site
func (e *Engine) Restart(ctx context.Context, url string, services []string, all bool) error {
	url, err := siteURL(ActionRestart, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionRestart, url, false, func(ctx context.Context, op *Operation) error {
		site, selected, err := e.selectFor(ctx, op, services, all)
		if err != nil {
			return err
		}
		if err := e.Containers.Restart(ctx, site.FSPath, selected...); err != nil {
			return operational(op, fmt.Errorf("restart %v: %w", selected, err))
		}
		op.set("services", selected)
		return nil
	})
}

// Reload reloads the selected services in place without restarting them
func (e *Engine) Reload(ctx context.Context, url string, services []string, all bool) error {
	url, err := siteURL(ActionReload, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionReload, url, false, func(ctx context.Context, op *Operation) error {
		site, selected, err := e.selectFor(ctx, op, services, all)
		if err != nil {
			return err
		}
		var reloaded []string
		for _, svc := range selected {
			cmd, ok := reloadCommands[svc]
			if !ok {
				op.log.Warnf("No reload command for %s, skipped", svc)
				continue
			}
			if _, err := e.Containers.Exec(ctx, site.FSPath, svc, cmd...); err != nil {
				return operational(op, fmt.Errorf("reload %s: %w", svc, err))
			}
			reloaded = append(reloaded, svc)
		}
		op.set("services", reloaded)
		return nil
	})
}

func (e *Engine) selectFor(ctx context.Context, op *Operation, services []string, all bool) (*model.Site, []string, error) {
	site, err := e.find(ctx, op)
	if err != nil {
		return nil, nil, err
	}
	if !site.Enabled {
		return nil, nil, precondition(op, ErrSiteDisabled)
	}
	selected, err := SelectServices(site.Type, services, all)
	if err != nil {
		return nil, nil, precondition(op, err)
	}
	return site, selected, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
