package site

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"go_sitectl/internal/config"
	"go_sitectl/internal/model"
)

// Update swaps a site's implementation: backup, full delete, create with
// the new type. If creation fails the old site is recreated and its files
// and database are restored from the backup. A failed restoration is
// reported, never retried.
func (e *Engine) Update(ctx context.Context, url, newType string) error {
	url, err := siteURL(ActionUpdate, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionUpdate, url, false, func(ctx context.Context, op *Operation) error {
		old, err := e.find(ctx, op)
		if err != nil {
			return err
		}
		if !model.ValidType(newType) {
			return precondition(op, fmt.Errorf("%w: %q", ErrInvalidType, newType))
		}
		if old.Type == newType {
			return precondition(op, fmt.Errorf("%w: %s", ErrSameType, newType))
		}
		oldCopy := *old

		mirror := e.Paths.ConfigMirror(url)
		if err := e.FS.Mirror(ctx, config.ConfigTree(old.FSPath), mirror); err != nil {
			return operational(op, fmt.Errorf("mirror config tree: %w", err))
		}
		location := e.Paths.BackupDir(url)
		if err := e.backup(ctx, op, old, location, false); err != nil {
			return err
		}

		if err := e.teardown(ctx, op.log, LevelRecord, targetOf(old, url), op.reach); err != nil {
			return operational(op, fmt.Errorf("remove old site (backup kept at %s): %w", location, err))
		}
		op.commit()
		op.log.Infof("Old %s site removed, creating %s site", old.Type, newType)

		// from here a failed step unwinds the partially created site
		op.setRollbackOnFailure(true)
		_, createErr := e.create(ctx, op, CreateOptions{
			URL:      url,
			Type:     newType,
			SSL:      old.SSL,
			Wildcard: old.SSLWildcard,
		})
		if createErr == nil {
			op.set("type", newType)
			return nil
		}
		if op.Interrupted() {
			return fmt.Errorf("create %s site (backup kept at %s): %w", newType, location, createErr)
		}

		op.log.WithError(createErr).Errorf("Creating %s site failed, restoring %s site", newType, old.Type)
		if err := e.unwind(ctx, op); err != nil {
			return errors.Join(createErr, err)
		}
		if err := e.restore(ctx, op, &oldCopy, mirror, location); err != nil {
			return errors.Join(
				fmt.Errorf("create %s site: %w", newType, createErr),
				fmt.Errorf("restore %s site from %s: %w", old.Type, location, err),
			)
		}
		return fmt.Errorf("create %s site failed, %s site restored: %w", newType, old.Type, createErr)
	})
}

// unwind tears down whatever the failed sub-operation left behind
func (e *Engine) unwind(ctx context.Context, op *Operation) error {
	level := op.Level()
	if level == LevelNone {
		return nil
	}
	if err := e.teardown(ctx, op.log, level, targetOf(op.Site, op.URL), nil); err != nil {
		return fmt.Errorf("clean up failed create at level %d: %w", level, err)
	}
	op.commit()
	return nil
}

// restore recreates old and loads its data back: config tree from the
// pre-update mirror, content and database from the backup
func (e *Engine) restore(ctx context.Context, op *Operation, old *model.Site, mirror, location string) error {
	site, err := e.create(ctx, op, CreateOptions{
		URL:      old.URL,
		Type:     old.Type,
		SSL:      old.SSL,
		Wildcard: old.SSLWildcard,
		DB:       old.Database(),
	})
	if err != nil {
		return fmt.Errorf("recreate site: %w", err)
	}

	if err := e.FS.Mirror(ctx, mirror, config.ConfigTree(site.FSPath)); err != nil {
		return fmt.Errorf("restore config tree: %w", err)
	}
	if err := e.FS.Mirror(ctx, filepath.Join(location, backupHtdocs), config.Htdocs(site.FSPath)); err != nil {
		return fmt.Errorf("restore site content: %w", err)
	}
	if site.Type == model.SiteTypeWP {
		if err := e.FS.CopyFile(filepath.Join(location, backupWPConfig), config.RuntimeConfigFile(site.FSPath)); err != nil {
			return fmt.Errorf("restore wp-config.php: %w", err)
		}
	}
	if db := site.Database(); db != nil {
		if err := e.Databases.Restore(ctx, site.URL, db, location); err != nil {
			return err
		}
	}
	if err := e.Containers.Restart(ctx, site.FSPath); err != nil {
		return fmt.Errorf("restart restored site: %w", err)
	}
	op.log.Info("Old site restored from backup")
	return nil
}
