package site

import (
	"context"
	"fmt"
	"path/filepath"

	"go_sitectl/internal/config"
	"go_sitectl/internal/driver"
	"go_sitectl/internal/model"
)

// Backup layout under a backup location
const (
	backupHtdocs      = "htdocs"
	backupNginxCustom = "nginx-custom"
	backupWPConfig    = "wp-config.php"
)

// Backup copies a site's content, custom proxy config, runtime config and
// database dump to location (default <backup_root>/<url>). It returns the
// location used.
func (e *Engine) Backup(ctx context.Context, url, location string, force bool) (string, error) {
	url, err := siteURL(ActionBackup, url)
	if err != nil {
		return "", err
	}
	if location == "" {
		location = e.Paths.BackupDir(url)
	}
	err = e.run(ctx, ActionBackup, url, false, func(ctx context.Context, op *Operation) error {
		site, err := e.find(ctx, op)
		if err != nil {
			return err
		}
		return e.backup(ctx, op, site, location, force)
	})
	return location, err
}

func (e *Engine) backup(ctx context.Context, op *Operation, site *model.Site, location string, force bool) error {
	log := op.log.WithField("location", location)

	if !force {
		if err := e.Containers.ConfigTest(ctx, site.FSPath); err != nil {
			return precondition(op, fmt.Errorf("nginx configuration check failed, fix it or use --force: %w", err))
		}
	}

	if err := e.FS.MkdirAll(location); err != nil {
		return operational(op, err)
	}
	if err := e.FS.Mirror(ctx, config.Htdocs(site.FSPath), filepath.Join(location, backupHtdocs)); err != nil {
		return operational(op, fmt.Errorf("backup site content: %w", err))
	}
	if err := e.FS.Mirror(ctx, config.NginxCustom(site.FSPath), filepath.Join(location, backupNginxCustom)); err != nil {
		if !driver.IsAbsent(err) {
			return operational(op, fmt.Errorf("backup custom nginx config: %w", err))
		}
		log.Debug("No custom nginx config to back up")
	}
	if site.Type == model.SiteTypeWP {
		if err := e.FS.CopyFile(config.RuntimeConfigFile(site.FSPath), filepath.Join(location, backupWPConfig)); err != nil {
			return operational(op, fmt.Errorf("backup wp-config.php: %w", err))
		}
	}

	if db := site.Database(); db != nil {
		if err := e.FS.MkdirAll(filepath.Join(location, "db")); err != nil {
			return operational(op, err)
		}
		if err := e.Databases.Dump(ctx, site.URL, db, location); err != nil {
			return operational(op, fmt.Errorf("backup database: %w", err))
		}
		log.WithField("dump", config.DumpFile(location, site.URL)).Info("Database dumped")
	}

	op.set("backupLocation", location)
	log.Info("Backup completed")
	return nil
}
