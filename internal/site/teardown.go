package site

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"go_sitectl/internal/driver"
	"go_sitectl/internal/model"
)

// Teardown levels
const (
	LevelNone       = 0
	LevelFilesystem = 1
	LevelNetwork    = 2
	LevelContainers = 3
	LevelRemove     = 4
	LevelRecord     = 5
)

// Target is what a teardown removes
type Target struct {
	URL    string
	FSPath string
	DB     *model.DBParams
	SSL    bool
}

func targetOf(s *model.Site, url string) Target {
	if s == nil {
		return Target{URL: url}
	}
	return Target{URL: s.URL, FSPath: s.FSPath, DB: s.Database(), SSL: s.HasSSL()}
}

// Teardown removes a site's provisioned state up to level. Resources that
// are already gone are skipped, so it is safe to repeat.
func (e *Engine) Teardown(ctx context.Context, level int, t Target) error {
	return e.teardown(ctx, e.Log.WithField("site", t.URL), level, t, nil)
}

func (e *Engine) teardown(ctx context.Context, log *logrus.Entry, level int, t Target, progress func(int)) error {
	if level <= LevelNone {
		return nil
	}
	reach := func(l int) {
		if progress != nil {
			progress(l)
		}
	}
	log = log.WithField("level", level)
	reach(LevelFilesystem)

	if level >= LevelNetwork {
		reach(LevelNetwork)
		if err := e.Containers.DisconnectProxy(ctx, t.URL); err != nil {
			if ferr := e.tolerate(log, level, "disconnect proxy from site network", err); ferr != nil {
				return ferr
			}
		}
	}

	var downErr error
	if level >= LevelContainers && t.FSPath != "" {
		reach(LevelContainers)
		if err := e.Containers.Down(ctx, t.FSPath); err != nil {
			if driver.IsAbsent(err) {
				log.Debug("Containers already removed")
			} else {
				downErr = err
				log.WithError(err).Warn("Failed to stop containers")
			}
		} else {
			log.Info("Containers removed")
		}
	}

	if level >= LevelRemove && downErr != nil {
		reach(LevelRemove)
		if err := e.Containers.Remove(ctx, t.FSPath); err != nil && !driver.IsAbsent(err) {
			return fmt.Errorf("remove containers of %s: %w", t.URL, errors.Join(downErr, err))
		}
		log.Info("Containers force-removed")
	} else if level >= LevelRemove {
		reach(LevelRemove)
	}

	if level >= LevelNetwork {
		if err := e.Containers.RemoveNetwork(ctx, t.URL); err != nil {
			if ferr := e.tolerate(log, level, "remove site network", err); ferr != nil {
				return ferr
			}
		} else {
			log.Info("Site network removed")
		}
	}

	if t.DB != nil {
		if err := e.Databases.Drop(ctx, t.DB); err != nil {
			return fmt.Errorf("remove database of %s: %w", t.URL, err)
		}
		log.Info("Database removed")
	}

	if t.FSPath != "" && e.FS.Exists(t.FSPath) {
		if err := e.FS.RemoveAll(t.FSPath); err != nil && !driver.IsAbsent(err) {
			return fmt.Errorf("remove site root of %s: %w", t.URL, err)
		}
		log.Info("Site files removed")
	}

	if redirect := e.Paths.RedirectConf(t.URL); e.FS.Exists(redirect) {
		if err := e.FS.Remove(redirect); err != nil && !driver.IsAbsent(err) {
			return fmt.Errorf("remove redirect config of %s: %w", t.URL, err)
		}
	}

	if level > LevelRemove {
		reach(LevelRecord)
		if t.SSL {
			if err := e.removeCertificates(t.URL); err != nil {
				return err
			}
			log.Info("Certificate files removed")
		}
		if err := e.Store.Delete(ctx, t.URL); err != nil {
			if !errors.Is(err, model.ErrSiteNotFound) {
				return fmt.Errorf("remove site record %s: %w", t.URL, err)
			}
			log.Debug("Site record already removed")
		} else {
			log.Info("Site record removed")
		}
	}
	return nil
}

// tolerate decides whether a network step failure ends the teardown:
// absence never does, other failures only from level 4 up
func (e *Engine) tolerate(log *logrus.Entry, level int, step string, err error) error {
	if driver.IsAbsent(err) {
		log.Debugf("Skipped %s: already gone", step)
		return nil
	}
	if level >= LevelRemove {
		return fmt.Errorf("%s: %w", step, err)
	}
	log.WithError(err).Warnf("Failed to %s", step)
	return nil
}

func (e *Engine) removeCertificates(url string) error {
	crt, key, chain := e.Paths.CertFiles(url)
	for _, f := range []string{crt, key, chain} {
		if err := e.FS.Remove(f); err != nil && !driver.IsAbsent(err) {
			return fmt.Errorf("remove certificate file %s: %w", f, err)
		}
	}
	for _, dir := range []string{e.Paths.ACMECertsDir(url), e.Paths.ACMEVarDir(url)} {
		if err := e.FS.RemoveAll(dir); err != nil && !driver.IsAbsent(err) {
			return fmt.Errorf("remove certificate state %s: %w", dir, err)
		}
	}
	return nil
}

// Delete tears a site down completely and removes its record
func (e *Engine) Delete(ctx context.Context, url string) error {
	url, err := siteURL(ActionDelete, url)
	if err != nil {
		return err
	}
	return e.run(ctx, ActionDelete, url, false, func(ctx context.Context, op *Operation) error {
		site, err := e.find(ctx, op)
		if err != nil {
			return err
		}
		if err := e.teardown(ctx, op.log, LevelRecord, targetOf(site, url), op.reach); err != nil {
			return operational(op, err)
		}
		return nil
	})
}
