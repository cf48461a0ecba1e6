package main

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"go_sitectl/internal/acme"
	"go_sitectl/internal/cache"
	"go_sitectl/internal/config"
	"go_sitectl/internal/db"
	"go_sitectl/internal/driver"
	"go_sitectl/internal/events"
	"go_sitectl/internal/lock"
	"go_sitectl/internal/logger"
	"go_sitectl/internal/model"
	"go_sitectl/internal/runner"
	"go_sitectl/internal/site"
	"go_sitectl/internal/store"
)

// lifecycle is the engine as the CLI drives it
type lifecycle interface {
	Get(ctx context.Context, url string) (*model.Site, error)
	List(ctx context.Context, status string) ([]model.Site, error)
	Create(ctx context.Context, opts site.CreateOptions) (*model.Site, error)
	Delete(ctx context.Context, url string) error
	Update(ctx context.Context, url, newType string) error
	Backup(ctx context.Context, url, location string, force bool) (string, error)
	Enable(ctx context.Context, url string, force bool) error
	Disable(ctx context.Context, url string) error
	Restart(ctx context.Context, url string, services []string, all bool) error
	Reload(ctx context.Context, url string, services []string, all bool) error
	SSL(ctx context.Context, url string, force bool) error
	Renew(ctx context.Context, url string) (bool, error)
	RenewAll(ctx context.Context) (int, error)
}

// history reads the operation journal
type history interface {
	Recent(ctx context.Context, url string, limit int) ([]model.SiteOperation, error)
}

// app is everything a command needs, built once per invocation
type app struct {
	cfg     *config.Config
	log     *logrus.Logger
	engine  lifecycle
	journal history
	closers []func() error
}

// opener builds the app for a command; tests swap it for fakes
type opener func(configPath string) (*app, error)

func (a *app) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		errs = append(errs, a.closers[i]())
	}
	return errors.Join(errs...)
}

func loadConfig(path string) (*config.Config, error) {
	if path != "" {
		return config.LoadFromINI(path)
	}
	return config.Load()
}

// openApp wires config, logging, storage, drivers and the certificate
// machine into a lifecycle engine
func openApp(configPath string) (*app, error) {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return nil, err
	}
	log, err := logger.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	a := &app{cfg: cfg, log: log}

	if err := db.InitMySQL(cfg.MySQL.DSN, log); err != nil {
		return nil, err
	}
	a.closers = append(a.closers, db.Close)
	if cfg.Migrate {
		if err := db.Migrate(db.GetDB(), log); err != nil {
			_ = a.Close()
			return nil, err
		}
	}
	sites := store.NewSiteStore(db.GetDB())
	journal := store.NewJournal(db.GetDB())
	a.journal = journal

	var locker lock.Locker = lock.NewFileLocker(cfg.Lock.Dir)
	var publisher events.Publisher = events.Noop{}
	if cache.Needed(cfg) {
		client, err := cache.Open(context.Background(), cfg.Redis)
		if err != nil {
			_ = a.Close()
			return nil, err
		}
		a.closers = append(a.closers, client.Close)
		if cfg.Lock.Backend == config.LockBackendRedis {
			locker = lock.NewRedisLocker(client, time.Duration(cfg.Lock.TTLSec)*time.Second)
		}
		if cfg.Events.Enabled {
			publisher = events.NewRedisPublisher(client, cfg.Events.Channel)
		}
	}

	run := runner.ExecRunner{Log: log.WithField("component", "driver")}
	docker := driver.NewDocker(run, cfg.Docker)
	fs := driver.NewLocalFS(run)

	ca := acme.NewLegoClient(cfg.Paths, cfg.ACME.DirectoryURL, log.WithFields(nil))
	machine := acme.NewMachine(ca, acme.NewStorage(fs, cfg.Paths), sites, docker,
		cfg.ACME.Email, cfg.ACME.RenewBeforeDays, log.WithFields(nil))

	a.engine = &site.Engine{
		Containers:   docker,
		Databases:    driver.NewMySQL(run, cfg.Docker),
		FS:           fs,
		Provisioner:  driver.NewProvisioner(fs, cfg.Docker),
		Store:        sites,
		Journal:      journal,
		Locker:       locker,
		Events:       publisher,
		Certificates: machine,
		Paths:        cfg.Paths,
		Log:          log.WithField("component", "lifecycle"),
	}
	log.WithFields(logrus.Fields{
		"lock":   cfg.Lock.Backend,
		"events": cfg.Events.Enabled,
	}).Debug("sitectl initialised")
	return a, nil
}
