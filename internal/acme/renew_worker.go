package acme

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Renewer renews every due certificate
type Renewer interface {
	RenewAll(ctx context.Context) (int, error)
}

// RenewWorker runs certificate renewal on a cron schedule
type RenewWorker struct {
	renewer Renewer
	spec    string
	timeout time.Duration
	log     *logrus.Entry

	cron    *cron.Cron
	mu      sync.Mutex
	running bool
}

// NewRenewWorker creates a renew worker for the given cron spec
func NewRenewWorker(renewer Renewer, spec string, log *logrus.Entry) *RenewWorker {
	return &RenewWorker{
		renewer: renewer,
		spec:    spec,
		timeout: time.Hour,
		log:     log.WithField("component", "renew-worker"),
		cron:    cron.New(),
	}
}

// Start schedules renewal runs
func (w *RenewWorker) Start() error {
	if _, err := w.cron.AddFunc(w.spec, w.tick); err != nil {
		return fmt.Errorf("invalid renew schedule %q: %w", w.spec, err)
	}
	w.cron.Start()
	w.log.WithField("schedule", w.spec).Info("Renew worker started")
	return nil
}

// Stop stops scheduling and waits for a running tick to finish
func (w *RenewWorker) Stop() {
	<-w.cron.Stop().Done()
	w.log.Info("Renew worker stopped")
}

// tick renews due certificates; overlapping runs are skipped
func (w *RenewWorker) tick() {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		w.log.Warn("Previous renewal still running, skipping")
		return
	}
	w.running = true
	w.mu.Unlock()
	defer func() {
		w.mu.Lock()
		w.running = false
		w.mu.Unlock()
	}()

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	renewed, err := w.renewer.RenewAll(ctx)
	entry := w.log.WithField("renewed", renewed)
	if err != nil {
		entry.WithError(err).Error("Certificate renewal finished with errors")
		return
	}
	entry.Info("Certificate renewal finished")
}
