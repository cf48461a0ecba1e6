package site

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"runtime/debug"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"go_sitectl/internal/events"
	"go_sitectl/internal/model"
)

// Lifecycle actions
const (
	ActionCreate  = "create"
	ActionDelete  = "delete"
	ActionUpdate  = "update"
	ActionBackup  = "backup"
	ActionEnable  = "enable"
	ActionDisable = "disable"
	ActionRestart = "restart"
	ActionReload  = "reload"
	ActionSSL     = "ssl"
	ActionRenew   = "ssl-renew"
)

// Operation is the state of one lifecycle invocation. It is passed
// explicitly through the engine's steps and never shared between
// invocations.
type Operation struct {
	ID     string
	Action string
	URL    string

	// Site is the in-flight site; rollback tears down its resources
	Site *model.Site

	log    *logrus.Entry
	detail map[string]interface{}

	mu                sync.Mutex
	level             int
	rollbackOnFailure bool
	signal            os.Signal
}

func newOperation(action, url string, log *logrus.Entry) *Operation {
	id := uuid.NewString()
	return &Operation{
		ID:     id,
		Action: action,
		URL:    url,
		log:    log.WithFields(logrus.Fields{"op": id, "action": action, "site": url}),
		detail: map[string]interface{}{},
	}
}

// Level is the teardown level needed to unwind the progress made so far
func (op *Operation) Level() int {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.level
}

// reach records that provisioning has progressed to level
func (op *Operation) reach(level int) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if level > op.level {
		op.level = level
	}
}

// commit marks the in-flight resources as owned by a persisted site;
// nothing is left to unwind
func (op *Operation) commit() {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.level = 0
}

func (op *Operation) setRollbackOnFailure(v bool) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.rollbackOnFailure = v
}

func (op *Operation) interrupt(sig os.Signal) {
	op.mu.Lock()
	defer op.mu.Unlock()
	if op.signal == nil {
		op.signal = sig
	}
}

// Interrupted reports whether a signal arrived during the operation
func (op *Operation) Interrupted() bool {
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.signal != nil
}

// Log returns the operation's logger
func (op *Operation) Log() *logrus.Entry {
	return op.log
}

func (op *Operation) set(key string, value interface{}) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.detail[key] = value
}

type stepFunc func(ctx context.Context, op *Operation) error

// run executes fn as one guarded lifecycle operation: it holds the site
// lock, intercepts termination signals and panics, and on failure
// unwinds provisioning progress through teardown at the level reached.
func (e *Engine) run(ctx context.Context, action, url string, rollbackOnFailure bool, fn stepFunc) (err error) {
	op := newOperation(action, url, e.Log)
	op.rollbackOnFailure = rollbackOnFailure
	// journal, events and rollback outlive a cancelled operation context
	bg := context.WithoutCancel(ctx)

	unlock, err := e.Locker.Acquire(ctx, url)
	if err != nil {
		return precondition(op, err)
	}
	defer func() {
		if uerr := unlock(); uerr != nil {
			op.log.WithError(uerr).Warn("Failed to release site lock")
		}
	}()

	e.begin(bg, op)

	opCtx, cancel := context.WithCancel(ctx)
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, e.signals()...)
	done := make(chan struct{})
	go func() {
		select {
		case sig := <-sigCh:
			op.log.Warnf("Received %s, stopping", sig)
			op.interrupt(sig)
			cancel()
		case <-done:
		}
	}()
	// signals stay intercepted until rollback has finished
	defer func() {
		close(done)
		signal.Stop(sigCh)
		cancel()
	}()

	err = e.call(opCtx, op, fn)

	if err != nil && op.Interrupted() && !errors.Is(err, ErrFatal) {
		err = &Error{Kind: KindInterrupted, Op: action, URL: url, Err: fmt.Errorf("%w by %s: %w", ErrInterrupted, op.signal, err)}
	}

	status := model.OperationStatusSuccess
	if err != nil {
		status = model.OperationStatusFailed
		if IsInterrupted(err) {
			status = model.OperationStatusInterrupted
		}
		if level := op.Level(); level > 0 && (IsInterrupted(err) || op.rollbackOnFailure) {
			op.log.WithError(err).Warnf("Rolling back at level %d", level)
			op.set("rollbackLevel", level)
			if rbErr := e.teardown(bg, op.log, level, targetOf(op.Site, op.URL), nil); rbErr != nil {
				op.log.WithError(rbErr).Error("Rollback failed")
				err = errors.Join(err, fmt.Errorf("rollback at level %d: %w", level, rbErr))
			} else if status == model.OperationStatusFailed {
				status = model.OperationStatusRolledBack
			}
		}
		op.log.WithError(err).Error("Operation failed")
	} else {
		op.log.Info("Operation completed")
	}

	e.finish(bg, op, status, err)
	return err
}

// call runs fn converting a panic into a fatal-class error
func (e *Engine) call(ctx context.Context, op *Operation, fn stepFunc) (err error) {
	defer func() {
		if r := recover(); r != nil {
			op.log.WithField("stack", string(debug.Stack())).Errorf("Fatal error: %v", r)
			err = &Error{Kind: KindInterrupted, Op: op.Action, URL: op.URL, Err: fmt.Errorf("%w: %v", ErrFatal, r)}
		}
	}()
	return fn(ctx, op)
}

func (e *Engine) begin(ctx context.Context, op *Operation) {
	if e.Journal != nil {
		if err := e.Journal.Begin(ctx, op.ID, op.URL, op.Action); err != nil {
			op.log.WithError(err).Warn("Failed to journal operation start")
		}
	}
	e.publish(ctx, op, model.OperationStatusRunning, nil)
}

func (e *Engine) finish(ctx context.Context, op *Operation, status string, opErr error) {
	level := op.Level()
	if rb, ok := op.detail["rollbackLevel"].(int); ok {
		level = rb
	}
	if e.Journal != nil {
		if err := e.Journal.Finish(ctx, op.ID, status, level, opErr, op.detail); err != nil {
			op.log.WithError(err).Warn("Failed to journal operation result")
		}
	}
	e.publish(ctx, op, status, opErr)
}

func (e *Engine) publish(ctx context.Context, op *Operation, status string, opErr error) {
	if e.Events == nil {
		return
	}
	ev := events.Event{
		OperationID: op.ID,
		Site:        op.URL,
		Action:      op.Action,
		Status:      status,
		Level:       op.Level(),
		Time:        time.Now(),
	}
	if opErr != nil {
		ev.Error = opErr.Error()
	}
	if err := e.Events.Publish(ctx, ev); err != nil {
		op.log.WithError(err).Warn("Failed to publish event")
	}
}
