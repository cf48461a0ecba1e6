package site

import (
	"errors"
	"fmt"

	"go_sitectl/internal/lock"
	"go_sitectl/internal/model"
)

// Kind classifies lifecycle failures
type Kind int

const (
	// KindOperational is a step that ran and failed; remaining steps are skipped
	KindOperational Kind = iota
	// KindPrecondition is raised before any side effect
	KindPrecondition
	// KindInterrupted is a signal or fatal runtime error; rollback has run
	KindInterrupted
)

func (k Kind) String() string {
	switch k {
	case KindPrecondition:
		return "precondition"
	case KindInterrupted:
		return "interrupted"
	default:
		return "operational"
	}
}

var (
	ErrAlreadyEnabled  = errors.New("site is already enabled")
	ErrAlreadyDisabled = errors.New("site is already disabled")
	ErrSiteDisabled    = errors.New("site is disabled")
	ErrSiteExists      = errors.New("site already exists")
	ErrInvalidType     = errors.New("invalid site type")
	ErrSameType        = errors.New("site already has this type")
	ErrUnknownService  = errors.New("service not available for this site type")
	ErrInterrupted     = errors.New("operation interrupted")
	ErrFatal           = errors.New("fatal error")
)

// Error is a lifecycle failure carrying its class, operation and site
type Error struct {
	Kind Kind
	Op   string
	URL  string
	Err  error
}

func (e *Error) Error() string {
	if e.URL == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("%s %s: %v", e.Op, e.URL, e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the class of err; unclassified errors are operational
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	if errors.Is(err, model.ErrSiteNotFound) || errors.Is(err, lock.ErrLocked) {
		return KindPrecondition
	}
	return KindOperational
}

// IsPrecondition reports whether err was raised before any side effect
func IsPrecondition(err error) bool {
	return err != nil && KindOf(err) == KindPrecondition
}

// IsInterrupted reports whether err came from a signal or fatal error
func IsInterrupted(err error) bool {
	return err != nil && KindOf(err) == KindInterrupted
}

func precondition(op *Operation, err error) error {
	return &Error{Kind: KindPrecondition, Op: op.Action, URL: op.URL, Err: err}
}

func operational(op *Operation, err error) error {
	var se *Error
	if errors.As(err, &se) {
		return err
	}
	return &Error{Kind: KindOperational, Op: op.Action, URL: op.URL, Err: err}
}
