package driver

import (
	"errors"
	"strings"

	"go_sitectl/internal/runner"
)

// ErrAbsent marks a resource that is already gone. Callers tearing
// things down treat it as success.
var ErrAbsent = errors.New("resource absent")

// IsAbsent reports whether err is an expected-absence error
func IsAbsent(err error) bool {
	return errors.Is(err, ErrAbsent)
}

var absenceMarkers = []string{
	"No such network",
	"No such container",
	"no configuration file provided",
	"is not connected to network",
	"network not found",
}

// classify wraps a command failure in ErrAbsent when its output says the
// target does not exist
func classify(err error) error {
	if err == nil {
		return nil
	}
	out := runner.Output(err)
	for _, m := range absenceMarkers {
		if strings.Contains(out, m) {
			return &absentError{err: err}
		}
	}
	return err
}

type absentError struct {
	err error
}

func (e *absentError) Error() string { return "absent: " + e.err.Error() }

func (e *absentError) Is(target error) bool { return target == ErrAbsent }

func (e *absentError) Unwrap() error { return e.err }
