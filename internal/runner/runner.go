package runner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"
)

// Runner executes an external command with a structured argument list
type Runner interface {
	Run(ctx context.Context, name string, args ...string) (string, error)
}

// ExitError is a command that ran and exited non-zero (or failed to start)
type ExitError struct {
	Name   string
	Args   []string
	Code   int
	Output string
	Err    error
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exec %s %s: %v (%s)", e.Name, strings.Join(e.Args, " "), e.Err, strings.TrimSpace(e.Output))
}

func (e *ExitError) Unwrap() error {
	return e.Err
}

// ExecRunner executes commands using os/exec
type ExecRunner struct {
	DryRun bool
	Log    *logrus.Entry
}

// Run executes a command and returns combined output
func (r ExecRunner) Run(ctx context.Context, name string, args ...string) (string, error) {
	if r.Log != nil {
		r.Log.WithField("cmd", name).Debugf("exec %s %s", name, strings.Join(args, " "))
	}
	if r.DryRun {
		return fmt.Sprintf("dry-run: %s %s", name, strings.Join(args, " ")), nil
	}

	cmd := exec.CommandContext(ctx, name, args...)
	// Children run in their own process group so a terminal interrupt
	// reaches sitectl only; the guard decides what to cancel.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	out := buf.String()
	if err != nil {
		code := -1
		var ee *exec.ExitError
		if errors.As(err, &ee) {
			code = ee.ExitCode()
		}
		return out, &ExitError{Name: name, Args: args, Code: code, Output: out, Err: err}
	}
	return out, nil
}

// Output returns the captured output of a failed command, if any
func Output(err error) string {
	var ee *ExitError
	if errors.As(err, &ee) {
		return ee.Output
	}
	return ""
}
