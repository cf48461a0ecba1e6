package driver

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go_sitectl/internal/runner"
)

// LocalFS operates on the host filesystem; directory mirroring goes through rsync
type LocalFS struct {
	Runner   runner.Runner
	RsyncBin string
}

// NewLocalFS creates a filesystem driver
func NewLocalFS(r runner.Runner) *LocalFS {
	return &LocalFS{Runner: r, RsyncBin: "rsync"}
}

// Exists reports whether path exists
func (f *LocalFS) Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// MkdirAll creates a directory tree
func (f *LocalFS) MkdirAll(path string) error {
	if err := os.MkdirAll(path, 0755); err != nil {
		return fmt.Errorf("failed to create directory %s: %w", path, err)
	}
	return nil
}

// RemoveAll removes a directory tree; a missing tree reports ErrAbsent
func (f *LocalFS) RemoveAll(path string) error {
	if !f.Exists(path) {
		return fmt.Errorf("%s: %w", path, ErrAbsent)
	}
	if err := os.RemoveAll(path); err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Remove removes a single file; a missing file reports ErrAbsent
func (f *LocalFS) Remove(path string) error {
	err := os.Remove(path)
	if os.IsNotExist(err) {
		return fmt.Errorf("%s: %w", path, ErrAbsent)
	}
	if err != nil {
		return fmt.Errorf("failed to remove %s: %w", path, err)
	}
	return nil
}

// Mirror makes dst an exact copy of the src directory
func (f *LocalFS) Mirror(ctx context.Context, src, dst string) error {
	if !f.Exists(src) {
		return fmt.Errorf("mirror source %s: %w", src, ErrAbsent)
	}
	if err := f.MkdirAll(dst); err != nil {
		return err
	}
	src = strings.TrimSuffix(src, "/") + "/"
	dst = strings.TrimSuffix(dst, "/") + "/"
	if _, err := f.Runner.Run(ctx, f.RsyncBin, "-a", "--delete", src, dst); err != nil {
		return fmt.Errorf("mirror %s to %s: %w", src, dst, err)
	}
	return nil
}

// CopyFile copies a regular file, creating the destination directory
func (f *LocalFS) CopyFile(src, dst string) error {
	in, err := os.Open(src)
	if os.IsNotExist(err) {
		return fmt.Errorf("copy source %s: %w", src, ErrAbsent)
	}
	if err != nil {
		return fmt.Errorf("failed to open %s: %w", src, err)
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat %s: %w", src, err)
	}
	if err := f.MkdirAll(filepath.Dir(dst)); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, info.Mode().Perm())
	if err != nil {
		return fmt.Errorf("failed to create %s: %w", dst, err)
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return fmt.Errorf("failed to copy %s to %s: %w", src, dst, err)
	}
	return out.Close()
}

// WriteFile writes data atomically through a temp file and rename
func (f *LocalFS) WriteFile(path string, data []byte, perm os.FileMode) error {
	if err := f.MkdirAll(filepath.Dir(path)); err != nil {
		return err
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, perm); err != nil {
		return fmt.Errorf("failed to write %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to rename %s: %w", tmp, err)
	}
	return nil
}
