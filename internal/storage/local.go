package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrPublishNotConfigured is returned when publishing is attempted without an
// object store.
var ErrPublishNotConfigured = errors.New("object storage is not configured")

var _ Storage = (*LocalStorage)(nil)

// LocalStorage implements Storage on the local disk only.
type LocalStorage struct {
	workDir string
}

// NewLocalStorage creates a LocalStorage whose staged files live in workDir.
// If workDir is empty, a "wavsegment" directory under os.TempDir() is used.
// The directory is created if it doesn't exist.
func NewLocalStorage(workDir string) (*LocalStorage, error) {
	if workDir == "" {
		workDir = filepath.Join(os.TempDir(), "wavsegment")
	}

	if err := os.MkdirAll(workDir, 0750); err != nil {
		return nil, fmt.Errorf("create work directory: %w", err)
	}

	return &LocalStorage{workDir: workDir}, nil
}

// WorkDir returns the directory for staged files.
func (s *LocalStorage) WorkDir() string {
	return s.workDir
}

// stagingPattern names the per-call directories SaveTemp creates.
const stagingPattern = "staged_*"

// SaveTemp copies data into a file called name inside a new directory of the
// work directory. The file keeps its name, so anything derived from it, such
// as segment names, is the same on every run.
func (s *LocalStorage) SaveTemp(ctx context.Context, name string, data io.Reader) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context cancelled: %w", err)
	}

	dir, err := os.MkdirTemp(s.workDir, stagingPattern)
	if err != nil {
		return "", fmt.Errorf("create staging directory: %w", err)
	}

	fileName := filepath.Join(dir, filepath.Base(name))
	f, err := os.OpenFile(fileName, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0600) // #nosec G304
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("create temp file: %w", err)
	}

	if _, err := io.Copy(f, data); err != nil {
		_ = f.Close()
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("write temp file: %w", err)
	}

	if err := f.Close(); err != nil {
		_ = os.RemoveAll(dir)
		return "", fmt.Errorf("close temp file: %w", err)
	}

	return fileName, nil
}

// PrepareDir creates dir and its parents.
func (s *LocalStorage) PrepareDir(ctx context.Context, dir string) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context cancelled: %w", err)
	}
	if dir == "" {
		return nil
	}
	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("create output directory %s: %w", dir, err)
	}
	return nil
}

// Cleanup removes the given files. Files that are already gone are ignored.
// A staging directory left empty by the removal is removed too.
func (s *LocalStorage) Cleanup(ctx context.Context, paths []string) error {
	var firstErr error
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("context cancelled: %w", err)
		}

		if err := os.Remove(p); err != nil && !os.IsNotExist(err) {
			if firstErr == nil {
				firstErr = fmt.Errorf("remove %s: %w", p, err)
			}
			continue
		}
		if dir := filepath.Dir(p); s.isStagingDir(dir) {
			_ = os.Remove(dir)
		}
	}
	return firstErr
}

func (s *LocalStorage) isStagingDir(dir string) bool {
	if filepath.Dir(dir) != filepath.Clean(s.workDir) {
		return false
	}
	ok, _ := filepath.Match(stagingPattern, filepath.Base(dir))
	return ok
}

// Publish is not supported by LocalStorage and returns ErrPublishNotConfigured.
func (s *LocalStorage) Publish(_ context.Context, _, _ string) (string, error) {
	return "", ErrPublishNotConfigured
}

// CanPublish returns false.
func (s *LocalStorage) CanPublish() bool {
	return false
}
