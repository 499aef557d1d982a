package registry

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/gofrs/flock"
	"github.com/natefinch/atomic"

	"github.com/roach88/tasksync/internal/checklist"
)

// lockRetry is how often a blocked Lock polls for the file lock.
const lockRetry = 50 * time.Millisecond

// FileStore keeps the registry as a single JSON document.
type FileStore struct {
	path string
	opts options
}

// NewFileStore returns a store for the JSON document at path. The file
// need not exist yet.
func NewFileStore(path string, opts ...Option) *FileStore {
	return &FileStore{path: path, opts: buildOptions(opts)}
}

// Path returns the document path.
func (s *FileStore) Path() string {
	return s.path
}

// Load reads the registry. A missing file is an empty registry.
func (s *FileStore) Load(ctx context.Context) (*checklist.Registry, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return checklist.NewRegistry(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load registry: %w", err)
	}
	if s.opts.validate && len(bytes.TrimSpace(data)) > 0 {
		if err := ValidateJSON(data); err != nil {
			return nil, err
		}
	}
	reg, err := DecodeRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", s.path, err)
	}
	return reg, nil
}

// Save writes the registry atomically: readers see the old document or
// the new one, never a partial write.
func (s *FileStore) Save(ctx context.Context, reg *checklist.Registry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := reg.CheckInvariants(); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	data, err := EncodeRegistry(reg)
	if err != nil {
		return err
	}
	if s.opts.validate {
		if err := ValidateJSON(data); err != nil {
			return err
		}
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	if err := atomic.WriteFile(s.path, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("save registry: %w", err)
	}
	return nil
}

// Lock takes an exclusive advisory lock on <path>.lock, waiting until it
// is free or ctx is done.
func (s *FileStore) Lock(ctx context.Context) (func() error, error) {
	return lockFile(ctx, s.path+".lock")
}

func lockFile(ctx context.Context, lockPath string) (func() error, error) {
	if err := os.MkdirAll(filepath.Dir(lockPath), 0o755); err != nil {
		return nil, fmt.Errorf("lock registry: %w", err)
	}
	lock := flock.New(lockPath)
	locked, err := lock.TryLockContext(ctx, lockRetry)
	if err != nil {
		return nil, fmt.Errorf("lock registry: %w", err)
	}
	if !locked {
		return nil, fmt.Errorf("lock registry: %s is held by another process", lockPath)
	}
	return lock.Unlock, nil
}
