package registry

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/roach88/tasksync/internal/checklist"
)

// Backend names a Store implementation.
type Backend string

const (
	BackendJSON   Backend = "json"
	BackendSQLite Backend = "sqlite"
	BackendMemory Backend = "memory"
)

// ParseBackend accepts a backend name, case-insensitively.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(strings.ToLower(strings.TrimSpace(s))); b {
	case BackendJSON, BackendSQLite, BackendMemory:
		return b, nil
	case "":
		return BackendJSON, nil
	default:
		return "", fmt.Errorf("unknown registry backend %q (want json, sqlite or memory)", s)
	}
}

// Store loads and saves the whole registry.
type Store interface {
	Load(ctx context.Context) (*checklist.Registry, error)
	Save(ctx context.Context, reg *checklist.Registry) error
}

// Locker is implemented by stores that can exclude other processes for
// the span of a load-mutate-save cycle.
type Locker interface {
	Lock(ctx context.Context) (unlock func() error, err error)
}

// ErrUnsupportedVersion is returned for a registry written by a newer
// schema than this build understands.
var ErrUnsupportedVersion = errors.New("unsupported registry version")

// Open returns the Store for backend at path. Stores that hold resources
// also implement io.Closer.
func Open(backend Backend, path string, opts ...Option) (Store, error) {
	switch backend {
	case BackendJSON, "":
		return NewFileStore(path, opts...), nil
	case BackendSQLite:
		return OpenSQLite(path, opts...)
	case BackendMemory:
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown registry backend %q", backend)
	}
}

// DefaultPath returns the conventional registry location for backend
// under dir.
func DefaultPath(dir string, backend Backend) string {
	if backend == BackendSQLite {
		return filepath.Join(dir, "registry.db")
	}
	return filepath.Join(dir, "registry.json")
}

// Transact runs fn against a freshly loaded registry and saves the result
// when fn succeeds. If the store is a Locker the lock is held throughout,
// and a failure to release it is joined into the returned error.
// A registry fn left unchanged is not written back.
func Transact(ctx context.Context, s Store, fn func(reg *checklist.Registry) error) (err error) {
	if l, ok := s.(Locker); ok {
		unlock, lockErr := l.Lock(ctx)
		if lockErr != nil {
			return lockErr
		}
		defer func() {
			if unlockErr := unlock(); unlockErr != nil {
				err = errors.Join(err, fmt.Errorf("unlock registry: %w", unlockErr))
			}
		}()
	}

	reg, err := s.Load(ctx)
	if err != nil {
		return err
	}
	before, err := EncodeRegistry(reg)
	if err != nil {
		return err
	}

	if err := fn(reg); err != nil {
		return err
	}

	after, err := EncodeRegistry(reg)
	if err != nil {
		return err
	}
	if bytes.Equal(before, after) {
		return nil
	}
	return s.Save(ctx, reg)
}

// EncodeRegistry renders reg in its persisted JSON form: two-space indent
// and a trailing newline.
func EncodeRegistry(reg *checklist.Registry) ([]byte, error) {
	out := *reg
	if out.Entries == nil {
		out.Entries = []*checklist.SyncEntry{}
	}
	data, err := json.MarshalIndent(&out, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encode registry: %w", err)
	}
	return append(data, '\n'), nil
}

// DecodeRegistry parses a persisted registry. Empty input is an empty
// registry. The version must be between 1 and checklist.RegistryVersion,
// and the decoded registry must satisfy its invariants.
func DecodeRegistry(data []byte) (*checklist.Registry, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return checklist.NewRegistry(), nil
	}

	var reg checklist.Registry
	if err := json.Unmarshal(data, &reg); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	if err := checkVersion(reg.Version); err != nil {
		return nil, err
	}
	if reg.Entries == nil {
		reg.Entries = []*checklist.SyncEntry{}
	}
	if err := reg.CheckInvariants(); err != nil {
		return nil, fmt.Errorf("decode registry: %w", err)
	}
	return &reg, nil
}

func checkVersion(v int) error {
	if v < 1 || v > checklist.RegistryVersion {
		return fmt.Errorf("%w %d (supported: 1..%d)", ErrUnsupportedVersion, v, checklist.RegistryVersion)
	}
	return nil
}

// Option configures a Store.
type Option func(*options)

type options struct {
	validate bool
}

// WithValidation makes the store validate documents against the CUE
// schema on load and before save.
func WithValidation(on bool) Option {
	return func(o *options) { o.validate = on }
}

func buildOptions(opts []Option) options {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	return o
}
