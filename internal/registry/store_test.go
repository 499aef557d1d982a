package registry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasksync/internal/checklist"
)

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"json", BackendJSON, false},
		{"SQLite", BackendSQLite, false},
		{" memory ", BackendMemory, false},
		{"", BackendJSON, false},
		{"postgres", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDefaultPath(t *testing.T) {
	assert.Equal(t, filepath.Join("d", "registry.json"), DefaultPath("d", BackendJSON))
	assert.Equal(t, filepath.Join("d", "registry.db"), DefaultPath("d", BackendSQLite))
}

func TestDecodeRegistry_Empty(t *testing.T) {
	reg, err := DecodeRegistry([]byte("  \n"))
	require.NoError(t, err)
	assert.Equal(t, checklist.NewRegistry(), reg)

	reg, err = DecodeRegistry([]byte(`{"version": 1}`))
	require.NoError(t, err)
	assert.NotNil(t, reg.Entries)
}

func TestDecodeRegistry_Errors(t *testing.T) {
	_, err := DecodeRegistry([]byte(`{"version": 0, "entries": []}`))
	assert.ErrorIs(t, err, ErrUnsupportedVersion)

	_, err = DecodeRegistry([]byte(`{"version": 1, "entries": [{"entryId": "a", "sources": {"jira": {"artifactId": "x"}}, "items": []}]}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")

	_, err = DecodeRegistry([]byte(`not json`))
	assert.Error(t, err)
}

func TestTransact_SavesOnSuccess(t *testing.T) {
	ctx := context.Background()
	s := NewFileStore(filepath.Join(t.TempDir(), "registry.json"))

	err := Transact(ctx, s, func(reg *checklist.Registry) error {
		reg.Add(checklist.NewSyncEntry("e1"))
		return nil
	})
	require.NoError(t, err)

	reg, err := s.Load(ctx)
	require.NoError(t, err)
	require.Len(t, reg.Entries, 1)
	assert.Equal(t, "e1", reg.Entries[0].EntryID)
}

func TestTransact_ErrorDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	boom := errors.New("boom")

	err := Transact(ctx, s, func(reg *checklist.Registry) error {
		reg.Add(checklist.NewSyncEntry("e1"))
		return boom
	})
	assert.ErrorIs(t, err, boom)

	reg, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, reg.Entries)
}

func TestTransact_UnchangedRegistryNotWritten(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(ctx, sampleRegistry(t)))

	old := time.Now().Add(-time.Hour).Truncate(time.Second)
	require.NoError(t, os.Chtimes(path, old, old))

	require.NoError(t, Transact(ctx, s, func(reg *checklist.Registry) error { return nil }))

	info, err := os.Stat(path)
	require.NoError(t, err)
	assert.True(t, info.ModTime().Equal(old), "file left untouched")
}

// failingUnlockStore is a MemoryStore whose lock cannot be released.
type failingUnlockStore struct {
	*MemoryStore
}

func (failingUnlockStore) Lock(context.Context) (func() error, error) {
	return func() error { return errors.New("lock file vanished") }, nil
}

func TestTransact_UnlockErrorIsReported(t *testing.T) {
	ctx := context.Background()
	s := failingUnlockStore{NewMemoryStore()}

	err := Transact(ctx, s, func(reg *checklist.Registry) error {
		reg.Add(checklist.NewSyncEntry("e1"))
		return nil
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unlock registry: lock file vanished")

	reg, loadErr := s.Load(ctx)
	require.NoError(t, loadErr)
	assert.Len(t, reg.Entries, 1, "the save itself went through")

	boom := errors.New("boom")
	err = Transact(ctx, s, func(*checklist.Registry) error { return boom })
	assert.ErrorIs(t, err, boom)
	assert.Contains(t, err.Error(), "lock file vanished")
}

func TestMemoryStore_LockExcludes(t *testing.T) {
	s := NewMemoryStore()
	unlock, err := s.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = s.Lock(ctx)
	assert.ErrorIs(t, err, context.DeadlineExceeded)

	require.NoError(t, unlock())
	require.NoError(t, unlock(), "unlock is idempotent")
	again, err := s.Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, again())
}

func TestMemoryStore_ConcurrentTransactionsKeepEveryUpdate(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()

	const n = 25
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			err := Transact(ctx, s, func(reg *checklist.Registry) error {
				reg.Add(checklist.NewSyncEntry(fmt.Sprintf("e%d", i)))
				return nil
			})
			assert.NoError(t, err)
		}(i)
	}
	wg.Wait()

	reg, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, reg.Entries, n)
}

func TestMemoryStore_Isolation(t *testing.T) {
	ctx := context.Background()
	s := NewMemoryStore()
	reg := sampleRegistry(t)
	require.NoError(t, s.Save(ctx, reg))

	reg.Entries[0].Items[0].Title = "mutated after save"

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "write tests", got.Entries[0].Items[0].Title)

	got.Entries[0].EntryID = "mutated after load"
	again, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, "entry-1", again.Entries[0].EntryID)
}

func TestOpen_Backends(t *testing.T) {
	dir := t.TempDir()

	s, err := Open(BackendJSON, filepath.Join(dir, "r.json"))
	require.NoError(t, err)
	assert.IsType(t, &FileStore{}, s)

	s, err = Open(BackendMemory, "")
	require.NoError(t, err)
	assert.IsType(t, &MemoryStore{}, s)

	s, err = Open(BackendSQLite, filepath.Join(dir, "r.db"))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteStore{}, s)
	require.NoError(t, s.(*SQLiteStore).Close())

	_, err = Open("etcd", "")
	assert.Error(t, err)
}
