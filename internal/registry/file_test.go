package registry

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasksync/internal/checklist"
)

func TestFileStore_MissingFileIsEmpty(t *testing.T) {
	s := NewFileStore(filepath.Join(t.TempDir(), "nested", "registry.json"))

	reg, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Equal(t, checklist.RegistryVersion, reg.Version)
	assert.Empty(t, reg.Entries)
}

func TestFileStore_RoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".tasksync", "registry.json")
	s := NewFileStore(path, WithValidation(true))
	ctx := context.Background()

	want := sampleRegistry(t)
	require.NoError(t, s.Save(ctx, want))

	got, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestFileStore_PersistedShape(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)
	require.NoError(t, s.Save(context.Background(), sampleRegistry(t)))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(string(data), "}\n"), "trailing newline")
	assert.Contains(t, string(data), "\n  \"entries\": [")

	var doc struct {
		Version int `json:"version"`
		Entries []struct {
			EntryID string                       `json:"entryId"`
			Sources map[string]map[string]any    `json:"sources"`
			Items   []map[string]json.RawMessage `json:"items"`
		} `json:"entries"`
	}
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.Entries, 2)
	assert.Equal(t, 1, doc.Version)

	assert.JSONEq(t, `"plan_step"`, string(doc.Entries[0].Items[0]["idSource"]))

	e2 := doc.Entries[1]
	assert.Len(t, e2.Sources, 4, "every source type is present")
	assert.Nil(t, e2.Sources["plan_step"]["artifactId"])
	assert.Equal(t, "owner/repo#7", e2.Sources["github_issue"]["artifactId"])
	assert.Nil(t, e2.Sources["github_issue"]["contentHash"], "never synced")
	assert.NotNil(t, e2.Items)
}

func TestFileStore_FutureVersionRejected(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"version": 99, "entries": []}`), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnsupportedVersion)
}

func TestFileStore_DuplicateLinkRejectedOnLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	doc := `{"version": 1, "entries": [
  {"entryId": "a", "sources": {"plan_step": {"artifactId": "p", "contentHash": null, "lastSyncedAt": null}}, "items": []},
  {"entryId": "b", "sources": {"plan_step": {"artifactId": "p", "contentHash": null, "lastSyncedAt": null}}, "items": []}
]}`
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	_, err := NewFileStore(path).Load(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "linked to both a and b")
}

func TestFileStore_SaveRejectsBrokenInvariant(t *testing.T) {
	reg := sampleRegistry(t)
	reg.Entries[1].Sources[checklist.SourcePlanStep] = &checklist.SourceRecord{ArtifactID: "plans/p.md"}

	path := filepath.Join(t.TempDir(), "registry.json")
	err := NewFileStore(path).Save(context.Background(), reg)
	require.Error(t, err)

	_, statErr := os.Stat(path)
	assert.True(t, os.IsNotExist(statErr), "nothing written")
}

func TestFileStore_LockExcludes(t *testing.T) {
	path := filepath.Join(t.TempDir(), "registry.json")
	s := NewFileStore(path)

	unlock, err := s.Lock(context.Background())
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 150*time.Millisecond)
	defer cancel()
	_, err = NewFileStore(path).Lock(ctx)
	assert.Error(t, err, "second lock must wait and time out")

	require.NoError(t, unlock())
	unlock2, err := NewFileStore(path).Lock(context.Background())
	require.NoError(t, err)
	require.NoError(t, unlock2())
}
