package checklist

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSyncEntryMarshalEmitsEverySourceType(t *testing.T) {
	synced := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	e := NewSyncEntry("entry-1")
	e.Sources[SourceGitHubIssue] = &SourceRecord{ArtifactID: "42", ContentHash: "abc", LastSyncedAt: synced}
	e.Sources[SourcePlanStep] = &SourceRecord{ArtifactID: "plan.md"}

	data, err := json.Marshal(e)
	require.NoError(t, err)

	var raw map[string]any
	require.NoError(t, json.Unmarshal(data, &raw))
	assert.Equal(t, "entry-1", raw["entryId"])
	assert.Equal(t, []any{}, raw["items"])

	sources := raw["sources"].(map[string]any)
	require.Len(t, sources, 4)

	gh := sources["github_issue"].(map[string]any)
	assert.Equal(t, "42", gh["artifactId"])
	assert.Equal(t, "abc", gh["contentHash"])
	assert.Equal(t, "2026-01-02T03:04:05Z", gh["lastSyncedAt"])

	plan := sources["plan_step"].(map[string]any)
	assert.Equal(t, "plan.md", plan["artifactId"])
	assert.Nil(t, plan["contentHash"], "never-synced slot has null hash")
	assert.Nil(t, plan["lastSyncedAt"])

	ct := sources["claude_task"].(map[string]any)
	assert.Nil(t, ct["artifactId"])
}

func TestSyncEntryUnmarshalDropsNullSlots(t *testing.T) {
	data := []byte(`{
		"entryId": "e1",
		"sources": {
			"github_issue": {"artifactId": "7", "contentHash": "h", "lastSyncedAt": "2026-01-01T00:00:00Z"},
			"claude_task": {"artifactId": null, "contentHash": null, "lastSyncedAt": null}
		},
		"items": [{"id": "gh-1", "title": "a", "status": "pending", "updated": "2026-01-01T00:00:00Z"}]
	}`)

	var e SyncEntry
	require.NoError(t, json.Unmarshal(data, &e))
	assert.Equal(t, "e1", e.EntryID)
	assert.Equal(t, []SourceType{SourceGitHubIssue}, e.LinkedTypes())
	assert.True(t, e.Source(SourceGitHubIssue).Synced())
	assert.Nil(t, e.Source(SourceClaudeTask))
	require.Len(t, e.Items, 1)
	assert.Equal(t, StatusPending, e.Items[0].Status)
}

func TestSyncEntryUnmarshalRejectsUnknownSourceType(t *testing.T) {
	var e SyncEntry
	err := json.Unmarshal([]byte(`{"entryId":"e1","sources":{"jira":{"artifactId":"X"}},"items":[]}`), &e)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown source type")
}

func TestSyncEntryCloneIsDeep(t *testing.T) {
	e := NewSyncEntry("e1")
	e.Sources[SourcePlanStep] = &SourceRecord{ArtifactID: "p"}
	e.Items = []ChecklistItem{{ID: "1", Title: "a", Status: StatusPending}}

	c := e.Clone()
	c.Sources[SourcePlanStep].ArtifactID = "changed"
	c.Items[0].Title = "changed"

	assert.Equal(t, "p", e.Source(SourcePlanStep).ArtifactID)
	assert.Equal(t, "a", e.Items[0].Title)
}

func TestRegistryOwnerAndFind(t *testing.T) {
	r := NewRegistry()
	a := NewSyncEntry("a")
	a.Sources[SourceOpenSpecChange] = &SourceRecord{ArtifactID: "X"}
	b := NewSyncEntry("b")
	r.Add(a)
	r.Add(b)

	assert.Same(t, a, r.Owner(SourceOpenSpecChange, "X"))
	assert.Nil(t, r.Owner(SourceOpenSpecChange, "Y"))
	assert.Nil(t, r.Owner(SourceGitHubIssue, "X"))
	assert.Same(t, b, r.Find("b"))
	assert.Nil(t, r.Find("missing"))
}

func TestRegistryCheckInvariants(t *testing.T) {
	r := NewRegistry()
	a := NewSyncEntry("a")
	a.Sources[SourceOpenSpecChange] = &SourceRecord{ArtifactID: "X"}
	r.Add(a)
	require.NoError(t, r.CheckInvariants())

	b := NewSyncEntry("b")
	b.Sources[SourceOpenSpecChange] = &SourceRecord{ArtifactID: "X"}
	r.Add(b)
	err := r.CheckInvariants()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "openspec_change:X")

	dup := NewRegistry()
	dup.Add(NewSyncEntry("same"))
	dup.Add(NewSyncEntry("same"))
	assert.Error(t, dup.CheckInvariants())
}

func TestRegistryJSONShape(t *testing.T) {
	r := NewRegistry()
	r.Add(NewSyncEntry("e1"))

	data, err := json.Marshal(r)
	require.NoError(t, err)

	var back Registry
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, RegistryVersion, back.Version)
	require.Len(t, back.Entries, 1)
	assert.Equal(t, "e1", back.Entries[0].EntryID)
	assert.Empty(t, back.Entries[0].LinkedTypes())
}
