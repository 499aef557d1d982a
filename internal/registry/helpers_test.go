package registry

import (
	"testing"
	"time"

	"github.com/roach88/tasksync/internal/checklist"
)

var t0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

// sampleRegistry returns a registry with one fully synced entry and one
// entry linked but never synced.
func sampleRegistry(t *testing.T) *checklist.Registry {
	t.Helper()
	reg := checklist.NewRegistry()

	e1 := checklist.NewSyncEntry("entry-1")
	e1.Sources[checklist.SourcePlanStep] = &checklist.SourceRecord{
		ArtifactID:   "plans/p.md",
		ContentHash:  "abc123",
		LastSyncedAt: t0,
	}
	e1.Sources[checklist.SourceClaudeTask] = &checklist.SourceRecord{ArtifactID: "session-1"}
	e1.Items = []checklist.ChecklistItem{
		{ID: "step-1", IDSource: checklist.SourcePlanStep, Title: "write tests", Status: checklist.StatusCompleted, Updated: t0, Priority: "high"},
		{ID: "step-2", IDSource: checklist.SourcePlanStep, Title: "write docs", Status: checklist.StatusPending, Updated: t0, Notes: "later"},
	}
	reg.Add(e1)

	e2 := checklist.NewSyncEntry("entry-2")
	e2.Sources[checklist.SourceGitHubIssue] = &checklist.SourceRecord{ArtifactID: "owner/repo#7"}
	reg.Add(e2)
	return reg
}
