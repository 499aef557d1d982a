package engine

import (
	"time"

	"github.com/roach88/tasksync/internal/checklist"
)

// DetectDrift reports whether content differs from what was last
// reconciled for t in entry. A slot that is unlinked, or linked but never
// reconciled, has nothing to compare against and always drifts.
func DetectDrift(entry *checklist.SyncEntry, t checklist.SourceType, content string) bool {
	rec := entry.Source(t)
	if !rec.Synced() {
		return true
	}
	return checklist.ContentHash(content) != rec.ContentHash
}

// UpdateSyncSource records a successful reconcile of artifactID for t.
func UpdateSyncSource(entry *checklist.SyncEntry, t checklist.SourceType, artifactID, contentHash string, at time.Time) {
	if entry.Sources == nil {
		entry.Sources = make(map[checklist.SourceType]*checklist.SourceRecord)
	}
	entry.Sources[t] = &checklist.SourceRecord{
		ArtifactID:   artifactID,
		ContentHash:  contentHash,
		LastSyncedAt: at,
	}
}
