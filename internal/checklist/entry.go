package checklist

import (
	"encoding/json"
	"fmt"
	"time"
)

// RegistryVersion is the current persisted schema version.
const RegistryVersion = 1

// SyncEntry links up to one artifact per source type to a single merged
// checklist. Items are replaced wholesale by the merge engine; nothing
// else writes them.
type SyncEntry struct {
	EntryID string
	Sources map[SourceType]*SourceRecord
	Items   []ChecklistItem
}

// NewSyncEntry returns an entry with no linked sources and no items.
func NewSyncEntry(entryID string) *SyncEntry {
	return &SyncEntry{
		EntryID: entryID,
		Sources: make(map[SourceType]*SourceRecord),
		Items:   []ChecklistItem{},
	}
}

// Source returns the record for t, or nil when t is not linked.
func (e *SyncEntry) Source(t SourceType) *SourceRecord {
	if e.Sources == nil {
		return nil
	}
	return e.Sources[t]
}

// Owns reports whether the entry's slot for t holds artifactID.
func (e *SyncEntry) Owns(t SourceType, artifactID string) bool {
	rec := e.Source(t)
	return rec != nil && rec.ArtifactID == artifactID
}

// LinkedTypes returns the source types that currently hold an artifact,
// in canonical order.
func (e *SyncEntry) LinkedTypes() []SourceType {
	var out []SourceType
	for _, t := range SourceTypes {
		if e.Source(t) != nil {
			out = append(out, t)
		}
	}
	return out
}

// Clone returns a deep copy of the entry.
func (e *SyncEntry) Clone() *SyncEntry {
	c := &SyncEntry{
		EntryID: e.EntryID,
		Sources: make(map[SourceType]*SourceRecord, len(e.Sources)),
		Items:   CloneItems(e.Items),
	}
	for t, rec := range e.Sources {
		if rec == nil {
			continue
		}
		r := *rec
		c.Sources[t] = &r
	}
	return c
}

// sourceJSON is the persisted form of one source slot. All fields are null
// when the slot is unlinked.
type sourceJSON struct {
	ArtifactID   *string    `json:"artifactId"`
	ContentHash  *string    `json:"contentHash"`
	LastSyncedAt *time.Time `json:"lastSyncedAt"`
}

type entryJSON struct {
	EntryID string                    `json:"entryId"`
	Sources map[SourceType]sourceJSON `json:"sources"`
	Items   []ChecklistItem           `json:"items"`
}

// MarshalJSON emits every known source type, null-filled when unlinked.
func (e *SyncEntry) MarshalJSON() ([]byte, error) {
	out := entryJSON{
		EntryID: e.EntryID,
		Sources: make(map[SourceType]sourceJSON, len(SourceTypes)),
		Items:   e.Items,
	}
	if out.Items == nil {
		out.Items = []ChecklistItem{}
	}
	for _, t := range SourceTypes {
		rec := e.Source(t)
		if rec == nil {
			out.Sources[t] = sourceJSON{}
			continue
		}
		sj := sourceJSON{ArtifactID: strPtr(rec.ArtifactID)}
		if rec.ContentHash != "" {
			sj.ContentHash = strPtr(rec.ContentHash)
		}
		if !rec.LastSyncedAt.IsZero() {
			ts := rec.LastSyncedAt
			sj.LastSyncedAt = &ts
		}
		out.Sources[t] = sj
	}
	return json.Marshal(out)
}

// UnmarshalJSON accepts the persisted shape. Unknown source types are an
// error; null slots are dropped.
func (e *SyncEntry) UnmarshalJSON(data []byte) error {
	var in entryJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	e.EntryID = in.EntryID
	e.Items = in.Items
	if e.Items == nil {
		e.Items = []ChecklistItem{}
	}
	e.Sources = make(map[SourceType]*SourceRecord)
	for t, sj := range in.Sources {
		if !t.Valid() {
			return fmt.Errorf("entry %s: unknown source type %q", in.EntryID, t)
		}
		if sj.ArtifactID == nil {
			continue
		}
		rec := &SourceRecord{ArtifactID: *sj.ArtifactID}
		if sj.ContentHash != nil {
			rec.ContentHash = *sj.ContentHash
		}
		if sj.LastSyncedAt != nil {
			rec.LastSyncedAt = *sj.LastSyncedAt
		}
		e.Sources[t] = rec
	}
	return nil
}

func strPtr(s string) *string { return &s }

// Registry is the persisted aggregate: an ordered list of entries plus a
// schema version. It is loaded whole, mutated in memory and saved whole.
type Registry struct {
	Version int          `json:"version"`
	Entries []*SyncEntry `json:"entries"`
}

// NewRegistry returns an empty registry at the current version.
func NewRegistry() *Registry {
	return &Registry{Version: RegistryVersion, Entries: []*SyncEntry{}}
}

// Find returns the entry with the given id, or nil.
func (r *Registry) Find(entryID string) *SyncEntry {
	for _, e := range r.Entries {
		if e.EntryID == entryID {
			return e
		}
	}
	return nil
}

// Owner returns the entry whose slot for t holds artifactID, or nil.
func (r *Registry) Owner(t SourceType, artifactID string) *SyncEntry {
	for _, e := range r.Entries {
		if e.Owns(t, artifactID) {
			return e
		}
	}
	return nil
}

// Add appends an entry.
func (r *Registry) Add(e *SyncEntry) {
	r.Entries = append(r.Entries, e)
}

// Clone returns a deep copy of the registry.
func (r *Registry) Clone() *Registry {
	c := &Registry{Version: r.Version, Entries: make([]*SyncEntry, len(r.Entries))}
	for i, e := range r.Entries {
		c.Entries[i] = e.Clone()
	}
	return c
}

// CheckInvariants verifies that no artifact is owned by two entries and
// that entry ids are unique.
func (r *Registry) CheckInvariants() error {
	seenEntries := make(map[string]bool, len(r.Entries))
	owners := make(map[ArtifactRef]string)
	for _, e := range r.Entries {
		if e.EntryID == "" {
			return fmt.Errorf("entry with empty id")
		}
		if seenEntries[e.EntryID] {
			return fmt.Errorf("duplicate entry id %q", e.EntryID)
		}
		seenEntries[e.EntryID] = true
		for t, rec := range e.Sources {
			if rec == nil {
				continue
			}
			ref := ArtifactRef{Type: t, ID: rec.ArtifactID}
			if prev, ok := owners[ref]; ok {
				return fmt.Errorf("artifact %s linked to both %s and %s", ref, prev, e.EntryID)
			}
			owners[ref] = e.EntryID
		}
	}
	return nil
}
