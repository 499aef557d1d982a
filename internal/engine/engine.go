package engine

import (
	"fmt"
	"log/slog"
	"sync"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/parse"
)

// Engine reconciles artifacts against one in-memory registry.
type Engine struct {
	mu      sync.Mutex
	reg     *checklist.Registry
	clock   Clock
	ids     IDGenerator
	matcher Matcher
	policy  LinkPolicy
	parsers *parse.Canonicalizer
	logger  *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithClock sets the wall clock. Default: SystemClock.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithIDGenerator sets the entry id generator. Default: UUIDv7Generator.
func WithIDGenerator(g IDGenerator) Option {
	return func(e *Engine) { e.ids = g }
}

// WithMatcher swaps the item matching heuristic. Default: KeyMatcher.
func WithMatcher(m Matcher) Option {
	return func(e *Engine) { e.matcher = m }
}

// WithLinkPolicy sets how conflicting links are handled. Default: LinkSteal.
func WithLinkPolicy(p LinkPolicy) Option {
	return func(e *Engine) { e.policy = p }
}

// WithCanonicalizer replaces the parser set.
func WithCanonicalizer(c *parse.Canonicalizer) Option {
	return func(e *Engine) { e.parsers = c }
}

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New returns an Engine operating on reg, which it mutates in place.
// A nil reg starts an empty registry.
func New(reg *checklist.Registry, opts ...Option) *Engine {
	if reg == nil {
		reg = checklist.NewRegistry()
	}
	e := &Engine{
		reg:     reg,
		clock:   SystemClock{},
		ids:     UUIDv7Generator{},
		matcher: KeyMatcher{},
		policy:  LinkSteal,
		parsers: parse.NewCanonicalizer(),
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Registry returns the registry the engine mutates.
func (e *Engine) Registry() *checklist.Registry {
	return e.reg
}

// ReconcileArtifact brings the entry owning (t, artifactID) up to date
// with content. The entry is created on first sight of the artifact.
//
// Unchanged content returns a zero-change result with DriftDetected false
// and leaves the registry untouched. Content that fails to parse returns a
// PARSE_FAILED error, also leaving the registry untouched.
func (e *Engine) ReconcileArtifact(t checklist.SourceType, artifactID, content string) (*checklist.ReconciliationResult, error) {
	if err := checkRef(t, artifactID); err != nil {
		return nil, err
	}
	ref := checklist.ArtifactRef{Type: t, ID: artifactID}

	e.mu.Lock()
	defer e.mu.Unlock()

	if owner := e.reg.Owner(t, artifactID); owner != nil && !DetectDrift(owner, t, content) {
		e.logger.Debug("no drift", "artifact", ref.String(), "entry", owner.EntryID)
		return &checklist.ReconciliationResult{
			EntryID:      owner.EntryID,
			ArtifactType: t,
			ArtifactID:   artifactID,
			NewHash:      owner.Source(t).ContentHash,
			MergedItems:  checklist.CloneItems(owner.Items),
		}, nil
	}

	now := e.clock.Now()
	parsed, err := e.parsers.ParseByType(t, content, now)
	if err != nil {
		e.logger.Warn("parse failed", "artifact", ref.String(), "error", err)
		return nil, newParseError(ref, err)
	}

	entry, created := FindOrCreateEntry(e.reg, t, artifactID, e.ids)
	pairs := e.matcher.Match(entry.Items, parsed.Items, parsed.StableIDs)
	out := Merge(entry.Items, parsed.Items, pairs)

	hash := checklist.ContentHash(content)
	entry.Items = out.Items
	UpdateSyncSource(entry, t, artifactID, hash, now)

	e.logger.Info("artifact reconciled",
		"artifact", ref.String(),
		"entry", entry.EntryID,
		"created", created,
		"added", out.Added,
		"removed", out.Removed,
		"status_changes", out.StatusChanges,
		"unparsed", len(parsed.Unparsed),
	)

	return &checklist.ReconciliationResult{
		EntryID:       entry.EntryID,
		ArtifactType:  t,
		ArtifactID:    artifactID,
		DriftDetected: true,
		ItemsAdded:    out.Added,
		ItemsRemoved:  out.Removed,
		StatusChanges: out.StatusChanges,
		NewHash:       hash,
		MergedItems:   checklist.CloneItems(out.Items),
		Unparsed:      parsed.Unparsed,
	}, nil
}

// ReconcileRecords reconciles a claude_task artifact supplied as
// structured records. The records' canonical JSON is the hashed content.
func (e *Engine) ReconcileRecords(artifactID string, records []parse.TaskRecord) (*checklist.ReconciliationResult, error) {
	content, err := parse.EncodeTaskRecords(records)
	if err != nil {
		return nil, err
	}
	return e.ReconcileArtifact(checklist.SourceClaudeTask, artifactID, content)
}

// CheckAllDrift reports which of the owning entry's linked sources have
// drifted, comparing each against contents. Types missing from contents
// or not linked are skipped. ok is false when the artifact is unknown.
func (e *Engine) CheckAllDrift(t checklist.SourceType, artifactID string, contents map[checklist.SourceType]string) (drifted []checklist.SourceType, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Owner(t, artifactID)
	if entry == nil {
		return nil, false
	}
	drifted = []checklist.SourceType{}
	for _, st := range entry.LinkedTypes() {
		content, supplied := contents[st]
		if supplied && DetectDrift(entry, st, content) {
			drifted = append(drifted, st)
		}
	}
	return drifted, true
}

// GetRegistryState returns a copy of the merged items of the entry owning
// (t, artifactID). ok is false when the artifact is unknown.
func (e *Engine) GetRegistryState(t checklist.SourceType, artifactID string) (items []checklist.ChecklistItem, ok bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Owner(t, artifactID)
	if entry == nil {
		return nil, false
	}
	return checklist.CloneItems(entry.Items), true
}

// FindOrCreateEntry resolves the entry owning (t, artifactID), creating
// it if needed.
func (e *Engine) FindOrCreateEntry(t checklist.SourceType, artifactID string) (*checklist.SyncEntry, error) {
	if err := checkRef(t, artifactID); err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	entry, created := FindOrCreateEntry(e.reg, t, artifactID, e.ids)
	if created {
		e.logger.Debug("entry created", "entry", entry.EntryID, "artifact", checklist.ArtifactRef{Type: t, ID: artifactID}.String())
	}
	return entry.Clone(), nil
}

// LinkArtifacts attaches links to the entry owning the primary artifact,
// creating that entry if needed. It changes topology only: items and
// hashes of existing slots are left alone, and a newly attached slot has
// no hash so its next reconcile is a first sync.
//
// A link already owned by another entry is moved under LinkSteal and
// rejected with LINK_CONFLICT under LinkReject. A rejected call changes
// nothing.
func (e *Engine) LinkArtifacts(primaryType checklist.SourceType, primaryID string, links []checklist.ArtifactRef) (LinkedArtifacts, error) {
	if err := checkRef(primaryType, primaryID); err != nil {
		return nil, err
	}
	primary := checklist.ArtifactRef{Type: primaryType, ID: primaryID}

	seen := make(map[checklist.SourceType]string)
	for _, l := range links {
		if err := checkRef(l.Type, l.ID); err != nil {
			return nil, err
		}
		if l.Type == primaryType && l.ID != primaryID {
			return nil, newInvalidArtifact(l, fmt.Sprintf("would replace the primary artifact %s", primary))
		}
		if prev, dup := seen[l.Type]; dup && prev != l.ID {
			return nil, newInvalidArtifact(l, fmt.Sprintf("conflicts with %s in the same request", checklist.ArtifactRef{Type: l.Type, ID: prev}))
		}
		seen[l.Type] = l.ID
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	target := e.reg.Owner(primaryType, primaryID)
	if e.policy == LinkReject {
		for _, l := range links {
			owner := e.reg.Owner(l.Type, l.ID)
			if owner != nil && owner != target {
				targetID := ""
				if target != nil {
					targetID = target.EntryID
				}
				return nil, newLinkConflict(l, owner.EntryID, targetID)
			}
		}
	}

	if target == nil {
		target, _ = FindOrCreateEntry(e.reg, primaryType, primaryID, e.ids)
		e.logger.Debug("entry created", "entry", target.EntryID, "artifact", primary.String())
	}

	for _, l := range links {
		if target.Owns(l.Type, l.ID) {
			continue
		}
		if owner := e.reg.Owner(l.Type, l.ID); owner != nil {
			delete(owner.Sources, l.Type)
			e.logger.Info("link moved", "artifact", l.String(), "from", owner.EntryID, "to", target.EntryID)
		}
		if old := target.Source(l.Type); old != nil {
			e.logger.Info("link replaced", "entry", target.EntryID, "old", checklist.ArtifactRef{Type: l.Type, ID: old.ArtifactID}.String(), "new", l.String())
		}
		target.Sources[l.Type] = &checklist.SourceRecord{ArtifactID: l.ID}
	}
	return linkedArtifacts(target), nil
}

// GetLinkedArtifacts returns every source type's linked artifact for the
// entry owning (t, artifactID). ok is false when the artifact is unknown.
func (e *Engine) GetLinkedArtifacts(t checklist.SourceType, artifactID string) (LinkedArtifacts, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Owner(t, artifactID)
	if entry == nil {
		return nil, false
	}
	return linkedArtifacts(entry), true
}

// UnlinkArtifact clears the slot holding (t, artifactID). The entry and
// its items stay. It reports whether anything was unlinked.
func (e *Engine) UnlinkArtifact(t checklist.SourceType, artifactID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Owner(t, artifactID)
	if entry == nil {
		return false
	}
	delete(entry.Sources, t)
	e.logger.Info("artifact unlinked", "artifact", checklist.ArtifactRef{Type: t, ID: artifactID}.String(), "entry", entry.EntryID)
	return true
}

// Entries returns copies of all entries in registry order.
func (e *Engine) Entries() []*checklist.SyncEntry {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]*checklist.SyncEntry, len(e.reg.Entries))
	for i, entry := range e.reg.Entries {
		out[i] = entry.Clone()
	}
	return out
}

// Entry returns a copy of the entry with the given id.
func (e *Engine) Entry(entryID string) (*checklist.SyncEntry, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	entry := e.reg.Find(entryID)
	if entry == nil {
		return nil, false
	}
	return entry.Clone(), true
}
