package checklist

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// SourceType identifies the external system an artifact lives in.
type SourceType string

const (
	SourceGitHubIssue    SourceType = "github_issue"
	SourceClaudeTask     SourceType = "claude_task"
	SourceOpenSpecChange SourceType = "openspec_change"
	SourcePlanStep       SourceType = "plan_step"
)

// SourceTypes lists every source type in canonical order.
// Serialization and listings iterate in this order.
var SourceTypes = []SourceType{
	SourceGitHubIssue,
	SourceClaudeTask,
	SourceOpenSpecChange,
	SourcePlanStep,
}

// Valid reports whether t is one of the known source types.
func (t SourceType) Valid() bool {
	for _, known := range SourceTypes {
		if t == known {
			return true
		}
	}
	return false
}

// ParseSourceType converts a user-supplied name into a SourceType.
// Hyphens are accepted in place of underscores.
func ParseSourceType(s string) (SourceType, error) {
	t := SourceType(strings.ReplaceAll(strings.TrimSpace(strings.ToLower(s)), "-", "_"))
	if !t.Valid() {
		return "", fmt.Errorf("invalid source type %q: must be one of: %s", s, joinSourceTypes())
	}
	return t, nil
}

func joinSourceTypes() string {
	names := make([]string, len(SourceTypes))
	for i, t := range SourceTypes {
		names[i] = string(t)
	}
	return strings.Join(names, ", ")
}

// Status is the lifecycle state of a checklist item.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// statusAliases maps the spellings seen across task systems to a Status.
var statusAliases = map[string]Status{
	"pending":     StatusPending,
	"todo":        StatusPending,
	"open":        StatusPending,
	"in-progress": StatusInProgress,
	"in_progress": StatusInProgress,
	"inprogress":  StatusInProgress,
	"active":      StatusInProgress,
	"doing":       StatusInProgress,
	"completed":   StatusCompleted,
	"complete":    StatusCompleted,
	"done":        StatusCompleted,
	"closed":      StatusCompleted,
}

// ParseStatus maps a status string (any known alias, case-insensitive)
// to a Status. The second return is false for unknown values.
func ParseStatus(s string) (Status, bool) {
	st, ok := statusAliases[strings.ToLower(strings.TrimSpace(s))]
	return st, ok
}

// Valid reports whether s is one of the three canonical statuses.
func (s Status) Valid() bool {
	return s == StatusPending || s == StatusInProgress || s == StatusCompleted
}

// ChecklistItem is one task line, regardless of the artifact it came from.
// IDSource is the source type whose parse produced ID; ids are only
// comparable between items with the same IDSource.
type ChecklistItem struct {
	ID       string     `json:"id"`
	IDSource SourceType `json:"idSource,omitempty"`
	Title    string     `json:"title"`
	Status   Status     `json:"status"`
	Updated  time.Time  `json:"updated"`
	Priority string     `json:"priority,omitempty"`
	Notes    string     `json:"notes,omitempty"`
}

// SourceRecord is the per-(entry, source type) sync state.
type SourceRecord struct {
	ArtifactID   string
	ContentHash  string
	LastSyncedAt time.Time
}

// Synced reports whether the record has ever been reconciled.
func (r *SourceRecord) Synced() bool {
	return r != nil && r.ContentHash != ""
}

// ArtifactRef names one artifact in one external system.
type ArtifactRef struct {
	Type SourceType `json:"type"`
	ID   string     `json:"id"`
}

func (r ArtifactRef) String() string {
	return fmt.Sprintf("%s:%s", r.Type, r.ID)
}

// ReconciliationResult describes the outcome of reconciling one artifact.
type ReconciliationResult struct {
	EntryID       string          `json:"entryId"`
	ArtifactType  SourceType      `json:"artifactType"`
	ArtifactID    string          `json:"artifactId"`
	DriftDetected bool            `json:"driftDetected"`
	ItemsAdded    int             `json:"itemsAdded"`
	ItemsRemoved  int             `json:"itemsRemoved"`
	StatusChanges int             `json:"statusChanges"`
	NewHash       string          `json:"newHash"`
	MergedItems   []ChecklistItem `json:"mergedItems"`
	Unparsed      []UnparsedLine  `json:"unparsed,omitempty"`
}

// UnparsedLine records a task-like line (or record) that was skipped.
type UnparsedLine struct {
	Line   int    `json:"line"`
	Text   string `json:"text"`
	Reason string `json:"reason"`
}

// StatusSummary counts items per status.
type StatusSummary struct {
	Total      int `json:"total"`
	Pending    int `json:"pending"`
	InProgress int `json:"inProgress"`
	Completed  int `json:"completed"`
}

// Summarize counts items by status.
func Summarize(items []ChecklistItem) StatusSummary {
	var s StatusSummary
	for _, it := range items {
		s.Total++
		switch it.Status {
		case StatusCompleted:
			s.Completed++
		case StatusInProgress:
			s.InProgress++
		default:
			s.Pending++
		}
	}
	return s
}

// CloneItems returns a copy of items that shares no backing array.
// A nil input yields an empty, non-nil slice so JSON renders [].
func CloneItems(items []ChecklistItem) []ChecklistItem {
	out := make([]ChecklistItem, len(items))
	copy(out, items)
	return out
}

// SortedSourceTypes returns the keys of m in canonical order.
func SortedSourceTypes[V any](m map[SourceType]V) []SourceType {
	out := make([]SourceType, 0, len(m))
	for t := range m {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return typeIndex(out[i]) < typeIndex(out[j]) })
	return out
}

func typeIndex(t SourceType) int {
	for i, known := range SourceTypes {
		if known == t {
			return i
		}
	}
	return len(SourceTypes)
}
