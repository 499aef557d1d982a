package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
	"github.com/roach88/tasksync/internal/registry"
	"github.com/roach88/tasksync/internal/testutil"
)

// Harness executes scenario steps against a registry store with a
// deterministic clock and entry ids.
type Harness struct {
	store  registry.Store
	clock  *testutil.DeterministicClock
	ids    *testutil.SequentialIDs
	logger *slog.Logger
	opts   []engine.Option
}

// Option configures a run.
type Option func(*Harness)

// WithStore runs the scenario against s instead of a fresh in-memory
// store. s should start empty.
func WithStore(s registry.Store) Option {
	return func(h *Harness) { h.store = s }
}

// Run executes a scenario and returns the result.
//
// Execution flow:
// 1. Build the engine options the scenario asks for
// 2. Run each step as its own transaction, checking expect clauses
// 3. Load the final registry and evaluate assertions
func Run(scenario *Scenario, opts ...Option) (*Result, error) {
	if err := validateScenario(scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}

	h := &Harness{
		store:  registry.NewMemoryStore(),
		clock:  testutil.NewDeterministicClock(testutil.DefaultEpoch, time.Minute),
		ids:    testutil.NewSequentialIDs("entry"),
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)), // Suppress logs in tests
	}
	for _, opt := range opts {
		opt(h)
	}

	var matcher engine.Matcher = engine.KeyMatcher{}
	if scenario.Match == "title" {
		matcher = engine.TitleMatcher{}
	}
	policy, _ := engine.ParseLinkPolicy(scenario.LinkPolicy)
	h.opts = []engine.Option{
		engine.WithClock(h.clock),
		engine.WithIDGenerator(h.ids),
		engine.WithLogger(h.logger),
		engine.WithMatcher(matcher),
		engine.WithLinkPolicy(policy),
	}

	ctx := context.Background()
	result := NewResult()
	for i, step := range scenario.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	reg, err := h.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load final registry: %w", err)
	}
	result.Registry = reg

	for i, a := range scenario.Assertions {
		if err := evaluateAssertion(reg, a); err != nil {
			result.AddError(fmt.Sprintf("assertions[%d] (%s): %v", i, a.Type, err))
		}
	}
	return result, nil
}

// executeStep runs one step. Engine errors become part of the trace;
// only a registry that cannot be loaded or saved aborts the run.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	t := sourceType(step.Type)
	ev := TraceEvent{
		Seq:      index + 1,
		Op:       step.Op,
		Artifact: checklist.ArtifactRef{Type: t, ID: step.ID}.String(),
	}

	var stepErr error
	err := engine.Run(ctx, h.store, func(e *engine.Engine) error {
		ev.Outcome, stepErr = h.apply(e, t, step)
		return stepErr
	}, h.opts...)
	if err != nil && (stepErr == nil || !errors.Is(err, stepErr)) {
		return err
	}

	if stepErr != nil {
		ev.Error = string(engine.CodeOf(stepErr))
		if ev.Error == "" {
			ev.Error = "ERROR"
		}
		ev.Outcome = nil
	}
	result.AddTrace(ev)
	checkExpect(index, step, ev, stepErr, result)
	return nil
}

func (h *Harness) apply(e *engine.Engine, t checklist.SourceType, step Step) (map[string]any, error) {
	switch step.Op {
	case OpReconcile:
		res, err := e.ReconcileArtifact(t, step.ID, step.Content)
		if err != nil {
			return nil, err
		}
		out := map[string]any{
			"entryId":       res.EntryID,
			"drift":         res.DriftDetected,
			"added":         res.ItemsAdded,
			"removed":       res.ItemsRemoved,
			"statusChanges": res.StatusChanges,
			"hash":          res.NewHash,
			"items":         itemList(res.MergedItems, false),
		}
		if len(res.Unparsed) > 0 {
			out["unparsed"] = len(res.Unparsed)
		}
		return out, nil

	case OpLink:
		links, err := linkRefs(step.Links)
		if err != nil {
			return nil, err
		}
		linked, err := e.LinkArtifacts(t, step.ID, links)
		if err != nil {
			return nil, err
		}
		return map[string]any{"linked": linkedMap(linked)}, nil

	case OpUnlink:
		return map[string]any{"unlinked": e.UnlinkArtifact(t, step.ID)}, nil

	case OpDrift:
		contents := make(map[checklist.SourceType]string, len(step.Contents))
		for k, v := range step.Contents {
			contents[sourceType(k)] = v
		}
		drifted, found := e.CheckAllDrift(t, step.ID, contents)
		out := map[string]any{"found": found}
		if found {
			names := make([]any, len(drifted))
			for i, d := range drifted {
				names[i] = string(d)
			}
			out["drifted"] = names
		}
		return out, nil

	case OpState:
		items, found := e.GetRegistryState(t, step.ID)
		out := map[string]any{"found": found}
		if found {
			out["items"] = itemList(items, false)
		}
		return out, nil
	}
	return nil, fmt.Errorf("unknown op %q", step.Op)
}

// checkExpect compares a step outcome with its expect clause.
func checkExpect(index int, step Step, ev TraceEvent, stepErr error, result *Result) {
	prefix := fmt.Sprintf("steps[%d] (%s %s)", index, step.Op, ev.Artifact)
	exp := step.Expect
	if exp == nil {
		exp = &Expect{}
	}

	if exp.Error != "" {
		if ev.Error != exp.Error {
			result.AddError(fmt.Sprintf("%s: expected error %s, got %q", prefix, exp.Error, ev.Error))
		}
		return
	}
	if stepErr != nil {
		result.AddError(fmt.Sprintf("%s: unexpected error: %v", prefix, stepErr))
		return
	}

	o := ev.Outcome
	checkBool(result, prefix, "drift", exp.Drift, o["drift"])
	checkInt(result, prefix, "added", exp.Added, o["added"])
	checkInt(result, prefix, "removed", exp.Removed, o["removed"])
	checkInt(result, prefix, "status_changes", exp.StatusChanges, o["statusChanges"])
	checkBool(result, prefix, "unlinked", exp.Unlinked, o["unlinked"])
	checkBool(result, prefix, "found", exp.Found, o["found"])
	if exp.Drifted != nil {
		got := fmt.Sprint(o["drifted"])
		want := fmt.Sprint(toAny(exp.Drifted))
		if got != want {
			result.AddError(fmt.Sprintf("%s: drifted = %s, want %s", prefix, got, want))
		}
	}
}

func checkBool(result *Result, prefix, field string, want *bool, got any) {
	if want == nil {
		return
	}
	if b, ok := got.(bool); !ok || b != *want {
		result.AddError(fmt.Sprintf("%s: %s = %v, want %v", prefix, field, got, *want))
	}
}

func checkInt(result *Result, prefix, field string, want *int, got any) {
	if want == nil {
		return
	}
	if n, ok := got.(int); !ok || n != *want {
		result.AddError(fmt.Sprintf("%s: %s = %v, want %d", prefix, field, got, *want))
	}
}

// evaluateAssertion checks one assertion against the final registry.
func evaluateAssertion(reg *checklist.Registry, a Assertion) error {
	switch a.Type {
	case AssertEntries:
		if len(reg.Entries) != a.Count {
			return fmt.Errorf("entries = %d, want %d", len(reg.Entries), a.Count)
		}
		return nil
	}

	ref, err := engine.ParseArtifactRef(a.Artifact)
	if err != nil {
		return err
	}
	entry := reg.Owner(ref.Type, ref.ID)
	if entry == nil {
		return fmt.Errorf("%s is not in the registry", ref)
	}

	switch a.Type {
	case AssertItems:
		if len(entry.Items) != len(a.Items) {
			return fmt.Errorf("%d items, want %d", len(entry.Items), len(a.Items))
		}
		for i, want := range a.Items {
			got := entry.Items[i]
			status, _ := checklist.ParseStatus(want.Status)
			if got.Title != want.Title || got.Status != status || (want.ID != "" && got.ID != want.ID) {
				return fmt.Errorf("items[%d] = {%s %q %s}, want {%s %q %s}",
					i, got.ID, got.Title, got.Status, want.ID, want.Title, status)
			}
		}
	case AssertLinked:
		for _, t := range checklist.SourceTypes {
			want := ""
			for k, id := range a.Linked {
				if sourceType(k) == t {
					want = id
				}
			}
			got := ""
			if rec := entry.Source(t); rec != nil {
				got = rec.ArtifactID
			}
			if got != want {
				return fmt.Errorf("%s linked to %q, want %q", t, got, want)
			}
		}
	}
	return nil
}

// sourceType normalizes a scenario type name; unknown names pass through
// for the engine to reject.
func sourceType(s string) checklist.SourceType {
	if t, err := checklist.ParseSourceType(s); err == nil {
		return t
	}
	return checklist.SourceType(s)
}

// linkRefs turns a links map into refs in canonical source type order.
func linkRefs(m map[string]string) ([]checklist.ArtifactRef, error) {
	byType := make(map[checklist.SourceType]string, len(m))
	for k, id := range m {
		t, err := checklist.ParseSourceType(k)
		if err != nil {
			return nil, err
		}
		byType[t] = id
	}
	refs := make([]checklist.ArtifactRef, 0, len(byType))
	for _, t := range checklist.SortedSourceTypes(byType) {
		refs = append(refs, checklist.ArtifactRef{Type: t, ID: byType[t]})
	}
	return refs, nil
}

func linkedMap(l engine.LinkedArtifacts) map[string]any {
	out := map[string]any{}
	for _, ref := range l.Refs() {
		out[string(ref.Type)] = ref.ID
	}
	return out
}

// itemList converts items for canonical JSON. withUpdated adds the
// persisted-only fields used by registry snapshots.
func itemList(items []checklist.ChecklistItem, withUpdated bool) []any {
	out := make([]any, len(items))
	for i, it := range items {
		m := map[string]any{
			"id":     it.ID,
			"title":  it.Title,
			"status": string(it.Status),
		}
		if it.Priority != "" {
			m["priority"] = it.Priority
		}
		if it.Notes != "" {
			m["notes"] = it.Notes
		}
		if withUpdated {
			m["updated"] = formatTime(it.Updated)
			if it.IDSource != "" {
				m["idSource"] = string(it.IDSource)
			}
		}
		out[i] = m
	}
	return out
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func toAny(ss []string) []any {
	out := make([]any, len(ss))
	for i, s := range ss {
		out[i] = s
	}
	return out
}
