package harness

import (
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/tasksync/internal/checklist"
)

// Snapshot serializes a scenario result as canonical JSON: the step
// trace followed by the final registry. Identical runs produce identical
// bytes whatever store backed them.
func Snapshot(name string, result *Result) ([]byte, error) {
	trace := make([]any, len(result.Trace))
	for i, ev := range result.Trace {
		m := map[string]any{
			"seq":      ev.Seq,
			"op":       ev.Op,
			"artifact": ev.Artifact,
		}
		if ev.Error != "" {
			m["error"] = ev.Error
		}
		if ev.Outcome != nil {
			m["outcome"] = ev.Outcome
		}
		trace[i] = m
	}

	snapshot := map[string]any{
		"scenario": name,
		"trace":    trace,
	}
	if result.Registry != nil {
		reg, err := registrySnapshot(result.Registry)
		if err != nil {
			return nil, err
		}
		snapshot["registry"] = reg
	}
	return checklist.MarshalCanonical(snapshot)
}

func registrySnapshot(reg *checklist.Registry) (map[string]any, error) {
	entries := make([]any, len(reg.Entries))
	for i, e := range reg.Entries {
		fp, err := checklist.ItemsFingerprint(e.Items)
		if err != nil {
			return nil, err
		}
		sources := map[string]any{}
		for _, t := range e.LinkedTypes() {
			rec := e.Source(t)
			src := map[string]any{"artifactId": rec.ArtifactID}
			if rec.ContentHash != "" {
				src["contentHash"] = rec.ContentHash
			}
			if !rec.LastSyncedAt.IsZero() {
				src["lastSyncedAt"] = formatTime(rec.LastSyncedAt)
			}
			sources[string(t)] = src
		}
		entries[i] = map[string]any{
			"entryId":     e.EntryID,
			"fingerprint": fp,
			"sources":     sources,
			"items":       itemList(e.Items, true),
		}
	}
	return map[string]any{
		"version": reg.Version,
		"entries": entries,
	}, nil
}

// RunWithGolden executes a scenario and compares its snapshot against
// testdata/golden/{scenario.Name}.golden.
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the snapshot doesn't match.
func RunWithGolden(t *testing.T, scenario *Scenario, opts ...Option) (*Result, error) {
	t.Helper()

	result, err := Run(scenario, opts...)
	if err != nil {
		return nil, err
	}
	if err := AssertGolden(t, scenario.Name, result); err != nil {
		return nil, err
	}
	return result, nil
}

// AssertGolden compares an existing result against its golden file
// without re-running the scenario.
func AssertGolden(t *testing.T, name string, result *Result) error {
	t.Helper()

	data, err := Snapshot(name, result)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, name, data)
	return nil
}
