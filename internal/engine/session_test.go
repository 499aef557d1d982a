package engine

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/registry"
	"github.com/roach88/tasksync/internal/testutil"
)

func TestRun_PersistsAcrossTransactions(t *testing.T) {
	ctx := context.Background()
	s := registry.NewFileStore(filepath.Join(t.TempDir(), "registry.json"))
	ids := testutil.NewSequentialIDs("entry")
	opts := []Option{
		WithIDGenerator(ids),
		WithClock(testutil.NewFrozenClock(testutil.DefaultEpoch)),
		WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}

	err := Run(ctx, s, func(e *Engine) error {
		_, err := e.ReconcileArtifact(checklist.SourcePlanStep, "plan.md", "- [ ] a\n- [x] b")
		return err
	}, opts...)
	require.NoError(t, err)

	err = Run(ctx, s, func(e *Engine) error {
		res, err := e.ReconcileArtifact(checklist.SourcePlanStep, "plan.md", "- [ ] a\n- [x] b")
		require.NoError(t, err)
		assert.False(t, res.DriftDetected, "hash was persisted")
		assert.Equal(t, "entry-1", res.EntryID)
		return nil
	}, opts...)
	require.NoError(t, err)
}

func TestRun_FailureDiscardsChanges(t *testing.T) {
	ctx := context.Background()
	s := registry.NewMemoryStore()
	boom := errors.New("boom")

	err := Run(ctx, s, func(e *Engine) error {
		if _, err := e.ReconcileArtifact(checklist.SourcePlanStep, "p", "- [ ] a"); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	reg, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Empty(t, reg.Entries)
}

func TestRun_ParseFailureSurfaces(t *testing.T) {
	s := registry.NewMemoryStore()
	err := Run(context.Background(), s, func(e *Engine) error {
		_, err := e.ReconcileArtifact(checklist.SourceClaudeTask, "s", "[not json")
		return err
	})
	require.Error(t, err)
	assert.True(t, IsParseFailure(err))
}
