package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasksync/internal/checklist"
)

func TestStateCommand(t *testing.T) {
	opts := newTestOptions(t, "text")
	reconcileVia(t, opts, "plan_step", "docs/plan.md", "- [x] a\n- [ ] b\n- [-] c\n")

	out, err := execute(t, NewStateCommand(opts), "", "--type", "plan_step", "--id", "docs/plan.md")
	require.NoError(t, err)
	assert.Equal(t, "plan_step:docs/plan.md  1/3 completed, 1 in progress\n"+
		"  [x] a\n"+
		"  [ ] b\n"+
		"  [-] c\n", out)
}

func TestStateCommand_JSON(t *testing.T) {
	opts := newTestOptions(t, "json")
	reconcileVia(t, opts, "plan_step", "docs/plan.md", "- [x] a\n- [ ] b\n")

	out, err := execute(t, NewStateCommand(opts), "", "--type", "plan_step", "--id", "docs/plan.md")
	require.NoError(t, err)

	var view struct {
		Found   bool                      `json:"found"`
		Summary checklist.StatusSummary   `json:"summary"`
		Items   []checklist.ChecklistItem `json:"items"`
	}
	decodeOK(t, out, &view)
	assert.True(t, view.Found)
	assert.Equal(t, checklist.StatusSummary{Total: 2, Pending: 1, Completed: 1}, view.Summary)
	assert.Len(t, view.Items, 2)
}

func TestStateCommand_UnknownArtifact(t *testing.T) {
	opts := newTestOptions(t, "text")

	out, err := execute(t, NewStateCommand(opts), "", "--type", "plan_step", "--id", "nope.md")
	require.NoError(t, err)
	assert.Equal(t, "plan_step:nope.md: unknown artifact\n", out)
}

func TestEntriesCommand(t *testing.T) {
	opts := newTestOptions(t, "text")

	out, err := execute(t, NewEntriesCommand(opts), "")
	require.NoError(t, err)
	assert.Equal(t, "registry is empty\n", out)

	reconcileVia(t, opts, "github_issue", "org/repo#12", "- [x] a\n- [ ] b\n")
	_, err = execute(t, NewLinkCommand(opts), "", "--type", "github_issue", "--id", "org/repo#12", "--link", "claude_task=session-1")
	require.NoError(t, err)
	reconcileVia(t, opts, "plan_step", "docs/plan.md", "- [ ] c\n")

	out, err = execute(t, NewEntriesCommand(opts), "")
	require.NoError(t, err)
	assert.Equal(t, "entry-1  1/2 completed, 0 in progress\n"+
		"  github_issue:org/repo#12\n"+
		"  claude_task:session-1\n"+
		"entry-2  0/1 completed, 0 in progress\n"+
		"  plan_step:docs/plan.md\n", out)
}

func TestHashCommand(t *testing.T) {
	opts := newTestOptions(t, "text")

	out, err := execute(t, NewHashCommand(opts), "- [ ] a\n")
	require.NoError(t, err)
	assert.Equal(t, checklist.ContentHash("- [ ] a\n")+"\n", out)

	opts.Format = "json"
	path := writeFile(t, opts.WorkDir, "a.md", "- [ ] a\n")
	out, err = execute(t, NewHashCommand(opts), "", "--file", path)
	require.NoError(t, err)
	var data map[string]string
	decodeOK(t, out, &data)
	assert.Equal(t, checklist.ContentHash("- [ ] a\n"), data["hash"])

	_, err = execute(t, NewHashCommand(opts), "", "--file", filepath.Join(opts.WorkDir, "missing.md"))
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
