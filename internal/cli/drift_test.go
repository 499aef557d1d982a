package cli

import (
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type driftResponse struct {
	Found   bool     `json:"found"`
	Checked []string `json:"checked"`
	Drifted []string `json:"drifted"`
}

func TestDriftCommand(t *testing.T) {
	opts := newTestOptions(t, "json")
	issue := "- [ ] a\n- [ ] b\n"
	plan := "- [ ] a\n"
	reconcileVia(t, opts, "github_issue", "org/repo#12", issue)
	_, err := execute(t, NewLinkCommand(opts), "", "--type", "github_issue", "--id", "org/repo#12", "--link", "plan_step=docs/plan.md")
	require.NoError(t, err)
	reconcileVia(t, opts, "plan_step", "docs/plan.md", plan)

	issuePath := writeFile(t, opts.WorkDir, "issue.md", issue)
	planPath := writeFile(t, opts.WorkDir, "plan.md", "- [x] a\n")
	specPath := writeFile(t, opts.WorkDir, "tasks.md", "- [ ] z\n")
	before, err := os.ReadFile(registryPath(opts))
	require.NoError(t, err)

	out, err := execute(t, NewDriftCommand(opts), "",
		"--type", "github_issue", "--id", "org/repo#12",
		"--content", "github_issue="+issuePath,
		"--content", "plan_step="+planPath,
		"--content", "openspec_change="+specPath)
	require.NoError(t, err)

	var resp driftResponse
	decodeOK(t, out, &resp)
	assert.True(t, resp.Found)
	assert.Equal(t, []string{"github_issue", "plan_step"}, resp.Checked)
	assert.Equal(t, []string{"plan_step"}, resp.Drifted)

	after, err := os.ReadFile(registryPath(opts))
	require.NoError(t, err)
	assert.Equal(t, string(before), string(after))
}

func TestDriftCommand_FailOnDrift(t *testing.T) {
	opts := newTestOptions(t, "text")
	reconcileVia(t, opts, "plan_step", "docs/plan.md", "- [ ] a\n")

	out, err := execute(t, NewDriftCommand(opts), "- [ ] a\n",
		"--type", "plan_step", "--id", "docs/plan.md", "--content", "plan_step=-", "--fail-on-drift")
	require.NoError(t, err)
	assert.Equal(t, "plan_step:docs/plan.md\n  plan_step        drift: no\n", out)

	out, err = execute(t, NewDriftCommand(opts), "- [ ] a \n",
		"--type", "plan_step", "--id", "docs/plan.md", "--content", "plan_step=-", "--fail-on-drift")
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	assert.Contains(t, out, "drift: yes")
}

func TestDriftCommand_UnknownArtifact(t *testing.T) {
	opts := newTestOptions(t, "text")

	out, err := execute(t, NewDriftCommand(opts), "", "--type", "plan_step", "--id", "nope.md")
	require.NoError(t, err)
	assert.Equal(t, "plan_step:nope.md is not in the registry\n", out)
}

func TestDriftCommand_BadContentFlag(t *testing.T) {
	opts := newTestOptions(t, "text")

	_, err := execute(t, NewDriftCommand(opts), "", "--type", "plan_step", "--id", "p.md", "--content", "plan.md")
	require.Error(t, err)
	assert.Equal(t, ExitCommandError, GetExitCode(err))
}
