package cli

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidateCommand_ConfiguredRegistry(t *testing.T) {
	opts := newTestOptions(t, "text")

	out, err := execute(t, NewValidateCommand(opts), "")
	require.NoError(t, err)
	assert.Contains(t, out, "does not exist yet")

	reconcileVia(t, opts, "plan_step", "docs/plan.md", "- [ ] a\n")

	out, err = execute(t, NewValidateCommand(opts), "")
	require.NoError(t, err)
	assert.Equal(t, "✓ "+registryPath(opts)+" is valid (1 entries)\n", out)
}

func TestValidateCommand_SchemaViolation(t *testing.T) {
	opts := newTestOptions(t, "json")
	path := writeFile(t, opts.WorkDir, "bad.json", `{
  "version": 1,
  "entries": [
    {
      "entryId": "entry-1",
      "sources": {"jira": {"artifactId": null, "contentHash": null, "lastSyncedAt": null}},
      "items": []
    }
  ]
}
`)

	out, err := execute(t, NewValidateCommand(opts), "", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))

	cliErr := decodeError(t, out)
	assert.Equal(t, "INVALID_REGISTRY", cliErr.Code)
	assert.Contains(t, cliErr.Message, "entries.0.sources.jira")
}

func TestValidateCommand_DuplicateLink(t *testing.T) {
	opts := newTestOptions(t, "json")
	source := `{"artifactId": "p.md", "contentHash": null, "lastSyncedAt": null}`
	path := writeFile(t, opts.WorkDir, "dup.json", `{
  "version": 1,
  "entries": [
    {"entryId": "a", "sources": {"plan_step": `+source+`}, "items": []},
    {"entryId": "b", "sources": {"plan_step": `+source+`}, "items": []}
  ]
}
`)

	out, err := execute(t, NewValidateCommand(opts), "", path)
	require.Error(t, err)
	assert.Equal(t, ExitFailure, GetExitCode(err))
	cliErr := decodeError(t, out)
	assert.Equal(t, "INVALID_REGISTRY", cliErr.Code)
	assert.Contains(t, cliErr.Message, "linked to both a and b")
}

func TestValidateCommand_MissingArgumentFile(t *testing.T) {
	opts := newTestOptions(t, "json")

	out, err := execute(t, NewValidateCommand(opts), "", filepath.Join(opts.WorkDir, "none.json"))
	require.NoError(t, err)

	var view map[string]any
	decodeOK(t, out, &view)
	assert.Equal(t, true, view["missing"])
}
