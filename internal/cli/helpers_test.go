package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/require"

	"github.com/roach88/tasksync/internal/testutil"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

// newTestOptions returns options rooted in a fresh temp directory with
// deterministic ids and timestamps. The registry lives at
// <dir>/.tasksync/registry.json.
func newTestOptions(t *testing.T, format string) *RootOptions {
	t.Helper()
	dir := t.TempDir()
	return &RootOptions{
		Format:  format,
		HomeDir: dir,
		WorkDir: dir,
		IDs:     testutil.NewSequentialIDs("entry"),
		Clock:   testutil.NewDeterministicClock(testutil.DefaultEpoch, time.Minute),
	}
}

// execute runs cmd with args and stdin, returning stdout. Logs go to a
// separate buffer.
func execute(t *testing.T, cmd *cobra.Command, stdin string, args ...string) (string, error) {
	t.Helper()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetIn(strings.NewReader(stdin))
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

// decodeOK decodes a JSON success envelope into data.
func decodeOK(t *testing.T, output string, data any) {
	t.Helper()
	var resp struct {
		Status string          `json:"status"`
		Data   json.RawMessage `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(output), &resp), output)
	require.Equal(t, "ok", resp.Status, output)
	require.NoError(t, json.Unmarshal(resp.Data, data))
}

// decodeError decodes a JSON error envelope.
func decodeError(t *testing.T, output string) *CLIError {
	t.Helper()
	var resp CLIResponse
	require.NoError(t, json.Unmarshal([]byte(output), &resp), output)
	require.Equal(t, "error", resp.Status, output)
	require.NotNil(t, resp.Error)
	return resp.Error
}

func registryPath(opts *RootOptions) string {
	return filepath.Join(opts.WorkDir, ".tasksync", "registry.json")
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func reconcileVia(t *testing.T, opts *RootOptions, typ, id, content string) {
	t.Helper()
	_, err := execute(t, NewReconcileCommand(opts), content, "--type", typ, "--id", id)
	require.NoError(t, err)
}
