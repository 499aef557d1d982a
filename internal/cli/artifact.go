package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
)

// artifactFlags are the --type/--id pair naming one artifact.
type artifactFlags struct {
	Type string
	ID   string
}

func (a *artifactFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&a.Type, "type", "", "source type: github_issue|claude_task|openspec_change|plan_step")
	cmd.Flags().StringVar(&a.ID, "id", "", "artifact id within the source type")
	_ = cmd.MarkFlagRequired("type")
	_ = cmd.MarkFlagRequired("id")
}

// sourceType normalizes the flag value. Unknown names pass through so the
// engine reports them as UNKNOWN_SOURCE_TYPE.
func (a *artifactFlags) sourceType() checklist.SourceType {
	if t, err := checklist.ParseSourceType(a.Type); err == nil {
		return t
	}
	return checklist.SourceType(a.Type)
}

func (a *artifactFlags) ref() checklist.ArtifactRef {
	return checklist.ArtifactRef{Type: a.sourceType(), ID: a.ID}
}

// readInput reads path, or stdin for "-".
func readInput(cmd *cobra.Command, path string) (string, error) {
	if path == "-" || path == "" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func renderItems(w io.Writer, items []checklist.ChecklistItem) {
	if len(items) == 0 {
		fmt.Fprintf(w, "  %s\n", dim("(no items)"))
		return
	}
	for _, it := range items {
		fmt.Fprintf(w, "  %s %s\n", statusMark(it.Status), it.Title)
	}
}
