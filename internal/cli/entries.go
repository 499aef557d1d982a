package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// NewEntriesCommand creates the entries command.
func NewEntriesCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "entries",
		Short: "List registry entries with their linked artifacts",
		Long: `List every registry entry in creation order with its linked artifacts and a
status summary of its merged checklist.

Example:
  tasksync entries
  tasksync entries --format json`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			sess, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer sess.close(rootOpts)

			view := entriesView{Entries: []entryView{}}
			err = sess.run(cmd.Context(), func(e *engine.Engine) error {
				for _, entry := range e.Entries() {
					ev := entryView{EntryID: entry.EntryID, Artifacts: []string{}, Summary: checklist.Summarize(entry.Items)}
					for _, t := range entry.LinkedTypes() {
						ev.Artifacts = append(ev.Artifacts, checklist.ArtifactRef{Type: t, ID: entry.Source(t).ArtifactID}.String())
					}
					view.Entries = append(view.Entries, ev)
				}
				return nil
			})
			if err != nil {
				return err
			}
			return formatter.Success(view)
		},
	}

	return cmd
}

type entriesView struct {
	Entries []entryView `json:"entries"`
}

type entryView struct {
	EntryID   string                  `json:"entryId"`
	Artifacts []string                `json:"artifacts"`
	Summary   checklist.StatusSummary `json:"summary"`
}

func (v entriesView) RenderText(w io.Writer) {
	if len(v.Entries) == 0 {
		fmt.Fprintln(w, dim("registry is empty"))
		return
	}
	for _, e := range v.Entries {
		fmt.Fprintf(w, "%s  %s\n", bold(e.EntryID), summaryLine(e.Summary))
		for _, a := range e.Artifacts {
			fmt.Fprintf(w, "  %s\n", a)
		}
	}
}
