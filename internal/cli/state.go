package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// NewStateCommand creates the state command.
func NewStateCommand(rootOpts *RootOptions) *cobra.Command {
	var artifact artifactFlags

	cmd := &cobra.Command{
		Use:   "state",
		Short: "Show the merged checklist of an artifact's entry",
		Long: `Print the registry's merged checklist for the entry an artifact belongs to.
An artifact that was never reconciled or linked reports found=false.

Example:
  tasksync state --type plan_step --id docs/plan.md`,
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

			view := stateView{Artifact: artifact.ref().String()}
			err = sess.run(cmd.Context(), func(e *engine.Engine) error {
				view.Items, view.Found = e.GetRegistryState(artifact.sourceType(), artifact.ID)
				return nil
			})
			if err != nil {
				return err
			}
			if view.Found {
				s := checklist.Summarize(view.Items)
				view.Summary = &s
			}
			return formatter.Success(view)
		},
	}

	artifact.register(cmd)
	return cmd
}

type stateView struct {
	Artifact string                    `json:"artifact"`
	Found    bool                      `json:"found"`
	Summary  *checklist.StatusSummary  `json:"summary,omitempty"`
	Items    []checklist.ChecklistItem `json:"items,omitempty"`
}

func (v stateView) RenderText(w io.Writer) {
	if !v.Found {
		fmt.Fprintf(w, "%s: unknown artifact\n", bold(v.Artifact))
		return
	}
	fmt.Fprintf(w, "%s  %s\n", bold(v.Artifact), summaryLine(*v.Summary))
	renderItems(w, v.Items)
}

func summaryLine(s checklist.StatusSummary) string {
	return fmt.Sprintf("%d/%d completed, %d in progress", s.Completed, s.Total, s.InProgress)
}
