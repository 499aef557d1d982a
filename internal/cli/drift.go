package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// DriftOptions holds flags for the drift command.
type DriftOptions struct {
	*RootOptions
	Artifact    artifactFlags
	Contents    []string
	FailOnDrift bool
}

// NewDriftCommand creates the drift command.
func NewDriftCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DriftOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "drift",
		Short: "Report which linked artifacts changed since their last sync",
		Long: `Compare the current content of the artifacts linked with an artifact against
the hashes recorded at their last sync. The registry is not modified.

Content is given per source type. Linked source types without --content and
content for source types that are not linked are not checked.

Example:
  tasksync drift --type github_issue --id org/repo#12 \
    --content github_issue=issue.md --content plan_step=docs/plan.md --fail-on-drift`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDrift(opts, cmd)
		},
	}

	opts.Artifact.register(cmd)
	cmd.Flags().StringArrayVarP(&opts.Contents, "content", "c", nil, "current content as type=PATH (repeatable, - for stdin)")
	cmd.Flags().BoolVar(&opts.FailOnDrift, "fail-on-drift", false, "exit 1 when any source drifted")

	return cmd
}

func runDrift(opts *DriftOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	contents := make(map[checklist.SourceType]string, len(opts.Contents))
	for _, s := range opts.Contents {
		ref, err := engine.ParseArtifactRef(s)
		if err != nil {
			formatter.Error(string(engine.ErrCodeInvalidArtifact), err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --content", err)
		}
		content, err := readInput(cmd, ref.ID)
		if err != nil {
			formatter.Error("READ_ERROR", err.Error(), nil)
			return WrapExitError(ExitCommandError, "failed to read content", err)
		}
		contents[ref.Type] = content
	}

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.close(opts.RootOptions)

	view := driftView{Artifact: opts.Artifact.ref().String(), Checked: []checklist.SourceType{}}
	err = sess.run(cmd.Context(), func(e *engine.Engine) error {
		view.Drifted, view.Found = e.CheckAllDrift(opts.Artifact.sourceType(), opts.Artifact.ID, contents)
		linked, _ := e.GetLinkedArtifacts(opts.Artifact.sourceType(), opts.Artifact.ID)
		for _, t := range checklist.SortedSourceTypes(contents) {
			if linked[t] != "" {
				view.Checked = append(view.Checked, t)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	if err := formatter.Success(view); err != nil {
		return err
	}
	if opts.FailOnDrift && len(view.Drifted) > 0 {
		return NewExitError(ExitFailure, "drift detected")
	}
	return nil
}

type driftView struct {
	Artifact string                 `json:"artifact"`
	Found    bool                   `json:"found"`
	Checked  []checklist.SourceType `json:"checked"`
	Drifted  []checklist.SourceType `json:"drifted"`
}

func (v driftView) RenderText(w io.Writer) {
	if !v.Found {
		fmt.Fprintf(w, "%s is not in the registry\n", bold(v.Artifact))
		return
	}
	drifted := make(map[checklist.SourceType]bool, len(v.Drifted))
	for _, t := range v.Drifted {
		drifted[t] = true
	}
	fmt.Fprintf(w, "%s\n", bold(v.Artifact))
	for _, t := range v.Checked {
		fmt.Fprintf(w, "  %-16s drift: %s\n", t, yesNo(drifted[t]))
	}
	if len(v.Checked) == 0 {
		fmt.Fprintf(w, "  %s\n", dim("(no content given)"))
	}
}
