package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// ReconcileOptions holds flags for the reconcile command.
type ReconcileOptions struct {
	*RootOptions
	Artifact artifactFlags
	File     string
}

// NewReconcileCommand creates the reconcile command.
func NewReconcileCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &ReconcileOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Merge an artifact's checklist into the registry",
		Long: `Parse the current content of an artifact and merge its checklist into the
registry entry the artifact belongs to, creating the entry on first sight.
Content whose hash matches the last sync is a no-op.

Example:
  gh issue view 12 --json body -q .body | tasksync reconcile --type github_issue --id org/repo#12
  tasksync reconcile --type openspec_change --id add-auth --file openspec/changes/add-auth/tasks.md`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReconcile(opts, cmd)
		},
	}

	opts.Artifact.register(cmd)
	cmd.Flags().StringVarP(&opts.File, "file", "f", "-", "content file (- for stdin)")

	return cmd
}

func runReconcile(opts *ReconcileOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	content, err := readInput(cmd, opts.File)
	if err != nil {
		formatter.Error("READ_ERROR", err.Error(), nil)
		return WrapExitError(ExitCommandError, "failed to read content", err)
	}

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.close(opts.RootOptions)

	var result *checklist.ReconciliationResult
	err = sess.run(cmd.Context(), func(e *engine.Engine) error {
		var err error
		result, err = e.ReconcileArtifact(opts.Artifact.sourceType(), opts.Artifact.ID, content)
		return err
	})
	if err != nil {
		return err
	}

	formatter.VerboseLog("reconciled %s into %s (drift=%t)", opts.Artifact.ref(), result.EntryID, result.DriftDetected)
	return formatter.Success(reconcileView{result})
}

// reconcileView renders a reconciliation result.
type reconcileView struct {
	*checklist.ReconciliationResult
}

func (v reconcileView) RenderText(w io.Writer) {
	r := v.ReconciliationResult
	ref := checklist.ArtifactRef{Type: r.ArtifactType, ID: r.ArtifactID}
	if !r.DriftDetected {
		fmt.Fprintf(w, "%s %s unchanged (entry %s)\n", green("✓"), bold(ref), r.EntryID)
		renderItems(w, r.MergedItems)
		return
	}
	fmt.Fprintf(w, "%s %s reconciled into entry %s\n", cyan("↻"), bold(ref), r.EntryID)
	fmt.Fprintf(w, "  added %d, removed %d, status changes %d\n", r.ItemsAdded, r.ItemsRemoved, r.StatusChanges)
	renderItems(w, r.MergedItems)
	for _, u := range r.Unparsed {
		fmt.Fprintf(w, "  %s line %d: %s (%s)\n", yellow("skipped"), u.Line, u.Text, u.Reason)
	}
}
