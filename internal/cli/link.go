package cli

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// LinkOptions holds flags for the link command.
type LinkOptions struct {
	*RootOptions
	Artifact artifactFlags
	Links    []string
}

// NewLinkCommand creates the link command.
func NewLinkCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &LinkOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "link",
		Short: "Link artifacts of other source types to an artifact's entry",
		Long: `Attach artifacts to the registry entry of a primary artifact so that they
share one checklist. An artifact linked elsewhere is moved (link.policy=steal)
or refused with LINK_CONFLICT (link.policy=reject).

Example:
  tasksync link --type github_issue --id org/repo#12 --link claude_task=session-1 --link plan_step=docs/plan.md`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLink(opts, cmd)
		},
	}

	opts.Artifact.register(cmd)
	cmd.Flags().StringArrayVarP(&opts.Links, "link", "l", nil, "artifact to link as type=id (repeatable)")
	_ = cmd.MarkFlagRequired("link")

	return cmd
}

func runLink(opts *LinkOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	links := make([]checklist.ArtifactRef, 0, len(opts.Links))
	for _, s := range opts.Links {
		ref, err := engine.ParseArtifactRef(s)
		if err != nil {
			formatter.Error(string(engine.ErrCodeInvalidArtifact), err.Error(), nil)
			return WrapExitError(ExitCommandError, "invalid --link", err)
		}
		links = append(links, ref)
	}

	sess, err := openSession(opts.RootOptions, cmd)
	if err != nil {
		return err
	}
	defer sess.close(opts.RootOptions)

	var linked engine.LinkedArtifacts
	err = sess.run(cmd.Context(), func(e *engine.Engine) error {
		var err error
		linked, err = e.LinkArtifacts(opts.Artifact.sourceType(), opts.Artifact.ID, links)
		return err
	})
	if err != nil {
		return err
	}

	return formatter.Success(linkedView{Artifact: opts.Artifact.ref().String(), Found: true, Linked: linked})
}

// NewUnlinkCommand creates the unlink command.
func NewUnlinkCommand(rootOpts *RootOptions) *cobra.Command {
	var artifact artifactFlags

	cmd := &cobra.Command{
		Use:   "unlink",
		Short: "Detach an artifact from its registry entry",
		Long: `Clear the artifact's slot in its entry. The entry keeps its items; the next
reconcile of the artifact starts a new entry.

Example:
  tasksync unlink --type claude_task --id session-1`,
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

			var removed bool
			err = sess.run(cmd.Context(), func(e *engine.Engine) error {
				removed = e.UnlinkArtifact(artifact.sourceType(), artifact.ID)
				return nil
			})
			if err != nil {
				return err
			}
			return formatter.Success(unlinkView{Artifact: artifact.ref().String(), Unlinked: removed})
		},
	}

	artifact.register(cmd)
	return cmd
}

// NewLinkedCommand creates the linked command.
func NewLinkedCommand(rootOpts *RootOptions) *cobra.Command {
	var artifact artifactFlags

	cmd := &cobra.Command{
		Use:   "linked",
		Short: "Show the artifacts linked with an artifact",
		Long: `Print, for every source type, the artifact sharing an entry with the given
artifact.

Example:
  tasksync linked --type github_issue --id org/repo#12 --format json`,
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

			view := linkedView{Artifact: artifact.ref().String()}
			err = sess.run(cmd.Context(), func(e *engine.Engine) error {
				view.Linked, view.Found = e.GetLinkedArtifacts(artifact.sourceType(), artifact.ID)
				return nil
			})
			if err != nil {
				return err
			}
			return formatter.Success(view)
		},
	}

	artifact.register(cmd)
	return cmd
}

type linkedView struct {
	Artifact string                 `json:"artifact"`
	Found    bool                   `json:"found"`
	Linked   engine.LinkedArtifacts `json:"linked,omitempty"`
}

func (v linkedView) RenderText(w io.Writer) {
	if !v.Found {
		fmt.Fprintf(w, "%s is not in the registry\n", bold(v.Artifact))
		return
	}
	fmt.Fprintf(w, "%s\n", bold(v.Artifact))
	for _, t := range checklist.SourceTypes {
		id := v.Linked[t]
		if id == "" {
			fmt.Fprintf(w, "  %-16s %s\n", t, dim("-"))
			continue
		}
		fmt.Fprintf(w, "  %-16s %s\n", t, id)
	}
}

type unlinkView struct {
	Artifact string `json:"artifact"`
	Unlinked bool   `json:"unlinked"`
}

func (v unlinkView) RenderText(w io.Writer) {
	if !v.Unlinked {
		fmt.Fprintf(w, "%s was not linked\n", bold(v.Artifact))
		return
	}
	fmt.Fprintf(w, "%s unlinked\n", bold(v.Artifact))
}
