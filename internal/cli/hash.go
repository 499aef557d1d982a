package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/checklist"
)

// NewHashCommand creates the hash command.
func NewHashCommand(rootOpts *RootOptions) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "hash",
		Short: "Print the content hash drift detection uses",
		Long: `Print the fingerprint recorded for artifact content at sync time. The hash
covers the bytes exactly as given: any edit, whitespace included, changes it.

Example:
  tasksync hash --file openspec/changes/add-auth/tasks.md`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)
			content, err := readInput(cmd, file)
			if err != nil {
				formatter.Error("READ_ERROR", err.Error(), nil)
				return WrapExitError(ExitCommandError, "failed to read content", err)
			}
			hash := checklist.ContentHash(content)
			if rootOpts.Format == "json" {
				return formatter.Success(map[string]string{"hash": hash})
			}
			return formatter.Success(hash)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "-", "content file (- for stdin)")
	return cmd
}
