package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/config"
)

// NewInitCommand creates the init command.
func NewInitCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write a default .tasksync.yaml in the current directory",
		Long: `Write a commented default project configuration. An existing file is left
untouched.

Example:
  tasksync init`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			formatter := rootOpts.formatter(cmd)

			dir := rootOpts.WorkDir
			if dir == "" {
				wd, err := os.Getwd()
				if err != nil {
					formatter.Error("INIT_ERROR", err.Error(), nil)
					return WrapExitError(ExitCommandError, "working directory", err)
				}
				dir = wd
			}

			path := config.ProjectConfigPath(dir)
			if err := config.WriteDefault(path); err != nil {
				formatter.Error("INIT_ERROR", err.Error(), nil)
				return WrapExitError(ExitFailure, "failed to write config", err)
			}
			return formatter.Success(initView{Path: path})
		},
	}

	return cmd
}

type initView struct {
	Path string `json:"path"`
}

func (v initView) RenderText(w io.Writer) {
	fmt.Fprintf(w, "%s wrote %s\n", green("✓"), v.Path)
}
