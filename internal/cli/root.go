package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/engine"
	"github.com/roach88/tasksync/internal/registry"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose    bool
	Format     string // "json" | "text"
	ConfigFile string
	Registry   string
	Backend    string
	NoColor    bool

	// HomeDir and WorkDir override the directories config files are
	// looked up in (for testing). Empty means the real ones.
	HomeDir string
	WorkDir string

	// Store replaces the configured registry store (for testing).
	Store registry.Store

	// IDs and Clock override entry id generation and timestamps (for
	// testing). Nil means UUIDv7 ids and the system clock.
	IDs   engine.IDGenerator
	Clock engine.Clock
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the tasksync CLI.
func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "tasksync",
		Short: "Reconcile checklists across issues, agent tasks, specs and plans",
		Long: `tasksync keeps one logical checklist consistent across the places it lives:
GitHub issue bodies, agent task lists, OpenSpec change task files and plan
documents. Linked artifacts share a registry entry; reconciling an artifact
merges its checklist into that entry.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			if opts.NoColor {
				color.NoColor = true
			}
			return nil
		},
	}

	// Global flags
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVar(&opts.ConfigFile, "config", "", "config file (default: ./.tasksync.yaml)")
	cmd.PersistentFlags().StringVar(&opts.Registry, "registry", "", "registry path (overrides registry.path)")
	cmd.PersistentFlags().StringVar(&opts.Backend, "backend", "", "registry backend: json|sqlite|memory")
	cmd.PersistentFlags().BoolVar(&opts.NoColor, "no-color", false, "disable colored output")

	cmd.AddCommand(NewReconcileCommand(opts))
	cmd.AddCommand(NewLinkCommand(opts))
	cmd.AddCommand(NewUnlinkCommand(opts))
	cmd.AddCommand(NewLinkedCommand(opts))
	cmd.AddCommand(NewDriftCommand(opts))
	cmd.AddCommand(NewStateCommand(opts))
	cmd.AddCommand(NewEntriesCommand(opts))
	cmd.AddCommand(NewHashCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewInitCommand(opts))

	return cmd
}

// Execute runs the root command with os.Args and returns the process exit
// code. Errors the commands have not reported themselves (flag and usage
// errors) are printed to stderr and exit with ExitCommandError.
func Execute(ctx context.Context) int {
	cmd := NewRootCommand()
	err := cmd.ExecuteContext(ctx)
	if err == nil {
		return ExitSuccess
	}
	var exitErr *ExitError
	if !errors.As(err, &exitErr) {
		fmt.Fprintf(cmd.ErrOrStderr(), "Error: %v\n", err)
		return ExitCommandError
	}
	return exitErr.Code
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

// overrides turns the registry flags into config keys.
func (o *RootOptions) overrides() map[string]any {
	m := map[string]any{}
	if o.Backend != "" {
		m["registry.backend"] = o.Backend
	}
	if o.Registry != "" {
		m["registry.path"] = o.Registry
	}
	if o.Verbose {
		m["log.level"] = "debug"
	}
	return m
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}
