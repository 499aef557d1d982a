package cli

import (
	"github.com/spf13/cobra"

	"github.com/roach88/tasksync/internal/mcpserver"
)

// NewServeCommand creates the serve command.
func NewServeCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the registry operations as MCP tools over stdio",
		Long: `Run an MCP server on stdin/stdout exposing tasksync_reconcile,
tasksync_link, tasksync_unlink, tasksync_linked, tasksync_drift and
tasksync_state. Each tool call is one registry transaction, so the CLI and
the server can share a registry.

Example (MCP client configuration):
  {"command": "tasksync", "args": ["serve"]}`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			sess, err := openSession(rootOpts, cmd)
			if err != nil {
				return err
			}
			defer sess.close(rootOpts)

			backend := mcpserver.NewBackend(sess.store, sess.logger, sess.opts...)
			if err := mcpserver.ServeStdio(backend); err != nil {
				return WrapExitError(ExitFailure, "mcp server stopped", err)
			}
			return nil
		},
	}

	return cmd
}
