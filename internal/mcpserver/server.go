// Package mcpserver exposes the reconciliation engine as MCP tools so an
// agent can reconcile and link its task list without shelling out.
//
// Every tool call is one registry transaction against the shared store.
package mcpserver

import (
	"context"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/roach88/tasksync/internal/engine"
	"github.com/roach88/tasksync/internal/registry"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Backend runs engine transactions for the tools.
type Backend struct {
	store  registry.Store
	opts   []engine.Option
	logger *slog.Logger
}

// NewBackend returns a Backend over store. opts configure every engine
// the tools create.
func NewBackend(store registry.Store, logger *slog.Logger, opts ...engine.Option) *Backend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Backend{store: store, opts: opts, logger: logger}
}

func (b *Backend) run(ctx context.Context, fn func(*engine.Engine) error) error {
	return engine.Run(ctx, b.store, fn, b.opts...)
}

// New creates the MCP server with every tool registered.
func New(b *Backend) *server.MCPServer {
	s := server.NewMCPServer(
		"tasksync",
		Version,
		server.WithToolCapabilities(true),
		server.WithRecovery(),
		server.WithInstructions(instructions),
	)

	reconcile := NewReconcileTool(b)
	s.AddTool(reconcile.Definition(), reconcile.Handle)

	link := NewLinkTool(b)
	s.AddTool(link.Definition(), link.Handle)

	unlink := NewUnlinkTool(b)
	s.AddTool(unlink.Definition(), unlink.Handle)

	linked := NewLinkedTool(b)
	s.AddTool(linked.Definition(), linked.Handle)

	drift := NewDriftTool(b)
	s.AddTool(drift.Definition(), drift.Handle)

	state := NewStateTool(b)
	s.AddTool(state.Definition(), state.Handle)

	return s
}

// ServeStdio serves the tools over stdin/stdout until the client
// disconnects.
func ServeStdio(b *Backend) error {
	b.logger.Info("serving MCP over stdio", "version", Version)
	return server.ServeStdio(New(b))
}

const instructions = `tasksync keeps one checklist consistent across a GitHub issue, an agent task list, an OpenSpec change and a plan document.

Source types: github_issue, claude_task, openspec_change, plan_step.

Call tasksync_reconcile with an artifact's current content whenever you read or change it. Use tasksync_link once to tie artifacts that track the same work together; reconciling any of them then merges into the shared checklist. tasksync_state returns the merged checklist.`
