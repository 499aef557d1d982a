package mcpserver

import (
	"context"
	"sort"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/tasksync/internal/checklist"
	"github.com/roach88/tasksync/internal/engine"
)

// ReconcileTool handles the tasksync_reconcile MCP tool.
type ReconcileTool struct {
	backend *Backend
}

// NewReconcileTool creates a ReconcileTool.
func NewReconcileTool(b *Backend) *ReconcileTool {
	return &ReconcileTool{backend: b}
}

// Definition returns the MCP tool definition for registration.
func (t *ReconcileTool) Definition() mcp.Tool {
	opts := append(withArtifactParams("reconcile"),
		mcp.WithDescription(
			"Merge an artifact's checklist into the registry. Pass the artifact's full current content "+
				"(issue body, task list JSON, tasks.md or plan document). Returns the merged checklist, "+
				"the counts of added, removed and status-changed items and whether the content had drifted.",
		),
		mcp.WithString("content",
			mcp.Required(),
			mcp.Description("Full current content of the artifact"),
		),
	)
	return mcp.NewTool("tasksync_reconcile", opts...)
}

// Handle processes the tasksync_reconcile tool call.
func (t *ReconcileTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := artifactArg(req)
	content := req.GetString("content", "")

	var result *checklist.ReconciliationResult
	err := t.backend.run(ctx, func(e *engine.Engine) error {
		var err error
		result, err = e.ReconcileArtifact(ref.Type, ref.ID, content)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(result)
}

// LinkTool handles the tasksync_link MCP tool.
type LinkTool struct {
	backend *Backend
}

// NewLinkTool creates a LinkTool.
func NewLinkTool(b *Backend) *LinkTool {
	return &LinkTool{backend: b}
}

// Definition returns the MCP tool definition for registration.
func (t *LinkTool) Definition() mcp.Tool {
	opts := append(withArtifactParams("link others to"),
		mcp.WithDescription(
			"Link artifacts of other source types to the registry entry of a primary artifact so they share one checklist. "+
				"Returns the artifact linked for every source type (null where none).",
		),
		mcp.WithObject("links",
			mcp.Required(),
			mcp.Description(`Artifacts to link, as {"<source type>": "<artifact id>"}`),
		),
	)
	return mcp.NewTool("tasksync_link", opts...)
}

// Handle processes the tasksync_link tool call.
func (t *LinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := artifactArg(req)
	raw, err := stringMapArg(req, "links")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	if len(raw) == 0 {
		return mcp.NewToolResultError("'links' is required"), nil
	}

	links := make([]checklist.ArtifactRef, 0, len(raw))
	for k, id := range raw {
		lt, err := checklist.ParseSourceType(k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		links = append(links, checklist.ArtifactRef{Type: lt, ID: id})
	}
	sortRefs(links)

	var linked engine.LinkedArtifacts
	err = t.backend.run(ctx, func(e *engine.Engine) error {
		var err error
		linked, err = e.LinkArtifacts(ref.Type, ref.ID, links)
		return err
	})
	if err != nil {
		return errorResult(err), nil
	}
	return jsonResult(linked)
}

// UnlinkTool handles the tasksync_unlink MCP tool.
type UnlinkTool struct {
	backend *Backend
}

// NewUnlinkTool creates an UnlinkTool.
func NewUnlinkTool(b *Backend) *UnlinkTool {
	return &UnlinkTool{backend: b}
}

// Definition returns the MCP tool definition for registration.
func (t *UnlinkTool) Definition() mcp.Tool {
	opts := append(withArtifactParams("unlink"),
		mcp.WithDescription("Detach an artifact from its registry entry. The entry keeps its checklist."),
	)
	return mcp.NewTool("tasksync_unlink", opts...)
}

// Handle processes the tasksync_unlink tool call.
func (t *UnlinkTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := artifactArg(req)
	var removed bool
	err := t.backend.run(ctx, func(e *engine.Engine) error {
		removed = e.UnlinkArtifact(ref.Type, ref.ID)
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}
	if !removed {
		return mcp.NewToolResultText(ref.String() + " was not linked"), nil
	}
	return mcp.NewToolResultText(ref.String() + " unlinked"), nil
}

// LinkedTool handles the tasksync_linked MCP tool.
type LinkedTool struct {
	backend *Backend
}

// NewLinkedTool creates a LinkedTool.
func NewLinkedTool(b *Backend) *LinkedTool {
	return &LinkedTool{backend: b}
}

// Definition returns the MCP tool definition for registration.
func (t *LinkedTool) Definition() mcp.Tool {
	opts := append(withArtifactParams("look up"),
		mcp.WithDescription("Show, for every source type, the artifact sharing a registry entry with the given artifact."),
	)
	return mcp.NewTool("tasksync_linked", opts...)
}

// Handle processes the tasksync_linked tool call.
func (t *LinkedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := artifactArg(req)
	var (
		linked engine.LinkedArtifacts
		found  bool
	)
	err := t.backend.run(ctx, func(e *engine.Engine) error {
		linked, found = e.GetLinkedArtifacts(ref.Type, ref.ID)
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}
	if !found {
		return mcp.NewToolResultError(ref.String() + " is not in the registry"), nil
	}
	return jsonResult(linked)
}

// DriftTool handles the tasksync_drift MCP tool.
type DriftTool struct {
	backend *Backend
}

// NewDriftTool creates a DriftTool.
func NewDriftTool(b *Backend) *DriftTool {
	return &DriftTool{backend: b}
}

// Definition returns the MCP tool definition for registration.
func (t *DriftTool) Definition() mcp.Tool {
	opts := append(withArtifactParams("check"),
		mcp.WithDescription(
			"Report which of the artifacts linked with the given artifact changed since their last sync. "+
				"Only source types present in 'contents' are checked. The registry is not modified.",
		),
		mcp.WithObject("contents",
			mcp.Required(),
			mcp.Description(`Current content per source type, as {"<source type>": "<content>"}`),
		),
	)
	return mcp.NewTool("tasksync_drift", opts...)
}

// Handle processes the tasksync_drift tool call.
func (t *DriftTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := artifactArg(req)
	raw, err := stringMapArg(req, "contents")
	if err != nil {
		return mcp.NewToolResultError(err.Error()), nil
	}
	contents := make(map[checklist.SourceType]string, len(raw))
	for k, content := range raw {
		ct, err := checklist.ParseSourceType(k)
		if err != nil {
			return mcp.NewToolResultError(err.Error()), nil
		}
		contents[ct] = content
	}

	var (
		drifted []checklist.SourceType
		found   bool
	)
	err = t.backend.run(ctx, func(e *engine.Engine) error {
		drifted, found = e.CheckAllDrift(ref.Type, ref.ID, contents)
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}
	if !found {
		return mcp.NewToolResultError(ref.String() + " is not in the registry"), nil
	}
	return jsonResult(map[string]any{"drifted": drifted})
}

// StateTool handles the tasksync_state MCP tool.
type StateTool struct {
	backend *Backend
}

// NewStateTool creates a StateTool.
func NewStateTool(b *Backend) *StateTool {
	return &StateTool{backend: b}
}

// Definition returns the MCP tool definition for registration.
func (t *StateTool) Definition() mcp.Tool {
	opts := append(withArtifactParams("read"),
		mcp.WithDescription("Return the merged checklist of the registry entry the artifact belongs to, with a status summary."),
	)
	return mcp.NewTool("tasksync_state", opts...)
}

// Handle processes the tasksync_state tool call.
func (t *StateTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ref := artifactArg(req)
	var (
		items []checklist.ChecklistItem
		found bool
	)
	err := t.backend.run(ctx, func(e *engine.Engine) error {
		items, found = e.GetRegistryState(ref.Type, ref.ID)
		return nil
	})
	if err != nil {
		return errorResult(err), nil
	}
	if !found {
		return mcp.NewToolResultError(ref.String() + " is not in the registry"), nil
	}
	return jsonResult(map[string]any{
		"summary": checklist.Summarize(items),
		"items":   items,
	})
}

// sortRefs orders refs by source type so map iteration does not leak
// into link order.
func sortRefs(refs []checklist.ArtifactRef) {
	sort.Slice(refs, func(i, j int) bool {
		return indexOf(refs[i].Type) < indexOf(refs[j].Type)
	})
}

func indexOf(t checklist.SourceType) int {
	for i, known := range checklist.SourceTypes {
		if known == t {
			return i
		}
	}
	return len(checklist.SourceTypes)
}
