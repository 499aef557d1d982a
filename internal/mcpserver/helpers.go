package mcpserver

import (
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/roach88/tasksync/internal/checklist"
)

func withArtifactParams(verb string) []mcp.ToolOption {
	return []mcp.ToolOption{
		mcp.WithString("type",
			mcp.Required(),
			mcp.Description("Source type of the artifact to "+verb+": github_issue, claude_task, openspec_change or plan_step"),
		),
		mcp.WithString("id",
			mcp.Required(),
			mcp.Description("Artifact id within its source type, e.g. org/repo#12 or an OpenSpec change name"),
		),
	}
}

// artifactArg reads the type/id pair. Unknown types pass through so the
// engine reports them.
func artifactArg(req mcp.CallToolRequest) checklist.ArtifactRef {
	raw := req.GetString("type", "")
	t, err := checklist.ParseSourceType(raw)
	if err != nil {
		t = checklist.SourceType(raw)
	}
	return checklist.ArtifactRef{Type: t, ID: req.GetString("id", "")}
}

// stringMapArg extracts an object argument whose values are strings.
func stringMapArg(req mcp.CallToolRequest, key string) (map[string]string, error) {
	raw, ok := req.GetArguments()[key]
	if !ok || raw == nil {
		return nil, nil
	}
	obj, ok := raw.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("'%s' must be an object", key)
	}
	out := make(map[string]string, len(obj))
	for k, v := range obj {
		s, ok := v.(string)
		if !ok {
			return nil, fmt.Errorf("'%s.%s' must be a string", key, k)
		}
		out[k] = s
	}
	return out, nil
}

// jsonResult renders v as indented JSON text.
func jsonResult(v any) (*mcp.CallToolResult, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("encoding result: %w", err)
	}
	return mcp.NewToolResultText(string(data)), nil
}

// errorResult turns engine and registry errors into tool errors the
// agent can read. They are not protocol errors.
func errorResult(err error) *mcp.CallToolResult {
	return mcp.NewToolResultError(err.Error())
}
