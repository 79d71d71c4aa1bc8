package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// ListWorkflowsTool handles the list_workflows MCP tool: discovery of the
// workflows available to the current project.
type ListWorkflowsTool struct {
	catalog *workflow.Catalog
}

// NewListWorkflowsTool creates a ListWorkflowsTool.
func NewListWorkflowsTool(catalog *workflow.Catalog) *ListWorkflowsTool {
	return &ListWorkflowsTool{catalog: catalog}
}

// Definition returns the MCP tool definition for registration.
func (t *ListWorkflowsTool) Definition() mcp.Tool {
	return mcp.NewTool("list_workflows",
		mcp.WithDescription(
			"List the workflows available to this project: built-ins plus any custom "+
				"definitions under .vibe/workflows/, honoring the project's enabled_workflows "+
				"allow-list. Use before start_development to pick a workflow.",
		),
		mcp.WithString("domain",
			mcp.Description("Optional domain filter for discovery (e.g. 'code')."),
		),
	)
}

// Handle processes the list_workflows tool call.
func (t *ListWorkflowsTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	domain := req.GetString("domain", "")

	ident, err := resolveIdentity()
	if err != nil {
		return nil, err
	}

	summaries, err := t.catalog.List(ident.ProjectPath, domain)
	if err != nil {
		if callerFault(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("listing workflows: %w", err)
	}

	if len(summaries) == 0 {
		return mcp.NewToolResultText("No workflows available for this project with the given filter."), nil
	}

	var b strings.Builder
	b.WriteString("# Available Workflows\n\n")
	for _, s := range summaries {
		origin := "built-in"
		if s.Custom {
			origin = "custom"
		}
		fmt.Fprintf(&b, "## %s (%s, %d phases)\n\n%s\n\nStarts in: %s\n\n",
			s.Name, origin, s.PhaseCount, s.Description, s.InitialState)
	}
	b.WriteString("Call start_development with one of these names to begin.")

	return mcp.NewToolResultText(b.String()), nil
}
