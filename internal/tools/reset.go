package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
)

// ResetTool handles the reset_development MCP tool. Reset is the only
// destructive operation in the server, so it demands explicit confirmation:
// calling without confirm=true changes nothing.
type ResetTool struct {
	mgr *conversation.Manager
}

// NewResetTool creates a ResetTool.
func NewResetTool(mgr *conversation.Manager) *ResetTool {
	return &ResetTool{mgr: mgr}
}

// Definition returns the MCP tool definition for registration.
func (t *ResetTool) Definition() mcp.Tool {
	return mcp.NewTool("reset_development",
		mcp.WithDescription(
			"Delete the development conversation for the current project and branch: the "+
				"conversation record and the plan file are removed, and the interaction log is "+
				"marked reset (kept for audit). Requires confirm=true. A later "+
				"start_development creates a fresh conversation.",
		),
		mcp.WithBoolean("confirm",
			mcp.Required(),
			mcp.Description("Must be true. Asking the user for confirmation first is strongly advised."),
		),
		mcp.WithString("reason",
			mcp.Description("Why the conversation is being reset, recorded on the soft-deleted logs."),
		),
	)
}

// Handle processes the reset_development tool call.
func (t *ResetTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	confirm := req.GetBool("confirm", false)
	reason := req.GetString("reason", "")

	ident, err := resolveIdentity()
	if err != nil {
		return nil, err
	}

	result, err := t.mgr.Reset(ident.ProjectPath, ident.GitBranch, confirm, reason)
	if err != nil {
		if callerFault(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("resetting conversation: %w", err)
	}

	response := fmt.Sprintf(
		"# Development Reset\n\n"+
			"Conversation `%s` has been reset. Removed: %s.\n\n"+
			"Historical interaction logs are retained for audit, marked as reset. "+
			"Call start_development to begin fresh.",
		result.ConversationID, strings.Join(result.ResetItems, ", "),
	)
	return mcp.NewToolResultText(response), nil
}
