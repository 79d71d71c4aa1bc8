package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/transition"
)

// WhatsNextTool handles the whats_next MCP tool: the implicit continuation
// path. It resolves the instructions for staying in the current phase —
// applying a declared self-transition when the workflow models one — and
// never accepts an explicit target (that is proceed_to_phase's job).
type WhatsNextTool struct {
	mgr     *conversation.Manager
	commits *gitcommit.Manager
}

// NewWhatsNextTool creates a WhatsNextTool.
func NewWhatsNextTool(mgr *conversation.Manager, commits *gitcommit.Manager) *WhatsNextTool {
	return &WhatsNextTool{mgr: mgr, commits: commits}
}

// Definition returns the MCP tool definition for registration.
func (t *WhatsNextTool) Definition() mcp.Tool {
	return mcp.NewTool("whats_next",
		mcp.WithDescription(
			"Get the next instructions for the current development phase. Call this after "+
				"each batch of work (and after each user message) to stay aligned with the "+
				"workflow. Requires a conversation started with start_development.",
		),
		mcp.WithString("context",
			mcp.Description("Brief description of what is currently being worked on."),
		),
		mcp.WithString("user_input",
			mcp.Description("The user's most recent request, verbatim."),
		),
		mcp.WithString("conversation_summary",
			mcp.Description("Summary of the conversation so far, for the audit log."),
		),
		mcp.WithArray("recent_messages",
			mcp.Description("Recent messages as objects with 'role' and 'content' fields."),
		),
	)
}

// Handle processes the whats_next tool call.
func (t *WhatsNextTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	ident, err := resolveIdentity()
	if err != nil {
		return nil, err
	}

	convCtx, err := t.mgr.GetContext(ident.ProjectPath, ident.GitBranch)
	if err != nil {
		if callerFault(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("loading conversation: %w", err)
	}
	state := convCtx.State

	result, err := transition.Continue(convCtx.Definition, state.CurrentPhase)
	if err != nil {
		// The persisted phase no longer exists in the workflow — a
		// configuration change broke the conversation. Surface it.
		return nil, fmt.Errorf("resolving continuation: %w", err)
	}

	// Self-continuation keeps the phase but still counts as activity.
	if _, err := t.mgr.UpdateState(state.ConversationID, conversation.StateUpdate{}); err != nil {
		return nil, fmt.Errorf("updating conversation: %w", err)
	}

	response := continuationResponse(state, result)

	input := map[string]any{}
	for _, key := range []string{"context", "user_input", "conversation_summary"} {
		if v := req.GetString(key, ""); v != "" {
			input[key] = v
		}
	}
	if msgs, ok := req.GetArguments()["recent_messages"].([]any); ok && len(msgs) > 0 {
		input["recent_messages"] = msgs
	}
	t.mgr.LogInteraction(state.ConversationID, "whats_next", input, response, state.CurrentPhase)

	t.commits.OnStep(state.ProjectPath, state.GitCommit, state.CurrentPhase)

	return mcp.NewToolResultText(response), nil
}

// continuationResponse renders the whats_next payload: phase, conversation
// id, plan file, and the resolved instructions.
func continuationResponse(state *conversation.State, result *transition.Result) string {
	return fmt.Sprintf(
		"# Phase: %s\n\n"+
			"**Conversation:** `%s`\n"+
			"**Plan file:** `%s`\n"+
			"**Modeled transition:** %t\n\n"+
			"%s\n\n"+
			"Check the plan file for open tasks and mark completed ones before moving on.",
		state.CurrentPhase, state.ConversationID, state.PlanFilePath, result.IsModeled,
		strings.TrimSpace(result.Instructions),
	)
}
