package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// StartTool handles the start_development MCP tool: it creates the
// conversation for the current project and branch and returns the first
// phase's instructions.
type StartTool struct {
	mgr *conversation.Manager
}

// NewStartTool creates a StartTool.
func NewStartTool(mgr *conversation.Manager) *StartTool {
	return &StartTool{mgr: mgr}
}

// Definition returns the MCP tool definition for registration.
func (t *StartTool) Definition() mcp.Tool {
	return mcp.NewTool("start_development",
		mcp.WithDescription(
			"Begin a new development conversation for the current project and git branch, "+
				"bound to a named workflow. Creates the development plan file and returns the "+
				"instructions for the workflow's first phase. If development has already "+
				"progressed past the first phase, call whats_next instead.",
		),
		mcp.WithString("workflow",
			mcp.Required(),
			mcp.Description("Name of the workflow to follow. Built-ins: "+
				strings.Join(workflow.BuiltinNames(), ", ")+
				". A project may add custom workflows under .vibe/workflows/."),
		),
		mcp.WithBoolean("require_reviews",
			mcp.Description("When true, phase transitions that declare review perspectives "+
				"require the review to be performed before proceeding."),
		),
		mcp.WithString("commit_behaviour",
			mcp.Description("Automatic git commit behaviour: 'step' (after each interaction), "+
				"'phase' (on phase transitions), 'end' (once at completion), 'none' (default)."),
			mcp.Enum("step", "phase", "end", "none"),
		),
	)
}

// Handle processes the start_development tool call.
func (t *StartTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	workflowName := strings.TrimSpace(req.GetString("workflow", ""))
	if workflowName == "" {
		return mcp.NewToolResultError("'workflow' is required — name the workflow to follow"), nil
	}
	requireReviews := req.GetBool("require_reviews", false)
	commitBehaviour := gitcommit.Behaviour(req.GetString("commit_behaviour", string(gitcommit.BehaviourNone)))

	ident, err := resolveIdentity()
	if err != nil {
		return nil, err
	}

	// Guard: a conversation that moved past its initial phase must not be
	// restarted by accident.
	if existing, err := t.mgr.GetContext(ident.ProjectPath, ident.GitBranch); err == nil {
		if existing.State.CurrentPhase != existing.Definition.InitialState {
			return mcp.NewToolResultError(fmt.Sprintf(
				"Development already started: conversation %q is in the %q phase of the %q workflow. "+
					"Call whats_next to continue, or reset_development to start over.",
				existing.State.ConversationID, existing.State.CurrentPhase, existing.State.WorkflowName)), nil
		}
	} else if !apperr.IsNotFound(err) {
		return nil, err
	}

	convCtx, err := t.mgr.CreateContext(ident.ProjectPath, ident.GitBranch, workflowName,
		conversation.CreateOptions{RequireReviews: requireReviews, CommitBehaviour: commitBehaviour})
	if err != nil {
		if callerFault(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, fmt.Errorf("creating conversation: %w", err)
	}

	state := convCtx.State
	def := convCtx.Definition
	initial := def.States[def.InitialState]

	response := fmt.Sprintf(
		"# Development Started\n\n"+
			"**Workflow:** %s — %s\n"+
			"**Conversation:** `%s`\n"+
			"**Plan file:** `%s`\n"+
			"**Current phase:** %s\n\n"+
			"## Phases\n\n%s\n"+
			"## Instructions\n\n%s",
		def.Name, strings.TrimSpace(def.Description),
		state.ConversationID, state.PlanFilePath, state.CurrentPhase,
		phaseOverview(def, state.CurrentPhase),
		strings.TrimSpace(initial.DefaultInstructions),
	)

	t.mgr.LogInteraction(state.ConversationID, "start_development", map[string]any{
		"workflow":         workflowName,
		"require_reviews":  requireReviews,
		"commit_behaviour": string(commitBehaviour),
	}, response, state.CurrentPhase)

	return mcp.NewToolResultText(response), nil
}
