package tools

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/transition"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// Review states accepted by proceed_to_phase.
const (
	reviewNotRequired = "not-required"
	reviewPending     = "pending"
	reviewPerformed   = "performed"
)

// ProceedTool handles the proceed_to_phase MCP tool: the explicit
// transition path. The decision to move phases belongs to the calling
// agent; this tool validates that the move is legal, resolves its
// instructions, enforces the review gate, and persists the new phase.
type ProceedTool struct {
	mgr     *conversation.Manager
	commits *gitcommit.Manager
}

// NewProceedTool creates a ProceedTool.
func NewProceedTool(mgr *conversation.Manager, commits *gitcommit.Manager) *ProceedTool {
	return &ProceedTool{mgr: mgr, commits: commits}
}

// Definition returns the MCP tool definition for registration.
func (t *ProceedTool) Definition() mcp.Tool {
	return mcp.NewTool("proceed_to_phase",
		mcp.WithDescription(
			"Move the conversation to another phase of its workflow. Use when the current "+
				"phase's work is done (or the user explicitly asks to jump). Direct jumps to "+
				"phases without a modeled transition are allowed and fall back to the target "+
				"phase's default instructions.",
		),
		mcp.WithString("target_phase",
			mcp.Required(),
			mcp.Description("Name of the phase to move to. Must exist in the conversation's workflow."),
		),
		mcp.WithString("reason",
			mcp.Description("Why the transition is happening now, for the audit log."),
		),
		mcp.WithString("review_state",
			mcp.Description("State of the reviews gating this transition: 'not-required' (default, "+
				"only valid when the transition declares no review perspectives), 'pending', or 'performed'."),
			mcp.Enum(reviewNotRequired, reviewPending, reviewPerformed),
		),
	)
}

// Handle processes the proceed_to_phase tool call.
func (t *ProceedTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	targetPhase := strings.TrimSpace(req.GetString("target_phase", ""))
	if targetPhase == "" {
		return mcp.NewToolResultError("'target_phase' is required — name the phase to move to"), nil
	}
	reason := req.GetString("reason", "")
	reviewState := req.GetString("review_state", reviewNotRequired)

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
	def := convCtx.Definition
	fromPhase := state.CurrentPhase

	result, err := transition.Resolve(def, fromPhase, targetPhase, "")
	if err != nil {
		// Unknown target phase: a caller bug, surfaced verbatim.
		if callerFault(err) {
			return mcp.NewToolResultError(err.Error()), nil
		}
		return nil, err
	}

	if msg := reviewGateError(state.RequireReviews, result.ReviewPerspectives, reviewState); msg != "" {
		return mcp.NewToolResultError(msg), nil
	}

	updated, err := t.mgr.UpdateState(state.ConversationID,
		conversation.StateUpdate{CurrentPhase: &targetPhase})
	if err != nil {
		return nil, fmt.Errorf("persisting phase change: %w", err)
	}

	transitionReason := result.TransitionReason
	if reason != "" {
		transitionReason = reason
	}

	response := transitionResponse(updated, fromPhase, targetPhase, transitionReason, result)

	t.mgr.LogInteraction(state.ConversationID, "proceed_to_phase", map[string]any{
		"target_phase": targetPhase,
		"reason":       reason,
		"review_state": reviewState,
	}, response, targetPhase)

	t.commits.OnPhaseTransition(state.ProjectPath, state.GitCommit, fromPhase, targetPhase)
	if def.IsTerminal(targetPhase) {
		t.commits.OnWorkflowComplete(state.ProjectPath, state.GitCommit, targetPhase)
	}

	return mcp.NewToolResultText(response), nil
}

// transitionResponse renders the proceed_to_phase payload: the new phase,
// conversation id, transition details, and the resolved instructions.
func transitionResponse(state *conversation.State, from, to, reason string, result *transition.Result) string {
	return fmt.Sprintf(
		"# Phase: %s\n\n"+
			"**Conversation:** `%s`\n"+
			"**Transition:** %s → %s\n"+
			"**Reason:** %s\n"+
			"**Modeled transition:** %t\n"+
			"**Plan file:** `%s`\n\n"+
			"%s",
		to, state.ConversationID, from, to, reason, result.IsModeled,
		state.PlanFilePath, strings.TrimSpace(result.Instructions),
	)
}

// reviewGateError enforces the review gate. The gate is active only when
// the conversation requires reviews AND the resolved transition declares
// review perspectives. It returns an empty string when the transition may
// proceed.
func reviewGateError(requireReviews bool, perspectives []workflow.ReviewPerspective, reviewState string) string {
	if !requireReviews || len(perspectives) == 0 {
		return ""
	}

	names := make([]string, len(perspectives))
	for i, p := range perspectives {
		names[i] = p.Perspective
	}
	declared := strings.Join(names, ", ")

	switch reviewState {
	case reviewPerformed:
		return ""
	case reviewPending:
		return fmt.Sprintf(
			"Review required first: this transition declares review perspectives (%s) and the "+
				"conversation requires reviews before phase transitions. Perform the reviews, then "+
				"call proceed_to_phase again with review_state='performed'.", declared)
	default:
		return fmt.Sprintf(
			"This transition declares review perspectives (%s), so review_state='not-required' is "+
				"not acceptable. Perform the reviews and call again with review_state='performed'.", declared)
	}
}
