package tools

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/plan"
)

// ResumeTool handles the resume_workflow MCP tool: a read-only snapshot of
// where development stands, for picking a conversation back up after a
// break or a context loss. It never mutates the phase.
type ResumeTool struct {
	mgr   *conversation.Manager
	plans plan.Manager
}

// NewResumeTool creates a ResumeTool.
func NewResumeTool(mgr *conversation.Manager, plans plan.Manager) *ResumeTool {
	return &ResumeTool{mgr: mgr, plans: plans}
}

// Definition returns the MCP tool definition for registration.
func (t *ResumeTool) Definition() mcp.Tool {
	return mcp.NewTool("resume_workflow",
		mcp.WithDescription(
			"Get a read-only snapshot of the current development conversation: workflow, "+
				"phase, plan file status, and recommended next steps. Call this at the start "+
				"of a new session to recover context. Does not change any state.",
		),
	)
}

// Handle processes the resume_workflow tool call.
func (t *ResumeTool) Handle(ctx context.Context, req mcp.CallToolRequest) (*mcp.CallToolResult, error) {
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

	planInfo := t.plans.Info(state.PlanFilePath)
	planStatus := "missing — it may have been deleted manually"
	if planInfo.Exists {
		planStatus = "present"
	}

	phaseDesc := strings.TrimSpace(def.States[state.CurrentPhase].Description)

	recommendations := []string{
		"Read the plan file to recover task state before doing anything else.",
		"Call whats_next to get the instructions for the current phase.",
	}
	if !planInfo.Exists {
		recommendations = append([]string{
			"The plan file is missing; recreate it by noting current progress, or reset_development to start over.",
		}, recommendations...)
	}
	if state.RequireReviews {
		recommendations = append(recommendations,
			"This conversation requires reviews: gated transitions need review_state='performed'.")
	}

	var recs strings.Builder
	for _, r := range recommendations {
		fmt.Fprintf(&recs, "- %s\n", r)
	}

	response := fmt.Sprintf(
		"# Workflow Status\n\n"+
			"**Workflow:** %s — %s\n"+
			"**Conversation:** `%s`\n"+
			"**Current phase:** %s — %s\n"+
			"**Branch:** %s\n"+
			"**Last activity:** %s\n\n"+
			"## Phases\n\n%s\n"+
			"## Plan\n\n"+
			"**File:** `%s` (%s)\n\n"+
			"## Recommendations\n\n%s\n"+
			"*Generated at %s*",
		def.Name, strings.TrimSpace(def.Description),
		state.ConversationID, state.CurrentPhase, phaseDesc,
		state.GitBranch, state.UpdatedAt,
		phaseOverview(def, state.CurrentPhase),
		state.PlanFilePath, planStatus,
		recs.String(),
		time.Now().UTC().Format(time.RFC3339),
	)

	return mcp.NewToolResultText(response), nil
}
