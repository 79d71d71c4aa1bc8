// Package prompts implements MCP prompt handlers.
//
// MCP prompts are user-triggered workflows (like slash commands) that
// instruct the AI to execute a specific sequence. Unlike tools (which the
// AI calls), prompts are initiated by the user.
package prompts

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// StartPrompt handles the vibe-start MCP prompt. It guides the AI to pick
// a workflow and begin a development conversation.
type StartPrompt struct{}

// NewStartPrompt creates a StartPrompt.
func NewStartPrompt() *StartPrompt {
	return &StartPrompt{}
}

// Definition returns the MCP prompt definition for registration.
func (p *StartPrompt) Definition() mcp.Prompt {
	return mcp.NewPrompt("vibe-start",
		mcp.WithPromptDescription(
			"Start structured development on the current branch. Picks a workflow "+
				"and walks through starting the development conversation.",
		),
		mcp.WithArgument("workflow",
			mcp.ArgumentDescription("Workflow to follow. Built-ins: "+
				strings.Join(workflow.BuiltinNames(), ", ")+". Default: epcc"),
		),
	)
}

// Handle processes the vibe-start prompt request.
func (p *StartPrompt) Handle(ctx context.Context, req mcp.GetPromptRequest) (*mcp.GetPromptResult, error) {
	workflowName := "epcc"
	if args := req.Params.Arguments; args != nil {
		if w, ok := args["workflow"]; ok && w != "" {
			workflowName = w
		}
	}

	return &mcp.GetPromptResult{
		Description: fmt.Sprintf("Start development with the %s workflow", workflowName),
		Messages: []mcp.PromptMessage{
			{
				Role: mcp.RoleUser,
				Content: mcp.NewTextContent(fmt.Sprintf(
					"I want to start structured development on this branch using the '%s' workflow.\n\n"+
						"Please:\n"+
						"1. Call list_workflows and confirm '%s' fits what I'm about to do "+
						"(suggest a better fit if it doesn't)\n"+
						"2. Call start_development with workflow='%s'\n"+
						"3. Follow the returned phase instructions, and call whats_next after "+
						"each batch of work to stay on track\n"+
						"4. Use proceed_to_phase only when the current phase's work is genuinely done",
					workflowName, workflowName, workflowName,
				)),
			},
		},
	}, nil
}
