// Package server wires the application together: storage, workflow catalog,
// conversation manager, and the MCP tool/prompt/resource surface.
package server

import (
	"fmt"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"go.uber.org/zap"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/plan"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/prompts"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/resources"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/tools"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// Version is set at build time via ldflags.
var Version = "dev"

// New builds the fully wired MCP server. The returned cleanup function
// releases the store and the workflow catalog watcher; call it on shutdown.
func New(log *zap.Logger) (*mcpserver.MCPServer, func(), error) {
	store, err := conversation.Open(conversation.DefaultConfig(), log)
	if err != nil {
		return nil, nil, fmt.Errorf("opening conversation store: %w", err)
	}

	catalog := workflow.NewCatalog(log)
	plans, err := plan.NewFileManager()
	if err != nil {
		store.Close()
		catalog.Close()
		return nil, nil, fmt.Errorf("initializing plan manager: %w", err)
	}

	mgr := conversation.NewManager(store, catalog, plans, log)
	commits := gitcommit.NewManager(log)

	s := mcpserver.NewMCPServer(
		"responsible-vibe",
		Version,
		mcpserver.WithToolCapabilities(true),
		mcpserver.WithResourceCapabilities(false, true),
		mcpserver.WithPromptCapabilities(true),
		mcpserver.WithRecovery(),
		mcpserver.WithInstructions(serverInstructions()),
	)

	startTool := tools.NewStartTool(mgr)
	whatsNextTool := tools.NewWhatsNextTool(mgr, commits)
	proceedTool := tools.NewProceedTool(mgr, commits)
	resumeTool := tools.NewResumeTool(mgr, plans)
	resetTool := tools.NewResetTool(mgr)
	listTool := tools.NewListWorkflowsTool(catalog)

	s.AddTool(startTool.Definition(), startTool.Handle)
	s.AddTool(whatsNextTool.Definition(), whatsNextTool.Handle)
	s.AddTool(proceedTool.Definition(), proceedTool.Handle)
	s.AddTool(resumeTool.Definition(), resumeTool.Handle)
	s.AddTool(resetTool.Definition(), resetTool.Handle)
	s.AddTool(listTool.Definition(), listTool.Handle)

	startPrompt := prompts.NewStartPrompt()
	s.AddPrompt(startPrompt.Definition(), startPrompt.Handle)

	res := resources.NewHandler(mgr)
	s.AddResource(res.StateResource(), res.HandleState)

	cleanup := func() {
		catalog.Close()
		if err := store.Close(); err != nil {
			log.Warn("closing conversation store", zap.Error(err))
		}
	}

	log.Info("server wired",
		zap.String("version", Version),
		zap.Int("tools", 6),
	)

	return s, cleanup, nil
}

func serverInstructions() string {
	return `responsible-vibe guides development through structured workflows.

Getting started:
1. Call list_workflows to see the workflows available to this project.
2. Call start_development with a workflow name to begin.
3. Call whats_next after each batch of work; it returns the instructions
   for the current phase.
4. When a phase's work is done, call proceed_to_phase with the target phase.
5. Call resume_workflow at the start of a new session to recover context.

Keep the plan file up to date: it is the durable record of tasks and
decisions that survives context loss. Only call reset_development when the
user explicitly wants to discard the conversation, and confirm with them
first.`
}
