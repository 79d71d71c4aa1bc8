// Package resources implements MCP resource handlers.
//
// Resources provide read-only data that the host can consume for context.
// They use URI-based addressing (vibe://...) following MCP conventions.
package resources

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/conversation"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitutil"
)

// Handler manages the server's resource endpoints.
type Handler struct {
	mgr *conversation.Manager
}

// NewHandler creates a resource Handler with its dependencies.
func NewHandler(mgr *conversation.Manager) *Handler {
	return &Handler{mgr: mgr}
}

// StateResource returns the MCP resource definition for conversation state.
func (h *Handler) StateResource() mcp.Resource {
	return mcp.NewResource(
		"vibe://conversation/state",
		"Conversation State",
		mcp.WithResourceDescription("The current conversation record: workflow, phase, plan file, and configuration"),
		mcp.WithMIMEType("application/json"),
	)
}

// HandleState returns the current conversation record as JSON.
func (h *Handler) HandleState(ctx context.Context, req mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
	root, err := gitutil.FindRoot()
	if err != nil {
		return nil, fmt.Errorf("finding project root: %w", err)
	}
	branch := gitutil.CurrentBranch(root)

	convCtx, err := h.mgr.GetContext(root, branch)
	if err != nil {
		if apperr.IsNotFound(err) {
			return errorResource(req.Params.URI, err.Error()), nil
		}
		return nil, err
	}

	data, err := json.MarshalIndent(convCtx.State, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshaling conversation state: %w", err)
	}

	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      req.Params.URI,
			MIMEType: "application/json",
			Text:     string(data),
		},
	}, nil
}

// errorResource wraps an error message as readable resource contents.
func errorResource(uri, message string) []mcp.ResourceContents {
	return []mcp.ResourceContents{
		mcp.TextResourceContents{
			URI:      uri,
			MIMEType: "text/plain",
			Text:     message,
		},
	}
}
