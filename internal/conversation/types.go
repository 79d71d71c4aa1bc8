// Package conversation tracks per-conversation development state.
//
// A conversation is a persistent unit of development identified by project
// path + git branch, independent of any particular chat session. Its record
// holds the active workflow, the current phase, and the per-conversation
// configuration; an append-only interaction log records every tool call.
//
// Lifecycle: a record is created exactly once per (projectPath, gitBranch)
// pair by start, mutated only through the manager's update path, and
// hard-deleted by reset. Interaction logs are never hard-deleted: reset
// soft-deletes them, preserving history for audit.
package conversation

import "github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"

// State is the durable conversation record.
type State struct {
	ConversationID string `json:"conversation_id"`
	ProjectPath    string `json:"project_path"`
	GitBranch      string `json:"git_branch"`
	CurrentPhase   string `json:"current_phase"`
	PlanFilePath   string `json:"plan_file_path"`
	WorkflowName   string `json:"workflow_name"`

	// RequireReviews gates phase transitions that declare review
	// perspectives: when set, such transitions demand a performed review.
	RequireReviews bool `json:"require_reviews_before_phase_transition"`

	// GitCommit is owned by the git-automation collaborator; this record
	// only carries it.
	GitCommit gitcommit.Config `json:"git_commit_config"`

	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

// LogEntry is one row of the append-only interaction log.
type LogEntry struct {
	ID             string  `json:"id"`
	ConversationID string  `json:"conversation_id"`
	ToolName       string  `json:"tool_name"`
	InputParams    string  `json:"input_params"`
	ResponseData   string  `json:"response_data"`
	CurrentPhase   string  `json:"current_phase"`
	Timestamp      string  `json:"timestamp"`
	IsReset        bool    `json:"is_reset"`
	ResetAt        *string `json:"reset_at,omitempty"`
	ResetReason    *string `json:"reset_reason,omitempty"`
}

// StateUpdate holds the fields the manager's update path may change.
// Identity fields (conversation id, project path, git branch) are absent by
// construction: they are immutable after creation.
type StateUpdate struct {
	CurrentPhase   *string
	PlanFilePath   *string
	RequireReviews *bool
	GitCommit      *gitcommit.Config
}
