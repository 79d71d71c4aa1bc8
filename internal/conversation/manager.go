package conversation

import (
	"encoding/json"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/plan"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// Manager orchestrates conversation lifecycle: creation, lookup, mutation,
// and the reset protocol. It is the only layer that applies transition
// results to persisted state.
type Manager struct {
	store   *Store
	catalog *workflow.Catalog
	plans   plan.Manager
	log     *zap.Logger
}

// NewManager creates a Manager with its collaborators.
func NewManager(store *Store, catalog *workflow.Catalog, plans plan.Manager, log *zap.Logger) *Manager {
	return &Manager{store: store, catalog: catalog, plans: plans, log: log}
}

// Context is a conversation record together with its workflow definition.
// The definition is resolved by name at use-time, not embedded: editing a
// workflow file affects future calls without migrating conversation records.
type Context struct {
	State      *State
	Definition *workflow.Definition
}

// CreateOptions holds the per-conversation configuration fixed at creation.
type CreateOptions struct {
	RequireReviews  bool
	CommitBehaviour gitcommit.Behaviour
}

// CreateContext creates the conversation for the given identity, or returns
// the existing one unchanged. It never resets an existing conversation's
// phase or workflow just because start was called again.
func (m *Manager) CreateContext(projectPath, gitBranch, workflowName string, opts CreateOptions) (*Context, error) {
	id := DeriveID(projectPath, gitBranch)

	existing, err := m.store.Get(id)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		def, err := m.catalog.Resolve(projectPath, existing.WorkflowName)
		if err != nil {
			return nil, err
		}
		return &Context{State: existing, Definition: def}, nil
	}

	def, err := m.catalog.Resolve(projectPath, workflowName)
	if err != nil {
		return nil, err
	}

	if opts.CommitBehaviour == "" {
		opts.CommitBehaviour = gitcommit.BehaviourNone
	}
	if err := gitcommit.ValidateBehaviour(opts.CommitBehaviour); err != nil {
		return nil, apperr.Precondition("%v", err)
	}

	planPath := PlanFilePath(projectPath, gitBranch)
	if err := m.plans.Ensure(planPath, filepath.Base(projectPath), gitBranch); err != nil {
		return nil, fmt.Errorf("ensuring plan file: %w", err)
	}

	ts := now()
	state := &State{
		ConversationID: id,
		ProjectPath:    projectPath,
		GitBranch:      gitBranch,
		CurrentPhase:   def.InitialState,
		PlanFilePath:   planPath,
		WorkflowName:   def.Name,
		RequireReviews: opts.RequireReviews,
		GitCommit:      gitcommit.Config{Behaviour: opts.CommitBehaviour},
		CreatedAt:      ts,
		UpdatedAt:      ts,
	}
	if err := m.store.Put(state); err != nil {
		return nil, err
	}

	m.log.Info("conversation created",
		zap.String("conversation_id", id),
		zap.String("workflow", def.Name),
		zap.String("initial_phase", def.InitialState))

	return &Context{State: state, Definition: def}, nil
}

// GetContext looks up the conversation for the given identity. It fails
// with a not-found error rather than auto-creating: read-only call paths
// must never create state as a side effect.
func (m *Manager) GetContext(projectPath, gitBranch string) (*Context, error) {
	state, err := m.store.FindByProjectAndBranch(projectPath, gitBranch)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperr.NotFound(
			"no conversation exists for %s on branch %q — call start_development first",
			projectPath, gitBranch)
	}

	def, err := m.catalog.Resolve(projectPath, state.WorkflowName)
	if err != nil {
		return nil, err
	}
	return &Context{State: state, Definition: def}, nil
}

// UpdateState applies a partial update to a conversation record with
// read-modify-write semantics and stamps updated_at. Identity fields cannot
// be changed: StateUpdate does not carry them.
func (m *Manager) UpdateState(conversationID string, upd StateUpdate) (*State, error) {
	state, err := m.store.Get(conversationID)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperr.NotFound("no conversation with id %q", conversationID)
	}

	if upd.CurrentPhase != nil {
		state.CurrentPhase = *upd.CurrentPhase
	}
	if upd.PlanFilePath != nil {
		state.PlanFilePath = *upd.PlanFilePath
	}
	if upd.RequireReviews != nil {
		state.RequireReviews = *upd.RequireReviews
	}
	if upd.GitCommit != nil {
		if err := gitcommit.ValidateBehaviour(upd.GitCommit.Behaviour); err != nil {
			return nil, apperr.Precondition("%v", err)
		}
		state.GitCommit = *upd.GitCommit
	}
	state.UpdatedAt = now()

	if err := m.store.Put(state); err != nil {
		return nil, err
	}
	return state, nil
}

// LogInteraction appends an audit record for a completed tool call. The
// input is serialized as JSON.
func (m *Manager) LogInteraction(conversationID, toolName string, input any, response, phase string) {
	params, err := json.Marshal(input)
	if err != nil {
		params = []byte(fmt.Sprintf("%q", fmt.Sprint(input)))
	}
	entry := &LogEntry{
		ConversationID: conversationID,
		ToolName:       toolName,
		InputParams:    string(params),
		ResponseData:   response,
		CurrentPhase:   phase,
	}
	if err := m.store.AppendLog(entry); err != nil {
		// Audit logging must not fail the call that triggered it.
		m.log.Warn("appending interaction log failed",
			zap.String("conversation_id", conversationID),
			zap.String("tool", toolName), zap.Error(err))
	}
}

// ActiveLogs returns the non-reset interaction log for a conversation.
func (m *Manager) ActiveLogs(conversationID string) ([]LogEntry, error) {
	return m.store.ListActiveLogs(conversationID)
}

// ResetResult reports what a confirmed reset actually removed.
type ResetResult struct {
	ConversationID string   `json:"conversation_id"`
	ResetItems     []string `json:"reset_items"`
}

// Reset deletes a conversation: soft-deletes its interaction logs, hard-
// deletes the record, and deletes the plan file, verifying post-conditions
// afterwards. It refuses unless confirm is true — this is the one place
// accidental data loss is possible, so the contract requires unambiguous
// caller intent. A partial failure names the step that failed.
func (m *Manager) Reset(projectPath, gitBranch string, confirm bool, reason string) (*ResetResult, error) {
	if !confirm {
		return nil, apperr.Precondition(
			"reset requires explicit confirmation: call again with confirm=true to delete the conversation and its plan file")
	}

	state, err := m.store.FindByProjectAndBranch(projectPath, gitBranch)
	if err != nil {
		return nil, err
	}
	if state == nil {
		return nil, apperr.NotFound(
			"no conversation exists for %s on branch %q — nothing to reset", projectPath, gitBranch)
	}
	id := state.ConversationID

	if err := m.store.SoftDeleteLogs(id, reason); err != nil {
		return nil, fmt.Errorf("reset step 1 (soft-deleting interaction logs): %w", err)
	}
	if err := m.store.Delete(id); err != nil {
		return nil, fmt.Errorf("reset step 2 (deleting conversation record): %w", err)
	}
	if err := m.plans.Delete(state.PlanFilePath); err != nil {
		return nil, fmt.Errorf("reset step 3 (deleting plan file): %w", err)
	}

	// Post-condition verification: a reset that cannot prove it happened
	// must not report success.
	if remaining, err := m.store.Get(id); err != nil {
		return nil, fmt.Errorf("reset verification (reading conversation record): %w", err)
	} else if remaining != nil {
		return nil, fmt.Errorf("reset verification failed: conversation record %q still present", id)
	}
	if info := m.plans.Info(state.PlanFilePath); info.Exists {
		return nil, fmt.Errorf("reset verification failed: plan file %s still present", state.PlanFilePath)
	}

	m.log.Info("conversation reset",
		zap.String("conversation_id", id), zap.String("reason", reason))

	return &ResetResult{
		ConversationID: id,
		ResetItems:     []string{"interaction logs", "conversation record", "plan file"},
	}, nil
}
