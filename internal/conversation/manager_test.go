package conversation

import (
	"os"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitcommit"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/plan"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// --- Helpers ---

func newTestManager(t *testing.T) *Manager {
	t.Helper()
	store := newTestStore(t)
	catalog := workflow.NewCatalog(zap.NewNop())
	t.Cleanup(func() { catalog.Close() })
	plans, err := plan.NewFileManager()
	if err != nil {
		t.Fatalf("NewFileManager failed: %v", err)
	}
	return NewManager(store, catalog, plans, zap.NewNop())
}

// --- CreateContext ---

func TestCreateContext(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()

	ctx, err := m.CreateContext(project, "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	if ctx.State.CurrentPhase != "explore" {
		t.Errorf("CurrentPhase = %s, want the workflow's initial state", ctx.State.CurrentPhase)
	}
	if ctx.State.WorkflowName != "epcc" {
		t.Errorf("WorkflowName = %s, want epcc", ctx.State.WorkflowName)
	}
	if ctx.Definition == nil || ctx.Definition.Name != "epcc" {
		t.Error("context is missing its resolved workflow definition")
	}
	if ctx.State.GitCommit.Behaviour != gitcommit.BehaviourNone {
		t.Errorf("GitCommit.Behaviour = %s, want the none default", ctx.State.GitCommit.Behaviour)
	}
	if _, err := os.Stat(ctx.State.PlanFilePath); err != nil {
		t.Errorf("plan file not created: %v", err)
	}
}

func TestCreateContext_Idempotent(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()

	first, err := m.CreateContext(project, "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}

	// Move the conversation along, then call start again with a different
	// workflow: the existing conversation must survive unchanged.
	phase := "code"
	if _, err := m.UpdateState(first.State.ConversationID, StateUpdate{CurrentPhase: &phase}); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}

	second, err := m.CreateContext(project, "main", "waterfall", CreateOptions{RequireReviews: true})
	if err != nil {
		t.Fatalf("second CreateContext failed: %v", err)
	}
	if second.State.ConversationID != first.State.ConversationID {
		t.Error("second create produced a different conversation")
	}
	if second.State.WorkflowName != "epcc" {
		t.Errorf("WorkflowName = %s, the existing workflow must not change", second.State.WorkflowName)
	}
	if second.State.CurrentPhase != "code" {
		t.Errorf("CurrentPhase = %s, the existing phase must not reset", second.State.CurrentPhase)
	}
	if second.State.RequireReviews {
		t.Error("RequireReviews changed on an existing conversation")
	}
}

func TestCreateContext_UnknownWorkflow(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateContext(t.TempDir(), "main", "no-such-workflow", CreateOptions{})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestCreateContext_InvalidCommitBehaviour(t *testing.T) {
	m := newTestManager(t)
	_, err := m.CreateContext(t.TempDir(), "main", "epcc",
		CreateOptions{CommitBehaviour: gitcommit.Behaviour("hourly")})
	if !apperr.IsPrecondition(err) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

// --- GetContext ---

func TestGetContext_BeforeStart(t *testing.T) {
	m := newTestManager(t)
	_, err := m.GetContext(t.TempDir(), "main")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
	if !strings.Contains(err.Error(), "start_development") {
		t.Errorf("error %q should point the caller at start_development", err.Error())
	}
}

func TestGetContext_AfterCreate(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()
	created, err := m.CreateContext(project, "main", "bugfix", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}

	got, err := m.GetContext(project, "main")
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	if got.State.ConversationID != created.State.ConversationID {
		t.Error("GetContext returned a different conversation")
	}
	if got.Definition.Name != "bugfix" {
		t.Errorf("Definition.Name = %s, want bugfix", got.Definition.Name)
	}
}

// --- UpdateState ---

func TestUpdateState_PartialUpdate(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()
	ctx, err := m.CreateContext(project, "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}

	phase := "plan"
	reviews := true
	updated, err := m.UpdateState(ctx.State.ConversationID, StateUpdate{
		CurrentPhase:   &phase,
		RequireReviews: &reviews,
	})
	if err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if updated.CurrentPhase != "plan" || !updated.RequireReviews {
		t.Errorf("updated = %+v", updated)
	}
	if updated.WorkflowName != "epcc" || updated.ProjectPath != project {
		t.Error("untouched fields changed during partial update")
	}
}

func TestUpdateState_InvalidCommitBehaviour(t *testing.T) {
	m := newTestManager(t)
	ctx, err := m.CreateContext(t.TempDir(), "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	_, err = m.UpdateState(ctx.State.ConversationID, StateUpdate{
		GitCommit: &gitcommit.Config{Behaviour: "bogus"},
	})
	if !apperr.IsPrecondition(err) {
		t.Fatalf("expected precondition error, got %v", err)
	}
}

func TestUpdateState_UnknownConversation(t *testing.T) {
	m := newTestManager(t)
	phase := "plan"
	_, err := m.UpdateState("missing-id", StateUpdate{CurrentPhase: &phase})
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

// --- Interaction logging ---

func TestLogInteraction(t *testing.T) {
	m := newTestManager(t)
	ctx, err := m.CreateContext(t.TempDir(), "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	id := ctx.State.ConversationID

	m.LogInteraction(id, "whats_next", map[string]any{"context": "working"}, "instructions", "explore")
	m.LogInteraction(id, "proceed_to_phase", map[string]any{"target_phase": "plan"}, "moved", "plan")

	logs, err := m.ActiveLogs(id)
	if err != nil {
		t.Fatalf("ActiveLogs failed: %v", err)
	}
	if len(logs) != 2 {
		t.Fatalf("len(logs) = %d, want 2", len(logs))
	}
	tools := map[string]string{}
	for _, e := range logs {
		tools[e.ToolName] = e.InputParams
	}
	if _, ok := tools["whats_next"]; !ok {
		t.Error("whats_next interaction not logged")
	}
	if _, ok := tools["proceed_to_phase"]; !ok {
		t.Error("proceed_to_phase interaction not logged")
	}
	if !strings.Contains(tools["whats_next"], `"context":"working"`) {
		t.Errorf("InputParams = %q, want serialized input", tools["whats_next"])
	}
}

// --- Reset ---

func TestReset_RequiresConfirmation(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()
	ctx, err := m.CreateContext(project, "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}

	_, err = m.Reset(project, "main", false, "")
	if !apperr.IsPrecondition(err) {
		t.Fatalf("expected precondition error, got %v", err)
	}

	// Nothing may have been touched.
	got, err := m.GetContext(project, "main")
	if err != nil {
		t.Fatalf("GetContext failed: %v", err)
	}
	if got.State.ConversationID != ctx.State.ConversationID {
		t.Error("conversation changed by an unconfirmed reset")
	}
	if _, err := os.Stat(ctx.State.PlanFilePath); err != nil {
		t.Errorf("plan file touched by an unconfirmed reset: %v", err)
	}
}

func TestReset_Confirmed(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()
	ctx, err := m.CreateContext(project, "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	id := ctx.State.ConversationID
	m.LogInteraction(id, "whats_next", map[string]any{}, "instructions", "explore")

	result, err := m.Reset(project, "main", true, "wrong approach")
	if err != nil {
		t.Fatalf("Reset failed: %v", err)
	}
	if result.ConversationID != id {
		t.Errorf("ConversationID = %s, want %s", result.ConversationID, id)
	}
	if len(result.ResetItems) != 3 {
		t.Errorf("ResetItems = %v, want three items", result.ResetItems)
	}

	// Record and plan file are gone; the logs survive, marked reset.
	if _, err := m.GetContext(project, "main"); !apperr.IsNotFound(err) {
		t.Errorf("conversation still resolvable after reset: %v", err)
	}
	if _, err := os.Stat(ctx.State.PlanFilePath); !os.IsNotExist(err) {
		t.Error("plan file still present after reset")
	}
	active, err := m.ActiveLogs(id)
	if err != nil {
		t.Fatalf("ActiveLogs failed: %v", err)
	}
	if len(active) != 0 {
		t.Errorf("len(active) = %d after reset, want 0", len(active))
	}
	all, err := m.store.ListAllLogs(id)
	if err != nil {
		t.Fatalf("ListAllLogs failed: %v", err)
	}
	if len(all) != 1 || !all[0].IsReset {
		t.Fatalf("logs = %+v, want one soft-deleted entry", all)
	}
	if all[0].ResetReason == nil || *all[0].ResetReason != "wrong approach" {
		t.Errorf("ResetReason = %v, want 'wrong approach'", all[0].ResetReason)
	}
}

func TestReset_NothingToReset(t *testing.T) {
	m := newTestManager(t)
	_, err := m.Reset(t.TempDir(), "main", true, "")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestReset_ThenStartFresh(t *testing.T) {
	m := newTestManager(t)
	project := t.TempDir()
	first, err := m.CreateContext(project, "main", "epcc", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext failed: %v", err)
	}
	phase := "commit"
	if _, err := m.UpdateState(first.State.ConversationID, StateUpdate{CurrentPhase: &phase}); err != nil {
		t.Fatalf("UpdateState failed: %v", err)
	}
	if _, err := m.Reset(project, "main", true, ""); err != nil {
		t.Fatalf("Reset failed: %v", err)
	}

	fresh, err := m.CreateContext(project, "main", "waterfall", CreateOptions{})
	if err != nil {
		t.Fatalf("CreateContext after reset failed: %v", err)
	}
	if fresh.State.WorkflowName != "waterfall" {
		t.Errorf("WorkflowName = %s, a post-reset start must honor the new workflow", fresh.State.WorkflowName)
	}
	if fresh.State.CurrentPhase != "requirements" {
		t.Errorf("CurrentPhase = %s, want waterfall's initial state", fresh.State.CurrentPhase)
	}
}
