// Package gitcommit is the git-automation collaborator. It consumes the
// conversation's commit configuration and phase-transition events, creating
// best-effort work-in-progress commits. It produces no required return
// value: a failed commit is logged, never surfaced to the tool caller.
package gitcommit

import (
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// Behaviour controls when automatic commits happen during development.
type Behaviour string

const (
	// BehaviourStep commits after every tool interaction.
	BehaviourStep Behaviour = "step"
	// BehaviourPhase commits on every phase transition.
	BehaviourPhase Behaviour = "phase"
	// BehaviourEnd commits once, when the workflow reaches a terminal phase.
	BehaviourEnd Behaviour = "end"
	// BehaviourNone disables automatic commits.
	BehaviourNone Behaviour = "none"
)

// validBehaviours is the set of allowed commit behaviours.
var validBehaviours = map[Behaviour]bool{
	BehaviourStep:  true,
	BehaviourPhase: true,
	BehaviourEnd:   true,
	BehaviourNone:  true,
}

// ValidateBehaviour returns an error if the behaviour is not recognized.
func ValidateBehaviour(b Behaviour) error {
	if !validBehaviours[b] {
		return fmt.Errorf("invalid commit behaviour %q: must be one of: step, phase, end, none", b)
	}
	return nil
}

// Config is the commit configuration carried on a conversation. It is
// validated once at conversation creation and immutable afterwards unless
// changed through the conversation manager's update path.
type Config struct {
	Behaviour Behaviour `json:"commit_behaviour"`
}

// DefaultConfig disables automatic commits.
func DefaultConfig() Config {
	return Config{Behaviour: BehaviourNone}
}

// Manager creates work-in-progress commits in response to workflow events.
type Manager struct {
	log *zap.Logger
}

// NewManager creates a commit Manager.
func NewManager(log *zap.Logger) *Manager {
	return &Manager{log: log}
}

// OnStep handles a completed tool interaction.
func (m *Manager) OnStep(projectPath string, cfg Config, phase string) {
	if cfg.Behaviour != BehaviourStep {
		return
	}
	m.commit(projectPath, fmt.Sprintf("wip: step in %s phase", phase))
}

// OnPhaseTransition handles a phase change.
func (m *Manager) OnPhaseTransition(projectPath string, cfg Config, from, to string) {
	if cfg.Behaviour != BehaviourPhase && cfg.Behaviour != BehaviourStep {
		return
	}
	m.commit(projectPath, fmt.Sprintf("wip: transition from %s to %s", from, to))
}

// OnWorkflowComplete handles arrival at a terminal phase.
func (m *Manager) OnWorkflowComplete(projectPath string, cfg Config, phase string) {
	if cfg.Behaviour != BehaviourEnd {
		return
	}
	m.commit(projectPath, fmt.Sprintf("chore: development complete at %s phase", phase))
}

// commit stages everything and commits. Failures (not a repository, nothing
// to commit, git absent) are expected and logged at debug level only.
func (m *Manager) commit(projectPath, message string) {
	add := exec.Command("git", "-C", projectPath, "add", "-A")
	if out, err := add.CombinedOutput(); err != nil {
		m.log.Debug("git add skipped",
			zap.String("project", projectPath),
			zap.String("output", strings.TrimSpace(string(out))),
			zap.Error(err))
		return
	}

	commit := exec.Command("git", "-C", projectPath, "commit", "-m", message)
	if out, err := commit.CombinedOutput(); err != nil {
		m.log.Debug("git commit skipped",
			zap.String("project", projectPath),
			zap.String("output", strings.TrimSpace(string(out))),
			zap.Error(err))
		return
	}

	m.log.Info("created automatic commit",
		zap.String("project", projectPath), zap.String("message", message))
}
