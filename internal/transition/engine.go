// Package transition resolves which instruction applies when a conversation
// moves between workflow phases.
//
// The engine is pure: it computes the instruction text, the transition
// rationale, and whether the move follows a modeled edge, from the workflow
// definition alone. Persisting the outcome is the caller's responsibility.
package transition

import (
	"fmt"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// Result is the outcome of resolving a phase transition.
type Result struct {
	// Instructions is the composed instruction text for the target phase.
	Instructions string

	// TransitionReason explains why this transition applies. For unmodeled
	// jumps it is synthesized.
	TransitionReason string

	// IsModeled reports whether the move followed a declared edge.
	IsModeled bool

	// ReviewPerspectives are the review prompts declared on the matched
	// edge, if any. Enforcing them is the caller's concern.
	ReviewPerspectives []workflow.ReviewPerspective
}

// Resolve computes the instruction for moving from one phase to another.
//
// A modeled transition is an entry in the source state's transition list
// whose target matches (and whose trigger matches, when one is supplied).
// Its instruction starts from the target state's defaults, is replaced by
// the entry's own instructions when present, and has the entry's additional
// instructions appended under a separating heading.
//
// A move with no matching entry is an unmodeled direct jump: it falls back
// to the target's default instructions with a synthesized reason. Being
// unmodeled is never an error — only an unknown target phase is.
func Resolve(def *workflow.Definition, from, to, trigger string) (*Result, error) {
	target, ok := def.State(to)
	if !ok {
		return nil, apperr.NotFound("unknown phase %q in workflow %q", to, def.Name)
	}

	if source, ok := def.State(from); ok {
		for _, tr := range source.Transitions {
			if tr.To != to {
				continue
			}
			if trigger != "" && tr.Trigger != trigger {
				continue
			}
			return &Result{
				Instructions:       compose(target, tr),
				TransitionReason:   tr.TransitionReason,
				IsModeled:          true,
				ReviewPerspectives: tr.ReviewPerspectives,
			}, nil
		}
	}

	return &Result{
		Instructions:     target.DefaultInstructions,
		TransitionReason: fmt.Sprintf("Direct transition to %s.", to),
		IsModeled:        false,
	}, nil
}

// Continue resolves a self-continuation: the conversation keeps working in
// its current phase. A declared self-edge is applied like any modeled
// transition; without one, the phase's default instructions are used.
func Continue(def *workflow.Definition, current string) (*Result, error) {
	return Resolve(def, current, current, "")
}

// compose applies the instruction-composition rule for a modeled entry.
func compose(target workflow.State, tr workflow.Transition) string {
	instructions := target.DefaultInstructions
	if tr.Instructions != "" {
		instructions = tr.Instructions
	}
	if tr.AdditionalInstructions != "" {
		instructions += "\n\n## Additional Instructions\n\n" + tr.AdditionalInstructions
	}
	return instructions
}
