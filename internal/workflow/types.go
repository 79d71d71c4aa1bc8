// Package workflow handles declarative development workflow definitions.
//
// A workflow is a state machine: named phases (states) connected by
// transitions, each carrying the instruction text an AI coding agent should
// follow when it enters the target phase. Definitions are written in YAML,
// validated on load, and immutable afterwards — downstream code never sees a
// raw parsed document, only a Definition that passed validation.
package workflow

// Definition is a complete, validated workflow state machine.
type Definition struct {
	Name         string           `yaml:"name" json:"name"`
	Description  string           `yaml:"description" json:"description"`
	Domain       string           `yaml:"domain" json:"domain,omitempty"`
	InitialState string           `yaml:"initial_state" json:"initial_state"`
	States       map[string]State `yaml:"states" json:"states"`
}

// State is a single phase of a workflow.
type State struct {
	Description string `yaml:"description" json:"description"`

	// DefaultInstructions is the instruction text used whenever this state
	// is entered without a more specific transition instruction.
	DefaultInstructions string `yaml:"default_instructions" json:"default_instructions"`

	// Transitions is ordered: when two entries share a target but differ by
	// trigger, the first matching entry wins.
	Transitions []Transition `yaml:"transitions" json:"transitions,omitempty"`
}

// Transition is a declared edge between two states.
type Transition struct {
	Trigger                string              `yaml:"trigger" json:"trigger"`
	To                     string              `yaml:"to" json:"to"`
	Instructions           string              `yaml:"instructions" json:"instructions,omitempty"`
	AdditionalInstructions string              `yaml:"additional_instructions" json:"additional_instructions,omitempty"`
	TransitionReason       string              `yaml:"transition_reason" json:"transition_reason"`
	ReviewPerspectives     []ReviewPerspective `yaml:"review_perspectives" json:"review_perspectives,omitempty"`
}

// ReviewPerspective names a review role and the prompt it should apply
// before the gated transition is taken.
type ReviewPerspective struct {
	Perspective string `yaml:"perspective" json:"perspective"`
	Prompt      string `yaml:"prompt" json:"prompt"`
}

// State returns the named state and whether it exists.
func (d *Definition) State(name string) (State, bool) {
	s, ok := d.States[name]
	return s, ok
}

// Reachable returns the set of state names reachable from InitialState by
// walking declared transitions.
func (d *Definition) Reachable() map[string]bool {
	seen := map[string]bool{}
	stack := []string{d.InitialState}
	for len(stack) > 0 {
		name := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if seen[name] {
			continue
		}
		seen[name] = true
		for _, tr := range d.States[name].Transitions {
			if !seen[tr.To] {
				stack = append(stack, tr.To)
			}
		}
	}
	return seen
}

// IsTerminal reports whether the named state has no outgoing transitions to
// a different state. Used to detect workflow completion.
func (d *Definition) IsTerminal(name string) bool {
	for _, tr := range d.States[name].Transitions {
		if tr.To != name {
			return false
		}
	}
	return true
}
