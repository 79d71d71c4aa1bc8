package workflow

import (
	"fmt"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
)

// Parse decodes and validates a workflow document. It is the only way a
// Definition enters the system; any validation failure returns a
// configuration error naming the offending field, state, or transition.
// The loader never repairs invalid input.
func Parse(data []byte) (*Definition, error) {
	var def Definition
	if err := yaml.Unmarshal(data, &def); err != nil {
		return nil, apperr.Configuration("parsing workflow document: %v", err)
	}
	if err := validate(&def); err != nil {
		return nil, err
	}
	return &def, nil
}

// LoadFile reads and parses a workflow document from disk.
func LoadFile(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, apperr.Configuration("reading workflow file %s: %v", path, err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, apperr.Configuration("workflow file %s: %v", path, err)
	}
	return def, nil
}

// validate checks structural integrity in a fixed order: top-level fields,
// initial state membership, per-state fields, per-transition fields, and
// finally reachability from the initial state.
func validate(def *Definition) error {
	if strings.TrimSpace(def.Name) == "" {
		return apperr.Configuration("workflow is missing required field 'name'")
	}
	if strings.TrimSpace(def.Description) == "" {
		return apperr.Configuration("workflow %q is missing required field 'description'", def.Name)
	}
	if strings.TrimSpace(def.InitialState) == "" {
		return apperr.Configuration("workflow %q is missing required field 'initial_state'", def.Name)
	}
	if len(def.States) == 0 {
		return apperr.Configuration("workflow %q declares no states", def.Name)
	}
	if _, ok := def.States[def.InitialState]; !ok {
		return apperr.Configuration(
			"workflow %q: initial_state %q is not a declared state", def.Name, def.InitialState)
	}

	// Deterministic error messages: walk states in sorted order.
	names := make([]string, 0, len(def.States))
	for name := range def.States {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		state := def.States[name]
		if strings.TrimSpace(state.Description) == "" {
			return apperr.Configuration("workflow %q: state %q has an empty description", def.Name, name)
		}
		if strings.TrimSpace(state.DefaultInstructions) == "" {
			return apperr.Configuration("workflow %q: state %q has empty default_instructions", def.Name, name)
		}
		for i, tr := range state.Transitions {
			if strings.TrimSpace(tr.Trigger) == "" {
				return apperr.Configuration(
					"workflow %q: state %q transition #%d has an empty trigger", def.Name, name, i+1)
			}
			if _, ok := def.States[tr.To]; !ok {
				return apperr.Configuration(
					"workflow %q: state %q transition %q targets unknown state %q", def.Name, name, tr.Trigger, tr.To)
			}
			if strings.TrimSpace(tr.TransitionReason) == "" {
				return apperr.Configuration(
					"workflow %q: state %q transition %q is missing transition_reason", def.Name, name, tr.Trigger)
			}
		}
	}

	// No orphaned islands: every declared state must be reachable from the
	// initial state.
	reachable := def.Reachable()
	var orphaned []string
	for _, name := range names {
		if !reachable[name] {
			orphaned = append(orphaned, name)
		}
	}
	if len(orphaned) > 0 {
		return apperr.Configuration(
			"workflow %q: states not reachable from initial_state %q: %s",
			def.Name, def.InitialState, strings.Join(orphaned, ", "))
	}

	return nil
}

// must is a loader helper for embedded built-in definitions, which are
// compiled into the binary and must always validate.
func must(def *Definition, err error) *Definition {
	if err != nil {
		panic(fmt.Sprintf("built-in workflow invalid: %v", err))
	}
	return def
}
