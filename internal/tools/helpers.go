// Package tools implements the MCP tool handlers for the workflow engine.
//
// Each tool is a struct holding its dependencies, exposing a Definition()
// for registration and a Handle method compatible with mcp-go's
// CallToolRequest signature. Caller mistakes (bad arguments, unmet
// preconditions, unknown names) become error tool results; system failures
// are returned as Go errors.
package tools

import (
	"fmt"
	"strings"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/gitutil"
	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/workflow"
)

// identity is the resolved conversation identity for the current call.
type identity struct {
	ProjectPath string
	GitBranch   string
}

// resolveIdentity determines the project root and git branch for the
// current working directory.
func resolveIdentity() (identity, error) {
	root, err := gitutil.FindRoot()
	if err != nil {
		return identity{}, err
	}
	return identity{ProjectPath: root, GitBranch: gitutil.CurrentBranch(root)}, nil
}

// callerFault reports whether an error should be shown to the MCP caller as
// a tool result instead of failing the call: not-found and precondition
// errors are the caller's to fix.
func callerFault(err error) bool {
	return apperr.IsNotFound(err) || apperr.IsPrecondition(err)
}

// phaseOverview renders the workflow's phases with the current one marked.
func phaseOverview(def *workflow.Definition, current string) string {
	var b strings.Builder
	seen := map[string]bool{}
	order := phaseOrder(def)
	for _, name := range order {
		if seen[name] {
			continue
		}
		seen[name] = true
		marker := "  "
		if name == current {
			marker = "▶ "
		}
		fmt.Fprintf(&b, "%s%s — %s\n", marker, name, strings.TrimSpace(def.States[name].Description))
	}
	return b.String()
}

// phaseOrder walks the graph breadth-first from the initial state so the
// overview reads in rough process order.
func phaseOrder(def *workflow.Definition) []string {
	var order []string
	seen := map[string]bool{}
	queue := []string{def.InitialState}
	for len(queue) > 0 {
		name := queue[0]
		queue = queue[1:]
		if seen[name] {
			continue
		}
		seen[name] = true
		order = append(order, name)
		for _, tr := range def.States[name].Transitions {
			if !seen[tr.To] {
				queue = append(queue, tr.To)
			}
		}
	}
	return order
}
