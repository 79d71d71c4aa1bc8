package workflow

import (
	"embed"
	"path"
	"sort"
	"strings"
	"sync"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
)

//go:embed definitions/*.yaml
var builtinFS embed.FS

var (
	builtinOnce sync.Once
	builtinDefs map[string]*Definition
)

// builtins parses the embedded definitions exactly once. They are compiled
// into the binary, so a parse failure is a programmer error and panics via
// must.
func builtins() map[string]*Definition {
	builtinOnce.Do(func() {
		entries, err := builtinFS.ReadDir("definitions")
		if err != nil {
			panic("built-in workflow directory missing: " + err.Error())
		}
		builtinDefs = make(map[string]*Definition, len(entries))
		for _, entry := range entries {
			data, err := builtinFS.ReadFile(path.Join("definitions", entry.Name()))
			if err != nil {
				panic("reading built-in workflow: " + err.Error())
			}
			def := must(Parse(data))
			name := strings.TrimSuffix(entry.Name(), ".yaml")
			if def.Name != name {
				panic("built-in workflow " + entry.Name() + " declares mismatched name " + def.Name)
			}
			builtinDefs[def.Name] = def
		}
	})
	return builtinDefs
}

// Builtin returns the named built-in workflow definition.
func Builtin(name string) (*Definition, error) {
	def, ok := builtins()[name]
	if !ok {
		return nil, apperr.NotFound("unknown workflow %q: available built-ins are %s",
			name, strings.Join(BuiltinNames(), ", "))
	}
	return def, nil
}

// BuiltinNames returns the sorted names of all built-in workflows.
func BuiltinNames() []string {
	defs := builtins()
	names := make([]string, 0, len(defs))
	for name := range defs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
