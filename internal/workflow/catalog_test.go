package workflow

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
)

// --- Helpers ---

func newTestCatalog(t *testing.T) *Catalog {
	t.Helper()
	c := NewCatalog(zap.NewNop())
	t.Cleanup(func() { c.Close() })
	return c
}

func writeCustomWorkflow(t *testing.T, projectPath, name, doc string) {
	t.Helper()
	dir := CustomWorkflowDir(projectPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, name+".yaml"), []byte(doc), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
}

func customDoc(name string) string {
	return `
name: ` + name + `
description: A custom single-phase workflow.
initial_state: work
states:
  work:
    description: Do the work.
    default_instructions: Custom instructions for the work phase.
`
}

// --- Resolve ---

func TestResolve_Builtin(t *testing.T) {
	c := newTestCatalog(t)
	def, err := c.Resolve(t.TempDir(), "epcc")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if def.Name != "epcc" {
		t.Errorf("Name = %s, want epcc", def.Name)
	}
}

func TestResolve_CustomOverridesBuiltin(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	writeCustomWorkflow(t, project, "epcc", customDoc("epcc"))

	def, err := c.Resolve(project, "epcc")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if def.InitialState != "work" {
		t.Errorf("InitialState = %s, want the custom definition's work", def.InitialState)
	}
}

func TestResolve_InvalidCustomFallsBack(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	writeCustomWorkflow(t, project, "epcc", "name: epcc\n# missing everything else\n")

	def, err := c.Resolve(project, "epcc")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if def.InitialState == "work" || len(def.States) < 2 {
		t.Errorf("expected fallback to the built-in epcc, got %+v", def)
	}
}

func TestResolve_MismatchedNameFallsBack(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	writeCustomWorkflow(t, project, "epcc", customDoc("something-else"))

	def, err := c.Resolve(project, "epcc")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if def.Name != "epcc" || def.InitialState == "work" {
		t.Errorf("expected fallback to the built-in epcc, got %+v", def)
	}
}

func TestResolve_Unknown(t *testing.T) {
	c := newTestCatalog(t)
	_, err := c.Resolve(t.TempDir(), "no-such-workflow")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error, got %v", err)
	}
}

func TestResolve_CachesPerProject(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	writeCustomWorkflow(t, project, "mine", customDoc("mine"))

	first, err := c.Resolve(project, "mine")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	// Second resolution must serve the cached pointer.
	second, err := c.Resolve(project, "mine")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first != second {
		t.Error("second Resolve did not hit the cache")
	}
}

func TestInvalidate_DropsCachedDefinitions(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	writeCustomWorkflow(t, project, "mine", customDoc("mine"))

	first, err := c.Resolve(project, "mine")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	updated := strings.Replace(customDoc("mine"),
		"description: A custom single-phase workflow.",
		"description: Updated description.", 1)
	writeCustomWorkflow(t, project, "mine", updated)
	c.Invalidate(project)

	second, err := c.Resolve(project, "mine")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first == second {
		t.Fatal("Invalidate did not drop the cached definition")
	}
	if !strings.Contains(second.Description, "Updated") {
		t.Errorf("Description = %q, want the re-read file's text", second.Description)
	}
}

func TestWatchProject_RetriesAfterDirCreated(t *testing.T) {
	c := newTestCatalog(t)
	if c.watcher == nil {
		t.Skip("file watcher unavailable")
	}
	project := t.TempDir()

	if _, err := c.Resolve(project, "epcc"); err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	dir := CustomWorkflowDir(project)
	c.mu.RLock()
	_, dirWatched := c.watched[dir]
	_, rootWatched := c.watched[project]
	c.mu.RUnlock()
	if dirWatched {
		t.Fatal("a missing workflows dir must not be recorded as watched")
	}
	if !rootWatched {
		t.Fatal("the project root should be watched while the workflows dir is absent")
	}

	// Once the directory exists, the next registration attempt must pick it
	// up instead of giving up permanently.
	writeCustomWorkflow(t, project, "mine", customDoc("mine"))
	c.watchProject(project)

	c.mu.RLock()
	_, dirWatched = c.watched[dir]
	c.mu.RUnlock()
	if !dirWatched {
		t.Fatal("workflows dir not watched after it was created")
	}
}

func TestResolve_CustomAddedAfterBuiltinFallback(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()

	first, err := c.Resolve(project, "epcc")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if first.InitialState == "work" {
		t.Fatalf("expected the built-in epcc before any custom file exists, got %+v", first)
	}

	writeCustomWorkflow(t, project, "epcc", customDoc("epcc"))
	c.Invalidate(project)

	second, err := c.Resolve(project, "epcc")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if second.InitialState != "work" {
		t.Errorf("InitialState = %s, a custom workflow added later must win after invalidation", second.InitialState)
	}
}

// --- List ---

func TestList_IncludesBuiltinsAndCustom(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	writeCustomWorkflow(t, project, "mine", customDoc("mine"))

	summaries, err := c.List(project, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}

	byName := map[string]Summary{}
	for _, s := range summaries {
		byName[s.Name] = s
	}
	if _, ok := byName["epcc"]; !ok {
		t.Error("built-in epcc missing from listing")
	}
	mine, ok := byName["mine"]
	if !ok {
		t.Fatal("custom workflow missing from listing")
	}
	if !mine.Custom {
		t.Error("custom workflow not flagged as custom")
	}
	if mine.PhaseCount != 1 {
		t.Errorf("PhaseCount = %d, want 1", mine.PhaseCount)
	}
	if byName["epcc"].Custom {
		t.Error("built-in epcc wrongly flagged as custom")
	}
}

func TestList_DomainFilter(t *testing.T) {
	c := newTestCatalog(t)
	summaries, err := c.List(t.TempDir(), "code")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) == 0 {
		t.Fatal("no workflows in the code domain")
	}
	for _, s := range summaries {
		if s.Domain != "code" {
			t.Errorf("workflow %s has domain %q, filter should have excluded it", s.Name, s.Domain)
		}
	}
}

func TestList_EnabledWorkflowsRestricts(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	if err := os.MkdirAll(filepath.Join(project, ".vibe"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	cfg := "enabled_workflows:\n  - epcc\n  - bugfix\n"
	if err := os.WriteFile(ProjectConfigPath(project), []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	summaries, err := c.List(project, "")
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("len(summaries) = %d, want 2: %+v", len(summaries), summaries)
	}
	if summaries[0].Name != "bugfix" || summaries[1].Name != "epcc" {
		t.Errorf("summaries = %+v, want sorted [bugfix epcc]", summaries)
	}
}

func TestList_EnabledWorkflowWithoutDefinition(t *testing.T) {
	c := newTestCatalog(t)
	project := t.TempDir()
	if err := os.MkdirAll(filepath.Join(project, ".vibe"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	cfg := "enabled_workflows:\n  - ghost\n"
	if err := os.WriteFile(ProjectConfigPath(project), []byte(cfg), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	_, err := c.List(project, "")
	if !apperr.IsNotFound(err) {
		t.Fatalf("expected not-found error for enabled workflow without definition, got %v", err)
	}
	if !strings.Contains(err.Error(), "ghost") {
		t.Errorf("error %q should name the missing workflow", err.Error())
	}
}

// --- Project config ---

func TestLoadProjectConfig_MissingFile(t *testing.T) {
	cfg, err := LoadProjectConfig(t.TempDir())
	if err != nil {
		t.Fatalf("LoadProjectConfig failed: %v", err)
	}
	if len(cfg.EnabledWorkflows) != 0 {
		t.Errorf("EnabledWorkflows = %v, want empty", cfg.EnabledWorkflows)
	}
}

func TestLoadProjectConfig_Malformed(t *testing.T) {
	project := t.TempDir()
	if err := os.MkdirAll(filepath.Join(project, ".vibe"), 0o755); err != nil {
		t.Fatalf("MkdirAll failed: %v", err)
	}
	if err := os.WriteFile(ProjectConfigPath(project), []byte("enabled_workflows: [broken"), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}
	_, err := LoadProjectConfig(project)
	if !apperr.IsConfiguration(err) {
		t.Fatalf("expected configuration error, got %v", err)
	}
}
