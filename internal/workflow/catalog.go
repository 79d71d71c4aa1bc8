package workflow

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yovannyr/responsible-vibe-mcp-sub004/internal/apperr"
)

// Catalog resolves workflow definitions for projects.
//
// Resolution order for a named workflow: a valid custom definition under the
// project's .vibe/workflows directory wins; otherwise the built-in of the
// same name; otherwise an unknown-workflow error. An invalid custom file is
// the one place a configuration error is swallowed: it is logged and the
// built-in is used instead.
//
// Resolved definitions are cached per (projectPath, name) and invalidated
// when the project's workflow directory changes on disk.
type Catalog struct {
	log *zap.Logger

	mu      sync.RWMutex
	cache   map[cacheKey]*Definition
	watched map[string]string // watched dir -> project path

	watcher *fsnotify.Watcher
	done    chan struct{}
}

type cacheKey struct {
	projectPath string
	name        string
}

// Summary describes a workflow for discovery listings.
type Summary struct {
	Name         string `json:"name"`
	Description  string `json:"description"`
	Domain       string `json:"domain,omitempty"`
	InitialState string `json:"initial_state"`
	PhaseCount   int    `json:"phase_count"`
	Custom       bool   `json:"custom"`
}

// ProjectConfig is the project-level workflow configuration read from
// .vibe/config.yaml.
type ProjectConfig struct {
	// EnabledWorkflows, when non-empty, restricts discovery to the listed
	// names. Enabling a name with no definition is an error.
	EnabledWorkflows []string `yaml:"enabled_workflows"`
}

// NewCatalog creates a Catalog. File-change invalidation is best-effort: if
// the fsnotify watcher cannot be created, the catalog still works but cached
// entries are never invalidated.
func NewCatalog(log *zap.Logger) *Catalog {
	c := &Catalog{
		log:     log,
		cache:   map[cacheKey]*Definition{},
		watched: map[string]string{},
		done:    make(chan struct{}),
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		log.Warn("workflow file watcher unavailable, cache invalidation disabled", zap.Error(err))
		return c
	}
	c.watcher = watcher
	go c.watchLoop()
	return c
}

// Close stops the file watcher.
func (c *Catalog) Close() error {
	close(c.done)
	if c.watcher != nil {
		return c.watcher.Close()
	}
	return nil
}

// CustomWorkflowDir returns the directory where a project keeps custom
// workflow definitions.
func CustomWorkflowDir(projectPath string) string {
	return filepath.Join(projectPath, ".vibe", "workflows")
}

// ProjectConfigPath returns the path of the project-level configuration file.
func ProjectConfigPath(projectPath string) string {
	return filepath.Join(projectPath, ".vibe", "config.yaml")
}

// Resolve returns the definition for the named workflow in the given
// project. The returned definition is shared and must not be mutated.
func (c *Catalog) Resolve(projectPath, name string) (*Definition, error) {
	key := cacheKey{projectPath: projectPath, name: name}

	c.mu.RLock()
	if def, ok := c.cache[key]; ok {
		c.mu.RUnlock()
		return def, nil
	}
	c.mu.RUnlock()

	def, err := c.load(projectPath, name)
	if err != nil {
		return nil, err
	}

	c.mu.Lock()
	c.cache[key] = def
	c.mu.Unlock()
	c.watchProject(projectPath)

	return def, nil
}

// load performs uncached resolution: custom file first, then built-in.
func (c *Catalog) load(projectPath, name string) (*Definition, error) {
	customPath := filepath.Join(CustomWorkflowDir(projectPath), name+".yaml")
	if _, err := os.Stat(customPath); err == nil {
		def, err := LoadFile(customPath)
		switch {
		case err != nil:
			c.log.Warn("custom workflow invalid, falling back to built-in",
				zap.String("workflow", name), zap.String("path", customPath), zap.Error(err))
		case def.Name != name:
			c.log.Warn("custom workflow declares mismatched name, falling back to built-in",
				zap.String("workflow", name), zap.String("declared", def.Name))
		default:
			return def, nil
		}
	}
	return Builtin(name)
}

// List returns discovery summaries of the workflows available to a project:
// built-ins plus custom definitions, filtered by the project allow-list and
// an optional domain. Domain filtering affects discovery only — Resolve
// ignores it.
func (c *Catalog) List(projectPath, domain string) ([]Summary, error) {
	cfg, err := LoadProjectConfig(projectPath)
	if err != nil {
		return nil, err
	}

	names := map[string]bool{}
	for _, name := range BuiltinNames() {
		names[name] = true
	}
	if entries, err := os.ReadDir(CustomWorkflowDir(projectPath)); err == nil {
		for _, entry := range entries {
			if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
				continue
			}
			names[strings.TrimSuffix(entry.Name(), ".yaml")] = true
		}
	}

	selected := make([]string, 0, len(names))
	if len(cfg.EnabledWorkflows) > 0 {
		for _, name := range cfg.EnabledWorkflows {
			if !names[name] {
				return nil, apperr.NotFound(
					"enabled workflow %q has no definition: check enabled_workflows in %s",
					name, ProjectConfigPath(projectPath))
			}
			selected = append(selected, name)
		}
	} else {
		for name := range names {
			selected = append(selected, name)
		}
	}
	sort.Strings(selected)

	customDir := CustomWorkflowDir(projectPath)
	summaries := make([]Summary, 0, len(selected))
	for _, name := range selected {
		def, err := c.Resolve(projectPath, name)
		if err != nil {
			// A custom-only file that fails validation has nothing to fall
			// back to; skip it from discovery, loudly.
			c.log.Warn("skipping unresolvable workflow in discovery",
				zap.String("workflow", name), zap.Error(err))
			continue
		}
		if domain != "" && def.Domain != domain {
			continue
		}
		_, statErr := os.Stat(filepath.Join(customDir, name+".yaml"))
		summaries = append(summaries, Summary{
			Name:         def.Name,
			Description:  strings.TrimSpace(def.Description),
			Domain:       def.Domain,
			InitialState: def.InitialState,
			PhaseCount:   len(def.States),
			Custom:       statErr == nil,
		})
	}
	return summaries, nil
}

// LoadProjectConfig reads .vibe/config.yaml. A missing file yields the zero
// configuration; a malformed file is a configuration error.
func LoadProjectConfig(projectPath string) (*ProjectConfig, error) {
	data, err := os.ReadFile(ProjectConfigPath(projectPath))
	if err != nil {
		if os.IsNotExist(err) {
			return &ProjectConfig{}, nil
		}
		return nil, apperr.Configuration("reading project config: %v", err)
	}
	var cfg ProjectConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, apperr.Configuration("parsing %s: %v", ProjectConfigPath(projectPath), err)
	}
	return &cfg, nil
}

// Invalidate drops all cached definitions for a project.
func (c *Catalog) Invalidate(projectPath string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key := range c.cache {
		if key.projectPath == projectPath {
			delete(c.cache, key)
		}
	}
}

// watchProject registers the deepest existing ancestor of the project's
// workflow directory with the file watcher. The project may have no custom
// workflows yet; watching an ancestor lets the later creation of .vibe or
// .vibe/workflows invalidate the cache too. A directory is recorded as
// watched only after Add succeeds, so a failed registration is retried on
// the next resolve.
func (c *Catalog) watchProject(projectPath string) {
	if c.watcher == nil {
		return
	}

	candidates := []string{
		CustomWorkflowDir(projectPath),
		filepath.Join(projectPath, ".vibe"),
		projectPath,
	}
	for _, dir := range candidates {
		c.mu.RLock()
		_, already := c.watched[dir]
		c.mu.RUnlock()
		if already {
			return
		}
		if err := c.watcher.Add(dir); err != nil {
			c.log.Debug("not watching dir", zap.String("dir", dir), zap.Error(err))
			continue
		}
		c.mu.Lock()
		c.watched[dir] = projectPath
		c.mu.Unlock()
		return
	}
}

// watchLoop invalidates cached definitions when a watched workflow
// directory changes.
func (c *Catalog) watchLoop() {
	for {
		select {
		case <-c.done:
			return
		case event, ok := <-c.watcher.Events:
			if !ok {
				return
			}
			dir := filepath.Dir(event.Name)
			c.mu.RLock()
			projectPath, watched := c.watched[dir]
			c.mu.RUnlock()
			if watched {
				c.log.Debug("workflow file changed, invalidating cache",
					zap.String("path", event.Name))
				c.Invalidate(projectPath)
				// A created .vibe or .vibe/workflows directory can now be
				// watched directly.
				c.watchProject(projectPath)
			}
		case err, ok := <-c.watcher.Errors:
			if !ok {
				return
			}
			c.log.Warn("workflow watcher error", zap.Error(err))
		}
	}
}
