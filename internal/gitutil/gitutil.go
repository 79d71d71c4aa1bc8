// Package gitutil detects project and git context for conversation identity.
package gitutil

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
)

// DefaultBranch is used when a project has no usable git branch: not a
// repository, git missing, or a detached HEAD. Branch detection fails fast
// and is treated as absent data, never retried or waited on.
const DefaultBranch = "default"

// FindRoot walks up from the current working directory looking for a .vibe/
// or .git/ directory marking the project root. If none is found, the working
// directory itself is the root. This lets callers work from any subdirectory
// of the project.
func FindRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", fmt.Errorf("getting working directory: %w", err)
	}

	current := dir
	for {
		for _, marker := range []string{".vibe", ".git"} {
			if info, err := os.Stat(filepath.Join(current, marker)); err == nil && info.IsDir() {
				return current, nil
			}
		}
		parent := filepath.Dir(current)
		if parent == current {
			// Reached filesystem root with no marker.
			return dir, nil
		}
		current = parent
	}
}

// CurrentBranch returns the checked-out branch for the project, or
// DefaultBranch when none can be determined.
func CurrentBranch(projectPath string) string {
	out, err := exec.Command("git", "-C", projectPath, "rev-parse", "--abbrev-ref", "HEAD").Output()
	if err != nil {
		return DefaultBranch
	}
	branch := strings.TrimSpace(string(out))
	if branch == "" || branch == "HEAD" {
		return DefaultBranch
	}
	return branch
}
