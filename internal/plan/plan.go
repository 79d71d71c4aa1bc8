// Package plan manages development plan files: the human-readable markdown
// documents that track task progress for a conversation.
//
// The plan file is externally owned from the workflow engine's point of
// view: the engine ensures it exists, reports on it, and deletes it during
// reset, but its content is written by the AI agent, not by this server.
package plan

import (
	"embed"
	"fmt"
	"os"
	"path/filepath"
	"text/template"
	"time"
)

//go:embed templates/development-plan.md.tmpl
var templateFS embed.FS

// Info describes a plan file's on-disk status.
type Info struct {
	Path   string `json:"path"`
	Exists bool   `json:"exists"`
}

// Manager is the plan-file collaborator interface consumed by the
// conversation manager. Abstracted for testability.
type Manager interface {
	// Ensure creates the plan file from the scaffold template if it does
	// not exist yet. An existing file is left untouched.
	Ensure(path, project, branch string) error
	// Delete removes the plan file. A missing file is not an error.
	Delete(path string) error
	// Info reports whether the plan file exists.
	Info(path string) Info
}

// FileManager implements Manager on the local filesystem.
type FileManager struct {
	tmpl *template.Template
}

// NewFileManager creates a FileManager with the embedded scaffold template
// parsed and ready.
func NewFileManager() (*FileManager, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/development-plan.md.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parsing plan template: %w", err)
	}
	return &FileManager{tmpl: tmpl}, nil
}

// templateData is what the scaffold template renders from.
type templateData struct {
	Project   string
	Branch    string
	CreatedAt string
}

// Ensure creates the plan file scaffold if absent.
func (m *FileManager) Ensure(path, project, branch string) error {
	if _, err := os.Stat(path); err == nil {
		return nil
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("creating plan directory: %w", err)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating plan file: %w", err)
	}
	defer f.Close()

	data := templateData{
		Project:   project,
		Branch:    branch,
		CreatedAt: time.Now().UTC().Format("2006-01-02"),
	}
	if err := m.tmpl.Execute(f, data); err != nil {
		return fmt.Errorf("rendering plan template: %w", err)
	}
	return nil
}

// Delete removes the plan file.
func (m *FileManager) Delete(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting plan file: %w", err)
	}
	return nil
}

// Info reports the plan file's status.
func (m *FileManager) Info(path string) Info {
	_, err := os.Stat(path)
	return Info{Path: path, Exists: err == nil}
}
