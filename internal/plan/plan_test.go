package plan

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func newTestManager(t *testing.T) *FileManager {
	t.Helper()
	m, err := NewFileManager()
	if err != nil {
		t.Fatalf("NewFileManager failed: %v", err)
	}
	return m
}

// --- Ensure ---

func TestEnsure_CreatesScaffold(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(t.TempDir(), ".vibe", "development-plan-main.md")

	if err := m.Ensure(path, "my-project", "main"); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	content := string(data)
	if !strings.Contains(content, "my-project") {
		t.Error("scaffold missing project name")
	}
	if !strings.Contains(content, "main") {
		t.Error("scaffold missing branch name")
	}
	for _, section := range []string{"## Goal", "## Tasks", "## Notes"} {
		if !strings.Contains(content, section) {
			t.Errorf("scaffold missing section %q", section)
		}
	}
}

func TestEnsure_ExistingFileUntouched(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(t.TempDir(), "plan.md")
	edited := "# My plan\n\n- [x] done already\n"
	if err := os.WriteFile(path, []byte(edited), 0o644); err != nil {
		t.Fatalf("WriteFile failed: %v", err)
	}

	if err := m.Ensure(path, "proj", "main"); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile failed: %v", err)
	}
	if string(data) != edited {
		t.Error("Ensure overwrote an existing plan file")
	}
}

// --- Delete ---

func TestDelete(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(t.TempDir(), "plan.md")
	if err := m.Ensure(path, "proj", "main"); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	if err := m.Delete(path); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file still present after Delete")
	}
}

func TestDelete_MissingFile(t *testing.T) {
	m := newTestManager(t)
	if err := m.Delete(filepath.Join(t.TempDir(), "absent.md")); err != nil {
		t.Errorf("Delete of a missing file should succeed, got %v", err)
	}
}

// --- Info ---

func TestInfo(t *testing.T) {
	m := newTestManager(t)
	path := filepath.Join(t.TempDir(), "plan.md")

	if info := m.Info(path); info.Exists {
		t.Error("Info reports a missing file as existing")
	}
	if err := m.Ensure(path, "proj", "main"); err != nil {
		t.Fatalf("Ensure failed: %v", err)
	}
	info := m.Info(path)
	if !info.Exists {
		t.Error("Info reports an existing file as missing")
	}
	if info.Path != path {
		t.Errorf("Info.Path = %s, want %s", info.Path, path)
	}
}
