package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/nickyhof/vcs/engine"
)

func TestRootFindsDirectoryContainingControlDir(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, engine.VCSRoot), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}
	sub := filepath.Join(root, "a", "b", "c")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, ok := Root(sub)
	if !ok {
		t.Fatalf("want Root to find the ancestor repository from %s", sub)
	}
	if got != root {
		t.Fatalf("Root: got %s want %s", got, root)
	}
}

func TestRootFindsItselfWhenStartingAtRepoRoot(t *testing.T) {
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, engine.VCSRoot), 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	got, ok := Root(root)
	if !ok || got != root {
		t.Fatalf("Root(%s): got (%s, %v)", root, got, ok)
	}
}

func TestRootReportsFalseWithNoAncestorRepository(t *testing.T) {
	root := t.TempDir()
	sub := filepath.Join(root, "a", "b")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatalf("MkdirAll: %v", err)
	}

	if _, ok := Root(sub); ok {
		t.Fatalf("want Root to report false when no ancestor has a control directory")
	}
}
