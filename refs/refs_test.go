package refs

import (
	"sort"
	"testing"

	"github.com/go-git/go-billy/v6/memfs"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/id"
)

func TestGetSetContains(t *testing.T) {
	r := New()
	if r.Contains("master") {
		t.Fatalf("empty RefStorage should not contain master")
	}
	want := id.Of([]byte("c1"))
	r.Set("master", want)
	if !r.Contains("master") {
		t.Fatalf("RefStorage should contain master after Set")
	}
	got, ok := r.Get("master")
	if !ok || got != want {
		t.Fatalf("Get: got (%s, %v) want (%s, true)", got, ok, want)
	}
}

func TestBranchNameWithSpaces(t *testing.T) {
	r := New()
	r.Set("feature branch", id.Of([]byte("c")))
	if !r.Contains("feature branch") {
		t.Fatalf("branch names may contain spaces")
	}
}

func TestBranchesLexicographicOrder(t *testing.T) {
	r := New()
	r.Set("zeta", id.Of([]byte("z")))
	r.Set("alpha", id.Of([]byte("a")))
	r.Set("master", id.Of([]byte("m")))

	branches := r.Branches()
	if !sort.StringsAreSorted(branches) {
		t.Fatalf("Branches not lexicographically sorted: %v", branches)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	fs := memfs.New()
	r := New()
	r.Set("master", id.Of([]byte("m")))
	r.Set("feature", id.Of([]byte("f")))

	if err := r.Save(fs, "refs/heads"); err != nil {
		t.Fatalf("Save: %v", err)
	}
	loaded, err := Load(fs, "refs/heads")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	got, ok := loaded.Get("master")
	if !ok || got != id.Of([]byte("m")) {
		t.Fatalf("loaded master mismatch: %s, %v", got, ok)
	}
	if _, ok := loaded.Get("feature"); !ok {
		t.Fatalf("loaded storage missing feature branch")
	}
}

func TestSaveIsDeterministic(t *testing.T) {
	fs := memfs.New()
	r1 := New()
	r1.Set("b", id.Of([]byte("b")))
	r1.Set("a", id.Of([]byte("a")))
	if err := r1.Save(fs, "refs1"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	r2 := New()
	r2.Set("a", id.Of([]byte("a")))
	r2.Set("b", id.Of([]byte("b")))
	if err := r2.Save(fs, "refs2"); err != nil {
		t.Fatalf("Save: %v", err)
	}

	b1, err := fsio.ReadFile(fs, "refs1")
	if err != nil {
		t.Fatalf("read refs1: %v", err)
	}
	b2, err := fsio.ReadFile(fs, "refs2")
	if err != nil {
		t.Fatalf("read refs2: %v", err)
	}
	if string(b1) != string(b2) {
		t.Fatalf("identical logical state serialized to different bytes")
	}
}

func TestEmptyUntilFirstCommit(t *testing.T) {
	r := New()
	if r.Contains("master") {
		t.Fatalf("a freshly created RefStorage must not already contain master")
	}
}
