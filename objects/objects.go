// Package objects defines the three object variants stored in the
// content-addressed store (Blob, Tree, Commit) and their canonical,
// deterministic JSON encoding.
//
// Grounded on the tagged-union object model in
// _examples/original_source/src/vcs_manager/objects.rs (VcsObjects enum
// over Commit/Blob/Tree) and on the in-store object handling in
// _examples/nickyhof-CommitDB/ps/plumbing.go, adapted from go-git's own
// object format to this package's Blob/Tree/Commit shapes.
package objects

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nickyhof/vcs/id"
)

// Kind tags which variant an Object wraps.
type Kind int

const (
	KindBlob Kind = iota
	KindTree
	KindCommit
)

func (k Kind) String() string {
	switch k {
	case KindBlob:
		return "Blob"
	case KindTree:
		return "Tree"
	case KindCommit:
		return "Commit"
	default:
		return "Unknown"
	}
}

// Blob is one file's contents plus the file's repo-relative name at the
// time it was captured.
type Blob struct {
	FileName string `json:"file_name"`
	Data     []byte `json:"data"`
}

// TreeNode is one entry of a Tree: either a Blob or a nested Tree,
// referenced by ID, with the path it was captured at.
type TreeNode struct {
	Kind Kind   `json:"kind"`
	ID   id.ID  `json:"id"`
	Path string `json:"path"`
}

// IsBlob reports whether the node references a Blob.
func (n TreeNode) IsBlob() bool { return n.Kind == KindBlob }

// Tree is an ordered list of TreeNodes; order is insertion order and is
// part of the tree's canonical bytes.
type Tree struct {
	Nodes []TreeNode `json:"nodes"`
}

// Find returns the node with the given path and kind, if any.
func (t Tree) Find(path string, kind Kind) (TreeNode, bool) {
	for _, n := range t.Nodes {
		if n.Path == path && n.Kind == kind {
			return n, true
		}
	}
	return TreeNode{}, false
}

// Add appends a node to the tree.
func (t *Tree) Add(n TreeNode) {
	t.Nodes = append(t.Nodes, n)
}

// Commit is a named point in history.
type Commit struct {
	Tree    id.ID     `json:"tree"`
	Parent  *id.ID    `json:"parent"`
	Branch  string    `json:"branch"`
	Time    time.Time `json:"time"`
	Message string    `json:"message"`
}

// Object is the tagged union persisted under the object store. Exactly one
// of Blob, Tree, Commit is non-nil, matching Kind.
type Object struct {
	Kind   Kind
	Blob   *Blob
	Tree   *Tree
	Commit *Commit
}

// WrapBlob, WrapTree and WrapCommit build a tagged Object from a variant.
func WrapBlob(b Blob) Object     { return Object{Kind: KindBlob, Blob: &b} }
func WrapTree(t Tree) Object     { return Object{Kind: KindTree, Tree: &t} }
func WrapCommit(c Commit) Object { return Object{Kind: KindCommit, Commit: &c} }

// externally-tagged wire shape, e.g. {"Blob": {...}} — mirrors the shape
// serde produces for the Rust VcsObjects enum this type is distilled from.
type wireObject struct {
	Blob   *Blob   `json:"Blob,omitempty"`
	Tree   *Tree   `json:"Tree,omitempty"`
	Commit *Commit `json:"Commit,omitempty"`
}

// CanonicalBytes returns the deterministic byte sequence whose SHA-1 is the
// object's ID. encoding/json preserves struct field declaration order and
// slice order and always emits map/struct fields in a fixed order, which is
// what makes this encoding stable run-to-run for logically identical
// objects.
func (o Object) CanonicalBytes() ([]byte, error) {
	w := wireObject{Blob: o.Blob, Tree: o.Tree, Commit: o.Commit}
	b, err := json.Marshal(w)
	if err != nil {
		return nil, fmt.Errorf("objects: marshal: %w", err)
	}
	return b, nil
}

// ID computes the object's content address.
func (o Object) ID() (id.ID, error) {
	b, err := o.CanonicalBytes()
	if err != nil {
		return id.Zero, err
	}
	return id.Of(b), nil
}

// Decode parses the canonical bytes produced by CanonicalBytes back into an
// Object.
func Decode(data []byte) (Object, error) {
	var w wireObject
	if err := json.Unmarshal(data, &w); err != nil {
		return Object{}, fmt.Errorf("objects: unmarshal: %w", err)
	}
	switch {
	case w.Blob != nil:
		return Object{Kind: KindBlob, Blob: w.Blob}, nil
	case w.Tree != nil:
		return Object{Kind: KindTree, Tree: w.Tree}, nil
	case w.Commit != nil:
		return Object{Kind: KindCommit, Commit: w.Commit}, nil
	default:
		return Object{}, fmt.Errorf("objects: no recognized variant in payload")
	}
}
