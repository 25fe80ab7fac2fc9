// Package refs is the C5 component: the heads map from branch name to
// commit id. Same shape and persistence strategy as package index, keyed
// by branch name instead of path.
//
// Grounded on _examples/nickyhof-CommitDB/ps/branch.go's branch-reference
// handling (there, a plumbing.ReferenceName -> plumbing.Hash stored via
// go-git's ref storer; here, a plain sorted map persisted through fsio
// since this module does not use go-git's own ref storage format).
package refs

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v6"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/id"
)

// RefStorage maps branch name to the commit id at its head.
type RefStorage struct {
	mu    sync.RWMutex
	heads map[string]id.ID
}

// New returns an empty RefStorage.
func New() *RefStorage {
	return &RefStorage{heads: make(map[string]id.ID)}
}

// Get returns the commit id for branch and whether it exists.
func (r *RefStorage) Get(branch string) (id.ID, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	i, ok := r.heads[branch]
	return i, ok
}

// Contains reports whether branch has a head.
func (r *RefStorage) Contains(branch string) bool {
	_, ok := r.Get(branch)
	return ok
}

// Set records commitID as the head of branch.
func (r *RefStorage) Set(branch string, commitID id.ID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.heads[branch] = commitID
}

// Branches returns every branch name in lexicographic order.
func (r *RefStorage) Branches() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.heads))
	for n := range r.heads {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

type wireEntry struct {
	Branch string `json:"branch"`
	ID     id.ID  `json:"id"`
}

// Save persists the heads map as a whole-file JSON array, sorted by branch
// name so identical logical state always serializes to identical bytes.
func (r *RefStorage) Save(fs billy.Filesystem, path string) error {
	r.mu.RLock()
	entries := make([]wireEntry, 0, len(r.heads))
	for b, i := range r.heads {
		entries = append(entries, wireEntry{Branch: b, ID: i})
	}
	r.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Branch < entries[j].Branch })

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("refs: marshal: %w", err)
	}
	return fsio.WriteFile(fs, path, data)
}

// Load reads a RefStorage previously written by Save.
func Load(fs billy.Filesystem, path string) (*RefStorage, error) {
	data, err := fsio.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("refs: load: %w", err)
	}
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("refs: unmarshal: %w", err)
	}
	r := New()
	for _, e := range entries {
		r.heads[e.Branch] = e.ID
	}
	return r, nil
}
