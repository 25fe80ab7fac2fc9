// Package index is the C4 component: an ordered, persistent mapping from
// working-tree path to blob id, representing what the engine last believes
// the working tree looked like at HEAD.
//
// Grounded on the Index type in _examples/nickyhof-CommitDB/ps/index.go
// (map-backed, JSON-persisted, guarded by a mutex), generalized here from a
// column secondary-index to the path->blob-id working-tree index the spec
// defines, and keyed the way
// _examples/original_source/src/vcs_manager.rs's Index (a BTreeMap, hence
// always-sorted iteration) behaves.
package index

import (
	"encoding/json"
	"fmt"
	"sort"
	"sync"

	"github.com/go-git/go-billy/v6"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/id"
)

// Index maps repository-absolute paths (leading slash, e.g. "/dir/file")
// to the blob id last captured there.
type Index struct {
	mu      sync.RWMutex
	entries map[string]id.ID
}

// New returns an empty Index.
func New() *Index {
	return &Index{entries: make(map[string]id.ID)}
}

// Get returns the blob id recorded for path. The caller must check
// Contains first; Get returns the zero ID for an absent path.
func (idx *Index) Get(path string) id.ID {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	return idx.entries[path]
}

// Contains reports whether path has an entry.
func (idx *Index) Contains(path string) bool {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	_, ok := idx.entries[path]
	return ok
}

// Update inserts or overwrites the entry for path.
func (idx *Index) Update(path string, blobID id.ID) {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries[path] = blobID
}

// Clear empties the index.
func (idx *Index) Clear() {
	idx.mu.Lock()
	defer idx.mu.Unlock()
	idx.entries = make(map[string]id.ID)
}

// Paths returns every recorded path in lexicographic order.
func (idx *Index) Paths() []string {
	idx.mu.RLock()
	defer idx.mu.RUnlock()
	paths := make([]string, 0, len(idx.entries))
	for p := range idx.entries {
		paths = append(paths, p)
	}
	sort.Strings(paths)
	return paths
}

// wireEntry is one (path, id) pair in the serialized form; encoding a slice
// of pairs rather than a bare map keeps the on-disk order explicit and
// matches how RefStorage is encoded.
type wireEntry struct {
	Path string `json:"path"`
	ID   id.ID  `json:"id"`
}

// Save persists the index as a whole-file JSON array, sorted by path.
func (idx *Index) Save(fs billy.Filesystem, path string) error {
	idx.mu.RLock()
	entries := make([]wireEntry, 0, len(idx.entries))
	for p, i := range idx.entries {
		entries = append(entries, wireEntry{Path: p, ID: i})
	}
	idx.mu.RUnlock()
	sort.Slice(entries, func(i, j int) bool { return entries[i].Path < entries[j].Path })

	data, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("index: marshal: %w", err)
	}
	return fsio.WriteFile(fs, path, data)
}

// Load reads an Index previously written by Save.
func Load(fs billy.Filesystem, path string) (*Index, error) {
	data, err := fsio.ReadFile(fs, path)
	if err != nil {
		return nil, fmt.Errorf("index: load: %w", err)
	}
	var entries []wireEntry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("index: unmarshal: %w", err)
	}
	idx := New()
	for _, e := range entries {
		idx.entries[e.Path] = e.ID
	}
	return idx, nil
}
