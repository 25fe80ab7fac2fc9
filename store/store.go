// Package store is the content-addressed object store (C3): Blobs, Trees
// and Commits keyed by their 20-byte SHA-1 id, fanned out two levels deep
// on disk and cached in memory since objects are immutable once written.
//
// Grounded on the object-write/read plumbing of
// _examples/nickyhof-CommitDB/ps/plumbing.go (createBlob / getTreeEntries),
// adapted from go-git's own object encoding to this module's Blob/Tree/
// Commit shapes.
package store

import (
	"fmt"
	"path"
	"sync"

	"github.com/go-git/go-billy/v6"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/id"
	"github.com/nickyhof/vcs/objects"
)

// Store is the content-addressed object store rooted at <vcsRoot>/objects.
type Store struct {
	fs   billy.Filesystem
	root string // e.g. ".vcs/objects"

	mu    sync.RWMutex
	cache map[id.ID]objects.Object
}

// New returns a Store persisting objects under <vcsRoot>/objects in fs.
func New(fs billy.Filesystem, vcsRoot string) *Store {
	return &Store{
		fs:    fs,
		root:  path.Join(vcsRoot, "objects"),
		cache: make(map[id.ID]objects.Object),
	}
}

func (s *Store) objectPath(i id.ID) string {
	h := i.String()
	return path.Join(s.root, h[:2], h[2:])
}

// Put writes obj to the store and returns its content address. Writing an
// object that already exists is an idempotent no-op beyond recomputing the
// same id and overwriting the same bytes.
func (s *Store) Put(obj objects.Object) (id.ID, error) {
	data, err := obj.CanonicalBytes()
	if err != nil {
		return id.Zero, err
	}
	objID := id.Of(data)
	if err := fsio.WriteFile(s.fs, s.objectPath(objID), data); err != nil {
		return id.Zero, fmt.Errorf("store: put %s: %w", objID, err)
	}
	s.mu.Lock()
	s.cache[objID] = obj
	s.mu.Unlock()
	return objID, nil
}

// Get reads and decodes the object with the given id. Objects are
// immutable once written, so a decoded object is cached in memory
// indefinitely once read.
func (s *Store) Get(objID id.ID) (objects.Object, error) {
	s.mu.RLock()
	if obj, ok := s.cache[objID]; ok {
		s.mu.RUnlock()
		return obj, nil
	}
	s.mu.RUnlock()

	data, err := fsio.ReadFile(s.fs, s.objectPath(objID))
	if err != nil {
		return objects.Object{}, fmt.Errorf("store: get %s: %w", objID, err)
	}
	obj, err := objects.Decode(data)
	if err != nil {
		return objects.Object{}, fmt.Errorf("store: decode %s: %w", objID, err)
	}
	s.mu.Lock()
	s.cache[objID] = obj
	s.mu.Unlock()
	return obj, nil
}

// Exists reports whether an object with the given id is in the store.
func (s *Store) Exists(objID id.ID) bool {
	s.mu.RLock()
	_, ok := s.cache[objID]
	s.mu.RUnlock()
	if ok {
		return true
	}
	return fsio.Exists(s.fs, s.objectPath(objID))
}

// GetBlob, GetTree and GetCommit read an object and assert its variant.
func (s *Store) GetBlob(i id.ID) (objects.Blob, error) {
	o, err := s.Get(i)
	if err != nil {
		return objects.Blob{}, err
	}
	if o.Kind != objects.KindBlob {
		return objects.Blob{}, fmt.Errorf("store: %s is a %s, not a Blob", i, o.Kind)
	}
	return *o.Blob, nil
}

func (s *Store) GetTree(i id.ID) (objects.Tree, error) {
	o, err := s.Get(i)
	if err != nil {
		return objects.Tree{}, err
	}
	if o.Kind != objects.KindTree {
		return objects.Tree{}, fmt.Errorf("store: %s is a %s, not a Tree", i, o.Kind)
	}
	return *o.Tree, nil
}

func (s *Store) GetCommit(i id.ID) (objects.Commit, error) {
	o, err := s.Get(i)
	if err != nil {
		return objects.Commit{}, err
	}
	if o.Kind != objects.KindCommit {
		return objects.Commit{}, fmt.Errorf("store: %s is a %s, not a Commit", i, o.Kind)
	}
	return *o.Commit, nil
}

// PutBlob, PutTree and PutCommit wrap and write a variant in one call.
func (s *Store) PutBlob(b objects.Blob) (id.ID, error)     { return s.Put(objects.WrapBlob(b)) }
func (s *Store) PutTree(t objects.Tree) (id.ID, error)     { return s.Put(objects.WrapTree(t)) }
func (s *Store) PutCommit(c objects.Commit) (id.ID, error) { return s.Put(objects.WrapCommit(c)) }
