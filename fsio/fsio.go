// Package fsio is the byte-I/O layer: whole-file reads/writes and
// directory enumeration over a github.com/go-git/go-billy/v6 filesystem,
// hiding the VCS control directory from every walk.
//
// Grounded on the billy.Filesystem bootstrapping in
// _examples/nickyhof-CommitDB/ps/persistence.go (NewFilePersistence /
// NewMemoryPersistence), and on the directory-exclusion semantics of
// _examples/original_source/src/vcs_manager/file_manager.rs
// (is_vcs_directory / get_entries / get_all_files via walkdir's
// filter_entry, which drops a directory named exactly the control
// directory at any depth but never drops a *file* of that name).
package fsio

import (
	"fmt"
	"io"
	"path"
	"sort"

	"github.com/go-git/go-billy/v6"
	"github.com/go-git/go-billy/v6/memfs"
	"github.com/go-git/go-billy/v6/osfs"
)

// New returns a filesystem rooted at dir on the real OS filesystem.
func New(dir string) billy.Filesystem {
	return osfs.New(dir)
}

// NewMemory returns an in-memory filesystem, used by tests that don't want
// to touch disk.
func NewMemory() billy.Filesystem {
	return memfs.New()
}

// ReadFile reads the whole contents of path.
func ReadFile(fs billy.Filesystem, p string) ([]byte, error) {
	f, err := fs.Open(p)
	if err != nil {
		return nil, fmt.Errorf("fsio: open %s: %w", p, err)
	}
	defer f.Close()
	data, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("fsio: read %s: %w", p, err)
	}
	return data, nil
}

// WriteFile writes data to path as a whole-file replace, creating parent
// directories as needed.
func WriteFile(fs billy.Filesystem, p string, data []byte) error {
	if dir := path.Dir(p); dir != "." && dir != "/" {
		if err := fs.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("fsio: mkdir %s: %w", dir, err)
		}
	}
	f, err := fs.Create(p)
	if err != nil {
		return fmt.Errorf("fsio: create %s: %w", p, err)
	}
	defer f.Close()
	if _, err := f.Write(data); err != nil {
		return fmt.Errorf("fsio: write %s: %w", p, err)
	}
	return nil
}

// Exists reports whether path exists.
func Exists(fs billy.Filesystem, p string) bool {
	_, err := fs.Stat(p)
	return err == nil
}

// Entry is one result of a directory walk.
type Entry struct {
	Path  string // slash-separated, relative to the walk root
	IsDir bool
}

// Walk enumerates entries under root, excluding any directory named
// exactly excludeDirName at any depth (the VCS control directory). When
// recursive is false only the immediate children of root are returned.
// Results are sorted lexicographically by path so callers get a
// deterministic, reproducible traversal order.
func Walk(fs billy.Filesystem, root, excludeDirName string, recursive bool) ([]Entry, error) {
	var out []Entry
	if err := walk(fs, root, "", excludeDirName, recursive, &out); err != nil {
		return nil, err
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out, nil
}

func walk(fs billy.Filesystem, root, rel, excludeDirName string, recursive bool, out *[]Entry) error {
	full := root
	if rel != "" {
		full = path.Join(root, rel)
	}
	infos, err := fs.ReadDir(full)
	if err != nil {
		return fmt.Errorf("fsio: readdir %s: %w", full, err)
	}
	for _, info := range infos {
		childRel := info.Name()
		if rel != "" {
			childRel = path.Join(rel, info.Name())
		}
		if info.IsDir() && info.Name() == excludeDirName {
			continue
		}
		*out = append(*out, Entry{Path: childRel, IsDir: info.IsDir()})
		if info.IsDir() && recursive {
			if err := walk(fs, root, childRel, excludeDirName, recursive, out); err != nil {
				return err
			}
		}
	}
	return nil
}

// IsEmptyDir reports whether dir has zero immediate entries.
func IsEmptyDir(fs billy.Filesystem, dir string) (bool, error) {
	infos, err := fs.ReadDir(dir)
	if err != nil {
		return false, fmt.Errorf("fsio: readdir %s: %w", dir, err)
	}
	return len(infos) == 0, nil
}

// RemoveFile removes a single file.
func RemoveFile(fs billy.Filesystem, p string) error {
	if err := fs.Remove(p); err != nil {
		return fmt.Errorf("fsio: remove %s: %w", p, err)
	}
	return nil
}

// RemoveEmptyDir removes a directory, which must already be empty.
func RemoveEmptyDir(fs billy.Filesystem, p string) error {
	if err := fs.Remove(p); err != nil {
		return fmt.Errorf("fsio: rmdir %s: %w", p, err)
	}
	return nil
}
