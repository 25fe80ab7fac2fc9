// Package vcs is a minimal, local, content-addressed version-control
// system: a content-addressed object store (package store), a working-tree
// snapshotting algorithm and tree-diff/merge algorithms (package tree), and
// a branch/commit graph orchestrated by the repository engine (package
// engine).
//
// # Quick start
//
// Open or create a repository rooted at a directory on disk, then drive it
// through the engine:
//
//	ctx := context.Background()
//	fs := fsio.New("/path/to/repo")
//	e, err := engine.Init(ctx, fs)
//	res, err := e.Commit(ctx, "Initial commit")
//
//	e, err = engine.Open(ctx, fs)
//	status, err := e.Status(ctx)
//	res, err = e.Commit(ctx, "add file1")
//	_, err = e.JumpToCommit(ctx, res.ID.String())
//	_, err = e.NewBranch(ctx, "feature")
//	_, err = e.Merge(ctx, "feature")
//	entries, err := e.GetCommitLogs(ctx)
//
// # Packages
//
//   - id: 20-byte content addresses and their hex form.
//   - objects: the Blob/Tree/Commit tagged union and its canonical encoding.
//   - fsio: whole-file I/O and directory walking over a billy.Filesystem.
//   - store: the content-addressed object store.
//   - index, refs, state: the Index, heads map and HEAD record.
//   - tree: build/compare/load/merge algorithms over Trees.
//   - engine: the repository engine orchestrating the above.
//   - vcserr: the closed error taxonomy.
//   - vcslog: structured logging for engine operations.
//   - discover: ancestor-walk repository-root resolution for the CLI.
//   - cmd/vcs: the cobra-based CLI binary.
package vcs
