// Package engine is the C8 Repository Engine: it orchestrates the object
// store, index, refs and state to implement init, commit, status,
// new_branch, jump, merge and log, enforcing every invariant in
// SPEC_FULL.md and raising the vcserr taxonomy on violation.
//
// Grounded on the operation shapes in
// _examples/nickyhof-CommitDB/ps/branch.go (Branch/Checkout/Merge
// orchestrating the lower persistence layer) and
// _examples/original_source/src/vcs_manager.rs (the Rust VcsManager this
// engine's operations are distilled from), using
// github.com/go-git/go-billy/v6 for all filesystem access exactly as
// _examples/nickyhof-CommitDB/ps/persistence.go does.
package engine

import (
	"context"
	"path"
	"sync"
	"time"

	"github.com/go-git/go-billy/v6"
	"go.uber.org/zap"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/id"
	"github.com/nickyhof/vcs/index"
	"github.com/nickyhof/vcs/objects"
	"github.com/nickyhof/vcs/refs"
	"github.com/nickyhof/vcs/state"
	"github.com/nickyhof/vcs/store"
	"github.com/nickyhof/vcs/tree"
	"github.com/nickyhof/vcs/vcserr"
)

// VCSRoot is the fixed name of the control directory.
const VCSRoot = ".vcs"

const (
	stateFile = "STATE"
	indexFile = "index"
	refsFile  = "refs/heads"
)

// Clock lets tests and the engine agree on "now" without calling time.Now
// directly inside the algorithm (the spec's own test fixtures need
// deterministic commit times in places).
type Clock func() time.Time

// Engine is a single repository's live handle: the working tree
// filesystem and the object store. Index, State and RefStorage are not
// held here; each operation loads them from disk.
type Engine struct {
	fs    billy.Filesystem
	store *store.Store
	clock Clock
	log   *zap.Logger

	mu sync.Mutex // guards against concurrent misuse of one Engine value from multiple goroutines; not a cross-process lock, see SPEC_FULL.md §5.
}

// Option configures an Engine at construction.
type Option func(*Engine)

// WithClock overrides the engine's notion of "now", for deterministic tests.
func WithClock(c Clock) Option {
	return func(e *Engine) { e.clock = c }
}

// WithLogger attaches a zap logger; nil-safe callers can omit this and get
// vcslog.Nop() behavior.
func WithLogger(l *zap.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.log = l
		}
	}
}

func newEngine(fs billy.Filesystem, opts ...Option) *Engine {
	e := &Engine{
		fs:    fs,
		store: store.New(fs, VCSRoot),
		clock: time.Now,
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// IsRepository reports whether fs (rooted anywhere) already has a control
// directory at its root.
func IsRepository(fs billy.Filesystem) bool {
	return fsio.Exists(fs, VCSRoot)
}

// Init creates a brand-new repository rooted at fs. It is an error if one
// already exists (AlreadyVcsRepository).
func Init(ctx context.Context, fs billy.Filesystem, opts ...Option) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, vcserr.IO(err)
	}
	if IsRepository(fs) {
		return nil, vcserr.New(vcserr.KindAlreadyVcsRepository)
	}
	e := newEngine(fs, opts...)

	if err := state.Save(fs, path.Join(VCSRoot, stateFile), state.Initial()); err != nil {
		return nil, vcserr.IO(err)
	}
	if err := index.New().Save(fs, path.Join(VCSRoot, indexFile)); err != nil {
		return nil, vcserr.IO(err)
	}
	if err := refs.New().Save(fs, path.Join(VCSRoot, refsFile)); err != nil {
		return nil, vcserr.IO(err)
	}
	e.log.Info("initialized repository")
	return e, nil
}

// Open loads an existing repository. NotVcsRepository if fs has no control
// directory.
func Open(ctx context.Context, fs billy.Filesystem, opts ...Option) (*Engine, error) {
	if err := ctx.Err(); err != nil {
		return nil, vcserr.IO(err)
	}
	if !IsRepository(fs) {
		return nil, vcserr.New(vcserr.KindNotVcsRepository)
	}
	return newEngine(fs, opts...), nil
}

func (e *Engine) loadState() (state.State, error) {
	s, err := state.Load(e.fs, path.Join(VCSRoot, stateFile))
	if err != nil {
		return state.State{}, vcserr.Serialization(err)
	}
	return s, nil
}

func (e *Engine) loadIndex() (*index.Index, error) {
	idx, err := index.Load(e.fs, path.Join(VCSRoot, indexFile))
	if err != nil {
		return nil, vcserr.Serialization(err)
	}
	return idx, nil
}

func (e *Engine) loadRefs() (*refs.RefStorage, error) {
	r, err := refs.Load(e.fs, path.Join(VCSRoot, refsFile))
	if err != nil {
		return nil, vcserr.Serialization(err)
	}
	return r, nil
}

func (e *Engine) treeCtx(idx *index.Index) *tree.Context {
	return &tree.Context{FS: e.fs, Store: e.store, Index: idx, VCSRoot: VCSRoot}
}

func toRepoRelative(changes []tree.Change) []vcserr.Change {
	out := make([]vcserr.Change, 0, len(changes))
	for _, c := range changes {
		out = append(out, vcserr.Change{Status: c.Status.String(), Path: stripLeadingSlash(c.Path)})
	}
	return out
}

func stripLeadingSlash(p string) string {
	if len(p) > 0 && p[0] == '/' {
		return p[1:]
	}
	return p
}

// CommitResult is returned by Commit.
type CommitResult struct {
	ID      id.ID
	Branch  string
	Message string
	Changes []vcserr.Change
}

// Commit snapshots every changed working-tree file into a new Commit on
// the current branch.
func (e *Engine) Commit(ctx context.Context, message string) (CommitResult, error) {
	if err := ctx.Err(); err != nil {
		return CommitResult{}, vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.loadState()
	if err != nil {
		return CommitResult{}, err
	}
	idx, err := e.loadIndex()
	if err != nil {
		return CommitResult{}, err
	}
	heads, err := e.loadRefs()
	if err != nil {
		return CommitResult{}, err
	}

	if st.HasCommit() {
		head, ok := heads.Get(st.CurrentBranch)
		if !ok || head != *st.CurrentCommit {
			return CommitResult{}, vcserr.New(vcserr.KindCommitFromNonHead)
		}
	}

	tctx := e.treeCtx(idx)
	changes, err := tree.GetChangedFiles(e.fs, e.store, idx, VCSRoot)
	if err != nil {
		return CommitResult{}, vcserr.IO(err)
	}
	if st.HasCommit() && len(changes) == 0 {
		return CommitResult{}, vcserr.New(vcserr.KindNoChanges)
	}

	for _, c := range changes {
		if _, err := tctx.AddBlob(stripLeadingSlash(c.Path)); err != nil {
			return CommitResult{}, vcserr.IO(err)
		}
	}

	rootID, err := tctx.BuildTree("")
	if err != nil {
		return CommitResult{}, vcserr.IO(err)
	}
	if err := idx.Save(e.fs, path.Join(VCSRoot, indexFile)); err != nil {
		return CommitResult{}, vcserr.IO(err)
	}

	var parent *id.ID
	if st.HasCommit() {
		p := *st.CurrentCommit
		parent = &p
	}
	commit := objects.Commit{
		Tree:    rootID,
		Parent:  parent,
		Branch:  st.CurrentBranch,
		Time:    e.clock(),
		Message: message,
	}
	cid, err := e.store.PutCommit(commit)
	if err != nil {
		return CommitResult{}, vcserr.IO(err)
	}

	st.CurrentCommit = &cid
	heads.Set(st.CurrentBranch, cid)
	if err := e.saveStateAndRefs(st, heads); err != nil {
		return CommitResult{}, err
	}

	e.log.Info("commit", zap.String("id", cid.String()), zap.String("branch", st.CurrentBranch))
	return CommitResult{ID: cid, Branch: st.CurrentBranch, Message: message, Changes: toRepoRelative(changes)}, nil
}

func (e *Engine) saveStateAndRefs(st state.State, heads *refs.RefStorage) error {
	if err := state.Save(e.fs, path.Join(VCSRoot, stateFile), st); err != nil {
		return vcserr.IO(err)
	}
	if err := heads.Save(e.fs, path.Join(VCSRoot, refsFile)); err != nil {
		return vcserr.IO(err)
	}
	return nil
}

// StatusResult is returned by Status.
type StatusResult struct {
	Branch  string
	Changes []vcserr.Change
}

// Status reports the current branch and every uncommitted change. It
// mutates nothing.
func (e *Engine) Status(ctx context.Context) (StatusResult, error) {
	if err := ctx.Err(); err != nil {
		return StatusResult{}, vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.loadState()
	if err != nil {
		return StatusResult{}, err
	}
	idx, err := e.loadIndex()
	if err != nil {
		return StatusResult{}, err
	}
	changes, err := tree.GetChangedFiles(e.fs, e.store, idx, VCSRoot)
	if err != nil {
		return StatusResult{}, vcserr.IO(err)
	}
	return StatusResult{Branch: st.CurrentBranch, Changes: toRepoRelative(changes)}, nil
}

// NewBranchResult is returned by NewBranch.
type NewBranchResult struct {
	Name       string
	FromCommit *id.ID // nil if there were no commits yet
}

// NewBranch creates branch name, forked from master's current position,
// and switches the current branch to it without touching the working
// tree.
func (e *Engine) NewBranch(ctx context.Context, name string) (NewBranchResult, error) {
	if err := ctx.Err(); err != nil {
		return NewBranchResult{}, vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.loadState()
	if err != nil {
		return NewBranchResult{}, err
	}
	if st.CurrentBranch != state.Master {
		return NewBranchResult{}, vcserr.New(vcserr.KindBranchOffNonMaster)
	}
	heads, err := e.loadRefs()
	if err != nil {
		return NewBranchResult{}, err
	}
	if heads.Contains(name) {
		return NewBranchResult{}, vcserr.WithName(vcserr.KindBranchAlreadyExists, name)
	}
	if st.HasCommit() {
		heads.Set(name, *st.CurrentCommit)
	}
	st.CurrentBranch = name
	if err := e.saveStateAndRefs(st, heads); err != nil {
		return NewBranchResult{}, err
	}
	e.log.Info("new_branch", zap.String("name", name))
	return NewBranchResult{Name: name, FromCommit: st.CurrentCommit}, nil
}

func (e *Engine) requireNoUncommittedChanges(idx *index.Index) error {
	changes, err := tree.GetChangedFiles(e.fs, e.store, idx, VCSRoot)
	if err != nil {
		return vcserr.IO(err)
	}
	if len(changes) > 0 {
		return vcserr.WithChanges(vcserr.KindUncommittedChanges, toRepoRelative(changes))
	}
	return nil
}

// JumpToCommit resolves idHex to a commit, requires a clean working tree,
// loads that commit's tree onto disk, and puts HEAD on the commit's
// recorded branch (possibly detaching from that branch's current head).
func (e *Engine) JumpToCommit(ctx context.Context, idHex string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.jumpToCommitLocked(idHex, nil)
}

// jumpToCommitLocked implements JumpToCommit, returning the branch HEAD
// ends up on; when forcedBranch is non-nil, State.CurrentBranch is forced
// to that name after loading (JumpToBranch's override of the commit's own
// recorded branch).
func (e *Engine) jumpToCommitLocked(idHex string, forcedBranch *string) (string, error) {
	commitID, err := id.Parse(idHex)
	if err != nil {
		return "", vcserr.WithIDHex(idHex)
	}

	idx, err := e.loadIndex()
	if err != nil {
		return "", err
	}
	if err := e.requireNoUncommittedChanges(idx); err != nil {
		return "", err
	}

	if !e.store.Exists(commitID) {
		return "", vcserr.WithIDHex(idHex)
	}
	commit, err := e.store.GetCommit(commitID)
	if err != nil {
		return "", vcserr.WithIDHex(idHex)
	}
	t, err := e.store.GetTree(commit.Tree)
	if err != nil {
		return "", vcserr.IO(err)
	}

	ctx := e.treeCtx(idx)
	if err := ctx.LoadFromTree(t); err != nil {
		return "", vcserr.IO(err)
	}
	if err := idx.Save(e.fs, path.Join(VCSRoot, indexFile)); err != nil {
		return "", vcserr.IO(err)
	}

	branch := commit.Branch
	if forcedBranch != nil {
		branch = *forcedBranch
	}
	newState := state.State{CurrentBranch: branch, CurrentCommit: &commitID}
	if err := state.Save(e.fs, path.Join(VCSRoot, stateFile), newState); err != nil {
		return "", vcserr.IO(err)
	}
	e.log.Info("jump_to_commit", zap.String("id", commitID.String()), zap.String("branch", branch))
	return branch, nil
}

// JumpToBranch moves HEAD to branch's current head commit and forces the
// current branch to branch, overriding whatever branch that commit
// recorded. It returns the commit id HEAD now points at.
func (e *Engine) JumpToBranch(ctx context.Context, name string) (id.ID, error) {
	if err := ctx.Err(); err != nil {
		return id.Zero, vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	heads, err := e.loadRefs()
	if err != nil {
		return id.Zero, err
	}
	headID, ok := heads.Get(name)
	if !ok {
		return id.Zero, vcserr.WithName(vcserr.KindNoBranch, name)
	}
	if _, err := e.jumpToCommitLocked(headID.String(), &name); err != nil {
		return id.Zero, err
	}
	return headID, nil
}

// getBranchRoot walks branchHead's ancestry while commit.Branch == name,
// returning the first commit whose branch differs (or the root commit).
func (e *Engine) getBranchRoot(name string, branchHead objects.Commit) (objects.Commit, error) {
	current := branchHead
	for current.Branch == name && current.Parent != nil {
		parent, err := e.store.GetCommit(*current.Parent)
		if err != nil {
			return objects.Commit{}, vcserr.IO(err)
		}
		if parent.Branch != name {
			return parent, nil
		}
		current = parent
	}
	return current, nil
}

// MergeResult is returned by Merge.
type MergeResult struct {
	ID id.ID
}

// Merge merges branchName into master, producing a single-parent merge
// commit on master. MergeConflict is raised if both sides changed the same
// (status, path) since the branch's root.
func (e *Engine) Merge(ctx context.Context, branchName string) (MergeResult, error) {
	if err := ctx.Err(); err != nil {
		return MergeResult{}, vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	heads, err := e.loadRefs()
	if err != nil {
		return MergeResult{}, err
	}
	branchHeadID, ok := heads.Get(branchName)
	if !ok {
		return MergeResult{}, vcserr.WithName(vcserr.KindNoBranch, branchName)
	}

	st, err := e.loadState()
	if err != nil {
		return MergeResult{}, err
	}
	masterHeadID, hasMaster := heads.Get(state.Master)
	if st.CurrentBranch != state.Master {
		return MergeResult{}, vcserr.New(vcserr.KindMergeFromNotMasterHead)
	}
	if hasMaster && (!st.HasCommit() || *st.CurrentCommit != masterHeadID) {
		return MergeResult{}, vcserr.New(vcserr.KindMergeFromNotMasterHead)
	}

	idx, err := e.loadIndex()
	if err != nil {
		return MergeResult{}, err
	}
	if err := e.requireNoUncommittedChanges(idx); err != nil {
		return MergeResult{}, err
	}

	branchHead, err := e.store.GetCommit(branchHeadID)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}
	branchTree, err := e.store.GetTree(branchHead.Tree)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	rootCommit, err := e.getBranchRoot(branchName, branchHead)
	if err != nil {
		return MergeResult{}, err
	}
	rootTree, err := e.store.GetTree(rootCommit.Tree)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	masterHeadCommit, err := e.store.GetCommit(masterHeadID)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}
	masterTree, err := e.store.GetTree(masterHeadCommit.Tree)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	branchChanges, err := tree.CompareTrees(e.store, rootTree, branchTree)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}
	masterChanges, err := tree.CompareTrees(e.store, rootTree, masterTree)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	if conflicts := intersectChanges(branchChanges, masterChanges); len(conflicts) > 0 {
		return MergeResult{}, vcserr.WithChanges(vcserr.KindMergeConflict, toRepoRelative(conflicts))
	}

	mergedTree := tree.MergeTrees(branchTree, masterTree)
	mergedTreeID, err := e.store.PutTree(mergedTree)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	parent := masterHeadID
	commit := objects.Commit{
		Tree:    mergedTreeID,
		Parent:  &parent,
		Branch:  state.Master,
		Time:    e.clock(),
		Message: "Merged branch " + branchName,
	}
	cid, err := e.store.PutCommit(commit)
	if err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	heads.Set(state.Master, cid)
	st.CurrentCommit = &cid
	if err := e.saveStateAndRefs(st, heads); err != nil {
		return MergeResult{}, err
	}

	tctx := e.treeCtx(idx)
	if err := tctx.LoadFromTree(mergedTree); err != nil {
		return MergeResult{}, vcserr.IO(err)
	}
	if err := idx.Save(e.fs, path.Join(VCSRoot, indexFile)); err != nil {
		return MergeResult{}, vcserr.IO(err)
	}

	e.log.Info("merge", zap.String("branch", branchName), zap.String("commit", cid.String()))
	return MergeResult{ID: cid}, nil
}

func intersectChanges(a, b []tree.Change) []tree.Change {
	seen := make(map[tree.Change]bool, len(a))
	for _, c := range a {
		seen[c] = true
	}
	var out []tree.Change
	for _, c := range b {
		if seen[c] {
			out = append(out, c)
		}
	}
	return out
}

// LogEntry is one commit's record as reported by GetCommitLogs.
type LogEntry struct {
	ID      id.ID
	Message string
	Time    time.Time
	Changes []vcserr.Change
}

// GetCommitLogs walks parent links from the current commit to the root,
// returning one entry per commit with the changes it introduced relative
// to its parent (or every file, for the root commit).
func (e *Engine) GetCommitLogs(ctx context.Context) ([]LogEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, vcserr.IO(err)
	}
	e.mu.Lock()
	defer e.mu.Unlock()

	st, err := e.loadState()
	if err != nil {
		return nil, err
	}
	if !st.HasCommit() {
		return nil, nil
	}

	var entries []LogEntry
	current := *st.CurrentCommit
	for {
		commit, err := e.store.GetCommit(current)
		if err != nil {
			return nil, vcserr.IO(err)
		}
		thisTree, err := e.store.GetTree(commit.Tree)
		if err != nil {
			return nil, vcserr.IO(err)
		}

		var changes []tree.Change
		if commit.Parent != nil {
			parent, err := e.store.GetCommit(*commit.Parent)
			if err != nil {
				return nil, vcserr.IO(err)
			}
			parentTree, err := e.store.GetTree(parent.Tree)
			if err != nil {
				return nil, vcserr.IO(err)
			}
			changes, err = tree.CompareTrees(e.store, parentTree, thisTree)
			if err != nil {
				return nil, vcserr.IO(err)
			}
		} else {
			changes, err = tree.GetTreeFiles(e.store, thisTree)
			if err != nil {
				return nil, vcserr.IO(err)
			}
		}

		entries = append(entries, LogEntry{
			ID:      current,
			Message: commit.Message,
			Time:    commit.Time,
			Changes: toRepoRelative(changes),
		})

		if commit.Parent == nil {
			break
		}
		current = *commit.Parent
	}
	return entries, nil
}
