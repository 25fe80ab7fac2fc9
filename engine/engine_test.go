package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/go-git/go-billy/v6"

	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/state"
	"github.com/nickyhof/vcs/vcserr"
)

var ctx = context.Background()

func mustClock(t *testing.T) Clock {
	t.Helper()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 0
	return func() time.Time {
		n++
		return base.Add(time.Duration(n) * time.Minute)
	}
}

func mustInit(t *testing.T) (*Engine, billy.Filesystem) {
	t.Helper()
	fs := fsio.NewMemory()
	e, err := Init(ctx, fs, WithClock(mustClock(t)))
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	return e, fs
}

func writeWorkingFile(t *testing.T, e *Engine, path, data string) {
	t.Helper()
	if err := fsio.WriteFile(e.fs, path, []byte(data)); err != nil {
		t.Fatalf("WriteFile(%s): %v", path, err)
	}
}

func vErr(t *testing.T, err error) *vcserr.Error {
	t.Helper()
	var e *vcserr.Error
	if !errors.As(err, &e) {
		t.Fatalf("want *vcserr.Error, got %T: %v", err, err)
	}
	return e
}

func TestInitRejectsExistingRepository(t *testing.T) {
	_, fs := mustInit(t)
	if _, err := Init(ctx, fs); err == nil {
		t.Fatalf("want AlreadyVcsRepository initializing a repository twice")
	} else if got := vErr(t, err); got.Kind != vcserr.KindAlreadyVcsRepository {
		t.Fatalf("want KindAlreadyVcsRepository, got %v", got.Kind)
	}
}

func TestCommitRejectsCanceledContext(t *testing.T) {
	e, _ := mustInit(t)
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := e.Commit(canceled, "Initial commit"); err == nil {
		t.Fatalf("want an error committing with an already-canceled context")
	} else if got := vErr(t, err); got.Kind != vcserr.KindIO {
		t.Fatalf("want KindIO, got %v", got.Kind)
	}
}

func TestOpenRejectsNonRepository(t *testing.T) {
	fs := fsio.NewMemory()
	if _, err := Open(ctx, fs); err == nil {
		t.Fatalf("want NotVcsRepository opening a bare directory")
	} else if got := vErr(t, err); got.Kind != vcserr.KindNotVcsRepository {
		t.Fatalf("want KindNotVcsRepository, got %v", got.Kind)
	}
}

func TestEmptyInitialCommitSucceeds(t *testing.T) {
	e, _ := mustInit(t)
	res, err := e.Commit(ctx, "Initial commit")
	if err != nil {
		t.Fatalf("empty initial commit should succeed: %v", err)
	}
	if res.Branch != state.Master {
		t.Fatalf("want branch master, got %s", res.Branch)
	}
	if len(res.Changes) != 0 {
		t.Fatalf("want zero changes in an empty initial commit, got %+v", res.Changes)
	}
}

func TestStatusAfterInit(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	st, err := e.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if st.Branch != state.Master {
		t.Fatalf("want master, got %s", st.Branch)
	}
	if len(st.Changes) != 0 {
		t.Fatalf("want no changes right after commit, got %+v", st.Changes)
	}
}

func TestCommitAddsChangedFiles(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "file1", "hello world")

	res, err := e.Commit(ctx, "add file1")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if len(res.Changes) != 1 || res.Changes[0].Status != "added" || res.Changes[0].Path != "file1" {
		t.Fatalf("want one Added change for file1, got %+v", res.Changes)
	}
}

func TestCommitNoChangesAfterInitial(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := e.Commit(ctx, "noop"); err == nil {
		t.Fatalf("want NoChanges for a commit with nothing changed")
	} else if got := vErr(t, err); got.Kind != vcserr.KindNoChanges {
		t.Fatalf("want KindNoChanges, got %v", got.Kind)
	}
}

func TestCommitFromNonHeadAfterDetaching(t *testing.T) {
	e, _ := mustInit(t)
	initial, err := e.Commit(ctx, "Initial commit")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "file1", "v1")
	if _, err := e.Commit(ctx, "add file1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := e.JumpToCommit(ctx, initial.ID.String()); err != nil {
		t.Fatalf("JumpToCommit: %v", err)
	}

	if _, err := e.Commit(ctx, "should fail"); err == nil {
		t.Fatalf("want CommitFromNonHead when current commit is not the branch head")
	} else if got := vErr(t, err); got.Kind != vcserr.KindCommitFromNonHead {
		t.Fatalf("want KindCommitFromNonHead, got %v", got.Kind)
	}
}

func TestJumpToCommitDeletesLaterFile(t *testing.T) {
	e, _ := mustInit(t)
	initial, err := e.Commit(ctx, "Initial commit")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "contents")
	if _, err := e.Commit(ctx, "add new_file"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if !fsio.Exists(e.fs, "new_file") {
		t.Fatalf("new_file should exist right after committing it")
	}

	if _, err := e.JumpToCommit(ctx, initial.ID.String()); err != nil {
		t.Fatalf("JumpToCommit: %v", err)
	}
	if fsio.Exists(e.fs, "new_file") {
		t.Fatalf("new_file should be removed after jumping back to the initial commit")
	}
}

func TestJumpBlockedByUncommittedChanges(t *testing.T) {
	e, _ := mustInit(t)
	initial, err := e.Commit(ctx, "Initial commit")
	if err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "contents")
	if _, err := e.Commit(ctx, "add new_file"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "modified")

	_, err = e.JumpToCommit(ctx, initial.ID.String())
	if err == nil {
		t.Fatalf("want UncommittedChanges blocking the jump")
	}
	got := vErr(t, err)
	if got.Kind != vcserr.KindUncommittedChanges {
		t.Fatalf("want KindUncommittedChanges, got %v", got.Kind)
	}
	if len(got.Changes) != 1 || got.Changes[0].Path != "new_file" {
		t.Fatalf("want the change set to name new_file, got %+v", got.Changes)
	}
}

func TestJumpToCommitUnknownHexIsNoCommit(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := e.JumpToCommit(ctx, "not-valid-hex"); err == nil {
		t.Fatalf("want NoCommit for undecodable hex")
	} else if got := vErr(t, err); got.Kind != vcserr.KindNoCommit {
		t.Fatalf("want KindNoCommit, got %v", got.Kind)
	}

	validButMissing := "000000000000000000000000000000000000000a"
	if _, err := e.JumpToCommit(ctx, validButMissing); err == nil {
		t.Fatalf("want NoCommit for a well-formed hex with no matching object")
	} else if got := vErr(t, err); got.Kind != vcserr.KindNoCommit {
		t.Fatalf("want KindNoCommit, got %v", got.Kind)
	}
}

func TestNewBranchOffNonMaster(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := e.NewBranch(ctx, "feature"); err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	if _, err := e.NewBranch(ctx, "another"); err == nil {
		t.Fatalf("want BranchOffNonMaster creating a branch while not on master")
	} else if got := vErr(t, err); got.Kind != vcserr.KindBranchOffNonMaster {
		t.Fatalf("want KindBranchOffNonMaster, got %v", got.Kind)
	}
}

func TestNewBranchAlreadyExists(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := e.NewBranch(ctx, "feature"); err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	if _, err := e.JumpToBranch(ctx, state.Master); err != nil {
		t.Fatalf("JumpToBranch: %v", err)
	}
	if _, err := e.NewBranch(ctx, "feature"); err == nil {
		t.Fatalf("want BranchAlreadyExists")
	} else if got := vErr(t, err); got.Kind != vcserr.KindBranchAlreadyExists {
		t.Fatalf("want KindBranchAlreadyExists, got %v", got.Kind)
	}
}

func TestNewBranchPreservesUncommittedChanges(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "scratch", "uncommitted")

	if _, err := e.NewBranch(ctx, "feature"); err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	st, err := e.Status(ctx)
	if err != nil {
		t.Fatalf("Status: %v", err)
	}
	if len(st.Changes) != 1 || st.Changes[0].Path != "scratch" {
		t.Fatalf("new_branch should carry uncommitted changes across the switch, got %+v", st.Changes)
	}
}

func TestMergeNonConflicting(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "")
	if _, err := e.Commit(ctx, "add empty new_file"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := e.NewBranch(ctx, "feature"); err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "hello")
	if _, err := e.Commit(ctx, "fill in new_file"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := e.JumpToBranch(ctx, state.Master); err != nil {
		t.Fatalf("JumpToBranch: %v", err)
	}
	res, err := e.Merge(ctx, "feature")
	if err != nil {
		t.Fatalf("Merge: %v", err)
	}
	if res.ID.IsZero() {
		t.Fatalf("Merge should produce a non-zero commit id")
	}

	data, err := fsio.ReadFile(e.fs, "new_file")
	if err != nil {
		t.Fatalf("ReadFile(new_file): %v", err)
	}
	if string(data) != "hello" {
		t.Fatalf("want new_file to contain %q after merge, got %q", "hello", data)
	}
}

func TestMergeConflict(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "")
	if _, err := e.Commit(ctx, "add empty new_file"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := e.NewBranch(ctx, "feature_branch"); err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "hello")
	if _, err := e.Commit(ctx, "fill in new_file on feature"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	if _, err := e.JumpToBranch(ctx, state.Master); err != nil {
		t.Fatalf("JumpToBranch: %v", err)
	}
	writeWorkingFile(t, e, "new_file", "goodbye")
	if _, err := e.Commit(ctx, "fill in new_file on master"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	_, err := e.Merge(ctx, "feature_branch")
	if err == nil {
		t.Fatalf("want MergeConflict")
	}
	got := vErr(t, err)
	if got.Kind != vcserr.KindMergeConflict {
		t.Fatalf("want KindMergeConflict, got %v", got.Kind)
	}

	data, err := fsio.ReadFile(e.fs, "new_file")
	if err != nil {
		t.Fatalf("ReadFile(new_file): %v", err)
	}
	if string(data) != "goodbye" {
		t.Fatalf("failed merge must not mutate the working tree: want %q, got %q", "goodbye", data)
	}
}

func TestMergeRequiresMasterHead(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := e.NewBranch(ctx, "feature"); err != nil {
		t.Fatalf("NewBranch: %v", err)
	}
	if _, err := e.Merge(ctx, "feature"); err == nil {
		t.Fatalf("want MergeFromNotMasterHead while current branch is feature")
	} else if got := vErr(t, err); got.Kind != vcserr.KindMergeFromNotMasterHead {
		t.Fatalf("want KindMergeFromNotMasterHead, got %v", got.Kind)
	}
}

func TestMergeUnknownBranch(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	if _, err := e.Merge(ctx, "ghost"); err == nil {
		t.Fatalf("want NoBranch merging an unknown branch")
	} else if got := vErr(t, err); got.Kind != vcserr.KindNoBranch {
		t.Fatalf("want KindNoBranch, got %v", got.Kind)
	}
}

func TestGetCommitLogsMatchesCompareTreesPerCommit(t *testing.T) {
	e, _ := mustInit(t)
	if _, err := e.Commit(ctx, "Initial commit"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "file1", "v1")
	if _, err := e.Commit(ctx, "add file1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}
	writeWorkingFile(t, e, "file1", "v2")
	if _, err := e.Commit(ctx, "modify file1"); err != nil {
		t.Fatalf("Commit: %v", err)
	}

	logs, err := e.GetCommitLogs(ctx)
	if err != nil {
		t.Fatalf("GetCommitLogs: %v", err)
	}
	if len(logs) != 3 {
		t.Fatalf("want 3 log entries, got %d", len(logs))
	}
	// Logs are newest first.
	if logs[0].Message != "modify file1" {
		t.Fatalf("want newest-first order, got %+v", logs[0])
	}
	if len(logs[0].Changes) != 1 || logs[0].Changes[0].Status != "modified" {
		t.Fatalf("want the modify commit to report one Modified change, got %+v", logs[0].Changes)
	}
	if len(logs[1].Changes) != 1 || logs[1].Changes[0].Status != "added" {
		t.Fatalf("want the add commit to report one Added change, got %+v", logs[1].Changes)
	}
	if len(logs[2].Changes) != 0 {
		t.Fatalf("want the empty initial commit to report zero changes, got %+v", logs[2].Changes)
	}
}
