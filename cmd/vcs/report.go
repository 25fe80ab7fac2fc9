package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/nickyhof/vcs/engine"
	"github.com/nickyhof/vcs/vcserr"
)

// Report formatting is an external collaborator (SPEC_FULL.md §1); the
// exact strings below follow
// _examples/original_source/src/report_printer.rs and
// _examples/original_source/src/commands/*.rs, the source SPEC_FULL.md's
// end-to-end scenarios were distilled from.

func reportChanges(changes []vcserr.Change) string {
	sorted := append([]vcserr.Change(nil), changes...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Path < sorted[j].Path })

	var b strings.Builder
	for _, c := range sorted {
		fmt.Fprintf(&b, "  %s: %s\n", c.Status, c.Path)
	}
	return b.String()
}

func reportCurrentBranch(branch string) string {
	return fmt.Sprintf("On branch %s\n", branch)
}

func reportStatus(res engine.StatusResult) string {
	report := reportCurrentBranch(res.Branch)
	if len(res.Changes) == 0 {
		report += "No changes to be committed\n"
	} else {
		report += "Changes to be committed:\n"
		report += reportChanges(res.Changes)
	}
	return report
}

func reportSuccessfulCommit(res engine.CommitResult) string {
	return fmt.Sprintf("[%s %s] %s\n", res.Branch, res.ID, res.Message) + reportChanges(res.Changes)
}

func reportMerge(res engine.MergeResult, commit engine.CommitResult) string {
	return "Successfully created merge commit:\n" + reportSuccessfulCommit(commit)
}

func reportNewBranch(name string, hasCommit bool, commitID string) string {
	report := fmt.Sprintf("Created a new branch %s", name)
	if hasCommit {
		report += fmt.Sprintf(" from master's commit %s", commitID)
	}
	return report + "\n"
}

func reportJumpToCommit(branch, commitID string) string {
	return fmt.Sprintf("Successfully jumped to commit %s. Current branch: %s\n", commitID, branch)
}

func reportJumpToBranch(branch string, commitID string, hasCommit bool) string {
	report := fmt.Sprintf("Successfully jumped to branch %s.", branch)
	if hasCommit {
		report += fmt.Sprintf(" Current commit: %s.", commitID)
	}
	return report + "\n"
}

func reportLogs(entries []engine.LogEntry) string {
	var b strings.Builder
	for i, e := range entries {
		fmt.Fprintf(&b, "commit %s\nDate: %s\nMessage: %s\n", e.ID, e.Time.Format("Mon Jan  2 15:04:05 2006 -0700"), e.Message)
		if len(e.Changes) == 0 {
			b.WriteString("No changes\n")
		} else {
			b.WriteString("Changes:\n")
			b.WriteString(reportChanges(e.Changes))
		}
		if i != len(entries)-1 {
			b.WriteString("\n")
		}
	}
	return b.String()
}
