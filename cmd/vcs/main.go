// Command vcs is the CLI surface (C10): subcommand dispatch, flag parsing
// and report formatting around the engine package. This is explicitly an
// external collaborator of the core (SPEC_FULL.md §1), pinned here only
// for the end-to-end scenarios in SPEC_FULL.md §8. Built with
// github.com/spf13/cobra, the multi-subcommand CLI stack demonstrated at
// scale by _examples/bufbuild-buf in this retrieval pack (the teacher
// repo's own cmd/cli is a hand-rolled flag-based REPL, a different shape
// than the fixed seven-subcommand dispatch this tool needs).
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-git/go-billy/v6"
	"github.com/spf13/cobra"

	"github.com/nickyhof/vcs/discover"
	"github.com/nickyhof/vcs/engine"
	"github.com/nickyhof/vcs/fsio"
	"github.com/nickyhof/vcs/vcserr"
	"github.com/nickyhof/vcs/vcslog"
)

var verbose bool

// osFilesystem roots a billy.Filesystem at dir on the real OS filesystem.
func osFilesystem(dir string) billy.Filesystem {
	return fsio.New(dir)
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, errorMessage(err))
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vcs",
		Short:         "A minimal local content-addressed version-control system",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newInitCmd(),
		newStatusCmd(),
		newCommitCmd(),
		newNewBranchCmd(),
		newJumpCmd(),
		newMergeCmd(),
		newLogCmd(),
	)
	return root
}

// errorMessage renders err the way the CLI surfaces it on stderr: the
// vcserr.Error message if err carries one, else err.Error() verbatim.
func errorMessage(err error) string {
	var vErr *vcserr.Error
	if errors.As(err, &vErr) {
		return vErr.Error()
	}
	return err.Error()
}

func openEngine(ctx context.Context, root string) (*engine.Engine, error) {
	logger, err := vcslog.New(verbose)
	if err != nil {
		return nil, err
	}
	fs := osFilesystem(root)
	return engine.Open(ctx, fs, engine.WithLogger(logger))
}

func findRepoOrFail(ctx context.Context) (*engine.Engine, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	root, ok := discover.Root(cwd)
	if !ok {
		return nil, vcserr.New(vcserr.KindNotVcsRepository)
	}
	return openEngine(ctx, root)
}

func newInitCmd() *cobra.Command {
	var dir string
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a new repository and take its initial commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			abs, err := filepath.Abs(dir)
			if err != nil {
				return err
			}
			if err := os.MkdirAll(abs, 0o755); err != nil {
				return err
			}
			logger, err := vcslog.New(verbose)
			if err != nil {
				return err
			}
			e, err := engine.Init(cmd.Context(), osFilesystem(abs), engine.WithLogger(logger))
			if err != nil {
				return err
			}
			fmt.Printf("Initialized VCS repository in %s\n", abs)

			res, err := e.Commit(cmd.Context(), "Initial commit")
			if err != nil {
				return err
			}
			fmt.Print(reportSuccessfulCommit(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&dir, "path", ".", "directory to initialize")
	return cmd
}

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the current branch and uncommitted changes",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := findRepoOrFail(cmd.Context())
			if err != nil {
				return err
			}
			res, err := e.Status(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(reportStatus(res))
			return nil
		},
	}
}

func newCommitCmd() *cobra.Command {
	var message string
	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Snapshot every changed file as a new commit",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := findRepoOrFail(cmd.Context())
			if err != nil {
				return err
			}
			res, err := e.Commit(cmd.Context(), message)
			if err != nil {
				return err
			}
			fmt.Print(reportSuccessfulCommit(res))
			return nil
		},
	}
	cmd.Flags().StringVar(&message, "message", "", "commit message")
	return cmd
}

func newNewBranchCmd() *cobra.Command {
	var name string
	cmd := &cobra.Command{
		Use:   "new_branch",
		Short: "Create a new branch off master",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := findRepoOrFail(cmd.Context())
			if err != nil {
				return err
			}
			if _, err := e.NewBranch(cmd.Context(), name); err != nil {
				return err
			}
			logs, err := e.GetCommitLogs(cmd.Context())
			if err != nil {
				return err
			}
			hasCommit := len(logs) > 0
			commitID := ""
			if hasCommit {
				commitID = logs[0].ID.String()
			}
			fmt.Print(reportNewBranch(name, hasCommit, commitID))
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "new branch name")
	return cmd
}

func newJumpCmd() *cobra.Command {
	var branch, commit string
	cmd := &cobra.Command{
		Use:   "jump",
		Short: "Move HEAD to a commit or a branch",
		RunE: func(cmd *cobra.Command, args []string) error {
			if (branch == "") == (commit == "") {
				return fmt.Errorf("exactly one of --branch or --commit is required")
			}
			e, err := findRepoOrFail(cmd.Context())
			if err != nil {
				return err
			}
			if commit != "" {
				if _, err := e.JumpToCommit(cmd.Context(), commit); err != nil {
					return err
				}
				st, err := e.Status(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Print(reportJumpToCommit(st.Branch, commit))
				return nil
			}
			if _, err := e.JumpToBranch(cmd.Context(), branch); err != nil {
				return err
			}
			logs, err := e.GetCommitLogs(cmd.Context())
			if err != nil {
				return err
			}
			hasCommit := len(logs) > 0
			commitID := ""
			if hasCommit {
				commitID = logs[0].ID.String()
			}
			fmt.Print(reportJumpToBranch(branch, commitID, hasCommit))
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch to jump to")
	cmd.Flags().StringVar(&commit, "commit", "", "commit hex id to jump to")
	return cmd
}

func newMergeCmd() *cobra.Command {
	var branch string
	cmd := &cobra.Command{
		Use:   "merge",
		Short: "Merge a branch into master",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := findRepoOrFail(cmd.Context())
			if err != nil {
				return err
			}
			res, err := e.Merge(cmd.Context(), branch)
			if err != nil {
				return err
			}
			logs, err := e.GetCommitLogs(cmd.Context())
			if err != nil {
				return err
			}
			var commitRes engine.CommitResult
			if len(logs) > 0 {
				commitRes = engine.CommitResult{ID: res.ID, Branch: "master", Message: logs[0].Message, Changes: logs[0].Changes}
			}
			fmt.Print(reportMerge(res, commitRes))
			return nil
		},
	}
	cmd.Flags().StringVar(&branch, "branch", "", "branch to merge into master")
	return cmd
}

func newLogCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "log",
		Short: "Print commit history",
		RunE: func(cmd *cobra.Command, args []string) error {
			e, err := findRepoOrFail(cmd.Context())
			if err != nil {
				return err
			}
			entries, err := e.GetCommitLogs(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Print(reportLogs(entries))
			return nil
		},
	}
}
