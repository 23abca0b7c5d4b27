package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rancher/commit-on-branch-action/internal/app"
	"github.com/rancher/commit-on-branch-action/internal/commit"
	gh "github.com/rancher/commit-on-branch-action/internal/github"
	"github.com/rancher/commit-on-branch-action/internal/paths"
)

type commitFlags struct {
	owner         string
	repo          string
	branch        string
	changed       []string
	deleted       []string
	message       string
	description   string
	workDir       string
	detectChanges bool
	dryRun        bool
	output        string
}

func newCommitCommand(root *rootOptions, deps Deps) *cobra.Command {
	flags := &commitFlags{}

	cmd := &cobra.Command{
		Use:   "commit",
		Short: "Create a commit on a branch",
		Long: `Create a single commit on an existing branch. Changed files are read from
disk and uploaded in full; deleted files are removed. The commit is rejected if
the branch moves between resolving its head and creating the commit.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runCommit(cmd, root, flags, deps); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to create commit: %v\n", err)
				return &reportedError{err: err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.owner, "owner", "o", "", "Owner of the repository (defaults to GITHUB_REPOSITORY)")
	f.StringVarP(&flags.repo, "repo", "r", "", "Name of the repository (defaults to GITHUB_REPOSITORY)")
	f.StringVarP(&flags.branch, "branch", "b", "", "Name of the branch to commit to")
	f.StringArrayVarP(&flags.changed, "changed", "c", nil, "Path of a new or modified file; repeatable, a multi-line value holds one path per line")
	f.StringArrayVarP(&flags.deleted, "deleted", "d", nil, "Path of a tracked deleted file; repeatable, a multi-line value holds one path per line")
	f.StringVarP(&flags.message, "commitMessage", "m", "", "Mandatory commit message")
	f.StringVar(&flags.description, "commitDescription", "", "Optional commit description")
	f.StringVar(&flags.workDir, "workdir", "", "Directory changed files are read from (env INPUT_WORKDIR, default .)")
	f.BoolVar(&flags.detectChanges, "detect-changes", false, "Add the working tree changes reported by git status to the file lists")
	f.BoolVar(&flags.dryRun, "dry-run", false, "Resolve the branch and build the commit without creating it (env INPUT_DRY_RUN)")
	f.StringVar(&flags.output, "output", outputText, "Output format: text or json")

	return cmd
}

func runCommit(cmd *cobra.Command, root *rootOptions, flags *commitFlags, deps Deps) error {
	if err := validateOutputFormat(flags.output); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	if cmd.Flags().Changed("workdir") {
		cfg.WorkDir = flags.workDir
	}
	if cmd.Flags().Changed("dry-run") {
		cfg.DryRun = flags.dryRun
	}

	runner, err := newRunner(cmd, cfg, deps)
	if err != nil {
		return err
	}

	result, err := runner.Commit(cmd.Context(), app.CommitOptions{
		Owner:         flags.owner,
		Repo:          flags.repo,
		Branch:        flags.branch,
		Changed:       paths.ParseLists(flags.changed),
		Deleted:       paths.ParseLists(flags.deleted),
		Message:       flags.message,
		Description:   flags.description,
		DetectChanges: flags.detectChanges,
	})
	if err != nil {
		return err
	}

	return printCommitResult(cmd.OutOrStdout(), flags.output, result)
}

func printCommitResult(w io.Writer, format string, result commit.Result) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	if result.DryRun {
		_, err := fmt.Fprintf(w, "Dry run: would commit %d addition(s) and %d deletion(s) to %s branch '%s' on top of %s\n",
			len(result.Additions), len(result.Deletions),
			gh.RepositoryNameWithOwner(result.Owner, result.Repo), result.Branch,
			gh.ShortOID(result.ExpectedHeadOID))
		return err
	}

	_, err := fmt.Fprintf(w, "Commit created: %s\n", result.URL)
	return err
}
