package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/rancher/commit-on-branch-action/internal/app"
)

type branchFlags struct {
	owner  string
	repo   string
	branch string
	output string
}

func newBranchCommand(root *rootOptions, deps Deps) *cobra.Command {
	flags := &branchFlags{}

	cmd := &cobra.Command{
		Use:   "branch",
		Short: "Check if a branch exists",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := runBranch(cmd, root, flags, deps); err != nil {
				fmt.Fprintf(cmd.ErrOrStderr(), "Failed to check if branch exists: %v\n", err)
				return &reportedError{err: err}
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringVarP(&flags.owner, "owner", "o", "", "Owner of the repository (defaults to GITHUB_REPOSITORY)")
	f.StringVarP(&flags.repo, "repo", "r", "", "Name of the repository (defaults to GITHUB_REPOSITORY)")
	f.StringVarP(&flags.branch, "branch", "b", "", "Name of the branch to check for existence")
	f.StringVar(&flags.output, "output", outputText, "Output format: text or json")

	return cmd
}

func runBranch(cmd *cobra.Command, root *rootOptions, flags *branchFlags, deps Deps) error {
	if err := validateOutputFormat(flags.output); err != nil {
		return err
	}

	cfg, err := loadConfig(cmd, root)
	if err != nil {
		return err
	}

	runner, err := newRunner(cmd, cfg, deps)
	if err != nil {
		return err
	}

	result, err := runner.Branch(cmd.Context(), app.BranchOptions{
		Owner:  flags.owner,
		Repo:   flags.repo,
		Branch: flags.branch,
	})
	if err != nil {
		return err
	}

	return printBranchResult(cmd.OutOrStdout(), flags.output, result)
}

func printBranchResult(w io.Writer, format string, result app.BranchResult) error {
	if format == outputJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(result)
	}

	article := "no"
	if result.Exists {
		article = "a"
	}

	_, err := fmt.Fprintf(w, "Repository %s/%s has %s branch named '%s'\n", result.Owner, result.Repo, article, result.Branch)
	return err
}
