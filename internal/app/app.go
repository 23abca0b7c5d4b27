package app

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/rancher/commit-on-branch-action/internal/commit"
	"github.com/rancher/commit-on-branch-action/internal/git"
	gh "github.com/rancher/commit-on-branch-action/internal/github"
	"github.com/rancher/commit-on-branch-action/internal/paths"
)

// Runner glues together the commit submitter and supporting services behind the CLI commands.
type Runner struct {
	cfg       Config
	log       *slog.Logger
	ghFactory gh.Factory
	detector  git.ChangeDetector

	client gh.Client
}

// CommitOptions describes a commit command invocation. Empty Owner and Repo
// fall back to the GITHUB_REPOSITORY defaults.
type CommitOptions struct {
	Owner       string
	Repo        string
	Branch      string
	Changed     []string
	Deleted     []string
	Message     string
	Description string

	// DetectChanges appends the working tree changes reported by git to the
	// explicit lists.
	DetectChanges bool
}

// BranchOptions describes a branch existence check.
type BranchOptions struct {
	Owner  string
	Repo   string
	Branch string
}

// BranchResult reports whether a branch exists and its head when it does.
type BranchResult struct {
	Owner   string `json:"owner"`
	Repo    string `json:"repo"`
	Branch  string `json:"branch"`
	Exists  bool   `json:"exists"`
	HeadOID string `json:"headOid,omitempty"`
}

// NewRunner constructs a Runner with the supplied configuration.
func NewRunner(cfg Config) (*Runner, error) {
	logger, err := NewLogger(cfg.EffectiveLogLevel(), cfg.LogFormat, os.Stderr)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	return &Runner{
		cfg:       cfg,
		log:       logger,
		ghFactory: gh.NewGraphQLFactory(cfg.GraphQLURL),
		detector:  git.NewShellDetector(),
	}, nil
}

// NewRunnerWithDeps constructs a Runner with injected dependencies for testing.
func NewRunnerWithDeps(cfg Config, log *slog.Logger, ghFactory gh.Factory, detector git.ChangeDetector) *Runner {
	return &Runner{cfg: cfg, log: log, ghFactory: ghFactory, detector: detector}
}

// Commit creates one commit on an existing branch and records the result in
// the GitHub Action output files.
func (r *Runner) Commit(ctx context.Context, opts CommitOptions) (commit.Result, error) {
	req := commit.Request{
		Owner:       r.owner(opts.Owner),
		Repo:        r.repo(opts.Repo),
		Branch:      strings.TrimSpace(opts.Branch),
		Changed:     opts.Changed,
		Deleted:     opts.Deleted,
		Message:     opts.Message,
		Description: opts.Description,
	}

	if opts.DetectChanges {
		if r.detector == nil {
			return commit.Result{}, fmt.Errorf("change detection is not available")
		}

		changes, err := r.detector.DetectChanges(ctx, r.cfg.WorkDir)
		if git.IsNotRepository(err) {
			return commit.Result{}, &commit.ValidationError{
				Reason: fmt.Sprintf("--detect-changes needs a git work tree, but %s is not inside one", r.cfg.WorkDir),
			}
		}
		if err != nil {
			return commit.Result{}, fmt.Errorf("detect changes: %w", err)
		}

		if r.log != nil {
			r.log.Debug("detected working tree changes", "dir", r.cfg.WorkDir, "changed", changes.Changed, "deleted", changes.Deleted)
		}

		req.Changed = paths.Merge(req.Changed, changes.Changed)
		req.Deleted = paths.Merge(req.Deleted, changes.Deleted)
	}

	if _, _, err := commit.Normalize(req); err != nil {
		return commit.Result{}, err
	}

	client, err := r.githubClient(ctx)
	if err != nil {
		return commit.Result{}, err
	}

	if r.log != nil {
		r.log.Info("creating commit", "repository", gh.RepositoryNameWithOwner(req.Owner, req.Repo), "branch", req.Branch, "dry_run", r.cfg.DryRun)
	}

	submitter := commit.New(commit.Config{WorkDir: r.cfg.WorkDir, DryRun: r.cfg.DryRun}, client, r.log)

	result, err := submitter.Submit(ctx, req)
	if err != nil {
		return commit.Result{}, err
	}

	if err := r.writeGitHubOutputs(commitOutputs(result)); err != nil && r.log != nil {
		r.log.Warn("failed to write action outputs", "error", err)
	}

	if err := r.writeStepSummary(renderCommitSummary(result)); err != nil && r.log != nil {
		r.log.Warn("failed to write step summary", "error", err)
	}

	return result, nil
}

// Branch reports whether a branch exists. A missing branch is a successful
// answer, not an error.
func (r *Runner) Branch(ctx context.Context, opts BranchOptions) (BranchResult, error) {
	result := BranchResult{
		Owner:  r.owner(opts.Owner),
		Repo:   r.repo(opts.Repo),
		Branch: strings.TrimSpace(opts.Branch),
	}

	if result.Owner == "" || result.Repo == "" || result.Branch == "" {
		return BranchResult{}, &commit.ValidationError{Reason: "owner, repo and branch are required"}
	}

	client, err := r.githubClient(ctx)
	if err != nil {
		return BranchResult{}, err
	}

	ref, err := client.ResolveBranch(ctx, result.Owner, result.Repo, result.Branch)
	if err != nil {
		return BranchResult{}, fmt.Errorf("resolve branch %s: %w", result.Branch, err)
	}

	result.Exists = ref.Exists()
	result.HeadOID = ref.HeadOID

	if r.log != nil {
		r.log.Info("checked branch", "repository", gh.RepositoryNameWithOwner(result.Owner, result.Repo), "branch", result.Branch, "exists", result.Exists)
		if result.Exists && !gh.IsCommitOID(result.HeadOID) {
			r.log.Warn("branch head is not a full commit oid", "branch", result.Branch, "oid", result.HeadOID)
		}
	}

	if err := r.writeGitHubOutputs(branchOutputs(result)); err != nil && r.log != nil {
		r.log.Warn("failed to write action outputs", "error", err)
	}

	if err := r.writeStepSummary(renderBranchSummary(result)); err != nil && r.log != nil {
		r.log.Warn("failed to write step summary", "error", err)
	}

	return result, nil
}

func (r *Runner) githubClient(ctx context.Context) (gh.Client, error) {
	if r.client != nil {
		return r.client, nil
	}

	if r.cfg.GitHubToken == "" {
		return nil, fmt.Errorf("github token is required (set INPUT_GITHUB_TOKEN or GITHUB_TOKEN)")
	}

	if r.ghFactory == nil {
		return nil, fmt.Errorf("github client factory is not configured")
	}

	client, err := r.ghFactory.New(ctx, r.cfg.GitHubToken)
	if err != nil {
		return nil, fmt.Errorf("initialize github client: %w", err)
	}

	r.client = client
	return client, nil
}

func (r *Runner) owner(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return r.cfg.DefaultOwner
}

func (r *Runner) repo(explicit string) string {
	if v := strings.TrimSpace(explicit); v != "" {
		return v
	}
	return r.cfg.DefaultRepo
}
