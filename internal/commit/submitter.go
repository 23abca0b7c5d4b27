package commit

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	gh "github.com/rancher/commit-on-branch-action/internal/github"
	"github.com/rancher/commit-on-branch-action/internal/paths"
)

// Request describes one commit to create. Changed and Deleted may contain
// duplicates and empty entries; they are normalized before use.
type Request struct {
	Owner       string
	Repo        string
	Branch      string
	Changed     []string
	Deleted     []string
	Message     string
	Description string
}

// Result captures the outcome of a submission.
type Result struct {
	Owner  string `json:"owner"`
	Repo   string `json:"repo"`
	Branch string `json:"branch"`

	// URL is empty when GitHub accepted the commit but returned no commit reference.
	URL string `json:"url"`
	OID string `json:"oid,omitempty"`

	ExpectedHeadOID string   `json:"expectedHeadOid"`
	Additions       []string `json:"additions"`
	Deletions       []string `json:"deletions"`
	DryRun          bool     `json:"dryRun"`
}

// Submitter creates commits on existing branches through the GitHub GraphQL API.
type Submitter struct {
	cfg    Config
	gh     gh.Client
	log    *slog.Logger
	tracer trace.Tracer
}

// New returns a configured Submitter.
func New(cfg Config, ghClient gh.Client, logger *slog.Logger) *Submitter {
	return &Submitter{
		cfg:    cfg,
		gh:     ghClient,
		log:    logger,
		tracer: otel.Tracer("github.com/rancher/commit-on-branch-action/internal/commit"),
	}
}

// Normalize validates a request and returns its normalized changed and deleted
// path lists. It performs no I/O.
func Normalize(req Request) ([]string, []string, error) {
	changed := paths.Normalize(req.Changed)
	deleted := paths.Normalize(req.Deleted)

	if len(changed) == 0 && len(deleted) == 0 {
		return nil, nil, &ValidationError{Reason: "no files specified as changed or deleted"}
	}

	if req.Message == "" {
		return nil, nil, &ValidationError{Reason: "no commit message provided"}
	}

	if strings.TrimSpace(req.Owner) == "" || strings.TrimSpace(req.Repo) == "" || strings.TrimSpace(req.Branch) == "" {
		return nil, nil, &ValidationError{Reason: "owner, repo and branch are required"}
	}

	return changed, deleted, nil
}

// BuildInput assembles the createCommitOnBranch input. Empty addition or
// deletion lists are left nil so they are omitted from the request.
func BuildInput(req Request, expectedHeadOID string, additions []gh.FileAddition, deleted []string) gh.CreateCommitInput {
	input := gh.CreateCommitInput{
		Branch: gh.CommittableBranch{
			RepositoryNameWithOwner: gh.RepositoryNameWithOwner(req.Owner, req.Repo),
			BranchName:              req.Branch,
		},
		Message: gh.CommitMessage{
			Headline: req.Message,
			Body:     req.Description,
		},
		ExpectedHeadOID: expectedHeadOID,
	}

	if len(additions) > 0 {
		input.FileChanges.Additions = additions
	}

	if len(deleted) > 0 {
		deletions := make([]gh.FileDeletion, 0, len(deleted))
		for _, p := range deleted {
			deletions = append(deletions, gh.FileDeletion{Path: p})
		}
		input.FileChanges.Deletions = deletions
	}

	return input
}

// Submit validates the request, resolves the branch head, reads the changed
// files and sends a single createCommitOnBranch mutation guarded by the head it
// just resolved. Nothing is retried: a ConflictError means the branch moved and
// the caller has to run again.
func (s *Submitter) Submit(ctx context.Context, req Request) (Result, error) {
	if s.gh == nil {
		return Result{}, fmt.Errorf("github client is required")
	}

	ctx, span := s.tracer.Start(ctx, "commit.Submit", trace.WithAttributes(
		attribute.String("github.owner", req.Owner),
		attribute.String("github.repo", req.Repo),
		attribute.String("github.branch", req.Branch),
		attribute.Bool("commit.dry_run", s.cfg.DryRun),
	))
	defer span.End()

	result, err := s.submit(ctx, req)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "submit failed")
		return Result{}, err
	}
	return result, nil
}

func (s *Submitter) submit(ctx context.Context, req Request) (Result, error) {
	changed, deleted, err := Normalize(req)
	if err != nil {
		return Result{}, err
	}

	if s.log != nil {
		s.log.Info("prepared file changes", "changed", changed, "deleted", deleted)
		if overlap := paths.Overlap(changed, deleted); len(overlap) > 0 {
			s.log.Warn("paths listed as both changed and deleted are sent as-is", "paths", overlap)
		}
	}

	headOID, err := gh.ParentCommitID(ctx, s.gh, req.Owner, req.Repo, req.Branch)
	if err != nil {
		return Result{}, fmt.Errorf("resolve branch %s: %w", req.Branch, err)
	}
	if headOID == "" {
		if s.log != nil {
			s.log.Error("target branch has no head commit", "owner", req.Owner, "repo", req.Repo, "branch", req.Branch)
		}
		return Result{}, &PreconditionError{Owner: req.Owner, Repo: req.Repo, Branch: req.Branch}
	}

	if s.log != nil {
		s.log.Debug("resolved parent commit", "branch", req.Branch, "oid", headOID)
	}

	additions, err := readAdditions(ctx, s.cfg.WorkDir, changed, s.cfg.readConcurrency())
	if err != nil {
		return Result{}, err
	}

	input := BuildInput(req, headOID, additions, deleted)

	result := Result{
		Owner:           req.Owner,
		Repo:            req.Repo,
		Branch:          req.Branch,
		ExpectedHeadOID: headOID,
		Additions:       changed,
		Deletions:       deleted,
	}

	if s.cfg.DryRun {
		if s.log != nil {
			s.log.Info("dry run enabled, skipping commit mutation",
				"repository", input.Branch.RepositoryNameWithOwner,
				"branch", req.Branch,
				"expected_head_oid", headOID,
				"additions", len(changed),
				"deletions", len(deleted))
		}
		result.DryRun = true
		return result, nil
	}

	created, err := s.gh.CreateCommitOnBranch(ctx, input)
	if err != nil {
		return Result{}, fmt.Errorf("create commit on %s: %w", req.Branch, err)
	}

	result.URL = created.URL
	result.OID = created.OID

	if s.log != nil {
		if created.URL == "" {
			s.log.Warn("commit mutation accepted but no commit url was returned", "branch", req.Branch)
		} else {
			s.log.Info("created commit", "branch", req.Branch, "url", created.URL)
		}
	}

	return result, nil
}
