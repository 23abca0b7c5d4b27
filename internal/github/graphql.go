package gh

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strings"

	github "github.com/google/go-github/v55/github"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/oauth2"
)

const (
	defaultUserAgent = "rancher-commit-on-branch-action"

	// DefaultGraphQLURL is the public GitHub GraphQL endpoint.
	DefaultGraphQLURL = "https://api.github.com/graphql"

	tracerName = "github.com/rancher/commit-on-branch-action/internal/github"
)

const resolveBranchQuery = `query($owner: String!, $repo: String!, $branch: String!) {
  repository(owner: $owner, name: $repo) {
    ref(qualifiedName: $branch) {
      name
      target {
        oid
      }
    }
  }
}`

const createCommitMutation = `mutation($input: CreateCommitOnBranchInput!) {
  createCommitOnBranch(input: $input) {
    commit {
      url
      oid
    }
  }
}`

// NewGraphQLFactory returns a client factory that talks to the GitHub GraphQL API
// at endpoint using the go-github transport. An empty endpoint targets
// DefaultGraphQLURL.
func NewGraphQLFactory(endpoint string) Factory {
	return &graphQLFactory{
		userAgent: defaultUserAgent,
		endpoint:  strings.TrimSpace(endpoint),
	}
}

type graphQLFactory struct {
	userAgent string
	endpoint  string
}

type graphQLClient struct {
	client   *github.Client
	endpoint string
	tracer   trace.Tracer
}

func (f *graphQLFactory) New(ctx context.Context, token string) (Client, error) {
	if token == "" {
		return nil, fmt.Errorf("github token is required")
	}

	endpoint := f.endpoint
	if endpoint == "" {
		endpoint = DefaultGraphQLURL
	}

	normalized, err := NormalizeGraphQLURL(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse github graphql url: %w", err)
	}

	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	tc := oauth2.NewClient(ctx, ts)

	ghClient := github.NewClient(tc)
	if f.userAgent != "" {
		ghClient.UserAgent = f.userAgent
	}

	return &graphQLClient{
		client:   ghClient,
		endpoint: normalized,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

// NormalizeGraphQLURL validates a GraphQL endpoint URL. A bare host such as
// https://github.example.com is expanded to its /api/graphql endpoint.
func NormalizeGraphQLURL(raw string) (string, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", fmt.Errorf("url cannot be empty")
	}

	parsed, err := url.Parse(raw)
	if err != nil {
		return "", err
	}

	if parsed.Scheme == "" {
		return "", fmt.Errorf("url must include scheme (e.g. https://)")
	}

	if parsed.Host == "" {
		return "", fmt.Errorf("url must include host")
	}

	if parsed.Path == "" || parsed.Path == "/" {
		if strings.EqualFold(parsed.Host, "api.github.com") {
			parsed.Path = "/graphql"
		} else {
			parsed.Path = "/api/graphql"
		}
	}
	parsed.Path = strings.TrimRight(parsed.Path, "/")

	parsed.RawQuery = ""
	parsed.Fragment = ""

	return parsed.String(), nil
}

type graphQLRequest struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors GraphQLErrors   `json:"errors,omitempty"`
}

type resolveBranchData struct {
	Repository *struct {
		Ref *struct {
			Name   string `json:"name"`
			Target *struct {
				OID string `json:"oid"`
			} `json:"target"`
		} `json:"ref"`
	} `json:"repository"`
}

type createCommitData struct {
	CreateCommitOnBranch *struct {
		Commit *struct {
			URL string `json:"url"`
			OID string `json:"oid"`
		} `json:"commit"`
	} `json:"createCommitOnBranch"`
}

func (c *graphQLClient) ResolveBranch(ctx context.Context, owner, repo, branch string) (BranchRef, error) {
	ctx, span := c.tracer.Start(ctx, "github.ResolveBranch", trace.WithAttributes(
		attribute.String("github.owner", owner),
		attribute.String("github.repo", repo),
		attribute.String("github.branch", branch),
	))
	defer span.End()

	var data resolveBranchData
	resp, err := c.execute(ctx, resolveBranchQuery, map[string]any{
		"owner":  owner,
		"repo":   repo,
		"branch": branch,
	}, &data)
	if err == nil && len(resp.Errors) > 0 {
		err = resp.Errors
	}
	if err != nil {
		err = &TransportError{Op: "resolve branch", Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "resolve branch failed")
		return BranchRef{}, err
	}

	if data.Repository == nil {
		err := &TransportError{Op: "resolve branch", Err: fmt.Errorf("repository %s not returned by api", RepositoryNameWithOwner(owner, repo))}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository missing")
		return BranchRef{}, err
	}

	ref := BranchRef{Name: branch}
	if data.Repository.Ref != nil {
		if data.Repository.Ref.Name != "" {
			ref.Name = data.Repository.Ref.Name
		}
		if target := data.Repository.Ref.Target; target != nil {
			ref.HeadOID = target.OID
		}
	}

	span.SetAttributes(attribute.Bool("github.branch.exists", ref.Exists()))
	return ref, nil
}

func (c *graphQLClient) CreateCommitOnBranch(ctx context.Context, input CreateCommitInput) (CreatedCommit, error) {
	ctx, span := c.tracer.Start(ctx, "github.CreateCommitOnBranch", trace.WithAttributes(
		attribute.String("github.repository", input.Branch.RepositoryNameWithOwner),
		attribute.String("github.branch", input.Branch.BranchName),
		attribute.String("github.expected_head_oid", input.ExpectedHeadOID),
		attribute.Int("github.additions", len(input.FileChanges.Additions)),
		attribute.Int("github.deletions", len(input.FileChanges.Deletions)),
	))
	defer span.End()

	var data createCommitData
	resp, err := c.execute(ctx, createCommitMutation, map[string]any{"input": input}, &data)
	if err == nil && len(resp.Errors) > 0 {
		if isStaleHead(resp.Errors) {
			err := &ConflictError{
				Branch:          input.Branch.BranchName,
				ExpectedHeadOID: input.ExpectedHeadOID,
				Message:         resp.Errors.Error(),
			}
			span.RecordError(err)
			span.SetStatus(codes.Error, "stale head")
			return CreatedCommit{}, err
		}
		err = resp.Errors
	}
	if err != nil {
		err = &TransportError{Op: "create commit", Err: err}
		span.RecordError(err)
		span.SetStatus(codes.Error, "create commit failed")
		return CreatedCommit{}, err
	}

	var created CreatedCommit
	if payload := data.CreateCommitOnBranch; payload != nil && payload.Commit != nil {
		created.URL = payload.Commit.URL
		created.OID = payload.Commit.OID
	}

	span.SetAttributes(attribute.String("github.commit_oid", created.OID))
	return created, nil
}

// execute posts a GraphQL document and decodes its data member into out. The
// returned response carries any GraphQL-level errors for the caller to classify.
func (c *graphQLClient) execute(ctx context.Context, query string, variables map[string]any, out any) (graphQLResponse, error) {
	req, err := c.client.NewRequest(http.MethodPost, c.endpoint, graphQLRequest{Query: query, Variables: variables})
	if err != nil {
		return graphQLResponse{}, fmt.Errorf("build graphql request: %w", err)
	}

	var resp graphQLResponse
	if _, err := c.client.Do(ctx, req, &resp); err != nil {
		return graphQLResponse{}, classifyGitHubError(err)
	}

	if len(resp.Data) > 0 && string(resp.Data) != "null" && out != nil {
		if err := json.Unmarshal(resp.Data, out); err != nil {
			return resp, fmt.Errorf("decode graphql data: %w", err)
		}
	} else if len(resp.Errors) == 0 {
		return resp, fmt.Errorf("graphql response contained neither data nor errors")
	}

	return resp, nil
}

// isStaleHead reports whether the API rejected a commit because the branch no
// longer points at expectedHeadOid.
func isStaleHead(errs GraphQLErrors) bool {
	for _, e := range errs {
		if strings.EqualFold(e.Type, "STALE_DATA") {
			return true
		}
		msg := strings.ToLower(e.Message)
		if strings.Contains(msg, "expected branch to point to") {
			return true
		}
	}
	return false
}

func classifyGitHubError(err error) error {
	if err == nil {
		return nil
	}
	if isRetryableGitHubError(err) {
		return &retryableError{err: err}
	}
	return err
}

func isRetryableGitHubError(err error) bool {
	if err == nil {
		return false
	}

	var rateLimitErr *github.RateLimitError
	if errors.As(err, &rateLimitErr) {
		return true
	}

	var abuseErr *github.AbuseRateLimitError
	if errors.As(err, &abuseErr) {
		return true
	}

	var respErr *github.ErrorResponse
	if errors.As(err, &respErr) {
		if respErr.Response != nil {
			code := respErr.Response.StatusCode
			if code == http.StatusTooManyRequests || (code >= 500 && code <= 599) {
				return true
			}
		}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return true
		}
	}

	return false
}
