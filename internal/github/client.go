package gh

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// BranchRef is the result of resolving a branch name. An empty HeadOID means the
// branch does not exist; that is a normal outcome, not an error.
type BranchRef struct {
	Name    string
	HeadOID string
}

// Exists reports whether the branch resolved to a head commit.
func (b BranchRef) Exists() bool {
	return b.HeadOID != ""
}

// CommittableBranch identifies the branch a commit is created on.
type CommittableBranch struct {
	RepositoryNameWithOwner string `json:"repositoryNameWithOwner"`
	BranchName              string `json:"branchName"`
}

// CommitMessage holds the commit headline and optional body.
type CommitMessage struct {
	Headline string `json:"headline"`
	Body     string `json:"body,omitempty"`
}

// FileAddition is a new or modified file. Contents must be base64 encoded.
type FileAddition struct {
	Path     string `json:"path"`
	Contents string `json:"contents"`
}

// FileDeletion is a tracked file removed by the commit.
type FileDeletion struct {
	Path string `json:"path"`
}

// FileChanges groups additions and deletions. Empty lists are omitted from the
// request entirely.
type FileChanges struct {
	Additions []FileAddition `json:"additions,omitempty"`
	Deletions []FileDeletion `json:"deletions,omitempty"`
}

// CreateCommitInput mirrors the CreateCommitOnBranchInput GraphQL input object.
type CreateCommitInput struct {
	Branch          CommittableBranch `json:"branch"`
	Message         CommitMessage     `json:"message"`
	FileChanges     FileChanges       `json:"fileChanges"`
	ExpectedHeadOID string            `json:"expectedHeadOid"`
}

// CreatedCommit describes the commit returned by the mutation. URL may be empty
// when the service accepted the mutation but returned no commit reference.
type CreatedCommit struct {
	URL string
	OID string
}

// Client exposes the GitHub operations needed to resolve branches and create commits.
type Client interface {
	ResolveBranch(ctx context.Context, owner, repo, branch string) (BranchRef, error)
	CreateCommitOnBranch(ctx context.Context, input CreateCommitInput) (CreatedCommit, error)
}

// Factory builds concrete GitHub clients for the runner.
type Factory interface {
	New(ctx context.Context, token string) (Client, error)
}

// ParentCommitID resolves the branch and returns its head commit id, or an empty
// string when the branch does not exist.
func ParentCommitID(ctx context.Context, client Client, owner, repo, branch string) (string, error) {
	ref, err := client.ResolveBranch(ctx, owner, repo, branch)
	if err != nil {
		return "", err
	}
	return ref.HeadOID, nil
}

// GraphQLError is a single entry of a GraphQL "errors" array.
type GraphQLError struct {
	Type    string `json:"type,omitempty"`
	Message string `json:"message"`
	Path    []any  `json:"path,omitempty"`
}

// GraphQLErrors is the list of errors reported by the GraphQL API.
type GraphQLErrors []GraphQLError

func (e GraphQLErrors) Error() string {
	msgs := make([]string, 0, len(e))
	for _, entry := range e {
		if entry.Type != "" {
			msgs = append(msgs, fmt.Sprintf("%s: %s", entry.Type, entry.Message))
			continue
		}
		msgs = append(msgs, entry.Message)
	}
	return strings.Join(msgs, "; ")
}

// TransportError reports that the GitHub API could not be reached or returned
// a response that could not be used. It never means "branch not found".
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	if e == nil || e.Err == nil {
		return ""
	}
	return fmt.Sprintf("github %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// ConflictError reports that the branch moved past the expected head commit
// between resolution and the mutation. The whole commit was rejected.
type ConflictError struct {
	Branch          string
	ExpectedHeadOID string
	Message         string
}

func (e *ConflictError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("branch %s moved past expected head %s: %s", e.Branch, e.ExpectedHeadOID, e.Message)
}

// IsTransport reports whether err is a TransportError.
func IsTransport(err error) bool {
	var target *TransportError
	return errors.As(err, &target)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var target *ConflictError
	return errors.As(err, &target)
}

// retryableError marks an error that may succeed if the operation is retried.
type retryableError struct {
	err error
}

func (e *retryableError) Error() string {
	if e == nil || e.err == nil {
		return ""
	}
	return e.err.Error()
}

func (e *retryableError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.err
}

// IsRetryable reports whether the supplied error resulted from a transient GitHub
// API failure (a network timeout, a 5xx or a rate-limited request). Nothing in
// this module retries; the flag is surfaced so callers can decide to re-run.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	var target *retryableError
	return errors.As(err, &target)
}
