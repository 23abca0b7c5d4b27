package gh

import (
	"fmt"
	"regexp"
	"strings"
)

var (
	repoSegment = regexp.MustCompile(`^[A-Za-z0-9._-]+$`)
	commitOID   = regexp.MustCompile(`^[0-9a-f]{40}$`)
)

// RepositoryNameWithOwner joins owner and repository into the "owner/repo" form
// expected by CommittableBranch.
func RepositoryNameWithOwner(owner, repo string) string {
	return fmt.Sprintf("%s/%s", strings.TrimSpace(owner), strings.TrimSpace(repo))
}

// ParseRepository splits an "owner/repo" string such as GITHUB_REPOSITORY.
func ParseRepository(nameWithOwner string) (string, string, error) {
	nameWithOwner = strings.TrimSpace(nameWithOwner)
	nameWithOwner = strings.TrimSuffix(nameWithOwner, ".git")

	parts := strings.Split(nameWithOwner, "/")
	if len(parts) != 2 {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", nameWithOwner)
	}

	owner, repo := strings.TrimSpace(parts[0]), strings.TrimSpace(parts[1])
	if !repoSegment.MatchString(owner) || !repoSegment.MatchString(repo) {
		return "", "", fmt.Errorf("invalid repository %q, expected owner/repo", nameWithOwner)
	}

	return owner, repo, nil
}

// IsCommitOID reports whether s looks like a full hexadecimal SHA-1 commit id.
func IsCommitOID(s string) bool {
	return commitOID.MatchString(s)
}

// ShortOID abbreviates a commit id for log and summary output.
func ShortOID(oid string) string {
	if len(oid) <= 7 {
		return oid
	}
	return oid[:7]
}
