package app

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/rancher/commit-on-branch-action/internal/commit"
	gh "github.com/rancher/commit-on-branch-action/internal/github"
)

type outputEntry struct {
	Key   string
	Value string
}

func commitOutputs(result commit.Result) []outputEntry {
	return []outputEntry{
		{Key: "command", Value: "commit"},
		{Key: "commitUrl", Value: result.URL},
		{Key: "commitOid", Value: result.OID},
		{Key: "dryRun", Value: strconv.FormatBool(result.DryRun)},
	}
}

// branchOutputs keeps hasBranch as the "a"/"no" article existing workflows
// compare against; branchExists carries the boolean.
func branchOutputs(result BranchResult) []outputEntry {
	article := "no"
	if result.Exists {
		article = "a"
	}
	return []outputEntry{
		{Key: "command", Value: "branch"},
		{Key: "hasBranch", Value: article},
		{Key: "branchExists", Value: strconv.FormatBool(result.Exists)},
		{Key: "branchHead", Value: result.HeadOID},
	}
}

func (r *Runner) writeGitHubOutputs(entries []outputEntry) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_OUTPUT"))
	if path == "" {
		return nil
	}

	file, err := r.openForAppend(path)
	if err != nil {
		return fmt.Errorf("open github output: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && r.log != nil {
			r.log.Warn("failed to close github output file", "error", closeErr)
		}
	}()

	for _, entry := range entries {
		if err := writeOutput(file, entry.Key, entry.Value); err != nil {
			return err
		}
	}

	return nil
}

func (r *Runner) writeStepSummary(markdown string) error {
	path := strings.TrimSpace(os.Getenv("GITHUB_STEP_SUMMARY"))
	if path == "" {
		return nil
	}

	file, err := r.openForAppend(path)
	if err != nil {
		return fmt.Errorf("open step summary: %w", err)
	}
	defer func() {
		if closeErr := file.Close(); closeErr != nil && r.log != nil {
			r.log.Warn("failed to close step summary file", "error", closeErr)
		}
	}()

	if !strings.HasSuffix(markdown, "\n") {
		markdown += "\n"
	}

	if _, err := file.WriteString(markdown); err != nil {
		return fmt.Errorf("write step summary: %w", err)
	}

	return nil
}

// openForAppend opens an action file, creating its directory when the runner
// has not already done so.
func (r *Runner) openForAppend(path string) (*os.File, error) {
	dir := filepath.Dir(path)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if mkErr := os.MkdirAll(dir, 0o755); mkErr != nil && r.log != nil {
			r.log.Warn("could not create directory for action file", "dir", dir, "error", mkErr)
		}
	}

	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
}

// writeOutput appends one key to a GITHUB_OUTPUT file. Multi-line values use
// the heredoc form with a random delimiter that cannot collide with the value.
func writeOutput(w io.Writer, key, value string) error {
	if !strings.ContainsAny(value, "\r\n") {
		if _, err := fmt.Fprintf(w, "%s=%s\n", key, value); err != nil {
			return fmt.Errorf("write output %s: %w", key, err)
		}
		return nil
	}

	delimiter := "ghadelimiter_" + uuid.NewString()
	for strings.Contains(value, delimiter) {
		delimiter = "ghadelimiter_" + uuid.NewString()
	}

	if _, err := fmt.Fprintf(w, "%s<<%s\n%s\n%s\n", key, delimiter, value, delimiter); err != nil {
		return fmt.Errorf("write output %s: %w", key, err)
	}
	return nil
}

func renderCommitSummary(result commit.Result) string {
	var builder strings.Builder
	builder.WriteString("## Commit on branch summary\n\n")

	commitCell := "-"
	switch {
	case result.DryRun:
		commitCell = "dry run, not created"
	case result.URL != "":
		commitCell = fmt.Sprintf("[%s](%s)", gh.ShortOID(result.OID), result.URL)
		if result.OID == "" {
			commitCell = fmt.Sprintf("[commit](%s)", result.URL)
		}
	case result.OID != "":
		commitCell = gh.ShortOID(result.OID)
	}

	builder.WriteString("| Repository | Branch | Parent | Commit |\n")
	builder.WriteString("| --- | --- | --- | --- |\n")
	builder.WriteString(fmt.Sprintf("| %s | %s | %s | %s |\n\n",
		sanitizeMarkdownCell(gh.RepositoryNameWithOwner(result.Owner, result.Repo)),
		sanitizeMarkdownCell(result.Branch),
		sanitizeMarkdownCell(gh.ShortOID(result.ExpectedHeadOID)),
		sanitizeMarkdownCell(commitCell),
	))

	if len(result.Additions) == 0 && len(result.Deletions) == 0 {
		builder.WriteString("No file changes.\n")
		return builder.String()
	}

	builder.WriteString("| Path | Change |\n")
	builder.WriteString("| --- | --- |\n")
	for _, p := range result.Additions {
		builder.WriteString(fmt.Sprintf("| %s | added or modified |\n", sanitizeMarkdownCell(p)))
	}
	for _, p := range result.Deletions {
		builder.WriteString(fmt.Sprintf("| %s | deleted |\n", sanitizeMarkdownCell(p)))
	}

	return builder.String()
}

func renderBranchSummary(result BranchResult) string {
	repository := gh.RepositoryNameWithOwner(result.Owner, result.Repo)
	if !result.Exists {
		return fmt.Sprintf("## Branch check\n\nRepository `%s` has no branch named `%s`.\n", repository, result.Branch)
	}
	return fmt.Sprintf("## Branch check\n\nRepository `%s` has a branch named `%s` at `%s`.\n", repository, result.Branch, gh.ShortOID(result.HeadOID))
}

func sanitizeMarkdownCell(value string) string {
	value = strings.ReplaceAll(value, "|", "\\|")
	value = strings.ReplaceAll(value, "\n", "<br>")
	value = strings.TrimSpace(value)
	if value == "" {
		return "-"
	}
	return value
}
