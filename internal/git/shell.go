package git

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"
	"time"
)

// ShellDetector shells out to the system git binary to list working tree changes.
type ShellDetector struct {
	// Git is the git binary to execute. Defaults to "git" when empty.
	Git string

	// Timeout bounds each git invocation when the context has no deadline. When
	// zero, a default of 30 seconds is used.
	Timeout time.Duration
}

// NewShellDetector returns a ChangeDetector backed by system git commands.
func NewShellDetector() *ShellDetector {
	return &ShellDetector{}
}

func (d *ShellDetector) gitBinary() string {
	if d.Git == "" {
		return "git"
	}
	return d.Git
}

func (d *ShellDetector) timeoutValue() time.Duration {
	if d.Timeout <= 0 {
		return 30 * time.Second
	}
	return d.Timeout
}

// DetectChanges runs git status in dir, which must be the top level of a
// working tree since status reports paths relative to the repository root.
// Modified, added, renamed-to and untracked files are reported as changed;
// removed files as deleted. Files added to the index and then removed from
// the working tree exist nowhere and are skipped.
func (d *ShellDetector) DetectChanges(ctx context.Context, dir string) (Changes, error) {
	if dir == "" {
		dir = "."
	}

	prefix, err := d.captureGit(ctx, "-C", dir, "rev-parse", "--show-prefix")
	if err != nil {
		return Changes{}, fmt.Errorf("git rev-parse: %w", err)
	}
	if strings.TrimSpace(prefix) != "" {
		return Changes{}, fmt.Errorf("change detection must run from the repository root, %s is inside %q", dir, strings.TrimSpace(prefix))
	}

	out, err := d.captureGit(ctx, "-C", dir, "status", "--porcelain=v1", "-z", "--untracked-files=all", "--no-renames")
	if err != nil {
		return Changes{}, fmt.Errorf("git status: %w", err)
	}

	return parsePorcelain(out)
}

// parsePorcelain decodes NUL-terminated `git status --porcelain=v1 -z
// --no-renames` output.
func parsePorcelain(out string) (Changes, error) {
	var changes Changes

	for _, entry := range strings.Split(out, "\x00") {
		if entry == "" {
			continue
		}
		if len(entry) < 4 || entry[2] != ' ' {
			return Changes{}, fmt.Errorf("unexpected git status entry %q", entry)
		}

		x, y, path := entry[0], entry[1], entry[3:]

		switch {
		case x == 'U' || y == 'U' || (x == 'A' && y == 'A') || (x == 'D' && y == 'D'):
			return Changes{}, fmt.Errorf("unmerged path %s", path)
		case x == '!' && y == '!':
			continue
		case x == 'A' && y == 'D':
			continue
		case x == 'D' || y == 'D':
			changes.Deleted = append(changes.Deleted, path)
		default:
			changes.Changed = append(changes.Changed, path)
		}
	}

	return changes, nil
}

func (d *ShellDetector) captureGit(ctx context.Context, args ...string) (string, error) {
	if deadline, ok := ctx.Deadline(); !ok || deadline.IsZero() {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeoutValue())
		defer cancel()
	}

	cmd := exec.CommandContext(ctx, d.gitBinary(), args...)
	setProcessGroup(cmd)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Start(); err != nil {
		return "", &GitError{Args: args, Output: stderr.String(), Err: err}
	}

	done := make(chan error, 1)
	go func() {
		done <- cmd.Wait()
	}()

	select {
	case <-ctx.Done():
		terminateProcessGroup(cmd)
		<-done
		return "", ctx.Err()
	case err := <-done:
		if err != nil {
			if ctxErr := ctx.Err(); ctxErr != nil {
				return "", ctxErr
			}
			return "", &GitError{Args: args, Output: stderr.String(), Err: err}
		}
	}

	return stdout.String(), nil
}

// GitError wraps failures when invoking the git binary.
type GitError struct {
	Args   []string
	Output string
	Err    error
}

func (e *GitError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("git %s: %v\n%s", strings.Join(e.Args, " "), e.Err, e.Output)
}

func (e *GitError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsNotRepository reports whether err came from running git outside a work tree.
func IsNotRepository(err error) bool {
	var gitErr *GitError
	if !errors.As(err, &gitErr) {
		return false
	}
	return strings.Contains(strings.ToLower(gitErr.Output), "not a git repository")
}
