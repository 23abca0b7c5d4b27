package git

import "context"

// Changes lists paths that differ between the working tree and HEAD, relative
// to the repository root.
type Changes struct {
	Changed []string
	Deleted []string
}

// ChangeDetector inspects a local checkout for uncommitted changes. Implementations
// may shell out to git or use a pure Go library.
type ChangeDetector interface {
	DetectChanges(ctx context.Context, dir string) (Changes, error)
}
