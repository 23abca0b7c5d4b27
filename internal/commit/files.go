package commit

import (
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"sync"

	gh "github.com/rancher/commit-on-branch-action/internal/github"
)

// readAdditions reads and base64-encodes every changed path. Reads run on at most
// concurrency goroutines; the result keeps the order of changed. The first
// failing path (in input order) aborts the whole set.
func readAdditions(ctx context.Context, workDir string, changed []string, concurrency int) ([]gh.FileAddition, error) {
	additions := make([]gh.FileAddition, len(changed))
	errs := make([]error, len(changed))

	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, path := range changed {
		wg.Add(1)
		go func(i int, path string) {
			defer wg.Done()

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				errs[i] = ctx.Err()
				return
			}
			defer func() { <-sem }()

			data, err := os.ReadFile(localPath(workDir, path))
			if err != nil {
				errs[i] = &IOError{Path: path, Err: err}
				return
			}

			additions[i] = gh.FileAddition{
				Path:     path,
				Contents: base64.StdEncoding.EncodeToString(data),
			}
		}(i, path)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return nil, err
		}
	}

	return additions, nil
}

func localPath(workDir, path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	if workDir == "" {
		workDir = "."
	}
	return filepath.Join(workDir, filepath.FromSlash(path))
}
