package commit

// Config captures the runtime controls the submitter needs.
type Config struct {
	// WorkDir is the directory changed paths are read relative to. Paths sent to
	// GitHub are always the paths as given. Defaults to the current directory.
	WorkDir string

	// DryRun resolves the branch and builds the full payload but skips the mutation.
	DryRun bool

	// ReadConcurrency bounds how many files are read at once. Defaults to 4.
	ReadConcurrency int
}

const defaultReadConcurrency = 4

func (c Config) readConcurrency() int {
	if c.ReadConcurrency <= 0 {
		return defaultReadConcurrency
	}
	return c.ReadConcurrency
}
