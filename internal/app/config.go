package app

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	gh "github.com/rancher/commit-on-branch-action/internal/github"
)

const (
	defaultLogLevel  = "info"
	defaultLogFormat = "text"
	defaultWorkDir   = "."
)

// Config captures runtime options sourced from GitHub Action inputs or environment variables.
type Config struct {
	GitHubToken string
	GraphQLURL  string

	// DefaultOwner and DefaultRepo come from GITHUB_REPOSITORY and fill in
	// coordinates the caller left empty.
	DefaultOwner string
	DefaultRepo  string

	WorkDir   string
	DryRun    bool
	Verbose   bool
	LogLevel  string
	LogFormat string
}

// LoadConfig reads action inputs from the environment, applies defaults, and performs validation.
// A missing token is not an error here; it is reported when a client is built so that
// commands which never reach GitHub keep working without one.
func LoadConfig() (Config, error) {
	cfg := Config{
		LogLevel:  strings.ToLower(strings.TrimSpace(envOrDefault("INPUT_LOG_LEVEL", defaultLogLevel))),
		LogFormat: strings.ToLower(strings.TrimSpace(envOrDefault("INPUT_LOG_FORMAT", defaultLogFormat))),
		WorkDir:   envOrDefault("INPUT_WORKDIR", defaultWorkDir),
	}

	cfg.GitHubToken = firstEnv("INPUT_GITHUB_TOKEN", "GITHUB_TOKEN")

	rawURL := firstEnv("INPUT_GRAPHQL_URL", "GITHUB_GRAPHQL_URL")
	if rawURL == "" {
		rawURL = gh.DefaultGraphQLURL
	}
	endpoint, err := gh.NormalizeGraphQLURL(rawURL)
	if err != nil {
		return Config{}, fmt.Errorf("parse graphql url: %w", err)
	}
	cfg.GraphQLURL = endpoint

	if repository := strings.TrimSpace(os.Getenv("GITHUB_REPOSITORY")); repository != "" {
		owner, repo, err := gh.ParseRepository(repository)
		if err != nil {
			return Config{}, fmt.Errorf("parse GITHUB_REPOSITORY: %w", err)
		}
		cfg.DefaultOwner, cfg.DefaultRepo = owner, repo
	}

	if rawDryRun := strings.TrimSpace(os.Getenv("INPUT_DRY_RUN")); rawDryRun != "" {
		dryRun, err := strconv.ParseBool(rawDryRun)
		if err != nil {
			return Config{}, fmt.Errorf("parse INPUT_DRY_RUN: %w", err)
		}
		cfg.DryRun = dryRun
	}

	if rawVerbose := strings.TrimSpace(os.Getenv("INPUT_VERBOSE")); rawVerbose != "" {
		verbose, err := strconv.ParseBool(rawVerbose)
		if err != nil {
			return Config{}, fmt.Errorf("parse INPUT_VERBOSE: %w", err)
		}
		cfg.Verbose = verbose
	}

	// DEBUG is shared with other tooling, so only the exact value "true" counts.
	if strings.TrimSpace(os.Getenv("DEBUG")) == "true" {
		cfg.Verbose = true
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

// Validate checks option values and fills in defaults. Call it again after
// command-line flags have been merged in.
func (c *Config) Validate() error {
	if c.LogLevel == "" {
		c.LogLevel = defaultLogLevel
	}

	if c.LogFormat == "" {
		c.LogFormat = defaultLogFormat
	}

	if c.WorkDir == "" {
		c.WorkDir = defaultWorkDir
	}

	if _, err := parseLevel(c.LogLevel); err != nil {
		return err
	}

	supportedFormats := map[string]struct{}{"text": {}, "json": {}}
	if _, ok := supportedFormats[c.LogFormat]; !ok {
		return fmt.Errorf("unsupported log format %q", c.LogFormat)
	}

	return nil
}

// EffectiveLogLevel is the level loggers are built with. Verbose forces debug
// regardless of LogLevel.
func (c Config) EffectiveLogLevel() string {
	if c.Verbose {
		return "debug"
	}
	return c.LogLevel
}

func envOrDefault(key, fallback string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return fallback
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			return v
		}
	}
	return ""
}
