package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rancher/commit-on-branch-action/internal/app"
	"github.com/rancher/commit-on-branch-action/internal/git"
	gh "github.com/rancher/commit-on-branch-action/internal/github"
	"github.com/rancher/commit-on-branch-action/internal/telemetry"
)

// BuildInfo is injected at link time.
type BuildInfo struct {
	Version string
	Commit  string
	Date    string
}

// Deps overrides the collaborators a command builds. Zero values select the
// real GraphQL client and git detector.
type Deps struct {
	Factory   func(cfg app.Config) gh.Factory
	Detector  git.ChangeDetector
	LogOutput io.Writer
}

type rootOptions struct {
	logLevel   string
	logFormat  string
	verbose    bool
	graphQLURL string
}

const (
	outputText = "text"
	outputJSON = "json"
)

// Execute loads .env, starts tracing and runs the command tree.
func Execute(ctx context.Context, info BuildInfo) error {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		fmt.Fprintf(os.Stderr, "warning: could not load .env: %v\n", err)
	}

	provider, err := telemetry.Setup(ctx, telemetry.ConfigFromEnv(info.Version))
	if err != nil {
		fmt.Fprintf(os.Stderr, "warning: tracing disabled: %v\n", err)
		provider = nil
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := provider.Shutdown(shutdownCtx); err != nil {
			fmt.Fprintf(os.Stderr, "warning: %v\n", err)
		}
	}()

	return Run(ctx, NewRootCommand(info, Deps{}))
}

// Run executes the command tree and prints any error a command did not report
// itself, such as an unknown flag or subcommand.
func Run(ctx context.Context, root *cobra.Command) error {
	err := root.ExecuteContext(ctx)
	if err == nil {
		return nil
	}

	var reported *reportedError
	if !errors.As(err, &reported) {
		fmt.Fprintf(root.ErrOrStderr(), "Error: %v\nRun '%s --help' for usage.\n", err, root.Name())
	}
	return err
}

// reportedError wraps an error a command has already printed.
type reportedError struct {
	err error
}

func (e *reportedError) Error() string {
	return e.err.Error()
}

func (e *reportedError) Unwrap() error {
	return e.err
}

// NewRootCommand builds the command tree.
func NewRootCommand(info BuildInfo, deps Deps) *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "commit-on-branch",
		Short: "Create commits on existing GitHub branches through the GraphQL API",
		Long: `commit-on-branch creates a commit on an existing branch from local file
additions and deletions using GitHub's createCommitOnBranch mutation, so the
commit is signed by GitHub and no local git history is needed. It can also
check whether a branch exists.`,
		Version:       info.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "", "Log level: debug, info, warn or error (env INPUT_LOG_LEVEL)")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "", "Log format: text or json (env INPUT_LOG_FORMAT)")
	root.PersistentFlags().BoolVar(&opts.verbose, "verbose", false, "Shortcut for --log-level=debug (env INPUT_VERBOSE or DEBUG=true)")
	root.PersistentFlags().StringVar(&opts.graphQLURL, "graphql-url", "", "GitHub GraphQL endpoint (env INPUT_GRAPHQL_URL or GITHUB_GRAPHQL_URL)")

	root.AddCommand(
		newCommitCommand(opts, deps),
		newBranchCommand(opts, deps),
		newVersionCommand(info),
	)

	return root
}

// loadConfig reads the environment and lets explicitly set flags win.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (app.Config, error) {
	cfg, err := app.LoadConfig()
	if err != nil {
		return app.Config{}, err
	}

	flags := cmd.Flags()
	if flags.Changed("log-level") {
		cfg.LogLevel = strings.ToLower(strings.TrimSpace(opts.logLevel))
	}
	if flags.Changed("log-format") {
		cfg.LogFormat = strings.ToLower(strings.TrimSpace(opts.logFormat))
	}
	if flags.Changed("verbose") {
		cfg.Verbose = opts.verbose
	}
	if flags.Changed("graphql-url") {
		endpoint, err := gh.NormalizeGraphQLURL(opts.graphQLURL)
		if err != nil {
			return app.Config{}, fmt.Errorf("parse --graphql-url: %w", err)
		}
		cfg.GraphQLURL = endpoint
	}

	return cfg, nil
}

func newRunner(cmd *cobra.Command, cfg app.Config, deps Deps) (*app.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	if deps.Factory == nil && deps.Detector == nil && deps.LogOutput == nil {
		return app.NewRunner(cfg)
	}

	logOutput := deps.LogOutput
	if logOutput == nil {
		logOutput = cmd.ErrOrStderr()
	}

	logger, err := app.NewLogger(cfg.EffectiveLogLevel(), cfg.LogFormat, logOutput)
	if err != nil {
		return nil, fmt.Errorf("create logger: %w", err)
	}

	factory := gh.NewGraphQLFactory(cfg.GraphQLURL)
	if deps.Factory != nil {
		factory = deps.Factory(cfg)
	}

	var detector git.ChangeDetector = git.NewShellDetector()
	if deps.Detector != nil {
		detector = deps.Detector
	}

	return app.NewRunnerWithDeps(cfg, logger, factory, detector), nil
}

func validateOutputFormat(format string) error {
	switch format {
	case outputText, outputJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want text or json)", format)
	}
}
