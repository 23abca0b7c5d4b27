package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
)

var ciEnvironmentKeys = []string{"GITHUB_ACTIONS", "TRAVIS", "CIRCLECI", "GITLAB_CI", "APPVEYOR"}

// NewLogger constructs a *slog.Logger writing to w (stderr when nil).
// Supported levels: debug, info, warn, error.
// Supported formats: text (default), json.
// Timestamps are omitted on CI runners, which stamp every line themselves.
func NewLogger(level, format string, w io.Writer) (*slog.Logger, error) {
	lvl, err := parseLevel(level)
	if err != nil {
		return nil, err
	}

	if w == nil {
		w = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: lvl}
	if runningInCI() {
		opts.ReplaceAttr = dropTime
	}

	var handler slog.Handler
	switch strings.ToLower(strings.TrimSpace(format)) {
	case "", "text":
		handler = slog.NewTextHandler(w, opts)
	case "json":
		handler = slog.NewJSONHandler(w, opts)
	default:
		return nil, fmt.Errorf("unsupported log format %q", format)
	}

	logger := slog.New(handler)
	return logger.With("component", "commit-on-branch-action"), nil
}

func parseLevel(level string) (*slog.LevelVar, error) {
	var lvl slog.LevelVar

	switch strings.ToLower(strings.TrimSpace(level)) {
	case "debug":
		lvl.Set(slog.LevelDebug)
	case "info", "":
		lvl.Set(slog.LevelInfo)
	case "warn", "warning":
		lvl.Set(slog.LevelWarn)
	case "error":
		lvl.Set(slog.LevelError)
	default:
		return nil, fmt.Errorf("unsupported log level %q", level)
	}

	return &lvl, nil
}

func runningInCI() bool {
	for _, key := range ciEnvironmentKeys {
		if os.Getenv(key) != "" {
			return true
		}
	}
	return false
}

func dropTime(groups []string, a slog.Attr) slog.Attr {
	if len(groups) == 0 && a.Key == slog.TimeKey {
		return slog.Attr{}
	}
	return a
}
