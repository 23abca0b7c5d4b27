package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/rancher/commit-on-branch-action/internal/cli"
)

// Set through -ldflags "-X main.Version=... -X main.GitCommit=... -X main.BuildTime=...".
var (
	Version   = "dev"
	GitCommit = ""
	BuildTime = ""
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)

	err := cli.Execute(ctx, cli.BuildInfo{Version: Version, Commit: GitCommit, Date: BuildTime})
	stop()
	if err != nil {
		os.Exit(1)
	}
}
