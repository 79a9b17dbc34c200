package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/Chifiwang/obsidian-git-integration/internal/config"
)

// Version information - injected at build time
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	versionInfo := config.VersionInfo{
		Version: version,
		Commit:  commit,
		Date:    date,
	}

	app := NewDefaultApp(versionInfo)

	// SIGHUP too, so closing the terminal still flushes the vault
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	code := app.Execute(ctx, os.Args[1:])
	stop()
	os.Exit(code)
}
