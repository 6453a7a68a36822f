/*
Package main is the entry point for the open-pet-platform CLI.

open-pet-platform enriches adoptable-pet listings with heuristic tags and,
within a daily budget, AI-written bios and image analysis. It also offers
free-text search, attribute similarity and per-user preference ranking.

Usage:
  open-pet-platform [command]

Examples:
  # Write a starter config
  open-pet-platform config init --items-file ./listings.json

  # Enrich one listing
  open-pet-platform enrich sl-1234

  # Heuristic pass over every listing, then AI bios within half the budget
  open-pet-platform batch
  open-pet-platform batch --ai --threshold 0.5
*/
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/moisesjgomez/open-pet-platform/internal/cli"
	"github.com/moisesjgomez/open-pet-platform/internal/version"
)

// Version information (set via ldflags during build)
var (
	buildVersion = "dev"
	commit       = "none"
	date         = "unknown"
)

func main() {
	version.Version, version.Commit, version.Date = buildVersion, commit, date

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd := cli.NewRootCmd(version.GetVersion())
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		stop()
		os.Exit(1)
	}
}
