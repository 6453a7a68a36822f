package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/config"
	"github.com/moisesjgomez/open-pet-platform/internal/logging"
)

// Globals holds the persistent flags shared by every command.
type Globals struct {
	ConfigPath string
	LogLevel   string
}

// load reads and validates configuration, then applies logging settings.
func (g *Globals) load() (*config.Config, error) {
	cfg, err := config.Load(g.ConfigPath)
	if err != nil {
		return nil, err
	}
	if g.LogLevel != "" {
		cfg.Logging.Level = g.LogLevel
	}
	logging.Init(logging.Config{Level: cfg.Logging.Level, Format: cfg.Logging.Format})
	return cfg, nil
}

// withApp loads configuration, wires an app and runs fn with it.
func (g *Globals) withApp(ctx context.Context, fn func(ctx context.Context, a *app) error) error {
	cfg, err := g.load()
	if err != nil {
		return err
	}
	a, err := openApp(cfg)
	if err != nil {
		return err
	}
	defer a.Close()
	return fn(ctx, a)
}

// NewRootCmd builds the command tree.
func NewRootCmd(versionString string) *cobra.Command {
	g := &Globals{}

	root := &cobra.Command{
		Use:   "open-pet-platform",
		Short: "Enrich, search and rank adoptable pet listings",
		Long: `open-pet-platform turns raw shelter listings into enriched, searchable
records. Enrichment is tiered: free heuristics always run, AI-written bios and
image analysis run only when the budget governor allows a paid call.

Results are cached by content fingerprint, so identical listings across
shelters are enriched once.`,
		Version:       versionString,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", fmt.Sprintf("Config file (default $%s or ~/.open-pet-platform/config.yaml)", config.ConfigPathEnvVar))
	root.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Override logging.level (trace, debug, info, warn, error)")

	root.AddCommand(NewEnrichCmd(g))
	root.AddCommand(NewBatchCmd(g))
	root.AddCommand(NewListCmd(g))
	root.AddCommand(NewSimilarCmd(g))
	root.AddCommand(NewSearchCmd(g))
	root.AddCommand(NewSwipeCmd(g))
	root.AddCommand(NewRankCmd(g))
	root.AddCommand(NewUsageCmd(g))
	root.AddCommand(NewCacheCmd(g))
	root.AddCommand(NewConfigCmd(g))
	root.AddCommand(NewVerifyCmd(g))
	root.AddCommand(NewVersionCmd())

	return root
}
