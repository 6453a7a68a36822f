package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/inference"
)

// NewVerifyCmd creates the 'verify' command for checking configuration and backends.
func NewVerifyCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "verify",
		Short: "Verify configuration and backend connections",
		Long: `Load and validate the configuration, then report which backends are
reachable: the SQLite store, the cache backend, the inference client and
the items file.`,
		Example: `  open-pet-platform verify
  open-pet-platform verify --config ./petcore.yaml`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return runVerify(ctx, cmd.OutOrStdout(), a)
			})
		},
	}

	return cmd
}

// runVerify prints one line per backend.
func runVerify(ctx context.Context, w io.Writer, a *app) error {
	fmt.Fprintln(w, "✓ Configuration valid")

	if a.store.IsAvailable() {
		fmt.Fprintf(w, "✓ Storage: %s\n", a.store.Path())
	} else {
		fmt.Fprintln(w, "✗ Storage: unavailable (enrichment is kept in memory only)")
	}

	switch a.cfg.Cache.Backend {
	case "redis":
		up := a.redis != nil && a.redis.IsAvailable()
		fmt.Fprintf(w, "%s Cache: redis %s\n", yesNo(up), a.cfg.Cache.Redis.Addr)
	case "sqlite":
		fmt.Fprintf(w, "%s Cache: sqlite\n", yesNo(a.store.IsAvailable()))
	default:
		fmt.Fprintln(w, "✓ Cache: memory")
	}

	if _, ok := a.client.(inference.Unavailable); ok {
		fmt.Fprintln(w, "✗ Inference: no API key, heuristics only")
	} else {
		fmt.Fprintf(w, "✓ Inference: %s\n", a.cfg.Inference.ChatModel)
	}

	items, err := a.allItems(ctx)
	if err != nil {
		return err
	}
	if a.cfg.Source.ItemsFile == "" {
		fmt.Fprintln(w, "✗ Items: source.items_file not set")
	} else {
		fmt.Fprintf(w, "✓ Items: %d from %s\n", len(items), a.cfg.Source.ItemsFile)
	}

	snap := a.gov.Snapshot(ctx)
	fmt.Fprintf(w, "✓ Budget: $%.2f/day, %d requests/hour\n", snap.DailyBudget, snap.HourlyCap)
	return nil
}
