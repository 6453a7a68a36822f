package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCmd creates the 'cache' command group.
func NewCacheCmd(g *Globals) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the enrichment cache",
	}
	cmd.AddCommand(newCachePurgeCmd(g))
	return cmd
}

func newCachePurgeCmd(g *Globals) *cobra.Command {
	return &cobra.Command{
		Use:   "purge",
		Short: "Delete expired cache entries",
		Long: `Delete expired entries from the configured cache backend and the local
fallback map. Redis expires keys on its own, so only the local map is purged
there.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				n, err := a.cache.PurgeExpired(ctx)
				if err != nil {
					return fmt.Errorf("purge failed: %w", err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Purged %d expired entries.\n", n)
				return nil
			})
		},
	}
}
