package cli

import (
	"context"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/search"
)

// NewSearchCmd creates the 'search' command.
func NewSearchCmd(g *Globals) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Search listings by free text",
		Long: `Search loaded items with a BM25 keyword index over names, breeds,
descriptions, tags and bios. When embeddings are available the keyword score
is fused with semantic similarity.`,
		Example: `  open-pet-platform search "calm senior cat"
  open-pet-platform search beagle --limit 3 --json`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args, " ")
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				matches, err := runSearch(ctx, a, text, limit)
				if err != nil {
					return err
				}
				return printMatches(cmd.OutOrStdout(), matches, jsonOutput)
			})
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

// runSearch indexes the loaded items and runs a hybrid query.
func runSearch(ctx context.Context, a *app, text string, limit int) ([]search.Match, error) {
	items, err := a.allItems(ctx)
	if err != nil {
		return nil, err
	}

	var keywords *search.KeywordIndex
	if path := a.cfg.Search.IndexPath; path != "" {
		keywords, err = search.NewKeywordIndexAt(path)
	} else {
		keywords, err = search.NewKeywordIndex()
	}
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := keywords.Close(); err != nil {
			logging.Warn().Err(err).Msg("failed to close keyword index")
		}
	}()

	if err := keywords.Index(a.documents(ctx, items)); err != nil {
		return nil, err
	}
	return a.index.SearchIntent(ctx, keywords, text, items, limit)
}
