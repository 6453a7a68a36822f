package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/learning"
)

// NewRankCmd creates the 'rank' command.
func NewRankCmd(g *Globals) *cobra.Command {
	var (
		user       string
		limit      int
		deck       bool
		seed       int64
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "rank",
		Short: "Rank listings for a user's learned preferences",
		Long: `Score every loaded item against a user's preference profile. With --deck
the result is a swipe deck: unrated items only, with an occasional
exploratory pick from further down the ranking.`,
		Example: `  open-pet-platform rank --user alice
  open-pet-platform rank --user alice --deck --limit 20`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				store, err := openProfileStore(a.cfg.Learning)
				if err != nil {
					return err
				}
				defer store.Close()

				p, err := store.Load(ctx, user)
				if err != nil {
					return err
				}
				items, err := a.allItems(ctx)
				if err != nil {
					return err
				}

				w := cmd.OutOrStdout()
				if !deck {
					ranked := learning.Rank(a.features(ctx, items), p, limit)
					if jsonOutput {
						return printJSON(w, ranked)
					}
					printRanked(w, ranked)
					return nil
				}

				explorer := learning.NewExplorer(seed)
				explorer.SetEpsilon(a.cfg.Learning.Epsilon)
				picks := explorer.Deck(learning.Rank(a.features(ctx, items), p, 0), p, limit)
				if jsonOutput {
					return printJSON(w, picks)
				}
				printDeck(w, picks)
				return nil
			})
		},
	}

	cmd.Flags().StringVarP(&user, "user", "u", "", "User id (required)")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().BoolVar(&deck, "deck", false, "Build a swipe deck of unrated items")
	cmd.Flags().Int64Var(&seed, "seed", 0, "Random seed for deck exploration (0 uses the clock)")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")
	_ = cmd.MarkFlagRequired("user")

	return cmd
}

func printRanked(w io.Writer, ranked []learning.Scored) {
	if len(ranked) == 0 {
		fmt.Fprintln(w, "No items to rank.")
		return
	}
	for i, s := range ranked {
		fmt.Fprintf(w, "%2d. %-12s %-20s %8.2f\n", i+1, s.ItemID, s.Breed, s.Score)
	}
}

func printDeck(w io.Writer, picks []learning.Pick) {
	if len(picks) == 0 {
		fmt.Fprintln(w, "Nothing left to swipe.")
		return
	}
	for i, p := range picks {
		marker := ""
		if p.Explored {
			marker = "  (explore)"
		}
		fmt.Fprintf(w, "%2d. %-12s %-20s %8.2f%s\n", i+1, p.ItemID, p.Breed, p.Score, marker)
	}
}
