package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/pet"
	"github.com/moisesjgomez/open-pet-platform/internal/search"
)

// NewSimilarCmd creates the 'similar' command.
func NewSimilarCmd(g *Globals) *cobra.Command {
	var (
		species, size, energy, text string
		traits                      []string
		kids, dogs, cats            bool
		limit                       int
		jsonOutput                  bool
	)

	cmd := &cobra.Command{
		Use:   "similar",
		Short: "Find listings matching a set of preferences",
		Long: `Rank loaded items against the given preferences. Items are compared by
embedding similarity when the inference API is available, and by attribute
heuristics otherwise.`,
		Example: `  open-pet-platform similar --species dog --size small --energy low --kids
  open-pet-platform similar --trait calm --trait "house trained" --limit 5`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			q := search.Query{
				Species:      pet.ParseSpecies(species),
				Size:         pet.ParseSize(size),
				Energy:       parseEnergy(energy),
				Traits:       traits,
				GoodWithKids: kids,
				GoodWithDogs: dogs,
				GoodWithCats: cats,
				FreeText:     text,
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				items, err := a.allItems(ctx)
				if err != nil {
					return err
				}
				matches := a.index.FindSimilar(ctx, items, q, limit)
				return printMatches(cmd.OutOrStdout(), matches, jsonOutput)
			})
		},
	}

	cmd.Flags().StringVar(&species, "species", "", "dog, cat or other")
	cmd.Flags().StringVar(&size, "size", "", "small, medium, large or xl")
	cmd.Flags().StringVar(&energy, "energy", "", "low, moderate or high")
	cmd.Flags().StringSliceVarP(&traits, "trait", "t", nil, "Desired trait (repeatable)")
	cmd.Flags().BoolVar(&kids, "kids", false, "Must be good with kids")
	cmd.Flags().BoolVar(&dogs, "dogs", false, "Must be good with dogs")
	cmd.Flags().BoolVar(&cats, "cats", false, "Must be good with cats")
	cmd.Flags().StringVar(&text, "text", "", "Free text appended to the query")
	cmd.Flags().IntVarP(&limit, "limit", "n", 10, "Maximum results")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func parseEnergy(s string) pet.Energy {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "low", "calm":
		return pet.EnergyLow
	case "moderate", "medium":
		return pet.EnergyModerate
	case "high", "active":
		return pet.EnergyHigh
	default:
		return ""
	}
}

// printMatches renders ranked results.
func printMatches(w io.Writer, matches []search.Match, jsonOutput bool) error {
	if jsonOutput {
		return printJSON(w, matches)
	}
	if len(matches) == 0 {
		fmt.Fprintln(w, "No matches.")
		return nil
	}
	for i, m := range matches {
		fmt.Fprintf(w, "%2d. %-12s %-20s %.3f  [%s]\n", i+1, m.ItemID, m.Item.DisplayName(), m.Score, m.Source)
	}
	return nil
}
