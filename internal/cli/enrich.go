package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/enrich"
)

// NewEnrichCmd creates the 'enrich' command for a single item.
func NewEnrichCmd(g *Globals) *cobra.Command {
	var (
		noAI       bool
		images     bool
		force      bool
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "enrich <item-id>",
		Short: "Enrich a single pet listing",
		Long: `Enrich one item from the configured source. Heuristic tags always run.
AI bio generation runs unless --no-ai is given; --images adds image analysis.
Cached content is reused when it already satisfies the requested tier.`,
		Example: `  open-pet-platform enrich sl-1234
  open-pet-platform enrich pf-99 --images --json
  open-pet-platform enrich sl-1234 --no-ai`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := enrich.NewRequest(args[0])
			req.RunAI = !noAI
			req.RunImageAnalysis = images
			req.ForceRefresh = force
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				return runEnrich(ctx, cmd.OutOrStdout(), a.service, req, jsonOutput)
			})
		},
	}

	cmd.Flags().BoolVar(&noAI, "no-ai", false, "Heuristics only, never call the inference API")
	cmd.Flags().BoolVar(&images, "images", false, "Also analyze the item's photos")
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Ignore cached content and regenerate")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runEnrich(ctx context.Context, w io.Writer, svc *enrich.Service, req enrich.Request, jsonOutput bool) error {
	resp, err := svc.EnrichByID(ctx, req)
	if err != nil {
		return err
	}
	if jsonOutput {
		return printJSON(w, resp)
	}

	c := resp.Content
	fmt.Fprintf(w, "%s (%s)\n", resp.Item.DisplayName(), resp.Item.ID)
	fmt.Fprintf(w, "  Tier:    %s\n", c.Tier)
	fmt.Fprintf(w, "  Energy:  %s\n", c.EnergyLevel)
	if c.SizeClass != "" {
		fmt.Fprintf(w, "  Size:    %s\n", c.SizeClass)
	}
	fmt.Fprintf(w, "  Age:     %s\n", c.AgeCategory)
	if tags := c.AllTags(); len(tags) > 0 {
		fmt.Fprintf(w, "  Tags:    %s\n", strings.Join(tags, ", "))
	}
	if c.ImageAnalysis != nil && c.ImageAnalysis.BreedGuess != "" {
		fmt.Fprintf(w, "  Looks:   %s\n", c.ImageAnalysis.BreedGuess)
	}
	fmt.Fprintf(w, "  Tokens:  %d", resp.TokensUsed)
	if resp.Cached {
		fmt.Fprint(w, " (cached)")
	}
	fmt.Fprintln(w)
	fmt.Fprintf(w, "\n%s\n", c.Bio)
	return nil
}
