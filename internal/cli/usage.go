package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/governor"
	"github.com/moisesjgomez/open-pet-platform/internal/storage"
)

// NewUsageCmd creates the 'usage' command for inference spend reporting.
func NewUsageCmd(g *Globals) *cobra.Command {
	var (
		date        string
		cleanupDays int
		jsonOutput  bool
	)

	cmd := &cobra.Command{
		Use:   "usage",
		Short: "Show inference usage against the budget",
		Long: `Show today's request count against the hourly cap, today's spend against
the daily budget, and per-model usage records. --date reports another day.
--cleanup-days deletes usage records older than the given number of days
along with every expired cache entry.`,
		Example: `  open-pet-platform usage
  open-pet-platform usage --date 2026-01-31
  open-pet-platform usage --cleanup-days 90`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if date != "" {
				if _, err := time.Parse(storage.DateLayout, date); err != nil {
					return fmt.Errorf("invalid --date %q: expected YYYY-MM-DD", date)
				}
			}
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				w := cmd.OutOrStdout()
				if cleanupDays > 0 {
					usageRows, cacheRows, err := a.store.Cleanup(ctx, time.Duration(cleanupDays)*24*time.Hour)
					if err != nil {
						return fmt.Errorf("cleanup failed: %w", err)
					}
					fmt.Fprintf(w, "Removed %d usage records and %d cache entries.\n\n", usageRows, cacheRows)
				}

				if date != "" {
					records, err := a.store.UsageForDate(ctx, date)
					if err != nil {
						return err
					}
					if jsonOutput {
						return printJSON(w, records)
					}
					printRecords(w, date, records)
					return nil
				}

				snap := a.gov.Snapshot(ctx)
				if jsonOutput {
					return printJSON(w, snap)
				}
				printSnapshot(w, snap)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&date, "date", "", "Report a specific day (YYYY-MM-DD)")
	cmd.Flags().IntVar(&cleanupDays, "cleanup-days", 0, "Delete records older than this many days")
	cmd.Flags().BoolVarP(&jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func printSnapshot(w io.Writer, s governor.Snapshot) {
	fmt.Fprintf(w, "Hourly requests: %d / %d (window resets %s)\n", s.HourlyCount, s.HourlyCap, s.WindowResetsAt.Format("15:04"))
	if !s.StoreAvailable {
		fmt.Fprintf(w, "Daily spend:     unknown / $%.4f (storage unavailable)\n", s.DailyBudget)
		return
	}
	fmt.Fprintf(w, "Daily spend:     $%.4f / $%.4f\n", s.TodaySpend, s.DailyBudget)
	if len(s.Records) > 0 {
		fmt.Fprintln(w)
		printRecords(w, "", s.Records)
	}
}

func printRecords(w io.Writer, date string, records []storage.UsageRecord) {
	if date != "" {
		fmt.Fprintf(w, "Usage for %s:\n", date)
	}
	if len(records) == 0 {
		fmt.Fprintln(w, "  no usage recorded")
		return
	}
	for _, r := range records {
		fmt.Fprintf(w, "  %-24s %5d requests %8d tokens  $%.4f\n", r.Model, r.RequestCount, r.TokensUsed, r.EstimatedCost)
	}
}
