package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/moisesjgomez/open-pet-platform/internal/batch"
	"github.com/moisesjgomez/open-pet-platform/internal/config"
	"github.com/moisesjgomez/open-pet-platform/internal/logging"
	"github.com/moisesjgomez/open-pet-platform/internal/metrics"
)

type batchOptions struct {
	source      string
	limit       int
	runAI       bool
	threshold   float64
	chunk       int
	delay       time.Duration
	metricsFile string
	jsonOutput  bool
}

// params merges flags over the configured batch defaults. Flags left at
// their zero value keep the configured value.
func (o batchOptions) params(cfg config.BatchConfig) batch.Params {
	p := batch.Params{
		SourceFilter:    o.source,
		ItemLimit:       cfg.ItemLimit,
		RunAI:           o.runAI,
		BudgetThreshold: cfg.BudgetThreshold,
		ChunkSize:       cfg.ChunkSize,
		Delay:           cfg.Delay,
	}
	if o.runAI {
		p.Delay = cfg.AIDelay
	}
	if o.limit > 0 {
		p.ItemLimit = o.limit
	}
	if o.threshold > 0 {
		p.BudgetThreshold = o.threshold
	}
	if o.chunk > 0 {
		p.ChunkSize = o.chunk
	}
	if o.delay > 0 {
		p.Delay = o.delay
	}
	return p
}

// NewBatchCmd creates the 'batch' command.
func NewBatchCmd(g *Globals) *cobra.Command {
	var opts batchOptions

	cmd := &cobra.Command{
		Use:   "batch",
		Short: "Enrich many listings in bounded chunks",
		Long: `Enrich every item from the configured source, skipping items whose stored
content is already fresh. Items are processed in chunks with a pause between
chunks. With --ai, the run stops early as soon as the budget governor refuses
a paid call; remaining items keep their heuristic enrichment.`,
		Example: `  open-pet-platform batch
  open-pet-platform batch --source petfinder --limit 50 --ai
  open-pet-platform batch --ai --threshold 0.3 --metrics-file /var/lib/node_exporter/petcore.prom`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return g.withApp(cmd.Context(), func(ctx context.Context, a *app) error {
				if opts.metricsFile == "" {
					opts.metricsFile = a.cfg.Metrics.TextfilePath
				}
				job := batch.NewJob(a.items, a.orch)
				return runBatch(ctx, cmd.OutOrStdout(), job, opts.params(a.cfg.Batch), opts)
			})
		},
	}

	cmd.Flags().StringVarP(&opts.source, "source", "s", "", "Only items from this source (shelterluv, petfinder, ...)")
	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, fmt.Sprintf("Maximum items (at most %d)", batch.MaxItems))
	cmd.Flags().BoolVar(&opts.runAI, "ai", false, "Generate AI bios when the budget allows")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Fraction of the daily budget this run may use")
	cmd.Flags().IntVar(&opts.chunk, "chunk", 0, "Items processed concurrently per chunk")
	cmd.Flags().DurationVar(&opts.delay, "delay", 0, "Pause between chunks")
	cmd.Flags().StringVar(&opts.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after the run")
	cmd.Flags().BoolVarP(&opts.jsonOutput, "json", "j", false, "Output as JSON")

	return cmd
}

func runBatch(ctx context.Context, w io.Writer, job *batch.Job, params batch.Params, opts batchOptions) error {
	stats, err := job.Run(ctx, params)
	if err != nil {
		return err
	}

	if opts.metricsFile != "" {
		if err := metrics.WriteTextfile(opts.metricsFile); err != nil {
			logging.Warn().Err(err).Str("path", opts.metricsFile).Msg("failed to write metrics textfile")
		}
	}

	if opts.jsonOutput {
		return printJSON(w, stats)
	}

	fmt.Fprintf(w, "Batch %s finished in %s\n\n", stats.RunID, stats.Duration.Round(time.Millisecond))
	fmt.Fprintf(w, "  Total:        %d\n", stats.Total)
	fmt.Fprintf(w, "  Enriched:     %d\n", stats.Enriched)
	fmt.Fprintf(w, "  Skipped:      %d\n", stats.Skipped)
	fmt.Fprintf(w, "  AI generated: %d\n", stats.AIGenerated)
	fmt.Fprintf(w, "  Failed:       %d\n", stats.Failed)
	fmt.Fprintf(w, "  Tokens:       %d\n", stats.TokensUsed)
	if stats.StoppedEarly {
		fmt.Fprintln(w, "\nStopped early: the daily budget or hourly cap was reached.")
	}
	return nil
}
