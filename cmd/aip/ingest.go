package main

import (
	"context"
	"fmt"
	"os"

	"github.com/aipdata/aip/internal/config"
	"github.com/aipdata/aip/internal/ingest"
	"github.com/aipdata/aip/internal/storage"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	ingestSchedule    string
	ingestMetricsFile string
	ingestBatchSize   int
	ingestAggregate   bool
)

func init() {
	rootCmd.AddCommand(ingestCmd)
	ingestCmd.AddCommand(ingestDBLPCmd)
	ingestCmd.AddCommand(ingestS2Cmd)
	ingestCmd.AddCommand(ingestCitesCmd)

	ingestCmd.PersistentFlags().StringVar(&ingestSchedule, "schedule", "", "Cron spec; keep running and repeat the ingestion on this schedule")
	ingestCmd.PersistentFlags().StringVar(&ingestMetricsFile, "metrics-file", "", "Write Prometheus metrics to this file after each run")
	ingestCmd.PersistentFlags().IntVar(&ingestBatchSize, "batch-size", 0, "Records per transaction (overrides batch_size)")
	ingestCmd.PersistentFlags().BoolVar(&ingestAggregate, "aggregate", false, "Refresh citation counts and the word index after each run")
}

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest source files into the store",
	Long: `Ingest DBLP and Semantic Scholar files into the store.

Files already recorded in the ingestion ledger are skipped. A directory
argument processes every corpus file in it (names matching corpus_pattern)
in lexical order.`,
}

var ingestDBLPCmd = &cobra.Command{
	Use:   "dblp <file>",
	Short: "Ingest a DBLP XML dump",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return runIngest(func(ctx context.Context, p *ingest.Pipeline) (interface{}, error) {
			res, err := p.IngestDBLP(ctx, path)
			if res == nil {
				return nil, err
			}
			if humanOutput {
				printResult(res)
			}
			return res, err
		})
	},
}

var ingestS2Cmd = &cobra.Command{
	Use:   "s2 <file|dir>",
	Short: "Ingest Semantic Scholar corpus files",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return runIngest(func(ctx context.Context, p *ingest.Pipeline) (interface{}, error) {
			var results []*ingest.Result
			var err error
			if isDir(path) {
				results, err = p.IngestS2Corpus(ctx, path)
			} else {
				var res *ingest.Result
				res, err = p.IngestS2File(ctx, path)
				if res != nil {
					results = append(results, res)
				}
			}
			if results == nil {
				return nil, err
			}
			if humanOutput {
				for _, r := range results {
					printResult(r)
				}
			}
			return results, err
		})
	},
}

var ingestCitesCmd = &cobra.Command{
	Use:   "cites <file|dir>",
	Short: "Load citation edges from Semantic Scholar corpus files",
	Long: `Load citation edges from Semantic Scholar corpus files.

This pass is not gated by the ingestion ledger; edges already stored are
counted as duplicates.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return runIngest(func(ctx context.Context, p *ingest.Pipeline) (interface{}, error) {
			var results []*ingest.CitationResult
			var err error
			if isDir(path) {
				results, err = p.LoadCitationsCorpus(ctx, path)
			} else {
				var res *ingest.CitationResult
				res, err = p.LoadCitations(ctx, path)
				if res != nil {
					results = append(results, res)
				}
			}
			if results == nil {
				return nil, err
			}
			if humanOutput {
				for _, r := range results {
					outputHuman("%s: %d edges written, %d duplicates, %d records skipped\n",
						r.Path, r.Written, r.Duplicates, r.Skipped)
				}
			}
			return results, err
		})
	},
}

type ingestJob func(ctx context.Context, p *ingest.Pipeline) (interface{}, error)

// runIngest runs job once, or on the configured schedule until interrupted.
func runIngest(job ingestJob) error {
	cfg := mustLoadConfig()
	applyIngestFlags(cfg)

	log := mustNewLogger(cfg)
	defer log.Sync()

	db := mustOpenDatabase(cfg)
	defer db.Close()

	reg := prometheus.NewRegistry()
	p, err := ingest.New(db, log, ingest.NewMetrics(reg), ingest.Options{
		BatchSize:     cfg.BatchSize,
		CorpusPattern: cfg.CorpusPattern,
	})
	if err != nil {
		exitWithError(ExitConfigError, "%v", err)
	}

	ctx, stop := signalContext()
	defer stop()

	run := func() error {
		out, err := job(ctx, p)
		if err == nil && ingestAggregate {
			_, err = aggregate(ctx, db, log)
		}
		if cfg.MetricsFile != "" {
			if werr := prometheus.WriteToTextfile(cfg.MetricsFile, reg); werr != nil {
				log.Warn("Failed to write metrics file", zap.String("path", cfg.MetricsFile), zap.Error(werr))
			}
		}
		if !humanOutput && out != nil {
			outputJSON(out)
		}
		return err
	}

	if cfg.Schedule == "" {
		if err := run(); err != nil {
			exitWithError(exitCodeFor(err), "%v", err)
		}
		return nil
	}

	// Overlapping runs would only queue on the single connection.
	c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
	if _, err := c.AddFunc(cfg.Schedule, func() {
		if err := run(); err != nil {
			log.Error("Scheduled ingestion failed", zap.Error(err))
		}
	}); err != nil {
		exitWithError(ExitConfigError, "invalid schedule %q: %v", cfg.Schedule, err)
	}

	log.Info("Ingestion scheduled", zap.String("schedule", cfg.Schedule))
	c.Start()
	<-ctx.Done()
	<-c.Stop().Done()
	log.Info("Scheduler stopped")
	return nil
}

func applyIngestFlags(cfg *config.Config) {
	if ingestSchedule != "" {
		cfg.Schedule = ingestSchedule
	}
	if ingestMetricsFile != "" {
		cfg.MetricsFile = ingestMetricsFile
	}
	if ingestBatchSize != 0 {
		if ingestBatchSize < 0 {
			exitWithError(ExitConfigError, "%v: %d", config.ErrBadBatchSize, ingestBatchSize)
		}
		cfg.BatchSize = ingestBatchSize
	}
}

func printResult(r *ingest.Result) {
	if r.AlreadyIngested {
		outputHuman("%s: already ingested\n", r.Path)
		return
	}
	outputHuman("%s: %d inserted, %d updated, %d rejected, %d skipped\n",
		r.Path, r.Inserted, r.Updated, r.Rejected, r.Skipped)
}

func isDir(path string) bool {
	st, err := os.Stat(path)
	return err == nil && st.IsDir()
}

// aggregate refreshes the derived tables after ingestion.
func aggregate(ctx context.Context, db *storage.DB, log *zap.Logger) (*AggregateResponse, error) {
	rows, err := db.RefreshCitationCounts(ctx)
	if err != nil {
		return nil, err
	}
	pairs, err := db.RebuildWordIndex(ctx, wordCounter)
	if err != nil {
		return nil, fmt.Errorf("rebuilding word index: %w", err)
	}
	log.Info("Aggregates refreshed", zap.Int64("citation_rows", rows), zap.Int("word_pairs", pairs))
	return &AggregateResponse{CitationRows: rows, WordPairs: pairs}, nil
}
