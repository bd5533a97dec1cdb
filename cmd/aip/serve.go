package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/aipdata/aip/internal/api"
	"github.com/aipdata/aip/internal/ingest"
	"github.com/aipdata/aip/internal/storage"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	serveAddr  string
	serveWatch string
)

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "Listen address (overrides http_addr)")
	serveCmd.Flags().StringVar(&serveWatch, "watch", "", "Corpus directory to ingest on the configured schedule")
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve queries and metrics over HTTP",
	Long: `Serve the read-side queries under /api and Prometheus metrics under /metrics.

With --watch and a schedule, the server also ingests new corpus files from the
directory, loads their citations and refreshes the aggregates on every tick.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg := mustLoadConfig()
	if serveAddr != "" {
		cfg.HTTPAddr = serveAddr
	}
	log := mustNewLogger(cfg)
	defer log.Sync()

	db := mustOpenDatabase(cfg)
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := ingest.NewMetrics(reg)

	ctx, stop := signalContext()
	defer stop()

	if serveWatch != "" {
		if cfg.Schedule == "" {
			exitWithError(ExitConfigError, "--watch requires a schedule (schedule or AIP_SCHEDULE)")
		}
		p, err := ingest.New(db, log, metrics, ingest.Options{BatchSize: cfg.BatchSize, CorpusPattern: cfg.CorpusPattern})
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		c := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.DiscardLogger)))
		if _, err := c.AddFunc(cfg.Schedule, func() { watchTick(ctx, p, db, log, serveWatch) }); err != nil {
			exitWithError(ExitConfigError, "invalid schedule %q: %v", cfg.Schedule, err)
		}
		c.Start()
		defer func() { <-c.Stop().Done() }()
		log.Info("Watching corpus directory", zap.String("dir", serveWatch), zap.String("schedule", cfg.Schedule))
	}

	gin.SetMode(gin.ReleaseMode)
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           api.NewRouter(api.NewHandler(db, log), reg),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("Server listening", zap.String("addr", cfg.HTTPAddr))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			exitWithError(ExitError, "server: %v", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown failed", zap.Error(err))
		}
	}
	return nil
}

func watchTick(ctx context.Context, p *ingest.Pipeline, db *storage.DB, log *zap.Logger, dir string) {
	if _, err := p.IngestS2Corpus(ctx, dir); err != nil {
		log.Error("Scheduled corpus ingestion failed", zap.Error(err))
	}
	if _, err := p.LoadCitationsCorpus(ctx, dir); err != nil {
		log.Error("Scheduled citation load failed", zap.Error(err))
	}
	if _, err := aggregate(ctx, db, log); err != nil {
		log.Error("Scheduled aggregation failed", zap.Error(err))
	}
}
