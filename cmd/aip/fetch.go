package main

import (
	"github.com/aipdata/aip/internal/corpus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func init() {
	rootCmd.AddCommand(fetchCmd)
}

var fetchCmd = &cobra.Command{
	Use:   "fetch <dir>",
	Short: "Download Semantic Scholar corpus files from S3",
	Long: `Download corpus files (names matching corpus_pattern) from the configured
bucket and prefix into dir. Files already present with the same size are
skipped. Configure the bucket under s3 in the config file or with AIP_S3_*.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		log := mustNewLogger(cfg)
		defer log.Sync()

		ctx, stop := signalContext()
		defer stop()

		client, err := corpus.NewS3Client(ctx, cfg.S3)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}
		f, err := corpus.NewFetcher(client, cfg.S3, cfg.CorpusPattern, log)
		if err != nil {
			exitWithError(ExitConfigError, "%v", err)
		}

		results, err := f.Fetch(ctx, args[0])
		if err != nil {
			log.Error("Fetch failed", zap.Int("completed", len(results)), zap.Error(err))
			exitWithError(ExitError, "%v", err)
		}

		if humanOutput {
			for _, r := range results {
				state := "downloaded"
				if r.Skipped {
					state = "up to date"
				}
				outputHuman("%s\t%s\n", r.Path, state)
			}
			return nil
		}
		return outputJSON(results)
	},
}
