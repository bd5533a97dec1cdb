package main

import (
	"github.com/aipdata/aip/internal/words"
	"github.com/spf13/cobra"
)

var wordCounter = words.Count

func init() {
	rootCmd.AddCommand(aggregateCmd)
}

var aggregateCmd = &cobra.Command{
	Use:   "aggregate",
	Short: "Recompute citation counts and the word index",
	Long: `Recompute papers.n_citations from the citation table and rebuild the
per-paper word counts from titles and abstracts.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := mustLoadConfig()
		log := mustNewLogger(cfg)
		defer log.Sync()
		db := mustOpenDatabase(cfg)
		defer db.Close()

		ctx, stop := signalContext()
		defer stop()

		res, err := aggregate(ctx, db, log)
		if err != nil {
			exitWithError(ExitError, "%v", err)
		}
		if humanOutput {
			outputHuman("Refreshed citation counts on %d papers, wrote %d word pairs\n", res.CitationRows, res.WordPairs)
			return nil
		}
		return outputJSON(res)
	},
}
