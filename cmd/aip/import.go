package main

import (
	"context"

	"github.com/aipdata/aip/internal/ingest"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(importCmd)
}

var importCmd = &cobra.Command{
	Use:   "import <file.jsonl>",
	Short: "Restore papers from a JSONL export",
	Long: `Merge papers and bylines from a file written by 'aip export' into the store.

Citation edges are not part of an export; reload them with 'aip ingest cites'
and run 'aip aggregate' to recompute counts.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		return runIngest(func(ctx context.Context, p *ingest.Pipeline) (interface{}, error) {
			res, err := p.ImportPapers(ctx, path)
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
