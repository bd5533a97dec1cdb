package main

import (
	"io"
	"os"

	"github.com/aipdata/aip/internal/export"
	"github.com/aipdata/aip/internal/storage"
	"github.com/spf13/cobra"
)

var (
	exportOutput string
	exportFormat string
)

func init() {
	rootCmd.AddCommand(exportCmd)
	exportCmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to this file instead of stdout")
	exportCmd.Flags().StringVar(&exportFormat, "format", "jsonl", "Output format: jsonl or bibtex")
}

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export papers with their authors",
	Long: `Export every paper with its byline, ordered by id.

Formats:
  jsonl   one JSON object per line (default)
  bibtex  one BibTeX entry per paper; DBLP keys are prefixed with DBLP:`,
	Args: cobra.NoArgs,
	RunE: runExport,
}

func runExport(cmd *cobra.Command, args []string) error {
	if exportFormat != "jsonl" && exportFormat != "bibtex" {
		exitWithError(ExitError, "unknown format %q (want jsonl or bibtex)", exportFormat)
	}

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()

	papers, err := db.PapersWithAuthors(ctx)
	if err != nil {
		exitWithError(ExitError, "loading papers: %v", err)
	}

	var w io.Writer = os.Stdout
	var f *os.File
	if exportOutput != "" {
		f, err = os.Create(exportOutput)
		if err != nil {
			exitWithError(ExitError, "creating %s: %v", exportOutput, err)
		}
		w = f
	}

	if exportFormat == "bibtex" {
		err = export.WriteBibTeX(w, papers)
	} else {
		err = storage.WritePapersJSONL(w, papers)
	}
	if f != nil {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}
	if err != nil {
		exitWithError(ExitError, "exporting papers: %v", err)
	}

	if f == nil {
		return nil
	}
	if humanOutput {
		outputHuman("Exported %d papers to %s\n", len(papers), exportOutput)
		return nil
	}
	return outputJSON(StatusResponse{Status: "exported", Path: exportOutput, Count: len(papers)})
}
