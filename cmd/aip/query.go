package main

import (
	"context"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/aipdata/aip/internal/query"
	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(queryCmd)
}

// queryShape is one read-side query exposed on the command line.
type queryShape struct {
	args  []string
	help  string
	run   func(ctx context.Context, q query.Queryer, args []string) (interface{}, error)
	human func(v interface{})
}

var queryShapes = map[string]queryShape{
	"papers": {
		help: "id, title and abstract of every paper, lower-cased",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.Papers(ctx, q)
		},
		human: func(v interface{}) {
			for _, p := range v.([]query.PaperText) {
				outputHuman("%s\t%s\n", p.ID, p.Title)
			}
		},
	},
	"citations": {
		help: "every (citing, cited) pair",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.CitationPairs(ctx, q)
		},
	},
	"authors": {
		help: "every author id",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.Authors(ctx, q)
		},
		human: outputLines,
	},
	"paper-authors": {
		args: []string{"paper-id"},
		help: "author ids of one paper in byline order",
		run: func(ctx context.Context, q query.Queryer, args []string) (interface{}, error) {
			return query.PaperAuthors(ctx, q, args[0])
		},
		human: outputLines,
	},
	"papers-authors": {
		help: "author ids of every paper",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.PapersAuthors(ctx, q)
		},
	},
	"paper-citations": {
		help: "citation count of every paper",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.PaperCitations(ctx, q)
		},
		human: func(v interface{}) { outputStringCounts(v.(map[string]int)) },
	},
	"paper-citations-years": {
		help: "citation count and year of every paper",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.PaperCitationsYears(ctx, q)
		},
	},
	"paper-years": {
		help: "publication year of every paper with a known year",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.PaperYears(ctx, q)
		},
		human: func(v interface{}) { outputStringCounts(v.(map[string]int)) },
	},
	"author-citations": {
		help: "summed citation count per author",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.AuthorCitationSums(ctx, q)
		},
		human: func(v interface{}) { outputStringCounts(v.(map[string]int)) },
	},
	"publications-per-year": {
		help: "number of papers per year",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.PublicationsPerYear(ctx, q)
		},
		human: func(v interface{}) { outputYearCounts(v.(map[int]int)) },
	},
	"citations-per-year": {
		help: "summed citation counts of papers per year",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.CitationsPerYear(ctx, q)
		},
		human: func(v interface{}) { outputYearCounts(v.(map[int]int)) },
	},
	"word": {
		args: []string{"word"},
		help: "occurrences of a word per year",
		run: func(ctx context.Context, q query.Queryer, args []string) (interface{}, error) {
			return query.WordPopularity(ctx, q, strings.ToLower(args[0]))
		},
		human: func(v interface{}) { outputYearCounts(v.(map[int]int)) },
	},
	"citations-in-range": {
		args: []string{"year", "dt"},
		help: "citations to papers of year-dt made between year-dt and year",
		run: func(ctx context.Context, q query.Queryer, args []string) (interface{}, error) {
			year, err := strconv.Atoi(args[0])
			if err != nil {
				return nil, fmt.Errorf("year: %w", err)
			}
			dt, err := strconv.Atoi(args[1])
			if err != nil {
				return nil, fmt.Errorf("dt: %w", err)
			}
			return query.CitationsInYearRange(ctx, q, year, dt)
		},
	},
	"empty-matrix": {
		help: "zero-filled paper by year citation matrix",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.EmptyCitationMatrix(ctx, q)
		},
	},
	"matrix": {
		help: "citations received per paper per year",
		run: func(ctx context.Context, q query.Queryer, _ []string) (interface{}, error) {
			return query.CitationsByYearMatrix(ctx, q)
		},
	},
}

func outputLines(v interface{}) {
	for _, s := range v.([]string) {
		outputHuman("%s\n", s)
	}
}

func shapeUsage() string {
	names := make([]string, 0, len(queryShapes))
	for name := range queryShapes {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		s := queryShapes[name]
		usage := name
		for _, a := range s.args {
			usage += " <" + a + ">"
		}
		fmt.Fprintf(&b, "  %-36s %s\n", usage, s.help)
	}
	return b.String()
}

var queryCmd = &cobra.Command{
	Use:   "query <shape> [args...]",
	Short: "Run a read-side query",
	Long: `Run a read-side query and print its result.

Shapes:
` + shapeUsage(),
	Args: cobra.MinimumNArgs(1),
	RunE: runQuery,
}

func runQuery(cmd *cobra.Command, args []string) error {
	shape, ok := queryShapes[args[0]]
	if !ok {
		exitWithError(ExitError, "unknown query shape %q\n\nShapes:\n%s", args[0], shapeUsage())
	}
	if len(args)-1 != len(shape.args) {
		exitWithError(ExitError, "query %s expects %d argument(s): %s", args[0], len(shape.args), strings.Join(shape.args, ", "))
	}

	cfg := mustLoadConfig()
	db := mustOpenDatabase(cfg)
	defer db.Close()

	ctx, stop := signalContext()
	defer stop()

	v, err := shape.run(ctx, db.Conn(), args[1:])
	if err != nil {
		exitWithError(ExitError, "%v", err)
	}

	if humanOutput && shape.human != nil {
		shape.human(v)
		return nil
	}
	return outputJSON(v)
}
