package query

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/aipdata/aip/internal/reference"
	"github.com/aipdata/aip/internal/storage"
)

// setupTestDB builds a small corpus:
//
//	p1 (2000, Alice+Bob)  <- p2 (2001), p3 (2002)
//	p2 (2001, Bob)        <- p3 (2002)
//	p3 (2002, no authors)
//	p4 (unknown year)     -> p1
func setupTestDB(t *testing.T) *storage.DB {
	t.Helper()
	ctx := context.Background()

	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "q.db"))
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { db.Close() })

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer tx.Rollback()

	papers := []reference.Paper{
		{ID: "p1", Title: "Graph Theory", Abstract: "About GRAPHS", Venue: "V", Year: 2000, Source: reference.SourceDBLP},
		{ID: "p2", Title: "Graph Search", Venue: "V", Year: 2001, Source: reference.SourceDBLP},
		{ID: "p3", Title: "Trees", Venue: "V", Year: 2002, Source: reference.SourceSemanticScholar},
		{ID: "p4", Title: "Undated", Venue: "V", Source: reference.SourceSemanticScholar},
	}
	for _, p := range papers {
		if err := tx.InsertPaper(ctx, p); err != nil {
			t.Fatal(err)
		}
	}
	authorships := []reference.Authorship{
		{PaperID: "p1", AuthorID: "Bob", Position: 2},
		{PaperID: "p1", AuthorID: "Alice", Position: 1},
		{PaperID: "p2", AuthorID: "Bob", Position: 1},
	}
	for _, e := range authorships {
		if err := tx.EnsureAuthor(ctx, e.AuthorID); err != nil {
			t.Fatal(err)
		}
		if err := tx.InsertAuthorship(ctx, e); err != nil {
			t.Fatal(err)
		}
	}
	cites := []reference.Citation{
		{CitingID: "p2", CitedID: "p1"},
		{CitingID: "p3", CitedID: "p1"},
		{CitingID: "p3", CitedID: "p2"},
		{CitingID: "p4", CitedID: "p1"},
		{CitingID: "p3", CitedID: "ghost"},
	}
	for _, c := range cites {
		if _, err := tx.InsertCitation(ctx, c); err != nil {
			t.Fatal(err)
		}
	}
	if err := tx.Commit(); err != nil {
		t.Fatal(err)
	}

	if _, err := db.RefreshCitationCounts(ctx); err != nil {
		t.Fatal(err)
	}
	return db
}

func TestPapers(t *testing.T) {
	db := setupTestDB(t)
	papers, err := Papers(context.Background(), db.Conn())
	if err != nil {
		t.Fatalf("Papers() error = %v", err)
	}
	if len(papers) != 4 {
		t.Fatalf("got %d papers, want 4", len(papers))
	}
	if papers[0].ID != "p1" || papers[0].Title != "graph theory" || papers[0].Abstract != "about graphs" {
		t.Errorf("papers[0] = %+v", papers[0])
	}
}

func TestCitationPairs(t *testing.T) {
	db := setupTestDB(t)
	pairs, err := CitationPairs(context.Background(), db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if len(pairs) != 5 {
		t.Errorf("got %d pairs, want 5 (dangling included)", len(pairs))
	}
}

func TestAuthorsQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	authors, err := PaperAuthors(ctx, db.Conn(), "p1")
	if err != nil {
		t.Fatal(err)
	}
	if len(authors) != 2 || authors[0] != "Alice" || authors[1] != "Bob" {
		t.Errorf("PaperAuthors(p1) = %v, want byline order", authors)
	}

	all, err := Authors(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Errorf("Authors() = %v", all)
	}

	sums, err := AuthorCitationSums(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	// p1 has 3 citations, p2 has 1.
	if sums["Alice"] != 3 || sums["Bob"] != 4 {
		t.Errorf("AuthorCitationSums() = %v", sums)
	}

	byPaper, err := PapersAuthors(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if len(byPaper) != 4 || len(byPaper["p3"]) != 0 || byPaper["p3"] == nil || len(byPaper["p1"]) != 2 {
		t.Errorf("PapersAuthors() = %v", byPaper)
	}
}

func TestPerPaperQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	counts, err := PaperCitations(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if counts["p1"] != 3 || counts["p2"] != 1 || counts["p3"] != 0 {
		t.Errorf("PaperCitations() = %v", counts)
	}

	cy, err := PaperCitationsYears(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if cy["p1"] != (CitationsYear{Citations: 3, Year: 2000}) || cy["p4"].Year != 0 {
		t.Errorf("PaperCitationsYears() = %v", cy)
	}

	years, err := PaperYears(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if years["p2"] != 2001 || years["p4"] != 0 || len(years) != 4 {
		t.Errorf("PaperYears() = %v", years)
	}
}

func TestPerYearQueries(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	pubs, err := PublicationsPerYear(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if len(pubs) != 3 || pubs[2000] != 1 || pubs[2002] != 1 {
		t.Errorf("PublicationsPerYear() = %v", pubs)
	}

	cites, err := CitationsPerYear(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if cites[2000] != 3 || cites[2001] != 1 || cites[2002] != 0 {
		t.Errorf("CitationsPerYear() = %v", cites)
	}
}

func TestCitationsInYearRange(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		year, dt int
		want     int
	}{
		{2002, 2, 2}, // p2 and p3 cite p1 (2000)
		{2001, 1, 1}, // p2 cites p1
		{2002, 1, 1}, // p3 cites p2 (2001)
		{2002, 0, 0},
	}
	for _, tt := range tests {
		got, err := CitationsInYearRange(ctx, db.Conn(), tt.year, tt.dt)
		if err != nil {
			t.Fatal(err)
		}
		if got != tt.want {
			t.Errorf("CitationsInYearRange(%d, %d) = %d, want %d", tt.year, tt.dt, got, tt.want)
		}
	}
}

func TestCitationMatrices(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	empty, err := EmptyCitationMatrix(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 3 {
		t.Errorf("EmptyCitationMatrix() has %d rows, want 3 (undated paper excluded)", len(empty))
	}
	if len(empty["p1"]) != 3 || len(empty["p3"]) != 1 {
		t.Errorf("row spans: p1=%v p3=%v", empty["p1"], empty["p3"])
	}

	m, err := CitationsByYearMatrix(ctx, db.Conn())
	if err != nil {
		t.Fatal(err)
	}
	want := map[int]int{2000: 0, 2001: 1, 2002: 1}
	for y, n := range want {
		if m["p1"][y] != n {
			t.Errorf("p1[%d] = %d, want %d", y, m["p1"][y], n)
		}
	}
	if m["p2"][2002] != 1 {
		t.Errorf("p2[2002] = %d, want 1", m["p2"][2002])
	}
}

func TestEmptyCitationMatrix_NoYears(t *testing.T) {
	db, err := storage.OpenDB(filepath.Join(t.TempDir(), "empty.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()

	m, err := EmptyCitationMatrix(context.Background(), db.Conn())
	if err != nil {
		t.Fatalf("EmptyCitationMatrix() error = %v", err)
	}
	if len(m) != 0 {
		t.Errorf("matrix = %v, want empty", m)
	}
}

func TestWordPopularity(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	count := func(text string) map[string]int {
		if text == "" {
			return nil
		}
		return map[string]int{"graph": 1}
	}
	if _, err := db.RebuildWordIndex(ctx, count); err != nil {
		t.Fatal(err)
	}

	pop, err := WordPopularity(ctx, db.Conn(), "graph")
	if err != nil {
		t.Fatal(err)
	}
	// p4 has no year and is left out.
	if len(pop) != 3 || pop[2000] != 1 {
		t.Errorf("WordPopularity() = %v", pop)
	}

	none, err := WordPopularity(ctx, db.Conn(), "absent")
	if err != nil {
		t.Fatal(err)
	}
	if len(none) != 0 {
		t.Errorf("WordPopularity(absent) = %v", none)
	}
}
