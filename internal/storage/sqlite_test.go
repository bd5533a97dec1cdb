package storage

import (
	"context"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aipdata/aip/internal/reference"
)

// setupTestDB opens an empty database in a temp dir.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := OpenDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// withTx runs fn in a transaction and commits it.
func withTx(t *testing.T, db *DB, fn func(tx *Tx)) {
	t.Helper()
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatalf("Begin() error = %v", err)
	}
	defer tx.Rollback()

	fn(tx)

	if err := tx.Commit(); err != nil {
		t.Fatalf("Commit() error = %v", err)
	}
}

func testPaper(id string) reference.Paper {
	return reference.Paper{
		ID:     id,
		Title:  "Title of " + id,
		Venue:  "ICSE",
		Year:   2020,
		Volume: "12",
		DOI:    "10.1/" + id,
		Source: reference.SourceDBLP,
	}
}

func TestOpenDB_Reopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.db")
	ctx := context.Background()

	db, err := OpenDB(path)
	if err != nil {
		t.Fatalf("OpenDB() error = %v", err)
	}
	withTx(t, db, func(tx *Tx) {
		if err := tx.InsertPaper(ctx, testPaper("a")); err != nil {
			t.Fatalf("InsertPaper() error = %v", err)
		}
	})
	db.Close()

	db, err = OpenDB(path)
	if err != nil {
		t.Fatalf("reopening: %v", err)
	}
	defer db.Close()

	n, err := db.CountPapers(ctx)
	if err != nil {
		t.Fatalf("CountPapers() error = %v", err)
	}
	if n != 1 {
		t.Errorf("CountPapers() = %d, want 1", n)
	}
}

func TestInsertAndGetPaper(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := testPaper("conf/x/Y20")
	p.Abstract = "An abstract."
	withTx(t, db, func(tx *Tx) {
		exists, err := tx.PaperExists(ctx, p.ID)
		if err != nil || exists {
			t.Fatalf("PaperExists() before insert = %v, %v", exists, err)
		}
		if err := tx.InsertPaper(ctx, p); err != nil {
			t.Fatalf("InsertPaper() error = %v", err)
		}
		exists, err = tx.PaperExists(ctx, p.ID)
		if err != nil || !exists {
			t.Fatalf("PaperExists() after insert = %v, %v", exists, err)
		}
	})

	got, err := db.GetPaper(ctx, p.ID)
	if err != nil {
		t.Fatalf("GetPaper() error = %v", err)
	}
	if got == nil {
		t.Fatal("GetPaper() returned nil")
	}
	if got.Title != p.Title || got.Abstract != p.Abstract || got.Venue != p.Venue ||
		got.Year != 2020 || got.Volume != "12" || got.DOI != p.DOI || got.Source != reference.SourceDBLP {
		t.Errorf("GetPaper() = %+v, want %+v", got, p)
	}

	missing, err := db.GetPaper(ctx, "nope")
	if err != nil || missing != nil {
		t.Errorf("GetPaper(missing) = %v, %v, want nil, nil", missing, err)
	}
}

func TestInsertPaper_UnknownFieldsAreNull(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	p := reference.Paper{ID: "s2id", Title: "T", Venue: "V", Source: reference.SourceSemanticScholar}
	withTx(t, db, func(tx *Tx) {
		if err := tx.InsertPaper(ctx, p); err != nil {
			t.Fatalf("InsertPaper() error = %v", err)
		}
	})

	var nulls int
	err := db.Conn().QueryRow(`SELECT COUNT(*) FROM papers WHERE year IS NULL AND volume IS NULL AND doi IS NULL`).Scan(&nulls)
	if err != nil {
		t.Fatal(err)
	}
	if nulls != 1 {
		t.Errorf("unknown year/volume/doi should be stored as NULL")
	}

	got, err := db.GetPaper(ctx, "s2id")
	if err != nil {
		t.Fatal(err)
	}
	if got.HasYear() || got.Volume != "" || got.DOI != "" {
		t.Errorf("GetPaper() = %+v, want unknown fields", got)
	}
}

func TestUpdatePaper_KeepsCitationCount(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	withTx(t, db, func(tx *Tx) {
		if err := tx.InsertPaper(ctx, testPaper("a")); err != nil {
			t.Fatal(err)
		}
	})
	if _, err := db.Conn().Exec(`UPDATE papers SET n_citations = 7 WHERE id = 'a'`); err != nil {
		t.Fatal(err)
	}

	updated := reference.Paper{ID: "a", Title: "New", Abstract: "abs", Venue: "NeurIPS", Source: reference.SourceSemanticScholar}
	withTx(t, db, func(tx *Tx) {
		if err := tx.UpdatePaper(ctx, updated); err != nil {
			t.Fatalf("UpdatePaper() error = %v", err)
		}
	})

	got, err := db.GetPaper(ctx, "a")
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "New" || got.Venue != "NeurIPS" || got.HasYear() || got.DOI != "" || got.Source != reference.SourceSemanticScholar {
		t.Errorf("GetPaper() after update = %+v", got)
	}
	if got.Citations != 7 {
		t.Errorf("Citations = %d, want 7 (untouched by update)", got.Citations)
	}
}

func TestAuthorships(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	withTx(t, db, func(tx *Tx) {
		for _, name := range []string{"Alice", "Bob", "Alice"} {
			if err := tx.EnsureAuthor(ctx, name); err != nil {
				t.Fatalf("EnsureAuthor(%q) error = %v", name, err)
			}
		}
		edges := []reference.Authorship{
			{PaperID: "p", AuthorID: "Bob", Position: 2},
			{PaperID: "p", AuthorID: "Alice", Position: 1, ORCID: "0000-0001"},
			{PaperID: "p", AuthorID: "Alice", Position: 1}, // duplicate position
		}
		for _, e := range edges {
			if err := tx.InsertAuthorship(ctx, e); err != nil {
				t.Fatalf("InsertAuthorship() error = %v", err)
			}
		}
	})

	authors, err := db.CountAuthors(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if authors != 2 {
		t.Errorf("CountAuthors() = %d, want 2", authors)
	}

	edges, err := db.PaperAuthorships(ctx, "p")
	if err != nil {
		t.Fatalf("PaperAuthorships() error = %v", err)
	}
	if len(edges) != 2 {
		t.Fatalf("got %d edges, want 2", len(edges))
	}
	if edges[0].AuthorID != "Alice" || edges[0].Position != 1 || edges[0].ORCID != "0000-0001" {
		t.Errorf("edges[0] = %+v", edges[0])
	}
	if edges[1].AuthorID != "Bob" || edges[1].Position != 2 || edges[1].ORCID != "" {
		t.Errorf("edges[1] = %+v", edges[1])
	}
}

func TestInsertCitation_Dedup(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	withTx(t, db, func(tx *Tx) {
		tests := []struct {
			c    reference.Citation
			want bool
		}{
			{reference.Citation{CitingID: "a", CitedID: "b"}, true},
			{reference.Citation{CitingID: "b", CitedID: "a"}, true},
			{reference.Citation{CitingID: "a", CitedID: "b"}, false},
			{reference.Citation{CitingID: "a", CitedID: "a"}, true},
		}
		for _, tt := range tests {
			got, err := tx.InsertCitation(ctx, tt.c)
			if err != nil {
				t.Fatalf("InsertCitation(%v) error = %v", tt.c, err)
			}
			if got != tt.want {
				t.Errorf("InsertCitation(%v) = %v, want %v", tt.c, got, tt.want)
			}
		}
	})

	n, err := db.CountCitations(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if n != 3 {
		t.Errorf("CountCitations() = %d, want 3", n)
	}
}

func TestLedger(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	ok, err := db.IsFileIngested(ctx, "abc")
	if err != nil || ok {
		t.Fatalf("IsFileIngested() before mark = %v, %v", ok, err)
	}

	withTx(t, db, func(tx *Tx) {
		if err := tx.MarkFileIngested(ctx, "abc", "/data/dblp.xml"); err != nil {
			t.Fatalf("MarkFileIngested() error = %v", err)
		}
		if err := tx.MarkFileIngested(ctx, "abc", "/elsewhere/copy.xml"); err != nil {
			t.Fatalf("second MarkFileIngested() error = %v", err)
		}
		ok, err := tx.IsFileIngested(ctx, "abc")
		if err != nil || !ok {
			t.Errorf("Tx.IsFileIngested() = %v, %v", ok, err)
		}
	})

	ok, err = db.IsFileIngested(ctx, "abc")
	if err != nil || !ok {
		t.Errorf("IsFileIngested() after mark = %v, %v", ok, err)
	}
}

func TestRollbackDiscardsWrites(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	tx, err := db.Begin(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if err := tx.InsertPaper(ctx, testPaper("a")); err != nil {
		t.Fatal(err)
	}
	if err := tx.MarkFileIngested(ctx, "h", "p"); err != nil {
		t.Fatal(err)
	}
	if err := tx.Rollback(); err != nil {
		t.Fatalf("Rollback() error = %v", err)
	}

	n, _ := db.CountPapers(ctx)
	ok, _ := db.IsFileIngested(ctx, "h")
	if n != 0 || ok {
		t.Errorf("after rollback: papers = %d, ingested = %v", n, ok)
	}
}

func TestRefreshCitationCounts(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	withTx(t, db, func(tx *Tx) {
		for _, id := range []string{"a", "b", "c"} {
			if err := tx.InsertPaper(ctx, testPaper(id)); err != nil {
				t.Fatal(err)
			}
		}
		for _, c := range []reference.Citation{
			{CitingID: "a", CitedID: "c"},
			{CitingID: "b", CitedID: "c"},
			{CitingID: "x", CitedID: "a"}, // dangling citer still counts
			{CitingID: "c", CitedID: "missing"},
		} {
			if _, err := tx.InsertCitation(ctx, c); err != nil {
				t.Fatal(err)
			}
		}
	})

	if _, err := db.RefreshCitationCounts(ctx); err != nil {
		t.Fatalf("RefreshCitationCounts() error = %v", err)
	}

	want := map[string]int{"a": 1, "b": 0, "c": 2}
	for id, n := range want {
		p, err := db.GetPaper(ctx, id)
		if err != nil {
			t.Fatal(err)
		}
		if p.Citations != n {
			t.Errorf("%s: Citations = %d, want %d", id, p.Citations, n)
		}
	}
}

func TestRebuildWordIndex(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	withTx(t, db, func(tx *Tx) {
		a := testPaper("a")
		a.Title = "graph graph"
		a.Abstract = "tree"
		b := testPaper("b")
		b.Title = "tree"
		for _, p := range []reference.Paper{a, b} {
			if err := tx.InsertPaper(ctx, p); err != nil {
				t.Fatal(err)
			}
		}
	})

	count := func(text string) map[string]int {
		m := make(map[string]int)
		for _, w := range strings.Fields(text) {
			m[w]++
		}
		return m
	}

	// Rebuilding twice must not duplicate pairs.
	for i := 0; i < 2; i++ {
		n, err := db.RebuildWordIndex(ctx, count)
		if err != nil {
			t.Fatalf("RebuildWordIndex() error = %v", err)
		}
		if n != 3 {
			t.Errorf("RebuildWordIndex() = %d pairs, want 3", n)
		}
	}

	var cnt int
	err := db.Conn().QueryRow(`SELECT cnt FROM paper_word_pairs WHERE paper_id = 'a' AND word_id = 'graph'`).Scan(&cnt)
	if err != nil {
		t.Fatal(err)
	}
	if cnt != 2 {
		t.Errorf("cnt(a, graph) = %d, want 2", cnt)
	}
}

func TestListPapers(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	withTx(t, db, func(tx *Tx) {
		for _, id := range []string{"c", "a", "b"} {
			if err := tx.InsertPaper(ctx, testPaper(id)); err != nil {
				t.Fatal(err)
			}
		}
	})

	papers, err := db.ListPapers(ctx, 0)
	if err != nil {
		t.Fatalf("ListPapers() error = %v", err)
	}
	if len(papers) != 3 || papers[0].ID != "a" || papers[2].ID != "c" {
		t.Errorf("ListPapers() ids not ordered: %v", papers)
	}

	limited, err := db.ListPapers(ctx, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("ListPapers(2) returned %d", len(limited))
	}
}
