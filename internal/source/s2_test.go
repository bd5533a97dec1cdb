package source

import (
	"compress/gzip"
	"encoding/json"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeGzip(t *testing.T, path, content string) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	zw := gzip.NewWriter(f)
	if _, err := zw.Write([]byte(content)); err != nil {
		t.Fatal(err)
	}
	if err := zw.Close(); err != nil {
		t.Fatal(err)
	}
	if err := f.Close(); err != nil {
		t.Fatal(err)
	}
}

func TestS2Reader_Lines(t *testing.T) {
	input := strings.Join([]string{
		`{"id":"p1","title":"Attention","venue":"NeurIPS","year":2017,"journalVolume":"30 A","inCitations":["c1"],"outCitations":["r1","r2"]}`,
		`{not json`,
		``,
		`{"id":"p2","title":"No Venue"}`,
		`{"id":"p3","title":"Numeric venue","venue":42,"doiUrl":"https://doi.org/10.1/x"}`,
	}, "\n")

	r := NewS2Reader(strings.NewReader(input), S2Options{RequirePaperFields: true})

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.ID != "p1" || rec.TitleText() != "Attention" || rec.VenueText() != "NeurIPS" {
		t.Errorf("first record = %+v", rec)
	}
	if rec.Year != "2017" || rec.JournalVolume != "30 A" || rec.Line != 1 {
		t.Errorf("Year/Volume/Line = %q/%q/%d", rec.Year, rec.JournalVolume, rec.Line)
	}
	if len(rec.InCitations) != 1 || len(rec.OutCitations) != 2 {
		t.Errorf("citations = %v / %v", rec.InCitations, rec.OutCitations)
	}

	_, err = r.Next()
	var skip *SkipError
	if !errors.As(err, &skip) || skip.Line != 2 || skip.Err == nil {
		t.Fatalf("second Next() = %v, want malformed-json skip at line 2", err)
	}

	_, err = r.Next()
	if !errors.As(err, &skip) || skip.Line != 4 || skip.Reason != "missing venue" {
		t.Fatalf("third Next() = %v, want missing venue at line 4", err)
	}

	rec, err = r.Next()
	if err != nil {
		t.Fatalf("fourth Next() error = %v", err)
	}
	if rec.VenueText() != "42" || rec.DOIURL != "https://doi.org/10.1/x" || rec.Line != 5 {
		t.Errorf("last record = %+v", rec)
	}

	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() at end = %v, want io.EOF", err)
	}
}

func TestS2Reader_WithoutRequiredFields(t *testing.T) {
	r := NewS2Reader(strings.NewReader(`{"id":"p2","outCitations":["x"]}`+"\n"), S2Options{})
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.Title != nil || rec.Venue != nil {
		t.Errorf("absent title/venue decoded as %v/%v", rec.Title, rec.Venue)
	}
	if _, err := r.Next(); err != io.EOF {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
}

func TestS2Reader_NullVersusEmpty(t *testing.T) {
	input := `{"id":"a","title":null,"venue":""}` + "\n" + `{"id":"b","title":"","venue":""}` + "\n"
	r := NewS2Reader(strings.NewReader(input), S2Options{RequirePaperFields: true})

	if _, err := r.Next(); !errors.Is(err, ErrSkip) {
		t.Fatalf("null title: Next() = %v, want ErrSkip", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("empty title: Next() error = %v", err)
	}
	if rec.Title == nil || rec.Venue == nil {
		t.Error("empty strings should be present, not absent")
	}
}

func TestS2Reader_LongLine(t *testing.T) {
	abstract := strings.Repeat("a", 1<<20)
	line, err := json.Marshal(map[string]string{"id": "long", "title": "t", "venue": "v", "paperAbstract": abstract})
	if err != nil {
		t.Fatal(err)
	}

	r := NewS2Reader(strings.NewReader(string(line)), S2Options{RequirePaperFields: true})
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if len(rec.Abstract) != len(abstract) {
		t.Errorf("abstract length = %d, want %d", len(rec.Abstract), len(abstract))
	}
}

func TestOpenS2_Gzip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "s2-corpus-000.gz")
	writeGzip(t, path, `{"id":"g1","title":"Zipped","venue":"V"}`+"\n")

	r, err := OpenS2(path, S2Options{RequirePaperFields: true})
	if err != nil {
		t.Fatalf("OpenS2() error = %v", err)
	}
	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.ID != "g1" {
		t.Errorf("ID = %q, want g1", rec.ID)
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestOpenS2_PlainFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2-corpus-001")
	if err := os.WriteFile(path, []byte(`{"id":"x","title":"T","venue":"V"}`), 0644); err != nil {
		t.Fatal(err)
	}
	r, err := OpenS2(path, S2Options{})
	if err != nil {
		t.Fatalf("OpenS2() error = %v", err)
	}
	defer r.Close()

	rec, err := r.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if rec.ID != "x" {
		t.Errorf("ID = %q, want x", rec.ID)
	}
}

func TestOpenS2_CorruptGzip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "s2-corpus-002.gz")
	if err := os.WriteFile(path, []byte("this is not gzip"), 0644); err != nil {
		t.Fatal(err)
	}
	if _, err := OpenS2(path, S2Options{}); err == nil {
		t.Error("OpenS2() expected error for corrupt gzip header")
	}
}

func TestFlexibleString(t *testing.T) {
	tests := []struct {
		name  string
		input string
		want  string
	}{
		{"string", `"Nature"`, "Nature"},
		{"integer", `2019`, "2019"},
		{"null", `null`, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var f FlexibleString
			if err := json.Unmarshal([]byte(tt.input), &f); err != nil {
				t.Fatalf("UnmarshalJSON() error = %v", err)
			}
			if f.String() != tt.want {
				t.Errorf("String() = %q, want %q", f.String(), tt.want)
			}
		})
	}

	var f FlexibleString
	if err := json.Unmarshal([]byte(`[1]`), &f); err == nil {
		t.Error("UnmarshalJSON() expected error for array")
	}
}
