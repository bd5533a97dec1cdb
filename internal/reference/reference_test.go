package reference

import (
	"errors"
	"testing"
)

func TestPaper_Validate(t *testing.T) {
	valid := Paper{ID: "conf/x/Y20", Title: "A Study", Venue: "ICSE", Year: 2020, Source: SourceDBLP}

	tests := []struct {
		name    string
		mutate  func(p *Paper)
		wantErr error
	}{
		{"valid", func(p *Paper) {}, nil},
		{"missing id", func(p *Paper) { p.ID = "" }, ErrEmptyID},
		{"missing title", func(p *Paper) { p.Title = "" }, ErrEmptyTitle},
		{"missing venue", func(p *Paper) { p.Venue = "" }, ErrEmptyVenue},
		{"unknown source", func(p *Paper) { p.Source = "crossref" }, ErrBadSource},
		{"unknown year is fine", func(p *Paper) { p.Year = 0 }, nil},
		{"author without name", func(p *Paper) { p.Authors = []Author{{Position: 1}} }, ErrEmptyAuthorName},
		{"author without position", func(p *Paper) { p.Authors = []Author{{Name: "Alice"}} }, ErrBadPosition},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := valid
			tt.mutate(&p)
			err := p.Validate()
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestAuthor_EdgeFor(t *testing.T) {
	a := Author{Name: "Alice", ORCID: "0000-0001-2345-6789", Position: 2}
	got := a.EdgeFor("conf/x/Y20")
	want := Authorship{PaperID: "conf/x/Y20", AuthorID: "Alice", Position: 2, ORCID: "0000-0001-2345-6789"}
	if got != want {
		t.Errorf("EdgeFor() = %+v, want %+v", got, want)
	}
}

func TestCitationsOf(t *testing.T) {
	got := CitationsOf("p", []string{"a", ""}, []string{"b", "c"})
	want := []Citation{
		{CitingID: "a", CitedID: "p"},
		{CitingID: "p", CitedID: "b"},
		{CitingID: "p", CitedID: "c"},
	}
	if len(got) != len(want) {
		t.Fatalf("CitationsOf() returned %d edges, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("edge %d = %+v, want %+v", i, got[i], want[i])
		}
	}

	if edges := CitationsOf("p", nil, nil); len(edges) != 0 {
		t.Errorf("CitationsOf() with no lists = %v, want empty", edges)
	}
}
