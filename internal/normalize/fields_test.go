package normalize

import "testing"

func TestTitle(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"A Study.", "A Study", true},
		{"  Padded title  ", "Padded title", true},
		{"Ends with ellipsis...", "Ends with ellipsis..", true},
		{"No period", "No period", true},
		{"", "", false},
		{"   ", "", false},
		{".", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Title(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Title(%q) = %q, %v, want %q, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestYear(t *testing.T) {
	tests := []struct {
		raw    string
		want   int
		wantOK bool
	}{
		{"2019", 2019, true},
		{"93", 1993, true},
		{"92-93", 1992, true},
		{"'12", 2012, true},
		{"'20", 2020, true},
		{"21", 1921, true},
		{"99", 1999, true},
		{"0", 2000, true},
		{"100", 100, true},
		{"circa 1987", 1987, true},
		{"unknown", 0, false},
		{"", 0, false},
		{"99999999999999999999999", 0, false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Year(tt.raw)
			if got != tt.want || ok != tt.wantOK {
				t.Errorf("Year(%q) = %d, %v, want %d, %v", tt.raw, got, ok, tt.want, tt.wantOK)
			}
		})
	}
}

func TestDOIFromURL(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"https://doi.org/10.1145/123.456", "10.1145/123.456"},
		{"http://dx.doi.org/10.1007/abc", "10.1007/abc"},
		{"https://example.org/paper", ""},
		{"", ""},
	}
	for _, tt := range tests {
		if got := DOIFromURL(tt.in); got != tt.want {
			t.Errorf("DOIFromURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestVolumes(t *testing.T) {
	dblp := map[string]string{
		"12":    "12",
		" 007 ": "7",
		"12-13": "",
		"II":    "",
		"":      "",
	}
	for raw, want := range dblp {
		if got := DBLPVolume(raw); got != want {
			t.Errorf("DBLPVolume(%q) = %q, want %q", raw, got, want)
		}
	}

	s2 := map[string]string{
		"30 A":   "30_A",
		"12":     "12",
		"  ":     "",
		"a b  c": "a_b__c",
	}
	for raw, want := range s2 {
		if got := S2Volume(raw); got != want {
			t.Errorf("S2Volume(%q) = %q, want %q", raw, got, want)
		}
	}
}
