// Package export writes stored papers in bibliography formats.
package export

import (
	"bufio"
	"fmt"
	"io"
	"strings"

	"github.com/aipdata/aip/internal/reference"
)

// KeyPrefix is prepended to DBLP keys, matching the keys dblp.org publishes.
const KeyPrefix = "DBLP:"

// ToBibTeX converts a paper to a BibTeX entry.
func ToBibTeX(p reference.Paper) string {
	kind := entryType(p)
	var b strings.Builder

	fmt.Fprintf(&b, "@%s{%s,\n", kind, citeKey(p))

	if len(p.Authors) > 0 {
		fmt.Fprintf(&b, "  author = {%s},\n", formatAuthors(p.Authors))
	}
	fmt.Fprintf(&b, "  title = {%s},\n", escapeLatex(p.Title))

	if p.Venue != "" {
		field := "journal"
		if kind == "inproceedings" {
			field = "booktitle"
		}
		fmt.Fprintf(&b, "  %s = {%s},\n", field, escapeLatex(p.Venue))
	}
	if p.Volume != "" {
		fmt.Fprintf(&b, "  volume = {%s},\n", escapeLatex(p.Volume))
	}
	if p.HasYear() {
		fmt.Fprintf(&b, "  year = {%d},\n", p.Year)
	}
	if p.DOI != "" {
		fmt.Fprintf(&b, "  doi = {%s},\n", p.DOI)
	}
	if p.Abstract != "" {
		fmt.Fprintf(&b, "  abstract = {%s},\n", escapeLatex(p.Abstract))
	}

	b.WriteString("}\n")
	return b.String()
}

// WriteBibTeX writes one entry per paper, separated by blank lines.
func WriteBibTeX(w io.Writer, papers []reference.Paper) error {
	bw := bufio.NewWriter(w)
	for i, p := range papers {
		if i > 0 {
			bw.WriteString("\n")
		}
		if _, err := bw.WriteString(ToBibTeX(p)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

func citeKey(p reference.Paper) string {
	if p.Source == reference.SourceDBLP {
		return KeyPrefix + p.ID
	}
	return p.ID
}

// entryType guesses the entry type from the venue. A volume means a journal.
func entryType(p reference.Paper) string {
	if p.Volume != "" {
		return "article"
	}
	venue := strings.ToLower(p.Venue)
	for _, marker := range []string{"proceedings", "conference", "workshop", "symposium", "conf."} {
		if strings.Contains(venue, marker) {
			return "inproceedings"
		}
	}
	return "article"
}

// formatAuthors joins full names in byline order.
func formatAuthors(authors []reference.Author) string {
	names := make([]string, len(authors))
	for i, a := range authors {
		names[i] = escapeLatex(a.Name)
	}
	return strings.Join(names, " and ")
}

// escapeLatex escapes special LaTeX characters.
func escapeLatex(s string) string {
	// & must be first
	replacer := strings.NewReplacer(
		"&", `\&`,
		"%", `\%`,
		"$", `\$`,
		"#", `\#`,
		"_", `\_`,
		"{", `\{`,
		"}", `\}`,
		"~", `\textasciitilde{}`,
		"^", `\textasciicircum{}`,
	)
	return replacer.Replace(s)
}
