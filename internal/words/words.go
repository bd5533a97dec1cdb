// Package words tokenizes titles and abstracts for the word index.
package words

import (
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// MinLength is the shortest token kept.
const MinLength = 3

var stopWords = map[string]bool{
	"and": true, "are": true, "as": true, "at": true, "be": true, "but": true,
	"by": true, "can": true, "for": true, "from": true, "has": true, "have": true,
	"how": true, "into": true, "its": true, "not": true, "our": true, "that": true,
	"the": true, "their": true, "these": true, "this": true, "those": true,
	"using": true, "via": true, "was": true, "were": true, "what": true,
	"when": true, "which": true, "while": true, "with": true, "within": true,
	"without": true, "you": true, "your": true, "we": true, "all": true,
	"also": true, "been": true, "both": true, "each": true, "more": true,
	"most": true, "such": true, "than": true, "then": true, "there": true,
	"they": true, "over": true, "under": true, "between": true, "through": true,
	"new": true, "two": true, "one": true, "may": true, "show": true, "based": true,
}

// Tokenize splits text into lower-cased runs of letters and digits in NFC
// form, dropping stop words and tokens shorter than MinLength.
func Tokenize(text string) []string {
	text = norm.NFC.String(text)
	fields := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.ToLower(f)
		if len([]rune(f)) < MinLength || stopWords[f] {
			continue
		}
		tokens = append(tokens, f)
	}
	return tokens
}

// Count returns how often each token occurs in text.
func Count(text string) map[string]int {
	counts := make(map[string]int)
	for _, tok := range Tokenize(text) {
		counts[tok]++
	}
	return counts
}
