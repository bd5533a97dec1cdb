// Package normalize turns raw source records into reference.Paper values.
// Everything here is pure: no I/O and no logging.
package normalize

import (
	"strconv"
	"strings"
)

const doiMarker = "doi.org/"

// Title trims surrounding space and strips one trailing period.
// It reports false when nothing is left.
func Title(raw string) (string, bool) {
	t := strings.TrimSpace(raw)
	t = strings.TrimSuffix(t, ".")
	if t == "" {
		return "", false
	}
	return t, true
}

// Year resolves the first run of digits in raw to a calendar year.
// Two-digit forms above 20 are read as 19xx ("92-93" is 1992), forms up
// to 20 as 20xx ("'12" is 2012). Longer runs are taken as given.
func Year(raw string) (int, bool) {
	start := strings.IndexFunc(raw, isDigit)
	if start < 0 {
		return 0, false
	}
	end := start
	for end < len(raw) && isDigit(rune(raw[end])) {
		end++
	}

	v, err := strconv.Atoi(raw[start:end])
	if err != nil {
		return 0, false
	}
	switch {
	case v > 20 && v < 100:
		v += 1900
	case v <= 20:
		v += 2000
	}
	return v, true
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// DOIFromURL returns everything after the first "doi.org/" in s, or "".
func DOIFromURL(s string) string {
	_, doi, ok := strings.Cut(s, doiMarker)
	if !ok {
		return ""
	}
	return strings.TrimSpace(doi)
}

// DBLPVolume coerces a volume to canonical integer text. Anything that is
// not a plain integer ("12-13", "II") is unknown.
func DBLPVolume(raw string) string {
	v, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return strconv.Itoa(v)
}

// S2Volume turns a free-form journal volume into a token by replacing
// spaces with underscores.
func S2Volume(raw string) string {
	return strings.ReplaceAll(strings.TrimSpace(raw), " ", "_")
}
