// Package textnorm canonicalizes free text for accent- and case-insensitive
// substring matching.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// stripMarks drops nonspacing combining marks, the accents NFKD splits off
// their base letters. Letters of any script survive.
var stripMarks = runes.Remove(runes.In(unicode.Mn))

// Normalize returns text decomposed with NFKD, stripped of combining marks,
// recomposed with NFC and lowercased. "Órdem" and "ordem" normalize to the
// same string; "Меч" stays "меч".
func Normalize(text string) string {
	if text == "" {
		return ""
	}
	// A fresh chain per call: transform.Chain keeps internal buffers and is
	// not safe for concurrent use.
	t := transform.Chain(norm.NFKD, stripMarks, norm.NFC)
	out, _, err := transform.String(t, text)
	if err != nil {
		// transform.String only fails on malformed transformer state; fall
		// back to the lowercase input rather than lose the term.
		return strings.ToLower(text)
	}
	return strings.ToLower(out)
}

// Contains reports whether the normalized haystack contains the normalized
// needle.
func Contains(haystack, needle string) bool {
	return strings.Contains(Normalize(haystack), Normalize(needle))
}
