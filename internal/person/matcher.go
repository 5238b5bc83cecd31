// Package person normalizes and compares person names against recognizer
// output. It is the single source of truth for "do these two names refer
// to the same public figure".
package person

import (
	"strings"
	"unicode"

	"github.com/lumenpath/investigator/internal/model"
)

// honorifics are stripped at normalization time; the recognizer sometimes
// includes them, sometimes doesn't.
var honorifics = map[string]bool{
	"mr": true, "mrs": true, "ms": true, "mx": true, "dr": true,
	"sir": true, "dame": true, "lord": true, "lady": true,
	"jr": true, "sr": true, "ii": true, "iii": true, "iv": true,
}

// accentFold maps common accented Latin letters to their unaccented base.
// Covers the names most likely to appear in search/recognizer output
// (Beyoncé, Zoë, Céline, ...); anything outside this table passes through.
var accentFold = map[rune]rune{
	'à': 'a', 'á': 'a', 'â': 'a', 'ã': 'a', 'ä': 'a', 'å': 'a',
	'è': 'e', 'é': 'e', 'ê': 'e', 'ë': 'e',
	'ì': 'i', 'í': 'i', 'î': 'i', 'ï': 'i',
	'ò': 'o', 'ó': 'o', 'ô': 'o', 'õ': 'o', 'ö': 'o',
	'ù': 'u', 'ú': 'u', 'û': 'u', 'ü': 'u',
	'ý': 'y', 'ÿ': 'y',
	'ñ': 'n', 'ç': 'c',
	'À': 'A', 'Á': 'A', 'Â': 'A', 'Ã': 'A', 'Ä': 'A', 'Å': 'A',
	'È': 'E', 'É': 'E', 'Ê': 'E', 'Ë': 'E',
	'Ì': 'I', 'Í': 'I', 'Î': 'I', 'Ï': 'I',
	'Ò': 'O', 'Ó': 'O', 'Ô': 'O', 'Õ': 'O', 'Ö': 'O',
	'Ù': 'U', 'Ú': 'U', 'Û': 'U', 'Ü': 'U',
	'Ý': 'Y', 'Ñ': 'N', 'Ç': 'C',
}

func foldAccents(r rune) rune {
	if base, ok := accentFold[r]; ok {
		return base
	}
	return r
}

// Normalize lowercases, accent-folds, trims, collapses internal whitespace,
// strips punctuation, and drops honorific tokens. It is the normalized key
// used by Person and by every name comparison in this package.
func Normalize(name string) string {
	folded := strings.Map(foldAccents, name)
	folded = strings.ToLower(folded)

	var b strings.Builder
	b.Grow(len(folded))
	for _, r := range folded {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), unicode.IsSpace(r):
			b.WriteRune(r)
		default:
			b.WriteRune(' ')
		}
	}

	fields := strings.Fields(b.String())
	kept := fields[:0]
	for _, f := range fields {
		if honorifics[f] {
			continue
		}
		kept = append(kept, f)
	}
	return strings.Join(kept, " ")
}

// NewPerson builds a Person from a display name, normalizing it for the
// matching key.
func NewPerson(name string) model.Person {
	return model.Person{Name: name, Key: Normalize(name)}
}

// Equal reports whether two names refer to the same normalized person.
func Equal(a, b string) bool {
	return Matches(a, b)
}

// Matches reports whether two names match: either their normalized keys
// are equal, or one key's tokens are a contiguous subsequence of the
// other's (tolerating an added middle name or a dropped suffix).
func Matches(a, b string) bool {
	ka, kb := Normalize(a), Normalize(b)
	if ka == kb {
		return true
	}
	if ka == "" || kb == "" {
		return false
	}
	ta, tb := strings.Fields(ka), strings.Fields(kb)
	return isContiguousSubsequence(ta, tb) || isContiguousSubsequence(tb, ta)
}

// isContiguousSubsequence reports whether short appears, in order and
// without gaps, somewhere inside long.
func isContiguousSubsequence(short, long []string) bool {
	if len(short) == 0 || len(short) > len(long) {
		return false
	}
	for start := 0; start+len(short) <= len(long); start++ {
		match := true
		for i, tok := range short {
			if long[start+i] != tok {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return false
}

// FindCelebrity returns the first detection in detections whose name
// matches target and whose confidence is at or above threshold, else ok is
// false. Ties (multiple matching detections) are broken by highest
// confidence.
func FindCelebrity(detections []model.DetectedCelebrity, target string, threshold float64) (model.DetectedCelebrity, bool) {
	var best model.DetectedCelebrity
	found := false
	for _, d := range detections {
		if d.Confidence < threshold {
			continue
		}
		if !Matches(d.Name, target) {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}
