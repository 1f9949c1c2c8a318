// Package names canonicalizes business names for fuzzy comparison.
package names

import (
	"regexp"
	"strings"
)

// legalSuffixes are entity-form tokens that carry no identity signal and are
// dropped during normalization.
var legalSuffixes = map[string]struct{}{
	"ag": {}, "gmbh": {}, "sa": {}, "sarl": {}, "sàrl": {}, "llc": {},
	"ltd": {}, "limited": {}, "inc": {}, "corp": {}, "s.p.a": {}, "spa": {},
	"bv": {}, "nv": {}, "kg": {}, "ohg": {}, "ug": {}, "gbr": {}, "kft": {},
	"sro": {}, "s.r.o": {}, "oy": {}, "ab": {}, "as": {}, "aps": {},
}

var punctRe = regexp.MustCompile("[’'`\"\\.,:;()\\-_/\\\\]+")

// Normalize lower-cases a business name, strips punctuation and quotes, and
// drops legal-entity suffix tokens. The result is a space-joined canonical
// token sequence suitable for equality and overlap comparison.
func Normalize(name string) string {
	s := strings.ToLower(strings.TrimSpace(name))
	s = punctRe.ReplaceAllString(s, " ")

	var kept []string
	for _, tok := range strings.Fields(s) {
		if _, drop := legalSuffixes[tok]; drop {
			continue
		}
		kept = append(kept, tok)
	}
	return strings.Join(kept, " ")
}

// Tokens returns the normalized token set of a name.
func Tokens(name string) []string {
	return strings.Fields(Normalize(name))
}

// Overlap counts tokens shared between two normalized names.
func Overlap(a, b string) int {
	set := make(map[string]struct{})
	for _, tok := range strings.Fields(a) {
		set[tok] = struct{}{}
	}
	n := 0
	seen := make(map[string]struct{})
	for _, tok := range strings.Fields(b) {
		if _, dup := seen[tok]; dup {
			continue
		}
		seen[tok] = struct{}{}
		if _, ok := set[tok]; ok {
			n++
		}
	}
	return n
}
