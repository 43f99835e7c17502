package textnorm

import "strings"

// minStemLen guards the plural rules so short words are not mangled
// ("mes" must not become "me").
const minStemLen = 3

// Suffix rules in priority order, written in de-accented form since
// they apply after normalization. The first rule whose suffix matches
// and whose guard passes is applied; rules are never chained.
var suffixRules = []struct {
	suffix  string
	replace string
	guarded bool
}{
	{suffix: "oes", replace: "ao"},
	{suffix: "aes", replace: "ao"},
	{suffix: "coes", replace: "cao"},
	{suffix: "mente", replace: ""},
	{suffix: "s", replace: "", guarded: true},
	{suffix: "es", replace: "", guarded: true},
}

// Stem reduces a normalized token via the first matching suffix rule.
func Stem(word string) string {
	for _, r := range suffixRules {
		if !strings.HasSuffix(word, r.suffix) {
			continue
		}
		stem := strings.TrimSuffix(word, r.suffix) + r.replace
		if r.guarded && len(stem) < minStemLen {
			continue
		}
		return stem
	}
	return word
}
