package textnorm

import (
	"regexp"
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Normalizer canonicalizes raw feedback text. The exact same pipeline
// runs at training time (offline) and at inference time; any change
// here must be mirrored in the trainer before the model is re-exported.
type Normalizer struct {
	slang     []slangRule
	stopwords map[string]struct{}
}

type slangRule struct {
	re *regexp.Regexp
	to string
}

var (
	punctRunRe   = regexp.MustCompile(`(\.)\.+|(!)!+|(\?)\?+`)
	digitTokenRe = regexp.MustCompile(`\b\d+\b`)
	spaceRe      = regexp.MustCompile(`\s+`)
	// Same token shape the model trainer uses: 3+ latin letters.
	tokenRe = regexp.MustCompile(`[a-záàâãéèêíìîóòôõúùûç]{3,}`)
)

// Ordered substitution table for Brazilian-Portuguese gym slang and
// chat shorthand. Entries with an empty replacement delete the token
// (laughter, interjections). Patterns run against lowercased,
// de-accented text, in this order.
var defaultSlang = []struct {
	pattern string
	to      string
}{
	{`\bk{2,}\b`, ""},
	{`\b(?:rs){2,}\b`, ""},
	{`\bha(?:ha)+\b`, ""},
	{`\bhe(?:he)+\b`, ""},
	{`\baf{2,}\b`, ""},
	{`\beita\b`, ""},
	{`\baham\b`, ""},
	{`\bvcs\b`, "voces"},
	{`\bvc\b`, "voce"},
	{`\bpq\b`, "porque"},
	{`\bq\b`, "que"},
	{`\boq\b`, "o que"},
	{`\btbm?\b`, "tambem"},
	{`\bblz\b`, "beleza"},
	{`\bmto\b`, "muito"},
	{`\bmta\b`, "muita"},
	{`\bmt\b`, "muito"},
	{`\btd\b`, "tudo"},
	{`\btds\b`, "todos"},
	{`\bmsm\b`, "mesmo"},
	{`\bq(?:do|nd)\b`, "quando"},
	{`\bhj\b`, "hoje"},
	{`\bamnh\b`, "amanha"},
	{`\bcmg\b`, "comigo"},
	{`\bobg\b`, "obrigado"},
	{`\bvlw\b`, "valeu"},
	{`\bflw\b`, "falou"},
	{`\bnaum\b`, "nao"},
	{`\bsoh\b`, "so"},
	{`\beh\b`, "e"},
	{`\bpfv\b`, "por favor"},
	{`\bpra\b`, "para"},
}

// New returns a Normalizer with the built-in lexicon.
func New() *Normalizer {
	n := &Normalizer{stopwords: make(map[string]struct{})}
	for _, s := range defaultSlang {
		n.slang = append(n.slang, slangRule{re: regexp.MustCompile(s.pattern), to: s.to})
	}
	for _, w := range generalStopwords {
		n.stopwords[w] = struct{}{}
	}
	for _, w := range domainStopwords {
		n.stopwords[w] = struct{}{}
	}
	return n
}

// Normalize canonicalizes raw text. It never fails and is idempotent:
// normalizing an already-normalized string returns it unchanged.
//
// Steps, in order: lowercase; strip diacritics; ordered slang
// substitutions; collapse repeated ./!/? runs; drop standalone digit
// tokens (digits glued to letters, like "24h", survive); collapse
// whitespace; trim.
func (n *Normalizer) Normalize(s string) string {
	s = strings.ToLower(s)
	s = stripDiacritics(s)
	for _, r := range n.slang {
		s = r.re.ReplaceAllString(s, r.to)
	}
	s = punctRunRe.ReplaceAllString(s, "$1$2$3")
	s = digitTokenRe.ReplaceAllString(s, " ")
	s = spaceRe.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// Tokens extracts word tokens of 3+ letters from normalized text.
func (n *Normalizer) Tokens(normalized string) []string {
	return tokenRe.FindAllString(normalized, -1)
}

func (n *Normalizer) IsStopword(word string) bool {
	_, ok := n.stopwords[word]
	return ok
}

// SignalTokens runs the full token pipeline on already-normalized
// text: tokenize, drop stopwords, stem. This is the word stream the
// frequency aggregator counts.
func (n *Normalizer) SignalTokens(normalized string) []string {
	var out []string
	for _, tok := range n.Tokens(normalized) {
		if n.IsStopword(tok) {
			continue
		}
		out = append(out, Stem(tok))
	}
	return out
}

func stripDiacritics(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		return s
	}
	return out
}
