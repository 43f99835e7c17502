package textnorm

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Lexicon is an optional YAML extension of the built-in tables, so
// operators can add local slang and stopwords without a rebuild.
// Extensions append after the built-in rules and keep file order.
type Lexicon struct {
	Slang     []SlangEntry `yaml:"slang"`
	Stopwords []string     `yaml:"stopwords"`
}

type SlangEntry struct {
	From string `yaml:"from"`
	To   string `yaml:"to"`
}

func LoadLexicon(path string) (*Lexicon, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lexicon: %w", err)
	}
	var lex Lexicon
	if err := yaml.Unmarshal(data, &lex); err != nil {
		return nil, fmt.Errorf("parse lexicon yaml: %w", err)
	}
	return &lex, nil
}

// ApplyLexicon registers the extension rules. Must be called before
// the normalizer is shared with running jobs.
func (n *Normalizer) ApplyLexicon(lex *Lexicon) error {
	for _, entry := range lex.Slang {
		from := strings.ToLower(strings.TrimSpace(entry.From))
		if from == "" {
			continue
		}
		re, err := regexp.Compile(`\b` + regexp.QuoteMeta(from) + `\b`)
		if err != nil {
			return fmt.Errorf("compile slang rule %q: %w", from, err)
		}
		n.slang = append(n.slang, slangRule{re: re, to: strings.ToLower(strings.TrimSpace(entry.To))})
	}
	for _, w := range lex.Stopwords {
		w = strings.ToLower(strings.TrimSpace(w))
		if w != "" {
			n.stopwords[w] = struct{}{}
		}
	}
	return nil
}
