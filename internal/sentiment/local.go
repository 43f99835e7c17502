package sentiment

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"regexp"
	"strings"
)

// LocalModel runs inference against the artifact exported by the
// offline trainer: a TF-IDF vocabulary plus one-vs-rest logistic
// regression weights. All fields are immutable after load, so a single
// instance serves overlapping job runs.
type LocalModel struct {
	version    string
	classes    []string
	vocab      map[string]int
	idf        []float64
	coef       [][]float64
	intercepts []float64
	ngramMax   int
}

type modelArtifact struct {
	Version    string             `json:"version"`
	Classes    []string           `json:"classes"`
	Vocabulary map[string]int     `json:"vocabulary"`
	IDF        []float64          `json:"idf"`
	Coef       [][]float64        `json:"coef"`
	Intercepts []float64          `json:"intercept"`
	NgramMax   int                `json:"ngram_max"`
}

// featureTokenRe matches the trainer's feature tokenization: word
// characters, 2+ long.
var featureTokenRe = regexp.MustCompile(`\b\w\w+\b`)

// LoadLocalModel reads and validates the artifact. A missing file is
// ErrModelUnavailable.
func LoadLocalModel(path string) (*LocalModel, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrModelUnavailable, path)
		}
		return nil, fmt.Errorf("read sentiment model: %w", err)
	}

	var art modelArtifact
	if err := json.Unmarshal(data, &art); err != nil {
		return nil, fmt.Errorf("parse sentiment model %s: %w", path, err)
	}

	features := len(art.IDF)
	if len(art.Classes) == 0 || features == 0 {
		return nil, fmt.Errorf("sentiment model %s: empty classes or vocabulary", path)
	}
	if len(art.Coef) != len(art.Classes) || len(art.Intercepts) != len(art.Classes) {
		return nil, fmt.Errorf("sentiment model %s: %d classes but %d coefficient rows / %d intercepts",
			path, len(art.Classes), len(art.Coef), len(art.Intercepts))
	}
	for i, row := range art.Coef {
		if len(row) != features {
			return nil, fmt.Errorf("sentiment model %s: coefficient row %d has %d features, expected %d",
				path, i, len(row), features)
		}
	}
	for term, idx := range art.Vocabulary {
		if idx < 0 || idx >= features {
			return nil, fmt.Errorf("sentiment model %s: term %q maps outside feature space", path, term)
		}
	}
	ngramMax := art.NgramMax
	if ngramMax < 1 {
		ngramMax = 2
	}

	return &LocalModel{
		version:    art.Version,
		classes:    art.Classes,
		vocab:      art.Vocabulary,
		idf:        art.IDF,
		coef:       art.Coef,
		intercepts: art.Intercepts,
		ngramMax:   ngramMax,
	}, nil
}

func (m *LocalModel) Version() string { return m.version }

func (m *LocalModel) Classify(ctx context.Context, texts []string) ([]Prediction, error) {
	out := make([]Prediction, len(texts))
	for i, text := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = m.predict(text)
	}
	return out, nil
}

func (m *LocalModel) predict(text string) Prediction {
	x := m.vectorize(text)

	// One-vs-rest: sigmoid per class, normalized to a distribution.
	probs := make([]float64, len(m.classes))
	var sum float64
	for c := range m.classes {
		score := m.intercepts[c]
		for idx, v := range x {
			score += m.coef[c][idx] * v
		}
		probs[c] = 1.0 / (1.0 + math.Exp(-score))
		sum += probs[c]
	}

	best := 0
	for c := range probs {
		if sum > 0 {
			probs[c] /= sum
		}
		if probs[c] > probs[best] {
			best = c
		}
	}
	return Prediction{Label: m.classes[best], Confidence: probs[best]}
}

// vectorize builds the sparse L2-normalized TF-IDF vector for one
// already-normalized text.
func (m *LocalModel) vectorize(text string) map[int]float64 {
	tokens := featureTokenRe.FindAllString(strings.ToLower(text), -1)

	tf := make(map[int]float64)
	for n := 1; n <= m.ngramMax; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			term := strings.Join(tokens[i:i+n], " ")
			if idx, ok := m.vocab[term]; ok {
				tf[idx]++
			}
		}
	}

	var norm float64
	for idx, count := range tf {
		v := count * m.idf[idx]
		tf[idx] = v
		norm += v * v
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for idx := range tf {
			tf[idx] /= norm
		}
	}
	return tf
}
