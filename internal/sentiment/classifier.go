package sentiment

import (
	"context"
	"errors"
)

// Prediction is one classifier verdict: the raw label string (mapped
// onto the closed sentiment set by the job) and the top-class
// probability.
type Prediction struct {
	Label      string
	Confidence float64
}

// Classifier is the capability the classification job depends on. The
// concrete model is loaded once at startup and must be safe for
// concurrent read-only inference.
type Classifier interface {
	Classify(ctx context.Context, texts []string) ([]Prediction, error)
}

// ErrModelUnavailable means the trained artifact is missing at
// startup. Fatal for the classification path, nothing else.
var ErrModelUnavailable = errors.New("sentiment model artifact unavailable")
