package sentiment

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"

	"fitmetrics/internal/domain"
	"fitmetrics/internal/storage/sqlite"
	"fitmetrics/internal/textnorm"
)

const defaultTopWords = 10

// Job labels pending feedback and rebuilds the per-sentiment word
// frequency aggregates.
type Job struct {
	db         *sql.DB
	classifier Classifier
	norm       *textnorm.Normalizer
	topN       int
}

func NewJob(db *sql.DB, classifier Classifier, norm *textnorm.Normalizer, topN int) *Job {
	if topN < 1 {
		topN = defaultTopWords
	}
	return &Job{db: db, classifier: classifier, norm: norm, topN: topN}
}

// RunCycle classifies every unresolved feedback in one commit, then
// rebuilds the word-frequency table. With nothing pending the whole
// run is a no-op, aggregation included.
func (j *Job) RunCycle(ctx context.Context) (domain.ClassificationSummary, error) {
	summary := domain.ClassificationSummary{PerLabel: make(map[domain.Sentiment]int)}

	pending, err := sqlite.UnresolvedFeedbacks(j.db)
	if err != nil {
		return summary, fmt.Errorf("load unresolved feedback: %w", err)
	}
	if len(pending) == 0 {
		log.Println("classify run: no pending feedback, word frequencies kept")
		return summary, nil
	}
	log.Printf("classify run items=%d", len(pending))

	normalized := make([]string, len(pending))
	for i, rec := range pending {
		normalized[i] = j.norm.Normalize(rec.Text)
	}

	preds, err := j.classifier.Classify(ctx, normalized)
	if err != nil {
		return summary, fmt.Errorf("classify batch: %w", err)
	}
	if len(preds) != len(pending) {
		return summary, fmt.Errorf("classifier returned %d predictions for %d items", len(preds), len(pending))
	}

	updates := make([]sqlite.SentimentUpdate, len(pending))
	var confidenceSum float64
	for i, pred := range preds {
		label, ok := domain.ParseSentiment(pred.Label)
		if !ok {
			log.Printf("classify unknown label=%q id=%s -> neutral", pred.Label, pending[i].ID)
			summary.Unrecognized++
		}
		updates[i] = sqlite.SentimentUpdate{ID: pending[i].ID, Sentiment: label, Confidence: pred.Confidence}
		summary.PerLabel[label]++
		confidenceSum += pred.Confidence
	}

	if err := sqlite.ApplySentiments(j.db, updates); err != nil {
		return summary, fmt.Errorf("persist classifications: %w", err)
	}
	summary.Processed = len(pending)
	summary.MeanConfidence = confidenceSum / float64(len(pending))

	log.Printf("classify run done processed=%d positive=%d negative=%d neutral=%d mean_confidence=%.3f unrecognized=%d",
		summary.Processed,
		summary.PerLabel[domain.SentimentPositive],
		summary.PerLabel[domain.SentimentNegative],
		summary.PerLabel[domain.SentimentNeutral],
		summary.MeanConfidence,
		summary.Unrecognized,
	)

	if err := j.RebuildWordFrequencies(); err != nil {
		return summary, err
	}
	return summary, nil
}

// RebuildWordFrequencies recomputes top-N words per sentiment and
// swaps the whole aggregate table in one transaction.
func (j *Job) RebuildWordFrequencies() error {
	var entries []domain.WordFrequencyEntry
	for _, sentiment := range domain.KnownSentiments() {
		texts, err := sqlite.TextsBySentiment(j.db, sentiment)
		if err != nil {
			return fmt.Errorf("load %s texts: %w", sentiment, err)
		}
		if len(texts) == 0 {
			log.Printf("word-frequency sentiment=%s texts=0", sentiment)
			continue
		}

		words := j.topWords(texts)
		log.Printf("word-frequency sentiment=%s texts=%d words=%d", sentiment, len(texts), len(words))
		for _, wc := range words {
			entries = append(entries, domain.WordFrequencyEntry{
				Word:      wc.word,
				Sentiment: sentiment,
				Count:     wc.count,
			})
		}
	}

	if err := sqlite.ReplaceWordFrequencies(j.db, entries); err != nil {
		return fmt.Errorf("replace word frequencies: %w", err)
	}
	return nil
}

type wordCount struct {
	word  string
	count int
	first int
}

// topWords normalizes and concatenates the texts, counts the signal
// tokens and returns the top N by count. Ties keep first-occurrence
// order so repeated runs over the same inputs are deterministic.
func (j *Job) topWords(texts []string) []wordCount {
	normalized := make([]string, len(texts))
	for i, t := range texts {
		normalized[i] = j.norm.Normalize(t)
	}
	tokens := j.norm.SignalTokens(strings.Join(normalized, " "))

	counts := make(map[string]*wordCount)
	var order []*wordCount
	for i, tok := range tokens {
		wc, ok := counts[tok]
		if !ok {
			wc = &wordCount{word: tok, first: i}
			counts[tok] = wc
			order = append(order, wc)
		}
		wc.count++
	}

	sort.SliceStable(order, func(a, b int) bool {
		if order[a].count != order[b].count {
			return order[a].count > order[b].count
		}
		return order[a].first < order[b].first
	})

	if len(order) > j.topN {
		order = order[:j.topN]
	}
	out := make([]wordCount, len(order))
	for i, wc := range order {
		out[i] = *wc
	}
	return out
}
