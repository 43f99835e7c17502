package domain

import (
	"strings"
	"time"
)

// Sentiment is the closed label set assigned to customer feedback.
type Sentiment string

const (
	SentimentPositive   Sentiment = "positive"
	SentimentNegative   Sentiment = "negative"
	SentimentNeutral    Sentiment = "neutral"
	SentimentUnresolved Sentiment = "unresolved"
)

// KnownSentiments are the labels the classifier may emit, in the order
// word-frequency aggregation processes them.
func KnownSentiments() []Sentiment {
	return []Sentiment{SentimentPositive, SentimentNegative, SentimentNeutral}
}

// ParseSentiment maps a raw classifier label onto the closed set.
// Surrounding quotes and whitespace are stripped and the comparison is
// case-insensitive. Anything outside the known labels maps to neutral
// with ok=false so the caller can log the fallback.
func ParseSentiment(raw string) (Sentiment, bool) {
	s := strings.TrimSpace(raw)
	s = strings.Trim(s, `"'`)
	s = strings.ToLower(strings.TrimSpace(s))
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(s), true
	}
	return SentimentNeutral, false
}

type FeedbackRecord struct {
	ID         string
	Text       string
	Sentiment  Sentiment
	Confidence float64
	CreatedAt  time.Time
}

type WordFrequencyEntry struct {
	Word      string
	Sentiment Sentiment
	Count     int
	CreatedAt time.Time
}

type ProfitRecord struct {
	PeriodStart   time.Time
	PeriodEnd     time.Time
	TotalRevenue  float64
	TotalExpenses float64
	NetProfit     float64
	ProfitMargin  float64
}

type ForecastEntry struct {
	ForecastDate       time.Time
	PredictedNetProfit float64
	LowerBound         float64
	UpperBound         float64
	ModelVersion       string
	CreatedAt          time.Time
}

// ForecastPoint is the read shape served to the API layer.
type ForecastPoint struct {
	Date          time.Time `json:"forecast_date"`
	Predicted     float64   `json:"predicted_net_profit"`
	Lower         float64   `json:"lower_bound"`
	Upper         float64   `json:"upper_bound"`
	IntervalWidth float64   `json:"confidence_interval"`
}

type ForecastSummary struct {
	Count         int       `json:"total_forecasts"`
	PeriodStart   time.Time `json:"forecast_period_start"`
	PeriodEnd     time.Time `json:"forecast_period_end"`
	MeanPredicted float64   `json:"avg_predicted_profit"`
	ModelVersion  string    `json:"model_version"`
	CreatedAt     time.Time `json:"created_at"`
}

type ClassificationSummary struct {
	Processed      int
	PerLabel       map[Sentiment]int
	MeanConfidence float64
	Unrecognized   int
}
