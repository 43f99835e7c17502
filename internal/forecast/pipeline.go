package forecast

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/stat"

	"fitmetrics/internal/domain"
	"fitmetrics/internal/storage/sqlite"
)

var (
	// ErrNoHistory aborts a run when the profit table is empty.
	ErrNoHistory = errors.New("no profit history available")
	// ErrInsufficientHistory aborts a run when fewer than two usable
	// points remain after validation.
	ErrInsufficientHistory = errors.New("insufficient profit history")
)

const (
	DefaultHorizon = 6
	ModelVersion   = "v2.0"

	iqrFactor       = 3.0
	smoothThreshold = 6

	annualPeriod = 12.0
	annualOrder  = 4
	annualScale  = 1.2
	semiPeriod   = 6.0
	semiOrder    = 2
	semiScale    = 0.8
	semiMinData  = 12
)

// Pipeline runs the Fetch -> Validate -> Train -> Predict -> Replace
// -> Report cycle over the profit history.
type Pipeline struct {
	db           *sql.DB
	modelVersion string
	horizon      int
}

func NewPipeline(db *sql.DB, modelVersion string, horizon int) *Pipeline {
	if modelVersion == "" {
		modelVersion = ModelVersion
	}
	if horizon < 1 {
		horizon = DefaultHorizon
	}
	return &Pipeline{db: db, modelVersion: modelVersion, horizon: horizon}
}

// Run generates and persists a fresh forecast set. Without force it
// first consults the staleness policy and keeps a still-current set.
func (p *Pipeline) Run(ctx context.Context, periods int, force bool) (domain.ForecastSummary, error) {
	if periods < 1 {
		periods = p.horizon
	}

	if !force {
		current, err := sqlite.ListForecasts(p.db)
		if err != nil {
			return domain.ForecastSummary{}, fmt.Errorf("load current forecasts: %w", err)
		}
		decision := EvaluateStaleness(current, time.Now())
		if !decision.Regenerate {
			log.Printf("forecast run skipped: %s", decision.Reason)
			return summarize(current, p.modelVersion), nil
		}
		log.Printf("forecast regeneration: %s", decision.Reason)
	}

	// Fetch
	dates, values, err := sqlite.ProfitSeries(p.db)
	if err != nil {
		return domain.ForecastSummary{}, fmt.Errorf("fetch profit history: %w", err)
	}
	if len(dates) == 0 {
		return domain.ForecastSummary{}, ErrNoHistory
	}

	// Validate
	series, err := validateSeries(dates, values)
	if err != nil {
		return domain.ForecastSummary{}, err
	}

	if err := ctx.Err(); err != nil {
		return domain.ForecastSummary{}, err
	}

	// Train
	model := buildModel(len(series))
	if err := model.Fit(series); err != nil {
		return domain.ForecastSummary{}, fmt.Errorf("train seasonal model: %w", err)
	}

	// Predict
	future := futureMonthStarts(series[len(series)-1].Date, periods)
	intervals, err := model.Forecast(future)
	if err != nil {
		return domain.ForecastSummary{}, fmt.Errorf("predict horizon: %w", err)
	}

	// Replace
	now := time.Now().UTC()
	entries := make([]domain.ForecastEntry, len(intervals))
	for i, iv := range intervals {
		entries[i] = domain.ForecastEntry{
			ForecastDate:       iv.Date,
			PredictedNetProfit: iv.Predicted,
			LowerBound:         iv.Lower,
			UpperBound:         iv.Upper,
			ModelVersion:       p.modelVersion,
			CreatedAt:          now,
		}
	}
	if err := sqlite.ReplaceForecasts(p.db, entries); err != nil {
		return domain.ForecastSummary{}, fmt.Errorf("replace forecasts: %w", err)
	}
	log.Printf("forecast run stored=%d model_version=%s", len(entries), p.modelVersion)

	// Report: diagnostics only, never fails and never blocks the
	// already-committed persistence.
	reportQuality(series, intervals)

	summary := summarize(entries, p.modelVersion)
	summary.CreatedAt = now
	return summary, nil
}

// validateSeries drops null values, requires at least two points and
// smooths extreme outliers in place of removing them, so the series
// keeps its length for seasonal fitting. Deliberately understates
// true extremes.
func validateSeries(dates []time.Time, values []float64) ([]Point, error) {
	var series []Point
	dropped := 0
	for i := range dates {
		if math.IsNaN(values[i]) {
			dropped++
			continue
		}
		series = append(series, Point{Date: dates[i], Value: values[i]})
	}
	if dropped > 0 {
		log.Printf("forecast validate dropped_null=%d", dropped)
	}
	if len(series) < 2 {
		return nil, fmt.Errorf("%w: need at least 2 points, found %d", ErrInsufficientHistory, len(series))
	}
	if len(series) < smoothThreshold {
		return series, nil
	}

	ys := make([]float64, len(series))
	for i, p := range series {
		ys[i] = p.Value
	}
	sorted := append([]float64(nil), ys...)
	sort.Float64s(sorted)

	q1 := stat.Quantile(0.25, stat.LinInterp, sorted, nil)
	q3 := stat.Quantile(0.75, stat.LinInterp, sorted, nil)
	iqr := q3 - q1
	lowerBound := q1 - iqrFactor*iqr
	upperBound := q3 + iqrFactor*iqr

	var inLow, inHigh []float64
	for _, v := range ys {
		if v >= lowerBound {
			inLow = append(inLow, v)
		}
		if v <= upperBound {
			inHigh = append(inHigh, v)
		}
	}
	sort.Float64s(inLow)
	sort.Float64s(inHigh)

	lowReplacement := stat.Quantile(0.25, stat.LinInterp, inLow, nil)
	highReplacement := stat.Quantile(0.75, stat.LinInterp, inHigh, nil)

	smoothedLow, smoothedHigh := 0, 0
	for i := range series {
		switch {
		case series[i].Value < lowerBound:
			series[i].Value = lowReplacement
			smoothedLow++
		case series[i].Value > upperBound:
			series[i].Value = highReplacement
			smoothedHigh++
		}
	}
	if smoothedLow > 0 {
		log.Printf("forecast validate smoothed_low=%d replacement=%.2f", smoothedLow, lowReplacement)
	}
	if smoothedHigh > 0 {
		log.Printf("forecast validate smoothed_high=%d replacement=%.2f", smoothedHigh, highReplacement)
	}
	return series, nil
}

// buildModel picks the data-volume profile and seasonal components:
// the annual cycle always, the half-year cycle (the twin Jan/Oct
// enrollment peaks) only once a full year of history exists.
func buildModel(points int) *Model {
	profile := StandardProfile
	if points <= smoothThreshold {
		profile = ConservativeProfile
		log.Printf("forecast train points=%d profile=conservative", points)
	} else {
		log.Printf("forecast train points=%d profile=standard", points)
	}

	seasonalities := []Seasonality{
		{Name: "fitness_yearly", Period: annualPeriod, Order: annualOrder, Scale: annualScale},
	}
	if points >= semiMinData {
		seasonalities = append(seasonalities, Seasonality{
			Name: "fitness_semester", Period: semiPeriod, Order: semiOrder, Scale: semiScale,
		})
		log.Println("forecast train semiannual component enabled")
	}
	return NewModel(profile, seasonalities)
}

// futureMonthStarts extends the timeline one calendar-month start at a
// time past the last historical period.
func futureMonthStarts(last time.Time, periods int) []time.Time {
	base := time.Date(last.Year(), last.Month(), 1, 0, 0, 0, 0, time.UTC)
	out := make([]time.Time, periods)
	for i := 0; i < periods; i++ {
		out[i] = base.AddDate(0, i+1, 0)
	}
	return out
}

// seasonTag labels each month with the fitness demand season used in
// run diagnostics (January and October are enrollment peaks).
var seasonTag = map[time.Month]string{
	time.January: "peak", time.February: "high", time.March: "normal",
	time.April: "normal", time.May: "normal", time.June: "low",
	time.July: "high", time.August: "normal", time.September: "high",
	time.October: "peak", time.November: "high", time.December: "low",
}

func reportQuality(historical []Point, predicted []Interval) {
	if len(historical) == 0 || len(predicted) == 0 {
		return
	}

	hist := make([]float64, len(historical))
	for i, p := range historical {
		hist[i] = p.Value
	}
	pred := make([]float64, len(predicted))
	for i, iv := range predicted {
		pred[i] = iv.Predicted
	}

	histMean := stat.Mean(hist, nil)
	predMean := stat.Mean(pred, nil)
	log.Printf("forecast report historical mean=%.2f stddev=%.2f min=%.2f max=%.2f",
		histMean, stat.StdDev(hist, nil), minOf(hist), maxOf(hist))
	log.Printf("forecast report predicted mean=%.2f stddev=%.2f min=%.2f max=%.2f",
		predMean, stat.StdDev(pred, nil), minOf(pred), maxOf(pred))

	if histMean != 0 {
		change := (predMean - histMean) / histMean * 100
		if math.Abs(change) > 50 {
			log.Printf("forecast report ALERT large predicted change %+.1f%% vs history", change)
		} else {
			log.Printf("forecast report trend %+.1f%% vs history", change)
		}
	}
	if predMean < 0 {
		log.Println("forecast report ALERT mean predicted profit is negative")
	}

	for _, iv := range predicted {
		log.Printf("forecast report month %s predicted=%.0f [%s season]",
			iv.Date.Format("Jan 2006"), iv.Predicted, seasonTag[iv.Date.Month()])
	}

	switch {
	case len(historical) < 12:
		log.Printf("forecast report limited history (%d points), 12+ recommended for full seasonality", len(historical))
	case len(historical) >= 24:
		log.Println("forecast report history sufficient for robust seasonal patterns")
	default:
		log.Println("forecast report history adequate for basic seasonality")
	}
}

func summarize(entries []domain.ForecastEntry, modelVersion string) domain.ForecastSummary {
	summary := domain.ForecastSummary{ModelVersion: modelVersion, Count: len(entries)}
	if len(entries) == 0 {
		return summary
	}
	var sum float64
	summary.PeriodStart = entries[0].ForecastDate
	summary.PeriodEnd = entries[0].ForecastDate
	for _, e := range entries {
		sum += e.PredictedNetProfit
		if e.ForecastDate.Before(summary.PeriodStart) {
			summary.PeriodStart = e.ForecastDate
		}
		if e.ForecastDate.After(summary.PeriodEnd) {
			summary.PeriodEnd = e.ForecastDate
		}
	}
	summary.MeanPredicted = sum / float64(len(entries))
	summary.CreatedAt = entries[0].CreatedAt
	return summary
}

func minOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x < m {
			m = x
		}
	}
	return m
}

func maxOf(xs []float64) float64 {
	m := xs[0]
	for _, x := range xs[1:] {
		if x > m {
			m = x
		}
	}
	return m
}
