package forecast

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"path/filepath"
	"testing"
	"time"

	"fitmetrics/internal/domain"
	"fitmetrics/internal/storage/sqlite"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sqlite.InitDB(filepath.Join(t.TempDir(), "forecast-test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func seedProfits(t *testing.T, db *sql.DB, start time.Time, values []float64) {
	t.Helper()
	for i, v := range values {
		periodStart := start.AddDate(0, i, 0)
		err := sqlite.InsertProfit(db, domain.ProfitRecord{
			PeriodStart: periodStart,
			PeriodEnd:   periodStart.AddDate(0, 1, -1),
			NetProfit:   v,
		})
		if err != nil {
			t.Fatalf("InsertProfit failed: %v", err)
		}
	}
}

func TestRunEmptyHistoryIsInputError(t *testing.T) {
	db := newTestDB(t)
	p := NewPipeline(db, "", 0)

	_, err := p.Run(context.Background(), 6, true)
	if !errors.Is(err, ErrNoHistory) {
		t.Fatalf("expected ErrNoHistory, got %v", err)
	}

	rows, err := sqlite.ListForecasts(db)
	if err != nil {
		t.Fatalf("ListForecasts failed: %v", err)
	}
	if len(rows) != 0 {
		t.Fatalf("no forecast rows may be written on input error, got %d", len(rows))
	}
}

func TestRunSinglePointIsInsufficient(t *testing.T) {
	db := newTestDB(t)
	seedProfits(t, db, time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), []float64{1500})
	p := NewPipeline(db, "", 0)

	_, err := p.Run(context.Background(), 6, true)
	if !errors.Is(err, ErrInsufficientHistory) {
		t.Fatalf("expected ErrInsufficientHistory, got %v", err)
	}
}

func TestValidateSeriesSmoothsLowOutlier(t *testing.T) {
	start := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	values := []float64{2000, 2100, 1950, 2050, 2200, 1900, 2150, -50000}
	dates := make([]time.Time, len(values))
	for i := range values {
		dates[i] = start.AddDate(0, i, 0)
	}

	series, err := validateSeries(dates, values)
	if err != nil {
		t.Fatalf("validateSeries failed: %v", err)
	}
	if len(series) != len(values) {
		t.Fatalf("smoothing must preserve length, got %d of %d", len(series), len(values))
	}

	q1 := quantileOf(t, values, 0.25)
	smoothed := series[7].Value
	if smoothed < q1 {
		t.Fatalf("low outlier must be replaced with a value >= Q1 (%.2f), got %.2f", q1, smoothed)
	}
	if smoothed == -50000 {
		t.Fatal("outlier value was not smoothed")
	}
	for i := 0; i < 7; i++ {
		if series[i].Value != values[i] {
			t.Fatalf("in-bound point %d changed: %.2f -> %.2f", i, values[i], series[i].Value)
		}
	}
}

func TestValidateSeriesDropsNulls(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	dates := []time.Time{start, start.AddDate(0, 1, 0), start.AddDate(0, 2, 0)}
	values := []float64{1000, math.NaN(), 1200}

	series, err := validateSeries(dates, values)
	if err != nil {
		t.Fatalf("validateSeries failed: %v", err)
	}
	if len(series) != 2 {
		t.Fatalf("expected null value dropped, got %d points", len(series))
	}
}

func TestRunGeneratesMonthStartHorizon(t *testing.T) {
	db := newTestDB(t)
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	seedProfits(t, db, start, []float64{1800, 1900, 2100, 2000, 2300, 2250, 2400, 2380})

	p := NewPipeline(db, "", 0)
	summary, err := p.Run(context.Background(), 6, true)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if summary.Count != 6 {
		t.Fatalf("expected 6 forecasts, got %d", summary.Count)
	}
	if summary.ModelVersion != ModelVersion {
		t.Fatalf("expected model version %s, got %s", ModelVersion, summary.ModelVersion)
	}

	rows, err := sqlite.ListForecasts(db)
	if err != nil {
		t.Fatalf("ListForecasts failed: %v", err)
	}
	if len(rows) != 6 {
		t.Fatalf("expected 6 stored rows, got %d", len(rows))
	}

	// Horizon starts at the month after the last historical period
	// and steps by calendar-month starts.
	next := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	for i, r := range rows {
		want := next.AddDate(0, i, 0)
		if !r.ForecastDate.Equal(want) {
			t.Fatalf("row %d: forecast date %s, expected %s", i, r.ForecastDate, want)
		}
		if r.LowerBound >= r.PredictedNetProfit || r.UpperBound <= r.PredictedNetProfit {
			t.Fatalf("row %d: interval [%f, %f] does not bracket %f",
				i, r.LowerBound, r.UpperBound, r.PredictedNetProfit)
		}
	}

	if summary.PeriodStart.IsZero() || !summary.PeriodEnd.After(summary.PeriodStart) {
		t.Fatalf("bad summary period: %+v", summary)
	}
}

func TestRunWithoutForceKeepsFreshSet(t *testing.T) {
	db := newTestDB(t)
	// Seed the six months ending last month so the generated horizon
	// lies in the future and the set is fresh by the staleness rules.
	now := time.Now().UTC()
	start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, -6, 0)
	seedProfits(t, db, start,
		[]float64{1800, 1900, 2100, 2000, 2300, 2250})

	p := NewPipeline(db, "", 0)
	if _, err := p.Run(context.Background(), 6, true); err != nil {
		t.Fatalf("initial Run failed: %v", err)
	}
	before, err := sqlite.ListForecasts(db)
	if err != nil {
		t.Fatalf("ListForecasts failed: %v", err)
	}

	summary, err := p.Run(context.Background(), 6, false)
	if err != nil {
		t.Fatalf("non-forced Run failed: %v", err)
	}
	if summary.Count != 6 {
		t.Fatalf("expected summary over the kept set, got %+v", summary)
	}

	after, err := sqlite.ListForecasts(db)
	if err != nil {
		t.Fatalf("ListForecasts failed: %v", err)
	}
	for i := range before {
		if !before[i].CreatedAt.Equal(after[i].CreatedAt) {
			t.Fatal("fresh forecast set must not be regenerated without force")
		}
	}
}

func quantileOf(t *testing.T, values []float64, q float64) float64 {
	t.Helper()
	sorted := append([]float64(nil), values...)
	for i := 1; i < len(sorted); i++ {
		for j := i; j > 0 && sorted[j] < sorted[j-1]; j-- {
			sorted[j], sorted[j-1] = sorted[j-1], sorted[j]
		}
	}
	pos := q * float64(len(sorted)-1)
	lo := int(pos)
	if lo >= len(sorted)-1 {
		return sorted[len(sorted)-1]
	}
	frac := pos - float64(lo)
	return sorted[lo]*(1-frac) + sorted[lo+1]*frac
}
