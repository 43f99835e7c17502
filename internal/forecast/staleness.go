package forecast

import (
	"fmt"
	"time"

	"fitmetrics/internal/domain"
)

const (
	// maxForecastAge is how long a generated set stays trusted.
	maxForecastAge = 7 * 24 * time.Hour
	// minFutureForecasts is the startup threshold below which the
	// service reseeds itself.
	minFutureForecasts = 3
)

// Decision is the staleness verdict with its first matching reason.
type Decision struct {
	Regenerate bool
	Reason     string
}

// EvaluateStaleness applies the regeneration rules in order: empty
// set; latest forecast date no longer in the future; set generated
// more than maxForecastAge ago; otherwise current.
func EvaluateStaleness(entries []domain.ForecastEntry, now time.Time) Decision {
	if len(entries) == 0 {
		return Decision{Regenerate: true, Reason: "no forecasts stored"}
	}

	latest := entries[0]
	for _, e := range entries[1:] {
		if e.ForecastDate.After(latest.ForecastDate) {
			latest = e
		}
	}

	today := dateOnly(now)
	if !dateOnly(latest.ForecastDate).After(today) {
		return Decision{Regenerate: true, Reason: "latest forecast date is not in the future"}
	}
	if age := now.Sub(latest.CreatedAt); age > maxForecastAge {
		return Decision{Regenerate: true, Reason: fmt.Sprintf("forecast set is %d days old", int(age.Hours()/24))}
	}
	return Decision{Regenerate: false, Reason: "forecast set is current"}
}

// NeedsStartupSeed reports whether the startup pass should generate
// forecasts: it skips only when at least minFutureForecasts dates lie
// strictly in the future.
func NeedsStartupSeed(entries []domain.ForecastEntry, now time.Time) bool {
	today := dateOnly(now)
	future := 0
	for _, e := range entries {
		if dateOnly(e.ForecastDate).After(today) {
			future++
		}
	}
	return future < minFutureForecasts
}

func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
