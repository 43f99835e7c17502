package forecast

import (
	"fmt"
	"math"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Profile tunes the model to the amount of history available.
// ChangeSensitivity damps the piecewise trend terms (smaller = stiffer
// trend), IntervalWidth is the nominal coverage of the uncertainty
// band, MaxChangepoints caps the internal trend-change knots.
type Profile struct {
	ChangeSensitivity float64
	IntervalWidth     float64
	MaxChangepoints   int
}

// Data-volume-dependent profiles: conservative when history is short,
// more responsive once there is enough signal.
var (
	ConservativeProfile = Profile{ChangeSensitivity: 0.01, IntervalWidth: 0.95, MaxChangepoints: 2}
	StandardProfile     = Profile{ChangeSensitivity: 0.05, IntervalWidth: 0.90, MaxChangepoints: 8}
)

// Seasonality is one cyclic component expressed as a Fourier series of
// the given harmonic order over Period samples.
type Seasonality struct {
	Name   string
	Period float64
	Order  int
	Scale  float64
}

type Point struct {
	Date  time.Time
	Value float64
}

type Interval struct {
	Date      time.Time
	Predicted float64
	Lower     float64
	Upper     float64
}

// Model decomposes a monthly series into a damped piecewise-linear
// trend plus Fourier seasonal terms, fitted by ridge regression.
// Immutable after Fit, safe for concurrent Forecast calls.
type Model struct {
	profile       Profile
	seasonalities []Seasonality
	start         time.Time
	changepoints  []float64
	coef          []float64
	residStd      float64
	fitted        bool
}

func NewModel(profile Profile, seasonalities []Seasonality) *Model {
	return &Model{profile: profile, seasonalities: seasonalities}
}

// Fit trains the model on the historical series. It fails on an empty
// or non-finite series.
func (m *Model) Fit(points []Point) error {
	n := len(points)
	if n == 0 {
		return fmt.Errorf("fit: empty series")
	}

	ts := make([]float64, n)
	ys := make([]float64, n)
	for i, p := range points {
		if math.IsNaN(p.Value) || math.IsInf(p.Value, 0) {
			return fmt.Errorf("fit: non-finite value at %s", p.Date.Format("2006-01-02"))
		}
		ts[i] = monthIndex(points[0].Date, p.Date)
		ys[i] = p.Value
	}
	m.start = points[0].Date

	// Changepoint knots spread over the first 80% of the range, the
	// usual trick so the final trend segment stays extrapolatable.
	k := m.profile.MaxChangepoints
	if k > n-2 {
		k = n - 2
	}
	if k < 0 {
		k = 0
	}
	m.changepoints = m.changepoints[:0]
	tMax := ts[n-1]
	for j := 1; j <= k; j++ {
		m.changepoints = append(m.changepoints, 0.8*tMax*float64(j)/float64(k+1))
	}

	p := m.featureCount()
	X := mat.NewDense(n, p, nil)
	y := mat.NewVecDense(n, ys)
	for i := 0; i < n; i++ {
		X.SetRow(i, m.features(ts[i]))
	}

	// Ridge system: (XᵀX + Λ)β = Xᵀy with per-feature penalties.
	var xtx mat.Dense
	xtx.Mul(X.T(), X)
	for j, lambda := range m.penalties() {
		xtx.Set(j, j, xtx.At(j, j)+lambda)
	}
	var xty mat.VecDense
	xty.MulVec(X.T(), y)

	var beta mat.VecDense
	if err := beta.SolveVec(&xtx, &xty); err != nil {
		return fmt.Errorf("fit: solve ridge system: %w", err)
	}
	m.coef = make([]float64, p)
	copy(m.coef, beta.RawVector().Data)

	resid := make([]float64, n)
	var absSum float64
	for i := 0; i < n; i++ {
		resid[i] = ys[i] - m.predictAt(ts[i])
		absSum += math.Abs(ys[i])
	}
	m.residStd = stat.StdDev(resid, nil)

	// Two points or a perfect fit leave no residual spread; floor the
	// band at a fraction of the series magnitude so intervals are
	// never degenerate.
	floor := 0.05 * absSum / float64(n)
	if math.IsNaN(m.residStd) || m.residStd < floor {
		m.residStd = floor
	}

	m.fitted = true
	return nil
}

// Forecast evaluates the fitted model at the given dates with the
// profile's uncertainty band.
func (m *Model) Forecast(dates []time.Time) ([]Interval, error) {
	if !m.fitted {
		return nil, fmt.Errorf("forecast: model not fitted")
	}
	z := math.Sqrt2 * math.Erfinv(m.profile.IntervalWidth)

	out := make([]Interval, len(dates))
	for i, d := range dates {
		t := monthIndex(m.start, d)
		yhat := m.predictAt(t)
		out[i] = Interval{
			Date:      d,
			Predicted: yhat,
			Lower:     yhat - z*m.residStd,
			Upper:     yhat + z*m.residStd,
		}
	}
	return out, nil
}

func (m *Model) featureCount() int {
	p := 2 + len(m.changepoints)
	for _, s := range m.seasonalities {
		p += 2 * s.Order
	}
	return p
}

func (m *Model) features(t float64) []float64 {
	row := make([]float64, 0, m.featureCount())
	row = append(row, 1, t)
	for _, c := range m.changepoints {
		row = append(row, math.Max(0, t-c))
	}
	for _, s := range m.seasonalities {
		for h := 1; h <= s.Order; h++ {
			angle := 2 * math.Pi * float64(h) * t / s.Period
			row = append(row, math.Sin(angle), math.Cos(angle))
		}
	}
	return row
}

func (m *Model) penalties() []float64 {
	lambdas := make([]float64, 0, m.featureCount())
	lambdas = append(lambdas, 1e-8, 1e-8)
	for range m.changepoints {
		lambdas = append(lambdas, 1/m.profile.ChangeSensitivity)
	}
	for _, s := range m.seasonalities {
		for h := 0; h < 2*s.Order; h++ {
			lambdas = append(lambdas, 1/s.Scale)
		}
	}
	return lambdas
}

func (m *Model) predictAt(t float64) float64 {
	var sum float64
	for j, f := range m.features(t) {
		sum += m.coef[j] * f
	}
	return sum
}

// monthIndex counts calendar months from the series start, the sample
// unit for monthly data.
func monthIndex(start, d time.Time) float64 {
	return float64((d.Year()-start.Year())*12 + int(d.Month()) - int(start.Month()))
}
