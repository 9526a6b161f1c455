// Package forecast fits a linear model over lag and calendar features of the
// energy signal and projects demand forward step by step, feeding each
// prediction back into the feature history.
package forecast

import (
	"fmt"
	"math"
	"sort"
	"time"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"

	"hvacsight/internal/config"
	"hvacsight/internal/models"
)

// MinTrainingRows is the smallest number of complete feature rows the model
// will fit on.
const MinTrainingRows = 30

// lagLong is the long lag in steps; with hourly data it is the same hour one
// day earlier. It also bounds how many trailing observations the held-over
// exogenous mean looks at.
const lagLong = 24

// InsufficientDataError reports a table too small (or too sparse) to fit the
// model. It is fatal to forecasting only; the message is surfaced verbatim.
type InsufficientDataError struct {
	Required int
	Got      int
	Message  string
}

func (e *InsufficientDataError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("not enough data for forecasting: need at least %d valid training rows, got %d", e.Required, e.Got)
}

// Forecaster projects future energy demand.
type Forecaster struct {
	horizon int
}

// New builds a forecaster from the analysis settings.
func New(cfg config.Analysis) *Forecaster {
	return &Forecaster{horizon: cfg.Horizon}
}

// Forecast produces exactly the configured number of future steps at the
// input's inferred sampling interval. The source table is never mutated; the
// iterative loop works on its own growable history buffer.
func (f *Forecaster) Forecast(table *models.Table) (*models.Forecast, error) {
	if !table.Has(models.ColEnergy) {
		return nil, &InsufficientDataError{Message: "forecasting requires an energy column"}
	}

	hist := newHistory(table)
	names := hist.featureNames()

	// Rows before the long lag have an incomplete feature vector and are
	// excluded from training.
	valid := hist.len() - lagLong
	if valid < MinTrainingRows {
		if valid < 0 {
			valid = 0
		}
		return nil, &InsufficientDataError{Required: MinTrainingRows, Got: valid}
	}

	rows := make([][]float64, 0, valid)
	targets := make([]float64, 0, valid)
	for i := lagLong; i < hist.len(); i++ {
		rows = append(rows, hist.features(i))
		targets = append(targets, hist.energy[i])
	}

	beta, err := fitLeastSquares(rows, targets)
	if err != nil {
		return nil, fmt.Errorf("failed to fit demand model: %w", err)
	}
	medians := featureMedians(rows)
	interval := inferInterval(table.Timestamps)

	points := make([]models.ForecastPoint, 0, f.horizon)
	for step := 0; step < f.horizon; step++ {
		next := hist.ts[hist.len()-1].Add(interval)
		hist.extend(next)

		features := hist.features(hist.len() - 1)
		for j, v := range features {
			if math.IsNaN(v) {
				features[j] = medians[j]
			}
		}

		pred := beta[0]
		for j, v := range features {
			pred += beta[j+1] * v
		}
		if pred < 0 {
			pred = 0 // energy cannot be negative
		}
		hist.energy[hist.len()-1] = pred
		points = append(points, models.ForecastPoint{Timestamp: next, Energy: pred})
	}

	model := make(map[string]float64, len(names)+1)
	model["intercept"] = beta[0]
	for j, name := range names {
		model[name] = beta[j+1]
	}
	return &models.Forecast{Points: points, Model: model}, nil
}

// history is the growable buffer of observed plus predicted rows. Lag
// features index into it by offset; the source table is left untouched.
type history struct {
	ts     []time.Time
	energy []float64
	temp   []float64 // nil when the column is absent
	load   []float64
}

func newHistory(table *models.Table) *history {
	h := &history{
		ts:     append([]time.Time(nil), table.Timestamps...),
		energy: append([]float64(nil), table.Column(models.ColEnergy)...),
	}
	if temp := table.Column(models.ColAmbient); temp != nil {
		h.temp = append([]float64(nil), temp...)
	}
	if load := table.Column(models.ColLoad); load != nil {
		h.load = append([]float64(nil), load...)
	}
	return h
}

func (h *history) len() int { return len(h.ts) }

func (h *history) featureNames() []string {
	names := []string{"hour", "dayofweek", "lag_1", "lag_24"}
	if h.temp != nil {
		names = append(names, models.ColAmbient)
	}
	if h.load != nil {
		names = append(names, models.ColLoad)
	}
	return names
}

// features builds the vector for row i; lag entries before the start of the
// buffer come out as NaN.
func (h *history) features(i int) []float64 {
	v := []float64{
		float64(h.ts[i].Hour()),
		float64(h.ts[i].Weekday()),
		lag(h.energy, i, 1),
		lag(h.energy, i, lagLong),
	}
	if h.temp != nil {
		v = append(v, h.temp[i])
	}
	if h.load != nil {
		v = append(v, h.load[i])
	}
	return v
}

// extend appends one future row. Exogenous values are held over as the mean
// of the trailing observations; the model does not forecast them. The energy
// slot is filled by the caller once predicted.
func (h *history) extend(ts time.Time) {
	h.ts = append(h.ts, ts)
	h.energy = append(h.energy, math.NaN())
	if h.temp != nil {
		h.temp = append(h.temp, trailingMean(h.temp, lagLong))
	}
	if h.load != nil {
		h.load = append(h.load, trailingMean(h.load, lagLong))
	}
}

func lag(values []float64, i, steps int) float64 {
	if i-steps < 0 {
		return math.NaN()
	}
	return values[i-steps]
}

func trailingMean(values []float64, window int) float64 {
	if len(values) < window {
		window = len(values)
	}
	return stat.Mean(values[len(values)-window:], nil)
}

// fitLeastSquares solves the normal problem with a QR factorization and
// returns the coefficients with the intercept first.
func fitLeastSquares(rows [][]float64, targets []float64) ([]float64, error) {
	n := len(rows)
	k := len(rows[0])
	a := mat.NewDense(n, k+1, nil)
	b := mat.NewDense(n, 1, nil)
	for i, row := range rows {
		a.Set(i, 0, 1)
		for j, v := range row {
			a.Set(i, j+1, v)
		}
		b.Set(i, 0, targets[i])
	}

	var qr mat.QR
	qr.Factorize(a)
	var sol mat.Dense
	if err := qr.SolveTo(&sol, false, b); err != nil {
		return nil, err
	}

	beta := make([]float64, k+1)
	for j := range beta {
		beta[j] = sol.At(j, 0)
	}
	return beta, nil
}

func featureMedians(rows [][]float64) []float64 {
	k := len(rows[0])
	medians := make([]float64, k)
	column := make([]float64, len(rows))
	for j := 0; j < k; j++ {
		for i, row := range rows {
			column[i] = row[j]
		}
		sort.Float64s(column)
		medians[j] = stat.Quantile(0.5, stat.LinInterp, column, nil)
	}
	return medians
}

// inferInterval picks the most common gap between consecutive timestamps,
// falling back to one hour when it cannot be inferred.
func inferInterval(timestamps []time.Time) time.Duration {
	if len(timestamps) < 2 {
		return time.Hour
	}
	counts := make(map[time.Duration]int)
	for i := 1; i < len(timestamps); i++ {
		counts[timestamps[i].Sub(timestamps[i-1])]++
	}
	var best time.Duration
	bestCount := 0
	for d, c := range counts {
		if d <= 0 {
			continue
		}
		if c > bestCount || (c == bestCount && d < best) {
			best, bestCount = d, c
		}
	}
	if best <= 0 {
		return time.Hour
	}
	return best
}
