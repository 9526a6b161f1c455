package forecast

import (
	"errors"
	"math"
	"math/rand"
	"testing"
	"time"

	"hvacsight/internal/config"
	"hvacsight/internal/models"
)

// syntheticTable builds hourly rows where energy follows a known linear law
// over the exogenous columns plus a little deterministic noise. The noise
// keeps the lag columns from being exact combinations of the daily cycle,
// which would leave the design matrix rank deficient.
func syntheticTable(hours int) *models.Table {
	rng := rand.New(rand.NewSource(11))
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, hours)
	energy := make([]float64, hours)
	temp := make([]float64, hours)
	load := make([]float64, hours)
	for i := 0; i < hours; i++ {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		temp[i] = 28 + 4*math.Sin(2*math.Pi*float64(i)/24) + rng.NormFloat64()*0.5
		load[i] = 55 + 20*math.Sin(2*math.Pi*float64(i%24)/24) + rng.NormFloat64()*2
		energy[i] = 250 + 3.4*load[i] + 2.2*temp[i] + rng.NormFloat64()*3
	}
	return &models.Table{
		Timestamps: ts,
		Columns: map[string][]float64{
			models.ColEnergy:  energy,
			models.ColAmbient: temp,
			models.ColLoad:    load,
		},
	}
}

func TestForecastHorizonAndInterval(t *testing.T) {
	cfg := config.DefaultAnalysis()
	cfg.Horizon = 48
	table := syntheticTable(168)

	fc, err := New(cfg).Forecast(table)
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}
	if len(fc.Points) != 48 {
		t.Fatalf("Points length = %d, want 48", len(fc.Points))
	}

	last := table.Timestamps[len(table.Timestamps)-1]
	for i, p := range fc.Points {
		want := last.Add(time.Duration(i+1) * time.Hour)
		if !p.Timestamp.Equal(want) {
			t.Errorf("point %d timestamp = %v, want %v", i, p.Timestamp, want)
		}
		if p.Energy < 0 || math.IsNaN(p.Energy) {
			t.Errorf("point %d energy = %v, want finite non-negative", i, p.Energy)
		}
	}
}

func TestForecastTracksLinearSignal(t *testing.T) {
	table := syntheticTable(168)
	fc, err := New(config.DefaultAnalysis()).Forecast(table)
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}

	// Energy in the training data lives between roughly 330 and 600; the
	// iterative projection built on a well-fit linear model must stay in a
	// plausible band around that range.
	for i, p := range fc.Points {
		if p.Energy < 200 || p.Energy > 800 {
			t.Errorf("point %d energy = %.1f, outside plausible band", i, p.Energy)
		}
	}
}

func TestForecastModelCoefficients(t *testing.T) {
	fc, err := New(config.DefaultAnalysis()).Forecast(syntheticTable(168))
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}

	for _, name := range []string{"intercept", "hour", "dayofweek", "lag_1", "lag_24", models.ColAmbient, models.ColLoad} {
		if _, ok := fc.Model[name]; !ok {
			t.Errorf("model summary missing coefficient %q", name)
		}
	}
	if len(fc.Model) != 7 {
		t.Errorf("model summary has %d entries, want 7", len(fc.Model))
	}
}

func TestForecastEnergyOnly(t *testing.T) {
	full := syntheticTable(96)
	table := &models.Table{
		Timestamps: full.Timestamps,
		Columns: map[string][]float64{
			models.ColEnergy: full.Columns[models.ColEnergy],
		},
	}

	fc, err := New(config.DefaultAnalysis()).Forecast(table)
	if err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}
	if _, ok := fc.Model[models.ColAmbient]; ok {
		t.Error("model includes ambient_temp coefficient without the column")
	}
	if _, ok := fc.Model[models.ColLoad]; ok {
		t.Error("model includes load coefficient without the column")
	}
}

func TestForecastInsufficientData(t *testing.T) {
	tests := []struct {
		name  string
		hours int
	}{
		{"shorter than long lag", 20},
		{"too few valid rows", 40}, // 40 - 24 = 16 valid, below the minimum
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(config.DefaultAnalysis()).Forecast(syntheticTable(tt.hours))
			var insufficient *InsufficientDataError
			if !errors.As(err, &insufficient) {
				t.Fatalf("error = %v, want InsufficientDataError", err)
			}
			if insufficient.Required != MinTrainingRows {
				t.Errorf("Required = %d, want %d", insufficient.Required, MinTrainingRows)
			}
		})
	}
}

func TestForecastMissingEnergyColumn(t *testing.T) {
	full := syntheticTable(96)
	table := &models.Table{
		Timestamps: full.Timestamps,
		Columns: map[string][]float64{
			models.ColLoad: full.Columns[models.ColLoad],
		},
	}

	_, err := New(config.DefaultAnalysis()).Forecast(table)
	var insufficient *InsufficientDataError
	if !errors.As(err, &insufficient) {
		t.Fatalf("error = %v, want InsufficientDataError", err)
	}
	if insufficient.Error() != "forecasting requires an energy column" {
		t.Errorf("message = %q", insufficient.Error())
	}
}

func TestForecastDoesNotMutateInput(t *testing.T) {
	table := syntheticTable(168)
	before := append([]float64(nil), table.Columns[models.ColEnergy]...)
	beforeLen := table.Len()

	if _, err := New(config.DefaultAnalysis()).Forecast(table); err != nil {
		t.Fatalf("Forecast returned error: %v", err)
	}

	if table.Len() != beforeLen {
		t.Fatalf("table length changed from %d to %d", beforeLen, table.Len())
	}
	for i, v := range table.Columns[models.ColEnergy] {
		if v != before[i] {
			t.Fatalf("energy row %d changed from %v to %v", i, before[i], v)
		}
	}
}

func TestInferInterval(t *testing.T) {
	base := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name string
		gaps []time.Duration
		want time.Duration
	}{
		{"hourly", []time.Duration{time.Hour, time.Hour, time.Hour}, time.Hour},
		{"fifteen minute", []time.Duration{15 * time.Minute, 15 * time.Minute}, 15 * time.Minute},
		{"mixed majority", []time.Duration{time.Hour, time.Hour, 2 * time.Hour, time.Hour}, time.Hour},
		{"single row", nil, time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := []time.Time{base}
			for _, g := range tt.gaps {
				ts = append(ts, ts[len(ts)-1].Add(g))
			}
			if got := inferInterval(ts); got != tt.want {
				t.Errorf("inferInterval = %v, want %v", got, tt.want)
			}
		})
	}
}
