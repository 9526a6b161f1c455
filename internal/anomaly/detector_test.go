package anomaly

import (
	"testing"
	"time"

	"hvacsight/internal/config"
	"hvacsight/internal/models"
)

// noFlags is a stub scorer that keeps the multivariate method quiet so the
// statistical method can be tested in isolation.
type noFlags struct{}

func (noFlags) ScoreOutliers(features [][]float64) []bool {
	return make([]bool, len(features))
}

func tableWithEnergy(energy []float64) *models.Table {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	ts := make([]time.Time, len(energy))
	load := make([]float64, len(energy))
	eff := make([]float64, len(energy))
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		load[i] = 50
		eff[i] = 1.0
	}
	return &models.Table{
		Timestamps: ts,
		Columns: map[string][]float64{
			models.ColEnergy:     energy,
			models.ColLoad:       load,
			models.ColEfficiency: eff,
		},
	}
}

func TestDetectFlagsInjectedSpikes(t *testing.T) {
	// 96 base rows alternating around mean 100 plus 5 injected rows far above
	// it. At Medium sensitivity the statistical method must flag exactly the
	// injected rows.
	energy := make([]float64, 0, 101)
	for i := 0; i < 96; i++ {
		if i%2 == 0 {
			energy = append(energy, 90)
		} else {
			energy = append(energy, 110)
		}
	}
	injected := map[int]bool{}
	for i := 0; i < 5; i++ {
		injected[len(energy)] = true
		energy = append(energy, 200)
	}

	cfg := config.DefaultAnalysis()
	detector := NewWithScorer(cfg, noFlags{})
	report := detector.Detect(tableWithEnergy(energy))

	for i, f := range report.Flags {
		if f.ZScore != injected[i] {
			t.Errorf("row %d: zscore flag = %v, want %v", i, f.ZScore, injected[i])
		}
		if f.Outlier {
			t.Errorf("row %d: outlier flag fired with a stub scorer", i)
		}
	}
	if report.Summary.Count != 5 {
		t.Errorf("Count = %d, want 5", report.Summary.Count)
	}
}

func TestDetectZeroVariance(t *testing.T) {
	energy := make([]float64, 30)
	for i := range energy {
		energy[i] = 100
	}

	report := NewWithScorer(config.DefaultAnalysis(), noFlags{}).Detect(tableWithEnergy(energy))
	if report.Summary.Count != 0 {
		t.Errorf("constant series flagged %d anomalies, want 0", report.Summary.Count)
	}
}

func TestSensitivitySupersetProperty(t *testing.T) {
	// With Method B held fixed, every flag raised under a stricter tier must
	// also be raised under a looser one.
	energy := make([]float64, 0, 60)
	for i := 0; i < 50; i++ {
		energy = append(energy, 100+float64(i%7))
	}
	energy = append(energy, 140, 150, 170, 200, 90, 60, 55, 45, 30, 25)

	flagsFor := func(s config.Sensitivity) []bool {
		cfg := config.DefaultAnalysis()
		cfg.Sensitivity = s
		report := NewWithScorer(cfg, noFlags{}).Detect(tableWithEnergy(energy))
		out := make([]bool, len(report.Flags))
		for i, f := range report.Flags {
			out[i] = f.ZScore
		}
		return out
	}

	low := flagsFor(config.SensitivityLow)
	medium := flagsFor(config.SensitivityMedium)
	high := flagsFor(config.SensitivityHigh)

	for i := range low {
		if low[i] && !medium[i] {
			t.Errorf("row %d flagged at Low but not Medium", i)
		}
		if medium[i] && !high[i] {
			t.Errorf("row %d flagged at Medium but not High", i)
		}
	}
}

func TestDegradation(t *testing.T) {
	tests := []struct {
		name       string
		efficiency func(i, n int) float64
		rows       int
		wantSign   int // -1 improving, 0 flat/short, 1 worsening
	}{
		{"worsening", func(i, n int) float64 { return 1.0 + float64(i)/float64(n) }, 50, 1},
		{"improving", func(i, n int) float64 { return 2.0 - float64(i)/float64(n) }, 50, -1},
		{"flat", func(i, n int) float64 { return 1.0 }, 50, 0},
		{"below minimum window", func(i, n int) float64 { return 1.0 + float64(i) }, 8, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
			ts := make([]time.Time, tt.rows)
			eff := make([]float64, tt.rows)
			energy := make([]float64, tt.rows)
			load := make([]float64, tt.rows)
			for i := range ts {
				ts[i] = start.Add(time.Duration(i) * time.Hour)
				eff[i] = tt.efficiency(i, tt.rows)
				energy[i] = 100
				load[i] = 50
			}
			table := &models.Table{
				Timestamps: ts,
				Columns: map[string][]float64{
					models.ColEnergy:     energy,
					models.ColEfficiency: eff,
					models.ColLoad:       load,
				},
			}

			got := NewWithScorer(config.DefaultAnalysis(), noFlags{}).Detect(table).Summary.DegradationPct
			switch {
			case tt.wantSign > 0 && got <= 0:
				t.Errorf("DegradationPct = %v, want > 0", got)
			case tt.wantSign < 0 && got >= 0:
				t.Errorf("DegradationPct = %v, want < 0", got)
			case tt.wantSign == 0 && got != 0:
				t.Errorf("DegradationPct = %v, want 0", got)
			}
		})
	}
}

func TestDetectWithoutEnergyColumn(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	n := 12
	ts := make([]time.Time, n)
	eff := make([]float64, n)
	temp := make([]float64, n)
	load := make([]float64, n)
	for i := range ts {
		ts[i] = start.Add(time.Duration(i) * time.Hour)
		eff[i] = 1.0
		temp[i] = 25
		load[i] = 50
	}
	table := &models.Table{
		Timestamps: ts,
		Columns: map[string][]float64{
			models.ColEfficiency: eff,
			models.ColAmbient:    temp,
			models.ColLoad:       load,
		},
	}

	report := NewWithScorer(config.DefaultAnalysis(), noFlags{}).Detect(table)
	if report.Summary.Count != 0 {
		t.Errorf("Count = %d, want 0 without an energy column", report.Summary.Count)
	}
	if len(report.Flags) != n {
		t.Errorf("Flags length = %d, want %d", len(report.Flags), n)
	}
}
