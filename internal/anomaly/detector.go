// Package anomaly flags abnormal observations with two independent methods: a
// z-score threshold on the energy signal and a multivariate outlier ensemble
// over all available core parameters, combined per record with logical OR.
package anomaly

import (
	"math"

	"gonum.org/v1/gonum/stat"

	"hvacsight/internal/config"
	"hvacsight/internal/models"
)

// Minimum table shape before the multivariate method contributes flags.
const (
	minOutlierRows     = 20
	minOutlierFeatures = 2
)

// minDegradationRows is the smallest window the efficiency-degradation
// comparison runs on; below it the degradation is reported as 0.
const minDegradationRows = 10

// OutlierScorer scores a feature matrix for multivariate outliers. Each row
// is one observation, each column one core parameter. Implementations must be
// deterministic for identical input.
type OutlierScorer interface {
	ScoreOutliers(features [][]float64) []bool
}

// Detector runs both methods over a cleaned table.
type Detector struct {
	cutoff float64
	scorer OutlierScorer
}

// New builds a detector from the analysis settings with the default
// isolation-forest scorer.
func New(cfg config.Analysis) *Detector {
	return NewWithScorer(cfg, NewIsolationForest(cfg))
}

// NewWithScorer builds a detector with a caller-supplied outlier scorer.
func NewWithScorer(cfg config.Analysis, scorer OutlierScorer) *Detector {
	return &Detector{cutoff: cfg.ZCutoff(), scorer: scorer}
}

// Detect produces one flag per observation plus the aggregate summary. It is
// a total function: degenerate statistics yield zero flags, never an error.
func (d *Detector) Detect(table *models.Table) models.AnomalyReport {
	n := table.Len()
	flags := make([]models.AnomalyFlag, n)
	for i := range flags {
		flags[i].Timestamp = table.Timestamps[i]
	}

	if energy := table.Column(models.ColEnergy); energy != nil && n > 0 {
		mean := stat.Mean(energy, nil)
		std := stat.PopStdDev(energy, nil)
		if std > 0 && !math.IsNaN(std) {
			for i, v := range energy {
				if math.Abs((v-mean)/std) > d.cutoff {
					flags[i].ZScore = true
				}
			}
		}
	}

	if features := featureMatrix(table); features != nil {
		for i, outlier := range d.scorer.ScoreOutliers(features) {
			if outlier {
				flags[i].Outlier = true
			}
		}
	}

	count := 0
	for _, f := range flags {
		if f.Flagged() {
			count++
		}
	}
	summary := models.AnomalySummary{Count: count}
	if n > 0 {
		summary.RatioPct = float64(count) / float64(n) * 100.0
	}
	summary.DegradationPct = degradation(table)

	return models.AnomalyReport{Flags: flags, Summary: summary}
}

// featureMatrix assembles the per-row feature vectors for the multivariate
// method, or nil when the table is below the size or feature threshold.
func featureMatrix(table *models.Table) [][]float64 {
	cols := table.Available()
	if len(cols) < minOutlierFeatures || table.Len() < minOutlierRows {
		return nil
	}
	features := make([][]float64, table.Len())
	for i := range features {
		row := make([]float64, len(cols))
		for j, col := range cols {
			row[j] = table.Column(col)[i]
		}
		features[i] = row
	}
	return features
}

// degradation compares the mean efficiency ratio of the earliest fifth of the
// window against the latest fifth. Positive means efficiency is worsening
// (the ratio is rising).
func degradation(table *models.Table) float64 {
	eff := table.Column(models.ColEfficiency)
	n := len(eff)
	if eff == nil || n < minDegradationRows {
		return 0.0
	}
	window := n / 5
	if window < 5 {
		window = 5
	}
	baseline := stat.Mean(eff[:window], nil)
	recent := stat.Mean(eff[n-window:], nil)
	if baseline <= 0 {
		return 0.0
	}
	return (recent - baseline) / baseline * 100.0
}
