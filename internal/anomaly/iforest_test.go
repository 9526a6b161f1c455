package anomaly

import (
	"math/rand"
	"testing"

	"hvacsight/internal/config"
)

func clusterWithOutliers() [][]float64 {
	rng := rand.New(rand.NewSource(7))
	features := make([][]float64, 0, 205)
	for i := 0; i < 200; i++ {
		features = append(features, []float64{
			100 + rng.NormFloat64()*2,
			50 + rng.NormFloat64(),
			1.0 + rng.NormFloat64()*0.05,
		})
	}
	for i := 0; i < 5; i++ {
		features = append(features, []float64{500 + float64(i)*10, 5, 8.0})
	}
	return features
}

func TestIsolationForestDeterministic(t *testing.T) {
	forest := NewIsolationForest(config.DefaultAnalysis())
	features := clusterWithOutliers()

	first := forest.ScoreOutliers(features)
	second := forest.ScoreOutliers(features)
	if len(first) != len(second) {
		t.Fatalf("flag lengths differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		if first[i] != second[i] {
			t.Fatalf("row %d: flags differ between identical runs", i)
		}
	}
}

func TestIsolationForestFlagsDistantPoints(t *testing.T) {
	forest := NewIsolationForest(config.DefaultAnalysis())
	features := clusterWithOutliers()
	flags := forest.ScoreOutliers(features)

	// The five planted points sit far outside the cluster and must all be in
	// the flagged contamination fraction.
	for i := 200; i < 205; i++ {
		if !flags[i] {
			t.Errorf("planted outlier at row %d not flagged", i)
		}
	}

	count := 0
	for _, f := range flags {
		if f {
			count++
		}
	}
	// round(205 * 0.05) = 10, plus possible score ties.
	if count < 5 || count > 20 {
		t.Errorf("flagged %d rows, want roughly the contamination fraction of 205", count)
	}
}

func TestIsolationForestDegenerateInput(t *testing.T) {
	forest := NewIsolationForest(config.DefaultAnalysis())

	if flags := forest.ScoreOutliers(nil); len(flags) != 0 {
		t.Errorf("nil input yielded %d flags", len(flags))
	}

	// All-identical rows cannot be split and score identically; with every
	// score tied nothing stands out.
	identical := make([][]float64, 40)
	for i := range identical {
		identical[i] = []float64{1, 2, 3}
	}
	flags := forest.ScoreOutliers(identical)
	if len(flags) != 40 {
		t.Fatalf("flag length = %d, want 40", len(flags))
	}
	for i, f := range flags {
		if f {
			t.Errorf("row %d flagged in an all-identical matrix", i)
		}
	}
}
