package anomaly

import (
	"math"
	"math/rand"
	"sort"

	"hvacsight/internal/config"
)

// IsolationForest is the default OutlierScorer: an ensemble of randomized
// partitioning trees where points isolated in few splits score as outliers.
// The fixed seed makes repeated runs over identical input bit-for-bit
// reproducible.
type IsolationForest struct {
	trees         int
	sampleSize    int
	contamination float64
	seed          int64
}

// NewIsolationForest builds a forest from the analysis settings.
func NewIsolationForest(cfg config.Analysis) *IsolationForest {
	return &IsolationForest{
		trees:         cfg.ForestTrees,
		sampleSize:    cfg.ForestSample,
		contamination: cfg.Contamination,
		seed:          cfg.ForestSeed,
	}
}

type isoNode struct {
	left, right *isoNode
	splitCol    int
	splitValue  float64
	size        int // sample count reaching this leaf
}

// ScoreOutliers fits the forest on the feature matrix and flags the expected
// contamination fraction with the highest anomaly scores.
func (f *IsolationForest) ScoreOutliers(features [][]float64) []bool {
	n := len(features)
	flags := make([]bool, n)
	if n == 0 {
		return flags
	}

	sample := f.sampleSize
	if sample <= 0 || sample > n {
		sample = n
	}
	heightLimit := int(math.Ceil(math.Log2(float64(sample))))
	rng := rand.New(rand.NewSource(f.seed))

	scores := make([]float64, n)
	indices := make([]int, n)
	for i := range indices {
		indices[i] = i
	}
	for t := 0; t < f.trees; t++ {
		rng.Shuffle(n, func(i, j int) { indices[i], indices[j] = indices[j], indices[i] })
		root := buildIsoTree(features, indices[:sample], 0, heightLimit, rng)
		for i, row := range features {
			scores[i] += pathLength(root, row, 0)
		}
	}

	norm := avgPathLength(sample)
	for i := range scores {
		avg := scores[i] / float64(f.trees)
		scores[i] = math.Exp2(-avg / norm)
	}

	// Flag the top contamination fraction by score, ties included.
	k := int(math.Round(float64(n) * f.contamination))
	if k <= 0 {
		return flags
	}
	sorted := append([]float64(nil), scores...)
	sort.Sort(sort.Reverse(sort.Float64Slice(sorted)))
	threshold := sorted[k-1]
	if threshold <= sorted[n-1] {
		// Every score is tied, nothing stands out.
		return flags
	}
	for i, s := range scores {
		if s >= threshold {
			flags[i] = true
		}
	}
	return flags
}

func buildIsoTree(features [][]float64, indices []int, depth, heightLimit int, rng *rand.Rand) *isoNode {
	if depth >= heightLimit || len(indices) <= 1 {
		return &isoNode{size: len(indices)}
	}

	dims := len(features[indices[0]])
	splittable := make([]int, 0, dims)
	for col := 0; col < dims; col++ {
		lo, hi := columnRange(features, indices, col)
		if hi > lo {
			splittable = append(splittable, col)
		}
	}
	if len(splittable) == 0 {
		return &isoNode{size: len(indices)}
	}

	col := splittable[rng.Intn(len(splittable))]
	lo, hi := columnRange(features, indices, col)
	split := lo + rng.Float64()*(hi-lo)

	var left, right []int
	for _, idx := range indices {
		if features[idx][col] < split {
			left = append(left, idx)
		} else {
			right = append(right, idx)
		}
	}
	if len(left) == 0 || len(right) == 0 {
		return &isoNode{size: len(indices)}
	}
	return &isoNode{
		splitCol:   col,
		splitValue: split,
		left:       buildIsoTree(features, left, depth+1, heightLimit, rng),
		right:      buildIsoTree(features, right, depth+1, heightLimit, rng),
	}
}

func columnRange(features [][]float64, indices []int, col int) (float64, float64) {
	lo, hi := features[indices[0]][col], features[indices[0]][col]
	for _, idx := range indices[1:] {
		v := features[idx][col]
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	return lo, hi
}

func pathLength(node *isoNode, row []float64, depth float64) float64 {
	if node.left == nil {
		return depth + avgPathLength(node.size)
	}
	if row[node.splitCol] < node.splitValue {
		return pathLength(node.left, row, depth+1)
	}
	return pathLength(node.right, row, depth+1)
}

// avgPathLength is the expected unsuccessful-search path length in a binary
// search tree of n nodes, the standard normalisation term for isolation depth.
func avgPathLength(n int) float64 {
	if n <= 1 {
		return 0
	}
	f := float64(n)
	return 2.0*(math.Log(f-1)+0.5772156649) - 2.0*(f-1)/f
}
