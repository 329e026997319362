// Package forest implements a random forest of CART regression trees.
//
// Every tree is grown on a bootstrap resample of the training rows with
// variance-reduction splits, and the forest predicts the mean of its trees.
// Tree i draws from a generator seeded with Seed+i, so the fitted forest does
// not depend on how trees are scheduled across workers.
package forest

import (
	"context"
	"math"
	"math/rand"
	"runtime"

	"github.com/rotisserie/eris"
	"golang.org/x/sync/errgroup"
)

// Config holds the fixed hyperparameters of a forest.
type Config struct {
	Trees           int     `json:"trees"`
	MaxDepth        int     `json:"max_depth"` // 0 means unlimited
	MinSamplesSplit int     `json:"min_samples_split"`
	MinSamplesLeaf  int     `json:"min_samples_leaf"`
	MaxFeatures     float64 `json:"max_features"` // fraction tried per split; 0 or 1 means all
	Seed            int64   `json:"seed"`
	Workers         int     `json:"-"` // 0 means runtime.NumCPU
}

// DefaultConfig mirrors the reference estimator: 200 fully grown trees over all features.
func DefaultConfig() Config {
	return Config{
		Trees:           200,
		MaxDepth:        0,
		MinSamplesSplit: 2,
		MinSamplesLeaf:  1,
		MaxFeatures:     1.0,
		Seed:            42,
	}
}

// Validate rejects hyperparameters the builder cannot honour.
func (c Config) Validate() error {
	switch {
	case c.Trees < 1:
		return eris.Errorf("forest: trees must be at least 1 (got %d)", c.Trees)
	case c.MaxDepth < 0:
		return eris.Errorf("forest: max_depth must be non-negative (got %d)", c.MaxDepth)
	case c.MinSamplesSplit < 2:
		return eris.Errorf("forest: min_samples_split must be at least 2 (got %d)", c.MinSamplesSplit)
	case c.MinSamplesLeaf < 1:
		return eris.Errorf("forest: min_samples_leaf must be at least 1 (got %d)", c.MinSamplesLeaf)
	case c.MaxFeatures < 0 || c.MaxFeatures > 1 || math.IsNaN(c.MaxFeatures):
		return eris.Errorf("forest: max_features must be within [0, 1] (got %v)", c.MaxFeatures)
	case c.Workers < 0:
		return eris.Errorf("forest: workers must be non-negative (got %d)", c.Workers)
	}
	return nil
}

// Forest is a fitted ensemble. It is never mutated after Fit returns.
type Forest struct {
	NumFeatures int       `json:"num_features"`
	Trees       []Tree    `json:"trees"`
	Importances []float64 `json:"importances"`
}

// Fit grows cfg.Trees trees on the row-major matrix x against targets y.
func Fit(ctx context.Context, cfg Config, x [][]float64, y []float64) (*Forest, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if len(x) == 0 {
		return nil, eris.New("forest: no training rows")
	}
	if len(x) != len(y) {
		return nil, eris.Errorf("forest: %d rows but %d targets", len(x), len(y))
	}
	width := len(x[0])
	if width == 0 {
		return nil, eris.New("forest: rows have no features")
	}
	for i, row := range x {
		if len(row) != width {
			return nil, eris.Errorf("forest: row %d has %d features, want %d", i, len(row), width)
		}
		for j, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return nil, eris.Errorf("forest: row %d feature %d is not finite", i, j)
			}
		}
		if math.IsNaN(y[i]) || math.IsInf(y[i], 0) {
			return nil, eris.Errorf("forest: target %d is not finite", i)
		}
	}

	binary := binaryColumns(x, width)
	trees := make([]Tree, cfg.Trees)
	gains := make([][]float64, cfg.Trees)

	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.NumCPU()
	}
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := 0; i < cfg.Trees; i++ {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return eris.Wrap(err, "forest: fit cancelled")
			}
			b := newBuilder(cfg, x, y, binary, rand.New(rand.NewSource(cfg.Seed+int64(i))))
			b.grow(b.bootstrap(), 0)
			trees[i] = Tree{Nodes: b.nodes}
			gains[i] = b.gain
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{
		NumFeatures: width,
		Trees:       trees,
		Importances: averageImportances(gains, width),
	}, nil
}

// Predict averages the trees' estimates for one feature vector.
func (f *Forest) Predict(x []float64) (float64, error) {
	if len(x) != f.NumFeatures {
		return 0, eris.Errorf("forest: got %d features, want %d", len(x), f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return 0, eris.New("forest: no trees")
	}
	var sum float64
	for i := range f.Trees {
		sum += f.Trees[i].predict(x)
	}
	return sum / float64(len(f.Trees)), nil
}

// Check verifies the structural integrity of a deserialised forest.
func (f *Forest) Check() error {
	if f.NumFeatures <= 0 {
		return eris.New("forest: no features")
	}
	if len(f.Trees) == 0 {
		return eris.New("forest: no trees")
	}
	for i, t := range f.Trees {
		if err := t.check(f.NumFeatures); err != nil {
			return eris.Wrapf(err, "forest: tree %d", i)
		}
	}
	return nil
}

// binaryColumns flags columns whose values are all 0 or 1. Those are split at
// 0.5 without sorting.
func binaryColumns(x [][]float64, width int) []bool {
	binary := make([]bool, width)
	for j := 0; j < width; j++ {
		binary[j] = true
		for _, row := range x {
			if row[j] != 0 && row[j] != 1 {
				binary[j] = false
				break
			}
		}
	}
	return binary
}

func averageImportances(gains [][]float64, width int) []float64 {
	out := make([]float64, width)
	counted := 0
	for _, g := range gains {
		var total float64
		for _, v := range g {
			total += v
		}
		if total <= 0 {
			continue
		}
		for j, v := range g {
			out[j] += v / total
		}
		counted++
	}
	if counted > 0 {
		for j := range out {
			out[j] /= float64(counted)
		}
	}
	return out
}
