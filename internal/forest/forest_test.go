package forest

import (
	"context"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stepData: y depends on feature 0 (continuous) and feature 1 (binary);
// feature 2 is noise.
func stepData(n int, seed int64) ([][]float64, []float64) {
	rng := rand.New(rand.NewSource(seed))
	x := make([][]float64, n)
	y := make([]float64, n)
	for i := range x {
		a := rng.Float64() * 10
		b := float64(rng.Intn(2))
		c := rng.Float64()
		x[i] = []float64{a, b, c}
		y[i] = 100*a + 500*b
	}
	return x, y
}

func smallConfig() Config {
	cfg := DefaultConfig()
	cfg.Trees = 20
	cfg.Workers = 4
	return cfg
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, 200, cfg.Trees)
	assert.Equal(t, 0, cfg.MaxDepth)
	assert.Equal(t, int64(42), cfg.Seed)
	assert.NoError(t, cfg.Validate())
}

func TestFitApproximatesTarget(t *testing.T) {
	x, y := stepData(400, 1)
	f, err := Fit(context.Background(), smallConfig(), x, y)
	require.NoError(t, err)
	require.NoError(t, f.Check())

	for _, tc := range []struct {
		in   []float64
		want float64
	}{
		{[]float64{2, 0, 0.5}, 200},
		{[]float64{5, 1, 0.5}, 1000},
		{[]float64{8, 1, 0.1}, 1300},
	} {
		got, err := f.Predict(tc.in)
		require.NoError(t, err)
		assert.InDelta(t, tc.want, got, 60, "input %v", tc.in)
	}
}

func TestFitIsDeterministicAcrossWorkerCounts(t *testing.T) {
	x, y := stepData(300, 2)
	cfg := smallConfig()
	cfg.Workers = 1
	a, err := Fit(context.Background(), cfg, x, y)
	require.NoError(t, err)
	cfg.Workers = 8
	b, err := Fit(context.Background(), cfg, x, y)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	cfg.Seed = 99
	c, err := Fit(context.Background(), cfg, x, y)
	require.NoError(t, err)
	assert.NotEqual(t, a.Trees, c.Trees)
}

func TestImportancesFavourInformativeFeatures(t *testing.T) {
	x, y := stepData(400, 3)
	f, err := Fit(context.Background(), smallConfig(), x, y)
	require.NoError(t, err)

	require.Len(t, f.Importances, 3)
	assert.InDelta(t, 1.0, f.Importances[0]+f.Importances[1]+f.Importances[2], 1e-9)
	assert.Greater(t, f.Importances[0], f.Importances[2])
	assert.Greater(t, f.Importances[1], f.Importances[2])
}

func TestMaxDepthLimitsTrees(t *testing.T) {
	x, y := stepData(200, 4)
	cfg := smallConfig()
	cfg.MaxDepth = 1
	f, err := Fit(context.Background(), cfg, x, y)
	require.NoError(t, err)
	for _, tree := range f.Trees {
		assert.LessOrEqual(t, len(tree.Nodes), 3)
	}
}

func TestFeatureSubsampling(t *testing.T) {
	x, y := stepData(200, 5)
	cfg := smallConfig()
	cfg.MaxFeatures = 0.34
	f, err := Fit(context.Background(), cfg, x, y)
	require.NoError(t, err)
	got, err := f.Predict([]float64{5, 1, 0.5})
	require.NoError(t, err)
	assert.InDelta(t, 1000, got, 300)
}

func TestConstantTargetYieldsSingleLeaf(t *testing.T) {
	x := [][]float64{{1}, {2}, {3}, {4}}
	y := []float64{7, 7, 7, 7}
	f, err := Fit(context.Background(), smallConfig(), x, y)
	require.NoError(t, err)
	for _, tree := range f.Trees {
		assert.Len(t, tree.Nodes, 1)
	}
	got, err := f.Predict([]float64{10})
	require.NoError(t, err)
	assert.Equal(t, 7.0, got)
}

func TestFitRejectsBadInput(t *testing.T) {
	ctx := context.Background()
	_, err := Fit(ctx, smallConfig(), nil, nil)
	assert.Error(t, err)

	_, err = Fit(ctx, smallConfig(), [][]float64{{1}, {2}}, []float64{1})
	assert.Error(t, err)

	_, err = Fit(ctx, smallConfig(), [][]float64{{1}, {2, 3}}, []float64{1, 2})
	assert.Error(t, err)

	bad := smallConfig()
	bad.Trees = 0
	_, err = Fit(ctx, bad, [][]float64{{1}}, []float64{1})
	assert.Error(t, err)
}

func TestFitHonoursCancellation(t *testing.T) {
	x, y := stepData(100, 6)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Fit(ctx, smallConfig(), x, y)
	assert.Error(t, err)
}

func TestPredictRejectsWrongWidth(t *testing.T) {
	x, y := stepData(50, 7)
	f, err := Fit(context.Background(), smallConfig(), x, y)
	require.NoError(t, err)
	_, err = f.Predict([]float64{1, 2})
	assert.Error(t, err)
}

func TestCheckDetectsCorruption(t *testing.T) {
	f := &Forest{NumFeatures: 1, Trees: []Tree{{Nodes: []Node{{Feature: 0, Left: 0, Right: 5}}}}}
	assert.Error(t, f.Check())

	f = &Forest{NumFeatures: 1, Trees: []Tree{{Nodes: []Node{{Feature: 3, Left: 1, Right: 2}, {Feature: -1}, {Feature: -1}}}}}
	assert.Error(t, f.Check())

	assert.Error(t, (&Forest{NumFeatures: 1}).Check())
}
