// Package model trains, persists and serves the price estimator.
package model

import (
	"context"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"appraisal/internal/forest"
	"appraisal/internal/onehot"
	"appraisal/internal/types"
)

// DefaultMinRows is the smallest dataset the trainer accepts.
const DefaultMinRows = 10

// TrainConfig is fixed configuration; nothing is tuned at runtime.
type TrainConfig struct {
	Forest  forest.Config `json:"forest"`
	MinRows int           `json:"min_rows"`
	Holdout float64       `json:"holdout"` // fraction of rows kept back for evaluation
}

// DefaultTrainConfig returns the reference configuration without a holdout.
func DefaultTrainConfig() TrainConfig {
	return TrainConfig{
		Forest:  forest.DefaultConfig(),
		MinRows: DefaultMinRows,
	}
}

// Trainer turns a dataset into an Artifact.
type Trainer struct {
	cfg TrainConfig
	log *zap.Logger
	now func() time.Time
}

// NewTrainer returns a Trainer. A nil logger discards output.
func NewTrainer(cfg TrainConfig, log *zap.Logger) *Trainer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Trainer{cfg: cfg, log: log, now: time.Now}
}

// Train validates ds, fits the encoder on its categorical columns, fits the
// forest on [encoded categoricals, numerics] and returns the bundle.
func (t *Trainer) Train(ctx context.Context, ds types.Dataset) (*Artifact, error) {
	if err := t.cfg.Forest.Validate(); err != nil {
		return nil, err
	}
	if t.cfg.Holdout < 0 || t.cfg.Holdout >= 1 {
		return nil, eris.Errorf("model: holdout must be within [0, 1) (got %v)", t.cfg.Holdout)
	}
	if err := t.validate(ds); err != nil {
		return nil, err
	}

	trainIdx, testIdx := t.split(len(ds))
	if len(trainIdx) < t.minRows() {
		return nil, &DataError{Reason: fmt.Sprintf("%d rows left for training after holdout, need at least %d", len(trainIdx), t.minRows())}
	}

	numeric := types.ColumnNames(types.Numeric)
	categorical := types.ColumnNames(types.Categorical)

	rows := make([]types.Row, len(ds))
	for i, l := range ds {
		rows[i] = l.Row()
	}
	catRows := make([]map[string]string, len(trainIdx))
	for i, idx := range trainIdx {
		catRows[i] = rows[idx].Categorical
	}
	enc, err := onehot.Fit(categorical, catRows)
	if err != nil {
		return nil, &DataError{Reason: "fit encoder", Err: err}
	}

	a := &Artifact{
		ID:             uuid.New().String(),
		Version:        FormatVersion,
		CreatedAt:      t.now().UTC(),
		TrainingRows:   len(trainIdx),
		NumericColumns: numeric,
		Encoder:        enc,
		FeatureNames:   append(enc.FeatureNames(), numeric...),
		Config:         t.cfg,
	}

	x := make([][]float64, len(trainIdx))
	y := make([]float64, len(trainIdx))
	for i, idx := range trainIdx {
		if x[i], err = a.Encode(rows[idx]); err != nil {
			return nil, &DataError{Reason: fmt.Sprintf("row %d", idx), Err: err}
		}
		y[i] = ds[idx].Price
	}

	start := t.now()
	t.log.Info("fitting forest",
		zap.Int("rows", len(x)),
		zap.Int("features", len(a.FeatureNames)),
		zap.Int("trees", t.cfg.Forest.Trees),
		zap.Int("max_depth", t.cfg.Forest.MaxDepth),
	)
	a.Forest, err = forest.Fit(ctx, t.cfg.Forest, x, y)
	if err != nil {
		return nil, eris.Wrap(err, "model: fit forest")
	}
	t.log.Info("forest fitted", zap.Duration("elapsed", t.now().Sub(start)))

	if len(testIdx) > 0 {
		actual := make([]float64, len(testIdx))
		predicted := make([]float64, len(testIdx))
		for i, idx := range testIdx {
			actual[i] = ds[idx].Price
			if predicted[i], err = a.Predict(rows[idx]); err != nil {
				return nil, eris.Wrapf(err, "model: evaluate row %d", idx)
			}
		}
		m := evaluate(actual, predicted)
		a.Metrics = &m
		t.log.Info("holdout evaluation",
			zap.Int("rows", m.Rows),
			zap.Float64("mae", m.MAE),
			zap.Float64("rmse", m.RMSE),
			zap.Float64("r2", m.R2),
		)
	}
	return a, nil
}

func (t *Trainer) minRows() int {
	if t.cfg.MinRows > 0 {
		return t.cfg.MinRows
	}
	return DefaultMinRows
}

func (t *Trainer) validate(ds types.Dataset) error {
	if len(ds) == 0 {
		return &DataError{Reason: "dataset is empty"}
	}
	if len(ds) < t.minRows() {
		return &DataError{Reason: fmt.Sprintf("dataset has %d rows, need at least %d", len(ds), t.minRows())}
	}
	for i, l := range ds {
		if err := l.Validate(); err != nil {
			return &DataError{Reason: fmt.Sprintf("row %d", i), Err: err}
		}
		if math.IsNaN(l.Price) || math.IsInf(l.Price, 0) {
			return &DataError{Reason: fmt.Sprintf("row %d: price is not finite", i)}
		}
	}
	return nil
}

// split deterministically sets aside the holdout fraction of rows.
func (t *Trainer) split(n int) (train, test []int) {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	hold := int(t.cfg.Holdout * float64(n))
	if hold == 0 {
		return idx, nil
	}
	rng := rand.New(rand.NewSource(t.cfg.Forest.Seed))
	rng.Shuffle(n, func(i, j int) { idx[i], idx[j] = idx[j], idx[i] })
	return idx[hold:], idx[:hold]
}
