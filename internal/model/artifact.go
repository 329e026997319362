package model

import (
	"compress/gzip"
	"encoding/json"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/rotisserie/eris"

	"appraisal/internal/forest"
	"appraisal/internal/onehot"
	"appraisal/internal/types"
)

// FormatVersion is bumped whenever the serialised layout changes.
const FormatVersion = 1

// Artifact bundles the fitted encoder and forest together with the column
// layout they were fitted on. It is immutable once built, so one instance can
// serve any number of concurrent predictions.
type Artifact struct {
	ID             string          `json:"id"`
	Version        int             `json:"version"`
	CreatedAt      time.Time       `json:"created_at"`
	TrainingRows   int             `json:"training_rows"`
	NumericColumns []string        `json:"numeric_columns"`
	Encoder        *onehot.Encoder `json:"encoder"`
	FeatureNames   []string        `json:"feature_names"`
	Forest         *forest.Forest  `json:"forest"`
	Config         TrainConfig     `json:"config"`
	Metrics        *Metrics        `json:"metrics,omitempty"`
}

// FeatureImportance is the share of impurity reduction attributed to one
// encoded feature.
type FeatureImportance struct {
	Feature    string  `json:"feature"`
	Importance float64 `json:"importance"`
}

// Save writes the artifact as gzip-compressed JSON. The file appears at path
// only once fully written.
func (a *Artifact) Save(path string) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return eris.Wrapf(err, "model: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".artifact-*")
	if err != nil {
		return eris.Wrap(err, "model: create temp file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()

	zw := gzip.NewWriter(tmp)
	if err = json.NewEncoder(zw).Encode(a); err != nil {
		return eris.Wrap(err, "model: encode artifact")
	}
	if err = zw.Close(); err != nil {
		return eris.Wrap(err, "model: compress artifact")
	}
	if err = tmp.Sync(); err != nil {
		return eris.Wrap(err, "model: sync artifact")
	}
	if err = tmp.Close(); err != nil {
		return eris.Wrap(err, "model: close artifact")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "model: move artifact to %s", path)
	}
	return nil
}

// Load reads and verifies an artifact written by Save. Every failure is
// reported as an *ArtifactError.
func Load(path string) (*Artifact, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	defer f.Close()

	zr, err := gzip.NewReader(f)
	if err != nil {
		return nil, &ArtifactError{Path: path, Err: eris.Wrap(err, "not a gzip stream")}
	}
	defer zr.Close()

	var a Artifact
	if err := json.NewDecoder(zr).Decode(&a); err != nil {
		return nil, &ArtifactError{Path: path, Err: eris.Wrap(err, "decode")}
	}
	if err := a.check(); err != nil {
		return nil, &ArtifactError{Path: path, Err: err}
	}
	return &a, nil
}

// check verifies that the encoder, numeric columns, feature names and forest
// all agree on the feature layout.
func (a *Artifact) check() error {
	if a.Version != FormatVersion {
		return eris.Errorf("unsupported format version %d (want %d)", a.Version, FormatVersion)
	}
	if a.Encoder == nil || a.Forest == nil {
		return eris.New("incomplete artifact")
	}
	if err := a.Encoder.Check(); err != nil {
		return err
	}
	width := a.Encoder.Width() + len(a.NumericColumns)
	if len(a.FeatureNames) != width {
		return eris.Errorf("%d feature names for %d features", len(a.FeatureNames), width)
	}
	if a.Forest.NumFeatures != width {
		return eris.Errorf("forest expects %d features, layout has %d", a.Forest.NumFeatures, width)
	}
	return a.Forest.Check()
}

// InputColumns lists the columns a prediction row must carry: categorical
// first, then numeric, in fitted order.
func (a *Artifact) InputColumns() []string {
	cols := append([]string{}, a.Encoder.ColumnNames()...)
	return append(cols, a.NumericColumns...)
}

// PredictRecord estimates the price of a fully populated record.
func (a *Artifact) PredictRecord(rec types.Record) (float64, error) {
	return a.Predict(rec.Row())
}

// Predict estimates the price for one row. Categorical values unseen during
// training encode as zeros. Missing, unexpected or non-finite columns yield a
// *SchemaMismatchError.
func (a *Artifact) Predict(row types.Row) (float64, error) {
	x, err := a.Encode(row)
	if err != nil {
		return 0, err
	}
	price, err := a.Forest.Predict(x)
	if err != nil {
		return 0, eris.Wrap(err, "model: predict")
	}
	if math.IsNaN(price) || math.IsInf(price, 0) {
		return 0, eris.Errorf("model: estimator produced %v", price)
	}
	return price, nil
}

// Encode lays row out as [one-hot categorical block, numeric columns].
func (a *Artifact) Encode(row types.Row) ([]float64, error) {
	mismatch := &SchemaMismatchError{}

	numeric := make(map[string]bool, len(a.NumericColumns))
	for _, name := range a.NumericColumns {
		numeric[name] = true
		v, ok := row.Numeric[name]
		switch {
		case !ok:
			mismatch.Missing = append(mismatch.Missing, name)
		case math.IsNaN(v) || math.IsInf(v, 0):
			mismatch.Invalid = append(mismatch.Invalid, name)
		}
	}
	categorical := make(map[string]bool, len(a.Encoder.Columns))
	for _, name := range a.Encoder.ColumnNames() {
		categorical[name] = true
		if _, ok := row.Categorical[name]; !ok {
			mismatch.Missing = append(mismatch.Missing, name)
		}
	}
	for name := range row.Numeric {
		if !numeric[name] {
			mismatch.Unexpected = append(mismatch.Unexpected, name)
		}
	}
	for name := range row.Categorical {
		if !categorical[name] {
			mismatch.Unexpected = append(mismatch.Unexpected, name)
		}
	}
	if !mismatch.empty() {
		sort.Strings(mismatch.Missing)
		sort.Strings(mismatch.Unexpected)
		sort.Strings(mismatch.Invalid)
		return nil, mismatch
	}

	x := make([]float64, len(a.FeatureNames))
	w := a.Encoder.Width()
	if err := a.Encoder.TransformInto(x[:w], row.Categorical); err != nil {
		return nil, eris.Wrap(err, "model: encode")
	}
	for i, name := range a.NumericColumns {
		x[w+i] = row.Numeric[name]
	}
	return x, nil
}

// Importances returns per-feature importances, largest first.
func (a *Artifact) Importances() []FeatureImportance {
	out := make([]FeatureImportance, 0, len(a.FeatureNames))
	for i, name := range a.FeatureNames {
		var imp float64
		if i < len(a.Forest.Importances) {
			imp = a.Forest.Importances[i]
		}
		out = append(out, FeatureImportance{Feature: name, Importance: imp})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Importance > out[j].Importance })
	return out
}
