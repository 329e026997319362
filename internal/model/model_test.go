package model

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/onehot"
	"appraisal/internal/synth"
	"appraisal/internal/types"
)

func testConfig() TrainConfig {
	cfg := DefaultTrainConfig()
	cfg.Forest.Trees = 20
	cfg.Forest.Workers = 4
	return cfg
}

func dataset(t *testing.T, n int, seed int64) types.Dataset {
	t.Helper()
	ds, err := synth.New(synth.DefaultFormula(), seed).Generate(n)
	require.NoError(t, err)
	return ds
}

var (
	sharedOnce     sync.Once
	sharedArtifact *Artifact
	sharedErr      error
)

// trained returns one artifact fitted on 1000 synthetic rows with seed 42.
func trained(t *testing.T) *Artifact {
	t.Helper()
	sharedOnce.Do(func() {
		ds, err := synth.New(synth.DefaultFormula(), 42).Generate(1000)
		if err != nil {
			sharedErr = err
			return
		}
		sharedArtifact, sharedErr = NewTrainer(testConfig(), nil).Train(context.Background(), ds)
	})
	require.NoError(t, sharedErr)
	return sharedArtifact
}

func scenarioRecord() types.Record {
	return types.Record{
		Area:             1000,
		Bedrooms:         3,
		Bathrooms:        2,
		YearBuilt:        2015,
		RenovationYear:   2022,
		DistanceToCenter: 5,
		LotSize:          0.5,
		Location:         types.LocationUrban,
		RoadType:         types.RoadPaved,
		Zoning:           types.ZoningResidential,
		WaterSupply:      types.QualityGood,
		Electricity:      types.QualityGood,
		InternetSpeed:    types.InternetFast,
		Greenery:         types.QualityAverage,
		Pollution:        types.PollutionMedium,
		LandSlope:        types.SlopeFlat,
		SoilQuality:      types.SoilAverage,
		Earthquake:       types.ResistancePartial,
		PublicTransport:  types.TransportSome,
	}
}

func TestEndToEndScenarioIsReproducible(t *testing.T) {
	a := trained(t)
	price, err := a.PredictRecord(scenarioRecord())
	require.NoError(t, err)
	assert.False(t, math.IsNaN(price) || math.IsInf(price, 0))
	assert.Positive(t, price)

	again, err := NewTrainer(testConfig(), nil).Train(context.Background(), dataset(t, 1000, 42))
	require.NoError(t, err)
	price2, err := again.PredictRecord(scenarioRecord())
	require.NoError(t, err)
	assert.Equal(t, price, price2)
	assert.NotEqual(t, a.ID, again.ID)
}

func TestArtifactLayout(t *testing.T) {
	a := trained(t)
	assert.Equal(t, types.ColumnNames(types.Numeric), a.NumericColumns)
	assert.Equal(t, types.ColumnNames(types.Categorical), a.Encoder.ColumnNames())
	assert.Len(t, a.FeatureNames, a.Encoder.Width()+len(a.NumericColumns))
	assert.Equal(t, "location_category=Rural", a.FeatureNames[0])
	assert.Equal(t, types.ColArea, a.FeatureNames[a.Encoder.Width()])
	assert.Equal(t, 1000, a.TrainingRows)
	assert.Equal(t, types.ColArea, a.Importances()[0].Feature)
}

func TestUnknownCategoryStillPredicts(t *testing.T) {
	a := trained(t)
	rec := scenarioRecord()
	rec.Location = "Coastal"
	rec.InternetSpeed = "Satellite"
	price, err := a.PredictRecord(rec)
	require.NoError(t, err)
	assert.False(t, math.IsNaN(price) || math.IsInf(price, 0))
}

func TestMissingNumericFieldIsSchemaMismatch(t *testing.T) {
	a := trained(t)
	row := scenarioRecord().Row()
	delete(row.Numeric, types.ColArea)

	_, err := a.Predict(row)
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch), "got %v", err)
	assert.Equal(t, []string{types.ColArea}, mismatch.Missing)
}

func TestSchemaMismatchVariants(t *testing.T) {
	a := trained(t)

	row := scenarioRecord().Row()
	row.Numeric["pool_count"] = 1
	delete(row.Categorical, types.ColRoadType)
	_, err := a.Predict(row)
	var mismatch *SchemaMismatchError
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{types.ColRoadType}, mismatch.Missing)
	assert.Equal(t, []string{"pool_count"}, mismatch.Unexpected)
	assert.Contains(t, mismatch.Error(), "road_type")

	row = scenarioRecord().Row()
	row.Numeric[types.ColLotSize] = math.NaN()
	_, err = a.Predict(row)
	require.True(t, errors.As(err, &mismatch))
	assert.Equal(t, []string{types.ColLotSize}, mismatch.Invalid)
}

func TestConcurrentPredictions(t *testing.T) {
	a := trained(t)
	want, err := a.PredictRecord(scenarioRecord())
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func() {
			defer wg.Done()
			results[i], _ = a.PredictRecord(scenarioRecord())
		}()
	}
	wg.Wait()
	for _, got := range results {
		assert.Equal(t, want, got)
	}
}

func TestTrainRejectsBadData(t *testing.T) {
	trainer := NewTrainer(testConfig(), nil)
	var dataErr *DataError

	_, err := trainer.Train(context.Background(), nil)
	require.True(t, errors.As(err, &dataErr))
	assert.Contains(t, err.Error(), "empty")

	_, err = trainer.Train(context.Background(), dataset(t, 9, 1))
	require.True(t, errors.As(err, &dataErr))

	ds := dataset(t, 50, 1)
	ds[3].Zoning = "Mixed"
	_, err = trainer.Train(context.Background(), ds)
	require.True(t, errors.As(err, &dataErr))
	assert.Contains(t, err.Error(), "row 3")

	ds = dataset(t, 50, 1)
	ds[7].Price = math.Inf(1)
	_, err = trainer.Train(context.Background(), ds)
	require.True(t, errors.As(err, &dataErr))
}

func TestTrainAcceptsConstantColumns(t *testing.T) {
	ds := dataset(t, 40, 2)
	for i := range ds {
		ds[i].Location = types.LocationRural
		ds[i].Bedrooms = 2
	}
	a, err := NewTrainer(testConfig(), nil).Train(context.Background(), ds)
	require.NoError(t, err)
	assert.Equal(t, []string{"Rural"}, a.Encoder.Columns[0].Categories)
}

func TestHoldoutMetrics(t *testing.T) {
	cfg := testConfig()
	cfg.Holdout = 0.2
	a, err := NewTrainer(cfg, nil).Train(context.Background(), dataset(t, 600, 5))
	require.NoError(t, err)
	require.NotNil(t, a.Metrics)
	assert.Equal(t, 120, a.Metrics.Rows)
	assert.Equal(t, 480, a.TrainingRows)
	assert.Greater(t, a.Metrics.R2, 0.8)
	assert.Positive(t, a.Metrics.MAE)
	assert.GreaterOrEqual(t, a.Metrics.RMSE, a.Metrics.MAE)

	cfg.Holdout = 1
	_, err = NewTrainer(cfg, nil).Train(context.Background(), dataset(t, 50, 5))
	assert.Error(t, err)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	a := trained(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "nested", "model.json.gz")
	require.NoError(t, a.Save(path))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	loaded, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, a.ID, loaded.ID)
	assert.Equal(t, a.FeatureNames, loaded.FeatureNames)

	want, err := a.PredictRecord(scenarioRecord())
	require.NoError(t, err)
	got, err := loaded.PredictRecord(scenarioRecord())
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestSaveFailureLeavesNoFile(t *testing.T) {
	a := trained(t)
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0644))

	err := a.Save(filepath.Join(blocker, "model.json.gz"))
	assert.Error(t, err)
	_, statErr := os.Stat(filepath.Join(blocker, "model.json.gz"))
	assert.Error(t, statErr)
}

func TestLoadFailuresAreArtifactErrors(t *testing.T) {
	dir := t.TempDir()
	var artErr *ArtifactError

	_, err := Load(filepath.Join(dir, "missing.json.gz"))
	require.True(t, errors.As(err, &artErr))
	assert.True(t, errors.Is(err, os.ErrNotExist))

	garbage := filepath.Join(dir, "garbage")
	require.NoError(t, os.WriteFile(garbage, []byte("not a model"), 0644))
	_, err = Load(garbage)
	require.True(t, errors.As(err, &artErr))

	badJSON := filepath.Join(dir, "bad.json.gz")
	require.NoError(t, os.WriteFile(badJSON, gzipped(t, `{"id": 5`), 0644))
	_, err = Load(badJSON)
	require.True(t, errors.As(err, &artErr))

	wrongVersion := filepath.Join(dir, "v99.json.gz")
	require.NoError(t, os.WriteFile(wrongVersion, gzipped(t, `{"id":"x","version":99}`), 0644))
	_, err = Load(wrongVersion)
	require.True(t, errors.As(err, &artErr))
	assert.Contains(t, err.Error(), "version")
}

func TestLoadRejectsInconsistentLayout(t *testing.T) {
	a := trained(t)
	broken := *a
	broken.NumericColumns = broken.NumericColumns[1:]
	path := filepath.Join(t.TempDir(), "broken.json.gz")
	require.NoError(t, broken.Save(path))

	_, err := Load(path)
	var artErr *ArtifactError
	require.True(t, errors.As(err, &artErr))
}

func TestLoadRejectsUnsortedCategories(t *testing.T) {
	a := trained(t)
	broken := *a
	cols := append([]onehot.Column{}, a.Encoder.Columns...)
	cats := append([]string{}, cols[0].Categories...)
	require.GreaterOrEqual(t, len(cats), 2)
	cats[0], cats[1] = cats[1], cats[0]
	cols[0].Categories = cats
	broken.Encoder = &onehot.Encoder{Columns: cols}
	path := filepath.Join(t.TempDir(), "unsorted.json.gz")
	require.NoError(t, broken.Save(path))

	_, err := Load(path)
	var artErr *ArtifactError
	require.True(t, errors.As(err, &artErr))
	assert.Contains(t, err.Error(), "not sorted")
}

func gzipped(t *testing.T, s string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(s))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}
