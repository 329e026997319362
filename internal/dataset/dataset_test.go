package dataset

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"appraisal/internal/synth"
	"appraisal/internal/types"
)

func generate(t *testing.T, n int, seed int64) types.Dataset {
	t.Helper()
	ds, err := synth.New(synth.DefaultFormula(), seed).Generate(n)
	require.NoError(t, err)
	return ds
}

func TestSynthesizedCSVIsByteIdentical(t *testing.T) {
	var a, b bytes.Buffer
	require.NoError(t, WriteCSV(&a, generate(t, 300, 42)))
	require.NoError(t, WriteCSV(&b, generate(t, 300, 42)))
	assert.Equal(t, a.Bytes(), b.Bytes())
}

func TestCSVRoundTrip(t *testing.T) {
	ds := generate(t, 100, 11)
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, ds))

	header := strings.SplitN(buf.String(), "\n", 2)[0]
	assert.True(t, strings.HasPrefix(header, "area_sqft,bedrooms,"))
	assert.True(t, strings.HasSuffix(header, ",price"))

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Equal(t, ds, back)
}

func TestEmptyDatasetKeepsHeader(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, nil))
	assert.Contains(t, buf.String(), "location_category")

	back, err := ReadCSV(&buf)
	require.NoError(t, err)
	assert.Empty(t, back)
}

func TestReadCSVRejectsBadInput(t *testing.T) {
	_, err := ReadCSV(strings.NewReader(""))
	assert.Error(t, err)

	_, err = ReadCSV(strings.NewReader("area_sqft,price\n1000,5\n"))
	assert.Error(t, err, "missing columns")

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, generate(t, 2, 1)))
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	lines[1] = strings.Replace(lines[1], lines[1][:strings.Index(lines[1], ",")], "lots", 1)
	_, err = ReadCSV(strings.NewReader(strings.Join(lines, "\n")))
	assert.Error(t, err, "non-numeric area")
}

func TestSaveAndLoad(t *testing.T) {
	ds := generate(t, 20, 3)
	path := filepath.Join(t.TempDir(), "data", "training.csv")
	require.NoError(t, Save(path, ds))

	back, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ds, back)

	_, err = Load(filepath.Join(t.TempDir(), "missing.csv"))
	assert.Error(t, err)
}

func TestEstimatesLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "data", "estimates.csv")

	none, err := LoadEstimates(path)
	require.NoError(t, err)
	assert.Empty(t, none)

	ds := generate(t, 2, 4)
	at := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for i, l := range ds {
		require.NoError(t, AppendEstimate(path, Estimate{
			EstimatedAt: at.Add(time.Duration(i) * time.Hour),
			ModelID:     "model-1",
			Record:      l.Record,
			Price:       l.Price,
		}))
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(data), "estimated_at"))

	got, err := LoadEstimates(path)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "model-1", got[1].ModelID)
	assert.Equal(t, ds[1].Record, got[1].Record)
	assert.True(t, got[1].EstimatedAt.Equal(at.Add(time.Hour)))
}
