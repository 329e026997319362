package onehot

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fitted(t *testing.T) *Encoder {
	t.Helper()
	enc, err := Fit([]string{"location", "road"}, []map[string]string{
		{"location": "Urban", "road": "Paved"},
		{"location": "Rural", "road": "Dirt"},
		{"location": "Suburban", "road": "Paved"},
		{"location": "Urban", "road": "Dirt"},
	})
	require.NoError(t, err)
	return enc
}

func TestFitLayout(t *testing.T) {
	enc := fitted(t)
	assert.Equal(t, 5, enc.Width())
	assert.Equal(t, []string{"location", "road"}, enc.ColumnNames())
	assert.Equal(t, []string{
		"location=Rural", "location=Suburban", "location=Urban",
		"road=Dirt", "road=Paved",
	}, enc.FeatureNames())
}

func TestTransform(t *testing.T) {
	enc := fitted(t)
	vec, err := enc.Transform(map[string]string{"location": "Urban", "road": "Dirt"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 1, 1, 0}, vec)
}

func TestRoundTrip(t *testing.T) {
	enc := fitted(t)
	for _, in := range []map[string]string{
		{"location": "Rural", "road": "Paved"},
		{"location": "Suburban", "road": "Dirt"},
	} {
		vec, err := enc.Transform(in)
		require.NoError(t, err)
		out, err := enc.Decode(vec)
		require.NoError(t, err)
		assert.Equal(t, in, out)
	}
}

func TestUnknownValueEncodesAsZeros(t *testing.T) {
	enc := fitted(t)
	vec, err := enc.Transform(map[string]string{"location": "Coastal", "road": "Paved"})
	require.NoError(t, err)
	assert.Equal(t, []float64{0, 0, 0, 0, 1}, vec)
	assert.False(t, enc.Known("location", "Coastal"))
	assert.True(t, enc.Known("location", "Urban"))

	out, err := enc.Decode(vec)
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"road": "Paved"}, out)
}

func TestMissingColumnIsAnError(t *testing.T) {
	enc := fitted(t)
	_, err := enc.Transform(map[string]string{"location": "Urban"})
	assert.Error(t, err)

	_, err = enc.Decode([]float64{1})
	assert.Error(t, err)
}

func TestFitErrors(t *testing.T) {
	_, err := Fit([]string{"a"}, nil)
	assert.Error(t, err)

	_, err = Fit([]string{"a", "a"}, []map[string]string{{"a": "x"}})
	assert.Error(t, err)

	_, err = Fit([]string{"a"}, []map[string]string{{"b": "x"}})
	assert.Error(t, err)
}

func TestEncoderSurvivesJSON(t *testing.T) {
	enc := fitted(t)
	data, err := json.Marshal(enc)
	require.NoError(t, err)

	var back Encoder
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, enc.FeatureNames(), back.FeatureNames())
}

func TestCheck(t *testing.T) {
	require.NoError(t, fitted(t).Check())

	unsorted := &Encoder{Columns: []Column{{Name: "road", Categories: []string{"Paved", "Dirt"}}}}
	assert.Error(t, unsorted.Check())

	dup := &Encoder{Columns: []Column{{Name: "road", Categories: []string{"Dirt", "Dirt"}}}}
	assert.Error(t, dup.Check())

	twice := &Encoder{Columns: []Column{{Name: "road"}, {Name: "road"}}}
	assert.Error(t, twice.Check())
}
