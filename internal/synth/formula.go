package synth

import (
	_ "embed"
	"math"
	"os"
	"sort"

	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"appraisal/internal/types"
)

//go:embed formula.yaml
var defaultFormula []byte

// Formula defines how a synthetic price is derived from a record: a weighted
// linear base over numeric columns, scaled by the product of per-category
// quality factors, plus zero-mean Gaussian noise.
type Formula struct {
	NoiseStd float64                       `yaml:"noise_std"`
	Weights  map[string]float64            `yaml:"weights"`
	Factors  map[string]map[string]float64 `yaml:"factors"`
}

// DefaultFormula returns the built-in formula.
func DefaultFormula() Formula {
	f, err := ParseFormula(defaultFormula)
	if err != nil {
		panic(err)
	}
	return f
}

// LoadFormula reads a YAML formula document from path.
func LoadFormula(path string) (Formula, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Formula{}, eris.Wrapf(err, "synth: read formula %s", path)
	}
	return ParseFormula(data)
}

// ParseFormula decodes and validates a YAML formula document.
func ParseFormula(data []byte) (Formula, error) {
	var f Formula
	if err := yaml.Unmarshal(data, &f); err != nil {
		return Formula{}, eris.Wrap(err, "synth: parse formula")
	}
	if err := f.Validate(); err != nil {
		return Formula{}, err
	}
	return f, nil
}

// Validate checks that weights reference numeric columns and factors reference
// categorical columns and values from their vocabularies.
func (f Formula) Validate() error {
	if f.NoiseStd < 0 || math.IsNaN(f.NoiseStd) || math.IsInf(f.NoiseStd, 0) {
		return eris.Errorf("synth: noise_std must be a finite non-negative number (got %v)", f.NoiseStd)
	}
	for name, w := range f.Weights {
		col, ok := types.LookupColumn(name)
		if !ok || col.Kind != types.Numeric {
			return eris.Errorf("synth: weight for %q: not a numeric column", name)
		}
		if math.IsNaN(w) || math.IsInf(w, 0) {
			return eris.Errorf("synth: weight for %q is not finite", name)
		}
	}
	for name, table := range f.Factors {
		col, ok := types.LookupColumn(name)
		if !ok || col.Kind != types.Categorical {
			return eris.Errorf("synth: factors for %q: not a categorical column", name)
		}
		for value, factor := range table {
			if !col.InVocabulary(value) {
				return eris.Errorf("synth: factors for %q: %q is not in the vocabulary", name, value)
			}
			if math.IsNaN(factor) || math.IsInf(factor, 0) {
				return eris.Errorf("synth: factor %s=%s is not finite", name, value)
			}
		}
	}
	return nil
}

// BasePrice is the weighted linear sum over the record's numeric columns.
func (f Formula) BasePrice(rec types.Record) float64 {
	row := rec.Row()
	var base float64
	for _, name := range sortedKeys(f.Weights) {
		base += f.Weights[name] * row.Numeric[name]
	}
	return base
}

// Modifier multiplies one factor per participating categorical column. A value
// without a factor entry contributes 1.
func (f Formula) Modifier(rec types.Record) float64 {
	row := rec.Row()
	mod := 1.0
	for _, name := range sortedKeys(f.Factors) {
		if factor, ok := f.Factors[name][row.Categorical[name]]; ok {
			mod *= factor
		}
	}
	return mod
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
