// Package onehot encodes categorical columns as indicator vectors.
//
// Categories are learned from training data and sorted per column. A value not
// seen during fitting encodes as an all-zero block instead of failing.
package onehot

import (
	"sort"

	"github.com/rotisserie/eris"
)

// Column is the learned vocabulary of one categorical column.
type Column struct {
	Name       string   `json:"name"`
	Categories []string `json:"categories"`
}

// Encoder maps categorical values to one-hot blocks laid out in column order.
type Encoder struct {
	Columns []Column `json:"columns"`
}

// Fit learns the distinct values of each named column from rows.
func Fit(columns []string, rows []map[string]string) (*Encoder, error) {
	if len(rows) == 0 {
		return nil, eris.New("onehot: no rows to fit")
	}
	enc := &Encoder{Columns: make([]Column, 0, len(columns))}
	seen := make(map[string]bool, len(columns))
	for _, name := range columns {
		if seen[name] {
			return nil, eris.Errorf("onehot: duplicate column %q", name)
		}
		seen[name] = true

		distinct := make(map[string]struct{})
		for i, row := range rows {
			v, ok := row[name]
			if !ok {
				return nil, eris.Errorf("onehot: row %d has no value for %q", i, name)
			}
			distinct[v] = struct{}{}
		}
		cats := make([]string, 0, len(distinct))
		for v := range distinct {
			cats = append(cats, v)
		}
		sort.Strings(cats)
		enc.Columns = append(enc.Columns, Column{Name: name, Categories: cats})
	}
	return enc, nil
}

// Width is the total number of indicator columns.
func (e *Encoder) Width() int {
	w := 0
	for _, c := range e.Columns {
		w += len(c.Categories)
	}
	return w
}

// ColumnNames lists the encoded categorical columns in order.
func (e *Encoder) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// FeatureNames names each indicator column as "column=value".
func (e *Encoder) FeatureNames() []string {
	names := make([]string, 0, e.Width())
	for _, c := range e.Columns {
		for _, v := range c.Categories {
			names = append(names, c.Name+"="+v)
		}
	}
	return names
}

// Transform encodes values into a fresh vector of length Width.
func (e *Encoder) Transform(values map[string]string) ([]float64, error) {
	out := make([]float64, e.Width())
	if err := e.TransformInto(out, values); err != nil {
		return nil, err
	}
	return out, nil
}

// TransformInto writes the encoding of values into dst, which must have
// length Width. Every encoder column must be present in values.
func (e *Encoder) TransformInto(dst []float64, values map[string]string) error {
	if len(dst) != e.Width() {
		return eris.Errorf("onehot: destination has %d slots, want %d", len(dst), e.Width())
	}
	offset := 0
	for _, c := range e.Columns {
		v, ok := values[c.Name]
		if !ok {
			return eris.Errorf("onehot: missing value for %q", c.Name)
		}
		block := dst[offset : offset+len(c.Categories)]
		for i := range block {
			block[i] = 0
		}
		if idx, found := index(c.Categories, v); found {
			block[idx] = 1
		}
		offset += len(c.Categories)
	}
	return nil
}

// Decode recovers the categorical values from an encoded vector. Columns whose
// block has no indicator set (unknown at encode time) are omitted.
func (e *Encoder) Decode(vec []float64) (map[string]string, error) {
	if len(vec) != e.Width() {
		return nil, eris.Errorf("onehot: vector has %d slots, want %d", len(vec), e.Width())
	}
	out := make(map[string]string, len(e.Columns))
	offset := 0
	for _, c := range e.Columns {
		for i, cat := range c.Categories {
			if vec[offset+i] == 1 {
				out[c.Name] = cat
				break
			}
		}
		offset += len(c.Categories)
	}
	return out, nil
}

// Check verifies that column names are unique and every vocabulary is sorted
// without duplicates, which lookups depend on.
func (e *Encoder) Check() error {
	seen := make(map[string]bool, len(e.Columns))
	for _, c := range e.Columns {
		if seen[c.Name] {
			return eris.Errorf("onehot: duplicate column %q", c.Name)
		}
		seen[c.Name] = true
		for i := 1; i < len(c.Categories); i++ {
			if c.Categories[i-1] >= c.Categories[i] {
				return eris.Errorf("onehot: categories of %q are not sorted and unique", c.Name)
			}
		}
	}
	return nil
}

// Known reports whether value was seen for column during fitting.
func (e *Encoder) Known(column, value string) bool {
	for _, c := range e.Columns {
		if c.Name == column {
			_, ok := index(c.Categories, value)
			return ok
		}
	}
	return false
}

func index(sorted []string, v string) (int, bool) {
	i := sort.SearchStrings(sorted, v)
	return i, i < len(sorted) && sorted[i] == v
}
