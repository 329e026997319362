package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"appraisal/internal/types"
)

// Estimate is one saved prediction in the estimates log.
type Estimate struct {
	EstimatedAt time.Time `csv:"estimated_at"`
	ModelID     string    `csv:"model_id"`
	types.Record
	Price float64 `csv:"estimated_price"`
}

// AppendEstimate appends e to the log at path, writing the header first when
// the file is new or empty. The log survives across program invocations.
func AppendEstimate(path string, e Estimate) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return eris.Wrap(err, "dataset: create estimates directory")
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return eris.Wrap(err, "dataset: stat estimates log")
	}

	cw := csv.NewWriter(f)
	enc := csvutil.NewEncoder(cw)
	enc.AutoHeader = info.Size() == 0
	if err := enc.Encode(e); err != nil {
		return eris.Wrap(err, "dataset: encode estimate")
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "dataset: write estimate")
	}
	return nil
}

// LoadEstimates returns every estimate in the log. A missing log is empty, not
// an error.
func LoadEstimates(path string) ([]Estimate, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()

	dec, err := csvutil.NewDecoder(csv.NewReader(f))
	if err == io.EOF {
		return nil, nil
	}
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read estimates header")
	}
	var out []Estimate
	for {
		var e Estimate
		if err := dec.Decode(&e); err == io.EOF {
			break
		} else if err != nil {
			return nil, eris.Wrapf(err, "dataset: decode estimate %d", len(out)+1)
		}
		out = append(out, e)
	}
	return out, nil
}
