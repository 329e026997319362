// Package dataset reads and writes training datasets and the estimates log as
// CSV files with a header row.
package dataset

import (
	"encoding/csv"
	"io"
	"os"
	"path/filepath"

	"github.com/jszwec/csvutil"
	"github.com/rotisserie/eris"

	"appraisal/internal/types"
)

// WriteCSV writes ds with a header row. Output is byte-for-byte stable for a
// given dataset.
func WriteCSV(w io.Writer, ds types.Dataset) error {
	cw := csv.NewWriter(w)
	enc := csvutil.NewEncoder(cw)
	if len(ds) == 0 {
		if err := enc.EncodeHeader(types.Listing{}); err != nil {
			return eris.Wrap(err, "dataset: encode header")
		}
	}
	for i := range ds {
		if err := enc.Encode(ds[i]); err != nil {
			return eris.Wrapf(err, "dataset: encode row %d", i)
		}
	}
	cw.Flush()
	if err := cw.Error(); err != nil {
		return eris.Wrap(err, "dataset: flush")
	}
	return nil
}

// ReadCSV parses a dataset written by WriteCSV. Columns may appear in any
// order, but every column must be present.
func ReadCSV(r io.Reader) (types.Dataset, error) {
	dec, err := csvutil.NewDecoder(csv.NewReader(r))
	if err == io.EOF {
		return nil, eris.New("dataset: no header row")
	}
	if err != nil {
		return nil, eris.Wrap(err, "dataset: read header")
	}
	dec.DisallowMissingColumns = true

	var ds types.Dataset
	for {
		var l types.Listing
		err := dec.Decode(&l)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, eris.Wrapf(err, "dataset: decode row %d", len(ds)+1)
		}
		ds = append(ds, l)
	}
	if unused := dec.Unused(); len(unused) > 0 {
		header := dec.Header()
		return nil, eris.Errorf("dataset: unknown column %q", header[unused[0]])
	}
	return ds, nil
}

// Save writes ds to path, creating parent directories. The file is replaced
// only after the new contents are fully written.
func Save(path string, ds types.Dataset) error {
	return writeAtomic(path, func(w io.Writer) error { return WriteCSV(w, ds) })
}

// Load reads the dataset at path.
func Load(path string) (types.Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrapf(err, "dataset: open %s", path)
	}
	defer f.Close()
	return ReadCSV(f)
}

func writeAtomic(path string, write func(io.Writer) error) (err error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return eris.Wrapf(err, "dataset: create %s", dir)
	}
	tmp, err := os.CreateTemp(dir, ".dataset-*")
	if err != nil {
		return eris.Wrap(err, "dataset: create temp file")
	}
	defer func() {
		if err != nil {
			tmp.Close()
			os.Remove(tmp.Name())
		}
	}()
	if err = write(tmp); err != nil {
		return err
	}
	if err = tmp.Close(); err != nil {
		return eris.Wrap(err, "dataset: close")
	}
	if err = os.Rename(tmp.Name(), path); err != nil {
		return eris.Wrapf(err, "dataset: move to %s", path)
	}
	return nil
}
