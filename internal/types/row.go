package types

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Row is the untyped feature view the encoder and estimator work on. Columns
// absent from the maps are missing, not zero.
type Row struct {
	Numeric     map[string]float64
	Categorical map[string]string
}

// NewRow returns an empty Row ready for assignment.
func NewRow() Row {
	return Row{Numeric: map[string]float64{}, Categorical: map[string]string{}}
}

// Has reports whether column is set in either group.
func (r Row) Has(column string) bool {
	if _, ok := r.Numeric[column]; ok {
		return true
	}
	_, ok := r.Categorical[column]
	return ok
}

// Key renders the row in a canonical, order-independent form. Every name and
// value is length-prefixed, so distinct rows never share a key whatever
// characters their values contain.
func (r Row) Key() string {
	var b strings.Builder
	for _, k := range sortedKeys(r.Numeric) {
		b.WriteString("n")
		writeField(&b, k)
		writeField(&b, strconv.FormatFloat(r.Numeric[k], 'g', -1, 64))
	}
	for _, k := range sortedKeys(r.Categorical) {
		b.WriteString("c")
		writeField(&b, k)
		writeField(&b, r.Categorical[k])
	}
	return b.String()
}

func writeField(b *strings.Builder, s string) {
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrBadValue      = errors.New("bad value")
)

// ParseRow converts boundary input (flags, form fields) into a Row. Unknown
// column names and malformed numbers are rejected. Categorical values outside
// the vocabulary are rejected when strict is set and passed through otherwise.
// Columns absent from values remain absent.
func ParseRow(values map[string]string, strict bool) (Row, error) {
	row := NewRow()
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		raw := strings.TrimSpace(values[name])
		col, ok := LookupColumn(name)
		if !ok {
			return Row{}, fmt.Errorf("%w %q", ErrUnknownColumn, name)
		}
		switch col.Kind {
		case Numeric:
			v, err := strconv.ParseFloat(strings.ReplaceAll(raw, ",", ""), 64)
			if err != nil {
				return Row{}, fmt.Errorf("%w for %s: %q is not a number", ErrBadValue, name, raw)
			}
			row.Numeric[name] = v
		case Categorical:
			if strict && !col.InVocabulary(raw) {
				return Row{}, fmt.Errorf("%w for %s: %q (expected one of %s)", ErrBadValue, name, raw, strings.Join(col.Vocabulary, ", "))
			}
			row.Categorical[name] = raw
		}
	}
	return row, nil
}

// Record converts r back to a typed Record. Missing columns stay at their
// zero value and counts are rounded to the nearest integer.
func (r Row) Record() Record {
	count := func(name string) int { return int(math.Round(r.Numeric[name])) }
	return Record{
		Area:             r.Numeric[ColArea],
		Bedrooms:         count(ColBedrooms),
		Bathrooms:        count(ColBathrooms),
		YearBuilt:        count(ColYearBuilt),
		RenovationYear:   count(ColRenovationYear),
		DistanceToCenter: r.Numeric[ColDistanceToCenter],
		LotSize:          r.Numeric[ColLotSize],

		Location:        LocationCategory(r.Categorical[ColLocation]),
		RoadType:        RoadType(r.Categorical[ColRoadType]),
		Zoning:          ZoningType(r.Categorical[ColZoning]),
		WaterSupply:     Quality(r.Categorical[ColWaterSupply]),
		Electricity:     Quality(r.Categorical[ColElectricity]),
		InternetSpeed:   InternetSpeed(r.Categorical[ColInternetSpeed]),
		Greenery:        Quality(r.Categorical[ColGreenery]),
		Pollution:       PollutionIndex(r.Categorical[ColPollution]),
		LandSlope:       LandSlope(r.Categorical[ColLandSlope]),
		SoilQuality:     SoilQuality(r.Categorical[ColSoilQuality]),
		Earthquake:      EarthquakeResistance(r.Categorical[ColEarthquake]),
		PublicTransport: TransportAvailability(r.Categorical[ColPublicTransport]),
	}
}
