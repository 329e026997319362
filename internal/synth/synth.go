// Package synth fabricates labelled property records for training.
package synth

import (
	"math"
	"math/rand"

	"github.com/rotisserie/eris"

	"appraisal/internal/types"
)

// Sampling ranges. Integer ranges are half-open.
const (
	MinArea, MaxArea                     = 1000, 100000
	MinBedrooms, MaxBedrooms             = 1, 7
	MinBathrooms, MaxBathrooms           = 1, 5
	MinYearBuilt, MaxYearBuilt           = 2000, 2024
	MinRenovationYear, MaxRenovationYear = 2020, 2026
	MaxDistanceMiles                     = 40.0
	MinLotAcres, MaxLotAcres             = 0.05, 20.0
)

// Synthesizer draws records independently from fixed distributions and prices
// them with a Formula.
type Synthesizer struct {
	formula Formula
	seed    int64
}

// New returns a Synthesizer. The same formula and seed always produce the same
// dataset.
func New(formula Formula, seed int64) *Synthesizer {
	return &Synthesizer{formula: formula, seed: seed}
}

// Generate returns exactly n listings.
func (s *Synthesizer) Generate(n int) (types.Dataset, error) {
	if n < 0 {
		return nil, eris.Errorf("synth: record count must be non-negative (got %d)", n)
	}
	if err := s.formula.Validate(); err != nil {
		return nil, err
	}

	rng := rand.New(rand.NewSource(s.seed))
	ds := make(types.Dataset, n)
	for i := range ds {
		rec := drawRecord(rng)
		noise := rng.NormFloat64() * s.formula.NoiseStd
		ds[i] = types.Listing{
			Record: rec,
			Price:  s.formula.BasePrice(rec)*s.formula.Modifier(rec) + noise,
		}
	}
	return ds, nil
}

// drawRecord consumes the generator in a fixed field order.
func drawRecord(rng *rand.Rand) types.Record {
	return types.Record{
		Area:             float64(intIn(rng, MinArea, MaxArea)),
		Bedrooms:         intIn(rng, MinBedrooms, MaxBedrooms),
		Bathrooms:        intIn(rng, MinBathrooms, MaxBathrooms),
		YearBuilt:        intIn(rng, MinYearBuilt, MaxYearBuilt),
		RenovationYear:   intIn(rng, MinRenovationYear, MaxRenovationYear),
		DistanceToCenter: round2(rng.Float64() * MaxDistanceMiles),
		LotSize:          round2(MinLotAcres + rng.Float64()*(MaxLotAcres-MinLotAcres)),

		Location:        pick(rng, types.LocationCategories),
		RoadType:        pick(rng, types.RoadTypes),
		Zoning:          pick(rng, types.ZoningTypes),
		WaterSupply:     pick(rng, types.Qualities),
		Electricity:     pick(rng, types.Qualities),
		InternetSpeed:   pick(rng, types.InternetSpeeds),
		Greenery:        pick(rng, types.Qualities),
		Pollution:       pick(rng, types.PollutionIndexes),
		LandSlope:       pick(rng, types.LandSlopes),
		SoilQuality:     pick(rng, types.SoilQualities),
		Earthquake:      pick(rng, types.EarthquakeResistances),
		PublicTransport: pick(rng, types.TransportAvailabilities),
	}
}

func intIn(rng *rand.Rand, lo, hi int) int {
	return lo + rng.Intn(hi-lo)
}

func pick[T any](rng *rand.Rand, vocab []T) T {
	return vocab[rng.Intn(len(vocab))]
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
