package types

import (
	"fmt"
	"math"
	"strings"
)

const (
	MinYear = 1800
	MaxYear = 2100
)

// Record holds the attributes of one property: one dataset row or one
// prediction request.
type Record struct {
	Area             float64 `csv:"area_sqft" json:"area_sqft"`
	Bedrooms         int     `csv:"bedrooms" json:"bedrooms"`
	Bathrooms        int     `csv:"bathrooms" json:"bathrooms"`
	YearBuilt        int     `csv:"year_built" json:"year_built"`
	RenovationYear   int     `csv:"renovation_year" json:"renovation_year"`
	DistanceToCenter float64 `csv:"distance_to_center_mi" json:"distance_to_center_mi"`
	LotSize          float64 `csv:"lot_size_acres" json:"lot_size_acres"`

	Location        LocationCategory      `csv:"location_category" json:"location_category"`
	RoadType        RoadType              `csv:"road_type" json:"road_type"`
	Zoning          ZoningType            `csv:"zoning_type" json:"zoning_type"`
	WaterSupply     Quality               `csv:"water_supply_quality" json:"water_supply_quality"`
	Electricity     Quality               `csv:"electricity_reliability" json:"electricity_reliability"`
	InternetSpeed   InternetSpeed         `csv:"internet_speed" json:"internet_speed"`
	Greenery        Quality               `csv:"greenery_score" json:"greenery_score"`
	Pollution       PollutionIndex        `csv:"pollution_index" json:"pollution_index"`
	LandSlope       LandSlope             `csv:"land_slope" json:"land_slope"`
	SoilQuality     SoilQuality           `csv:"soil_quality_index" json:"soil_quality_index"`
	Earthquake      EarthquakeResistance  `csv:"earthquake_resistance" json:"earthquake_resistance"`
	PublicTransport TransportAvailability `csv:"public_transport_availability" json:"public_transport_availability"`
}

// Listing is a Record labelled with its price.
type Listing struct {
	Record
	Price float64 `csv:"price" json:"price"`
}

// Dataset is an ordered sequence of labelled records.
type Dataset []Listing

// Row returns the untyped feature view of r. Every schema column is present.
func (r Record) Row() Row {
	return Row{
		Numeric: map[string]float64{
			ColArea:             r.Area,
			ColBedrooms:         float64(r.Bedrooms),
			ColBathrooms:        float64(r.Bathrooms),
			ColYearBuilt:        float64(r.YearBuilt),
			ColRenovationYear:   float64(r.RenovationYear),
			ColDistanceToCenter: r.DistanceToCenter,
			ColLotSize:          r.LotSize,
		},
		Categorical: map[string]string{
			ColLocation:        string(r.Location),
			ColRoadType:        string(r.RoadType),
			ColZoning:          string(r.Zoning),
			ColWaterSupply:     string(r.WaterSupply),
			ColElectricity:     string(r.Electricity),
			ColInternetSpeed:   string(r.InternetSpeed),
			ColGreenery:        string(r.Greenery),
			ColPollution:       string(r.Pollution),
			ColLandSlope:       string(r.LandSlope),
			ColSoilQuality:     string(r.SoilQuality),
			ColEarthquake:      string(r.Earthquake),
			ColPublicTransport: string(r.PublicTransport),
		},
	}
}

// Validate checks numeric bounds and categorical vocabularies. All problems
// are reported together.
func (r Record) Validate() error {
	var problems []string
	nonNegative := func(name string, v float64) {
		if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
			problems = append(problems, fmt.Sprintf("%s must be a non-negative number (got %v)", name, v))
		}
	}
	nonNegative(ColArea, r.Area)
	nonNegative(ColBedrooms, float64(r.Bedrooms))
	nonNegative(ColBathrooms, float64(r.Bathrooms))
	nonNegative(ColDistanceToCenter, r.DistanceToCenter)
	nonNegative(ColLotSize, r.LotSize)

	plausibleYear := func(name string, year int) {
		if year < MinYear || year > MaxYear {
			problems = append(problems, fmt.Sprintf("%s must be between %d and %d (got %d)", name, MinYear, MaxYear, year))
		}
	}
	plausibleYear(ColYearBuilt, r.YearBuilt)
	plausibleYear(ColRenovationYear, r.RenovationYear)

	check := func(name string, ok bool, value string) {
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unsupported value %q", name, value))
		}
	}
	check(ColLocation, r.Location.Valid(), string(r.Location))
	check(ColRoadType, r.RoadType.Valid(), string(r.RoadType))
	check(ColZoning, r.Zoning.Valid(), string(r.Zoning))
	check(ColWaterSupply, r.WaterSupply.Valid(), string(r.WaterSupply))
	check(ColElectricity, r.Electricity.Valid(), string(r.Electricity))
	check(ColInternetSpeed, r.InternetSpeed.Valid(), string(r.InternetSpeed))
	check(ColGreenery, r.Greenery.Valid(), string(r.Greenery))
	check(ColPollution, r.Pollution.Valid(), string(r.Pollution))
	check(ColLandSlope, r.LandSlope.Valid(), string(r.LandSlope))
	check(ColSoilQuality, r.SoilQuality.Valid(), string(r.SoilQuality))
	check(ColEarthquake, r.Earthquake.Valid(), string(r.Earthquake))
	check(ColPublicTransport, r.PublicTransport.Valid(), string(r.PublicTransport))

	if len(problems) > 0 {
		return fmt.Errorf("invalid record: %s", strings.Join(problems, "; "))
	}
	return nil
}
