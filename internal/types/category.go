package types

// Each categorical attribute has its own closed vocabulary. Values outside the
// vocabulary are caught by Record.Validate or ParseRow before they reach the
// encoder.

type LocationCategory string

const (
	LocationUrban    LocationCategory = "Urban"
	LocationSuburban LocationCategory = "Suburban"
	LocationRural    LocationCategory = "Rural"
)

type RoadType string

const (
	RoadDirt  RoadType = "Dirt"
	RoadPaved RoadType = "Paved"
)

type ZoningType string

const (
	ZoningResidential  ZoningType = "Residential"
	ZoningCommercial   ZoningType = "Commercial"
	ZoningAgricultural ZoningType = "Agricultural"
	ZoningIndustrial   ZoningType = "Industrial"
)

// Quality grades water supply, electricity reliability and greenery.
type Quality string

const (
	QualityPoor      Quality = "Poor"
	QualityAverage   Quality = "Average"
	QualityGood      Quality = "Good"
	QualityExcellent Quality = "Excellent"
)

type InternetSpeed string

const (
	InternetSlow     InternetSpeed = "Slow"
	InternetModerate InternetSpeed = "Moderate"
	InternetFast     InternetSpeed = "Fast"
	InternetVeryFast InternetSpeed = "Very Fast"
)

type PollutionIndex string

const (
	PollutionHigh   PollutionIndex = "High"
	PollutionMedium PollutionIndex = "Medium"
	PollutionLow    PollutionIndex = "Low"
)

type LandSlope string

const (
	SlopeFlat     LandSlope = "Flat"
	SlopeModerate LandSlope = "Moderate"
	SlopeSteep    LandSlope = "Steep"
)

// SoilQuality has no "Excellent" grade, unlike Quality.
type SoilQuality string

const (
	SoilPoor    SoilQuality = "Poor"
	SoilAverage SoilQuality = "Average"
	SoilGood    SoilQuality = "Good"
)

type EarthquakeResistance string

const (
	ResistanceNo      EarthquakeResistance = "No"
	ResistancePartial EarthquakeResistance = "Partial"
	ResistanceYes     EarthquakeResistance = "Yes"
)

type TransportAvailability string

const (
	TransportNone     TransportAvailability = "None"
	TransportSome     TransportAvailability = "Some"
	TransportFrequent TransportAvailability = "Frequent"
)

var (
	LocationCategories      = []LocationCategory{LocationUrban, LocationSuburban, LocationRural}
	RoadTypes               = []RoadType{RoadDirt, RoadPaved}
	ZoningTypes             = []ZoningType{ZoningResidential, ZoningCommercial, ZoningAgricultural, ZoningIndustrial}
	Qualities               = []Quality{QualityPoor, QualityAverage, QualityGood, QualityExcellent}
	InternetSpeeds          = []InternetSpeed{InternetSlow, InternetModerate, InternetFast, InternetVeryFast}
	PollutionIndexes        = []PollutionIndex{PollutionHigh, PollutionMedium, PollutionLow}
	LandSlopes              = []LandSlope{SlopeFlat, SlopeModerate, SlopeSteep}
	SoilQualities           = []SoilQuality{SoilPoor, SoilAverage, SoilGood}
	EarthquakeResistances   = []EarthquakeResistance{ResistanceNo, ResistancePartial, ResistanceYes}
	TransportAvailabilities = []TransportAvailability{TransportNone, TransportSome, TransportFrequent}
)

func (v LocationCategory) Valid() bool      { return member(v, LocationCategories) }
func (v RoadType) Valid() bool              { return member(v, RoadTypes) }
func (v ZoningType) Valid() bool            { return member(v, ZoningTypes) }
func (v Quality) Valid() bool               { return member(v, Qualities) }
func (v InternetSpeed) Valid() bool         { return member(v, InternetSpeeds) }
func (v PollutionIndex) Valid() bool        { return member(v, PollutionIndexes) }
func (v LandSlope) Valid() bool             { return member(v, LandSlopes) }
func (v SoilQuality) Valid() bool           { return member(v, SoilQualities) }
func (v EarthquakeResistance) Valid() bool  { return member(v, EarthquakeResistances) }
func (v TransportAvailability) Valid() bool { return member(v, TransportAvailabilities) }

func member[T ~string](v T, vocab []T) bool {
	for _, candidate := range vocab {
		if v == candidate {
			return true
		}
	}
	return false
}

func strs[T ~string](vocab []T) []string {
	out := make([]string, len(vocab))
	for i, v := range vocab {
		out[i] = string(v)
	}
	return out
}
