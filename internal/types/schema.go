package types

// Column names as they appear in dataset files, HTTP payloads and artifacts.
const (
	ColArea             = "area_sqft"
	ColBedrooms         = "bedrooms"
	ColBathrooms        = "bathrooms"
	ColYearBuilt        = "year_built"
	ColRenovationYear   = "renovation_year"
	ColDistanceToCenter = "distance_to_center_mi"
	ColLotSize          = "lot_size_acres"

	ColLocation        = "location_category"
	ColRoadType        = "road_type"
	ColZoning          = "zoning_type"
	ColWaterSupply     = "water_supply_quality"
	ColElectricity     = "electricity_reliability"
	ColInternetSpeed   = "internet_speed"
	ColGreenery        = "greenery_score"
	ColPollution       = "pollution_index"
	ColLandSlope       = "land_slope"
	ColSoilQuality     = "soil_quality_index"
	ColEarthquake      = "earthquake_resistance"
	ColPublicTransport = "public_transport_availability"

	ColPrice = "price"
)

// Kind separates pass-through numeric columns from one-hot encoded ones.
type Kind string

const (
	Numeric     Kind = "numeric"
	Categorical Kind = "categorical"
)

// Column describes one feature of a PropertyRecord.
type Column struct {
	Name       string   `json:"name"`
	Label      string   `json:"label"`
	Kind       Kind     `json:"kind"`
	Vocabulary []string `json:"vocabulary,omitempty"`
}

// Columns is the full feature schema in its canonical order.
var Columns = []Column{
	{Name: ColArea, Label: "Area in Square Feet", Kind: Numeric},
	{Name: ColBedrooms, Label: "Number of Bedrooms", Kind: Numeric},
	{Name: ColBathrooms, Label: "Number of Bathrooms", Kind: Numeric},
	{Name: ColYearBuilt, Label: "Year Built", Kind: Numeric},
	{Name: ColRenovationYear, Label: "Renovation Year", Kind: Numeric},
	{Name: ColDistanceToCenter, Label: "Distance to City Center (mi)", Kind: Numeric},
	{Name: ColLotSize, Label: "Lot Size (acres)", Kind: Numeric},

	{Name: ColLocation, Label: "Location Category", Kind: Categorical, Vocabulary: strs(LocationCategories)},
	{Name: ColRoadType, Label: "Road Type", Kind: Categorical, Vocabulary: strs(RoadTypes)},
	{Name: ColZoning, Label: "Zoning Type", Kind: Categorical, Vocabulary: strs(ZoningTypes)},
	{Name: ColWaterSupply, Label: "Water Supply Quality", Kind: Categorical, Vocabulary: strs(Qualities)},
	{Name: ColElectricity, Label: "Electricity Reliability", Kind: Categorical, Vocabulary: strs(Qualities)},
	{Name: ColInternetSpeed, Label: "Internet Speed", Kind: Categorical, Vocabulary: strs(InternetSpeeds)},
	{Name: ColGreenery, Label: "Greenery Score", Kind: Categorical, Vocabulary: strs(Qualities)},
	{Name: ColPollution, Label: "Pollution Index", Kind: Categorical, Vocabulary: strs(PollutionIndexes)},
	{Name: ColLandSlope, Label: "Land Slope", Kind: Categorical, Vocabulary: strs(LandSlopes)},
	{Name: ColSoilQuality, Label: "Soil Quality Index", Kind: Categorical, Vocabulary: strs(SoilQualities)},
	{Name: ColEarthquake, Label: "Earthquake Resistance", Kind: Categorical, Vocabulary: strs(EarthquakeResistances)},
	{Name: ColPublicTransport, Label: "Public Transport Availability", Kind: Categorical, Vocabulary: strs(TransportAvailabilities)},
}

// LookupColumn returns the schema entry for name.
func LookupColumn(name string) (Column, bool) {
	for _, c := range Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnNames returns the names of all columns of the given kind, in schema order.
func ColumnNames(kind Kind) []string {
	var names []string
	for _, c := range Columns {
		if c.Kind == kind {
			names = append(names, c.Name)
		}
	}
	return names
}

// InVocabulary reports whether value belongs to the column's closed vocabulary.
func (c Column) InVocabulary(value string) bool {
	for _, v := range c.Vocabulary {
		if v == value {
			return true
		}
	}
	return false
}
