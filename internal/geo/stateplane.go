package geo

import "math"

// Projection is a Lambert Conformal Conic projection on the NAD83 ellipsoid
// producing US survey feet.
type Projection struct {
	falseEasting  float64
	falseNorthing float64
	lon0          float64
	e             float64
	n             float64
	f             float64
	rho0          float64
}

const (
	ftPerMeter = 3.2808333333333334 // US survey foot
	semiMajorM = 6378137.0          // NAD83 semi-major axis (metres)
	nad83E2    = 0.00669438002290   // NAD83 eccentricity squared
)

// TexasNorthCentral returns the EPSG:2276 projection (NAD83 / Texas North
// Central, ftUS) that the Fort Worth zoning shapefiles are drawn in.
func TexasNorthCentral() *Projection {
	return NewLambert(31.66666666666667, 32.13333333333333, 33.96666666666667, -98.5,
		1968500.0, 6561666.666666666)
}

// NewLambert builds a two-standard-parallel projection. Angles are in decimal
// degrees, false easting and northing in US feet.
func NewLambert(lat0, lat1, lat2, lon0, falseEasting, falseNorthing float64) *Projection {
	p := &Projection{
		falseEasting:  falseEasting,
		falseNorthing: falseNorthing,
		lon0:          radians(lon0),
		e:             math.Sqrt(nad83E2),
	}
	phi0, phi1, phi2 := radians(lat0), radians(lat1), radians(lat2)

	m := func(phi float64) float64 {
		return math.Cos(phi) / math.Sqrt(1-nad83E2*math.Sin(phi)*math.Sin(phi))
	}
	m1, m2 := m(phi1), m(phi2)
	t1, t2, t0 := p.t(phi1), p.t(phi2), p.t(phi0)

	p.n = math.Log(m1/m2) / math.Log(t1/t2)
	p.f = semiMajorM * ftPerMeter * m1 / (p.n * math.Pow(t1, p.n))
	p.rho0 = p.f * math.Pow(t0, p.n)
	return p
}

func (p *Projection) t(phi float64) float64 {
	es := p.e * math.Sin(phi)
	return math.Tan(math.Pi/4-phi/2) / math.Pow((1-es)/(1+es), p.e/2)
}

// Forward converts WGS-84 latitude/longitude to (northing, easting) feet, the
// (lat, lon) ordering used for zoning rings.
func (p *Projection) Forward(latDeg, lonDeg float64) (northingFt, eastingFt float64) {
	rho := p.f * math.Pow(p.t(radians(latDeg)), p.n)
	theta := p.n * (radians(lonDeg) - p.lon0)

	eastingFt = rho*math.Sin(theta) + p.falseEasting
	northingFt = p.rho0 - rho*math.Cos(theta) + p.falseNorthing
	return
}

func radians(d float64) float64 { return d * math.Pi / 180 }
