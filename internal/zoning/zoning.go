// Package zoning looks up the zoning district of a coordinate in Fort Worth
// zoning shapefiles and maps district codes onto the ZoningType vocabulary.
package zoning

import (
	"math"
	"strings"

	shp "github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"

	"appraisal/internal/geo"
	"appraisal/internal/types"
)

// feature is a polygon (possibly multi-part) with its attribute table values.
type feature struct {
	Parts  [][][2]float64 // closed rings of [northing, easting] points
	Attrs  map[string]string
	MinLat float64
	MinLon float64
	MaxLat float64
	MaxLon float64
}

// Index holds every polygon of the loaded layers. Layers are searched in load
// order, so base layers should come before overlays.
type Index struct {
	proj     *geo.Projection
	features []feature
}

// Load reads each shapefile layer. Polygons are expected in EPSG:2276.
func Load(paths ...string) (*Index, error) {
	idx := &Index{proj: geo.TexasNorthCentral()}
	for _, p := range paths {
		feats, err := loadShapefile(p)
		if err != nil {
			return nil, eris.Wrapf(err, "zoning: load shapefile %s", p)
		}
		idx.features = append(idx.features, feats...)
	}
	return idx, nil
}

// Len returns the number of polygons loaded.
func (x *Index) Len() int { return len(x.features) }

func loadShapefile(path string) ([]feature, error) {
	r, err := shp.Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	fields := r.Fields()

	var features []feature
	for r.Next() {
		n, shape := r.Shape()
		poly, ok := shape.(*shp.Polygon)
		if !ok {
			continue
		}

		numParts := len(poly.Parts)
		parts := make([][][2]float64, numParts)
		minLat, minLon := math.MaxFloat64, math.MaxFloat64
		maxLat, maxLon := -math.MaxFloat64, -math.MaxFloat64

		for partIdx := 0; partIdx < numParts; partIdx++ {
			start := poly.Parts[partIdx]
			end := int32(len(poly.Points))
			if partIdx+1 < numParts {
				end = poly.Parts[partIdx+1]
			}
			ring := make([][2]float64, 0, int(end-start))
			for i := start; i < end; i++ {
				pt := poly.Points[i]
				ring = append(ring, [2]float64{pt.Y, pt.X})
				minLat, maxLat = math.Min(minLat, pt.Y), math.Max(maxLat, pt.Y)
				minLon, maxLon = math.Min(minLon, pt.X), math.Max(maxLon, pt.X)
			}
			parts[partIdx] = ring
		}

		attrs := make(map[string]string, len(fields))
		for i, f := range fields {
			attrs[f.String()] = strings.Trim(r.ReadAttribute(n, i), " \x00")
		}

		features = append(features, feature{
			Parts:  parts,
			Attrs:  attrs,
			MinLat: minLat,
			MinLon: minLon,
			MaxLat: maxLat,
			MaxLon: maxLon,
		})
	}
	if err := r.Err(); err != nil {
		return nil, err
	}
	return features, nil
}

// Attributes returns the attribute map of the first polygon containing the
// WGS-84 point.
func (x *Index) Attributes(lat, lon float64) (map[string]string, bool) {
	northing, easting := x.proj.Forward(lat, lon)
	for _, z := range x.features {
		if northing < z.MinLat || northing > z.MaxLat || easting < z.MinLon || easting > z.MaxLon {
			continue
		}
		for _, ring := range z.Parts {
			if pointInPolygon(northing, easting, ring) {
				return z.Attrs, true
			}
		}
	}
	return nil, false
}

// Code returns the zoning district code at the point. The base zoning layer
// names the field ZONING; overlay layers truncate it to BASE_ZONIN.
func (x *Index) Code(lat, lon float64) (string, bool) {
	attrs, ok := x.Attributes(lat, lon)
	if !ok {
		return "", false
	}
	for _, key := range []string{"ZONING", "BASE_ZONIN"} {
		if z := attrs[key]; z != "" {
			return z, true
		}
	}
	return "", false
}

// Lookup returns the ZoningType at the point along with the raw district code.
// ok is false when no polygon matches or the code has no known class.
func (x *Index) Lookup(lat, lon float64) (zt types.ZoningType, code string, ok bool) {
	code, found := x.Code(lat, lon)
	if !found {
		return "", "", false
	}
	zt, ok = Classify(code)
	return zt, code, ok
}

// pointInPolygon is the ray-casting test. Shapefile rings are closed.
func pointInPolygon(lat, lon float64, ring [][2]float64) bool {
	inside := false
	j := len(ring) - 1
	for i := 0; i < len(ring); i++ {
		yi, xi := ring[i][0], ring[i][1]
		yj, xj := ring[j][0], ring[j][1]
		if ((yi > lat) != (yj > lat)) && (lon < (xj-xi)*(lat-yi)/(yj-yi)+xi) {
			inside = !inside
		}
		j = i
	}
	return inside
}
