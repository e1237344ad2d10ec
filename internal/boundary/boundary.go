// Package boundary loads region geometry (GeoJSON or shapefile) and exposes
// it as an ordered feature set with string-addressable properties.
package boundary

import (
	"encoding/json"
	"strconv"

	"github.com/twpayne/go-geom"
	"github.com/twpayne/go-geom/xy"
)

// Properties holds a feature's attribute values as decoded from the source.
type Properties map[string]any

// Lookup returns the property formatted as join-key text. Strings are
// returned verbatim; numbers use the shortest decimal form. Null and absent
// properties are not found.
func (p Properties) Lookup(key string) (string, bool) {
	v, ok := p[key]
	if !ok || v == nil {
		return "", false
	}
	switch x := v.(type) {
	case string:
		return x, true
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64), true
	case int:
		return strconv.Itoa(x), true
	case int64:
		return strconv.FormatInt(x, 10), true
	case bool:
		return strconv.FormatBool(x), true
	default:
		b, err := json.Marshal(x)
		if err != nil {
			return "", false
		}
		return string(b), true
	}
}

// Feature is one region. Index is its position in the feature set.
type Feature struct {
	Index      int
	Geometry   *geom.MultiPolygon
	Properties Properties
}

// Contains reports whether the lon/lat point lies inside the feature,
// treating coordinates as planar. Points inside a hole are outside.
func (f *Feature) Contains(lon, lat float64) bool {
	if f == nil || f.Geometry == nil {
		return false
	}
	b := f.Geometry.Bounds()
	if b.IsEmpty() || lon < b.Min(0) || lon > b.Max(0) || lat < b.Min(1) || lat > b.Max(1) {
		return false
	}

	pt := geom.Coord{lon, lat}
	layout := f.Geometry.Layout()
	for i := 0; i < f.Geometry.NumPolygons(); i++ {
		poly := f.Geometry.Polygon(i)
		if poly.NumLinearRings() == 0 {
			continue
		}
		if !xy.IsPointInRing(layout, pt, poly.LinearRing(0).FlatCoords()) {
			continue
		}
		inHole := false
		for j := 1; j < poly.NumLinearRings(); j++ {
			if xy.IsPointInRing(layout, pt, poly.LinearRing(j).FlatCoords()) {
				inHole = true
				break
			}
		}
		if !inHole {
			return true
		}
	}
	return false
}

// FeatureSet is an ordered collection of regions. PropertyKeys lists the
// first feature's property names in document order.
type FeatureSet struct {
	Source       string
	Features     []Feature
	PropertyKeys []string
}

// Len returns the number of features.
func (fs *FeatureSet) Len() int {
	if fs == nil {
		return 0
	}
	return len(fs.Features)
}

// DefaultKeyProperty returns the first property key, or "" when the set has
// none.
func DefaultKeyProperty(fs *FeatureSet) string {
	if fs == nil || len(fs.PropertyKeys) == 0 {
		return ""
	}
	return fs.PropertyKeys[0]
}

// toMultiPolygon normalizes polygonal geometry. Other types return nil.
func toMultiPolygon(g geom.T) *geom.MultiPolygon {
	switch t := g.(type) {
	case *geom.MultiPolygon:
		return t
	case *geom.Polygon:
		mp := geom.NewMultiPolygon(t.Layout())
		if err := mp.Push(t); err != nil {
			return nil
		}
		return mp
	default:
		return nil
	}
}
