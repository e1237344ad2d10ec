package boundary

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom/encoding/geojson"
	"go.uber.org/zap"
)

// rawDocument captures the parts of a GeoJSON document whose ordering the
// geometry decoder discards.
type rawDocument struct {
	Type     string `json:"type"`
	Features []struct {
		Properties json.RawMessage `json:"properties"`
	} `json:"features"`
	Properties json.RawMessage `json:"properties"`
}

// ParseGeoJSON decodes a FeatureCollection or a single Feature. Polygon and
// MultiPolygon features are kept; other geometry is skipped.
func ParseGeoJSON(source string, r io.Reader) (*FeatureSet, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: read input")
	}

	var raw rawDocument
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, eris.Wrap(err, "geojson: decode document")
	}

	var (
		features []*geojson.Feature
		firstRaw json.RawMessage
	)
	switch raw.Type {
	case "FeatureCollection":
		var fc geojson.FeatureCollection
		if err := json.Unmarshal(data, &fc); err != nil {
			return nil, eris.Wrap(err, "geojson: decode feature collection")
		}
		features = fc.Features
		if len(raw.Features) > 0 {
			firstRaw = raw.Features[0].Properties
		}
	case "Feature":
		var f geojson.Feature
		if err := json.Unmarshal(data, &f); err != nil {
			return nil, eris.Wrap(err, "geojson: decode feature")
		}
		features = []*geojson.Feature{&f}
		firstRaw = raw.Properties
	default:
		return nil, eris.Errorf("geojson: unsupported document type %q", raw.Type)
	}

	fs := &FeatureSet{Source: source}
	skipped := 0
	for _, f := range features {
		if f == nil {
			skipped++
			continue
		}
		mp := toMultiPolygon(f.Geometry)
		if mp == nil {
			skipped++
			continue
		}
		props := Properties(f.Properties)
		if props == nil {
			props = Properties{}
		}
		fs.Features = append(fs.Features, Feature{
			Index:      len(fs.Features),
			Geometry:   mp,
			Properties: props,
		})
	}
	if skipped > 0 {
		zap.L().Debug("geojson: skipped non-polygon features",
			zap.String("source", source),
			zap.Int("skipped", skipped),
		)
	}
	if len(fs.Features) == 0 {
		return nil, eris.Errorf("geojson: %s contains no polygon features", source)
	}

	keys, err := objectKeys(firstRaw)
	if err != nil {
		return nil, eris.Wrap(err, "geojson: read property keys")
	}
	fs.PropertyKeys = keys
	return fs, nil
}

// objectKeys returns the top-level keys of a JSON object in document order.
// A null or empty message has no keys.
func objectKeys(msg json.RawMessage) ([]string, error) {
	msg = bytes.TrimSpace(msg)
	if len(msg) == 0 || bytes.Equal(msg, []byte("null")) {
		return nil, nil
	}

	dec := json.NewDecoder(bytes.NewReader(msg))
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("expected object, got %v", tok)
	}

	var keys []string
	seen := make(map[string]bool)
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return nil, err
		}
		key, ok := tok.(string)
		if !ok {
			return nil, fmt.Errorf("expected key, got %v", tok)
		}
		if !seen[key] {
			seen[key] = true
			keys = append(keys, key)
		}
		var skip json.RawMessage
		if err := dec.Decode(&skip); err != nil {
			return nil, err
		}
	}
	return keys, nil
}
