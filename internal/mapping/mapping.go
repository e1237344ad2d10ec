// Package mapping holds the user's plot configuration: which columns feed
// the map, which colors and scheme to use, and the rendering toggles.
package mapping

import (
	"fmt"
	"os"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/rotisserie/eris"
	"gopkg.in/yaml.v3"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/dataset"
	"github.com/sells-group/geoplot/internal/scale"
)

// Mode selects the plot type.
type Mode string

const (
	ModePoint      Mode = "point"
	ModeChoropleth Mode = "choropleth"
)

// FixedSize is the SizeColumn value meaning every marker gets the base radius.
const FixedSize = ""

// Config is the complete mapping configuration. It is a value type; use With
// or Apply to derive a changed copy.
type Config struct {
	Mode Mode `json:"mode" yaml:"mode"`

	LatColumn  string `json:"lat_column" yaml:"lat_column"`
	LonColumn  string `json:"lon_column" yaml:"lon_column"`
	SizeColumn string `json:"size_column" yaml:"size_column"`

	ValueColumn string `json:"value_column" yaml:"value_column"`
	KeyColumn   string `json:"key_column" yaml:"key_column"`
	KeyProperty string `json:"key_property" yaml:"key_property"`

	PointColor      string `json:"point_color" yaml:"point_color"`
	RegionFill      string `json:"region_fill" yaml:"region_fill"`
	BorderColor     string `json:"border_color" yaml:"border_color"`
	PointRegionFill string `json:"point_region_fill" yaml:"point_region_fill"`
	PageBackground  string `json:"page_background" yaml:"page_background"`
	Scheme          string `json:"scheme" yaml:"scheme"`

	StrokeWidth    float64 `json:"stroke_width" yaml:"stroke_width"`
	SizeMultiplier float64 `json:"size_multiplier" yaml:"size_multiplier"`

	FillRegionsWithPoints   bool `json:"fill_regions_with_points" yaml:"fill_regions_with_points"`
	MatchBorderToBackground bool `json:"match_border_to_background" yaml:"match_border_to_background"`
}

// Default returns the initial configuration.
func Default() Config {
	return Config{
		Mode:            ModePoint,
		SizeColumn:      FixedSize,
		PointColor:      "#ff0000",
		RegionFill:      "#cccccc",
		BorderColor:     "#000000",
		PointRegionFill: "#00ff00",
		PageBackground:  "#ffffff",
		Scheme:          "Viridis",
		StrokeWidth:     1,
		SizeMultiplier:  1,
	}
}

// BorderStroke is the effective region outline color.
func (c Config) BorderStroke() string {
	if c.MatchBorderToBackground {
		return c.PageBackground
	}
	return c.BorderColor
}

// WithDatasetDefaults resets the column selections to those inferred from t.
// Colors and toggles are kept.
func (c Config) WithDatasetDefaults(t *dataset.Table) Config {
	if t == nil {
		return c
	}
	d := dataset.InferDefaults(t.Columns)
	c.LatColumn = d.LatColumn
	c.LonColumn = d.LonColumn
	c.KeyColumn = d.KeyColumn
	c.ValueColumn = d.ValueColumn
	c.SizeColumn = FixedSize
	return c
}

// WithBoundaryDefaults resets the join-key property to the first property of fs.
func (c Config) WithBoundaryDefaults(fs *boundary.FeatureSet) Config {
	c.KeyProperty = boundary.DefaultKeyProperty(fs)
	return c
}

// Validate reports every invalid field.
func (c Config) Validate() error {
	var errs []string

	switch c.Mode {
	case ModePoint, ModeChoropleth:
	default:
		errs = append(errs, fmt.Sprintf("mode %q must be point or choropleth", c.Mode))
	}

	colors := []struct {
		name  string
		value string
	}{
		{"point_color", c.PointColor},
		{"region_fill", c.RegionFill},
		{"border_color", c.BorderColor},
		{"point_region_fill", c.PointRegionFill},
		{"page_background", c.PageBackground},
	}
	for _, col := range colors {
		if _, err := colorful.Hex(col.value); err != nil {
			errs = append(errs, fmt.Sprintf("%s %q is not a hex color", col.name, col.value))
		}
	}

	if _, ok := scale.LookupScheme(c.Scheme); !ok {
		errs = append(errs, fmt.Sprintf("scheme %q is not supported", c.Scheme))
	}
	if c.StrokeWidth < 0 {
		errs = append(errs, "stroke_width must be >= 0")
	}
	if c.SizeMultiplier <= 0 {
		errs = append(errs, "size_multiplier must be > 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("mapping: %s", strings.Join(errs, "; "))
	}
	return nil
}

// DecodeYAML overlays a YAML mapping document onto the defaults.
func DecodeYAML(data []byte) (Config, error) {
	return Default().OverlayYAML(data)
}

// OverlayYAML returns a copy of c with the keys present in data replaced.
func (c Config) OverlayYAML(data []byte) (Config, error) {
	if err := yaml.Unmarshal(data, &c); err != nil {
		return Config{}, eris.Wrap(err, "mapping: decode yaml")
	}
	return c, nil
}

// LoadYAML reads a mapping file.
func LoadYAML(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, eris.Wrapf(err, "mapping: read %s", path)
	}
	return DecodeYAML(data)
}

// EncodeYAML serializes cfg as a mapping document.
func EncodeYAML(cfg Config) ([]byte, error) {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "mapping: encode yaml")
	}
	return data, nil
}
