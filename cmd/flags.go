package main

import (
	"github.com/spf13/cobra"

	"github.com/sells-group/geoplot/internal/mapping"
)

// mappingFlags are the per-field overrides shared by render and preset save.
type mappingFlags struct {
	mode            string
	lat             string
	lon             string
	size            string
	value           string
	key             string
	keyProperty     string
	pointColor      string
	regionFill      string
	borderColor     string
	pointRegionFill string
	background      string
	scheme          string
	strokeWidth     float64
	sizeMultiplier  float64
	fillRegions     bool
	matchBorder     bool
}

func (f *mappingFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.mode, "mode", "", "plot type: point or choropleth")
	fl.StringVar(&f.lat, "lat", "", "latitude column")
	fl.StringVar(&f.lon, "lon", "", "longitude column")
	fl.StringVar(&f.size, "size", "", "marker size column (empty for fixed size)")
	fl.StringVar(&f.value, "value", "", "choropleth value column")
	fl.StringVar(&f.key, "key", "", "choropleth join key column")
	fl.StringVar(&f.keyProperty, "key-property", "", "boundary property matched against the key column")
	fl.StringVar(&f.pointColor, "point-color", "", "marker color (#rrggbb)")
	fl.StringVar(&f.regionFill, "region-fill", "", "region fill color")
	fl.StringVar(&f.borderColor, "border-color", "", "region border color")
	fl.StringVar(&f.pointRegionFill, "point-region-fill", "", "fill for regions containing points")
	fl.StringVar(&f.background, "background", "", "page background color")
	fl.StringVar(&f.scheme, "scheme", "", "choropleth color scheme (see geoplot schemes)")
	fl.Float64Var(&f.strokeWidth, "stroke-width", 1, "border stroke width")
	fl.Float64Var(&f.sizeMultiplier, "size-multiplier", 1, "marker radius multiplier")
	fl.BoolVar(&f.fillRegions, "fill-regions", false, "fill regions that contain at least one point")
	fl.BoolVar(&f.matchBorder, "match-border", false, "draw borders in the background color")
}

// patch returns only the flags the user actually set.
func (f *mappingFlags) patch(cmd *cobra.Command) mapping.Patch {
	fl := cmd.Flags()
	var p mapping.Patch
	str := func(name string, v *string) *string {
		if fl.Changed(name) {
			s := *v
			return &s
		}
		return nil
	}
	p.LatColumn = str("lat", &f.lat)
	p.LonColumn = str("lon", &f.lon)
	p.SizeColumn = str("size", &f.size)
	p.ValueColumn = str("value", &f.value)
	p.KeyColumn = str("key", &f.key)
	p.KeyProperty = str("key-property", &f.keyProperty)
	p.PointColor = str("point-color", &f.pointColor)
	p.RegionFill = str("region-fill", &f.regionFill)
	p.BorderColor = str("border-color", &f.borderColor)
	p.PointRegionFill = str("point-region-fill", &f.pointRegionFill)
	p.PageBackground = str("background", &f.background)
	p.Scheme = str("scheme", &f.scheme)

	if fl.Changed("mode") {
		m := mapping.Mode(f.mode)
		p.Mode = &m
	}
	if fl.Changed("stroke-width") {
		w := f.strokeWidth
		p.StrokeWidth = &w
	}
	if fl.Changed("size-multiplier") {
		m := f.sizeMultiplier
		p.SizeMultiplier = &m
	}
	if fl.Changed("fill-regions") {
		b := f.fillRegions
		p.FillRegionsWithPoints = &b
	}
	if fl.Changed("match-border") {
		b := f.matchBorder
		p.MatchBorderToBackground = &b
	}
	return p
}
