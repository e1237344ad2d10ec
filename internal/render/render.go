// Package render turns a dataset, a boundary feature set and a mapping
// configuration into a drawable scene. Rendering is a pure function; it
// never mutates its inputs.
package render

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/dataset"
	"github.com/sells-group/geoplot/internal/mapping"
	"github.com/sells-group/geoplot/internal/projection"
	"github.com/sells-group/geoplot/internal/scale"
)

// Sentinel errors returned when a redraw cannot proceed.
var (
	ErrNoBoundaries   = eris.New("render: no boundary features loaded")
	ErrNoDataset      = eris.New("render: no dataset loaded")
	ErrMissingColumns = eris.New("render: required column selections are missing")
)

// Inputs are the loaded records. Either may be nil.
type Inputs struct {
	Table      *dataset.Table
	Boundaries *boundary.FeatureSet
}

// Options describe the drawing surface.
type Options struct {
	Width             float64
	Height            float64
	Projection        projection.Projection
	SimplifyTolerance float64 // pixels, 0 disables
	Precision         int     // decimal places in path data
}

// OptionsFromConfig builds render options and the configured projection.
func OptionsFromConfig(cfg config.RenderConfig) (Options, error) {
	proj, err := projection.New(cfg)
	if err != nil {
		return Options{}, err
	}
	return Options{
		Width:             cfg.Width,
		Height:            cfg.Height,
		Projection:        proj,
		SimplifyTolerance: cfg.SimplifyTolerance,
		Precision:         cfg.Precision,
	}, nil
}

// Region is one boundary outline.
type Region struct {
	Index       int
	Path        string // SVG path data
	Fill        string
	Stroke      string
	StrokeWidth float64
}

// Marker is one plotted point.
type Marker struct {
	X, Y, R float64
	Fill    string
}

// Stats summarize a render.
type Stats struct {
	Rows          int     `json:"rows"`
	Plotted       int     `json:"plotted"`
	Discarded     int     `json:"discarded"`
	Unprojectable int     `json:"unprojectable"`
	FilledRegions int     `json:"filled_regions"`
	Keys          int     `json:"keys"`
	Matched       int     `json:"matched"`
	ValueMin      float64 `json:"value_min"`
	ValueMax      float64 `json:"value_max"`
}

// Scene is a fully resolved drawing.
type Scene struct {
	Width      float64
	Height     float64
	Background string
	Mode       mapping.Mode
	Regions    []Region
	Markers    []Marker
	Stats      Stats
}

// Render draws every region, then overlays points or recolors regions
// according to cfg.Mode.
func Render(in Inputs, cfg mapping.Config, opts Options) (*Scene, error) {
	if in.Boundaries.Len() == 0 {
		return nil, ErrNoBoundaries
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if opts.Projection == nil {
		return nil, eris.New("render: no projection configured")
	}

	switch cfg.Mode {
	case mapping.ModePoint:
		if in.Table == nil {
			return nil, ErrNoDataset
		}
		if cfg.LatColumn == "" || cfg.LonColumn == "" {
			return nil, eris.Wrap(ErrMissingColumns, "latitude and longitude columns must be selected")
		}
	case mapping.ModeChoropleth:
		if in.Table == nil {
			return nil, ErrNoDataset
		}
		if cfg.KeyColumn == "" || cfg.ValueColumn == "" {
			return nil, eris.Wrap(ErrMissingColumns, "key and value columns must be selected")
		}
	}
	for _, col := range selectedColumns(cfg) {
		if !in.Table.HasColumn(col) {
			return nil, eris.Wrapf(ErrMissingColumns, "column %q is not in the dataset", col)
		}
	}

	scene := &Scene{
		Width:      opts.Width,
		Height:     opts.Height,
		Background: cfg.PageBackground,
		Mode:       cfg.Mode,
		Regions:    outlineRegions(in.Boundaries, cfg, opts),
		Stats:      Stats{Rows: in.Table.Len()},
	}

	switch cfg.Mode {
	case mapping.ModePoint:
		plotPoints(scene, in, cfg, opts)
	case mapping.ModeChoropleth:
		colorRegions(scene, in, cfg)
	}
	return scene, nil
}

// selectedColumns lists the dataset columns cfg reads in its mode.
func selectedColumns(cfg mapping.Config) []string {
	switch cfg.Mode {
	case mapping.ModePoint:
		cols := []string{cfg.LatColumn, cfg.LonColumn}
		if cfg.SizeColumn != mapping.FixedSize {
			cols = append(cols, cfg.SizeColumn)
		}
		return cols
	case mapping.ModeChoropleth:
		return []string{cfg.KeyColumn, cfg.ValueColumn}
	}
	return nil
}

func outlineRegions(fs *boundary.FeatureSet, cfg mapping.Config, opts Options) []Region {
	stroke := cfg.BorderStroke()
	regions := make([]Region, len(fs.Features))
	for i := range fs.Features {
		regions[i] = Region{
			Index:       i,
			Path:        pathData(fs.Features[i].Geometry, opts),
			Fill:        cfg.RegionFill,
			Stroke:      stroke,
			StrokeWidth: cfg.StrokeWidth,
		}
	}
	return regions
}

type point struct {
	lon, lat float64
	size     float64
	sizeOK   bool
}

func plotPoints(scene *Scene, in Inputs, cfg mapping.Config, opts Options) {
	points := make([]point, 0, in.Table.Len())
	var sizes []float64
	for _, row := range in.Table.Rows {
		lat, okLat := row.Number(cfg.LatColumn)
		lon, okLon := row.Number(cfg.LonColumn)
		if !okLat || !okLon {
			scene.Stats.Discarded++
			continue
		}
		p := point{lon: lon, lat: lat}
		if cfg.SizeColumn != mapping.FixedSize {
			p.size, p.sizeOK = row.Number(cfg.SizeColumn)
			if p.sizeOK {
				sizes = append(sizes, p.size)
			}
		}
		points = append(points, p)
	}

	radius := scale.RadiusScale(sizes, cfg.SizeMultiplier)
	scene.Markers = make([]Marker, 0, len(points))
	for _, p := range points {
		x, y, ok := opts.Projection.Project(p.lon, p.lat)
		if !ok {
			scene.Stats.Unprojectable++
			continue
		}
		scene.Markers = append(scene.Markers, Marker{
			X:    x,
			Y:    y,
			R:    radius.Of(p.size, p.sizeOK),
			Fill: cfg.PointColor,
		})
	}
	scene.Stats.Plotted = len(scene.Markers)

	if !cfg.FillRegionsWithPoints {
		return
	}
	for i := range in.Boundaries.Features {
		f := &in.Boundaries.Features[i]
		for _, p := range points {
			if f.Contains(p.lon, p.lat) {
				scene.Regions[i].Fill = cfg.PointRegionFill
				scene.Stats.FilledRegions++
				break
			}
		}
	}
}

func colorRegions(scene *Scene, in Inputs, cfg mapping.Config) {
	values := make(map[string]float64)
	for _, row := range in.Table.Rows {
		key, ok := row.Value(cfg.KeyColumn)
		if !ok || key == "" {
			continue
		}
		v, ok := row.Number(cfg.ValueColumn)
		if !ok {
			continue
		}
		values[key] = v // later rows win
	}
	scene.Stats.Keys = len(values)
	if len(values) == 0 {
		return
	}

	all := make([]float64, 0, len(values))
	for _, v := range values {
		all = append(all, v)
	}
	lo, hi, _ := scale.Extent(all)
	scene.Stats.ValueMin, scene.Stats.ValueMax = lo, hi

	scheme, _ := scale.LookupScheme(cfg.Scheme)
	seq := scale.NewSequential(scheme, lo, hi)

	for i := range in.Boundaries.Features {
		key, ok := in.Boundaries.Features[i].Properties.Lookup(cfg.KeyProperty)
		if !ok {
			continue
		}
		v, ok := values[key]
		if !ok {
			continue
		}
		scene.Regions[i].Fill = seq.Color(v)
		scene.Stats.Matched++
	}
}
