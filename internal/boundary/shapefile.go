package boundary

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/jonas-p/go-shp"
	"github.com/rotisserie/eris"
	"github.com/twpayne/go-geom"
	"go.uber.org/zap"

	"github.com/sells-group/geoplot/internal/fetcher"
)

// ParseShapefile reads polygon records and their DBF attributes. Property
// keys follow the DBF field order.
func ParseShapefile(shpPath string) (*FeatureSet, error) {
	reader, err := shp.Open(shpPath)
	if err != nil {
		return nil, eris.Wrapf(err, "shapefile: open %s", shpPath)
	}
	defer func() { _ = reader.Close() }()

	fields := reader.Fields()
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = strings.TrimRight(f.String(), "\x00")
	}

	fs := &FeatureSet{Source: shpPath, PropertyKeys: names}
	var skipped int

	for reader.Next() {
		n, shape := reader.Shape()

		poly, ok := shape.(*shp.Polygon)
		if !ok || poly == nil {
			skipped++
			continue
		}
		mp := polygonToMultiPolygon(poly)
		if mp == nil {
			skipped++
			continue
		}

		props := make(Properties, len(names))
		for i, name := range names {
			val := strings.TrimSpace(strings.TrimRight(reader.ReadAttribute(n, i), "\x00"))
			if val != "" {
				props[name] = val
			}
		}

		fs.Features = append(fs.Features, Feature{
			Index:      len(fs.Features),
			Geometry:   mp,
			Properties: props,
		})
	}

	if skipped > 0 {
		zap.L().Debug("shapefile: skipped records",
			zap.String("path", shpPath),
			zap.Int("skipped", skipped),
		)
	}
	if len(fs.Features) == 0 {
		return nil, eris.Errorf("shapefile: %s contains no polygon records", shpPath)
	}
	return fs, nil
}

// ParseShapefileZIP extracts a zipped shapefile bundle into a scratch
// directory under tempDir and parses the first .shp inside.
func ParseShapefileZIP(zipPath, tempDir string) (*FeatureSet, error) {
	if err := os.MkdirAll(tempDir, 0o750); err != nil {
		return nil, eris.Wrap(err, "shapefile: create temp dir")
	}
	dir, err := os.MkdirTemp(tempDir, "shp-*")
	if err != nil {
		return nil, eris.Wrap(err, "shapefile: create scratch dir")
	}
	defer func() { _ = os.RemoveAll(dir) }()

	paths, err := fetcher.ExtractZIP(zipPath, dir)
	if err != nil {
		return nil, err
	}
	shpPath, err := fetcher.FindByExt(paths, ".shp")
	if err != nil {
		return nil, err
	}

	fs, err := ParseShapefile(shpPath)
	if err != nil {
		return nil, err
	}
	fs.Source = filepath.Base(zipPath)
	return fs, nil
}

// polygonToMultiPolygon converts a shapefile Polygon to a geom.MultiPolygon.
// Clockwise rings start a new polygon; counter-clockwise rings are holes of
// the polygon before them.
func polygonToMultiPolygon(p *shp.Polygon) *geom.MultiPolygon {
	if p == nil || p.NumParts == 0 || len(p.Points) == 0 {
		return nil
	}

	mp := geom.NewMultiPolygon(geom.XY)
	var current *geom.Polygon

	flush := func() {
		if current == nil {
			return
		}
		if err := mp.Push(current); err != nil {
			zap.L().Debug("shapefile: skipping malformed polygon", zap.Error(err))
		}
		current = nil
	}

	for i := int32(0); i < p.NumParts; i++ {
		start := p.Parts[i]
		end := int32(len(p.Points))
		if i+1 < p.NumParts {
			end = p.Parts[i+1]
		}
		if end-start < 3 {
			continue
		}

		flat := make([]float64, 0, (end-start)*2)
		for j := start; j < end; j++ {
			flat = append(flat, p.Points[j].X, p.Points[j].Y)
		}
		ring := geom.NewLinearRingFlat(geom.XY, flat)

		if signedArea(flat) > 0 && current != nil {
			if err := current.Push(ring); err != nil {
				zap.L().Debug("shapefile: skipping malformed hole", zap.Int32("part", i), zap.Error(err))
			}
			continue
		}

		flush()
		current = geom.NewPolygon(geom.XY)
		if err := current.Push(ring); err != nil {
			zap.L().Debug("shapefile: skipping malformed ring", zap.Int32("part", i), zap.Error(err))
			current = nil
		}
	}
	flush()

	if mp.NumPolygons() == 0 {
		return nil
	}
	return mp
}

// signedArea is positive for counter-clockwise XY rings.
func signedArea(flat []float64) float64 {
	var sum float64
	n := len(flat) / 2
	for i := 0; i < n; i++ {
		j := (i + 1) % n
		sum += flat[2*i]*flat[2*j+1] - flat[2*j]*flat[2*i+1]
	}
	return sum / 2
}
