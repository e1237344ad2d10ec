package render

import (
	"strconv"
	"strings"

	"github.com/paulmach/orb"
	"github.com/paulmach/orb/simplify"
	"github.com/twpayne/go-geom"
)

// pathData projects every ring of mp and formats it as SVG path data.
// Unprojectable vertices are dropped; rings left with fewer than three
// vertices are omitted.
func pathData(mp *geom.MultiPolygon, opts Options) string {
	if mp == nil {
		return ""
	}

	var sb strings.Builder
	for i := 0; i < mp.NumPolygons(); i++ {
		poly := mp.Polygon(i)
		for j := 0; j < poly.NumLinearRings(); j++ {
			ring := projectRing(poly.LinearRing(j).Coords(), opts)
			writeRing(&sb, ring, opts.Precision)
		}
	}
	return sb.String()
}

func projectRing(coords []geom.Coord, opts Options) orb.Ring {
	ring := make(orb.Ring, 0, len(coords))
	for _, c := range coords {
		x, y, ok := opts.Projection.Project(c.X(), c.Y())
		if !ok {
			continue
		}
		ring = append(ring, orb.Point{x, y})
	}
	if opts.SimplifyTolerance > 0 && len(ring) > 4 {
		if simplified, ok := simplify.DouglasPeucker(opts.SimplifyTolerance).Simplify(ring.Clone()).(orb.Ring); ok {
			ring = simplified
		}
	}
	return ring
}

func writeRing(sb *strings.Builder, ring orb.Ring, precision int) {
	// A closed ring repeats its first vertex; Z closes it instead.
	if len(ring) > 1 && ring[0] == ring[len(ring)-1] {
		ring = ring[:len(ring)-1]
	}
	if len(ring) < 3 {
		return
	}
	for k, p := range ring {
		if k == 0 {
			sb.WriteByte('M')
		} else {
			sb.WriteByte('L')
		}
		sb.WriteString(formatCoord(p[0], precision))
		sb.WriteByte(',')
		sb.WriteString(formatCoord(p[1], precision))
	}
	sb.WriteByte('Z')
}

// formatCoord renders v with at most precision decimals, trimming trailing
// zeros. A negative precision keeps full precision.
func formatCoord(v float64, precision int) string {
	s := strconv.FormatFloat(v, 'f', precision, 64)
	if precision > 0 && strings.Contains(s, ".") {
		s = strings.TrimRight(s, "0")
		s = strings.TrimSuffix(s, ".")
	}
	if s == "-0" {
		s = "0"
	}
	return s
}
