// Package projection converts lon/lat degrees to drawing-surface pixels.
package projection

import (
	"math"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/config"
)

const radians = math.Pi / 180

// Projection maps a geographic coordinate to screen space. ok is false when
// the point has no finite image.
type Projection interface {
	Project(lon, lat float64) (x, y float64, ok bool)
}

// Options positions a projection on the drawing surface.
type Options struct {
	Rotate    [2]float64 // [lambda, phi] degrees
	Scale     float64
	Translate [2]float64 // pixel offset of the projection center
}

// New builds the named projection from render settings, centered on the
// drawing surface.
func New(cfg config.RenderConfig) (Projection, error) {
	opts := Options{
		Scale:     cfg.Scale,
		Translate: [2]float64{cfg.Width / 2, cfg.Height / 2},
	}
	if len(cfg.Rotate) == 2 {
		opts.Rotate = [2]float64{cfg.Rotate[0], cfg.Rotate[1]}
	}

	switch cfg.Projection {
	case "", "azimuthal-equal-area":
		return NewAzimuthalEqualArea(opts), nil
	case "mercator":
		return NewMercator(opts), nil
	case "equirectangular":
		return NewEquirectangular(opts), nil
	default:
		return nil, eris.Errorf("projection: unknown projection %q", cfg.Projection)
	}
}

// rotation applies a spherical rotation of [dLambda, dPhi] degrees.
type rotation struct {
	dLambda          float64
	cosDPhi, sinDPhi float64
}

func newRotation(r [2]float64) rotation {
	return rotation{
		dLambda: r[0] * radians,
		cosDPhi: math.Cos(r[1] * radians),
		sinDPhi: math.Sin(r[1] * radians),
	}
}

// apply takes and returns radians.
func (r rotation) apply(lambda, phi float64) (float64, float64) {
	lambda = wrapLongitude(lambda + r.dLambda)
	if r.sinDPhi == 0 && r.cosDPhi == 1 {
		return lambda, phi
	}

	cosPhi := math.Cos(phi)
	x := math.Cos(lambda) * cosPhi
	y := math.Sin(lambda) * cosPhi
	z := math.Sin(phi)
	k := z*r.cosDPhi + x*r.sinDPhi

	return math.Atan2(y, x*r.cosDPhi-z*r.sinDPhi), math.Asin(clamp(k, -1, 1))
}

func wrapLongitude(lambda float64) float64 {
	if lambda > math.Pi {
		return lambda - 2*math.Pi
	}
	if lambda < -math.Pi {
		return lambda + 2*math.Pi
	}
	return lambda
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func finite(vs ...float64) bool {
	for _, v := range vs {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

// AzimuthalEqualArea is the Lambert azimuthal equal-area projection.
type AzimuthalEqualArea struct {
	opts Options
	rot  rotation
}

// NewAzimuthalEqualArea creates the projection.
func NewAzimuthalEqualArea(opts Options) *AzimuthalEqualArea {
	return &AzimuthalEqualArea{opts: opts, rot: newRotation(opts.Rotate)}
}

// Project implements Projection. The antipode of the center is not
// projectable.
func (p *AzimuthalEqualArea) Project(lon, lat float64) (float64, float64, bool) {
	if !finite(lon, lat) {
		return 0, 0, false
	}
	lambda, phi := p.rot.apply(lon*radians, lat*radians)

	cosLambda, cosPhi := math.Cos(lambda), math.Cos(phi)
	denom := 1 + cosLambda*cosPhi
	if denom <= 1e-12 {
		return 0, 0, false
	}
	k := math.Sqrt(2 / denom)
	x := k * cosPhi * math.Sin(lambda)
	y := k * math.Sin(phi)

	sx := p.opts.Translate[0] + x*p.opts.Scale
	sy := p.opts.Translate[1] - y*p.opts.Scale
	return sx, sy, finite(sx, sy)
}

// Mercator is the spherical Mercator projection. Latitudes are clipped just
// short of the poles.
type Mercator struct {
	opts Options
	rot  rotation
}

// NewMercator creates the projection.
func NewMercator(opts Options) *Mercator {
	return &Mercator{opts: opts, rot: newRotation(opts.Rotate)}
}

const mercatorMaxLat = 85.05112878 * radians

// Project implements Projection.
func (p *Mercator) Project(lon, lat float64) (float64, float64, bool) {
	if !finite(lon, lat) {
		return 0, 0, false
	}
	lambda, phi := p.rot.apply(lon*radians, lat*radians)
	phi = clamp(phi, -mercatorMaxLat, mercatorMaxLat)

	x := lambda
	y := math.Log(math.Tan(math.Pi/4 + phi/2))

	sx := p.opts.Translate[0] + x*p.opts.Scale
	sy := p.opts.Translate[1] - y*p.opts.Scale
	return sx, sy, finite(sx, sy)
}

// Equirectangular is the plate carrée projection.
type Equirectangular struct {
	opts Options
	rot  rotation
}

// NewEquirectangular creates the projection.
func NewEquirectangular(opts Options) *Equirectangular {
	return &Equirectangular{opts: opts, rot: newRotation(opts.Rotate)}
}

// Project implements Projection.
func (p *Equirectangular) Project(lon, lat float64) (float64, float64, bool) {
	if !finite(lon, lat) {
		return 0, 0, false
	}
	lambda, phi := p.rot.apply(lon*radians, lat*radians)

	sx := p.opts.Translate[0] + lambda*p.opts.Scale
	sy := p.opts.Translate[1] - phi*p.opts.Scale
	return sx, sy, finite(sx, sy)
}
