// Package scale maps data values to marker radii and fill colors.
package scale

import "math"

const (
	// BaseRadius is the marker radius, before the size multiplier, for fixed
	// sizing and for the low end of a size column.
	BaseRadius = 5.0
	// MaxRadius is the high end of a size column's radius range.
	MaxRadius = 20.0
)

// Linear maps Domain onto Range. Values outside the domain extrapolate.
type Linear struct {
	Domain [2]float64
	Range  [2]float64
}

// Map returns the range value for v. A degenerate domain maps every value to
// the middle of the range.
func (l Linear) Map(v float64) float64 {
	d := l.Domain[1] - l.Domain[0]
	t := 0.5
	if d != 0 {
		t = (v - l.Domain[0]) / d
	}
	return l.Range[0] + t*(l.Range[1]-l.Range[0])
}

// Extent returns the minimum and maximum of values. ok is false when values
// is empty.
func Extent(values []float64) (lo, hi float64, ok bool) {
	if len(values) == 0 {
		return 0, 0, false
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, v := range values {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi, true
}

// Radius sizes point markers.
type Radius struct {
	linear   Linear
	constant bool
	base     float64
}

// RadiusScale builds the marker size scale from the numeric size values of
// the plotted rows. With no values, or when every value is equal, every
// marker gets BaseRadius*multiplier; otherwise values map linearly onto
// [BaseRadius, MaxRadius]*multiplier.
func RadiusScale(values []float64, multiplier float64) Radius {
	r := Radius{base: BaseRadius * multiplier}
	lo, hi, ok := Extent(values)
	if !ok || lo == hi {
		r.constant = true
		return r
	}
	r.linear = Linear{
		Domain: [2]float64{lo, hi},
		Range:  [2]float64{BaseRadius * multiplier, MaxRadius * multiplier},
	}
	return r
}

// Of returns the radius for a size value. ok=false (a non-numeric cell)
// falls back to the base radius.
func (r Radius) Of(v float64, ok bool) float64 {
	if r.constant || !ok {
		return r.base
	}
	return r.linear.Map(v)
}

// Sequential maps a numeric domain onto a color scheme.
type Sequential struct {
	Scheme Scheme
	Domain [2]float64
}

// NewSequential builds a sequential scale over [lo, hi].
func NewSequential(s Scheme, lo, hi float64) Sequential {
	return Sequential{Scheme: s, Domain: [2]float64{lo, hi}}
}

// Color returns the hex color for v. Positions outside the domain clamp to
// the scheme's ends; a degenerate domain uses the scheme's midpoint.
func (s Sequential) Color(v float64) string {
	d := s.Domain[1] - s.Domain[0]
	t := 0.5
	if d != 0 {
		t = (v - s.Domain[0]) / d
	}
	return s.Scheme.At(t).Hex()
}
