package scale

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLinearMap(t *testing.T) {
	l := Linear{Domain: [2]float64{0, 10}, Range: [2]float64{5, 20}}
	assert.InDelta(t, 5, l.Map(0), 1e-9)
	assert.InDelta(t, 20, l.Map(10), 1e-9)
	assert.InDelta(t, 12.5, l.Map(5), 1e-9)
	assert.InDelta(t, 27.5, l.Map(15), 1e-9, "extrapolates")

	flat := Linear{Domain: [2]float64{3, 3}, Range: [2]float64{0, 10}}
	assert.InDelta(t, 5, flat.Map(3), 1e-9)
}

func TestExtent(t *testing.T) {
	lo, hi, ok := Extent([]float64{3, -1, 7})
	assert.True(t, ok)
	assert.InDelta(t, -1, lo, 1e-9)
	assert.InDelta(t, 7, hi, 1e-9)

	_, _, ok = Extent(nil)
	assert.False(t, ok)
}

func TestRadiusScale(t *testing.T) {
	tests := []struct {
		name       string
		values     []float64
		multiplier float64
		in         float64
		inOK       bool
		want       float64
	}{
		{"no values", nil, 1, 0, false, 5},
		{"no values multiplied", nil, 2, 0, false, 10},
		{"all equal", []float64{4, 4, 4}, 1, 4, true, 5},
		{"min", []float64{0, 100}, 1, 0, true, 5},
		{"max", []float64{0, 100}, 1, 100, true, 20},
		{"mid multiplied", []float64{0, 100}, 2, 50, true, 25},
		{"non-numeric falls back", []float64{0, 100}, 3, 0, false, 15},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := RadiusScale(tt.values, tt.multiplier)
			assert.InDelta(t, tt.want, r.Of(tt.in, tt.inOK), 1e-9)
		})
	}
}

func TestRadiusScale_Constant(t *testing.T) {
	for _, values := range [][]float64{nil, {1, 1}} {
		r := RadiusScale(values, 2)
		assert.InDelta(t, BaseRadius*2, r.Of(1, true), 1e-9)
		assert.InDelta(t, BaseRadius*2, r.Of(1e6, true), 1e-9)
	}
	assert.InDelta(t, MaxRadius, RadiusScale([]float64{1, 2}, 1).Of(2, true), 1e-9)
}

func TestSequential(t *testing.T) {
	viridis, ok := LookupScheme("Viridis")
	require.True(t, ok)

	s := NewSequential(viridis, 0, 10)
	assert.Equal(t, "#440154", s.Color(0))
	assert.Equal(t, "#fde725", s.Color(10))
	assert.Equal(t, "#21918c", s.Color(5))
	assert.Equal(t, "#440154", s.Color(-100), "clamped low")
	assert.Equal(t, "#fde725", s.Color(100), "clamped high")
}

func TestSequential_DegenerateDomain(t *testing.T) {
	viridis, _ := LookupScheme("Viridis")
	s := NewSequential(viridis, 7, 7)
	assert.Equal(t, viridis.At(0.5).Hex(), s.Color(7))
	assert.Equal(t, "#21918c", s.Color(7))
}

func TestSchemeAt_Interpolates(t *testing.T) {
	greys, ok := LookupScheme("Greys")
	require.True(t, ok)

	// halfway between #d9d9d9 and #bdbdbd
	assert.Equal(t, "#cbcbcb", greys.At(0.3125).Hex())
	assert.Equal(t, "#f0f0f0", greys.At(0.125).Hex())
}

func TestLookupScheme(t *testing.T) {
	_, ok := LookupScheme("interpolateViridis")
	assert.True(t, ok)
	_, ok = LookupScheme("Plasma")
	assert.True(t, ok)
	_, ok = LookupScheme("Rainbow")
	assert.False(t, ok)
	_, ok = LookupScheme("")
	assert.False(t, ok)
}

func TestNames(t *testing.T) {
	names := Names()
	assert.Len(t, names, 18)
	assert.IsIncreasing(t, names)
	assert.Contains(t, names, "Viridis")
	assert.Contains(t, names, "YlOrRd")
}

func TestSchemeStops(t *testing.T) {
	blues, _ := LookupScheme("Blues")
	stops := blues.Stops()
	assert.Len(t, stops, 9)
	assert.Equal(t, "#f7fbff", stops[0])
}
