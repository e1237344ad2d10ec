package scale

import (
	"math"
	"sort"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
)

// Scheme is a named sequential color ramp sampled at evenly spaced stops and
// interpolated in RGB.
type Scheme struct {
	Name  string
	stops []colorful.Color
}

// At returns the color at position t, clamped to [0, 1].
func (s Scheme) At(t float64) colorful.Color {
	if len(s.stops) == 0 {
		return colorful.Color{}
	}
	if math.IsNaN(t) || t < 0 {
		t = 0
	}
	if t > 1 {
		t = 1
	}
	if len(s.stops) == 1 {
		return s.stops[0]
	}

	pos := t * float64(len(s.stops)-1)
	i := int(math.Floor(pos))
	if i >= len(s.stops)-1 {
		return s.stops[len(s.stops)-1]
	}
	return s.stops[i].BlendRgb(s.stops[i+1], pos-float64(i)).Clamped()
}

// Stops returns the scheme's stop colors as hex strings.
func (s Scheme) Stops() []string {
	out := make([]string, len(s.stops))
	for i, c := range s.stops {
		out[i] = c.Hex()
	}
	return out
}

var schemeStops = map[string][]string{
	"Viridis":  {"#440154", "#482475", "#414487", "#355f8d", "#2a788e", "#21918c", "#22a884", "#44bf70", "#7ad151", "#bddf26", "#fde725"},
	"Inferno":  {"#000004", "#1b0c41", "#4a0c6b", "#781c6d", "#a52c60", "#cf4446", "#ed6925", "#fb9b06", "#f7d13d", "#fcffa4"},
	"Magma":    {"#000004", "#180f3d", "#440f76", "#721f81", "#9e2f7f", "#cd4071", "#f1605d", "#fd9668", "#feca8d", "#fcfdbf"},
	"Plasma":   {"#0d0887", "#41049d", "#6a00a8", "#8f0da4", "#b12a90", "#cc4778", "#e16462", "#f2844b", "#fca636", "#fcce25", "#f0f921"},
	"Cividis":  {"#00224e", "#123570", "#3b496c", "#575d6d", "#707173", "#8a8678", "#a59c74", "#c3b369", "#e1cc55", "#fee838"},
	"Turbo":    {"#23171b", "#4a58dd", "#2f9df5", "#27d7c4", "#4df884", "#95fb51", "#dedd32", "#ffa423", "#f65f18", "#ba2208", "#900c00"},
	"Blues":    {"#f7fbff", "#deebf7", "#c6dbef", "#9ecae1", "#6baed6", "#4292c6", "#2171b5", "#08519c", "#08306b"},
	"Greens":   {"#f7fcf5", "#e5f5e0", "#c7e9c0", "#a1d99b", "#74c476", "#41ab5d", "#238b45", "#006d2c", "#00441b"},
	"Greys":    {"#ffffff", "#f0f0f0", "#d9d9d9", "#bdbdbd", "#969696", "#737373", "#525252", "#252525", "#000000"},
	"Oranges":  {"#fff5eb", "#fee6ce", "#fdd0a2", "#fdae6b", "#fd8d3c", "#f16913", "#d94801", "#a63603", "#7f2704"},
	"Purples":  {"#fcfbfd", "#efedf5", "#dadaeb", "#bcbddc", "#9e9ac8", "#807dba", "#6a51a3", "#54278f", "#3f007d"},
	"Reds":     {"#fff5f0", "#fee0d2", "#fcbba1", "#fc9272", "#fb6a4a", "#ef3b2c", "#cb181d", "#a50f15", "#67000d"},
	"YlOrRd":   {"#ffffcc", "#ffeda0", "#fed976", "#feb24c", "#fd8d3c", "#fc4e2a", "#e31a1c", "#bd0026", "#800026"},
	"YlGnBu":   {"#ffffd9", "#edf8b1", "#c7e9b4", "#7fcdbb", "#41b6c4", "#1d91c0", "#225ea8", "#253494", "#081d58"},
	"BuGn":     {"#f7fcfd", "#e5f5f9", "#ccece6", "#99d8c9", "#66c2a4", "#41ae76", "#238b45", "#006d2c", "#00441b"},
	"RdPu":     {"#fff7f3", "#fde0dd", "#fcc5c0", "#fa9fb5", "#f768a1", "#dd3497", "#ae017e", "#7a0177", "#49006a"},
	"RdBu":     {"#67001f", "#b2182b", "#d6604d", "#f4a582", "#fddbc7", "#f7f7f7", "#d1e5f0", "#92c5de", "#4393c3", "#2166ac", "#053061"},
	"Spectral": {"#9e0142", "#d53e4f", "#f46d43", "#fdae61", "#fee08b", "#ffffbf", "#e6f598", "#abdda4", "#66c2a5", "#3288bd", "#5e4fa2"},
}

var schemes = buildSchemes()

func buildSchemes() map[string]Scheme {
	out := make(map[string]Scheme, len(schemeStops))
	for name, hexes := range schemeStops {
		s := Scheme{Name: name, stops: make([]colorful.Color, 0, len(hexes))}
		for _, h := range hexes {
			c, err := colorful.Hex(h)
			if err != nil {
				panic("scale: bad stop " + h + " in " + name)
			}
			s.stops = append(s.stops, c)
		}
		out[name] = s
	}
	return out
}

// LookupScheme finds a scheme by name. The "interpolate" prefix used by some
// charting libraries is accepted.
func LookupScheme(name string) (Scheme, bool) {
	s, ok := schemes[strings.TrimPrefix(name, "interpolate")]
	return s, ok
}

// Names returns the registered scheme names, sorted.
func Names() []string {
	names := make([]string, 0, len(schemes))
	for name := range schemes {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
