package render

import (
	"sort"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/twpayne/go-geom"

	"github.com/sells-group/geoplot/internal/boundary"
	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/dataset"
	"github.com/sells-group/geoplot/internal/mapping"
)

// planar projects lon/lat straight to x/y. Longitudes beyond 1000 are
// reported as unprojectable.
type planar struct{}

func (planar) Project(lon, lat float64) (float64, float64, bool) {
	if lon > 1000 {
		return 0, 0, false
	}
	return lon, lat, true
}

func testOptions() Options {
	return Options{Width: 100, Height: 100, Projection: planar{}, Precision: 2}
}

func squareFeature(t *testing.T, idx int, x0, y0, x1, y1 float64, props boundary.Properties) boundary.Feature {
	t.Helper()
	poly := geom.NewPolygonFlat(geom.XY, []float64{x0, y0, x1, y0, x1, y1, x0, y1, x0, y0}, []int{10})
	mp := geom.NewMultiPolygon(geom.XY)
	require.NoError(t, mp.Push(poly))
	return boundary.Feature{Index: idx, Geometry: mp, Properties: props}
}

func testBoundaries(t *testing.T) *boundary.FeatureSet {
	return &boundary.FeatureSet{
		PropertyKeys: []string{"NAME", "ISO2"},
		Features: []boundary.Feature{
			squareFeature(t, 0, 0, 0, 10, 10, boundary.Properties{"NAME": "Alpha", "ISO2": "AA"}),
			squareFeature(t, 1, 20, 0, 30, 10, boundary.Properties{"NAME": "Beta", "ISO2": "BB"}),
			squareFeature(t, 2, 40, 0, 50, 10, boundary.Properties{"NAME": "Gamma"}),
		},
	}
}

func table(columns []string, rows ...map[string]string) *dataset.Table {
	t := &dataset.Table{Columns: columns}
	for _, r := range rows {
		t.Rows = append(t.Rows, dataset.NewRow(r))
	}
	return t
}

func pointConfig() mapping.Config {
	return mapping.Default().With(mapping.WithLatColumn("lat"), mapping.WithLonColumn("lon"))
}

func TestRender_Errors(t *testing.T) {
	tbl := table([]string{"lat", "lon"}, map[string]string{"lat": "1", "lon": "1"})

	_, err := Render(Inputs{Table: tbl}, pointConfig(), testOptions())
	assert.True(t, eris.Is(err, ErrNoBoundaries))

	_, err = Render(Inputs{Table: tbl, Boundaries: &boundary.FeatureSet{}}, pointConfig(), testOptions())
	assert.True(t, eris.Is(err, ErrNoBoundaries))

	_, err = Render(Inputs{Boundaries: testBoundaries(t)}, pointConfig(), testOptions())
	assert.True(t, eris.Is(err, ErrNoDataset))

	choro := mapping.Default().With(mapping.WithMode(mapping.ModeChoropleth), mapping.WithKeyColumn("k"))
	_, err = Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, choro, testOptions())
	assert.True(t, eris.Is(err, ErrMissingColumns))

	_, err = Render(Inputs{Boundaries: testBoundaries(t)}, choro.With(mapping.WithValueColumn("v")), testOptions())
	assert.True(t, eris.Is(err, ErrNoDataset))

	bad := pointConfig().With(mapping.WithScheme("Rainbow"))
	_, err = Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, bad, testOptions())
	assert.Error(t, err)
}

func TestRender_RejectsAbsentColumns(t *testing.T) {
	tbl := table([]string{"lat", "lon", "code"}, map[string]string{"lat": "1", "lon": "1", "code": "AA"})

	tests := []struct {
		name string
		cfg  mapping.Config
		col  string
	}{
		{"latitude", pointConfig().With(mapping.WithLatColumn("latitude")), "latitude"},
		{"size", pointConfig().With(mapping.WithSizeColumn("pop")), "pop"},
		{"value", choroConfig().With(mapping.WithKeyColumn("code"), mapping.WithValueColumn("gdp")), "gdp"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, tt.cfg, testOptions())
			require.Error(t, err)
			assert.True(t, eris.Is(err, ErrMissingColumns))
			assert.Contains(t, err.Error(), tt.col)
		})
	}

	_, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, pointConfig(), testOptions())
	assert.NoError(t, err, "fixed size reads no size column")
}

func TestRender_OutlinesEveryRegion(t *testing.T) {
	cfg := pointConfig().With(
		mapping.WithRegionFill("#eeeeee"),
		mapping.WithBorderColor("#333333"),
		mapping.WithStrokeWidth(2),
	)
	scene, err := Render(Inputs{Table: table([]string{"lat", "lon"}), Boundaries: testBoundaries(t)}, cfg, testOptions())
	require.NoError(t, err)

	require.Len(t, scene.Regions, 3)
	for i, r := range scene.Regions {
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "#eeeeee", r.Fill)
		assert.Equal(t, "#333333", r.Stroke)
		assert.InDelta(t, 2, r.StrokeWidth, 1e-9)
	}
	assert.Equal(t, "M0,0L10,0L10,10L0,10Z", scene.Regions[0].Path)
	assert.Equal(t, "#ffffff", scene.Background)
}

func TestRender_MatchBorderToBackground(t *testing.T) {
	cfg := pointConfig().With(
		mapping.WithPageBackground("#102030"),
		mapping.WithMatchBorderToBackground(true),
	)
	scene, err := Render(Inputs{Table: table([]string{"lat", "lon"}), Boundaries: testBoundaries(t)}, cfg, testOptions())
	require.NoError(t, err)
	for _, r := range scene.Regions {
		assert.Equal(t, "#102030", r.Stroke)
	}
}

func TestRender_DiscardsNonNumericRows(t *testing.T) {
	tbl := table([]string{"lat", "lon"},
		map[string]string{"lat": "10", "lon": "20"},
		map[string]string{"lat": "x", "lon": "5"},
	)
	opts, err := OptionsFromConfig(config.RenderConfig{
		Width: 960, Height: 800, Projection: "azimuthal-equal-area",
		Rotate: []float64{-10, -52}, Scale: 800, Precision: 2,
	})
	require.NoError(t, err)

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, pointConfig(), opts)
	require.NoError(t, err)
	assert.Len(t, scene.Markers, 1)
	assert.Equal(t, 1, scene.Stats.Discarded)
	assert.Equal(t, 2, scene.Stats.Rows)
}

func TestRender_FixedSizeRadius(t *testing.T) {
	tbl := table([]string{"lat", "lon", "pop"},
		map[string]string{"lat": "1", "lon": "1", "pop": "100"},
		map[string]string{"lat": "2", "lon": "2", "pop": "900"},
	)
	cfg := pointConfig().With(mapping.WithSizeMultiplier(2), mapping.WithPointColor("#0000ff"))

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, cfg, testOptions())
	require.NoError(t, err)
	require.Len(t, scene.Markers, 2)
	for _, m := range scene.Markers {
		assert.InDelta(t, 10, m.R, 1e-9)
		assert.Equal(t, "#0000ff", m.Fill)
	}
}

func TestRender_DegenerateSizeColumn(t *testing.T) {
	tests := []struct {
		name   string
		values []string
	}{
		{"single distinct value", []string{"7", "7", "7"}},
		{"no valid values", []string{"n/a", "", "x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tbl := table([]string{"lat", "lon", "size"})
			for i, v := range tt.values {
				tbl.Rows = append(tbl.Rows, dataset.NewRow(map[string]string{
					"lat": "1", "lon": string(rune('1' + i)), "size": v,
				}))
			}
			cfg := pointConfig().With(mapping.WithSizeColumn("size"), mapping.WithSizeMultiplier(1.5))

			scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, cfg, testOptions())
			require.NoError(t, err)
			require.Len(t, scene.Markers, 3)
			for _, m := range scene.Markers {
				assert.InDelta(t, 7.5, m.R, 1e-9)
			}
		})
	}
}

func TestRender_SizeColumnMonotonic(t *testing.T) {
	tbl := table([]string{"lat", "lon", "size"},
		map[string]string{"lat": "1", "lon": "1", "size": "30"},
		map[string]string{"lat": "1", "lon": "2", "size": "10"},
		map[string]string{"lat": "1", "lon": "3", "size": "20"},
		map[string]string{"lat": "1", "lon": "4", "size": "50"},
		map[string]string{"lat": "1", "lon": "5", "size": "bad"},
	)
	m := 2.0
	cfg := pointConfig().With(mapping.WithSizeColumn("size"), mapping.WithSizeMultiplier(m))

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, cfg, testOptions())
	require.NoError(t, err)
	require.Len(t, scene.Markers, 5)

	type pair struct{ v, r float64 }
	var pairs []pair
	for i, v := range []float64{30, 10, 20, 50} {
		r := scene.Markers[i].R
		assert.GreaterOrEqual(t, r, 5*m)
		assert.LessOrEqual(t, r, 20*m)
		pairs = append(pairs, pair{v, r})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].v < pairs[j].v })
	for i := 1; i < len(pairs); i++ {
		assert.Greater(t, pairs[i].r, pairs[i-1].r)
	}
	assert.InDelta(t, 5*m, pairs[0].r, 1e-9)
	assert.InDelta(t, 20*m, pairs[len(pairs)-1].r, 1e-9)
	assert.InDelta(t, 5*m, scene.Markers[4].R, 1e-9, "non-numeric size uses base radius")
}

func TestRender_UnprojectablePointsSkipped(t *testing.T) {
	tbl := table([]string{"lat", "lon"},
		map[string]string{"lat": "1", "lon": "1"},
		map[string]string{"lat": "1", "lon": "5000"},
	)
	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, pointConfig(), testOptions())
	require.NoError(t, err)
	assert.Len(t, scene.Markers, 1)
	assert.Equal(t, 1, scene.Stats.Unprojectable)
}

func TestRender_FillRegionsWithPoints(t *testing.T) {
	tbl := table([]string{"lat", "lon"},
		map[string]string{"lat": "5", "lon": "5"},
		map[string]string{"lat": "6", "lon": "6"},
		map[string]string{"lat": "5", "lon": "45"},
		map[string]string{"lat": "50", "lon": "50"},
	)
	cfg := pointConfig().With(
		mapping.WithFillRegionsWithPoints(true),
		mapping.WithPointRegionFill("#00ff00"),
	)

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, cfg, testOptions())
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", scene.Regions[0].Fill)
	assert.Equal(t, "#cccccc", scene.Regions[1].Fill)
	assert.Equal(t, "#00ff00", scene.Regions[2].Fill)
	assert.Equal(t, 2, scene.Stats.FilledRegions)

	off, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, pointConfig(), testOptions())
	require.NoError(t, err)
	for _, r := range off.Regions {
		assert.Equal(t, "#cccccc", r.Fill)
	}
}

func choroConfig() mapping.Config {
	return mapping.Default().With(
		mapping.WithMode(mapping.ModeChoropleth),
		mapping.WithKeyColumn("code"),
		mapping.WithValueColumn("value"),
		mapping.WithKeyProperty("ISO2"),
		mapping.WithScheme("Greys"),
	)
}

func TestRender_Choropleth(t *testing.T) {
	tbl := table([]string{"code", "value"},
		map[string]string{"code": "AA", "value": "0"},
		map[string]string{"code": "BB", "value": "10"},
		map[string]string{"code": "ZZ", "value": "5"},
	)

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, choroConfig(), testOptions())
	require.NoError(t, err)
	assert.Equal(t, "#ffffff", scene.Regions[0].Fill)
	assert.Equal(t, "#000000", scene.Regions[1].Fill)
	assert.Equal(t, "#cccccc", scene.Regions[2].Fill, "region without the key property keeps the base fill")
	assert.Empty(t, scene.Markers)
	assert.Equal(t, 3, scene.Stats.Keys)
	assert.Equal(t, 2, scene.Stats.Matched)
	assert.InDelta(t, 0, scene.Stats.ValueMin, 1e-9)
	assert.InDelta(t, 10, scene.Stats.ValueMax, 1e-9)
}

func TestRender_ChoroplethUnmatchedKeepsBaseFill(t *testing.T) {
	tbl := table([]string{"code", "value"},
		map[string]string{"code": "QQ", "value": "3"},
	)
	cfg := choroConfig().With(mapping.WithRegionFill("#abcabc"))

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, cfg, testOptions())
	require.NoError(t, err)
	for _, r := range scene.Regions {
		assert.Equal(t, "#abcabc", r.Fill)
	}
	assert.Equal(t, 0, scene.Stats.Matched)
}

func TestRender_ChoroplethLastWriteWins(t *testing.T) {
	tbl := table([]string{"code", "value"},
		map[string]string{"code": "AA", "value": "0"},
		map[string]string{"code": "BB", "value": "10"},
		map[string]string{"code": "AA", "value": "10"},
		map[string]string{"code": "", "value": "99"},
		map[string]string{"code": "BB", "value": "n/a"},
	)

	scene, err := Render(Inputs{Table: tbl, Boundaries: testBoundaries(t)}, choroConfig(), testOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, scene.Stats.Keys)
	// Both keys end at 10, so the domain is degenerate and both take the midpoint.
	assert.Equal(t, scene.Regions[0].Fill, scene.Regions[1].Fill)
	assert.Equal(t, "#969696", scene.Regions[0].Fill)
}

func TestRender_ChoroplethNumericProperty(t *testing.T) {
	fs := &boundary.FeatureSet{
		PropertyKeys: []string{"id"},
		Features: []boundary.Feature{
			squareFeature(t, 0, 0, 0, 1, 1, boundary.Properties{"id": float64(1)}),
			squareFeature(t, 1, 2, 0, 3, 1, boundary.Properties{"id": float64(2)}),
		},
	}
	tbl := table([]string{"id", "v"},
		map[string]string{"id": "1", "v": "1"},
		map[string]string{"id": "2", "v": "2"},
	)
	cfg := choroConfig().With(mapping.WithKeyColumn("id"), mapping.WithValueColumn("v"), mapping.WithKeyProperty("id"))

	scene, err := Render(Inputs{Table: tbl, Boundaries: fs}, cfg, testOptions())
	require.NoError(t, err)
	assert.Equal(t, 2, scene.Stats.Matched)
}
