package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoplot/internal/config"
)

const regionsDoc = `{"type":"FeatureCollection","features":[
 {"type":"Feature","properties":{"NAME":"Alpha","ISO2":"AA"},
  "geometry":{"type":"Polygon","coordinates":[[[0,40],[20,40],[20,60],[0,60],[0,40]]]}},
 {"type":"Feature","properties":{"NAME":"Beta","ISO2":"BB"},
  "geometry":{"type":"Polygon","coordinates":[[[20,40],[40,40],[40,60],[20,60],[20,40]]]}}
]}`

const citiesCSV = "name,latitude,longitude,pop\nA,50,10,100\nB,50,30,300\nC,x,5,1\n"

const countriesCSV = "iso,gdp\nAA,10\nBB,30\n"

// testConfig mirrors the viper defaults without touching the working directory.
func testConfig(t *testing.T) *config.Config {
	t.Helper()
	c := &config.Config{}
	c.Log = config.LogConfig{Level: "info", Format: "json"}
	c.Server.Port = 8080
	c.Server.CORSOrigins = []string{"*"}
	c.Render = config.RenderConfig{
		Width: 960, Height: 800, Projection: "azimuthal-equal-area",
		Rotate: []float64{-10, -52}, Scale: 800, Precision: 2,
		PNG: config.PNGConfig{Width: 96, Height: 80},
	}
	c.Boundary = config.BoundaryConfig{
		TimeoutSecs: 5, MaxRetries: 1, UserAgent: "geoplot-test",
		CacheDriver: "memory", CacheEntries: 4, CacheTTLMinutes: 1,
		TempDir: t.TempDir(),
	}
	c.Store = config.StoreConfig{Driver: "sqlite", DatabaseURL: filepath.Join(t.TempDir(), "presets.db")}
	c.Upload.MaxBytes = 1 << 20
	return c
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}
