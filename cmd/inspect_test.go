package main

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunInspect(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	err := runInspect(context.Background(), testConfig(t),
		writeFile(t, dir, "cities.csv", citiesCSV),
		writeFile(t, dir, "regions.geojson", regionsDoc),
		&out,
	)
	require.NoError(t, err)

	var report inspectReport
	require.NoError(t, json.Unmarshal(out.Bytes(), &report))
	require.NotNil(t, report.Dataset)
	assert.Equal(t, []string{"name", "latitude", "longitude", "pop"}, report.Dataset.Columns)
	assert.Equal(t, "latitude", report.Dataset.Defaults.LatColumn)
	require.NotNil(t, report.Boundaries)
	assert.Equal(t, []string{"NAME", "ISO2"}, report.Boundaries.PropertyKeys)
	assert.Equal(t, "NAME", report.Boundaries.DefaultKeyProperty)
}

func TestRunInspect_DatasetOnly(t *testing.T) {
	dir := t.TempDir()
	var out bytes.Buffer
	err := runInspect(context.Background(), testConfig(t), writeFile(t, dir, "gdp.csv", countriesCSV), "", &out)
	require.NoError(t, err)
	assert.Contains(t, out.String(), `"iso"`)
	assert.NotContains(t, out.String(), "property_keys")
}
