package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/mapping"
)

func newTestSQLiteStore(t *testing.T) *SQLiteStore {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLite(dbPath)
	require.NoError(t, err)
	require.NoError(t, s.Migrate(context.Background()))
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLite_SaveAndGetPreset(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	cfg := mapping.Default().With(mapping.WithMode(mapping.ModeChoropleth), mapping.WithScheme("Inferno"))
	p, err := s.SavePreset(ctx, "inferno-regions", "choropleth in inferno", cfg)
	require.NoError(t, err)
	assert.NotEmpty(t, p.ID)
	assert.Equal(t, "inferno-regions", p.Name)
	assert.Equal(t, mapping.ModeChoropleth, p.Config.Mode)

	byID, err := s.GetPreset(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, byID.ID)
	assert.Equal(t, "Inferno", byID.Config.Scheme)
	assert.Equal(t, "choropleth in inferno", byID.Description)

	byName, err := s.GetPreset(ctx, "inferno-regions")
	require.NoError(t, err)
	assert.Equal(t, p.ID, byName.ID)
}

func TestSQLite_SavePresetUpsertsByName(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	first, err := s.SavePreset(ctx, "blue", "", mapping.Default())
	require.NoError(t, err)

	second, err := s.SavePreset(ctx, "blue", "updated", mapping.Default().With(mapping.WithSizeMultiplier(2)))
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Equal(t, "updated", second.Description)
	assert.InDelta(t, 2, second.Config.SizeMultiplier, 1e-9)

	all, err := s.ListPresets(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 1)
}

func TestSQLite_SavePresetRequiresName(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.SavePreset(context.Background(), "", "", mapping.Default())
	assert.Error(t, err)
}

func TestSQLite_GetPresetNotFound(t *testing.T) {
	s := newTestSQLiteStore(t)
	_, err := s.GetPreset(context.Background(), "missing")
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_ListPresetsOrderedByName(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	for _, name := range []string{"zeta", "alpha", "mid"} {
		_, err := s.SavePreset(ctx, name, "", mapping.Default())
		require.NoError(t, err)
	}

	all, err := s.ListPresets(ctx)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "alpha", all[0].Name)
	assert.Equal(t, "mid", all[1].Name)
	assert.Equal(t, "zeta", all[2].Name)
}

func TestSQLite_ListPresetsEmpty(t *testing.T) {
	s := newTestSQLiteStore(t)
	all, err := s.ListPresets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestSQLite_DeletePreset(t *testing.T) {
	s := newTestSQLiteStore(t)
	ctx := context.Background()

	p, err := s.SavePreset(ctx, "gone", "", mapping.Default())
	require.NoError(t, err)

	require.NoError(t, s.DeletePreset(ctx, p.ID))
	_, err = s.GetPreset(ctx, p.ID)
	assert.True(t, eris.Is(err, ErrNotFound))

	err = s.DeletePreset(ctx, p.ID)
	assert.True(t, eris.Is(err, ErrNotFound))
}

func TestSQLite_MigrateIdempotent(t *testing.T) {
	s := newTestSQLiteStore(t)
	assert.NoError(t, s.Migrate(context.Background()))
}

func TestOpen_SQLite(t *testing.T) {
	st, err := Open(context.Background(), config.StoreConfig{
		Driver:      "sqlite",
		DatabaseURL: filepath.Join(t.TempDir(), "open.db"),
	})
	require.NoError(t, err)
	defer st.Close()

	_, err = st.SavePreset(context.Background(), "x", "", mapping.Default())
	assert.NoError(t, err)
}

func TestOpen_UnknownDriver(t *testing.T) {
	_, err := Open(context.Background(), config.StoreConfig{Driver: "mysql"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown driver")
}
