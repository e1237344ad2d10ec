// Package store persists named mapping presets.
package store

import (
	"context"
	"time"

	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/config"
	"github.com/sells-group/geoplot/internal/mapping"
)

// ErrNotFound is returned when a preset does not exist.
var ErrNotFound = eris.New("preset not found")

// Preset is a saved mapping configuration.
type Preset struct {
	ID          string         `json:"id"`
	Name        string         `json:"name"`
	Description string         `json:"description,omitempty"`
	Config      mapping.Config `json:"config"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

// Store defines the persistence interface for presets.
type Store interface {
	// SavePreset creates the preset, or replaces the config and description
	// of the preset with the same name.
	SavePreset(ctx context.Context, name, description string, cfg mapping.Config) (*Preset, error)
	// GetPreset looks a preset up by ID or, failing that, by name.
	GetPreset(ctx context.Context, ref string) (*Preset, error)
	ListPresets(ctx context.Context) ([]Preset, error)
	DeletePreset(ctx context.Context, id string) error

	// Lifecycle
	Migrate(ctx context.Context) error
	Close() error
}

// Open connects to the configured backend and runs migrations.
func Open(ctx context.Context, cfg config.StoreConfig) (Store, error) {
	var (
		st  Store
		err error
	)
	switch cfg.Driver {
	case "", "sqlite":
		st, err = NewSQLite(cfg.DatabaseURL)
	case "postgres":
		st, err = NewPostgres(ctx, cfg.DatabaseURL, nil)
	default:
		return nil, eris.Errorf("store: unknown driver %q", cfg.Driver)
	}
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, err
	}
	return st, nil
}

func validateName(name string) error {
	if name == "" {
		return eris.New("store: preset name is required")
	}
	return nil
}
