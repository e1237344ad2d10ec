package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"

	"github.com/sells-group/geoplot/internal/mapping"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS presets (
	id          TEXT PRIMARY KEY,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	config      TEXT NOT NULL,
	created_at  DATETIME NOT NULL DEFAULT (datetime('now')),
	updated_at  DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_presets_updated_at ON presets(updated_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) SavePreset(ctx context.Context, name, description string, cfg mapping.Config) (*Preset, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: marshal config")
	}
	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO presets (id, name, description, config, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(name) DO UPDATE SET
		   description = excluded.description,
		   config = excluded.config,
		   updated_at = excluded.updated_at`,
		uuid.New().String(), name, description, string(cfgJSON), now, now,
	)
	if err != nil {
		return nil, eris.Wrapf(err, "sqlite: save preset %s", name)
	}

	return scanPreset(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, config, created_at, updated_at FROM presets WHERE name = ?`,
		name,
	))
}

func (s *SQLiteStore) GetPreset(ctx context.Context, ref string) (*Preset, error) {
	return scanPreset(s.db.QueryRowContext(ctx,
		`SELECT id, name, description, config, created_at, updated_at FROM presets
		 WHERE id = ? OR name = ? ORDER BY (id = ?) DESC LIMIT 1`,
		ref, ref, ref,
	))
}

func (s *SQLiteStore) ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, description, config, created_at, updated_at FROM presets ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list presets")
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPreset(rows)
		if err != nil {
			return nil, err
		}
		presets = append(presets, *p)
	}
	return presets, eris.Wrap(rows.Err(), "sqlite: iterate presets")
}

func (s *SQLiteStore) DeletePreset(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM presets WHERE id = ?`, id)
	if err != nil {
		return eris.Wrapf(err, "sqlite: delete preset %s", id)
	}
	return checkRowsAffected(res, id)
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrap(err, "rows affected")
	}
	if n == 0 {
		return eris.Wrapf(ErrNotFound, "preset %s", id)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanPreset(row scannable) (*Preset, error) {
	var p Preset
	var cfgJSON string

	err := row.Scan(&p.ID, &p.Name, &p.Description, &cfgJSON, &p.CreatedAt, &p.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: scan preset")
	}

	if err := decodeConfig([]byte(cfgJSON), &p.Config); err != nil {
		return nil, eris.Wrap(err, "sqlite: unmarshal config")
	}
	return &p, nil
}

// decodeConfig overlays stored JSON onto the defaults so presets saved
// before a field existed still validate.
func decodeConfig(data []byte, cfg *mapping.Config) error {
	*cfg = mapping.Default()
	return json.Unmarshal(data, cfg)
}
