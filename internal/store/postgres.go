package store

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/geoplot/internal/mapping"
)

// Pool is the subset of pgxpool.Pool the store uses. pgxmock satisfies it.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Ping(ctx context.Context) error
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(4)
	minConns := int32(1)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS presets (
	id          TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	name        TEXT NOT NULL UNIQUE,
	description TEXT NOT NULL DEFAULT '',
	config      JSONB NOT NULL,
	created_at  TIMESTAMPTZ NOT NULL DEFAULT now(),
	updated_at  TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_presets_updated_at ON presets(updated_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) SavePreset(ctx context.Context, name, description string, cfg mapping.Config) (*Preset, error) {
	if err := validateName(name); err != nil {
		return nil, err
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: marshal config")
	}
	now := time.Now().UTC()

	p := Preset{Name: name, Description: description, Config: cfg, UpdatedAt: now}
	err = s.pool.QueryRow(ctx,
		`INSERT INTO presets (id, name, description, config, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (name) DO UPDATE SET
		   description = EXCLUDED.description,
		   config = EXCLUDED.config,
		   updated_at = EXCLUDED.updated_at
		 RETURNING id, created_at`,
		uuid.New().String(), name, description, cfgJSON, now, now,
	).Scan(&p.ID, &p.CreatedAt)
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: save preset %s", name)
	}
	return &p, nil
}

func (s *PostgresStore) GetPreset(ctx context.Context, ref string) (*Preset, error) {
	row := s.pool.QueryRow(ctx,
		`SELECT id, name, description, config, created_at, updated_at FROM presets
		 WHERE id = $1 OR name = $1 ORDER BY (id = $1) DESC LIMIT 1`,
		ref,
	)
	p, err := scanPgPreset(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, eris.Wrapf(err, "postgres: get preset %s", ref)
	}
	return p, nil
}

func (s *PostgresStore) ListPresets(ctx context.Context) ([]Preset, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, description, config, created_at, updated_at FROM presets ORDER BY name`,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list presets")
	}
	defer rows.Close()

	var presets []Preset
	for rows.Next() {
		p, err := scanPgPreset(rows)
		if err != nil {
			return nil, eris.Wrap(err, "postgres: scan preset")
		}
		presets = append(presets, *p)
	}
	return presets, eris.Wrap(rows.Err(), "postgres: iterate presets")
}

func (s *PostgresStore) DeletePreset(ctx context.Context, id string) error {
	tag, err := s.pool.Exec(ctx, `DELETE FROM presets WHERE id = $1`, id)
	if err != nil {
		return eris.Wrapf(err, "postgres: delete preset %s", id)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrNotFound, "preset %s", id)
	}
	return nil
}

func scanPgPreset(row pgx.Row) (*Preset, error) {
	var p Preset
	var cfgJSON []byte
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &cfgJSON, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	if err := decodeConfig(cfgJSON, &p.Config); err != nil {
		return nil, eris.Wrap(err, "postgres: unmarshal config")
	}
	return &p, nil
}
