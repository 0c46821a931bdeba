package workflow

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"
)

// Pool is the slice of pgxpool.Pool the store uses, narrow enough for
// pgxmock.
type Pool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool Pool
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
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
	return &PostgresStore{pool: pool}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS workflows (
	id         UUID PRIMARY KEY,
	type       TEXT NOT NULL,
	definition JSONB NOT NULL,
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_workflows_created_at ON workflows(created_at);
`

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Register(ctx context.Context, w Workflow) (uuid.UUID, error) {
	if err := w.Validate(); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	_, err := s.pool.Exec(ctx,
		`INSERT INTO workflows (id, type, definition, created_at) VALUES ($1, $2, $3, $4)`,
		id, string(w.Type), []byte(w.Operator), time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, eris.Wrap(err, "postgres: insert workflow")
	}
	return id, nil
}

func (s *PostgresStore) Load(ctx context.Context, id uuid.UUID) (Workflow, error) {
	var (
		workflowType string
		definition   []byte
	)
	err := s.pool.QueryRow(ctx,
		`SELECT type, definition FROM workflows WHERE id = $1`, id,
	).Scan(&workflowType, &definition)
	if errors.Is(err, pgx.ErrNoRows) {
		return Workflow{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Workflow{}, eris.Wrapf(err, "postgres: get workflow %s", id)
	}
	return Workflow{Type: Type(workflowType), Operator: definition}, nil
}

func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]Listing, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, type, created_at FROM workflows ORDER BY created_at DESC, id LIMIT $1 OFFSET $2`,
		clampListLimit(limit), offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list workflows")
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var (
			listing      Listing
			workflowType string
		)
		if err := rows.Scan(&listing.ID, &workflowType, &listing.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan workflow listing")
		}
		listing.Type = Type(workflowType)
		listings = append(listings, listing)
	}
	return listings, eris.Wrap(rows.Err(), "postgres: list workflows")
}
