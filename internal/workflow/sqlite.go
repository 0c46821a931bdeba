package workflow

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rotisserie/eris"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL
// mode.
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
CREATE TABLE IF NOT EXISTS workflows (
	id         TEXT PRIMARY KEY,
	type       TEXT NOT NULL,
	definition TEXT NOT NULL,
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_workflows_created_at ON workflows(created_at);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func (s *SQLiteStore) Register(ctx context.Context, w Workflow) (uuid.UUID, error) {
	if err := w.Validate(); err != nil {
		return uuid.Nil, err
	}
	id := uuid.New()
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO workflows (id, type, definition, created_at) VALUES (?, ?, ?, ?)`,
		id.String(), string(w.Type), string(w.Operator), time.Now().UTC(),
	)
	if err != nil {
		return uuid.Nil, eris.Wrap(err, "sqlite: insert workflow")
	}
	return id, nil
}

func (s *SQLiteStore) Load(ctx context.Context, id uuid.UUID) (Workflow, error) {
	var (
		workflowType string
		definition   string
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT type, definition FROM workflows WHERE id = ?`, id.String(),
	).Scan(&workflowType, &definition)
	if errors.Is(err, sql.ErrNoRows) {
		return Workflow{}, &NotFoundError{ID: id}
	}
	if err != nil {
		return Workflow{}, eris.Wrapf(err, "sqlite: get workflow %s", id)
	}
	return Workflow{Type: Type(workflowType), Operator: []byte(definition)}, nil
}

func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]Listing, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, type, created_at FROM workflows ORDER BY created_at DESC, id LIMIT ? OFFSET ?`,
		clampListLimit(limit), offset,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list workflows")
	}
	defer rows.Close()

	var listings []Listing
	for rows.Next() {
		var (
			rawID        string
			workflowType string
			createdAt    time.Time
		)
		if err := rows.Scan(&rawID, &workflowType, &createdAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan workflow listing")
		}
		id, err := uuid.Parse(rawID)
		if err != nil {
			return nil, eris.Wrapf(err, "sqlite: workflow id %q", rawID)
		}
		listings = append(listings, Listing{ID: id, Type: Type(workflowType), CreatedAt: createdAt})
	}
	return listings, eris.Wrap(rows.Err(), "sqlite: list workflows")
}
