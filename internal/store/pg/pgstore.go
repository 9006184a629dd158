package pg

import (
	"database/sql"
	"errors"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
)

// Store backs the membership provider and delegation oracle with Postgres.
type Store struct {
	db *sql.DB
}

var errNoDatabase = errors.New("database connection unavailable")

// Open connects to Postgres with tuned pool defaults.
func Open(dsn string) (*Store, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Store{db: db}, nil
}

// NewStore wraps an existing connection pool. db may be nil, in which case
// every lookup reports the database as unavailable and the resolution path
// degrades.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Close closes the underlying pool.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB exposes the underlying pool for the readiness probe.
func (s *Store) DB() *sql.DB {
	if s == nil {
		return nil
	}
	return s.db
}
