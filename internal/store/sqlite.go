package store

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jonboulle/clockwork"
	_ "modernc.org/sqlite"

	"github.com/realmlist/metarboard/internal/logger"
)

type Store struct {
	db    *sql.DB
	clock clockwork.Clock
	log   *logger.Logger
}

// New wraps an open database. A nil clock means the real clock.
func New(db *sql.DB, clock clockwork.Clock) *Store {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Store{db: db, clock: clock, log: logger.NewNop()}
}

// WithLogger sets the logger used for migration progress.
func (s *Store) WithLogger(l *logger.Logger) *Store {
	if l != nil {
		s.log = l.Named("store")
	}
	return s
}

// Open opens (creating if needed) the SQLite database at path and applies
// migrations.
func Open(path string, clock clockwork.Clock, log *logger.Logger) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// A single connection serialises writers from the scheduler and the web
	// UI and keeps :memory: databases from splitting across connections.
	db.SetMaxOpenConns(1)

	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, fmt.Errorf("%s: %w", pragma, err)
		}
	}

	s := New(db, clock).WithLogger(log)
	if err := s.Migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Ping checks the database connection.
func (s *Store) Ping() error {
	return s.db.Ping()
}

func (s *Store) now() time.Time {
	return s.clock.Now().UTC()
}
