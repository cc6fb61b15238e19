// Package store implements the data-access layer: one function per entity
// operation, each a single parameterized statement or a short transaction
// against Postgres, returning the plain record types from internal/domain.
// The Store also owns the two process-local caches for the blacklist set
// and the daily sent counter.
package store

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/abaplay/outreach/internal/cache"
)

// ConstraintKind classifies a storage-boundary rejection.
type ConstraintKind string

const (
	ConstraintUnique     ConstraintKind = "unique"
	ConstraintForeignKey ConstraintKind = "foreign_key"
	ConstraintCheck      ConstraintKind = "check"
)

// ConstraintError is returned when the schema rejects a write: enum or
// range checks, uniqueness, or referential integrity. Blacklist email
// uniqueness is the one case absorbed as a successful no-op instead.
type ConstraintError struct {
	Kind       ConstraintKind
	Constraint string
	Err        error
}

func (e *ConstraintError) Error() string {
	return fmt.Sprintf("constraint violation (%s %s): %v", e.Kind, e.Constraint, e.Err)
}

func (e *ConstraintError) Unwrap() error { return e.Err }

// IsConstraint reports whether err is a constraint violation of the given
// kind, or of any kind when kind is empty.
func IsConstraint(err error, kind ConstraintKind) bool {
	var ce *ConstraintError
	if !errors.As(err, &ce) {
		return false
	}
	return kind == "" || ce.Kind == kind
}

// classify maps Postgres SQLSTATE codes onto the error taxonomy. Anything
// that is not a recognized constraint violation passes through unchanged
// (connectivity failures included; database/sql retries the connection on
// next use).
func classify(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch pqErr.Code {
	case "23505":
		return &ConstraintError{Kind: ConstraintUnique, Constraint: pqErr.Constraint, Err: err}
	case "23503":
		return &ConstraintError{Kind: ConstraintForeignKey, Constraint: pqErr.Constraint, Err: err}
	case "23514":
		return &ConstraintError{Kind: ConstraintCheck, Constraint: pqErr.Constraint, Err: err}
	}
	return err
}

// Store is the explicit context object for data access: the long-lived
// pooled connection handle plus the two TTL caches. Construct with Open or
// New; pass it to whoever needs data access instead of ambient globals.
type Store struct {
	db        *sql.DB
	blacklist *cache.BlacklistCache
	daily     *cache.DailyCountCache
	now       func() time.Time
}

// Options tunes cache TTLs. Zero values select the defaults.
type Options struct {
	BlacklistTTL  time.Duration
	DailyCountTTL time.Duration
}

// Open connects to Postgres, verifies the connection, and returns a Store.
func Open(dsn string, opts Options) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(30 * time.Minute)
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return NewWithOptions(db, opts), nil
}

// New wraps an existing handle with default cache TTLs.
func New(db *sql.DB) *Store {
	return NewWithOptions(db, Options{})
}

// NewWithOptions wraps an existing handle.
func NewWithOptions(db *sql.DB, opts Options) *Store {
	return &Store{
		db:        db,
		blacklist: cache.NewBlacklistCache(opts.BlacklistTTL),
		daily:     cache.NewDailyCountCache(opts.DailyCountTTL),
		now:       time.Now,
	}
}

// Close releases the connection pool.
func (s *Store) Close() error { return s.db.Close() }

// DB exposes the underlying handle for the migration runner.
func (s *Store) DB() *sql.DB { return s.db }

// InvalidateCaches drops both caches; the next reads refresh from the store.
func (s *Store) InvalidateCaches() {
	s.blacklist.Invalidate()
	s.daily.Invalidate()
}

// today returns the cache key for the current process-local calendar date.
func (s *Store) today() string { return cache.DateKey(s.now()) }

// startOfDay returns midnight of the current day in the process time zone.
// Day-boundary queries take this as a parameter instead of relying on
// CURRENT_DATE, which resolves in the database session's zone and can
// disagree with the cache's local date key.
func (s *Store) startOfDay() time.Time {
	now := s.now()
	y, m, d := now.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
}
