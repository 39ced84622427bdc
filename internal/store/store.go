package store

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
)

//go:embed schema.sql
var schemaSQL string

// Schema version tracking:
// 0 - Initial schema (pre-migration)
// 1 - Secondary indexes on record fields
const currentSchemaVersion = 1

// DefaultBusyTimeout is how long a writer waits for a competing lock.
const DefaultBusyTimeout = 5 * time.Second

const metaInstanceID = "instance_id"

// Store provides durable storage for records, the provisional id counter and
// the mutation queue.
type Store struct {
	db         *sql.DB
	log        zerolog.Logger
	instanceID string
}

// Option configures Open.
type Option func(*options)

type options struct {
	logger      zerolog.Logger
	busyTimeout time.Duration
}

// WithLogger sets the logger used for queue decisions and lifecycle events.
func WithLogger(l zerolog.Logger) Option {
	return func(o *options) { o.logger = l }
}

// WithBusyTimeout overrides DefaultBusyTimeout.
func WithBusyTimeout(d time.Duration) Option {
	return func(o *options) {
		if d > 0 {
			o.busyTimeout = d
		}
	}
}

// Open creates or opens a SQLite database at the given path.
// Applies required pragmas and migrations automatically, and assigns the
// store an instance id on first open.
//
// Use ":memory:" for a throwaway store.
func Open(path string, opts ...Option) (*Store, error) {
	o := options{logger: zerolog.Nop(), busyTimeout: DefaultBusyTimeout}
	for _, opt := range opts {
		opt(&o)
	}

	db, err := sql.Open("sqlite3", dsn(path))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// SQLite supports one writer at a time. A single connection also keeps
	// an in-memory database alive for the life of the Store.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	if err := applyPragmas(db, o.busyTimeout); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply pragmas: %w", err)
	}

	if err := applySchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to apply schema: %w", err)
	}

	instanceID, err := ensureInstanceID(db)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to load instance id: %w", err)
	}

	s := &Store{db: db, log: o.logger, instanceID: instanceID}
	s.log.Debug().Str("path", path).Str("instance_id", instanceID).Msg("store opened")
	return s, nil
}

func dsn(path string) string {
	if path == ":memory:" {
		return "file::memory:?_txlock=immediate"
	}
	return "file:" + path + "?_txlock=immediate"
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// DB returns the underlying sql.DB for direct queries.
// Use with caution - prefer using Store methods when available.
func (s *Store) DB() *sql.DB {
	return s.db
}

// InstanceID returns the store's persisted identity, a UUIDv7 assigned the
// first time the database was opened. Sync clients present it as their
// source identifier.
func (s *Store) InstanceID() string {
	return s.instanceID
}

// Update runs fn inside a single write transaction. If fn returns an error
// the transaction is rolled back and the error is returned unchanged.
func (s *Store) Update(ctx context.Context, fn func(tx *Tx) error) error {
	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return storageErr("begin", err)
	}
	defer sqlTx.Rollback() // No-op if committed

	if err := fn(&Tx{tx: sqlTx, log: s.log}); err != nil {
		return err
	}

	if err := sqlTx.Commit(); err != nil {
		return storageErr("commit", err)
	}
	return nil
}

func applyPragmas(db *sql.DB, busyTimeout time.Duration) error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA foreign_keys = ON",
	}

	for _, pragma := range pragmas {
		if _, err := db.Exec(pragma); err != nil {
			return fmt.Errorf("failed to execute %q: %w", pragma, err)
		}
	}

	return nil
}

// applySchema creates tables if they don't exist and runs migrations.
// This function is idempotent.
func applySchema(db *sql.DB) error {
	if _, err := db.Exec(schemaSQL); err != nil {
		return fmt.Errorf("failed to execute schema: %w", err)
	}

	if err := runMigrations(db); err != nil {
		return fmt.Errorf("failed to run migrations: %w", err)
	}

	return nil
}

// runMigrations applies incremental schema migrations based on user_version.
func runMigrations(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("get user_version: %w", err)
	}

	if version < 1 {
		if err := migrateToV1(db); err != nil {
			return err
		}
	}

	if _, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", currentSchemaVersion)); err != nil {
		return fmt.Errorf("set user_version: %w", err)
	}

	return nil
}

// migrateToV1 creates the expression indexes backing GetByIndex.
func migrateToV1(db *sql.DB) error {
	for _, idx := range declaredIndexes() {
		stmt := fmt.Sprintf(
			"CREATE INDEX IF NOT EXISTS %s ON records(collection, %s)",
			idx.sqlName(), idx.expr(),
		)
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("migrate to v1: %w", err)
		}
	}
	return nil
}

func ensureInstanceID(db *sql.DB) (string, error) {
	var id string
	err := db.QueryRow(`SELECT value FROM store_meta WHERE key = ?`, metaInstanceID).Scan(&id)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return "", err
	}

	generated, err := uuid.NewV7()
	if err != nil {
		return "", err
	}
	id = generated.String()
	if _, err := db.Exec(
		`INSERT INTO store_meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO NOTHING`,
		metaInstanceID, id,
	); err != nil {
		return "", err
	}
	return id, nil
}

// verifyPragma checks that a pragma is set to the expected value.
// Used for testing.
func (s *Store) verifyPragma(name, expected string) error {
	var value string
	query := fmt.Sprintf("PRAGMA %s", name)
	if err := s.db.QueryRow(query).Scan(&value); err != nil {
		return fmt.Errorf("failed to query %s: %w", name, err)
	}
	if value != expected {
		return fmt.Errorf("%s = %q, expected %q", name, value, expected)
	}
	return nil
}
