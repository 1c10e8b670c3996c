// Package postgres implements the store.Store interface backed by PostgreSQL.
package postgres

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/postgres"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	_ "github.com/lib/pq"

	"github.com/alfredjeanlab/vaultsync/internal/model"
	"github.com/alfredjeanlab/vaultsync/internal/store"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// PostgresStore implements store.Store backed by a PostgreSQL database.
type PostgresStore struct {
	db  *sql.DB
	now func() time.Time
}

// Compile-time check that PostgresStore implements store.Store.
var _ store.Store = (*PostgresStore)(nil)

// New opens a connection to the PostgreSQL database at the given URL,
// configures the connection pool, and runs any pending migrations.
func New(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := runMigrations(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return newWithDB(db), nil
}

func newWithDB(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func runMigrations(db *sql.DB) error {
	sourceDriver, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return fmt.Errorf("create migration source: %w", err)
	}

	dbDriver, err := postgres.WithInstance(db, &postgres.Config{})
	if err != nil {
		return fmt.Errorf("create migration db driver: %w", err)
	}

	m, err := migrate.NewWithInstance("iofs", sourceDriver, "postgres", dbDriver)
	if err != nil {
		return fmt.Errorf("create migrator: %w", err)
	}

	if err := m.Up(); err != nil && err != migrate.ErrNoChange {
		return fmt.Errorf("apply migrations: %w", err)
	}

	return nil
}

// Close closes the underlying database connection.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) EnsureDevice(ctx context.Context, id string) (*model.Device, error) {
	return queryEnsureDevice(ctx, s.db, id, s.now())
}

func (s *PostgresStore) GetDevice(ctx context.Context, id string) (*model.Device, error) {
	return queryGetDevice(ctx, s.db, id)
}

func (s *PostgresStore) ListDevices(ctx context.Context) ([]*model.Device, error) {
	return queryListDevices(ctx, s.db)
}

func (s *PostgresStore) DeviceExists(ctx context.Context, deviceID string) (bool, error) {
	return queryDeviceExists(ctx, s.db, deviceID)
}

func (s *PostgresStore) GetPreferences(ctx context.Context, deviceID string) (*model.Preferences, error) {
	return queryGetPreferences(ctx, s.db, deviceID)
}

// UpsertPreferences registers the device and writes its settings in one
// transaction.
func (s *PostgresStore) UpsertPreferences(ctx context.Context, prefs *model.Preferences) error {
	now := s.now()
	if prefs.UpdatedAt.IsZero() {
		prefs.UpdatedAt = now
	}
	return s.runInTransaction(ctx, func(tx executor) error {
		if _, err := queryEnsureDevice(ctx, tx, prefs.DeviceID, now); err != nil {
			return err
		}
		return queryUpsertPreferences(ctx, tx, prefs)
	})
}

func (s *PostgresStore) ListPreferences(ctx context.Context) ([]*model.Preferences, error) {
	return queryListPreferences(ctx, s.db)
}

func (s *PostgresStore) UpsertSession(ctx context.Context, sess model.Session) (model.Session, error) {
	return queryUpsertSession(ctx, s.db, sess)
}

func (s *PostgresStore) DeleteSession(ctx context.Context, deviceID, itemID string) error {
	return queryDeleteSession(ctx, s.db, deviceID, itemID)
}

func (s *PostgresStore) ListSessions(ctx context.Context, itemID string) ([]model.Session, error) {
	return queryListSessions(ctx, s.db, itemID)
}

func (s *PostgresStore) DeleteSessionsBefore(ctx context.Context, cutoff time.Time) (int, error) {
	return queryDeleteSessionsBefore(ctx, s.db, cutoff)
}

// runInTransaction begins a database transaction, calls fn with it, and
// commits on success or rolls back on error.
func (s *PostgresStore) runInTransaction(ctx context.Context, fn func(tx executor) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}
