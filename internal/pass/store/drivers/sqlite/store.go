// Package sqlite persists client state in a small local SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"errors"

	"github.com/aussiebroadwan/gatepass/internal/pass/store"
	"github.com/aussiebroadwan/gatepass/internal/pass/store/drivers/sqlite/migrations"

	"github.com/golang-migrate/migrate/v4"
	migratesqlite "github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"

	_ "modernc.org/sqlite"
)

// State keys. Session keys are cleared together; the device key is not.
const (
	keyAuthToken   = "auth_token"
	keyCurrentUser = "current_user"
	keyDeviceID    = "device_id"
)

type Store struct {
	db *sql.DB
}

func NewStore(dsn string) (*Store, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, err
	}
	// Single writer, local file.
	db.SetMaxOpenConns(1)

	return &Store{db: db}, nil
}

func (s *Store) Close() error { return s.db.Close() }

// ApplyMigrations brings the client state schema up to date using the
// embedded migration files.
func (s *Store) ApplyMigrations() error {
	driver, err := migratesqlite.WithInstance(s.db, &migratesqlite.Config{})
	if err != nil {
		return err
	}

	src, err := iofs.New(migrations.Migrations, ".")
	if err != nil {
		return err
	}

	instance, err := migrate.NewWithInstance("iofs", src, "", driver)
	if err != nil {
		return err
	}

	if err := instance.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return err
	}
	return nil
}

func (s *Store) Sessions() store.Sessions { return &sessionsRepo{db: s.db} }
func (s *Store) Devices() store.Devices   { return &devicesRepo{db: s.db} }

func (s *Store) get(ctx context.Context, key string) ([]byte, error) {
	var value []byte
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM client_state WHERE key = ?`, key,
	).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	return value, err
}

func put(ctx context.Context, q interface {
	ExecContext(context.Context, string, ...any) (sql.Result, error)
}, key string, value []byte) error {
	_, err := q.ExecContext(ctx,
		`INSERT INTO client_state (key, value) VALUES (?, ?)
		 ON CONFLICT (key) DO UPDATE SET
		   value = excluded.value,
		   updated_at = strftime('%Y-%m-%dT%H:%M:%fZ', 'now')`,
		key, value,
	)
	return err
}

type sessionsRepo struct {
	db *sql.DB
}

func (r *sessionsRepo) Save(ctx context.Context, token, identity []byte) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if err := put(ctx, tx, keyAuthToken, token); err != nil {
		return err
	}
	if err := put(ctx, tx, keyCurrentUser, identity); err != nil {
		return err
	}
	return tx.Commit()
}

func (r *sessionsRepo) Load(ctx context.Context) ([]byte, []byte, error) {
	s := &Store{db: r.db}
	token, err := s.get(ctx, keyAuthToken)
	if err != nil {
		return nil, nil, err
	}
	identity, err := s.get(ctx, keyCurrentUser)
	if err != nil {
		return nil, nil, err
	}
	return token, identity, nil
}

func (r *sessionsRepo) Clear(ctx context.Context) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM client_state WHERE key IN (?, ?)`, keyAuthToken, keyCurrentUser,
	)
	return err
}

type devicesRepo struct {
	db *sql.DB
}

func (r *devicesRepo) ID(ctx context.Context) (string, error) {
	s := &Store{db: r.db}
	value, err := s.get(ctx, keyDeviceID)
	if err != nil {
		return "", err
	}
	return string(value), nil
}

func (r *devicesRepo) SaveID(ctx context.Context, id string) error {
	return put(ctx, r.db, keyDeviceID, []byte(id))
}
