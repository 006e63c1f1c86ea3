package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/JET-SOUZA/jet.iptv/internal/model"
)

// Options selects the backing database for the credential store.
type Options struct {
	// Driver is one of "sqlite" (default), "postgres" or "mysql".
	Driver string
	// DSN is the driver-specific connection string. For sqlite an empty DSN
	// together with an empty DataDir opens an in-memory database.
	DSN string
	// DataDir is used by the sqlite driver when DSN is empty; the database
	// file is created as <DataDir>/jetiptv.db.
	DataDir string
}

// Store is the credential store: a single users table holding accounts,
// their bcrypt password hashes, entitlement flags and expiry.
type Store struct {
	db      *sqlx.DB
	dialect *dialect
}

// NewStore opens the configured database and applies migrations. Pass a zero
// Options for an in-memory SQLite store.
func NewStore(opts Options) (*Store, error) {
	d, err := lookupDialect(opts.Driver)
	if err != nil {
		return nil, err
	}

	dsn, err := d.resolveDSN(opts)
	if err != nil {
		return nil, err
	}

	db, err := sqlx.Connect(d.driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open user database: %w", err)
	}

	if d.name == "sqlite" {
		db.SetMaxOpenConns(1) // SQLite doesn't support concurrent writes
	} else {
		db.SetMaxOpenConns(20)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	s := &Store{db: db, dialect: d}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate user database: %w", err)
	}
	return s, nil
}

// sqliteDSN builds the DSN for a file-backed or in-memory SQLite database.
func sqliteDSN(opts Options) (string, error) {
	if opts.DSN != "" {
		return opts.DSN, nil
	}
	if opts.DataDir == "" {
		return ":memory:", nil
	}
	if err := os.MkdirAll(opts.DataDir, 0755); err != nil {
		return "", fmt.Errorf("create data dir: %w", err)
	}
	return filepath.Join(opts.DataDir, "jetiptv.db") + "?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// Driver returns the name of the dialect in use ("sqlite", "postgres", "mysql").
func (s *Store) Driver() string {
	return s.dialect.name
}

// Ping verifies the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// ---------------------------------------------------------------------------
// User CRUD
// ---------------------------------------------------------------------------

const userColumns = `id, username, password_hash, premium, is_admin, expires_at,
	server, xtream_pass, created_at, updated_at`

// CreateUser inserts a new user. The ID, CreatedAt, and UpdatedAt fields on u
// are populated after a successful insert. Username uniqueness is enforced by
// the table's UNIQUE constraint, so two concurrent registrations for the same
// name result in exactly one row and one ErrDuplicateUsername.
func (s *Store) CreateUser(ctx context.Context, u *model.User) error {
	if u.Username == "" {
		return ErrEmptyUsername
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now
	if u.ExpiresAt != nil {
		exp := u.ExpiresAt.UTC()
		u.ExpiresAt = &exp
	}

	const q = `INSERT INTO users
		(username, password_hash, premium, is_admin, expires_at, server, xtream_pass, created_at, updated_at)
		VALUES
		(:username, :password_hash, :premium, :is_admin, :expires_at, :server, :xtream_pass, :created_at, :updated_at)`

	id, err := s.insertReturningID(ctx, q, u)
	if err != nil {
		if s.dialect.isUniqueViolation(err) {
			return ErrDuplicateUsername
		}
		return fmt.Errorf("insert user: %w", err)
	}
	u.ID = id
	return nil
}

// insertReturningID runs a named INSERT and returns the generated primary key.
// PostgreSQL has no LastInsertId, so the statement gets a RETURNING clause.
func (s *Store) insertReturningID(ctx context.Context, q string, arg interface{}) (int64, error) {
	if s.dialect.returningID {
		query, args, err := sqlx.Named(q+" RETURNING id", arg)
		if err != nil {
			return 0, err
		}
		var id int64
		if err := s.db.QueryRowxContext(ctx, s.db.Rebind(query), args...).Scan(&id); err != nil {
			return 0, err
		}
		return id, nil
	}

	result, err := s.db.NamedExecContext(ctx, q, arg)
	if err != nil {
		return 0, err
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get user id: %w", err)
	}
	return id, nil
}

// GetUser returns a user by ID.
func (s *Store) GetUser(ctx context.Context, id int64) (*model.User, error) {
	var u model.User
	q := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE id = ?")
	if err := s.db.GetContext(ctx, &u, q, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return &u, nil
}

// GetUserByUsername returns a user by its unique username.
func (s *Store) GetUserByUsername(ctx context.Context, username string) (*model.User, error) {
	var u model.User
	q := s.db.Rebind("SELECT " + userColumns + " FROM users WHERE username = ?")
	if err := s.db.GetContext(ctx, &u, q, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get user by username: %w", err)
	}
	return &u, nil
}

// ListUsers returns all accounts ordered by username.
func (s *Store) ListUsers(ctx context.Context) ([]model.User, error) {
	users := []model.User{}
	if err := s.db.SelectContext(ctx, &users, "SELECT "+userColumns+" FROM users ORDER BY username"); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

// CountUsers returns the number of accounts. Used at startup to decide
// whether the bootstrap admin must be seeded.
func (s *Store) CountUsers(ctx context.Context) (int, error) {
	var count int
	if err := s.db.GetContext(ctx, &count, "SELECT COUNT(*) FROM users"); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

// SetPremium sets the premium flag. Returns ErrNotFound when no row matches.
func (s *Store) SetPremium(ctx context.Context, id int64, premium bool) error {
	n, err := s.exec(ctx, "UPDATE users SET premium = ?, updated_at = ? WHERE id = ?",
		premium, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set premium: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// TogglePremium flips the premium flag in a single statement. An absent id
// is a no-op and is not reported as an error.
func (s *Store) TogglePremium(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, "UPDATE users SET premium = NOT premium, updated_at = ? WHERE id = ?",
		time.Now().UTC(), id); err != nil {
		return fmt.Errorf("toggle premium: %w", err)
	}
	return nil
}

// SetAdmin sets the is_admin flag. Returns ErrNotFound when no row matches.
func (s *Store) SetAdmin(ctx context.Context, id int64, isAdmin bool) error {
	n, err := s.exec(ctx, "UPDATE users SET is_admin = ?, updated_at = ? WHERE id = ?",
		isAdmin, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set admin: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// SetExpiry stores an absolute expiry, or clears it when expiresAt is nil.
// An absent id is a no-op.
func (s *Store) SetExpiry(ctx context.Context, id int64, expiresAt *time.Time) error {
	var exp interface{}
	if expiresAt != nil {
		exp = expiresAt.UTC()
	}
	if _, err := s.exec(ctx, "UPDATE users SET expires_at = ?, updated_at = ? WHERE id = ?",
		exp, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("set expiry: %w", err)
	}
	return nil
}

// SetServer stores the upstream Xtream base URL for a user, or clears it when
// server is empty. Returns ErrNotFound when no row matches.
func (s *Store) SetServer(ctx context.Context, id int64, server string) error {
	var srv interface{}
	if server != "" {
		srv = server
	}
	n, err := s.exec(ctx, "UPDATE users SET server = ?, updated_at = ? WHERE id = ?",
		srv, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("set server: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdatePasswordHash replaces a user's password hash. Returns ErrNotFound
// when no row matches.
func (s *Store) UpdatePasswordHash(ctx context.Context, id int64, hash string) error {
	n, err := s.exec(ctx, "UPDATE users SET password_hash = ?, updated_at = ? WHERE id = ?",
		hash, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteUser removes a user by ID. Deleting an id that does not exist is not
// an error.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if _, err := s.exec(ctx, "DELETE FROM users WHERE id = ?", id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

// exec rebinds q for the active dialect, runs it and returns rows affected.
func (s *Store) exec(ctx context.Context, q string, args ...interface{}) (int64, error) {
	result, err := s.db.ExecContext(ctx, s.db.Rebind(q), args...)
	if err != nil {
		return 0, err
	}
	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return n, nil
}
