package store

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// dialect captures the per-driver differences the store has to care about:
// DDL, how generated ids come back, and how a unique violation is reported.
type dialect struct {
	name        string
	driverName  string
	returningID bool
	migrations  []string
	resolveDSN  func(Options) (string, error)
	uniqueCheck func(error) bool
}

func lookupDialect(driver string) (*dialect, error) {
	switch strings.ToLower(driver) {
	case "", "sqlite", "sqlite3":
		return sqliteDialect, nil
	case "postgres", "postgresql", "pgx":
		return postgresDialect, nil
	case "mysql", "mariadb":
		return mysqlDialect, nil
	default:
		return nil, fmt.Errorf("unsupported store driver %q (want sqlite, postgres or mysql)", driver)
	}
}

// isUniqueViolation reports whether err was caused by the users.username
// UNIQUE constraint (or any other unique constraint).
func (d *dialect) isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	if d.uniqueCheck(err) {
		return true
	}
	// Fall back to message matching for wrapped or driver-agnostic errors.
	lower := strings.ToLower(err.Error())
	return strings.Contains(lower, "unique constraint") ||
		strings.Contains(lower, "duplicate key") ||
		strings.Contains(lower, "duplicate entry")
}

var sqliteDialect = &dialect{
	name:       "sqlite",
	driverName: "sqlite",
	resolveDSN: sqliteDSN,
	uniqueCheck: func(err error) bool {
		var e *sqlite.Error
		if errors.As(err, &e) {
			return e.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE
		}
		return false
	},
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			username TEXT UNIQUE NOT NULL CHECK (username <> ''),
			password_hash TEXT NOT NULL,
			premium INTEGER NOT NULL DEFAULT 0,
			is_admin INTEGER NOT NULL DEFAULT 0,
			expires_at DATETIME,
			created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
			updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
		)`,

		// v2: upstream Xtream panel per user
		`ALTER TABLE users ADD COLUMN server TEXT`,
		`ALTER TABLE users ADD COLUMN xtream_pass TEXT`,
	},
}

var postgresDialect = &dialect{
	name:        "postgres",
	driverName:  "pgx",
	returningID: true,
	resolveDSN:  requireDSN("postgres"),
	uniqueCheck: func(err error) bool {
		var e *pgconn.PgError
		return errors.As(err, &e) && e.Code == "23505"
	},
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGSERIAL PRIMARY KEY,
			username TEXT UNIQUE NOT NULL CHECK (username <> ''),
			password_hash TEXT NOT NULL,
			premium BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at TIMESTAMPTZ,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,

		// v2: upstream Xtream panel per user
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS server TEXT`,
		`ALTER TABLE users ADD COLUMN IF NOT EXISTS xtream_pass TEXT`,
	},
}

var mysqlDialect = &dialect{
	name:       "mysql",
	driverName: "mysql",
	resolveDSN: mysqlDSN,
	uniqueCheck: func(err error) bool {
		var e *mysql.MySQLError
		return errors.As(err, &e) && e.Number == 1062
	},
	migrations: []string{
		`CREATE TABLE IF NOT EXISTS users (
			id BIGINT AUTO_INCREMENT PRIMARY KEY,
			username VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			premium BOOLEAN NOT NULL DEFAULT FALSE,
			is_admin BOOLEAN NOT NULL DEFAULT FALSE,
			expires_at DATETIME(6) NULL,
			created_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			updated_at DATETIME(6) NOT NULL DEFAULT CURRENT_TIMESTAMP(6),
			CONSTRAINT uq_users_username UNIQUE (username)
		)`,

		// v2: upstream Xtream panel per user
		`ALTER TABLE users ADD COLUMN server VARCHAR(1024) NULL`,
		`ALTER TABLE users ADD COLUMN xtream_pass VARCHAR(255) NULL`,

		// v3: usernames compare byte-wise, like sqlite and postgres
		`ALTER TABLE users MODIFY username VARCHAR(255) CHARACTER SET utf8mb4 COLLATE utf8mb4_bin NOT NULL`,
	},
}

func requireDSN(driver string) func(Options) (string, error) {
	return func(opts Options) (string, error) {
		if opts.DSN == "" {
			return "", fmt.Errorf("store driver %s requires a DSN", driver)
		}
		return opts.DSN, nil
	}
}

// mysqlDSN forces parseTime so DATETIME columns scan into time.Time.
func mysqlDSN(opts Options) (string, error) {
	if opts.DSN == "" {
		return "", errors.New("store driver mysql requires a DSN")
	}
	cfg, err := mysql.ParseDSN(opts.DSN)
	if err != nil {
		return "", fmt.Errorf("parse mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}
