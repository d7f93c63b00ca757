package sqldb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"
	"github.com/vncsmyrnk/pollr/internal/core/domain"
)

type Dialect string

const (
	Postgres Dialect = "postgres"
	SQLite   Dialect = "sqlite"
)

func ParseDialect(s string) (Dialect, error) {
	switch Dialect(s) {
	case Postgres, SQLite:
		return Dialect(s), nil
	}
	return "", fmt.Errorf("unsupported sql dialect %q", s)
}

func (d Dialect) driverName() string {
	if d == SQLite {
		return "sqlite3"
	}
	return "postgres"
}

var ordinalPlaceholder = regexp.MustCompile(`\$(\d+)`)

// rebind rewrites $N placeholders into sqlite's ?N form. Queries are
// written once in the postgres style.
func (d Dialect) rebind(query string) string {
	if d != SQLite {
		return query
	}
	return ordinalPlaceholder.ReplaceAllString(query, "?$1")
}

// timestamp types a placeholder that postgres could not infer from context.
func (d Dialect) timestamp(placeholder string) string {
	if d == Postgres {
		return placeholder + "::timestamptz"
	}
	return placeholder
}

// Store carries the connection pool and the dialect every repository of
// this package needs.
type Store struct {
	db      *sql.DB
	dialect Dialect
}

func NewStore(db *sql.DB, dialect Dialect) *Store {
	return &Store{db: db, dialect: dialect}
}

// Open connects and pings the database. A sqlite database is pinned to one
// connection so in-memory databases are shared by every caller.
func Open(ctx context.Context, dialect Dialect, dsn string) (*Store, error) {
	db, err := sql.Open(dialect.driverName(), dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if dialect == SQLite {
		db.SetMaxOpenConns(1)
		db.SetConnMaxLifetime(0)
	} else {
		db.SetMaxOpenConns(25)
		db.SetMaxIdleConns(25)
		db.SetConnMaxIdleTime(5 * time.Minute)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return NewStore(db, dialect), nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

func isUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	return false
}

func isForeignKeyViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23503"
	}
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		if sqliteErr.ExtendedCode == sqlite3.ErrConstraintForeignKey {
			return true
		}
		// sqlite reports a delete blocked by ON DELETE RESTRICT as a
		// trigger constraint.
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintTrigger &&
			strings.Contains(sqliteErr.Error(), "FOREIGN KEY")
	}
	return false
}

// unavailable marks a driver failure as a storage fault.
func unavailable(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, domain.ErrStorageUnavailable, err)
}
