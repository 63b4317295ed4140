package store

import (
	"fmt"
	"strings"

	sq "github.com/Masterminds/squirrel"
)

// Dialect names a database/sql driver and the SQL flavour it speaks.
type Dialect string

const (
	SQLite3  Dialect = "sqlite3"
	SQLite   Dialect = "sqlite"
	MySQL    Dialect = "mysql"
	Postgres Dialect = "postgres"
	PGX      Dialect = "pgx"
)

// ParseDialect accepts a driver name, case-insensitively. "postgresql" is an
// alias of postgres.
func ParseDialect(s string) (Dialect, error) {
	switch d := Dialect(strings.ToLower(strings.TrimSpace(s))); d {
	case SQLite3, SQLite, MySQL, Postgres, PGX:
		return d, nil
	case "postgresql":
		return Postgres, nil
	default:
		return "", fmt.Errorf("unsupported driver %q", s)
	}
}

// Placeholder returns the bind-parameter format of the dialect.
func (d Dialect) Placeholder() sq.PlaceholderFormat {
	if d.IsPostgres() {
		return sq.Dollar
	}
	return sq.Question
}

// IsSQLite reports whether d is one of the SQLite drivers.
func (d Dialect) IsSQLite() bool {
	return d == SQLite3 || d == SQLite
}

// IsPostgres reports whether d is one of the PostgreSQL drivers.
func (d Dialect) IsPostgres() bool {
	return d == Postgres || d == PGX
}
