package storage

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"bilancio/internal/core"

	"github.com/jackc/pgx/v5/pgconn"
	_ "github.com/jackc/pgx/v5/stdlib"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// sqliteTimeLayout is fixed width so stored timestamps sort as text.
const sqliteTimeLayout = "2006-01-02T15:04:05.000000000Z"

// Dialect captures what differs between the supported SQL engines.
type Dialect struct {
	Name   string
	driver string
}

var (
	SQLite   = Dialect{Name: "sqlite", driver: "sqlite"}
	Postgres = Dialect{Name: "postgres", driver: "pgx"}
)

// DialectFor maps a backend name to its dialect.
func DialectFor(name string) (Dialect, error) {
	switch strings.ToLower(name) {
	case SQLite.Name, "sqlite3":
		return SQLite, nil
	case Postgres.Name, "postgresql", "pgx":
		return Postgres, nil
	default:
		return Dialect{}, fmt.Errorf("unsupported sql dialect: %s", name)
	}
}

func (d Dialect) placeholder(n int) string {
	if d == Postgres {
		return fmt.Sprintf("$%d", n)
	}
	return "?"
}

// timeArg binds a timestamp: text in sqlite, timestamptz in postgres.
func (d Dialect) timeArg(t time.Time) any {
	if d == Postgres {
		return t.UTC()
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// dateArg binds a calendar date: "YYYY-MM-DD" text in sqlite, DATE in postgres.
func (d Dialect) dateArg(v core.Date) any {
	if d == Postgres {
		return v.Time
	}
	return v.String()
}

func (d Dialect) sum(col string) string {
	if d == Postgres {
		return "COALESCE(SUM(" + col + "), 0)::bigint"
	}
	return "COALESCE(SUM(" + col + "), 0)"
}

func (d Dialect) year(col string) string {
	if d == Postgres {
		return "EXTRACT(YEAR FROM " + col + ")::int"
	}
	return "CAST(substr(" + col + ", 1, 4) AS INTEGER)"
}

// isUniqueViolation recognises unique constraint failures from either engine.
func (d Dialect) isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	var sqErr *sqlite.Error
	if errors.As(err, &sqErr) && sqErr.Code() == sqlite3.SQLITE_CONSTRAINT_UNIQUE {
		return true
	}
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

// query accumulates WHERE terms and their positional arguments.
type query struct {
	d     Dialect
	where []string
	args  []any
}

func (q *query) arg(v any) string {
	q.args = append(q.args, v)
	return q.d.placeholder(len(q.args))
}

func (q *query) and(term string) {
	q.where = append(q.where, term)
}

func (q *query) clause() string {
	if len(q.where) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(q.where, " AND ")
}

func limitClause(n int) string {
	if n > 0 {
		return fmt.Sprintf(" LIMIT %d", n)
	}
	return ""
}
