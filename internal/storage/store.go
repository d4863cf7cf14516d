// Package storage is the SQL ledger store, backed by sqlite (modernc) or
// postgres (pgx). Amounts are persisted as integer cents.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

type Store struct {
	db  *sql.DB
	d   Dialect
	now func() time.Time
}

var _ ledger.Store = (*Store)(nil)

// Open connects to dsn, checks the connection and applies migrations.
// For sqlite, dsn is a file path whose directory is created if missing.
func Open(ctx context.Context, d Dialect, dsn string) (*Store, error) {
	if d == SQLite {
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
		dsn = sqliteDSN(dsn)
	}

	db, err := sql.Open(d.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s database: %w", d.Name, err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(db, d); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &Store{db: db, d: d, now: time.Now}, nil
}

func sqliteDSN(path string) string {
	if strings.Contains(path, "?") {
		return path
	}
	return path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)"
}

// WithClock sets the timestamp source used for created/updated stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

// DB exposes the underlying handle for health checks.
func (s *Store) DB() *sql.DB { return s.db }

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Store) query() *query { return &query{d: s.d} }

func (s *Store) stamp() time.Time {
	return s.now().UTC().Truncate(time.Microsecond)
}

// notFound maps an empty result to core.ErrNotFound.
func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return core.ErrNotFound
	}
	return err
}

// affected returns core.ErrNotFound when a write touched no row.
func affected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return core.ErrNotFound
	}
	return nil
}

// dbTime scans timestamps stored as text (sqlite) or timestamptz (postgres).
type dbTime struct {
	Time  time.Time
	Valid bool
}

var timeLayouts = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05",
	core.DateLayout,
}

func (t *dbTime) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		t.Time, t.Valid = time.Time{}, false
		return nil
	case time.Time:
		t.Time, t.Valid = x.UTC(), true
		return nil
	case string:
		return t.parse(x)
	case []byte:
		return t.parse(string(x))
	default:
		return fmt.Errorf("cannot scan %T into time", v)
	}
}

func (t *dbTime) parse(s string) error {
	for _, layout := range timeLayouts {
		if parsed, err := time.Parse(layout, s); err == nil {
			t.Time, t.Valid = parsed.UTC(), true
			return nil
		}
	}
	return fmt.Errorf("unrecognised time %q", s)
}

func (t dbTime) ptr() *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func (t dbTime) date() core.Date {
	return core.DateOf(t.Time)
}

// entryWhere adds the shared income/expense filter terms.
func (s *Store) entryWhere(q *query, f ledger.Filter) {
	if f.UserID != "" {
		q.and("user_id = " + q.arg(f.UserID))
	}
	if f.Role != "" {
		q.and("user_id IN (SELECT id FROM users WHERE role = " + q.arg(string(f.Role)) + ")")
	}
	if f.Range != nil {
		q.and("entry_date >= " + q.arg(s.d.dateArg(f.Range.From)))
		q.and("entry_date < " + q.arg(s.d.dateArg(f.Range.To)))
	}
}

func (s *Store) totals(ctx context.Context, table string, q *query) (core.Totals, error) {
	stmt := "SELECT " + s.d.sum("amount_cents") + ", COUNT(*) FROM " + table + q.clause()
	var cents int64
	var count int
	if err := s.db.QueryRowContext(ctx, stmt, q.args...).Scan(&cents, &count); err != nil {
		return core.Totals{}, fmt.Errorf("sum %s: %w", table, err)
	}
	return core.Totals{Amount: core.FromCents(cents), Count: count}, nil
}

// groupBy sums amount_cents per value of col, largest total first.
func (s *Store) groupBy(ctx context.Context, table, col string, q *query) ([]ledger.Group, error) {
	stmt := "SELECT " + col + ", " + s.d.sum("amount_cents") + " AS total, COUNT(*) FROM " + table + q.clause() +
		" GROUP BY " + col + " ORDER BY total DESC, " + col + " ASC"
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("group %s by %s: %w", table, col, err)
	}
	defer rows.Close()

	out := []ledger.Group{}
	for rows.Next() {
		var (
			g     ledger.Group
			cents int64
		)
		if err := rows.Scan(&g.Key, &cents, &g.Count); err != nil {
			return nil, fmt.Errorf("scan %s group: %w", table, err)
		}
		g.Total = core.FromCents(cents)
		out = append(out, g)
	}
	return out, rows.Err()
}

func (s *Store) EntryYears(ctx context.Context, userID string) ([]int, error) {
	q := s.query()
	user := q.arg(userID)
	// the same argument is bound twice for "?" placeholders
	second := q.arg(userID)
	stmt := "SELECT DISTINCT y FROM (" +
		"SELECT " + s.d.year("entry_date") + " AS y FROM incomes WHERE user_id = " + user +
		" UNION SELECT " + s.d.year("entry_date") + " AS y FROM expenses WHERE user_id = " + second +
		") years ORDER BY y DESC"
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list entry years: %w", err)
	}
	defer rows.Close()

	out := []int{}
	for rows.Next() {
		var y int
		if err := rows.Scan(&y); err != nil {
			return nil, fmt.Errorf("scan year: %w", err)
		}
		out = append(out, y)
	}
	return out, rows.Err()
}
