package storage

import (
	"context"
	"database/sql"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

const incomeColumns = "id, user_id, title, amount_cents, entry_date, description, created_at, updated_at"

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIncome(r rowScanner) (core.Income, error) {
	var (
		in      core.Income
		cents   int64
		date    dbTime
		created dbTime
		updated dbTime
	)
	if err := r.Scan(&in.ID, &in.UserID, &in.Title, &cents, &date, &in.Description, &created, &updated); err != nil {
		return core.Income{}, err
	}
	in.Amount = core.FromCents(cents)
	in.Date = date.date()
	in.CreatedAt = created.Time
	in.UpdatedAt = updated.ptr()
	return in, nil
}

func (s *Store) CreateIncome(ctx context.Context, in *core.Income) error {
	now := s.stamp()
	q := s.query()
	stmt := fmt.Sprintf(
		"INSERT INTO incomes (user_id, title, amount_cents, entry_date, description, created_at) VALUES (%s, %s, %s, %s, %s, %s) RETURNING id",
		q.arg(in.UserID), q.arg(in.Title), q.arg(core.ToCents(in.Amount)), q.arg(s.d.dateArg(in.Date)), q.arg(in.Description), q.arg(s.d.timeArg(now)),
	)
	if err := s.db.QueryRowContext(ctx, stmt, q.args...).Scan(&in.ID); err != nil {
		return fmt.Errorf("insert income: %w", err)
	}
	in.CreatedAt = now
	in.UpdatedAt = nil
	return nil
}

func (s *Store) GetIncome(ctx context.Context, userID string, id int64) (core.Income, error) {
	q := s.query()
	stmt := "SELECT " + incomeColumns + " FROM incomes WHERE id = " + q.arg(id) + " AND user_id = " + q.arg(userID)
	in, err := scanIncome(s.db.QueryRowContext(ctx, stmt, q.args...))
	if err != nil {
		return core.Income{}, fmt.Errorf("get income %d: %w", id, notFound(err))
	}
	return in, nil
}

func (s *Store) UpdateIncome(ctx context.Context, in *core.Income) error {
	now := s.stamp()
	q := s.query()
	stmt := fmt.Sprintf(
		"UPDATE incomes SET title = %s, amount_cents = %s, entry_date = %s, description = %s, updated_at = %s WHERE id = %s AND user_id = %s",
		q.arg(in.Title), q.arg(core.ToCents(in.Amount)), q.arg(s.d.dateArg(in.Date)), q.arg(in.Description), q.arg(s.d.timeArg(now)),
		q.arg(in.ID), q.arg(in.UserID),
	)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("update income %d: %w", in.ID, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("update income %d: %w", in.ID, err)
	}
	in.UpdatedAt = &now
	return nil
}

func (s *Store) DeleteIncome(ctx context.Context, userID string, id int64) error {
	q := s.query()
	stmt := "DELETE FROM incomes WHERE id = " + q.arg(id) + " AND user_id = " + q.arg(userID)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete income %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListIncomes(ctx context.Context, f ledger.Filter) ([]core.Income, error) {
	q := s.query()
	s.entryWhere(q, f)
	stmt := "SELECT " + incomeColumns + " FROM incomes" + q.clause() +
		" ORDER BY entry_date DESC, created_at DESC, id DESC" + limitClause(f.Limit)
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	defer rows.Close()
	return collect(rows, scanIncome)
}

func (s *Store) SumIncomes(ctx context.Context, f ledger.Filter) (core.Totals, error) {
	q := s.query()
	s.entryWhere(q, f)
	return s.totals(ctx, "incomes", q)
}

func (s *Store) IncomesByTitle(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	q := s.query()
	s.entryWhere(q, f)
	return s.groupBy(ctx, "incomes", "title", q)
}

func (s *Store) IncomesByUser(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	q := s.query()
	s.entryWhere(q, f)
	return s.groupBy(ctx, "incomes", "user_id", q)
}

func collect[T any](rows *sql.Rows, scan func(rowScanner) (T, error)) ([]T, error) {
	out := []T{}
	for rows.Next() {
		v, err := scan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
