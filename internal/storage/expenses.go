package storage

import (
	"context"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

const expenseColumns = "id, user_id, title, amount_cents, entry_date, category, description, created_at, updated_at"

func scanExpense(r rowScanner) (core.Expense, error) {
	var (
		e       core.Expense
		cents   int64
		date    dbTime
		created dbTime
		updated dbTime
	)
	if err := r.Scan(&e.ID, &e.UserID, &e.Title, &cents, &date, &e.Category, &e.Description, &created, &updated); err != nil {
		return core.Expense{}, err
	}
	e.Amount = core.FromCents(cents)
	e.Date = date.date()
	e.CreatedAt = created.Time
	e.UpdatedAt = updated.ptr()
	return e, nil
}

func (s *Store) expenseWhere(q *query, f ledger.Filter) {
	s.entryWhere(q, f)
	if f.Category != "" {
		q.and("category = " + q.arg(f.Category))
	}
}

func (s *Store) CreateExpense(ctx context.Context, e *core.Expense) error {
	now := s.stamp()
	q := s.query()
	stmt := fmt.Sprintf(
		"INSERT INTO expenses (user_id, title, amount_cents, entry_date, category, description, created_at) VALUES (%s, %s, %s, %s, %s, %s, %s) RETURNING id",
		q.arg(e.UserID), q.arg(e.Title), q.arg(core.ToCents(e.Amount)), q.arg(s.d.dateArg(e.Date)), q.arg(e.Category), q.arg(e.Description), q.arg(s.d.timeArg(now)),
	)
	if err := s.db.QueryRowContext(ctx, stmt, q.args...).Scan(&e.ID); err != nil {
		return fmt.Errorf("insert expense: %w", err)
	}
	e.CreatedAt = now
	e.UpdatedAt = nil
	return nil
}

func (s *Store) GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error) {
	q := s.query()
	stmt := "SELECT " + expenseColumns + " FROM expenses WHERE id = " + q.arg(id) + " AND user_id = " + q.arg(userID)
	e, err := scanExpense(s.db.QueryRowContext(ctx, stmt, q.args...))
	if err != nil {
		return core.Expense{}, fmt.Errorf("get expense %d: %w", id, notFound(err))
	}
	return e, nil
}

func (s *Store) UpdateExpense(ctx context.Context, e *core.Expense) error {
	now := s.stamp()
	q := s.query()
	stmt := fmt.Sprintf(
		"UPDATE expenses SET title = %s, amount_cents = %s, entry_date = %s, category = %s, description = %s, updated_at = %s WHERE id = %s AND user_id = %s",
		q.arg(e.Title), q.arg(core.ToCents(e.Amount)), q.arg(s.d.dateArg(e.Date)), q.arg(e.Category), q.arg(e.Description), q.arg(s.d.timeArg(now)),
		q.arg(e.ID), q.arg(e.UserID),
	)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("update expense %d: %w", e.ID, err)
	}
	e.UpdatedAt = &now
	return nil
}

func (s *Store) DeleteExpense(ctx context.Context, userID string, id int64) error {
	q := s.query()
	stmt := "DELETE FROM expenses WHERE id = " + q.arg(id) + " AND user_id = " + q.arg(userID)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete expense %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListExpenses(ctx context.Context, f ledger.Filter) ([]core.Expense, error) {
	q := s.query()
	s.expenseWhere(q, f)
	stmt := "SELECT " + expenseColumns + " FROM expenses" + q.clause() +
		" ORDER BY entry_date DESC, created_at DESC, id DESC" + limitClause(f.Limit)
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	defer rows.Close()
	return collect(rows, scanExpense)
}

func (s *Store) SumExpenses(ctx context.Context, f ledger.Filter) (core.Totals, error) {
	q := s.query()
	s.expenseWhere(q, f)
	return s.totals(ctx, "expenses", q)
}

func (s *Store) ExpensesByCategory(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	q := s.query()
	s.expenseWhere(q, f)
	return s.groupBy(ctx, "expenses", "category", q)
}

func (s *Store) ExpensesByUser(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	q := s.query()
	s.expenseWhere(q, f)
	return s.groupBy(ctx, "expenses", "user_id", q)
}

func (s *Store) ExpenseCategories(ctx context.Context, userID string) ([]string, error) {
	q := s.query()
	stmt := "SELECT DISTINCT category FROM expenses WHERE user_id = " + q.arg(userID) + " ORDER BY category"
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list expense categories: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var c string
		if err := rows.Scan(&c); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
