package storage

import (
	"context"
	"fmt"

	"bilancio/internal/core"
	"bilancio/internal/ledger"
)

const budgetColumns = "id, user_id, category, planned_amount_cents, month, year, created_at, updated_at"

func scanBudget(r rowScanner) (core.Budget, error) {
	var (
		b       core.Budget
		cents   int64
		created dbTime
		updated dbTime
	)
	if err := r.Scan(&b.ID, &b.UserID, &b.Category, &cents, &b.Month, &b.Year, &created, &updated); err != nil {
		return core.Budget{}, err
	}
	b.PlannedAmount = core.FromCents(cents)
	b.CreatedAt = created.Time
	b.UpdatedAt = updated.ptr()
	return b, nil
}

func (s *Store) budgetWhere(q *query, f ledger.BudgetFilter) {
	if f.UserID != "" {
		q.and("user_id = " + q.arg(f.UserID))
	}
	if f.Role != "" {
		q.and("user_id IN (SELECT id FROM users WHERE role = " + q.arg(string(f.Role)) + ")")
	}
	if f.Period != nil {
		q.and("month = " + q.arg(int(f.Period.Month)))
		q.and("year = " + q.arg(f.Period.Year))
	}
}

// CreateBudget relies on the UNIQUE (user_id, category, month, year) key, so
// concurrent creations of the same budget cannot both succeed.
func (s *Store) CreateBudget(ctx context.Context, b *core.Budget) error {
	now := s.stamp()
	q := s.query()
	stmt := fmt.Sprintf(
		"INSERT INTO budgets (user_id, category, planned_amount_cents, month, year, created_at) VALUES (%s, %s, %s, %s, %s, %s) RETURNING id",
		q.arg(b.UserID), q.arg(b.Category), q.arg(core.ToCents(b.PlannedAmount)), q.arg(b.Month), q.arg(b.Year), q.arg(s.d.timeArg(now)),
	)
	if err := s.db.QueryRowContext(ctx, stmt, q.args...).Scan(&b.ID); err != nil {
		if s.d.isUniqueViolation(err) {
			return core.NewBudgetConflict()
		}
		return fmt.Errorf("insert budget: %w", err)
	}
	b.CreatedAt = now
	b.UpdatedAt = nil
	return nil
}

func (s *Store) GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error) {
	q := s.query()
	stmt := "SELECT " + budgetColumns + " FROM budgets WHERE id = " + q.arg(id) + " AND user_id = " + q.arg(userID)
	b, err := scanBudget(s.db.QueryRowContext(ctx, stmt, q.args...))
	if err != nil {
		return core.Budget{}, fmt.Errorf("get budget %d: %w", id, notFound(err))
	}
	return b, nil
}

func (s *Store) UpdateBudget(ctx context.Context, b *core.Budget) error {
	now := s.stamp()
	q := s.query()
	stmt := fmt.Sprintf(
		"UPDATE budgets SET category = %s, planned_amount_cents = %s, month = %s, year = %s, updated_at = %s WHERE id = %s AND user_id = %s",
		q.arg(b.Category), q.arg(core.ToCents(b.PlannedAmount)), q.arg(b.Month), q.arg(b.Year), q.arg(s.d.timeArg(now)),
		q.arg(b.ID), q.arg(b.UserID),
	)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		if s.d.isUniqueViolation(err) {
			return core.NewBudgetConflict()
		}
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("update budget %d: %w", b.ID, err)
	}
	b.UpdatedAt = &now
	return nil
}

func (s *Store) DeleteBudget(ctx context.Context, userID string, id int64) error {
	q := s.query()
	stmt := "DELETE FROM budgets WHERE id = " + q.arg(id) + " AND user_id = " + q.arg(userID)
	res, err := s.db.ExecContext(ctx, stmt, q.args...)
	if err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	if err := affected(res); err != nil {
		return fmt.Errorf("delete budget %d: %w", id, err)
	}
	return nil
}

func (s *Store) ListBudgets(ctx context.Context, f ledger.BudgetFilter) ([]core.Budget, error) {
	q := s.query()
	s.budgetWhere(q, f)
	stmt := "SELECT " + budgetColumns + " FROM budgets" + q.clause() + " ORDER BY year, month, category"
	rows, err := s.db.QueryContext(ctx, stmt, q.args...)
	if err != nil {
		return nil, fmt.Errorf("list budgets: %w", err)
	}
	defer rows.Close()
	return collect(rows, scanBudget)
}

func (s *Store) CountBudgets(ctx context.Context, f ledger.BudgetFilter) (int, error) {
	q := s.query()
	s.budgetWhere(q, f)
	var n int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM budgets"+q.clause(), q.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count budgets: %w", err)
	}
	return n, nil
}
