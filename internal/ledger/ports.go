// Package ledger defines the store the services read and write through.
//
// Every query takes an explicit owner id. An empty UserID is only used by
// the admin views and means "every user" (optionally narrowed by Role).
package ledger

import (
	"context"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

type (
	// Range is a half-open date interval [From, To).
	Range struct {
		From core.Date
		To   core.Date
	}

	// Filter selects income or expense rows.
	Filter struct {
		UserID   string
		Role     core.Role // owners with this role only, when set
		Range    *Range
		Category string // expenses only
		Limit    int    // newest first; 0 means no limit
	}

	BudgetFilter struct {
		UserID string
		Role   core.Role
		Period *core.Period
	}

	UserFilter struct {
		Role    core.Role
		Search  string // case-insensitive match on first name, last name or email
		Active  *bool
		Created *Range
		Limit   int // newest first; 0 means no limit
	}

	// Group is one group-by row.
	Group struct {
		Key   string
		Total decimal.Decimal
		Count int
	}
)

// MonthRange covers one calendar month.
func MonthRange(p core.Period) *Range {
	return &Range{From: core.DateOf(p.Start()), To: core.DateOf(p.End())}
}

// YearRange covers one calendar year.
func YearRange(year int) *Range {
	return &Range{From: core.NewDate(year, time.January, 1), To: core.NewDate(year+1, time.January, 1)}
}

// Contains reports whether d lies in the range. A nil range contains every date.
func (r *Range) Contains(d core.Date) bool {
	if r == nil {
		return true
	}
	return !d.Before(r.From.Time) && d.Before(r.To.Time)
}

// Ports for the ledger store.
type (
	IncomeStore interface {
		// CreateIncome inserts in and sets its ID and CreatedAt.
		CreateIncome(ctx context.Context, in *core.Income) error
		GetIncome(ctx context.Context, userID string, id int64) (core.Income, error)
		// UpdateIncome rewrites the row owned by in.UserID and stamps UpdatedAt.
		UpdateIncome(ctx context.Context, in *core.Income) error
		DeleteIncome(ctx context.Context, userID string, id int64) error
		ListIncomes(ctx context.Context, f Filter) ([]core.Income, error)
		SumIncomes(ctx context.Context, f Filter) (core.Totals, error)
		// IncomesByTitle groups incomes by title, largest total first.
		IncomesByTitle(ctx context.Context, f Filter) ([]Group, error)
		// IncomesByUser groups incomes by owner id, largest total first.
		IncomesByUser(ctx context.Context, f Filter) ([]Group, error)
	}

	ExpenseStore interface {
		CreateExpense(ctx context.Context, e *core.Expense) error
		GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error)
		UpdateExpense(ctx context.Context, e *core.Expense) error
		DeleteExpense(ctx context.Context, userID string, id int64) error
		ListExpenses(ctx context.Context, f Filter) ([]core.Expense, error)
		SumExpenses(ctx context.Context, f Filter) (core.Totals, error)
		// ExpensesByCategory groups expenses by category, largest total first.
		ExpensesByCategory(ctx context.Context, f Filter) ([]Group, error)
		ExpensesByUser(ctx context.Context, f Filter) ([]Group, error)
		// ExpenseCategories lists the distinct categories a user has used, sorted.
		ExpenseCategories(ctx context.Context, userID string) ([]string, error)
	}

	BudgetStore interface {
		// CreateBudget fails with a *core.ConflictError when the
		// (user, category, month, year) key is taken.
		CreateBudget(ctx context.Context, b *core.Budget) error
		GetBudget(ctx context.Context, userID string, id int64) (core.Budget, error)
		UpdateBudget(ctx context.Context, b *core.Budget) error
		DeleteBudget(ctx context.Context, userID string, id int64) error
		// ListBudgets orders by year, month and category.
		ListBudgets(ctx context.Context, f BudgetFilter) ([]core.Budget, error)
		CountBudgets(ctx context.Context, f BudgetFilter) (int, error)
	}

	UserStore interface {
		// CreateUser assigns an id when empty. Duplicate emails fail with ErrConflict.
		CreateUser(ctx context.Context, u *core.User) error
		GetUser(ctx context.Context, id string) (core.User, error)
		GetUserByEmail(ctx context.Context, email string) (core.User, error)
		ListUsers(ctx context.Context, f UserFilter) ([]core.User, error)
		CountUsers(ctx context.Context, f UserFilter) (int, error)
		SetUserActive(ctx context.Context, id string, active bool) error
	}

	// Store is the full ledger backend.
	Store interface {
		IncomeStore
		ExpenseStore
		BudgetStore
		UserStore

		// EntryYears returns the distinct years of a user's incomes and
		// expenses, most recent first.
		EntryYears(ctx context.Context, userID string) ([]int, error)
		Ping(ctx context.Context) error
		Close() error
	}
)
