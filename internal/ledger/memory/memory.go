// Package memory is an in-process ledger store for development and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

type Store struct {
	mu       sync.Mutex
	now      func() time.Time
	nextID   int64
	incomes  []core.Income
	expenses []core.Expense
	budgets  []core.Budget
	users    []core.User
}

var _ ledger.Store = (*Store)(nil)

func New() *Store {
	return &Store{now: time.Now}
}

// WithClock sets the timestamp source used for created/updated stamps.
func (s *Store) WithClock(now func() time.Time) *Store {
	s.now = now
	return s
}

func (s *Store) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *Store) roleOf(userID string) core.Role {
	for _, u := range s.users {
		if u.ID == userID {
			return u.Role
		}
	}
	return ""
}

func (s *Store) owned(userID string, role core.Role, owner string) bool {
	if userID != "" && owner != userID {
		return false
	}
	return role == "" || s.roleOf(owner) == role
}

func (s *Store) entryMatches(f ledger.Filter, owner string, d core.Date) bool {
	return s.owned(f.UserID, f.Role, owner) && f.Range.Contains(d)
}

// newestFirst orders by date desc then created_at desc.
func newestFirst(da, db core.Date, ca, cb time.Time) bool {
	if !da.Equal(db.Time) {
		return da.After(db.Time)
	}
	return ca.After(cb)
}

func limit[T any](s []T, n int) []T {
	if n > 0 && len(s) > n {
		return s[:n]
	}
	return s
}

func sortGroups(groups []ledger.Group) []ledger.Group {
	sort.SliceStable(groups, func(i, j int) bool {
		if c := groups[i].Total.Cmp(groups[j].Total); c != 0 {
			return c > 0
		}
		return groups[i].Key < groups[j].Key
	})
	return groups
}

type grouper struct {
	idx    map[string]int
	groups []ledger.Group
}

func (g *grouper) add(key string, amount decimal.Decimal) {
	if g.idx == nil {
		g.idx = map[string]int{}
	}
	i, ok := g.idx[key]
	if !ok {
		i = len(g.groups)
		g.idx[key] = i
		g.groups = append(g.groups, ledger.Group{Key: key, Total: decimal.Zero})
	}
	g.groups[i].Total = g.groups[i].Total.Add(amount)
	g.groups[i].Count++
}

func (g *grouper) result() []ledger.Group {
	if g.groups == nil {
		return []ledger.Group{}
	}
	return sortGroups(g.groups)
}

// Incomes

func (s *Store) CreateIncome(_ context.Context, in *core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	in.ID = s.id()
	in.CreatedAt = s.now().UTC()
	in.UpdatedAt = nil
	s.incomes = append(s.incomes, *in)
	return nil
}

func (s *Store) GetIncome(_ context.Context, userID string, id int64) (core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, in := range s.incomes {
		if in.ID == id && in.UserID == userID {
			return in, nil
		}
	}
	return core.Income{}, core.ErrNotFound
}

func (s *Store) UpdateIncome(_ context.Context, in *core.Income) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.incomes {
		if cur.ID == in.ID && cur.UserID == in.UserID {
			now := s.now().UTC()
			in.CreatedAt = cur.CreatedAt
			in.UpdatedAt = &now
			s.incomes[i] = *in
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteIncome(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.incomes {
		if cur.ID == id && cur.UserID == userID {
			s.incomes = append(s.incomes[:i], s.incomes[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListIncomes(_ context.Context, f ledger.Filter) ([]core.Income, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Income{}
	for _, in := range s.incomes {
		if s.entryMatches(f, in.UserID, in.Date) {
			out = append(out, in)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newestFirst(out[i].Date, out[j].Date, out[i].CreatedAt, out[j].CreatedAt)
	})
	return limit(out, f.Limit), nil
}

func (s *Store) SumIncomes(ctx context.Context, f ledger.Filter) (core.Totals, error) {
	f.Limit = 0
	rows, _ := s.ListIncomes(ctx, f)
	t := core.Totals{Amount: decimal.Zero, Count: len(rows)}
	for _, r := range rows {
		t.Amount = t.Amount.Add(r.Amount)
	}
	return t, nil
}

func (s *Store) IncomesByTitle(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	f.Limit = 0
	rows, _ := s.ListIncomes(ctx, f)
	var g grouper
	for _, r := range rows {
		g.add(r.Title, r.Amount)
	}
	return g.result(), nil
}

func (s *Store) IncomesByUser(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	f.Limit = 0
	rows, _ := s.ListIncomes(ctx, f)
	var g grouper
	for _, r := range rows {
		g.add(r.UserID, r.Amount)
	}
	return g.result(), nil
}

// Expenses

func (s *Store) CreateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e.ID = s.id()
	e.CreatedAt = s.now().UTC()
	e.UpdatedAt = nil
	s.expenses = append(s.expenses, *e)
	return nil
}

func (s *Store) GetExpense(_ context.Context, userID string, id int64) (core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.expenses {
		if e.ID == id && e.UserID == userID {
			return e, nil
		}
	}
	return core.Expense{}, core.ErrNotFound
}

func (s *Store) UpdateExpense(_ context.Context, e *core.Expense) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.expenses {
		if cur.ID == e.ID && cur.UserID == e.UserID {
			now := s.now().UTC()
			e.CreatedAt = cur.CreatedAt
			e.UpdatedAt = &now
			s.expenses[i] = *e
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteExpense(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.expenses {
		if cur.ID == id && cur.UserID == userID {
			s.expenses = append(s.expenses[:i], s.expenses[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) ListExpenses(_ context.Context, f ledger.Filter) ([]core.Expense, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []core.Expense{}
	for _, e := range s.expenses {
		if s.entryMatches(f, e.UserID, e.Date) && (f.Category == "" || e.Category == f.Category) {
			out = append(out, e)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newestFirst(out[i].Date, out[j].Date, out[i].CreatedAt, out[j].CreatedAt)
	})
	return limit(out, f.Limit), nil
}

func (s *Store) SumExpenses(ctx context.Context, f ledger.Filter) (core.Totals, error) {
	f.Limit = 0
	rows, _ := s.ListExpenses(ctx, f)
	t := core.Totals{Amount: decimal.Zero, Count: len(rows)}
	for _, r := range rows {
		t.Amount = t.Amount.Add(r.Amount)
	}
	return t, nil
}

func (s *Store) ExpensesByCategory(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	f.Limit = 0
	rows, _ := s.ListExpenses(ctx, f)
	var g grouper
	for _, r := range rows {
		g.add(r.Category, r.Amount)
	}
	return g.result(), nil
}

func (s *Store) ExpensesByUser(ctx context.Context, f ledger.Filter) ([]ledger.Group, error) {
	f.Limit = 0
	rows, _ := s.ListExpenses(ctx, f)
	var g grouper
	for _, r := range rows {
		g.add(r.UserID, r.Amount)
	}
	return g.result(), nil
}

func (s *Store) ExpenseCategories(_ context.Context, userID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[string]bool{}
	out := []string{}
	for _, e := range s.expenses {
		if e.UserID == userID && !seen[e.Category] {
			seen[e.Category] = true
			out = append(out, e.Category)
		}
	}
	sort.Strings(out)
	return out, nil
}

// Budgets

func (s *Store) budgetTaken(b *core.Budget) bool {
	for _, cur := range s.budgets {
		if cur.ID != b.ID && cur.UserID == b.UserID && cur.Category == b.Category &&
			cur.Month == b.Month && cur.Year == b.Year {
			return true
		}
	}
	return false
}

func (s *Store) CreateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	b.ID = 0
	if s.budgetTaken(b) {
		return core.NewBudgetConflict()
	}
	b.ID = s.id()
	b.CreatedAt = s.now().UTC()
	b.UpdatedAt = nil
	s.budgets = append(s.budgets, *b)
	return nil
}

func (s *Store) GetBudget(_ context.Context, userID string, id int64) (core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, b := range s.budgets {
		if b.ID == id && b.UserID == userID {
			return b, nil
		}
	}
	return core.Budget{}, core.ErrNotFound
}

func (s *Store) UpdateBudget(_ context.Context, b *core.Budget) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.budgets {
		if cur.ID == b.ID && cur.UserID == b.UserID {
			if s.budgetTaken(b) {
				return core.NewBudgetConflict()
			}
			now := s.now().UTC()
			b.CreatedAt = cur.CreatedAt
			b.UpdatedAt = &now
			s.budgets[i] = *b
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) DeleteBudget(_ context.Context, userID string, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, cur := range s.budgets {
		if cur.ID == id && cur.UserID == userID {
			s.budgets = append(s.budgets[:i], s.budgets[i+1:]...)
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) listBudgets(f ledger.BudgetFilter) []core.Budget {
	out := []core.Budget{}
	for _, b := range s.budgets {
		if !s.owned(f.UserID, f.Role, b.UserID) {
			continue
		}
		if f.Period != nil && b.Period() != *f.Period {
			continue
		}
		out = append(out, b)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Year != out[j].Year {
			return out[i].Year < out[j].Year
		}
		if out[i].Month != out[j].Month {
			return out[i].Month < out[j].Month
		}
		return out[i].Category < out[j].Category
	})
	return out
}

func (s *Store) ListBudgets(_ context.Context, f ledger.BudgetFilter) ([]core.Budget, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.listBudgets(f), nil
}

func (s *Store) CountBudgets(_ context.Context, f ledger.BudgetFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listBudgets(f)), nil
}

// Users

func (s *Store) CreateUser(_ context.Context, u *core.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.Email = strings.ToLower(strings.TrimSpace(u.Email))
	for _, cur := range s.users {
		if cur.Email == u.Email {
			return &core.ConflictError{Field: "email", Message: "Email is already registered"}
		}
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = s.now().UTC()
	}
	s.users = append(s.users, *u)
	return nil
}

func (s *Store) GetUser(_ context.Context, id string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.ID == id {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) GetUserByEmail(_ context.Context, email string) (core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u, nil
		}
	}
	return core.User{}, core.ErrNotFound
}

func (s *Store) listUsers(f ledger.UserFilter) []core.User {
	search := strings.ToLower(strings.TrimSpace(f.Search))
	out := []core.User{}
	for _, u := range s.users {
		if f.Role != "" && u.Role != f.Role {
			continue
		}
		if f.Active != nil && u.Active != *f.Active {
			continue
		}
		if f.Created != nil && !f.Created.Contains(core.DateOf(u.CreatedAt)) {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(u.FirstName), search) &&
			!strings.Contains(strings.ToLower(u.LastName), search) &&
			!strings.Contains(u.Email, search) {
			continue
		}
		out = append(out, u)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (s *Store) ListUsers(_ context.Context, f ledger.UserFilter) ([]core.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return limit(s.listUsers(f), f.Limit), nil
}

func (s *Store) CountUsers(_ context.Context, f ledger.UserFilter) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.listUsers(f)), nil
}

func (s *Store) SetUserActive(_ context.Context, id string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i := range s.users {
		if s.users[i].ID == id {
			s.users[i].Active = active
			return nil
		}
	}
	return core.ErrNotFound
}

func (s *Store) EntryYears(_ context.Context, userID string) ([]int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	seen := map[int]bool{}
	for _, in := range s.incomes {
		if in.UserID == userID {
			seen[in.Date.Year()] = true
		}
	}
	for _, e := range s.expenses {
		if e.UserID == userID {
			seen[e.Date.Year()] = true
		}
	}
	out := make([]int, 0, len(seen))
	for y := range seen {
		out = append(out, y)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(out)))
	return out, nil
}

func (s *Store) Ping(context.Context) error { return nil }
func (s *Store) Close() error               { return nil }
