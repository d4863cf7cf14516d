package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	adminTopUsers    = 5
	adminRecentUsers = 5
	adminRecentTx    = 10
)

type (
	// UserTotal ranks one user by an amount or a transaction count.
	UserTotal struct {
		UserID string          `json:"user_id"`
		Name   string          `json:"name"`
		Email  string          `json:"email"`
		Total  decimal.Decimal `json:"total"`
		Count  int             `json:"count"`
	}

	AdminDashboard struct {
		TotalUsers        int `json:"total_users"`
		ActiveUsers       int `json:"active_users"`
		InactiveUsers     int `json:"inactive_users"`
		NewUsersThisMonth int `json:"new_users_this_month"`

		SystemIncome      decimal.Decimal `json:"system_income"`
		SystemExpense     decimal.Decimal `json:"system_expense"`
		TotalTransactions int             `json:"total_transactions"`
		TotalBudgets      int             `json:"total_budgets"`

		RecentUsers []core.User `json:"recent_users"`
		TopUsers    []UserTotal `json:"top_users"`
	}

	AdminAnalytics struct {
		Period core.Period `json:"period"`

		TotalUsers        int     `json:"total_users"`
		NewUsersThisMonth int     `json:"new_users_this_month"`
		NewUsersLastMonth int     `json:"new_users_last_month"`
		UserGrowthRate    float64 `json:"user_growth_rate"`

		SystemIncome   decimal.Decimal `json:"system_income"`
		SystemExpense  decimal.Decimal `json:"system_expense"`
		CurrentIncome  decimal.Decimal `json:"current_income"`
		CurrentExpense decimal.Decimal `json:"current_expense"`
		LastIncome     decimal.Decimal `json:"last_income"`
		LastExpense    decimal.Decimal `json:"last_expense"`

		CategoryBreakdown []core.CategoryBreakdown `json:"category_breakdown"`
		TopIncomeUsers    []UserTotal              `json:"top_income_users"`
		TopExpenseUsers   []UserTotal              `json:"top_expense_users"`
		MonthlyTrends     []core.MonthlyTrendPoint `json:"monthly_trends"`
	}

	// UserQuery filters the admin user list. Status is "", "active" or "inactive".
	UserQuery struct {
		Search string
		Status string
	}

	UserSummary struct {
		User         core.User       `json:"user"`
		TotalIncome  decimal.Decimal `json:"total_income"`
		TotalExpense decimal.Decimal `json:"total_expense"`
		IncomeCount  int             `json:"income_count"`
		ExpenseCount int             `json:"expense_count"`
	}

	UserDetails struct {
		User         core.User          `json:"user"`
		TotalIncome  core.Totals        `json:"total_income"`
		TotalExpense core.Totals        `json:"total_expense"`
		Balance      decimal.Decimal    `json:"balance"`
		MonthIncome  core.Totals        `json:"month_income"`
		MonthExpense core.Totals        `json:"month_expense"`
		BudgetCount  int                `json:"budget_count"`
		Recent       []core.Transaction `json:"recent_transactions"`
	}
)

// AdminService serves the system-wide views. Only accounts with role User
// are counted, listed or managed.
type AdminService struct {
	clock
	store  ledger.Store
	loc    core.Locale
	logger *applog.Logger
}

func NewAdminService(store ledger.Store, loc core.Locale, logger *applog.Logger) *AdminService {
	if logger == nil {
		logger = applog.Nop()
	}
	return &AdminService{
		clock:  clock{now: time.Now},
		store:  store,
		loc:    loc,
		logger: logger.WithComponent(applog.ComponentAdmin),
	}
}

func (s *AdminService) WithClock(now func() time.Time) *AdminService {
	s.now = now
	return s
}

var (
	activeTrue  = true
	activeFalse = false
)

func (s *AdminService) Dashboard(ctx context.Context) (AdminDashboard, error) {
	current := s.today().Period()
	all := ledger.Filter{Role: core.RoleUser}
	var (
		d                   AdminDashboard
		income, expense     core.Totals
		incomeBy, expenseBy []ledger.Group
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalUsers, err = s.store.CountUsers(gctx, ledger.UserFilter{Role: core.RoleUser})
		return err
	})
	g.Go(func() (err error) {
		d.ActiveUsers, err = s.store.CountUsers(gctx, ledger.UserFilter{Role: core.RoleUser, Active: &activeTrue})
		return err
	})
	g.Go(func() (err error) {
		d.InactiveUsers, err = s.store.CountUsers(gctx, ledger.UserFilter{Role: core.RoleUser, Active: &activeFalse})
		return err
	})
	g.Go(func() (err error) {
		d.NewUsersThisMonth, err = s.store.CountUsers(gctx, ledger.UserFilter{Role: core.RoleUser, Created: ledger.MonthRange(current)})
		return err
	})
	g.Go(func() (err error) {
		income, err = s.store.SumIncomes(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		expense, err = s.store.SumExpenses(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		d.TotalBudgets, err = s.store.CountBudgets(gctx, ledger.BudgetFilter{Role: core.RoleUser})
		return err
	})
	g.Go(func() (err error) {
		d.RecentUsers, err = s.store.ListUsers(gctx, ledger.UserFilter{Role: core.RoleUser, Limit: adminRecentUsers})
		return err
	})
	g.Go(func() (err error) {
		incomeBy, err = s.store.IncomesByUser(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		expenseBy, err = s.store.ExpensesByUser(gctx, all)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load admin dashboard", applog.FieldError, err)
		return AdminDashboard{}, fmt.Errorf("admin dashboard: %w", err)
	}

	d.SystemIncome, d.SystemExpense = income.Amount, expense.Amount
	d.TotalTransactions = income.Count + expense.Count

	byCount := mergeCounts(incomeBy, expenseBy)
	top, err := s.withUsers(ctx, analytics.Top(byCount, adminTopUsers))
	if err != nil {
		return AdminDashboard{}, err
	}
	d.TopUsers = top
	return d, nil
}

// mergeCounts adds income and expense groups per user and ranks them by
// transaction count, then by user id.
func mergeCounts(a, b []ledger.Group) []UserTotal {
	idx := map[string]int{}
	out := []UserTotal{}
	for _, gr := range append(append([]ledger.Group{}, a...), b...) {
		i, ok := idx[gr.Key]
		if !ok {
			i = len(out)
			idx[gr.Key] = i
			out = append(out, UserTotal{UserID: gr.Key, Total: decimal.Zero})
		}
		out[i].Count += gr.Count
		out[i].Total = out[i].Total.Add(gr.Total)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].UserID < out[j].UserID
	})
	return out
}

func groupTotals(groups []ledger.Group) []UserTotal {
	out := make([]UserTotal, 0, len(groups))
	for _, gr := range groups {
		out = append(out, UserTotal{UserID: gr.Key, Total: gr.Total, Count: gr.Count})
	}
	return out
}

// withUsers fills name and email of each ranked user.
func (s *AdminService) withUsers(ctx context.Context, totals []UserTotal) ([]UserTotal, error) {
	for i := range totals {
		u, err := s.store.GetUser(ctx, totals[i].UserID)
		if errors.Is(err, core.ErrNotFound) {
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("load ranked user: %w", err)
		}
		totals[i].Name, totals[i].Email = u.FullName(), u.Email
	}
	return totals, nil
}

func (s *AdminService) Analytics(ctx context.Context) (AdminAnalytics, error) {
	today := s.today()
	current := today.Period()
	last := current.Prev()
	months := analytics.MonthWindow(today, analytics.TrendWidth)
	window := &ledger.Range{From: core.DateOf(months[0].Start()), To: core.DateOf(current.End())}
	all := ledger.Filter{Role: core.RoleUser}

	a := AdminAnalytics{Period: current}
	var (
		income, expense     core.Totals
		incomes             []core.Income
		expenses            []core.Expense
		newUsers            []core.User
		categories          []ledger.Group
		incomeBy, expenseBy []ledger.Group
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		a.TotalUsers, err = s.store.CountUsers(gctx, ledger.UserFilter{Role: core.RoleUser})
		return err
	})
	g.Go(func() (err error) {
		newUsers, err = s.store.ListUsers(gctx, ledger.UserFilter{Role: core.RoleUser, Created: window})
		return err
	})
	g.Go(func() (err error) {
		income, err = s.store.SumIncomes(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		expense, err = s.store.SumExpenses(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		incomes, err = s.store.ListIncomes(gctx, ledger.Filter{Role: core.RoleUser, Range: window})
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx, ledger.Filter{Role: core.RoleUser, Range: window})
		return err
	})
	g.Go(func() (err error) {
		categories, err = s.store.ExpensesByCategory(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		incomeBy, err = s.store.IncomesByUser(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		expenseBy, err = s.store.ExpensesByUser(gctx, all)
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load admin analytics", applog.FieldError, err)
		return AdminAnalytics{}, fmt.Errorf("admin analytics: %w", err)
	}

	created := map[core.Period]int{}
	for _, u := range newUsers {
		created[core.PeriodOf(u.CreatedAt)]++
	}
	a.NewUsersThisMonth, a.NewUsersLastMonth = created[current], created[last]
	a.UserGrowthRate = analytics.GrowthRate(decimal.NewFromInt(int64(a.NewUsersThisMonth)), decimal.NewFromInt(int64(a.NewUsersLastMonth)))

	a.SystemIncome, a.SystemExpense = income.Amount, expense.Amount
	a.CurrentIncome = analytics.SumInRange(incomes, "", &current)
	a.CurrentExpense = analytics.SumInRange(expenses, "", &current)
	a.LastIncome = analytics.SumInRange(incomes, "", &last)
	a.LastExpense = analytics.SumInRange(expenses, "", &last)

	totals := make([]core.CategoryTotal, 0, len(categories))
	for _, gr := range categories {
		totals = append(totals, core.CategoryTotal{Category: gr.Key, Total: gr.Total, Count: gr.Count})
	}
	a.CategoryBreakdown = analytics.Top(analytics.Breakdown(totals), analytics.TopCategories)

	var err error
	if a.TopIncomeUsers, err = s.withUsers(ctx, analytics.Top(groupTotals(incomeBy), adminTopUsers)); err != nil {
		return AdminAnalytics{}, err
	}
	if a.TopExpenseUsers, err = s.withUsers(ctx, analytics.Top(groupTotals(expenseBy), adminTopUsers)); err != nil {
		return AdminAnalytics{}, err
	}

	a.MonthlyTrends = analytics.MonthlyTrend(incomes, expenses, "", today, s.loc)
	for i := range a.MonthlyTrends {
		pt := &a.MonthlyTrends[i]
		pt.NewUsers = created[core.Period{Year: pt.Year, Month: pt.Month}]
	}
	return a, nil
}

// Users lists accounts newest first with their all-time totals.
func (s *AdminService) Users(ctx context.Context, q UserQuery) ([]UserSummary, error) {
	f := ledger.UserFilter{Role: core.RoleUser, Search: strings.TrimSpace(q.Search)}
	switch strings.ToLower(strings.TrimSpace(q.Status)) {
	case "":
	case "active":
		f.Active = &activeTrue
	case "inactive":
		f.Active = &activeFalse
	default:
		verr := &core.ValidationError{}
		verr.Add("status", "Status must be active or inactive")
		return nil, verr
	}

	var (
		users               []core.User
		incomeBy, expenseBy []ledger.Group
	)
	all := ledger.Filter{Role: core.RoleUser}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		users, err = s.store.ListUsers(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		incomeBy, err = s.store.IncomesByUser(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		expenseBy, err = s.store.ExpensesByUser(gctx, all)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}

	inc := indexGroups(incomeBy)
	exp := indexGroups(expenseBy)
	out := make([]UserSummary, 0, len(users))
	for _, u := range users {
		in, ex := inc[u.ID], exp[u.ID]
		out = append(out, UserSummary{
			User:         u,
			TotalIncome:  in.Total,
			TotalExpense: ex.Total,
			IncomeCount:  in.Count,
			ExpenseCount: ex.Count,
		})
	}
	return out, nil
}

func indexGroups(groups []ledger.Group) map[string]ledger.Group {
	out := make(map[string]ledger.Group, len(groups))
	for _, gr := range groups {
		out[gr.Key] = gr
	}
	return out
}

// managedUser loads a User-role account; admins are reported as not found.
func (s *AdminService) managedUser(ctx context.Context, id string) (core.User, error) {
	u, err := s.store.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	if u.Role != core.RoleUser {
		return core.User{}, core.ErrNotFound
	}
	return u, nil
}

func (s *AdminService) UserDetails(ctx context.Context, id string) (UserDetails, error) {
	u, err := s.managedUser(ctx, id)
	if err != nil {
		return UserDetails{}, err
	}
	current := s.today().Period()
	all := ledger.Filter{UserID: id}
	month := ledger.Filter{UserID: id, Range: ledger.MonthRange(current)}

	d := UserDetails{User: u}
	var (
		recentIncomes  []core.Income
		recentExpenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		d.TotalIncome, err = s.store.SumIncomes(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		d.TotalExpense, err = s.store.SumExpenses(gctx, all)
		return err
	})
	g.Go(func() (err error) {
		d.MonthIncome, err = s.store.SumIncomes(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		d.MonthExpense, err = s.store.SumExpenses(gctx, month)
		return err
	})
	g.Go(func() (err error) {
		d.BudgetCount, err = s.store.CountBudgets(gctx, ledger.BudgetFilter{UserID: id})
		return err
	})
	g.Go(func() (err error) {
		recentIncomes, err = s.store.ListIncomes(gctx, ledger.Filter{UserID: id, Limit: adminRecentTx})
		return err
	})
	g.Go(func() (err error) {
		recentExpenses, err = s.store.ListExpenses(gctx, ledger.Filter{UserID: id, Limit: adminRecentTx})
		return err
	})
	if err := g.Wait(); err != nil {
		return UserDetails{}, fmt.Errorf("user details: %w", err)
	}
	d.Balance = d.TotalIncome.Amount.Sub(d.TotalExpense.Amount)
	d.Recent = MergeRecent(recentIncomes, recentExpenses, adminRecentTx)
	return d, nil
}

// ToggleStatus flips the active flag of a User-role account.
func (s *AdminService) ToggleStatus(ctx context.Context, id string) (core.User, error) {
	u, err := s.managedUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}
	u.Active = !u.Active
	if err := s.store.SetUserActive(ctx, id, u.Active); err != nil {
		return core.User{}, fmt.Errorf("set user status: %w", err)
	}
	s.logger.InfoContext(ctx, "User status changed",
		applog.FieldOperation, applog.OpUpdate, applog.FieldUserID, id, "active", u.Active)
	return u, nil
}
