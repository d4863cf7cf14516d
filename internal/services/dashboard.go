package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// RecentPerKind is how many newest incomes and expenses feed the recent list.
const (
	RecentPerKind = 5
	RecentLimit   = 10
)

type Dashboard struct {
	Period    core.Period `json:"period"`
	MonthName string      `json:"month_name"`

	CurrentIncome  decimal.Decimal `json:"current_income"`
	CurrentExpense decimal.Decimal `json:"current_expense"`
	LastIncome     decimal.Decimal `json:"last_income"`
	LastExpense    decimal.Decimal `json:"last_expense"`
	IncomeChange   float64         `json:"income_change"`
	ExpenseChange  float64         `json:"expense_change"`
	Balance        decimal.Decimal `json:"balance"`

	TotalBudget          decimal.Decimal `json:"total_budget"`
	BudgetUsed           decimal.Decimal `json:"budget_used"`
	BudgetUsedPercentage float64         `json:"budget_used_percentage"`

	TransactionCount int                `json:"transaction_count"`
	CategoriesUsed   int                `json:"categories_used"`
	Recent           []core.Transaction `json:"recent_transactions"`
}

type DashboardService struct {
	clock
	store  ledger.Store
	cache  userCache[Dashboard]
	loc    core.Locale
	logger *applog.Logger
}

// NewDashboardService builds the service. lru may be nil to disable caching.
func NewDashboardService(store ledger.Store, lru *cache.LRUCache[Dashboard], loc core.Locale, logger *applog.Logger) *DashboardService {
	if logger == nil {
		logger = applog.Nop()
	}
	logger = logger.WithComponent(applog.ComponentAnalytics)
	return &DashboardService{
		clock:  clock{now: time.Now},
		store:  store,
		cache:  newUserCache(lru, logger),
		loc:    loc,
		logger: logger,
	}
}

func (s *DashboardService) WithClock(now func() time.Time) *DashboardService {
	s.now = now
	return s
}

func (s *DashboardService) InvalidateUser(userID string) { s.cache.InvalidateUser(userID) }

// Dashboard returns the current month overview for userID.
func (s *DashboardService) Dashboard(ctx context.Context, userID string) (Dashboard, error) {
	today := s.today()
	return s.cache.load(userID, today.Period(), func() (Dashboard, error) {
		return s.build(ctx, userID, today)
	})
}

func (s *DashboardService) build(ctx context.Context, userID string, today core.Date) (Dashboard, error) {
	current := today.Period()
	last := current.Prev()
	window := &ledger.Range{From: core.DateOf(last.Start()), To: core.DateOf(current.End())}

	var (
		incomes        []core.Income
		expenses       []core.Expense
		budgets        []core.Budget
		recentIncomes  []core.Income
		recentExpenses []core.Expense
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		incomes, err = s.store.ListIncomes(gctx, ledger.Filter{UserID: userID, Range: window})
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx, ledger.Filter{UserID: userID, Range: window})
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.store.ListBudgets(gctx, ledger.BudgetFilter{UserID: userID, Period: &current})
		return err
	})
	g.Go(func() (err error) {
		recentIncomes, err = s.store.ListIncomes(gctx, ledger.Filter{UserID: userID, Limit: RecentPerKind})
		return err
	})
	g.Go(func() (err error) {
		recentExpenses, err = s.store.ListExpenses(gctx, ledger.Filter{UserID: userID, Limit: RecentPerKind})
		return err
	})
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load dashboard", applog.FieldError, err, applog.FieldUserID, userID)
		return Dashboard{}, fmt.Errorf("load dashboard: %w", err)
	}

	d := Dashboard{
		Period:         current,
		MonthName:      s.loc.MonthName(current.Month),
		CurrentIncome:  analytics.SumInRange(incomes, "", &current),
		CurrentExpense: analytics.SumInRange(expenses, "", &current),
		LastIncome:     analytics.SumInRange(incomes, "", &last),
		LastExpense:    analytics.SumInRange(expenses, "", &last),
		TotalBudget:    decimal.Zero,
		Recent:         MergeRecent(recentIncomes, recentExpenses, RecentLimit),
	}
	d.IncomeChange = analytics.GrowthRate(d.CurrentIncome, d.LastIncome)
	d.ExpenseChange = analytics.GrowthRate(d.CurrentExpense, d.LastExpense)
	d.Balance = d.CurrentIncome.Sub(d.CurrentExpense)
	for _, b := range budgets {
		d.TotalBudget = d.TotalBudget.Add(b.PlannedAmount)
	}
	d.BudgetUsed = d.CurrentExpense
	d.BudgetUsedPercentage = core.Percent(d.BudgetUsed, d.TotalBudget)
	d.TransactionCount = analytics.CountInRange(incomes, "", &current) + analytics.CountInRange(expenses, "", &current)
	d.CategoriesUsed = len(analytics.GroupByCategory(expenses, "", &current))
	return d, nil
}

// MergeRecent flattens incomes and expenses into one list, newest date
// first (then newest creation), capped at limit.
func MergeRecent(incomes []core.Income, expenses []core.Expense, limit int) []core.Transaction {
	out := make([]core.Transaction, 0, len(incomes)+len(expenses))
	for _, in := range incomes {
		out = append(out, core.IncomeTransaction(in))
	}
	for _, e := range expenses {
		out = append(out, core.ExpenseTransaction(e))
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date.Time) {
			return out[i].Date.After(out[j].Date.Time)
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return analytics.Top(out, limit)
}
