package services

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

type Analytics struct {
	Period    core.Period `json:"period"`
	MonthName string      `json:"month_name"`

	CurrentIncome  decimal.Decimal `json:"current_income"`
	CurrentExpense decimal.Decimal `json:"current_expense"`
	LastIncome     decimal.Decimal `json:"last_income"`
	LastExpense    decimal.Decimal `json:"last_expense"`
	SavingsRate    float64         `json:"savings_rate"`
	IncomeChange   float64         `json:"income_change"`
	ExpenseChange  float64         `json:"expense_change"`

	AverageDailyIncome  decimal.Decimal `json:"average_daily_income"`
	AverageDailyExpense decimal.Decimal `json:"average_daily_expense"`

	TotalBudget       decimal.Decimal     `json:"total_budget"`
	BudgetUtilization float64             `json:"budget_utilization"`
	OnTrackCount      int                 `json:"on_track_count"`
	OverspentCount    int                 `json:"overspent_count"`
	Budgets           []core.BudgetStatus `json:"budgets"`

	DailyTrends       []core.DailyTrendPoint   `json:"daily_trends"`
	MonthlyTrends     []core.MonthlyTrendPoint `json:"monthly_trends"`
	CategoryBreakdown []core.CategoryBreakdown `json:"category_breakdown"`
	CategoryTrends    []core.CategoryTrend     `json:"category_trends"`
	Insights          []core.Insight           `json:"insights"`
}

type AnalyticsService struct {
	clock
	store  ledger.Store
	cache  userCache[Analytics]
	loc    core.Locale
	logger *applog.Logger
}

// NewAnalyticsService builds the service. lru may be nil to disable caching.
func NewAnalyticsService(store ledger.Store, lru *cache.LRUCache[Analytics], loc core.Locale, logger *applog.Logger) *AnalyticsService {
	if logger == nil {
		logger = applog.Nop()
	}
	logger = logger.WithComponent(applog.ComponentAnalytics)
	return &AnalyticsService{
		clock:  clock{now: time.Now},
		store:  store,
		cache:  newUserCache(lru, logger),
		loc:    loc,
		logger: logger,
	}
}

func (s *AnalyticsService) WithClock(now func() time.Time) *AnalyticsService {
	s.now = now
	return s
}

func (s *AnalyticsService) InvalidateUser(userID string) { s.cache.InvalidateUser(userID) }

// Analytics returns the current month analysis for userID.
func (s *AnalyticsService) Analytics(ctx context.Context, userID string) (Analytics, error) {
	today := s.today()
	return s.cache.load(userID, today.Period(), func() (Analytics, error) {
		return s.build(ctx, userID, today)
	})
}

func (s *AnalyticsService) build(ctx context.Context, userID string, today core.Date) (Analytics, error) {
	current := today.Period()
	months := analytics.MonthWindow(today, analytics.TrendWidth)
	window := &ledger.Range{From: core.DateOf(months[0].Start()), To: core.DateOf(current.End())}

	var (
		incomes  []core.Income
		expenses []core.Expense
		budgets  []core.Budget
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
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to load analytics", applog.FieldError, err, applog.FieldUserID, userID)
		return Analytics{}, fmt.Errorf("load analytics: %w", err)
	}
	return Compute(incomes, expenses, budgets, today, s.loc), nil
}

// Compute assembles the analytics payload from one user's records covering
// at least the trend window ending at today's month.
func Compute(incomes []core.Income, expenses []core.Expense, budgets []core.Budget, today core.Date, loc core.Locale) Analytics {
	current := today.Period()
	last := current.Prev()

	a := Analytics{
		Period:         current,
		MonthName:      loc.MonthName(current.Month),
		CurrentIncome:  analytics.SumInRange(incomes, "", &current),
		CurrentExpense: analytics.SumInRange(expenses, "", &current),
		LastIncome:     analytics.SumInRange(incomes, "", &last),
		LastExpense:    analytics.SumInRange(expenses, "", &last),
		TotalBudget:    decimal.Zero,
	}
	a.SavingsRate = analytics.SavingsRate(a.CurrentIncome, a.CurrentExpense)
	a.IncomeChange = analytics.GrowthRate(a.CurrentIncome, a.LastIncome)
	a.ExpenseChange = analytics.GrowthRate(a.CurrentExpense, a.LastExpense)

	days := decimal.NewFromInt(int64(today.Day()))
	a.AverageDailyIncome = core.RoundAmount(a.CurrentIncome.Div(days))
	a.AverageDailyExpense = core.RoundAmount(a.CurrentExpense.Div(days))

	currentBudgets := make([]core.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.Period() == current {
			currentBudgets = append(currentBudgets, b)
			a.TotalBudget = a.TotalBudget.Add(b.PlannedAmount)
		}
	}
	a.Budgets = analytics.BudgetStatuses(currentBudgets, expenses)
	a.BudgetUtilization = core.Percent(a.CurrentExpense, a.TotalBudget)
	a.OverspentCount, a.OnTrackCount = analytics.CountBudgetStatuses(a.Budgets)

	a.DailyTrends = analytics.DailyTrend(incomes, expenses, "", current, today)
	a.MonthlyTrends = analytics.MonthlyTrend(incomes, expenses, "", today, loc)

	currentGroups := analytics.GroupByCategory(expenses, "", &current)
	a.CategoryBreakdown = analytics.Top(analytics.Breakdown(currentGroups), analytics.TopCategories)
	a.CategoryTrends = analytics.Top(
		analytics.CategoryTrends(currentGroups, analytics.GroupByCategory(expenses, "", &last)),
		analytics.TopCategoryTrends)

	a.Insights = analytics.GenerateInsights(analytics.InsightInput{
		Income:          a.CurrentIncome,
		Expense:         a.CurrentExpense,
		PreviousIncome:  a.LastIncome,
		PreviousExpense: a.LastExpense,
		OverspentCount:  a.OverspentCount,
		OnTrackCount:    a.OnTrackCount,
		Daily:           a.DailyTrends,
	})
	return a
}
