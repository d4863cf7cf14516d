package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"bilancio/internal/cache"
	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedMonths gives ada a February and a March with two categories.
func seedMonths(t *testing.T, f *fixture) {
	t.Helper()
	f.income(t, f.ada.ID, "Salary", "2500", core.NewDate(2025, time.February, 1))
	f.income(t, f.ada.ID, "Salary", "3000", core.NewDate(2025, time.March, 1))
	f.expense(t, f.ada.ID, "Dinner", "Food & Dining", "100", core.NewDate(2025, time.February, 15))
	f.expense(t, f.ada.ID, "Rent", "Home & Rent", "1200", core.NewDate(2025, time.March, 2))
	f.expense(t, f.ada.ID, "Groceries", "Food & Dining", "300", core.NewDate(2025, time.March, 10))
	f.budget(t, f.ada.ID, "Food & Dining", "250", march)
	f.budget(t, f.ada.ID, "Home & Rent", "1500", march)

	// Noise from another user and another month.
	f.expense(t, f.bob.ID, "Bus", "Transportation", "2", core.NewDate(2025, time.March, 5))
	f.income(t, f.ada.ID, "Bonus", "999", core.NewDate(2024, time.December, 20))
}

func TestDashboardService_Dashboard(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)
	svc := NewDashboardService(f.store, nil, core.English, nil).WithClock(fixedNow)

	d, err := svc.Dashboard(ctx, f.ada.ID)
	require.NoError(t, err)

	assert.Equal(t, march, d.Period)
	assert.Equal(t, "March", d.MonthName)
	assert.True(t, dec("3000").Equal(d.CurrentIncome))
	assert.True(t, dec("1500").Equal(d.CurrentExpense))
	assert.True(t, dec("2500").Equal(d.LastIncome))
	assert.True(t, dec("100").Equal(d.LastExpense))
	assert.InDelta(t, 20.0, d.IncomeChange, 0.001)
	assert.InDelta(t, 1400.0, d.ExpenseChange, 0.001)
	assert.True(t, dec("1500").Equal(d.Balance))

	assert.True(t, dec("1750").Equal(d.TotalBudget))
	assert.True(t, dec("1500").Equal(d.BudgetUsed))
	assert.InDelta(t, 85.714, d.BudgetUsedPercentage, 0.001)
	assert.Equal(t, 3, d.TransactionCount)
	assert.Equal(t, 2, d.CategoriesUsed)

	require.Len(t, d.Recent, 6)
	titles := make([]string, 0, len(d.Recent))
	for _, tx := range d.Recent {
		titles = append(titles, tx.Title)
	}
	assert.Equal(t, []string{"Groceries", "Rent", "Salary", "Dinner", "Salary", "Bonus"}, titles)
	assert.Equal(t, core.KindExpense, d.Recent[0].Kind)
	assert.Equal(t, core.KindIncome, d.Recent[2].Kind)
}

func TestDashboardService_EmptyUser(t *testing.T) {
	f := newFixture(t)
	svc := NewDashboardService(f.store, nil, core.Italian, nil).WithClock(fixedNow)

	d, err := svc.Dashboard(context.Background(), f.bob.ID)
	require.NoError(t, err)
	assert.Equal(t, "Marzo", d.MonthName)
	assert.True(t, d.CurrentIncome.IsZero())
	assert.Zero(t, d.IncomeChange)
	assert.Zero(t, d.BudgetUsedPercentage)
	assert.Empty(t, d.Recent)
}

func TestDashboardService_CacheInvalidation(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)

	lru := cache.NewLRUCache[Dashboard](16, time.Hour)
	dash := NewDashboardService(f.store, lru, core.English, nil).WithClock(fixedNow)
	ledgerSvc := NewLedgerService(f.store, nil, nil, dash).WithClock(fixedNow)

	first, err := dash.Dashboard(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, lru.Size())

	// Writes that bypass the service are not seen until invalidation.
	f.expense(t, f.ada.ID, "Coffee", "Food & Dining", "5", core.NewDate(2025, time.March, 12))
	cached, err := dash.Dashboard(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.True(t, first.CurrentExpense.Equal(cached.CurrentExpense))

	_, err = ledgerSvc.CreateExpense(ctx, f.ada.ID, core.ExpenseInput{Title: "Tea", Amount: "4", Date: "2025-03-13", Category: "Food & Dining"})
	require.NoError(t, err)
	assert.Zero(t, lru.Size())

	fresh, err := dash.Dashboard(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.True(t, dec("1509").Equal(fresh.CurrentExpense))
	assert.Equal(t, "Tea", fresh.Recent[0].Title)

	// Other users keep their entries.
	_, err = dash.Dashboard(ctx, f.bob.ID)
	require.NoError(t, err)
	dash.InvalidateUser(f.ada.ID)
	assert.Equal(t, 1, lru.Size())
	dash.InvalidateUser("")
	assert.Zero(t, lru.Size())
}

// writeDuringLoad runs write before the first income read it serves.
type writeDuringLoad struct {
	ledger.Store
	once  sync.Once
	write func()
}

func (s *writeDuringLoad) ListIncomes(ctx context.Context, f ledger.Filter) ([]core.Income, error) {
	s.once.Do(s.write)
	return s.Store.ListIncomes(ctx, f)
}

func TestDashboardService_WriteDuringLoadIsNotCached(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)

	lru := cache.NewLRUCache[Dashboard](16, time.Hour)
	racing := &writeDuringLoad{Store: f.store}
	dash := NewDashboardService(racing, lru, core.English, nil).WithClock(fixedNow)
	ledgerSvc := NewLedgerService(f.store, nil, nil, dash).WithClock(fixedNow)
	racing.write = func() {
		_, err := ledgerSvc.CreateExpense(ctx, f.ada.ID, core.ExpenseInput{Title: "Tea", Amount: "4", Date: "2025-03-13", Category: "Food & Dining"})
		assert.NoError(t, err)
	}

	_, err := dash.Dashboard(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Zero(t, lru.Size())

	fresh, err := dash.Dashboard(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.True(t, dec("1504").Equal(fresh.CurrentExpense))
	assert.Equal(t, 1, lru.Size())
}

func TestMergeRecent(t *testing.T) {
	base := time.Date(2025, time.March, 1, 8, 0, 0, 0, time.UTC)
	var (
		incomes  []core.Income
		expenses []core.Expense
	)
	for i := 0; i < 7; i++ {
		incomes = append(incomes, core.Income{ID: int64(i + 1), Title: "in", Date: core.NewDate(2025, time.March, 1+i), CreatedAt: base})
		expenses = append(expenses, core.Expense{ID: int64(i + 1), Title: "out", Date: core.NewDate(2025, time.March, 1+i), CreatedAt: base.Add(time.Minute)})
	}

	got := MergeRecent(incomes, expenses, RecentLimit)
	require.Len(t, got, RecentLimit)
	assert.Equal(t, core.NewDate(2025, time.March, 7), got[0].Date)
	// Same day: the later-created expense wins.
	assert.Equal(t, core.KindExpense, got[0].Kind)
	assert.Equal(t, core.KindIncome, got[1].Kind)
	assert.Equal(t, core.NewDate(2025, time.March, 3), got[9].Date)

	assert.Empty(t, MergeRecent(nil, nil, RecentLimit))
}

func TestCompute(t *testing.T) {
	f := newFixture(t)
	seedMonths(t, f)
	ctx := context.Background()
	incomes, err := f.store.ListIncomes(ctx, ledger.Filter{UserID: f.ada.ID})
	require.NoError(t, err)
	expenses, err := f.store.ListExpenses(ctx, ledger.Filter{UserID: f.ada.ID})
	require.NoError(t, err)
	budgets, err := f.store.ListBudgets(ctx, ledger.BudgetFilter{UserID: f.ada.ID})
	require.NoError(t, err)

	a := Compute(incomes, expenses, budgets, core.NewDate(2025, time.March, 15), core.English)

	assert.Equal(t, march, a.Period)
	assert.InDelta(t, 50.0, a.SavingsRate, 0.001)
	assert.True(t, dec("200").Equal(a.AverageDailyIncome))
	assert.True(t, dec("100").Equal(a.AverageDailyExpense))

	assert.True(t, dec("1750").Equal(a.TotalBudget))
	assert.Equal(t, 1, a.OverspentCount)
	assert.Equal(t, 1, a.OnTrackCount)
	require.Len(t, a.Budgets, 2)

	require.Len(t, a.DailyTrends, 15)
	assert.True(t, dec("3000").Equal(a.DailyTrends[0].Income))
	assert.True(t, dec("300").Equal(a.DailyTrends[9].Expense))

	require.Len(t, a.MonthlyTrends, 6)
	assert.Equal(t, time.October, a.MonthlyTrends[0].Month)
	assert.Equal(t, 2024, a.MonthlyTrends[0].Year)
	assert.Equal(t, "Mar", a.MonthlyTrends[5].Label)
	assert.True(t, dec("999").Equal(a.MonthlyTrends[2].Income))

	require.Len(t, a.CategoryBreakdown, 2)
	assert.Equal(t, "Home & Rent", a.CategoryBreakdown[0].Category)
	assert.InDelta(t, 80.0, a.CategoryBreakdown[0].Percentage, 0.001)

	require.Len(t, a.CategoryTrends, 2)
	for _, tr := range a.CategoryTrends {
		switch tr.Category {
		case "Food & Dining":
			assert.InDelta(t, 200.0, tr.ChangePercentage, 0.001)
			assert.True(t, tr.Increased)
		case "Home & Rent":
			assert.InDelta(t, 100.0, tr.ChangePercentage, 0.001)
		default:
			t.Errorf("unexpected category %q", tr.Category)
		}
	}
	assert.NotEmpty(t, a.Insights)
}

func TestAnalyticsService_Analytics(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)
	lru := cache.NewLRUCache[Analytics](16, time.Hour)
	svc := NewAnalyticsService(f.store, lru, core.English, nil).WithClock(fixedNow)

	a, err := svc.Analytics(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.True(t, dec("3000").Equal(a.CurrentIncome))
	assert.True(t, dec("1500").Equal(a.CurrentExpense))
	assert.Len(t, a.MonthlyTrends, 6)
	assert.Equal(t, 1, lru.Size())

	svc.InvalidateUser(f.ada.ID)
	assert.Zero(t, lru.Size())

	empty, err := svc.Analytics(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.Zero(t, empty.SavingsRate)
	assert.True(t, dec("2").Equal(empty.CurrentExpense))
	assert.Empty(t, empty.Budgets)
}
