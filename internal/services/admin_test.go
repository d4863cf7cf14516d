package services

import (
	"context"
	"testing"
	"time"

	"bilancio/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedAdmin adds records owned by the admin account, which every admin view ignores.
func seedAdmin(t *testing.T, f *fixture) {
	t.Helper()
	seedMonths(t, f)
	f.expense(t, f.admin.ID, "Server", "Bills & Utilities", "1000", core.NewDate(2025, time.March, 4))
	f.income(t, f.admin.ID, "Consulting", "9000", core.NewDate(2025, time.March, 4))
	f.budget(t, f.admin.ID, "Travel", "100", march)
}

func TestAdminService_Dashboard(t *testing.T) {
	f := newFixture(t)
	seedAdmin(t, f)
	svc := NewAdminService(f.store, core.English, nil).WithClock(fixedNow)

	d, err := svc.Dashboard(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, d.TotalUsers)
	assert.Equal(t, 1, d.ActiveUsers)
	assert.Equal(t, 1, d.InactiveUsers)
	assert.Equal(t, 1, d.NewUsersThisMonth)
	assert.True(t, dec("6499").Equal(d.SystemIncome))
	assert.True(t, dec("1602").Equal(d.SystemExpense))
	assert.Equal(t, 7, d.TotalTransactions)
	assert.Equal(t, 2, d.TotalBudgets)

	require.Len(t, d.RecentUsers, 2)
	assert.Equal(t, f.bob.ID, d.RecentUsers[0].ID)

	require.Len(t, d.TopUsers, 2)
	assert.Equal(t, f.ada.ID, d.TopUsers[0].UserID)
	assert.Equal(t, "Ada Test", d.TopUsers[0].Name)
	assert.Equal(t, "ada@example.com", d.TopUsers[0].Email)
	assert.Equal(t, 6, d.TopUsers[0].Count)
	assert.Equal(t, 1, d.TopUsers[1].Count)
}

func TestAdminService_Analytics(t *testing.T) {
	f := newFixture(t)
	seedAdmin(t, f)
	svc := NewAdminService(f.store, core.English, nil).WithClock(fixedNow)

	a, err := svc.Analytics(context.Background())
	require.NoError(t, err)

	assert.Equal(t, march, a.Period)
	assert.Equal(t, 2, a.TotalUsers)
	assert.Equal(t, 1, a.NewUsersThisMonth)
	assert.Equal(t, 0, a.NewUsersLastMonth)
	assert.InDelta(t, 100.0, a.UserGrowthRate, 0.001)

	assert.True(t, dec("3000").Equal(a.CurrentIncome))
	assert.True(t, dec("1502").Equal(a.CurrentExpense))
	assert.True(t, dec("2500").Equal(a.LastIncome))
	assert.True(t, dec("100").Equal(a.LastExpense))

	require.Len(t, a.CategoryBreakdown, 3)
	assert.Equal(t, "Home & Rent", a.CategoryBreakdown[0].Category)

	require.Len(t, a.TopIncomeUsers, 1)
	assert.Equal(t, f.ada.ID, a.TopIncomeUsers[0].UserID)
	require.Len(t, a.TopExpenseUsers, 2)
	assert.Equal(t, f.ada.ID, a.TopExpenseUsers[0].UserID)
	assert.Equal(t, "Bob Test", a.TopExpenseUsers[1].Name)

	require.Len(t, a.MonthlyTrends, 6)
	assert.Equal(t, time.January, a.MonthlyTrends[3].Month)
	assert.Equal(t, 1, a.MonthlyTrends[3].NewUsers)
	assert.Equal(t, 1, a.MonthlyTrends[5].NewUsers)
	assert.Zero(t, a.MonthlyTrends[4].NewUsers)
}

func TestAdminService_Users(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedAdmin(t, f)
	svc := NewAdminService(f.store, core.English, nil).WithClock(fixedNow)

	all, err := svc.Users(ctx, UserQuery{})
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, f.bob.ID, all[0].User.ID)
	assert.Equal(t, f.ada.ID, all[1].User.ID)
	assert.True(t, dec("6499").Equal(all[1].TotalIncome))
	assert.Equal(t, 3, all[1].ExpenseCount)
	assert.True(t, all[0].TotalIncome.IsZero())

	active, err := svc.Users(ctx, UserQuery{Status: "active"})
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, f.ada.ID, active[0].User.ID)

	inactive, err := svc.Users(ctx, UserQuery{Status: " Inactive "})
	require.NoError(t, err)
	require.Len(t, inactive, 1)
	assert.Equal(t, f.bob.ID, inactive[0].User.ID)

	found, err := svc.Users(ctx, UserQuery{Search: "BOB"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	none, err := svc.Users(ctx, UserQuery{Search: "root"})
	require.NoError(t, err)
	assert.Empty(t, none)

	_, err = svc.Users(ctx, UserQuery{Status: "banned"})
	assert.Equal(t, []string{"status"}, validationFields(t, err))
}

func TestAdminService_UserDetails(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedAdmin(t, f)
	svc := NewAdminService(f.store, core.English, nil).WithClock(fixedNow)

	d, err := svc.UserDetails(ctx, f.ada.ID)
	require.NoError(t, err)
	assert.Equal(t, f.ada.ID, d.User.ID)
	assert.True(t, dec("6499").Equal(d.TotalIncome.Amount))
	assert.Equal(t, 3, d.TotalIncome.Count)
	assert.True(t, dec("4899").Equal(d.Balance))
	assert.True(t, dec("3000").Equal(d.MonthIncome.Amount))
	assert.True(t, dec("1500").Equal(d.MonthExpense.Amount))
	assert.Equal(t, 2, d.BudgetCount)
	assert.Len(t, d.Recent, 6)

	_, err = svc.UserDetails(ctx, f.admin.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	_, err = svc.UserDetails(ctx, "missing")
	assert.ErrorIs(t, err, core.ErrNotFound)
}

func TestAdminService_ToggleStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewAdminService(f.store, core.English, nil).WithClock(fixedNow)

	u, err := svc.ToggleStatus(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, u.Active)

	stored, err := f.store.GetUser(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.True(t, stored.Active)

	u, err = svc.ToggleStatus(ctx, f.bob.ID)
	require.NoError(t, err)
	assert.False(t, u.Active)

	_, err = svc.ToggleStatus(ctx, f.admin.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)
	admin, err := f.store.GetUser(ctx, f.admin.ID)
	require.NoError(t, err)
	assert.True(t, admin.Active)
}
