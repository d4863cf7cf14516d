// Package ledgertest holds the behavioural suite every ledger.Store
// implementation must pass.
package ledgertest

import (
	"context"
	"errors"
	"time"

	"bilancio/internal/core"
	"bilancio/internal/ledger"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

// StoreSuite runs against a fresh store per test, built by New.
type StoreSuite struct {
	suite.Suite
	New func() ledger.Store

	ctx   context.Context
	store ledger.Store
	alice core.User
	bob   core.User
}

func (s *StoreSuite) SetupTest() {
	s.ctx = context.Background()
	s.store = s.New()

	s.alice = core.User{FirstName: "Alice", LastName: "Rossi", Email: "alice@example.com", Role: core.RoleUser, Active: true,
		CreatedAt: time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC)}
	s.bob = core.User{FirstName: "Bob", LastName: "Bianchi", Email: "bob@example.com", Role: core.RoleAdmin, Active: true,
		CreatedAt: time.Date(2025, time.February, 10, 9, 0, 0, 0, time.UTC)}
	s.Require().NoError(s.store.CreateUser(s.ctx, &s.alice))
	s.Require().NoError(s.store.CreateUser(s.ctx, &s.bob))
}

func (s *StoreSuite) TearDownTest() {
	if s.store != nil {
		s.NoError(s.store.Close())
	}
}

func amount(v string) decimal.Decimal { return decimal.RequireFromString(v) }

func (s *StoreSuite) addIncome(user, title, value string, d core.Date) core.Income {
	in := core.Income{UserID: user, Title: title, Amount: amount(value), Date: d}
	s.Require().NoError(s.store.CreateIncome(s.ctx, &in))
	return in
}

func (s *StoreSuite) addExpense(user, category, value string, d core.Date) core.Expense {
	e := core.Expense{UserID: user, Title: category + " spend", Amount: amount(value), Date: d, Category: category}
	s.Require().NoError(s.store.CreateExpense(s.ctx, &e))
	return e
}

func (s *StoreSuite) TestIncomeLifecycle() {
	in := s.addIncome(s.alice.ID, "Salary", "2500.50", core.NewDate(2025, time.March, 1))
	s.NotZero(in.ID)
	s.False(in.CreatedAt.IsZero())

	got, err := s.store.GetIncome(s.ctx, s.alice.ID, in.ID)
	s.Require().NoError(err)
	s.Equal("Salary", got.Title)
	s.True(amount("2500.5").Equal(got.Amount))
	s.Equal("2025-03-01", got.Date.String())
	s.Nil(got.UpdatedAt)

	_, err = s.store.GetIncome(s.ctx, s.bob.ID, in.ID)
	s.ErrorIs(err, core.ErrNotFound, "other owners see not found")

	got.Title = "Salary March"
	got.Amount = amount("2600")
	s.Require().NoError(s.store.UpdateIncome(s.ctx, &got))
	s.NotNil(got.UpdatedAt)

	again, err := s.store.GetIncome(s.ctx, s.alice.ID, in.ID)
	s.Require().NoError(err)
	s.Equal("Salary March", again.Title)
	s.NotNil(again.UpdatedAt)

	stolen := again
	stolen.UserID = s.bob.ID
	s.ErrorIs(s.store.UpdateIncome(s.ctx, &stolen), core.ErrNotFound)
	s.ErrorIs(s.store.DeleteIncome(s.ctx, s.bob.ID, in.ID), core.ErrNotFound)

	s.Require().NoError(s.store.DeleteIncome(s.ctx, s.alice.ID, in.ID))
	_, err = s.store.GetIncome(s.ctx, s.alice.ID, in.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestListAndSumEntries() {
	march := ledger.MonthRange(core.Period{Year: 2025, Month: time.March})
	s.addExpense(s.alice.ID, "Travel", "100", core.NewDate(2025, time.March, 2))
	s.addExpense(s.alice.ID, "Shopping", "40.10", core.NewDate(2025, time.March, 31))
	s.addExpense(s.alice.ID, "Travel", "60", core.NewDate(2025, time.March, 20))
	s.addExpense(s.alice.ID, "Travel", "5", core.NewDate(2025, time.April, 1))
	s.addExpense(s.bob.ID, "Travel", "999", core.NewDate(2025, time.March, 2))

	list, err := s.store.ListExpenses(s.ctx, ledger.Filter{UserID: s.alice.ID, Range: march})
	s.Require().NoError(err)
	s.Require().Len(list, 3)
	s.Equal("2025-03-31", list[0].Date.String())
	s.Equal("2025-03-02", list[2].Date.String())

	travel, err := s.store.ListExpenses(s.ctx, ledger.Filter{UserID: s.alice.ID, Range: march, Category: "Travel"})
	s.Require().NoError(err)
	s.Len(travel, 2)

	limited, err := s.store.ListExpenses(s.ctx, ledger.Filter{UserID: s.alice.ID, Limit: 2})
	s.Require().NoError(err)
	s.Require().Len(limited, 2)
	s.Equal("2025-04-01", limited[0].Date.String())

	sum, err := s.store.SumExpenses(s.ctx, ledger.Filter{UserID: s.alice.ID, Range: march})
	s.Require().NoError(err)
	s.True(amount("200.10").Equal(sum.Amount), "sum = %s", sum.Amount)
	s.Equal(3, sum.Count)

	empty, err := s.store.SumExpenses(s.ctx, ledger.Filter{UserID: s.alice.ID, Range: ledger.YearRange(2019)})
	s.Require().NoError(err)
	s.True(empty.Amount.IsZero())
	s.Zero(empty.Count)

	groups, err := s.store.ExpensesByCategory(s.ctx, ledger.Filter{UserID: s.alice.ID, Range: march})
	s.Require().NoError(err)
	s.Require().Len(groups, 2)
	s.Equal("Travel", groups[0].Key)
	s.True(amount("160").Equal(groups[0].Total))
	s.Equal(2, groups[0].Count)

	cats, err := s.store.ExpenseCategories(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal([]string{"Shopping", "Travel"}, cats)
}

func (s *StoreSuite) TestSameDayOrdersByCreation() {
	d := core.NewDate(2025, time.May, 5)
	first := s.addIncome(s.alice.ID, "First", "1", d)
	time.Sleep(5 * time.Millisecond)
	second := s.addIncome(s.alice.ID, "Second", "1", d)

	list, err := s.store.ListIncomes(s.ctx, ledger.Filter{UserID: s.alice.ID})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal(second.ID, list[0].ID)
	s.Equal(first.ID, list[1].ID)
}

func (s *StoreSuite) TestGroupsByTitleAndUser() {
	d := core.NewDate(2025, time.June, 1)
	s.addIncome(s.alice.ID, "Salary", "1000", d)
	s.addIncome(s.alice.ID, "Salary", "1000", d)
	s.addIncome(s.alice.ID, "Freelance", "300", d)
	s.addIncome(s.bob.ID, "Salary", "5000", d)

	titles, err := s.store.IncomesByTitle(s.ctx, ledger.Filter{UserID: s.alice.ID, Range: ledger.YearRange(2025)})
	s.Require().NoError(err)
	s.Require().Len(titles, 2)
	s.Equal("Salary", titles[0].Key)
	s.Equal(2, titles[0].Count)

	users, err := s.store.IncomesByUser(s.ctx, ledger.Filter{Role: core.RoleUser})
	s.Require().NoError(err)
	s.Require().Len(users, 1, "admins are excluded by role")
	s.Equal(s.alice.ID, users[0].Key)
	s.True(amount("2300").Equal(users[0].Total))

	all, err := s.store.SumIncomes(s.ctx, ledger.Filter{})
	s.Require().NoError(err)
	s.True(amount("7300").Equal(all.Amount))

	years, err := s.store.EntryYears(s.ctx, s.alice.ID)
	s.Require().NoError(err)
	s.Equal([]int{2025}, years)
}

func (s *StoreSuite) TestBudgetUniqueness() {
	b := core.Budget{UserID: s.alice.ID, Category: "Travel", PlannedAmount: amount("300"), Month: 3, Year: 2025}
	s.Require().NoError(s.store.CreateBudget(s.ctx, &b))
	s.NotZero(b.ID)

	dup := core.Budget{UserID: s.alice.ID, Category: "Travel", PlannedAmount: amount("10"), Month: 3, Year: 2025}
	err := s.store.CreateBudget(s.ctx, &dup)
	s.ErrorIs(err, core.ErrConflict)
	var conflict *core.ConflictError
	s.True(errors.As(err, &conflict))
	s.Equal("category", conflict.Field)

	other := core.Budget{UserID: s.bob.ID, Category: "Travel", PlannedAmount: amount("10"), Month: 3, Year: 2025}
	s.NoError(s.store.CreateBudget(s.ctx, &other), "keys are per user")

	shopping := core.Budget{UserID: s.alice.ID, Category: "Shopping", PlannedAmount: amount("50"), Month: 3, Year: 2025}
	s.Require().NoError(s.store.CreateBudget(s.ctx, &shopping))
	shopping.Category = "Travel"
	s.ErrorIs(s.store.UpdateBudget(s.ctx, &shopping), core.ErrConflict, "edits cannot collide either")

	b.PlannedAmount = amount("350")
	s.Require().NoError(s.store.UpdateBudget(s.ctx, &b), "rewriting the same key is fine")

	list, err := s.store.ListBudgets(s.ctx, ledger.BudgetFilter{UserID: s.alice.ID, Period: &core.Period{Year: 2025, Month: time.March}})
	s.Require().NoError(err)
	s.Require().Len(list, 2)
	s.Equal("Shopping", list[0].Category)
	s.True(amount("350").Equal(list[1].PlannedAmount))

	n, err := s.store.CountBudgets(s.ctx, ledger.BudgetFilter{Role: core.RoleUser})
	s.Require().NoError(err)
	s.Equal(2, n)

	s.Require().NoError(s.store.DeleteBudget(s.ctx, s.alice.ID, b.ID))
	_, err = s.store.GetBudget(s.ctx, s.alice.ID, b.ID)
	s.ErrorIs(err, core.ErrNotFound)
}

func (s *StoreSuite) TestUsers() {
	dup := core.User{FirstName: "A", LastName: "B", Email: "ALICE@example.com", Role: core.RoleUser}
	s.ErrorIs(s.store.CreateUser(s.ctx, &dup), core.ErrConflict)

	got, err := s.store.GetUserByEmail(s.ctx, "Alice@Example.com")
	s.Require().NoError(err)
	s.Equal(s.alice.ID, got.ID)
	s.Equal(core.RoleUser, got.Role)

	users, err := s.store.ListUsers(s.ctx, ledger.UserFilter{})
	s.Require().NoError(err)
	s.Require().Len(users, 2)
	s.Equal(s.bob.ID, users[0].ID, "newest first")

	found, err := s.store.ListUsers(s.ctx, ledger.UserFilter{Search: "ROSS"})
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(s.alice.ID, found[0].ID)

	s.Require().NoError(s.store.SetUserActive(s.ctx, s.alice.ID, false))
	inactive := false
	n, err := s.store.CountUsers(s.ctx, ledger.UserFilter{Active: &inactive})
	s.Require().NoError(err)
	s.Equal(1, n)

	feb, err := s.store.CountUsers(s.ctx, ledger.UserFilter{Created: ledger.MonthRange(core.Period{Year: 2025, Month: time.February})})
	s.Require().NoError(err)
	s.Equal(1, feb)

	s.ErrorIs(s.store.SetUserActive(s.ctx, "missing", true), core.ErrNotFound)
	s.NoError(s.store.Ping(s.ctx))
}
