package report

import (
	"sort"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// NewSummary derives balance and savings rate from the two totals.
func NewSummary(income, expense decimal.Decimal) Summary {
	return Summary{
		Income:      income,
		Expense:     expense,
		Balance:     income.Sub(expense),
		SavingsRate: analytics.SavingsRate(income, expense),
	}
}

// BuildMonthly assembles the monthly report for one user's records of month p.
// Records outside p are ignored. Transactions come out newest first.
func BuildMonthly(p core.Period, user core.User, incomes []core.Income, expenses []core.Expense, budgets []core.Budget, loc core.Locale) Monthly {
	inMonth := func(d core.Date) bool { return p.Contains(d) }
	incomes = filter(incomes, func(i core.Income) bool { return inMonth(i.Date) })
	expenses = filter(expenses, func(e core.Expense) bool { return inMonth(e.Date) })
	budgets = filter(budgets, func(b core.Budget) bool { return b.Period() == p })
	sortNewestFirst(incomes, func(i core.Income) (core.Date, time.Time) { return i.Date, i.CreatedAt })
	sortNewestFirst(expenses, func(e core.Expense) (core.Date, time.Time) { return e.Date, e.CreatedAt })

	income := analytics.SumInRange(incomes, "", nil)
	expense := analytics.SumInRange(expenses, "", nil)

	statuses := analytics.BudgetStatuses(budgets, expenses)
	sort.SliceStable(statuses, func(i, j int) bool {
		return statuses[i].Budget.Category < statuses[j].Budget.Category
	})
	totalBudget := decimal.Zero
	for _, b := range budgets {
		totalBudget = totalBudget.Add(b.PlannedAmount)
	}

	return Monthly{
		Year:                 p.Year,
		Month:                p.Month,
		MonthName:            loc.MonthName(p.Month),
		UserName:             user.FullName(),
		Summary:              NewSummary(income, expense),
		IncomeCount:          len(incomes),
		ExpenseCount:         len(expenses),
		TotalBudget:          totalBudget,
		BudgetUsed:           expense,
		BudgetUsedPercentage: core.Percent(expense, totalBudget),
		Budgets:              statuses,
		Categories:           analytics.Breakdown(analytics.GroupByCategory(expenses, "", nil)),
		Incomes:              incomes,
		Expenses:             expenses,
	}
}

// BuildYearly assembles the yearly report for one user's records of year.
func BuildYearly(year int, user core.User, incomes []core.Income, expenses []core.Expense, loc core.Locale) Yearly {
	incomes = filter(incomes, func(i core.Income) bool { return i.Date.Year() == year })
	expenses = filter(expenses, func(e core.Expense) bool { return e.Date.Year() == year })

	income := analytics.SumInRange(incomes, "", nil)
	expense := analytics.SumInRange(expenses, "", nil)

	months := make([]MonthSummary, 0, 12)
	for m := time.January; m <= time.December; m++ {
		p := core.Period{Year: year, Month: m}
		months = append(months, NewMonthSummary(p,
			core.Totals{Amount: analytics.SumInRange(incomes, "", &p), Count: analytics.CountInRange(incomes, "", &p)},
			core.Totals{Amount: analytics.SumInRange(expenses, "", &p), Count: analytics.CountInRange(expenses, "", &p)},
			loc))
	}

	categories := analytics.GroupByCategory(expenses, "", nil)

	return Yearly{
		Year:                 year,
		UserName:             user.FullName(),
		Summary:              NewSummary(income, expense),
		IncomeCount:          len(incomes),
		ExpenseCount:         len(expenses),
		Months:               months,
		Categories:           analytics.Breakdown(categories),
		TopIncomeSources:     rank(groupIncomesByTitle(incomes)),
		TopExpenseCategories: rank(categories),
	}
}

// NewMonthSummary builds one breakdown row with the abbreviated month name.
func NewMonthSummary(p core.Period, income, expense core.Totals, loc core.Locale) MonthSummary {
	return MonthSummary{
		Year:         p.Year,
		Month:        p.Month,
		MonthName:    loc.ShortMonth(p.Month),
		Income:       income.Amount,
		Expense:      expense.Amount,
		Balance:      income.Amount.Sub(expense.Amount),
		IncomeCount:  income.Count,
		ExpenseCount: expense.Count,
	}
}

func groupIncomesByTitle(incomes []core.Income) []core.CategoryTotal {
	idx := map[string]int{}
	groups := []core.CategoryTotal{}
	for _, in := range incomes {
		i, ok := idx[in.Title]
		if !ok {
			i = len(groups)
			idx[in.Title] = i
			groups = append(groups, core.CategoryTotal{Category: in.Title, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(in.Amount)
		groups[i].Count++
	}
	analytics.SortTotals(groups)
	return groups
}

func rank(groups []core.CategoryTotal) []TopItem {
	groups = analytics.Top(groups, TopItems)
	out := make([]TopItem, 0, len(groups))
	for i, g := range groups {
		out = append(out, TopItem{Rank: i + 1, Name: g.Category, Amount: g.Total, Count: g.Count})
	}
	return out
}

func filter[T any](s []T, keep func(T) bool) []T {
	out := make([]T, 0, len(s))
	for _, v := range s {
		if keep(v) {
			out = append(out, v)
		}
	}
	return out
}

func sortNewestFirst[T any](s []T, key func(T) (core.Date, time.Time)) {
	sort.SliceStable(s, func(i, j int) bool {
		di, ci := key(s[i])
		dj, cj := key(s[j])
		if !di.Equal(dj.Time) {
			return di.After(dj.Time)
		}
		return ci.After(cj)
	})
}
