// Package analytics computes summaries, trends, breakdowns and growth rates
// from ledger records, and turns them into insights.
//
// Every function here is pure: no store access, no clock. Callers pass the
// records and the reference date explicitly. An empty userID means
// "all users" and is used by the admin views.
package analytics

import (
	"sort"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

const (
	// TrendWidth is the number of months in a monthly trend.
	TrendWidth = 6
	// TopCategories caps expense category breakdowns.
	TopCategories = 10
	// TopCategoryTrends caps month-over-month category comparisons.
	TopCategoryTrends = 8
)

var hundred = decimal.NewFromInt(100)

func matches[T core.Entry](r T, userID string, p *core.Period) bool {
	if userID != "" && r.Owner() != userID {
		return false
	}
	return p == nil || p.Contains(r.On())
}

// SumInRange totals the records owned by userID. When p is non-nil only
// records dated inside that month and year count; there is no month-only or
// year-only variant.
func SumInRange[T core.Entry](records []T, userID string, p *core.Period) decimal.Decimal {
	total := decimal.Zero
	for _, r := range records {
		if matches(r, userID, p) {
			total = total.Add(r.Value())
		}
	}
	return total
}

// CountInRange counts the records SumInRange would add up.
func CountInRange[T core.Entry](records []T, userID string, p *core.Period) int {
	n := 0
	for _, r := range records {
		if matches(r, userID, p) {
			n++
		}
	}
	return n
}

// GroupByCategory partitions expenses by category, ordered by total
// descending (ties by category name).
func GroupByCategory(expenses []core.Expense, userID string, p *core.Period) []core.CategoryTotal {
	idx := map[string]int{}
	groups := []core.CategoryTotal{}
	for _, e := range expenses {
		if !matches(e, userID, p) {
			continue
		}
		i, ok := idx[e.Category]
		if !ok {
			i = len(groups)
			idx[e.Category] = i
			groups = append(groups, core.CategoryTotal{Category: e.Category, Total: decimal.Zero})
		}
		groups[i].Total = groups[i].Total.Add(e.Amount)
		groups[i].Count++
	}
	SortTotals(groups)
	return groups
}

// SortTotals orders groups by total descending, then by category.
func SortTotals(groups []core.CategoryTotal) {
	sort.SliceStable(groups, func(i, j int) bool {
		if c := groups[i].Total.Cmp(groups[j].Total); c != 0 {
			return c > 0
		}
		return groups[i].Category < groups[j].Category
	})
}

// Breakdown adds each group's share of the grand total. Shares are 0 when the
// grand total is 0. Input order is preserved.
func Breakdown(groups []core.CategoryTotal) []core.CategoryBreakdown {
	grand := decimal.Zero
	for _, g := range groups {
		grand = grand.Add(g.Total)
	}
	out := make([]core.CategoryBreakdown, 0, len(groups))
	for _, g := range groups {
		out = append(out, core.CategoryBreakdown{
			Category:   g.Category,
			Total:      g.Total,
			Count:      g.Count,
			Percentage: core.Percent(g.Total, grand),
		})
	}
	return out
}

// Top returns at most n leading items of s.
func Top[T any](s []T, n int) []T {
	if n >= 0 && len(s) > n {
		return s[:n]
	}
	return s
}

// MonthWindow returns the width months ending at today's month, oldest first.
func MonthWindow(today core.Date, width int) []core.Period {
	if width <= 0 {
		return []core.Period{}
	}
	current := today.Period()
	out := make([]core.Period, 0, width)
	for i := width - 1; i >= 0; i-- {
		out = append(out, current.AddMonths(-i))
	}
	return out
}

// NewTrendPoint builds one monthly point with balance and savings rate.
func NewTrendPoint(p core.Period, income, expense decimal.Decimal, loc core.Locale) core.MonthlyTrendPoint {
	return core.MonthlyTrendPoint{
		Year:        p.Year,
		Month:       p.Month,
		Label:       loc.ShortMonth(p.Month),
		Income:      income,
		Expense:     expense,
		Balance:     income.Sub(expense),
		SavingsRate: SavingsRate(income, expense),
	}
}

// MonthlyTrend computes TrendWidth monthly points ending at today's month,
// oldest first. Months without records are zero-filled.
func MonthlyTrend(incomes []core.Income, expenses []core.Expense, userID string, today core.Date, loc core.Locale) []core.MonthlyTrendPoint {
	window := MonthWindow(today, TrendWidth)
	out := make([]core.MonthlyTrendPoint, 0, len(window))
	for _, p := range window {
		pt := NewTrendPoint(p, SumInRange(incomes, userID, &p), SumInRange(expenses, userID, &p), loc)
		pt.IncomeCount = CountInRange(incomes, userID, &p)
		pt.ExpenseCount = CountInRange(expenses, userID, &p)
		out = append(out, pt)
	}
	return out
}

// TrendDays returns the days reported by a daily trend: up to today when p is
// today's month, the whole month otherwise.
func TrendDays(p core.Period, today core.Date) []core.Date {
	last := p.DaysIn()
	if today.Period() == p && today.Day() < last {
		last = today.Day()
	}
	out := make([]core.Date, 0, last)
	for d := 1; d <= last; d++ {
		out = append(out, core.NewDate(p.Year, p.Month, d))
	}
	return out
}

// DailyTrend computes per-day income and expense totals for the month p.
func DailyTrend(incomes []core.Income, expenses []core.Expense, userID string, p core.Period, today core.Date) []core.DailyTrendPoint {
	days := TrendDays(p, today)
	byDay := make(map[time.Time]int, len(days))
	out := make([]core.DailyTrendPoint, len(days))
	for i, d := range days {
		byDay[d.Time] = i
		out[i] = core.DailyTrendPoint{Date: d, Income: decimal.Zero, Expense: decimal.Zero}
	}
	for _, r := range incomes {
		if i, ok := byDay[r.Date.Time]; ok && matches(r, userID, nil) {
			out[i].Income = out[i].Income.Add(r.Amount)
		}
	}
	for _, r := range expenses {
		if i, ok := byDay[r.Date.Time]; ok && matches(r, userID, nil) {
			out[i].Expense = out[i].Expense.Add(r.Amount)
		}
	}
	return out
}

// GrowthRate is the percentage change from previous to current. With no
// previous value the rate is 100 when current is positive and 0 otherwise.
func GrowthRate(current, previous decimal.Decimal) float64 {
	if previous.IsPositive() {
		return current.Sub(previous).Div(previous).Mul(hundred).InexactFloat64()
	}
	if current.IsPositive() {
		return 100
	}
	return 0
}

// SavingsRate is (income-expense)/income*100, 0 when there is no income.
func SavingsRate(income, expense decimal.Decimal) float64 {
	if !income.IsPositive() {
		return 0
	}
	return income.Sub(expense).Div(income).Mul(hundred).InexactFloat64()
}

// EvaluateBudget compares b with what was spent in its category and period.
func EvaluateBudget(b core.Budget, spent decimal.Decimal) core.BudgetStatus {
	return core.BudgetStatus{
		Budget:         b,
		Spent:          spent,
		Remaining:      b.PlannedAmount.Sub(spent),
		UsedPercentage: core.Percent(spent, b.PlannedAmount),
		Overspent:      spent.GreaterThan(b.PlannedAmount),
	}
}

// BudgetStatuses evaluates every budget against the expenses of the same
// user, category, month and year. Output follows budget order.
func BudgetStatuses(budgets []core.Budget, expenses []core.Expense) []core.BudgetStatus {
	type key struct {
		user     string
		category string
		period   core.Period
	}
	spent := map[key]decimal.Decimal{}
	for _, e := range expenses {
		k := key{e.UserID, e.Category, e.Date.Period()}
		spent[k] = spent[k].Add(e.Amount)
	}
	out := make([]core.BudgetStatus, 0, len(budgets))
	for _, b := range budgets {
		s, ok := spent[key{b.UserID, b.Category, b.Period()}]
		if !ok {
			s = decimal.Zero
		}
		out = append(out, EvaluateBudget(b, s))
	}
	return out
}

// CountBudgetStatuses splits statuses into overspent and on-track counts.
func CountBudgetStatuses(statuses []core.BudgetStatus) (overspent, onTrack int) {
	for _, s := range statuses {
		if s.Overspent {
			overspent++
		} else {
			onTrack++
		}
	}
	return overspent, onTrack
}

// CategoryTrends compares two category groupings. Every category present in
// either month appears once, ordered by current total descending.
func CategoryTrends(current, previous []core.CategoryTotal) []core.CategoryTrend {
	prev := make(map[string]decimal.Decimal, len(previous))
	for _, g := range previous {
		prev[g.Category] = g.Total
	}
	seen := map[string]bool{}
	out := []core.CategoryTrend{}
	add := func(category string, cur decimal.Decimal) {
		if seen[category] {
			return
		}
		seen[category] = true
		p := prev[category]
		out = append(out, core.CategoryTrend{
			Category:         category,
			Current:          cur,
			Previous:         p,
			ChangePercentage: GrowthRate(cur, p),
			Increased:        cur.GreaterThan(p),
		})
	}
	for _, g := range current {
		add(g.Category, g.Total)
	}
	for _, g := range previous {
		add(g.Category, decimal.Zero)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := out[i].Current.Cmp(out[j].Current); c != 0 {
			return c > 0
		}
		return out[i].Category < out[j].Category
	})
	return out
}

// OverspendingDays counts days whose expense is positive and above income.
func OverspendingDays(days []core.DailyTrendPoint) int {
	n := 0
	for _, d := range days {
		if d.Expense.IsPositive() && d.Expense.GreaterThan(d.Income) {
			n++
		}
	}
	return n
}
