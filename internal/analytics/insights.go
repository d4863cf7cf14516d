package analytics

import (
	"fmt"
	"math"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// overspendingDayShare is the share of observed days above which frequent
// overspending is reported.
const overspendingDayShare = 0.7

// InsightInput is everything the insight rules look at.
type InsightInput struct {
	Income          decimal.Decimal
	Expense         decimal.Decimal
	PreviousIncome  decimal.Decimal
	PreviousExpense decimal.Decimal
	OverspentCount  int
	OnTrackCount    int
	Daily           []core.DailyTrendPoint
}

// rule yields at most one insight.
type rule func(in InsightInput) (core.Insight, bool)

var rules = []rule{
	SavingsInsight,
	IncomeChangeInsight,
	ExpenseChangeInsight,
	BudgetInsight,
	OverspendingDaysInsight,
}

// GenerateInsights evaluates each rule independently, in a fixed order.
// The result is never nil.
func GenerateInsights(in InsightInput) []core.Insight {
	out := []core.Insight{}
	for _, r := range rules {
		if ins, ok := r(in); ok {
			out = append(out, ins)
		}
	}
	return out
}

func SavingsInsight(in InsightInput) (core.Insight, bool) {
	rate := SavingsRate(in.Income, in.Expense)
	switch {
	case rate >= 20:
		return core.Insight{
			Severity:    core.SeveritySuccess,
			Icon:        "trophy",
			Title:       "Excellent Savings!",
			Description: fmt.Sprintf("You're saving %.1f%% of your income this month. Keep up the great work!", rate),
		}, true
	case rate >= 10:
		return core.Insight{
			Severity:    core.SeverityInfo,
			Icon:        "piggy-bank",
			Title:       "Good Savings Rate",
			Description: fmt.Sprintf("You're saving %.1f%% of your income. Try to reach 20%% for optimal financial health.", rate),
		}, true
	case rate >= 0:
		return core.Insight{
			Severity:    core.SeverityWarning,
			Icon:        "exclamation-triangle",
			Title:       "Low Savings",
			Description: fmt.Sprintf("Your savings rate is only %.1f%%. Consider reducing expenses to improve your savings.", rate),
		}, true
	default:
		return core.Insight{
			Severity:    core.SeverityDanger,
			Icon:        "exclamation-circle",
			Title:       "Overspending Alert",
			Description: "You're spending more than you earn this month. Review your expenses immediately.",
		}, true
	}
}

func IncomeChangeInsight(in InsightInput) (core.Insight, bool) {
	if !in.PreviousIncome.IsPositive() {
		return core.Insight{}, false
	}
	change := GrowthRate(in.Income, in.PreviousIncome)
	switch {
	case change > 10:
		return core.Insight{
			Severity:    core.SeveritySuccess,
			Icon:        "graph-up-arrow",
			Title:       "Income Increase!",
			Description: fmt.Sprintf("Your income increased by %.1f%% compared to last month.", change),
		}, true
	case change < -10:
		return core.Insight{
			Severity:    core.SeverityWarning,
			Icon:        "graph-down-arrow",
			Title:       "Income Decrease",
			Description: fmt.Sprintf("Your income decreased by %.1f%% compared to last month.", math.Abs(change)),
		}, true
	}
	return core.Insight{}, false
}

func ExpenseChangeInsight(in InsightInput) (core.Insight, bool) {
	if !in.PreviousExpense.IsPositive() {
		return core.Insight{}, false
	}
	change := GrowthRate(in.Expense, in.PreviousExpense)
	switch {
	case change > 20:
		return core.Insight{
			Severity:    core.SeverityDanger,
			Icon:        "arrow-up-circle",
			Title:       "Expenses Spike",
			Description: fmt.Sprintf("Your expenses increased by %.1f%% compared to last month. Review your spending.", change),
		}, true
	case change < -10:
		return core.Insight{
			Severity:    core.SeveritySuccess,
			Icon:        "arrow-down-circle",
			Title:       "Expenses Reduced!",
			Description: fmt.Sprintf("Great job! You reduced expenses by %.1f%% compared to last month.", math.Abs(change)),
		}, true
	}
	return core.Insight{}, false
}

func BudgetInsight(in InsightInput) (core.Insight, bool) {
	switch {
	case in.OverspentCount > 0:
		return core.Insight{
			Severity:    core.SeverityDanger,
			Icon:        "wallet2",
			Title:       "Budget Alert",
			Description: fmt.Sprintf("You've exceeded %d budget(s) this month. Review your spending in those categories.", in.OverspentCount),
		}, true
	case in.OnTrackCount > 0:
		return core.Insight{
			Severity:    core.SeveritySuccess,
			Icon:        "check-circle",
			Title:       "Budgets On Track",
			Description: fmt.Sprintf("All %d of your budgets are within limits. Great financial discipline!", in.OnTrackCount),
		}, true
	}
	return core.Insight{}, false
}

func OverspendingDaysInsight(in InsightInput) (core.Insight, bool) {
	n := OverspendingDays(in.Daily)
	if n == 0 || float64(n) <= float64(len(in.Daily))*overspendingDayShare {
		return core.Insight{}, false
	}
	return core.Insight{
		Severity:    core.SeverityWarning,
		Icon:        "calendar-x",
		Title:       "Frequent Overspending Days",
		Description: fmt.Sprintf("You've had %d days where expenses exceeded income. Consider spreading purchases.", n),
	}, true
}
