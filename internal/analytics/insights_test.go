package analytics

import (
	"testing"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func days(pairs ...[2]string) []core.DailyTrendPoint {
	out := make([]core.DailyTrendPoint, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, core.DailyTrendPoint{Income: dec(p[0]), Expense: dec(p[1])})
	}
	return out
}

func TestSavingsInsight(t *testing.T) {
	cases := []struct {
		income, expense string
		severity        core.Severity
		title           string
	}{
		{"1000", "750", core.SeveritySuccess, "Excellent Savings!"},
		{"1000", "800", core.SeveritySuccess, "Excellent Savings!"},
		{"1000", "850", core.SeverityInfo, "Good Savings Rate"},
		{"1000", "1000", core.SeverityWarning, "Low Savings"},
		{"0", "0", core.SeverityWarning, "Low Savings"},
		{"1000", "1100", core.SeverityDanger, "Overspending Alert"},
	}
	for _, tc := range cases {
		t.Run(tc.income+"/"+tc.expense, func(t *testing.T) {
			ins, ok := SavingsInsight(InsightInput{Income: dec(tc.income), Expense: dec(tc.expense)})
			require.True(t, ok)
			assert.Equal(t, tc.severity, ins.Severity)
			assert.Equal(t, tc.title, ins.Title)
		})
	}

	ins, _ := SavingsInsight(InsightInput{Income: dec("1000"), Expense: dec("750")})
	assert.Equal(t, "You're saving 25.0% of your income this month. Keep up the great work!", ins.Description)
	assert.Equal(t, "trophy", ins.Icon)
}

func TestChangeInsights(t *testing.T) {
	_, ok := IncomeChangeInsight(InsightInput{Income: dec("500"), PreviousIncome: decimal.Zero})
	assert.False(t, ok, "no prior income, no insight")

	up, ok := IncomeChangeInsight(InsightInput{Income: dec("1200"), PreviousIncome: dec("1000")})
	require.True(t, ok)
	assert.Equal(t, "Income Increase!", up.Title)
	assert.Equal(t, "Your income increased by 20.0% compared to last month.", up.Description)

	down, ok := IncomeChangeInsight(InsightInput{Income: dec("800"), PreviousIncome: dec("1000")})
	require.True(t, ok)
	assert.Equal(t, core.SeverityWarning, down.Severity)
	assert.Equal(t, "Your income decreased by 20.0% compared to last month.", down.Description)

	_, ok = IncomeChangeInsight(InsightInput{Income: dec("1100"), PreviousIncome: dec("1000")})
	assert.False(t, ok, "exactly +10% is within the quiet band")

	spike, ok := ExpenseChangeInsight(InsightInput{Expense: dec("130"), PreviousExpense: dec("100")})
	require.True(t, ok)
	assert.Equal(t, "Expenses Spike", spike.Title)
	assert.Equal(t, core.SeverityDanger, spike.Severity)

	_, ok = ExpenseChangeInsight(InsightInput{Expense: dec("115"), PreviousExpense: dec("100")})
	assert.False(t, ok)

	reduced, ok := ExpenseChangeInsight(InsightInput{Expense: dec("50"), PreviousExpense: dec("100")})
	require.True(t, ok)
	assert.Equal(t, "Great job! You reduced expenses by 50.0% compared to last month.", reduced.Description)
}

func TestBudgetInsight(t *testing.T) {
	alert, ok := BudgetInsight(InsightInput{OverspentCount: 2, OnTrackCount: 3})
	require.True(t, ok)
	assert.Equal(t, "Budget Alert", alert.Title)
	assert.Contains(t, alert.Description, "exceeded 2 budget(s)")

	fine, ok := BudgetInsight(InsightInput{OnTrackCount: 3})
	require.True(t, ok)
	assert.Equal(t, "All 3 of your budgets are within limits. Great financial discipline!", fine.Description)

	_, ok = BudgetInsight(InsightInput{})
	assert.False(t, ok)
}

func TestOverspendingDaysInsight(t *testing.T) {
	// 3 of 4 days over: 75% > 70%
	frequent := days([2]string{"0", "10"}, [2]string{"5", "10"}, [2]string{"0", "1"}, [2]string{"100", "0"})
	ins, ok := OverspendingDaysInsight(InsightInput{Daily: frequent})
	require.True(t, ok)
	assert.Equal(t, "You've had 3 days where expenses exceeded income. Consider spreading purchases.", ins.Description)

	// 7 of 10 days over is not above 70%
	var seven []core.DailyTrendPoint
	for i := 0; i < 10; i++ {
		if i < 7 {
			seven = append(seven, days([2]string{"0", "1"})...)
		} else {
			seven = append(seven, days([2]string{"0", "0"})...)
		}
	}
	_, ok = OverspendingDaysInsight(InsightInput{Daily: seven})
	assert.False(t, ok)

	_, ok = OverspendingDaysInsight(InsightInput{})
	assert.False(t, ok)
}

func TestGenerateInsightsOrder(t *testing.T) {
	in := InsightInput{
		Income:          dec("1000"),
		Expense:         dec("1100"),
		PreviousIncome:  dec("2000"),
		PreviousExpense: dec("500"),
		OverspentCount:  1,
		Daily:           days([2]string{"0", "10"}),
	}
	got := GenerateInsights(in)

	titles := make([]string, 0, len(got))
	for _, i := range got {
		titles = append(titles, i.Title)
	}
	assert.Equal(t, []string{
		"Overspending Alert",
		"Income Decrease",
		"Expenses Spike",
		"Budget Alert",
		"Frequent Overspending Days",
	}, titles)

	assert.NotNil(t, GenerateInsights(InsightInput{Income: dec("100")}))
}
