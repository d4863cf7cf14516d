package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strings"
	"testing"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

var (
	march     = core.Period{Year: 2025, Month: time.March}
	ada       = core.User{ID: "u1", FirstName: "Ada", LastName: "Lovelace"}
	generated = time.Date(2025, 4, 2, 10, 0, 0, 0, time.UTC)
)

func fixtures() ([]core.Income, []core.Expense, []core.Budget) {
	created := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	incomes := []core.Income{
		{ID: 1, UserID: "u1", Title: "Salary", Amount: dec("3000"), Date: core.NewDate(2025, time.March, 1), CreatedAt: created},
		{ID: 2, UserID: "u1", Title: "Freelance", Amount: dec("500"), Date: core.NewDate(2025, time.March, 20), Description: "logo", CreatedAt: created},
		{ID: 3, UserID: "u1", Title: "Salary", Amount: dec("3000"), Date: core.NewDate(2025, time.February, 1), CreatedAt: created},
	}
	expenses := []core.Expense{
		{ID: 1, UserID: "u1", Title: "Rent", Amount: dec("1200"), Date: core.NewDate(2025, time.March, 2), Category: "Home & Rent", CreatedAt: created},
		{ID: 2, UserID: "u1", Title: "Groceries", Amount: dec("250.50"), Date: core.NewDate(2025, time.March, 9), Category: "Food & Dining", CreatedAt: created},
		{ID: 3, UserID: "u1", Title: "Dinner", Amount: dec("80"), Date: core.NewDate(2025, time.March, 9), Category: "Food & Dining", CreatedAt: created.Add(time.Hour)},
		{ID: 4, UserID: "u1", Title: "Train", Amount: dec("40"), Date: core.NewDate(2025, time.January, 15), Category: "Transportation", CreatedAt: created},
	}
	budgets := []core.Budget{
		{ID: 1, UserID: "u1", Category: "Food & Dining", PlannedAmount: dec("300"), Month: 3, Year: 2025},
		{ID: 2, UserID: "u1", Category: "Home & Rent", PlannedAmount: dec("1500"), Month: 3, Year: 2025},
		{ID: 3, UserID: "u1", Category: "Travel", PlannedAmount: dec("100"), Month: 4, Year: 2025},
	}
	return incomes, expenses, budgets
}

func TestBuildMonthly(t *testing.T) {
	incomes, expenses, budgets := fixtures()
	m := BuildMonthly(march, ada, incomes, expenses, budgets, core.English)

	assert.Equal(t, "March", m.MonthName)
	assert.Equal(t, "Ada Lovelace", m.UserName)
	assert.True(t, dec("3500").Equal(m.Summary.Income))
	assert.True(t, dec("1530.50").Equal(m.Summary.Expense))
	assert.True(t, dec("1969.50").Equal(m.Summary.Balance))
	assert.InDelta(t, 56.27, m.Summary.SavingsRate, 0.01)
	assert.Equal(t, 2, m.IncomeCount)
	assert.Equal(t, 3, m.ExpenseCount)

	assert.True(t, dec("1800").Equal(m.TotalBudget))
	assert.True(t, dec("1530.50").Equal(m.BudgetUsed))
	require.Len(t, m.Budgets, 2)
	assert.Equal(t, "Food & Dining", m.Budgets[0].Budget.Category)
	assert.True(t, m.Budgets[0].Overspent)
	assert.True(t, dec("-30.50").Equal(m.Budgets[0].Remaining))
	assert.False(t, m.Budgets[1].Overspent)

	require.Len(t, m.Categories, 2)
	assert.Equal(t, "Home & Rent", m.Categories[0].Category)

	// newest first, later creation wins on the same day
	require.Len(t, m.Expenses, 3)
	assert.Equal(t, "Dinner", m.Expenses[0].Title)
	assert.Equal(t, "Groceries", m.Expenses[1].Title)
	assert.Equal(t, "Rent", m.Expenses[2].Title)
	assert.Equal(t, "Freelance", m.Incomes[0].Title)
}

func TestBuildMonthlyEmpty(t *testing.T) {
	m := BuildMonthly(march, ada, nil, nil, nil, core.English)
	assert.True(t, m.Summary.Income.IsZero())
	assert.Zero(t, m.Summary.SavingsRate)
	assert.Zero(t, m.BudgetUsedPercentage)
	assert.Empty(t, m.Budgets)
	assert.NotNil(t, m.Categories)
}

func TestBuildYearly(t *testing.T) {
	incomes, expenses, _ := fixtures()
	incomes = append(incomes, core.Income{UserID: "u1", Title: "Bonus", Amount: dec("10"), Date: core.NewDate(2024, time.December, 24)})

	y := BuildYearly(2025, ada, incomes, expenses, core.English)

	assert.True(t, dec("6500").Equal(y.Summary.Income))
	assert.True(t, dec("1570.50").Equal(y.Summary.Expense))
	assert.Equal(t, 3, y.IncomeCount)
	assert.Equal(t, 4, y.ExpenseCount)

	require.Len(t, y.Months, 12)
	assert.Equal(t, "Jan", y.Months[0].MonthName)
	assert.True(t, dec("-40").Equal(y.Months[0].Balance))
	assert.True(t, dec("3000").Equal(y.Months[1].Income))
	assert.Equal(t, 2, y.Months[2].IncomeCount)
	assert.True(t, y.Months[11].Income.IsZero())

	require.Len(t, y.TopIncomeSources, 2)
	assert.Equal(t, TopItem{Rank: 1, Name: "Salary", Amount: y.TopIncomeSources[0].Amount, Count: 2}, y.TopIncomeSources[0])
	assert.True(t, dec("6000").Equal(y.TopIncomeSources[0].Amount))
	assert.Equal(t, "Freelance", y.TopIncomeSources[1].Name)

	require.Len(t, y.TopExpenseCategories, 3)
	assert.Equal(t, "Home & Rent", y.TopExpenseCategories[0].Name)
	assert.Equal(t, 3, y.TopExpenseCategories[2].Rank)
}

func sectionTitles(doc Document) []string {
	var out []string
	for _, s := range doc.Sections {
		out = append(out, s.Title)
	}
	return out
}

func TestComposeMonthlyOmitsEmptySections(t *testing.T) {
	incomes, expenses, budgets := fixtures()

	full := ComposeMonthly(BuildMonthly(march, ada, incomes, expenses, budgets, core.English), core.English, generated)
	assert.Equal(t, "Monthly Financial Report", full.Title)
	assert.Equal(t, "March 2025", full.Subtitle)
	assert.Equal(t, []string{"", "Budget Overview", "Expenses by Category", "Income Transactions", "Expense Transactions"}, sectionTitles(full))

	noBudgets := ComposeMonthly(BuildMonthly(march, ada, incomes, expenses, nil, core.English), core.English, generated)
	assert.NotContains(t, sectionTitles(noBudgets), "Budget Overview")

	empty := ComposeMonthly(BuildMonthly(march, ada, nil, nil, nil, core.English), core.English, generated)
	require.Len(t, empty.Sections, 1)
	require.Len(t, empty.Sections[0].Boxes, 4)
	assert.Equal(t, "$0.00", empty.Sections[0].Boxes[0].Value)
	assert.Equal(t, "0.0%", empty.Sections[0].Boxes[3].Value)
}

func TestComposeMonthlyRows(t *testing.T) {
	incomes, expenses, budgets := fixtures()
	doc := ComposeMonthly(BuildMonthly(march, ada, incomes, expenses, budgets, core.English), core.English, generated)

	budget := doc.Sections[1].Table
	require.Len(t, budget.Rows, 2)
	require.NotNil(t, budget.Rows[0].Fill)
	assert.Equal(t, ColorOverBudget, *budget.Rows[0].Fill)
	assert.Equal(t, "110%", budget.Rows[0].Cells[4].Text)
	assert.Nil(t, budget.Rows[1].Fill)

	income := doc.Sections[3].Table
	require.Len(t, income.Rows, 3)
	assert.Equal(t, "Mar 20", income.Rows[0].Cells[0].Text)
	assert.Equal(t, "-", income.Rows[1].Cells[2].Text)
	total := income.Rows[2]
	assert.True(t, total.Bold)
	assert.Equal(t, "Total Income:", total.Cells[0].Text)
	assert.Equal(t, 3, total.Cells[0].Span)
	assert.Equal(t, "$3,500.00", total.Cells[1].Text)

	balance := doc.Sections[0].Boxes[2]
	assert.Equal(t, ColorBalance, balance.Color)
}

func TestComposeYearly(t *testing.T) {
	incomes, expenses, _ := fixtures()
	doc := ComposeYearly(BuildYearly(2025, ada, incomes, expenses, core.English), core.English, generated)

	assert.Equal(t, "Year 2025", doc.Subtitle)
	assert.Equal(t, "Apr 02, 2025", doc.GeneratedOn)
	assert.Equal(t, []string{"", "Monthly Breakdown", "Expenses by Category", "Top Income Sources", "Top Expense Categories"}, sectionTitles(doc))

	months := doc.Sections[1].Table
	require.Len(t, months.Rows, 13)
	assert.Equal(t, "January", months.Rows[0].Cells[0].Text)
	assert.Equal(t, "Yearly Total", months.Rows[12].Cells[0].Text)

	top := doc.Sections[3].Ranked
	require.NotEmpty(t, top)
	assert.Equal(t, RankedLine{Rank: 1, Name: "Salary", Amount: "$6,000.00", Count: 2}, top[0])
}

func TestComposeNegativeBalance(t *testing.T) {
	expenses := []core.Expense{{UserID: "u1", Title: "TV", Amount: dec("900"), Date: core.NewDate(2025, time.March, 3), Category: "Shopping"}}
	doc := ComposeMonthly(BuildMonthly(march, ada, nil, expenses, nil, core.English), core.English, generated)
	balance := doc.Sections[0].Boxes[2]
	assert.Equal(t, "-$900.00", balance.Value)
	assert.Equal(t, ColorExpense, balance.Color)
}

func TestRenderPDF(t *testing.T) {
	incomes, expenses, budgets := fixtures()
	it := core.Italian

	for name, doc := range map[string]Document{
		"monthly": ComposeMonthly(BuildMonthly(march, ada, incomes, expenses, budgets, it), it, generated),
		"yearly":  ComposeYearly(BuildYearly(2025, ada, incomes, expenses, it), it, generated),
		"empty":   ComposeMonthly(BuildMonthly(march, ada, nil, nil, nil, it), it, generated),
	} {
		t.Run(name, func(t *testing.T) {
			out, err := RenderPDF(doc)
			require.NoError(t, err)
			assert.True(t, bytes.HasPrefix(out, []byte("%PDF")))
			assert.True(t, bytes.Contains(out, []byte("%%EOF")))
		})
	}
}

func TestRenderPDFPaginatesLongTables(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 120; i++ {
		expenses = append(expenses, core.Expense{
			ID: int64(i + 1), UserID: "u1", Title: strings.Repeat("x", 80), Amount: dec("1.50"),
			Date: core.NewDate(2025, time.March, 1+i%28), Category: "Other",
		})
	}
	doc := ComposeMonthly(BuildMonthly(march, ada, nil, expenses, nil, core.English), core.English, generated)
	out, err := RenderPDF(doc)
	require.NoError(t, err)
	assert.Greater(t, bytes.Count(out, []byte("/Type /Page\n")), 2)
}

func TestRenderPDFFooterAndPageSize(t *testing.T) {
	var expenses []core.Expense
	for i := 0; i < 120; i++ {
		expenses = append(expenses, core.Expense{
			ID: int64(i + 1), UserID: "u1", Title: "Coffee", Amount: dec("1234.50"),
			Date: core.NewDate(2025, time.March, 1+i%28), Category: "Food & Dining",
		})
	}
	it := core.Italian
	june := time.Date(2025, time.June, 5, 9, 0, 0, 0, time.UTC)
	doc := ComposeMonthly(BuildMonthly(march, ada, nil, expenses, nil, it), it, june)
	require.Equal(t, "Giu 05, 2025", doc.GeneratedOn)

	out, err := render(doc, false)
	require.NoError(t, err)

	pages := bytes.Count(out, []byte("/Type /Page\n"))
	require.Greater(t, pages, 2)
	assert.Contains(t, string(out), fmt.Sprintf("(Page 1 of %d)", pages))
	assert.Contains(t, string(out), fmt.Sprintf("(Page %d of %d)", pages, pages))
	assert.NotContains(t, string(out), "{nb}")
	assert.Contains(t, string(out), "595.28 841.89", "A4 media box")
	assert.Contains(t, string(out), "Generated: Giu 05, 2025")
	// cp1252 euro sign
	assert.True(t, bytes.Contains(out, []byte("\x801.234,50")))
}

func TestFilenames(t *testing.T) {
	assert.Equal(t, "MonthlyReport_March_2025.pdf", MonthlyFilename(march, core.English))
	assert.Equal(t, "MonthlyReport_Marzo_2025.pdf", MonthlyFilename(march, core.Italian))
	assert.Equal(t, "YearlyReport_2025.pdf", YearlyFilename(2025))
	assert.Equal(t, "Transactions_March_2025.csv", TransactionsFilename(march, core.English))
}

func TestWriteMonthlyCSV(t *testing.T) {
	incomes, expenses, budgets := fixtures()
	m := BuildMonthly(march, ada, incomes, expenses, budgets, core.English)

	var buf bytes.Buffer
	require.NoError(t, WriteMonthlyCSV(&buf, m, core.English, generated))

	r := csv.NewReader(&buf)
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	require.NoError(t, err)

	assert.Equal(t, []string{"Month", "March 2025"}, records[1])
	assert.Contains(t, records, []string{"Total Income", "3500.00"})
	assert.Contains(t, records, []string{"Food & Dining", "330.50", "2", "21.6%"})

	var txRows [][]string
	for i, rec := range records {
		if len(rec) > 0 && rec[0] == "Date" {
			txRows = records[i+1:]
		}
	}
	require.Len(t, txRows, 5)
	assert.Equal(t, []string{"2025-03-01", "income", "Salary", "", "3000.00", ""}, txRows[0])
	assert.Equal(t, []string{"2025-03-02", "expense", "Rent", "Home & Rent", "-1200.00", ""}, txRows[1])
	assert.Equal(t, []string{"2025-03-20", "income", "Freelance", "", "500.00", "logo"}, txRows[4])
}
