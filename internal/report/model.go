// Package report turns ledger records into monthly and yearly report data,
// composes that data into a paginated document and renders it as PDF or CSV.
//
// Nothing here touches a store: callers load the records and pass them in.
package report

import (
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// TopItems caps the ranked lists of the yearly report.
const TopItems = 5

type (
	// Summary is the four-figure block at the top of every report.
	Summary struct {
		Income      decimal.Decimal `json:"income"`
		Expense     decimal.Decimal `json:"expense"`
		Balance     decimal.Decimal `json:"balance"`
		SavingsRate float64         `json:"savings_rate"`
	}

	// MonthSummary is one row of the yearly monthly breakdown or the reports index.
	MonthSummary struct {
		Year         int             `json:"year"`
		Month        time.Month      `json:"month"`
		MonthName    string          `json:"month_name"`
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
		Balance      decimal.Decimal `json:"balance"`
		IncomeCount  int             `json:"income_count"`
		ExpenseCount int             `json:"expense_count"`
	}

	// TopItem is a ranked group: an income title or an expense category.
	TopItem struct {
		Rank   int             `json:"rank"`
		Name   string          `json:"name"`
		Amount decimal.Decimal `json:"amount"`
		Count  int             `json:"count"`
	}

	Monthly struct {
		Year      int        `json:"year"`
		Month     time.Month `json:"month"`
		MonthName string     `json:"month_name"`
		UserName  string     `json:"user_name"`

		Summary      Summary `json:"summary"`
		IncomeCount  int     `json:"income_count"`
		ExpenseCount int     `json:"expense_count"`

		TotalBudget          decimal.Decimal `json:"total_budget"`
		BudgetUsed           decimal.Decimal `json:"budget_used"`
		BudgetUsedPercentage float64         `json:"budget_used_percentage"`

		Budgets    []core.BudgetStatus      `json:"budgets"`
		Categories []core.CategoryBreakdown `json:"categories"`
		Incomes    []core.Income            `json:"incomes"`
		Expenses   []core.Expense           `json:"expenses"`
	}

	Yearly struct {
		Year     int    `json:"year"`
		UserName string `json:"user_name"`

		Summary      Summary `json:"summary"`
		IncomeCount  int     `json:"income_count"`
		ExpenseCount int     `json:"expense_count"`

		Months               []MonthSummary           `json:"months"`
		Categories           []core.CategoryBreakdown `json:"categories"`
		TopIncomeSources     []TopItem                `json:"top_income_sources"`
		TopExpenseCategories []TopItem                `json:"top_expense_categories"`
	}
)

// Period is the month the report covers.
func (m Monthly) Period() core.Period {
	return core.Period{Year: m.Year, Month: m.Month}
}
