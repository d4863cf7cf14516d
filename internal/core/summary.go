package core

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityDanger  Severity = "danger"
)

// Aggregates computed from ledger records. None of these are persisted.
type (
	Severity string

	// CategoryTotal is one group-by row: a category with its sum and count.
	CategoryTotal struct {
		Category string          `json:"category"`
		Total    decimal.Decimal `json:"total"`
		Count    int             `json:"count"`
	}

	CategoryBreakdown struct {
		Category   string          `json:"category"`
		Total      decimal.Decimal `json:"total"`
		Count      int             `json:"count"`
		Percentage float64         `json:"percentage"`
	}

	MonthlyTrendPoint struct {
		Year         int             `json:"year"`
		Month        time.Month      `json:"month"`
		Label        string          `json:"label"`
		Income       decimal.Decimal `json:"income"`
		Expense      decimal.Decimal `json:"expense"`
		Balance      decimal.Decimal `json:"balance"`
		SavingsRate  float64         `json:"savings_rate"`
		IncomeCount  int             `json:"income_count,omitempty"`
		ExpenseCount int             `json:"expense_count,omitempty"`
		NewUsers     int             `json:"new_users,omitempty"`
	}

	DailyTrendPoint struct {
		Date    Date            `json:"date"`
		Income  decimal.Decimal `json:"income"`
		Expense decimal.Decimal `json:"expense"`
	}

	BudgetStatus struct {
		Budget         Budget          `json:"budget"`
		Spent          decimal.Decimal `json:"spent"`
		Remaining      decimal.Decimal `json:"remaining"`
		UsedPercentage float64         `json:"used_percentage"`
		Overspent      bool            `json:"overspent"`
	}

	CategoryTrend struct {
		Category         string          `json:"category"`
		Current          decimal.Decimal `json:"current"`
		Previous         decimal.Decimal `json:"previous"`
		ChangePercentage float64         `json:"change_percentage"`
		Increased        bool            `json:"increased"`
	}

	Insight struct {
		Severity    Severity `json:"severity"`
		Icon        string   `json:"icon"`
		Title       string   `json:"title"`
		Description string   `json:"description"`
	}

	// Transaction is an income or expense flattened for recent-activity lists.
	Transaction struct {
		ID        int64           `json:"id"`
		Kind      EntryKind       `json:"kind"`
		Title     string          `json:"title"`
		Amount    decimal.Decimal `json:"amount"`
		Date      Date            `json:"date"`
		Category  string          `json:"category,omitempty"`
		CreatedAt time.Time       `json:"-"`
	}

	// Totals is a sum with the number of rows that produced it.
	Totals struct {
		Amount decimal.Decimal `json:"amount"`
		Count  int             `json:"count"`
	}
)

func IncomeTransaction(i Income) Transaction {
	return Transaction{ID: i.ID, Kind: KindIncome, Title: i.Title, Amount: i.Amount, Date: i.Date, CreatedAt: i.CreatedAt}
}

func ExpenseTransaction(e Expense) Transaction {
	return Transaction{ID: e.ID, Kind: KindExpense, Title: e.Title, Amount: e.Amount, Date: e.Date, Category: e.Category, CreatedAt: e.CreatedAt}
}
