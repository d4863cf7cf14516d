package report

import (
	"encoding/csv"
	"fmt"
	"io"
	"sort"
	"strconv"
	"time"

	"bilancio/internal/core"
)

// WriteMonthlyCSV writes a sectioned CSV export of a monthly report: summary,
// category breakdown and every transaction of the month, oldest first.
// Amounts are plain decimals so spreadsheets can sum them.
func WriteMonthlyCSV(w io.Writer, m Monthly, loc core.Locale, generated time.Time) error {
	cw := csv.NewWriter(w)

	header := [][]string{
		{"Monthly Financial Report"},
		{"Month", loc.PeriodLabel(m.Period())},
		{"User", m.UserName},
		{"Generated", generated.Format("2006-01-02 15:04:05")},
		{},
		{"SUMMARY"},
		{"Total Income", m.Summary.Income.StringFixed(2)},
		{"Total Expenses", m.Summary.Expense.StringFixed(2)},
		{"Balance", m.Summary.Balance.StringFixed(2)},
		{"Savings Rate", fmt.Sprintf("%.1f%%", m.Summary.SavingsRate)},
		{},
	}
	if err := cw.WriteAll(header); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}

	if len(m.Categories) > 0 {
		rows := [][]string{{"CATEGORY BREAKDOWN"}, {"Category", "Amount", "Count", "Percentage"}}
		for _, c := range m.Categories {
			rows = append(rows, []string{c.Category, c.Total.StringFixed(2), strconv.Itoa(c.Count), fmt.Sprintf("%.1f%%", c.Percentage)})
		}
		rows = append(rows, []string{})
		if err := cw.WriteAll(rows); err != nil {
			return fmt.Errorf("failed to write categories: %w", err)
		}
	}

	txs := make([]core.Transaction, 0, len(m.Incomes)+len(m.Expenses))
	desc := map[string]string{}
	for _, in := range m.Incomes {
		txs = append(txs, core.IncomeTransaction(in))
		desc[txKey(core.KindIncome, in.ID)] = in.Description
	}
	for _, e := range m.Expenses {
		txs = append(txs, core.ExpenseTransaction(e))
		desc[txKey(core.KindExpense, e.ID)] = e.Description
	}
	sort.SliceStable(txs, func(i, j int) bool {
		if !txs[i].Date.Equal(txs[j].Date.Time) {
			return txs[i].Date.Before(txs[j].Date.Time)
		}
		return txs[i].CreatedAt.Before(txs[j].CreatedAt)
	})

	rows := [][]string{{"TRANSACTIONS"}, {"Date", "Type", "Title", "Category", "Amount", "Description"}}
	for _, tx := range txs {
		amount := tx.Amount
		if tx.Kind == core.KindExpense {
			amount = amount.Neg()
		}
		rows = append(rows, []string{
			tx.Date.String(),
			string(tx.Kind),
			tx.Title,
			tx.Category,
			amount.StringFixed(2),
			desc[txKey(tx.Kind, tx.ID)],
		})
	}
	// WriteAll flushes.
	if err := cw.WriteAll(rows); err != nil {
		return fmt.Errorf("failed to write transactions: %w", err)
	}
	return nil
}

func txKey(kind core.EntryKind, id int64) string {
	return string(kind) + ":" + strconv.FormatInt(id, 10)
}
