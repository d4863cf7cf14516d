package services

import (
	"bytes"
	"context"
	"testing"
	"time"

	"bilancio/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestReportService_Index(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)
	svc := NewReportService(f.store, core.English, nil).WithClock(fixedNow)

	idx, err := svc.Index(ctx, f.ada.ID, 0)
	require.NoError(t, err)

	assert.Equal(t, 2025, idx.Year)
	assert.Equal(t, march, idx.Period)
	assert.Equal(t, "March", idx.MonthName)
	assert.True(t, dec("3000").Equal(idx.MonthIncome.Amount))
	assert.Equal(t, 2, idx.MonthExpense.Count)
	assert.True(t, dec("5500").Equal(idx.YearIncome.Amount))
	assert.True(t, dec("1600").Equal(idx.YearExpense.Amount))
	require.Len(t, idx.Categories, 2)
	assert.Equal(t, "Home & Rent", idx.Categories[0].Category)

	require.Len(t, idx.Months, 12)
	assert.Equal(t, time.February, idx.Months[1].Month)
	assert.True(t, dec("2500").Equal(idx.Months[1].Income))
	assert.True(t, dec("1500").Equal(idx.Months[2].Expense))
	assert.True(t, idx.Months[11].Income.IsZero())
	assert.Equal(t, []int{2025, 2024}, idx.AvailableYears)

	past, err := svc.Index(ctx, f.ada.ID, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, past.Year)
	assert.True(t, dec("999").Equal(past.Months[11].Income))
	// The current-month figures do not follow the selected year.
	assert.True(t, dec("3000").Equal(past.MonthIncome.Amount))

	_, err = svc.Index(ctx, f.ada.ID, 1999)
	assert.Equal(t, []string{"year"}, validationFields(t, err))
}

func TestReportService_AvailableYears(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	svc := NewReportService(f.store, core.English, nil).WithClock(fixedNow)

	idx, err := svc.Index(ctx, f.bob.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2025}, idx.AvailableYears)

	f.income(t, f.bob.ID, "Gift", "50", core.NewDate(2022, time.June, 1))
	f.income(t, f.bob.ID, "Gift", "50", core.NewDate(2023, time.June, 1))
	idx, err = svc.Index(ctx, f.bob.ID, 0)
	require.NoError(t, err)
	assert.Equal(t, []int{2025, 2023, 2022}, idx.AvailableYears)
}

func TestReportService_MonthlyAndYearly(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)
	svc := NewReportService(f.store, core.English, nil).WithClock(fixedNow)

	m, err := svc.Monthly(ctx, f.ada.ID, march)
	require.NoError(t, err)
	assert.Equal(t, "Ada Test", m.UserName)
	assert.Equal(t, "March", m.MonthName)
	assert.True(t, dec("3000").Equal(m.Summary.Income))
	assert.True(t, dec("1500").Equal(m.Summary.Balance))
	assert.Len(t, m.Budgets, 2)
	assert.Len(t, m.Expenses, 2)

	y, err := svc.Yearly(ctx, f.ada.ID, 2025)
	require.NoError(t, err)
	assert.True(t, dec("5500").Equal(y.Summary.Income))
	assert.Len(t, y.Months, 12)
	require.NotEmpty(t, y.TopIncomeSources)
	assert.Equal(t, "Salary", y.TopIncomeSources[0].Name)

	_, err = svc.Monthly(ctx, "missing", march)
	assert.ErrorIs(t, err, core.ErrNotFound)

	_, err = svc.Monthly(ctx, f.ada.ID, core.Period{Year: 2025, Month: 13})
	assert.Equal(t, []string{"month"}, validationFields(t, err))

	_, err = svc.Yearly(ctx, f.ada.ID, 2101)
	assert.Equal(t, []string{"year"}, validationFields(t, err))
}

func TestReportService_Exports(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	seedMonths(t, f)
	svc := NewReportService(f.store, core.English, nil).WithClock(fixedNow)

	pdf, err := svc.MonthlyPDF(ctx, f.ada.ID, march)
	require.NoError(t, err)
	assert.Equal(t, "MonthlyReport_March_2025.pdf", pdf.Filename)
	assert.Equal(t, ContentTypePDF, pdf.ContentType)
	assert.True(t, bytes.HasPrefix(pdf.Body, []byte("%PDF")))

	yearly, err := svc.YearlyPDF(ctx, f.ada.ID, 2025)
	require.NoError(t, err)
	assert.Equal(t, "YearlyReport_2025.pdf", yearly.Filename)
	assert.True(t, bytes.HasPrefix(yearly.Body, []byte("%PDF")))

	csv, err := svc.MonthlyCSV(ctx, f.ada.ID, march)
	require.NoError(t, err)
	assert.Equal(t, "Transactions_March_2025.csv", csv.Filename)
	assert.Equal(t, ContentTypeCSV, csv.ContentType)
	assert.Contains(t, string(csv.Body), "Groceries")
	assert.NotContains(t, string(csv.Body), "Bonus")

	it := NewReportService(f.store, core.Italian, nil).WithClock(fixedNow)
	pdf, err = it.MonthlyPDF(ctx, f.ada.ID, march)
	require.NoError(t, err)
	assert.Equal(t, "MonthlyReport_Marzo_2025.pdf", pdf.Filename)
}
