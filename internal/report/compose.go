package report

import (
	"fmt"
	"strconv"
	"time"

	"bilancio/internal/core"

	"github.com/shopspring/decimal"
)

// AppName is printed in the header and footer of every document.
const AppName = "Bilancio"

// Color is an RGB triple.
type Color struct{ R, G, B int }

var (
	ColorTitle        = Color{48, 63, 159}
	ColorMuted        = Color{117, 117, 117}
	ColorRule         = Color{63, 81, 181}
	ColorFooter       = Color{158, 158, 158}
	ColorBorder       = Color{224, 224, 224}
	ColorBoxFill      = Color{245, 245, 245}
	ColorIncome       = Color{76, 175, 80}
	ColorExpense      = Color{244, 67, 54}
	ColorBalance      = Color{33, 150, 243}
	ColorHeadBudget   = Color{197, 202, 233}
	ColorHeadExpense  = Color{255, 205, 210}
	ColorHeadIncome   = Color{200, 230, 201}
	ColorOverBudget   = Color{255, 235, 238}
	ColorTotalIncome  = Color{232, 245, 233}
	ColorTotalNeutral = Color{232, 234, 246}
	ColorText         = Color{66, 66, 66}
)

type (
	Align string

	// Document is a renderer-agnostic report: a header plus titled sections.
	// GeneratedOn is Generated already formatted for the report locale.
	Document struct {
		Title       string
		Subtitle    string
		UserName    string
		Generated   time.Time
		GeneratedOn string
		Sections    []Section
	}

	// Section carries either summary boxes, a ranked list or a table.
	Section struct {
		Title      string
		TitleColor *Color
		Boxes      []Box
		Ranked     []RankedLine
		RankColor  Color
		Table      *Table
	}

	RankedLine struct {
		Rank   int
		Name   string
		Amount string
		Count  int
	}

	Box struct {
		Label string
		Value string
		Color Color
	}

	Table struct {
		Columns    []Column
		HeaderFill Color
		Rows       []Row
	}

	Column struct {
		Title  string
		Weight float64
		Align  Align
	}

	Row struct {
		Cells []Cell
		Fill  *Color
		Bold  bool
	}

	Cell struct {
		Text  string
		Color *Color
		// Span merges this cell with the following Span-1 columns.
		Span int
	}
)

const (
	AlignLeft   Align = "L"
	AlignCenter Align = "C"
	AlignRight  Align = "R"
)

// ComposeMonthly lays out a monthly report. Sections without data are left out.
func ComposeMonthly(m Monthly, loc core.Locale, generated time.Time) Document {
	doc := Document{
		Title:       "Monthly Financial Report",
		Subtitle:    loc.PeriodLabel(m.Period()),
		UserName:    m.UserName,
		Generated:   generated,
		GeneratedOn: generatedOn(generated, loc),
	}
	doc.Sections = append(doc.Sections, summarySection(m.Summary, loc))

	if len(m.Budgets) > 0 {
		doc.Sections = append(doc.Sections, budgetSection(m.Budgets, loc))
	}
	if len(m.Categories) > 0 {
		doc.Sections = append(doc.Sections, categorySection(m.Categories, loc))
	}
	if len(m.Incomes) > 0 {
		doc.Sections = append(doc.Sections, incomeSection(m.Incomes, m.Summary.Income, loc))
	}
	if len(m.Expenses) > 0 {
		doc.Sections = append(doc.Sections, expenseSection(m.Expenses, m.Summary.Expense, loc))
	}
	return doc
}

// ComposeYearly lays out a yearly report. Sections without data are left out.
func ComposeYearly(y Yearly, loc core.Locale, generated time.Time) Document {
	doc := Document{
		Title:       "Yearly Financial Report",
		Subtitle:    "Year " + strconv.Itoa(y.Year),
		UserName:    y.UserName,
		Generated:   generated,
		GeneratedOn: generatedOn(generated, loc),
	}
	doc.Sections = append(doc.Sections, summarySection(y.Summary, loc))

	if len(y.Months) > 0 {
		doc.Sections = append(doc.Sections, monthsSection(y, loc))
	}
	if len(y.Categories) > 0 {
		doc.Sections = append(doc.Sections, categorySection(y.Categories, loc))
	}
	if len(y.TopIncomeSources) > 0 {
		c := ColorIncome
		doc.Sections = append(doc.Sections, Section{Title: "Top Income Sources", TitleColor: &c, Ranked: rankedLines(y.TopIncomeSources, loc), RankColor: ColorIncome})
	}
	if len(y.TopExpenseCategories) > 0 {
		c := ColorExpense
		doc.Sections = append(doc.Sections, Section{Title: "Top Expense Categories", TitleColor: &c, Ranked: rankedLines(y.TopExpenseCategories, loc), RankColor: ColorExpense})
	}
	return doc
}

func summarySection(s Summary, loc core.Locale) Section {
	balanceColor := ColorBalance
	if s.Balance.IsNegative() {
		balanceColor = ColorExpense
	}
	return Section{Boxes: []Box{
		{Label: "Total Income", Value: loc.FormatMoney(s.Income), Color: ColorIncome},
		{Label: "Total Expenses", Value: loc.FormatMoney(s.Expense), Color: ColorExpense},
		{Label: "Balance", Value: loc.FormatMoney(s.Balance), Color: balanceColor},
		{Label: "Savings Rate", Value: loc.FormatPercent(s.SavingsRate, 1), Color: ColorTitle},
	}}
}

func budgetSection(statuses []core.BudgetStatus, loc core.Locale) Section {
	t := &Table{
		HeaderFill: ColorHeadBudget,
		Columns: []Column{
			{Title: "Category", Weight: 3, Align: AlignLeft},
			{Title: "Planned", Weight: 2, Align: AlignRight},
			{Title: "Spent", Weight: 2, Align: AlignRight},
			{Title: "Remaining", Weight: 2, Align: AlignRight},
			{Title: "Used", Weight: 1, Align: AlignRight},
		},
	}
	for _, s := range statuses {
		row := Row{Cells: []Cell{
			{Text: s.Budget.Category},
			{Text: loc.FormatMoney(s.Budget.PlannedAmount)},
			{Text: loc.FormatMoney(s.Spent)},
			{Text: loc.FormatMoney(s.Remaining), Color: signColor(s.Remaining)},
			{Text: loc.FormatPercent(s.UsedPercentage, 0)},
		}}
		if s.Overspent {
			fill := ColorOverBudget
			row.Fill = &fill
		}
		t.Rows = append(t.Rows, row)
	}
	return Section{Title: "Budget Overview", Table: t}
}

func categorySection(categories []core.CategoryBreakdown, loc core.Locale) Section {
	t := &Table{
		HeaderFill: ColorHeadExpense,
		Columns: []Column{
			{Title: "Category", Weight: 4, Align: AlignLeft},
			{Title: "Amount", Weight: 2, Align: AlignRight},
			{Title: "Count", Weight: 1, Align: AlignCenter},
			{Title: "Share", Weight: 1, Align: AlignRight},
		},
	}
	for _, c := range categories {
		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{Text: c.Category},
			{Text: loc.FormatMoney(c.Total)},
			{Text: strconv.Itoa(c.Count)},
			{Text: loc.FormatPercent(c.Percentage, 1)},
		}})
	}
	return Section{Title: "Expenses by Category", Table: t}
}

func incomeSection(incomes []core.Income, total decimal.Decimal, loc core.Locale) Section {
	t := &Table{
		HeaderFill: ColorHeadIncome,
		Columns: []Column{
			{Title: "Date", Weight: 1, Align: AlignLeft},
			{Title: "Title", Weight: 3, Align: AlignLeft},
			{Title: "Description", Weight: 3, Align: AlignLeft},
			{Title: "Amount", Weight: 2, Align: AlignRight},
		},
	}
	green := ColorIncome
	for _, in := range incomes {
		desc := in.Description
		if desc == "" {
			desc = "-"
		}
		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{Text: shortDate(in.Date, loc)},
			{Text: in.Title},
			{Text: desc},
			{Text: loc.FormatMoney(in.Amount), Color: &green},
		}})
	}
	fill := ColorTotalIncome
	t.Rows = append(t.Rows, Row{Bold: true, Fill: &fill, Cells: []Cell{
		{Text: "Total Income:", Span: 3},
		{Text: loc.FormatMoney(total), Color: &green},
	}})
	return Section{Title: "Income Transactions", Table: t}
}

func expenseSection(expenses []core.Expense, total decimal.Decimal, loc core.Locale) Section {
	t := &Table{
		HeaderFill: ColorHeadExpense,
		Columns: []Column{
			{Title: "Date", Weight: 1, Align: AlignLeft},
			{Title: "Title", Weight: 3, Align: AlignLeft},
			{Title: "Category", Weight: 3, Align: AlignLeft},
			{Title: "Amount", Weight: 2, Align: AlignRight},
		},
	}
	red := ColorExpense
	for _, e := range expenses {
		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{Text: shortDate(e.Date, loc)},
			{Text: e.Title},
			{Text: e.Category},
			{Text: loc.FormatMoney(e.Amount), Color: &red},
		}})
	}
	fill := ColorOverBudget
	t.Rows = append(t.Rows, Row{Bold: true, Fill: &fill, Cells: []Cell{
		{Text: "Total Expenses:", Span: 3},
		{Text: loc.FormatMoney(total), Color: &red},
	}})
	return Section{Title: "Expense Transactions", Table: t}
}

func monthsSection(y Yearly, loc core.Locale) Section {
	t := &Table{
		HeaderFill: ColorHeadBudget,
		Columns: []Column{
			{Title: "Month", Weight: 2, Align: AlignLeft},
			{Title: "Income", Weight: 2, Align: AlignRight},
			{Title: "Expenses", Weight: 2, Align: AlignRight},
			{Title: "Balance", Weight: 2, Align: AlignRight},
		},
	}
	green, red := ColorIncome, ColorExpense
	for _, m := range y.Months {
		t.Rows = append(t.Rows, Row{Cells: []Cell{
			{Text: loc.MonthName(m.Month)},
			{Text: loc.FormatMoney(m.Income), Color: &green},
			{Text: loc.FormatMoney(m.Expense), Color: &red},
			{Text: loc.FormatMoney(m.Balance), Color: signColor(m.Balance)},
		}})
	}
	fill := ColorTotalNeutral
	t.Rows = append(t.Rows, Row{Bold: true, Fill: &fill, Cells: []Cell{
		{Text: "Yearly Total"},
		{Text: loc.FormatMoney(y.Summary.Income), Color: &green},
		{Text: loc.FormatMoney(y.Summary.Expense), Color: &red},
		{Text: loc.FormatMoney(y.Summary.Balance), Color: signColor(y.Summary.Balance)},
	}})
	return Section{Title: "Monthly Breakdown", Table: t}
}

func rankedLines(items []TopItem, loc core.Locale) []RankedLine {
	out := make([]RankedLine, 0, len(items))
	for _, it := range items {
		out = append(out, RankedLine{Rank: it.Rank, Name: it.Name, Amount: loc.FormatMoney(it.Amount), Count: it.Count})
	}
	return out
}

func signColor(d decimal.Decimal) *Color {
	c := ColorIncome
	if d.IsNegative() {
		c = ColorExpense
	}
	return &c
}

func generatedOn(t time.Time, loc core.Locale) string {
	if t.IsZero() {
		return ""
	}
	return loc.MediumDate(t)
}

func shortDate(d core.Date, loc core.Locale) string {
	return fmt.Sprintf("%s %02d", loc.ShortMonth(d.Month()), d.Day())
}

// MonthlyFilename is the download name of a monthly PDF, e.g. MonthlyReport_March_2025.pdf.
func MonthlyFilename(p core.Period, loc core.Locale) string {
	return fmt.Sprintf("MonthlyReport_%s_%d.pdf", loc.MonthName(p.Month), p.Year)
}

func YearlyFilename(year int) string {
	return fmt.Sprintf("YearlyReport_%d.pdf", year)
}

// TransactionsFilename names a CSV export of one month, e.g. Transactions_March_2025.csv.
func TransactionsFilename(p core.Period, loc core.Locale) string {
	return fmt.Sprintf("Transactions_%s_%d.csv", loc.MonthName(p.Month), p.Year)
}
