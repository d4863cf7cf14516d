package services

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"
	"bilancio/internal/report"

	"golang.org/x/sync/errgroup"
)

// indexConcurrency bounds the per-month aggregate queries of the reports index.
const indexConcurrency = 4

type (
	ReportIndex struct {
		Year      int         `json:"year"`
		Period    core.Period `json:"period"`
		MonthName string      `json:"month_name"`

		MonthIncome  core.Totals `json:"month_income"`
		MonthExpense core.Totals `json:"month_expense"`
		YearIncome   core.Totals `json:"year_income"`
		YearExpense  core.Totals `json:"year_expense"`

		Categories     []core.CategoryBreakdown `json:"categories"`
		Months         []report.MonthSummary    `json:"months"`
		AvailableYears []int                    `json:"available_years"`
	}

	// Export is a rendered file ready to be served or archived.
	Export struct {
		Filename    string
		ContentType string
		Body        []byte
	}
)

const (
	ContentTypePDF = "application/pdf"
	ContentTypeCSV = "text/csv"
)

type ReportService struct {
	clock
	store  ledger.Store
	loc    core.Locale
	logger *applog.Logger
}

func NewReportService(store ledger.Store, loc core.Locale, logger *applog.Logger) *ReportService {
	if logger == nil {
		logger = applog.Nop()
	}
	return &ReportService{
		clock:  clock{now: time.Now},
		store:  store,
		loc:    loc,
		logger: logger.WithComponent(applog.ComponentReport),
	}
}

func (s *ReportService) WithClock(now func() time.Time) *ReportService {
	s.now = now
	return s
}

// Today is the reference date the service resolves default periods against.
func (s *ReportService) Today() core.Date { return s.today() }

// Index summarises the current month and year and the twelve months of year
// (the current year when 0).
func (s *ReportService) Index(ctx context.Context, userID string, year int) (ReportIndex, error) {
	today := s.today()
	current := today.Period()
	if year == 0 {
		year = current.Year
	}
	if err := checkYear(year); err != nil {
		return ReportIndex{}, err
	}

	idx := ReportIndex{
		Year:      year,
		Period:    current,
		MonthName: s.loc.MonthName(current.Month),
		Months:    make([]report.MonthSummary, 12),
	}
	monthF := ledger.Filter{UserID: userID, Range: ledger.MonthRange(current)}
	yearF := ledger.Filter{UserID: userID, Range: ledger.YearRange(current.Year)}

	var groups []ledger.Group
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(indexConcurrency)
	g.Go(func() (err error) {
		idx.MonthIncome, err = s.store.SumIncomes(gctx, monthF)
		return err
	})
	g.Go(func() (err error) {
		idx.MonthExpense, err = s.store.SumExpenses(gctx, monthF)
		return err
	})
	g.Go(func() (err error) {
		idx.YearIncome, err = s.store.SumIncomes(gctx, yearF)
		return err
	})
	g.Go(func() (err error) {
		idx.YearExpense, err = s.store.SumExpenses(gctx, yearF)
		return err
	})
	g.Go(func() (err error) {
		groups, err = s.store.ExpensesByCategory(gctx, monthF)
		return err
	})
	g.Go(func() (err error) {
		idx.AvailableYears, err = s.availableYears(gctx, userID, current.Year)
		return err
	})
	for m := time.January; m <= time.December; m++ {
		p := core.Period{Year: year, Month: m}
		g.Go(func() error {
			f := ledger.Filter{UserID: userID, Range: ledger.MonthRange(p)}
			income, err := s.store.SumIncomes(gctx, f)
			if err != nil {
				return err
			}
			expense, err := s.store.SumExpenses(gctx, f)
			if err != nil {
				return err
			}
			idx.Months[m-1] = report.NewMonthSummary(p, income, expense, s.loc)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		s.logger.ErrorContext(ctx, "Failed to build reports index", applog.FieldError, err, applog.FieldUserID, userID)
		return ReportIndex{}, fmt.Errorf("reports index: %w", err)
	}

	totals := make([]core.CategoryTotal, 0, len(groups))
	for _, gr := range groups {
		totals = append(totals, core.CategoryTotal{Category: gr.Key, Total: gr.Total, Count: gr.Count})
	}
	idx.Categories = analytics.Breakdown(totals)
	return idx, nil
}

// availableYears merges the user's entry years with the current year, most recent first.
func (s *ReportService) availableYears(ctx context.Context, userID string, currentYear int) ([]int, error) {
	years, err := s.store.EntryYears(ctx, userID)
	if err != nil {
		return nil, err
	}
	out := []int{currentYear}
	for _, y := range years {
		if y != currentYear {
			out = append(out, y)
		}
	}
	// EntryYears is already descending; only the current year may be out of place.
	for i := 1; i < len(out) && out[i] > out[i-1]; i++ {
		out[i], out[i-1] = out[i-1], out[i]
	}
	return out, nil
}

// Monthly loads one user's month and builds its report.
func (s *ReportService) Monthly(ctx context.Context, userID string, p core.Period) (report.Monthly, error) {
	if _, err := checkPeriod(p); err != nil {
		return report.Monthly{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return report.Monthly{}, fmt.Errorf("load user: %w", err)
	}

	var (
		incomes  []core.Income
		expenses []core.Expense
		budgets  []core.Budget
	)
	f := ledger.Filter{UserID: userID, Range: ledger.MonthRange(p)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		incomes, err = s.store.ListIncomes(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		budgets, err = s.store.ListBudgets(gctx, ledger.BudgetFilter{UserID: userID, Period: &p})
		return err
	})
	if err := g.Wait(); err != nil {
		return report.Monthly{}, fmt.Errorf("load monthly report: %w", err)
	}
	return report.BuildMonthly(p, user, incomes, expenses, budgets, s.loc), nil
}

// Yearly loads one user's year and builds its report.
func (s *ReportService) Yearly(ctx context.Context, userID string, year int) (report.Yearly, error) {
	if err := checkYear(year); err != nil {
		return report.Yearly{}, err
	}
	user, err := s.store.GetUser(ctx, userID)
	if err != nil {
		return report.Yearly{}, fmt.Errorf("load user: %w", err)
	}

	var (
		incomes  []core.Income
		expenses []core.Expense
	)
	f := ledger.Filter{UserID: userID, Range: ledger.YearRange(year)}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		incomes, err = s.store.ListIncomes(gctx, f)
		return err
	})
	g.Go(func() (err error) {
		expenses, err = s.store.ListExpenses(gctx, f)
		return err
	})
	if err := g.Wait(); err != nil {
		return report.Yearly{}, fmt.Errorf("load yearly report: %w", err)
	}
	return report.BuildYearly(year, user, incomes, expenses, s.loc), nil
}

func (s *ReportService) MonthlyPDF(ctx context.Context, userID string, p core.Period) (Export, error) {
	m, err := s.Monthly(ctx, userID, p)
	if err != nil {
		return Export{}, err
	}
	body, err := report.RenderPDF(report.ComposeMonthly(m, s.loc, s.timestamp()))
	if err != nil {
		return Export{}, err
	}
	s.logger.InfoContext(ctx, "Rendered monthly report",
		applog.FieldOperation, applog.OpExport, applog.FieldUserID, userID, applog.FieldPeriod, p.String(), "bytes", len(body))
	return Export{Filename: report.MonthlyFilename(p, s.loc), ContentType: ContentTypePDF, Body: body}, nil
}

func (s *ReportService) YearlyPDF(ctx context.Context, userID string, year int) (Export, error) {
	y, err := s.Yearly(ctx, userID, year)
	if err != nil {
		return Export{}, err
	}
	body, err := report.RenderPDF(report.ComposeYearly(y, s.loc, s.timestamp()))
	if err != nil {
		return Export{}, err
	}
	s.logger.InfoContext(ctx, "Rendered yearly report",
		applog.FieldOperation, applog.OpExport, applog.FieldUserID, userID, "year", year, "bytes", len(body))
	return Export{Filename: report.YearlyFilename(year), ContentType: ContentTypePDF, Body: body}, nil
}

func (s *ReportService) MonthlyCSV(ctx context.Context, userID string, p core.Period) (Export, error) {
	m, err := s.Monthly(ctx, userID, p)
	if err != nil {
		return Export{}, err
	}
	var buf bytes.Buffer
	if err := report.WriteMonthlyCSV(&buf, m, s.loc, s.timestamp()); err != nil {
		return Export{}, fmt.Errorf("write csv: %w", err)
	}
	return Export{Filename: report.TransactionsFilename(p, s.loc), ContentType: ContentTypeCSV, Body: buf.Bytes()}, nil
}

func checkYear(year int) error {
	if year < core.MinYear || year > core.MaxYear {
		verr := &core.ValidationError{}
		verr.Add("year", "Year must be between 2000 and 2100")
		return verr
	}
	return nil
}
