// Package google mirrors ledger rows into a single Google Sheets tab. Each
// row is keyed by "<kind>:<id>" in column A so it can be rewritten or
// cleared in place when the entry changes.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"bilancio/internal/core"
	applog "bilancio/internal/log"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"
)

// Header is written to row 1 of an empty mirror sheet.
var Header = []any{"Key", "Kind", "User", "Date", "Title", "Category", "Amount", "Description", "Updated"}

const lastColumn = "I"

// Row is one mirrored ledger entry.
type Row struct {
	Key         string
	Kind        core.EntryKind
	UserID      string
	Date        string
	Title       string
	Category    string
	Amount      string
	Description string
}

func Key(kind core.EntryKind, id int64) string {
	return string(kind) + ":" + strconv.FormatInt(id, 10)
}

func IncomeRow(in core.Income) Row {
	return Row{
		Key:         Key(core.KindIncome, in.ID),
		Kind:        core.KindIncome,
		UserID:      in.UserID,
		Date:        in.Date.String(),
		Title:       in.Title,
		Amount:      in.Amount.StringFixed(2),
		Description: in.Description,
	}
}

func ExpenseRow(e core.Expense) Row {
	return Row{
		Key:         Key(core.KindExpense, e.ID),
		Kind:        core.KindExpense,
		UserID:      e.UserID,
		Date:        e.Date.String(),
		Title:       e.Title,
		Category:    e.Category,
		Amount:      e.Amount.StringFixed(2),
		Description: e.Description,
	}
}

// BudgetRow stores the budget month in the date column as YYYY-MM.
func BudgetRow(b core.Budget) Row {
	return Row{
		Key:      Key(core.KindBudget, b.ID),
		Kind:     core.KindBudget,
		UserID:   b.UserID,
		Date:     b.Period().String(),
		Category: b.Category,
		Amount:   b.PlannedAmount.StringFixed(2),
	}
}

func (r Row) values(updated time.Time) []any {
	return []any{r.Key, string(r.Kind), r.UserID, r.Date, r.Title, r.Category, r.Amount, r.Description, updated.UTC().Format(time.RFC3339)}
}

// values is the subset of the Sheets values API the mirror needs.
type values interface {
	get(ctx context.Context, rng string) ([][]any, error)
	update(ctx context.Context, rng string, rows [][]any) error
	appendRows(ctx context.Context, rng string, rows [][]any) error
	clear(ctx context.Context, rng string) error
}

type Config struct {
	SpreadsheetID      string
	SheetName          string
	ServiceAccountFile string
	ServiceAccountJSON string
}

// Mirror writes ledger rows to one sheet. Calls are serialized: row lookups
// and writes must not interleave.
type Mirror struct {
	mu     sync.Mutex
	values values
	sheet  string
	now    func() time.Time
	logger *applog.Logger
}

// New connects to the Sheets API with service account credentials.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Mirror, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	if strings.TrimSpace(cfg.SheetName) == "" {
		return nil, errors.New("missing sheet name")
	}
	svc, err := newSheetsService(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return newMirror(&sheetsValues{svc: svc, spreadsheetID: cfg.SpreadsheetID}, cfg.SheetName, logger), nil
}

func newMirror(v values, sheet string, logger *applog.Logger) *Mirror {
	if logger == nil {
		logger = applog.Nop()
	}
	return &Mirror{
		values: v,
		sheet:  sheet,
		now:    time.Now,
		logger: logger.WithComponent(applog.ComponentSheets),
	}
}

// credentials prefers inline JSON over a file path.
func credentials(cfg Config) ([]byte, error) {
	switch {
	case strings.TrimSpace(cfg.ServiceAccountJSON) != "":
		return []byte(cfg.ServiceAccountJSON), nil
	case strings.TrimSpace(cfg.ServiceAccountFile) != "":
		data, err := os.ReadFile(cfg.ServiceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
		return data, nil
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON or GOOGLE_SERVICE_ACCOUNT_FILE)")
	}
}

func newSheetsService(ctx context.Context, cfg Config) (*gsheet.Service, error) {
	creds, err := credentials(cfg)
	if err != nil {
		return nil, err
	}
	svc, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(creds),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return svc, nil
}

func (m *Mirror) rowRange(n int) string {
	return fmt.Sprintf("%s!A%d:%s%d", m.sheet, n, lastColumn, n)
}

// EnsureHeader writes Header when row 1 is empty.
func (m *Mirror) EnsureHeader(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rows, err := m.values.get(ctx, m.rowRange(1))
	if err != nil {
		return fmt.Errorf("read header: %w", err)
	}
	if len(rows) > 0 && len(rows[0]) > 0 {
		return nil
	}
	if err := m.values.update(ctx, m.rowRange(1), [][]any{Header}); err != nil {
		return fmt.Errorf("write header: %w", err)
	}
	return nil
}

// find returns the 1-based row holding key, or 0.
func (m *Mirror) find(ctx context.Context, key string) (int, error) {
	rows, err := m.values.get(ctx, m.sheet+"!A:A")
	if err != nil {
		return 0, fmt.Errorf("read keys: %w", err)
	}
	for i, row := range rows {
		if len(row) > 0 && strings.TrimSpace(fmt.Sprint(row[0])) == key {
			return i + 1, nil
		}
	}
	return 0, nil
}

// Upsert rewrites the row keyed like r, or appends it when absent.
func (m *Mirror) Upsert(ctx context.Context, r Row) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.find(ctx, r.Key)
	if err != nil {
		return "", err
	}
	data := [][]any{r.values(m.now())}
	if n == 0 {
		rng := fmt.Sprintf("%s!A:%s", m.sheet, lastColumn)
		if err := m.values.appendRows(ctx, rng, data); err != nil {
			return "", fmt.Errorf("append %s: %w", r.Key, err)
		}
		m.logger.DebugContext(ctx, "Appended mirror row", "key", r.Key)
		return rng, nil
	}
	rng := m.rowRange(n)
	if err := m.values.update(ctx, rng, data); err != nil {
		return "", fmt.Errorf("update %s: %w", r.Key, err)
	}
	m.logger.DebugContext(ctx, "Rewrote mirror row", "key", r.Key, applog.FieldSheetsRef, rng)
	return rng, nil
}

// Remove clears the row holding key. A missing row is not an error.
func (m *Mirror) Remove(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	n, err := m.find(ctx, key)
	if err != nil {
		return err
	}
	if n == 0 {
		m.logger.DebugContext(ctx, "Mirror row already absent", "key", key)
		return nil
	}
	if err := m.values.clear(ctx, m.rowRange(n)); err != nil {
		return fmt.Errorf("clear %s: %w", key, err)
	}
	return nil
}

type sheetsValues struct {
	svc           *gsheet.Service
	spreadsheetID string
}

func (s *sheetsValues) get(ctx context.Context, rng string) ([][]any, error) {
	resp, err := s.svc.Spreadsheets.Values.Get(s.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return nil, err
	}
	return resp.Values, nil
}

func (s *sheetsValues) update(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Update(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").Context(ctx).Do()
	return err
}

func (s *sheetsValues) appendRows(ctx context.Context, rng string, rows [][]any) error {
	_, err := s.svc.Spreadsheets.Values.Append(s.spreadsheetID, rng, &gsheet.ValueRange{Values: rows}).
		ValueInputOption("RAW").InsertDataOption("INSERT_ROWS").Context(ctx).Do()
	return err
}

func (s *sheetsValues) clear(ctx context.Context, rng string) error {
	_, err := s.svc.Spreadsheets.Values.Clear(s.spreadsheetID, rng, &gsheet.ClearValuesRequest{}).Context(ctx).Do()
	return err
}
