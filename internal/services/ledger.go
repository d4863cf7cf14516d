package services

import (
	"context"
	"fmt"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/analytics"
	"bilancio/internal/core"
	"bilancio/internal/ledger"
	applog "bilancio/internal/log"

	"github.com/shopspring/decimal"
)

type (
	IncomeList struct {
		Period *core.Period    `json:"period,omitempty"`
		Items  []core.Income   `json:"items"`
		Total  decimal.Decimal `json:"total"`
	}

	ExpenseList struct {
		Period     *core.Period    `json:"period,omitempty"`
		Category   string          `json:"category,omitempty"`
		Items      []core.Expense  `json:"items"`
		Total      decimal.Decimal `json:"total"`
		Categories []string        `json:"categories"`
	}

	BudgetList struct {
		Period       core.Period         `json:"period"`
		Items        []core.BudgetStatus `json:"items"`
		TotalPlanned decimal.Decimal     `json:"total_planned"`
		TotalSpent   decimal.Decimal     `json:"total_spent"`
	}
)

// LedgerService owns every income, expense and budget mutation. Each
// successful write publishes a ledger event and drops the owner's cached
// payloads; neither side effect can fail the write.
type LedgerService struct {
	clock
	store        ledger.Store
	events       Publisher
	invalidators []Invalidator
	logger       *applog.Logger
}

// NewLedgerService wires the store. events may be nil when AMQP is not configured.
func NewLedgerService(store ledger.Store, events Publisher, logger *applog.Logger, invalidators ...Invalidator) *LedgerService {
	if logger == nil {
		logger = applog.Nop()
	}
	return &LedgerService{
		clock:        clock{now: time.Now},
		store:        store,
		events:       events,
		invalidators: invalidators,
		logger:       logger.WithComponent(applog.ComponentLedger),
	}
}

// WithClock pins the clock used for "today" checks.
func (s *LedgerService) WithClock(now func() time.Time) *LedgerService {
	s.now = now
	return s
}

func (s *LedgerService) changed(ctx context.Context, op string, kind core.EntryKind, id int64, userID string, p core.Period) {
	for _, inv := range s.invalidators {
		inv.InvalidateUser(userID)
	}

	s.logger.InfoContext(ctx, "Ledger entry changed",
		applog.FieldOperation, op,
		applog.FieldEntryKind, kind,
		applog.FieldEntryID, id,
		applog.FieldUserID, userID,
		applog.FieldPeriod, p.String())

	if s.events == nil {
		return
	}
	evt := amqp.NewLedgerEvent(op, kind, id, userID, p)
	if err := s.events.Publish(ctx, evt); err != nil {
		// The write is committed; the mirror catches up on the next change.
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			applog.FieldError, err,
			applog.FieldEventID, evt.EventID,
			applog.FieldEntryKind, kind,
			applog.FieldEntryID, id)
	}
}

func (s *LedgerService) filter(userID string, q ListQuery) (ledger.Filter, *core.Period, error) {
	p, err := q.Resolve(s.today())
	if err != nil {
		return ledger.Filter{}, nil, err
	}
	f := ledger.Filter{UserID: userID}
	if p != nil {
		f.Range = ledger.MonthRange(*p)
	}
	return f, p, nil
}

// Incomes

func (s *LedgerService) CreateIncome(ctx context.Context, userID string, in core.IncomeInput) (core.Income, error) {
	income, err := in.Validate(s.today())
	if err != nil {
		return core.Income{}, err
	}
	income.UserID = userID
	if err := s.store.CreateIncome(ctx, &income); err != nil {
		return core.Income{}, fmt.Errorf("create income: %w", err)
	}
	s.changed(ctx, amqp.OpCreate, core.KindIncome, income.ID, userID, income.Date.Period())
	return income, nil
}

func (s *LedgerService) GetIncome(ctx context.Context, userID string, id int64) (core.Income, error) {
	return s.store.GetIncome(ctx, userID, id)
}

// UpdateIncome replaces the editable fields of an income the user owns.
func (s *LedgerService) UpdateIncome(ctx context.Context, userID string, id int64, in core.IncomeInput) (core.Income, error) {
	current, err := s.store.GetIncome(ctx, userID, id)
	if err != nil {
		return core.Income{}, err
	}
	next, err := in.Validate(s.today())
	if err != nil {
		return core.Income{}, err
	}
	current.Title, current.Amount, current.Date, current.Description = next.Title, next.Amount, next.Date, next.Description
	if err := s.store.UpdateIncome(ctx, &current); err != nil {
		return core.Income{}, fmt.Errorf("update income: %w", err)
	}
	s.changed(ctx, amqp.OpUpdate, core.KindIncome, id, userID, current.Date.Period())
	return current, nil
}

func (s *LedgerService) DeleteIncome(ctx context.Context, userID string, id int64) error {
	current, err := s.store.GetIncome(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteIncome(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.OpDelete, core.KindIncome, id, userID, current.Date.Period())
	return nil
}

func (s *LedgerService) ListIncomes(ctx context.Context, userID string, q ListQuery) (IncomeList, error) {
	f, p, err := s.filter(userID, q)
	if err != nil {
		return IncomeList{}, err
	}
	items, err := s.store.ListIncomes(ctx, f)
	if err != nil {
		return IncomeList{}, fmt.Errorf("list incomes: %w", err)
	}
	return IncomeList{Period: p, Items: items, Total: analytics.SumInRange(items, "", nil)}, nil
}

// Expenses

func (s *LedgerService) CreateExpense(ctx context.Context, userID string, in core.ExpenseInput) (core.Expense, error) {
	expense, err := in.Validate(s.today())
	if err != nil {
		return core.Expense{}, err
	}
	expense.UserID = userID
	if err := s.store.CreateExpense(ctx, &expense); err != nil {
		return core.Expense{}, fmt.Errorf("create expense: %w", err)
	}
	s.changed(ctx, amqp.OpCreate, core.KindExpense, expense.ID, userID, expense.Date.Period())
	return expense, nil
}

func (s *LedgerService) GetExpense(ctx context.Context, userID string, id int64) (core.Expense, error) {
	return s.store.GetExpense(ctx, userID, id)
}

func (s *LedgerService) UpdateExpense(ctx context.Context, userID string, id int64, in core.ExpenseInput) (core.Expense, error) {
	current, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return core.Expense{}, err
	}
	next, err := in.Validate(s.today())
	if err != nil {
		return core.Expense{}, err
	}
	current.Title, current.Amount, current.Date = next.Title, next.Amount, next.Date
	current.Category, current.Description = next.Category, next.Description
	if err := s.store.UpdateExpense(ctx, &current); err != nil {
		return core.Expense{}, fmt.Errorf("update expense: %w", err)
	}
	s.changed(ctx, amqp.OpUpdate, core.KindExpense, id, userID, current.Date.Period())
	return current, nil
}

func (s *LedgerService) DeleteExpense(ctx context.Context, userID string, id int64) error {
	current, err := s.store.GetExpense(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteExpense(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.OpDelete, core.KindExpense, id, userID, current.Date.Period())
	return nil
}

// ListExpenses lists expenses newest first, optionally narrowed to a month
// and a category, with the categories the user has ever used.
func (s *LedgerService) ListExpenses(ctx context.Context, userID string, q ListQuery) (ExpenseList, error) {
	f, p, err := s.filter(userID, q)
	if err != nil {
		return ExpenseList{}, err
	}
	f.Category = q.Category
	items, err := s.store.ListExpenses(ctx, f)
	if err != nil {
		return ExpenseList{}, fmt.Errorf("list expenses: %w", err)
	}
	categories, err := s.store.ExpenseCategories(ctx, userID)
	if err != nil {
		return ExpenseList{}, fmt.Errorf("list categories: %w", err)
	}
	return ExpenseList{
		Period:     p,
		Category:   q.Category,
		Items:      items,
		Total:      analytics.SumInRange(items, "", nil),
		Categories: categories,
	}, nil
}

// Budgets

// CreateBudget adds a budget for the current or a past month. A second budget
// for the same category and month fails with *core.ConflictError.
func (s *LedgerService) CreateBudget(ctx context.Context, userID string, in core.BudgetInput) (core.Budget, error) {
	b, err := in.ValidateNew(s.today())
	if err != nil {
		return core.Budget{}, err
	}
	b.UserID = userID
	if err := s.store.CreateBudget(ctx, &b); err != nil {
		return core.Budget{}, err
	}
	s.changed(ctx, amqp.OpCreate, core.KindBudget, b.ID, userID, b.Period())
	return b, nil
}

// GetBudget returns the budget with what was spent against it.
func (s *LedgerService) GetBudget(ctx context.Context, userID string, id int64) (core.BudgetStatus, error) {
	b, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return core.BudgetStatus{}, err
	}
	spent, err := s.store.SumExpenses(ctx, ledger.Filter{UserID: userID, Range: ledger.MonthRange(b.Period()), Category: b.Category})
	if err != nil {
		return core.BudgetStatus{}, fmt.Errorf("sum budget expenses: %w", err)
	}
	return analytics.EvaluateBudget(b, spent.Amount), nil
}

// UpdateBudget may move a budget to any valid month, including future ones.
func (s *LedgerService) UpdateBudget(ctx context.Context, userID string, id int64, in core.BudgetInput) (core.Budget, error) {
	current, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return core.Budget{}, err
	}
	next, err := in.Validate()
	if err != nil {
		return core.Budget{}, err
	}
	current.Category, current.PlannedAmount, current.Month, current.Year = next.Category, next.PlannedAmount, next.Month, next.Year
	if err := s.store.UpdateBudget(ctx, &current); err != nil {
		return core.Budget{}, err
	}
	s.changed(ctx, amqp.OpUpdate, core.KindBudget, id, userID, current.Period())
	return current, nil
}

func (s *LedgerService) DeleteBudget(ctx context.Context, userID string, id int64) error {
	current, err := s.store.GetBudget(ctx, userID, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteBudget(ctx, userID, id); err != nil {
		return err
	}
	s.changed(ctx, amqp.OpDelete, core.KindBudget, id, userID, current.Period())
	return nil
}

// ListBudgets evaluates every budget of one month, the current one by default.
func (s *LedgerService) ListBudgets(ctx context.Context, userID string, q ListQuery) (BudgetList, error) {
	p, err := q.PeriodOrCurrent(s.today())
	if err != nil {
		return BudgetList{}, err
	}
	return budgetList(ctx, s.store, userID, p)
}

func budgetList(ctx context.Context, store ledger.Store, userID string, p core.Period) (BudgetList, error) {
	budgets, err := store.ListBudgets(ctx, ledger.BudgetFilter{UserID: userID, Period: &p})
	if err != nil {
		return BudgetList{}, fmt.Errorf("list budgets: %w", err)
	}
	expenses, err := store.ListExpenses(ctx, ledger.Filter{UserID: userID, Range: ledger.MonthRange(p)})
	if err != nil {
		return BudgetList{}, fmt.Errorf("list budget expenses: %w", err)
	}
	list := BudgetList{
		Period:       p,
		Items:        analytics.BudgetStatuses(budgets, expenses),
		TotalPlanned: decimal.Zero,
		TotalSpent:   decimal.Zero,
	}
	for _, st := range list.Items {
		list.TotalPlanned = list.TotalPlanned.Add(st.Budget.PlannedAmount)
		list.TotalSpent = list.TotalSpent.Add(st.Spent)
	}
	return list, nil
}

// Categories is the fixed category list offered by expense and budget forms.
func (s *LedgerService) Categories() []string {
	return append([]string(nil), core.Categories...)
}
