package services

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"bilancio/internal/amqp"
	"bilancio/internal/core"
	"bilancio/internal/ledger/memory"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

// Tests run on 2025-03-15.
var fixedNow = func() time.Time { return time.Date(2025, time.March, 15, 12, 0, 0, 0, time.UTC) }

var (
	march    = core.Period{Year: 2025, Month: time.March}
	february = core.Period{Year: 2025, Month: time.February}
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

type recordingPublisher struct {
	mu     sync.Mutex
	events []*amqp.LedgerEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, evt *amqp.LedgerEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, evt)
	return p.err
}

func (p *recordingPublisher) last() *amqp.LedgerEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.events) == 0 {
		return nil
	}
	return p.events[len(p.events)-1]
}

type recordingInvalidator struct {
	users []string
}

func (i *recordingInvalidator) InvalidateUser(userID string) {
	i.users = append(i.users, userID)
}

type fixture struct {
	store *memory.Store
	ada   core.User
	bob   core.User
	admin core.User
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{store: memory.New().WithClock(fixedNow)}
	f.ada = f.user(t, "Ada", "ada@example.com", core.RoleUser, true, time.Date(2025, time.January, 10, 9, 0, 0, 0, time.UTC))
	f.bob = f.user(t, "Bob", "bob@example.com", core.RoleUser, false, time.Date(2025, time.March, 2, 9, 0, 0, 0, time.UTC))
	f.admin = f.user(t, "Root", "root@example.com", core.RoleAdmin, true, time.Date(2025, time.March, 3, 9, 0, 0, 0, time.UTC))
	return f
}

func (f *fixture) user(t *testing.T, name, email string, role core.Role, active bool, created time.Time) core.User {
	t.Helper()
	u := core.User{FirstName: name, LastName: "Test", Email: email, Role: role, Active: active, CreatedAt: created}
	require.NoError(t, f.store.CreateUser(context.Background(), &u))
	return u
}

func (f *fixture) income(t *testing.T, userID, title, amount string, d core.Date) core.Income {
	t.Helper()
	in := core.Income{UserID: userID, Title: title, Amount: dec(amount), Date: d}
	require.NoError(t, f.store.CreateIncome(context.Background(), &in))
	return in
}

func (f *fixture) expense(t *testing.T, userID, title, category, amount string, d core.Date) core.Expense {
	t.Helper()
	e := core.Expense{UserID: userID, Title: title, Category: category, Amount: dec(amount), Date: d}
	require.NoError(t, f.store.CreateExpense(context.Background(), &e))
	return e
}

func (f *fixture) budget(t *testing.T, userID, category, amount string, p core.Period) core.Budget {
	t.Helper()
	b := core.Budget{UserID: userID, Category: category, PlannedAmount: dec(amount), Month: int(p.Month), Year: p.Year}
	require.NoError(t, f.store.CreateBudget(context.Background(), &b))
	return b
}

func validationFields(t *testing.T, err error) []string {
	t.Helper()
	var verr *core.ValidationError
	require.True(t, errors.As(err, &verr), "expected a validation error, got %v", err)
	fields := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		fields = append(fields, f.Field)
	}
	return fields
}
