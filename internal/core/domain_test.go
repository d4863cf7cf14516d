package core

import (
	"errors"
	"strings"
	"testing"
	"time"
)

var today = NewDate(2025, time.March, 15)

func fieldsOf(t *testing.T, err error) []string {
	t.Helper()
	var verr *ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected *ValidationError, got %T (%v)", err, err)
	}
	out := make([]string, 0, len(verr.Fields))
	for _, f := range verr.Fields {
		out = append(out, f.Field)
	}
	return out
}

func TestIncomeInputValidate(t *testing.T) {
	good := IncomeInput{Title: " Salary ", Amount: "2500.00", Date: "2025-03-15"}
	inc, err := good.Validate(today)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if inc.Title != "Salary" || inc.Amount.String() != "2500" || inc.Date.String() != "2025-03-15" {
		t.Fatalf("unexpected income %+v", inc)
	}

	cases := []struct {
		name  string
		in    IncomeInput
		field string
	}{
		{"missing title", IncomeInput{Amount: "1", Date: "2025-03-01"}, "title"},
		{"long title", IncomeInput{Title: strings.Repeat("x", 101), Amount: "1", Date: "2025-03-01"}, "title"},
		{"zero amount", IncomeInput{Title: "a", Amount: "0", Date: "2025-03-01"}, "amount"},
		{"too large", IncomeInput{Title: "a", Amount: "1000000000", Date: "2025-03-01"}, "amount"},
		{"future date", IncomeInput{Title: "a", Amount: "1", Date: "2025-03-16"}, "date"},
		{"future date with time", IncomeInput{Title: "a", Amount: "1", Date: "2025-03-16T00:00:01Z"}, "date"},
		{"bad date", IncomeInput{Title: "a", Amount: "1", Date: "15/03/2025"}, "date"},
		{"long description", IncomeInput{Title: "a", Amount: "1", Date: "2025-03-01", Description: strings.Repeat("d", 501)}, "description"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := tc.in.Validate(today)
			fields := fieldsOf(t, err)
			if len(fields) != 1 || fields[0] != tc.field {
				t.Fatalf("expected failure on %q, got %v", tc.field, fields)
			}
		})
	}
}

func TestEntryDateTodayAnyTimeAccepted(t *testing.T) {
	in := ExpenseInput{Title: "Lunch", Amount: "12,50", Date: "2025-03-15T23:59:59Z", Category: "Food & Dining"}
	exp, err := in.Validate(today)
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if exp.Amount.String() != "12.5" {
		t.Fatalf("amount = %s", exp.Amount)
	}
}

func TestExpenseInputCollectsAllFailures(t *testing.T) {
	_, err := ExpenseInput{Category: "Crypto"}.Validate(today)
	fields := fieldsOf(t, err)
	want := []string{"title", "amount", "date", "category"}
	if strings.Join(fields, ",") != strings.Join(want, ",") {
		t.Fatalf("fields = %v, want %v", fields, want)
	}
}

func TestBudgetInputValidate(t *testing.T) {
	in := BudgetInput{Category: "Travel", PlannedAmount: "300", Month: 4, Year: 2025}
	if _, err := in.Validate(); err != nil {
		t.Fatalf("edit rules should accept a future month: %v", err)
	}
	_, err := in.ValidateNew(today)
	if fields := fieldsOf(t, err); len(fields) != 1 || fields[0] != "month" {
		t.Fatalf("expected future month failure, got %v", fields)
	}

	in.Month = 3
	if _, err := in.ValidateNew(today); err != nil {
		t.Fatalf("current month should be accepted: %v", err)
	}

	_, err = BudgetInput{Category: "Travel", PlannedAmount: "1", Month: 13, Year: 1999}.ValidateNew(today)
	if fields := fieldsOf(t, err); strings.Join(fields, ",") != "month,year" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestUserInputValidate(t *testing.T) {
	u, err := UserInput{FirstName: "Ada", LastName: "Lovelace", Email: " Ada@Example.com ", Password: "correct-horse"}.Validate()
	if err != nil {
		t.Fatalf("expected ok, got %v", err)
	}
	if u.Email != "ada@example.com" || u.Role != RoleUser || !u.Active {
		t.Fatalf("unexpected user %+v", u)
	}

	_, err = UserInput{FirstName: "A", LastName: "B", Email: "not-an-email", Password: "short", Role: "Root"}.Validate()
	fields := fieldsOf(t, err)
	if strings.Join(fields, ",") != "email,password,role" {
		t.Fatalf("fields = %v", fields)
	}
}

func TestUserFullName(t *testing.T) {
	if got := (User{FirstName: "Ada", LastName: "Lovelace"}).FullName(); got != "Ada Lovelace" {
		t.Fatalf("FullName = %q", got)
	}
	if got := (User{}).FullName(); got != "User" {
		t.Fatalf("FullName = %q", got)
	}
}

func TestPeriodArithmetic(t *testing.T) {
	p := Period{Year: 2025, Month: time.January}
	if prev := p.Prev(); prev != (Period{Year: 2024, Month: time.December}) {
		t.Fatalf("Prev = %v", prev)
	}
	if n := (Period{Year: 2024, Month: time.February}).DaysIn(); n != 29 {
		t.Fatalf("DaysIn leap February = %d", n)
	}
	if !p.Contains(NewDate(2025, time.January, 31)) || p.Contains(NewDate(2025, time.February, 1)) {
		t.Fatalf("Contains boundaries wrong")
	}
	if got := p.AddMonths(-13).String(); got != "2023-12" {
		t.Fatalf("AddMonths = %s", got)
	}
}
