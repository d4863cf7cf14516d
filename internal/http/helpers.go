package http

import (
	"net/http"
	"strings"

	"bilancio/internal/auth"
	"bilancio/internal/core"
)

// sanitizeInput removes control characters and trims whitespace.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}

func sanitizeIncome(in core.IncomeInput) core.IncomeInput {
	in.Title = sanitizeInput(in.Title)
	in.Amount = sanitizeInput(in.Amount)
	in.Date = sanitizeInput(in.Date)
	in.Description = sanitizeInput(in.Description)
	return in
}

func sanitizeExpense(in core.ExpenseInput) core.ExpenseInput {
	in.Title = sanitizeInput(in.Title)
	in.Amount = sanitizeInput(in.Amount)
	in.Date = sanitizeInput(in.Date)
	in.Category = sanitizeInput(in.Category)
	in.Description = sanitizeInput(in.Description)
	return in
}

func sanitizeBudget(in core.BudgetInput) core.BudgetInput {
	in.Category = sanitizeInput(in.Category)
	in.PlannedAmount = sanitizeInput(in.PlannedAmount)
	return in
}

// caller returns the authenticated user id. Routes behind auth.Middleware
// always have one.
func caller(r *http.Request) (string, error) {
	id, ok := auth.FromContext(r.Context())
	if !ok || id.UserID == "" {
		return "", core.ErrUnauthorized
	}
	return id.UserID, nil
}
