package core

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

const (
	RoleAdmin Role = "Admin"
	RoleUser  Role = "User"
)

const (
	KindIncome  EntryKind = "income"
	KindExpense EntryKind = "expense"
	KindBudget  EntryKind = "budget"
)

// Categories is the fixed, ordered list of expense and budget categories.
var Categories = []string{
	"Food & Dining",
	"Transportation",
	"Shopping",
	"Entertainment",
	"Bills & Utilities",
	"Health & Medical",
	"Education",
	"Travel",
	"Personal Care",
	"Home & Rent",
	"Insurance",
	"Savings & Investments",
	"Gifts & Donations",
	"Other",
}

type (
	Role      string
	EntryKind string

	// User is referenced by id from every ledger record. Credentials stay in
	// the auth layer; PasswordHash is never serialized.
	User struct {
		ID           string    `json:"id"`
		FirstName    string    `json:"first_name"`
		LastName     string    `json:"last_name"`
		Email        string    `json:"email"`
		PasswordHash string    `json:"-"`
		Active       bool      `json:"active"`
		Role         Role      `json:"role"`
		CreatedAt    time.Time `json:"created_at"`
	}

	Income struct {
		ID          int64           `json:"id"`
		UserID      string          `json:"user_id"`
		Title       string          `json:"title"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Description string          `json:"description,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	}

	Expense struct {
		ID          int64           `json:"id"`
		UserID      string          `json:"user_id"`
		Title       string          `json:"title"`
		Amount      decimal.Decimal `json:"amount"`
		Date        Date            `json:"date"`
		Category    string          `json:"category"`
		Description string          `json:"description,omitempty"`
		CreatedAt   time.Time       `json:"created_at"`
		UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
	}

	Budget struct {
		ID            int64           `json:"id"`
		UserID        string          `json:"user_id"`
		Category      string          `json:"category"`
		PlannedAmount decimal.Decimal `json:"planned_amount"`
		Month         int             `json:"month"`
		Year          int             `json:"year"`
		CreatedAt     time.Time       `json:"created_at"`
		UpdatedAt     *time.Time      `json:"updated_at,omitempty"`
	}

	// Entry is the read side shared by incomes and expenses.
	Entry interface {
		Owner() string
		On() Date
		Value() decimal.Decimal
	}
)

func (i Income) Owner() string          { return i.UserID }
func (i Income) On() Date               { return i.Date }
func (i Income) Value() decimal.Decimal { return i.Amount }

func (e Expense) Owner() string          { return e.UserID }
func (e Expense) On() Date               { return e.Date }
func (e Expense) Value() decimal.Decimal { return e.Amount }

// Period returns the budget period the row applies to.
func (b Budget) Period() Period {
	return Period{Year: b.Year, Month: time.Month(b.Month)}
}

// FullName joins first and last name, falling back to "User" when both are blank.
func (u User) FullName() string {
	name := strings.TrimSpace(strings.TrimSpace(u.FirstName) + " " + strings.TrimSpace(u.LastName))
	if name == "" {
		return "User"
	}
	return name
}

func (r Role) IsValid() bool {
	return r == RoleAdmin || r == RoleUser
}

// IsCategory reports whether name is one of the fixed categories.
func IsCategory(name string) bool {
	for _, c := range Categories {
		if c == name {
			return true
		}
	}
	return false
}
