package core

import (
	"strings"
	"time"
	"unicode/utf8"

	"github.com/badoux/checkmail"
	"github.com/shopspring/decimal"
)

const (
	MinYear = 2000
	MaxYear = 2100

	MaxTitleLen       = 100
	MaxCategoryLen    = 50
	MaxDescriptionLen = 500
	MaxNameLen        = 50
	MinPasswordLen    = 8
)

type (
	IncomeInput struct {
		Title       string `json:"title"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Description string `json:"description"`
	}

	ExpenseInput struct {
		Title       string `json:"title"`
		Amount      string `json:"amount"`
		Date        string `json:"date"`
		Category    string `json:"category"`
		Description string `json:"description"`
	}

	BudgetInput struct {
		Category      string `json:"category"`
		PlannedAmount string `json:"planned_amount"`
		Month         int    `json:"month"`
		Year          int    `json:"year"`
	}

	UserInput struct {
		FirstName string
		LastName  string
		Email     string
		Password  string
		Role      Role
	}
)

// Validate checks the form against today's date and returns the income it describes.
func (in IncomeInput) Validate(today Date) (Income, error) {
	verr := &ValidationError{}
	title := validateTitle(verr, in.Title)
	amount := validateAmount(verr, "amount", in.Amount)
	date := validateEntryDate(verr, in.Date, today)
	desc := validateDescription(verr, in.Description)
	if err := verr.Err(); err != nil {
		return Income{}, err
	}
	return Income{Title: title, Amount: amount, Date: date, Description: desc}, nil
}

// Validate checks the form against today's date and returns the expense it describes.
func (in ExpenseInput) Validate(today Date) (Expense, error) {
	verr := &ValidationError{}
	title := validateTitle(verr, in.Title)
	amount := validateAmount(verr, "amount", in.Amount)
	date := validateEntryDate(verr, in.Date, today)
	category := validateCategory(verr, in.Category)
	desc := validateDescription(verr, in.Description)
	if err := verr.Err(); err != nil {
		return Expense{}, err
	}
	return Expense{Title: title, Amount: amount, Date: date, Category: category, Description: desc}, nil
}

// Validate checks field rules shared by budget creation and edits.
func (in BudgetInput) Validate() (Budget, error) {
	verr := &ValidationError{}
	b, _ := in.validate(verr)
	if err := verr.Err(); err != nil {
		return Budget{}, err
	}
	return b, nil
}

// ValidateNew additionally rejects budgets for months after today's month.
func (in BudgetInput) ValidateNew(today Date) (Budget, error) {
	verr := &ValidationError{}
	b, periodOK := in.validate(verr)
	if periodOK && today.Period().Before(b.Period()) {
		verr.Add("month", "Cannot create budget for future months")
	}
	if err := verr.Err(); err != nil {
		return Budget{}, err
	}
	return b, nil
}

func (in BudgetInput) validate(verr *ValidationError) (Budget, bool) {
	category := validateCategory(verr, in.Category)
	planned := validateAmount(verr, "planned_amount", in.PlannedAmount)
	periodOK := true
	if in.Month < 1 || in.Month > 12 {
		verr.Add("month", "Month must be between 1 and 12")
		periodOK = false
	}
	if in.Year < MinYear || in.Year > MaxYear {
		verr.Add("year", "Year must be between 2000 and 2100")
		periodOK = false
	}
	return Budget{Category: category, PlannedAmount: planned, Month: in.Month, Year: in.Year}, periodOK
}

// Validate checks a new account and returns the user it describes (without id or hash).
func (in UserInput) Validate() (User, error) {
	verr := &ValidationError{}
	first := strings.TrimSpace(in.FirstName)
	last := strings.TrimSpace(in.LastName)
	if first == "" {
		verr.Add("first_name", "First name is required")
	} else if utf8.RuneCountInString(first) > MaxNameLen {
		verr.Add("first_name", "First name cannot exceed 50 characters")
	}
	if last == "" {
		verr.Add("last_name", "Last name is required")
	} else if utf8.RuneCountInString(last) > MaxNameLen {
		verr.Add("last_name", "Last name cannot exceed 50 characters")
	}
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" {
		verr.Add("email", "Email is required")
	} else if err := checkmail.ValidateFormat(email); err != nil {
		verr.Add("email", "Invalid email address")
	}
	if utf8.RuneCountInString(in.Password) < MinPasswordLen {
		verr.Add("password", "Password must be at least 8 characters")
	}
	role := in.Role
	if role == "" {
		role = RoleUser
	}
	if !role.IsValid() {
		verr.Add("role", "Role must be Admin or User")
	}
	if err := verr.Err(); err != nil {
		return User{}, err
	}
	return User{FirstName: first, LastName: last, Email: email, Role: role, Active: true}, nil
}

func validateTitle(verr *ValidationError, raw string) string {
	title := strings.TrimSpace(raw)
	switch {
	case title == "":
		verr.Add("title", "Title is required")
	case utf8.RuneCountInString(title) > MaxTitleLen:
		verr.Add("title", "Title cannot exceed 100 characters")
	}
	return title
}

func validateAmount(verr *ValidationError, field, raw string) decimal.Decimal {
	if strings.TrimSpace(raw) == "" {
		verr.Add(field, "Amount is required")
		return decimal.Zero
	}
	amount, err := ParseAmount(raw)
	if err != nil || !AmountInRange(amount) {
		verr.Add(field, "Amount must be between 0.01 and 999,999,999.99")
		return decimal.Zero
	}
	return amount
}

// validateEntryDate compares calendar dates only, so any time of day today is accepted
// and any time tomorrow is not.
func validateEntryDate(verr *ValidationError, raw string, today Date) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		verr.Add("date", "Date is required")
		return Date{}
	}
	d, err := ParseDate(raw)
	if err != nil {
		if t, terr := time.Parse(time.RFC3339, raw); terr == nil {
			d, err = DateOf(t), nil
		}
	}
	if err != nil {
		verr.Add("date", "Date must be in YYYY-MM-DD format")
		return Date{}
	}
	if d.After(today.Time) {
		verr.Add("date", "Date cannot be in the future")
	}
	return d
}

func validateCategory(verr *ValidationError, raw string) string {
	category := strings.TrimSpace(raw)
	switch {
	case category == "":
		verr.Add("category", "Category is required")
	case utf8.RuneCountInString(category) > MaxCategoryLen:
		verr.Add("category", "Category cannot exceed 50 characters")
	case !IsCategory(category):
		verr.Add("category", "Category must be one of the predefined categories")
	}
	return category
}

func validateDescription(verr *ValidationError, raw string) string {
	desc := strings.TrimSpace(raw)
	if utf8.RuneCountInString(desc) > MaxDescriptionLen {
		verr.Add("description", "Description cannot exceed 500 characters")
	}
	return desc
}
