package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Locale carries month names and number formatting. It is passed explicitly
// to trend and report builders.
type Locale struct {
	Code           string
	Months         [12]string
	ShortMonths    [12]string
	CurrencySymbol string
	ThousandsSep   string
	DecimalSep     string
}

var (
	English = Locale{
		Code: "en",
		Months: [12]string{"January", "February", "March", "April", "May", "June",
			"July", "August", "September", "October", "November", "December"},
		ShortMonths: [12]string{"Jan", "Feb", "Mar", "Apr", "May", "Jun",
			"Jul", "Aug", "Sep", "Oct", "Nov", "Dec"},
		CurrencySymbol: "$",
		ThousandsSep:   ",",
		DecimalSep:     ".",
	}

	Italian = Locale{
		Code: "it",
		Months: [12]string{"Gennaio", "Febbraio", "Marzo", "Aprile", "Maggio", "Giugno",
			"Luglio", "Agosto", "Settembre", "Ottobre", "Novembre", "Dicembre"},
		ShortMonths: [12]string{"Gen", "Feb", "Mar", "Apr", "Mag", "Giu",
			"Lug", "Ago", "Set", "Ott", "Nov", "Dic"},
		CurrencySymbol: "€",
		ThousandsSep:   ".",
		DecimalSep:     ",",
	}
)

// LocaleFor returns the locale registered under code.
func LocaleFor(code string) (Locale, bool) {
	switch strings.ToLower(strings.TrimSpace(code)) {
	case "en", "":
		return English, true
	case "it":
		return Italian, true
	default:
		return Locale{}, false
	}
}

// WithCurrency returns a copy using symbol, or l unchanged when symbol is blank.
func (l Locale) WithCurrency(symbol string) Locale {
	if strings.TrimSpace(symbol) != "" {
		l.CurrencySymbol = symbol
	}
	return l
}

func (l Locale) MonthName(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return l.Months[m-1]
}

func (l Locale) ShortMonth(m time.Month) string {
	if m < time.January || m > time.December {
		return ""
	}
	return l.ShortMonths[m-1]
}

// PeriodLabel renders "Month Year".
func (l Locale) PeriodLabel(p Period) string {
	return l.MonthName(p.Month) + " " + strconv.Itoa(p.Year)
}

// MediumDate renders t as "Mar 05, 2025" with the locale's short month name.
func (l Locale) MediumDate(t time.Time) string {
	return fmt.Sprintf("%s %02d, %d", l.ShortMonth(t.Month()), t.Day(), t.Year())
}

// FormatMoney renders d with two decimals, grouping and the currency symbol,
// e.g. "$1,234.50" or "-$3.00".
func (l Locale) FormatMoney(d decimal.Decimal) string {
	neg := d.IsNegative()
	s := l.FormatNumber(d.Abs(), 2)
	if neg {
		return "-" + l.CurrencySymbol + s
	}
	return l.CurrencySymbol + s
}

// FormatNumber renders d with the given number of decimals and digit grouping.
func (l Locale) FormatNumber(d decimal.Decimal, places int32) string {
	neg := d.IsNegative()
	fixed := d.Abs().StringFixed(places)
	intPart, frac, _ := strings.Cut(fixed, ".")

	var b strings.Builder
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteString(l.ThousandsSep)
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteString(l.DecimalSep)
		b.WriteString(frac)
	}
	if neg {
		return "-" + b.String()
	}
	return b.String()
}

// FormatPercent renders a display percentage with the given decimals and a trailing "%".
func (l Locale) FormatPercent(v float64, places int32) string {
	return l.FormatNumber(decimal.NewFromFloat(v), places) + "%"
}
