package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"1", "1", true},
		{"1.0", "1", true},
		{"1.23", "1.23", true},
		{"1,23", "1.23", true},
		{"0.01", "0.01", true},
		{"1.005", "1.01", true}, // half-up rounding
		{" 2.50 ", "2.5", true},
		{"0", "0", true}, // parsed, range checked by validators
		{"-1", "", false},
		{"+1", "", false},
		{"1e3", "", false},
		{"abc", "", false},
		{"1.2.3", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil || !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s (err=%v)", tc.in, tc.out, got, err)
			}
		} else if err == nil {
			t.Fatalf("%q expected error, got %s", tc.in, got)
		}
	}
}

func TestCentsRoundTrip(t *testing.T) {
	d := decimal.RequireFromString("1234.56")
	if c := ToCents(d); c != 123456 {
		t.Fatalf("ToCents = %d", c)
	}
	if !FromCents(123456).Equal(d) {
		t.Fatalf("FromCents = %s", FromCents(123456))
	}
}

func TestPercentGuardsZero(t *testing.T) {
	if p := Percent(decimal.NewFromInt(5), decimal.Zero); p != 0 {
		t.Fatalf("expected 0 for zero whole, got %v", p)
	}
	if p := Percent(decimal.NewFromInt(150), decimal.NewFromInt(100)); p != 150 {
		t.Fatalf("expected 150, got %v", p)
	}
}

func TestLocaleFormatMoney(t *testing.T) {
	cases := []struct {
		loc  Locale
		in   string
		want string
	}{
		{English, "0", "$0.00"},
		{English, "1234.5", "$1,234.50"},
		{English, "-1234567.891", "-$1,234,567.89"},
		{English, "999", "$999.00"},
		{Italian, "1234.5", "€1.234,50"},
	}
	for _, tc := range cases {
		if got := tc.loc.FormatMoney(decimal.RequireFromString(tc.in)); got != tc.want {
			t.Errorf("FormatMoney(%s) = %q, want %q", tc.in, got, tc.want)
		}
	}
	if got := English.FormatPercent(12.345, 1); got != "12.3%" {
		t.Errorf("FormatPercent = %q", got)
	}
}

func TestLocaleMediumDate(t *testing.T) {
	june := time.Date(2025, time.June, 5, 18, 30, 0, 0, time.UTC)
	if got := English.MediumDate(june); got != "Jun 05, 2025" {
		t.Errorf("English.MediumDate() = %q", got)
	}
	if got := Italian.MediumDate(june); got != "Giu 05, 2025" {
		t.Errorf("Italian.MediumDate() = %q", got)
	}
}
