package core

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParseDate(t *testing.T) {
	cases := []struct {
		in string
		ok bool
	}{
		{"2024-01-05", true},
		{"2024-12-31", true},
		{"2024-02-30", false},
		{"2024-1-5", false},
		{"05-01-2024", false},
		{"", false},
		{"2024-01", false},
	}
	for _, tc := range cases {
		_, err := ParseDate(tc.in)
		if tc.ok && err != nil {
			t.Fatalf("%q expected ok, got %v", tc.in, err)
		}
		if !tc.ok && err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestDateMonth(t *testing.T) {
	if got := Date("2024-01-05").Month(); got != "2024-01" {
		t.Fatalf("expected 2024-01, got %q", got)
	}
}

func TestToday(t *testing.T) {
	now := time.Date(2024, 2, 1, 15, 30, 0, 0, time.UTC)
	if got := Today(now); got != "2024-02-01" {
		t.Fatalf("expected 2024-02-01, got %q", got)
	}
}

func TestParseAmount(t *testing.T) {
	cases := []struct {
		in  string
		out string
		ok  bool
	}{
		{"100", "100", true},
		{"12.34", "12.34", true},
		{"0", "0", true},
		{" 2.50 ", "2.5", true},
		{"-1", "", false},
		{"abc", "", false},
		{"", "", false},
	}
	for _, tc := range cases {
		got, err := ParseAmount(tc.in)
		if tc.ok {
			if err != nil {
				t.Fatalf("%q expected ok, got %v", tc.in, err)
			}
			if !got.Equal(decimal.RequireFromString(tc.out)) {
				t.Fatalf("%q expected %s, got %s", tc.in, tc.out, got)
			}
		} else if err == nil {
			t.Fatalf("%q expected error", tc.in)
		}
	}
}

func TestValidCurrency(t *testing.T) {
	for _, c := range Currencies {
		if !ValidCurrency(c) {
			t.Fatalf("%q expected valid", c)
		}
	}
	if ValidCurrency("¥") {
		t.Fatalf("¥ expected invalid")
	}
}

func TestExpenseValidate(t *testing.T) {
	good := Expense{
		Title:    "Groceries",
		Category: "Food",
		Amount:   decimal.NewFromInt(100),
		Date:     "2024-01-05",
	}
	if err := good.Validate(); err != nil {
		t.Fatalf("expected ok, got %v", err)
	}

	bads := []Expense{
		{Title: "", Category: "Food", Amount: decimal.NewFromInt(1), Date: "2024-01-05"},
		{Title: "a", Category: "", Amount: decimal.NewFromInt(1), Date: "2024-01-05"},
		{Title: "a", Category: "Food", Amount: decimal.NewFromInt(-1), Date: "2024-01-05"},
		{Title: "a", Category: "Food", Amount: decimal.NewFromInt(1), Date: "not-a-date"},
	}
	for i, e := range bads {
		if err := e.Validate(); err == nil {
			t.Fatalf("case %d expected error", i)
		}
	}
}
