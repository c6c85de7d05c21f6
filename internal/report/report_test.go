package report

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham5177/expense-tracker/internal/core"
)

type fakeStore struct {
	expenses  []core.Expense
	err       error
	gotMonth  string
	gotUserID int64
}

func (f *fakeStore) ListByUserMonth(ctx context.Context, userID int64, month string) ([]core.Expense, error) {
	f.gotUserID = userID
	f.gotMonth = month
	return f.expenses, f.err
}

func expense(title, category, amount, date string) core.Expense {
	return core.Expense{
		Title:    title,
		Category: category,
		Amount:   decimal.RequireFromString(amount),
		Date:     core.Date(date),
	}
}

func TestBuildGrid(t *testing.T) {
	expenses := []core.Expense{
		expense("Lunch", "Food", "250.5", "2024-01-10"),
		expense("Bus", "Travel", "49.5", "2024-01-05"),
	}

	grid := buildGrid(expenses, "₹")

	if len(grid) != len(expenses)+2 {
		t.Fatalf("expected %d rows, got %d", len(expenses)+2, len(grid))
	}
	header := [4]string{"Date", "Title", "Category", "Amount"}
	if grid[0] != header {
		t.Fatalf("unexpected header row: %v", grid[0])
	}
	if grid[1] != [4]string{"2024-01-10", "Lunch", "Food", "₹250.50"} {
		t.Fatalf("unexpected first row: %v", grid[1])
	}
	totalRow := grid[len(grid)-1]
	if totalRow != [4]string{"", "", "Total:", "₹300.00"} {
		t.Fatalf("unexpected total row: %v", totalRow)
	}
}

func TestBuildGridEmpty(t *testing.T) {
	grid := buildGrid(nil, "$")

	if len(grid) != 2 {
		t.Fatalf("expected header and total only, got %d rows", len(grid))
	}
	if grid[1] != [4]string{"", "", "Total:", "$0.00"} {
		t.Fatalf("unexpected total row: %v", grid[1])
	}
}

func TestFormatAmount(t *testing.T) {
	cases := []struct {
		currency string
		amount   string
		want     string
	}{
		{"₹", "100", "₹100.00"},
		{"$", "12.345", "$12.35"},
		{"€", "0", "€0.00"},
	}
	for _, tc := range cases {
		got := formatAmount(tc.currency, decimal.RequireFromString(tc.amount))
		if got != tc.want {
			t.Fatalf("%s %s expected %q, got %q", tc.currency, tc.amount, tc.want, got)
		}
	}
}

func TestRenderMonthlyReport(t *testing.T) {
	store := &fakeStore{expenses: []core.Expense{
		expense("Lunch", "Food", "250", "2024-01-10"),
	}}
	r := New(store)
	r.now = func() time.Time { return time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC) }

	pdf, filename, err := r.RenderMonthlyReport(context.Background(), 7, Identity{
		Name:     "Asha",
		Email:    "asha@example.com",
		Currency: "₹",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if store.gotUserID != 7 || store.gotMonth != "2024-01" {
		t.Fatalf("unexpected store query: user=%d month=%s", store.gotUserID, store.gotMonth)
	}
	if filename != "expense_report_2024-01.pdf" {
		t.Fatalf("unexpected filename %q", filename)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatalf("output does not look like a PDF")
	}
}

func TestRenderMonthlyReportStoreError(t *testing.T) {
	wantErr := errors.New("db down")
	r := New(&fakeStore{err: wantErr})

	_, _, err := r.RenderMonthlyReport(context.Background(), 1, Identity{})
	if !errors.Is(err, wantErr) {
		t.Fatalf("expected wrapped store error, got %v", err)
	}
}
