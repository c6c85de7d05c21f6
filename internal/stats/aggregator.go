// Package stats computes dashboard aggregates over a user's expenses.
package stats

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"github.com/shubham5177/expense-tracker/internal/core"
)

func init() {
	// The dashboard consumes amounts as plain JSON numbers.
	decimal.MarshalJSONWithoutQuotes = true
}

// chartMonths caps the trailing time series length.
const chartMonths = 6

// Store is the slice of the expense store the aggregator reads from.
type Store interface {
	// ListByUser returns every expense owned by userID, date descending.
	ListByUser(ctx context.Context, userID int64) ([]core.Expense, error)
}

// Result holds the aggregates for one user, recomputed on every request.
type Result struct {
	TotalSpending   decimal.Decimal            `json:"total_spending"`
	MonthlySpending decimal.Decimal            `json:"monthly_spending"`
	TodaySpending   decimal.Decimal            `json:"today_spending"`
	CategoryTotals  map[string]decimal.Decimal `json:"category_totals"`
	ChartData       ChartData                  `json:"chart_data"`
}

// ChartData is the trailing monthly series: labels are "YYYY-MM" strings in
// chronological order, data holds the matching monthly sums.
type ChartData struct {
	Labels []string          `json:"labels"`
	Data   []decimal.Decimal `json:"data"`
}

type Aggregator struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Aggregator {
	return &Aggregator{store: store, now: time.Now}
}

// ComputeStats derives the dashboard aggregates from the user's current
// expense set. A user with no expenses yields zeroes, not an error.
func (a *Aggregator) ComputeStats(ctx context.Context, userID int64) (Result, error) {
	expenses, err := a.store.ListByUser(ctx, userID)
	if err != nil {
		return Result{}, fmt.Errorf("list expenses for user %d: %w", userID, err)
	}

	now := a.now()
	currentMonth := now.Format("2006-01")
	today := core.Today(now)

	result := Result{
		CategoryTotals: make(map[string]decimal.Decimal),
		ChartData:      ChartData{Labels: []string{}, Data: []decimal.Decimal{}},
	}
	monthTotals := make(map[string]decimal.Decimal)

	for _, e := range expenses {
		result.TotalSpending = result.TotalSpending.Add(e.Amount)
		if e.Date.Month() == currentMonth {
			result.MonthlySpending = result.MonthlySpending.Add(e.Amount)
		}
		if e.Date == today {
			result.TodaySpending = result.TodaySpending.Add(e.Amount)
		}
		result.CategoryTotals[e.Category] = result.CategoryTotals[e.Category].Add(e.Amount)
		month := e.Date.Month()
		monthTotals[month] = monthTotals[month].Add(e.Amount)
	}

	// Chart the 6 most recent months that have data, oldest first. Months
	// without expenses are absent rather than zero.
	months := make([]string, 0, len(monthTotals))
	for m := range monthTotals {
		months = append(months, m)
	}
	sort.Strings(months)
	if len(months) > chartMonths {
		months = months[len(months)-chartMonths:]
	}
	for _, m := range months {
		result.ChartData.Labels = append(result.ChartData.Labels, m)
		result.ChartData.Data = append(result.ChartData.Data, monthTotals[m])
	}

	return result, nil
}
