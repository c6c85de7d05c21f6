// Package report renders the downloadable monthly expense report.
package report

import (
	"context"
	"fmt"
	"time"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/border"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	mcore "github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/shubham5177/expense-tracker/internal/core"
)

// Identity is the display block of the requesting user. The caller is
// responsible for it matching the user id passed alongside.
type Identity struct {
	Name     string
	Email    string
	Currency string
}

// Store is the slice of the expense store the renderer reads from.
type Store interface {
	// ListByUserMonth returns the user's expenses whose date falls in the
	// given "YYYY-MM" month, date descending.
	ListByUserMonth(ctx context.Context, userID int64, month string) ([]core.Expense, error)
}

type Renderer struct {
	store Store
	now   func() time.Time
}

func New(store Store) *Renderer {
	return &Renderer{store: store, now: time.Now}
}

// Table column widths on maroto's 12-column grid: Date, Title, Category, Amount.
var columnSizes = [4]int{3, 4, 3, 2}

var (
	headerFill = props.Color{Red: 128, Green: 128, Blue: 128}
	totalFill  = props.Color{Red: 245, Green: 245, Blue: 220}
	white      = props.Color{Red: 255, Green: 255, Blue: 255}
	black      = props.Color{Red: 0, Green: 0, Blue: 0}
)

// RenderMonthlyReport builds the current month's expense report for the user
// and returns the PDF bytes with the suggested attachment filename.
func (r *Renderer) RenderMonthlyReport(ctx context.Context, userID int64, identity Identity) ([]byte, string, error) {
	now := r.now()
	month := now.Format("2006-01")

	expenses, err := r.store.ListByUserMonth(ctx, userID, month)
	if err != nil {
		return nil, "", fmt.Errorf("list month expenses for user %d: %w", userID, err)
	}

	grid := buildGrid(expenses, identity.Currency)

	cfg := config.NewBuilder().
		WithPageSize(pagesize.Letter).
		WithOrientation(orientation.Vertical).
		WithLeftMargin(15).
		WithTopMargin(15).
		WithRightMargin(15).
		WithBottomMargin(10).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, "Expense Report - "+now.Format("January 2006"),
			props.Text{Size: 16, Style: fontstyle.Bold, Align: align.Center}),
	)
	m.AddRow(4)
	m.AddRow(6,
		text.NewCol(12, "Name: "+identity.Name, props.Text{Size: 10, Align: align.Left}),
	)
	m.AddRow(6,
		text.NewCol(12, "Email: "+identity.Email, props.Text{Size: 10, Align: align.Left}),
	)
	m.AddRow(4)

	for i, cells := range grid {
		m.AddRows(tableRow(cells, i, len(grid)))
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, "", fmt.Errorf("render monthly report: %w", err)
	}

	filename := fmt.Sprintf("expense_report_%s.pdf", month)
	return doc.GetBytes(), filename, nil
}

// buildGrid assembles the table contents: a header row, one row per expense
// and a trailing total row. Zero expenses still yield header plus a 0.00
// total.
func buildGrid(expenses []core.Expense, currency string) [][4]string {
	grid := make([][4]string, 0, len(expenses)+2)
	grid = append(grid, [4]string{"Date", "Title", "Category", "Amount"})

	var total decimal.Decimal
	for _, e := range expenses {
		total = total.Add(e.Amount)
		grid = append(grid, [4]string{
			e.Date.String(),
			e.Title,
			e.Category,
			formatAmount(currency, e.Amount),
		})
	}

	grid = append(grid, [4]string{"", "", "Total:", formatAmount(currency, total)})
	return grid
}

// formatAmount renders an amount at two decimal places behind the user's
// currency symbol.
func formatAmount(currency string, amount decimal.Decimal) string {
	return currency + amount.StringFixed(2)
}

// tableRow styles one grid row: shaded bold header, shaded total row, full
// grid borders everywhere.
func tableRow(cells [4]string, index, total int) mcore.Row {
	style := &props.Cell{
		BorderType:  border.Full,
		BorderColor: &black,
	}
	textProps := props.Text{Size: 9, Align: align.Center}
	height := 7.0

	switch {
	case index == 0:
		style.BackgroundColor = &headerFill
		textProps.Style = fontstyle.Bold
		textProps.Size = 11
		textProps.Color = &white
		height = 9
	case index == total-1:
		style.BackgroundColor = &totalFill
	}

	line := row.New(height).WithStyle(style)
	for i, cell := range cells {
		line.Add(text.NewCol(columnSizes[i], cell, textProps))
	}
	return line
}
