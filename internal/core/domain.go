package core

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Currencies lists the currency symbols a user may select.
var Currencies = []string{"₹", "$", "€", "£"}

type (
	// Date is a calendar day in ISO "YYYY-MM-DD" form. Expenses keep their
	// date as a string so month grouping is a plain prefix comparison.
	Date string

	User struct {
		ID           int64
		Name         string
		Email        string
		PasswordHash string
		Verified     bool
		Currency     string
		CreatedAt    time.Time
	}

	Expense struct {
		ID        int64
		UserID    int64
		Title     string
		Category  string
		Amount    decimal.Decimal
		Date      Date
		Notes     string
		CreatedAt time.Time
	}
)

var (
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrEmptyTitle      = errors.New("empty title")
	ErrEmptyCategory   = errors.New("empty category")
	ErrInvalidCurrency = errors.New("invalid currency")
)

// ParseDate validates s against the ISO calendar-day layout.
func ParseDate(s string) (Date, error) {
	if _, err := time.Parse("2006-01-02", s); err != nil {
		return "", ErrInvalidDate
	}
	return Date(s), nil
}

// Today returns the calendar date of the given instant.
func Today(now time.Time) Date {
	return Date(now.Format("2006-01-02"))
}

func (d Date) Validate() error {
	_, err := ParseDate(string(d))
	return err
}

// Month returns the "YYYY-MM" prefix of the date.
func (d Date) Month() string {
	if len(d) < 7 {
		return string(d)
	}
	return string(d[:7])
}

func (d Date) String() string {
	return string(d)
}

// ParseAmount converts a decimal string into a non-negative amount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	amount, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if amount.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return amount, nil
}

// ValidCurrency reports whether symbol is one of the supported currencies.
func ValidCurrency(symbol string) bool {
	for _, c := range Currencies {
		if symbol == c {
			return true
		}
	}
	return false
}

func (e Expense) Validate() error {
	if len(strings.TrimSpace(e.Title)) == 0 {
		return ErrEmptyTitle
	}
	if len(e.Title) > 200 {
		return errors.New("title too long (max 200 characters)")
	}
	if strings.TrimSpace(e.Category) == "" {
		return ErrEmptyCategory
	}
	if e.Amount.IsNegative() {
		return ErrInvalidAmount
	}
	if err := e.Date.Validate(); err != nil {
		return err
	}
	return nil
}
