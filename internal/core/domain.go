package core

import (
	"errors"
	"strings"
	"time"
)

// Account classification.
const (
	Debit       AccountType = "Debit"
	Certificate AccountType = "Certificate"
	Investment  AccountType = "Investment"
)

// Expense categories. Needs/Wants/Savings feed the 50-20-30 split;
// Debt and CardPayment only appear in the general category aggregate.
const (
	Needs       ExpenseCategory = "Needs"
	Wants       ExpenseCategory = "Wants"
	Savings     ExpenseCategory = "Savings"
	DebtPayment ExpenseCategory = "Debt"
	CardPayment ExpenseCategory = "CardPayment"
)

type (
	AccountType     string
	ExpenseCategory string

	Date struct {
		time.Time
	}

	// Scope identifies one (user, profile) sub-ledger. Every operation that
	// touches stored state takes it explicitly; there is no ambient session.
	Scope struct {
		User    string
		Profile string
	}

	Account struct {
		Name    string      `json:"name"`
		Type    AccountType `json:"type"`
		Balance Money       `json:"balance"`
		Rate    float64     `json:"rate"` // annual interest, percent
	}

	CreditCard struct {
		Name     string  `json:"name"`
		Limit    Money   `json:"limit"`
		CutDay   int     `json:"cut_day"`
		PayDay   int     `json:"pay_day"`
		Balance  Money   `json:"balance"`
		Cashback float64 `json:"cashback"` // percent
	}

	Debt struct {
		Name       string  `json:"name"`
		Balance    Money   `json:"balance"`
		Rate       float64 `json:"rate"`
		MinPayment Money   `json:"min_payment"`
	}

	// Transaction records one income or expense. Source references an
	// Account or CreditCard by name; the reference is not owning and may
	// dangle after renames or deletions.
	Transaction struct {
		Date        Date   `json:"date"`
		Amount      Money  `json:"amount"`
		Category    string `json:"category"`
		Subcategory string `json:"subcat"`
		Source      string `json:"source"`
		Recurring   bool   `json:"recurrent"`
	}

	Goal struct {
		Name     string `json:"name"`
		Target   Money  `json:"target"`
		Deadline Date   `json:"deadline"`
		Saved    Money  `json:"saved"`
	}
)

var (
	ErrInvalidAmount   = errors.New("invalid amount")
	ErrInvalidDate     = errors.New("invalid date")
	ErrInvalidCategory = errors.New("invalid expense category")
	ErrEmptyName       = errors.New("empty name")
	ErrNotFound        = errors.New("not found")
	ErrIndexOutOfRange = errors.New("index out of range")
)

const dateLayout = "2006-01-02"

// NewDate builds a calendar date at midnight UTC.
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates a time to its calendar date.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

func (d Date) Year() int  { return d.Time.Year() }
func (d Date) Month() int { return int(d.Time.Month()) }
func (d Date) Day() int   { return d.Time.Day() }

func (d Date) String() string {
	return d.Format(dateLayout)
}

func (d Date) MarshalJSON() ([]byte, error) {
	return []byte(`"` + d.Format(dateLayout) + `"`), nil
}

func (d *Date) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	if s == "" || s == "null" {
		*d = Date{}
		return nil
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return ErrInvalidDate
	}
	d.Time = t
	return nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return ErrInvalidDate
	}
	return nil
}

// InMonth reports whether the date falls in the given calendar month.
func (d Date) InMonth(year, month int) bool {
	return d.Year() == year && d.Month() == month
}

func (at AccountType) IsValid() bool {
	switch at {
	case Debit, Certificate, Investment:
		return true
	}
	return false
}

func (ec ExpenseCategory) IsValid() bool {
	switch ec {
	case Needs, Wants, Savings, DebtPayment, CardPayment:
		return true
	}
	return false
}

// ExpenseCategories lists the fixed expense categories in split order.
func ExpenseCategories() []ExpenseCategory {
	return []ExpenseCategory{Needs, Wants, Savings, DebtPayment, CardPayment}
}

// ClampDay forces a statement or payment day into the [1,31] range.
func ClampDay(day int) int {
	if day < 1 {
		return 1
	}
	if day > 31 {
		return 31
	}
	return day
}

// Normalize clamps the card's cut and pay days.
func (c *CreditCard) Normalize() {
	c.CutDay = ClampDay(c.CutDay)
	c.PayDay = ClampDay(c.PayDay)
}

func (t Transaction) Validate() error {
	if err := t.Date.Validate(); err != nil {
		return err
	}
	if t.Amount.Cents <= 0 {
		return ErrInvalidAmount
	}
	if strings.TrimSpace(t.Category) == "" {
		return ErrInvalidCategory
	}
	return nil
}

// ValidateExpense additionally constrains the category to the fixed enum.
func (t Transaction) ValidateExpense() error {
	if err := t.Validate(); err != nil {
		return err
	}
	if !ExpenseCategory(t.Category).IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// MonthsLeft returns the whole months until the deadline, never below one.
func (g Goal) MonthsLeft(now time.Time) int {
	days := int(g.Deadline.Sub(DateOf(now).Time).Hours() / 24)
	months := days / 30
	if months < 1 {
		return 1
	}
	return months
}

// NeedPerMonth is the saving pace required to reach the target on time.
// It never divides by zero and never goes negative.
func (g Goal) NeedPerMonth(now time.Time) Money {
	remaining := g.Target.Cents - g.Saved.Cents
	if remaining < 0 {
		remaining = 0
	}
	return Money{Cents: remaining / int64(g.MonthsLeft(now))}
}
