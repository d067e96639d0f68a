package core

import (
	"errors"
	"strings"
	"time"
)

const dateLayout = "2006-01-02"

type (
	Date struct {
		time.Time
	}

	// CardCharge links a paid expense to the card invoice it belongs to.
	// An expense carries one only when it was paid by card.
	CardCharge struct {
		CardID int64
		Period BillingPeriod
	}

	// InvoiceRef identifies the card and billing period a synthetic invoice
	// row consolidates.
	InvoiceRef struct {
		CardID int64
		Period BillingPeriod
	}

	Expense struct {
		ID          int64
		OwnerID     int64
		Amount      Money
		Status      ExpenseStatus
		IsRecurring bool
		DueDate     Date
		Category    string
		Description string
		Charge      *CardCharge // nil for cash expenses and invoice rows
		Invoice     *InvoiceRef // non-nil only for synthetic invoice rows
	}

	Income struct {
		ID          int64
		OwnerID     int64
		Amount      Money
		Settled     bool
		IsRecurring bool
		DueDate     Date
		Category    string
		Description string
		GoalID      *int64 // routes the income to a savings goal
	}

	Card struct {
		ID          int64
		OwnerID     int64
		Name        string
		Active      bool
		CreditLimit Money
		ClosingDay  int
		DueDay      int
	}

	Account struct {
		OwnerID        int64
		InitialBalance Money
	}

	// ExpenseFilter narrows ListExpenses. Zero values mean "any".
	ExpenseFilter struct {
		Year         int
		Month        int
		InvoicesOnly bool
	}
)

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day in t's location.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse(dateLayout, strings.TrimSpace(s))
	if err != nil {
		return Date{}, err
	}
	return Date{Time: t}, nil
}

func (d Date) Validate() error {
	if d.IsZero() {
		return errors.New("date cannot be zero")
	}
	return nil
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// String formats the date as YYYY-MM-DD.
func (d Date) String() string {
	return d.Format(dateLayout)
}

// Before reports whether d is an earlier calendar day than o.
func (d Date) Before(o Date) bool {
	return d.Time.Before(o.Time)
}

// AddMonths moves d by n calendar months. A day that does not exist in the
// target month is clamped to that month's last day (Jan 31 + 1 = Feb 28/29).
func (d Date) AddMonths(n int) Date {
	first := time.Date(d.Year(), d.Time.Month(), 1, 0, 0, 0, 0, time.UTC).AddDate(0, n, 0)
	day := min(d.Day(), DaysIn(first.Year(), int(first.Month())))
	return NewDate(first.Year(), int(first.Month()), day)
}

// DaysIn returns the number of days in month of year.
func DaysIn(year, month int) int {
	return time.Date(year, time.Month(month)+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// PaymentMethod is CARD for card charges and CASH for everything else,
// invoice rows included.
func (e Expense) PaymentMethod() PaymentMethod {
	if e.Charge != nil {
		return PaymentCard
	}
	return PaymentCash
}

// IsInvoice reports whether e is a synthetic invoice row.
func (e Expense) IsInvoice() bool {
	return e.Invoice != nil
}

// ChargeKey returns the invoice tuple e contributes to, or nil when e is not
// a paid card charge.
func (e Expense) ChargeKey() *InvoiceKey {
	if e.Charge == nil || !e.Status.IsPaid() {
		return nil
	}
	return &InvoiceKey{OwnerID: e.OwnerID, CardID: e.Charge.CardID, Period: e.Charge.Period}
}

// Validate checks field ranges and the card linkage invariants: a charge only
// exists on a paid row, and an invoice row is never itself a charge.
func (e Expense) Validate() error {
	if e.OwnerID <= 0 {
		return Invalid("owner_id", ErrInvalidOwner)
	}
	if err := e.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := e.Status.Validate(); err != nil {
		return Invalid("status", err)
	}
	if err := e.DueDate.Validate(); err != nil {
		return Invalid("due_date", err)
	}
	if len(strings.TrimSpace(e.Description)) == 0 {
		return Invalid("description", ErrEmptyDescription)
	}
	if len(e.Description) > 200 {
		return Invalid("description", errors.New("description too long (max 200 characters)"))
	}
	if strings.TrimSpace(e.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	if e.Charge != nil {
		if e.Invoice != nil {
			return Invalid("card_id", ErrInvoiceNotCharged)
		}
		if !e.Status.IsPaid() {
			return Invalid("card_id", ErrChargeNotSettled)
		}
		if e.Charge.CardID <= 0 {
			return Invalid("card_id", ErrCardRequired)
		}
		if err := e.Charge.Period.Validate(); err != nil {
			return Invalid("invoice_period", err)
		}
	}
	if e.Invoice != nil {
		if err := e.Invoice.Period.Validate(); err != nil {
			return Invalid("invoice_period", err)
		}
	}
	return nil
}

func (i Income) Validate() error {
	if i.OwnerID <= 0 {
		return Invalid("owner_id", ErrInvalidOwner)
	}
	if err := i.Amount.Validate(); err != nil {
		return Invalid("amount", err)
	}
	if err := i.DueDate.Validate(); err != nil {
		return Invalid("due_date", err)
	}
	if strings.TrimSpace(i.Category) == "" {
		return Invalid("category", ErrEmptyCategory)
	}
	return nil
}

// NewCard builds an active card with closing and due days clamped into 1..31.
// The invoice due date is further clamped to the target month's length.
func NewCard(ownerID int64, name string, limit Money, closingDay, dueDay int) Card {
	return Card{
		OwnerID:     ownerID,
		Name:        strings.TrimSpace(name),
		Active:      true,
		CreditLimit: limit,
		ClosingDay:  clampDay(closingDay),
		DueDay:      clampDay(dueDay),
	}
}

func (c Card) Validate() error {
	if c.OwnerID <= 0 {
		return Invalid("owner_id", ErrInvalidOwner)
	}
	if c.Name == "" {
		return Invalid("name", errors.New("empty card name"))
	}
	if err := c.CreditLimit.Validate(); err != nil {
		return Invalid("credit_limit", err)
	}
	if c.DueDay < 1 || c.DueDay > 31 {
		return Invalid("due_day", ErrInvalidDay)
	}
	if c.ClosingDay < 1 || c.ClosingDay > 31 {
		return Invalid("closing_day", ErrInvalidDay)
	}
	return nil
}

func clampDay(d int) int {
	return max(1, min(d, 31))
}
