package core

import "fmt"

// BillingPeriod is the (month, year) a card charge is attributed to,
// independent of the charge's own due date.
type BillingPeriod struct {
	Month int
	Year  int
}

// InvoiceKey identifies the single invoice row allowed per owner, card and
// billing period.
type InvoiceKey struct {
	OwnerID int64
	CardID  int64
	Period  BillingPeriod
}

func NewBillingPeriod(month, year int) (BillingPeriod, error) {
	p := BillingPeriod{Month: month, Year: year}
	return p, p.Validate()
}

// PeriodOf returns the billing period of a date: its own month and year.
func PeriodOf(d Date) BillingPeriod {
	return BillingPeriod{Month: d.Month(), Year: d.Year()}
}

func (p BillingPeriod) Validate() error {
	if p.Month < 1 || p.Month > 12 {
		return ErrInvalidMonth
	}
	if p.Year < 1 || p.Year > 9999 {
		return ErrInvalidYear
	}
	return nil
}

// Next returns the following period; December rolls over to January.
func (p BillingPeriod) Next() BillingPeriod {
	if p.Month == 12 {
		return BillingPeriod{Month: 1, Year: p.Year + 1}
	}
	return BillingPeriod{Month: p.Month + 1, Year: p.Year}
}

// AddMonths shifts p by n months.
func (p BillingPeriod) AddMonths(n int) BillingPeriod {
	idx := p.Year*12 + p.Month - 1 + n
	return BillingPeriod{Month: idx%12 + 1, Year: idx / 12}
}

// InvoiceDueDate is dueDay in the month after p, clamped to that month's
// last day.
func (p BillingPeriod) InvoiceDueDate(dueDay int) (Date, error) {
	if err := p.Validate(); err != nil {
		return Date{}, err
	}
	if dueDay < 1 {
		return Date{}, ErrInvalidDay
	}
	n := p.Next()
	return NewDate(n.Year, n.Month, min(dueDay, DaysIn(n.Year, n.Month))), nil
}

// String formats the period as MM/YYYY.
func (p BillingPeriod) String() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

func (k InvoiceKey) String() string {
	return fmt.Sprintf("owner=%d card=%d period=%s", k.OwnerID, k.CardID, k.Period)
}

// InvoiceDescription is the description of the synthetic invoice row.
func InvoiceDescription(cardName string, p BillingPeriod) string {
	return fmt.Sprintf("Invoice %s - %s", cardName, p)
}

// InvoiceCategory is the category of the synthetic invoice row.
func InvoiceCategory(cardName string) string {
	return "Card " + cardName
}
