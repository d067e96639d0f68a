package core

import "strings"

const (
	StatusDue     ExpenseStatus = "A_VENCER"
	StatusPaid    ExpenseStatus = "PAGO"
	StatusOverdue ExpenseStatus = "VENCIDO"
)

const (
	PaymentCash PaymentMethod = "CASH"
	PaymentCard PaymentMethod = "CARD"
)

type (
	ExpenseStatus string

	PaymentMethod string
)

// ParseStatus accepts the persisted status names, case-insensitively.
// Unknown values are rejected instead of defaulting.
func ParseStatus(s string) (ExpenseStatus, error) {
	switch st := ExpenseStatus(strings.ToUpper(strings.TrimSpace(s))); st {
	case StatusDue, StatusPaid, StatusOverdue:
		return st, nil
	default:
		return "", ErrInvalidStatus
	}
}

func (s ExpenseStatus) Validate() error {
	switch s {
	case StatusDue, StatusPaid, StatusOverdue:
		return nil
	default:
		return ErrInvalidStatus
	}
}

func (s ExpenseStatus) String() string {
	return string(s)
}

// IsPaid reports whether the expense is settled.
func (s ExpenseStatus) IsPaid() bool {
	return s == StatusPaid
}

// CanTransition reports whether moving from s to next is an edge of the
// status machine. Staying in the same state is always allowed.
//
//	A_VENCER -> PAGO | VENCIDO
//	VENCIDO  -> PAGO
//	PAGO     -> A_VENCER | VENCIDO
func (s ExpenseStatus) CanTransition(next ExpenseStatus) bool {
	if s == next {
		return true
	}
	switch s {
	case StatusDue:
		return next == StatusPaid || next == StatusOverdue
	case StatusOverdue:
		return next == StatusPaid
	case StatusPaid:
		return next == StatusDue || next == StatusOverdue
	}
	return false
}

// ParsePaymentMethod accepts CASH or CARD, case-insensitively. An empty
// string means CASH, the column default.
func ParsePaymentMethod(s string) (PaymentMethod, error) {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "" {
		return PaymentCash, nil
	}
	switch pm := PaymentMethod(s); pm {
	case PaymentCash, PaymentCard:
		return pm, nil
	default:
		return "", ErrInvalidPayment
	}
}

func (p PaymentMethod) Validate() error {
	switch p {
	case PaymentCash, PaymentCard:
		return nil
	default:
		return ErrInvalidPayment
	}
}

func (p PaymentMethod) String() string {
	return string(p)
}
