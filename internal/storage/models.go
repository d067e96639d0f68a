package storage

import "database/sql"

type Account struct {
	OwnerID             int64
	InitialBalanceCents int64
}

type Card struct {
	ID               int64
	OwnerID          int64
	Name             string
	Active           bool
	CreditLimitCents int64
	ClosingDay       int64
	DueDay           int64
}

type Expense struct {
	ID            int64
	OwnerID       int64
	AmountCents   int64
	Status        string
	IsRecurring   bool
	DueDate       string
	Category      string
	Description   string
	PaymentMethod string
	CardID        sql.NullInt64
	InvoiceMonth  sql.NullInt64
	InvoiceYear   sql.NullInt64
	IsInvoice     bool
}

type Income struct {
	ID          int64
	OwnerID     int64
	AmountCents int64
	Settled     bool
	IsRecurring bool
	DueDate     string
	Category    string
	Description string
	GoalID      sql.NullInt64
}
