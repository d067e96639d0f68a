package services

import (
	"testing"

	"finance/internal/core"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func paidCharge() core.Expense {
	return core.Expense{
		ID:          10,
		OwnerID:     owner,
		Amount:      core.Money{Cents: 500},
		Status:      core.StatusPaid,
		DueDate:     core.NewDate(2024, 3, 15),
		Category:    "Shopping",
		Description: "shoes",
		Charge:      &core.CardCharge{CardID: 1, Period: march},
	}
}

func TestPlanUpdate(t *testing.T) {
	april := core.BillingPeriod{Month: 4, Year: 2024}

	tests := []struct {
		name    string
		current core.Expense
		upd     ExpenseUpdate
		check   func(t *testing.T, next core.Expense)
		wantErr error
	}{
		{
			name:    "amount only keeps charge",
			current: paidCharge(),
			upd:     ExpenseUpdate{Amount: &core.Money{Cents: 900}},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, int64(900), next.Amount.Cents)
				require.NotNil(t, next.Charge)
				assert.Equal(t, core.CardCharge{CardID: 1, Period: march}, *next.Charge)
			},
		},
		{
			name:    "due date alone keeps the period",
			current: paidCharge(),
			upd:     ExpenseUpdate{DueDate: ptr(core.NewDate(2024, 4, 2))},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, march, next.Charge.Period)
			},
		},
		{
			name:    "card without period derives it from the new due date",
			current: paidCharge(),
			upd:     ExpenseUpdate{CardID: ptr(int64(2)), DueDate: ptr(core.NewDate(2024, 4, 2))},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, core.CardCharge{CardID: 2, Period: april}, *next.Charge)
			},
		},
		{
			name:    "card without period or date uses the current due date",
			current: paidCharge(),
			upd:     ExpenseUpdate{CardID: ptr(int64(2))},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, core.CardCharge{CardID: 2, Period: march}, *next.Charge)
			},
		},
		{
			name:    "explicit period wins",
			current: paidCharge(),
			upd:     ExpenseUpdate{CardID: ptr(int64(2)), Period: &april},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, core.CardCharge{CardID: 2, Period: april}, *next.Charge)
			},
		},
		{
			name:    "cash clears the charge",
			current: paidCharge(),
			upd:     ExpenseUpdate{PaymentMethod: ptr(core.PaymentCash)},
			check: func(t *testing.T, next core.Expense) {
				assert.Nil(t, next.Charge)
			},
		},
		{
			name:    "reversion clears the charge",
			current: paidCharge(),
			upd:     ExpenseUpdate{Status: ptr(core.StatusOverdue)},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, core.StatusOverdue, next.Status)
				assert.Nil(t, next.Charge)
			},
		},
		{
			name:    "status is case-insensitive",
			current: func() core.Expense { e := paidCharge(); e.Status, e.Charge = core.StatusDue, nil; return e }(),
			upd:     ExpenseUpdate{Status: ptr(core.ExpenseStatus(" pago "))},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, core.StatusPaid, next.Status)
			},
		},
		{
			name:    "card payment keeps the existing card",
			current: paidCharge(),
			upd:     ExpenseUpdate{PaymentMethod: ptr(core.PaymentCard)},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, int64(1), next.Charge.CardID)
			},
		},
		{
			name: "pay and charge in one update",
			current: func() core.Expense {
				e := paidCharge()
				e.Status, e.Charge = core.StatusDue, nil
				return e
			}(),
			upd: ExpenseUpdate{Status: ptr(core.StatusPaid), CardID: ptr(int64(3))},
			check: func(t *testing.T, next core.Expense) {
				assert.Equal(t, core.CardCharge{CardID: 3, Period: march}, *next.Charge)
			},
		},
		{
			name:    "card payment with no card on file",
			current: func() core.Expense { e := paidCharge(); e.Charge = nil; return e }(),
			upd:     ExpenseUpdate{PaymentMethod: ptr(core.PaymentCard)},
			wantErr: core.ErrCardRequired,
		},
		{
			name:    "card on an unpaid row",
			current: paidCharge(),
			upd:     ExpenseUpdate{Status: ptr(core.StatusDue), CardID: ptr(int64(1))},
			wantErr: core.ErrChargeNotSettled,
		},
		{
			name:    "cash and card together",
			current: paidCharge(),
			upd:     ExpenseUpdate{PaymentMethod: ptr(core.PaymentCash), CardID: ptr(int64(1))},
			wantErr: core.ErrInvalidPayment,
		},
		{
			name:    "unknown status",
			current: paidCharge(),
			upd:     ExpenseUpdate{Status: ptr(core.ExpenseStatus("DONE"))},
			wantErr: core.ErrInvalidStatus,
		},
		{
			name: "invoice amount is managed",
			current: core.Expense{
				ID: 11, OwnerID: owner, Status: core.StatusDue, DueDate: core.NewDate(2024, 4, 10),
				Category: "Card X", Description: "Invoice X - 03/2024",
				Invoice: &core.InvoiceRef{CardID: 1, Period: march},
			},
			upd:     ExpenseUpdate{Amount: &core.Money{Cents: 1}},
			wantErr: core.ErrInvoiceManaged,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			before := tt.current
			next, err := planUpdate(tt.current, tt.upd)
			if tt.wantErr != nil {
				require.Error(t, err)
				assert.ErrorIs(t, err, core.ErrValidation)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			tt.check(t, next)
			assert.Equal(t, before, tt.current, "current must not be mutated")
		})
	}
}

func TestPlanUpdateDoesNotAliasCharge(t *testing.T) {
	current := paidCharge()
	april := core.BillingPeriod{Month: 4, Year: 2024}
	_, err := planUpdate(current, ExpenseUpdate{Period: &april})
	require.NoError(t, err)
	assert.Equal(t, march, current.Charge.Period)
}

func TestAffectedKeys(t *testing.T) {
	a := &core.InvoiceKey{OwnerID: 1, CardID: 1, Period: march}
	b := &core.InvoiceKey{OwnerID: 1, CardID: 2, Period: march}
	same := *a

	assert.Empty(t, affectedKeys(nil, nil))
	assert.Equal(t, []core.InvoiceKey{*a}, affectedKeys(a, nil))
	assert.Equal(t, []core.InvoiceKey{*b}, affectedKeys(nil, b))
	assert.Equal(t, []core.InvoiceKey{*a}, affectedKeys(a, &same))
	assert.Equal(t, []core.InvoiceKey{*a, *b}, affectedKeys(a, b))
}

func TestInstallmentExpansion(t *testing.T) {
	card := int64(1)
	nov := core.BillingPeriod{Month: 11, Year: 2024}
	in := ExpenseInput{DueDate: core.NewDate(2024, 11, 30), Description: "TV", CardID: &card, Period: &nov}

	items := installments(in, 3)
	require.Len(t, items, 3)
	assert.Equal(t, "2024-12-30", items[1].DueDate.String())
	assert.Equal(t, "2025-01-30", items[2].DueDate.String())
	assert.Equal(t, "TV - Parcela 3/3", items[2].Description)
	assert.Equal(t, core.BillingPeriod{Month: 1, Year: 2025}, *items[2].Period)
	assert.Equal(t, nov, *in.Period, "input period must not be mutated")
}
