package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"finance/internal/core"
	"finance/internal/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	repo, err := NewSQLiteRepository(filepath.Join(t.TempDir(), "data", "ledger.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo
}

func cashExpense(owner int64, cents int64, status core.ExpenseStatus, due core.Date) core.Expense {
	return core.Expense{
		OwnerID:     owner,
		Amount:      core.Money{Cents: cents},
		Status:      status,
		DueDate:     due,
		Category:    "Food",
		Description: "groceries",
	}
}

func TestMigrationVersion(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	require.NoError(t, RunMigrations(path))
	require.NoError(t, RunMigrations(path)) // no change is not an error

	v, dirty, err := MigrationVersion(path)
	require.NoError(t, err)
	assert.Equal(t, uint(1), v)
	assert.False(t, dirty)
}

func TestExpenseRoundTrip(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	charge := cashExpense(1, 1500, core.StatusPaid, core.NewDate(2024, 3, 12))
	charge.Charge = &core.CardCharge{CardID: 7, Period: core.BillingPeriod{Month: 3, Year: 2024}}
	id, err := repo.InsertExpense(ctx, charge)
	require.NoError(t, err)

	got, err := repo.GetExpense(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	assert.Equal(t, core.PaymentCard, got.PaymentMethod())
	require.NotNil(t, got.Charge)
	assert.Equal(t, *charge.Charge, *got.Charge)
	assert.Nil(t, got.Invoice)
	assert.Equal(t, "2024-03-12", got.DueDate.String())

	// owner scoping
	_, err = repo.GetExpense(ctx, 2, id)
	assert.True(t, errors.Is(err, core.ErrNotFound))

	got.Status = core.StatusDue
	got.Charge = nil
	require.NoError(t, repo.UpdateExpense(ctx, got))
	reread, err := repo.GetExpense(ctx, 1, id)
	require.NoError(t, err)
	assert.Nil(t, reread.Charge)
	assert.Equal(t, core.StatusDue, reread.Status)

	require.NoError(t, repo.DeleteExpense(ctx, 1, id))
	assert.True(t, errors.Is(repo.DeleteExpense(ctx, 1, id), core.ErrNotFound))
}

func TestSchemaRejectsUnpaidCardCharge(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	e := cashExpense(1, 100, core.StatusDue, core.NewDate(2024, 3, 1))
	e.Charge = &core.CardCharge{CardID: 1, Period: core.BillingPeriod{Month: 3, Year: 2024}}
	_, err := repo.InsertExpense(ctx, e)
	assert.Error(t, err)
}

func TestSingleInvoicePerTuple(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	inv := cashExpense(1, 900, core.StatusDue, core.NewDate(2024, 4, 10))
	inv.Invoice = &core.InvoiceRef{CardID: 3, Period: core.BillingPeriod{Month: 3, Year: 2024}}
	_, err := repo.InsertExpense(ctx, inv)
	require.NoError(t, err)

	_, err = repo.InsertExpense(ctx, inv)
	assert.Error(t, err, "second invoice row for the same tuple must be rejected")

	// a different owner may hold the same card/period tuple
	other := inv
	other.OwnerID = 2
	_, err = repo.InsertExpense(ctx, other)
	assert.NoError(t, err)

	found, err := repo.FindInvoice(ctx, core.InvoiceKey{OwnerID: 1, CardID: 3, Period: inv.Invoice.Period})
	require.NoError(t, err)
	assert.True(t, found.IsInvoice())
	assert.Equal(t, core.PaymentCash, found.PaymentMethod())
}

func TestSumsAndTuples(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	march := core.BillingPeriod{Month: 3, Year: 2024}

	for _, cents := range []int64{1000, 2500} {
		e := cashExpense(1, cents, core.StatusPaid, core.NewDate(2024, 3, 5))
		e.Charge = &core.CardCharge{CardID: 4, Period: march}
		_, err := repo.InsertExpense(ctx, e)
		require.NoError(t, err)
	}
	_, err := repo.InsertExpense(ctx, cashExpense(1, 700, core.StatusPaid, core.NewDate(2024, 3, 6)))
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, cashExpense(1, 9999, core.StatusDue, core.NewDate(2024, 3, 6)))
	require.NoError(t, err)

	sum, err := repo.SumCharges(ctx, core.InvoiceKey{OwnerID: 1, CardID: 4, Period: march})
	require.NoError(t, err)
	assert.Equal(t, int64(3500), sum.Cents)

	out, err := repo.SumCashOutflow(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(700), out.Cents, "card charges are not cash outflow")

	orphan := cashExpense(1, 50, core.StatusDue, core.NewDate(2024, 6, 10))
	orphan.Invoice = &core.InvoiceRef{CardID: 9, Period: core.BillingPeriod{Month: 5, Year: 2024}}
	_, err = repo.InsertExpense(ctx, orphan)
	require.NoError(t, err)

	keys, err := repo.InvoiceKeys(ctx, 1)
	require.NoError(t, err)
	assert.ElementsMatch(t, []core.InvoiceKey{
		{OwnerID: 1, CardID: 4, Period: march},
		{OwnerID: 1, CardID: 9, Period: core.BillingPeriod{Month: 5, Year: 2024}},
	}, keys)
}

func TestMarkOverdue(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	past, err := repo.InsertExpense(ctx, cashExpense(1, 100, core.StatusDue, core.NewDate(2024, 1, 9)))
	require.NoError(t, err)
	today, err := repo.InsertExpense(ctx, cashExpense(1, 100, core.StatusDue, core.NewDate(2024, 1, 10)))
	require.NoError(t, err)
	otherOwner, err := repo.InsertExpense(ctx, cashExpense(2, 100, core.StatusDue, core.NewDate(2024, 1, 1)))
	require.NoError(t, err)

	n, err := repo.MarkOverdue(ctx, 1, core.NewDate(2024, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	e, _ := repo.GetExpense(ctx, 1, past)
	assert.Equal(t, core.StatusOverdue, e.Status)
	e, _ = repo.GetExpense(ctx, 1, today)
	assert.Equal(t, core.StatusDue, e.Status)
	e, _ = repo.GetExpense(ctx, 2, otherOwner)
	assert.Equal(t, core.StatusDue, e.Status)

	n, err = repo.MarkOverdue(ctx, 0, core.NewDate(2024, 1, 10))
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)
	boom := errors.New("boom")

	err := repo.WithinTx(ctx, func(l ports.Ledger) error {
		if _, err := l.InsertExpense(ctx, cashExpense(1, 100, core.StatusPaid, core.NewDate(2024, 1, 1))); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)

	list, err := repo.ListExpenses(ctx, 1, core.ExpenseFilter{})
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestListExpensesFilter(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	_, err := repo.InsertExpense(ctx, cashExpense(1, 100, core.StatusPaid, core.NewDate(2024, 3, 1)))
	require.NoError(t, err)
	_, err = repo.InsertExpense(ctx, cashExpense(1, 100, core.StatusPaid, core.NewDate(2024, 4, 1)))
	require.NoError(t, err)
	inv := cashExpense(1, 100, core.StatusDue, core.NewDate(2024, 4, 10))
	inv.Invoice = &core.InvoiceRef{CardID: 1, Period: core.BillingPeriod{Month: 3, Year: 2024}}
	_, err = repo.InsertExpense(ctx, inv)
	require.NoError(t, err)

	all, err := repo.ListExpenses(ctx, 1, core.ExpenseFilter{})
	require.NoError(t, err)
	assert.Len(t, all, 3)

	april, err := repo.ListExpenses(ctx, 1, core.ExpenseFilter{Year: 2024, Month: 4})
	require.NoError(t, err)
	assert.Len(t, april, 2)

	invoices, err := repo.ListExpenses(ctx, 1, core.ExpenseFilter{InvoicesOnly: true})
	require.NoError(t, err)
	require.Len(t, invoices, 1)
	assert.True(t, invoices[0].IsInvoice())
}

func TestIncomesAndAccount(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	acc, err := repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.True(t, acc.InitialBalance.IsZero())

	require.NoError(t, repo.SetInitialBalance(ctx, 1, core.Money{Cents: 10000}))
	require.NoError(t, repo.SetInitialBalance(ctx, 1, core.Money{Cents: 20000}))
	acc, err = repo.GetAccount(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(20000), acc.InitialBalance.Cents)

	goal := int64(5)
	incomes := []core.Income{
		{OwnerID: 1, Amount: core.Money{Cents: 3000}, Settled: true, DueDate: core.NewDate(2024, 1, 5), Category: "Salary"},
		{OwnerID: 1, Amount: core.Money{Cents: 400}, Settled: false, DueDate: core.NewDate(2024, 1, 6), Category: "Salary"},
		{OwnerID: 1, Amount: core.Money{Cents: 800}, Settled: true, DueDate: core.NewDate(2024, 1, 7), Category: "Savings", GoalID: &goal},
	}
	for _, in := range incomes {
		_, err := repo.InsertIncome(ctx, in)
		require.NoError(t, err)
	}

	sum, err := repo.SumSettledIncome(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(3000), sum.Cents)

	list, err := repo.ListIncomes(ctx, 1, 2024, 1)
	require.NoError(t, err)
	require.Len(t, list, 3)
	require.NotNil(t, list[2].GoalID)
	assert.Equal(t, goal, *list[2].GoalID)

	require.NoError(t, repo.DeleteIncome(ctx, 1, list[0].ID))
	assert.ErrorIs(t, repo.DeleteIncome(ctx, 1, list[0].ID), core.ErrNotFound)
}

func TestIncomeGetAndUpdate(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	goal := int64(2)
	id, err := repo.InsertIncome(ctx, core.Income{OwnerID: 1, Amount: core.Money{Cents: 900}, DueDate: core.NewDate(2024, 2, 1), Category: "Gift", GoalID: &goal})
	require.NoError(t, err)

	in, err := repo.GetIncome(ctx, 1, id)
	require.NoError(t, err)
	require.NotNil(t, in.GoalID)

	in.Settled, in.GoalID, in.Description = true, nil, "birthday"
	require.NoError(t, repo.UpdateIncome(ctx, in))

	got, err := repo.GetIncome(ctx, 1, id)
	require.NoError(t, err)
	assert.True(t, got.Settled)
	assert.Nil(t, got.GoalID)
	assert.Equal(t, "birthday", got.Description)
	assert.Equal(t, "2024-02-01", got.DueDate.String())

	sum, err := repo.SumSettledIncome(ctx, 1)
	require.NoError(t, err)
	assert.Equal(t, int64(900), sum.Cents)

	_, err = repo.GetIncome(ctx, 2, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
	in.OwnerID = 2
	assert.ErrorIs(t, repo.UpdateIncome(ctx, in), core.ErrNotFound)
}

func TestCardRegistry(t *testing.T) {
	ctx := context.Background()
	repo := newTestRepo(t)

	id, err := repo.CreateCard(ctx, core.NewCard(1, "Visa", core.Money{Cents: 500000}, 5, 10))
	require.NoError(t, err)

	c, err := repo.GetCard(ctx, 1, id)
	require.NoError(t, err)
	assert.Equal(t, "Visa", c.Name)
	assert.True(t, c.Active)
	assert.Equal(t, 10, c.DueDay)

	c.DueDay = 31
	require.NoError(t, repo.UpdateCard(ctx, c))

	require.NoError(t, repo.DeactivateCard(ctx, 1, id))
	c, err = repo.GetCard(ctx, 1, id)
	require.NoError(t, err, "inactive cards stay resolvable")
	assert.False(t, c.Active)
	assert.Equal(t, 31, c.DueDay)

	active, err := repo.ListCards(ctx, 1, true)
	require.NoError(t, err)
	assert.Empty(t, active)
	all, err := repo.ListCards(ctx, 1, false)
	require.NoError(t, err)
	assert.Len(t, all, 1)

	_, err = repo.GetCard(ctx, 2, id)
	assert.ErrorIs(t, err, core.ErrNotFound)
}
