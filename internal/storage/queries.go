package storage

import (
	"context"
	"database/sql"
)

const expenseColumns = `id, owner_id, amount_cents, status, is_recurring, due_date, category, description,
       payment_method, card_id, invoice_month, invoice_year, is_invoice`

func scanExpense(row interface{ Scan(...any) error }) (Expense, error) {
	var i Expense
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.AmountCents,
		&i.Status,
		&i.IsRecurring,
		&i.DueDate,
		&i.Category,
		&i.Description,
		&i.PaymentMethod,
		&i.CardID,
		&i.InvoiceMonth,
		&i.InvoiceYear,
		&i.IsInvoice,
	)
	return i, err
}

func collectExpenses(rows *sql.Rows) ([]Expense, error) {
	defer rows.Close()
	var items []Expense
	for rows.Next() {
		i, err := scanExpense(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const createExpense = `INSERT INTO expenses (
    owner_id, amount_cents, status, is_recurring, due_date, category, description,
    payment_method, card_id, invoice_month, invoice_year, is_invoice
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

type CreateExpenseParams struct {
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

func (q *Queries) CreateExpense(ctx context.Context, arg CreateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createExpense,
		arg.OwnerID,
		arg.AmountCents,
		arg.Status,
		arg.IsRecurring,
		arg.DueDate,
		arg.Category,
		arg.Description,
		arg.PaymentMethod,
		arg.CardID,
		arg.InvoiceMonth,
		arg.InvoiceYear,
		arg.IsInvoice,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getExpense = `SELECT ` + expenseColumns + `
FROM expenses
WHERE owner_id = ? AND id = ?`

func (q *Queries) GetExpense(ctx context.Context, ownerID, id int64) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getExpense, ownerID, id)
	return scanExpense(row)
}

const updateExpense = `UPDATE expenses
SET amount_cents = ?, status = ?, is_recurring = ?, due_date = ?, category = ?, description = ?,
    payment_method = ?, card_id = ?, invoice_month = ?, invoice_year = ?,
    updated_at = CURRENT_TIMESTAMP
WHERE owner_id = ? AND id = ?`

type UpdateExpenseParams struct {
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
}

func (q *Queries) UpdateExpense(ctx context.Context, arg UpdateExpenseParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateExpense,
		arg.AmountCents,
		arg.Status,
		arg.IsRecurring,
		arg.DueDate,
		arg.Category,
		arg.Description,
		arg.PaymentMethod,
		arg.CardID,
		arg.InvoiceMonth,
		arg.InvoiceYear,
		arg.OwnerID,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deleteExpense = `DELETE FROM expenses WHERE owner_id = ? AND id = ?`

func (q *Queries) DeleteExpense(ctx context.Context, ownerID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteExpense, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listExpenses = `SELECT ` + expenseColumns + `
FROM expenses
WHERE owner_id = ?
  AND (? = 0 OR CAST(substr(due_date, 1, 4) AS INTEGER) = ?)
  AND (? = 0 OR CAST(substr(due_date, 6, 2) AS INTEGER) = ?)
  AND (? = 0 OR is_invoice = 1)
ORDER BY due_date, id`

type ListExpensesParams struct {
	OwnerID      int64
	Year         int64
	Month        int64
	InvoicesOnly bool
}

func (q *Queries) ListExpenses(ctx context.Context, arg ListExpensesParams) ([]Expense, error) {
	rows, err := q.db.QueryContext(ctx, listExpenses,
		arg.OwnerID,
		arg.Year, arg.Year,
		arg.Month, arg.Month,
		arg.InvoicesOnly,
	)
	if err != nil {
		return nil, err
	}
	return collectExpenses(rows)
}

type InvoiceTupleParams struct {
	OwnerID      int64
	CardID       int64
	InvoiceMonth int64
	InvoiceYear  int64
}

const sumCharges = `SELECT COALESCE(SUM(amount_cents), 0)
FROM expenses
WHERE owner_id = ? AND card_id = ? AND invoice_month = ? AND invoice_year = ?
  AND status = 'PAGO' AND payment_method = 'CARD' AND is_invoice = 0`

func (q *Queries) SumCharges(ctx context.Context, arg InvoiceTupleParams) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumCharges, arg.OwnerID, arg.CardID, arg.InvoiceMonth, arg.InvoiceYear)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const getInvoice = `SELECT ` + expenseColumns + `
FROM expenses
WHERE owner_id = ? AND card_id = ? AND invoice_month = ? AND invoice_year = ? AND is_invoice = 1`

func (q *Queries) GetInvoice(ctx context.Context, arg InvoiceTupleParams) (Expense, error) {
	row := q.db.QueryRowContext(ctx, getInvoice, arg.OwnerID, arg.CardID, arg.InvoiceMonth, arg.InvoiceYear)
	return scanExpense(row)
}

const updateInvoice = `UPDATE expenses
SET amount_cents = ?, due_date = ?, description = ?, updated_at = CURRENT_TIMESTAMP
WHERE id = ? AND is_invoice = 1`

type UpdateInvoiceParams struct {
	ID          int64
	AmountCents int64
	DueDate     string
	Description string
}

func (q *Queries) UpdateInvoice(ctx context.Context, arg UpdateInvoiceParams) error {
	_, err := q.db.ExecContext(ctx, updateInvoice, arg.AmountCents, arg.DueDate, arg.Description, arg.ID)
	return err
}

const listInvoiceTuples = `SELECT DISTINCT card_id, invoice_month, invoice_year
FROM expenses
WHERE owner_id = ? AND card_id IS NOT NULL AND invoice_month IS NOT NULL AND invoice_year IS NOT NULL
ORDER BY invoice_year, invoice_month, card_id`

type InvoiceTupleRow struct {
	CardID       int64
	InvoiceMonth int64
	InvoiceYear  int64
}

func (q *Queries) ListInvoiceTuples(ctx context.Context, ownerID int64) ([]InvoiceTupleRow, error) {
	rows, err := q.db.QueryContext(ctx, listInvoiceTuples, ownerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []InvoiceTupleRow
	for rows.Next() {
		var i InvoiceTupleRow
		if err := rows.Scan(&i.CardID, &i.InvoiceMonth, &i.InvoiceYear); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const markOverdue = `UPDATE expenses
SET status = 'VENCIDO', updated_at = CURRENT_TIMESTAMP
WHERE status = 'A_VENCER' AND due_date < ? AND (? = 0 OR owner_id = ?)`

func (q *Queries) MarkOverdue(ctx context.Context, ownerID int64, today string) (int64, error) {
	res, err := q.db.ExecContext(ctx, markOverdue, today, ownerID, ownerID)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const createIncome = `INSERT INTO incomes (
    owner_id, amount_cents, settled, is_recurring, due_date, category, description, goal_id
) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`

type CreateIncomeParams struct {
	OwnerID     int64
	AmountCents int64
	Settled     bool
	IsRecurring bool
	DueDate     string
	Category    string
	Description string
	GoalID      sql.NullInt64
}

func (q *Queries) CreateIncome(ctx context.Context, arg CreateIncomeParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createIncome,
		arg.OwnerID,
		arg.AmountCents,
		arg.Settled,
		arg.IsRecurring,
		arg.DueDate,
		arg.Category,
		arg.Description,
		arg.GoalID,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const deleteIncome = `DELETE FROM incomes WHERE owner_id = ? AND id = ?`

func (q *Queries) DeleteIncome(ctx context.Context, ownerID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deleteIncome, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const getIncome = `SELECT id, owner_id, amount_cents, settled, is_recurring, due_date, category, description, goal_id
FROM incomes
WHERE owner_id = ? AND id = ?`

func (q *Queries) GetIncome(ctx context.Context, ownerID, id int64) (Income, error) {
	row := q.db.QueryRowContext(ctx, getIncome, ownerID, id)
	var i Income
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.AmountCents,
		&i.Settled,
		&i.IsRecurring,
		&i.DueDate,
		&i.Category,
		&i.Description,
		&i.GoalID,
	)
	return i, err
}

const updateIncome = `UPDATE incomes
SET amount_cents = ?, settled = ?, is_recurring = ?, due_date = ?, category = ?, description = ?, goal_id = ?
WHERE owner_id = ? AND id = ?`

type UpdateIncomeParams struct {
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

func (q *Queries) UpdateIncome(ctx context.Context, arg UpdateIncomeParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateIncome,
		arg.AmountCents,
		arg.Settled,
		arg.IsRecurring,
		arg.DueDate,
		arg.Category,
		arg.Description,
		arg.GoalID,
		arg.OwnerID,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const listIncomes = `SELECT id, owner_id, amount_cents, settled, is_recurring, due_date, category, description, goal_id
FROM incomes
WHERE owner_id = ?
  AND (? = 0 OR CAST(substr(due_date, 1, 4) AS INTEGER) = ?)
  AND (? = 0 OR CAST(substr(due_date, 6, 2) AS INTEGER) = ?)
ORDER BY due_date, id`

func (q *Queries) ListIncomes(ctx context.Context, ownerID, year, month int64) ([]Income, error) {
	rows, err := q.db.QueryContext(ctx, listIncomes, ownerID, year, year, month, month)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Income
	for rows.Next() {
		var i Income
		if err := rows.Scan(
			&i.ID,
			&i.OwnerID,
			&i.AmountCents,
			&i.Settled,
			&i.IsRecurring,
			&i.DueDate,
			&i.Category,
			&i.Description,
			&i.GoalID,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const getAccount = `SELECT owner_id, initial_balance_cents FROM accounts WHERE owner_id = ?`

func (q *Queries) GetAccount(ctx context.Context, ownerID int64) (Account, error) {
	row := q.db.QueryRowContext(ctx, getAccount, ownerID)
	var i Account
	err := row.Scan(&i.OwnerID, &i.InitialBalanceCents)
	return i, err
}

const upsertAccount = `INSERT INTO accounts (owner_id, initial_balance_cents) VALUES (?, ?)
ON CONFLICT(owner_id) DO UPDATE SET
    initial_balance_cents = excluded.initial_balance_cents,
    updated_at = CURRENT_TIMESTAMP`

func (q *Queries) UpsertAccount(ctx context.Context, ownerID, cents int64) error {
	_, err := q.db.ExecContext(ctx, upsertAccount, ownerID, cents)
	return err
}

const sumSettledIncome = `SELECT COALESCE(SUM(amount_cents), 0)
FROM incomes
WHERE owner_id = ? AND settled = 1 AND goal_id IS NULL`

func (q *Queries) SumSettledIncome(ctx context.Context, ownerID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumSettledIncome, ownerID)
	var total int64
	err := row.Scan(&total)
	return total, err
}

// Card charges are excluded: they leave the account only through their invoice.
const sumCashOutflow = `SELECT COALESCE(SUM(amount_cents), 0)
FROM expenses
WHERE owner_id = ? AND status = 'PAGO'
  AND NOT (payment_method = 'CARD' AND is_invoice = 0)`

func (q *Queries) SumCashOutflow(ctx context.Context, ownerID int64) (int64, error) {
	row := q.db.QueryRowContext(ctx, sumCashOutflow, ownerID)
	var total int64
	err := row.Scan(&total)
	return total, err
}

const cardColumns = `id, owner_id, name, active, credit_limit_cents, closing_day, due_day`

func scanCard(row interface{ Scan(...any) error }) (Card, error) {
	var i Card
	err := row.Scan(
		&i.ID,
		&i.OwnerID,
		&i.Name,
		&i.Active,
		&i.CreditLimitCents,
		&i.ClosingDay,
		&i.DueDay,
	)
	return i, err
}

const createCard = `INSERT INTO cards (owner_id, name, active, credit_limit_cents, closing_day, due_day)
VALUES (?, ?, ?, ?, ?, ?)`

type CreateCardParams struct {
	OwnerID          int64
	Name             string
	Active           bool
	CreditLimitCents int64
	ClosingDay       int64
	DueDay           int64
}

func (q *Queries) CreateCard(ctx context.Context, arg CreateCardParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, createCard,
		arg.OwnerID,
		arg.Name,
		arg.Active,
		arg.CreditLimitCents,
		arg.ClosingDay,
		arg.DueDay,
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

const getCard = `SELECT ` + cardColumns + ` FROM cards WHERE owner_id = ? AND id = ?`

func (q *Queries) GetCard(ctx context.Context, ownerID, id int64) (Card, error) {
	row := q.db.QueryRowContext(ctx, getCard, ownerID, id)
	return scanCard(row)
}

const listCards = `SELECT ` + cardColumns + `
FROM cards
WHERE owner_id = ? AND (? = 0 OR active = 1)
ORDER BY name, id`

func (q *Queries) ListCards(ctx context.Context, ownerID int64, activeOnly bool) ([]Card, error) {
	rows, err := q.db.QueryContext(ctx, listCards, ownerID, activeOnly)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var items []Card
	for rows.Next() {
		i, err := scanCard(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	if err := rows.Close(); err != nil {
		return nil, err
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

const updateCard = `UPDATE cards
SET name = ?, credit_limit_cents = ?, closing_day = ?, due_day = ?
WHERE owner_id = ? AND id = ?`

type UpdateCardParams struct {
	ID               int64
	OwnerID          int64
	Name             string
	CreditLimitCents int64
	ClosingDay       int64
	DueDay           int64
}

func (q *Queries) UpdateCard(ctx context.Context, arg UpdateCardParams) (int64, error) {
	res, err := q.db.ExecContext(ctx, updateCard,
		arg.Name,
		arg.CreditLimitCents,
		arg.ClosingDay,
		arg.DueDay,
		arg.OwnerID,
		arg.ID,
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

const deactivateCard = `UPDATE cards SET active = 0 WHERE owner_id = ? AND id = ?`

func (q *Queries) DeactivateCard(ctx context.Context, ownerID, id int64) (int64, error) {
	res, err := q.db.ExecContext(ctx, deactivateCard, ownerID, id)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
