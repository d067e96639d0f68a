package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"finance/internal/core"
	"finance/internal/ports"

	_ "modernc.org/sqlite"
)

var (
	_ ports.Store        = (*SQLiteRepository)(nil)
	_ ports.CardRegistry = (*SQLiteRepository)(nil)
)

type SQLiteRepository struct {
	db *sql.DB
	ledger
}

func NewSQLiteRepository(dbPath string) (*SQLiteRepository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite database: %w", err)
	}
	// Single connection: callers must not query the pool inside WithinTx.
	db.SetMaxOpenConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if err := RunMigrations(dbPath); err != nil {
		db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return NewFromDB(db), nil
}

// NewFromDB wraps an already opened and migrated database.
func NewFromDB(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{
		db:     db,
		ledger: ledger{q: New(db)},
	}
}

func (r *SQLiteRepository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// WithinTx runs fn in a transaction. The transaction commits when fn returns
// nil and rolls back otherwise.
func (r *SQLiteRepository) WithinTx(ctx context.Context, fn func(ports.Ledger) error) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}

	if err := fn(ledger{q: r.q.WithTx(tx)}); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			slog.ErrorContext(ctx, "Transaction rollback failed", "error", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// GetCard implements ports.CardRegistry. Inactive cards are returned too.
func (r *SQLiteRepository) GetCard(ctx context.Context, ownerID, cardID int64) (core.Card, error) {
	c, err := r.q.GetCard(ctx, ownerID, cardID)
	if err != nil {
		return core.Card{}, notFound(err, "get card %d", cardID)
	}
	return toCoreCard(c), nil
}

func (r *SQLiteRepository) ListCards(ctx context.Context, ownerID int64, activeOnly bool) ([]core.Card, error) {
	rows, err := r.q.ListCards(ctx, ownerID, activeOnly)
	if err != nil {
		return nil, fmt.Errorf("list cards: %w", err)
	}
	cards := make([]core.Card, len(rows))
	for i, c := range rows {
		cards[i] = toCoreCard(c)
	}
	return cards, nil
}

func (r *SQLiteRepository) CreateCard(ctx context.Context, c core.Card) (int64, error) {
	if err := c.Validate(); err != nil {
		return 0, err
	}
	id, err := r.q.CreateCard(ctx, CreateCardParams{
		OwnerID:          c.OwnerID,
		Name:             c.Name,
		Active:           true,
		CreditLimitCents: c.CreditLimit.Cents,
		ClosingDay:       int64(c.ClosingDay),
		DueDay:           int64(c.DueDay),
	})
	if err != nil {
		return 0, fmt.Errorf("create card: %w", err)
	}

	slog.InfoContext(ctx, "Card created", "id", id, "owner_id", c.OwnerID, "name", c.Name)
	return id, nil
}

// UpdateCard changes name, limit and days. Existing invoices keep their due
// dates until they are reconciled again.
func (r *SQLiteRepository) UpdateCard(ctx context.Context, c core.Card) error {
	if err := c.Validate(); err != nil {
		return err
	}
	n, err := r.q.UpdateCard(ctx, UpdateCardParams{
		ID:               c.ID,
		OwnerID:          c.OwnerID,
		Name:             c.Name,
		CreditLimitCents: c.CreditLimit.Cents,
		ClosingDay:       int64(c.ClosingDay),
		DueDay:           int64(c.DueDay),
	})
	if err != nil {
		return fmt.Errorf("update card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update card %d: %w", c.ID, core.ErrNotFound)
	}
	return nil
}

// DeactivateCard is a soft delete. Charges and invoices stay linked.
func (r *SQLiteRepository) DeactivateCard(ctx context.Context, ownerID, cardID int64) error {
	n, err := r.q.DeactivateCard(ctx, ownerID, cardID)
	if err != nil {
		return fmt.Errorf("deactivate card: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("deactivate card %d: %w", cardID, core.ErrNotFound)
	}

	slog.InfoContext(ctx, "Card deactivated", "id", cardID, "owner_id", ownerID)
	return nil
}

// ledger implements ports.Ledger over a DBTX, either the pool or a transaction.
type ledger struct {
	q *Queries
}

func (l ledger) GetExpense(ctx context.Context, ownerID, id int64) (core.Expense, error) {
	row, err := l.q.GetExpense(ctx, ownerID, id)
	if err != nil {
		return core.Expense{}, notFound(err, "get expense %d", id)
	}
	return toCoreExpense(row)
}

func (l ledger) InsertExpense(ctx context.Context, e core.Expense) (int64, error) {
	p := toCreateParams(e)
	id, err := l.q.CreateExpense(ctx, p)
	if err != nil {
		return 0, fmt.Errorf("create expense: %w", err)
	}

	slog.DebugContext(ctx, "Expense saved",
		"id", id,
		"owner_id", e.OwnerID,
		"amount_cents", e.Amount.Cents,
		"status", e.Status,
		"payment_method", p.PaymentMethod,
		"is_invoice", p.IsInvoice)
	return id, nil
}

func (l ledger) UpdateExpense(ctx context.Context, e core.Expense) error {
	p := toCreateParams(e)
	n, err := l.q.UpdateExpense(ctx, UpdateExpenseParams{
		ID:            e.ID,
		OwnerID:       e.OwnerID,
		AmountCents:   p.AmountCents,
		Status:        p.Status,
		IsRecurring:   p.IsRecurring,
		DueDate:       p.DueDate,
		Category:      p.Category,
		Description:   p.Description,
		PaymentMethod: p.PaymentMethod,
		CardID:        p.CardID,
		InvoiceMonth:  p.InvoiceMonth,
		InvoiceYear:   p.InvoiceYear,
	})
	if err != nil {
		return fmt.Errorf("update expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update expense %d: %w", e.ID, core.ErrNotFound)
	}
	return nil
}

func (l ledger) DeleteExpense(ctx context.Context, ownerID, id int64) error {
	n, err := l.q.DeleteExpense(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete expense: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete expense %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (l ledger) ListExpenses(ctx context.Context, ownerID int64, f core.ExpenseFilter) ([]core.Expense, error) {
	rows, err := l.q.ListExpenses(ctx, ListExpensesParams{
		OwnerID:      ownerID,
		Year:         int64(f.Year),
		Month:        int64(f.Month),
		InvoicesOnly: f.InvoicesOnly,
	})
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]core.Expense, 0, len(rows))
	for _, row := range rows {
		e, err := toCoreExpense(row)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, nil
}

func (l ledger) SumCharges(ctx context.Context, key core.InvoiceKey) (core.Money, error) {
	total, err := l.q.SumCharges(ctx, tupleParams(key))
	if err != nil {
		return core.Money{}, fmt.Errorf("sum charges for %s: %w", key, err)
	}
	return core.Money{Cents: total}, nil
}

func (l ledger) FindInvoice(ctx context.Context, key core.InvoiceKey) (core.Expense, error) {
	row, err := l.q.GetInvoice(ctx, tupleParams(key))
	if err != nil {
		return core.Expense{}, notFound(err, "get invoice for %s", key)
	}
	return toCoreExpense(row)
}

func (l ledger) UpdateInvoice(ctx context.Context, id int64, amount core.Money, due core.Date, description string) error {
	err := l.q.UpdateInvoice(ctx, UpdateInvoiceParams{
		ID:          id,
		AmountCents: amount.Cents,
		DueDate:     due.String(),
		Description: description,
	})
	if err != nil {
		return fmt.Errorf("update invoice %d: %w", id, err)
	}
	return nil
}

func (l ledger) InvoiceKeys(ctx context.Context, ownerID int64) ([]core.InvoiceKey, error) {
	rows, err := l.q.ListInvoiceTuples(ctx, ownerID)
	if err != nil {
		return nil, fmt.Errorf("list invoice tuples: %w", err)
	}
	keys := make([]core.InvoiceKey, len(rows))
	for i, r := range rows {
		keys[i] = core.InvoiceKey{
			OwnerID: ownerID,
			CardID:  r.CardID,
			Period:  core.BillingPeriod{Month: int(r.InvoiceMonth), Year: int(r.InvoiceYear)},
		}
	}
	return keys, nil
}

func (l ledger) MarkOverdue(ctx context.Context, ownerID int64, today core.Date) (int64, error) {
	n, err := l.q.MarkOverdue(ctx, ownerID, today.String())
	if err != nil {
		return 0, fmt.Errorf("mark overdue: %w", err)
	}
	return n, nil
}

func (l ledger) GetIncome(ctx context.Context, ownerID, id int64) (core.Income, error) {
	r, err := l.q.GetIncome(ctx, ownerID, id)
	if err != nil {
		return core.Income{}, notFound(err, "get income %d", id)
	}
	return incomeFromRow(r)
}

func (l ledger) InsertIncome(ctx context.Context, in core.Income) (int64, error) {
	id, err := l.q.CreateIncome(ctx, CreateIncomeParams{
		OwnerID:     in.OwnerID,
		AmountCents: in.Amount.Cents,
		Settled:     in.Settled,
		IsRecurring: in.IsRecurring,
		DueDate:     in.DueDate.String(),
		Category:    in.Category,
		Description: in.Description,
		GoalID:      nullGoal(in.GoalID),
	})
	if err != nil {
		return 0, fmt.Errorf("create income: %w", err)
	}
	return id, nil
}

func (l ledger) UpdateIncome(ctx context.Context, in core.Income) error {
	n, err := l.q.UpdateIncome(ctx, UpdateIncomeParams{
		ID:          in.ID,
		OwnerID:     in.OwnerID,
		AmountCents: in.Amount.Cents,
		Settled:     in.Settled,
		IsRecurring: in.IsRecurring,
		DueDate:     in.DueDate.String(),
		Category:    in.Category,
		Description: in.Description,
		GoalID:      nullGoal(in.GoalID),
	})
	if err != nil {
		return fmt.Errorf("update income: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("update income %d: %w", in.ID, core.ErrNotFound)
	}
	return nil
}

func (l ledger) DeleteIncome(ctx context.Context, ownerID, id int64) error {
	n, err := l.q.DeleteIncome(ctx, ownerID, id)
	if err != nil {
		return fmt.Errorf("delete income: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("delete income %d: %w", id, core.ErrNotFound)
	}
	return nil
}

func (l ledger) ListIncomes(ctx context.Context, ownerID int64, year, month int) ([]core.Income, error) {
	rows, err := l.q.ListIncomes(ctx, ownerID, int64(year), int64(month))
	if err != nil {
		return nil, fmt.Errorf("list incomes: %w", err)
	}
	out := make([]core.Income, 0, len(rows))
	for _, r := range rows {
		in, err := incomeFromRow(r)
		if err != nil {
			return nil, err
		}
		out = append(out, in)
	}
	return out, nil
}

func incomeFromRow(r Income) (core.Income, error) {
	due, err := core.ParseDate(r.DueDate)
	if err != nil {
		return core.Income{}, fmt.Errorf("income %d: parse due date %q: %w", r.ID, r.DueDate, err)
	}
	in := core.Income{
		ID:          r.ID,
		OwnerID:     r.OwnerID,
		Amount:      core.Money{Cents: r.AmountCents},
		Settled:     r.Settled,
		IsRecurring: r.IsRecurring,
		DueDate:     due,
		Category:    r.Category,
		Description: r.Description,
	}
	if r.GoalID.Valid {
		g := r.GoalID.Int64
		in.GoalID = &g
	}
	return in, nil
}

func nullGoal(id *int64) sql.NullInt64 {
	if id == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: *id, Valid: true}
}

// GetAccount returns a zero initial balance for owners without an account row.
func (l ledger) GetAccount(ctx context.Context, ownerID int64) (core.Account, error) {
	a, err := l.q.GetAccount(ctx, ownerID)
	if errors.Is(err, sql.ErrNoRows) {
		return core.Account{OwnerID: ownerID}, nil
	}
	if err != nil {
		return core.Account{}, fmt.Errorf("get account: %w", err)
	}
	return core.Account{OwnerID: a.OwnerID, InitialBalance: core.Money{Cents: a.InitialBalanceCents}}, nil
}

func (l ledger) SetInitialBalance(ctx context.Context, ownerID int64, amount core.Money) error {
	if err := l.q.UpsertAccount(ctx, ownerID, amount.Cents); err != nil {
		return fmt.Errorf("set initial balance: %w", err)
	}
	return nil
}

func (l ledger) SumSettledIncome(ctx context.Context, ownerID int64) (core.Money, error) {
	total, err := l.q.SumSettledIncome(ctx, ownerID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum settled income: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func (l ledger) SumCashOutflow(ctx context.Context, ownerID int64) (core.Money, error) {
	total, err := l.q.SumCashOutflow(ctx, ownerID)
	if err != nil {
		return core.Money{}, fmt.Errorf("sum cash outflow: %w", err)
	}
	return core.Money{Cents: total}, nil
}

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, sql.ErrNoRows) {
		err = core.ErrNotFound
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func tupleParams(key core.InvoiceKey) InvoiceTupleParams {
	return InvoiceTupleParams{
		OwnerID:      key.OwnerID,
		CardID:       key.CardID,
		InvoiceMonth: int64(key.Period.Month),
		InvoiceYear:  int64(key.Period.Year),
	}
}

func toCreateParams(e core.Expense) CreateExpenseParams {
	p := CreateExpenseParams{
		OwnerID:       e.OwnerID,
		AmountCents:   e.Amount.Cents,
		Status:        e.Status.String(),
		IsRecurring:   e.IsRecurring,
		DueDate:       e.DueDate.String(),
		Category:      e.Category,
		Description:   e.Description,
		PaymentMethod: e.PaymentMethod().String(),
	}
	var card int64
	var period core.BillingPeriod
	switch {
	case e.Invoice != nil:
		card, period = e.Invoice.CardID, e.Invoice.Period
		p.IsInvoice = true
	case e.Charge != nil:
		card, period = e.Charge.CardID, e.Charge.Period
	default:
		return p
	}
	p.CardID = sql.NullInt64{Int64: card, Valid: true}
	p.InvoiceMonth = sql.NullInt64{Int64: int64(period.Month), Valid: true}
	p.InvoiceYear = sql.NullInt64{Int64: int64(period.Year), Valid: true}
	return p
}

func toCoreExpense(row Expense) (core.Expense, error) {
	status, err := core.ParseStatus(row.Status)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: status %q: %w", row.ID, row.Status, err)
	}
	due, err := core.ParseDate(row.DueDate)
	if err != nil {
		return core.Expense{}, fmt.Errorf("expense %d: parse due date %q: %w", row.ID, row.DueDate, err)
	}
	e := core.Expense{
		ID:          row.ID,
		OwnerID:     row.OwnerID,
		Amount:      core.Money{Cents: row.AmountCents},
		Status:      status,
		IsRecurring: row.IsRecurring,
		DueDate:     due,
		Category:    row.Category,
		Description: row.Description,
	}
	if !row.CardID.Valid || !row.InvoiceMonth.Valid || !row.InvoiceYear.Valid {
		return e, nil
	}
	period := core.BillingPeriod{Month: int(row.InvoiceMonth.Int64), Year: int(row.InvoiceYear.Int64)}
	switch {
	case row.IsInvoice:
		e.Invoice = &core.InvoiceRef{CardID: row.CardID.Int64, Period: period}
	case row.PaymentMethod == string(core.PaymentCard):
		e.Charge = &core.CardCharge{CardID: row.CardID.Int64, Period: period}
	}
	return e, nil
}

func toCoreCard(c Card) core.Card {
	return core.Card{
		ID:          c.ID,
		OwnerID:     c.OwnerID,
		Name:        c.Name,
		Active:      c.Active,
		CreditLimit: core.Money{Cents: c.CreditLimitCents},
		ClosingDay:  int(c.ClosingDay),
		DueDay:      int(c.DueDay),
	}
}
