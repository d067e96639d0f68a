package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"time"

	"finance/internal/core"
	"finance/internal/log"
	"finance/internal/ports"

	"github.com/go-playground/validator/v10"
)

// MaxInstallments bounds InsertInstallmentExpense.
const MaxInstallments = 120

// Ledger is the engine entry point. Every write that touches a card charge
// re-aggregates the affected invoices before returning.
type Ledger struct {
	store    ports.Store
	cards    ports.CardRegistry
	now      func() time.Time
	log      *log.StructuredLogger
	validate *validator.Validate
}

type Option func(*Ledger)

// WithClock sets the time source used by the overdue sweep.
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

func WithLogger(logger *log.Logger) Option {
	return func(l *Ledger) { l.log = log.NewStructuredLogger(logger.WithComponent(log.ComponentLedger)) }
}

func NewLedger(store ports.Store, cards ports.CardRegistry, opts ...Option) *Ledger {
	l := &Ledger{
		store:    store,
		cards:    cards,
		now:      time.Now,
		log:      log.NewStructuredLogger(log.Default(log.ComponentLedger)),
		validate: newValidator(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// ExpenseInput is a new expense as supplied by a caller. A CardID makes it a
// card charge; Period defaults to the due date's month.
type ExpenseInput struct {
	OwnerID       int64               `json:"owner_id" validate:"gt=0"`
	Amount        core.Money          `json:"amount"`
	Status        core.ExpenseStatus  `json:"status" validate:"required"`
	IsRecurring   bool                `json:"is_recurring"`
	DueDate       core.Date           `json:"due_date"`
	Category      string              `json:"category" validate:"required,max=100"`
	Description   string              `json:"description" validate:"required,max=200"`
	PaymentMethod core.PaymentMethod  `json:"payment_method"`
	CardID        *int64              `json:"card_id" validate:"omitempty,gt=0"`
	Period        *core.BillingPeriod `json:"period"`
}

// ExpenseUpdate carries the fields to change. Nil means "leave as is".
type ExpenseUpdate struct {
	Amount        *core.Money         `json:"amount"`
	Status        *core.ExpenseStatus `json:"status"`
	IsRecurring   *bool               `json:"is_recurring"`
	DueDate       *core.Date          `json:"due_date"`
	Category      *string             `json:"category" validate:"omitempty,min=1,max=100"`
	Description   *string             `json:"description" validate:"omitempty,min=1,max=200"`
	PaymentMethod *core.PaymentMethod `json:"payment_method"`
	CardID        *int64              `json:"card_id" validate:"omitempty,gt=0"`
	Period        *core.BillingPeriod `json:"period"`
}

type IncomeInput struct {
	OwnerID     int64      `json:"owner_id" validate:"gt=0"`
	Amount      core.Money `json:"amount"`
	Settled     bool       `json:"settled"`
	IsRecurring bool       `json:"is_recurring"`
	DueDate     core.Date  `json:"due_date"`
	Category    string     `json:"category" validate:"required,max=100"`
	Description string     `json:"description" validate:"max=200"`
	GoalID      *int64     `json:"goal_id" validate:"omitempty,gt=0"`
}

// IncomeUpdate carries the fields to change. Nil means "leave as is";
// ClearGoal detaches the income from its goal and takes precedence over GoalID.
type IncomeUpdate struct {
	Amount      *core.Money `json:"amount"`
	Settled     *bool       `json:"settled"`
	IsRecurring *bool       `json:"is_recurring"`
	DueDate     *core.Date  `json:"due_date"`
	Category    *string     `json:"category" validate:"omitempty,min=1,max=100"`
	Description *string     `json:"description" validate:"omitempty,max=200"`
	GoalID      *int64      `json:"goal_id" validate:"omitempty,gt=0"`
	ClearGoal   bool        `json:"clear_goal"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// check runs struct-tag validation and reports the first failing field as a
// core.ValidationError.
func (l *Ledger) check(v any) error {
	err := l.validate.Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return core.Invalid("", err)
	}
	fe := verrs[0]
	return core.Invalid(fe.Field(), fieldReason(fe))
}

func fieldReason(fe validator.FieldError) error {
	switch fe.Field() {
	case "owner_id":
		return core.ErrInvalidOwner
	case "status":
		return core.ErrInvalidStatus
	case "description":
		if fe.Tag() == "required" || fe.Tag() == "min" {
			return core.ErrEmptyDescription
		}
	case "category":
		if fe.Tag() == "required" || fe.Tag() == "min" {
			return core.ErrEmptyCategory
		}
	case "card_id":
		return core.ErrCardRequired
	}
	if fe.Param() != "" {
		return fmt.Errorf("failed %s=%s", fe.Tag(), fe.Param())
	}
	return fmt.Errorf("failed %s", fe.Tag())
}

// buildExpense turns a validated input into the row to insert.
func (l *Ledger) buildExpense(in ExpenseInput) (core.Expense, error) {
	if err := l.check(in); err != nil {
		return core.Expense{}, err
	}
	status, err := core.ParseStatus(string(in.Status))
	if err != nil {
		return core.Expense{}, core.Invalid("status", err)
	}
	pm, err := core.ParsePaymentMethod(string(in.PaymentMethod))
	if err != nil {
		return core.Expense{}, core.Invalid("payment_method", err)
	}

	e := core.Expense{
		OwnerID:     in.OwnerID,
		Amount:      in.Amount,
		Status:      status,
		IsRecurring: in.IsRecurring,
		DueDate:     in.DueDate,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
	}

	switch {
	case in.CardID != nil && in.PaymentMethod != "" && pm == core.PaymentCash:
		return core.Expense{}, core.Invalid("payment_method", core.ErrInvalidPayment)
	case in.CardID == nil && pm == core.PaymentCard:
		return core.Expense{}, core.Invalid("card_id", core.ErrCardRequired)
	case in.CardID != nil:
		if !status.IsPaid() {
			return core.Expense{}, core.Invalid("card_id", core.ErrChargeNotSettled)
		}
		period := core.PeriodOf(in.DueDate)
		if in.Period != nil {
			period = *in.Period
		}
		e.Charge = &core.CardCharge{CardID: *in.CardID, Period: period}
	}

	if err := e.Validate(); err != nil {
		return core.Expense{}, err
	}
	return e, nil
}

func (l *Ledger) buildIncome(in IncomeInput) (core.Income, error) {
	if err := l.check(in); err != nil {
		return core.Income{}, err
	}
	inc := core.Income{
		OwnerID:     in.OwnerID,
		Amount:      in.Amount,
		Settled:     in.Settled,
		IsRecurring: in.IsRecurring,
		DueDate:     in.DueDate,
		Category:    strings.TrimSpace(in.Category),
		Description: strings.TrimSpace(in.Description),
		GoalID:      in.GoalID,
	}
	if err := inc.Validate(); err != nil {
		return core.Income{}, err
	}
	return inc, nil
}

// requireCard checks that cardID belongs to ownerID. It must run outside
// any store transaction.
func (l *Ledger) requireCard(ctx context.Context, ownerID, cardID int64) error {
	_, err := l.cards.GetCard(ctx, ownerID, cardID)
	if errors.Is(err, core.ErrNotFound) {
		return core.Invalid("card_id", fmt.Errorf("%w: %d", core.ErrUnknownCard, cardID))
	}
	if err != nil {
		return fmt.Errorf("lookup card %d: %w", cardID, err)
	}
	return nil
}

func requireOwner(ownerID int64) error {
	if ownerID <= 0 {
		return core.Invalid("owner_id", core.ErrInvalidOwner)
	}
	return nil
}
