package schedule

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pocketledger/ledger-core/ledger"
)

// ErrInvalidDay is returned when a template's day of month falls outside
// 1..31. Clamping only compresses valid days into shorter months.
var ErrInvalidDay = errors.New("day of month must be between 1 and 31")

// TemplateInput carries the caller-editable fields of a template.
type TemplateInput struct {
	DayOfMonth int
	Amount     decimal.Decimal
	Currency   string
	Direction  string
	Details    string
	Category   string
	Active     bool
}

// validate mirrors the lifecycle service's order (owner, amount, currency,
// direction), then checks the schedule-specific day field.
func (e *Engine) validate(owner ledger.OwnerID, in TemplateInput) (ledger.Direction, error) {
	if owner == "" {
		return "", ledger.ErrAuthenticationRequired
	}
	if !in.Amount.IsPositive() {
		return "", ledger.ErrInvalidAmount
	}
	if !e.Ledger.Registry.IsSupported(in.Currency) {
		return "", &ledger.UnsupportedCurrencyError{Code: in.Currency}
	}
	dir, err := ledger.ParseDirection(in.Direction)
	if err != nil {
		return "", err
	}
	if in.DayOfMonth < 1 || in.DayOfMonth > 31 {
		return "", ErrInvalidDay
	}
	return dir, nil
}

// Create persists a new template. It never fires retroactively: replay
// starts from the current month on the first ApplyAll.
func (e *Engine) Create(ctx context.Context, owner ledger.OwnerID, in TemplateInput) (*ledger.ScheduledTemplate, error) {
	dir, err := e.validate(owner, in)
	if err != nil {
		return nil, err
	}

	tpl := ledger.ScheduledTemplate{
		ID:         ledger.TemplateID(uuid.NewString()),
		Owner:      owner,
		DayOfMonth: in.DayOfMonth,
		Amount:     ledger.Amount{Value: in.Amount, Currency: in.Currency},
		Direction:  dir,
		Details:    in.Details,
		Category:   in.Category,
		Active:     in.Active,
		CreatedAt:  e.Clock.Now(),
	}
	if err := e.Store.CreateTemplate(ctx, tpl); err != nil {
		return nil, err
	}
	return &tpl, nil
}

// Update replaces a template's fields. The watermark survives the edit so
// already-applied months are not replayed with the new values.
func (e *Engine) Update(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID, in TemplateInput) (*ledger.ScheduledTemplate, error) {
	dir, err := e.validate(owner, in)
	if err != nil {
		return nil, err
	}

	tpl, err := e.Store.GetTemplate(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, ledger.ErrNotFound
	}

	tpl.DayOfMonth = in.DayOfMonth
	tpl.Amount = ledger.Amount{Value: in.Amount, Currency: in.Currency}
	tpl.Direction = dir
	tpl.Details = in.Details
	tpl.Category = in.Category
	tpl.Active = in.Active
	if err := e.Store.UpdateTemplate(ctx, *tpl); err != nil {
		return nil, err
	}
	return tpl, nil
}

// Delete removes a template. Transactions it already synthesized stay in
// the ledger.
func (e *Engine) Delete(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID) error {
	if owner == "" {
		return ledger.ErrAuthenticationRequired
	}
	tpl, err := e.Store.GetTemplate(ctx, owner, id)
	if err != nil {
		return err
	}
	if tpl == nil {
		return ledger.ErrNotFound
	}
	return e.Store.DeleteTemplate(ctx, owner, id)
}

// List returns the owner's templates, active and inactive.
func (e *Engine) List(ctx context.Context, owner ledger.OwnerID) ([]ledger.ScheduledTemplate, error) {
	if owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}
	return e.Store.ListTemplates(ctx, owner, false)
}

// Get returns one template.
func (e *Engine) Get(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID) (*ledger.ScheduledTemplate, error) {
	if owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}
	tpl, err := e.Store.GetTemplate(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if tpl == nil {
		return nil, ledger.ErrNotFound
	}
	return tpl, nil
}
