/*
Package schedule implements the scheduled-transaction replay engine.

PURPOSE:
  A ScheduledTemplate describes a monthly recurring transaction. The
  engine replays elapsed occurrences: one synthesized transaction per
  calendar month between the template's watermark and today, each
  committed together with its balance delta and the advanced watermark.

REPLAY SEMANTICS:
  - A never-applied template starts from the current month, not from an
    arbitrary past date.
  - The day of month is clamped to the target month's length (day 31 in
    February fires on the 28th/29th).
  - An occurrence dated in the future stops the template's iteration.
  - A business failure (insufficient funds, bad template values) records
    an error and stops THAT template; sibling templates still run.
  - Each month's watermark advance commits with its occurrence, so an
    interrupted run resumes instead of re-applying months.
  - Any unexpected fault converts the whole run into
    {applied: 0, errors: ["Unexpected server error"]}; months already
    committed stay committed.

SEE ALSO:
  - ledger/service.go: CreateIn, the validated in-unit transaction write
  - templates.go: Template CRUD
*/
package schedule

import (
	"context"
	"errors"
	"log/slog"

	"github.com/pocketledger/ledger-core/ledger"
)

// GenericRunError is the caller-visible message for an engine-level fault.
const GenericRunError = "Unexpected server error"

// RunResult aggregates one ApplyAll invocation across all templates.
type RunResult struct {
	Applied int      `json:"applied"`
	Errors  []string `json:"errors"`
}

// Engine replays scheduled templates.
type Engine struct {
	Store  ledger.TxStore
	Ledger *ledger.Service
	Clock  ledger.Clock
	Log    *slog.Logger
}

func NewEngine(store ledger.TxStore, ledgerSvc *ledger.Service) *Engine {
	return &Engine{
		Store:  store,
		Ledger: ledgerSvc,
		Clock:  ledgerSvc.Clock,
		Log:    slog.Default(),
	}
}

// =============================================================================
// APPLY ALL - One replay run for one owner
// =============================================================================

// ApplyAll processes every active template owned by owner. Safe to invoke
// repeatedly: once a month's occurrence is recorded via the watermark, a
// second run applies nothing.
func (e *Engine) ApplyAll(ctx context.Context, owner ledger.OwnerID) (result RunResult) {
	defer func() {
		if r := recover(); r != nil {
			e.log().Error("replay run panicked", "owner", owner, "panic", r)
			result = RunResult{Applied: 0, Errors: []string{GenericRunError}}
		}
	}()

	result.Errors = []string{}
	if owner == "" {
		result.Errors = append(result.Errors, ledger.ErrAuthenticationRequired.Error())
		return result
	}

	templates, err := e.Store.ListTemplates(ctx, owner, true)
	if err != nil {
		e.log().Error("replay run failed to list templates", "owner", owner, "error", err)
		return RunResult{Applied: 0, Errors: []string{GenericRunError}}
	}

	today := ledger.Today(e.Clock)
	for _, tpl := range templates {
		applied, msg, fatal := e.applyTemplate(ctx, tpl, today)
		result.Applied += applied
		if fatal != nil {
			e.log().Error("replay run aborted", "owner", owner, "template", tpl.ID, "error", fatal)
			return RunResult{Applied: 0, Errors: []string{GenericRunError}}
		}
		if msg != "" {
			result.Errors = append(result.Errors, msg)
		}
	}
	return result
}

// applyTemplate replays one template up to today. Returns the number of
// occurrences applied, a recorded business-failure message (empty when the
// template exhausted its months), and a fatal error for engine-level
// faults.
func (e *Engine) applyTemplate(ctx context.Context, tpl ledger.ScheduledTemplate, today ledger.Date) (int, string, error) {
	if !tpl.Amount.IsPositive() {
		return 0, "Invalid amount", nil
	}
	dir, err := ledger.ParseDirection(string(tpl.Direction))
	if err != nil {
		return 0, err.Error(), nil
	}

	// Start from the month after the watermark; a never-applied template
	// starts from the current month.
	year, month := today.Year(), today.Month()
	if tpl.LastApplied != nil {
		year, month = ledger.NextMonth(tpl.LastApplied.Year(), tpl.LastApplied.Month())
	}

	applied := 0
	for ledger.MonthOnOrBefore(year, month, today.Year(), today.Month()) {
		occurrence := ledger.ClampedDate(year, month, tpl.DayOfMonth)
		if occurrence.After(today) {
			break
		}

		var created *ledger.Transaction
		err := e.Store.WithTx(ctx, func(st ledger.Store) error {
			tx, err := e.Ledger.CreateIn(ctx, st, ledger.CreateInput{
				Owner:     tpl.Owner,
				Amount:    tpl.Amount.Value,
				Currency:  tpl.Amount.Currency,
				Direction: string(dir),
				Category:  tpl.Category,
				Details:   tpl.Details,
				Date:      &occurrence,
			})
			if err != nil {
				return err
			}
			created = tx
			// Advance the watermark in the same unit so a later failure
			// in this run cannot re-apply this month.
			tpl.LastApplied = &occurrence
			return st.UpdateTemplate(ctx, tpl)
		})
		if err != nil {
			if errors.Is(err, ledger.ErrInsufficientFunds) {
				return applied, "Insufficient funds", nil
			}
			if ledger.IsClientError(err) {
				return applied, err.Error(), nil
			}
			return applied, "", err
		}

		e.Ledger.ReportCreated(ctx, *created)
		applied++
		year, month = ledger.NextMonth(year, month)
	}
	return applied, "", nil
}

func (e *Engine) log() *slog.Logger {
	if e.Log != nil {
		return e.Log
	}
	return slog.Default()
}
