/*
service.go - Transaction lifecycle service

PURPOSE:
  The single entry point for creating, updating, and deleting transactions.
  Computes the correct balance delta(s) for each mutation, rejects
  operations that would drive a balance negative, and keeps the
  transaction write and the balance write in one atomic unit.

VALIDATION ORDER (canonical, every path):
  owner -> amount -> currency -> direction

MUTATION ALGEBRA:
  create:  forward delta (+amount for Deposit, -amount for Withdraw)
  update:  reversal delta of the OLD values on the old currency, then
           forward delta of the NEW values on the (possibly different)
           currency; the forward result must not be negative
  delete:  reversal delta only; the result must not be negative (guards
           against deleting a deposit that later withdrawals depend on)

REPORTING:
  After a successful commit the reporting notifier is invoked
  best-effort: failures are logged and never surface to the caller.

SEE ALSO:
  - mutator.go: Applies the deltas
  - wishlist/service.go, schedule/engine.go: Synthesize transactions
    exclusively through this service
*/
package ledger

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Service is the transaction lifecycle service.
type Service struct {
	Store    TxStore
	Registry CurrencyRegistry
	Notifier Notifier
	Clock    Clock
	Mutator  *Mutator
	Log      *slog.Logger
}

// NewService wires a Service with default clock and notifier.
func NewService(store TxStore, registry CurrencyRegistry, opts ...ServiceOption) *Service {
	s := &Service{
		Store:    store,
		Registry: registry,
		Notifier: &LogNotifier{},
		Clock:    SystemClock{},
		Log:      slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.Mutator = NewMutator(s.Clock)
	return s
}

type ServiceOption func(*Service)

func WithClock(c Clock) ServiceOption       { return func(s *Service) { s.Clock = c } }
func WithNotifier(n Notifier) ServiceOption { return func(s *Service) { s.Notifier = n } }
func WithLogger(l *slog.Logger) ServiceOption {
	return func(s *Service) { s.Log = l }
}

// =============================================================================
// INPUTS
// =============================================================================

// CreateInput carries the fields of a new transaction. Direction is raw
// caller input, parsed case-insensitively. A nil Date defaults to today.
type CreateInput struct {
	Owner     OwnerID
	Amount    decimal.Decimal
	Currency  string
	Direction string
	Category  string
	Details   string
	Date      *Date
}

// UpdateInput carries the replacement fields for an existing transaction.
type UpdateInput struct {
	Amount    decimal.Decimal
	Currency  string
	Direction string
	Category  string
	Details   string
	Date      Date
}

// validate enforces the canonical order: owner, amount, currency, direction.
func (s *Service) validate(owner OwnerID, amount decimal.Decimal, currency, direction string) (Direction, error) {
	if owner == "" {
		return "", ErrAuthenticationRequired
	}
	if !amount.IsPositive() {
		return "", ErrInvalidAmount
	}
	if !s.Registry.IsSupported(currency) {
		return "", &UnsupportedCurrencyError{Code: currency}
	}
	return ParseDirection(direction)
}

// =============================================================================
// CREATE
// =============================================================================

// Create validates, persists a new transaction, and applies its delta to
// the balance, all in one atomic unit.
func (s *Service) Create(ctx context.Context, in CreateInput) (*Transaction, error) {
	var created *Transaction
	err := s.Store.WithTx(ctx, func(st Store) error {
		tx, err := s.CreateIn(ctx, st, in)
		if err != nil {
			return err
		}
		created = tx
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.bestEffort("record", func() error {
		return s.Notifier.Record(ctx, created.Owner, *created)
	})
	return created, nil
}

// CreateIn is Create's core, running inside a caller-supplied atomic unit.
// The wishlist bridge and the replay engine use it to combine the
// transaction write with their own writes. It does not notify reporting;
// callers do that after their unit commits.
func (s *Service) CreateIn(ctx context.Context, st Store, in CreateInput) (*Transaction, error) {
	dir, err := s.validate(in.Owner, in.Amount, in.Currency, in.Direction)
	if err != nil {
		return nil, err
	}

	if dir == Withdraw {
		available, err := PeekBalance(ctx, st, in.Owner, in.Currency)
		if err != nil {
			return nil, err
		}
		if in.Amount.GreaterThan(available) {
			return nil, &InsufficientFundsError{
				Currency:  in.Currency,
				Available: available,
				Requested: in.Amount,
			}
		}
	}

	date := Today(s.Clock)
	if in.Date != nil {
		date = *in.Date
	}

	tx := Transaction{
		ID:        TransactionID(uuid.NewString()),
		Owner:     in.Owner,
		Date:      date,
		Amount:    Amount{Value: in.Amount, Currency: in.Currency},
		Direction: dir,
		Details:   in.Details,
		Category:  in.Category,
		CreatedAt: s.Clock.Now(),
	}

	if err := st.CreateTransaction(ctx, tx); err != nil {
		return nil, err
	}
	if _, err := s.Mutator.ApplyDelta(ctx, st, tx.Owner, tx.Amount.Currency, tx.SignedDelta().Value); err != nil {
		return nil, err
	}
	return &tx, nil
}

// =============================================================================
// UPDATE
// =============================================================================

// Update replaces a transaction's fields, reversing the old delta and
// applying the new one. When the currency changes, two balance rows are
// touched: reversal on the old currency, forward on the new. The reversal
// may leave the balance transiently negative; only the forward result is
// checked.
func (s *Service) Update(ctx context.Context, owner OwnerID, id TransactionID, in UpdateInput) (*Transaction, error) {
	var old, updated Transaction
	err := s.Store.WithTx(ctx, func(st Store) error {
		existing, err := st.GetTransaction(ctx, owner, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return ErrNotFound
		}
		old = *existing

		dir, err := s.validate(owner, in.Amount, in.Currency, in.Direction)
		if err != nil {
			return err
		}

		// Undo the old transaction's effect on its currency.
		if _, err := s.Mutator.ApplyDelta(ctx, st, owner, old.Amount.Currency, old.ReversalDelta().Value); err != nil {
			return err
		}

		// Apply the new values to the (possibly different) currency.
		forward := in.Amount
		if dir == Withdraw {
			forward = in.Amount.Neg()
		}
		current, err := PeekBalance(ctx, st, owner, in.Currency)
		if err != nil {
			return err
		}
		if current.Add(forward).IsNegative() {
			return &InsufficientFundsError{
				Currency:  in.Currency,
				Available: current,
				Requested: in.Amount,
			}
		}
		if _, err := s.Mutator.ApplyDelta(ctx, st, owner, in.Currency, forward); err != nil {
			return err
		}

		updated = old
		updated.Amount = Amount{Value: in.Amount, Currency: in.Currency}
		updated.Direction = dir
		updated.Category = in.Category
		updated.Details = in.Details
		updated.Date = in.Date
		return st.UpdateTransaction(ctx, updated)
	})
	if err != nil {
		return nil, err
	}

	s.bestEffort("record update", func() error {
		return s.Notifier.RecordUpdate(ctx, owner, old, updated)
	})
	return &updated, nil
}

// =============================================================================
// DELETE
// =============================================================================

// Delete removes a transaction and reverses its delta, returning the new
// balance for its currency. Fails with NegativeBalance if the reversal
// would leave the balance negative.
func (s *Service) Delete(ctx context.Context, owner OwnerID, id TransactionID) (decimal.Decimal, error) {
	var (
		newTotal decimal.Decimal
		deleted  *Transaction
	)
	err := s.Store.WithTx(ctx, func(st Store) error {
		total, tx, err := s.DeleteIn(ctx, st, owner, id)
		if err != nil {
			return err
		}
		newTotal, deleted = total, tx
		return nil
	})
	if err != nil {
		return decimal.Zero, err
	}

	s.bestEffort("record deletion", func() error {
		return s.Notifier.RecordDeletion(ctx, owner, *deleted)
	})
	return newTotal, nil
}

// DeleteIn is Delete's core inside a caller-supplied atomic unit; see
// CreateIn. Returns the new balance and the deleted transaction.
func (s *Service) DeleteIn(ctx context.Context, st Store, owner OwnerID, id TransactionID) (decimal.Decimal, *Transaction, error) {
	if owner == "" {
		return decimal.Zero, nil, ErrAuthenticationRequired
	}

	existing, err := st.GetTransaction(ctx, owner, id)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if existing == nil {
		return decimal.Zero, nil, ErrNotFound
	}

	reversal := existing.ReversalDelta()
	current, err := PeekBalance(ctx, st, owner, existing.Amount.Currency)
	if err != nil {
		return decimal.Zero, nil, err
	}
	wouldBe := current.Add(reversal.Value)
	if wouldBe.IsNegative() {
		return decimal.Zero, nil, &NegativeBalanceError{
			Currency: existing.Amount.Currency,
			WouldBe:  wouldBe,
		}
	}

	newTotal, err := s.Mutator.ApplyDelta(ctx, st, owner, existing.Amount.Currency, reversal.Value)
	if err != nil {
		return decimal.Zero, nil, err
	}
	if err := st.DeleteTransaction(ctx, owner, id); err != nil {
		return decimal.Zero, nil, err
	}
	return newTotal, existing, nil
}

// =============================================================================
// READS
// =============================================================================

// Transactions lists the owner's transactions, optionally filtered by
// currency.
func (s *Service) Transactions(ctx context.Context, owner OwnerID, currency string) ([]Transaction, error) {
	if owner == "" {
		return nil, ErrAuthenticationRequired
	}
	return s.Store.ListTransactions(ctx, owner, currency)
}

// Balances lists the owner's per-currency balances.
func (s *Service) Balances(ctx context.Context, owner OwnerID) ([]Balance, error) {
	if owner == "" {
		return nil, ErrAuthenticationRequired
	}
	return s.Store.ListBalances(ctx, owner)
}

// =============================================================================
// REPORTING
// =============================================================================

// ReportCreated notifies reporting about a transaction committed outside
// Create (wishlist fulfillment, replay occurrences). Best-effort.
func (s *Service) ReportCreated(ctx context.Context, tx Transaction) {
	s.bestEffort("record", func() error {
		return s.Notifier.Record(ctx, tx.Owner, tx)
	})
}

// ReportDeleted is ReportCreated's counterpart for deletions.
func (s *Service) ReportDeleted(ctx context.Context, tx Transaction) {
	s.bestEffort("record deletion", func() error {
		return s.Notifier.RecordDeletion(ctx, tx.Owner, tx)
	})
}

// bestEffort runs a notifier call, logging (never raising) failures.
func (s *Service) bestEffort(what string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			s.log().Warn("reporting notifier panicked", "op", what, "panic", r)
		}
	}()
	if err := fn(); err != nil {
		s.log().Warn("reporting notifier failed", "op", what, "error", err)
	}
}

func (s *Service) log() *slog.Logger {
	if s.Log != nil {
		return s.Log
	}
	return slog.Default()
}
