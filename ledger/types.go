/*
Package ledger provides the balance-consistency core of the finance tracker.

PURPOSE:
  This package contains the types and algorithms that keep a per-currency
  running balance equal to the signed sum of a user's transactions in that
  currency. Every code path that creates, updates, or deletes a transaction
  goes through the Service in this package, and every balance write goes
  through the Mutator.

KEY CONCEPTS IN THIS FILE (types.go):
  - Amount: A decimal quantity in a currency (e.g. 19.99 USD)
  - Direction: Closed two-value enum (Deposit | Withdraw)
  - Transaction: A dated, signed ledger entry owned by one user
  - Balance: The maintained running total for one owner in one currency
  - WishlistItem / ScheduledTemplate: Entities whose mutations synthesize
    transactions through the Service

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Sign discipline: Amounts are always positive; Direction encodes sign
  3. Ownership: Every entity belongs to exactly one owner; queries are
     always owner-scoped and a foreign owner's row is indistinguishable
     from a missing row
  4. Incrementality: Balances are adjusted by deltas, never recomputed on
     the hot path

SEE ALSO:
  - service.go: Transaction lifecycle (create/update/delete)
  - mutator.go: The only code path allowed to change Balance.Total
  - store.go: Persistence interfaces
*/
package ledger

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// AMOUNT - Decimal quantity in a currency
// =============================================================================

type Amount struct {
	Value    decimal.Decimal
	Currency string
}

func NewAmount(value float64, currency string) Amount {
	return Amount{Value: decimal.NewFromFloat(value), Currency: currency}
}

func NewAmountFromInt(value int, currency string) Amount {
	return Amount{Value: decimal.NewFromInt(int64(value)), Currency: currency}
}

func MustParseDecimal(s string) decimal.Decimal {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

func (a Amount) Zero() Amount              { return Amount{Value: decimal.Zero, Currency: a.Currency} }
func (a Amount) Add(b Amount) Amount       { return Amount{Value: a.Value.Add(b.Value), Currency: a.Currency} }
func (a Amount) Sub(b Amount) Amount       { return Amount{Value: a.Value.Sub(b.Value), Currency: a.Currency} }
func (a Amount) Neg() Amount               { return Amount{Value: a.Value.Neg(), Currency: a.Currency} }
func (a Amount) IsNegative() bool          { return a.Value.IsNegative() }
func (a Amount) IsZero() bool              { return a.Value.IsZero() }
func (a Amount) IsPositive() bool          { return a.Value.IsPositive() }
func (a Amount) GreaterThan(b Amount) bool { return a.Value.GreaterThan(b.Value) }
func (a Amount) LessThan(b Amount) bool    { return a.Value.LessThan(b.Value) }

func (a Amount) String() string { return a.Value.String() + " " + a.Currency }

// =============================================================================
// IDENTIFIERS
// =============================================================================

type OwnerID string
type TransactionID string
type WishID string
type TemplateID string

// =============================================================================
// DIRECTION - Closed two-value enum, case-insensitive at the boundary
// =============================================================================

// Direction encodes the sign of a transaction. Amounts are always positive;
// a Withdraw subtracts from the balance, a Deposit adds to it.
type Direction string

const (
	Deposit  Direction = "Deposit"
	Withdraw Direction = "Withdraw"
)

// ParseDirection accepts any casing ("deposit", "WITHDRAW", ...) and returns
// the canonical value. Anything else is ErrInvalidDirection.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "deposit":
		return Deposit, nil
	case "withdraw":
		return Withdraw, nil
	default:
		return "", &InvalidDirectionError{Input: s}
	}
}

// Sign returns +1 for Deposit and -1 for Withdraw.
func (d Direction) Sign() int {
	if d == Withdraw {
		return -1
	}
	return 1
}

// =============================================================================
// TRANSACTION - One dated ledger entry
// =============================================================================

type Transaction struct {
	ID        TransactionID
	Owner     OwnerID
	Date      Date
	Amount    Amount // always positive; Direction carries the sign
	Direction Direction
	Details   string
	Category  string
	CreatedAt time.Time
}

// SignedDelta is the transaction's effect on its currency's balance.
func (t Transaction) SignedDelta() Amount {
	if t.Direction == Withdraw {
		return t.Amount.Neg()
	}
	return t.Amount
}

// ReversalDelta undoes the transaction's effect (used by update and delete).
func (t Transaction) ReversalDelta() Amount {
	return t.SignedDelta().Neg()
}

// =============================================================================
// BALANCE - Running total per owner and currency
// =============================================================================

// Balance is the maintained aggregate for one (owner, currency) pair.
//
// INVARIANT: Total == sum of SignedDelta over all of the owner's
// transactions in this currency, after every successful mutation.
// Balances are created lazily at zero and never deleted.
type Balance struct {
	Owner     OwnerID
	Currency  string
	Total     decimal.Decimal
	UpdatedAt time.Time
}

// =============================================================================
// WISHLIST ITEM
// =============================================================================

// WishlistItem is a planned purchase. Fulfilling it synthesizes a Withdraw
// transaction of category "Wishes"; un-fulfilling deletes that transaction.
//
// INVARIANT: Purchased == (TransactionID != nil).
type WishlistItem struct {
	ID            WishID
	Owner         OwnerID
	Price         Amount // always positive
	Details       string
	Link          string
	Year          int
	Purchased     bool
	TransactionID *TransactionID
	CreatedAt     time.Time
}

// =============================================================================
// SCHEDULED TEMPLATE - Recurring transaction definition
// =============================================================================

// ScheduledTemplate describes a monthly recurring transaction. LastApplied
// is the watermark: the date of the most recently synthesized occurrence,
// nil for a template that has never fired.
type ScheduledTemplate struct {
	ID          TemplateID
	Owner       OwnerID
	DayOfMonth  int // 1-31, clamped to the target month's length
	Amount      Amount
	Direction   Direction
	Details     string
	Category    string
	Active      bool
	LastApplied *Date
	CreatedAt   time.Time
}
