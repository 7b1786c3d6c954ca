/*
errors.go - Centralized error types for the ledger core

PURPOSE:
  All error kinds in one place. Callers (HTTP layer, CLI, replay engine)
  classify with errors.Is and the helpers at the bottom; they never match
  on message strings.

ERROR CATEGORIES:
  1. Validation errors - bad input, rejected before any write
  2. Balance errors - a mutation would drive a balance negative
  3. Lookup errors - entity absent for this owner
  Anything outside these is "unexpected": logged with detail server-side,
  surfaced to callers as an opaque message.

SEE ALSO:
  - service.go: Raises these errors
  - api/handlers.go: Maps them to HTTP status codes
*/
package ledger

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrAuthenticationRequired is returned when no owner context is present.
	ErrAuthenticationRequired = errors.New("authentication required")

	// ErrInvalidAmount is returned when an amount is missing, non-numeric,
	// or not strictly positive.
	ErrInvalidAmount = errors.New("invalid amount")

	// ErrUnsupportedCurrency is returned when a currency code is not in the
	// registry's allow-list.
	ErrUnsupportedCurrency = errors.New("unsupported currency")

	// ErrInvalidDirection is returned when a direction is neither Deposit
	// nor Withdraw (case-insensitive).
	ErrInvalidDirection = errors.New("invalid direction")

	// ErrInsufficientFunds is returned when a withdrawal-class mutation
	// would drive a balance negative.
	ErrInsufficientFunds = errors.New("insufficient funds")

	// ErrNegativeBalance is returned when reversing a transaction (delete,
	// wishlist un-fulfillment) would drive a balance negative. Distinct
	// from ErrInsufficientFunds: this is a reversal-time check.
	ErrNegativeBalance = errors.New("negative balance")

	// ErrNotFound is returned when a referenced entity does not exist for
	// this owner. Existence for another owner is indistinguishable.
	ErrNotFound = errors.New("not found")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InsufficientFundsError reports a balance shortage. The message always
// includes the available balance and its currency.
type InsufficientFundsError struct {
	Currency  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientFundsError) Error() string {
	return fmt.Sprintf("insufficient funds: available %s %s, requested %s %s",
		e.Available, e.Currency, e.Requested, e.Currency)
}

func (e *InsufficientFundsError) Unwrap() error { return ErrInsufficientFunds }

// NegativeBalanceError reports the balance a reversal would have produced.
type NegativeBalanceError struct {
	Currency string
	WouldBe  decimal.Decimal
}

func (e *NegativeBalanceError) Error() string {
	return fmt.Sprintf("operation would leave a negative balance of %s %s",
		e.WouldBe, e.Currency)
}

func (e *NegativeBalanceError) Unwrap() error { return ErrNegativeBalance }

// InvalidDirectionError remembers the rejected input.
type InvalidDirectionError struct {
	Input string
}

func (e *InvalidDirectionError) Error() string {
	return fmt.Sprintf("invalid direction %q: must be Deposit or Withdraw", e.Input)
}

func (e *InvalidDirectionError) Unwrap() error { return ErrInvalidDirection }

// UnsupportedCurrencyError remembers the rejected code.
type UnsupportedCurrencyError struct {
	Code string
}

func (e *UnsupportedCurrencyError) Error() string {
	return fmt.Sprintf("unsupported currency %q", e.Code)
}

func (e *UnsupportedCurrencyError) Unwrap() error { return ErrUnsupportedCurrency }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is an expected business outcome
// caused by the caller's input rather than a server fault.
func IsClientError(err error) bool {
	return errors.Is(err, ErrAuthenticationRequired) ||
		errors.Is(err, ErrInvalidAmount) ||
		errors.Is(err, ErrUnsupportedCurrency) ||
		errors.Is(err, ErrInvalidDirection) ||
		errors.Is(err, ErrInsufficientFunds) ||
		errors.Is(err, ErrNegativeBalance) ||
		errors.Is(err, ErrNotFound)
}

// IsNotFound returns true if the error indicates a missing entity.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}
