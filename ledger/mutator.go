/*
mutator.go - The balance mutator

PURPOSE:
  The ONLY code path allowed to change Balance.Total. Applies a signed
  delta to the (owner, currency) balance row, creating it lazily at zero.

CONTRACT:
  - Must be called inside the same WithTx unit as the transaction write
    that triggered it; the store passed in is the transactional view.
  - Does NOT enforce non-negativity. Callers that need the "no negative
    balance" rule check before committing: the mutator is also used for
    the reversal path, where a transiently negative intermediate balance
    is legitimate (e.g. undoing a deposit during an update).

SEE ALSO:
  - service.go: Performs the non-negativity checks before mutating
*/
package ledger

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

// Mutator applies signed deltas to balances.
type Mutator struct {
	Clock Clock
}

func NewMutator(clock Clock) *Mutator {
	if clock == nil {
		clock = SystemClock{}
	}
	return &Mutator{Clock: clock}
}

// ApplyDelta loads (or lazily creates at zero) the balance for
// (owner, currency), adds delta, persists, and returns the new total.
func (m *Mutator) ApplyDelta(ctx context.Context, st Store, owner OwnerID, currency string, delta decimal.Decimal) (decimal.Decimal, error) {
	b, err := st.GetBalanceForUpdate(ctx, owner, currency)
	if err != nil {
		return decimal.Zero, fmt.Errorf("loading balance %s/%s: %w", owner, currency, err)
	}
	if b == nil {
		b = &Balance{Owner: owner, Currency: currency, Total: decimal.Zero}
	}

	b.Total = b.Total.Add(delta)
	b.UpdatedAt = m.Clock.Now()

	if err := st.SaveBalance(ctx, *b); err != nil {
		return decimal.Zero, fmt.Errorf("saving balance %s/%s: %w", owner, currency, err)
	}
	return b.Total, nil
}

// PeekBalance returns the current total for (owner, currency), zero if the
// row does not exist yet. Read-only; used for pre-commit checks.
func PeekBalance(ctx context.Context, st Store, owner OwnerID, currency string) (decimal.Decimal, error) {
	b, err := st.GetBalanceForUpdate(ctx, owner, currency)
	if err != nil {
		return decimal.Zero, err
	}
	if b == nil {
		return decimal.Zero, nil
	}
	return b.Total, nil
}
