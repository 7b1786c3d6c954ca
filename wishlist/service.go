/*
Package wishlist implements the wishlist fulfillment bridge.

PURPOSE:
  A wishlist item toggles between "pending" and "purchased". Fulfilling
  an item synthesizes a Withdraw transaction of category "Wishes" through
  the transaction lifecycle service; un-fulfilling deletes that
  transaction. The bridge never bypasses the lifecycle service's
  validation, so insufficient funds and negative-balance rules apply to
  wishes exactly as to hand-entered transactions.

INVARIANT:
  item.Purchased == (item.TransactionID != nil), maintained atomically:
  the wish update and the transaction write commit in one unit.

SEE ALSO:
  - ledger/service.go: CreateIn / DeleteIn, the in-unit entry points
*/
package wishlist

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/pocketledger/ledger-core/ledger"
)

// CategoryWishes is the category stamped on every synthesized transaction.
const CategoryWishes = "Wishes"

// ErrWishPurchased is returned when modifying or deleting a purchased
// item; it must be un-fulfilled first so its transaction is unwound
// through the lifecycle service.
var ErrWishPurchased = errors.New("wish is purchased; toggle it back to pending first")

// Service is the wishlist fulfillment bridge.
type Service struct {
	Store  ledger.TxStore
	Ledger *ledger.Service
}

func NewService(store ledger.TxStore, ledgerSvc *ledger.Service) *Service {
	return &Service{Store: store, Ledger: ledgerSvc}
}

// =============================================================================
// TOGGLE - The bridge operation
// =============================================================================

// ToggleStatus flips an item between pending and purchased.
//
// pending -> purchased: synthesizes a Withdraw of the item's price
// (InsufficientFunds propagates verbatim). purchased -> pending: deletes
// the linked transaction (NegativeBalance propagates, blocking
// un-fulfillment that would leave later withdrawals without cover).
func (s *Service) ToggleStatus(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) (*ledger.WishlistItem, error) {
	if owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}

	var (
		result    *ledger.WishlistItem
		createdTx *ledger.Transaction
		deletedTx *ledger.Transaction
	)
	err := s.Store.WithTx(ctx, func(st ledger.Store) error {
		wish, err := st.GetWish(ctx, owner, id)
		if err != nil {
			return err
		}
		if wish == nil {
			return ledger.ErrNotFound
		}

		if !wish.Purchased {
			today := ledger.Today(s.Ledger.Clock)
			tx, err := s.Ledger.CreateIn(ctx, st, ledger.CreateInput{
				Owner:     owner,
				Amount:    wish.Price.Value,
				Currency:  wish.Price.Currency,
				Direction: string(ledger.Withdraw),
				Category:  CategoryWishes,
				Details:   wish.Details,
				Date:      &today,
			})
			if err != nil {
				return err
			}
			wish.Purchased = true
			wish.TransactionID = &tx.ID
			createdTx = tx
		} else {
			if wish.TransactionID != nil {
				_, tx, err := s.Ledger.DeleteIn(ctx, st, owner, *wish.TransactionID)
				if err != nil {
					return err
				}
				deletedTx = tx
			}
			wish.Purchased = false
			wish.TransactionID = nil
		}

		if err := st.UpdateWish(ctx, *wish); err != nil {
			return err
		}
		result = wish
		return nil
	})
	if err != nil {
		return nil, err
	}

	if createdTx != nil {
		s.Ledger.ReportCreated(ctx, *createdTx)
	}
	if deletedTx != nil {
		s.Ledger.ReportDeleted(ctx, *deletedTx)
	}
	return result, nil
}

// =============================================================================
// CRUD
// =============================================================================

// CreateInput carries the fields of a new wishlist item.
type CreateInput struct {
	Owner    ledger.OwnerID
	Price    decimal.Decimal
	Currency string
	Details  string
	Link     string
	Year     int
}

// Create validates and persists a pending item. Validation order matches
// the lifecycle service: owner, amount, currency.
func (s *Service) Create(ctx context.Context, in CreateInput) (*ledger.WishlistItem, error) {
	if in.Owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}
	if !in.Price.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if !s.Ledger.Registry.IsSupported(in.Currency) {
		return nil, &ledger.UnsupportedCurrencyError{Code: in.Currency}
	}

	wish := ledger.WishlistItem{
		ID:        ledger.WishID(uuid.NewString()),
		Owner:     in.Owner,
		Price:     ledger.Amount{Value: in.Price, Currency: in.Currency},
		Details:   in.Details,
		Link:      in.Link,
		Year:      in.Year,
		CreatedAt: s.Ledger.Clock.Now(),
	}
	if err := s.Store.CreateWish(ctx, wish); err != nil {
		return nil, err
	}
	return &wish, nil
}

// Update replaces a pending item's fields. Purchased items are frozen:
// their price is already in the ledger.
func (s *Service) Update(ctx context.Context, owner ledger.OwnerID, id ledger.WishID, in CreateInput) (*ledger.WishlistItem, error) {
	if owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}
	if !in.Price.IsPositive() {
		return nil, ledger.ErrInvalidAmount
	}
	if !s.Ledger.Registry.IsSupported(in.Currency) {
		return nil, &ledger.UnsupportedCurrencyError{Code: in.Currency}
	}

	wish, err := s.Store.GetWish(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if wish == nil {
		return nil, ledger.ErrNotFound
	}
	if wish.Purchased {
		return nil, ErrWishPurchased
	}

	wish.Price = ledger.Amount{Value: in.Price, Currency: in.Currency}
	wish.Details = in.Details
	wish.Link = in.Link
	wish.Year = in.Year
	if err := s.Store.UpdateWish(ctx, *wish); err != nil {
		return nil, err
	}
	return wish, nil
}

// Delete removes a pending item. A purchased item must be toggled back
// first so its transaction is reversed with the usual balance checks.
func (s *Service) Delete(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) error {
	if owner == "" {
		return ledger.ErrAuthenticationRequired
	}

	wish, err := s.Store.GetWish(ctx, owner, id)
	if err != nil {
		return err
	}
	if wish == nil {
		return ledger.ErrNotFound
	}
	if wish.Purchased {
		return ErrWishPurchased
	}
	return s.Store.DeleteWish(ctx, owner, id)
}

// List returns the owner's wishlist.
func (s *Service) List(ctx context.Context, owner ledger.OwnerID) ([]ledger.WishlistItem, error) {
	if owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}
	return s.Store.ListWishes(ctx, owner)
}

// Get returns one item.
func (s *Service) Get(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) (*ledger.WishlistItem, error) {
	if owner == "" {
		return nil, ledger.ErrAuthenticationRequired
	}
	wish, err := s.Store.GetWish(ctx, owner, id)
	if err != nil {
		return nil, err
	}
	if wish == nil {
		return nil, ledger.ErrNotFound
	}
	return wish, nil
}
