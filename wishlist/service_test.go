package wishlist_test

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pocketledger/ledger-core/currency"
	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/store/memory"
	"github.com/pocketledger/ledger-core/wishlist"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*wishlist.Service, *ledger.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	ledgerSvc := ledger.NewService(st, currency.NewRegistry(),
		ledger.WithClock(ledger.FixedClock{At: testNow}))
	return wishlist.NewService(st, ledgerSvc), ledgerSvc, st
}

func dec(s string) decimal.Decimal {
	return ledger.MustParseDecimal(s)
}

func seedBalance(t *testing.T, svc *ledger.Service, owner, amount, cur string) {
	t.Helper()
	_, err := svc.Create(context.Background(), ledger.CreateInput{
		Owner: ledger.OwnerID(owner), Amount: dec(amount),
		Currency: cur, Direction: "Deposit",
	})
	require.NoError(t, err)
}

func balanceOf(t *testing.T, st *memory.Store, owner, cur string) decimal.Decimal {
	t.Helper()
	b, err := st.GetBalance(context.Background(), ledger.OwnerID(owner), cur)
	require.NoError(t, err)
	if b == nil {
		return decimal.Zero
	}
	return b.Total
}

func createWish(t *testing.T, svc *wishlist.Service, owner, price, cur, details string) *ledger.WishlistItem {
	t.Helper()
	wish, err := svc.Create(context.Background(), wishlist.CreateInput{
		Owner: ledger.OwnerID(owner), Price: dec(price),
		Currency: cur, Details: details, Year: 2025,
	})
	require.NoError(t, err)
	return wish
}

// =============================================================================
// TOGGLE
// =============================================================================

func TestToggleStatus_FulfillThenUnfulfill(t *testing.T) {
	// GIVEN: Balance 1000 USD and a pending 200 USD wish
	// WHEN: Toggling it to purchased
	// THEN: A "Wishes" withdrawal is linked and the balance drops to 800
	// WHEN: Toggling it back
	// THEN: The transaction is deleted and the balance returns to 1000

	svc, ledgerSvc, st := newTestService(t)
	ctx := context.Background()

	seedBalance(t, ledgerSvc, "alice", "1000", "USD")
	wish := createWish(t, svc, "alice", "200", "USD", "Mechanical keyboard")
	assert.False(t, wish.Purchased)
	assert.Nil(t, wish.TransactionID)

	purchased, err := svc.ToggleStatus(ctx, "alice", wish.ID)
	require.NoError(t, err)
	assert.True(t, purchased.Purchased)
	require.NotNil(t, purchased.TransactionID)
	assert.True(t, balanceOf(t, st, "alice", "USD").Equal(dec("800")))

	tx, err := st.GetTransaction(ctx, "alice", *purchased.TransactionID)
	require.NoError(t, err)
	require.NotNil(t, tx)
	assert.Equal(t, wishlist.CategoryWishes, tx.Category)
	assert.Equal(t, ledger.Withdraw, tx.Direction)
	assert.Equal(t, "Mechanical keyboard", tx.Details)
	assert.Equal(t, "2025-06-15", tx.Date.String())
	assert.True(t, tx.Amount.Value.Equal(dec("200")))

	linkedID := *purchased.TransactionID
	pending, err := svc.ToggleStatus(ctx, "alice", wish.ID)
	require.NoError(t, err)
	assert.False(t, pending.Purchased)
	assert.Nil(t, pending.TransactionID)
	assert.True(t, balanceOf(t, st, "alice", "USD").Equal(dec("1000")))

	gone, err := st.GetTransaction(ctx, "alice", linkedID)
	require.NoError(t, err)
	assert.Nil(t, gone)
}

func TestToggleStatus_InsufficientFunds_RolledBack(t *testing.T) {
	// GIVEN: Balance 100 USD and a 500 USD wish
	// WHEN: Toggling to purchased
	// THEN: The toggle fails and nothing changes

	svc, ledgerSvc, st := newTestService(t)
	ctx := context.Background()

	seedBalance(t, ledgerSvc, "alice", "100", "USD")
	wish := createWish(t, svc, "alice", "500", "USD", "Monitor")

	_, err := svc.ToggleStatus(ctx, "alice", wish.ID)
	require.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var insufficient *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &insufficient)
	assert.True(t, insufficient.Available.Equal(dec("100")))
	assert.True(t, insufficient.Requested.Equal(dec("500")))

	after, err := svc.Get(ctx, "alice", wish.ID)
	require.NoError(t, err)
	assert.False(t, after.Purchased)
	assert.Nil(t, after.TransactionID)
	assert.True(t, balanceOf(t, st, "alice", "USD").Equal(dec("100")))

	txs, err := st.ListTransactions(ctx, "alice", "USD")
	require.NoError(t, err)
	assert.Len(t, txs, 1) // only the seed deposit
}

func TestToggleStatus_UnknownWish_NotFound(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ToggleStatus(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestToggleStatus_ForeignOwner_NotFound(t *testing.T) {
	// GIVEN: Bob's wish
	// WHEN: Alice toggles it
	// THEN: Not found, indistinguishable from a missing item

	svc, ledgerSvc, _ := newTestService(t)

	seedBalance(t, ledgerSvc, "bob", "1000", "USD")
	wish := createWish(t, svc, "bob", "50", "USD", "Book")

	_, err := svc.ToggleStatus(context.Background(), "alice", wish.ID)
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestToggleStatus_MissingOwner_Rejected(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.ToggleStatus(context.Background(), "", "any")
	assert.ErrorIs(t, err, ledger.ErrAuthenticationRequired)
}

// =============================================================================
// CRUD
// =============================================================================

func TestCreate_Validates(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, wishlist.CreateInput{
		Price: dec("10"), Currency: "USD",
	})
	assert.ErrorIs(t, err, ledger.ErrAuthenticationRequired)

	_, err = svc.Create(ctx, wishlist.CreateInput{
		Owner: "alice", Price: decimal.Zero, Currency: "USD",
	})
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	_, err = svc.Create(ctx, wishlist.CreateInput{
		Owner: "alice", Price: dec("10"), Currency: "usd",
	})
	assert.ErrorIs(t, err, ledger.ErrUnsupportedCurrency)
}

func TestUpdate_PendingItem(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	wish := createWish(t, svc, "alice", "50", "USD", "Book")

	updated, err := svc.Update(ctx, "alice", wish.ID, wishlist.CreateInput{
		Owner: "alice", Price: dec("65"), Currency: "EUR",
		Details: "Hardcover", Link: "https://example.com", Year: 2026,
	})
	require.NoError(t, err)
	assert.True(t, updated.Price.Value.Equal(dec("65")))
	assert.Equal(t, "EUR", updated.Price.Currency)
	assert.Equal(t, "Hardcover", updated.Details)
	assert.Equal(t, 2026, updated.Year)
}

func TestUpdate_PurchasedItem_Frozen(t *testing.T) {
	// A purchased item's price is already in the ledger; editing it would
	// desynchronize the linked transaction.

	svc, ledgerSvc, _ := newTestService(t)
	ctx := context.Background()

	seedBalance(t, ledgerSvc, "alice", "1000", "USD")
	wish := createWish(t, svc, "alice", "200", "USD", "Keyboard")
	_, err := svc.ToggleStatus(ctx, "alice", wish.ID)
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", wish.ID, wishlist.CreateInput{
		Owner: "alice", Price: dec("300"), Currency: "USD",
	})
	assert.ErrorIs(t, err, wishlist.ErrWishPurchased)
}

func TestDelete_PurchasedItem_Frozen(t *testing.T) {
	svc, ledgerSvc, st := newTestService(t)
	ctx := context.Background()

	seedBalance(t, ledgerSvc, "alice", "1000", "USD")
	wish := createWish(t, svc, "alice", "200", "USD", "Keyboard")
	_, err := svc.ToggleStatus(ctx, "alice", wish.ID)
	require.NoError(t, err)

	err = svc.Delete(ctx, "alice", wish.ID)
	assert.ErrorIs(t, err, wishlist.ErrWishPurchased)

	// Toggling back unlocks deletion.
	_, err = svc.ToggleStatus(ctx, "alice", wish.ID)
	require.NoError(t, err)
	require.NoError(t, svc.Delete(ctx, "alice", wish.ID))

	wishes, err := st.ListWishes(ctx, "alice")
	require.NoError(t, err)
	assert.Empty(t, wishes)
}

func TestList_ScopedToOwner(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	createWish(t, svc, "alice", "10", "USD", "A")
	createWish(t, svc, "alice", "20", "USD", "B")
	createWish(t, svc, "bob", "30", "USD", "C")

	wishes, err := svc.List(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, wishes, 2)
}
