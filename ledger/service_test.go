package ledger_test

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
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2025, time.June, 15, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) (*ledger.Service, *memory.Store) {
	t.Helper()
	st := memory.New()
	svc := ledger.NewService(st, currency.NewRegistry(),
		ledger.WithClock(ledger.FixedClock{At: testNow}))
	return svc, st
}

func dec(s string) decimal.Decimal {
	return ledger.MustParseDecimal(s)
}

func deposit(owner, amount, cur string) ledger.CreateInput {
	return ledger.CreateInput{
		Owner: ledger.OwnerID(owner), Amount: dec(amount),
		Currency: cur, Direction: "Deposit",
	}
}

func withdraw(owner, amount, cur string) ledger.CreateInput {
	return ledger.CreateInput{
		Owner: ledger.OwnerID(owner), Amount: dec(amount),
		Currency: cur, Direction: "Withdraw",
	}
}

func balanceOf(t *testing.T, svc *ledger.Service, owner, cur string) decimal.Decimal {
	t.Helper()
	b, err := svc.Store.GetBalance(context.Background(), ledger.OwnerID(owner), cur)
	require.NoError(t, err)
	if b == nil {
		return decimal.Zero
	}
	return b.Total
}

// =============================================================================
// CREATE
// =============================================================================

func TestCreate_Deposit_IncreasesBalance(t *testing.T) {
	// GIVEN: Balance(USD)=1000
	// WHEN: Creating a 100 USD deposit
	// THEN: Balance becomes 1100

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, deposit("alice", "1000", "USD"))
	require.NoError(t, err)

	tx, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)
	assert.Equal(t, ledger.Deposit, tx.Direction)
	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("1100")))
}

func TestCreate_FirstDeposit_CreatesBalanceLazily(t *testing.T) {
	// GIVEN: No balance row for (alice, EUR)
	// WHEN: Creating a deposit in EUR
	// THEN: The balance row appears with the deposit's amount

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, deposit("alice", "42.50", "EUR"))
	require.NoError(t, err)
	assert.True(t, balanceOf(t, svc, "alice", "EUR").Equal(dec("42.5")))
}

func TestCreate_Withdraw_InsufficientFunds_NothingCommitted(t *testing.T) {
	// GIVEN: Balance(USD)=1000
	// WHEN: Creating a 2000 USD withdrawal
	// THEN: InsufficientFunds with the available balance; nothing stored

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, deposit("alice", "1000", "USD"))
	require.NoError(t, err)

	_, err = svc.Create(ctx, withdraw("alice", "2000", "USD"))
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)

	var ife *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.Equal(t, "USD", ife.Currency)
	assert.True(t, ife.Available.Equal(dec("1000")))

	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("1000")))
	txs, err := svc.Transactions(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestCreate_Withdraw_ExactBalance_Allowed(t *testing.T) {
	// GIVEN: Balance(USD)=100
	// WHEN: Withdrawing exactly 100
	// THEN: Succeeds; balance is zero, not negative

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, withdraw("alice", "100", "USD"))
	require.NoError(t, err)
	assert.True(t, balanceOf(t, svc, "alice", "USD").IsZero())
}

func TestCreate_Withdraw_NoBalanceRow_TreatedAsZero(t *testing.T) {
	// GIVEN: No balance row for (alice, GBP)
	// WHEN: Withdrawing any amount in GBP
	// THEN: InsufficientFunds with available 0

	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), withdraw("alice", "1", "GBP"))
	require.Error(t, err)
	var ife *ledger.InsufficientFundsError
	require.ErrorAs(t, err, &ife)
	assert.True(t, ife.Available.IsZero())
}

func TestCreate_DefaultDate_IsToday(t *testing.T) {
	// GIVEN: A create request without a date
	// WHEN: The transaction is created
	// THEN: Its date is the clock's current day

	svc, _ := newTestService(t)

	tx, err := svc.Create(context.Background(), deposit("alice", "10", "USD"))
	require.NoError(t, err)
	assert.Equal(t, "2025-06-15", tx.Date.String())
}

func TestCreate_Direction_CaseInsensitive(t *testing.T) {
	// GIVEN: Direction in arbitrary casing
	// WHEN: Creating transactions
	// THEN: The canonical form is stored

	svc, _ := newTestService(t)
	ctx := context.Background()

	in := deposit("alice", "10", "USD")
	in.Direction = "dEpOsIt"
	tx, err := svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ledger.Deposit, tx.Direction)

	in = deposit("alice", "5", "USD")
	in.Direction = "WITHDRAW"
	tx, err = svc.Create(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, ledger.Withdraw, tx.Direction)
}

// =============================================================================
// VALIDATION ORDER
// =============================================================================

func TestValidation_Order_OwnerFirst(t *testing.T) {
	// GIVEN: A request with every field invalid
	// WHEN: Creating
	// THEN: The owner error wins; then amount, currency, direction

	svc, _ := newTestService(t)
	ctx := context.Background()

	in := ledger.CreateInput{Owner: "", Amount: dec("-5"), Currency: "XXX", Direction: "sideways"}
	_, err := svc.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrAuthenticationRequired)

	in.Owner = "alice"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)

	in.Amount = dec("5")
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrUnsupportedCurrency)

	in.Currency = "USD"
	_, err = svc.Create(ctx, in)
	assert.ErrorIs(t, err, ledger.ErrInvalidDirection)
}

func TestValidation_ZeroAmount_Rejected(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), deposit("alice", "0", "USD"))
	assert.ErrorIs(t, err, ledger.ErrInvalidAmount)
}

func TestValidation_LowercaseCurrency_Rejected(t *testing.T) {
	// Currency matching is exact on the canonical upper-case form; the
	// HTTP layer upper-cases input before it reaches the service.
	svc, _ := newTestService(t)

	_, err := svc.Create(context.Background(), deposit("alice", "10", "usd"))
	assert.ErrorIs(t, err, ledger.ErrUnsupportedCurrency)
}

// =============================================================================
// UPDATE
// =============================================================================

func TestUpdate_Amount_ReversalPlusForward(t *testing.T) {
	// GIVEN: A 100 USD deposit and Balance(USD)=100
	// WHEN: Updating the deposit's amount to 150
	// THEN: Balance becomes 150 (old delta reversed, new applied)

	svc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)

	updated, err := svc.Update(ctx, "alice", tx.ID, ledger.UpdateInput{
		Amount: dec("150"), Currency: "USD", Direction: "Deposit", Date: tx.Date,
	})
	require.NoError(t, err)
	assert.True(t, updated.Amount.Value.Equal(dec("150")))
	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("150")))
}

func TestUpdate_DirectionFlip_CheckedAgainstForwardResult(t *testing.T) {
	// GIVEN: Balance(USD)=100 from one deposit
	// WHEN: Flipping that deposit to a withdrawal of 100
	// THEN: The forward result would be -100, so the update fails and
	//       the balance is unchanged

	svc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", tx.ID, ledger.UpdateInput{
		Amount: dec("100"), Currency: "USD", Direction: "Withdraw", Date: tx.Date,
	})
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("100")))
}

func TestUpdate_CurrencyChange_TouchesBothBalances(t *testing.T) {
	// GIVEN: 100 USD deposit and 50 EUR deposit
	// WHEN: Moving the USD deposit to EUR
	// THEN: USD balance drops to 0, EUR balance becomes 150

	svc, _ := newTestService(t)
	ctx := context.Background()

	usdTx, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, deposit("alice", "50", "EUR"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", usdTx.ID, ledger.UpdateInput{
		Amount: dec("100"), Currency: "EUR", Direction: "Deposit", Date: usdTx.Date,
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, svc, "alice", "USD").IsZero())
	assert.True(t, balanceOf(t, svc, "alice", "EUR").Equal(dec("150")))
}

func TestUpdate_CurrencyChange_ReversalMayGoNegative(t *testing.T) {
	// GIVEN: 100 USD deposit, then an 80 USD withdrawal (balance 20)
	// WHEN: Moving the deposit to EUR
	// THEN: The reversal leaves USD at -80; only the forward result is
	//       checked, so the update succeeds

	svc, _ := newTestService(t)
	ctx := context.Background()

	dep, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, withdraw("alice", "80", "USD"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "alice", dep.ID, ledger.UpdateInput{
		Amount: dec("100"), Currency: "EUR", Direction: "Deposit", Date: dep.Date,
	})
	require.NoError(t, err)
	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("-80")))
	assert.True(t, balanceOf(t, svc, "alice", "EUR").Equal(dec("100")))
}

func TestUpdate_UnknownID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Update(context.Background(), "alice", "nope", ledger.UpdateInput{
		Amount: dec("10"), Currency: "USD", Direction: "Deposit",
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

func TestUpdate_ForeignOwner_IndistinguishableFromMissing(t *testing.T) {
	// GIVEN: A transaction owned by alice
	// WHEN: bob updates it by ID
	// THEN: NotFound, exactly as if the row did not exist

	svc, _ := newTestService(t)
	ctx := context.Background()

	tx, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)

	_, err = svc.Update(ctx, "bob", tx.ID, ledger.UpdateInput{
		Amount: dec("10"), Currency: "USD", Direction: "Deposit", Date: tx.Date,
	})
	assert.ErrorIs(t, err, ledger.ErrNotFound)
	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("100")))
}

// =============================================================================
// DELETE
// =============================================================================

func TestDelete_Withdrawal_RestoresBalance(t *testing.T) {
	// GIVEN: Deposit 100, withdraw 30 (balance 70)
	// WHEN: Deleting the withdrawal
	// THEN: Balance returns to 100 and is reported by the call

	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)
	wd, err := svc.Create(ctx, withdraw("alice", "30", "USD"))
	require.NoError(t, err)

	total, err := svc.Delete(ctx, "alice", wd.ID)
	require.NoError(t, err)
	assert.True(t, total.Equal(dec("100")))

	txs, err := svc.Transactions(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, txs, 1)
}

func TestDelete_Deposit_WouldGoNegative_Rejected(t *testing.T) {
	// GIVEN: Deposit 100, withdraw 80 (balance 20)
	// WHEN: Deleting the deposit
	// THEN: NegativeBalance (reversal would reach -80); nothing changes

	svc, _ := newTestService(t)
	ctx := context.Background()

	dep, err := svc.Create(ctx, deposit("alice", "100", "USD"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, withdraw("alice", "80", "USD"))
	require.NoError(t, err)

	_, err = svc.Delete(ctx, "alice", dep.ID)
	require.Error(t, err)
	assert.ErrorIs(t, err, ledger.ErrNegativeBalance)

	var nbe *ledger.NegativeBalanceError
	require.ErrorAs(t, err, &nbe)
	assert.True(t, nbe.WouldBe.Equal(dec("-80")))

	assert.True(t, balanceOf(t, svc, "alice", "USD").Equal(dec("20")))
	txs, err := svc.Transactions(ctx, "alice", "")
	require.NoError(t, err)
	assert.Len(t, txs, 2)
}

func TestDelete_UnknownID_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.Delete(context.Background(), "alice", "nope")
	assert.ErrorIs(t, err, ledger.ErrNotFound)
}

// =============================================================================
// READS
// =============================================================================

func TestTransactions_NewestFirst_CurrencyFilter(t *testing.T) {
	// GIVEN: Transactions on different dates and currencies
	// WHEN: Listing with and without a currency filter
	// THEN: Newest date first; the filter scopes to one currency

	svc, _ := newTestService(t)
	ctx := context.Background()

	older := ledger.NewDate(2025, time.January, 10)
	newer := ledger.NewDate(2025, time.May, 1)

	in := deposit("alice", "10", "USD")
	in.Date = &older
	_, err := svc.Create(ctx, in)
	require.NoError(t, err)

	in = deposit("alice", "20", "USD")
	in.Date = &newer
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	in = deposit("alice", "30", "EUR")
	_, err = svc.Create(ctx, in)
	require.NoError(t, err)

	all, err := svc.Transactions(ctx, "alice", "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	for i := 1; i < len(all); i++ {
		assert.False(t, all[i-1].Date.Before(all[i].Date))
	}

	usd, err := svc.Transactions(ctx, "alice", "USD")
	require.NoError(t, err)
	assert.Len(t, usd, 2)
}

func TestBalances_PerCurrency(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Create(ctx, deposit("alice", "10", "USD"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, deposit("alice", "20", "EUR"))
	require.NoError(t, err)
	_, err = svc.Create(ctx, deposit("bob", "99", "USD"))
	require.NoError(t, err)

	balances, err := svc.Balances(ctx, "alice")
	require.NoError(t, err)
	assert.Len(t, balances, 2)
}
