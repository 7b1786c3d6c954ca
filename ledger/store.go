/*
store.go - Persistence interfaces for the ledger core

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite, PostgreSQL, or in-memory
  storage; the core never touches SQL directly.

KEY INTERFACES:
  Store:   Owner-scoped CRUD for transactions, balances, wishes, templates
  TxStore: Store plus WithTx for atomic multi-table writes

OWNER SCOPING:
  Every Get/Update/Delete takes the owner and matches on (owner, id).
  A row belonging to another owner is reported exactly like a missing row
  (nil, nil) so existence never leaks across users.

ATOMICITY:
  Every mutation that touches a Transaction and its Balance runs inside
  WithTx: both writes commit or neither does. GetBalanceForUpdate is the
  read half of the balance read-modify-write; implementations must
  serialize it against concurrent writers (row lock, SELECT FOR UPDATE,
  or a store-level mutex for SQLite).

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for unit tests

SEE ALSO:
  - mutator.go: The only caller of SaveBalance
  - store/sqlite/sqlite.go: Concrete implementation
*/
package ledger

import "context"

// =============================================================================
// STORE - Owner-scoped persistence
// =============================================================================

// Store handles persistence of ledger entities. Lookups return (nil, nil)
// when no row exists for the given owner.
type Store interface {
	// Transactions
	CreateTransaction(ctx context.Context, tx Transaction) error
	GetTransaction(ctx context.Context, owner OwnerID, id TransactionID) (*Transaction, error)
	UpdateTransaction(ctx context.Context, tx Transaction) error
	DeleteTransaction(ctx context.Context, owner OwnerID, id TransactionID) error
	// ListTransactions returns the owner's transactions, newest date first.
	// An empty currency matches all currencies.
	ListTransactions(ctx context.Context, owner OwnerID, currency string) ([]Transaction, error)

	// Balances
	GetBalance(ctx context.Context, owner OwnerID, currency string) (*Balance, error)
	// GetBalanceForUpdate reads the balance row for a read-modify-write.
	// Must only be called inside WithTx.
	GetBalanceForUpdate(ctx context.Context, owner OwnerID, currency string) (*Balance, error)
	SaveBalance(ctx context.Context, b Balance) error
	ListBalances(ctx context.Context, owner OwnerID) ([]Balance, error)

	// Wishlist
	CreateWish(ctx context.Context, w WishlistItem) error
	GetWish(ctx context.Context, owner OwnerID, id WishID) (*WishlistItem, error)
	UpdateWish(ctx context.Context, w WishlistItem) error
	DeleteWish(ctx context.Context, owner OwnerID, id WishID) error
	ListWishes(ctx context.Context, owner OwnerID) ([]WishlistItem, error)

	// Scheduled templates
	CreateTemplate(ctx context.Context, t ScheduledTemplate) error
	GetTemplate(ctx context.Context, owner OwnerID, id TemplateID) (*ScheduledTemplate, error)
	UpdateTemplate(ctx context.Context, t ScheduledTemplate) error
	DeleteTemplate(ctx context.Context, owner OwnerID, id TemplateID) error
	// ListTemplates returns all of the owner's templates; activeOnly
	// restricts to templates the replay engine should process.
	ListTemplates(ctx context.Context, owner OwnerID, activeOnly bool) ([]ScheduledTemplate, error)
}

// =============================================================================
// TRANSACTIONAL STORE - Atomic units
// =============================================================================

// TxStore wraps Store with transaction support.
//
// WithTx executes fn within one atomic unit: if fn returns an error the
// unit is rolled back, otherwise it is committed. A Transaction persisted
// without its Balance update (or vice versa) must be impossible.
type TxStore interface {
	Store

	WithTx(ctx context.Context, fn func(Store) error) error
}
