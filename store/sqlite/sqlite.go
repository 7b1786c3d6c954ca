/*
Package sqlite provides the SQLite-backed implementation of the storage
interfaces.

PURPOSE:
  Implements ledger.Store and ledger.TxStore on SQLite. In production the
  same patterns apply to PostgreSQL - only minor SQL dialect differences.

KEY TABLES:
  transactions:           One row per ledger entry
  balances:               Running total per (owner, currency)
  wishlist_items:         Planned purchases, optionally linked to a transaction
  scheduled_transactions: Recurring templates with a replay watermark

ENCODING:
  Decimals are stored as strings (never floats), dates as YYYY-MM-DD,
  timestamps as RFC3339.

CONCURRENCY:
  A store-level mutex serializes writers; WithTx holds it for the whole
  unit, which makes GetBalanceForUpdate a plain read under the lock.
  SQLite is opened with WAL for better read concurrency.

TRANSACTIONS:
  WithTx opens a database transaction and hands fn a view whose reads AND
  writes all go through the open *sql.Tx, so a balance read inside the
  unit observes the unit's own uncommitted writes.

MIGRATION:
  Schema is auto-migrated on New(). For production, use a proper
  migration tool (golang-migrate, goose) with versioned migrations.

SEE ALSO:
  - ledger/store.go: Interface definitions
  - store/memory: In-memory implementation for unit tests
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/pocketledger/ledger-core/ledger"
)

// Store implements ledger.TxStore using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store at the given path. Use ":memory:" for an
// in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		date TEXT NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		direction TEXT NOT NULL,
		details TEXT,
		category TEXT,
		created_at TEXT NOT NULL
	);

	-- Hot path: owner-scoped listings, newest first
	CREATE INDEX IF NOT EXISTS idx_transactions_owner_date
		ON transactions(owner_id, date DESC, created_at DESC);
	CREATE INDEX IF NOT EXISTS idx_transactions_owner_currency
		ON transactions(owner_id, currency);

	CREATE TABLE IF NOT EXISTS balances (
		owner_id TEXT NOT NULL,
		currency TEXT NOT NULL,
		total TEXT NOT NULL,
		updated_at TEXT NOT NULL,
		PRIMARY KEY (owner_id, currency)
	);

	CREATE TABLE IF NOT EXISTS wishlist_items (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		price TEXT NOT NULL,
		currency TEXT NOT NULL,
		details TEXT,
		link TEXT,
		year INTEGER NOT NULL,
		purchased BOOLEAN NOT NULL DEFAULT FALSE,
		transaction_id TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_wishlist_owner
		ON wishlist_items(owner_id);

	CREATE TABLE IF NOT EXISTS scheduled_transactions (
		id TEXT PRIMARY KEY,
		owner_id TEXT NOT NULL,
		day_of_month INTEGER NOT NULL,
		amount TEXT NOT NULL,
		currency TEXT NOT NULL,
		direction TEXT NOT NULL,
		details TEXT,
		category TEXT,
		active BOOLEAN NOT NULL DEFAULT TRUE,
		last_applied TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_scheduled_owner_active
		ON scheduled_transactions(owner_id, active);
	`

	_, err := s.db.Exec(schema)
	return err
}

// querier is the subset of *sql.DB and *sql.Tx the row helpers need. The
// transactional view passes its open *sql.Tx here so reads inside a unit
// observe the unit's own writes.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

const txColumns = "id, owner_id, date, amount, currency, direction, details, category, created_at"

func (s *Store) CreateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createTransaction(ctx, s.db, tx)
}

func createTransaction(ctx context.Context, q querier, tx ledger.Transaction) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO transactions (`+txColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		tx.ID, tx.Owner, tx.Date.String(),
		tx.Amount.Value.String(), tx.Amount.Currency, tx.Direction,
		tx.Details, tx.Category,
		tx.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert transaction: %w", err)
	}
	return nil
}

func (s *Store) GetTransaction(ctx context.Context, owner ledger.OwnerID, id ledger.TransactionID) (*ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTransaction(ctx, s.db, owner, id)
}

func getTransaction(ctx context.Context, q querier, owner ledger.OwnerID, id ledger.TransactionID) (*ledger.Transaction, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+txColumns+` FROM transactions
		WHERE owner_id = ? AND id = ?`,
		owner, id,
	)
	tx, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return tx, nil
}

func (s *Store) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTransaction(ctx, s.db, tx)
}

func updateTransaction(ctx context.Context, q querier, tx ledger.Transaction) error {
	res, err := q.ExecContext(ctx, `
		UPDATE transactions
		SET date = ?, amount = ?, currency = ?, direction = ?, details = ?, category = ?
		WHERE owner_id = ? AND id = ?`,
		tx.Date.String(), tx.Amount.Value.String(), tx.Amount.Currency,
		tx.Direction, tx.Details, tx.Category,
		tx.Owner, tx.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteTransaction(ctx context.Context, owner ledger.OwnerID, id ledger.TransactionID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTransaction(ctx, s.db, owner, id)
}

func deleteTransaction(ctx context.Context, q querier, owner ledger.OwnerID, id ledger.TransactionID) error {
	res, err := q.ExecContext(ctx,
		"DELETE FROM transactions WHERE owner_id = ? AND id = ?", owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListTransactions(ctx context.Context, owner ledger.OwnerID, currency string) ([]ledger.Transaction, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTransactions(ctx, s.db, owner, currency)
}

func listTransactions(ctx context.Context, q querier, owner ledger.OwnerID, currency string) ([]ledger.Transaction, error) {
	query := `
		SELECT ` + txColumns + ` FROM transactions
		WHERE owner_id = ?
		ORDER BY date DESC, created_at DESC`
	args := []any{owner}
	if currency != "" {
		query = `
		SELECT ` + txColumns + ` FROM transactions
		WHERE owner_id = ? AND currency = ?
		ORDER BY date DESC, created_at DESC`
		args = append(args, currency)
	}

	rows, err := q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query transactions: %w", err)
	}
	defer rows.Close()

	var txs []ledger.Transaction
	for rows.Next() {
		tx, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txs = append(txs, *tx)
	}
	return txs, rows.Err()
}

// scanner covers *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanTransaction(row scanner) (*ledger.Transaction, error) {
	var (
		tx                ledger.Transaction
		date, value, cur  string
		details, category sql.NullString
		createdAt         string
	)
	err := row.Scan(&tx.ID, &tx.Owner, &date, &value, &cur, &tx.Direction,
		&details, &category, &createdAt)
	if err != nil {
		return nil, err
	}

	d, err := ledger.ParseDate(date)
	if err != nil {
		return nil, fmt.Errorf("failed to parse transaction date %q: %w", date, err)
	}
	tx.Date = d
	tx.Amount = ledger.Amount{Value: ledger.MustParseDecimal(value), Currency: cur}
	tx.Details = details.String
	tx.Category = category.String
	tx.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &tx, nil
}

// =============================================================================
// BALANCES
// =============================================================================

func (s *Store) GetBalance(ctx context.Context, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, owner, currency)
}

// GetBalanceForUpdate is GetBalance under the store mutex; the mutex held
// by WithTx serializes the read-modify-write.
func (s *Store) GetBalanceForUpdate(ctx context.Context, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getBalance(ctx, s.db, owner, currency)
}

func getBalance(ctx context.Context, q querier, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	var (
		b         ledger.Balance
		total     string
		updatedAt string
	)
	err := q.QueryRowContext(ctx, `
		SELECT owner_id, currency, total, updated_at FROM balances
		WHERE owner_id = ? AND currency = ?`,
		owner, currency,
	).Scan(&b.Owner, &b.Currency, &total, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	b.Total = ledger.MustParseDecimal(total)
	b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
	return &b, nil
}

func (s *Store) SaveBalance(ctx context.Context, b ledger.Balance) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return saveBalance(ctx, s.db, b)
}

func saveBalance(ctx context.Context, q querier, b ledger.Balance) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO balances (owner_id, currency, total, updated_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(owner_id, currency) DO UPDATE SET
			total = excluded.total,
			updated_at = excluded.updated_at`,
		b.Owner, b.Currency, b.Total.String(),
		b.UpdatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to save balance: %w", err)
	}
	return nil
}

func (s *Store) ListBalances(ctx context.Context, owner ledger.OwnerID) ([]ledger.Balance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listBalances(ctx, s.db, owner)
}

func listBalances(ctx context.Context, q querier, owner ledger.OwnerID) ([]ledger.Balance, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT owner_id, currency, total, updated_at FROM balances
		WHERE owner_id = ?
		ORDER BY currency ASC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query balances: %w", err)
	}
	defer rows.Close()

	var balances []ledger.Balance
	for rows.Next() {
		var (
			b         ledger.Balance
			total     string
			updatedAt string
		)
		if err := rows.Scan(&b.Owner, &b.Currency, &total, &updatedAt); err != nil {
			return nil, err
		}
		b.Total = ledger.MustParseDecimal(total)
		b.UpdatedAt, _ = time.Parse(time.RFC3339, updatedAt)
		balances = append(balances, b)
	}
	return balances, rows.Err()
}

// =============================================================================
// WISHLIST
// =============================================================================

const wishColumns = "id, owner_id, price, currency, details, link, year, purchased, transaction_id, created_at"

func (s *Store) CreateWish(ctx context.Context, w ledger.WishlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createWish(ctx, s.db, w)
}

func createWish(ctx context.Context, q querier, w ledger.WishlistItem) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO wishlist_items (`+wishColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		w.ID, w.Owner, w.Price.Value.String(), w.Price.Currency,
		w.Details, w.Link, w.Year, w.Purchased,
		nullTransactionID(w.TransactionID),
		w.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert wish: %w", err)
	}
	return nil
}

func (s *Store) GetWish(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) (*ledger.WishlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getWish(ctx, s.db, owner, id)
}

func getWish(ctx context.Context, q querier, owner ledger.OwnerID, id ledger.WishID) (*ledger.WishlistItem, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+wishColumns+` FROM wishlist_items
		WHERE owner_id = ? AND id = ?`,
		owner, id,
	)
	w, err := scanWish(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return w, nil
}

func (s *Store) UpdateWish(ctx context.Context, w ledger.WishlistItem) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateWish(ctx, s.db, w)
}

func updateWish(ctx context.Context, q querier, w ledger.WishlistItem) error {
	res, err := q.ExecContext(ctx, `
		UPDATE wishlist_items
		SET price = ?, currency = ?, details = ?, link = ?, year = ?,
		    purchased = ?, transaction_id = ?
		WHERE owner_id = ? AND id = ?`,
		w.Price.Value.String(), w.Price.Currency, w.Details, w.Link, w.Year,
		w.Purchased, nullTransactionID(w.TransactionID),
		w.Owner, w.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update wish: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteWish(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteWish(ctx, s.db, owner, id)
}

func deleteWish(ctx context.Context, q querier, owner ledger.OwnerID, id ledger.WishID) error {
	res, err := q.ExecContext(ctx,
		"DELETE FROM wishlist_items WHERE owner_id = ? AND id = ?", owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete wish: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListWishes(ctx context.Context, owner ledger.OwnerID) ([]ledger.WishlistItem, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listWishes(ctx, s.db, owner)
}

func listWishes(ctx context.Context, q querier, owner ledger.OwnerID) ([]ledger.WishlistItem, error) {
	rows, err := q.QueryContext(ctx, `
		SELECT `+wishColumns+` FROM wishlist_items
		WHERE owner_id = ?
		ORDER BY created_at DESC`,
		owner,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query wishes: %w", err)
	}
	defer rows.Close()

	var wishes []ledger.WishlistItem
	for rows.Next() {
		w, err := scanWish(rows)
		if err != nil {
			return nil, err
		}
		wishes = append(wishes, *w)
	}
	return wishes, rows.Err()
}

func scanWish(row scanner) (*ledger.WishlistItem, error) {
	var (
		w             ledger.WishlistItem
		price, cur    string
		details, link sql.NullString
		txID          sql.NullString
		createdAt     string
	)
	err := row.Scan(&w.ID, &w.Owner, &price, &cur, &details, &link,
		&w.Year, &w.Purchased, &txID, &createdAt)
	if err != nil {
		return nil, err
	}

	w.Price = ledger.Amount{Value: ledger.MustParseDecimal(price), Currency: cur}
	w.Details = details.String
	w.Link = link.String
	if txID.Valid {
		id := ledger.TransactionID(txID.String)
		w.TransactionID = &id
	}
	w.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &w, nil
}

// =============================================================================
// SCHEDULED TEMPLATES
// =============================================================================

const templateColumns = "id, owner_id, day_of_month, amount, currency, direction, details, category, active, last_applied, created_at"

func (s *Store) CreateTemplate(ctx context.Context, t ledger.ScheduledTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return createTemplate(ctx, s.db, t)
}

func createTemplate(ctx context.Context, q querier, t ledger.ScheduledTemplate) error {
	_, err := q.ExecContext(ctx, `
		INSERT INTO scheduled_transactions (`+templateColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		t.ID, t.Owner, t.DayOfMonth,
		t.Amount.Value.String(), t.Amount.Currency, t.Direction,
		t.Details, t.Category, t.Active, nullDate(t.LastApplied),
		t.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("failed to insert template: %w", err)
	}
	return nil
}

func (s *Store) GetTemplate(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID) (*ledger.ScheduledTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return getTemplate(ctx, s.db, owner, id)
}

func getTemplate(ctx context.Context, q querier, owner ledger.OwnerID, id ledger.TemplateID) (*ledger.ScheduledTemplate, error) {
	row := q.QueryRowContext(ctx, `
		SELECT `+templateColumns+` FROM scheduled_transactions
		WHERE owner_id = ? AND id = ?`,
		owner, id,
	)
	t, err := scanTemplate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Store) UpdateTemplate(ctx context.Context, t ledger.ScheduledTemplate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return updateTemplate(ctx, s.db, t)
}

func updateTemplate(ctx context.Context, q querier, t ledger.ScheduledTemplate) error {
	res, err := q.ExecContext(ctx, `
		UPDATE scheduled_transactions
		SET day_of_month = ?, amount = ?, currency = ?, direction = ?,
		    details = ?, category = ?, active = ?, last_applied = ?
		WHERE owner_id = ? AND id = ?`,
		t.DayOfMonth, t.Amount.Value.String(), t.Amount.Currency, t.Direction,
		t.Details, t.Category, t.Active, nullDate(t.LastApplied),
		t.Owner, t.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update template: %w", err)
	}
	return requireRow(res)
}

func (s *Store) DeleteTemplate(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return deleteTemplate(ctx, s.db, owner, id)
}

func deleteTemplate(ctx context.Context, q querier, owner ledger.OwnerID, id ledger.TemplateID) error {
	res, err := q.ExecContext(ctx,
		"DELETE FROM scheduled_transactions WHERE owner_id = ? AND id = ?", owner, id)
	if err != nil {
		return fmt.Errorf("failed to delete template: %w", err)
	}
	return requireRow(res)
}

func (s *Store) ListTemplates(ctx context.Context, owner ledger.OwnerID, activeOnly bool) ([]ledger.ScheduledTemplate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return listTemplates(ctx, s.db, owner, activeOnly)
}

func listTemplates(ctx context.Context, q querier, owner ledger.OwnerID, activeOnly bool) ([]ledger.ScheduledTemplate, error) {
	query := `
		SELECT ` + templateColumns + ` FROM scheduled_transactions
		WHERE owner_id = ?
		ORDER BY created_at ASC`
	if activeOnly {
		query = `
		SELECT ` + templateColumns + ` FROM scheduled_transactions
		WHERE owner_id = ? AND active = TRUE
		ORDER BY created_at ASC`
	}

	rows, err := q.QueryContext(ctx, query, owner)
	if err != nil {
		return nil, fmt.Errorf("failed to query templates: %w", err)
	}
	defer rows.Close()

	var templates []ledger.ScheduledTemplate
	for rows.Next() {
		t, err := scanTemplate(rows)
		if err != nil {
			return nil, err
		}
		templates = append(templates, *t)
	}
	return templates, rows.Err()
}

// ListTemplateOwners returns every owner with at least one active
// template. The background replay scheduler iterates this set.
func (s *Store) ListTemplateOwners(ctx context.Context) ([]ledger.OwnerID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT DISTINCT owner_id FROM scheduled_transactions
		WHERE active = TRUE
		ORDER BY owner_id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query template owners: %w", err)
	}
	defer rows.Close()

	var owners []ledger.OwnerID
	for rows.Next() {
		var owner ledger.OwnerID
		if err := rows.Scan(&owner); err != nil {
			return nil, err
		}
		owners = append(owners, owner)
	}
	return owners, rows.Err()
}

func scanTemplate(row scanner) (*ledger.ScheduledTemplate, error) {
	var (
		t                 ledger.ScheduledTemplate
		amount, cur       string
		details, category sql.NullString
		lastApplied       sql.NullString
		createdAt         string
	)
	err := row.Scan(&t.ID, &t.Owner, &t.DayOfMonth, &amount, &cur, &t.Direction,
		&details, &category, &t.Active, &lastApplied, &createdAt)
	if err != nil {
		return nil, err
	}

	t.Amount = ledger.Amount{Value: ledger.MustParseDecimal(amount), Currency: cur}
	t.Details = details.String
	t.Category = category.String
	if lastApplied.Valid {
		d, err := ledger.ParseDate(lastApplied.String)
		if err != nil {
			return nil, fmt.Errorf("failed to parse watermark %q: %w", lastApplied.String, err)
		}
		t.LastApplied = &d
	}
	t.CreatedAt, _ = time.Parse(time.RFC3339, createdAt)
	return &t, nil
}

// =============================================================================
// TRANSACTIONAL STORE (ledger.TxStore interface)
// =============================================================================

// WithTx executes fn within a database transaction. The store mutex is
// held for the whole unit, so the balance read-modify-write inside cannot
// interleave with another writer.
func (s *Store) WithTx(ctx context.Context, fn func(ledger.Store) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	if err := fn(&txStore{tx: sqlTx}); err != nil {
		return err
	}

	return sqlTx.Commit()
}

// txStore is the view handed to WithTx callbacks. Every method goes
// through the open *sql.Tx so reads observe the unit's own writes.
type txStore struct {
	tx *sql.Tx
}

func (ts *txStore) CreateTransaction(ctx context.Context, tx ledger.Transaction) error {
	return createTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) GetTransaction(ctx context.Context, owner ledger.OwnerID, id ledger.TransactionID) (*ledger.Transaction, error) {
	return getTransaction(ctx, ts.tx, owner, id)
}

func (ts *txStore) UpdateTransaction(ctx context.Context, tx ledger.Transaction) error {
	return updateTransaction(ctx, ts.tx, tx)
}

func (ts *txStore) DeleteTransaction(ctx context.Context, owner ledger.OwnerID, id ledger.TransactionID) error {
	return deleteTransaction(ctx, ts.tx, owner, id)
}

func (ts *txStore) ListTransactions(ctx context.Context, owner ledger.OwnerID, currency string) ([]ledger.Transaction, error) {
	return listTransactions(ctx, ts.tx, owner, currency)
}

func (ts *txStore) GetBalance(ctx context.Context, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	return getBalance(ctx, ts.tx, owner, currency)
}

func (ts *txStore) GetBalanceForUpdate(ctx context.Context, owner ledger.OwnerID, currency string) (*ledger.Balance, error) {
	return getBalance(ctx, ts.tx, owner, currency)
}

func (ts *txStore) SaveBalance(ctx context.Context, b ledger.Balance) error {
	return saveBalance(ctx, ts.tx, b)
}

func (ts *txStore) ListBalances(ctx context.Context, owner ledger.OwnerID) ([]ledger.Balance, error) {
	return listBalances(ctx, ts.tx, owner)
}

func (ts *txStore) CreateWish(ctx context.Context, w ledger.WishlistItem) error {
	return createWish(ctx, ts.tx, w)
}

func (ts *txStore) GetWish(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) (*ledger.WishlistItem, error) {
	return getWish(ctx, ts.tx, owner, id)
}

func (ts *txStore) UpdateWish(ctx context.Context, w ledger.WishlistItem) error {
	return updateWish(ctx, ts.tx, w)
}

func (ts *txStore) DeleteWish(ctx context.Context, owner ledger.OwnerID, id ledger.WishID) error {
	return deleteWish(ctx, ts.tx, owner, id)
}

func (ts *txStore) ListWishes(ctx context.Context, owner ledger.OwnerID) ([]ledger.WishlistItem, error) {
	return listWishes(ctx, ts.tx, owner)
}

func (ts *txStore) CreateTemplate(ctx context.Context, t ledger.ScheduledTemplate) error {
	return createTemplate(ctx, ts.tx, t)
}

func (ts *txStore) GetTemplate(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID) (*ledger.ScheduledTemplate, error) {
	return getTemplate(ctx, ts.tx, owner, id)
}

func (ts *txStore) UpdateTemplate(ctx context.Context, t ledger.ScheduledTemplate) error {
	return updateTemplate(ctx, ts.tx, t)
}

func (ts *txStore) DeleteTemplate(ctx context.Context, owner ledger.OwnerID, id ledger.TemplateID) error {
	return deleteTemplate(ctx, ts.tx, owner, id)
}

func (ts *txStore) ListTemplates(ctx context.Context, owner ledger.OwnerID, activeOnly bool) ([]ledger.ScheduledTemplate, error) {
	return listTemplates(ctx, ts.tx, owner, activeOnly)
}

// =============================================================================
// REPAIR
// =============================================================================

// RecomputeBalances rebuilds every balance of the owner from the signed
// sum of their transactions, in one database transaction. Offline repair
// for a database whose balances drifted (e.g. edited by another tool).
// Balances whose currency no longer has transactions are reset to zero,
// not deleted.
func (s *Store) RecomputeBalances(ctx context.Context, owner ledger.OwnerID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sqlTx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer sqlTx.Rollback()

	txs, err := listTransactions(ctx, sqlTx, owner, "")
	if err != nil {
		return err
	}
	totals := make(map[string]ledger.Amount)
	for _, tx := range txs {
		cur := tx.Amount.Currency
		sum, ok := totals[cur]
		if !ok {
			sum = ledger.Amount{Currency: cur}.Zero()
		}
		totals[cur] = sum.Add(tx.SignedDelta())
	}

	// Existing rows not covered by any transaction reset to zero.
	existing, err := listBalances(ctx, sqlTx, owner)
	if err != nil {
		return err
	}
	for _, b := range existing {
		if _, ok := totals[b.Currency]; !ok {
			totals[b.Currency] = ledger.Amount{Currency: b.Currency}.Zero()
		}
	}

	for cur, sum := range totals {
		b := ledger.Balance{Owner: owner, Currency: cur, Total: sum.Value, UpdatedAt: now}
		if err := saveBalance(ctx, sqlTx, b); err != nil {
			return err
		}
	}

	return sqlTx.Commit()
}

// =============================================================================
// UTILITIES
// =============================================================================

// Reset clears all data (for testing/demo).
func (s *Store) Reset(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tables := []string{"transactions", "balances", "wishlist_items", "scheduled_transactions"}
	for _, table := range tables {
		if _, err := s.db.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return err
		}
	}
	return nil
}

func requireRow(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ledger.ErrNotFound
	}
	return nil
}

func nullTransactionID(id *ledger.TransactionID) sql.NullString {
	if id == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: string(*id), Valid: true}
}

func nullDate(d *ledger.Date) sql.NullString {
	if d == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: d.String(), Valid: true}
}
