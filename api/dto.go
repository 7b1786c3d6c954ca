/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

AMOUNTS:
  Amounts cross the wire as decimal strings, never floats. Parsing
  failures surface as the same validation error as a non-positive amount.

SANITIZATION:
  Free-text fields (details, category, link) are run through a bluemonday
  strict policy before they reach the core, so stored values carry no
  markup.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/microcosm-cc/bluemonday"
	"github.com/shopspring/decimal"

	"github.com/pocketledger/ledger-core/ledger"
)

var sanitizer = bluemonday.StrictPolicy()

func sanitize(s string) string {
	return sanitizer.Sanitize(s)
}

// parseAmount parses a wire amount. An unparseable string maps to the
// invalid-amount validation error rather than a generic 400.
func parseAmount(s string) (decimal.Decimal, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ledger.ErrInvalidAmount
	}
	return d, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// TransactionDTO represents a transaction in API responses.
type TransactionDTO struct {
	ID        string `json:"id"`
	Date      string `json:"date"`
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Direction string `json:"direction"`
	Details   string `json:"details,omitempty"`
	Category  string `json:"category,omitempty"`
	CreatedAt string `json:"created_at,omitempty"`
}

func toTransactionDTO(tx ledger.Transaction) TransactionDTO {
	return TransactionDTO{
		ID:        string(tx.ID),
		Date:      tx.Date.String(),
		Amount:    tx.Amount.Value.String(),
		Currency:  tx.Amount.Currency,
		Direction: string(tx.Direction),
		Details:   tx.Details,
		Category:  tx.Category,
		CreatedAt: tx.CreatedAt.Format(time.RFC3339),
	}
}

// TransactionRequest is the body for creating or replacing a transaction.
type TransactionRequest struct {
	Amount    string `json:"amount"`
	Currency  string `json:"currency"`
	Direction string `json:"direction"`
	Details   string `json:"details"`
	Category  string `json:"category"`
	Date      string `json:"date"` // YYYY-MM-DD, optional on create
}

// =============================================================================
// BALANCES
// =============================================================================

// BalanceDTO represents one per-currency balance.
type BalanceDTO struct {
	Currency  string `json:"currency"`
	Total     string `json:"total"`
	UpdatedAt string `json:"updated_at,omitempty"`
}

func toBalanceDTOs(balances []ledger.Balance) []BalanceDTO {
	dtos := make([]BalanceDTO, len(balances))
	for i, b := range balances {
		dtos[i] = BalanceDTO{
			Currency:  b.Currency,
			Total:     b.Total.String(),
			UpdatedAt: b.UpdatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

// DeletionDTO is the response to a transaction deletion.
type DeletionDTO struct {
	Balance string `json:"balance"`
}

// =============================================================================
// WISHLIST
// =============================================================================

// WishDTO represents a wishlist item.
type WishDTO struct {
	ID            string  `json:"id"`
	Price         string  `json:"price"`
	Currency      string  `json:"currency"`
	Details       string  `json:"details,omitempty"`
	Link          string  `json:"link,omitempty"`
	Year          int     `json:"year"`
	Purchased     bool    `json:"purchased"`
	TransactionID *string `json:"transaction_id,omitempty"`
	CreatedAt     string  `json:"created_at,omitempty"`
}

func toWishDTO(w ledger.WishlistItem) WishDTO {
	dto := WishDTO{
		ID:        string(w.ID),
		Price:     w.Price.Value.String(),
		Currency:  w.Price.Currency,
		Details:   w.Details,
		Link:      w.Link,
		Year:      w.Year,
		Purchased: w.Purchased,
		CreatedAt: w.CreatedAt.Format(time.RFC3339),
	}
	if w.TransactionID != nil {
		id := string(*w.TransactionID)
		dto.TransactionID = &id
	}
	return dto
}

// WishRequest is the body for creating or replacing a wishlist item.
type WishRequest struct {
	Price    string `json:"price"`
	Currency string `json:"currency"`
	Details  string `json:"details"`
	Link     string `json:"link"`
	Year     int    `json:"year"`
}

// =============================================================================
// SCHEDULED TEMPLATES
// =============================================================================

// TemplateDTO represents a scheduled-transaction template.
type TemplateDTO struct {
	ID          string  `json:"id"`
	DayOfMonth  int     `json:"day_of_month"`
	Amount      string  `json:"amount"`
	Currency    string  `json:"currency"`
	Direction   string  `json:"direction"`
	Details     string  `json:"details,omitempty"`
	Category    string  `json:"category,omitempty"`
	Active      bool    `json:"active"`
	LastApplied *string `json:"last_applied,omitempty"`
	CreatedAt   string  `json:"created_at,omitempty"`
}

func toTemplateDTO(t ledger.ScheduledTemplate) TemplateDTO {
	dto := TemplateDTO{
		ID:         string(t.ID),
		DayOfMonth: t.DayOfMonth,
		Amount:     t.Amount.Value.String(),
		Currency:   t.Amount.Currency,
		Direction:  string(t.Direction),
		Details:    t.Details,
		Category:   t.Category,
		Active:     t.Active,
		CreatedAt:  t.CreatedAt.Format(time.RFC3339),
	}
	if t.LastApplied != nil {
		s := t.LastApplied.String()
		dto.LastApplied = &s
	}
	return dto
}

// TemplateRequest is the body for creating or replacing a template.
type TemplateRequest struct {
	DayOfMonth int    `json:"day_of_month"`
	Amount     string `json:"amount"`
	Currency   string `json:"currency"`
	Direction  string `json:"direction"`
	Details    string `json:"details"`
	Category   string `json:"category"`
	Active     bool   `json:"active"`
}

// ReplayResultDTO is the response to POST /api/scheduled/apply.
type ReplayResultDTO struct {
	Applied int      `json:"applied"`
	Errors  []string `json:"errors"`
}
