/*
handlers.go - HTTP API handlers for the ledger core

PURPOSE:
  Exposes the ledger via a REST API. Handles HTTP request/response, JSON
  serialization, and delegates to the domain services.

ENDPOINTS:
  Transactions:
    GET    /api/transactions            List (optional ?currency= filter)
    POST   /api/transactions            Create
    PUT    /api/transactions/{id}       Replace fields
    DELETE /api/transactions/{id}       Delete, returns the new balance

  Balances:
    GET    /api/balances                Per-currency totals (cached)

  Wishlist:
    GET    /api/wishlist                List
    POST   /api/wishlist                Create
    PUT    /api/wishlist/{id}           Replace fields (pending only)
    DELETE /api/wishlist/{id}           Delete (pending only)
    POST   /api/wishlist/{id}/toggle    Fulfill / un-fulfill

  Scheduled:
    GET    /api/scheduled               List templates
    POST   /api/scheduled               Create template
    PUT    /api/scheduled/{id}          Replace fields
    DELETE /api/scheduled/{id}          Delete template
    POST   /api/scheduled/apply         Run the replay engine once

  Currencies:
    GET    /api/currencies              Supported codes

ERROR HANDLING:
  Domain errors map to HTTP status by errors.Is:
  - 400: Validation (amount, currency, direction, day of month)
  - 401: Missing owner context
  - 404: Entity absent for this owner
  - 409: Insufficient funds, negative balance, purchased-wish conflicts
  - 500: Everything else, with an opaque message

CACHING:
  GET /api/balances is served from a per-owner go-cache entry; every
  mutating handler flushes the owner's entry after a successful commit.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/patrickmn/go-cache"

	"github.com/pocketledger/ledger-core/currency"
	"github.com/pocketledger/ledger-core/ledger"
	"github.com/pocketledger/ledger-core/schedule"
	"github.com/pocketledger/ledger-core/wishlist"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Ledger     *ledger.Service
	Wishlist   *wishlist.Service
	Schedule   *schedule.Engine
	Currencies *currency.Registry
	Cache      *cache.Cache
	Log        *slog.Logger
}

// NewHandler wires a handler over the domain services.
func NewHandler(ledgerSvc *ledger.Service, wishSvc *wishlist.Service, engine *schedule.Engine, registry *currency.Registry, balanceCache *cache.Cache, log *slog.Logger) *Handler {
	if log == nil {
		log = slog.Default()
	}
	return &Handler{
		Ledger:     ledgerSvc,
		Wishlist:   wishSvc,
		Schedule:   engine,
		Currencies: registry,
		Cache:      balanceCache,
		Log:        log,
	}
}

func balanceCacheKey(owner ledger.OwnerID) string {
	return "balances:" + string(owner)
}

// flushBalances drops the owner's cached balance summary after a mutation.
func (h *Handler) flushBalances(owner ledger.OwnerID) {
	if h.Cache != nil {
		h.Cache.Delete(balanceCacheKey(owner))
	}
}

// =============================================================================
// TRANSACTION HANDLERS
// =============================================================================

// ListTransactions returns the owner's transactions, newest first.
func (h *Handler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	cur := strings.ToUpper(r.URL.Query().Get("currency"))

	txs, err := h.Ledger.Transactions(r.Context(), owner, cur)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]TransactionDTO, len(txs))
	for i, tx := range txs {
		dtos[i] = toTransactionDTO(tx)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTransaction records a new transaction and applies its delta.
func (h *Handler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.createInput(owner, req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	if req.Date != "" {
		date, err := ledger.ParseDate(req.Date)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
			return
		}
		in.Date = &date
	}

	tx, err := h.Ledger.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.flushBalances(owner)
	writeJSON(w, http.StatusCreated, toTransactionDTO(*tx))
}

// UpdateTransaction replaces a transaction's fields.
func (h *Handler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	var req TransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	amount, err := parseAmount(req.Amount)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	date, err := ledger.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)")
		return
	}

	tx, err := h.Ledger.Update(r.Context(), owner, id, ledger.UpdateInput{
		Amount:    amount,
		Currency:  strings.ToUpper(req.Currency),
		Direction: req.Direction,
		Category:  sanitize(req.Category),
		Details:   sanitize(req.Details),
		Date:      date,
	})
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.flushBalances(owner)
	writeJSON(w, http.StatusOK, toTransactionDTO(*tx))
}

// DeleteTransaction removes a transaction and returns the new balance of
// its currency.
func (h *Handler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.TransactionID(chi.URLParam(r, "id"))

	total, err := h.Ledger.Delete(r.Context(), owner, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.flushBalances(owner)
	writeJSON(w, http.StatusOK, DeletionDTO{Balance: total.String()})
}

// createInput converts a wire request into a CreateInput; the date is
// attached by the caller since only create treats it as optional.
func (h *Handler) createInput(owner ledger.OwnerID, req TransactionRequest) (ledger.CreateInput, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return ledger.CreateInput{}, err
	}

	return ledger.CreateInput{
		Owner:     owner,
		Amount:    amount,
		Currency:  strings.ToUpper(req.Currency),
		Direction: req.Direction,
		Category:  sanitize(req.Category),
		Details:   sanitize(req.Details),
	}, nil
}

// =============================================================================
// BALANCE HANDLERS
// =============================================================================

// GetBalances returns the owner's per-currency balances, cached per owner.
func (h *Handler) GetBalances(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	if h.Cache != nil {
		if cached, found := h.Cache.Get(balanceCacheKey(owner)); found {
			writeJSON(w, http.StatusOK, cached)
			return
		}
	}

	balances, err := h.Ledger.Balances(r.Context(), owner)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := toBalanceDTOs(balances)
	if h.Cache != nil {
		h.Cache.Set(balanceCacheKey(owner), dtos, cache.DefaultExpiration)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// WISHLIST HANDLERS
// =============================================================================

// ListWishes returns the owner's wishlist.
func (h *Handler) ListWishes(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	wishes, err := h.Wishlist.List(r.Context(), owner)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]WishDTO, len(wishes))
	for i, wish := range wishes {
		dtos[i] = toWishDTO(wish)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateWish adds a pending wishlist item.
func (h *Handler) CreateWish(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	var req WishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.wishInput(owner, req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	wish, err := h.Wishlist.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toWishDTO(*wish))
}

// UpdateWish replaces a pending item's fields.
func (h *Handler) UpdateWish(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.WishID(chi.URLParam(r, "id"))

	var req WishRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.wishInput(owner, req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	wish, err := h.Wishlist.Update(r.Context(), owner, id, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toWishDTO(*wish))
}

// DeleteWish removes a pending item.
func (h *Handler) DeleteWish(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.WishID(chi.URLParam(r, "id"))

	if err := h.Wishlist.Delete(r.Context(), owner, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ToggleWish fulfills or un-fulfills an item.
func (h *Handler) ToggleWish(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.WishID(chi.URLParam(r, "id"))

	wish, err := h.Wishlist.ToggleStatus(r.Context(), owner, id)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	h.flushBalances(owner)
	writeJSON(w, http.StatusOK, toWishDTO(*wish))
}

func (h *Handler) wishInput(owner ledger.OwnerID, req WishRequest) (wishlist.CreateInput, error) {
	price, err := parseAmount(req.Price)
	if err != nil {
		return wishlist.CreateInput{}, err
	}
	return wishlist.CreateInput{
		Owner:    owner,
		Price:    price,
		Currency: strings.ToUpper(req.Currency),
		Details:  sanitize(req.Details),
		Link:     sanitize(req.Link),
		Year:     req.Year,
	}, nil
}

// =============================================================================
// SCHEDULED TEMPLATE HANDLERS
// =============================================================================

// ListTemplates returns the owner's templates.
func (h *Handler) ListTemplates(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	templates, err := h.Schedule.List(r.Context(), owner)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	dtos := make([]TemplateDTO, len(templates))
	for i, t := range templates {
		dtos[i] = toTemplateDTO(t)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTemplate adds a recurring template.
func (h *Handler) CreateTemplate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.templateInput(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tpl, err := h.Schedule.Create(r.Context(), owner, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toTemplateDTO(*tpl))
}

// UpdateTemplate replaces a template's fields.
func (h *Handler) UpdateTemplate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.TemplateID(chi.URLParam(r, "id"))

	var req TemplateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	in, err := h.templateInput(req)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}

	tpl, err := h.Schedule.Update(r.Context(), owner, id, in)
	if err != nil {
		h.writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toTemplateDTO(*tpl))
}

// DeleteTemplate removes a template.
func (h *Handler) DeleteTemplate(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)
	id := ledger.TemplateID(chi.URLParam(r, "id"))

	if err := h.Schedule.Delete(r.Context(), owner, id); err != nil {
		h.writeDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyTemplates runs the replay engine once for the owner.
func (h *Handler) ApplyTemplates(w http.ResponseWriter, r *http.Request) {
	owner := ownerFrom(r)

	result := h.Schedule.ApplyAll(r.Context(), owner)
	if result.Applied > 0 {
		h.flushBalances(owner)
	}
	writeJSON(w, http.StatusOK, ReplayResultDTO{Applied: result.Applied, Errors: result.Errors})
}

func (h *Handler) templateInput(req TemplateRequest) (schedule.TemplateInput, error) {
	amount, err := parseAmount(req.Amount)
	if err != nil {
		return schedule.TemplateInput{}, err
	}
	return schedule.TemplateInput{
		DayOfMonth: req.DayOfMonth,
		Amount:     amount,
		Currency:   strings.ToUpper(req.Currency),
		Direction:  req.Direction,
		Details:    sanitize(req.Details),
		Category:   sanitize(req.Category),
		Active:     req.Active,
	}, nil
}

// =============================================================================
// CURRENCY HANDLERS
// =============================================================================

// ListCurrencies returns the supported currency codes.
func (h *Handler) ListCurrencies(w http.ResponseWriter, r *http.Request) {
	codes := h.Currencies.Codes()
	writeJSON(w, http.StatusOK, map[string][]string{"currencies": codes})
}

// =============================================================================
// ERROR MAPPING AND RESPONSE HELPERS
// =============================================================================

// writeDomainError maps a domain error to an HTTP status. Unexpected
// errors are logged with detail and surfaced opaquely.
func (h *Handler) writeDomainError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		h.Log.Error("request failed", "error", err)
		writeError(w, status, "Unexpected server error")
		return
	}
	writeError(w, status, err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, ledger.ErrAuthenticationRequired):
		return http.StatusUnauthorized
	case ledger.IsNotFound(err):
		return http.StatusNotFound
	case errors.Is(err, ledger.ErrInsufficientFunds),
		errors.Is(err, ledger.ErrNegativeBalance),
		errors.Is(err, wishlist.ErrWishPurchased):
		return http.StatusConflict
	case errors.Is(err, ledger.ErrInvalidAmount),
		errors.Is(err, ledger.ErrUnsupportedCurrency),
		errors.Is(err, ledger.ErrInvalidDirection),
		errors.Is(err, schedule.ErrInvalidDay):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
