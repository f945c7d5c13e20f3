package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/dvloznov/smart-ledger/internal/api/middleware"
	"github.com/dvloznov/smart-ledger/internal/domain"
	"github.com/dvloznov/smart-ledger/internal/ledger"
)

// AccountsHandler handles account endpoints.
type AccountsHandler struct {
	store AccountStore
	log   zerolog.Logger
}

// NewAccountsHandler creates a new accounts handler.
func NewAccountsHandler(store AccountStore, log zerolog.Logger) *AccountsHandler {
	return &AccountsHandler{store: store, log: log}
}

// ListAccounts handles GET /api/accounts
func (h *AccountsHandler) ListAccounts(w http.ResponseWriter, r *http.Request) {
	accounts, err := h.store.List(r.Context(), middleware.UserIDFrom(r.Context()))
	if err != nil {
		writeDomainError(w, r, err, "Failed to list accounts")
		return
	}
	if accounts == nil {
		accounts = []domain.Account{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"accounts": accounts,
		"count":    len(accounts),
	})
}

// CreateAccount handles POST /api/accounts. The opening balance defaults to zero.
func (h *AccountsHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name    string          `json:"name"`
		Balance decimal.Decimal `json:"balance"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" {
		middleware.WriteError(w, http.StatusBadRequest, "name is required")
		return
	}

	now := time.Now().UTC()
	a := domain.Account{
		ID:        uuid.NewString(),
		Name:      req.Name,
		Balance:   req.Balance,
		UserID:    middleware.UserIDFrom(r.Context()),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := h.store.Create(r.Context(), a); err != nil {
		writeDomainError(w, r, err, "Failed to create account")
		return
	}

	h.log.Info().Str("account_id", a.ID).Str("user_id", a.UserID).Msg("Account created")
	middleware.WriteJSON(w, http.StatusCreated, a)
}

// CategoriesHandler handles category endpoints.
type CategoriesHandler struct {
	store CategoryStore
	log   zerolog.Logger
}

// NewCategoriesHandler creates a new categories handler.
func NewCategoriesHandler(store CategoryStore, log zerolog.Logger) *CategoriesHandler {
	return &CategoriesHandler{store: store, log: log}
}

// ListCategories handles GET /api/categories?type=
func (h *CategoriesHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	typ := domain.CategoryType(r.URL.Query().Get("type"))
	if typ != "" && !typ.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "type must be EXPENSE, INCOME or BOTH")
		return
	}

	categories, err := h.store.FindAll(r.Context(), middleware.UserIDFrom(r.Context()), typ)
	if err != nil {
		writeDomainError(w, r, err, "Failed to list categories")
		return
	}
	if categories == nil {
		categories = []domain.Category{}
	}
	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"categories": categories,
		"count":      len(categories),
	})
}

// CreateCategory handles POST /api/categories
func (h *CategoriesHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string              `json:"name"`
		Type domain.CategoryType `json:"type"`
	}
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Name == "" || !req.Type.Valid() {
		middleware.WriteError(w, http.StatusBadRequest, "name and a valid type are required")
		return
	}

	c := domain.Category{
		ID:     uuid.NewString(),
		Name:   req.Name,
		Type:   req.Type,
		UserID: middleware.UserIDFrom(r.Context()),
	}
	if err := h.store.Create(r.Context(), c); err != nil {
		writeDomainError(w, r, err, "Failed to create category")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, c)
}

// TransactionsHandler handles ledger entry endpoints.
type TransactionsHandler struct {
	service LedgerService
	lister  TransactionLister
	log     zerolog.Logger
}

// NewTransactionsHandler creates a new transactions handler.
func NewTransactionsHandler(service LedgerService, lister TransactionLister, log zerolog.Logger) *TransactionsHandler {
	return &TransactionsHandler{service: service, lister: lister, log: log}
}

type createTransactionRequest struct {
	Amount               decimal.Decimal        `json:"amount"`
	Type                 domain.TransactionType `json:"type"`
	Description          string                 `json:"description"`
	Date                 string                 `json:"date"`
	IsPaid               bool                   `json:"isPaid"`
	AccountID            string                 `json:"accountId"`
	DestinationAccountID string                 `json:"destinationAccountId"`
	CategoryID           string                 `json:"categoryId"`
}

// patchTransactionRequest takes the date as YYYY-MM-DD; the outer Date
// shadows the embedded timestamp field when decoding.
type patchTransactionRequest struct {
	domain.TransactionPatch
	Date *string `json:"date,omitempty"`
}

// CreateTransaction handles POST /api/transactions
func (h *TransactionsHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	var req createTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	in := ledger.NewTransaction{
		Amount:               req.Amount,
		Type:                 req.Type,
		Description:          req.Description,
		IsPaid:               req.IsPaid,
		AccountID:            req.AccountID,
		DestinationAccountID: req.DestinationAccountID,
		CategoryID:           req.CategoryID,
	}
	if req.Date != "" {
		date, err := parseDate("date", req.Date)
		if err != nil {
			writeDomainError(w, r, err, "")
			return
		}
		in.Date = date
	}

	t, err := h.service.Create(r.Context(), middleware.UserIDFrom(r.Context()), in)
	if err != nil {
		writeDomainError(w, r, err, "Failed to create transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusCreated, t)
}

// UpdateTransaction handles PATCH /api/transactions/{id}
func (h *TransactionsHandler) UpdateTransaction(w http.ResponseWriter, r *http.Request) {
	var req patchTransactionRequest
	if !decodeJSON(w, r, &req) {
		return
	}

	patch := req.TransactionPatch
	if req.Date != nil {
		date, err := parseDate("date", *req.Date)
		if err != nil {
			writeDomainError(w, r, err, "")
			return
		}
		patch.Date = &date
	}

	t, err := h.service.Update(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("id"), patch)
	if err != nil {
		writeDomainError(w, r, err, "Failed to update transaction")
		return
	}
	middleware.WriteJSON(w, http.StatusOK, t)
}

// DeleteTransaction handles DELETE /api/transactions/{id}
func (h *TransactionsHandler) DeleteTransaction(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), middleware.UserIDFrom(r.Context()), r.PathValue("id")); err != nil {
		writeDomainError(w, r, err, "Failed to delete transaction")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListTransactions handles GET /api/transactions?start=&end=
// The range defaults to the last year.
func (h *TransactionsHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	end := time.Now().UTC()
	start := end.AddDate(-1, 0, 0)

	var err error
	if s := query.Get("start"); s != "" {
		if start, err = parseDate("start", s); err != nil {
			writeDomainError(w, r, err, "")
			return
		}
	}
	if s := query.Get("end"); s != "" {
		if end, err = parseDate("end", s); err != nil {
			writeDomainError(w, r, err, "")
			return
		}
	}

	transactions, err := h.lister.List(r.Context(), middleware.UserIDFrom(r.Context()), start, end)
	if err != nil {
		writeDomainError(w, r, err, "Failed to query transactions")
		return
	}

	// Return array directly for frontend compatibility
	if transactions == nil {
		transactions = []domain.Transaction{}
	}
	middleware.WriteJSON(w, http.StatusOK, transactions)
}
