package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/damon-houk/fintrack/internal/application/service"
	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// LedgerHandler handles HTTP requests for categories, transactions and the budget watchlist
type LedgerHandler struct {
	ledger    *service.LedgerService
	watchlist *service.WatchlistService
	logger    logger.Logger
	now       func() time.Time
}

// NewLedgerHandler creates a new ledger handler
func NewLedgerHandler(ledger *service.LedgerService, watchlist *service.WatchlistService, log logger.Logger) *LedgerHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &LedgerHandler{
		ledger:    ledger,
		watchlist: watchlist,
		logger:    log,
		now:       time.Now,
	}
}

// CreateCategory handles the creation of a new category
func (h *LedgerHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	userID := mux.Vars(r)["userID"]

	var req CreateCategoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	id, err := h.ledger.CreateCategory(r.Context(), &entity.Category{
		UserID:        userID,
		Name:          req.Name,
		Type:          entity.CategoryType(req.Type),
		MonthlyBudget: req.MonthlyBudget,
		Color:         req.Color,
		Icon:          req.Icon,
	})
	if err != nil {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusCreated, CreatedResponse{ID: id})
}

// CreateTransaction handles the creation of a new transaction
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	userID := mux.Vars(r)["userID"]

	var req CreateTransactionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Warn("Invalid request body", map[string]interface{}{
			"request_id": requestID,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid request body",
			"The request body could not be parsed as valid JSON", http.StatusBadRequest, requestID)
		return
	}

	date, err := time.Parse(dateLayout, req.Date)
	if err != nil {
		h.logger.Warn("Invalid date format", map[string]interface{}{
			"request_id": requestID,
			"date":       req.Date,
			"error":      err.Error(),
		})
		sendErrorResponse(w, h.logger, "Invalid date format",
			"Date must be in YYYY-MM-DD format", http.StatusBadRequest, requestID)
		return
	}

	if date.After(h.now()) {
		sendErrorResponse(w, h.logger, "Future date not allowed",
			"Transaction date cannot be in the future", http.StatusBadRequest, requestID)
		return
	}

	id, err := h.ledger.CreateTransaction(r.Context(), &entity.Transaction{
		UserID:      userID,
		CategoryID:  req.CategoryID,
		Amount:      req.Amount,
		Type:        entity.TransactionType(req.Type),
		Date:        date,
		Description: req.Description,
	})
	if err != nil {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusCreated, CreatedResponse{ID: id})
}

// ListTransactions returns the user's transactions of one month
func (h *LedgerHandler) ListTransactions(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	userID := mux.Vars(r)["userID"]

	month, ok := h.parseMonth(w, r, requestID)
	if !ok {
		return
	}
	start, end := service.MonthWindow(month)

	transactions, err := h.ledger.ListTransactions(r.Context(), userID, start, end)
	if err != nil {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	resp := make([]TransactionResponse, 0, len(transactions))
	for _, tx := range transactions {
		resp = append(resp, TransactionResponse{
			ID:          tx.ID,
			CategoryID:  tx.CategoryID,
			Amount:      tx.Amount,
			Type:        string(tx.Type),
			Date:        tx.Date.Format(dateLayout),
			Description: tx.Description,
		})
	}

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// GetWatchlist returns the categories at or over 80% of their monthly budget
func (h *LedgerHandler) GetWatchlist(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	userID := mux.Vars(r)["userID"]

	month, ok := h.parseMonth(w, r, requestID)
	if !ok {
		return
	}

	items, err := h.watchlist.Watchlist(r.Context(), userID, month)
	if err != nil {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	sendJSON(w, h.logger, http.StatusOK, WatchlistResponse{
		UserID: userID,
		Month:  month.Format("2006-01"),
		Items:  items,
	})
}

// parseMonth reads ?month=YYYY-MM, defaulting to the current month
func (h *LedgerHandler) parseMonth(w http.ResponseWriter, r *http.Request, requestID string) (time.Time, bool) {
	raw := r.URL.Query().Get("month")
	if raw == "" {
		return h.now().UTC(), true
	}

	month, err := time.Parse("2006-01", raw)
	if err != nil {
		sendErrorResponse(w, h.logger, "Invalid month format",
			"Month must be in YYYY-MM format", http.StatusBadRequest, requestID)
		return time.Time{}, false
	}
	return month, true
}

// RegisterRoutes registers the ledger handler routes
func (h *LedgerHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/users/{userID}/categories", h.CreateCategory).Methods("POST")
	router.HandleFunc("/users/{userID}/transactions", h.CreateTransaction).Methods("POST")
	router.HandleFunc("/users/{userID}/transactions", h.ListTransactions).Methods("GET")
	router.HandleFunc("/users/{userID}/watchlist", h.GetWatchlist).Methods("GET")

	h.logger.Info("Ledger routes registered", map[string]interface{}{
		"routes": []string{
			"POST /users/{userID}/categories",
			"POST /users/{userID}/transactions",
			"GET /users/{userID}/transactions",
			"GET /users/{userID}/watchlist",
		},
	})
}
