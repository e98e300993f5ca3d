package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/damon-houk/fintrack/internal/application/service"
	"github.com/damon-houk/fintrack/internal/domain/money"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// ConversionHandler handles HTTP requests for currency conversion
type ConversionHandler struct {
	converter *service.CurrencyConverter
	logger    logger.Logger
}

// NewConversionHandler creates a new conversion handler
func NewConversionHandler(converter *service.CurrencyConverter, log logger.Logger) *ConversionHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &ConversionHandler{
		converter: converter,
		logger:    log,
	}
}

// Convert converts a minor-unit amount. A missing rate is not an error: the
// response carries the unconverted amount with converted=false.
func (h *ConversionHandler) Convert(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	query := r.URL.Query()

	from := strings.TrimSpace(query.Get("from"))
	to := strings.TrimSpace(query.Get("to"))
	if from == "" || to == "" {
		sendErrorResponse(w, h.logger, "Missing currency parameter",
			"The 'from' and 'to' query parameters are required", http.StatusBadRequest, requestID)
		return
	}

	amount, err := strconv.ParseInt(query.Get("amount"), 10, 64)
	if err != nil {
		h.logger.Warn("Invalid amount", map[string]interface{}{
			"request_id": requestID,
			"amount":     query.Get("amount"),
		})
		sendErrorResponse(w, h.logger, "Invalid amount",
			"Amount must be an integer number of minor units (e.g., cents)", http.StatusBadRequest, requestID)
		return
	}

	conversion := h.converter.ConvertDetailed(r.Context(), amount, from, to)

	resultCurrency := from
	if conversion.Converted {
		resultCurrency = to
	}

	resp := ConversionResponse{
		Amount:        amount,
		From:          strings.ToUpper(from),
		To:            strings.ToUpper(to),
		Result:        conversion.Amount,
		Converted:     conversion.Converted,
		Display:       money.Format(amount, from),
		ResultDisplay: money.Format(conversion.Amount, resultCurrency),
	}
	if conversion.Converted {
		resp.Rate = conversion.Rate.String()
	}

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// RegisterRoutes registers the conversion handler routes
func (h *ConversionHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/convert", h.Convert).Methods("GET")

	h.logger.Info("Conversion routes registered", map[string]interface{}{
		"routes": []string{
			"GET /convert",
		},
	})
}
