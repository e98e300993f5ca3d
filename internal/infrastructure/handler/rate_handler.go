// Package handler exposes the application services over HTTP
package handler

import (
	"errors"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/gorilla/mux"

	"github.com/damon-houk/fintrack/internal/application/service"
	"github.com/damon-houk/fintrack/internal/domain/entity"
	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
	"github.com/damon-houk/fintrack/internal/infrastructure/middleware"
)

// RateHandler handles HTTP requests for exchange rates
type RateHandler struct {
	fetcher  *service.RateFetcher
	resolver *service.RateResolver
	logger   logger.Logger
}

// NewRateHandler creates a new rate handler
func NewRateHandler(fetcher *service.RateFetcher, resolver *service.RateResolver, log logger.Logger) *RateHandler {
	if log == nil {
		log = logger.GetDefaultLogger()
	}

	return &RateHandler{
		fetcher:  fetcher,
		resolver: resolver,
		logger:   log,
	}
}

// RefreshRates triggers a refresh of one base currency
func (h *RateHandler) RefreshRates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	base := mux.Vars(r)["base"]

	h.logger.Info("Handling refresh request", map[string]interface{}{
		"request_id": requestID,
		"base":       base,
	})

	result, err := h.fetcher.Refresh(r.Context(), base)
	if err != nil && !errors.Is(err, failure.ErrPartialRefresh) {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	status := http.StatusOK
	if err != nil {
		status = http.StatusMultiStatus
	}

	sendJSON(w, h.logger, status, toRefreshResponse(result))
}

// GetRate resolves the rate between two currencies
func (h *RateHandler) GetRate(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())
	vars := mux.Vars(r)

	res, err := h.resolver.ResolveDetailed(r.Context(), vars["from"], vars["to"])
	if err != nil {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	resp := RateResponse{
		From:     res.From,
		To:       res.To,
		Rate:     res.Rate.String(),
		Inverted: res.Inverted,
		Identity: res.Identity,
	}
	if !res.AsOf.IsZero() {
		resp.AsOf = res.AsOf.Format(time.RFC3339)
	}

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// ListRates returns the rates stored for one base currency
func (h *RateHandler) ListRates(w http.ResponseWriter, r *http.Request) {
	requestID := middleware.GetRequestID(r.Context())

	rates, err := h.resolver.StoredRates(r.Context(), mux.Vars(r)["base"])
	if err != nil {
		sendFailure(w, h.logger, err, requestID)
		return
	}

	resp := RateListResponse{Rates: make([]RateResponse, 0, len(rates))}
	for _, rate := range rates {
		resp.Base = rate.Base
		resp.Rates = append(resp.Rates, RateResponse{
			From: rate.Base,
			To:   rate.Target,
			Rate: rate.Rate.String(),
			AsOf: rate.AsOfDate.Format(time.RFC3339),
		})
	}
	if resp.Base == "" {
		resp.Base = strings.ToUpper(strings.TrimSpace(mux.Vars(r)["base"]))
	}

	sendJSON(w, h.logger, http.StatusOK, resp)
}

// RegisterRoutes registers the rate handler routes
func (h *RateHandler) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/rates/{base}/refresh", h.RefreshRates).Methods("POST")
	router.HandleFunc("/rates/{base}", h.ListRates).Methods("GET")
	router.HandleFunc("/rates/{from}/{to}", h.GetRate).Methods("GET")

	h.logger.Info("Rate routes registered", map[string]interface{}{
		"routes": []string{
			"POST /rates/{base}/refresh",
			"GET /rates/{base}",
			"GET /rates/{from}/{to}",
		},
	})
}

func toRefreshResponse(result *entity.RefreshResult) RefreshResponse {
	resp := RefreshResponse{
		Base:     result.Base,
		AsOf:     result.AsOf.Format(time.RFC3339),
		Upserted: result.Upserted,
		Skipped:  result.Skipped,
	}
	if resp.Upserted == nil {
		resp.Upserted = []string{}
	}
	for target := range result.Failed {
		resp.Failed = append(resp.Failed, target)
	}
	sort.Strings(resp.Failed)
	return resp
}
