package handler

import (
	"encoding/json"
	"net/http"

	"github.com/damon-houk/fintrack/internal/domain/failure"
	"github.com/damon-houk/fintrack/internal/infrastructure/logger"
)

// dateLayout is the wire format of transaction dates
const dateLayout = "2006-01-02"

// errorStatus maps a failure kind to its HTTP status and a client-facing message
func errorStatus(err error) (int, string, string) {
	switch failure.KindOf(err) {
	case failure.KindInvalidCurrency:
		return http.StatusBadRequest, "Invalid currency code", "Currency codes must be ISO 4217 codes (e.g., USD, EUR, JPY)"
	case failure.KindInvalidInput:
		return http.StatusBadRequest, "Invalid request", err.Error()
	case failure.KindNotFound:
		return http.StatusNotFound, "Not found", "The requested resource could not be found"
	case failure.KindRateUnavailable:
		return http.StatusNotFound, "No exchange rate available", "No direct or inverse rate is stored for this pair"
	case failure.KindTimeout:
		return http.StatusGatewayTimeout, "Rates service timed out", "The exchange rate service did not answer in time. Please try again later."
	case failure.KindUpstream:
		return http.StatusBadGateway, "Rates service rejected the request", err.Error()
	case failure.KindTransport:
		return http.StatusBadGateway, "Rates service unavailable", "The exchange rate service is temporarily unavailable. Please try again later."
	default:
		return http.StatusInternalServerError, "Internal server error", "An unexpected error occurred. Please try again later."
	}
}

// sendFailure logs err and writes the mapped error response
func sendFailure(w http.ResponseWriter, log logger.Logger, err error, requestID string) {
	status, message, description := errorStatus(err)

	fields := map[string]interface{}{
		"request_id": requestID,
		"kind":       failure.Classify(err),
		"error":      err.Error(),
	}
	if status >= 500 {
		log.Error(message, fields)
	} else {
		log.Warn(message, fields)
	}

	resp := ErrorResponse{
		Error:       message,
		Status:      status,
		Description: description,
		RequestID:   requestID,
	}
	if kind := failure.KindOf(err); kind != failure.KindUnknown {
		resp.Kind = kind.String()
	}
	sendJSON(w, log, status, resp)
}

// sendErrorResponse sends a standardized error response
func sendErrorResponse(w http.ResponseWriter, log logger.Logger, message, description string, statusCode int, requestID string) {
	log.Debug("Sending error response", map[string]interface{}{
		"request_id":  requestID,
		"status_code": statusCode,
		"message":     message,
	})

	sendJSON(w, log, statusCode, ErrorResponse{
		Error:       message,
		Status:      statusCode,
		Description: description,
		RequestID:   requestID,
	})
}

func sendJSON(w http.ResponseWriter, log logger.Logger, statusCode int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Debug("Error encoding response", map[string]interface{}{
			"error": err.Error(),
		})
	}
}
