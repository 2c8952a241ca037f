package transport

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rhuss/mmbridge/pkg/api"
)

// statusByType maps API error types to HTTP status codes.
var statusByType = map[api.ErrorType]int{
	api.ErrorTypeInvalidRequest:             http.StatusBadRequest,
	api.ErrorTypeInvalidAPIKey:              http.StatusUnauthorized,
	api.ErrorTypeInvalidAuthentication:      http.StatusUnauthorized,
	api.ErrorTypeInsufficientAccountBalance: http.StatusPaymentRequired,
	api.ErrorTypeNotFound:                   http.StatusNotFound,
	api.ErrorTypeRateLimitReached:           http.StatusTooManyRequests,
	api.ErrorTypeServerError:                http.StatusInternalServerError,
}

// HTTPStatusFromError maps an APIError type to the corresponding HTTP status
// code. Unknown types map to 500.
func HTTPStatusFromError(err *api.APIError) int {
	if status, ok := statusByType[err.Type]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// AsAPIError converts any error into an APIError. Non-API errors become
// server errors carrying the error text.
func AsAPIError(err error) *api.APIError {
	var apiErr *api.APIError
	if errors.As(err, &apiErr) {
		return apiErr
	}
	return api.NewServerError(err.Error())
}

// WriteErrorResponse writes a JSON error response with the given status.
func WriteErrorResponse(w http.ResponseWriter, apiErr *api.APIError, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(api.ErrorResponse{Error: apiErr})
}

// WriteAPIError writes an APIError response, deriving the HTTP status code
// from the error type.
func WriteAPIError(w http.ResponseWriter, apiErr *api.APIError) {
	WriteErrorResponse(w, apiErr, HTTPStatusFromError(apiErr))
}
