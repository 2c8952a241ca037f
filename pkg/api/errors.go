package api

import "fmt"

// ErrorType represents the category of an API error.
type ErrorType string

const (
	ErrorTypeServerError                ErrorType = "server_error"
	ErrorTypeInvalidRequest             ErrorType = "invalid_request"
	ErrorTypeNotFound                   ErrorType = "not_found"
	ErrorTypeInvalidAPIKey              ErrorType = "invalid_api_key"
	ErrorTypeInvalidAuthentication      ErrorType = "invalid_authentication"
	ErrorTypeRateLimitReached           ErrorType = "rate_limit_reached"
	ErrorTypeInsufficientAccountBalance ErrorType = "insufficient_account_balance"
)

// APIError represents a structured API error with type, code, param, and message.
type APIError struct {
	Type    ErrorType `json:"type"`
	Code    string    `json:"code,omitempty"`
	Param   string    `json:"param,omitempty"`
	Message string    `json:"message"`
}

// Error implements the error interface.
func (e *APIError) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s: %s (param: %s)", e.Type, e.Message, e.Param)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// ErrorResponse wraps an APIError for JSON serialization as the top-level error response.
type ErrorResponse struct {
	Error *APIError `json:"error"`
}

// NewInvalidRequestError creates an APIError for malformed requests.
func NewInvalidRequestError(param, message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidRequest,
		Param:   param,
		Message: message,
	}
}

// NewBadRequestError creates an invalid request error without a param.
// Vendor-reported malformed requests map here.
func NewBadRequestError(message string) *APIError {
	return NewInvalidRequestError("", message)
}

// NewNotFoundError creates an APIError for resources that cannot be found.
func NewNotFoundError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeNotFound,
		Message: message,
	}
}

// NewServerError creates an APIError for internal server errors.
func NewServerError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeServerError,
		Message: message,
	}
}

// NewInvalidAPIKeyError creates an APIError for missing or unusable credentials.
func NewInvalidAPIKeyError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidAPIKey,
		Message: message,
	}
}

// NewInvalidAuthenticationError creates an APIError for credentials the
// backend rejected.
func NewInvalidAuthenticationError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInvalidAuthentication,
		Message: message,
	}
}

// NewRateLimitReachedError creates an APIError for rate limiting.
func NewRateLimitReachedError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeRateLimitReached,
		Message: message,
	}
}

// NewInsufficientAccountBalanceError creates an APIError for an exhausted
// vendor account.
func NewInsufficientAccountBalanceError(message string) *APIError {
	return &APIError{
		Type:    ErrorTypeInsufficientAccountBalance,
		Message: message,
	}
}

// IsAuthenticationError reports whether the error type signals bad credentials.
func (e *APIError) IsAuthenticationError() bool {
	return e.Type == ErrorTypeInvalidAPIKey || e.Type == ErrorTypeInvalidAuthentication
}
