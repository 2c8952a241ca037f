package minimax

import (
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/rhuss/mmbridge/pkg/api"
)

// maxErrorBody caps how much of a non-200 body is copied into the error.
const maxErrorBody = 64 << 10

// statusCodeErrors maps MiniMax base_resp.status_code values to error
// constructors. Codes not listed here map to a server error.
var statusCodeErrors = map[int]func(string) *api.APIError{
	1000: api.NewServerError, // unknown error
	1001: api.NewServerError, // timeout
	1013: api.NewServerError, // internal service error
	1027: api.NewServerError, // output content violation

	1002: api.NewRateLimitReachedError, // RPM limit
	1039: api.NewRateLimitReachedError, // TPM limit

	1004: api.NewInvalidAuthenticationError,
	1008: api.NewInsufficientAccountBalanceError,
	2013: api.NewBadRequestError,
}

// MapStatusCode converts a non-zero base_resp.status_code into an APIError.
// The vendor code is preserved in APIError.Code.
func MapStatusCode(code int, msg string) *api.APIError {
	if msg == "" {
		msg = fmt.Sprintf("minimax error (status_code %d)", code)
	}

	ctor, ok := statusCodeErrors[code]
	if !ok {
		ctor = api.NewServerError
	}

	apiErr := ctor(msg)
	apiErr.Code = strconv.Itoa(code)
	return apiErr
}

// mapHTTPError converts a non-200 response into a server error carrying the
// response body as its message.
func mapHTTPError(resp *http.Response) *api.APIError {
	var body string
	if resp.Body != nil {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		body = strings.TrimSpace(string(data))
	}
	if body == "" {
		body = fmt.Sprintf("minimax returned HTTP %d", resp.StatusCode)
	}
	return api.NewServerError(body)
}

// mapNetworkError converts a transport failure (connection refused, timeout,
// DNS resolution failure) into a server error.
func mapNetworkError(err error) *api.APIError {
	return api.NewServerError(fmt.Sprintf("minimax connection error: %s", err.Error()))
}
