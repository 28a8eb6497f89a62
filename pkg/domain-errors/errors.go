// Package domainerrors defines the coded error vocabulary shared by services
// and the HTTP transport. Services return these; the transport maps the code
// to a status and a stable JSON envelope.
package domainerrors

import "net/http"

type Code string

const (
	// CodeInvalidInput marks malformed requests, e.g. a completion fact with
	// missing required fields. Never retried.
	CodeInvalidInput Code = "invalid_input"
	// CodeNotFound marks lookups of unknown or expired invitation ids.
	CodeNotFound Code = "not_found"
	// CodeUnauthorized marks failed webhook authentication.
	CodeUnauthorized Code = "unauthorized"
	// CodeUnavailable marks a dependency (agent runtime) that could not serve
	// the request.
	CodeUnavailable Code = "unavailable"
	// CodeInternal is the catch-all for everything else.
	CodeInternal Code = "internal"
)

// Error is a coded domain error.
type Error struct {
	Code    Code
	Message string
}

func (e *Error) Error() string {
	return string(e.Code) + ": " + e.Message
}

// New constructs a coded error.
func New(code Code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// ToHTTPStatus maps an error code to its HTTP status.
func ToHTTPStatus(code Code) int {
	switch code {
	case CodeInvalidInput:
		return http.StatusBadRequest
	case CodeNotFound:
		return http.StatusNotFound
	case CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
