// Package httputil centralizes JSON encoding and error envelopes so handlers
// stay thin and every endpoint fails the same way.
package httputil

import (
	"encoding/json"
	"errors"
	"net/http"

	dErrors "unicred/pkg/domain-errors"
)

// WriteJSON writes v as a JSON response with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates a domain error into a JSON error envelope. Unknown
// error types collapse into an internal error so no internals leak out.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeInternal
	message := "internal error"
	var de *dErrors.Error
	if errors.As(err, &de) {
		code = de.Code
		message = de.Message
	}
	WriteJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}

// Decode parses the request body into T, returning a coded error on malformed
// JSON.
func Decode[T any](r *http.Request) (T, error) {
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		return v, dErrors.New(dErrors.CodeInvalidInput, "invalid request body")
	}
	return v, nil
}
