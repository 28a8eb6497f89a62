// Package httpserver constructs the issuer's HTTP server.
package httpserver

import (
	"net/http"
	"time"
)

// New returns a server for the given listen address and handler. The header
// timeout bounds slow or stalled clients; the QR and invitation endpoints are
// hit by mobile wallets on unreliable networks, so request bodies get no
// blanket deadline and rely on per-handler contexts instead.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
