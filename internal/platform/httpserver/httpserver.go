// Package httpserver builds the HTTP servers both binaries expose: the
// catalog API on the producer side and the health/metrics surface on the
// consumer side.
package httpserver

import (
	"net/http"
	"time"
)

// New builds an HTTP server with a read-header timeout so idle connections
// cannot hold the listener open during shutdown.
func New(addr string, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
}
