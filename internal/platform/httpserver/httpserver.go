package httpserver

import (
	"net/http"

	"mobilid/internal/platform/config"
)

// New builds an HTTP server with sane defaults for this project.
// Write timeouts are left to the per-route Timeout middleware so archive
// downloads are not cut off by a global deadline.
func New(cfg config.Server, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr,
		Handler:           handler,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}
