package middleware

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	dErrors "mobilid/pkg/domain-errors"
	"mobilid/pkg/platform/httputil"
)

// ClientTokenValidator checks that a bearer token was issued to the named client.
type ClientTokenValidator interface {
	ValidateClient(tokenString, client string) error
}

// PassAuthToken extracts the token from "Authorization: ApplePass <token>".
func PassAuthToken(r *http.Request) (string, bool) {
	const prefix = "ApplePass "
	h := r.Header.Get("Authorization")
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return "", false
	}
	tok := strings.TrimSpace(h[len(prefix):])
	return tok, tok != ""
}

// RequireClientToken guards the trigger route. It must be mounted inline
// (r.With) so the {client} path parameter is already resolved. A nil
// validator disables the check.
func RequireClientToken(validator ClientTokenValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if validator == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			client := chi.URLParam(r, "client")

			token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized trigger - missing token",
					"client", client,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
				return
			}
			if err := validator.ValidateClient(token, client); err != nil {
				logger.WarnContext(ctx, "unauthorized trigger - invalid token",
					"client", client,
					"error", err,
					"request_id", GetRequestID(ctx),
				)
				httputil.WriteError(w, err)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
