package rbac

import (
	"log/slog"
	"net/http"

	"github.com/atheneum-lms/atheneum/internal/platform/httpx"
	"github.com/atheneum-lms/atheneum/internal/shared"
)

// Middleware wires authorization helpers for HTTP handlers.
type Middleware struct {
	Resolver *Resolver
	Logger   *slog.Logger
}

// RequireAuthenticated rejects anonymous callers before the handler runs.
func (m Middleware) RequireAuthenticated(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := shared.PrincipalFromContext(r.Context())
		if p.IsAnonymous() {
			httpx.RespondError(w, shared.ErrNotAuthenticated)
			return
		}
		next.ServeHTTP(w, r)
	})
}
