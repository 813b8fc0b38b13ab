package auth

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/shifthub/shifthub/internal/authz"
	"github.com/shifthub/shifthub/internal/shared"
)

type principalContextKey struct{}

// ContextWithPrincipal stores the acting principal in context.
func ContextWithPrincipal(ctx context.Context, p *authz.Principal) context.Context {
	return context.WithValue(ctx, principalContextKey{}, p)
}

// PrincipalFromContext extracts the acting principal from context. Returns
// nil when the request is unauthenticated.
func PrincipalFromContext(ctx context.Context) *authz.Principal {
	p, _ := ctx.Value(principalContextKey{}).(*authz.Principal)
	return p
}

// PrincipalSource resolves a session user id into a principal.
type PrincipalSource interface {
	Principal(ctx context.Context, userID string) (*authz.Principal, error)
}

// RequirePrincipal resolves the session user into an authz.Principal and
// rejects unauthenticated requests with 401. The principal is immutable for
// the rest of the request.
func RequirePrincipal(logger *slog.Logger, source PrincipalSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := shared.SessionFromContext(r.Context())
			if sess == nil || sess.User() == "" {
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			principal, err := source.Principal(r.Context(), sess.User())
			if err != nil {
				if logger != nil {
					logger.Warn("resolve principal", slog.String("user_id", sess.User()), slog.Any("error", err))
				}
				http.Error(w, http.StatusText(http.StatusUnauthorized), http.StatusUnauthorized)
				return
			}
			ctx := ContextWithPrincipal(r.Context(), principal)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
