package http

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"rdapi/internal/domain"
	obsmw "rdapi/internal/observability/middleware"
	"rdapi/internal/service"
)

type principalKey struct{}

func withPrincipal(ctx context.Context, p *service.Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

// PrincipalFrom returns the caller resolved by RequireAuth.
func PrincipalFrom(ctx context.Context) (*service.Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(*service.Principal)
	return p, ok && p != nil
}

func bearerToken(r *http.Request) string {
	raw := strings.TrimSpace(r.Header.Get("Authorization"))
	if len(raw) < len("bearer ") || !strings.EqualFold(raw[:len("bearer ")], "bearer ") {
		return ""
	}
	return strings.TrimSpace(raw[len("bearer "):])
}

// RequireAuth resolves the bearer token. A successful lookup also refreshes
// the token's idle deadline.
func RequireAuth(tokens service.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			reqID := obsmw.RequestIDFromContext(r.Context())
			tok := bearerToken(r)
			if tok == "" {
				slog.Warn("missing bearer token", "path", r.URL.Path, "request_id", reqID)
				writeFail(w, http.StatusUnauthorized, "not logged in")
				return
			}
			p, err := tokens.Authenticate(r.Context(), tok)
			if err != nil {
				slog.Warn("bearer token rejected", "path", r.URL.Path, "error", err, "request_id", reqID)
				writeError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(withPrincipal(r.Context(), p)))
		})
	}
}

// RequireStaff lets only staff and superusers through. It must run after RequireAuth.
func RequireStaff(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p, ok := PrincipalFrom(r.Context())
		if !ok {
			writeError(w, r, domain.ErrUnauthenticated)
			return
		}
		if !p.User.IsAdmin() {
			writeError(w, r, domain.ErrForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// caller is the principal of a request that passed RequireAuth.
func caller(r *http.Request) *service.Principal {
	p, _ := PrincipalFrom(r.Context())
	return p
}
