package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/lockplane/authd/pkg/jwtx"
	"github.com/lockplane/authd/pkg/slogx"
)

// AccessValidator validates a bearer token of the expected type. Satisfied
// by *jwtx.Codec.
type AccessValidator interface {
	Validate(token string, want jwtx.TokenType) (jwtx.Claims, error)
}

// AuthnMiddleware authenticates requests by their Bearer access token and
// injects the subject, roles, and claims into the request context. Refresh
// tokens are rejected here: only access tokens grant API access.
func AuthnMiddleware(v AccessValidator) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			log := slogx.FromContext(ctx)

			authz := r.Header.Get("Authorization")
			if authz == "" || !strings.HasPrefix(authz, "Bearer ") {
				writeBearerError(w, "missing bearer token")
				return
			}
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer"))

			claims, err := v.Validate(raw, jwtx.TokenTypeAccess)
			if err != nil {
				switch {
				case errors.Is(err, jwtx.ErrExpired):
					writeBearerError(w, "token expired")
				default:
					writeBearerError(w, "token verification failed")
					log.Warn("access token rejected", "err", err)
				}
				return
			}

			ctx = contextWithAuth(ctx, claims)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func contextWithAuth(ctx context.Context, c jwtx.Claims) context.Context {
	ctx = context.WithValue(ctx, CtxKeyUserID, c.Subject)
	ctx = context.WithValue(ctx, CtxKeyRoles, c.Roles)
	ctx = context.WithValue(ctx, CtxKeyClaims, c)
	return ctx
}

// RFC 6750-compliant error response for bearer auth.
func writeBearerError(w http.ResponseWriter, desc string) {
	w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token", error_description="`+desc+`"`)
	w.WriteHeader(http.StatusUnauthorized)
}
