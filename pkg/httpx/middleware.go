// Package httpx provides the HTTP plumbing shared by handlers: middleware
// chaining, bearer-token authentication, role checks, rate limiting, and
// JSON response helpers.
package httpx

import "net/http"

// Middleware wraps a handler with cross-cutting behavior.
type Middleware func(http.Handler) http.Handler

// Chain applies middlewares to h so the first listed runs outermost. A
// chain of (Authn, RequireRole, RateLimit) authenticates before it checks
// roles, and both before the limiter sees the authenticated user.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}
