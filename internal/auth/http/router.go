package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/service"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/httpx"
	"github.com/lockplane/authd/pkg/jwtx"
	"github.com/lockplane/authd/pkg/slogx"
)

// Router holds shared dependencies for HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	keys         *jwtx.KeySet
	codec        *jwtx.Codec
	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store store.Store

	Authenticator  *service.Authenticator
	SessionService *service.SessionService
	ResetService   *service.ResetService
}

func NewRouter(
	keys *jwtx.KeySet,
	codec *jwtx.Codec,
	buildVersion string,
	st store.Store,
	logger *slog.Logger,
) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		keys:         keys,
		codec:        codec,
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerAuth()
	r.registerReset()
	r.registerUsers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler for Router and applies the global
// middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerAuth() {
	// POST /auth/login - strict rate limit by IP + username (brute force)
	loginHandler := &LoginHandler{
		Authenticator: r.Authenticator,
		Sessions:      r.SessionService,
	}
	r.Mux.Handle("POST /v1/auth/login",
		httpx.Chain(loginHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/refresh - strict rate limit by IP
	refreshHandler := &RefreshHandler{Sessions: r.SessionService}
	r.Mux.Handle("POST /v1/auth/refresh",
		httpx.Chain(refreshHandler,
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /auth/logout - moderate rate limit
	logoutHandler := &LogoutHandler{Sessions: r.SessionService}
	r.Mux.Handle("POST /v1/auth/logout",
		httpx.Chain(logoutHandler,
			httpx.RateLimitByIP(httpx.ModerateLimit),
		),
	)

	// POST /auth/introspect - requires authentication, moderate limit
	introspectHandler := &IntrospectHandler{Sessions: r.SessionService}
	r.Mux.Handle("POST /v1/auth/introspect",
		httpx.Chain(introspectHandler,
			httpx.AuthnMiddleware(r.codec),
			httpx.RateLimitByUser(httpx.ModerateLimit),
		),
	)
}

func (r *Router) registerReset() {
	h := &ResetHandler{Resets: r.ResetService}

	// POST /password-reset/request - strict rate limit (enumeration, mail spam)
	r.Mux.Handle("POST /v1/password-reset/request",
		httpx.Chain(http.HandlerFunc(h.HandleRequest),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /password-reset/validate - strict rate limit (token guessing)
	r.Mux.Handle("POST /v1/password-reset/validate",
		httpx.Chain(http.HandlerFunc(h.HandleValidate),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /password-reset/confirm - strict rate limit (token guessing)
	r.Mux.Handle("POST /v1/password-reset/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUsers() {
	// GET /userinfo - authenticated, lenient rate limit by user
	userInfo := httpx.Chain(&UserInfoHandler{Store: r.store},
		httpx.AuthnMiddleware(r.codec),
		httpx.RateLimitByUser(httpx.LenientLimit),
	)
	r.Mux.Handle("GET /v1/userinfo", userInfo)

	// GET /users - admin only, moderate rate limit by user
	usersList := httpx.Chain(&UsersListHandler{Store: r.store},
		httpx.AuthnMiddleware(r.codec),
		httpx.RequireAnyRole(string(domain.RoleAdmin)),
		httpx.RateLimitByUser(httpx.ModerateLimit),
	)
	r.Mux.Handle("GET /v1/users", usersList)
}

func (r *Router) registerSystem() {
	// Health checks - monitoring systems may poll frequently
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store, r.keys),
			httpx.RateLimitByIP(httpx.PublicLimit),
		),
	)
}
