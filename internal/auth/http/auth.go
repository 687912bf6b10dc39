// Package http exposes the credential-lifecycle API over HTTP. Handlers
// decode and validate requests, map service errors to the stable error
// vocabulary, and never leak internals into responses.
package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/lockplane/authd/internal/auth/service"
	"github.com/lockplane/authd/pkg/httpx"
	"github.com/lockplane/authd/pkg/jwtx"
	"github.com/lockplane/authd/pkg/slogx"
)

// tokenResponse is the body of every successful login or refresh.
type tokenResponse struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// decodeJSON parses a JSON request body into v, rejecting unknown fields.
func decodeJSON(r *http.Request, v any) error {
	if ct := r.Header.Get("Content-Type"); ct != "" &&
		!strings.HasPrefix(ct, "application/json") {
		return errors.New("unsupported content type")
	}
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}

// LoginHandler serves POST /v1/auth/login.
type LoginHandler struct {
	Authenticator *service.Authenticator
	Sessions      *service.SessionService
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Username == "" || req.Password == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	user, err := h.Authenticator.Authenticate(ctx, req.Username, req.Password)
	if err != nil {
		if errors.Is(err, service.ErrInvalidCredentials) {
			errInvalidCredentials.WriteError(w)
			return
		}
		log.Error("login failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	sess, err := h.Sessions.Login(ctx, user)
	if err != nil {
		log.Error("session issuance failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  sess.AccessToken,
		RefreshToken: sess.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(sess.ExpiresIn.Seconds()),
	})
}

// RefreshHandler serves POST /v1/auth/refresh.
type RefreshHandler struct {
	Sessions *service.SessionService
}

func (h *RefreshHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	rotated, err := h.Sessions.Refresh(ctx, req.RefreshToken)
	if err != nil {
		switch {
		case errors.Is(err, jwtx.ErrExpired),
			errors.Is(err, jwtx.ErrMalformed),
			errors.Is(err, jwtx.ErrTypeMismatch),
			errors.Is(err, service.ErrRefreshRevoked):
			errInvalidToken.WriteError(w)
		default:
			log.Error("refresh failed", "err", err)
			errServerError.WriteError(w)
		}
		return
	}

	httpx.WriteJSON(w, http.StatusOK, tokenResponse{
		AccessToken:  rotated.AccessToken,
		RefreshToken: rotated.RefreshToken,
		TokenType:    "Bearer",
		ExpiresIn:    int(rotated.ExpiresIn.Seconds()),
	})
}

// LogoutHandler serves POST /v1/auth/logout.
type LogoutHandler struct {
	Sessions *service.SessionService
}

func (h *LogoutHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		RefreshToken string `json:"refresh_token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.RefreshToken == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.Sessions.Logout(ctx, req.RefreshToken); err != nil {
		log.Error("logout failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// IntrospectHandler serves POST /v1/auth/introspect. Modeled on RFC 7662:
// a dead token yields {"active": false}, never an error detail.
type IntrospectHandler struct {
	Sessions *service.SessionService
}

func (h *IntrospectHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Token string `json:"token"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Token == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	p, err := h.Sessions.Introspect(r.Context(), req.Token)
	if err != nil {
		httpx.WriteJSON(w, http.StatusOK, map[string]any{"active": false})
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]any{
		"active": true,
		"sub":    p.ID,
		"roles":  p.Roles,
	})
}
