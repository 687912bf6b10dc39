package http

import (
	"errors"
	"net/http"

	"github.com/lockplane/authd/internal/auth/service"
	"github.com/lockplane/authd/pkg/httpx"
	"github.com/lockplane/authd/pkg/slogx"
)

// ResetHandler serves the password-reset flow under /v1/password-reset.
type ResetHandler struct {
	Resets *service.ResetService
}

// HandleRequest serves POST /v1/password-reset/request. Always 202: the
// response must not reveal whether the account exists.
func (h *ResetHandler) HandleRequest(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Username string `json:"username"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Username == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.Resets.RequestReset(ctx, req.Username); err != nil {
		log.Error("reset request failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusAccepted, map[string]string{
		"status": "accepted",
	})
}

// HandleValidate serves POST /v1/password-reset/validate: a non-consuming
// check so a reset form can reject a dead link up front.
func (h *ResetHandler) HandleValidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

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

	if err := h.Resets.ValidateToken(ctx, req.Token); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			errInvalidResetToken.WriteError(w)
			return
		}
		log.Error("reset validation failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "valid",
	})
}

// HandleConfirm serves POST /v1/password-reset/confirm, spending the token
// and setting the new password.
func (h *ResetHandler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	var req struct {
		Token       string `json:"token"`
		NewPassword string `json:"new_password"`
	}
	if err := decodeJSON(r, &req); err != nil {
		errInvalidJSONBody.WriteError(w)
		return
	}
	if req.Token == "" || req.NewPassword == "" {
		errInvalidRequest.WriteError(w)
		return
	}

	if err := h.Resets.ResetPassword(ctx, req.Token, req.NewPassword); err != nil {
		if errors.Is(err, service.ErrInvalidResetToken) {
			errInvalidResetToken.WriteError(w)
			return
		}
		log.Error("reset confirmation failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "password_updated",
	})
}
