package http

import (
	"errors"
	"net/http"
	"time"

	"github.com/lockplane/authd/internal/auth/domain"
	"github.com/lockplane/authd/internal/auth/store"
	"github.com/lockplane/authd/pkg/httpx"
	"github.com/lockplane/authd/pkg/slogx"
)

type userResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Roles     []string  `json:"roles"`
	CreatedAt time.Time `json:"created_at"`
}

func toUserResponse(u domain.User) userResponse {
	return userResponse{
		ID:        u.ID,
		Username:  u.Username,
		Roles:     domain.RoleStrings(u.Roles),
		CreatedAt: u.CreatedAt,
	}
}

// UserInfoHandler serves GET /v1/userinfo for the authenticated caller.
type UserInfoHandler struct {
	Store store.Store
}

func (h *UserInfoHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	userID := httpx.UserIDFromContext(ctx)
	if userID == "" {
		errInvalidToken.WriteError(w)
		return
	}

	user, err := h.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			// Valid token for a deleted account.
			errInvalidToken.WriteError(w)
			return
		}
		log.Error("userinfo lookup failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	httpx.WriteJSON(w, http.StatusOK, toUserResponse(user))
}

// UsersListHandler serves GET /v1/users. Admin only; enforced in the
// router's middleware chain.
type UsersListHandler struct {
	Store store.Store
}

func (h *UsersListHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := slogx.FromContext(ctx)

	users, err := h.Store.Users().ListUsers(ctx)
	if err != nil {
		log.Error("list users failed", "err", err)
		errServerError.WriteError(w)
		return
	}

	out := make([]userResponse, 0, len(users))
	for _, u := range users {
		out = append(out, toUserResponse(u))
	}
	httpx.WriteJSON(w, http.StatusOK, map[string]any{"users": out})
}
