package http

import (
	"net/http"

	"github.com/lockplane/authd/pkg/httpx"
)

// apiError is the JSON error body every endpoint returns on failure. The
// error code vocabulary is stable; descriptions are for humans.
type apiError struct {
	Status      int    `json:"-"`
	Code        string `json:"error"`
	Description string `json:"error_description,omitempty"`
}

func (e apiError) WriteError(w http.ResponseWriter) {
	httpx.WriteJSON(w, e.Status, e)
}

var (
	errInvalidRequest = apiError{
		Status: http.StatusBadRequest, Code: "invalid_request",
		Description: "The request is missing a required parameter or is malformed.",
	}
	errInvalidJSONBody = apiError{
		Status: http.StatusBadRequest, Code: "invalid_request",
		Description: "The request body must be valid JSON.",
	}
	errInvalidCredentials = apiError{
		Status: http.StatusUnauthorized, Code: "invalid_credentials",
		Description: "The username or password is incorrect.",
	}
	errInvalidToken = apiError{
		Status: http.StatusUnauthorized, Code: "invalid_token",
		Description: "The token is expired, revoked, or malformed.",
	}
	errInvalidResetToken = apiError{
		Status: http.StatusUnauthorized, Code: "invalid_reset_token",
		Description: "The reset token is invalid, expired, or already used.",
	}
	errServerError = apiError{
		Status: http.StatusInternalServerError, Code: "server_error",
		Description: "An internal error occurred.",
	}
)
