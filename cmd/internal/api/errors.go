package api

import (
	"context"
	"errors"
	"net/http"

	"quill/cmd/identity"
	"quill/cmd/internal/account"
	"quill/cmd/internal/auth/guard"
	"quill/cmd/internal/auth/ownership"
	"quill/cmd/internal/auth/session"
	"quill/cmd/internal/content"
)

// writeFailure converts a domain error into the response status and code.
// Unrecognized errors are logged and surface as a generic server error.
func (h *Handler) writeFailure(w http.ResponseWriter, r *http.Request, event string, err error) {
	switch {
	case identity.IsInvalidInput(err), content.IsInvalidInput(err):
		writeError(w, http.StatusBadRequest, "validation_error", validationMessage(err))
	case identity.IsConflict(err):
		writeError(w, http.StatusBadRequest, "duplicate_username", "username already taken")
	case errors.Is(err, account.ErrInvalidCredentials):
		writeError(w, http.StatusInternalServerError, "invalid_credentials", "invalid credentials")
	case errors.Is(err, guard.ErrUnauthenticated):
		writeError(w, http.StatusInternalServerError, "unauthenticated", "authentication required")
	case session.IsInvalidToken(err):
		writeError(w, http.StatusInternalServerError, "invalid_token", "invalid session")
	case errors.Is(err, ownership.ErrForbidden):
		writeError(w, http.StatusBadRequest, "forbidden", "you are not the author")
	case content.IsNotFound(err):
		writeError(w, http.StatusNotFound, "not_found", "post not found")
	case errors.Is(err, context.Canceled):
		h.log.Warn(event+".cancelled", "path", r.URL.Path)
		writeError(w, http.StatusServiceUnavailable, "request_cancelled", "request cancelled")
	default:
		h.log.Error(event+".fail", "err", err)
		writeError(w, http.StatusInternalServerError, "server_error", "internal error")
	}
}

// writeAuthFailure is the guard's error sink.
func (h *Handler) writeAuthFailure(w http.ResponseWriter, r *http.Request, err error) {
	h.writeFailure(w, r, "auth.guard", err)
}

func validationMessage(err error) string {
	var oe identity.OpError
	if errors.As(err, &oe) && oe.Msg != "" {
		return oe.Msg
	}
	return err.Error()
}
