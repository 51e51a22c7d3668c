package web

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/nasermirzaei89/snapfeed/identity"
	"github.com/nasermirzaei89/snapfeed/validation"
)

// identityMiddleware puts the identity carried by the session cookie into the
// request context. Requests without one stay anonymous.
func (h *Handler) identityMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var sessionValueNotFoundError *SessionValueNotFoundError

		userID, err := h.getSessionString(r, sessionUserIDKey)
		if err != nil {
			if !errors.As(err, &sessionValueNotFoundError) {
				// An unreadable cookie (rotated key, tampering) is treated as
				// no session at all.
				slog.WarnContext(r.Context(), "error on getting session value", "key", sessionUserIDKey, "error", err)
			}

			next.ServeHTTP(w, r)

			return
		}

		displayName, _ := h.getSessionString(r, sessionDisplayNameKey)

		ctx := identity.WithIdentity(r.Context(), identity.Identity{UserID: userID, DisplayName: displayName})

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func signedInOnly(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, err := identity.FromContext(r.Context())
		if err != nil {
			writeError(w, r, err)

			return
		}

		next.ServeHTTP(w, r)
	})
}

type signInRequest struct {
	UserID      string `json:"userId"`
	DisplayName string `json:"displayName"`
}

// HandleSignIn stores the identity handed over by the identity provider in
// the session cookie. It trusts the body, so it is only routed when the
// handler is built with WithSessionHandOff.
func (h *Handler) HandleSignIn(w http.ResponseWriter, r *http.Request) {
	var req signInRequest

	err := decodeJSON(w, r, &req)
	if err != nil {
		writeError(w, r, err)

		return
	}

	err = validation.Required("userId", req.UserID)
	if err != nil {
		writeError(w, r, err)

		return
	}

	err = h.setSessionValues(w, r, map[string]any{
		sessionUserIDKey:      req.UserID,
		sessionDisplayNameKey: req.DisplayName,
	})
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to save session", "error", err)
		writeError(w, r, err)

		return
	}

	h.identities.SignIn(identity.Identity{UserID: req.UserID, DisplayName: req.DisplayName})

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) HandleSignOut(w http.ResponseWriter, r *http.Request) {
	err := h.deleteSessionValues(w, r, sessionUserIDKey, sessionDisplayNameKey)
	if err != nil {
		slog.ErrorContext(r.Context(), "failed to clear session", "error", err)
		writeError(w, r, err)

		return
	}

	h.identities.SignOut()

	w.WriteHeader(http.StatusNoContent)
}
