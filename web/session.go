package web

import (
	"fmt"
	"net/http"
)

const (
	sessionUserIDKey      = "userId"
	sessionDisplayNameKey = "displayName"
)

type SessionValueNotFoundError struct {
	Key string
}

func (err SessionValueNotFoundError) Error() string {
	return fmt.Sprintf("session value for key '%s' not found", err.Key)
}

func (h *Handler) getSessionString(r *http.Request, key string) (string, error) {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		return "", fmt.Errorf("error getting session: %w", err)
	}

	value, ok := session.Values[key].(string)
	if !ok {
		return "", &SessionValueNotFoundError{Key: key}
	}

	return value, nil
}

func (h *Handler) setSessionValues(w http.ResponseWriter, r *http.Request, values map[string]any) error {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		return fmt.Errorf("error getting session: %w", err)
	}

	for key, value := range values {
		session.Values[key] = value
	}

	err = session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}

func (h *Handler) deleteSessionValues(w http.ResponseWriter, r *http.Request, keys ...string) error {
	session, err := h.cookieStore.Get(r, h.sessionName)
	if err != nil {
		return fmt.Errorf("error getting session: %w", err)
	}

	for _, key := range keys {
		delete(session.Values, key)
	}

	err = session.Save(r, w)
	if err != nil {
		return fmt.Errorf("error saving session: %w", err)
	}

	return nil
}
