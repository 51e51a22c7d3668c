package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/nasermirzaei89/snapfeed/contents"
	"github.com/nasermirzaei89/snapfeed/identity"
	"github.com/nasermirzaei89/snapfeed/store"
	"github.com/nasermirzaei89/snapfeed/validation"
)

const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeJSON(ctx context.Context, w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(body)
	if err != nil {
		slog.ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func errorStatus(err error) int {
	var (
		validationErr *validation.Error
		notAuthorErr  contents.NotAuthorError
	)

	switch {
	case errors.As(err, &validationErr):
		return http.StatusBadRequest
	case errors.Is(err, identity.ErrAnonymous):
		return http.StatusUnauthorized
	case errors.As(err, &notAuthorErr):
		return http.StatusForbidden
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case store.IsUnavailable(err):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := errorStatus(err)
	resp := errorResponse{Error: http.StatusText(status)}

	var validationErr *validation.Error

	switch {
	case errors.As(err, &validationErr):
		resp.Error = validationErr.Error()
		resp.Field = validationErr.Field
	case status == http.StatusInternalServerError, status == http.StatusServiceUnavailable:
		slog.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
	}

	writeJSON(r.Context(), w, status, resp)
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	err := dec.Decode(dst)
	if err != nil {
		return &validation.Error{Field: "body", Reason: "must be a valid json object"}
	}

	return nil
}
