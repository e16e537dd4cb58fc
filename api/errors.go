package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/fuelflux/core/catalog"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// writeError sends {"Msg": ...} with the message localized for r.
func writeError(w http.ResponseWriter, r *http.Request, status int, key string, args ...any) {
	writeJSON(w, status, ErrorResponse{Msg: localize(r, key, args...)})
}

// mapError translates catalog errors into HTTP responses. notFoundKey and
// args describe the entity the handler was looking for.
func (a *API) mapError(w http.ResponseWriter, r *http.Request, err error, notFoundKey string, args ...any) {
	switch {
	case errors.Is(err, catalog.ErrNotFound):
		writeError(w, r, http.StatusNotFound, notFoundKey, args...)
	case errors.Is(err, catalog.ErrConflict):
		writeError(w, r, http.StatusConflict, msgConflict)
	case errors.Is(err, catalog.ErrInvalid):
		writeError(w, r, http.StatusBadRequest, msgInvalidEntity)
	default:
		a.logger.ErrorContext(r.Context(), "request failed", "path", r.URL.Path, "error", err)
		writeError(w, r, http.StatusInternalServerError, msgInternal)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, catalog.ErrNotFound)
}

// decodeJSON reads a JSON request body into v, rejecting unknown fields.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	return dec.Decode(v)
}
