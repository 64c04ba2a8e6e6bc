package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/Harshitk-cp/docrelay/internal/domain"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeServiceError maps a domain error kind to its HTTP status. Anything without a
// kind is reported as a generic internal error.
func writeServiceError(w http.ResponseWriter, err error) {
	var de *domain.Error
	if !errors.As(err, &de) {
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	switch {
	case errors.Is(err, domain.ErrInvalidInput):
		writeError(w, http.StatusBadRequest, de.Message)
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, de.Message)
	case errors.Is(err, domain.ErrConflict):
		writeError(w, http.StatusConflict, de.Message)
	default:
		writeError(w, http.StatusInternalServerError, de.Message)
	}
}
