package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/docrelay/internal/domain"
)

// KeyService issues and checks initiator keys.
type KeyService interface {
	Issue(ctx context.Context) (*domain.Initiator, error)
	Validate(ctx context.Context, key string) (bool, error)
}

type InitiatorHandler struct {
	keys KeyService
}

func NewInitiatorHandler(keys KeyService) *InitiatorHandler {
	return &InitiatorHandler{keys: keys}
}

type initiatorKeyResponse struct {
	InitiatorKey string `json:"initiator_key"`
}

type validateKeyResponse struct {
	Valid bool `json:"valid"`
}

func (h *InitiatorHandler) Issue(w http.ResponseWriter, r *http.Request) {
	initiator, err := h.keys.Issue(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, initiatorKeyResponse{InitiatorKey: initiator.Key})
}

func (h *InitiatorHandler) Validate(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	key, err := f.reqString("initiator_key")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	valid, err := h.keys.Validate(r.Context(), key)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, validateKeyResponse{Valid: valid})
}
