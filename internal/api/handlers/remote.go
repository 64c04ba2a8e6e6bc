package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/docrelay/internal/domain"
)

const (
	HeaderInitiatorKey  = "initiator-key"
	HeaderCorrelationID = "correlation-id"
	HeaderTransactionID = "transaction-id"
)

// Coordinator drives the initiator -> agent -> initiator round trip.
type Coordinator interface {
	Submit(ctx context.Context, cmd domain.ProcessingCommand) (*domain.RemoteTransaction, error)
	ReceiveResult(ctx context.Context, res domain.ProcessingResult) (*domain.RemoteTransaction, error)
}

type RemoteHandler struct {
	coordinator Coordinator
}

func NewRemoteHandler(c Coordinator) *RemoteHandler {
	return &RemoteHandler{coordinator: c}
}

// Process accepts a job from an initiator and forwards it to the target agent.
func (h *RemoteHandler) Process(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	cmd := domain.ProcessingCommand{
		InitiatorKey:  r.Header.Get(HeaderInitiatorKey),
		CorrelationID: r.Header.Get(HeaderCorrelationID),
	}
	if cmd.TargetInstanceID, err = f.optInt64("target_instance_id"); err != nil {
		writeServiceError(w, err)
		return
	}
	if cmd.DocumentTypeID, err = f.optInt64("document_type_id"); err != nil {
		writeServiceError(w, err)
		return
	}
	if cmd.FileName, err = f.optString("file_name"); err != nil {
		writeServiceError(w, err)
		return
	}

	tx, err := h.coordinator.Submit(r.Context(), cmd)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, tx)
}

// Result receives an agent's processing result for the transaction named in the
// transaction-id header.
func (h *RemoteHandler) Result(w http.ResponseWriter, r *http.Request) {
	id, err := positiveID(r.Header.Get(HeaderTransactionID), HeaderTransactionID)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	res := domain.ProcessingResult{TransactionID: id, Result: f.raw("ocr_result")}
	if res.DocumentTypeID, err = f.optInt64("document_type_id"); err != nil {
		writeServiceError(w, err)
		return
	}
	if res.FileName, err = f.optString("file_name"); err != nil {
		writeServiceError(w, err)
		return
	}

	tx, err := h.coordinator.ReceiveResult(r.Context(), res)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
