package handlers

import (
	"context"
	"net/http"
	"strconv"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/go-chi/chi/v5"
)

// Ledger is the read and administrative surface of the transaction ledger.
type Ledger interface {
	GetAll(ctx context.Context) ([]domain.RemoteTransaction, error)
	GetLatest(ctx context.Context, n int) ([]domain.RemoteTransaction, error)
	GetByID(ctx context.Context, id int64) (*domain.RemoteTransaction, error)
	UpdateStatus(ctx context.Context, id int64, status string) (*domain.RemoteTransaction, error)
	Delete(ctx context.Context, id int64) (*domain.RemoteTransaction, error)
}

type TransactionHandler struct {
	ledger Ledger
}

func NewTransactionHandler(l Ledger) *TransactionHandler {
	return &TransactionHandler{ledger: l}
}

func writeTransactions(w http.ResponseWriter, txs []domain.RemoteTransaction, err error) {
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if txs == nil {
		txs = []domain.RemoteTransaction{}
	}
	writeJSON(w, http.StatusOK, txs)
}

func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	txs, err := h.ledger.GetAll(r.Context())
	writeTransactions(w, txs, err)
}

func (h *TransactionHandler) Latest(w http.ResponseWriter, r *http.Request) {
	n, err := strconv.Atoi(chi.URLParam(r, "n"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "n must be an integer")
		return
	}
	txs, err := h.ledger.GetLatest(r.Context(), n)
	writeTransactions(w, txs, err)
}

func (h *TransactionHandler) GetByID(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	tx, err := h.ledger.GetByID(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	status, err := f.reqString("status")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	tx, err := h.ledger.UpdateStatus(r.Context(), id, status)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}

func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := idParam(r, "id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	tx, err := h.ledger.Delete(r.Context(), id)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, tx)
}
