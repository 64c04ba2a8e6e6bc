package domain

import (
	"encoding/json"
	"time"
)

type TransactionStatus string

const (
	StatusStarted   TransactionStatus = "STARTED"
	StatusForwarded TransactionStatus = "FORWARDED"
	StatusFinished  TransactionStatus = "FINISHED"
	StatusFailed    TransactionStatus = "FAILED"
)

func ValidTransactionStatus(s string) bool {
	switch TransactionStatus(s) {
	case StatusStarted, StatusForwarded, StatusFinished, StatusFailed:
		return true
	}
	return false
}

// transitions lists every allowed status change. FINISHED and FAILED have no outgoing edges.
var transitions = map[TransactionStatus][]TransactionStatus{
	StatusStarted:   {StatusForwarded, StatusFailed},
	StatusForwarded: {StatusFinished, StatusFailed},
}

func (s TransactionStatus) Terminal() bool {
	return s == StatusFinished || s == StatusFailed
}

func CanTransition(from, to TransactionStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// RemoteTransaction tracks one unit of work sent to an agent instance.
type RemoteTransaction struct {
	ID               int64             `json:"id"`
	InitiatorID      int64             `json:"initiator_id"`
	TargetInstanceID int64             `json:"target_instance_id"`
	DocumentTypeID   int64             `json:"document_type_id"`
	FileName         string            `json:"file_name"`
	Status           TransactionStatus `json:"status"`
	// CorrelationID routes the asynchronous result back to the requesting subscriber.
	CorrelationID string    `json:"socket_id"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewTransaction is the ledger input. Pointer fields are nil when absent from the request.
type NewTransaction struct {
	InitiatorKey     string
	TargetInstanceID *int64
	DocumentTypeID   *int64
	FileName         *string
	CorrelationID    string
}

type ProcessingCommand = NewTransaction

// ProcessingResult is what an agent posts back once it has processed a document.
type ProcessingResult struct {
	TransactionID  int64
	DocumentTypeID *int64
	FileName       *string
	Result         json.RawMessage
}

// DispatchCommand is the message sent to an agent instance.
type DispatchCommand struct {
	TransactionID  int64  `json:"transaction_id"`
	DocumentTypeID int64  `json:"document_type_id"`
	FileName       string `json:"file_name"`
}

// ResultMessage is delivered to the initiator identified by the transaction's correlation id.
type ResultMessage struct {
	TransactionID  int64           `json:"transaction_id"`
	DocumentTypeID int64           `json:"document_type_id"`
	FileName       string          `json:"file_name"`
	Result         json.RawMessage `json:"ocr_result"`
}
