package service

import (
	"context"
	"errors"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"go.uber.org/zap"
)

// MaxLatest bounds GetLatest.
const MaxLatest = 1000

// TransactionLedger is the only writer of remote transactions. Every successful
// mutation is published with the full record.
type TransactionLedger struct {
	txStore   domain.TransactionStore
	keys      *KeyIssuer
	instances domain.InstanceStore
	docTypes  domain.DocumentTypeStore
	events    domain.EventPublisher
	logger    *zap.Logger
}

func NewTransactionLedger(
	ts domain.TransactionStore,
	keys *KeyIssuer,
	is domain.InstanceStore,
	dts domain.DocumentTypeStore,
	events domain.EventPublisher,
	logger *zap.Logger,
) *TransactionLedger {
	return &TransactionLedger{
		txStore:   ts,
		keys:      keys,
		instances: is,
		docTypes:  dts,
		events:    events,
		logger:    logger,
	}
}

func validateNewTransaction(in domain.NewTransaction) error {
	if in.InitiatorKey == "" {
		return domain.Missing("initiator_key")
	}
	if in.CorrelationID == "" {
		return domain.Missing("correlation_id")
	}
	if in.TargetInstanceID == nil {
		return domain.Missing("target_instance_id")
	}
	if *in.TargetInstanceID <= 0 {
		return domain.InvalidInput("target_instance_id must be a positive integer")
	}
	if in.DocumentTypeID == nil {
		return domain.Missing("document_type_id")
	}
	if *in.DocumentTypeID <= 0 {
		return domain.InvalidInput("document_type_id must be a positive integer")
	}
	if in.FileName == nil || *in.FileName == "" {
		return domain.Missing("file_name")
	}
	return nil
}

// Create records a new STARTED transaction for the initiator owning in.InitiatorKey.
func (l *TransactionLedger) Create(ctx context.Context, in domain.NewTransaction) (*domain.RemoteTransaction, error) {
	if err := validateNewTransaction(in); err != nil {
		return nil, err
	}

	initiator, err := l.keys.Resolve(ctx, in.InitiatorKey)
	if err != nil {
		return nil, err
	}

	if _, err := l.instances.GetByID(ctx, *in.TargetInstanceID); err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("target instance %d not found", *in.TargetInstanceID)
		}
		return nil, internalError(l.logger, "create_transaction", err, "failed to load target instance",
			zap.Int64("target_instance_id", *in.TargetInstanceID))
	}
	if _, err := l.docTypes.GetByID(ctx, *in.DocumentTypeID); err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("document type %d not found", *in.DocumentTypeID)
		}
		return nil, internalError(l.logger, "create_transaction", err, "failed to load document type",
			zap.Int64("document_type_id", *in.DocumentTypeID))
	}

	tx := &domain.RemoteTransaction{
		InitiatorID:      initiator.ID,
		TargetInstanceID: *in.TargetInstanceID,
		DocumentTypeID:   *in.DocumentTypeID,
		FileName:         *in.FileName,
		Status:           domain.StatusStarted,
		CorrelationID:    in.CorrelationID,
	}
	if err := l.txStore.Create(ctx, tx); err != nil {
		if isNotFound(err) {
			// A referenced row disappeared between the checks and the insert.
			return nil, domain.NotFound("referenced instance or document type not found")
		}
		return nil, internalError(l.logger, "create_transaction", err, "failed to create transaction",
			zap.Int64("initiator_id", initiator.ID),
			zap.Int64("target_instance_id", tx.TargetInstanceID))
	}

	l.events.Publish(domain.EventNewTransaction, tx)
	return tx, nil
}

// UpdateStatus applies a status change given as its wire name.
func (l *TransactionLedger) UpdateStatus(ctx context.Context, id int64, status string) (*domain.RemoteTransaction, error) {
	if !domain.ValidTransactionStatus(status) {
		return nil, domain.InvalidInput("invalid status %q (expected STARTED, FORWARDED, FINISHED or FAILED)", status)
	}
	return l.Transition(ctx, id, domain.TransactionStatus(status))
}

func (l *TransactionLedger) Transition(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.RemoteTransaction, error) {
	if id <= 0 {
		return nil, domain.InvalidInput("transaction id must be a positive integer")
	}

	tx, err := l.txStore.Transition(ctx, id, status)
	if err != nil {
		switch {
		case isNotFound(err):
			return nil, domain.NotFound("transaction %d not found", id)
		case errors.Is(err, store.ErrInvalidTransition):
			var te *store.TransitionError
			if errors.As(err, &te) {
				return nil, domain.Conflict("transaction %d cannot move from %s to %s", id, te.From, te.To)
			}
			return nil, domain.Conflict("transaction %d cannot move to %s", id, status)
		default:
			return nil, internalError(l.logger, "update_transaction_status", err, "failed to update transaction",
				zap.Int64("transaction_id", id), zap.String("status", string(status)))
		}
	}

	l.events.Publish(domain.EventUpdatedTransaction, tx)
	return tx, nil
}

// MarkForwarded records that the agent accepted a transaction. The dispatch
// acknowledgement and an early result both call it and serialize on the row lock;
// the later caller gets the row as the earlier one left it.
func (l *TransactionLedger) MarkForwarded(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	tx, err := l.Transition(ctx, id, domain.StatusForwarded)
	if err == nil || !errors.Is(err, domain.ErrConflict) {
		return tx, err
	}

	current, gerr := l.GetByID(ctx, id)
	if gerr != nil {
		return nil, gerr
	}
	if current.Status == domain.StatusForwarded || current.Status == domain.StatusFinished {
		return current, nil
	}
	return nil, err
}

func (l *TransactionLedger) GetLatest(ctx context.Context, n int) ([]domain.RemoteTransaction, error) {
	if n < 1 || n > MaxLatest {
		return nil, domain.InvalidInput("n must be between 1 and %d", MaxLatest)
	}
	txs, err := l.txStore.List(ctx, n)
	if err != nil {
		return nil, internalError(l.logger, "list_transactions", err, "failed to list transactions")
	}
	return txs, nil
}

func (l *TransactionLedger) GetAll(ctx context.Context) ([]domain.RemoteTransaction, error) {
	txs, err := l.txStore.List(ctx, 0)
	if err != nil {
		return nil, internalError(l.logger, "list_transactions", err, "failed to list transactions")
	}
	return txs, nil
}

func (l *TransactionLedger) GetByID(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	if id <= 0 {
		return nil, domain.InvalidInput("transaction id must be a positive integer")
	}
	tx, err := l.txStore.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("transaction %d not found", id)
		}
		return nil, internalError(l.logger, "get_transaction", err, "failed to get transaction",
			zap.Int64("transaction_id", id))
	}
	return tx, nil
}

// Delete removes a transaction. Administrative only.
func (l *TransactionLedger) Delete(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	if id <= 0 {
		return nil, domain.InvalidInput("transaction id must be a positive integer")
	}
	tx, err := l.txStore.Delete(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("transaction %d not found", id)
		}
		return nil, internalError(l.logger, "delete_transaction", err, "failed to delete transaction",
			zap.Int64("transaction_id", id))
	}

	l.events.Publish(domain.EventDeletedTransaction, tx)
	return tx, nil
}

// FailStale fails every STARTED or FORWARDED transaction untouched since cutoff.
func (l *TransactionLedger) FailStale(ctx context.Context, cutoff time.Time) ([]domain.RemoteTransaction, error) {
	txs, err := l.txStore.FailStale(ctx, cutoff)
	if err != nil {
		return nil, internalError(l.logger, "fail_stale_transactions", err, "failed to fail stale transactions")
	}
	for i := range txs {
		l.events.Publish(domain.EventUpdatedTransaction, &txs[i])
	}
	return txs, nil
}
