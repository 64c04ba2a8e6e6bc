package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"go.uber.org/zap"
)

// ProcessingCoordinator runs the initiator -> agent -> initiator round trip. Submit
// returns as soon as the agent acknowledges the command; the result arrives later
// through ReceiveResult and is matched by transaction id alone.
type ProcessingCoordinator struct {
	ledger     *TransactionLedger
	instances  domain.InstanceStore
	dispatcher domain.AgentDispatcher
	forwarder  domain.ResultForwarder
	logger     *zap.Logger
}

func NewProcessingCoordinator(
	ledger *TransactionLedger,
	is domain.InstanceStore,
	dispatcher domain.AgentDispatcher,
	forwarder domain.ResultForwarder,
	logger *zap.Logger,
) *ProcessingCoordinator {
	return &ProcessingCoordinator{
		ledger:     ledger,
		instances:  is,
		dispatcher: dispatcher,
		forwarder:  forwarder,
		logger:     logger,
	}
}

func validateCommand(cmd domain.ProcessingCommand) error {
	if cmd.TargetInstanceID == nil {
		return domain.Missing("target_instance_id")
	}
	if cmd.DocumentTypeID == nil {
		return domain.Missing("document_type_id")
	}
	if cmd.FileName == nil || *cmd.FileName == "" {
		return domain.Missing("file_name")
	}
	return nil
}

// Submit creates a transaction and dispatches it to the target instance. A dispatch
// failure moves the transaction to FAILED before returning.
func (c *ProcessingCoordinator) Submit(ctx context.Context, cmd domain.ProcessingCommand) (*domain.RemoteTransaction, error) {
	if err := validateCommand(cmd); err != nil {
		return nil, err
	}

	tx, err := c.ledger.Create(ctx, cmd)
	if err != nil {
		return nil, err
	}

	// Bookkeeping after dispatch must survive a cancelled request.
	bg := context.WithoutCancel(ctx)
	log := c.logger.With(zap.Int64("transaction_id", tx.ID), zap.Int64("target_instance_id", tx.TargetInstanceID))

	if err := c.dispatch(ctx, tx); err != nil {
		log.Error("dispatch to agent failed", zap.Error(err))
		if _, ferr := c.ledger.Transition(bg, tx.ID, domain.StatusFailed); ferr != nil {
			// A result can land before a timed-out acknowledgement; the agent did get the job.
			if current, ok := c.acceptedByAgent(bg, tx.ID); ok {
				log.Warn("dispatch reported failure but agent already answered", zap.String("status", string(current.Status)))
				return current, nil
			}
			log.Error("failed to record dispatch failure", zap.Error(ferr))
		}
		return nil, domain.Internal("failed to dispatch to agent")
	}

	forwarded, err := c.ledger.MarkForwarded(bg, tx.ID)
	if err != nil {
		log.Error("failed to mark transaction forwarded", zap.Error(err))
		if isKind(err) && !errors.Is(err, domain.ErrInternal) {
			return nil, err
		}
		return nil, domain.Internal("failed to record dispatch")
	}

	log.Info("transaction forwarded to agent", zap.String("status", string(forwarded.Status)))
	return forwarded, nil
}

func (c *ProcessingCoordinator) acceptedByAgent(ctx context.Context, id int64) (*domain.RemoteTransaction, bool) {
	current, err := c.ledger.GetByID(ctx, id)
	if err != nil {
		return nil, false
	}
	return current, current.Status == domain.StatusForwarded || current.Status == domain.StatusFinished
}

func (c *ProcessingCoordinator) dispatch(ctx context.Context, tx *domain.RemoteTransaction) error {
	instance, err := c.instances.GetByID(ctx, tx.TargetInstanceID)
	if err != nil {
		return err
	}
	return c.dispatcher.Dispatch(ctx, instance, domain.DispatchCommand{
		TransactionID:  tx.ID,
		DocumentTypeID: tx.DocumentTypeID,
		FileName:       tx.FileName,
	})
}

func missingResultField(res domain.ProcessingResult) string {
	switch {
	case res.DocumentTypeID == nil:
		return "document_type_id"
	case res.FileName == nil || *res.FileName == "":
		return "file_name"
	case len(res.Result) == 0 || string(res.Result) == "null":
		return "ocr_result"
	}
	return ""
}

// ReceiveResult finalises a transaction from the agent's result. Whatever the outcome,
// the referenced transaction is left in a terminal state.
func (c *ProcessingCoordinator) ReceiveResult(ctx context.Context, res domain.ProcessingResult) (*domain.RemoteTransaction, error) {
	if res.TransactionID <= 0 {
		return nil, domain.InvalidInput("transaction-id must be a positive integer")
	}

	bg := context.WithoutCancel(ctx)
	log := c.logger.With(zap.Int64("transaction_id", res.TransactionID))

	if field := missingResultField(res); field != "" {
		c.fail(bg, log, res.TransactionID, "result payload missing "+field)
		return nil, domain.Missing(field)
	}

	tx, err := c.ledger.GetByID(ctx, res.TransactionID)
	if err != nil {
		return nil, err
	}

	if tx.Status == domain.StatusStarted {
		// The agent only learns the id from a dispatch, so a result means the command was
		// accepted even if Submit has not recorded it yet.
		if tx, err = c.ledger.MarkForwarded(bg, tx.ID); err != nil {
			return nil, err
		}
	}

	if tx.Status != domain.StatusForwarded {
		return nil, domain.Conflict("transaction %d is %s, expected %s", tx.ID, tx.Status, domain.StatusForwarded)
	}

	if *res.DocumentTypeID != tx.DocumentTypeID || *res.FileName != tx.FileName {
		c.fail(bg, log, tx.ID, "result payload does not match transaction")
		return nil, domain.InvalidInput("document_type_id and file_name must match transaction %d", tx.ID)
	}

	msg := domain.ResultMessage{
		TransactionID:  tx.ID,
		DocumentTypeID: tx.DocumentTypeID,
		FileName:       tx.FileName,
		Result:         res.Result,
	}
	if err := c.forwarder.Forward(ctx, tx.CorrelationID, msg); err != nil {
		log.Error("failed to forward result to initiator", zap.String("correlation_id", tx.CorrelationID), zap.Error(err))
		c.fail(bg, log, tx.ID, "result forwarding failed")
		return nil, domain.Internal("failed to deliver result to initiator")
	}

	finished, err := c.ledger.Transition(bg, tx.ID, domain.StatusFinished)
	if err != nil {
		return nil, err
	}

	log.Info("transaction finished")
	return finished, nil
}

func (c *ProcessingCoordinator) fail(ctx context.Context, log *zap.Logger, id int64, reason string) {
	log.Warn("failing transaction", zap.String("reason", reason))
	if _, err := c.ledger.Transition(ctx, id, domain.StatusFailed); err != nil {
		log.Warn("could not record transaction failure", zap.Error(err))
	}
}
