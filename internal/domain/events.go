package domain

import (
	"context"
	"time"
)

const (
	EventNewTransaction     = "new_transaction"
	EventUpdatedTransaction = "updated_transaction"
	EventDeletedTransaction = "deleted_transaction"
	EventUpdatedDevices     = "updated_devices"
	EventNewClientLog       = "new_client_log"
	EventProcessingResult   = "processing_result"
)

// EventPublisher fans mutations out to live subscribers. Publish must not block.
type EventPublisher interface {
	Publish(name string, payload any)
}

// ResultForwarder delivers a processing result to the subscriber behind a correlation id.
type ResultForwarder interface {
	Forward(ctx context.Context, correlationID string, msg ResultMessage) error
}

// AgentDispatcher hands a command to a remote agent instance and returns once the agent
// has acknowledged it.
type AgentDispatcher interface {
	Dispatch(ctx context.Context, instance *AgentInstance, cmd DispatchCommand) error
}

type ClientLog struct {
	MachineID string    `json:"machine_id"`
	Level     string    `json:"level"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}
