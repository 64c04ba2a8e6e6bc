package domain

import (
	"context"
	"time"
)

type InitiatorStore interface {
	Create(ctx context.Context, i *Initiator) error
	GetByKey(ctx context.Context, key string) (*Initiator, error)
	ExistsByKey(ctx context.Context, key string) (bool, error)
}

type DocumentTypeStore interface {
	GetByID(ctx context.Context, id int64) (*DocumentType, error)
}

type InstanceStore interface {
	Create(ctx context.Context, inst *AgentInstance) error
	GetByID(ctx context.Context, id int64) (*AgentInstance, error)
	GetByMachineID(ctx context.Context, machineID string) (*AgentInstance, error)
	List(ctx context.Context) ([]AgentInstance, error)
	ListDevices(ctx context.Context, instanceID int64) ([]AvailableDevice, error)
	// ReconcileDevices applies DiffDevices(current, reported) atomically and returns the
	// instance with its resulting device set.
	ReconcileDevices(ctx context.Context, instanceID int64, reported []string) (*AgentInstance, DeviceDiff, error)
	ChooseDevice(ctx context.Context, instanceID int64, deviceName string) (*AgentInstance, error)
}

type TransactionStore interface {
	Create(ctx context.Context, tx *RemoteTransaction) error
	GetByID(ctx context.Context, id int64) (*RemoteTransaction, error)
	// List returns transactions newest first. limit <= 0 means no limit.
	List(ctx context.Context, limit int) ([]RemoteTransaction, error)
	// Transition moves a transaction to status if CanTransition allows it.
	Transition(ctx context.Context, id int64, status TransactionStatus) (*RemoteTransaction, error)
	Delete(ctx context.Context, id int64) (*RemoteTransaction, error)
	// FailStale moves every non-terminal transaction last updated before cutoff to FAILED.
	FailStale(ctx context.Context, cutoff time.Time) ([]RemoteTransaction, error)
}
