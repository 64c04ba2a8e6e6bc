package service

import (
	"context"
	"errors"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"go.uber.org/zap"
)

type InstanceService struct {
	store  domain.InstanceStore
	events domain.EventPublisher
	logger *zap.Logger
}

func NewInstanceService(s domain.InstanceStore, events domain.EventPublisher, logger *zap.Logger) *InstanceService {
	return &InstanceService{store: s, events: events, logger: logger}
}

func (s *InstanceService) Register(ctx context.Context, inst *domain.AgentInstance) error {
	if inst.MachineID == "" {
		return domain.Missing("machine_id")
	}
	if !domain.ValidMachineID(inst.MachineID) {
		return domain.InvalidInput("machine_id may only contain letters, digits, '-' and '_' (at most %d characters)", domain.MaxMachineIDLength)
	}
	if !domain.ValidOperationalMode(string(inst.OperationalMode)) {
		return domain.InvalidInput("operational_mode must be HEADLESS or STANDALONE")
	}
	if inst.PollingFrequency <= 0 {
		return domain.InvalidInput("polling_frequency must be a positive integer")
	}

	if err := s.store.Create(ctx, inst); err != nil {
		if errors.Is(err, store.ErrConflict) {
			return domain.Conflict("instance %q already exists", inst.MachineID)
		}
		return internalError(s.logger, "register_instance", err, "failed to register instance",
			zap.String("machine_id", inst.MachineID))
	}
	inst.Devices = []domain.AvailableDevice{}
	return nil
}

func (s *InstanceService) List(ctx context.Context) ([]domain.AgentInstance, error) {
	instances, err := s.store.List(ctx)
	if err != nil {
		return nil, internalError(s.logger, "list_instances", err, "failed to list instances")
	}
	if instances == nil {
		instances = []domain.AgentInstance{}
	}
	return instances, nil
}

// Get returns the instance with its devices.
func (s *InstanceService) Get(ctx context.Context, machineID string) (*domain.AgentInstance, error) {
	inst, err := s.store.GetByMachineID(ctx, machineID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("instance %q not found", machineID)
		}
		return nil, internalError(s.logger, "get_instance", err, "failed to get instance",
			zap.String("machine_id", machineID))
	}
	inst.Devices, err = s.store.ListDevices(ctx, inst.ID)
	if err != nil {
		return nil, internalError(s.logger, "get_instance", err, "failed to list devices",
			zap.String("machine_id", machineID))
	}
	return inst, nil
}

// ChooseDevice makes deviceName the instance's only chosen device.
func (s *InstanceService) ChooseDevice(ctx context.Context, machineID, deviceName string) (*domain.AgentInstance, error) {
	if deviceName == "" {
		return nil, domain.Missing("device_name")
	}
	inst, err := s.store.GetByMachineID(ctx, machineID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("instance %q not found", machineID)
		}
		return nil, internalError(s.logger, "choose_device", err, "failed to get instance",
			zap.String("machine_id", machineID))
	}

	updated, err := s.store.ChooseDevice(ctx, inst.ID, deviceName)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("device %q not found on instance %q", deviceName, machineID)
		}
		return nil, internalError(s.logger, "choose_device", err, "failed to choose device",
			zap.String("machine_id", machineID), zap.String("device_name", deviceName))
	}

	s.events.Publish(domain.EventUpdatedDevices, updated)
	return updated, nil
}
