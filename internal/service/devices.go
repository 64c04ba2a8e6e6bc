package service

import (
	"context"
	"strings"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"go.uber.org/zap"
)

// DeviceReconciler synchronises an instance's stored devices with the list the agent reports.
type DeviceReconciler struct {
	instances domain.InstanceStore
	events    domain.EventPublisher
	logger    *zap.Logger
}

func NewDeviceReconciler(is domain.InstanceStore, events domain.EventPublisher, logger *zap.Logger) *DeviceReconciler {
	return &DeviceReconciler{instances: is, events: events, logger: logger}
}

// normalizeReport rejects empty names and collapses duplicates, keeping first-seen order.
func normalizeReport(reported []string) ([]string, error) {
	if reported == nil {
		return nil, domain.Missing("devices")
	}
	seen := make(map[string]struct{}, len(reported))
	out := make([]string, 0, len(reported))
	for i, name := range reported {
		if strings.TrimSpace(name) == "" {
			return nil, domain.InvalidInput("devices[%d] must be a non-empty string", i)
		}
		if _, dup := seen[name]; dup {
			continue
		}
		seen[name] = struct{}{}
		out = append(out, name)
	}
	return out, nil
}

func (r *DeviceReconciler) Reconcile(ctx context.Context, instanceID int64, reported []string) (*domain.Reconciliation, error) {
	names, err := normalizeReport(reported)
	if err != nil {
		return nil, err
	}

	inst, diff, err := r.instances.ReconcileDevices(ctx, instanceID, names)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("instance %d not found", instanceID)
		}
		return nil, internalError(r.logger, "reconcile_devices", err, "failed to reconcile devices",
			zap.Int64("instance_id", instanceID))
	}

	if !diff.Empty() {
		r.logger.Info("devices reconciled",
			zap.Int64("instance_id", instanceID),
			zap.Strings("added", diff.ToAdd),
			zap.Int("removed", len(diff.ToRemove)))
		r.events.Publish(domain.EventUpdatedDevices, inst)
	}

	return &domain.Reconciliation{Instance: inst, Diff: diff}, nil
}

// ReconcileByMachineID resolves the instance by its machine identifier first.
func (r *DeviceReconciler) ReconcileByMachineID(ctx context.Context, machineID string, reported []string) (*domain.Reconciliation, error) {
	if machineID == "" {
		return nil, domain.Missing("machine_id")
	}
	if _, err := normalizeReport(reported); err != nil {
		return nil, err
	}

	inst, err := r.instances.GetByMachineID(ctx, machineID)
	if err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("instance %q not found", machineID)
		}
		return nil, internalError(r.logger, "reconcile_devices", err, "failed to load instance",
			zap.String("machine_id", machineID))
	}
	return r.Reconcile(ctx, inst.ID, reported)
}
