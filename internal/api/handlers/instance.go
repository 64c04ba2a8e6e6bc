package handlers

import (
	"context"
	"net/http"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/go-chi/chi/v5"
)

type InstanceService interface {
	Register(ctx context.Context, inst *domain.AgentInstance) error
	List(ctx context.Context) ([]domain.AgentInstance, error)
	Get(ctx context.Context, machineID string) (*domain.AgentInstance, error)
	ChooseDevice(ctx context.Context, machineID, deviceName string) (*domain.AgentInstance, error)
}

type DeviceReconciler interface {
	ReconcileByMachineID(ctx context.Context, machineID string, reported []string) (*domain.Reconciliation, error)
}

type ClientLogRecorder interface {
	Record(ctx context.Context, machineID, level, message string) (*domain.ClientLog, error)
}

type InstanceHandler struct {
	instances InstanceService
	devices   DeviceReconciler
	logs      ClientLogRecorder
}

func NewInstanceHandler(instances InstanceService, devices DeviceReconciler, logs ClientLogRecorder) *InstanceHandler {
	return &InstanceHandler{instances: instances, devices: devices, logs: logs}
}

func (h *InstanceHandler) Register(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	machineID, err := f.reqString("machine_id")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	mode, err := f.reqString("operational_mode")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	freq, err := f.optInt("polling_frequency")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if freq == nil {
		writeServiceError(w, domain.Missing("polling_frequency"))
		return
	}

	inst := &domain.AgentInstance{
		MachineID:        machineID,
		OperationalMode:  domain.OperationalMode(mode),
		PollingFrequency: *freq,
	}
	if err := h.instances.Register(r.Context(), inst); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, inst)
}

func (h *InstanceHandler) List(w http.ResponseWriter, r *http.Request) {
	instances, err := h.instances.List(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, instances)
}

func (h *InstanceHandler) Get(w http.ResponseWriter, r *http.Request) {
	inst, err := h.instances.Get(r.Context(), chi.URLParam(r, "machineId"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

func (h *InstanceHandler) ChooseDevice(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	name, err := f.reqString("device_name")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	inst, err := h.instances.ChooseDevice(r.Context(), chi.URLParam(r, "machineId"), name)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, inst)
}

// ReportDevices reconciles the stored device list with the one the agent reports.
func (h *InstanceHandler) ReportDevices(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	devices, err := f.stringSlice("devices")
	if err != nil {
		writeServiceError(w, err)
		return
	}

	result, err := h.devices.ReconcileByMachineID(r.Context(), chi.URLParam(r, "machineId"), devices)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (h *InstanceHandler) Log(w http.ResponseWriter, r *http.Request) {
	f, err := decodeFields(w, r)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	level, err := f.optString("level")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	message, err := f.reqString("message")
	if err != nil {
		writeServiceError(w, err)
		return
	}
	lvl := ""
	if level != nil {
		lvl = *level
	}

	entry, err := h.logs.Record(r.Context(), chi.URLParam(r, "machineId"), lvl, message)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusAccepted, entry)
}
