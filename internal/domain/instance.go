package domain

import (
	"regexp"
	"sort"
	"time"
)

type OperationalMode string

const (
	ModeHeadless   OperationalMode = "HEADLESS"
	ModeStandalone OperationalMode = "STANDALONE"
)

func ValidOperationalMode(m string) bool {
	switch OperationalMode(m) {
	case ModeHeadless, ModeStandalone:
		return true
	}
	return false
}

// MaxMachineIDLength bounds a machine id.
const MaxMachineIDLength = 128

// A machine id becomes one token of the agent's NATS subject, so it must not
// contain separators, wildcards or whitespace.
var machineIDPattern = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

func ValidMachineID(id string) bool {
	return len(id) <= MaxMachineIDLength && machineIDPattern.MatchString(id)
}

// AgentInstance is a registered remote executor (a Windows app instance).
type AgentInstance struct {
	ID               int64           `json:"id"`
	MachineID        string          `json:"machine_id"`
	OperationalMode  OperationalMode `json:"operational_mode"`
	PollingFrequency int             `json:"polling_frequency"`
	// ChosenDeviceID is nil when no device is selected.
	ChosenDeviceID *int64            `json:"chosen_device_id"`
	Devices        []AvailableDevice `json:"devices,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

type AvailableDevice struct {
	ID         int64  `json:"id"`
	InstanceID int64  `json:"instance_id"`
	DeviceName string `json:"device_name"`
	IsChosen   bool   `json:"is_chosen"`
}

// DeviceDiff is the change set produced by comparing stored devices to a report.
type DeviceDiff struct {
	ToAdd    []string          `json:"added"`
	ToRemove []AvailableDevice `json:"removed"`
}

func (d DeviceDiff) Empty() bool {
	return len(d.ToAdd) == 0 && len(d.ToRemove) == 0
}

// RemovesChosen reports whether the diff deletes the device marked as chosen.
func (d DeviceDiff) RemovesChosen(chosenID *int64) bool {
	for _, dev := range d.ToRemove {
		if dev.IsChosen || (chosenID != nil && dev.ID == *chosenID) {
			return true
		}
	}
	return false
}

// DiffDevices computes reported minus current (to add) and current minus reported
// (to remove). Both sides are sorted by device name.
func DiffDevices(current []AvailableDevice, reported []string) DeviceDiff {
	want := make(map[string]struct{}, len(reported))
	for _, name := range reported {
		want[name] = struct{}{}
	}
	have := make(map[string]struct{}, len(current))

	var diff DeviceDiff
	for _, dev := range current {
		have[dev.DeviceName] = struct{}{}
		if _, ok := want[dev.DeviceName]; !ok {
			diff.ToRemove = append(diff.ToRemove, dev)
		}
	}
	for name := range want {
		if _, ok := have[name]; !ok {
			diff.ToAdd = append(diff.ToAdd, name)
		}
	}

	sort.Strings(diff.ToAdd)
	sort.Slice(diff.ToRemove, func(i, j int) bool {
		return diff.ToRemove[i].DeviceName < diff.ToRemove[j].DeviceName
	})
	return diff
}

// Reconciliation is the outcome of applying a device report to an instance.
type Reconciliation struct {
	Instance *AgentInstance `json:"instance"`
	Diff     DeviceDiff     `json:"changes"`
}
