package service

import (
	"context"
	"testing"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInstanceService_Register(t *testing.T) {
	s := NewInstanceService(newMemInstanceStore(), &recordingPublisher{}, zap.NewNop())
	ctx := context.Background()

	inst := &domain.AgentInstance{MachineID: "WIN-01", OperationalMode: domain.ModeStandalone, PollingFrequency: 10}
	require.NoError(t, s.Register(ctx, inst))
	assert.NotZero(t, inst.ID)

	dup := &domain.AgentInstance{MachineID: "WIN-01", OperationalMode: domain.ModeHeadless, PollingFrequency: 10}
	assert.ErrorIs(t, s.Register(ctx, dup), domain.ErrConflict)
}

func TestInstanceService_RegisterValidation(t *testing.T) {
	s := NewInstanceService(newMemInstanceStore(), &recordingPublisher{}, zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name string
		inst domain.AgentInstance
	}{
		{"no machine id", domain.AgentInstance{OperationalMode: domain.ModeHeadless, PollingFrequency: 1}},
		{"dotted machine id", domain.AgentInstance{MachineID: "win.01", OperationalMode: domain.ModeHeadless, PollingFrequency: 1}},
		{"wildcard machine id", domain.AgentInstance{MachineID: "*", OperationalMode: domain.ModeHeadless, PollingFrequency: 1}},
		{"tail wildcard machine id", domain.AgentInstance{MachineID: ">", OperationalMode: domain.ModeHeadless, PollingFrequency: 1}},
		{"spaced machine id", domain.AgentInstance{MachineID: "win 01", OperationalMode: domain.ModeHeadless, PollingFrequency: 1}},
		{"bad mode", domain.AgentInstance{MachineID: "m", OperationalMode: "DAEMON", PollingFrequency: 1}},
		{"bad frequency", domain.AgentInstance{MachineID: "m", OperationalMode: domain.ModeHeadless}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			inst := tt.inst
			assert.ErrorIs(t, s.Register(ctx, &inst), domain.ErrInvalidInput)
		})
	}
}

func TestInstanceService_ChooseDevice(t *testing.T) {
	instances := newMemInstanceStore()
	instances.add(1, "WIN-01", "A", "B")
	instances.choose(1, "A")
	events := &recordingPublisher{}
	s := NewInstanceService(instances, events, zap.NewNop())
	ctx := context.Background()

	inst, err := s.ChooseDevice(ctx, "WIN-01", "B")
	require.NoError(t, err)
	require.NotNil(t, inst.ChosenDeviceID)

	chosen := 0
	for _, d := range inst.Devices {
		if d.IsChosen {
			chosen++
			assert.Equal(t, "B", d.DeviceName)
			assert.Equal(t, d.ID, *inst.ChosenDeviceID)
		}
	}
	assert.Equal(t, 1, chosen)
	assert.Equal(t, []string{domain.EventUpdatedDevices}, events.names())

	_, err = s.ChooseDevice(ctx, "WIN-01", "Z")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.ChooseDevice(ctx, "WIN-99", "A")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = s.ChooseDevice(ctx, "WIN-01", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestInstanceService_Get(t *testing.T) {
	instances := newMemInstanceStore()
	instances.add(3, "WIN-03", "scanner")
	s := NewInstanceService(instances, &recordingPublisher{}, zap.NewNop())

	inst, err := s.Get(context.Background(), "WIN-03")
	require.NoError(t, err)
	require.Len(t, inst.Devices, 1)
	assert.Equal(t, "scanner", inst.Devices[0].DeviceName)

	_, err = s.Get(context.Background(), "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
