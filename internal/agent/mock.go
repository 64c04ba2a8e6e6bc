package agent

import (
	"context"
	"sync"

	"github.com/Harshitk-cp/docrelay/internal/domain"
)

// DispatchCall records one Dispatch invocation.
type DispatchCall struct {
	MachineID string
	Command   domain.DispatchCommand
}

// MockDispatcher acknowledges every command unless DispatchError is set.
type MockDispatcher struct {
	mu            sync.Mutex
	DispatchError error
	calls         []DispatchCall
}

func NewMockDispatcher() *MockDispatcher {
	return &MockDispatcher{}
}

func (m *MockDispatcher) Dispatch(_ context.Context, instance *domain.AgentInstance, cmd domain.DispatchCommand) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, DispatchCall{MachineID: instance.MachineID, Command: cmd})
	return m.DispatchError
}

func (m *MockDispatcher) Calls() []DispatchCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]DispatchCall, len(m.calls))
	copy(out, m.calls)
	return out
}
