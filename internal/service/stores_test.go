package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/Harshitk-cp/docrelay/internal/store"
	"github.com/stretchr/testify/mock"
	"go.uber.org/zap"
)

// memInitiatorStore implements domain.InitiatorStore for testing.
type memInitiatorStore struct {
	mu        sync.Mutex
	byKey     map[string]*domain.Initiator
	nextID    int64
	conflicts int // number of upcoming Create calls that report a unique violation
	err       error
}

func newMemInitiatorStore() *memInitiatorStore {
	return &memInitiatorStore{byKey: make(map[string]*domain.Initiator)}
}

func (m *memInitiatorStore) Create(ctx context.Context, i *domain.Initiator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	if m.conflicts > 0 {
		m.conflicts--
		return store.ErrConflict
	}
	if _, ok := m.byKey[i.Key]; ok {
		return store.ErrConflict
	}
	m.nextID++
	i.ID = m.nextID
	i.CreatedAt = time.Now()
	m.byKey[i.Key] = i
	return nil
}

func (m *memInitiatorStore) GetByKey(ctx context.Context, key string) (*domain.Initiator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	i, ok := m.byKey[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return i, nil
}

func (m *memInitiatorStore) ExistsByKey(ctx context.Context, key string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return false, m.err
	}
	_, ok := m.byKey[key]
	return ok, nil
}

// memDocTypeStore implements domain.DocumentTypeStore for testing.
type memDocTypeStore struct {
	types map[int64]*domain.DocumentType
}

func newMemDocTypeStore(ids ...int64) *memDocTypeStore {
	m := &memDocTypeStore{types: make(map[int64]*domain.DocumentType)}
	for _, id := range ids {
		m.types[id] = &domain.DocumentType{ID: id, Name: fmt.Sprintf("type-%d", id)}
	}
	return m
}

func (m *memDocTypeStore) GetByID(ctx context.Context, id int64) (*domain.DocumentType, error) {
	dt, ok := m.types[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return dt, nil
}

// memInstanceStore implements domain.InstanceStore for testing.
type memInstanceStore struct {
	mu           sync.Mutex
	instances    map[int64]*domain.AgentInstance
	devices      map[int64][]domain.AvailableDevice
	nextID       int64
	nextDeviceID int64
	err          error
}

func newMemInstanceStore() *memInstanceStore {
	return &memInstanceStore{
		instances: make(map[int64]*domain.AgentInstance),
		devices:   make(map[int64][]domain.AvailableDevice),
	}
}

// add registers an instance with the given id and device names.
func (m *memInstanceStore) add(id int64, machineID string, deviceNames ...string) *domain.AgentInstance {
	m.mu.Lock()
	defer m.mu.Unlock()
	inst := &domain.AgentInstance{
		ID:               id,
		MachineID:        machineID,
		OperationalMode:  domain.ModeHeadless,
		PollingFrequency: 30,
	}
	m.instances[id] = inst
	if id > m.nextID {
		m.nextID = id
	}
	for _, name := range deviceNames {
		m.nextDeviceID++
		m.devices[id] = append(m.devices[id], domain.AvailableDevice{ID: m.nextDeviceID, InstanceID: id, DeviceName: name})
	}
	return inst
}

// choose marks a device as chosen without going through ChooseDevice.
func (m *memInstanceStore) choose(instanceID int64, name string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.devices[instanceID] {
		if m.devices[instanceID][i].DeviceName == name {
			m.devices[instanceID][i].IsChosen = true
			id := m.devices[instanceID][i].ID
			m.instances[instanceID].ChosenDeviceID = &id
		}
	}
}

func (m *memInstanceStore) deviceNames(instanceID int64) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	var names []string
	for _, d := range m.devices[instanceID] {
		names = append(names, d.DeviceName)
	}
	sort.Strings(names)
	return names
}

func (m *memInstanceStore) copyInstance(id int64) *domain.AgentInstance {
	inst := *m.instances[id]
	inst.Devices = append([]domain.AvailableDevice{}, m.devices[id]...)
	sort.Slice(inst.Devices, func(i, j int) bool { return inst.Devices[i].DeviceName < inst.Devices[j].DeviceName })
	return &inst
}

func (m *memInstanceStore) Create(ctx context.Context, inst *domain.AgentInstance) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	for _, existing := range m.instances {
		if existing.MachineID == inst.MachineID {
			return store.ErrConflict
		}
	}
	m.nextID++
	inst.ID = m.nextID
	stored := *inst
	m.instances[inst.ID] = &stored
	return nil
}

func (m *memInstanceStore) GetByID(ctx context.Context, id int64) (*domain.AgentInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	inst, ok := m.instances[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *inst
	return &c, nil
}

func (m *memInstanceStore) GetByMachineID(ctx context.Context, machineID string) (*domain.AgentInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	for _, inst := range m.instances {
		if inst.MachineID == machineID {
			c := *inst
			return &c, nil
		}
	}
	return nil, store.ErrNotFound
}

func (m *memInstanceStore) List(ctx context.Context) ([]domain.AgentInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.AgentInstance
	for _, inst := range m.instances {
		out = append(out, *inst)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].MachineID < out[j].MachineID })
	return out, nil
}

func (m *memInstanceStore) ListDevices(ctx context.Context, instanceID int64) ([]domain.AvailableDevice, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	return append([]domain.AvailableDevice{}, m.devices[instanceID]...), nil
}

func (m *memInstanceStore) ReconcileDevices(ctx context.Context, instanceID int64, reported []string) (*domain.AgentInstance, domain.DeviceDiff, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, domain.DeviceDiff{}, m.err
	}
	inst, ok := m.instances[instanceID]
	if !ok {
		return nil, domain.DeviceDiff{}, store.ErrNotFound
	}

	diff := domain.DiffDevices(m.devices[instanceID], reported)
	if diff.RemovesChosen(inst.ChosenDeviceID) {
		inst.ChosenDeviceID = nil
	}
	removed := make(map[int64]bool)
	for _, d := range diff.ToRemove {
		removed[d.ID] = true
	}
	var kept []domain.AvailableDevice
	for _, d := range m.devices[instanceID] {
		if !removed[d.ID] {
			kept = append(kept, d)
		}
	}
	for _, name := range diff.ToAdd {
		m.nextDeviceID++
		kept = append(kept, domain.AvailableDevice{ID: m.nextDeviceID, InstanceID: instanceID, DeviceName: name})
	}
	m.devices[instanceID] = kept
	return m.copyInstance(instanceID), diff, nil
}

func (m *memInstanceStore) ChooseDevice(ctx context.Context, instanceID int64, deviceName string) (*domain.AgentInstance, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	inst, ok := m.instances[instanceID]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := false
	for _, d := range m.devices[instanceID] {
		found = found || d.DeviceName == deviceName
	}
	if !found {
		return nil, store.ErrNotFound
	}
	for i := range m.devices[instanceID] {
		d := &m.devices[instanceID][i]
		d.IsChosen = d.DeviceName == deviceName
		if d.IsChosen {
			id := d.ID
			inst.ChosenDeviceID = &id
		}
	}
	return m.copyInstance(instanceID), nil
}

// memTransactionStore implements domain.TransactionStore for testing.
type memTransactionStore struct {
	mu     sync.Mutex
	txs    map[int64]*domain.RemoteTransaction
	nextID int64
	clock  time.Time
	err    error
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{
		txs:   make(map[int64]*domain.RemoteTransaction),
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memTransactionStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memTransactionStore) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.txs)
}

func (m *memTransactionStore) status(id int64) domain.TransactionStatus {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.txs[id].Status
}

func (m *memTransactionStore) Create(ctx context.Context, t *domain.RemoteTransaction) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.nextID++
	t.ID = m.nextID
	t.CreatedAt = m.tick()
	t.UpdatedAt = t.CreatedAt
	stored := *t
	m.txs[t.ID] = &stored
	return nil
}

func (m *memTransactionStore) GetByID(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	c := *t
	return &c, nil
}

func (m *memTransactionStore) List(ctx context.Context, limit int) ([]domain.RemoteTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	out := []domain.RemoteTransaction{}
	for _, t := range m.txs {
		out = append(out, *t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (m *memTransactionStore) Transition(ctx context.Context, id int64, status domain.TransactionStatus) (*domain.RemoteTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	if !domain.CanTransition(t.Status, status) {
		return nil, &store.TransitionError{From: t.Status, To: status}
	}
	t.Status = status
	t.UpdatedAt = m.tick()
	c := *t
	return &c, nil
}

func (m *memTransactionStore) Delete(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	t, ok := m.txs[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	delete(m.txs, id)
	return t, nil
}

func (m *memTransactionStore) FailStale(ctx context.Context, cutoff time.Time) ([]domain.RemoteTransaction, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	var out []domain.RemoteTransaction
	for _, t := range m.txs {
		if !t.Status.Terminal() && t.UpdatedAt.Before(cutoff) {
			t.Status = domain.StatusFailed
			t.UpdatedAt = m.tick()
			out = append(out, *t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type publishedEvent struct {
	Name    string
	Payload any
}

// recordingPublisher implements domain.EventPublisher and keeps every event.
type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(name string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Name: name, Payload: payload})
}

func (p *recordingPublisher) names() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	names := make([]string, len(p.events))
	for i, e := range p.events {
		names[i] = e.Name
	}
	return names
}

// transactionEvents returns the events whose payload is transaction id, in order.
func (p *recordingPublisher) transactionEvents(id int64) []publishedEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []publishedEvent
	for _, e := range p.events {
		if tx, ok := e.Payload.(*domain.RemoteTransaction); ok && tx.ID == id {
			out = append(out, e)
		}
	}
	return out
}

// MockDispatcher mocks domain.AgentDispatcher.
type MockDispatcher struct {
	mock.Mock
}

func (m *MockDispatcher) Dispatch(ctx context.Context, instance *domain.AgentInstance, cmd domain.DispatchCommand) error {
	args := m.Called(ctx, instance, cmd)
	return args.Error(0)
}

// MockForwarder mocks domain.ResultForwarder.
type MockForwarder struct {
	mock.Mock
}

func (m *MockForwarder) Forward(ctx context.Context, correlationID string, msg domain.ResultMessage) error {
	args := m.Called(ctx, correlationID, msg)
	return args.Error(0)
}

// pipeline bundles a fully wired set of services over in-memory stores.
type pipeline struct {
	initiators *memInitiatorStore
	instances  *memInstanceStore
	txs        *memTransactionStore
	events     *recordingPublisher
	keys       *KeyIssuer
	ledger     *TransactionLedger
}

func newPipeline() *pipeline {
	p := &pipeline{
		initiators: newMemInitiatorStore(),
		instances:  newMemInstanceStore(),
		txs:        newMemTransactionStore(),
		events:     &recordingPublisher{},
	}
	logger := zap.NewNop()
	p.instances.add(5, "machine-5")
	p.keys = NewKeyIssuer(p.initiators, logger)
	p.ledger = NewTransactionLedger(p.txs, p.keys, p.instances, newMemDocTypeStore(2), p.events, logger)
	return p
}

func int64Ptr(v int64) *int64 { return &v }

func strPtr(v string) *string { return &v }
