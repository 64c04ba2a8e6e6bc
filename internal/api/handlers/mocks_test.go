package handlers

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/mock"
)

type MockKeyService struct{ mock.Mock }

func (m *MockKeyService) Issue(ctx context.Context) (*domain.Initiator, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Initiator), args.Error(1)
}

func (m *MockKeyService) Validate(ctx context.Context, key string) (bool, error) {
	args := m.Called(ctx, key)
	return args.Bool(0), args.Error(1)
}

type MockCoordinator struct{ mock.Mock }

func (m *MockCoordinator) Submit(ctx context.Context, cmd domain.ProcessingCommand) (*domain.RemoteTransaction, error) {
	args := m.Called(ctx, cmd)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteTransaction), args.Error(1)
}

func (m *MockCoordinator) ReceiveResult(ctx context.Context, res domain.ProcessingResult) (*domain.RemoteTransaction, error) {
	args := m.Called(ctx, res)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteTransaction), args.Error(1)
}

type MockLedger struct{ mock.Mock }

func (m *MockLedger) GetAll(ctx context.Context) ([]domain.RemoteTransaction, error) {
	args := m.Called(ctx)
	txs, _ := args.Get(0).([]domain.RemoteTransaction)
	return txs, args.Error(1)
}

func (m *MockLedger) GetLatest(ctx context.Context, n int) ([]domain.RemoteTransaction, error) {
	args := m.Called(ctx, n)
	txs, _ := args.Get(0).([]domain.RemoteTransaction)
	return txs, args.Error(1)
}

func (m *MockLedger) GetByID(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteTransaction), args.Error(1)
}

func (m *MockLedger) UpdateStatus(ctx context.Context, id int64, status string) (*domain.RemoteTransaction, error) {
	args := m.Called(ctx, id, status)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteTransaction), args.Error(1)
}

func (m *MockLedger) Delete(ctx context.Context, id int64) (*domain.RemoteTransaction, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RemoteTransaction), args.Error(1)
}

type MockInstanceService struct{ mock.Mock }

func (m *MockInstanceService) Register(ctx context.Context, inst *domain.AgentInstance) error {
	return m.Called(ctx, inst).Error(0)
}

func (m *MockInstanceService) List(ctx context.Context) ([]domain.AgentInstance, error) {
	args := m.Called(ctx)
	out, _ := args.Get(0).([]domain.AgentInstance)
	return out, args.Error(1)
}

func (m *MockInstanceService) Get(ctx context.Context, machineID string) (*domain.AgentInstance, error) {
	args := m.Called(ctx, machineID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentInstance), args.Error(1)
}

func (m *MockInstanceService) ChooseDevice(ctx context.Context, machineID, deviceName string) (*domain.AgentInstance, error) {
	args := m.Called(ctx, machineID, deviceName)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.AgentInstance), args.Error(1)
}

type MockDeviceReconciler struct{ mock.Mock }

func (m *MockDeviceReconciler) ReconcileByMachineID(ctx context.Context, machineID string, reported []string) (*domain.Reconciliation, error) {
	args := m.Called(ctx, machineID, reported)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Reconciliation), args.Error(1)
}

type MockClientLogRecorder struct{ mock.Mock }

func (m *MockClientLogRecorder) Record(ctx context.Context, machineID, level, message string) (*domain.ClientLog, error) {
	args := m.Called(ctx, machineID, level, message)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ClientLog), args.Error(1)
}

// serve routes a single request through a chi router so URL params resolve.
func serve(method, pattern, target string, h http.HandlerFunc, body string, header http.Header) *httptest.ResponseRecorder {
	r := chi.NewRouter()
	r.Method(method, pattern, h)

	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}
