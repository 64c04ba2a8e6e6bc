package service

import (
	"context"
	"testing"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestClientLogService_Record(t *testing.T) {
	instances := newMemInstanceStore()
	instances.add(1, "WIN-01")
	events := &recordingPublisher{}
	s := NewClientLogService(instances, events, zap.NewNop())
	fixed := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return fixed }

	entry, err := s.Record(context.Background(), "WIN-01", "WARN", "scanner jammed")
	require.NoError(t, err)
	assert.Equal(t, "warn", entry.Level)
	assert.Equal(t, fixed, entry.Timestamp)

	require.Len(t, events.events, 1)
	assert.Equal(t, domain.EventNewClientLog, events.events[0].Name)
	assert.Equal(t, entry, events.events[0].Payload)
}

func TestClientLogService_Validation(t *testing.T) {
	instances := newMemInstanceStore()
	instances.add(1, "WIN-01")
	s := NewClientLogService(instances, &recordingPublisher{}, zap.NewNop())
	ctx := context.Background()

	_, err := s.Record(ctx, "WIN-01", "info", "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Record(ctx, "WIN-01", "fatal", "boom")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Record(ctx, "WIN-01", "verbose", "boom")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = s.Record(ctx, "WIN-02", "info", "hello")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	entry, err := s.Record(ctx, "WIN-01", "", "defaulted")
	require.NoError(t, err)
	assert.Equal(t, "info", entry.Level)
}
