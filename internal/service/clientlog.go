package service

import (
	"context"
	"strings"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ClientLogService relays log lines reported by agent instances to live subscribers.
type ClientLogService struct {
	instances domain.InstanceStore
	events    domain.EventPublisher
	logger    *zap.Logger
	now       func() time.Time
}

func NewClientLogService(is domain.InstanceStore, events domain.EventPublisher, logger *zap.Logger) *ClientLogService {
	return &ClientLogService{instances: is, events: events, logger: logger, now: time.Now}
}

func (s *ClientLogService) Record(ctx context.Context, machineID, level, message string) (*domain.ClientLog, error) {
	if message == "" {
		return nil, domain.Missing("message")
	}
	if level == "" {
		level = "info"
	}
	lvl, err := zapcore.ParseLevel(strings.ToLower(level))
	if err != nil || lvl < zapcore.DebugLevel || lvl > zapcore.ErrorLevel {
		return nil, domain.InvalidInput("invalid level %q (expected debug, info, warn or error)", level)
	}

	if _, err := s.instances.GetByMachineID(ctx, machineID); err != nil {
		if isNotFound(err) {
			return nil, domain.NotFound("instance %q not found", machineID)
		}
		return nil, internalError(s.logger, "record_client_log", err, "failed to get instance",
			zap.String("machine_id", machineID))
	}

	entry := &domain.ClientLog{
		MachineID: machineID,
		Level:     lvl.String(),
		Message:   message,
		Timestamp: s.now().UTC(),
	}
	if ce := s.logger.Check(lvl, "client log"); ce != nil {
		ce.Write(zap.String("machine_id", machineID), zap.String("message", message))
	}
	s.events.Publish(domain.EventNewClientLog, entry)
	return entry, nil
}
