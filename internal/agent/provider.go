package agent

import (
	"fmt"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/domain"
	"go.uber.org/zap"
)

// Transport constants
const (
	TransportNATS = "nats"
	TransportMock = "mock"
)

// Options configures NewDispatcher.
type Options struct {
	Transport     string
	NATSURL       string
	SubjectPrefix string
	Timeout       time.Duration
}

// NewDispatcher creates the agent dispatcher for the configured transport. The returned
// close function releases the underlying connection and is never nil.
func NewDispatcher(opts Options, logger *zap.Logger) (domain.AgentDispatcher, func(), error) {
	switch opts.Transport {
	case TransportNATS:
		if opts.NATSURL == "" {
			return nil, nil, fmt.Errorf("NATS_URL is required for nats transport")
		}
		d, err := DialNATS(opts.NATSURL, opts.SubjectPrefix, opts.Timeout, logger)
		if err != nil {
			return nil, nil, err
		}
		return d, d.Close, nil

	case TransportMock:
		logger.Warn("using mock agent dispatcher; commands are acknowledged but never delivered")
		return NewMockDispatcher(), func() {}, nil

	default:
		return nil, nil, fmt.Errorf("unknown agent transport: %s (valid options: nats, mock)", opts.Transport)
	}
}
