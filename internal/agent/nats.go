package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/Harshitk-cp/docrelay/internal/buildconfig"
	"github.com/Harshitk-cp/docrelay/internal/domain"
	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	DefaultSubjectPrefix = "docrelay.agent"
	DefaultTimeout       = 10 * time.Second
)

var (
	ErrAgentUnavailable = errors.New("agent unavailable")
	ErrAgentRejected    = errors.New("agent rejected command")
	ErrInvalidMachineID = errors.New("machine id is not a valid subject token")
)

// Ack is the reply an agent sends for a dispatched command.
type Ack struct {
	Accepted bool   `json:"accepted"`
	Error    string `json:"error,omitempty"`
}

// NATSDispatcher delivers commands to agents with NATS request/reply. Each agent
// subscribes to <prefix>.<machine_id>.process.
type NATSDispatcher struct {
	nc      *nats.Conn
	owned   bool
	prefix  string
	timeout time.Duration
	logger  *zap.Logger
}

// DialNATS connects to url and returns a dispatcher owning the connection.
func DialNATS(url, prefix string, timeout time.Duration, logger *zap.Logger) (*NATSDispatcher, error) {
	nc, err := nats.Connect(url,
		nats.Name(buildconfig.ClientName()),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", c.ConnectedUrl()))
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats: %w", err)
	}
	d := NewNATSDispatcher(nc, prefix, timeout, logger)
	d.owned = true
	return d, nil
}

func NewNATSDispatcher(nc *nats.Conn, prefix string, timeout time.Duration, logger *zap.Logger) *NATSDispatcher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &NATSDispatcher{nc: nc, prefix: prefix, timeout: timeout, logger: logger}
}

// Subject returns the subject an agent with machineID listens on.
func (d *NATSDispatcher) Subject(machineID string) string {
	return d.prefix + "." + machineID + ".process"
}

func (d *NATSDispatcher) Dispatch(ctx context.Context, instance *domain.AgentInstance, cmd domain.DispatchCommand) error {
	if !domain.ValidMachineID(instance.MachineID) {
		return fmt.Errorf("%w: %q", ErrInvalidMachineID, instance.MachineID)
	}

	data, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("marshal command: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	subject := d.Subject(instance.MachineID)
	msg, err := d.nc.RequestWithContext(ctx, subject, data)
	if err != nil {
		if errors.Is(err, nats.ErrNoResponders) || errors.Is(err, context.DeadlineExceeded) || errors.Is(err, nats.ErrTimeout) {
			return fmt.Errorf("%w: %s: %v", ErrAgentUnavailable, subject, err)
		}
		return fmt.Errorf("request %s: %w", subject, err)
	}

	var ack Ack
	if err := json.Unmarshal(msg.Data, &ack); err != nil {
		return fmt.Errorf("decode agent ack: %w", err)
	}
	if !ack.Accepted {
		return fmt.Errorf("%w: %s", ErrAgentRejected, ack.Error)
	}

	d.logger.Debug("command acknowledged by agent",
		zap.String("subject", subject),
		zap.Int64("transaction_id", cmd.TransactionID))
	return nil
}

// Close drains the connection if the dispatcher opened it.
func (d *NATSDispatcher) Close() {
	if !d.owned {
		return
	}
	if err := d.nc.Drain(); err != nil {
		d.logger.Warn("nats drain failed", zap.Error(err))
		d.nc.Close()
	}
}
