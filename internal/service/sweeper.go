package service

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultSweepInterval = 1 * time.Minute
	defaultStaleAfter    = 15 * time.Minute
)

// SweeperService fails transactions left in STARTED or FORWARDED longer than staleAfter,
// so an agent that never answers cannot keep a transaction open forever.
type SweeperService struct {
	ledger *TransactionLedger
	logger *zap.Logger

	interval   time.Duration
	staleAfter time.Duration
	now        func() time.Time
	stopCh     chan struct{}
	wg         sync.WaitGroup
}

func NewSweeperService(ledger *TransactionLedger, logger *zap.Logger) *SweeperService {
	return &SweeperService{
		ledger:     ledger,
		logger:     logger,
		interval:   defaultSweepInterval,
		staleAfter: defaultStaleAfter,
		now:        time.Now,
		stopCh:     make(chan struct{}),
	}
}

func (s *SweeperService) SetInterval(d time.Duration) {
	s.interval = d
}

func (s *SweeperService) SetStaleAfter(d time.Duration) {
	s.staleAfter = d
}

// Start runs the sweeper on a periodic schedule in a background goroutine.
func (s *SweeperService) Start() {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		s.logger.Info("transaction sweeper started",
			zap.Duration("interval", s.interval),
			zap.Duration("stale_after", s.staleAfter))

		for {
			select {
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
				s.run(ctx)
				cancel()
			case <-s.stopCh:
				s.logger.Info("transaction sweeper stopped")
				return
			}
		}
	}()
}

// Stop gracefully stops the sweeper.
func (s *SweeperService) Stop() {
	close(s.stopCh)
	s.wg.Wait()
}

func (s *SweeperService) run(ctx context.Context) int {
	cutoff := s.now().Add(-s.staleAfter)
	failed, err := s.ledger.FailStale(ctx, cutoff)
	if err != nil {
		// already logged by the ledger
		return 0
	}
	for _, tx := range failed {
		s.logger.Warn("failed stale transaction",
			zap.Int64("transaction_id", tx.ID),
			zap.Int64("target_instance_id", tx.TargetInstanceID),
			zap.Time("created_at", tx.CreatedAt))
	}
	return len(failed)
}
