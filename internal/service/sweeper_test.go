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

func TestSweeper_FailsOnlyStaleTransactions(t *testing.T) {
	p := newPipeline()
	key := issueKey(t, p)
	ctx := context.Background()

	stale, err := p.ledger.Create(ctx, validNewTransaction(key))
	require.NoError(t, err)
	_, err = p.ledger.Transition(ctx, stale.ID, domain.StatusForwarded)
	require.NoError(t, err)

	// The in-memory clock advances one second per write.
	cutoffPoint := p.txs.clock.Add(500 * time.Millisecond)

	fresh, err := p.ledger.Create(ctx, validNewTransaction(key))
	require.NoError(t, err)

	s := NewSweeperService(p.ledger, zap.NewNop())
	s.SetStaleAfter(10 * time.Minute)
	s.now = func() time.Time { return cutoffPoint.Add(10 * time.Minute) }

	assert.Equal(t, 1, s.run(ctx))
	assert.Equal(t, domain.StatusFailed, p.txs.status(stale.ID))
	assert.Equal(t, domain.StatusStarted, p.txs.status(fresh.ID))

	assert.Equal(t, 0, s.run(ctx), "already failed transactions are not swept again")
}

func TestSweeper_StartStop(t *testing.T) {
	p := newPipeline()
	s := NewSweeperService(p.ledger, zap.NewNop())
	s.SetInterval(5 * time.Millisecond)

	s.Start()
	time.Sleep(20 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		s.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("sweeper did not stop")
	}
}
