package journal

import (
	"errors"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskgate/order"
)

// flakyJournal fails the first failures calls to RecordTransition.
type flakyJournal struct {
	mu          sync.Mutex
	failures    int
	transitions []TransitionRecord
	trades      []TradeRecord
}

func (f *flakyJournal) RecordTransition(r TransitionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failures > 0 {
		f.failures--
		return errors.New("disk full")
	}
	f.transitions = append(f.transitions, r)
	return nil
}

func (f *flakyJournal) RecordTrade(r TradeRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.trades = append(f.trades, r)
	return nil
}

func (f *flakyJournal) Close() error { return nil }

func (f *flakyJournal) count() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.transitions), len(f.trades)
}

func TestWriterDeliversAsynchronously(t *testing.T) {
	t.Parallel()

	dst := &flakyJournal{}
	w := NewWriter(dst, slog.Default(), 16)

	require.NoError(t, w.RecordTransition(TransitionRecord{OrderID: "o1", From: order.New, To: order.Placed}))
	require.NoError(t, w.RecordTrade(TradeRecord{TradeID: "t1"}))
	require.NoError(t, w.Close())

	nt, ntr := dst.count()
	assert.Equal(t, 1, nt)
	assert.Equal(t, 1, ntr)
}

func TestWriterRetriesFailedWrites(t *testing.T) {
	t.Parallel()

	dst := &flakyJournal{failures: 2}
	w := NewWriter(dst, slog.Default(), 16)
	w.backoff = time.Millisecond

	require.NoError(t, w.RecordTransition(TransitionRecord{OrderID: "o1", From: order.New, To: order.Placed}))
	require.NoError(t, w.Close())

	nt, _ := dst.count()
	assert.Equal(t, 1, nt, "write must survive transient journal failures")
}

func TestWriterGivesUpAfterBoundedRetries(t *testing.T) {
	t.Parallel()

	dst := &flakyJournal{failures: 100}
	w := NewWriter(dst, slog.Default(), 16)
	w.backoff = time.Millisecond

	require.NoError(t, w.RecordTransition(TransitionRecord{OrderID: "o1"}))
	require.NoError(t, w.Close())

	nt, _ := dst.count()
	assert.Equal(t, 0, nt, "record dropped after bounded retries")
}

func TestWriterNeverBlocksWhenQueueFull(t *testing.T) {
	t.Parallel()

	dst := &flakyJournal{failures: 1000}
	w := NewWriter(dst, slog.Default(), 1)
	w.backoff = 10 * time.Millisecond

	done := make(chan struct{})
	go func() {
		for i := 0; i < 50; i++ {
			w.RecordTransition(TransitionRecord{OrderID: "o1"})
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("writer blocked the caller")
	}
	w.Close()
}
