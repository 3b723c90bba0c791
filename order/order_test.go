package order

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/riskgate/market"
)

func newOrder() *Order {
	return NewOrder("o1", "t1", "EURUSD", market.Buy, 0.25)
}

func TestFreshOrderStartsNew(t *testing.T) {
	t.Parallel()

	o := newOrder()
	assert.Equal(t, New, o.State())
	assert.Empty(t, o.Transitions())
}

func TestLegalPathsToClosed(t *testing.T) {
	t.Parallel()

	paths := [][]State{
		{Placed, Filled, Closed},
		{Placed, PartiallyFilled, Filled, Closed},
	}

	for _, path := range paths {
		o := newOrder()
		for _, s := range path {
			require.NoError(t, o.Transition(s, time.Now()), "path %v step %s", path, s)
		}
		assert.Equal(t, Closed, o.State())
		assert.True(t, o.State().Terminal())
		assert.Len(t, o.Transitions(), len(path))
	}
}

func TestIllegalTransitionsRejected(t *testing.T) {
	t.Parallel()

	all := []State{New, Placed, PartiallyFilled, Filled, Closed, Rejected, Expired, Cancelled}

	// Walk the entire from/to grid and check it against the legal table.
	for _, from := range all {
		for _, to := range all {
			o := newOrder()
			o.state = from

			err := o.Transition(to, time.Now())
			if from.canTransitionTo(to) {
				assert.NoError(t, err, "%s -> %s should be legal", from, to)
				continue
			}

			var ierr *IllegalTransitionError
			require.ErrorAs(t, err, &ierr, "%s -> %s should be illegal", from, to)
			assert.Equal(t, from, ierr.From)
			assert.Equal(t, to, ierr.To)
			assert.Equal(t, from, o.State(), "failed transition must not move the order")
		}
	}
}

func TestTerminalStates(t *testing.T) {
	t.Parallel()

	for _, s := range []State{Closed, Rejected, Expired, Cancelled} {
		assert.True(t, s.Terminal(), "%s", s)
		assert.Empty(t, legal[s])
	}
	for _, s := range []State{New, Placed, PartiallyFilled, Filled} {
		assert.False(t, s.Terminal(), "%s", s)
	}
}

func TestTransitionLogIsTimestampedAndOrdered(t *testing.T) {
	t.Parallel()

	o := newOrder()
	t0 := time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

	require.NoError(t, o.Transition(Placed, t0))
	require.NoError(t, o.Transition(Filled, t0.Add(time.Second)))
	require.NoError(t, o.Transition(Closed, t0.Add(2*time.Second)))

	log := o.Transitions()
	require.Len(t, log, 3)
	assert.Equal(t, Transition{New, Placed, t0}, log[0])
	assert.Equal(t, Transition{Placed, Filled, t0.Add(time.Second)}, log[1])
	assert.Equal(t, Transition{Filled, Closed, t0.Add(2 * time.Second)}, log[2])
}

func TestJournalCursorDedup(t *testing.T) {
	t.Parallel()

	o := newOrder()
	now := time.Now()
	require.NoError(t, o.Transition(Placed, now))

	pending := o.Unjournaled()
	require.Len(t, pending, 1)
	o.MarkJournaled(len(pending))

	// Already-journaled entries never come back.
	assert.Empty(t, o.Unjournaled())

	require.NoError(t, o.Transition(Filled, now))
	pending = o.Unjournaled()
	require.Len(t, pending, 1)
	assert.Equal(t, Filled, pending[0].To)
	o.MarkJournaled(1)
	assert.Empty(t, o.Unjournaled())

	// An over-advanced cursor clamps instead of panicking later.
	o.MarkJournaled(10)
	assert.Empty(t, o.Unjournaled())
}

func TestFailedTransitionNotLogged(t *testing.T) {
	t.Parallel()

	o := newOrder()
	require.Error(t, o.Transition(Filled, time.Now())) // NEW -> FILLED is illegal
	assert.Empty(t, o.Transitions())
	assert.Empty(t, o.Unjournaled())
}
