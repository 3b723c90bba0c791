package strategy

import (
	"context"
	"sync"
)

// Replay hands out pre-scripted signal batches, one per poll. It backs
// paper runs and engine tests.
type Replay struct {
	mu      sync.Mutex
	entries [][]Signal
	exits   [][]ExitSignal
	cursor  int
}

// NewReplay builds a source that replays the given batches in order and
// then goes quiet.
func NewReplay() *Replay {
	return &Replay{}
}

// Push appends one polling cycle's worth of signals.
func (r *Replay) Push(entries []Signal, exits []ExitSignal) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = append(r.entries, entries)
	r.exits = append(r.exits, exits)
}

func (r *Replay) Poll(ctx context.Context) ([]Signal, []ExitSignal, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.cursor >= len(r.entries) {
		return nil, nil, nil
	}
	entries := r.entries[r.cursor]
	exits := r.exits[r.cursor]
	r.cursor++
	return entries, exits, nil
}

// Static never emits anything. Useful as a placeholder source.
type Static struct{}

func (Static) Poll(ctx context.Context) ([]Signal, []ExitSignal, error) {
	return nil, nil, ctx.Err()
}
