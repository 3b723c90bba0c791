package journal

import (
	"log/slog"
	"sync"
	"time"
)

// Writer decouples the engine from journal I/O. Appends are enqueued and
// written on a dedicated goroutine; a failed write is retried with backoff
// a bounded number of times and then dropped with a log line. The engine's
// state machine never blocks on the journal.
type Writer struct {
	j       Journal
	log     *slog.Logger
	ch      chan entry
	done    chan struct{}
	once    sync.Once
	retries int
	backoff time.Duration
}

type entry struct {
	transition *TransitionRecord
	trade      *TradeRecord
}

// NewWriter starts the background writer. buffer bounds the queue; when it
// is full new records are dropped (and logged) rather than blocking.
func NewWriter(j Journal, log *slog.Logger, buffer int) *Writer {
	if buffer <= 0 {
		buffer = 256
	}
	w := &Writer{
		j:       j,
		log:     log,
		ch:      make(chan entry, buffer),
		done:    make(chan struct{}),
		retries: 3,
		backoff: 100 * time.Millisecond,
	}
	go w.run()
	return w
}

func (w *Writer) run() {
	defer close(w.done)
	for e := range w.ch {
		w.write(e)
	}
}

func (w *Writer) write(e entry) {
	var err error
	delay := w.backoff
	for attempt := 0; attempt <= w.retries; attempt++ {
		if attempt > 0 {
			time.Sleep(delay)
			delay *= 2
		}
		if e.transition != nil {
			err = w.j.RecordTransition(*e.transition)
		} else {
			err = w.j.RecordTrade(*e.trade)
		}
		if err == nil {
			return
		}
	}
	w.log.Error("journal write dropped after retries", "err", err)
}

func (w *Writer) enqueue(e entry) error {
	select {
	case w.ch <- e:
	default:
		w.log.Error("journal queue full, record dropped")
	}
	return nil
}

func (w *Writer) RecordTransition(r TransitionRecord) error {
	return w.enqueue(entry{transition: &r})
}

func (w *Writer) RecordTrade(r TradeRecord) error {
	return w.enqueue(entry{trade: &r})
}

// Close drains the queue, waits for the writer to finish, and closes the
// underlying journal.
func (w *Writer) Close() error {
	w.once.Do(func() {
		close(w.ch)
	})
	<-w.done
	return w.j.Close()
}

var _ Journal = (*Writer)(nil)
