package secondaryd

import (
	"sync"

	"github.com/replogio/replog/internal/replog"
)

// outcome describes what Replicate did with an incoming message, for logging
// and metrics.
type outcome int

const (
	outcomeApplied outcome = iota
	outcomeDuplicate
	outcomeBuffered
)

func (o outcome) String() string {
	switch o {
	case outcomeApplied:
		return "applied"
	case outcomeDuplicate:
		return "duplicate"
	case outcomeBuffered:
		return "buffered"
	default:
		return "unknown"
	}
}

// Log is the secondary's total-order delivery buffer. It reconciles
// out-of-order arrivals, duplicates, and stale retries into a gap-free,
// in-order "delivered" sequence.
//
// delivered always holds exactly the ids [1, nextExpected-1] — a dense,
// gapless prefix — so "id already delivered" and "id < nextExpected" are the
// same condition by construction; there's no separate stale case to handle.
type Log struct {
	mu           sync.Mutex
	delivered    []replog.Message
	pending      map[uint64]replog.Message
	nextExpected uint64
}

// NewLog returns an empty Log expecting id 1 next.
func NewLog() *Log {
	return &Log{pending: make(map[uint64]replog.Message), nextExpected: 1}
}

// Replicate applies msg to the log, handling duplicates and out-of-order
// arrivals, and returns what it did.
func (l *Log) Replicate(msg replog.Message) outcome {
	l.mu.Lock()
	defer l.mu.Unlock()

	switch {
	case msg.ID < l.nextExpected:
		return outcomeDuplicate
	case msg.ID == l.nextExpected:
		l.delivered = append(l.delivered, msg)
		l.nextExpected++
		l.drainPending()
		return outcomeApplied
	default:
		l.pending[msg.ID] = msg
		return outcomeBuffered
	}
}

// drainPending moves every contiguous run starting at nextExpected from
// pending into delivered. Caller must hold mu.
func (l *Log) drainPending() {
	for {
		msg, ok := l.pending[l.nextExpected]
		if !ok {
			return
		}
		delete(l.pending, l.nextExpected)
		l.delivered = append(l.delivered, msg)
		l.nextExpected++
	}
}

// Snapshot returns the delivered sequence, already id-sorted by
// construction. pending is deliberately not exposed.
func (l *Log) Snapshot() []replog.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]replog.Message, len(l.delivered))
	copy(out, l.delivered)
	return out
}

// PendingSize reports how many messages are currently buffered awaiting a
// contiguous predecessor, for the replog_pending_buffer_size gauge.
func (l *Log) PendingSize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.pending)
}
