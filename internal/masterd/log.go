package masterd

import (
	"sort"
	"sync"

	"github.com/replogio/replog/internal/replog"
)

// Log is the master's append-only record of every message it has accepted.
// Id assignment and append happen inside the same critical section so that
// the stored sequence is always a dense, gapless prefix — there's no later
// reordering step to get wrong.
type Log struct {
	mu      sync.Mutex
	nextID  uint64
	entries []replog.Message
}

// NewLog returns an empty Log with ids starting at 1.
func NewLog() *Log {
	return &Log{nextID: 1}
}

// Append assigns the next id to text, records it, and returns the stored
// Message. Safe for concurrent use.
func (l *Log) Append(text string) replog.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	msg := replog.Message{ID: l.nextID, Text: text}
	l.nextID++
	l.entries = append(l.entries, msg)
	return msg
}

// Snapshot returns a consistent, id-sorted copy of every message appended so
// far.
func (l *Log) Snapshot() []replog.Message {
	l.mu.Lock()
	defer l.mu.Unlock()

	out := make([]replog.Message, len(l.entries))
	copy(out, l.entries)
	sort.Sort(replog.ByID(out))
	return out
}
