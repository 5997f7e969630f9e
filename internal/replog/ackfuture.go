package replog

import (
	"context"
	"sync"
)

// AckFuture is a one-shot, thread-safe completion signal. It is created when
// a message is enqueued for a secondary and is completed exactly once, when
// the secondary durably acknowledges the message. A failed attempt never
// completes the future; the worker simply retries, so there is no "false"
// outcome to observe — only "not yet" and "yes".
type AckFuture struct {
	once sync.Once
	done chan struct{}
}

// NewAckFuture returns a future in its incomplete state.
func NewAckFuture() *AckFuture {
	return &AckFuture{done: make(chan struct{})}
}

// Complete marks the future as acknowledged. Safe to call more than once or
// from more than one goroutine; only the first call has an effect.
func (f *AckFuture) Complete() {
	f.once.Do(func() { close(f.done) })
}

// IsSet reports whether Complete has been called, without blocking.
func (f *AckFuture) IsSet() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future completes or ctx is done, returning true in
// the former case and false in the latter.
func (f *AckFuture) Wait(ctx context.Context) bool {
	select {
	case <-f.done:
		return true
	case <-ctx.Done():
		return false
	}
}
