package masterd

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"

	"github.com/replogio/replog/internal/replog"
)

// Engine is the master's top-level value: it owns the Log and the configured
// Workers, and is the only thing the HTTP layer talks to. There is no
// process-wide mutable singleton — every dependency is passed in at
// construction time.
type Engine struct {
	cfg     Config
	log     *Log
	workers []*Worker
	metrics *Metrics
}

// NewEngine builds an Engine with one Worker per configured secondary URL.
// Workers are not started; call RunWorkers to launch them under a supervisor.
func NewEngine(cfg Config, metrics *Metrics) *Engine {
	urls := cfg.Secondaries()
	workers := make([]*Worker, len(urls))
	for i, url := range urls {
		workers[i] = NewWorker(url, cfg, metrics)
	}
	return &Engine{cfg: cfg, log: NewLog(), workers: workers, metrics: metrics}
}

// Workers returns the engine's configured workers, in configuration order.
func (e *Engine) Workers() []*Worker { return e.workers }

// N is the total replica count: the master plus every configured secondary.
func (e *Engine) N() int { return len(e.workers) + 1 }

// RunWorkers launches every configured Worker and blocks until ctx is done
// and all of them have returned. On shutdown more than one worker can fail
// at once (a panic recovered in one, a slow soft-cancel in another), so
// their errors are fanned in and aggregated with go-multierror rather than
// only reporting the first one observed.
func (e *Engine) RunWorkers(ctx context.Context) error {
	errs := make([]error, len(e.workers))

	var wg sync.WaitGroup
	wg.Add(len(e.workers))
	for i, worker := range e.workers {
		i, worker := i, worker
		go func() {
			defer wg.Done()
			if err := worker.Run(ctx); err != nil && err != context.Canceled && err != context.DeadlineExceeded {
				errs[i] = err
			}
		}()
	}
	wg.Wait()

	var result *multierror.Error
	for _, err := range errs {
		if err != nil {
			result = multierror.Append(result, err)
		}
	}
	return result.ErrorOrNil()
}

// ClampW normalizes a client-requested write concern into [1, N], defaulting
// to N when the client didn't specify one. It reports whether the requested
// value (if any) had to be clamped down.
func (e *Engine) ClampW(requested *int) (w int, clamped bool) {
	n := e.N()
	if requested == nil {
		return n, false
	}
	w = *requested
	if w > n {
		clamped = true
	}
	if w < 1 {
		w = 1
	}
	if w > n {
		w = n
	}
	return w, clamped
}

// Write appends text to the log, fans it out to every secondary worker, and
// waits for w-1 secondary acknowledgments (the master itself is the first
// ack) or until timeout elapses (0 meaning wait forever). It returns the
// stored message and the number of acks actually observed.
func (e *Engine) Write(ctx context.Context, text string, w int, timeout time.Duration) (replog.Message, int) {
	msg := e.log.Append(text)
	if e.metrics != nil {
		e.metrics.MessagesAppended.Inc()
	}

	ackSink := make(chan *replog.AckFuture, len(e.workers))
	for _, worker := range e.workers {
		worker.Enqueue(msg, ackSink)
	}

	acks := 1 // the master counts as the first ack
	needed := w - 1
	if needed <= 0 {
		return msg, acks
	}

	var deadline <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		deadline = timer.C
	}

	for needed > 0 {
		select {
		case <-ackSink:
			acks++
			needed--
		case <-deadline:
			return msg, acks
		case <-ctx.Done():
			return msg, acks
		}
	}
	return msg, acks
}

// Snapshot returns the master's full log, id-sorted.
func (e *Engine) Snapshot() []replog.Message {
	return e.log.Snapshot()
}

// Health reports every worker's current status, keyed by secondary URL.
func (e *Engine) Health() map[string]Health {
	out := make(map[string]Health, len(e.workers))
	for _, worker := range e.workers {
		out[worker.URL()] = worker.Status()
	}
	return out
}

// EnqueuePending replays the full log to the worker whose URL matches url,
// for secondary-initiated catch-up. It reports whether a matching worker was
// found.
func (e *Engine) EnqueuePending(url string) bool {
	var target *Worker
	for _, worker := range e.workers {
		if worker.URL() == url {
			target = worker
			break
		}
	}
	if target == nil {
		return false
	}
	for _, msg := range e.log.Snapshot() {
		target.Enqueue(msg, nil)
	}
	return true
}
