package masterd

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/datawire/dlib/derror"
	"github.com/datawire/dlib/dlog"

	"github.com/replogio/replog/internal/replog"
)

// Health is a point-in-time snapshot of a Worker's view of its secondary's
// reachability.
type Health struct {
	Status              string   `json:"status"`
	ConsecutiveFailures int      `json:"consecutive_failures"`
	LastError           string   `json:"last_error"`
	LastSuccessTS       *float64 `json:"last_success_ts"`
}

const (
	statusHealthy   = "healthy"
	statusSuspected = "suspected"
	statusUnhealthy = "unhealthy"
)

type queueItem struct {
	msg     replog.Message
	ack     *replog.AckFuture
	ackSink chan<- *replog.AckFuture
}

// Worker owns the durable replication queue for exactly one secondary. A
// single goroutine (Run) drains the queue strictly in order, retrying the
// head item with jittered exponential backoff until it succeeds — the queue
// never drops a message and never reorders.
type Worker struct {
	url     string
	client  *http.Client
	metrics *Metrics

	baseDelay time.Duration
	maxDelay  time.Duration

	mu    sync.Mutex
	cond  *sync.Cond
	queue []queueItem

	healthMu sync.Mutex
	health   Health
}

// NewWorker constructs a Worker for the given secondary base URL. It does not
// start draining until Run is called.
func NewWorker(url string, cfg Config, metrics *Metrics) *Worker {
	w := &Worker{
		url:       url,
		client:    &http.Client{Timeout: 5 * time.Second},
		metrics:   metrics,
		baseDelay: durationFromSeconds(cfg.RetryBaseDelay),
		maxDelay:  durationFromSeconds(cfg.RetryMaxDelay),
		health:    Health{Status: statusHealthy},
	}
	w.cond = sync.NewCond(&w.mu)
	return w
}

func durationFromSeconds(s float64) time.Duration {
	return time.Duration(s * float64(time.Second))
}

// URL returns the secondary base URL this worker replicates to.
func (w *Worker) URL() string { return w.url }

// Enqueue appends msg to the worker's FIFO and returns immediately with an
// AckFuture that completes once the secondary acknowledges msg. ackSink, if
// non-nil, additionally receives the future the moment it completes; sends
// are non-blocking so a worker can never stall waiting on a sink nobody is
// reading anymore.
func (w *Worker) Enqueue(msg replog.Message, ackSink chan<- *replog.AckFuture) *replog.AckFuture {
	ack := replog.NewAckFuture()

	w.mu.Lock()
	w.queue = append(w.queue, queueItem{msg: msg, ack: ack, ackSink: ackSink})
	depth := len(w.queue)
	w.mu.Unlock()
	w.cond.Signal()

	if w.metrics != nil {
		w.metrics.WorkerQueueDepth.WithLabelValues(w.url).Set(float64(depth))
	}
	return ack
}

// Status returns a copy of the worker's current health.
func (w *Worker) Status() Health {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	return w.health
}

// Run drains the queue until ctx is done. It never returns a non-nil error
// except ctx.Err() on shutdown, matching the "workers never terminate" rule
// in normal operation. A panic anywhere in the retry loop is recovered and
// reported as this goroutine's error rather than silently killing
// replication to this one secondary, mirroring the teacher's server-grpc
// goroutine.
func (w *Worker) Run(ctx context.Context) (err error) {
	defer func() {
		if perr := derror.PanicToError(recover()); perr != nil {
			dlog.Errorf(ctx, "worker %s: %+v", w.url, perr)
			err = perr
		}
	}()

	go func() {
		<-ctx.Done()
		w.mu.Lock()
		w.cond.Broadcast()
		w.mu.Unlock()
	}()

	for {
		item, ok := w.waitForHead(ctx)
		if !ok {
			return ctx.Err()
		}
		if !w.deliver(ctx, item) {
			return ctx.Err()
		}
		w.popHead()
	}
}

// waitForHead blocks until the queue is non-empty (returning its head,
// without removing it) or ctx is done.
func (w *Worker) waitForHead(ctx context.Context) (queueItem, bool) {
	w.mu.Lock()
	defer w.mu.Unlock()
	for len(w.queue) == 0 {
		if ctx.Err() != nil {
			return queueItem{}, false
		}
		w.cond.Wait()
	}
	return w.queue[0], true
}

func (w *Worker) popHead() {
	w.mu.Lock()
	defer w.mu.Unlock()
	if len(w.queue) > 0 {
		w.queue = w.queue[1:]
	}
	if w.metrics != nil {
		w.metrics.WorkerQueueDepth.WithLabelValues(w.url).Set(float64(len(w.queue)))
	}
}

// deliver retries item against the secondary until it succeeds or ctx is
// done. It returns false if it gave up because ctx was cancelled.
func (w *Worker) deliver(ctx context.Context, item queueItem) bool {
	delay := w.baseDelay
	for {
		if ctx.Err() != nil {
			return false
		}

		if w.attempt(ctx, item.msg) {
			item.ack.Complete()
			if item.ackSink != nil {
				select {
				case item.ackSink <- item.ack:
				default:
				}
			}
			return true
		}

		sleepFor := delay
		if sleepFor > w.maxDelay {
			sleepFor = w.maxDelay
		}
		jitter := time.Duration(rand.Int63n(int64(sleepFor)/2 + 1))
		if !sleepCtx(ctx, sleepFor+jitter) {
			return false
		}
		delay *= 2
		if delay > w.maxDelay {
			delay = w.maxDelay
		}
	}
}

// attempt makes a single POST /replicate call and updates health/metrics.
func (w *Worker) attempt(ctx context.Context, msg replog.Message) bool {
	if w.metrics != nil {
		w.metrics.ReplicationAttempts.WithLabelValues(w.url).Inc()
	}

	body, err := json.Marshal(msg)
	if err != nil {
		// Should never happen for a Message; treat like any other failure.
		w.recordFailure(err)
		return false
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url+"/replicate", bytes.NewReader(body))
	if err != nil {
		w.recordFailure(err)
		return false
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		dlog.Warnf(ctx, "replicate to %s failed: %v", w.url, err)
		w.recordFailure(err)
		return false
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		err := fmt.Errorf("HTTP %d from %s", resp.StatusCode, w.url)
		dlog.Warnf(ctx, "replicate to %s: %v", w.url, err)
		w.recordFailure(err)
		return false
	}

	dlog.Infof(ctx, "replicated message %d to %s", msg.ID, w.url)
	w.recordSuccess()
	if w.metrics != nil {
		w.metrics.ReplicationSuccesses.WithLabelValues(w.url).Inc()
	}
	return true
}

func (w *Worker) recordSuccess() {
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	now := float64(time.Now().Unix())
	w.health = Health{
		Status:        statusHealthy,
		LastSuccessTS: &now,
	}
}

func (w *Worker) recordFailure(err error) {
	if w.metrics != nil {
		w.metrics.ReplicationFailures.WithLabelValues(w.url).Inc()
	}
	w.healthMu.Lock()
	defer w.healthMu.Unlock()
	w.health.ConsecutiveFailures++
	w.health.LastError = err.Error()
	if w.health.ConsecutiveFailures >= 3 {
		w.health.Status = statusUnhealthy
	} else {
		w.health.Status = statusSuspected
	}
}

// sleepCtx sleeps for d, returning early (and reporting false) if ctx is
// done first.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
		return true
	case <-ctx.Done():
		return false
	}
}
