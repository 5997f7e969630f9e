package secondaryd

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the secondary's process-level Prometheus instruments.
//
// replog_replicate_stale_total and replog_replicate_duplicates_total name two
// outcomes that Log.Replicate treats as one: delivered is always the dense
// prefix [1, nextExpected-1], so "id already delivered" and "id <
// nextExpected" are the same branch (see Log's doc comment). Both counters
// are wired to that single outcome rather than inventing a distinct stale
// case that can never be reached.
type Metrics struct {
	ReplicateRequests   prometheus.Counter
	ReplicateDuplicates prometheus.Counter
	ReplicateStale      prometheus.Counter
	FaultInjectedErrors prometheus.Counter
	PendingBufferSize   prometheus.GaugeFunc
}

// NewMetrics registers the secondary's instruments against reg. pendingSize
// is polled lazily by the gauge each time it's scraped.
func NewMetrics(reg *prometheus.Registry, pendingSize func() float64) *Metrics {
	m := &Metrics{
		ReplicateRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replog_replicate_requests_total",
			Help: "POST /replicate calls received.",
		}),
		ReplicateDuplicates: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replog_replicate_duplicates_total",
			Help: "POST /replicate calls for an id already delivered.",
		}),
		ReplicateStale: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replog_replicate_stale_total",
			Help: "Alias of replog_replicate_duplicates_total; id < next_expected_id is the same condition as already-delivered.",
		}),
		FaultInjectedErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replog_fault_injected_errors_total",
			Help: "Responses forced to 500 by ERROR_RATE fault injection.",
		}),
		PendingBufferSize: prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "replog_pending_buffer_size",
			Help: "Messages currently buffered awaiting a contiguous predecessor.",
		}, pendingSize),
	}
	reg.MustRegister(
		m.ReplicateRequests,
		m.ReplicateDuplicates,
		m.ReplicateStale,
		m.FaultInjectedErrors,
		m.PendingBufferSize,
	)
	return m
}
