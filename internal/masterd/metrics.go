package masterd

import "github.com/prometheus/client_golang/prometheus"

// Metrics holds the master's process-level Prometheus instruments. None of
// these influence replication behavior; they exist purely so an operator can
// see what the replication engine is doing.
type Metrics struct {
	MessagesAppended     prometheus.Counter
	ReplicationAttempts  *prometheus.CounterVec
	ReplicationFailures  *prometheus.CounterVec
	ReplicationSuccesses *prometheus.CounterVec
	AckWaitSeconds       prometheus.Histogram
	WorkerQueueDepth     *prometheus.GaugeVec
}

// NewMetrics registers the master's instruments against reg and returns the
// handle used to update them.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		MessagesAppended: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "replog_messages_appended_total",
			Help: "Messages accepted and appended to the master log.",
		}),
		ReplicationAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replog_replication_attempts_total",
			Help: "Replicate attempts sent to a secondary.",
		}, []string{"secondary"}),
		ReplicationFailures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replog_replication_failures_total",
			Help: "Replicate attempts that did not receive a 200.",
		}, []string{"secondary"}),
		ReplicationSuccesses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "replog_replication_successes_total",
			Help: "Replicate attempts acknowledged with a 200.",
		}, []string{"secondary"}),
		AckWaitSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "replog_ack_wait_seconds",
			Help:    "Time a write handler spent waiting for write-concern acks.",
			Buckets: prometheus.DefBuckets,
		}),
		WorkerQueueDepth: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "replog_worker_queue_depth",
			Help: "Messages currently queued for a secondary.",
		}, []string{"secondary"}),
	}
	reg.MustRegister(
		m.MessagesAppended,
		m.ReplicationAttempts,
		m.ReplicationFailures,
		m.ReplicationSuccesses,
		m.AckWaitSeconds,
		m.WorkerQueueDepth,
	)
	return m
}
