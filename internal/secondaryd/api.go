package secondaryd

import (
	"math/rand"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"github.com/datawire/dlib/dlog"

	"github.com/replogio/replog/internal/httpapi"
	"github.com/replogio/replog/internal/replog"
)

// API is the secondary's HTTP surface: POST /replicate, GET /messages and
// GET /metrics.
type API struct {
	log       *Log
	metrics   *Metrics
	reg       http.Handler
	delay     time.Duration
	errorRate float64
}

// NewAPI builds the secondary's gorilla/mux router around log, applying the
// configured replication delay and fault-injection rate to every /replicate
// call.
func NewAPI(log *Log, metrics *Metrics, metricsHandler http.Handler, delay time.Duration, errorRate float64) *API {
	return &API{log: log, metrics: metrics, reg: metricsHandler, delay: delay, errorRate: errorRate}
}

// Router returns the fully wired *mux.Router.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/replicate", a.postReplicate).Methods(http.MethodPost)
	r.HandleFunc("/messages", a.getMessages).Methods(http.MethodGet)
	r.Handle("/metrics", a.reg).Methods(http.MethodGet)
	return r
}

type replicateResponse struct {
	Status string         `json:"status"`
	Msg    replog.Message `json:"msg"`
}

// postReplicate applies REPLICA_DELAY before touching state, then dispatches
// to the log, then rolls ERROR_RATE *after* the state mutation — a lost-ack
// is modeled as distinct from a rejected write.
func (a *API) postReplicate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var msg replog.Message
	if err := httpapi.DecodeJSON(r, &msg); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err)
		return
	}

	if a.delay > 0 {
		time.Sleep(a.delay)
	}

	a.metrics.ReplicateRequests.Inc()
	switch a.log.Replicate(msg) {
	case outcomeDuplicate:
		dlog.Infof(ctx, "replicate %d: duplicate, already delivered", msg.ID)
		a.metrics.ReplicateDuplicates.Inc()
		a.metrics.ReplicateStale.Inc()
	case outcomeBuffered:
		dlog.Infof(ctx, "replicate %d: buffered, awaiting predecessor", msg.ID)
	case outcomeApplied:
		dlog.Infof(ctx, "replicate %d: applied", msg.ID)
	}

	if a.errorRate > 0 && rand.Float64() < a.errorRate {
		a.metrics.FaultInjectedErrors.Inc()
		httpapi.WriteJSON(w, http.StatusInternalServerError, map[string]interface{}{
			"status": "error",
			"msg":    msg,
		})
		return
	}

	httpapi.WriteJSON(w, http.StatusOK, replicateResponse{Status: "replicated", Msg: msg})
}

func (a *API) getMessages(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, a.log.Snapshot())
}
