package masterd

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/pkg/errors"

	"github.com/datawire/dlib/dlog"

	"github.com/replogio/replog/internal/httpapi"
	"github.com/replogio/replog/internal/replog"
)

// API is the master's HTTP surface: POST /message, GET /messages, POST
// /pending, GET /health and GET /metrics.
type API struct {
	engine  *Engine
	metrics *Metrics
	reg     http.Handler
}

// NewAPI builds the master's gorilla/mux router around engine.
func NewAPI(engine *Engine, metrics *Metrics, metricsHandler http.Handler) *API {
	return &API{engine: engine, metrics: metrics, reg: metricsHandler}
}

// Router returns the fully wired *mux.Router.
func (a *API) Router() *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/message", a.postMessage).Methods(http.MethodPost)
	r.HandleFunc("/messages", a.getMessages).Methods(http.MethodGet)
	r.HandleFunc("/pending", a.postPending).Methods(http.MethodPost)
	r.HandleFunc("/health", a.getHealth).Methods(http.MethodGet)
	r.Handle("/metrics", a.reg).Methods(http.MethodGet)
	return r
}

type messageRequest struct {
	Text string `json:"text"`
	W    *int   `json:"w"`
}

type messageResponse struct {
	Status string         `json:"status"`
	Acks   int            `json:"acks"`
	Msg    replog.Message `json:"msg"`
}

func (a *API) postMessage(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req messageRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err)
		return
	}
	if req.Text == "" {
		httpapi.WriteError(w, http.StatusBadRequest, errors.New("text is required"))
		return
	}

	effectiveW, clamped := a.engine.ClampW(req.W)
	if clamped {
		dlog.Warnf(ctx, "requested write concern %d exceeds N=%d, clamping", *req.W, a.engine.N())
	}

	timeout := durationFromSeconds(a.engine.cfg.MasterWaitTimeout)
	start := time.Now()
	msg, acks := a.engine.Write(ctx, req.Text, effectiveW, timeout)
	if a.metrics != nil {
		a.metrics.AckWaitSeconds.Observe(time.Since(start).Seconds())
	}

	status := http.StatusOK
	if acks < effectiveW {
		status = http.StatusAccepted
		dlog.Warnf(ctx, "message %d: only %d/%d acks within wait window", msg.ID, acks, effectiveW)
	}
	httpapi.WriteJSON(w, status, messageResponse{Status: "ok", Acks: acks, Msg: msg})
}

func (a *API) getMessages(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, a.engine.Snapshot())
}

type pendingRequest struct {
	URL string `json:"url"`
}

func (a *API) postPending(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var req pendingRequest
	if err := httpapi.DecodeJSON(r, &req); err != nil {
		httpapi.WriteError(w, http.StatusBadRequest, err)
		return
	}

	dlog.Infof(ctx, "secondary %s requested pending catch-up", req.URL)
	if !a.engine.EnqueuePending(req.URL) {
		httpapi.WriteJSON(w, http.StatusNotFound, map[string]string{
			"status": "unknown secondary",
			"url":    req.URL,
		})
		return
	}
	httpapi.WriteJSON(w, http.StatusOK, map[string]string{"status": "resend queued"})
}

func (a *API) getHealth(w http.ResponseWriter, r *http.Request) {
	httpapi.WriteJSON(w, http.StatusOK, a.engine.Health())
}
