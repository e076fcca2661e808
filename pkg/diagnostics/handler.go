// Package diagnostics exposes the outbox to developers and to the host app
// over a small local HTTP API.
package diagnostics

import (
	"net/http"

	"github.com/goccy/go-json"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/zoff-tech/event-outbox/pkg/lifecycle"
	"github.com/zoff-tech/event-outbox/pkg/logging"
	"github.com/zoff-tech/event-outbox/pkg/outbox"
)

// maxBodyBytes bounds request bodies; a full event fits comfortably.
const maxBodyBytes = 1 << 20

type Deps struct {
	Outbox  *outbox.Outbox
	Tracker *outbox.Tracker
	Bus     *lifecycle.Bus
	App     *lifecycle.AppStateMonitor
	Network *lifecycle.NetworkMonitor
}

// NewHandler returns the diagnostics API.
func NewHandler(deps Deps, logger *zap.Logger) http.Handler {
	s := &server{Deps: deps, logger: logging.OrNop(logger).With(zap.String("component", "diagnostics"))}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /events", s.handleListEvents)
	mux.HandleFunc("GET /events/size", s.handleQueueSize)
	mux.HandleFunc("POST /events", s.handleEnqueue)
	mux.HandleFunc("DELETE /events", s.handleClear)
	mux.HandleFunc("POST /flush", s.handleFlush)
	mux.HandleFunc("GET /flush/last", s.handleLastFlush)
	mux.HandleFunc("POST /lifecycle/app-state", s.handleAppState)
	mux.HandleFunc("POST /lifecycle/network", s.handleNetwork)
	return otelhttp.NewHandler(mux, "diagnostics")
}

type server struct {
	Deps
	logger *zap.Logger
}

type enqueueRequest struct {
	Type    string         `json:"type"`
	UserID  string         `json:"userId"`
	Payload map[string]any `json:"payload"`
}

type enqueueResponse struct {
	Size         int    `json:"size"`
	Evicted      int    `json:"evicted"`
	PersistError string `json:"persistError,omitempty"`
}

type flushRequest struct {
	Endpoint string `json:"endpoint"`
	Token    string `json:"token"`
	Async    bool   `json:"async"`
}

func (s *server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events := s.Outbox.QueuedEvents(r.Context())
	writeJSON(w, http.StatusOK, map[string]any{"events": events, "size": len(events)})
}

func (s *server) handleQueueSize(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]int{
		"size":     s.Outbox.QueueSizeContext(r.Context()),
		"capacity": s.Outbox.Capacity(),
	})
}

func (s *server) handleEnqueue(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	if req.Type == "" {
		writeError(w, http.StatusBadRequest, "event type required")
		return
	}

	res := s.Tracker.Track(r.Context(), req.Type, req.UserID, req.Payload)

	out := enqueueResponse{Size: res.Size, Evicted: res.Evicted}
	if res.PersistErr != nil {
		out.PersistError = res.PersistErr.Error()
	}
	writeJSON(w, http.StatusAccepted, out)
}

func (s *server) handleClear(w http.ResponseWriter, r *http.Request) {
	res := s.Outbox.Clear(r.Context())
	out := map[string]any{"cleared": res.Cleared}
	if res.PersistErr != nil {
		out["persistError"] = res.PersistErr.Error()
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *server) handleFlush(w http.ResponseWriter, r *http.Request) {
	var req flushRequest
	if r.ContentLength != 0 {
		if err := decode(w, r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "invalid request payload")
			return
		}
	}

	if req.Async {
		if err := s.Bus.Publish(r.Context(), lifecycle.KindManual); err != nil {
			writeError(w, http.StatusServiceUnavailable, err.Error())
			return
		}
		writeJSON(w, http.StatusAccepted, map[string]string{"status": "requested"})
		return
	}

	var opts []outbox.FlushOption
	if req.Endpoint != "" {
		opts = append(opts, outbox.WithEndpoint(req.Endpoint))
	}
	if req.Token != "" {
		opts = append(opts, outbox.WithToken(req.Token))
	}
	res := s.Outbox.Flush(r.Context(), opts...)
	logging.WithTrace(r.Context(), s.logger).Info("manual flush",
		zap.String("outcome", res.Outcome()), zap.Int("count", res.Count))

	status := http.StatusOK
	switch res.Reason {
	case outbox.ReasonInProgress:
		status = http.StatusConflict
	case outbox.ReasonOffline, outbox.ReasonDeliveryFailed:
		status = http.StatusServiceUnavailable
	case outbox.ReasonMissingConfig:
		status = http.StatusPreconditionFailed
	}
	writeJSON(w, status, res)
}

func (s *server) handleLastFlush(w http.ResponseWriter, r *http.Request) {
	res, ok := s.Outbox.LastFlush()
	if !ok {
		writeError(w, http.StatusNotFound, "no flush attempted yet")
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *server) handleAppState(w http.ResponseWriter, r *http.Request) {
	var req struct {
		State string `json:"state"`
	}
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	state, err := lifecycle.ParseAppState(req.State)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	fired, err := s.App.Report(r.Context(), state)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"state": state, "flushRequested": fired})
}

func (s *server) handleNetwork(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Connected *bool `json:"connected"`
	}
	if err := decode(w, r, &req); err != nil || req.Connected == nil {
		writeError(w, http.StatusBadRequest, "invalid request payload")
		return
	}
	fired, err := s.Network.Report(r.Context(), *req.Connected)
	if err != nil {
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"connected": *req.Connected, "flushRequested": fired})
}

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	return json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(v)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"status": "error", "error": message})
}
