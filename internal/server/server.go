// Package server exposes the orchestration engine over HTTP as an SSE
// stream. It is a thin adapter: all loop semantics, including the terminal
// event guarantee, live in the loop package.
package server

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/litrev/litrev/internal/config"
	"github.com/litrev/litrev/internal/event"
	"github.com/litrev/litrev/internal/loop"
	"github.com/litrev/litrev/internal/sse"
)

// Server handles the litrev HTTP API.
type Server struct {
	cfg    *config.Config
	client loop.Stream
	log    *slog.Logger
}

// New creates a Server. logger may be nil, in which case slog.Default() is
// used.
func New(cfg *config.Config, client loop.Stream, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{cfg: cfg, client: client, log: logger}
}

// Handler returns the HTTP handler for the API.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/research", s.handleResearch)
	mux.HandleFunc("POST /api/verify", s.handleVerify)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

type researchRequest struct {
	Topic      string `json:"topic"`
	Mode       string `json:"mode"`
	SkipReview bool   `json:"skip_review"`
}

type verifyRequest struct {
	Claim string `json:"claim"`
}

func (s *Server) handleResearch(w http.ResponseWriter, r *http.Request) {
	var req researchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	topic := strings.TrimSpace(req.Topic)
	if topic == "" {
		httpError(w, http.StatusBadRequest, "topic must not be empty")
		return
	}
	if req.Mode == "" {
		req.Mode = "research"
	}
	if req.Mode != "research" && req.Mode != "verify" {
		httpError(w, http.StatusBadRequest, "mode must be 'research' or 'verify'")
		return
	}

	ctrl := loop.New(s.cfg.ToLoopConfig(req.SkipReview), s.client)

	var src <-chan event.Event
	if req.Mode == "verify" {
		src = ctrl.Verify(r.Context(), topic)
	} else {
		src = ctrl.Run(r.Context(), topic)
	}

	s.streamEvents(w, r, req.Mode, src)
}

func (s *Server) handleVerify(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	claim := strings.TrimSpace(req.Claim)
	if claim == "" {
		httpError(w, http.StatusBadRequest, "claim must not be empty")
		return
	}

	ctrl := loop.New(s.cfg.ToLoopConfig(false), s.client)
	s.streamEvents(w, r, "verify", ctrl.Verify(r.Context(), claim))
}

// streamEvents relays the guarded event stream to the client as SSE.
// Write errors mean the client went away; the request context unwinds the
// producer, so we just stop.
func (s *Server) streamEvents(w http.ResponseWriter, r *http.Request, mode string, src <-chan event.Event) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		httpError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	reqID := uuid.NewString()
	log := s.log.With("request_id", reqID, "mode", mode)
	log.Info("stream started", "remote", r.RemoteAddr)

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	events := 0
	for ev := range loop.Guard(r.Context(), src) {
		frame, err := sse.Marshal(string(ev.Type), ev)
		if err != nil {
			log.Error("encode event", "type", ev.Type, "err", err)
			continue
		}
		if _, err := w.Write(frame); err != nil {
			log.Info("client disconnected", "events", events)
			return
		}
		flusher.Flush()
		events++
	}

	log.Info("stream finished", "events", events)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func httpError(w http.ResponseWriter, status int, detail string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"detail": detail})
}
