package http

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"log/slog"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
	"github.com/aretw0/cadence/pkg/session"
)

// CommandRequest is the body of POST /api/command.
type CommandRequest struct {
	SessionID string `json:"session_id"`
	Command   string `json:"command"`

	// Ref addresses a beat for "show": a string id or an integer index.
	Ref any `json:"ref,omitempty"`

	// Step widens "advance" and "retreat". Zero means one beat.
	Step int `json:"step,omitempty"`
}

// StateResponse pairs the engine snapshot with the current indicator fills.
type StateResponse struct {
	SessionID  string               `json:"session_id"`
	State      domain.StateSnapshot `json:"state"`
	Indicators []float64            `json:"indicators"`
}

// BeatInfo is one beat of the document as served by GET /api/story.
type BeatInfo struct {
	ID      domain.BeatID `json:"id"`
	Index   int           `json:"index"`
	Title   string        `json:"title,omitempty"`
	Content string        `json:"content,omitempty"`
	Skip    bool          `json:"skip,omitempty"`
}

// SettingsInfo is the effective configuration served by GET /api/story.
type SettingsInfo struct {
	AutoAdvance      bool   `json:"auto_advance"`
	BeatDuration     string `json:"beat_duration"`
	ForceManualAfter int    `json:"force_manual_after"`
	EndOnLastBeat    bool   `json:"end_on_last_beat"`
}

// StoryResponse is the document view served by GET /api/story.
type StoryResponse struct {
	Name     string       `json:"name"`
	Title    string       `json:"title,omitempty"`
	Beats    []BeatInfo   `json:"beats"`
	Settings SettingsInfo `json:"settings"`
}

// errBadReference marks a show command whose ref could not be used.
var errBadReference = errors.New("invalid beat reference")

// Server hosts one story document and any number of concurrent playthroughs
// of it, each addressed by an opaque session id picked by the client.
type Server struct {
	loader   ports.StoryLoader
	sessions *session.Manager
	streams  *StreamManager
	metrics  *serverMetrics
	registry *prometheus.Registry
	logger   *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// WithRegistry substitutes the Prometheus registry backing /metrics.
func WithRegistry(reg *prometheus.Registry) Option {
	return func(s *Server) { s.registry = reg }
}

// NewServer builds a harness around the loader. Playthroughs are created
// lazily, on the first request that names their session id.
func NewServer(loader ports.StoryLoader, opts ...Option) *Server {
	s := &Server{
		loader:   loader,
		registry: prometheus.NewRegistry(),
		logger:   logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.streams = NewStreamManager(s.logger)
	s.metrics = newServerMetrics(s.registry)
	s.sessions = session.NewManager(s.newPlaythrough, session.WithLogger(s.logger))
	return s
}

// NewHandler creates a new HTTP handler for the loader.
func NewHandler(loader ports.StoryLoader, opts ...Option) http.Handler {
	return NewServer(loader, opts...).Handler()
}

// newPlaythrough is the session factory: a fresh story wired to the SSE
// stream for its id.
func (s *Server) newPlaythrough(ctx context.Context, sessionID string) (*cadence.Story, error) {
	presenter := &streamPresenter{
		sessionID: sessionID,
		streams:   s.streams,
		metrics:   s.metrics,
		logger:    s.logger,
	}
	story, err := cadence.New(presenter,
		cadence.WithLoader(s.loader),
		cadence.WithLogger(s.logger.With("session_id", sessionID)),
	)
	if err != nil {
		return nil, err
	}
	story.Start(ctx)
	return story, nil
}

// Handler assembles the route table.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()

	r.Get("/", s.GetHostPage)
	r.Post("/api/command", s.Command)
	r.Get("/api/state", s.GetState)
	r.Get("/api/story", s.GetStory)
	r.Get("/api/events", s.SubscribeEvents)
	r.Delete("/api/session", s.DeleteSession)
	r.Get("/health", s.GetHealth)
	r.Get("/info", s.GetInfo)

	r.Get("/openapi.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/yaml")
		w.Write(rawSpec())
	})
	r.Get("/swagger", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html")
		w.Write([]byte(swaggerHTML))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.registry, promhttp.HandlerOpts{}))

	return enableCORS(r)
}

// Close retires every live playthrough.
func (s *Server) Close() {
	s.sessions.Close()
	s.metrics.sessionsActive.Set(0)
}

// Command handles the POST /api/command request.
func (s *Server) Command(w http.ResponseWriter, r *http.Request) {
	var body CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		s.logger.Warn("Command: Invalid request body", "error", err)
		return
	}
	if body.SessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	switch body.Command {
	case "advance", "retreat", "pause_start", "pause_end", "restart", "end", "show":
	default:
		http.Error(w, fmt.Sprintf("Unknown command: %q", body.Command), http.StatusBadRequest)
		return
	}

	step := body.Step
	if step <= 0 {
		step = 1
	}

	var resp StateResponse
	err := s.sessions.WithSession(r.Context(), body.SessionID, func(ctx context.Context, sess *session.Session) error {
		story := sess.Story
		switch body.Command {
		case "advance":
			story.Advance(ctx, step)
		case "retreat":
			story.Retreat(ctx, step)
		case "pause_start":
			story.Handle(ctx, domain.CommandPauseStart)
			s.broadcastStatus(sess)
		case "pause_end":
			story.Handle(ctx, domain.CommandPauseEnd)
			s.broadcastStatus(sess)
		case "restart":
			story.Restart(ctx)
		case "end":
			story.End(ctx)
		case "show":
			if err := story.ShowBeat(ctx, body.Ref); err != nil {
				return fmt.Errorf("%w: %v", errBadReference, err)
			}
		}
		resp = stateResponse(sess)
		return nil
	})
	if err != nil {
		if errors.Is(err, errBadReference) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, fmt.Sprintf("Command error: %v", err), http.StatusInternalServerError)
		s.logger.Error("Command failed", "error", err, "command", body.Command)
		return
	}

	s.metrics.commands.WithLabelValues(body.Command).Inc()
	s.syncSessionGauge()
	s.writeJSON(w, resp)
}

// GetState handles the GET /api/state request. A fresh session id starts a
// playthrough on the spot.
func (s *Server) GetState(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	sess, _, err := s.sessions.GetOrStart(r.Context(), sessionID)
	if err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("GetState failed", "error", err)
		return
	}

	s.syncSessionGauge()
	s.writeJSON(w, stateResponse(sess))
}

// GetStory handles the GET /api/story request.
func (s *Server) GetStory(w http.ResponseWriter, r *http.Request) {
	doc, err := s.loader.Load(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Load error: %v", err), http.StatusInternalServerError)
		s.logger.Error("GetStory failed", "error", err)
		return
	}

	resp := StoryResponse{
		Name:  doc.Name,
		Title: doc.Title,
		Beats: make([]BeatInfo, len(doc.Beats)),
		Settings: SettingsInfo{
			AutoAdvance:      doc.Settings.AutoAdvance,
			BeatDuration:     doc.Settings.BeatDuration.String(),
			ForceManualAfter: doc.Settings.ForceManualAfter,
			EndOnLastBeat:    doc.Settings.EndOnLastBeat,
		},
	}
	for i, beat := range doc.Beats {
		resp.Beats[i] = BeatInfo{
			ID:      beat.ID,
			Index:   i,
			Title:   beat.State.Title(),
			Content: beat.State.Content(),
			Skip:    beat.State.Skip(),
		}
	}

	s.writeJSON(w, resp)
}

// DeleteSession handles the DELETE /api/session request.
func (s *Server) DeleteSession(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		http.Error(w, "session_id is required", http.StatusBadRequest)
		return
	}

	if err := s.sessions.Delete(sessionID); err != nil {
		if errors.Is(err, session.ErrNotFound) {
			http.Error(w, "Session not found", http.StatusNotFound)
			return
		}
		http.Error(w, fmt.Sprintf("Delete error: %v", err), http.StatusInternalServerError)
		s.logger.Error("DeleteSession failed", "error", err)
		return
	}

	s.syncSessionGauge()
	w.WriteHeader(http.StatusNoContent)
}

// GetHealth handles the GET /health request.
func (s *Server) GetHealth(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{"status": "ok"})
}

// GetInfo handles the GET /info request.
func (s *Server) GetInfo(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, map[string]string{
		"app":         "cadence-http",
		"version":     strings.TrimSpace(cadence.Version),
		"api_version": apiVersion(),
	})
}

// SubscribeEvents handles the GET /api/events request (SSE).
func (s *Server) SubscribeEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming not supported", http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: Streaming not supported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	sessionID := r.URL.Query().Get("session_id")
	if sessionID == "" {
		s.streamReloads(w, r, flusher)
		return
	}

	s.logger.Info("SSE: Subscribing to session updates", "session_id", sessionID)

	// Subscribe before the playthrough starts so the first beat event is
	// not lost between creation and registration.
	ch, cancel := s.streams.Subscribe(sessionID)
	defer cancel()

	if _, _, err := s.sessions.GetOrStart(r.Context(), sessionID); err != nil {
		http.Error(w, fmt.Sprintf("Session error: %v", err), http.StatusInternalServerError)
		s.logger.Error("SubscribeEvents: session start failed", "error", err)
		return
	}
	s.syncSessionGauge()

	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	var watchList []string
	if watch := r.URL.Query().Get("watch"); watch != "" {
		watchList = strings.Split(watch, ",")
	}

	for {
		select {
		case <-r.Context().Done():
			s.logger.Info("SSE client disconnected", "session_id", sessionID)
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			if !keepEvent(msg, watchList) {
				continue
			}
			fmt.Fprintf(w, "data: %s\n\n", msg)
			flusher.Flush()
		}
	}
}

// streamReloads forwards source change signals to clients that want to
// refetch the document, typically the host page during authoring.
func (s *Server) streamReloads(w http.ResponseWriter, r *http.Request, flusher http.Flusher) {
	watcher, ok := s.loader.(ports.Watchable)
	if !ok {
		http.Error(w, "Watching not supported by the current loader", http.StatusNotImplemented)
		return
	}
	events, err := watcher.Watch(r.Context())
	if err != nil {
		http.Error(w, fmt.Sprintf("Watch error: %v", err), http.StatusInternalServerError)
		return
	}

	s.logger.Info("SSE: Subscribing to source reloads")
	fmt.Fprintf(w, "event: ping\ndata: connected\n\n")
	flusher.Flush()

	payload, _ := json.Marshal(reloadEvent{Type: "reload"})
	for {
		select {
		case <-r.Context().Done():
			return
		case _, ok := <-events:
			if !ok {
				return
			}
			fmt.Fprintf(w, "data: %s\n\n", payload)
			flusher.Flush()
		}
	}
}

// keepEvent applies the comma-separated type filter. The filter peeks at the
// payload so the fan-out itself stays type-agnostic.
func keepEvent(msg string, watchList []string) bool {
	if len(watchList) == 0 {
		return true
	}
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal([]byte(msg), &envelope); err != nil {
		return true
	}
	for _, want := range watchList {
		if strings.TrimSpace(want) == envelope.Type {
			return true
		}
	}
	return false
}

// -- Helpers --

func stateResponse(sess *session.Session) StateResponse {
	return StateResponse{
		SessionID:  sess.ID,
		State:      sess.Story.State(),
		Indicators: sess.Story.Indicators(),
	}
}

// broadcastStatus reports the pause flag over the session stream. Pausing
// has no presenter callback, so the command path emits it.
func (s *Server) broadcastStatus(sess *session.Session) {
	payload, err := json.Marshal(statusEvent{Type: "status", Paused: sess.Story.State().Paused})
	if err != nil {
		return
	}
	s.streams.Broadcast(sess.ID, string(payload))
}

func (s *Server) syncSessionGauge() {
	s.metrics.sessionsActive.Set(float64(s.sessions.Len()))
}

func (s *Server) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Error("Response encode failed", "error", err)
	}
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Custom-Header")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

const swaggerHTML = `
<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="utf-8" />
    <meta name="viewport" content="width=device-width, initial-scale=1" />
    <title>Cadence API Documentation</title>
    <link rel="stylesheet" href="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui.css" />
</head>
<body>
<div id="swagger-ui"></div>
<script src="https://unpkg.com/swagger-ui-dist@5.11.0/swagger-ui-bundle.js" crossorigin></script>
<script>
    window.onload = () => {
    window.ui = SwaggerUIBundle({
        url: '/openapi.yaml',
        dom_id: '#swagger-ui',
    });
    };
</script>
</body>
</html>
`
