package http

import (
	"encoding/json"
	"sync"

	"log/slog"

	"github.com/aretw0/cadence/pkg/domain"
	"github.com/aretw0/cadence/pkg/ports"
)

// StreamManager handles active SSE connections.
type StreamManager struct {
	mu          sync.RWMutex
	subscribers map[string]map[chan<- string]struct{} // SessionID -> Set of Channels
	logger      *slog.Logger
}

func NewStreamManager(logger *slog.Logger) *StreamManager {
	return &StreamManager{
		subscribers: make(map[string]map[chan<- string]struct{}),
		logger:      logger,
	}
}

func (sm *StreamManager) Subscribe(sessionID string) (chan string, func()) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	ch := make(chan string, 16)
	if _, ok := sm.subscribers[sessionID]; !ok {
		sm.subscribers[sessionID] = make(map[chan<- string]struct{})
	}
	sm.subscribers[sessionID][ch] = struct{}{}

	return ch, func() {
		sm.mu.Lock()
		defer sm.mu.Unlock()
		if subs, ok := sm.subscribers[sessionID]; ok {
			delete(subs, ch)
			close(ch)
			if len(subs) == 0 {
				delete(sm.subscribers, sessionID)
			}
		}
	}
}

func (sm *StreamManager) Broadcast(sessionID string, msg string) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	if subs, ok := sm.subscribers[sessionID]; ok {
		for ch := range subs {
			select {
			case ch <- msg:
			default:
				// Drop message if channel is full (slow client)
				sm.logger.Warn("SSE: Client buffer full, dropping message", "session_id", sessionID)
			}
		}
	}
}

// Wire shapes of the SSE payloads. Every event carries a "type" field so
// clients can route without sniffing.
type beatEvent struct {
	Type    string           `json:"type"`
	ID      domain.BeatID    `json:"id"`
	Index   int              `json:"index"`
	Title   string           `json:"title,omitempty"`
	Content string           `json:"content,omitempty"`
	State   domain.BeatState `json:"state,omitempty"`
}

type indicatorsEvent struct {
	Type  string    `json:"type"`
	Fills []float64 `json:"fills"`
}

type controlEvent struct {
	Type    string `json:"type"`
	Name    string `json:"name"`
	Visible bool   `json:"visible"`
}

type statusEvent struct {
	Type   string `json:"type"`
	Paused bool   `json:"paused"`
}

type reloadEvent struct {
	Type string `json:"type"`
}

// streamPresenter forwards engine callbacks onto a session's SSE stream.
// Callbacks arrive on the goroutine driving the playthrough (a request
// handler or the progress clock), so everything here must stay non-blocking.
type streamPresenter struct {
	sessionID string
	streams   *StreamManager
	metrics   *serverMetrics
	logger    *slog.Logger
}

var _ ports.Presenter = (*streamPresenter)(nil)

func (p *streamPresenter) broadcast(v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		p.logger.Error("Event encode failed", "error", err, "session_id", p.sessionID)
		return
	}
	p.streams.Broadcast(p.sessionID, string(payload))
}

func (p *streamPresenter) ApplyBeatState(state domain.BeatState, id domain.BeatID, index int) {
	if p.metrics != nil {
		p.metrics.beatsShown.Inc()
	}
	p.broadcast(beatEvent{
		Type:    "beat",
		ID:      id,
		Index:   index,
		Title:   state.Title(),
		Content: state.Content(),
		State:   state,
	})
}

func (p *streamPresenter) RenderIndicators(fills []float64) {
	p.broadcast(indicatorsEvent{Type: "indicators", Fills: fills})
}

func (p *streamPresenter) control(name string, visible bool) {
	p.broadcast(controlEvent{Type: "control", Name: name, Visible: visible})
}

func (p *streamPresenter) ShowRestartControl()     { p.control("restart", true) }
func (p *streamPresenter) HideRestartControl()     { p.control("restart", false) }
func (p *streamPresenter) ShowContinueAffordance() { p.control("continue", true) }
func (p *streamPresenter) HideContinueAffordance() { p.control("continue", false) }
func (p *streamPresenter) EnableInput()            { p.control("input", true) }
func (p *streamPresenter) DisableInput()           { p.control("input", false) }
