package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"log/slog"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"
	"github.com/mitchellh/mapstructure"

	"github.com/aretw0/cadence"
	"github.com/aretw0/cadence/internal/logging"
	"github.com/aretw0/cadence/pkg/domain"
)

// BeatView is the agent-facing shape of one beat.
type BeatView struct {
	ID      string `json:"id" jsonschema_description:"Beat identifier"`
	Index   int    `json:"index" jsonschema_description:"Zero-based position"`
	Title   string `json:"title,omitempty" jsonschema_description:"Display title"`
	Content string `json:"content,omitempty" jsonschema_description:"Renderable body"`
	Skip    bool   `json:"skip,omitempty" jsonschema_description:"Bypassed by navigation"`
}

// StateResponse aligns with the harness schema and provides a unified
// structure across adapters.
type StateResponse struct {
	State      domain.StateSnapshot `json:"state" jsonschema_description:"Snapshot of the playthrough"`
	Indicators []float64            `json:"indicators" jsonschema_description:"Per-beat fill percentages (0-100)"`
	Beat       BeatView             `json:"beat" jsonschema_description:"The beat currently shown"`
}

// SettingsView is the effective configuration in the document response.
type SettingsView struct {
	AutoAdvance      bool   `json:"auto_advance"`
	BeatDuration     string `json:"beat_duration"`
	ForceManualAfter int    `json:"force_manual_after"`
	EndOnLastBeat    bool   `json:"end_on_last_beat"`
}

// DocumentResponse is the full story document as exposed to agents.
type DocumentResponse struct {
	Name     string       `json:"name"`
	Title    string       `json:"title,omitempty"`
	Beats    []BeatView   `json:"beats"`
	Settings SettingsView `json:"settings"`
}

// Server wraps a single shared story playthrough and exposes it as an MCP
// Server. The story's own synchronization guards concurrent tool calls.
type Server struct {
	story     *cadence.Story
	mcpServer *server.MCPServer
	logger    *slog.Logger
}

// Option configures the Server.
type Option func(*Server)

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) { s.logger = logger }
}

// NewServer creates a new MCP Server instance around a started story.
func NewServer(story *cadence.Story, opts ...Option) *Server {
	s := &Server{
		story:     story,
		mcpServer: server.NewMCPServer("cadence-mcp", strings.TrimSpace(cadence.Version)),
		logger:    logging.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.registerTools()
	s.registerResources()
	return s
}

// ServeStdio starts the server on Stdin/Stdout.
func (s *Server) ServeStdio() error {
	return server.ServeStdio(s.mcpServer)
}

// ServeSSE starts the server on the given port using SSE.
func (s *Server) ServeSSE(ctx context.Context, port int) error {
	addr := fmt.Sprintf(":%d", port)
	baseURL := fmt.Sprintf("http://localhost:%d", port)

	sseServer := server.NewSSEServer(s.mcpServer, server.WithBaseURL(baseURL))

	mux := http.NewServeMux()
	mux.Handle("/sse", corsMiddleware(sseServer.SSEHandler()))
	mux.Handle("/message", corsMiddleware(sseServer.MessageHandler()))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	// Channel to listen for errors coming from the listener.
	serverErrors := make(chan error, 1)

	go func() {
		s.logger.Info("MCP Server listening (SSE)", "address", addr)
		serverErrors <- httpServer.ListenAndServe()
	}()

	select {
	case err := <-serverErrors:
		return err
	case <-ctx.Done():
		// Create a timeout context for the graceful shutdown
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		fmt.Println("\nShutdown signal received, shutting down server...")
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("could not stop server gracefully: %w", err)
		}
		return nil
	}
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-Requested-With, Baggage, Sentry-Trace")

		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (s *Server) registerTools() {
	// TOOL: story_state
	stateTool := mcp.NewTool("story_state",
		mcp.WithDescription("Get the current playthrough state: active beat, status, progress, and indicator fills."),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(stateTool, mcp.NewStructuredToolHandler(s.handleState))

	// TOOL: story_show
	showTool := mcp.NewTool("story_show",
		mcp.WithDescription("Jump straight to a beat by id or zero-based index. Unknown targets leave the story where it is."),
		mcp.WithString("ref", mcp.Description("Beat id to show")),
		mcp.WithNumber("index", mcp.Description("Zero-based beat index to show (alternative to ref)")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(showTool, mcp.NewStructuredToolHandler(s.handleShow))

	// TOOL: story_advance
	advanceTool := mcp.NewTool("story_advance",
		mcp.WithDescription("Move forward through the story. At the last beat this is a no-op."),
		mcp.WithNumber("step", mcp.Description("Beats to move, default 1")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(advanceTool, mcp.NewStructuredToolHandler(s.handleAdvance))

	// TOOL: story_retreat
	retreatTool := mcp.NewTool("story_retreat",
		mcp.WithDescription("Move backward through the story. At the first beat this is a no-op."),
		mcp.WithNumber("step", mcp.Description("Beats to move, default 1")),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(retreatTool, mcp.NewStructuredToolHandler(s.handleRetreat))

	// TOOL: story_restart
	restartTool := mcp.NewTool("story_restart",
		mcp.WithDescription("Restart the playthrough from its configured restart target."),
		mcp.WithOutputSchema[StateResponse](),
	)
	s.mcpServer.AddTool(restartTool, mcp.NewStructuredToolHandler(s.handleRestart))

	// TOOL: story_document
	s.mcpServer.AddTool(mcp.NewTool("story_document",
		mcp.WithDescription("Get the full story document for introspection: every beat in order plus the effective settings."),
	), func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		jsonBytes, err := json.Marshal(s.document())
		if err != nil {
			return mcp.NewToolResultError(fmt.Sprintf("document failed: %v", err)), nil
		}
		return mcp.NewToolResultText(string(jsonBytes)), nil
	})
}

// Handler methods for structured tools

func (s *Server) handleState(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	return s.stateResponse(), nil
}

type showArgs struct {
	Ref   string `mapstructure:"ref"`
	Index *int   `mapstructure:"index"`
}

func (s *Server) handleShow(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	var in showArgs
	if err := mapstructure.WeakDecode(args, &in); err != nil {
		return StateResponse{}, fmt.Errorf("invalid arguments: %w", err)
	}

	var ref any
	switch {
	case in.Index != nil:
		ref = *in.Index
	case in.Ref != "":
		ref = in.Ref
	default:
		return StateResponse{}, fmt.Errorf("either ref or index is required")
	}

	if err := s.story.ShowBeat(ctx, ref); err != nil {
		return StateResponse{}, fmt.Errorf("show failed: %w", err)
	}
	return s.stateResponse(), nil
}

type stepArgs struct {
	Step int `mapstructure:"step"`
}

func decodeStep(args map[string]interface{}) (int, error) {
	var in stepArgs
	if err := mapstructure.WeakDecode(args, &in); err != nil {
		return 0, fmt.Errorf("invalid arguments: %w", err)
	}
	if in.Step <= 0 {
		return 1, nil
	}
	return in.Step, nil
}

func (s *Server) handleAdvance(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	step, err := decodeStep(args)
	if err != nil {
		return StateResponse{}, err
	}
	s.story.Advance(ctx, step)
	return s.stateResponse(), nil
}

func (s *Server) handleRetreat(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	step, err := decodeStep(args)
	if err != nil {
		return StateResponse{}, err
	}
	s.story.Retreat(ctx, step)
	return s.stateResponse(), nil
}

func (s *Server) handleRestart(ctx context.Context, request mcp.CallToolRequest, args map[string]interface{}) (StateResponse, error) {
	s.story.Restart(ctx)
	return s.stateResponse(), nil
}

func (s *Server) registerResources() {
	// EXPOSE: cadence://story
	s.mcpServer.AddResource(mcp.NewResource("cadence://story", "Current Story Document",
		mcp.WithMIMEType("application/json"),
	), func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		jsonBytes, err := json.Marshal(s.document())
		if err != nil {
			return nil, fmt.Errorf("failed to encode story document: %w", err)
		}

		return []mcp.ResourceContents{
			mcp.TextResourceContents{
				URI:      "cadence://story",
				MIMEType: "application/json",
				Text:     string(jsonBytes),
			},
		}, nil
	})
}

func (s *Server) stateResponse() StateResponse {
	state := s.story.State()
	resp := StateResponse{
		State:      state,
		Indicators: s.story.Indicators(),
	}

	if state.Status != domain.StatusNotStarted {
		beats := s.story.Beats()
		if state.CurrentIndex >= 0 && state.CurrentIndex < len(beats) {
			beat := beats[state.CurrentIndex]
			resp.Beat = BeatView{
				ID:      string(beat.ID),
				Index:   state.CurrentIndex,
				Title:   beat.State.Title(),
				Content: beat.State.Content(),
			}
		}
	}
	return resp
}

func (s *Server) document() DocumentResponse {
	beats := s.story.Beats()
	settings := s.story.Settings()

	doc := DocumentResponse{
		Name:  s.story.Name,
		Title: s.story.Title,
		Beats: make([]BeatView, len(beats)),
		Settings: SettingsView{
			AutoAdvance:      settings.AutoAdvance,
			BeatDuration:     settings.BeatDuration.String(),
			ForceManualAfter: settings.ForceManualAfter,
			EndOnLastBeat:    settings.EndOnLastBeat,
		},
	}
	for i, beat := range beats {
		doc.Beats[i] = BeatView{
			ID:      string(beat.ID),
			Index:   i,
			Title:   beat.State.Title(),
			Content: beat.State.Content(),
			Skip:    beat.State.Skip(),
		}
	}
	return doc
}
