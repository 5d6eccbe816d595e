// Package convo orchestrates multi-round, tool-using conversations against an
// OpenAI-compatible chat-completions service: it streams responses,
// reassembles fragmented tool calls, executes registered local tools, feeds
// the results back, and persists the transcript.
package convo

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/gorilla/websocket"

	"github.com/seblake/convo/client"
	"github.com/seblake/convo/models"
	"github.com/seblake/convo/sessions"
	"github.com/seblake/convo/stores"
	"github.com/seblake/convo/tools"
)

// Engine bundles the completion client, tool registry, and message store that
// sessions are created from. One engine serves many conversations.
type Engine struct {
	Client   *client.Client
	Registry *tools.Registry
	Store    stores.MessageStore
	Traces   stores.TraceStore
	Logger   *log.Logger

	HistoryLimit int
	MaxRounds    int
}

// Option configures an Engine.
type Option func(*Engine)

// WithModel sets the model identifier sent on every request.
func WithModel(model string) Option {
	return func(e *Engine) { e.Client.Model = model }
}

// WithBaseURL points the client at a non-default completions endpoint.
func WithBaseURL(url string) Option {
	return func(e *Engine) { e.Client.BaseURL = url }
}

// WithAPIKeyEnv names the environment variable holding the API key.
func WithAPIKeyEnv(envVar string) Option {
	return func(e *Engine) { e.Client.APIKeyEnv = envVar }
}

// WithSystemPrompt prepends a system message to every request.
func WithSystemPrompt(prompt string) Option {
	return func(e *Engine) { e.Client.SystemPrompt = prompt }
}

// WithHTTPClient swaps the transport, e.g. for custom timeouts.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(e *Engine) { e.Client.HTTPClient = httpClient }
}

// WithStore sets the message store. Without it, NewEngine opens the default
// SQLite database.
func WithStore(store stores.MessageStore) Option {
	return func(e *Engine) { e.Store = store }
}

// WithTraces enables per-round diagnostic traces.
func WithTraces(traces stores.TraceStore) Option {
	return func(e *Engine) { e.Traces = traces }
}

// WithTools registers tool declarations on the engine's registry.
func WithTools(decls ...models.FunctionDeclaration) Option {
	return func(e *Engine) {
		for _, decl := range decls {
			if err := e.Registry.Register(decl); err != nil {
				e.Logger.Printf("Skipping tool registration: %v", err)
			}
		}
	}
}

// WithMaxRounds overrides the per-turn round cap.
func WithMaxRounds(n int) Option {
	return func(e *Engine) { e.MaxRounds = n }
}

// WithHistoryLimit caps how many persisted messages are replayed per turn.
func WithHistoryLimit(n int) Option {
	return func(e *Engine) { e.HistoryLimit = n }
}

// WithLogger replaces the engine's logger.
func WithLogger(logger *log.Logger) Option {
	return func(e *Engine) { e.Logger = logger }
}

// NewEngine creates an engine with the given options applied in order.
func NewEngine(opts ...Option) (*Engine, error) {
	e := &Engine{
		Client:   &client.Client{},
		Registry: tools.NewRegistry(),
		Logger:   log.New(os.Stdout, "[ENGINE] ", log.LstdFlags),
	}
	for _, opt := range opts {
		opt(e)
	}

	if e.Store == nil {
		store, err := stores.NewSQLiteStoreDefault()
		if err != nil {
			return nil, fmt.Errorf("failed to open default message store: %w", err)
		}
		e.Store = store
	}

	return e, nil
}

// Session creates a plain session for the given conversation; the caller
// consumes TurnEvents directly.
func (e *Engine) Session(conversationID string) *sessions.Session {
	s := sessions.NewSession(conversationID, e.Client, e.Registry, e.Store)
	s.Traces = e.Traces
	s.HistoryLimit = e.HistoryLimit
	s.MaxRounds = e.MaxRounds
	return s
}

// WebSocketSession creates a session whose turn events are forwarded over the
// given connection.
func (e *Engine) WebSocketSession(conversationID string, conn *websocket.Conn) *sessions.WebSocketSession {
	ws := sessions.NewWebSocketSession(conversationID, conn, e.Client, e.Registry, e.Store)
	ws.Session.Traces = e.Traces
	ws.Session.HistoryLimit = e.HistoryLimit
	ws.Session.MaxRounds = e.MaxRounds
	return ws
}

// HTTPSession creates a session for SSE or blocking HTTP consumption.
func (e *Engine) HTTPSession(conversationID string) *sessions.HTTPSession {
	hs := sessions.NewHTTPSession(conversationID, e.Client, e.Registry, e.Store)
	hs.Session.Traces = e.Traces
	hs.Session.HistoryLimit = e.HistoryLimit
	hs.Session.MaxRounds = e.MaxRounds
	return hs
}

// Ask runs one turn to completion and returns the final assistant text.
// Convenience wrapper for scripting and tests.
func (e *Engine) Ask(ctx context.Context, conversationID, userText string) (string, error) {
	return e.HTTPSession(conversationID).RunTurnBlocking(ctx, userText)
}

// Close releases the engine's store connection.
func (e *Engine) Close() error {
	if e.Store == nil {
		return nil
	}
	return e.Store.Close()
}
