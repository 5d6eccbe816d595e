package sessions

import (
	"context"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// WebSocketWriter handles all WebSocket communication for a session. Writes
// are serialized; gorilla/websocket connections do not allow concurrent
// writers.
type WebSocketWriter struct {
	Conn             *websocket.Conn
	Logger           *log.Logger
	StartTime        time.Time
	FirstTokenTime   *time.Time
	FirstTokenLogged bool
	mu               sync.Mutex
}

func (w *WebSocketWriter) WriteResponse(resp interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	// Track time to first token
	if !w.FirstTokenLogged && w.FirstTokenTime == nil && !w.StartTime.IsZero() {
		now := time.Now()
		w.FirstTokenTime = &now
		w.Logger.Printf("Time to first token: %v", now.Sub(w.StartTime))
		w.FirstTokenLogged = true
	}
	return w.Conn.WriteJSON(resp)
}

func (w *WebSocketWriter) WriteError(message string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"error": message})
}

func (w *WebSocketWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.Conn.WriteJSON(map[string]string{"type": "done"})
}

// WebSocketSession forwards a session's turn events over a WebSocket
// connection.
type WebSocketSession struct {
	Session *Session
	Writer  *WebSocketWriter
	Logger  *log.Logger
}

// wsRoundStartMessage marks the beginning of a generation round.
type wsRoundStartMessage struct {
	Type  string `json:"type"` // "round_start"
	Round int    `json:"round"`
}

// wsContentMessage carries a visible-text or reasoning fragment.
type wsContentMessage struct {
	Type      string `json:"type"` // "content"
	Round     int    `json:"round"`
	Delta     string `json:"delta,omitempty"`
	Reasoning string `json:"reasoning,omitempty"`
}

// wsToolCallMessage announces a tool call about to execute.
type wsToolCallMessage struct {
	Type          string `json:"type"` // "tool_call"
	Round         int    `json:"round"`
	FunctionName  string `json:"function_name"`
	FunctionID    string `json:"function_id"`
	ArgumentsJSON string `json:"arguments_json"`
}

// wsToolResultMessage carries a finished tool execution's result.
type wsToolResultMessage struct {
	Type         string `json:"type"` // "tool_result"
	Round        int    `json:"round"`
	FunctionName string `json:"function_name"`
	FunctionID   string `json:"function_id"`
	ResultJSON   string `json:"result_json"`
}

// wsCompletedMessage closes a successful turn.
type wsCompletedMessage struct {
	Type  string `json:"type"` // "completed"
	Round int    `json:"round"`
	Text  string `json:"text"`
}

// RunTurn runs one generation turn and forwards every event to the connected
// client, finishing with a done frame. A cancelled turn returns ctx.Err()
// without a done frame.
func (ws *WebSocketSession) RunTurn(ctx context.Context, userText string) error {
	ws.Writer.StartTime = time.Now()
	ws.Writer.FirstTokenTime = nil
	ws.Writer.FirstTokenLogged = false

	events := ws.Session.RunTurn(ctx, userText)

	var turnErr error
	for ev := range events {
		if err := ws.forward(ev); err != nil {
			ws.Logger.Printf("Error writing turn event: %v", err)
			ws.Session.Abort()
			return &AgentError{Message: "error writing turn event", Fatal: true}
		}
		if ev.Kind == TurnFailed {
			turnErr = ev.Err
		}
	}

	if ctx.Err() != nil {
		return ctx.Err()
	}
	if turnErr != nil {
		return turnErr
	}
	return ws.Writer.WriteDone()
}

func (ws *WebSocketSession) forward(ev TurnEvent) error {
	switch ev.Kind {
	case TurnRoundStart:
		return ws.Writer.WriteResponse(wsRoundStartMessage{Type: "round_start", Round: ev.Round})

	case TurnContentDelta:
		return ws.Writer.WriteResponse(wsContentMessage{
			Type:      "content",
			Round:     ev.Round,
			Delta:     ev.Content,
			Reasoning: ev.Reasoning,
		})

	case TurnToolCall:
		return ws.Writer.WriteResponse(wsToolCallMessage{
			Type:          "tool_call",
			Round:         ev.Round,
			FunctionName:  ev.ToolCall.Name,
			FunctionID:    ev.ToolCall.ID,
			ArgumentsJSON: ev.ToolCall.ArgumentsJSON,
		})

	case TurnToolResult:
		return ws.Writer.WriteResponse(wsToolResultMessage{
			Type:         "tool_result",
			Round:        ev.Round,
			FunctionName: ev.ToolResult.Name,
			FunctionID:   ev.ToolResult.ToolCallID,
			ResultJSON:   ev.ToolResult.Content,
		})

	case TurnCompleted:
		return ws.Writer.WriteResponse(wsCompletedMessage{Type: "completed", Round: ev.Round, Text: ev.FinalText})

	case TurnFailed:
		return ws.Writer.WriteError(ev.Err.Error())
	}
	return nil
}
