package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/seblake/convo/models"
)

// HTTPSession handles HTTP-based chat interactions.
type HTTPSession struct {
	Session *Session
	Logger  *log.Logger
}

// sseEvent is the JSON payload written per SSE record. It mirrors the
// WebSocket frames so a frontend can share decoding.
type sseEvent struct {
	Type          string `json:"type"`
	Round         int    `json:"round,omitempty"`
	Delta         string `json:"delta,omitempty"`
	Reasoning     string `json:"reasoning,omitempty"`
	FunctionName  string `json:"function_name,omitempty"`
	FunctionID    string `json:"function_id,omitempty"`
	ArgumentsJSON string `json:"arguments_json,omitempty"`
	ResultJSON    string `json:"result_json,omitempty"`
	Text          string `json:"text,omitempty"`
}

// RunTurnSSE runs one generation turn and writes every event to the SSE
// stream. Client disconnects cancel the turn via ctx.
func (s *HTTPSession) RunTurnSSE(ctx context.Context, userText string, writer SSEWriter) error {
	events := s.Session.RunTurn(ctx, userText)

	var turnErr error
	for ev := range events {
		if ev.Kind == TurnFailed {
			turnErr = ev.Err
			if writeErr := writer.WriteSSEError(ev.Err); writeErr != nil {
				s.Logger.Printf("Error writing SSE error: %v", writeErr)
			}
			writer.Flush()
			continue
		}

		jsonData, err := json.Marshal(toSSEEvent(ev))
		if err != nil {
			s.Logger.Printf("Error marshalling turn event: %v", err)
			continue
		}
		if err := writer.WriteSSE(string(jsonData)); err != nil {
			s.Logger.Printf("Error writing to SSE stream: %v", err)
			s.Session.Abort()
			return err
		}
		writer.Flush()
	}

	if ctx.Err() != nil {
		s.Logger.Printf("SSE client disconnected")
		return ctx.Err()
	}
	return turnErr
}

// RunTurnBlocking runs one turn to completion and returns the final visible
// text. Intended for non-streaming endpoints and scripting.
func (s *HTTPSession) RunTurnBlocking(ctx context.Context, userText string) (string, error) {
	events := s.Session.RunTurn(ctx, userText)

	finalText := ""
	var turnErr error
	for ev := range events {
		switch ev.Kind {
		case TurnCompleted:
			finalText = ev.FinalText
		case TurnFailed:
			turnErr = ev.Err
		}
	}

	if ctx.Err() != nil {
		return "", ctx.Err()
	}
	return finalText, turnErr
}

func toSSEEvent(ev TurnEvent) sseEvent {
	switch ev.Kind {
	case TurnRoundStart:
		return sseEvent{Type: "round_start", Round: ev.Round}
	case TurnContentDelta:
		return sseEvent{Type: "content", Round: ev.Round, Delta: ev.Content, Reasoning: ev.Reasoning}
	case TurnToolCall:
		return sseEvent{Type: "tool_call", Round: ev.Round, FunctionName: ev.ToolCall.Name, FunctionID: ev.ToolCall.ID, ArgumentsJSON: ev.ToolCall.ArgumentsJSON}
	case TurnToolResult:
		return sseEvent{Type: "tool_result", Round: ev.Round, FunctionName: ev.ToolResult.Name, FunctionID: ev.ToolResult.ToolCallID, ResultJSON: ev.ToolResult.Content}
	case TurnCompleted:
		return sseEvent{Type: "completed", Round: ev.Round, Text: ev.FinalText}
	}
	return sseEvent{Type: "unknown"}
}

// HistoryEntry is the API shape of one persisted message, with the tool-call
// JSON expanded.
type HistoryEntry struct {
	ID             uint              `json:"id"`
	CreatedAt      time.Time         `json:"created_at"`
	ConversationID string            `json:"conversation_id"`
	Sequence       int               `json:"sequence"`
	Role           string            `json:"role"`
	Content        string            `json:"content,omitempty"`
	Reasoning      string            `json:"reasoning,omitempty"`
	ToolCalls      []models.ToolCall `json:"tool_calls,omitempty"`
	ToolCallID     string            `json:"tool_call_id,omitempty"`
	ToolName       string            `json:"tool_name,omitempty"`
}

// GetChatHistory retrieves the conversation transcript in API shape.
func (s *HTTPSession) GetChatHistory() ([]HistoryEntry, error) {
	rows, err := s.Session.Store.FetchHistory(s.Session.ConversationID, 0)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch history: %w", err)
	}

	entries := make([]HistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := HistoryEntry{
			ID:             row.ID,
			CreatedAt:      row.CreatedAt,
			ConversationID: row.ConversationID,
			Sequence:       row.Sequence,
			Role:           row.Role,
			Content:        row.Content,
			Reasoning:      row.Reasoning,
			ToolCallID:     row.ToolCallID,
			ToolName:       row.ToolName,
		}
		if row.ToolCallsJSON != "" {
			if err := json.Unmarshal([]byte(row.ToolCallsJSON), &entry.ToolCalls); err != nil {
				s.Logger.Printf("Error unmarshalling tool calls for msg ID %d: %v", row.ID, err)
			}
		}
		entries = append(entries, entry)
	}

	return entries, nil
}
