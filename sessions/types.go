package sessions

import (
	"context"
	"fmt"
	"sync"

	"github.com/seblake/convo/client"
	"github.com/seblake/convo/models"
)

// StreamClient is the slice of the completion client the orchestrator needs.
// *client.Client satisfies it; tests substitute scripted fakes.
type StreamClient interface {
	Stream(ctx context.Context, messages []models.Message, tools []models.Tool) (<-chan client.StreamEvent, <-chan error)
}

// TurnEventKind discriminates the events a turn emits to its consumer.
type TurnEventKind int

const (
	// TurnRoundStart announces that a new round's request is being sent.
	TurnRoundStart TurnEventKind = iota + 1
	// TurnContentDelta carries a fragment of visible assistant text.
	TurnContentDelta
	// TurnToolCall announces a reassembled tool call about to execute.
	TurnToolCall
	// TurnToolResult carries the outcome of one tool execution.
	TurnToolResult
	// TurnCompleted is the terminal success event, emitted exactly once.
	TurnCompleted
	// TurnFailed is the terminal failure event, emitted exactly once.
	TurnFailed
)

// TurnEvent is one entry of the single ordered event stream a turn produces.
// The channel closes after the terminal event; a cancelled turn closes the
// channel without a terminal event.
type TurnEvent struct {
	Kind       TurnEventKind
	Round      int
	Content    string                  // TurnContentDelta: visible text fragment
	Reasoning  string                  // TurnContentDelta: reasoning fragment, if any
	ToolCall   *models.ToolCallRequest // TurnToolCall
	ToolResult *models.ToolResult      // TurnToolResult
	FinalText  string                  // TurnCompleted: the turn's final visible text
	Err        error                   // TurnFailed
}

// AgentError represents errors surfaced by session operations.
type AgentError struct {
	Message string
	Fatal   bool
}

func (e *AgentError) Error() string {
	return e.Message
}

// ContextError is the heuristic classification of a round that ended with
// neither text nor tool calls: the request was presumed too large for the
// service's context window. The service yields a response shaped identically
// to a truncation, so this stays a guess, deliberately not strengthened.
type ContextError struct {
	Round int
}

func (e *ContextError) Error() string {
	return fmt.Sprintf("round %d produced no content and no tool calls; request likely exceeded the model's context window", e.Round)
}

// SSEWriter handles Server-Sent Events writing.
type SSEWriter interface {
	WriteSSE(data string) error
	WriteSSEError(err error) error
	Flush()
}

// turnEmitter delivers events in order with an at-most-once terminal
// guarantee, dropping everything after the consumer's context ends.
type turnEmitter struct {
	ctx      context.Context
	events   chan<- TurnEvent
	mu       sync.Mutex
	terminal bool
}

func (e *turnEmitter) emit(ev TurnEvent) {
	e.mu.Lock()
	if e.terminal {
		e.mu.Unlock()
		return
	}
	if ev.Kind == TurnCompleted || ev.Kind == TurnFailed {
		e.terminal = true
	}
	e.mu.Unlock()

	select {
	case e.events <- ev:
	case <-e.ctx.Done():
	}
}
