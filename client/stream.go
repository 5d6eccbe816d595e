package client

import (
	"bufio"
	"context"
	"encoding/json"
	"io"
	"log"
	"strings"

	"github.com/seblake/convo/models"
)

// EventKind discriminates parsed stream events.
type EventKind int

const (
	// EventContent carries a fragment of generated text (and/or reasoning).
	EventContent EventKind = iota + 1
	// EventToolCallDelta carries a partial update to the tool call at a
	// positional index.
	EventToolCallDelta
	// EventFinish carries the service's finish_reason for the round.
	EventFinish
	// EventDone signals that the transport-level terminator was observed, or
	// that the stream ended without one (lenient completion).
	EventDone
)

// StreamEvent is one typed event parsed from the incremental response stream.
type StreamEvent struct {
	Kind          EventKind
	Content       string                // EventContent: visible text fragment
	Reasoning     string                // EventContent: reasoning-channel fragment, if any
	ToolCallDelta *models.ToolCallDelta // EventToolCallDelta
	FinishReason  string                // EventFinish
}

// parseStream splits the SSE body into records and emits typed events in
// arrival order. Malformed records are skipped with a logged warning. The
// stream resolves with an EventDone on clean completion, even when the
// transport ends before the `data: [DONE]` terminator; a read failure returns
// the error without a Done event so the caller never mistakes a dropped
// connection for a finished round.
func parseStream(ctx context.Context, body io.Reader, events chan<- StreamEvent) error {
	reader := bufio.NewReader(body)

	for {
		line, err := reader.ReadString('\n')
		if err != nil {
			if err == io.EOF {
				// Lenient completion: treat a missing terminator as end of stream.
				emit(ctx, events, StreamEvent{Kind: EventDone})
				return nil
			}
			if ctx.Err() != nil {
				// Cancellation is not a transport failure; resolve quietly.
				emit(ctx, events, StreamEvent{Kind: EventDone})
				return nil
			}
			return err
		}

		line = strings.TrimSpace(line)
		if line == "" || !strings.HasPrefix(line, "data: ") {
			continue
		}

		data := strings.TrimPrefix(line, "data: ")
		if data == "[DONE]" {
			emit(ctx, events, StreamEvent{Kind: EventDone})
			return nil
		}

		var chunk models.StreamChunk
		if err := json.Unmarshal([]byte(data), &chunk); err != nil {
			log.Printf("Warning: failed to unmarshal stream chunk: %v, data: %s", err, data)
			continue
		}

		for _, choice := range chunk.Choices {
			if choice.Delta != nil {
				if text, reasoning := deltaFragments(choice.Delta); text != "" || reasoning != "" {
					if !emit(ctx, events, StreamEvent{Kind: EventContent, Content: text, Reasoning: reasoning}) {
						return nil
					}
				}
				for _, tc := range choice.Delta.ToolCalls {
					delta := tc
					if !emit(ctx, events, StreamEvent{Kind: EventToolCallDelta, ToolCallDelta: &delta}) {
						return nil
					}
				}
			}
			if choice.FinishReason != nil && *choice.FinishReason != "" {
				if !emit(ctx, events, StreamEvent{Kind: EventFinish, FinishReason: *choice.FinishReason}) {
					return nil
				}
			}
		}
	}
}

func deltaFragments(d *models.Delta) (text, reasoning string) {
	text = d.ContentString()
	if d.Reasoning != nil {
		reasoning = *d.Reasoning
	} else if d.ReasoningContent != nil {
		reasoning = *d.ReasoningContent
	}
	return text, reasoning
}

// emit sends an event unless the consumer has gone away.
func emit(ctx context.Context, events chan<- StreamEvent, ev StreamEvent) bool {
	select {
	case events <- ev:
		return true
	case <-ctx.Done():
		return false
	}
}
