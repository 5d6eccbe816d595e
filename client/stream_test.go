package client

import (
	"context"
	"errors"
	"strings"
	"testing"
)

// collectEvents runs parseStream over the given SSE body and returns the
// emitted events plus the parse error.
func collectEvents(t *testing.T, body string) ([]StreamEvent, error) {
	t.Helper()

	events := make(chan StreamEvent)
	errCh := make(chan error, 1)
	go func() {
		errCh <- parseStream(context.Background(), strings.NewReader(body), events)
		close(events)
	}()

	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}
	return collected, <-errCh
}

func TestParseStream_ContentAndDone(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"Hel\"}}]}\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"lo\"}}]}\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"stop\"}]}\n" +
		"data: [DONE]\n"

	events, err := collectEvents(t, body)
	if err != nil {
		t.Fatalf("parseStream error: %v", err)
	}

	if len(events) != 4 {
		t.Fatalf("Expected 4 events, got %d: %+v", len(events), events)
	}
	if events[0].Kind != EventContent || events[0].Content != "Hel" {
		t.Errorf("Unexpected first event: %+v", events[0])
	}
	if events[1].Kind != EventContent || events[1].Content != "lo" {
		t.Errorf("Unexpected second event: %+v", events[1])
	}
	if events[2].Kind != EventFinish || events[2].FinishReason != "stop" {
		t.Errorf("Unexpected finish event: %+v", events[2])
	}
	if events[3].Kind != EventDone {
		t.Errorf("Expected terminal Done event, got %+v", events[3])
	}
}

func TestParseStream_ToolCallDeltas(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"id\":\"call_1\",\"function\":{\"name\":\"echo\",\"arguments\":\"\"}}]}}]}\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"tool_calls\":[{\"index\":0,\"function\":{\"arguments\":\"{\\\"text\\\":\\\"hi\\\"}\"}}]}}]}\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{},\"finish_reason\":\"tool_calls\"}]}\n" +
		"data: [DONE]\n"

	events, err := collectEvents(t, body)
	if err != nil {
		t.Fatalf("parseStream error: %v", err)
	}

	var deltas int
	for _, ev := range events {
		if ev.Kind == EventToolCallDelta {
			deltas++
			if ev.ToolCallDelta.Index != 0 {
				t.Errorf("Expected delta index 0, got %d", ev.ToolCallDelta.Index)
			}
		}
	}
	if deltas != 2 {
		t.Errorf("Expected 2 tool-call delta events, got %d", deltas)
	}
	if events[len(events)-1].Kind != EventDone {
		t.Errorf("Expected terminal Done event, got %+v", events[len(events)-1])
	}
}

func TestParseStream_MalformedChunkSkipped(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"ok\"}}]}\n" +
		"data: {not json}\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"!\"}}]}\n" +
		"data: [DONE]\n"

	events, err := collectEvents(t, body)
	if err != nil {
		t.Fatalf("parseStream error: %v", err)
	}

	text := ""
	for _, ev := range events {
		if ev.Kind == EventContent {
			text += ev.Content
		}
	}
	if text != "ok!" {
		t.Errorf("Expected content around malformed chunk, got %q", text)
	}
}

func TestParseStream_LenientEOFWithoutTerminator(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"partial\"}}]}\n"

	events, err := collectEvents(t, body)
	if err != nil {
		t.Fatalf("Expected lenient completion, got error: %v", err)
	}
	if events[len(events)-1].Kind != EventDone {
		t.Errorf("Expected Done event at EOF without [DONE], got %+v", events[len(events)-1])
	}
}

func TestParseStream_IgnoresNonDataLines(t *testing.T) {
	body := ": keepalive comment\n" +
		"event: message\n" +
		"\n" +
		"data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"hi\"}}]}\n" +
		"data: [DONE]\n"

	events, err := collectEvents(t, body)
	if err != nil {
		t.Fatalf("parseStream error: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].Content != "hi" {
		t.Errorf("Expected content 'hi', got %q", events[0].Content)
	}
}

// failingReader yields its data once and then fails every read, like a
// connection dropped mid-stream.
type failingReader struct {
	data string
	err  error
	read bool
}

func (r *failingReader) Read(p []byte) (int, error) {
	if !r.read {
		r.read = true
		return copy(p, r.data), nil
	}
	return 0, r.err
}

func TestParseStream_MidStreamReadErrorSurfaced(t *testing.T) {
	readErr := errors.New("connection reset by peer")
	reader := &failingReader{
		data: "data: {\"choices\":[{\"index\":0,\"delta\":{\"content\":\"par\"}}]}\n",
		err:  readErr,
	}

	events := make(chan StreamEvent)
	errCh := make(chan error, 1)
	go func() {
		errCh <- parseStream(context.Background(), reader, events)
		close(events)
	}()

	var collected []StreamEvent
	for ev := range events {
		collected = append(collected, ev)
	}

	if err := <-errCh; !errors.Is(err, readErr) {
		t.Fatalf("Expected read error surfaced, got %v", err)
	}
	if len(collected) != 1 || collected[0].Kind != EventContent {
		t.Fatalf("Expected only the content event before the failure, got %+v", collected)
	}
	for _, ev := range collected {
		if ev.Kind == EventDone {
			t.Error("A failed stream must not resolve with a Done event")
		}
	}
}

func TestParseStream_ReasoningChannel(t *testing.T) {
	body := "data: {\"choices\":[{\"index\":0,\"delta\":{\"reasoning\":\"thinking...\"}}]}\n" +
		"data: [DONE]\n"

	events, err := collectEvents(t, body)
	if err != nil {
		t.Fatalf("parseStream error: %v", err)
	}
	if events[0].Kind != EventContent || events[0].Reasoning != "thinking..." {
		t.Errorf("Expected reasoning fragment, got %+v", events[0])
	}
}
