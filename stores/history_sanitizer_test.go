package stores

import (
	"testing"
)

const calls = `[{"id":"call_1","type":"function","function":{"name":"x","arguments":"{}"}}]`

func TestSanitizeHistory_EmptyHistory(t *testing.T) {
	msgs := []Message{}
	result := SanitizeHistory(msgs)
	if len(result) != 0 {
		t.Errorf("Expected empty result, got %d messages", len(result))
	}
}

func TestSanitizeHistory_ValidHistory(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "what time is it?"},
		{Role: "assistant", ToolCallsJSON: calls},
		{Role: "tool", Content: `{"result":"noon"}`, ToolCallID: "call_1"},
		{Role: "assistant", Content: "it is noon"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 6 {
		t.Errorf("Expected 6 messages, got %d", len(result))
	}
}

func TestSanitizeHistory_OrphanedToolResultAtStart(t *testing.T) {
	msgs := []Message{
		{Role: "tool", Content: `{"result":"x"}`}, // orphaned - should be skipped
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello again"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 3 {
		t.Errorf("Expected 3 messages (skipping orphaned tool result), got %d", len(result))
	}
	if result[0].Role != "assistant" {
		t.Errorf("Expected first message to be assistant, got %s", result[0].Role)
	}
}

func TestSanitizeHistory_TruncatedMidToolCycle(t *testing.T) {
	// Simulates truncation that starts in the middle of a tool cycle
	msgs := []Message{
		{Role: "assistant", ToolCallsJSON: calls}, // orphaned - should be skipped
		{Role: "tool", Content: `{"result":"x"}`}, // orphaned - should be skipped
		{Role: "user", Content: "hi"},             // valid start
		{Role: "assistant", Content: "hello"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 2 {
		t.Errorf("Expected 2 messages (skipping orphaned tool cycle), got %d", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("Expected first message to be user, got %s", result[0].Role)
	}
}

func TestSanitizeHistory_IncompleteCycleAtEnd(t *testing.T) {
	// Simulates a process dying mid-turn - tool_calls saved but no results
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "what time is it?"},
		{Role: "assistant", ToolCallsJSON: calls}, // incomplete - should be removed
	}
	result := SanitizeHistory(msgs)
	if len(result) != 3 {
		t.Errorf("Expected 3 messages (removing incomplete cycle), got %d", len(result))
	}
	if result[len(result)-1].Role != "user" {
		t.Errorf("Expected last message to be user, got %s", result[len(result)-1].Role)
	}
}

func TestSanitizeHistory_ToolCycleWithRoundText(t *testing.T) {
	// A round that produced text before its tool calls keeps both messages
	msgs := []Message{
		{Role: "user", Content: "what time is it?"},
		{Role: "assistant", Content: "Let me check."},
		{Role: "assistant", ToolCallsJSON: calls},
		{Role: "tool", Content: `{"result":"noon"}`, ToolCallID: "call_1"},
		{Role: "assistant", Content: "it is noon"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 5 {
		t.Errorf("Expected 5 messages, got %d", len(result))
	}
}

func TestSanitizeHistory_PartialResultsForCalls(t *testing.T) {
	// Two requests but only one result came back - still a valid cycle
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCallsJSON: calls},
		{Role: "assistant", ToolCallsJSON: calls},
		{Role: "tool", Content: `{"result":"x"}`, ToolCallID: "call_1"},
		{Role: "assistant", Content: "done"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 5 {
		t.Errorf("Expected 5 messages, got %d", len(result))
	}
}

func TestSanitizeHistory_OnlyOrphanedMessages(t *testing.T) {
	// Entire history is corrupted
	msgs := []Message{
		{Role: "tool", Content: `{"result":"x"}`},
		{Role: "assistant", ToolCallsJSON: calls},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 0 {
		t.Errorf("Expected empty result for fully corrupted history, got %d messages", len(result))
	}
}

func TestSanitizeHistory_SkipsToUserStart(t *testing.T) {
	msgs := []Message{
		{Role: "tool", Content: `{"result":"x"}`},
		{Role: "user", Content: "hi"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 1 {
		t.Fatalf("Expected 1 message, got %d", len(result))
	}
	if result[0].Role != "user" {
		t.Errorf("Expected user message, got %s", result[0].Role)
	}
}

func TestSanitizeHistory_ChainedToolCycles(t *testing.T) {
	// Tool result triggers another tool call in the next round
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCallsJSON: calls},
		{Role: "tool", Content: `{"result":"x"}`, ToolCallID: "call_1"},
		{Role: "assistant", ToolCallsJSON: calls}, // second cycle
		{Role: "tool", Content: `{"result":"y"}`, ToolCallID: "call_1"},
		{Role: "assistant", Content: "done"},
	}
	result := SanitizeHistory(msgs)
	if len(result) != 6 {
		t.Errorf("Expected 6 messages, got %d", len(result))
	}
}

func TestDetectCorruptedHistory_Clean(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) != 0 {
		t.Errorf("Expected no issues for clean history, got: %v", issues)
	}
}

func TestDetectCorruptedHistory_OrphanedStart(t *testing.T) {
	msgs := []Message{
		{Role: "tool", Content: `{"result":"x"}`},
		{Role: "assistant", Content: "hello"},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) == 0 {
		t.Error("Expected issues for orphaned tool result at start")
	}
}

func TestDetectCorruptedHistory_UnansweredCallAtEnd(t *testing.T) {
	msgs := []Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCallsJSON: calls},
	}
	issues := DetectCorruptedHistory(msgs)
	if len(issues) == 0 {
		t.Error("Expected issues for unanswered tool-call request at end")
	}
}
