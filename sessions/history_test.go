package sessions

import (
	"testing"

	"github.com/seblake/convo/models"
	"github.com/seblake/convo/stores"
)

const testCallsJSON = `[{"id":"call_1","type":"function","function":{"name":"clock","arguments":"{}"}}]`

func TestAssembleRequest_OrderPreserved(t *testing.T) {
	persisted := []stores.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello"},
		{Role: "user", Content: "what time is it?"},
	}
	tail := []models.Message{
		models.AssistantTextMessage("Let me check."),
		models.AssistantToolCallMessage([]models.ToolCall{{ID: "call_1", Type: "function"}}),
		models.ToolResultMessage(models.ToolResult{ToolCallID: "call_1", Name: "clock", Content: `{"result":"noon"}`}),
	}

	messages := AssembleRequest(persisted, tail)
	if len(messages) != 6 {
		t.Fatalf("Expected 6 messages, got %d", len(messages))
	}

	wantRoles := []string{"user", "assistant", "user", "assistant", "assistant", "tool"}
	for i, role := range wantRoles {
		if messages[i].Role != role {
			t.Errorf("Position %d: expected role %s, got %s", i, role, messages[i].Role)
		}
	}
	if messages[5].ToolCallID == nil || *messages[5].ToolCallID != "call_1" {
		t.Errorf("Expected tool result to reference call_1, got %v", messages[5].ToolCallID)
	}
}

func TestAssembleRequest_SanitizesPersistedHistory(t *testing.T) {
	// An unanswered tool-call request from an aborted turn must not be
	// replayed.
	persisted := []stores.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", ToolCallsJSON: testCallsJSON},
	}

	messages := AssembleRequest(persisted, nil)
	if len(messages) != 1 {
		t.Fatalf("Expected 1 message after sanitizing, got %d", len(messages))
	}
	if messages[0].Role != "user" {
		t.Errorf("Expected surviving message to be user, got %s", messages[0].Role)
	}
}

func TestAssembleRequest_ExpandsToolCallRows(t *testing.T) {
	persisted := []stores.Message{
		{Role: "user", Content: "what time is it?"},
		{Role: "assistant", ToolCallsJSON: testCallsJSON},
		{Role: "tool", Content: `{"result":"noon"}`, ToolCallID: "call_1", ToolName: "clock"},
		{Role: "assistant", Content: "it is noon"},
	}

	messages := AssembleRequest(persisted, nil)
	if len(messages) != 4 {
		t.Fatalf("Expected 4 messages, got %d", len(messages))
	}

	if len(messages[1].ToolCalls) != 1 || messages[1].ToolCalls[0].ID != "call_1" {
		t.Errorf("Expected tool-call row expanded to wire calls, got %+v", messages[1])
	}
	if messages[2].Role != "tool" || messages[2].ToolCallID == nil || *messages[2].ToolCallID != "call_1" {
		t.Errorf("Expected tool result message, got %+v", messages[2])
	}
}

func TestAssembleRequest_ReasoningNeverReplayed(t *testing.T) {
	persisted := []stores.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "hello", Reasoning: "secret chain of thought"},
	}

	messages := AssembleRequest(persisted, nil)
	if len(messages) != 2 {
		t.Fatalf("Expected 2 messages, got %d", len(messages))
	}
	if messages[1].TextContent() != "hello" {
		t.Errorf("Expected assistant content only, got %q", messages[1].TextContent())
	}
	if messages[1].Reasoning != nil || messages[1].ReasoningContent != nil {
		t.Error("Reasoning must not appear in replayed messages")
	}
}

func TestAssembleRequest_SkipsEmptyRows(t *testing.T) {
	// An empty assistant placeholder that was never filled and never deleted
	// (e.g. crash between writes) must not be sent.
	persisted := []stores.Message{
		{Role: "user", Content: "hi"},
		{Role: "assistant"},
		{Role: "assistant", Content: "hello"},
	}

	messages := AssembleRequest(persisted, nil)
	if len(messages) != 2 {
		t.Fatalf("Expected empty placeholder skipped, got %d messages", len(messages))
	}
}
