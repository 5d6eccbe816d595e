package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/seblake/convo/models"
)

func testRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry()
	err := r.Register(models.FunctionDeclaration{
		Name:        "greet",
		Description: "Greets someone by name.",
		Parameters: models.Parameters{
			Type:       "object",
			Properties: map[string]interface{}{"name": map[string]string{"type": "string"}},
			Required:   []string{"name"},
		},
		Handler: func(args map[string]interface{}) (string, error) {
			name, _ := args["name"].(string)
			if name == "" {
				return "", errors.New("name is required")
			}
			return "hello " + name, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func decodeContent(t *testing.T, content string) map[string]string {
	t.Helper()
	var decoded map[string]string
	if err := json.Unmarshal([]byte(content), &decoded); err != nil {
		t.Fatalf("Result content is not valid JSON: %v (content: %s)", err, content)
	}
	return decoded
}

func TestExecute_Success(t *testing.T) {
	e := NewExecutor(testRegistry(t), nil)
	result := e.Execute(models.ToolCallRequest{ID: "call_1", Name: "greet", ArgumentsJSON: `{"name":"Ada"}`})

	if result.ToolCallID != "call_1" {
		t.Errorf("Expected ToolCallID call_1, got %s", result.ToolCallID)
	}
	decoded := decodeContent(t, result.Content)
	if decoded["result"] != "hello Ada" {
		t.Errorf("Expected wrapped result, got %s", result.Content)
	}
}

func TestExecute_UnknownTool(t *testing.T) {
	e := NewExecutor(testRegistry(t), nil)
	result := e.Execute(models.ToolCallRequest{ID: "call_1", Name: "frobnicate", ArgumentsJSON: "{}"})

	decoded := decodeContent(t, result.Content)
	if decoded["error"] != "unknown or unavailable tool: frobnicate" {
		t.Errorf("Expected unknown-tool error, got %s", result.Content)
	}
}

func TestExecute_InvalidArguments(t *testing.T) {
	e := NewExecutor(testRegistry(t), nil)
	result := e.Execute(models.ToolCallRequest{ID: "call_1", Name: "greet", ArgumentsJSON: `{"name":`})

	decoded := decodeContent(t, result.Content)
	if decoded["error"] == "" {
		t.Fatalf("Expected error-shaped result, got %s", result.Content)
	}
	if decoded["raw"] != `{"name":` {
		t.Errorf("Expected raw argument string preserved, got %s", decoded["raw"])
	}
}

func TestExecute_EmptyArguments(t *testing.T) {
	// Some services send an empty arguments string for zero-parameter calls;
	// the handler receives an empty map, not an error.
	r := NewRegistry()
	if err := r.Register(models.FunctionDeclaration{
		Name: "noop",
		Handler: func(args map[string]interface{}) (string, error) {
			return fmt.Sprintf("got %d args", len(args)), nil
		},
	}); err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(r, nil)
	result := e.Execute(models.ToolCallRequest{ID: "call_1", Name: "noop", ArgumentsJSON: ""})

	decoded := decodeContent(t, result.Content)
	if decoded["result"] != "got 0 args" {
		t.Errorf("Expected empty-map invocation, got %s", result.Content)
	}
}

func TestExecute_HandlerError(t *testing.T) {
	e := NewExecutor(testRegistry(t), nil)
	result := e.Execute(models.ToolCallRequest{ID: "call_1", Name: "greet", ArgumentsJSON: "{}"})

	decoded := decodeContent(t, result.Content)
	if decoded["error"] != "name is required" {
		t.Errorf("Expected handler error in content, got %s", result.Content)
	}
}

func TestExecute_PanicRecovered(t *testing.T) {
	r := NewRegistry()
	if err := r.Register(models.FunctionDeclaration{
		Name: "explode",
		Handler: func(args map[string]interface{}) (string, error) {
			panic("boom")
		},
	}); err != nil {
		t.Fatal(err)
	}

	e := NewExecutor(r, nil)
	result := e.Execute(models.ToolCallRequest{ID: "call_1", Name: "explode", ArgumentsJSON: "{}"})

	decoded := decodeContent(t, result.Content)
	if !strings.Contains(decoded["error"], "panicked") {
		t.Errorf("Expected panic converted to error result, got %s", result.Content)
	}
}

func TestExecute_RepeatedCallStillRuns(t *testing.T) {
	e := NewExecutor(testRegistry(t), nil)
	call := models.ToolCallRequest{ID: "call_1", Name: "greet", ArgumentsJSON: `{"name":"Ada"}`}

	first := e.Execute(call)
	second := e.Execute(call)

	if first.Content != second.Content {
		t.Errorf("Expected identical repeated calls to both run, got %s vs %s", first.Content, second.Content)
	}
}
