package models

import "fmt"

// Finish reasons reported in choices[].finish_reason.
const (
	FinishStop      = "stop"
	FinishLength    = "length"
	FinishToolCalls = "tool_calls"
)

// ChatResponse is the non-streaming response envelope.
type ChatResponse struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"` // "chat.completion"
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
	Usage   *Usage   `json:"usage,omitempty"`
}

// StreamChunk is a single streaming record: one `data: {...}` envelope.
type StreamChunk struct {
	ID      string   `json:"id"`
	Object  string   `json:"object"` // "chat.completion.chunk"
	Created int64    `json:"created"`
	Model   string   `json:"model"`
	Choices []Choice `json:"choices"`
}

type Choice struct {
	Index        int     `json:"index"`
	Message      Message `json:"message,omitempty"` // For non-streaming
	Delta        *Delta  `json:"delta,omitempty"`   // For streaming
	FinishReason *string `json:"finish_reason,omitempty"`
}

// Delta carries the incremental payload of a streaming chunk.
type Delta struct {
	Role             string          `json:"role,omitempty"`
	Content          interface{}     `json:"content,omitempty"` // string when present
	ToolCalls        []ToolCallDelta `json:"tool_calls,omitempty"`
	Reasoning        *string         `json:"reasoning,omitempty"`
	ReasoningContent *string         `json:"reasoning_content,omitempty"`
}

// ContentString extracts the text fragment of a delta, if any.
func (d *Delta) ContentString() string {
	if d == nil {
		return ""
	}
	if s, ok := d.Content.(string); ok {
		return s
	}
	return ""
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// ErrorResponse is the error envelope returned on non-2xx status codes.
type ErrorResponse struct {
	Error APIError `json:"error"`
}

// APIError is a service-reported failure.
type APIError struct {
	Message    string      `json:"message"`
	Type       string      `json:"type"`
	Param      interface{} `json:"param,omitempty"`
	Code       interface{} `json:"code,omitempty"`
	StatusCode int         `json:"-"`
}

func (e *APIError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("completion API error: %s (type: %s)", e.Message, e.Type)
	}
	return fmt.Sprintf("completion API error: status %d: %s", e.StatusCode, e.Message)
}
