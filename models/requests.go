package models

// ChatRequest is the body of a completion request (OpenAI-compatible format).
type ChatRequest struct {
	Model       string      `json:"model"`
	Messages    []Message   `json:"messages"`
	Tools       []Tool      `json:"tools,omitempty"`
	ToolChoice  interface{} `json:"tool_choice,omitempty"` // "auto", "none", or specific tool
	Stream      bool        `json:"stream,omitempty"`
	MaxTokens   *int        `json:"max_tokens,omitempty"`
	Temperature *float64    `json:"temperature,omitempty"`
	TopP        *float64    `json:"top_p,omitempty"`
	Seed        *int        `json:"seed,omitempty"`
}

// Tool choice values accepted by the service.
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// ForcedToolChoice builds the tool_choice value that forces a specific function.
func ForcedToolChoice(name string) interface{} {
	return map[string]interface{}{
		"type":     "function",
		"function": map[string]string{"name": name},
	}
}

type Tool struct {
	Type     string       `json:"type"` // "function"
	Function ToolFunction `json:"function"`
}

type ToolFunction struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  interface{} `json:"parameters"` // JSON Schema object
}
