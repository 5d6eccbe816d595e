package models

// Chat message roles as the completion service expects them.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is a protocol-shaped chat message (OpenAI-compatible format).
type Message struct {
	Role       string      `json:"role"`              // "system", "user", "assistant", "tool"
	Content    interface{} `json:"content,omitempty"` // string or []ContentPart for multimodal
	Name       *string     `json:"name,omitempty"`
	ToolCalls  []ToolCall  `json:"tool_calls,omitempty"`   // For assistant messages with tool calls
	ToolCallID *string     `json:"tool_call_id,omitempty"` // For tool response messages
	// Reasoning fields for models that emit chain-of-thought (e.g. DeepSeek-R1, Kimi)
	Reasoning        *string `json:"reasoning,omitempty"`
	ReasoningContent *string `json:"reasoning_content,omitempty"`
}

type ContentPart struct {
	Type     string    `json:"type"` // "text" or "image_url"
	Text     string    `json:"text,omitempty"`
	ImageURL *ImageURL `json:"image_url,omitempty"`
}

type ImageURL struct {
	URL    string  `json:"url"`
	Detail *string `json:"detail,omitempty"` // "auto", "low", "high"
}

// SystemMessage builds a system-role message with plain text content.
func SystemMessage(text string) Message {
	return Message{Role: RoleSystem, Content: text}
}

// UserMessage builds a user-role message with plain text content.
func UserMessage(text string) Message {
	return Message{Role: RoleUser, Content: text}
}

// AssistantTextMessage builds an assistant message carrying only text.
func AssistantTextMessage(text string) Message {
	return Message{Role: RoleAssistant, Content: text}
}

// AssistantToolCallMessage builds the assistant message that carries a round's
// tool-call requests. Text produced in the same round travels in a separate
// message ordered immediately before this one.
func AssistantToolCallMessage(calls []ToolCall) Message {
	return Message{Role: RoleAssistant, ToolCalls: calls}
}

// ToolResultMessage builds the tool-role message that answers a single tool call.
func ToolResultMessage(result ToolResult) Message {
	id := result.ToolCallID
	msg := Message{
		Role:       RoleTool,
		Content:    result.Content,
		ToolCallID: &id,
	}
	if result.Name != "" {
		name := result.Name
		msg.Name = &name
	}
	return msg
}

// TextContent flattens a message's content to plain text. Multimodal parts
// other than text are dropped.
func (m Message) TextContent() string {
	switch content := m.Content.(type) {
	case string:
		return content
	case []ContentPart:
		text := ""
		for _, part := range content {
			if part.Type == "text" {
				text += part.Text
			}
		}
		return text
	}
	return ""
}
