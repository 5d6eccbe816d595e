package models

// ToolCall is a completed tool call as it appears on the wire, both in
// assistant messages replayed as history and in non-streaming responses.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"` // "function"
	Function ToolCallFunction `json:"function"`
}

type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"` // JSON string of arguments
}

// ToolCallDelta is a partial update to the tool call at position Index,
// as it arrives in streaming chunks. Name and Arguments are fragments that
// accumulate; they never replace earlier fragments for the same index.
type ToolCallDelta struct {
	Index    int                   `json:"index"`
	ID       string                `json:"id,omitempty"`
	Type     string                `json:"type,omitempty"`
	Function ToolCallFunctionDelta `json:"function"`
}

type ToolCallFunctionDelta struct {
	Name      string `json:"name,omitempty"`
	Arguments string `json:"arguments,omitempty"`
}

// ToolCallRequest is a fully reassembled request from the service to invoke a
// named local function. ID is service-assigned when provided, otherwise
// generated locally, and stays stable for the lifetime of the turn so the
// paired result can reference it.
type ToolCallRequest struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ArgumentsJSON string `json:"arguments"`
}

// ToolResult pairs a tool call with its outcome. Content is always a string;
// structured values are JSON-encoded.
type ToolResult struct {
	ToolCallID string `json:"tool_call_id"`
	Name       string `json:"name"`
	Content    string `json:"content"`
}

// WireCall converts a reassembled request back to the wire shape used when the
// assistant tool-call message is persisted and replayed as history.
func (r ToolCallRequest) WireCall() ToolCall {
	return ToolCall{
		ID:   r.ID,
		Type: "function",
		Function: ToolCallFunction{
			Name:      r.Name,
			Arguments: r.ArgumentsJSON,
		},
	}
}
