package models

// ToolHandler is the signature tool implementations must satisfy. The executor
// decodes the call's JSON arguments into args before invoking it; the returned
// string is the raw result, JSON-wrapped by the executor.
type ToolHandler func(args map[string]interface{}) (string, error)

// FunctionDeclaration describes a registered tool: its JSON-schema descriptor
// attached to requests plus the local implementation.
type FunctionDeclaration struct {
	Name        string      `json:"name"`
	Description string      `json:"description"`
	Parameters  Parameters  `json:"parameters"`
	Handler     ToolHandler `json:"-"`
}

// Parameters defines the JSON Schema for function parameters.
type Parameters struct {
	Type       string                 `json:"type"`
	Properties map[string]interface{} `json:"properties"`
	Required   []string               `json:"required"`
}

// WireTool converts a declaration to the descriptor shape sent with requests.
func (fd FunctionDeclaration) WireTool() Tool {
	return Tool{
		Type: "function",
		Function: ToolFunction{
			Name:        fd.Name,
			Description: fd.Description,
			Parameters:  fd.Parameters,
		},
	}
}

// WireTools converts multiple declarations to request descriptors.
func WireTools(fds []FunctionDeclaration) []Tool {
	if len(fds) == 0 {
		return nil
	}
	tools := make([]Tool, len(fds))
	for i, fd := range fds {
		tools[i] = fd.WireTool()
	}
	return tools
}
