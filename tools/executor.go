package tools

import (
	"encoding/json"
	"fmt"
	"log"
	"os"

	"github.com/seblake/convo/models"
)

// Executor dispatches completed tool-call requests to registered
// implementations. Execution failures of any kind are converted into
// error-shaped results; a tool failure never terminates a round.
//
// One Executor is created per turn so that repeated identical calls within
// the turn can be detected and logged as a diagnostic signal. Repeats are
// not blocked — some tools are safe to run twice.
type Executor struct {
	registry *Registry
	logger   *log.Logger
	seen     map[string]int // name|argsJSON -> call count within this turn
}

func NewExecutor(registry *Registry, logger *log.Logger) *Executor {
	if logger == nil {
		logger = log.New(os.Stdout, "[tools] ", log.LstdFlags)
	}
	return &Executor{
		registry: registry,
		logger:   logger,
		seen:     make(map[string]int),
	}
}

// Execute runs one tool call and always produces a result. The result content
// is a JSON string: {"result": ...} on success, {"error": ...} on any failure.
func (e *Executor) Execute(call models.ToolCallRequest) models.ToolResult {
	result := models.ToolResult{
		ToolCallID: call.ID,
		Name:       call.Name,
	}

	key := call.Name + "|" + call.ArgumentsJSON
	e.seen[key]++
	if n := e.seen[key]; n > 1 {
		e.logger.Printf("Tool %s called %d times with identical arguments this turn", call.Name, n)
	}

	decl, ok := e.registry.Lookup(call.Name)
	if !ok {
		result.Content = errorContent(fmt.Sprintf("unknown or unavailable tool: %s", call.Name), "")
		return result
	}

	args, err := decodeArguments(call.ArgumentsJSON)
	if err != nil {
		e.logger.Printf("Invalid arguments for tool %s: %v", call.Name, err)
		result.Content = errorContent(fmt.Sprintf("invalid arguments for tool %s: %v", call.Name, err), call.ArgumentsJSON)
		return result
	}

	output, err := e.invoke(decl, args)
	if err != nil {
		e.logger.Printf("Tool execution error for %s (ID: %s): %v", call.Name, call.ID, err)
		result.Content = errorContent(err.Error(), "")
		return result
	}

	wrapped, err := json.Marshal(map[string]string{"result": output})
	if err != nil {
		result.Content = errorContent(fmt.Sprintf("failed to marshal result for '%s': %v", call.Name, err), "")
		return result
	}
	result.Content = string(wrapped)
	return result
}

// invoke calls the handler, converting panics into errors so a misbehaving
// tool body cannot abort the round.
func (e *Executor) invoke(decl models.FunctionDeclaration, args map[string]interface{}) (output string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("tool '%s' panicked: %v", decl.Name, r)
		}
	}()

	if decl.Handler == nil {
		return "", fmt.Errorf("internal error: tool '%s' is not callable", decl.Name)
	}
	return decl.Handler(args)
}

// decodeArguments is the explicit fallible decode for tool-call argument
// strings. An empty argument string decodes to an empty argument map, which
// some services send for zero-parameter functions.
func decodeArguments(argumentsJSON string) (map[string]interface{}, error) {
	if argumentsJSON == "" {
		return map[string]interface{}{}, nil
	}
	var args map[string]interface{}
	if err := json.Unmarshal([]byte(argumentsJSON), &args); err != nil {
		return nil, err
	}
	if args == nil {
		args = map[string]interface{}{}
	}
	return args, nil
}

func errorContent(message, raw string) string {
	payload := map[string]string{"error": message}
	if raw != "" {
		payload["raw"] = raw
	}
	encoded, _ := json.Marshal(payload)
	return string(encoded)
}
