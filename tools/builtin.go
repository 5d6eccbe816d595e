package tools

import (
	"fmt"
	"time"

	"github.com/seblake/convo/models"
)

// ClockTool returns a FunctionDeclaration reporting the current time.
func ClockTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "current_time",
		Description: "Get the current date and time, optionally in a named IANA timezone.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"timezone": map[string]interface{}{
					"type":        "string",
					"description": "IANA timezone name, e.g. 'America/New_York'. Defaults to UTC.",
				},
			},
			Required: []string{},
		},
		Handler: currentTime,
	}
}

func currentTime(args map[string]interface{}) (string, error) {
	loc := time.UTC
	if tz, ok := args["timezone"].(string); ok && tz != "" {
		parsed, err := time.LoadLocation(tz)
		if err != nil {
			return "", fmt.Errorf("unknown timezone %q: %w", tz, err)
		}
		loc = parsed
	}
	return time.Now().In(loc).Format(time.RFC3339), nil
}

// EchoTool returns a FunctionDeclaration that echoes its input back, useful
// for wiring checks and demos.
func EchoTool() models.FunctionDeclaration {
	return models.FunctionDeclaration{
		Name:        "echo",
		Description: "Echo the provided text back unchanged.",
		Parameters: models.Parameters{
			Type: "object",
			Properties: map[string]interface{}{
				"text": map[string]interface{}{
					"type":        "string",
					"description": "Text to echo back",
				},
			},
			Required: []string{"text"},
		},
		Handler: func(args map[string]interface{}) (string, error) {
			text, _ := args["text"].(string)
			return text, nil
		},
	}
}
