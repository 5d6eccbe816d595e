package sessions

import (
	"encoding/json"
	"fmt"

	"github.com/seblake/convo/models"
	"github.com/seblake/convo/stores"
)

// AssembleRequest produces the exact message sequence for the next round's
// request: the turn's original persisted history (sanitized and converted to
// protocol shape) followed by the HistoryTail generated so far this turn.
// Within the tail, each round contributes assistant text (when the round had
// text), then the assistant tool-call-request message, then the tool results
// in call-submission order.
func AssembleRequest(persisted []stores.Message, tail []models.Message) []models.Message {
	sanitized := stores.SanitizeHistory(persisted)

	wire := make([]models.Message, 0, len(sanitized)+len(tail))
	for _, row := range sanitized {
		msg, err := toWireMessage(row)
		if err != nil {
			// A row that cannot be converted is skipped, not fatal; the
			// sanitizer keeps the surrounding structure valid.
			continue
		}
		if msg != nil {
			wire = append(wire, *msg)
		}
	}

	return append(wire, tail...)
}

// toWireMessage converts one storage-shaped row into the protocol-shaped
// request message. Reasoning is never replayed to the service. Returns nil
// for rows with nothing to send.
func toWireMessage(row stores.Message) (*models.Message, error) {
	switch row.Role {
	case models.RoleSystem:
		if row.Content == "" {
			return nil, nil
		}
		msg := models.SystemMessage(row.Content)
		return &msg, nil

	case models.RoleUser:
		if row.Content == "" {
			return nil, nil
		}
		msg := models.UserMessage(row.Content)
		return &msg, nil

	case models.RoleAssistant:
		msg := models.Message{Role: models.RoleAssistant}
		if row.Content != "" {
			msg.Content = row.Content
		}
		if row.IsToolCallRequest() {
			var calls []models.ToolCall
			if err := json.Unmarshal([]byte(row.ToolCallsJSON), &calls); err != nil {
				return nil, fmt.Errorf("failed to unmarshal tool calls for message %d: %w", row.ID, err)
			}
			msg.ToolCalls = calls
		}
		if msg.Content == nil && len(msg.ToolCalls) == 0 {
			return nil, nil
		}
		return &msg, nil

	case models.RoleTool:
		msg := models.ToolResultMessage(models.ToolResult{
			ToolCallID: row.ToolCallID,
			Name:       row.ToolName,
			Content:    row.Content,
		})
		return &msg, nil
	}

	return nil, fmt.Errorf("unknown role: %s", row.Role)
}
