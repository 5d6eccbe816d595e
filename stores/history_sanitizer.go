package stores

import (
	"log"
)

// SanitizeHistory ensures a persisted history has a valid turn structure
// before it is replayed to the completion service. It repairs two situations:
//  1. Truncation breaking tool cycles - history must not start with an
//     orphaned tool result or tool-call request.
//  2. Aborted turns - an assistant tool-call request without its tool results
//     (e.g. the process died mid-turn) is removed, because the service rejects
//     unanswered tool calls in context.
//
// Valid patterns:
//   - user -> assistant
//   - user -> [assistant text] -> assistant tool_calls -> tool results -> ... -> assistant
func SanitizeHistory(msgs []Message) []Message {
	if len(msgs) == 0 {
		return msgs
	}

	startIdx := findValidStartIndex(msgs)
	if startIdx == -1 {
		// No valid starting point; fall back to the most recent user message
		// to preserve at least some context.
		for i := len(msgs) - 1; i >= 0; i-- {
			if msgs[i].Role == "user" {
				log.Printf("[HISTORY_SANITIZER] No valid start, using user message at index %d as fallback", i)
				return []Message{msgs[i]}
			}
		}
		log.Printf("[HISTORY_SANITIZER] No valid starting point found, returning empty history")
		return []Message{}
	}

	if startIdx > 0 {
		log.Printf("[HISTORY_SANITIZER] Skipping first %d messages to find valid start (was role: %s)", startIdx, msgs[0].Role)
		msgs = msgs[startIdx:]
	}

	sanitized := sanitizeToolCycles(msgs)
	if len(sanitized) != len(msgs) {
		log.Printf("[HISTORY_SANITIZER] Removed %d messages with broken tool cycles", len(msgs)-len(sanitized))
	}
	return sanitized
}

// findValidStartIndex finds the first message that is a valid conversation
// start: a system, user, or plain assistant message. Tool-call requests and
// tool results at the head are orphans left by history truncation.
func findValidStartIndex(msgs []Message) int {
	for i, msg := range msgs {
		switch {
		case msg.Role == "system", msg.Role == "user":
			return i
		case msg.Role == "assistant" && !msg.IsToolCallRequest():
			return i
		default:
			continue
		}
	}
	return -1
}

// sanitizeToolCycles walks the history and ensures every assistant tool-call
// request is followed by at least one tool result. Incomplete cycles and
// orphaned tool results are removed.
func sanitizeToolCycles(msgs []Message) []Message {
	result := make([]Message, 0, len(msgs))
	i := 0

	for i < len(msgs) {
		msg := msgs[i]

		switch {
		case msg.IsToolCallRequest():
			cycleMessages, nextIdx, valid := collectCompleteCycle(msgs, i)
			if valid {
				result = append(result, cycleMessages...)
			} else {
				// An unanswered tool-call request is a leftover from an aborted
				// turn; the service rejects it, so drop the whole cycle.
				log.Printf("[HISTORY_SANITIZER] Removing incomplete tool cycle at index %d (tool_calls without results)", i)
			}
			i = nextIdx

		case msg.Role == "tool":
			// Orphaned tool result without a preceding tool-call request.
			log.Printf("[HISTORY_SANITIZER] Removing orphaned tool result at index %d", i)
			i++

		default:
			result = append(result, msg)
			i++
		}
	}

	return result
}

// collectCompleteCycle collects one tool cycle starting from an assistant
// tool-call request: one or more request messages followed by their tool
// results. The cycle is valid when at least one result follows.
func collectCompleteCycle(msgs []Message, startIdx int) ([]Message, int, bool) {
	cycleMessages := []Message{}
	resultCount := 0
	i := startIdx

	for i < len(msgs) && msgs[i].IsToolCallRequest() {
		cycleMessages = append(cycleMessages, msgs[i])
		i++
	}
	for i < len(msgs) && msgs[i].Role == "tool" {
		cycleMessages = append(cycleMessages, msgs[i])
		resultCount++
		i++
	}

	if resultCount == 0 {
		return nil, i, false
	}
	return cycleMessages, i, true
}

// DetectCorruptedHistory checks whether a history would cause API errors.
// Returns a list of issues found (empty if history is clean).
func DetectCorruptedHistory(msgs []Message) []string {
	issues := []string{}
	if len(msgs) == 0 {
		return issues
	}

	if msgs[0].Role == "tool" {
		issues = append(issues, "History starts with a tool result (orphaned)")
	}
	if msgs[0].IsToolCallRequest() {
		issues = append(issues, "History starts with a tool-call request (truncated mid-cycle)")
	}

	pendingCalls := 0
	for _, msg := range msgs {
		switch {
		case msg.IsToolCallRequest():
			pendingCalls++
		case msg.Role == "tool":
			if pendingCalls > 0 {
				pendingCalls--
			} else {
				issues = append(issues, "Tool result without preceding tool-call request")
			}
		}
	}
	if pendingCalls > 0 {
		issues = append(issues, "Tool-call request(s) without results at end of history")
	}

	for i := 1; i < len(msgs); i++ {
		if msgs[i-1].Role == "user" && msgs[i].Role == "user" {
			issues = append(issues, "Two consecutive user messages")
		}
	}

	return issues
}
