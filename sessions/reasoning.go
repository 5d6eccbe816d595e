package sessions

import "strings"

const (
	thinkOpen  = "<think>"
	thinkClose = "</think>"
)

// splitReasoning separates thinking segments (text enclosed in the reasoning
// delimiter) from the delimiter-free body. An open tag without a closing tag
// treats the remainder as reasoning, which is the state mid-stream while a
// thinking segment is still arriving. Called on the full accumulated text
// after each content fragment so tags split across chunk boundaries resolve
// once their halves join.
func splitReasoning(text string) (body, reasoning string) {
	var bodyB, reasonB strings.Builder

	sawTag := false
	rest := text
	for {
		open := strings.Index(rest, thinkOpen)
		if open == -1 {
			bodyB.WriteString(rest)
			break
		}
		sawTag = true
		bodyB.WriteString(rest[:open])
		rest = rest[open+len(thinkOpen):]

		closeIdx := strings.Index(rest, thinkClose)
		if closeIdx == -1 {
			// Unterminated segment: everything that follows is reasoning so far.
			reasonB.WriteString(rest)
			break
		}
		reasonB.WriteString(rest[:closeIdx])
		rest = rest[closeIdx+len(thinkClose):]
	}

	body = bodyB.String()
	if sawTag {
		// Only the whitespace that padded extracted segments is trimmed;
		// untagged text passes through byte for byte, so a partial fragment
		// like "The answer " keeps its trailing space.
		body = strings.TrimSpace(body)
	}
	return body, strings.TrimSpace(reasonB.String())
}

// joinReasoning merges tag-delimited reasoning with reasoning-channel
// fragments some services deliver in a dedicated delta field.
func joinReasoning(tagged, channel string) string {
	switch {
	case tagged == "":
		return channel
	case channel == "":
		return tagged
	default:
		return channel + "\n" + tagged
	}
}
