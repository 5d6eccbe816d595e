package client

import (
	"log"
	"sort"
	"strings"

	"github.com/seblake/convo/models"
)

// ToolCallBuffer merges tool-call deltas that arrive split across chunks into
// complete, ordered tool-call requests, keyed by positional index. Fragments
// for the same index accumulate in arrival order; they never replace state.
type ToolCallBuffer struct {
	pending map[int]*pendingCall
}

type pendingCall struct {
	id   string
	name strings.Builder
	args strings.Builder
}

func NewToolCallBuffer() *ToolCallBuffer {
	return &ToolCallBuffer{pending: make(map[int]*pendingCall)}
}

// Add folds one delta into the buffered state for its index.
func (b *ToolCallBuffer) Add(delta models.ToolCallDelta) {
	call, ok := b.pending[delta.Index]
	if !ok {
		call = &pendingCall{}
		b.pending[delta.Index] = call
	}
	if call.id == "" && delta.ID != "" {
		call.id = delta.ID
	}
	call.name.WriteString(delta.Function.Name)
	call.args.WriteString(delta.Function.Arguments)
}

// Len reports how many indices have buffered state.
func (b *ToolCallBuffer) Len() int {
	return len(b.pending)
}

// Flush returns all buffered calls sorted by index and clears the buffer.
// Entries that never received a name are dropped as incomplete. Flushing an
// empty buffer is a no-op, so the orchestrator can flush eagerly on a
// tool_calls finish reason and again at stream end as a safety net.
func (b *ToolCallBuffer) Flush() []models.ToolCallRequest {
	if len(b.pending) == 0 {
		return nil
	}

	indices := make([]int, 0, len(b.pending))
	for idx := range b.pending {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	calls := make([]models.ToolCallRequest, 0, len(indices))
	for _, idx := range indices {
		call := b.pending[idx]
		if call.name.Len() == 0 {
			log.Printf("Warning: dropping incomplete tool call at index %d (no name received)", idx)
			continue
		}
		calls = append(calls, models.ToolCallRequest{
			ID:            call.id,
			Name:          call.name.String(),
			ArgumentsJSON: call.args.String(),
		})
	}

	b.pending = make(map[int]*pendingCall)
	return calls
}
