package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/seblake/convo/client"
	"github.com/seblake/convo/models"
	"github.com/seblake/convo/stores"
	"github.com/seblake/convo/tools"
)

// DefaultMaxRounds is the hard cap on request/stream cycles within one turn.
const DefaultMaxRounds = 10

// Session owns the generation state of one conversation. One turn runs at a
// time; starting a new turn cancels the in-flight one. The turn's in-memory
// state (history tail, round state) is owned exclusively by the orchestrator
// goroutine for the duration of the turn; consumers only observe it through
// the event channel.
type Session struct {
	ConversationID string
	Client         StreamClient
	Registry       *tools.Registry
	Store          stores.MessageStore
	Traces         stores.TraceStore // optional, best-effort diagnostics
	Logger         *log.Logger

	HistoryLimit int // persisted messages replayed per turn; 0 = all
	MaxRounds    int // rounds per turn; 0 = DefaultMaxRounds

	mu           sync.Mutex
	cancelActive context.CancelFunc
}

// roundState is the transient state of one request/stream cycle, discarded at
// the round boundary.
type roundState struct {
	roundNumber    int
	rawText        string // accumulated text, reasoning delimiters included
	reasoningExtra string // reasoning-channel fragments
	finishReason   string
	sawAny         bool
	pendingCalls   []models.ToolCallRequest
}

// turn carries the state shared across the rounds of one generation turn.
type turn struct {
	s         *Session
	id        string
	emitter   *turnEmitter
	executor  *tools.Executor
	persisted []stores.Message // the turn's original history, fetched once
	tail      []models.Message // HistoryTail: this turn's protocol messages so far
	toolDecls []models.Tool
	usedIDs   map[string]bool
	userMsgID uint
	lastBody  string
}

type roundOutcome int

const (
	roundContinue roundOutcome = iota // tool calls executed, loop to next round
	roundFinished                     // terminal event emitted
	roundAborted                      // cancelled; silent termination
)

// RunTurn starts one generation turn for the given user message and returns
// its ordered event stream. The channel closes after the terminal event
// (TurnCompleted or TurnFailed), or without one when the turn is cancelled.
// Any in-flight turn of this session is cancelled first.
func (s *Session) RunTurn(ctx context.Context, userText string) <-chan TurnEvent {
	events := make(chan TurnEvent)

	s.mu.Lock()
	if s.cancelActive != nil {
		s.cancelActive()
	}
	turnCtx, cancel := context.WithCancel(ctx)
	s.cancelActive = cancel
	s.mu.Unlock()

	go func() {
		defer close(events)
		defer cancel()
		s.runTurn(turnCtx, userText, events)
	}()

	return events
}

// Abort cancels the in-flight turn, if any. Partial round text is preserved
// as a best-effort save; no error is surfaced.
func (s *Session) Abort() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cancelActive != nil {
		s.cancelActive()
		s.cancelActive = nil
	}
}

func (s *Session) runTurn(ctx context.Context, userText string, events chan<- TurnEvent) {
	t := &turn{
		s:        s,
		id:       uuid.New().String(),
		emitter:  &turnEmitter{ctx: ctx, events: events},
		executor: tools.NewExecutor(s.Registry, s.logger()),
		usedIDs:  make(map[string]bool),
	}
	if s.Registry != nil {
		t.toolDecls = s.Registry.Declarations()
	}

	// Persist the user's message first; its ID is needed if the turn has to
	// be rolled back on a context error.
	userMsg, err := s.Store.AddMessage(stores.Message{
		ConversationID: s.ConversationID,
		Role:           models.RoleUser,
		Content:        userText,
	})
	if err != nil {
		s.logger().Printf("Error saving user message: %v", err)
	} else {
		t.userMsgID = userMsg.ID
	}

	// The turn's original history is fetched once; later rounds extend it
	// with the in-memory tail instead of refetching.
	persisted, err := s.Store.FetchHistory(s.ConversationID, s.HistoryLimit)
	if err != nil {
		t.fail(0, fmt.Errorf("failed to fetch history: %w", err))
		return
	}
	t.persisted = persisted

	maxRounds := s.MaxRounds
	if maxRounds <= 0 {
		maxRounds = DefaultMaxRounds
	}

	var placeholder stores.Message
	for round := 1; round <= maxRounds; round++ {
		// Every round streams into its own fresh assistant placeholder row.
		// Placeholder creation is the one store write the turn cannot
		// proceed without.
		placeholder, err = s.Store.AddMessage(stores.Message{
			ConversationID: s.ConversationID,
			Role:           models.RoleAssistant,
		})
		if err != nil {
			t.fail(round, fmt.Errorf("failed to create assistant placeholder: %w", err))
			return
		}

		switch t.runRound(ctx, round, placeholder) {
		case roundFinished, roundAborted:
			return
		case roundContinue:
			if round == maxRounds {
				s.logger().Printf("Round cap (%d) reached for conversation %s; finalizing, persisted partial results kept", maxRounds, s.ConversationID)
				t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "cap", Label: "round cap reached"})
				t.emitter.emit(TurnEvent{Kind: TurnCompleted, Round: round, FinalText: t.lastBody})
				return
			}
		}
	}
}

func (t *turn) runRound(ctx context.Context, round int, placeholder stores.Message) roundOutcome {
	s := t.s
	started := time.Now()
	t.emitter.emit(TurnEvent{Kind: TurnRoundStart, Round: round})
	t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "start", Label: "completion request sent"})

	messages := AssembleRequest(t.persisted, t.tail)
	events, errs := s.Client.Stream(ctx, messages, t.toolDecls)

	st := roundState{roundNumber: round}
	buffer := client.NewToolCallBuffer()

stream:
	for {
		select {
		case ev, ok := <-events:
			if !ok {
				// Stream closed without a Done event; treat as end.
				break stream
			}
			switch ev.Kind {
			case client.EventContent:
				st.sawAny = true
				st.rawText += ev.Content
				st.reasoningExtra += ev.Reasoning
				t.emitter.emit(TurnEvent{Kind: TurnContentDelta, Round: round, Content: ev.Content, Reasoning: ev.Reasoning})

			case client.EventToolCallDelta:
				st.sawAny = true
				buffer.Add(*ev.ToolCallDelta)

			case client.EventFinish:
				st.finishReason = ev.FinishReason
				if ev.FinishReason == models.FinishToolCalls {
					// Eager flush; the flush at stream end is the safety net.
					st.pendingCalls = append(st.pendingCalls, buffer.Flush()...)
				}

			case client.EventDone:
				break stream
			}

		case err, ok := <-errs:
			if ok && err != nil {
				// Transport failures are turn-fatal: no further rounds.
				t.savePartial(placeholder, &st)
				t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "error", Label: err.Error(), DurationMS: time.Since(started).Milliseconds()})
				t.fail(round, err)
				return roundFinished
			}
			if !ok {
				errs = nil
			}

		case <-ctx.Done():
			t.savePartial(placeholder, &st)
			return roundAborted
		}
	}

	if ctx.Err() != nil {
		t.savePartial(placeholder, &st)
		return roundAborted
	}

	// The producer reports a read failure only after the event stream ends,
	// so the error channel has to be resolved before classifying the round:
	// a dropped connection is neither a context overflow nor a completion.
	// The client always sends the error, if any, before closing both
	// channels, so this receive cannot hang.
	if errs != nil {
		if err, ok := <-errs; ok && err != nil {
			t.savePartial(placeholder, &st)
			t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "error", Label: err.Error(), DurationMS: time.Since(started).Milliseconds()})
			t.fail(round, err)
			return roundFinished
		}
	}

	st.pendingCalls = append(st.pendingCalls, buffer.Flush()...)

	body, tagged := splitReasoning(st.rawText)
	reasoning := joinReasoning(tagged, st.reasoningExtra)

	if !st.sawAny && len(st.pendingCalls) == 0 {
		// An empty round is presumed to mean the request exceeded the
		// context window. The service yields a response shaped identically
		// to a truncation, so this stays a heuristic. The turn is rolled
		// back as if it never happened.
		if err := s.Store.DeleteMessage(placeholder.ID); err != nil {
			s.logger().Printf("Error deleting empty placeholder %d: %v", placeholder.ID, err)
		}
		t.rollbackUserMessage()
		ctxErr := &ContextError{Round: round}
		t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "error", Label: ctxErr.Error(), DurationMS: time.Since(started).Milliseconds()})
		t.fail(round, ctxErr)
		return roundFinished
	}

	if len(st.pendingCalls) == 0 {
		// NO_CALLS -> FINISHED: the placeholder is discarded when the round
		// produced no visible text.
		if body == "" {
			if err := s.Store.DeleteMessage(placeholder.ID); err != nil {
				s.logger().Printf("Error deleting empty placeholder %d: %v", placeholder.ID, err)
			}
		} else if err := s.Store.UpdateMessageContent(placeholder.ID, body, reasoning); err != nil {
			s.logger().Printf("Error saving final text for message %d: %v", placeholder.ID, err)
		}
		t.lastBody = body
		t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "end", Label: "finished: " + st.finishReason, DurationMS: time.Since(started).Milliseconds()})
		t.emitter.emit(TurnEvent{Kind: TurnCompleted, Round: round, FinalText: body})
		return roundFinished
	}

	// HAS_CALLS -> EXECUTING.
	t.assignCallIDs(st.pendingCalls)

	if body != "" {
		// The round's text message stays ordered immediately before the
		// tool-call-request entry.
		if err := s.Store.UpdateMessageContent(placeholder.ID, body, reasoning); err != nil {
			s.logger().Printf("Error saving round text for message %d: %v", placeholder.ID, err)
		}
		t.tail = append(t.tail, models.AssistantTextMessage(body))
	} else {
		if err := s.Store.DeleteMessage(placeholder.ID); err != nil {
			s.logger().Printf("Error deleting empty placeholder %d: %v", placeholder.ID, err)
		}
	}

	wireCalls := make([]models.ToolCall, len(st.pendingCalls))
	for i, call := range st.pendingCalls {
		wireCalls[i] = call.WireCall()
	}
	callsJSON, err := json.Marshal(wireCalls)
	if err != nil {
		s.logger().Printf("Error marshalling tool calls: %v", err)
	} else if _, err := s.Store.AddMessage(stores.Message{
		ConversationID: s.ConversationID,
		Role:           models.RoleAssistant,
		ToolCallsJSON:  string(callsJSON),
	}); err != nil {
		s.logger().Printf("Error saving tool-call request message: %v", err)
	}
	t.tail = append(t.tail, models.AssistantToolCallMessage(wireCalls))

	// Tool executions run sequentially in submission order: result ordering
	// is part of the contract, and later calls may assume earlier calls'
	// side effects.
	for i := range st.pendingCalls {
		call := st.pendingCalls[i]
		if ctx.Err() != nil {
			return roundAborted
		}

		t.emitter.emit(TurnEvent{Kind: TurnToolCall, Round: round, ToolCall: &call})
		t.trace(&stores.RoundTrace{Round: round, Stage: "tool", Status: "start", ToolCallID: call.ID, Label: call.Name})
		toolStarted := time.Now()

		result := t.executor.Execute(call)

		if _, err := s.Store.AddMessage(stores.Message{
			ConversationID: s.ConversationID,
			Role:           models.RoleTool,
			Content:        result.Content,
			ToolCallID:     result.ToolCallID,
			ToolName:       result.Name,
		}); err != nil {
			s.logger().Printf("Error saving tool result for %s: %v", call.Name, err)
		}
		t.tail = append(t.tail, models.ToolResultMessage(result))

		t.emitter.emit(TurnEvent{Kind: TurnToolResult, Round: round, ToolResult: &result})
		t.trace(&stores.RoundTrace{Round: round, Stage: "tool", Status: "end", ToolCallID: call.ID, Label: call.Name, DurationMS: time.Since(toolStarted).Milliseconds()})
	}

	t.lastBody = body
	t.trace(&stores.RoundTrace{Round: round, Stage: "round", Status: "end", Label: "continuing with tool results", DurationMS: time.Since(started).Milliseconds()})
	return roundContinue
}

// savePartial preserves whatever text a torn-down round accumulated: a single
// best-effort content update, or placeholder deletion when nothing visible
// arrived.
func (t *turn) savePartial(placeholder stores.Message, st *roundState) {
	body, tagged := splitReasoning(st.rawText)
	reasoning := joinReasoning(tagged, st.reasoningExtra)

	if body == "" {
		if err := t.s.Store.DeleteMessage(placeholder.ID); err != nil {
			t.s.logger().Printf("Error deleting empty placeholder %d: %v", placeholder.ID, err)
		}
		return
	}
	if err := t.s.Store.UpdateMessageContent(placeholder.ID, body, reasoning); err != nil {
		t.s.logger().Printf("Best-effort partial save failed for message %d: %v", placeholder.ID, err)
	}
}

// assignCallIDs keeps ToolCallRequest IDs unique across the whole turn so
// every result can reference its call, generating a fallback when the
// service omits one.
func (t *turn) assignCallIDs(calls []models.ToolCallRequest) {
	for i := range calls {
		id := calls[i].ID
		if id == "" || t.usedIDs[id] {
			id = "call_" + uuid.New().String()
		}
		t.usedIDs[id] = true
		calls[i].ID = id
	}
}

func (t *turn) rollbackUserMessage() {
	if t.userMsgID == 0 {
		return
	}
	if err := t.s.Store.DeleteMessage(t.userMsgID); err != nil {
		t.s.logger().Printf("Error rolling back user message %d: %v", t.userMsgID, err)
	}
}

func (t *turn) fail(round int, err error) {
	t.s.logger().Printf("Turn failed in round %d: %v", round, err)
	t.emitter.emit(TurnEvent{Kind: TurnFailed, Round: round, Err: err})
}

// trace records a diagnostic event; failures are logged, never surfaced.
func (t *turn) trace(entry *stores.RoundTrace) {
	if t.s.Traces == nil {
		return
	}
	entry.ConversationID = t.s.ConversationID
	entry.TurnID = t.id
	entry.Timestamp = time.Now().UnixMilli()
	if err := t.s.Traces.SaveTrace(entry); err != nil {
		t.s.logger().Printf("Error saving round trace: %v", err)
	}
}

func (s *Session) logger() *log.Logger {
	if s.Logger != nil {
		return s.Logger
	}
	return log.Default()
}
