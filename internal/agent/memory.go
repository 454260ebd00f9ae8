package agent

import (
	"sync"
	"time"

	"github.com/loquax-ai/loquax/pkg/llm"
)

// DefaultMaxTurns is the number of user+assistant turn-pairs retained when a
// Memory is constructed with a non-positive value.
const DefaultMaxTurns = 10

// ToolResult is an append-only record of one tool execution.
type ToolResult struct {
	// Tool is the registry name of the executed tool.
	Tool string

	// Result is the text the tool returned (success output or its
	// "Error: ..." failure narration).
	Result string

	// Timestamp is when the result was recorded.
	Timestamp time.Time
}

// RouterDecision is an append-only record of one routing outcome.
type RouterDecision struct {
	// UseTool reports whether the router chose the tool path.
	UseTool bool

	// ToolName is the suggested tool, empty when UseTool is false or the
	// router could not name one.
	ToolName string

	// Reasoning is the router's free-text explanation.
	Reasoning string

	// Timestamp is when the decision was recorded.
	Timestamp time.Time
}

// boundedLog is an ordered log capped at a fixed number of entries, dropping
// the oldest first. All three Memory logs share this retention behaviour.
type boundedLog[T any] struct {
	entries []T
	cap     int
}

func (l *boundedLog[T]) append(v T) {
	l.entries = append(l.entries, v)
	if len(l.entries) > l.cap {
		l.entries = l.entries[len(l.entries)-l.cap:]
	}
}

// last returns a copy of the most recent n entries, oldest first.
func (l *boundedLog[T]) last(n int) []T {
	if n > len(l.entries) {
		n = len(l.entries)
	}
	if n <= 0 {
		return nil
	}
	out := make([]T, n)
	copy(out, l.entries[len(l.entries)-n:])
	return out
}

// Memory is the bounded, ordered store of one session's conversation: the
// message history sent to the model on every turn, plus independent logs of
// tool results and routing decisions. Each log keeps at most 2×maxTurns
// entries (FIFO eviction), which bounds prompt size.
//
// Memory is owned by exactly one Agent; the session layer serialises turns,
// but all methods are additionally mutex-guarded so that presentation-side
// readers are always safe.
type Memory struct {
	mu        sync.Mutex
	messages  boundedLog[llm.Message]
	results   boundedLog[ToolResult]
	decisions boundedLog[RouterDecision]
}

// NewMemory creates a Memory retaining maxTurns user+assistant turn-pairs.
// Non-positive values fall back to [DefaultMaxTurns].
func NewMemory(maxTurns int) *Memory {
	if maxTurns <= 0 {
		maxTurns = DefaultMaxTurns
	}
	c := 2 * maxTurns
	return &Memory{
		messages:  boundedLog[llm.Message]{cap: c},
		results:   boundedLog[ToolResult]{cap: c},
		decisions: boundedLog[RouterDecision]{cap: c},
	}
}

// AddUserMessage appends a user message. It is a no-op when the most recent
// entry is a user message with identical text, suppressing duplicate
// submissions from retried UI events.
func (m *Memory) AddUserMessage(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.messages.entries); n > 0 {
		last := m.messages.entries[n-1]
		if last.Role == llm.RoleUser && last.Content == text {
			return
		}
	}
	m.messages.append(llm.Message{Role: llm.RoleUser, Content: text})
}

// AddAssistantMessage appends an assistant message. It is a no-op when at
// least two entries exist and the most recent is an assistant message with
// identical text.
func (m *Memory) AddAssistantMessage(text string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if n := len(m.messages.entries); n >= 2 {
		last := m.messages.entries[n-1]
		if last.Role == llm.RoleAssistant && last.Content == text {
			return
		}
	}
	m.messages.append(llm.Message{Role: llm.RoleAssistant, Content: text})
}

// AddToolResult appends a timestamped tool execution record. Tool results
// are never deduplicated — the same tool legitimately runs twice.
func (m *Memory) AddToolResult(tool, result string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.results.append(ToolResult{Tool: tool, Result: result, Timestamp: time.Now()})
}

// AddRouterDecision appends a timestamped routing record.
func (m *Memory) AddRouterDecision(useTool bool, toolName, reasoning string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.decisions.append(RouterDecision{
		UseTool:   useTool,
		ToolName:  toolName,
		Reasoning: reasoning,
		Timestamp: time.Now(),
	})
}

// History returns a copy of the message log; mutating the result does not
// affect internal state.
func (m *Memory) History() []llm.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.messages.last(len(m.messages.entries))
}

// RecentToolResults returns the most recent limit tool results, oldest first.
func (m *Memory) RecentToolResults(limit int) []ToolResult {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.results.last(limit)
}

// RecentRouterDecisions returns the most recent limit decisions, oldest first.
func (m *Memory) RecentRouterDecisions(limit int) []RouterDecision {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.decisions.last(limit)
}

// Clear empties all three logs. Retention capacity is unchanged.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages.entries = nil
	m.results.entries = nil
	m.decisions.entries = nil
}
