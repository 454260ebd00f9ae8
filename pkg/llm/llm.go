// Package llm defines the Client interface for Large Language Model backends.
//
// A Client wraps a remote or local model API (e.g., OpenAI GPT-4o, Anthropic
// Claude, or a local Ollama instance) and exposes a uniform text-generation
// interface for the Loquax agent core without coupling it to any specific SDK.
//
// Implementors must be safe for concurrent use and must propagate context
// cancellation promptly.
package llm

import "context"

// Conversation roles. These match the wire roles used by all supported
// backends.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// DefaultTemperature is used when GenerateRequest.Temperature is zero.
const DefaultTemperature = 0.7

// Message is a single entry in a conversation history. Messages are treated
// as immutable once appended to a history; the memory layer only ever trims
// whole lists.
type Message struct {
	// Role is one of [RoleSystem], [RoleUser], or [RoleAssistant].
	Role string `json:"role"`

	// Content is the text content of the message.
	Content string `json:"content"`
}

// GenerateRequest carries everything a Client needs to produce a reply.
// All fields are optional individually, but at least one of Prompt or
// History must be set for the request to be meaningful.
type GenerateRequest struct {
	// Prompt is the current user utterance. When History already ends with
	// an identical user message the prompt is not appended a second time —
	// see [Assemble].
	Prompt string

	// SystemMessage is an optional high-priority instruction placed before
	// the conversation history.
	SystemMessage string

	// History is the ordered conversation so far, passed through verbatim.
	History []Message

	// Temperature controls output randomness. Zero means
	// [DefaultTemperature]; the agent core lowers it to 0.2 for tool
	// dispatch calls.
	Temperature float64
}

// Client is the abstraction over any LLM backend.
//
// Generate sends the assembled message sequence to the model and returns the
// generated text. Backend failures (transport, auth, rate limits) must be
// returned as a non-nil error — never as a silent empty string — so that the
// caller can distinguish "the model said nothing" from "the call failed".
type Client interface {
	Generate(ctx context.Context, req GenerateRequest) (string, error)
}

// Assemble builds the ordered message sequence for req: the system message
// first if present, then the history verbatim, then the prompt as a final
// user message — unless the prompt is already the trailing user entry of the
// history, which would double-submit the same turn.
//
// All Client implementations are expected to call Assemble so that request
// assembly behaves identically across backends.
func Assemble(req GenerateRequest) []Message {
	msgs := make([]Message, 0, len(req.History)+2)

	if req.SystemMessage != "" {
		msgs = append(msgs, Message{Role: RoleSystem, Content: req.SystemMessage})
	}

	msgs = append(msgs, req.History...)

	if req.Prompt != "" {
		n := len(req.History)
		if n == 0 || req.History[n-1].Role != RoleUser || req.History[n-1].Content != req.Prompt {
			msgs = append(msgs, Message{Role: RoleUser, Content: req.Prompt})
		}
	}

	return msgs
}

// Temperature resolves the effective temperature for req.
func Temperature(req GenerateRequest) float64 {
	if req.Temperature == 0 {
		return DefaultTemperature
	}
	return req.Temperature
}
