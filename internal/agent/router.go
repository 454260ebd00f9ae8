package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/antzucaro/matchr"

	"github.com/loquax-ai/loquax/internal/observe"
	"github.com/loquax-ai/loquax/internal/tools"
	"github.com/loquax-ai/loquax/pkg/llm"
)

// canonicalThreshold is the minimum Jaro-Winkler similarity for mapping a
// near-miss tool name from the router's reply onto a registered name.
const canonicalThreshold = 0.9

// Exemplar is one few-shot routing example rendered into the router prompt.
type Exemplar struct {
	// Query is the example user utterance.
	Query string

	// UseTool, ToolName, and Reasoning form the example decision.
	UseTool   bool
	ToolName  string
	Reasoning string
}

// DefaultExemplars returns the fixed few-shot set used when a Router is
// constructed without [WithExemplars]. The five cases cover the decision
// space evenly: a clock query, a general-knowledge question, a broad news
// query, an emotional statement, and a category-specific news query.
func DefaultExemplars() []Exemplar {
	return []Exemplar{
		{
			Query:     "What time is it now?",
			UseTool:   true,
			ToolName:  "TimestampTool",
			Reasoning: "This query is asking for the current time.",
		},
		{
			Query:     "Tell me about the history of Rome.",
			UseTool:   false,
			Reasoning: "This is a general knowledge question that doesn't require real-time data or specialized tools.",
		},
		{
			Query:     "What's in the news today?",
			UseTool:   true,
			ToolName:  "NewsTool",
			Reasoning: "This query is asking for current news which requires the news tool.",
		},
		{
			Query:     "I'm feeling sad today.",
			UseTool:   false,
			Reasoning: "This is a conversational statement that requires empathy, not a tool.",
		},
		{
			Query:     "Can you show me the latest technology news?",
			UseTool:   true,
			ToolName:  "NewsTool",
			Reasoning: "This query is asking for specific news about technology.",
		},
	}
}

// Router decides, per incoming utterance, whether a tool is needed and which
// one. The decision is itself a model call and therefore probabilistic; a
// routing failure degrades to plain conversation rather than blocking the
// turn.
type Router struct {
	client    llm.Client
	registry  *tools.Registry
	exemplars []Exemplar
	metrics   *observe.Metrics
}

// RouterOption configures a Router.
type RouterOption func(*Router)

// WithExemplars replaces the default few-shot exemplar set.
func WithExemplars(ex []Exemplar) RouterOption {
	return func(r *Router) {
		r.exemplars = ex
	}
}

// WithRouterMetrics attaches metric instruments to the router.
func WithRouterMetrics(m *observe.Metrics) RouterOption {
	return func(r *Router) {
		r.metrics = m
	}
}

// NewRouter creates a Router over the given model client and tool registry.
func NewRouter(client llm.Client, registry *tools.Registry, opts ...RouterOption) *Router {
	r := &Router{
		client:    client,
		registry:  registry,
		exemplars: DefaultExemplars(),
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// ShouldUseTools reports whether query needs a tool and, if so, which one.
// With no registered tools it returns (false, "") without a model call.
// Decode failures on the model's reply also yield (false, ""); only a model
// backend failure propagates as an error.
func (r *Router) ShouldUseTools(ctx context.Context, query string) (bool, string, error) {
	d, err := r.decide(ctx, query)
	if err != nil {
		return false, "", err
	}
	return d.UseTool, d.ToolName, nil
}

// routerReply is the structured decision object the model is asked to emit.
type routerReply struct {
	UseTool   bool    `json:"use_tool"`
	ToolName  *string `json:"tool_name"`
	Reasoning string  `json:"reasoning"`
}

// decide runs the routing model call and returns the full decision,
// including reasoning, for recording into memory.
func (r *Router) decide(ctx context.Context, query string) (RouterDecision, error) {
	if r.registry.Len() == 0 {
		return RouterDecision{}, nil
	}

	reply, err := r.client.Generate(ctx, llm.GenerateRequest{Prompt: r.buildPrompt(query)})
	if err != nil {
		return RouterDecision{}, fmt.Errorf("router: decision call: %w", err)
	}

	// Intentionally a strict decode, not the recovery parser: a router that
	// cannot produce clean JSON should fall back to plain conversation.
	var decoded routerReply
	if err := json.Unmarshal([]byte(strings.TrimSpace(reply)), &decoded); err != nil {
		slog.Debug("router: undecodable decision, defaulting to conversation", "err", err)
		if r.metrics != nil {
			r.metrics.RecordRouterDecision(ctx, false, false)
		}
		return RouterDecision{Reasoning: "router reply was not decodable"}, nil
	}

	d := RouterDecision{UseTool: decoded.UseTool, Reasoning: decoded.Reasoning}
	if decoded.ToolName != nil {
		d.ToolName = r.canonicalToolName(*decoded.ToolName)
	}
	if r.metrics != nil {
		r.metrics.RecordRouterDecision(ctx, d.UseTool, true)
	}
	return d, nil
}

// buildPrompt renders the routing prompt: available tools, the few-shot
// exemplars, and the live query.
func (r *Router) buildPrompt(query string) string {
	specs := r.registry.Specs()

	var b strings.Builder
	b.WriteString("You are a query router that determines if a user query should be handled using specialized tools.\n\nAvailable tools:\n")
	for _, name := range r.registry.Names() {
		fmt.Fprintf(&b, "- %s: %s\n", name, specs[name].Description)
	}

	b.WriteString("\nEXAMPLES:\n")
	for i, ex := range r.exemplars {
		toolName := "null"
		if ex.ToolName != "" {
			toolName = fmt.Sprintf("%q", ex.ToolName)
		}
		fmt.Fprintf(&b, "%d. User query: %q\nDecision: {\"use_tool\": %t, \"tool_name\": %s, \"reasoning\": %q}\n\n",
			i+1, ex.Query, ex.UseTool, toolName, ex.Reasoning)
	}

	fmt.Fprintf(&b, "User query: %q\n\n", query)
	b.WriteString(`Should this query be handled using one of the available tools? If so, which tool is most appropriate?
Respond with a JSON object with the following format:
{
"use_tool": true/false,
"tool_name": "ToolName or null if no tool needed",
"reasoning": "Brief explanation of your decision"
}
`)
	return b.String()
}

// canonicalToolName maps a possibly misspelt tool name from the model onto a
// registered name. Exact matches pass through; otherwise the most similar
// registered name wins when its Jaro-Winkler score clears
// [canonicalThreshold]. Distant names are returned verbatim so the dispatch
// layer can report them as unknown.
func (r *Router) canonicalToolName(name string) string {
	if name == "" {
		return ""
	}
	if _, ok := r.registry.Lookup(name); ok {
		return name
	}

	best, bestScore := "", 0.0
	for _, candidate := range r.registry.Names() {
		score := matchr.JaroWinkler(strings.ToLower(name), strings.ToLower(candidate), false)
		if score > bestScore {
			best, bestScore = candidate, score
		}
	}
	if bestScore >= canonicalThreshold {
		slog.Debug("router: canonicalised tool name", "from", name, "to", best, "score", bestScore)
		return best
	}
	return name
}
