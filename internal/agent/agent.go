// Package agent implements the Loquax orchestration core: the per-turn
// pipeline that routes a user utterance, optionally dispatches a tool, and
// produces the final natural-language reply.
//
// The four pieces are:
//
//   - [Memory] — bounded, ordered store of one session's turns, tool
//     results, and routing decisions.
//   - [Router] — decides whether a turn needs a tool and which one, via a
//     few-shot model call.
//   - [ParseAction] — best-effort recovery of a structured tool action from
//     raw model output.
//   - [Agent] — wires the above to an llm.Client and a tools.Registry and
//     runs the ROUTING → {CONVERSING | TOOL_DISPATCH → TOOL_FOLLOWUP}
//     pipeline for each turn.
//
// This package lives under internal/ because it encapsulates
// application-private orchestration logic and is not intended to be imported
// by external code.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/loquax-ai/loquax/internal/observe"
	"github.com/loquax-ai/loquax/internal/tools"
	"github.com/loquax-ai/loquax/pkg/llm"
)

// dispatchTemperature is the lowered sampling temperature used for the tool
// dispatch call, trading creativity for well-formed action objects.
const dispatchTemperature = 0.2

// toolResultPreviewLen bounds the tool-result excerpt appended to the
// conversational system message as context.
const toolResultPreviewLen = 200

// recentToolContext is how many recent tool results are offered as context
// on the conversational path.
const recentToolContext = 2

// TemplatePlaceholder is the literal token in a custom system-message
// template that is replaced by the rendered tool descriptions.
const TemplatePlaceholder = "{tools}"

// conversationalSystemMessage is the lightweight system message for turns
// that need no tool.
const conversationalSystemMessage = "You are a helpful, friendly AI assistant. Provide informative, thoughtful responses to the user's questions."

// newsCategories is the fixed vocabulary scanned in user input when a
// news-like tool is executed via the suggested-tool fallback. First match
// wins.
var newsCategories = []struct {
	keywords []string
	category string
}{
	{[]string{"technology", "tech"}, "technology"},
	{[]string{"business"}, "business"},
	{[]string{"sports"}, "sports"},
}

// ToolInvocation describes the tool activity of one turn.
type ToolInvocation struct {
	// Tool is the registry name of the executed tool.
	Tool string

	// Result is the text the tool returned.
	Result string
}

// TurnResult is the structured outcome of one [Agent.Run] call. Carrying the
// tool invocation and routing decision here lets callers display "what
// happened this turn" without diffing memory log lengths before and after.
type TurnResult struct {
	// Reply is the final assistant text for this turn.
	Reply string

	// Tool is set when a tool executed during the turn.
	Tool *ToolInvocation

	// Routing is the router's decision for this turn.
	Routing RouterDecision
}

// Config holds the dependencies and settings for an [Agent].
type Config struct {
	// Client is the model backend. Required.
	Client llm.Client

	// Registry supplies the available tools. Required; may be empty.
	Registry *tools.Registry

	// Router overrides the default router built from Client and Registry.
	Router *Router

	// Memory overrides the default memory built from MaxTurns.
	Memory *Memory

	// SystemTemplate is an optional custom system-message template. It must
	// contain the literal [TemplatePlaceholder] token where the rendered
	// tool descriptions belong.
	SystemTemplate string

	// MaxTurns is the number of user+assistant turn-pairs the memory
	// retains. Non-positive means [DefaultMaxTurns].
	MaxTurns int

	// Metrics attaches metric instruments. Optional.
	Metrics *observe.Metrics
}

// Agent orchestrates one session's turns. It owns one [Memory], one
// [Router], and a system message rendered once at construction from the
// registry's tool specs.
//
// An Agent is logically bound to one session. Turns must not run
// concurrently on the same Agent; the session layer serialises them.
type Agent struct {
	client        llm.Client
	registry      *tools.Registry
	router        *Router
	memory        *Memory
	systemMessage string
	metrics       *observe.Metrics
}

// New creates an Agent from cfg. The tool-aware system message is rendered
// here, from the registry's specs at this moment; tools registered later are
// routed and dispatched but not described in the system prompt.
func New(cfg Config) (*Agent, error) {
	if cfg.Client == nil {
		return nil, errors.New("agent: Client must not be nil")
	}
	if cfg.Registry == nil {
		return nil, errors.New("agent: Registry must not be nil")
	}
	if cfg.SystemTemplate != "" && !strings.Contains(cfg.SystemTemplate, TemplatePlaceholder) {
		return nil, fmt.Errorf("agent: SystemTemplate must contain the %s placeholder", TemplatePlaceholder)
	}

	a := &Agent{
		client:   cfg.Client,
		registry: cfg.Registry,
		router:   cfg.Router,
		memory:   cfg.Memory,
		metrics:  cfg.Metrics,
	}
	if a.router == nil {
		var opts []RouterOption
		if cfg.Metrics != nil {
			opts = append(opts, WithRouterMetrics(cfg.Metrics))
		}
		a.router = NewRouter(cfg.Client, cfg.Registry, opts...)
	}
	if a.memory == nil {
		a.memory = NewMemory(cfg.MaxTurns)
	}
	a.systemMessage = buildSystemMessage(cfg.Registry, cfg.SystemTemplate)

	return a, nil
}

// Memory exposes the agent's conversation memory for the session layer
// (resume, save, clear) and the presentation layer (recent activity).
func (a *Agent) Memory() *Memory {
	return a.memory
}

// Run processes one user turn end to end: records the input, routes it,
// optionally dispatches a tool, and returns the final reply. The pipeline is
// strictly sequential; every model and tool call is awaited before the next
// step.
//
// Failures internal to decision-making (routing decode, action parsing)
// degrade to safer defaults. A model backend failure aborts the turn with an
// error; memory appended before the failure point stays appended.
func (a *Agent) Run(ctx context.Context, input string) (TurnResult, error) {
	a.memory.AddUserMessage(input)

	decision, err := a.router.decide(ctx, input)
	if err != nil {
		return TurnResult{}, err
	}

	if decision.UseTool {
		return a.runWithTools(ctx, input, decision)
	}
	return a.converse(ctx, input, decision)
}

// converse handles the no-tool path: a plain model call over the full
// conversation history, with recent tool results offered as context hints.
func (a *Agent) converse(ctx context.Context, input string, decision RouterDecision) (TurnResult, error) {
	system := conversationalSystemMessage
	if recent := a.memory.RecentToolResults(recentToolContext); len(recent) > 0 {
		var b strings.Builder
		b.WriteString(system)
		b.WriteString("\n\nRecent information from tools that may be relevant:\n")
		for _, tr := range recent {
			fmt.Fprintf(&b, "- From %s: %s...\n", tr.Tool, preview(tr.Result, toolResultPreviewLen))
		}
		system = b.String()
	}

	reply, err := a.generate(ctx, "converse", llm.GenerateRequest{
		SystemMessage: system,
		History:       a.memory.History(),
	})
	if err != nil {
		return TurnResult{}, err
	}

	a.memory.AddAssistantMessage(reply)
	a.countTurn(ctx, "conversation")
	return TurnResult{Reply: reply, Routing: decision}, nil
}

// runWithTools handles the tool path: directive-biased dispatch call, action
// parsing, tool execution (with the suggested-tool fallback), and the
// follow-up call that turns the raw tool result into a natural-language
// answer.
func (a *Agent) runWithTools(ctx context.Context, input string, decision RouterDecision) (TurnResult, error) {
	history := a.memory.History()
	suggested := decision.ToolName

	system := a.systemMessage
	if directive := a.buildDirective(suggested); directive != "" {
		system = directive + "\n\n" + system
	}

	raw, err := a.generate(ctx, "dispatch", llm.GenerateRequest{
		SystemMessage: system,
		Prompt:        input,
		Temperature:   dispatchTemperature,
	})
	if err != nil {
		return TurnResult{}, err
	}

	action := ParseAction(raw)
	a.countParse(ctx, action)

	var invocation *ToolInvocation

	if action.Tool != "" && action.Parameters != nil {
		tool, ok := a.registry.Lookup(action.Tool)
		if !ok {
			msg := fmt.Sprintf("Error: Tool '%s' not found", action.Tool)
			slog.Warn("agent: model named unregistered tool", "tool", action.Tool)
			a.memory.AddAssistantMessage(msg)
			a.countTurn(ctx, "tool_not_found")
			return TurnResult{Reply: msg, Routing: decision}, nil
		}

		result, err := a.execute(ctx, action.Tool, tool, action.Parameters)
		if err != nil {
			return TurnResult{}, err
		}
		a.memory.AddToolResult(action.Tool, result)
		invocation = &ToolInvocation{Tool: action.Tool, Result: result}
	}

	// The model ignored the dispatch directive (or emitted nothing usable)
	// but the router had a concrete suggestion: execute it directly with
	// tool-specific defaults so the turn is not lost.
	if (invocation == nil || invocation.Result == "") && suggested != "" {
		if tool, ok := a.registry.Lookup(suggested); ok {
			args := fallbackArgs(tool.Spec(), input)
			result, err := a.execute(ctx, suggested, tool, args)
			if err != nil {
				return TurnResult{}, err
			}
			a.memory.AddToolResult(suggested, result)
			invocation = &ToolInvocation{Tool: suggested, Result: result}
		}
	}

	if invocation != nil && invocation.Result != "" {
		followup := fmt.Sprintf("The user asked: %q\nI've retrieved the following information:\n%s\n\nPlease provide a helpful response to the user's query using this information.",
			input, invocation.Result)

		final, err := a.generate(ctx, "followup", llm.GenerateRequest{
			Prompt:  followup,
			History: history,
		})
		if err != nil {
			return TurnResult{}, err
		}

		a.memory.AddAssistantMessage(final)
		a.countTurn(ctx, "tool")
		return TurnResult{Reply: final, Tool: invocation, Routing: decision}, nil
	}

	// Tool dispatch produced nothing at all — return the raw dispatch reply
	// rather than losing the turn.
	a.memory.AddAssistantMessage(raw)
	a.countTurn(ctx, "raw_reply")
	return TurnResult{Reply: raw, Tool: invocation, Routing: decision}, nil
}

// execute runs one tool with timing and call accounting. Tool-internal
// failures arrive as "Error: ..." result strings and count as status=error;
// a Go error (cancellation) aborts the turn.
func (a *Agent) execute(ctx context.Context, name string, tool tools.Tool, args map[string]any) (string, error) {
	start := time.Now()
	result, err := tool.Execute(ctx, args)
	elapsed := time.Since(start)

	if a.metrics != nil {
		a.metrics.ToolExecutionDuration.Record(ctx, elapsed.Seconds(),
			metric.WithAttributes(attribute.String("tool", name)))
		status := "ok"
		if err != nil || strings.HasPrefix(result, "Error") {
			status = "error"
		}
		a.metrics.RecordToolCall(ctx, name, status)
	}
	if err != nil {
		return "", fmt.Errorf("agent: execute %s: %w", name, err)
	}

	slog.Info("agent: tool executed", "tool", name, "duration", elapsed)
	return result, nil
}

// generate wraps the model client with latency accounting.
func (a *Agent) generate(ctx context.Context, purpose string, req llm.GenerateRequest) (string, error) {
	start := time.Now()
	reply, err := a.client.Generate(ctx, req)
	if a.metrics != nil {
		a.metrics.LLMDuration.Record(ctx, time.Since(start).Seconds(),
			metric.WithAttributes(attribute.String("purpose", purpose)))
	}
	if err != nil {
		return "", fmt.Errorf("agent: %s call: %w", purpose, err)
	}
	return reply, nil
}

// buildDirective renders the strongly directive system-message prefix that
// biases the dispatch call toward emitting a well-formed action for the
// suggested tool. Returns "" when no usable suggestion exists.
func (a *Agent) buildDirective(suggested string) string {
	if suggested == "" {
		return ""
	}
	tool, ok := a.registry.Lookup(suggested)
	if !ok {
		return ""
	}
	spec := tool.Spec()

	examples := make(map[string]any, len(spec.Parameters))
	for param := range spec.Parameters {
		examples[param] = exampleValue(param, spec)
	}
	exampleJSON, err := json.Marshal(examples)
	if err != nil {
		exampleJSON = []byte("{}")
	}

	return fmt.Sprintf(`IMPORTANT: The user's query requires using the %s.
You MUST respond ONLY with the following JSON format to use this tool:

`+"```json"+`
{
"tool": %q,
"parameters": %s
}
`+"```"+`
Do not include any other text or explanations. Only return the JSON.`,
		suggested, suggested, exampleJSON)
}

// exampleValue picks the example parameter value shown in the dispatch
// directive: "default" for a clock-like tool's format parameter, 5 for any
// limit parameter, empty otherwise.
func exampleValue(param string, spec tools.Spec) any {
	switch {
	case param == "format" && isClockLike(spec):
		return "default"
	case param == "limit":
		return 5
	default:
		return ""
	}
}

// isClockLike reports whether a tool looks like a time/date tool, judged
// from its description.
func isClockLike(spec tools.Spec) bool {
	desc := strings.ToLower(spec.Description)
	return strings.Contains(desc, "time") || strings.Contains(desc, "date")
}

// isNewsLike reports whether a tool looks like a headline-lookup tool.
func isNewsLike(spec tools.Spec) bool {
	return strings.Contains(spec.Name, "News")
}

// fallbackArgs builds the arguments for executing a router-suggested tool
// directly, when the dispatch call produced no usable action. A clock-like
// tool takes no arguments; a news-like tool gets a category inferred by
// scanning the user input against the fixed category vocabulary; every other
// tool runs with an empty argument map and is expected to absorb missing
// parameters per the tool contract.
func fallbackArgs(spec tools.Spec, input string) map[string]any {
	args := map[string]any{}
	if isClockLike(spec) {
		return args
	}
	if isNewsLike(spec) {
		lower := strings.ToLower(input)
		for _, c := range newsCategories {
			for _, kw := range c.keywords {
				if strings.Contains(lower, kw) {
					args["category"] = c.category
					return args
				}
			}
		}
	}
	return args
}

// buildSystemMessage renders the tool-aware system message: every registered
// tool's name, description, and parameter list, inserted into the custom
// template (when given) or into the default assistant instructions.
func buildSystemMessage(registry *tools.Registry, template string) string {
	specs := registry.Specs()
	names := make([]string, 0, len(specs))
	for name := range specs {
		names = append(names, name)
	}
	sort.Strings(names)

	var tb strings.Builder
	for i, name := range names {
		if i > 0 {
			tb.WriteString("\n")
		}
		spec := specs[name]
		fmt.Fprintf(&tb, "- %s: %s\n  Parameters:\n", name, spec.Description)

		params := make([]string, 0, len(spec.Parameters))
		for p := range spec.Parameters {
			params = append(params, p)
		}
		sort.Strings(params)
		for _, p := range params {
			optional := ""
			if !spec.Parameters[p].Required {
				optional = " (optional)"
			}
			fmt.Fprintf(&tb, "    - %s: %s%s\n", p, spec.Parameters[p].Type, optional)
		}
	}
	toolsStr := strings.TrimRight(tb.String(), "\n")

	if template != "" {
		return strings.ReplaceAll(template, TemplatePlaceholder, toolsStr)
	}

	return fmt.Sprintf(`You are a helpful AI assistant with access to specialized tools.
%s

WHEN TO USE TOOLS:
- Use tools ONLY when the user's question specifically requires their functionality
- For general conversation, questions, or advice, DO NOT use tools

TOOL USAGE FORMAT:
When you need to use a tool, respond using the following JSON format:
`+"```json"+`
{
"tool": "tool_name",
"parameters": {
    "param1": "value1",
    "param2": "value2"
}
}
`+"```"+`
`, toolsStr)
}

// preview truncates s to n bytes for use as a context hint.
func preview(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

// countTurn increments the turn counter with its path attribute.
func (a *Agent) countTurn(ctx context.Context, path string) {
	if a.metrics == nil {
		return
	}
	a.metrics.Turns.Add(ctx, 1, metric.WithAttributes(attribute.String("path", path)))
}

// countParse increments the parser outcome counter.
func (a *Agent) countParse(ctx context.Context, action Action) {
	if a.metrics == nil {
		return
	}
	stage := "strict"
	switch {
	case action.Err != "":
		stage = "exhausted"
	case action.Salvaged:
		stage = "salvaged"
	}
	a.metrics.ParseOutcomes.Add(ctx, 1, metric.WithAttributes(attribute.String("stage", stage)))
}
