package agent_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/loquax-ai/loquax/internal/agent"
	"github.com/loquax-ai/loquax/internal/tools"
	"github.com/loquax-ai/loquax/pkg/llm"
	"github.com/loquax-ai/loquax/pkg/llm/mock"
)

// stubTool is a minimal tool double shared by the agent tests.
type stubTool struct {
	spec   tools.Spec
	result string
	err    error
	calls  []map[string]any
}

func (s *stubTool) Spec() tools.Spec { return s.spec }

func (s *stubTool) Execute(_ context.Context, args map[string]any) (string, error) {
	s.calls = append(s.calls, args)
	return s.result, s.err
}

func newClockStub(result string) *stubTool {
	return &stubTool{
		spec: tools.Spec{
			Name:        "TimestampTool",
			Description: "Get the current date and time",
			Parameters: map[string]tools.Param{
				"format": {Type: tools.TypeString, Description: "Optional format", Required: false},
			},
		},
		result: result,
	}
}

func TestRouter_NoToolsMeansNoModelCall(t *testing.T) {
	t.Parallel()
	client := &mock.Client{Replies: []string{"should never be used"}}
	router := agent.NewRouter(client, tools.NewRegistry())

	useTool, toolName, err := router.ShouldUseTools(context.Background(), "what time is it?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if useTool || toolName != "" {
		t.Errorf("decision = (%t, %q), want (false, \"\")", useTool, toolName)
	}
	if client.CallCount() != 0 {
		t.Errorf("model called %d times with an empty registry, want 0", client.CallCount())
	}
}

func TestRouter_DecodableDecision(t *testing.T) {
	t.Parallel()
	registry := tools.NewRegistry()
	registry.Register(newClockStub("noon"))

	client := &mock.Client{Replies: []string{
		`{"use_tool": true, "tool_name": "TimestampTool", "reasoning": "clock query"}`,
	}}
	router := agent.NewRouter(client, registry)

	useTool, toolName, err := router.ShouldUseTools(context.Background(), "what time is it?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !useTool || toolName != "TimestampTool" {
		t.Errorf("decision = (%t, %q), want (true, TimestampTool)", useTool, toolName)
	}
}

func TestRouter_UndecodableReplyDefaultsToConversation(t *testing.T) {
	t.Parallel()
	registry := tools.NewRegistry()
	registry.Register(newClockStub("noon"))

	client := &mock.Client{Replies: []string{"I think you should use the timestamp tool!"}}
	router := agent.NewRouter(client, registry)

	useTool, toolName, err := router.ShouldUseTools(context.Background(), "what time is it?")
	if err != nil {
		t.Fatalf("decode failure must not surface as an error, got: %v", err)
	}
	if useTool || toolName != "" {
		t.Errorf("decision = (%t, %q), want (false, \"\")", useTool, toolName)
	}
}

func TestRouter_BackendFailurePropagates(t *testing.T) {
	t.Parallel()
	registry := tools.NewRegistry()
	registry.Register(newClockStub("noon"))

	client := &mock.Client{Err: errors.New("connection refused")}
	router := agent.NewRouter(client, registry)

	_, _, err := router.ShouldUseTools(context.Background(), "what time is it?")
	if err == nil {
		t.Fatal("expected backend error to propagate")
	}
}

func TestRouter_CanonicalisesNearMissToolName(t *testing.T) {
	t.Parallel()
	registry := tools.NewRegistry()
	registry.Register(newClockStub("noon"))

	client := &mock.Client{Replies: []string{
		`{"use_tool": true, "tool_name": "timestamptool", "reasoning": "clock query"}`,
	}}
	router := agent.NewRouter(client, registry)

	_, toolName, err := router.ShouldUseTools(context.Background(), "what time is it?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolName != "TimestampTool" {
		t.Errorf("tool name = %q, want canonical TimestampTool", toolName)
	}
}

func TestRouter_DistantToolNamePassedVerbatim(t *testing.T) {
	t.Parallel()
	registry := tools.NewRegistry()
	registry.Register(newClockStub("noon"))

	client := &mock.Client{Replies: []string{
		`{"use_tool": true, "tool_name": "WeatherOracle", "reasoning": "weather query"}`,
	}}
	router := agent.NewRouter(client, registry)

	_, toolName, err := router.ShouldUseTools(context.Background(), "will it rain?")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if toolName != "WeatherOracle" {
		t.Errorf("tool name = %q, want verbatim WeatherOracle", toolName)
	}
}

func TestRouter_PromptCarriesToolsAndExemplars(t *testing.T) {
	t.Parallel()
	registry := tools.NewRegistry()
	registry.Register(newClockStub("noon"))

	client := &mock.Client{Replies: []string{`{"use_tool": false, "tool_name": null, "reasoning": "chat"}`}}
	router := agent.NewRouter(client, registry)

	if _, _, err := router.ShouldUseTools(context.Background(), "tell me a joke"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	prompt := client.LastCall().Req.Prompt
	if !strings.Contains(prompt, "TimestampTool") {
		t.Error("prompt should list the registered tools")
	}
	if !strings.Contains(prompt, "What time is it now?") {
		t.Error("prompt should carry the few-shot exemplars")
	}
	if !strings.Contains(prompt, `"tell me a joke"`) {
		t.Error("prompt should carry the live query")
	}
	if llm.Temperature(client.LastCall().Req) != llm.DefaultTemperature {
		t.Errorf("routing call temperature = %v, want default", llm.Temperature(client.LastCall().Req))
	}
}
