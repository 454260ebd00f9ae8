package agent_test

import (
	"testing"

	"github.com/loquax-ai/loquax/internal/agent"
)

func TestParseAction_FencedJSON(t *testing.T) {
	t.Parallel()
	text := "```json\n{\"tool\": \"TimestampTool\", \"parameters\": {\"format\": \"iso\"}}\n```"

	action := agent.ParseAction(text)
	if action.Err != "" {
		t.Fatalf("unexpected parse failure: %s", action.Err)
	}
	if action.Tool != "TimestampTool" {
		t.Errorf("tool = %q, want TimestampTool", action.Tool)
	}
	if action.Salvaged {
		t.Error("clean JSON should not be marked salvaged")
	}
	if got := action.Parameters["format"]; got != "iso" {
		t.Errorf("format = %v, want iso", got)
	}
}

func TestParseAction_SurroundingProse(t *testing.T) {
	t.Parallel()
	text := `Sure! Here's the call: {"tool": "NewsTool", "parameters": {"category": "sports"}} hope that helps`

	action := agent.ParseAction(text)
	if action.Tool != "NewsTool" {
		t.Fatalf("tool = %q, want NewsTool", action.Tool)
	}
	if got := action.Parameters["category"]; got != "sports" {
		t.Errorf("category = %v, want sports", got)
	}
}

func TestParseAction_SingleQuotes(t *testing.T) {
	t.Parallel()
	text := `{'tool': 'NewsTool', 'parameters': {'category': 'technology', 'limit': 3}}`

	action := agent.ParseAction(text)
	if action.Err != "" {
		t.Fatalf("unexpected parse failure: %s", action.Err)
	}
	if action.Tool != "NewsTool" {
		t.Errorf("tool = %q, want NewsTool", action.Tool)
	}
	if got := action.Parameters["category"]; got != "technology" {
		t.Errorf("category = %v, want technology", got)
	}
	if got := action.Parameters["limit"]; got != float64(3) {
		t.Errorf("limit = %v (%T), want 3", got, got)
	}
}

func TestParseAction_BareKeys(t *testing.T) {
	t.Parallel()
	text := `{tool: "TimestampTool", parameters: {format: "unix"}}`

	action := agent.ParseAction(text)
	if action.Tool != "TimestampTool" {
		t.Fatalf("tool = %q, want TimestampTool", action.Tool)
	}
	if got := action.Parameters["format"]; got != "unix" {
		t.Errorf("format = %v, want unix", got)
	}
}

func TestParseAction_SalvageFromBrokenJSON(t *testing.T) {
	t.Parallel()
	// The trailing comma defeats a strict decode; pattern extraction should
	// still recover the tool name and the flat parameters.
	text := `{"tool": "NewsTool", "parameters": {"category": "technology", "limit": 5,}}`

	action := agent.ParseAction(text)
	if action.Err != "" {
		t.Fatalf("unexpected parse failure: %s", action.Err)
	}
	if !action.Salvaged {
		t.Error("expected salvaged action")
	}
	if action.Tool != "NewsTool" {
		t.Errorf("tool = %q, want NewsTool", action.Tool)
	}
	if got := action.Parameters["category"]; got != "technology" {
		t.Errorf("category = %v, want technology", got)
	}
	if got := action.Parameters["limit"]; got != 5 {
		t.Errorf("limit = %v (%T), want int 5", got, got)
	}
}

func TestParseAction_EmptyParameters(t *testing.T) {
	t.Parallel()
	action := agent.ParseAction(`{"tool": "TimestampTool", "parameters": {}}`)
	if action.Tool != "TimestampTool" {
		t.Fatalf("tool = %q, want TimestampTool", action.Tool)
	}
	if action.Parameters == nil {
		t.Error("empty parameters object should decode to a non-nil map")
	}
	if len(action.Parameters) != 0 {
		t.Errorf("parameters = %v, want empty", action.Parameters)
	}
}

func TestParseAction_NoActionAtAll(t *testing.T) {
	t.Parallel()
	text := "I'm sorry, I can't help with that."

	action := agent.ParseAction(text)
	if action.Err == "" {
		t.Fatal("expected an error action for plain prose")
	}
	if action.OriginalText != text {
		t.Errorf("original text not preserved: %q", action.OriginalText)
	}
	if action.Tool != "" || action.Parameters != nil {
		t.Errorf("failure action should carry no tool, got %q / %v", action.Tool, action.Parameters)
	}
}

func TestParseAction_QuotedValuesWithColons(t *testing.T) {
	t.Parallel()
	// A colon inside a quoted value must not be treated as a key separator.
	action := agent.ParseAction(`{"tool": "TimestampTool", "parameters": {"format": "15:04"}}`)
	if action.Err != "" {
		t.Fatalf("unexpected parse failure: %s", action.Err)
	}
	if got := action.Parameters["format"]; got != "15:04" {
		t.Errorf("format = %v, want 15:04", got)
	}
}
