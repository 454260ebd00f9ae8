package llm_test

import (
	"testing"

	"github.com/loquax-ai/loquax/pkg/llm"
)

func TestAssemble_Ordering(t *testing.T) {
	t.Parallel()
	req := llm.GenerateRequest{
		SystemMessage: "be helpful",
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "hi"},
			{Role: llm.RoleAssistant, Content: "hello"},
		},
		Prompt: "what's new?",
	}

	msgs := llm.Assemble(req)
	if len(msgs) != 4 {
		t.Fatalf("assembled %d messages, want 4", len(msgs))
	}
	if msgs[0].Role != llm.RoleSystem || msgs[0].Content != "be helpful" {
		t.Errorf("msgs[0] = %+v", msgs[0])
	}
	if msgs[3].Role != llm.RoleUser || msgs[3].Content != "what's new?" {
		t.Errorf("msgs[3] = %+v", msgs[3])
	}
}

func TestAssemble_SkipsDuplicateTrailingPrompt(t *testing.T) {
	t.Parallel()
	req := llm.GenerateRequest{
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "what time is it?"},
		},
		Prompt: "what time is it?",
	}

	msgs := llm.Assemble(req)
	if len(msgs) != 1 {
		t.Fatalf("assembled %d messages, want 1 (prompt already trails the history)", len(msgs))
	}
}

func TestAssemble_AppendsPromptAfterAssistantTail(t *testing.T) {
	t.Parallel()
	req := llm.GenerateRequest{
		History: []llm.Message{
			{Role: llm.RoleAssistant, Content: "what time is it?"},
		},
		Prompt: "what time is it?",
	}

	msgs := llm.Assemble(req)
	if len(msgs) != 2 {
		t.Fatalf("assembled %d messages, want 2 (tail is not a user message)", len(msgs))
	}
}

func TestAssemble_NoSystemNoPrompt(t *testing.T) {
	t.Parallel()
	history := []llm.Message{
		{Role: llm.RoleUser, Content: "hi"},
	}
	msgs := llm.Assemble(llm.GenerateRequest{History: history})
	if len(msgs) != 1 || msgs[0] != history[0] {
		t.Errorf("msgs = %+v", msgs)
	}
}

func TestTemperature(t *testing.T) {
	t.Parallel()
	if got := llm.Temperature(llm.GenerateRequest{}); got != llm.DefaultTemperature {
		t.Errorf("zero temperature resolved to %v, want default", got)
	}
	if got := llm.Temperature(llm.GenerateRequest{Temperature: 0.2}); got != 0.2 {
		t.Errorf("explicit temperature resolved to %v, want 0.2", got)
	}
}
