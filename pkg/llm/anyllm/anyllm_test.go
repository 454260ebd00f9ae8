package anyllm

import (
	"testing"

	"github.com/loquax-ai/loquax/pkg/llm"
)

func TestNew_Validation(t *testing.T) {
	t.Parallel()
	if _, err := New("", "gpt-4o-mini"); err == nil {
		t.Error("expected error for empty provider name")
	}
	if _, err := New("openai", ""); err == nil {
		t.Error("expected error for empty model")
	}
	if _, err := New("not-a-provider", "some-model"); err == nil {
		t.Error("expected error for unsupported provider")
	}
}

func TestBuildParams(t *testing.T) {
	t.Parallel()
	c := &Client{model: "gpt-4o-mini"}

	params := c.buildParams(llm.GenerateRequest{
		SystemMessage: "be brief",
		History: []llm.Message{
			{Role: llm.RoleUser, Content: "hi"},
		},
		Prompt:      "what's up?",
		Temperature: 0.2,
	})

	if params.Model != "gpt-4o-mini" {
		t.Errorf("model = %q", params.Model)
	}
	if len(params.Messages) != 3 {
		t.Fatalf("messages = %d, want system + history + prompt", len(params.Messages))
	}
	if params.Messages[0].Role != llm.RoleSystem {
		t.Errorf("messages[0].Role = %q", params.Messages[0].Role)
	}
	if params.Temperature == nil || *params.Temperature != 0.2 {
		t.Errorf("temperature = %v, want 0.2", params.Temperature)
	}
}

func TestBuildParams_DefaultTemperature(t *testing.T) {
	t.Parallel()
	c := &Client{model: "gpt-4o-mini"}

	params := c.buildParams(llm.GenerateRequest{Prompt: "hi"})
	if params.Temperature == nil || *params.Temperature != llm.DefaultTemperature {
		t.Errorf("temperature = %v, want default", params.Temperature)
	}
}
