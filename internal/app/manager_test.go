package app_test

import (
	"context"
	"testing"

	"github.com/loquax-ai/loquax/internal/app"
	"github.com/loquax-ai/loquax/internal/history"
	"github.com/loquax-ai/loquax/internal/tools"
	"github.com/loquax-ai/loquax/pkg/llm"
	"github.com/loquax-ai/loquax/pkg/llm/mock"
)

func newTestManager(t *testing.T, client llm.Client, store history.Store) *app.Manager {
	t.Helper()
	m, err := app.NewManager(app.ManagerConfig{
		Client:   client,
		Registry: tools.NewRegistry(),
		Store:    store,
	})
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	return m
}

func TestManager_ValidatesConfig(t *testing.T) {
	t.Parallel()
	_, err := app.NewManager(app.ManagerConfig{Registry: tools.NewRegistry(), Store: history.NewMemStore()})
	if err == nil {
		t.Error("expected error for nil client")
	}
	_, err = app.NewManager(app.ManagerConfig{Client: &mock.Client{}, Store: history.NewMemStore()})
	if err == nil {
		t.Error("expected error for nil registry")
	}
	_, err = app.NewManager(app.ManagerConfig{Client: &mock.Client{}, Registry: tools.NewRegistry()})
	if err == nil {
		t.Error("expected error for nil store")
	}
}

func TestManager_TurnPersistsSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()
	// With an empty tool registry the router makes no model call, so the
	// single scripted reply serves the conversational turn.
	client := &mock.Client{Replies: []string{"Hello! How can I help?"}}
	m := newTestManager(t, client, store)

	result, err := m.Handle(ctx, "s1", "hi")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Reply != "Hello! How can I help?" {
		t.Errorf("reply = %q", result.Reply)
	}

	saved, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(saved) != 2 {
		t.Fatalf("snapshot = %+v, want user + assistant", saved)
	}
	if saved[0].Role != llm.RoleUser || saved[0].Content != "hi" {
		t.Errorf("snapshot[0] = %+v", saved[0])
	}
	if saved[1].Role != llm.RoleAssistant {
		t.Errorf("snapshot[1] = %+v", saved[1])
	}
}

func TestManager_ResumesPersistedSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()
	store.Save(ctx, "s1", []llm.Message{
		{Role: llm.RoleUser, Content: "what's your name?"},
		{Role: llm.RoleAssistant, Content: "I'm Loquax."},
	})

	client := &mock.Client{Replies: []string{"You asked for my name."}}
	m := newTestManager(t, client, store)

	if _, err := m.Handle(ctx, "s1", "what did I just ask?"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	history := m.History("s1")
	if len(history) != 4 {
		t.Fatalf("history length = %d, want 4 (2 resumed + new turn)", len(history))
	}
	if history[0].Content != "what's your name?" {
		t.Errorf("resumed history missing: %+v", history)
	}

	// The model call carried the resumed context.
	req := client.LastCall().Req
	if len(req.History) < 3 {
		t.Errorf("model should see the resumed history, got %+v", req.History)
	}
}

func TestManager_RecordsRouterDecision(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &mock.Client{Replies: []string{"sure thing"}}
	m := newTestManager(t, client, history.NewMemStore())

	result, err := m.Handle(ctx, "s1", "hello")
	if err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if result.Routing.UseTool {
		t.Errorf("routing = %+v, want conversational", result.Routing)
	}
}

func TestManager_ClearWipesSession(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()
	client := &mock.Client{Replies: []string{"hi"}}
	m := newTestManager(t, client, store)

	if _, err := m.Handle(ctx, "s1", "hello"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if err := m.Clear(ctx, "s1"); err != nil {
		t.Fatalf("Clear: %v", err)
	}

	if got := m.History("s1"); got != nil {
		t.Errorf("live history after clear = %+v", got)
	}
	if saved, _ := store.Load(ctx, "s1"); len(saved) != 0 {
		t.Errorf("persisted snapshot after clear = %+v", saved)
	}
}

func TestManager_SessionsAreIsolated(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	client := &mock.Client{Replies: []string{"reply"}}
	m := newTestManager(t, client, history.NewMemStore())

	if _, err := m.Handle(ctx, "a", "first session"); err != nil {
		t.Fatalf("Handle: %v", err)
	}
	if _, err := m.Handle(ctx, "b", "second session"); err != nil {
		t.Fatalf("Handle: %v", err)
	}

	if got := m.History("a"); len(got) != 2 || got[0].Content != "first session" {
		t.Errorf("session a history = %+v", got)
	}
	if got := m.History("b"); len(got) != 2 || got[0].Content != "second session" {
		t.Errorf("session b history = %+v", got)
	}
}

func TestManager_NewSessionIDsAreUnique(t *testing.T) {
	t.Parallel()
	m := newTestManager(t, &mock.Client{}, history.NewMemStore())

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		id := m.NewSessionID()
		if id == "" {
			t.Fatal("empty session ID")
		}
		if seen[id] {
			t.Fatalf("duplicate session ID %q", id)
		}
		seen[id] = true
	}
}
