package history_test

import (
	"context"
	"testing"

	"github.com/loquax-ai/loquax/internal/history"
	"github.com/loquax-ai/loquax/pkg/llm"
)

func TestMemStore_RoundTrip(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()

	msgs := []llm.Message{
		{Role: llm.RoleUser, Content: "hello"},
		{Role: llm.RoleAssistant, Content: "hi there"},
	}
	if err := store.Save(ctx, "s1", msgs); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := store.Load(ctx, "s1")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 2 || got[0].Content != "hello" || got[1].Role != llm.RoleAssistant {
		t.Errorf("loaded = %+v", got)
	}
}

func TestMemStore_UnknownSessionIsEmpty(t *testing.T) {
	t.Parallel()
	store := history.NewMemStore()

	got, err := store.Load(context.Background(), "nope")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(got) != 0 {
		t.Errorf("loaded = %+v, want empty", got)
	}
}

func TestMemStore_SaveReplacesSnapshot(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()

	store.Save(ctx, "s1", []llm.Message{{Role: llm.RoleUser, Content: "first"}})
	store.Save(ctx, "s1", []llm.Message{{Role: llm.RoleUser, Content: "second"}})

	got, _ := store.Load(ctx, "s1")
	if len(got) != 1 || got[0].Content != "second" {
		t.Errorf("loaded = %+v, want only the second snapshot", got)
	}
}

func TestMemStore_Delete(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()

	store.Save(ctx, "s1", []llm.Message{{Role: llm.RoleUser, Content: "hello"}})
	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if got, _ := store.Load(ctx, "s1"); len(got) != 0 {
		t.Errorf("loaded after delete = %+v", got)
	}

	// Deleting an unknown session is not an error.
	if err := store.Delete(ctx, "never-existed"); err != nil {
		t.Errorf("Delete unknown: %v", err)
	}
}

func TestMemStore_ReturnsCopies(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	store := history.NewMemStore()

	original := []llm.Message{{Role: llm.RoleUser, Content: "hello"}}
	store.Save(ctx, "s1", original)
	original[0].Content = "tampered before load"

	got, _ := store.Load(ctx, "s1")
	if got[0].Content != "hello" {
		t.Error("Save should snapshot its input")
	}

	got[0].Content = "tampered after load"
	again, _ := store.Load(ctx, "s1")
	if again[0].Content != "hello" {
		t.Error("Load should return an independent copy")
	}
}
