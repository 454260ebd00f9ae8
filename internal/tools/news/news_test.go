package news

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestExecute_MissingAPIKey(t *testing.T) {
	t.Setenv("NEWS_API_KEY", "")
	tool := New(Config{})

	got, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "Error: NEWS_API_KEY not found in environment variables" {
		t.Errorf("got %q", got)
	}
}

func TestExecute_FormatsHeadlines(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("apiKey"); got != "test-key" {
			t.Errorf("apiKey = %q", got)
		}
		if got := r.URL.Query().Get("category"); got != "technology" {
			t.Errorf("category = %q", got)
		}
		if got := r.URL.Query().Get("country"); got != "" {
			t.Errorf("country should be unset when a category is given, got %q", got)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"status": "ok",
			"articles": [
				{"source": {"name": "TechDaily"}, "title": "Big chip news", "url": "https://example.com/1", "publishedAt": "2026-08-30"},
				{"source": {"name": ""}, "title": "", "url": "", "publishedAt": ""}
			]
		}`))
	}))
	defer srv.Close()

	tool := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	got, err := tool.Execute(context.Background(), map[string]any{"category": "technology"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}

	if !strings.HasPrefix(got, "Today's Headlines:") {
		t.Errorf("missing header: %q", got)
	}
	if !strings.Contains(got, "1. Big chip news") {
		t.Errorf("missing first headline: %q", got)
	}
	if !strings.Contains(got, "Source: TechDaily") {
		t.Errorf("missing source: %q", got)
	}
	if !strings.Contains(got, "2. No title") || !strings.Contains(got, "Unknown Source") {
		t.Errorf("empty fields should get placeholders: %q", got)
	}
}

func TestExecute_DefaultsToUSHeadlines(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("country"); got != "us" {
			t.Errorf("country = %q, want us", got)
		}
		if got := r.URL.Query().Get("pageSize"); got != "5" {
			t.Errorf("pageSize = %q, want default 5", got)
		}
		w.Write([]byte(`{"status": "ok", "articles": [{"title": "A story"}]}`))
	}))
	defer srv.Close()

	tool := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := tool.Execute(context.Background(), map[string]any{}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestExecute_LimitClamped(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("pageSize"); got != "10" {
			t.Errorf("pageSize = %q, want clamped 10", got)
		}
		w.Write([]byte(`{"status": "ok", "articles": [{"title": "A story"}]}`))
	}))
	defer srv.Close()

	tool := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	if _, err := tool.Execute(context.Background(), map[string]any{"limit": float64(50)}); err != nil {
		t.Fatalf("Execute: %v", err)
	}
}

func TestExecute_APIErrorBecomesResultString(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"status": "error", "message": "your API key is invalid"}`))
	}))
	defer srv.Close()

	tool := New(Config{APIKey: "bad-key", BaseURL: srv.URL})
	got, err := tool.Execute(context.Background(), map[string]any{})
	if err != nil {
		t.Fatalf("upstream failures must not be Go errors: %v", err)
	}
	if !strings.Contains(got, "your API key is invalid") {
		t.Errorf("got %q", got)
	}
}

func TestExecute_NoArticles(t *testing.T) {
	t.Parallel()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status": "ok", "articles": []}`))
	}))
	defer srv.Close()

	tool := New(Config{APIKey: "test-key", BaseURL: srv.URL})
	got, err := tool.Execute(context.Background(), map[string]any{"query": "nothing"})
	if err != nil {
		t.Fatalf("Execute: %v", err)
	}
	if got != "No news articles found for the given criteria" {
		t.Errorf("got %q", got)
	}
}
