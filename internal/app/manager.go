// Package app wires the agent pipeline into a multi-session service: one
// [Manager] owns the set of live sessions, creates agents on demand, resumes
// persisted conversations, and serialises turns per session.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/google/uuid"

	"github.com/loquax-ai/loquax/internal/agent"
	"github.com/loquax-ai/loquax/internal/history"
	"github.com/loquax-ai/loquax/internal/observe"
	"github.com/loquax-ai/loquax/internal/tools"
	"github.com/loquax-ai/loquax/pkg/llm"
)

// savedContentPrefixLen is how many bytes of message content participate in
// the persistence dedup key. Long messages that share a prefix this long are
// treated as the same message when snapshotting.
const savedContentPrefixLen = 100

// ManagerConfig holds the dependencies and settings for a [Manager].
type ManagerConfig struct {
	// Client is the model backend shared by all sessions. Required.
	Client llm.Client

	// Registry supplies the tools shared by all sessions. Required.
	Registry *tools.Registry

	// Store persists conversation snapshots. Required; use
	// [history.NewMemStore] for ephemeral runs.
	Store history.Store

	// MaxTurns is the per-session memory retention, in user+assistant
	// turn-pairs. Non-positive means the agent default.
	MaxTurns int

	// SystemTemplate is an optional custom system-message template passed
	// through to each session's agent.
	SystemTemplate string

	// Metrics attaches metric instruments. Optional.
	Metrics *observe.Metrics
}

// session binds one agent to one session ID. The mutex serialises turns;
// the agent pipeline is sequential within a turn but not reentrant.
type session struct {
	mu    sync.Mutex
	agent *agent.Agent
}

// Manager owns all live sessions. It creates an agent per session on first
// use, resuming any persisted history, and snapshots the conversation after
// every turn.
//
// All methods are safe for concurrent use; turns on distinct sessions run
// concurrently, turns on the same session queue.
type Manager struct {
	cfg ManagerConfig

	mu       sync.Mutex
	sessions map[string]*session
}

// NewManager validates cfg and creates a Manager with no live sessions.
func NewManager(cfg ManagerConfig) (*Manager, error) {
	if cfg.Client == nil {
		return nil, errors.New("app: Client must not be nil")
	}
	if cfg.Registry == nil {
		return nil, errors.New("app: Registry must not be nil")
	}
	if cfg.Store == nil {
		return nil, errors.New("app: Store must not be nil")
	}
	return &Manager{
		cfg:      cfg,
		sessions: make(map[string]*session),
	}, nil
}

// NewSessionID returns a fresh unique session identifier.
func (m *Manager) NewSessionID() string {
	return uuid.NewString()
}

// Handle processes one user turn for sessionID: it gets or creates the
// session (resuming persisted history on first use), runs the agent
// pipeline, records the routing decision, and persists the updated
// conversation snapshot.
//
// A persistence failure after a successful turn is logged, not returned;
// the reply already exists and losing it would be worse than a stale
// snapshot.
func (m *Manager) Handle(ctx context.Context, sessionID, input string) (agent.TurnResult, error) {
	s, err := m.getOrCreate(ctx, sessionID)
	if err != nil {
		return agent.TurnResult{}, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	result, err := s.agent.Run(ctx, input)
	if err != nil {
		return agent.TurnResult{}, err
	}

	s.agent.Memory().AddRouterDecision(result.Routing.UseTool, result.Routing.ToolName, result.Routing.Reasoning)

	if err := m.cfg.Store.Save(ctx, sessionID, dedupeMessages(s.agent.Memory().History())); err != nil {
		slog.Error("app: snapshot save failed", "session", sessionID, "err", err)
	}
	return result, nil
}

// History returns the live conversation history for sessionID, or nil when
// the session is not live.
func (m *Manager) History(sessionID string) []llm.Message {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	m.mu.Unlock()
	if !ok {
		return nil
	}
	return s.agent.Memory().History()
}

// Clear wipes sessionID: live memory, the persisted snapshot, and the
// session slot itself, so the next turn starts fresh.
func (m *Manager) Clear(ctx context.Context, sessionID string) error {
	m.mu.Lock()
	s, ok := m.sessions[sessionID]
	if ok {
		delete(m.sessions, sessionID)
	}
	m.mu.Unlock()

	if ok {
		s.mu.Lock()
		s.agent.Memory().Clear()
		s.mu.Unlock()
		if m.cfg.Metrics != nil {
			m.cfg.Metrics.ActiveSessions.Add(ctx, -1)
		}
	}
	if err := m.cfg.Store.Delete(ctx, sessionID); err != nil {
		return fmt.Errorf("app: clear session: %w", err)
	}
	return nil
}

// getOrCreate returns the live session for sessionID, building its agent and
// replaying the persisted snapshot when the session is not yet live.
func (m *Manager) getOrCreate(ctx context.Context, sessionID string) (*session, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if s, ok := m.sessions[sessionID]; ok {
		return s, nil
	}

	a, err := agent.New(agent.Config{
		Client:         m.cfg.Client,
		Registry:       m.cfg.Registry,
		SystemTemplate: m.cfg.SystemTemplate,
		MaxTurns:       m.cfg.MaxTurns,
		Metrics:        m.cfg.Metrics,
	})
	if err != nil {
		return nil, fmt.Errorf("app: create agent: %w", err)
	}

	stored, err := m.cfg.Store.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("app: resume session: %w", err)
	}
	replayHistory(a.Memory(), stored)
	if len(stored) > 0 {
		slog.Info("app: resumed session", "session", sessionID, "messages", len(stored))
	}

	s := &session{agent: a}
	m.sessions[sessionID] = s
	if m.cfg.Metrics != nil {
		m.cfg.Metrics.ActiveSessions.Add(ctx, 1)
	}
	return s, nil
}

// replayHistory feeds a persisted snapshot through the memory's append path
// so retention bounds and dedup apply to resumed conversations too. Roles
// other than user and assistant are skipped; snapshots never contain them,
// but a hand-edited store must not corrupt memory.
func replayHistory(mem *agent.Memory, msgs []llm.Message) {
	for _, msg := range msgs {
		switch msg.Role {
		case llm.RoleUser:
			mem.AddUserMessage(msg.Content)
		case llm.RoleAssistant:
			mem.AddAssistantMessage(msg.Content)
		}
	}
}

// dedupeMessages drops repeated messages from a snapshot before persisting.
// Two messages are the same when their role and first [savedContentPrefixLen]
// bytes of content match; order of first occurrence is kept.
func dedupeMessages(msgs []llm.Message) []llm.Message {
	type key struct {
		role   string
		prefix string
	}
	seen := make(map[key]bool, len(msgs))
	out := make([]llm.Message, 0, len(msgs))
	for _, msg := range msgs {
		prefix := msg.Content
		if len(prefix) > savedContentPrefixLen {
			prefix = prefix[:savedContentPrefixLen]
		}
		k := key{role: msg.Role, prefix: prefix}
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, msg)
	}
	return out
}
