// Package history persists conversation transcripts across process restarts.
//
// A [Store] holds one message snapshot per session. The session layer loads
// the snapshot when a session resumes and writes it back after every turn;
// the in-memory turn state itself lives in the agent's memory, so a Store
// only ever sees complete llm.Message slices.
//
// Three implementations are provided: [Postgres] for shared deployments,
// [SQLite] for single-node setups without an external database, and
// [MemStore] for tests and ephemeral runs.
package history

import (
	"context"

	"github.com/loquax-ai/loquax/pkg/llm"
)

// Store persists per-session conversation snapshots.
//
// All implementations are safe for concurrent use.
type Store interface {
	// Load returns the stored messages for sessionID, oldest first. A
	// session with no stored history yields an empty slice and nil error.
	Load(ctx context.Context, sessionID string) ([]llm.Message, error)

	// Save replaces the stored snapshot for sessionID with msgs.
	Save(ctx context.Context, sessionID string, msgs []llm.Message) error

	// Delete removes all stored messages for sessionID. Deleting an unknown
	// session is not an error.
	Delete(ctx context.Context, sessionID string) error
}
