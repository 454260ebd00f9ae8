package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/loquax-ai/loquax/pkg/llm"
)

const ddlSessionMessages = `
CREATE TABLE IF NOT EXISTS session_messages (
    id          BIGSERIAL    PRIMARY KEY,
    session_id  TEXT         NOT NULL,
    position    INT          NOT NULL,
    role        TEXT         NOT NULL,
    content     TEXT         NOT NULL,
    created_at  TIMESTAMPTZ  NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_session_messages_session
    ON session_messages (session_id, position);
`

// Postgres is a [Store] backed by a PostgreSQL session_messages table.
//
// Obtain one via [NewPostgres]. All methods are safe for concurrent use.
type Postgres struct {
	pool *pgxpool.Pool
}

// NewPostgres connects to dsn, ensures the schema exists, and returns the
// store. The schema setup is idempotent and safe to run on every start.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("history: connect: %w", err)
	}
	if _, err := pool.Exec(ctx, ddlSessionMessages); err != nil {
		pool.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &Postgres{pool: pool}, nil
}

// Load implements [Store].
func (p *Postgres) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	const q = `
		SELECT role, content
		FROM   session_messages
		WHERE  session_id = $1
		ORDER  BY position`

	rows, err := p.pool.Query(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	msgs, err := pgx.CollectRows(rows, func(row pgx.CollectableRow) (llm.Message, error) {
		var m llm.Message
		err := row.Scan(&m.Role, &m.Content)
		return m, err
	})
	if err != nil {
		return nil, fmt.Errorf("history: scan rows: %w", err)
	}
	if msgs == nil {
		msgs = []llm.Message{}
	}
	return msgs, nil
}

// Save implements [Store]. The snapshot is replaced atomically: the old rows
// are deleted and the new ones inserted in a single transaction.
func (p *Postgres) Save(ctx context.Context, sessionID string, msgs []llm.Message) error {
	tx, err := p.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("history: save: begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM session_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("history: save: clear: %w", err)
	}
	for i, m := range msgs {
		_, err := tx.Exec(ctx,
			`INSERT INTO session_messages (session_id, position, role, content) VALUES ($1, $2, $3, $4)`,
			sessionID, i, m.Role, m.Content)
		if err != nil {
			return fmt.Errorf("history: save: insert: %w", err)
		}
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("history: save: commit: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (p *Postgres) Delete(ctx context.Context, sessionID string) error {
	if _, err := p.pool.Exec(ctx, `DELETE FROM session_messages WHERE session_id = $1`, sessionID); err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	return nil
}

// Close releases the connection pool.
func (p *Postgres) Close() {
	p.pool.Close()
}
