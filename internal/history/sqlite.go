package history

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/loquax-ai/loquax/pkg/llm"
)

const (
	sqliteDriver = "sqlite"
	sqliteDSNOpt = "?_pragma=busy_timeout(3000)&_pragma=journal_mode(WAL)"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS session_messages (
	session_id  TEXT    NOT NULL,
	position    INTEGER NOT NULL,
	role        TEXT    NOT NULL,
	content     TEXT    NOT NULL,
	PRIMARY KEY (session_id, position)
);
`

// SQLite is a [Store] backed by a local SQLite database file. It needs no
// external database server, which suits single-node deployments.
//
// Obtain one via [NewSQLite]. All methods are safe for concurrent use.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens (creating if needed) the database at path and ensures the
// schema exists. Parent directories are created as required.
func NewSQLite(path string) (*SQLite, error) {
	if path == "" {
		return nil, fmt.Errorf("history: sqlite path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("history: create dir: %w", err)
	}
	db, err := sql.Open(sqliteDriver, path+sqliteDSNOpt)
	if err != nil {
		return nil, fmt.Errorf("history: open db: %w", err)
	}
	if _, err := db.Exec(sqliteSchema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("history: migrate: %w", err)
	}
	return &SQLite{db: db}, nil
}

// Load implements [Store].
func (s *SQLite) Load(ctx context.Context, sessionID string) ([]llm.Message, error) {
	const q = `
		SELECT role, content
		FROM   session_messages
		WHERE  session_id = ?
		ORDER  BY position`

	rows, err := s.db.QueryContext(ctx, q, sessionID)
	if err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	defer rows.Close()

	msgs := []llm.Message{}
	for rows.Next() {
		var m llm.Message
		if err := rows.Scan(&m.Role, &m.Content); err != nil {
			return nil, fmt.Errorf("history: scan row: %w", err)
		}
		msgs = append(msgs, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("history: load: %w", err)
	}
	return msgs, nil
}

// Save implements [Store]. The snapshot is replaced in a single transaction.
func (s *SQLite) Save(ctx context.Context, sessionID string, msgs []llm.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("history: save: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("history: save: clear: %w", err)
	}
	for i, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO session_messages (session_id, position, role, content) VALUES (?, ?, ?, ?)`,
			sessionID, i, m.Role, m.Content)
		if err != nil {
			return fmt.Errorf("history: save: insert: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("history: save: commit: %w", err)
	}
	return nil
}

// Delete implements [Store].
func (s *SQLite) Delete(ctx context.Context, sessionID string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM session_messages WHERE session_id = ?`, sessionID); err != nil {
		return fmt.Errorf("history: delete: %w", err)
	}
	return nil
}

// Close closes the underlying database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
