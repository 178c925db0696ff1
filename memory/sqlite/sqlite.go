// Package sqlite provides a durable core.MemoryStore backed by an SQLite file
// (pure Go driver, no cgo).
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite"

	"github.com/hupe1980/beanmesh/core"
)

// DefaultPath is the database file used when no path is configured.
const DefaultPath = "memory.db"

// Store persists threads in two tables: threads (working memory) and messages
// (ordered history).
type Store struct {
	db *sql.DB
}

var _ core.MemoryStore = (*Store)(nil)

// New opens (creating when needed) the database at path and applies the schema.
// Use ":memory:" for an ephemeral database.
func New(path string) (*Store, error) {
	if path == "" {
		path = DefaultPath
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	// SQLite allows a single writer; serializing through one connection also
	// keeps ":memory:" databases shared.
	db.SetMaxOpenConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", path, err)
	}

	return s, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS threads (
		id TEXT PRIMARY KEY,
		working_memory TEXT NOT NULL DEFAULT '',
		updated_at INTEGER NOT NULL
	);

	CREATE TABLE IF NOT EXISTS messages (
		thread_id TEXT NOT NULL REFERENCES threads(id),
		seq INTEGER NOT NULL,
		id TEXT NOT NULL,
		role TEXT NOT NULL,
		text TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		PRIMARY KEY (thread_id, seq)
	);

	CREATE INDEX IF NOT EXISTS idx_messages_thread ON messages(thread_id);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Get loads the thread, returning an empty thread for unknown ids.
func (s *Store) Get(ctx context.Context, threadID string) (*core.Thread, error) {
	th := core.NewThread(threadID)

	var updated int64
	err := s.db.QueryRowContext(ctx,
		`SELECT working_memory, updated_at FROM threads WHERE id = ?`, threadID,
	).Scan(&th.WorkingMemory, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return th, nil
	}
	if err != nil {
		return nil, err
	}
	th.UpdatedAt = time.Unix(0, updated).UTC()

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, text, created_at FROM messages WHERE thread_id = ? ORDER BY seq`, threadID,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var (
			msg     core.Message
			created int64
		)
		if err := rows.Scan(&msg.ID, &msg.Role, &msg.Text, &created); err != nil {
			return nil, err
		}
		msg.CreatedAt = time.Unix(0, created).UTC()
		th.Messages = append(th.Messages, msg)
	}

	return th, rows.Err()
}

// Append adds messages after the current tail in a single transaction.
func (s *Store) Append(ctx context.Context, threadID string, msgs ...core.Message) error {
	if len(msgs) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint errcheck

	now := time.Now().UTC().UnixNano()
	if err := touch(ctx, tx, threadID, now); err != nil {
		return err
	}

	var next int64
	if err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(seq), 0) FROM messages WHERE thread_id = ?`, threadID,
	).Scan(&next); err != nil {
		return err
	}

	for _, m := range msgs {
		next++
		created := m.CreatedAt
		if created.IsZero() {
			created = time.Now().UTC()
		}
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO messages (thread_id, seq, id, role, text, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			threadID, next, m.ID, m.Role, m.Text, created.UnixNano(),
		); err != nil {
			return err
		}
	}

	return tx.Commit()
}

// SetWorkingMemory replaces the thread's working-memory document.
func (s *Store) SetWorkingMemory(ctx context.Context, threadID string, doc string) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO threads (id, working_memory, updated_at) VALUES (?, ?, ?)
		 ON CONFLICT(id) DO UPDATE SET working_memory = excluded.working_memory, updated_at = excluded.updated_at`,
		threadID, doc, time.Now().UTC().UnixNano(),
	)
	return err
}

// Delete drops a thread and its history.
func (s *Store) Delete(ctx context.Context, threadID string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback() // nolint errcheck

	if _, err := tx.ExecContext(ctx, `DELETE FROM messages WHERE thread_id = ?`, threadID); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM threads WHERE id = ?`, threadID); err != nil {
		return err
	}

	return tx.Commit()
}

func touch(ctx context.Context, tx *sql.Tx, threadID string, now int64) error {
	_, err := tx.ExecContext(ctx,
		`INSERT INTO threads (id, updated_at) VALUES (?, ?)
		 ON CONFLICT(id) DO UPDATE SET updated_at = excluded.updated_at`,
		threadID, now,
	)
	return err
}
