package chain

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/entrhq/autopilot/pkg/types"
)

const checkpointSchema = `
CREATE TABLE IF NOT EXISTS chain_checkpoints (
	chain_id   TEXT PRIMARY KEY,
	payload    TEXT NOT NULL,
	updated_at TIMESTAMP NOT NULL
);`

// SQLiteStore persists chain checkpoints in an SQLite database, so a
// chain survives process crashes.
type SQLiteStore struct {
	conn *sql.DB
	path string
}

// OpenSQLiteStore opens (or creates) the checkpoint database at path,
// creating parent directories as needed. WAL mode is enabled for
// concurrent readers.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}

	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open checkpoint database: %w", err)
	}

	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("enable WAL mode: %w", err)
	}

	if _, err := conn.Exec(checkpointSchema); err != nil {
		conn.Close()
		return nil, fmt.Errorf("create checkpoint schema: %w", err)
	}

	return &SQLiteStore{conn: conn, path: path}, nil
}

// DefaultSQLitePath returns ~/.autopilot/chains.db.
func DefaultSQLitePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".autopilot", "chains.db"), nil
}

// Save implements Store.
func (s *SQLiteStore) Save(ctx context.Context, state *types.ChainState) error {
	payload, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode chain state: %w", err)
	}

	_, err = s.conn.ExecContext(ctx, `
		INSERT INTO chain_checkpoints (chain_id, payload, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(chain_id) DO UPDATE SET payload = excluded.payload, updated_at = excluded.updated_at`,
		state.ChainID, string(payload), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("save checkpoint for chain %s: %w", state.ChainID, err)
	}
	return nil
}

// Load implements Store. A chain with no checkpoint returns (nil, nil).
func (s *SQLiteStore) Load(ctx context.Context, chainID string) (*types.ChainState, error) {
	var payload string
	err := s.conn.QueryRowContext(ctx,
		"SELECT payload FROM chain_checkpoints WHERE chain_id = ?", chainID,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load checkpoint for chain %s: %w", chainID, err)
	}

	var state types.ChainState
	if err := json.Unmarshal([]byte(payload), &state); err != nil {
		return nil, fmt.Errorf("decode checkpoint for chain %s: %w", chainID, err)
	}
	return &state, nil
}

// Close closes the underlying database.
func (s *SQLiteStore) Close() error {
	return s.conn.Close()
}
