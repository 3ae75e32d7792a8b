package db

import (
	"database/sql"
	"encoding/json"
	"fmt"
)

// DB wraps the sqlite connection.
type DB struct {
	*sql.DB
}

// NewDB opens (creating if missing) the sqlite database at dbPath.
func NewDB(dbPath string) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS players (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			balance INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS transactions (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			player_id TEXT NOT NULL,
			amount INTEGER NOT NULL,
			type TEXT NOT NULL,
			description TEXT,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP,
			FOREIGN KEY (player_id) REFERENCES players(id)
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS hand_results (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			session_id TEXT NOT NULL,
			hand_num INTEGER NOT NULL,
			board TEXT NOT NULL,
			result TEXT NOT NULL,
			created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	if err != nil {
		return err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS session_states (
			session_id TEXT PRIMARY KEY,
			config TEXT NOT NULL,
			state TEXT NOT NULL,
			updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
		)
	`)
	return err
}

// RegisterPlayer inserts the player if unknown, seeding the given balance.
// An existing player is left untouched.
func (db *DB) RegisterPlayer(playerID, name string, balance int64) error {
	_, err := db.Exec(`
		INSERT INTO players (id, name, balance) VALUES (?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, playerID, name, balance)
	if err != nil {
		return fmt.Errorf("failed to register player: %v", err)
	}
	return nil
}

// GetPlayerBalance returns the current bankroll of a player.
func (db *DB) GetPlayerBalance(playerID string) (int64, error) {
	var balance int64
	err := db.QueryRow("SELECT balance FROM players WHERE id = ?", playerID).Scan(&balance)
	if err == sql.ErrNoRows {
		return 0, fmt.Errorf("player not found")
	}
	if err != nil {
		return 0, fmt.Errorf("failed to get player balance: %v", err)
	}
	return balance, nil
}

// UpdatePlayerBalance adjusts a player's bankroll by amount (which may be
// negative) and records the transaction, atomically.
func (db *DB) UpdatePlayerBalance(playerID string, amount int64, transactionType, description string) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	result, err := tx.Exec(`
		UPDATE players SET balance = balance + ? WHERE id = ?
	`, amount, playerID)
	if err != nil {
		return fmt.Errorf("failed to update balance: %v", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		return fmt.Errorf("player not found")
	}

	_, err = tx.Exec(`
		INSERT INTO transactions (player_id, amount, type, description)
		VALUES (?, ?, ?, ?)
	`, playerID, amount, transactionType, description)
	if err != nil {
		return fmt.Errorf("failed to record transaction: %v", err)
	}

	return tx.Commit()
}

// HandRecord is one persisted hand outcome.
type HandRecord struct {
	ID        int64
	SessionID string
	HandNum   int
	Board     string
	Result    json.RawMessage
	CreatedAt string
}

// SaveHandResult persists the outcome of a resolved hand. The result payload
// is stored as JSON so clients can replay it without the engine.
func (db *DB) SaveHandResult(sessionID string, handNum int, board string, result json.RawMessage) error {
	_, err := db.Exec(`
		INSERT INTO hand_results (session_id, hand_num, board, result)
		VALUES (?, ?, ?, ?)
	`, sessionID, handNum, board, result)
	if err != nil {
		return fmt.Errorf("failed to save hand result: %v", err)
	}
	return nil
}

// GetHandResults returns the persisted hands of a session in play order.
func (db *DB) GetHandResults(sessionID string) ([]*HandRecord, error) {
	rows, err := db.Query(`
		SELECT id, session_id, hand_num, board, result, created_at
		FROM hand_results WHERE session_id = ? ORDER BY hand_num
	`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to load hand results: %v", err)
	}
	defer rows.Close()

	var records []*HandRecord
	for rows.Next() {
		var r HandRecord
		var result []byte
		if err := rows.Scan(&r.ID, &r.SessionID, &r.HandNum, &r.Board, &result, &r.CreatedAt); err != nil {
			return nil, err
		}
		r.Result = result
		records = append(records, &r)
	}
	return records, rows.Err()
}

// SaveSessionState upserts the resumable state of a session together with
// the config needed to rebuild its game.
func (db *DB) SaveSessionState(sessionID string, config, state json.RawMessage) error {
	_, err := db.Exec(`
		INSERT INTO session_states (session_id, config, state, updated_at)
		VALUES (?, ?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(session_id) DO UPDATE SET
			config = excluded.config,
			state = excluded.state,
			updated_at = CURRENT_TIMESTAMP
	`, sessionID, config, state)
	if err != nil {
		return fmt.Errorf("failed to save session state: %v", err)
	}
	return nil
}

// LoadSessionState returns the stored config and state of a session.
func (db *DB) LoadSessionState(sessionID string) (config, state json.RawMessage, err error) {
	var c, s []byte
	err = db.QueryRow(`
		SELECT config, state FROM session_states WHERE session_id = ?
	`, sessionID).Scan(&c, &s)
	if err == sql.ErrNoRows {
		return nil, nil, fmt.Errorf("session state not found")
	}
	if err != nil {
		return nil, nil, fmt.Errorf("failed to load session state: %v", err)
	}
	return c, s, nil
}

// DeleteSessionState removes the stored state of a session.
func (db *DB) DeleteSessionState(sessionID string) error {
	_, err := db.Exec("DELETE FROM session_states WHERE session_id = ?", sessionID)
	return err
}

// GetSessionIDs returns the IDs of every session with stored state.
func (db *DB) GetSessionIDs() ([]string, error) {
	rows, err := db.Query("SELECT session_id FROM session_states")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.DB.Close()
}
