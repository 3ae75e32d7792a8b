package server

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/vctt94/holdemsrv/pkg/server/internal/db"
)

// Database defines the persistence operations the server needs: player
// bankrolls with a transaction trail, and resolved hand results.
type Database interface {
	// RegisterPlayer inserts the player if unknown, seeding the balance.
	RegisterPlayer(playerID, name string, balance int64) error
	// GetPlayerBalance returns the current bankroll of a player.
	GetPlayerBalance(playerID string) (int64, error)
	// UpdatePlayerBalance adjusts a player's bankroll and records the
	// transaction.
	UpdatePlayerBalance(playerID string, amount int64, transactionType, description string) error

	// Hand history
	SaveHandResult(sessionID string, handNum int, board string, result json.RawMessage) error
	GetHandResults(sessionID string) ([]*db.HandRecord, error)

	// Session state persistence, for resuming in-flight tables
	SaveSessionState(sessionID string, config, state json.RawMessage) error
	LoadSessionState(sessionID string) (config, state json.RawMessage, err error)
	DeleteSessionState(sessionID string) error
	GetSessionIDs() ([]string, error)

	// Close closes the database connection.
	Close() error
}

// HandRecord re-exports the stored hand history row.
type HandRecord = db.HandRecord

// NewDatabase opens the sqlite database at dbPath, creating the parent
// directory and schema as needed.
func NewDatabase(dbPath string) (Database, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %v", err)
	}

	return db.NewDB(dbPath)
}
