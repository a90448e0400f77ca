package settings

import (
	"database/sql"
	"errors"
	"fmt"

	_ "modernc.org/sqlite"
)

// Fixed keys under which client state survives restarts.
const (
	KeySelectedModel = "selected-model"
	KeyBaseUrl       = "server-base-url"
)

const createTableStatement = `
CREATE TABLE IF NOT EXISTS settings (
	key   TEXT PRIMARY KEY,
	value TEXT NOT NULL
)`

// Store is a small key-value store backed by a local SQLite file. It persists
// the selected model name and the configured base URL across sessions.
type Store struct {
	database *sql.DB
}

func Open(path string) (*Store, error) {
	database, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sql.Open() failed: %w", err)
	}

	if _, err := database.Exec(createTableStatement); err != nil {
		database.Close()
		return nil, fmt.Errorf("settings table creation failed: %w", err)
	}

	return &Store{database: database}, nil
}

// Get returns the stored value for key, or fallback when the key is absent.
func (store *Store) Get(key string, fallback string) (string, error) {
	var value string
	err := store.database.QueryRow("SELECT value FROM settings WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return fallback, nil
	}
	if err != nil {
		return "", fmt.Errorf("settings lookup failed: %w", err)
	}
	return value, nil
}

func (store *Store) Set(key string, value string) error {
	_, err := store.database.Exec(
		"INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value",
		key, value)
	if err != nil {
		return fmt.Errorf("settings update failed: %w", err)
	}
	return nil
}

func (store *Store) Delete(key string) error {
	_, err := store.database.Exec("DELETE FROM settings WHERE key = ?", key)
	if err != nil {
		return fmt.Errorf("settings delete failed: %w", err)
	}
	return nil
}

func (store *Store) Close() error {
	return store.database.Close()
}
