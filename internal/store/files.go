package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/slackemu/emulator/internal/model"
)

// blobPath returns the sanitized on-disk path for a file id. Only the
// basename of id is ever used, closing off path traversal via "../".
func (s *Store) blobPath(id string) string {
	return filepath.Join(s.uploadsDir, filepath.Base(id))
}

// SaveFile writes the file's bytes to disk and upserts its metadata row.
// Writes are append-only at rest: an existing blob for the same id is never
// rewritten in place, only created once.
func (s *Store) SaveFile(f model.File, data []byte, scopeBotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path := s.blobPath(f.ID)
	if _, err := os.Stat(path); os.IsNotExist(err) {
		if err := os.WriteFile(path, data, 0o644); err != nil {
			return fmt.Errorf("write file blob: %w", err)
		}
	}

	channelsJSON, err := json.Marshal(f.Channels)
	if err != nil {
		return fmt.Errorf("marshal channels: %w", err)
	}

	var scope sql.NullString
	if scopeBotID != "" {
		scope = sql.NullString{String: scopeBotID, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO simulator_files
			(id, name, title, mimetype, size, user, channels, is_expanded, scope_bot_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))
		ON CONFLICT(id) DO UPDATE SET
			channels = excluded.channels,
			is_expanded = excluded.is_expanded
	`, f.ID, f.Name, f.Title, f.Mimetype, f.Size, f.User, string(channelsJSON), boolToInt(f.IsExpanded), scope)
	if err != nil {
		return fmt.Errorf("save file metadata: %w", err)
	}
	return nil
}

// LoadFile returns the metadata for a single file.
func (s *Store) LoadFile(id string) (*model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.loadFileLocked(id)
}

func (s *Store) loadFileLocked(id string) (*model.File, error) {
	row := s.db.QueryRow(`
		SELECT id, name, title, mimetype, size, user, channels, is_expanded
		FROM simulator_files WHERE id = ?
	`, id)

	var f model.File
	var channelsJSON string
	var expanded int
	if err := row.Scan(&f.ID, &f.Name, &f.Title, &f.Mimetype, &f.Size, &f.User, &channelsJSON, &expanded); err != nil {
		if err == sql.ErrNoRows {
			return nil, errNotFound
		}
		return nil, fmt.Errorf("scan file: %w", err)
	}
	f.IsExpanded = expanded != 0
	if channelsJSON != "" {
		_ = json.Unmarshal([]byte(channelsJSON), &f.Channels)
	}
	return &f, nil
}

// LoadFiles returns all channel-scope (global) files plus the DM files
// scoped to scopeBotID.
func (s *Store) LoadFiles(scopeBotID string) ([]model.File, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT id, name, title, mimetype, size, user, channels, is_expanded
		FROM simulator_files
		WHERE scope_bot_id IS NULL OR scope_bot_id = ?
	`, scopeBotID)
	if err != nil {
		return nil, fmt.Errorf("load files: %w", err)
	}
	defer rows.Close()

	var out []model.File
	for rows.Next() {
		var f model.File
		var channelsJSON string
		var expanded int
		if err := rows.Scan(&f.ID, &f.Name, &f.Title, &f.Mimetype, &f.Size, &f.User, &channelsJSON, &expanded); err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		f.IsExpanded = expanded != 0
		if channelsJSON != "" {
			_ = json.Unmarshal([]byte(channelsJSON), &f.Channels)
		}
		out = append(out, f)
	}
	return out, rows.Err()
}

// ReadFileBytes returns the raw bytes of a stored file.
func (s *Store) ReadFileBytes(id string) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	data, err := os.ReadFile(s.blobPath(id))
	if os.IsNotExist(err) {
		return nil, errNotFound
	}
	return data, err
}

// SetFileExpanded updates the isExpanded flag for a file.
func (s *Store) SetFileExpanded(id string, expanded bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	res, err := s.db.Exec(`UPDATE simulator_files SET is_expanded = ? WHERE id = ?`, boolToInt(expanded), id)
	if err != nil {
		return err
	}
	n, _ := res.RowsAffected()
	if n == 0 {
		return errNotFound
	}
	return nil
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
