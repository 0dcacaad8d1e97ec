package store

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/slack-go/slack"

	"github.com/slackemu/emulator/internal/model"
)

// SaveMessage upserts a message row. scopeBotID is empty for channel
// messages (global scope) and the owning bot's id for DM messages.
func (s *Store) SaveMessage(m model.Message, scopeBotID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	blocksJSON, err := json.Marshal(m.Blocks)
	if err != nil {
		return fmt.Errorf("marshal blocks: %w", err)
	}
	reactionsJSON, err := json.Marshal(m.Reactions)
	if err != nil {
		return fmt.Errorf("marshal reactions: %w", err)
	}

	var fileID sql.NullString
	if m.File != nil {
		fileID = sql.NullString{String: m.File.ID, Valid: true}
	}

	var scope sql.NullString
	if scopeBotID != "" {
		scope = sql.NullString{String: scopeBotID, Valid: true}
	}

	_, err = s.db.Exec(`
		INSERT INTO simulator_messages
			(ts, channel, user, text, thread_ts, subtype, blocks, reactions, file_id, scope_bot_id, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, strftime('%s','now'))
		ON CONFLICT(ts) DO UPDATE SET
			text = excluded.text,
			blocks = excluded.blocks,
			reactions = excluded.reactions,
			file_id = excluded.file_id
	`, m.Ts, m.Channel, m.User, m.Text, nullIfEmpty(m.ThreadTs), nullIfEmpty(m.Subtype),
		string(blocksJSON), string(reactionsJSON), fileID, scope)
	if err != nil {
		return fmt.Errorf("save message: %w", err)
	}
	return nil
}

// DeleteMessage removes a single message by timestamp.
func (s *Store) DeleteMessage(ts string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM simulator_messages WHERE ts = ?`, ts)
	return err
}

// ClearChannel deletes every message in a channel.
func (s *Store) ClearChannel(channel string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM simulator_messages WHERE channel = ?`, channel)
	return err
}

// ClearAllMessages deletes every persisted message.
func (s *Store) ClearAllMessages() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.db.Exec(`DELETE FROM simulator_messages`)
	return err
}

// LoadMessages returns all channel-scope (global) messages plus the DM
// messages scoped to scopeBotID, ordered by ts. Called once at startup and
// again whenever the active bot scope changes.
func (s *Store) LoadMessages(scopeBotID string) ([]model.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT ts, channel, user, text, thread_ts, subtype, blocks, reactions, file_id
		FROM simulator_messages
		WHERE scope_bot_id IS NULL OR scope_bot_id = ?
		ORDER BY ts ASC
	`, scopeBotID)
	if err != nil {
		return nil, fmt.Errorf("load messages: %w", err)
	}
	defer rows.Close()

	var out []model.Message
	var fileIDs []string // parallel to out; "" when the row has no file
	for rows.Next() {
		var m model.Message
		var threadTs, subtype, fileID sql.NullString
		var blocksJSON, reactionsJSON string

		if err := rows.Scan(&m.Ts, &m.Channel, &m.User, &m.Text, &threadTs, &subtype,
			&blocksJSON, &reactionsJSON, &fileID); err != nil {
			return nil, fmt.Errorf("scan message: %w", err)
		}
		m.ThreadTs = threadTs.String
		m.Subtype = subtype.String

		var blocks []slack.Block
		if blocksJSON != "" && blocksJSON != "null" {
			if err := json.Unmarshal([]byte(blocksJSON), &blocks); err == nil {
				m.Blocks = blocks
			}
		}
		var reactions []model.Reaction
		if reactionsJSON != "" && reactionsJSON != "null" {
			if err := json.Unmarshal([]byte(reactionsJSON), &reactions); err == nil {
				m.Reactions = reactions
			}
		}
		out = append(out, m)
		fileIDs = append(fileIDs, fileID.String)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	// The pool holds a single connection, so file rows are looked up only
	// after the message cursor has released it.
	rows.Close()
	for i, id := range fileIDs {
		if id == "" {
			continue
		}
		if f, err := s.loadFileLocked(id); err == nil {
			out[i].File = f
		}
	}
	return out, nil
}

var errNotFound = errors.New("not found")

func nullIfEmpty(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
