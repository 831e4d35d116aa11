package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"owly/internal/logging"
	"owly/internal/types"

	"github.com/google/uuid"
)

// GetConversation loads a conversation by id. Returns (nil, nil) when the
// id is unknown.
func (s *LocalStore) GetConversation(id string) (*types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT id, status, facts, missing_fields, created_at, updated_at FROM conversations WHERE id = ?",
		id,
	)

	var conv types.Conversation
	var factsJSON, missingJSON string
	err := row.Scan(&conv.ID, &conv.Status, &factsJSON, &missingJSON, &conv.CreatedAt, &conv.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load conversation: %w", err)
	}

	if err := json.Unmarshal([]byte(factsJSON), &conv.Facts); err != nil {
		conv.Facts = types.Facts{}
	}
	if err := json.Unmarshal([]byte(missingJSON), &conv.MissingFields); err != nil {
		conv.MissingFields = nil
	}
	return &conv, nil
}

// CreateConversation inserts a new active conversation.
func (s *LocalStore) CreateConversation() (*types.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv := &types.Conversation{
		ID:        uuid.NewString(),
		Status:    types.ConversationActive,
		Facts:     types.Facts{},
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}

	_, err := s.db.Exec(
		"INSERT INTO conversations (id, status, facts, missing_fields, created_at, updated_at) VALUES (?, ?, '{}', '[]', ?, ?)",
		conv.ID, conv.Status, conv.CreatedAt, conv.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create conversation: %w", err)
	}
	logging.StoreDebug("Created conversation %s", conv.ID)
	return conv, nil
}

// AppendMessage appends one message to a conversation.
func (s *LocalStore) AppendMessage(conversationID string, role types.MessageRole, content string, meta types.MessageMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	metaJSON, err := json.Marshal(meta)
	if err != nil {
		metaJSON = []byte("{}")
	}

	_, err = s.db.Exec(
		"INSERT INTO messages (id, conversation_id, role, content, metadata, created_at) VALUES (?, ?, ?, ?, ?, ?)",
		uuid.NewString(), conversationID, role, content, string(metaJSON), time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to append message: %w", err)
	}
	return nil
}

// LastAssistantMessage returns the most recent assistant message content
// for a conversation, or "" when there is none.
func (s *LocalStore) LastAssistantMessage(conversationID string) (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(
		"SELECT content FROM messages WHERE conversation_id = ? AND role = ? ORDER BY created_at DESC, rowid DESC LIMIT 1",
		conversationID, types.RoleAssistant,
	)
	var content string
	err := row.Scan(&content)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to load last assistant message: %w", err)
	}
	return content, nil
}

// UpdateFacts writes the fact state and missing-field list back to the
// conversation. Last writer wins at conversation granularity.
func (s *LocalStore) UpdateFacts(conversationID string, facts types.Facts, missing []string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	factsJSON, err := json.Marshal(facts)
	if err != nil {
		return fmt.Errorf("failed to serialize facts: %w", err)
	}
	missingJSON, err := json.Marshal(missing)
	if err != nil {
		return fmt.Errorf("failed to serialize missing fields: %w", err)
	}

	_, err = s.db.Exec(
		"UPDATE conversations SET facts = ?, missing_fields = ?, updated_at = ? WHERE id = ?",
		string(factsJSON), string(missingJSON), time.Now().UTC(), conversationID,
	)
	if err != nil {
		return fmt.Errorf("failed to update facts: %w", err)
	}
	return nil
}

// ListConversations returns the most recently updated conversations,
// newest first.
func (s *LocalStore) ListConversations(limit int) ([]types.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.Query(
		"SELECT id, status, facts, missing_fields, created_at, updated_at FROM conversations ORDER BY updated_at DESC LIMIT ?",
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var out []types.Conversation
	for rows.Next() {
		var conv types.Conversation
		var factsJSON, missingJSON string
		if err := rows.Scan(&conv.ID, &conv.Status, &factsJSON, &missingJSON, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			continue
		}
		if err := json.Unmarshal([]byte(factsJSON), &conv.Facts); err != nil {
			conv.Facts = types.Facts{}
		}
		_ = json.Unmarshal([]byte(missingJSON), &conv.MissingFields)
		out = append(out, conv)
	}
	return out, rows.Err()
}

// Messages returns a conversation's messages in creation order.
func (s *LocalStore) Messages(conversationID string) ([]types.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(
		"SELECT id, conversation_id, role, content, metadata, created_at FROM messages WHERE conversation_id = ? ORDER BY created_at, rowid",
		conversationID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to load messages: %w", err)
	}
	defer rows.Close()

	var out []types.Message
	for rows.Next() {
		var m types.Message
		var metaJSON string
		if err := rows.Scan(&m.ID, &m.ConversationID, &m.Role, &m.Content, &metaJSON, &m.CreatedAt); err != nil {
			continue
		}
		_ = json.Unmarshal([]byte(metaJSON), &m.Metadata)
		out = append(out, m)
	}
	return out, rows.Err()
}
