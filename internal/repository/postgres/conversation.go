package postgres

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
	"life-agent/internal/service/llm"
)

// Conversations store the full ordered message list as one JSONB
// column, so every save is a single atomic row write and a re-fetch
// yields the exact role/content sequence that was persisted.

func marshalMessages(messages []llm.Message) ([]byte, error) {
	if messages == nil {
		messages = []llm.Message{}
	}
	data, err := json.Marshal(messages)
	if err != nil {
		return nil, fmt.Errorf("error marshaling messages: %w", err)
	}
	return data, nil
}

func unmarshalMessages(data []byte) ([]llm.Message, error) {
	var messages []llm.Message
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("error unmarshaling messages: %w", err)
	}
	return messages, nil
}

// CreateConversation creates a new conversation for a user
func (p *PostgresDB) CreateConversation(userID, title string, messages []llm.Message) (*db.Conversation, error) {
	conn := p.conn

	data, err := marshalMessages(messages)
	if err != nil {
		return nil, err
	}

	convID := uuid.New().String()
	var createdAt, updatedAt time.Time

	query := `
	INSERT INTO conversations (id, user_id, title, messages)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at, updated_at
	`

	err = conn.QueryRow(query, convID, userID, title, data).Scan(&convID, &createdAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("error creating conversation: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"conversation_id": convID, "user_id": userID, "message_count": len(messages)}).Info("Created new conversation")

	return &db.Conversation{
		ID:        convID,
		UserID:    userID,
		Title:     title,
		Messages:  messages,
		CreatedAt: createdAt,
		UpdatedAt: updatedAt,
	}, nil
}

// GetConversation retrieves a conversation owned by the given user. A
// conversation owned by someone else is reported as db.ErrNotFound.
func (p *PostgresDB) GetConversation(id, userID string) (*db.Conversation, error) {
	conn := p.conn

	var conv db.Conversation
	var data []byte
	query := `
	SELECT id, user_id, title, messages, created_at, updated_at
	FROM conversations
	WHERE id = $1 AND user_id = $2
	`

	err := conn.QueryRow(query, id, userID).Scan(&conv.ID, &conv.UserID, &conv.Title, &data, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving conversation: %w", err)
	}

	conv.Messages, err = unmarshalMessages(data)
	if err != nil {
		return nil, err
	}

	return &conv, nil
}

// GetConversationsByUser retrieves all conversations for a user,
// most recently updated first. Message lists are not loaded.
func (p *PostgresDB) GetConversationsByUser(userID string) ([]db.Conversation, error) {
	conn := p.conn

	query := `
	SELECT id, user_id, title, created_at, updated_at
	FROM conversations
	WHERE user_id = $1
	ORDER BY updated_at DESC
	`

	rows, err := conn.Query(query, userID)
	if err != nil {
		return nil, fmt.Errorf("error querying conversations: %w", err)
	}
	defer rows.Close()

	var conversations []db.Conversation
	for rows.Next() {
		var conv db.Conversation
		if err := rows.Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt); err != nil {
			return nil, fmt.Errorf("error scanning conversation: %w", err)
		}
		conversations = append(conversations, conv)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating conversations: %w", err)
	}

	return conversations, nil
}

// UpdateConversation replaces the message list (and optionally the
// title) of a conversation owned by the given user. The message list
// and updated_at change in one statement.
func (p *PostgresDB) UpdateConversation(id, userID string, messages []llm.Message, title string) (*db.Conversation, error) {
	conn := p.conn

	data, err := marshalMessages(messages)
	if err != nil {
		return nil, err
	}

	var conv db.Conversation
	query := `
	UPDATE conversations
	SET messages = $3, title = COALESCE(NULLIF($4, ''), title), updated_at = CURRENT_TIMESTAMP
	WHERE id = $1 AND user_id = $2
	RETURNING id, user_id, title, created_at, updated_at
	`

	err = conn.QueryRow(query, id, userID, data, title).Scan(&conv.ID, &conv.UserID, &conv.Title, &conv.CreatedAt, &conv.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error updating conversation: %w", err)
	}

	conv.Messages = messages

	logger.Log.WithFields(logrus.Fields{"conversation_id": id, "message_count": len(messages)}).Debug("Updated conversation")

	return &conv, nil
}

// DeleteConversation deletes a conversation owned by the given user
func (p *PostgresDB) DeleteConversation(id, userID string) error {
	conn := p.conn

	result, err := conn.Exec(`DELETE FROM conversations WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return fmt.Errorf("error deleting conversation: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking delete result: %w", err)
	}
	if affected == 0 {
		return db.ErrNotFound
	}

	logger.Log.WithField("conversation_id", id).Info("Deleted conversation")
	return nil
}
