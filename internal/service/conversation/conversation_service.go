package conversation

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
	"life-agent/internal/service/llm"
)

// ConversationService handles the business logic for stored conversations
type ConversationService struct {
	db db.Database
}

// NewConversationService creates a new ConversationService
func NewConversationService(database db.Database) *ConversationService {
	return &ConversationService{
		db: database,
	}
}

// List returns the user's conversations, most recently updated first,
// without their message bodies.
func (s *ConversationService) List(userID string) ([]db.Conversation, error) {
	conversations, err := s.db.GetConversationsByUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	return conversations, nil
}

// Get returns one conversation with its full message history. Returns
// db.ErrNotFound when the id does not exist or belongs to another user.
func (s *ConversationService) Get(id, userID string) (*db.Conversation, error) {
	return s.db.GetConversation(id, userID)
}

// Create persists a new conversation and returns its id.
func (s *ConversationService) Create(userID, title string, messages []llm.Message) (string, error) {
	conversation, err := s.db.CreateConversation(userID, title, messages)
	if err != nil {
		return "", fmt.Errorf("failed to create conversation: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": conversation.ID,
		"user_id":         userID,
	}).Info("Conversation created")

	return conversation.ID, nil
}

// Update replaces the conversation's message list. The stored title is
// kept as is.
func (s *ConversationService) Update(id, userID string, messages []llm.Message) error {
	_, err := s.db.UpdateConversation(id, userID, messages, "")
	return err
}

// Replace overwrites the conversation's messages and, when title is
// non-empty, its title.
func (s *ConversationService) Replace(id, userID string, messages []llm.Message, title string) (*db.Conversation, error) {
	return s.db.UpdateConversation(id, userID, messages, title)
}

// DeriveTitle builds a conversation title from the first user message,
// truncated to 50 characters.
func DeriveTitle(messages []llm.Message) string {
	for _, msg := range messages {
		if msg.Role != llm.RoleUser || msg.Content == "" {
			continue
		}
		runes := []rune(msg.Content)
		if len(runes) > 50 {
			return string(runes[:50]) + "..."
		}
		return msg.Content
	}
	return "New Conversation"
}

// Delete removes the conversation. Returns db.ErrNotFound when the id
// does not exist or belongs to another user.
func (s *ConversationService) Delete(id, userID string) error {
	if err := s.db.DeleteConversation(id, userID); err != nil {
		return err
	}

	logger.Log.WithFields(logrus.Fields{
		"conversation_id": id,
		"user_id":         userID,
	}).Info("Conversation deleted")

	return nil
}
