// Package testutil provides hand-written mocks shared by the service
// and handler tests.
package testutil

import (
	"context"

	"life-agent/internal/repository/db"
	"life-agent/internal/service/llm"
)

// MockDatabase implements db.Database with overridable functions. Calls
// to an unset function panic, which makes unexpected persistence in a
// test an immediate failure.
type MockDatabase struct {
	CreateUserFunc             func(name, email, password string) (*db.User, error)
	GetUserByEmailFunc         func(email string) (*db.User, error)
	GetUserByIDFunc            func(id string) (*db.User, error)
	CreateConversationFunc     func(userID, title string, messages []llm.Message) (*db.Conversation, error)
	GetConversationFunc        func(id, userID string) (*db.Conversation, error)
	GetConversationsByUserFunc func(userID string) ([]db.Conversation, error)
	UpdateConversationFunc     func(id, userID string, messages []llm.Message, title string) (*db.Conversation, error)
	DeleteConversationFunc     func(id, userID string) error
	CreateWorkoutFunc          func(userID string, workout *db.Workout) (*db.Workout, error)
	GetRecentWorkoutsFunc      func(userID string, limit int) ([]db.Workout, error)
}

var _ db.Database = (*MockDatabase)(nil)

func (m *MockDatabase) CreateUser(name, email, password string) (*db.User, error) {
	return m.CreateUserFunc(name, email, password)
}

func (m *MockDatabase) GetUserByEmail(email string) (*db.User, error) {
	return m.GetUserByEmailFunc(email)
}

func (m *MockDatabase) GetUserByID(id string) (*db.User, error) {
	return m.GetUserByIDFunc(id)
}

func (m *MockDatabase) CreateConversation(userID, title string, messages []llm.Message) (*db.Conversation, error) {
	return m.CreateConversationFunc(userID, title, messages)
}

func (m *MockDatabase) GetConversation(id, userID string) (*db.Conversation, error) {
	return m.GetConversationFunc(id, userID)
}

func (m *MockDatabase) GetConversationsByUser(userID string) ([]db.Conversation, error) {
	return m.GetConversationsByUserFunc(userID)
}

func (m *MockDatabase) UpdateConversation(id, userID string, messages []llm.Message, title string) (*db.Conversation, error) {
	return m.UpdateConversationFunc(id, userID, messages, title)
}

func (m *MockDatabase) DeleteConversation(id, userID string) error {
	return m.DeleteConversationFunc(id, userID)
}

func (m *MockDatabase) CreateWorkout(userID string, workout *db.Workout) (*db.Workout, error) {
	return m.CreateWorkoutFunc(userID, workout)
}

func (m *MockDatabase) GetRecentWorkouts(userID string, limit int) ([]db.Workout, error) {
	return m.GetRecentWorkoutsFunc(userID, limit)
}

// MockProvider implements llm.Provider
type MockProvider struct {
	ChatStreamFunc func(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (<-chan llm.StreamChunk, error)
}

var _ llm.Provider = (*MockProvider)(nil)

func (m *MockProvider) ChatStream(ctx context.Context, messages []llm.Message, tools []llm.ToolDefinition) (<-chan llm.StreamChunk, error) {
	return m.ChatStreamFunc(ctx, messages, tools)
}

// StreamOf returns a closed channel pre-loaded with the given chunks,
// for scripting a single model response.
func StreamOf(chunks ...llm.StreamChunk) <-chan llm.StreamChunk {
	ch := make(chan llm.StreamChunk, len(chunks))
	for _, chunk := range chunks {
		ch <- chunk
	}
	close(ch)
	return ch
}
