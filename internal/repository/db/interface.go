package db

import (
	"errors"

	"life-agent/internal/service/llm"
)

// Sentinel errors returned by Database implementations. Handlers map
// these to HTTP status codes with errors.Is.
var (
	// ErrNotFound covers both a missing row and a row owned by a
	// different user, so ownership violations are indistinguishable
	// from absence.
	ErrNotFound = errors.New("not found")
	// ErrEmailTaken is returned when creating a user with an email
	// that is already registered.
	ErrEmailTaken = errors.New("email already registered")
)

// Database defines the persistence operations. Every conversation and
// workout operation is owner-scoped: filtered by record id and user id,
// never by id alone.
type Database interface {
	// User operations
	CreateUser(name, email, password string) (*User, error)
	GetUserByEmail(email string) (*User, error)
	GetUserByID(id string) (*User, error)

	// Conversation operations
	CreateConversation(userID, title string, messages []llm.Message) (*Conversation, error)
	GetConversation(id, userID string) (*Conversation, error)
	GetConversationsByUser(userID string) ([]Conversation, error)
	UpdateConversation(id, userID string, messages []llm.Message, title string) (*Conversation, error)
	DeleteConversation(id, userID string) error

	// Workout operations
	CreateWorkout(userID string, workout *Workout) (*Workout, error)
	GetRecentWorkouts(userID string, limit int) ([]Workout, error)
}
