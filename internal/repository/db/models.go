package db

import (
	"time"

	"golang.org/x/crypto/bcrypt"

	"life-agent/internal/service/llm"
)

// User represents a user in the database
type User struct {
	ID           string
	Name         string
	Email        string
	PasswordHash string
	Image        string
	CreatedAt    time.Time
}

// CheckPassword reports whether the plaintext password matches the
// stored bcrypt hash.
func (u *User) CheckPassword(password string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) == nil
}

// Conversation represents a conversation in the database. Messages is
// the full ordered list; it is always read and written as a whole.
type Conversation struct {
	ID        string
	UserID    string
	Title     string
	Messages  []llm.Message
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Workout represents one recorded workout session
type Workout struct {
	ID        string     `json:"id"`
	UserID    string     `json:"-"`
	Date      time.Time  `json:"date"`
	Name      string     `json:"name,omitempty"`
	Exercises []Exercise `json:"exercises"`
	CreatedAt time.Time  `json:"-"`
}

// Exercise is one exercise within a workout, with its ordered sets
type Exercise struct {
	ID   string       `json:"id"`
	Name string       `json:"name"`
	Sets []WorkoutSet `json:"sets"`
}

// WorkoutSet is a single set of an exercise. All metrics are optional;
// positivity is enforced by the workout service, not the schema.
type WorkoutSet struct {
	ID          string   `json:"id"`
	SetNumber   *int     `json:"setNumber,omitempty"`
	Repetitions *int     `json:"repetitions,omitempty"`
	WeightKg    *float64 `json:"weightKg,omitempty"`
}
