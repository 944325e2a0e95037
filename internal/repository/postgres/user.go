package postgres

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"golang.org/x/crypto/bcrypt"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
)

const uniqueViolation = "23505"

// CreateUser creates a new user with a bcrypt-hashed password
func (p *PostgresDB) CreateUser(name, email, password string) (*db.User, error) {
	conn := p.conn

	hashedPassword, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("error hashing password: %w", err)
	}

	userID := uuid.New().String()
	var createdAt time.Time

	query := `
	INSERT INTO users (id, name, email, password_hash)
	VALUES ($1, $2, $3, $4)
	RETURNING id, created_at
	`

	err = conn.QueryRow(query, userID, name, email, string(hashedPassword)).Scan(&userID, &createdAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, db.ErrEmailTaken
		}
		return nil, fmt.Errorf("error creating user: %w", err)
	}

	logger.Log.WithFields(logrus.Fields{"email": email, "user_id": userID}).Info("Created new user")

	return &db.User{
		ID:        userID,
		Name:      name,
		Email:     email,
		CreatedAt: createdAt,
	}, nil
}

// GetUserByEmail retrieves a user by email
func (p *PostgresDB) GetUserByEmail(email string) (*db.User, error) {
	conn := p.conn

	var user db.User
	query := `SELECT id, name, email, password_hash, COALESCE(image, ''), created_at FROM users WHERE email = $1`

	err := conn.QueryRow(query, email).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Image, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	return &user, nil
}

// GetUserByID retrieves a user by id
func (p *PostgresDB) GetUserByID(id string) (*db.User, error) {
	conn := p.conn

	var user db.User
	query := `SELECT id, name, email, password_hash, COALESCE(image, ''), created_at FROM users WHERE id = $1`

	err := conn.QueryRow(query, id).Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash, &user.Image, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, db.ErrNotFound
		}
		return nil, fmt.Errorf("error retrieving user: %w", err)
	}

	return &user, nil
}
