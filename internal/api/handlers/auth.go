package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"life-agent/internal/auth"
	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
	"life-agent/pkg/validation"
)

// AuthHandlers serves signup and login
type AuthHandlers struct {
	db        db.Database
	tokens    *auth.TokenService
	validator *validation.AuthValidator
}

// NewAuthHandlers creates a new AuthHandlers
func NewAuthHandlers(database db.Database, tokens *auth.TokenService) *AuthHandlers {
	return &AuthHandlers{
		db:        database,
		tokens:    tokens,
		validator: validation.NewAuthValidator(),
	}
}

// SignupRequest represents the request body for user registration
type SignupRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginRequest represents the request body for authentication
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse is returned on successful signup or login. It never
// includes the password hash.
type AuthResponse struct {
	Token string   `json:"token"`
	User  UserInfo `json:"user"`
}

// UserInfo is the public view of a user
type UserInfo struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
	Image string `json:"image,omitempty"`
}

// SignupHandler handles POST /api/auth/signup
func (h *AuthHandlers) SignupHandler(w http.ResponseWriter, r *http.Request) {
	var req SignupRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateSignupRequest(req.Name, req.Email, req.Password); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.CreateUser(req.Name, req.Email, req.Password)
	if err != nil {
		if errors.Is(err, db.ErrEmailTaken) {
			sendError(w, http.StatusConflict, "An account with this email already exists")
			return
		}
		logger.Log.WithError(err).Error("Error creating user")
		sendError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		logger.Log.WithError(err).Error("Error issuing token")
		sendError(w, http.StatusInternalServerError, "Failed to create account")
		return
	}

	logger.Log.WithField("user_id", user.ID).Info("User registered")

	sendJSON(w, http.StatusCreated, AuthResponse{
		Token: token,
		User:  UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Image: user.Image},
	})
}

// LoginHandler handles POST /api/auth/login
func (h *AuthHandlers) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateLoginRequest(req.Email, req.Password); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.db.GetUserByEmail(req.Email)
	if err != nil {
		// Same response for unknown email and wrong password.
		if errors.Is(err, db.ErrNotFound) {
			sendError(w, http.StatusUnauthorized, "Invalid email or password")
			return
		}
		logger.Log.WithError(err).Error("Error fetching user")
		sendError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	if !user.CheckPassword(req.Password) {
		sendError(w, http.StatusUnauthorized, "Invalid email or password")
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email)
	if err != nil {
		logger.Log.WithError(err).Error("Error issuing token")
		sendError(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	logger.Log.WithField("user_id", user.ID).Info("User logged in")

	sendJSON(w, http.StatusOK, AuthResponse{
		Token: token,
		User:  UserInfo{ID: user.ID, Name: user.Name, Email: user.Email, Image: user.Image},
	})
}
