package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
	"life-agent/internal/service/conversation"
	"life-agent/internal/service/llm"
	"life-agent/pkg/validation"
)

// ConversationHandlers serves the conversation CRUD endpoints
type ConversationHandlers struct {
	service   *conversation.ConversationService
	validator *validation.ChatRequestValidator
}

// NewConversationHandlers creates a new ConversationHandlers
func NewConversationHandlers(service *conversation.ConversationService) *ConversationHandlers {
	return &ConversationHandlers{
		service:   service,
		validator: validation.NewChatRequestValidator(),
	}
}

// ConversationSummary is the list view of a conversation, without messages
type ConversationSummary struct {
	ID        string    `json:"id"`
	Title     string    `json:"title"`
	UpdatedAt time.Time `json:"updated_at"`
}

// ConversationDetail is the full view of a conversation
type ConversationDetail struct {
	ID        string        `json:"id"`
	Title     string        `json:"title"`
	Messages  []llm.Message `json:"messages"`
	CreatedAt time.Time     `json:"created_at"`
	UpdatedAt time.Time     `json:"updated_at"`
}

// CreateConversationRequest represents the request body for saving a conversation
type CreateConversationRequest struct {
	Title    string        `json:"title"`
	Messages []llm.Message `json:"messages"`
}

// UpdateConversationRequest represents the request body for updating a conversation
type UpdateConversationRequest struct {
	Title    string        `json:"title,omitempty"`
	Messages []llm.Message `json:"messages"`
}

// ListHandler handles GET /api/conversations
func (h *ConversationHandlers) ListHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conversations, err := h.service.List(userID)
	if err != nil {
		logger.Log.WithError(err).Error("Error listing conversations")
		sendError(w, http.StatusInternalServerError, "Failed to list conversations")
		return
	}

	summaries := make([]ConversationSummary, 0, len(conversations))
	for _, c := range conversations {
		summaries = append(summaries, ConversationSummary{
			ID:        c.ID,
			Title:     c.Title,
			UpdatedAt: c.UpdatedAt,
		})
	}

	sendJSON(w, http.StatusOK, summaries)
}

// CreateHandler handles POST /api/conversations
func (h *ConversationHandlers) CreateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req CreateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateMessages(req.Messages); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	title := req.Title
	if title == "" {
		title = conversation.DeriveTitle(req.Messages)
	}

	id, err := h.service.Create(userID, title, req.Messages)
	if err != nil {
		logger.Log.WithError(err).Error("Error creating conversation")
		sendError(w, http.StatusInternalServerError, "Failed to create conversation")
		return
	}

	sendJSON(w, http.StatusCreated, map[string]string{"id": id})
}

// GetHandler handles GET /api/conversations/{id}
func (h *ConversationHandlers) GetHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	conv, err := h.service.Get(r.PathValue("id"), userID)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		logger.Log.WithError(err).Error("Error fetching conversation")
		sendError(w, http.StatusInternalServerError, "Failed to fetch conversation")
		return
	}

	sendJSON(w, http.StatusOK, ConversationDetail{
		ID:        conv.ID,
		Title:     conv.Title,
		Messages:  conv.Messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	})
}

// UpdateHandler handles PUT /api/conversations/{id}
func (h *ConversationHandlers) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req UpdateConversationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateMessages(req.Messages); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	id := r.PathValue("id")
	conv, err := h.service.Replace(id, userID, req.Messages, req.Title)
	if err != nil {
		if errors.Is(err, db.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		logger.Log.WithError(err).Error("Error updating conversation")
		sendError(w, http.StatusInternalServerError, "Failed to update conversation")
		return
	}

	sendJSON(w, http.StatusOK, ConversationDetail{
		ID:        conv.ID,
		Title:     conv.Title,
		Messages:  conv.Messages,
		CreatedAt: conv.CreatedAt,
		UpdatedAt: conv.UpdatedAt,
	})
}

// DeleteHandler handles DELETE /api/conversations/{id}
func (h *ConversationHandlers) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	if err := h.service.Delete(r.PathValue("id"), userID); err != nil {
		if errors.Is(err, db.ErrNotFound) {
			sendError(w, http.StatusNotFound, "Conversation not found")
			return
		}
		logger.Log.WithError(err).Error("Error deleting conversation")
		sendError(w, http.StatusInternalServerError, "Failed to delete conversation")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
