package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"life-agent/internal/logger"
	"life-agent/internal/repository/db"
	"life-agent/internal/service/chat"
	"life-agent/internal/service/conversation"
	"life-agent/internal/service/llm"
	"life-agent/pkg/validation"
)

// ChatHandlers serves the streaming chat endpoint
type ChatHandlers struct {
	chatService         *chat.ChatService
	conversationService *conversation.ConversationService
	validator           *validation.ChatRequestValidator
}

// NewChatHandlers creates a new ChatHandlers
func NewChatHandlers(chatService *chat.ChatService, conversationService *conversation.ConversationService) *ChatHandlers {
	return &ChatHandlers{
		chatService:         chatService,
		conversationService: conversationService,
		validator:           validation.NewChatRequestValidator(),
	}
}

// ChatRequest represents the request body for a chat turn
type ChatRequest struct {
	Messages       []llm.Message `json:"messages"`
	ConversationID string        `json:"conversation_id,omitempty"`
}

// ChatHandler handles POST /api/chat. The response is a text/event-stream:
// incremental assistant text as data lines, "CONV_ID:<id>" when the turn
// created a new conversation, and "[DONE]" as the terminator.
func (h *ChatHandlers) ChatHandler(w http.ResponseWriter, r *http.Request) {
	userID, ok := requireUserID(w, r)
	if !ok {
		return
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		sendError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if err := h.validator.ValidateMessages(req.Messages); err != nil {
		sendError(w, http.StatusBadRequest, err.Error())
		return
	}

	// An id supplied by the client must resolve to a conversation the
	// caller owns before the turn starts.
	if req.ConversationID != "" {
		if _, err := h.conversationService.Get(req.ConversationID, userID); err != nil {
			if errors.Is(err, db.ErrNotFound) {
				sendError(w, http.StatusNotFound, "Conversation not found")
				return
			}
			logger.Log.WithError(err).Error("Error loading conversation")
			sendError(w, http.StatusInternalServerError, "Failed to load conversation")
			return
		}
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		sendError(w, http.StatusInternalServerError, "Streaming not supported")
		return
	}

	reconciler := chat.NewReconciler(h.conversationService, req.ConversationID, len(req.Messages))
	reconciler.StartTurn()

	chunks, err := h.chatService.StreamTurn(r.Context(), chat.TurnRequest{
		Messages: req.Messages,
		UserID:   userID,
	})
	if err != nil {
		logger.Log.WithError(err).Error("Error starting chat turn")
		sendError(w, http.StatusInternalServerError, "Failed to start generation")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	var final []llm.Message
	for chunk := range chunks {
		if chunk.Err != nil {
			writeSSE(w, flusher, fmt.Sprintf(`{"error": %q}`, "Generation failed"))
			writeSSE(w, flusher, "[DONE]")
			return
		}
		if chunk.Content != "" {
			writeSSE(w, flusher, strings.ReplaceAll(chunk.Content, "\n", "\\n"))
		}
		if chunk.Final != nil {
			final = chunk.Final
		}
	}

	outcome := reconciler.FinishTurn(userID, final)
	if outcome == chat.SaveCreated {
		writeSSE(w, flusher, "CONV_ID:"+reconciler.ConversationID())
	}

	writeSSE(w, flusher, "[DONE]")
}

func writeSSE(w http.ResponseWriter, flusher http.Flusher, data string) {
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}
