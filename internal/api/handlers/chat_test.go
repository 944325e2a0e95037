package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"life-agent/internal/auth"
	"life-agent/internal/repository/db"
	"life-agent/internal/service/chat"
	"life-agent/internal/service/conversation"
	"life-agent/internal/service/llm"
	"life-agent/internal/service/tools"
	"life-agent/internal/testutil"
)

func newChatHandlers(t *testing.T, provider llm.Provider, database db.Database) *ChatHandlers {
	t.Helper()
	registry, err := tools.NewRegistry()
	if err != nil {
		t.Fatalf("NewRegistry() error = %v", err)
	}
	chatService := chat.NewChatService(provider, registry, "prompt", 5)
	conversationService := conversation.NewConversationService(database)
	return NewChatHandlers(chatService, conversationService)
}

func authedRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	return req.WithContext(auth.ContextWithUserID(context.Background(), "user-1"))
}

func TestChatHandlerStreamsAndSavesNewConversation(t *testing.T) {
	provider := &testutil.MockProvider{
		ChatStreamFunc: func(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition) (<-chan llm.StreamChunk, error) {
			return testutil.StreamOf(
				llm.StreamChunk{Content: "Hi\nthere"},
				llm.StreamChunk{FinishReason: llm.FinishStop},
			), nil
		},
	}

	var savedMessages []llm.Message
	database := &testutil.MockDatabase{
		CreateConversationFunc: func(userID, title string, messages []llm.Message) (*db.Conversation, error) {
			savedMessages = messages
			return &db.Conversation{ID: "conv-1", UserID: userID, Title: title, Messages: messages}, nil
		},
	}
	h := newChatHandlers(t, provider, database)

	req := authedRequest(http.MethodPost, "/api/chat", `{"messages": [{"role": "user", "content": "hello"}]}`)
	rec := httptest.NewRecorder()

	h.ChatHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/event-stream" {
		t.Errorf("Content-Type = %q", ct)
	}

	body := rec.Body.String()
	// Newlines inside a chunk must be escaped to keep SSE framing intact.
	if !strings.Contains(body, "data: Hi\\nthere\n\n") {
		t.Errorf("content frame missing or malformed:\n%s", body)
	}
	if !strings.Contains(body, "data: CONV_ID:conv-1\n\n") {
		t.Errorf("CONV_ID frame missing:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream not terminated with [DONE]:\n%s", body)
	}

	// Saved history: the submitted user message plus the assistant reply.
	if len(savedMessages) != 2 {
		t.Fatalf("saved %d messages, want 2", len(savedMessages))
	}
	if savedMessages[0].Role != llm.RoleUser || savedMessages[1].Role != llm.RoleAssistant {
		t.Errorf("saved history = %+v", savedMessages)
	}
}

func TestChatHandlerUpdatesExistingConversation(t *testing.T) {
	provider := &testutil.MockProvider{
		ChatStreamFunc: func(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition) (<-chan llm.StreamChunk, error) {
			return testutil.StreamOf(
				llm.StreamChunk{Content: "reply"},
				llm.StreamChunk{FinishReason: llm.FinishStop},
			), nil
		},
	}

	updates := 0
	database := &testutil.MockDatabase{
		GetConversationFunc: func(id, userID string) (*db.Conversation, error) {
			if id != "conv-1" || userID != "user-1" {
				return nil, db.ErrNotFound
			}
			return &db.Conversation{ID: id, UserID: userID}, nil
		},
		UpdateConversationFunc: func(id, userID string, messages []llm.Message, title string) (*db.Conversation, error) {
			updates++
			return &db.Conversation{ID: id, UserID: userID, Messages: messages}, nil
		},
	}
	h := newChatHandlers(t, provider, database)

	body := `{"conversation_id": "conv-1", "messages": [{"role": "user", "content": "hello"}, {"role": "assistant", "content": "hi"}, {"role": "user", "content": "more"}]}`
	req := authedRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()

	h.ChatHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	if updates != 1 {
		t.Errorf("updates = %d, want 1", updates)
	}
	if strings.Contains(rec.Body.String(), "CONV_ID:") {
		t.Error("existing conversation must not emit CONV_ID")
	}
}

func TestChatHandlerRejectsUnauthenticated(t *testing.T) {
	h := newChatHandlers(t, &testutil.MockProvider{}, &testutil.MockDatabase{})

	req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(`{"messages": [{"role": "user", "content": "hi"}]}`))
	rec := httptest.NewRecorder()

	h.ChatHandler(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestChatHandlerRejectsBadRequests(t *testing.T) {
	h := newChatHandlers(t, &testutil.MockProvider{}, &testutil.MockDatabase{})

	tests := []struct {
		name string
		body string
	}{
		{"malformed json", `{"messages"`},
		{"empty messages", `{"messages": []}`},
		{"invalid role", `{"messages": [{"role": "wizard", "content": "hi"}]}`},
		{"tool message without call id", `{"messages": [{"role": "tool", "content": "{}"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := authedRequest(http.MethodPost, "/api/chat", tt.body)
			rec := httptest.NewRecorder()

			h.ChatHandler(rec, req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", rec.Code)
			}
		})
	}
}

func TestChatHandlerRejectsForeignConversation(t *testing.T) {
	database := &testutil.MockDatabase{
		GetConversationFunc: func(id, userID string) (*db.Conversation, error) {
			return nil, db.ErrNotFound
		},
	}
	h := newChatHandlers(t, &testutil.MockProvider{}, database)

	body := `{"conversation_id": "someone-elses", "messages": [{"role": "user", "content": "hi"}]}`
	req := authedRequest(http.MethodPost, "/api/chat", body)
	rec := httptest.NewRecorder()

	h.ChatHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestChatHandlerStreamErrorDoesNotSave(t *testing.T) {
	provider := &testutil.MockProvider{
		ChatStreamFunc: func(ctx context.Context, messages []llm.Message, defs []llm.ToolDefinition) (<-chan llm.StreamChunk, error) {
			return testutil.StreamOf(
				llm.StreamChunk{Content: "partial"},
				llm.StreamChunk{Err: context.DeadlineExceeded},
			), nil
		},
	}
	// CreateConversationFunc unset: a save attempt panics the test.
	h := newChatHandlers(t, provider, &testutil.MockDatabase{})

	req := authedRequest(http.MethodPost, "/api/chat", `{"messages": [{"role": "user", "content": "hi"}]}`)
	rec := httptest.NewRecorder()

	h.ChatHandler(rec, req)

	body := rec.Body.String()
	if !strings.Contains(body, `"error"`) {
		t.Errorf("error frame missing:\n%s", body)
	}
	if !strings.HasSuffix(body, "data: [DONE]\n\n") {
		t.Errorf("stream not terminated after error:\n%s", body)
	}
}
