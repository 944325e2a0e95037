package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"life-agent/internal/repository/db"
	"life-agent/internal/service/conversation"
	"life-agent/internal/service/llm"
	"life-agent/internal/testutil"
)

func newConversationHandlers(database db.Database) *ConversationHandlers {
	return NewConversationHandlers(conversation.NewConversationService(database))
}

func withPathID(req *http.Request, id string) *http.Request {
	req.SetPathValue("id", id)
	return req
}

func TestListHandlerOmitsMessages(t *testing.T) {
	database := &testutil.MockDatabase{
		GetConversationsByUserFunc: func(userID string) ([]db.Conversation, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			return []db.Conversation{
				{ID: "conv-1", Title: "first", UpdatedAt: time.Now()},
				{ID: "conv-2", Title: "second", UpdatedAt: time.Now()},
			}, nil
		},
	}
	h := newConversationHandlers(database)

	req := authedRequest(http.MethodGet, "/api/conversations", "")
	rec := httptest.NewRecorder()

	h.ListHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var summaries []ConversationSummary
	if err := json.Unmarshal(rec.Body.Bytes(), &summaries); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(summaries) != 2 || summaries[0].ID != "conv-1" {
		t.Errorf("summaries = %+v", summaries)
	}
}

func TestGetHandlerReturnsFullConversation(t *testing.T) {
	database := &testutil.MockDatabase{
		GetConversationFunc: func(id, userID string) (*db.Conversation, error) {
			if id != "conv-1" || userID != "user-1" {
				return nil, db.ErrNotFound
			}
			return &db.Conversation{
				ID:    "conv-1",
				Title: "first",
				Messages: []llm.Message{
					{Role: llm.RoleUser, Content: "hi"},
					{Role: llm.RoleAssistant, Content: "hello"},
				},
			}, nil
		},
	}
	h := newConversationHandlers(database)

	req := withPathID(authedRequest(http.MethodGet, "/api/conversations/conv-1", ""), "conv-1")
	rec := httptest.NewRecorder()

	h.GetHandler(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var detail ConversationDetail
	if err := json.Unmarshal(rec.Body.Bytes(), &detail); err != nil {
		t.Fatalf("invalid body: %v", err)
	}
	if len(detail.Messages) != 2 {
		t.Errorf("detail = %+v", detail)
	}
}

func TestGetHandlerNotFoundForForeignConversation(t *testing.T) {
	database := &testutil.MockDatabase{
		GetConversationFunc: func(id, userID string) (*db.Conversation, error) {
			return nil, db.ErrNotFound
		},
	}
	h := newConversationHandlers(database)

	req := withPathID(authedRequest(http.MethodGet, "/api/conversations/conv-9", ""), "conv-9")
	rec := httptest.NewRecorder()

	h.GetHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}

func TestCreateHandlerDerivesTitle(t *testing.T) {
	database := &testutil.MockDatabase{
		CreateConversationFunc: func(userID, title string, messages []llm.Message) (*db.Conversation, error) {
			if title != "hello there" {
				t.Errorf("title = %q, want derived from first user message", title)
			}
			return &db.Conversation{ID: "conv-1", UserID: userID, Title: title}, nil
		},
	}
	h := newConversationHandlers(database)

	body := `{"messages": [{"role": "user", "content": "hello there"}]}`
	req := authedRequest(http.MethodPost, "/api/conversations", body)
	rec := httptest.NewRecorder()

	h.CreateHandler(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
}

func TestUpdateHandlerValidatesMessages(t *testing.T) {
	// UpdateConversationFunc unset: persistence of an invalid payload
	// panics the test.
	h := newConversationHandlers(&testutil.MockDatabase{})

	body := `{"messages": [{"role": "wizard", "content": "hi"}]}`
	req := withPathID(authedRequest(http.MethodPut, "/api/conversations/conv-1", body), "conv-1")
	rec := httptest.NewRecorder()

	h.UpdateHandler(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

func TestDeleteHandler(t *testing.T) {
	deleted := ""
	database := &testutil.MockDatabase{
		DeleteConversationFunc: func(id, userID string) error {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			deleted = id
			return nil
		},
	}
	h := newConversationHandlers(database)

	req := withPathID(authedRequest(http.MethodDelete, "/api/conversations/conv-1", ""), "conv-1")
	rec := httptest.NewRecorder()

	h.DeleteHandler(rec, req)

	if rec.Code != http.StatusNoContent {
		t.Fatalf("status = %d, want 204", rec.Code)
	}
	if deleted != "conv-1" {
		t.Errorf("deleted id = %q", deleted)
	}
}

func TestDeleteHandlerNotFound(t *testing.T) {
	database := &testutil.MockDatabase{
		DeleteConversationFunc: func(id, userID string) error {
			return db.ErrNotFound
		},
	}
	h := newConversationHandlers(database)

	req := withPathID(authedRequest(http.MethodDelete, "/api/conversations/conv-9", ""), "conv-9")
	rec := httptest.NewRecorder()

	h.DeleteHandler(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
