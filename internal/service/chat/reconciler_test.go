package chat

import (
	"errors"
	"testing"

	"life-agent/internal/service/llm"
)

type mockStore struct {
	createFunc func(userID, title string, messages []llm.Message) (string, error)
	updateFunc func(id, userID string, messages []llm.Message) error
	creates    int
	updates    int
}

func (m *mockStore) Create(userID, title string, messages []llm.Message) (string, error) {
	m.creates++
	if m.createFunc != nil {
		return m.createFunc(userID, title, messages)
	}
	return "conv-1", nil
}

func (m *mockStore) Update(id, userID string, messages []llm.Message) error {
	m.updates++
	if m.updateFunc != nil {
		return m.updateFunc(id, userID, messages)
	}
	return nil
}

func turnMessages(n int) []llm.Message {
	messages := make([]llm.Message, n)
	for i := range messages {
		messages[i] = llm.Message{Role: llm.RoleUser, Content: "message"}
	}
	return messages
}

func TestFinishTurnCreatesNewConversation(t *testing.T) {
	store := &mockStore{
		createFunc: func(userID, title string, messages []llm.Message) (string, error) {
			if userID != "user-1" {
				t.Errorf("userID = %q", userID)
			}
			return "conv-9", nil
		},
	}
	r := NewReconciler(store, "", 1)

	r.StartTurn()
	outcome := r.FinishTurn("user-1", turnMessages(2))

	if outcome != SaveCreated {
		t.Fatalf("outcome = %v, want SaveCreated", outcome)
	}
	if r.ConversationID() != "conv-9" {
		t.Errorf("ConversationID() = %q, want adopted id", r.ConversationID())
	}
	if store.creates != 1 || store.updates != 0 {
		t.Errorf("creates = %d, updates = %d", store.creates, store.updates)
	}
}

func TestFinishTurnUpdatesWhenHistoryGrew(t *testing.T) {
	store := &mockStore{
		updateFunc: func(id, userID string, messages []llm.Message) error {
			if id != "conv-1" {
				t.Errorf("id = %q", id)
			}
			return nil
		},
	}
	r := NewReconciler(store, "conv-1", 2)

	r.StartTurn()
	outcome := r.FinishTurn("user-1", turnMessages(4))

	if outcome != SaveUpdated {
		t.Fatalf("outcome = %v, want SaveUpdated", outcome)
	}
	if store.updates != 1 || store.creates != 0 {
		t.Errorf("creates = %d, updates = %d", store.creates, store.updates)
	}
}

func TestFinishTurnSkipsSaveWithoutGrowth(t *testing.T) {
	store := &mockStore{}
	r := NewReconciler(store, "conv-1", 3)

	r.StartTurn()
	outcome := r.FinishTurn("user-1", turnMessages(3))

	if outcome != SaveNone {
		t.Fatalf("outcome = %v, want SaveNone", outcome)
	}
	if store.creates != 0 || store.updates != 0 {
		t.Errorf("unexpected persistence: creates = %d, updates = %d", store.creates, store.updates)
	}
}

func TestFinishTurnIsEdgeTriggered(t *testing.T) {
	store := &mockStore{}
	r := NewReconciler(store, "", 1)

	// Finishing without a started turn is a no-op.
	if outcome := r.FinishTurn("user-1", turnMessages(2)); outcome != SaveNone {
		t.Fatalf("outcome before StartTurn = %v, want SaveNone", outcome)
	}

	r.StartTurn()
	if outcome := r.FinishTurn("user-1", turnMessages(2)); outcome != SaveCreated {
		t.Fatalf("first finish outcome = %v, want SaveCreated", outcome)
	}
	// A duplicate finish signal must not save again.
	if outcome := r.FinishTurn("user-1", turnMessages(2)); outcome != SaveNone {
		t.Fatalf("second finish outcome = %v, want SaveNone", outcome)
	}

	if store.creates != 1 || store.updates != 0 {
		t.Errorf("creates = %d, updates = %d, want exactly one create", store.creates, store.updates)
	}
}

func TestFinishTurnSkipsAbortedTurn(t *testing.T) {
	// A client disconnect mid-generation ends the turn without a final
	// history. A fresh conversation must not be created from it.
	store := &mockStore{}
	r := NewReconciler(store, "", 1)

	r.StartTurn()
	if outcome := r.FinishTurn("user-1", nil); outcome != SaveNone {
		t.Fatalf("outcome = %v, want SaveNone for empty history", outcome)
	}
	if store.creates != 0 || store.updates != 0 {
		t.Errorf("unexpected persistence: creates = %d, updates = %d", store.creates, store.updates)
	}
	if r.ConversationID() != "" {
		t.Errorf("ConversationID() = %q, want empty", r.ConversationID())
	}
}

func TestFinishTurnSwallowsSaveFailure(t *testing.T) {
	store := &mockStore{
		createFunc: func(userID, title string, messages []llm.Message) (string, error) {
			return "", errors.New("db down")
		},
	}
	r := NewReconciler(store, "", 1)

	r.StartTurn()
	outcome := r.FinishTurn("user-1", turnMessages(2))

	if outcome != SaveNone {
		t.Fatalf("outcome = %v, want SaveNone on failure", outcome)
	}
	if r.ConversationID() != "" {
		t.Errorf("failed create must not adopt an id, got %q", r.ConversationID())
	}
}

func TestDeriveTitleFromReconciledHistory(t *testing.T) {
	messages := []llm.Message{
		{Role: llm.RoleAssistant, Content: "hello"},
		{Role: llm.RoleUser, Content: "log my workout from today"},
	}

	store := &mockStore{
		createFunc: func(userID, title string, msgs []llm.Message) (string, error) {
			if title != "log my workout from today" {
				t.Errorf("title = %q", title)
			}
			return "conv-1", nil
		},
	}
	r := NewReconciler(store, "", 0)
	r.StartTurn()
	r.FinishTurn("user-1", messages)
}
