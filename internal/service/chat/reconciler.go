package chat

import (
	"github.com/sirupsen/logrus"

	"life-agent/internal/logger"
	"life-agent/internal/service/conversation"
	"life-agent/internal/service/llm"
)

// ConversationStore is the slice of persistence the reconciler needs.
type ConversationStore interface {
	Create(userID, title string, messages []llm.Message) (string, error)
	Update(id, userID string, messages []llm.Message) error
}

// SaveOutcome reports what a reconciliation pass did.
type SaveOutcome int

const (
	SaveNone SaveOutcome = iota
	SaveCreated
	SaveUpdated
)

type reconcilerState int

const (
	stateIdle reconcilerState = iota
	stateGenerating
)

// Reconciler persists a conversation exactly once per completed turn.
// Saves are edge-triggered on the generating-to-idle transition, so a
// turn that produced no new messages writes nothing, and repeated
// finish signals are no-ops.
type Reconciler struct {
	store          ConversationStore
	conversationID string
	baseline       int
	state          reconcilerState
}

// NewReconciler tracks one conversation through one turn. An empty
// conversationID means the conversation has never been saved; baseline
// is the message count already persisted (or submitted) before the
// turn.
func NewReconciler(store ConversationStore, conversationID string, baseline int) *Reconciler {
	return &Reconciler{
		store:          store,
		conversationID: conversationID,
		baseline:       baseline,
	}
}

// StartTurn marks generation as in flight.
func (r *Reconciler) StartTurn() {
	r.state = stateGenerating
}

// ConversationID returns the tracked id, which is set after a create.
func (r *Reconciler) ConversationID() string {
	return r.conversationID
}

// FinishTurn runs the single reconciliation pass for the turn. Save
// failures are logged and swallowed: the turn's streamed output has
// already reached the client and must not be retracted.
func (r *Reconciler) FinishTurn(userID string, messages []llm.Message) SaveOutcome {
	if r.state != stateGenerating {
		return SaveNone
	}
	r.state = stateIdle

	// An aborted turn yields no final history; there is nothing worth
	// persisting.
	if len(messages) == 0 {
		return SaveNone
	}

	if r.conversationID == "" {
		title := conversation.DeriveTitle(messages)
		id, err := r.store.Create(userID, title, messages)
		if err != nil {
			logger.Log.WithError(err).WithField("user_id", userID).Error("Error saving new conversation")
			return SaveNone
		}
		r.conversationID = id
		logger.Log.WithFields(logrus.Fields{
			"conversation_id": id,
			"user_id":         userID,
		}).Debug("Conversation created")
		return SaveCreated
	}

	if len(messages) <= r.baseline {
		return SaveNone
	}

	if err := r.store.Update(r.conversationID, userID, messages); err != nil {
		logger.Log.WithError(err).WithFields(logrus.Fields{
			"conversation_id": r.conversationID,
			"user_id":         userID,
		}).Error("Error updating conversation")
		return SaveNone
	}

	logger.Log.WithField("conversation_id", r.conversationID).Debug("Conversation updated")
	return SaveUpdated
}
