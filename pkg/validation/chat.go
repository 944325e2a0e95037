package validation

import (
	"fmt"

	"life-agent/internal/service/llm"
)

// ChatRequestValidator validates inbound message histories before they
// reach the model or the database.
type ChatRequestValidator struct{}

// NewChatRequestValidator creates a new ChatRequestValidator
func NewChatRequestValidator() *ChatRequestValidator {
	return &ChatRequestValidator{}
}

// ValidateMessages checks that a message list is non-empty, that every
// role belongs to the closed role set, and that tool messages carry the
// call id they answer.
func (v *ChatRequestValidator) ValidateMessages(messages []llm.Message) error {
	if len(messages) == 0 {
		return fmt.Errorf("messages cannot be empty")
	}

	for i, msg := range messages {
		switch msg.Role {
		case llm.RoleSystem, llm.RoleUser, llm.RoleAssistant:
		case llm.RoleTool:
			if msg.ToolCallID == "" {
				return fmt.Errorf("message %d: tool message is missing tool_call_id", i)
			}
		default:
			return fmt.Errorf("message %d: invalid role %q", i, msg.Role)
		}
	}

	return nil
}
