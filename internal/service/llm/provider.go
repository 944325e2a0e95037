package llm

import (
	"context"
	"encoding/json"
)

// Message roles form a closed set; anything else is rejected at the
// validation boundary before it reaches the model or the database.
const (
	RoleSystem    = "system"
	RoleUser      = "user"
	RoleAssistant = "assistant"
	RoleTool      = "tool"
)

// Message is one entry in a conversation, in the shape the chat
// completions API expects. Tool fields are only populated for
// assistant messages that request tool calls and for the tool-role
// messages carrying their results.
type Message struct {
	Role       string     `json:"role"`
	Content    string     `json:"content"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"`
}

// ToolCall is a model-initiated request to execute a named function.
type ToolCall struct {
	ID       string           `json:"id"`
	Type     string           `json:"type"`
	Function ToolCallFunction `json:"function"`
}

// ToolCallFunction carries the function name and its arguments as the
// raw JSON text produced by the model.
type ToolCallFunction struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolDefinition declares a callable tool to the model.
type ToolDefinition struct {
	Type     string             `json:"type"`
	Function FunctionDefinition `json:"function"`
}

// FunctionDefinition describes one function: name, natural-language
// description, and a JSON Schema for its parameters.
type FunctionDefinition struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Parameters  json.RawMessage `json:"parameters"`
}

// Finish reasons reported by the chat completions API.
const (
	FinishStop      = "stop"
	FinishToolCalls = "tool_calls"
)

// StreamChunk is one unit of a streamed model response. Content chunks
// arrive first; the terminal chunk carries the finish reason and any
// accumulated tool calls. Err reports a mid-stream failure.
type StreamChunk struct {
	Content      string
	ToolCalls    []ToolCall
	FinishReason string
	Err          error
}

// Provider is the model endpoint abstraction used by the turn
// orchestrator.
type Provider interface {
	// ChatStream submits the message list and tool declarations and
	// streams the response. The returned channel is closed after the
	// terminal chunk.
	ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error)
}
