package chat

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"life-agent/internal/logger"
	"life-agent/internal/service/llm"
	"life-agent/internal/service/tools"
)

// TurnRequest contains all the parameters needed to run one chat turn
type TurnRequest struct {
	// Messages is the ordered conversation history including the newly
	// submitted user message.
	Messages []llm.Message
	// UserID is the resolved identity of the caller, passed explicitly
	// to every tool execution.
	UserID string
}

// TurnChunk is one unit of a streamed turn. Content chunks carry
// incremental assistant text; the final chunk carries the full
// reconciled message list; Err reports a generation failure.
type TurnChunk struct {
	Content string
	Final   []llm.Message
	Err     error
}

// ChatService orchestrates tool-augmented chat turns
type ChatService struct {
	provider      llm.Provider
	registry      *tools.Registry
	systemPrompt  string
	maxToolRounds int
}

// NewChatService creates a new ChatService
func NewChatService(provider llm.Provider, registry *tools.Registry, systemPrompt string, maxToolRounds int) *ChatService {
	if maxToolRounds <= 0 {
		maxToolRounds = 5
	}
	return &ChatService{
		provider:      provider,
		registry:      registry,
		systemPrompt:  systemPrompt,
		maxToolRounds: maxToolRounds,
	}
}

// PrimeMessages returns the message list with exactly one leading
// system message carrying the canonical operating instructions. Any
// system messages present in the input, stale or duplicated, are
// dropped.
func (s *ChatService) PrimeMessages(messages []llm.Message) []llm.Message {
	primed := make([]llm.Message, 0, len(messages)+1)
	primed = append(primed, llm.Message{Role: llm.RoleSystem, Content: s.systemPrompt})
	for _, msg := range messages {
		if msg.Role == llm.RoleSystem {
			continue
		}
		primed = append(primed, msg)
	}
	return primed
}

// StreamTurn runs one chat turn: prime the history, generate with the
// tool declarations, execute any requested tool calls sequentially, and
// resume generation with their results until the model stops. Assistant
// text is streamed on the returned channel as it is produced.
//
// A failure to reach the model on the first round is returned
// synchronously so the caller can still answer with a plain HTTP
// error; later failures surface as an Err chunk on the stream.
func (s *ChatService) StreamTurn(ctx context.Context, req TurnRequest) (<-chan TurnChunk, error) {
	if len(req.Messages) == 0 {
		return nil, fmt.Errorf("messages cannot be empty")
	}

	messages := s.PrimeMessages(req.Messages)

	logger.Log.WithFields(logrus.Fields{
		"user_id":       req.UserID,
		"message_count": len(messages),
	}).Debug("Starting chat turn")

	// First round opens before the goroutine so connection errors
	// short-circuit without any partial streaming.
	chunks, err := s.provider.ChatStream(ctx, messages, s.registry.Definitions())
	if err != nil {
		return nil, fmt.Errorf("LLM streaming error: %w", err)
	}

	out := make(chan TurnChunk)

	go func() {
		defer close(out)

		for round := 0; ; round++ {
			assistant, failed := s.relayRound(ctx, chunks, out)
			if failed {
				return
			}

			messages = append(messages, assistant)

			if len(assistant.ToolCalls) == 0 {
				break
			}
			if round >= s.maxToolRounds {
				logger.Log.WithField("rounds", round).Warn("Tool round limit reached, stopping turn")
				// Tool calls that will never be answered must not
				// survive into the history: resubmitting an assistant
				// message with unmatched tool calls is rejected by the
				// completions API.
				messages[len(messages)-1].ToolCalls = nil
				break
			}

			// Tool execution is sequential in the model's emission
			// order; each result joins the in-flight context.
			for _, call := range assistant.ToolCalls {
				result := s.registry.Dispatch(ctx, req.UserID, call)
				messages = append(messages, result)
			}

			var err error
			chunks, err = s.provider.ChatStream(ctx, messages, s.registry.Definitions())
			if err != nil {
				logger.Log.WithError(err).Error("Error resuming generation after tool calls")
				out <- TurnChunk{Err: fmt.Errorf("LLM streaming error: %w", err)}
				return
			}
		}

		// The injected system message is a per-turn concern; the
		// persisted history starts at the first client message.
		out <- TurnChunk{Final: messages[1:]}
	}()

	return out, nil
}

// relayRound drains one model response, forwarding content chunks and
// returning the assembled assistant message. failed is true when the
// stream reported an error (already forwarded to the caller).
func (s *ChatService) relayRound(ctx context.Context, chunks <-chan llm.StreamChunk, out chan<- TurnChunk) (llm.Message, bool) {
	var content strings.Builder
	var toolCalls []llm.ToolCall

	for chunk := range chunks {
		if chunk.Err != nil {
			logger.Log.WithError(chunk.Err).Error("Error during generation")
			out <- TurnChunk{Err: chunk.Err}
			return llm.Message{}, true
		}
		if chunk.Content != "" {
			content.WriteString(chunk.Content)
			select {
			case out <- TurnChunk{Content: chunk.Content}:
			case <-ctx.Done():
				return llm.Message{}, true
			}
		}
		if chunk.FinishReason == llm.FinishToolCalls {
			toolCalls = chunk.ToolCalls
		}
	}

	return llm.Message{
		Role:      llm.RoleAssistant,
		Content:   content.String(),
		ToolCalls: toolCalls,
	}, false
}
