package llm

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"life-agent/internal/config"
	"life-agent/internal/logger"
)

// OpenRouterProvider implements Provider against the OpenRouter chat
// completions API (OpenAI-compatible, including tool calling).
type OpenRouterProvider struct {
	config *config.LLMConfig
	client *http.Client
}

// NewOpenRouterProvider creates a new OpenRouter provider with config
func NewOpenRouterProvider(llmConfig *config.LLMConfig) *OpenRouterProvider {
	return &OpenRouterProvider{
		config: llmConfig,
		client: &http.Client{},
	}
}

type chatRequest struct {
	Model    string           `json:"model"`
	Messages []Message        `json:"messages"`
	Stream   bool             `json:"stream"`
	Tools    []ToolDefinition `json:"tools,omitempty"`
}

// streamResponse mirrors one SSE data event. Streaming responses carry
// incremental state in the delta field; tool-call arguments arrive as
// fragments keyed by index and must be accumulated.
type streamResponse struct {
	ID      string `json:"id"`
	Choices []struct {
		Delta struct {
			Content   string          `json:"content"`
			ToolCalls []toolCallDelta `json:"tool_calls"`
		} `json:"delta"`
		FinishReason string `json:"finish_reason"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type toolCallDelta struct {
	Index    int    `json:"index"`
	ID       string `json:"id"`
	Type     string `json:"type"`
	Function struct {
		Name      string `json:"name"`
		Arguments string `json:"arguments"`
	} `json:"function"`
}

// ChatStream sends a chat request with the declared tools and streams
// the response. Content deltas are emitted as they arrive; tool-call
// fragments are accumulated and delivered with the terminal chunk.
func (p *OpenRouterProvider) ChatStream(ctx context.Context, messages []Message, tools []ToolDefinition) (<-chan StreamChunk, error) {
	apiKey := p.config.APIKey
	if apiKey == "" {
		return nil, fmt.Errorf("OPENROUTER_API_KEY not configured")
	}

	logger.Log.WithFields(logrus.Fields{
		"model":         p.config.Model,
		"message_count": len(messages),
		"tool_count":    len(tools),
	}).Info("Calling OpenRouter API (streaming)")

	reqBody := chatRequest{
		Model:    p.config.Model,
		Messages: messages,
		Stream:   true,
		Tools:    tools,
	}

	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("error marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.config.BaseURL+"/chat/completions", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("error creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+apiKey)
	req.Header.Set("HTTP-Referer", p.config.Referer)
	req.Header.Set("X-Title", "Life Agent")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("error sending request: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("API returned status %d: %s", resp.StatusCode, string(body))
	}

	chunks := make(chan StreamChunk)

	// emit delivers a chunk unless the caller has gone away.
	emit := func(chunk StreamChunk) bool {
		select {
		case chunks <- chunk:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer resp.Body.Close()
		defer close(chunks)

		calls := make(map[int]*ToolCall)
		finishReason := ""

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()

			// Skip empty lines, comments, and [DONE] markers
			if line == "" || strings.HasPrefix(line, ":") || line == "data: [DONE]" {
				continue
			}

			// Parse SSE event format: "data: {json}"
			if !strings.HasPrefix(line, "data: ") {
				continue
			}
			jsonStr := strings.TrimPrefix(line, "data: ")

			var streamResp streamResponse
			if err := json.Unmarshal([]byte(jsonStr), &streamResp); err != nil {
				logger.Log.WithError(err).Warn("Error parsing stream chunk")
				continue
			}

			if streamResp.Error != nil {
				emit(StreamChunk{Err: fmt.Errorf("model error: %s", streamResp.Error.Message)})
				return
			}

			if len(streamResp.Choices) == 0 {
				continue
			}
			choice := streamResp.Choices[0]

			if choice.FinishReason != "" {
				finishReason = choice.FinishReason
			}

			// Accumulate tool-call fragments by index
			for _, delta := range choice.Delta.ToolCalls {
				call, ok := calls[delta.Index]
				if !ok {
					call = &ToolCall{}
					calls[delta.Index] = call
				}
				if delta.ID != "" {
					call.ID = delta.ID
				}
				if delta.Type != "" {
					call.Type = delta.Type
				}
				if delta.Function.Name != "" {
					call.Function.Name += delta.Function.Name
				}
				call.Function.Arguments += delta.Function.Arguments
			}

			if choice.Delta.Content != "" {
				if !emit(StreamChunk{Content: choice.Delta.Content}) {
					return
				}
			}
		}

		if err := scanner.Err(); err != nil {
			logger.Log.WithError(err).Error("Scanner error during streaming")
			emit(StreamChunk{Err: fmt.Errorf("error reading stream: %w", err)})
			return
		}

		if finishReason == "" {
			finishReason = FinishStop
		}

		// Terminal chunk with finish reason and assembled tool calls
		indexes := make([]int, 0, len(calls))
		for i := range calls {
			indexes = append(indexes, i)
		}
		sort.Ints(indexes)

		assembled := make([]ToolCall, 0, len(calls))
		for _, i := range indexes {
			assembled = append(assembled, *calls[i])
		}

		logger.Log.WithFields(logrus.Fields{
			"finish_reason": finishReason,
			"tool_calls":    len(assembled),
		}).Debug("Stream finished")

		emit(StreamChunk{FinishReason: finishReason, ToolCalls: assembled})
	}()

	return chunks, nil
}
