package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/invopop/jsonschema"
	"github.com/sirupsen/logrus"
	"github.com/xeipuuv/gojsonschema"

	"life-agent/internal/logger"
	"life-agent/internal/service/llm"
)

// Tool is a named, schema-validated, side-effecting function the model
// may call during a chat turn.
type Tool struct {
	Name        string
	Description string
	Parameters  *jsonschema.Schema
	// Execute runs the tool for the authenticated user. The user id
	// always comes from the request context, never from model-supplied
	// parameters. Errors are surfaced to the model as tool results.
	Execute func(ctx context.Context, userID string, args json.RawMessage) (any, error)
}

// Result is the structured payload returned for failed or trivially
// successful tool executions.
type Result struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Registry maps tool names to their declarations and executors.
type Registry struct {
	tools    map[string]*Tool
	order    []string
	schemas  map[string]*gojsonschema.Schema
	declared []llm.ToolDefinition
}

// NewRegistry builds a registry from the given tools, compiling each
// parameter schema once for argument validation.
func NewRegistry(tools ...*Tool) (*Registry, error) {
	r := &Registry{
		tools:   make(map[string]*Tool, len(tools)),
		schemas: make(map[string]*gojsonschema.Schema, len(tools)),
	}

	for _, tool := range tools {
		if _, exists := r.tools[tool.Name]; exists {
			return nil, fmt.Errorf("duplicate tool name: %s", tool.Name)
		}

		// Drop the $schema marker so the validator stays in its
		// default draft mode.
		tool.Parameters.Version = ""

		raw, err := json.Marshal(tool.Parameters)
		if err != nil {
			return nil, fmt.Errorf("error marshaling schema for tool %s: %w", tool.Name, err)
		}

		compiled, err := gojsonschema.NewSchema(gojsonschema.NewBytesLoader(raw))
		if err != nil {
			return nil, fmt.Errorf("error compiling schema for tool %s: %w", tool.Name, err)
		}

		r.tools[tool.Name] = tool
		r.order = append(r.order, tool.Name)
		r.schemas[tool.Name] = compiled
		r.declared = append(r.declared, llm.ToolDefinition{
			Type: "function",
			Function: llm.FunctionDefinition{
				Name:        tool.Name,
				Description: tool.Description,
				Parameters:  raw,
			},
		})
	}

	return r, nil
}

// Definitions returns the tool declarations in registration order, in
// the shape the model endpoint expects.
func (r *Registry) Definitions() []llm.ToolDefinition {
	return r.declared
}

// Dispatch looks up, validates, and executes one model-requested tool
// call, and wraps the outcome in a tool-role message. It never returns
// an error: every failure becomes a structured tool result the model
// can relay conversationally.
func (r *Registry) Dispatch(ctx context.Context, userID string, call llm.ToolCall) llm.Message {
	payload := r.execute(ctx, userID, call)

	content, err := json.Marshal(payload)
	if err != nil {
		logger.Log.WithError(err).WithField("tool", call.Function.Name).Error("Error marshaling tool result")
		content, _ = json.Marshal(Result{Success: false, Error: "internal error encoding tool result"})
	}

	return llm.Message{
		Role:       llm.RoleTool,
		Content:    string(content),
		ToolCallID: call.ID,
	}
}

func (r *Registry) execute(ctx context.Context, userID string, call llm.ToolCall) any {
	name := call.Function.Name

	tool, ok := r.tools[name]
	if !ok {
		logger.Log.WithField("tool", name).Warn("Model requested unknown tool")
		return Result{Success: false, Error: fmt.Sprintf("unknown tool: %s", name)}
	}

	// Authentication is re-checked at call time; upstream checks are
	// not trusted transitively.
	if userID == "" {
		logger.Log.WithField("tool", name).Warn("Tool call without authenticated user")
		return Result{Success: false, Error: "Authentication required."}
	}

	args := call.Function.Arguments
	if args == "" {
		args = "{}"
	}

	validation, err := r.schemas[name].Validate(gojsonschema.NewStringLoader(args))
	if err != nil {
		return Result{Success: false, Error: fmt.Sprintf("invalid arguments: %v", err)}
	}
	if !validation.Valid() {
		details := make([]string, 0, len(validation.Errors()))
		for _, desc := range validation.Errors() {
			details = append(details, desc.String())
		}
		logger.Log.WithFields(logrus.Fields{"tool": name, "errors": details}).Warn("Tool arguments failed schema validation")
		return Result{Success: false, Error: "invalid arguments: " + strings.Join(details, "; ")}
	}

	payload, err := tool.Execute(ctx, userID, json.RawMessage(args))
	if err != nil {
		logger.Log.WithError(err).WithField("tool", name).Warn("Tool execution failed")
		return Result{Success: false, Error: err.Error()}
	}

	logger.Log.WithField("tool", name).Debug("Tool executed")
	return payload
}

// generateSchema reflects a parameter struct into an inline JSON
// Schema suitable for a function declaration.
func generateSchema[T any]() *jsonschema.Schema {
	reflector := jsonschema.Reflector{
		AllowAdditionalProperties: false,
		DoNotReference:            true,
	}
	var v T
	return reflector.Reflect(v)
}
