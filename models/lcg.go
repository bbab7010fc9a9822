// Package models adapts provider SDKs to llmfn.Model.
package models

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/tmc/langchaingo/llms"

	"github.com/skosovsky/llmfn"
)

// ErrNoChoices is returned when the provider response has no choices.
var ErrNoChoices = errors.New("model returned no choices")

// LCG wraps an llms.Model and implements llmfn.Model.
//
// Message mapping:
//   - SystemMessage → system message; UserMessage → human message.
//   - ToolCallMessage → AI message replaying the original []llms.ToolCall (kept in Native),
//     or rebuilt from Calls when Native is absent.
//   - ToolOutputMessage → one tool message per result, each holding an llms.ToolCallResponse.
//
// Example usage:
//
//	llm, _ := openai.New(openai.WithToken(apiKey), openai.WithModel("gpt-4o-mini"))
//	model := models.NewLCG(llm)
//	fn, _ := llmfn.New(tpl, model, llmfn.WithTools(add))
type LCG struct {
	model   llms.Model
	options []llms.CallOption
	logger  *slog.Logger
}

// NewLCG creates a new LCG wrapping the given llms.Model.
func NewLCG(model llms.Model) *LCG {
	return &LCG{model: model, logger: slog.Default()}
}

// WithCallOptions adds options passed on every call (temperature, max tokens, ...).
// Returns the model for chaining.
func (m *LCG) WithCallOptions(opts ...llms.CallOption) *LCG {
	m.options = append(m.options, opts...)
	return m
}

// WithLogger sets the logger used for per-call debug logs.
// Returns the model for chaining.
func (m *LCG) WithLogger(logger *slog.Logger) *LCG {
	if logger != nil {
		m.logger = logger
	}
	return m
}

// Unwrap returns the underlying llms.Model.
func (m *LCG) Unwrap() llms.Model {
	return m.model
}

// Generate implements llmfn.Model.
func (m *LCG) Generate(
	ctx context.Context,
	messages []llmfn.Message,
	tools []llmfn.ToolDescriptor,
) (llmfn.ModelOutput, error) {
	content, err := ToMessageContent(messages)
	if err != nil {
		return nil, err
	}
	opts := append([]llms.CallOption(nil), m.options...)
	if len(tools) > 0 {
		opts = append(opts, llms.WithTools(ToLLMTools(tools)))
	}

	startTime := time.Now()
	resp, err := m.model.GenerateContent(ctx, content, opts...)
	duration := time.Since(startTime)
	if err != nil {
		m.logger.DebugContext(ctx, "model call failed", "duration", duration, "error", err)
		return nil, err
	}
	if resp == nil || len(resp.Choices) == 0 {
		return nil, ErrNoChoices
	}
	choice := resp.Choices[0]
	m.logger.DebugContext(ctx, "model call", "duration", duration,
		"tool_calls", len(choice.ToolCalls), "stop_reason", choice.StopReason)

	if len(choice.ToolCalls) == 0 {
		return &llmfn.TextOutput{Content: choice.Content}, nil
	}
	calls := make([]llmfn.ToolCall, 0, len(choice.ToolCalls))
	native := make([]llms.ToolCall, 0, len(choice.ToolCalls))
	for _, tc := range choice.ToolCalls {
		if tc.FunctionCall == nil {
			continue
		}
		params, err := parseArguments(tc.FunctionCall.Arguments)
		if err != nil {
			return nil, fmt.Errorf("tool call %s (%s): %w", tc.ID, tc.FunctionCall.Name, err)
		}
		calls = append(calls, llmfn.ToolCall{ID: tc.ID, Name: tc.FunctionCall.Name, Params: params})
		native = append(native, tc)
	}
	// Only non-function tool calls: treat the turn as a plain answer.
	if len(calls) == 0 {
		return &llmfn.TextOutput{Content: choice.Content}, nil
	}
	return &llmfn.ToolCallsOutput{Calls: calls, Native: native}, nil
}

// parseArguments decodes a function-call arguments string. Empty means no arguments.
func parseArguments(args string) (map[string]any, error) {
	if args == "" {
		return map[string]any{}, nil
	}
	var params map[string]any
	if err := json.Unmarshal([]byte(args), &params); err != nil {
		return nil, fmt.Errorf("invalid arguments JSON: %w", err)
	}
	return params, nil
}

// ToMessageContent converts an llmfn conversation to LangChainGo messages.
func ToMessageContent(messages []llmfn.Message) ([]llms.MessageContent, error) {
	out := make([]llms.MessageContent, 0, len(messages))
	for _, msg := range messages {
		switch m := msg.(type) {
		case *llmfn.SystemMessage:
			out = append(out, llms.TextParts(llms.ChatMessageTypeSystem, m.Content))
		case *llmfn.UserMessage:
			out = append(out, llms.TextParts(llms.ChatMessageTypeHuman, m.Content))
		case *llmfn.ToolCallMessage:
			calls, ok := m.Native.([]llms.ToolCall)
			if !ok {
				calls = toLLMToolCalls(m.Calls)
			}
			parts := make([]llms.ContentPart, len(calls))
			for i, c := range calls {
				parts[i] = c
			}
			out = append(out, llms.MessageContent{Role: llms.ChatMessageTypeAI, Parts: parts})
		case *llmfn.ToolOutputMessage:
			// One message per response: providers such as OpenAI accept a single part per tool message.
			for _, r := range m.Results {
				text, err := FormatOutput(r.Output)
				if err != nil {
					return nil, fmt.Errorf("tool %s output: %w", r.ToolName, err)
				}
				out = append(out, llms.MessageContent{
					Role:  llms.ChatMessageTypeTool,
					Parts: []llms.ContentPart{llms.ToolCallResponse{ToolCallID: r.CallID, Name: r.ToolName, Content: text}},
				})
			}
		default:
			return nil, fmt.Errorf("unsupported message type %T", msg)
		}
	}
	return out, nil
}

func toLLMToolCalls(calls []llmfn.ToolCall) []llms.ToolCall {
	out := make([]llms.ToolCall, len(calls))
	for i, c := range calls {
		args, err := json.Marshal(c.Params)
		if err != nil || c.Params == nil {
			args = []byte("{}")
		}
		out[i] = llms.ToolCall{
			ID:   c.ID,
			Type: "function",
			FunctionCall: &llms.FunctionCall{
				Name:      c.Name,
				Arguments: string(args),
			},
		}
	}
	return out
}

// ToLLMTools converts tool descriptors to LangChainGo function tools.
func ToLLMTools(tools []llmfn.ToolDescriptor) []llms.Tool {
	out := make([]llms.Tool, len(tools))
	for i, t := range tools {
		out[i] = llms.Tool{
			Type: "function",
			Function: &llms.FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}
	return out
}

// FormatOutput renders a tool output for the model: strings and fmt.Stringers verbatim,
// nil as "null", everything else as JSON.
func FormatOutput(v any) (string, error) {
	switch o := v.(type) {
	case string:
		return o, nil
	case nil:
		return "null", nil
	case fmt.Stringer:
		return o.String(), nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

var _ llmfn.Model = (*LCG)(nil)
