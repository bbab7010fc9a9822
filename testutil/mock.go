// Package testutil provides test helpers for llmfn (MockTool, ScriptedModel).
package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/skosovsky/llmfn"
)

// MockTool is a configurable Tool implementation for tests.
type MockTool struct {
	NameVal   string
	DescVal   string
	ParamsVal []llmfn.Param
	CallFn    func(ctx context.Context, args map[string]any) (any, error)
}

// Name returns the tool name.
func (m *MockTool) Name() string {
	if m.NameVal != "" {
		return m.NameVal
	}
	return "mock"
}

// Description returns the tool description.
func (m *MockTool) Description() string {
	return m.DescVal
}

// Params returns the declared parameters.
func (m *MockTool) Params() []llmfn.Param {
	return m.ParamsVal
}

// Parameters returns a minimal object schema listing the declared parameters.
func (m *MockTool) Parameters() map[string]any {
	props := make(map[string]any, len(m.ParamsVal))
	for _, p := range m.ParamsVal {
		props[p.Name] = map[string]any{"type": string(p.Type)}
	}
	return map[string]any{"type": "object", "properties": props}
}

// Call runs CallFn if set, otherwise returns nil.
func (m *MockTool) Call(ctx context.Context, args map[string]any) (any, error) {
	if m.CallFn != nil {
		return m.CallFn(ctx, args)
	}
	return nil, nil
}

// Ensure MockTool implements Tool.
var _ llmfn.Tool = (*MockTool)(nil)

// ScriptedModel is an llmfn.Model that replays a fixed sequence of outputs, one per turn,
// and records what it was sent. Use Text and Calls to build outputs.
type ScriptedModel struct {
	mu       sync.Mutex
	outputs  []llmfn.ModelOutput
	requests [][]llmfn.Message
	tools    [][]llmfn.ToolDescriptor
	// Err, when set, is returned by every Generate call.
	Err error
}

// NewScriptedModel returns a model that answers with outputs in order.
func NewScriptedModel(outputs ...llmfn.ModelOutput) *ScriptedModel {
	return &ScriptedModel{outputs: outputs}
}

// Generate returns the next scripted output. It fails once the script is exhausted.
func (m *ScriptedModel) Generate(
	_ context.Context,
	messages []llmfn.Message,
	tools []llmfn.ToolDescriptor,
) (llmfn.ModelOutput, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests = append(m.requests, append([]llmfn.Message(nil), messages...))
	m.tools = append(m.tools, tools)
	if m.Err != nil {
		return nil, m.Err
	}
	turn := len(m.requests) - 1
	if turn >= len(m.outputs) {
		return nil, fmt.Errorf("scripted model: no output for turn %d", turn+1)
	}
	return m.outputs[turn], nil
}

// Turns returns the number of Generate calls so far.
func (m *ScriptedModel) Turns() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.requests)
}

// Request returns the messages sent on the given turn (0-based).
func (m *ScriptedModel) Request(turn int) []llmfn.Message {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[turn]
}

// Tools returns the tool descriptors sent on the given turn (0-based).
func (m *ScriptedModel) Tools(turn int) []llmfn.ToolDescriptor {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.tools[turn]
}

// Text builds a text output.
func Text(content string) llmfn.ModelOutput {
	return &llmfn.TextOutput{Content: content}
}

// Calls builds a tool-calls output.
func Calls(calls ...llmfn.ToolCall) llmfn.ModelOutput {
	return &llmfn.ToolCallsOutput{Calls: calls}
}

// Call builds a ToolCall.
func Call(id, name string, params map[string]any) llmfn.ToolCall {
	return llmfn.ToolCall{ID: id, Name: name, Params: params}
}

var _ llmfn.Model = (*ScriptedModel)(nil)
