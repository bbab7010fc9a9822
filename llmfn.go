package llmfn

import (
	"context"
	"time"
)

// Tool is the contract for an LLM-callable instrument.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.) and holds no conversation state.
type Tool interface {
	Name() string
	Description() string
	// Params returns the declared parameters in positional order.
	Params() []Param
	// Parameters returns a valid JSON Schema as map (compatible with LLM tool definitions).
	Parameters() map[string]any
	// Call runs the tool with arguments already coerced to their declared types
	// (int64, float64, string, bool; absent optional parameters hold their default or nil).
	Call(ctx context.Context, args map[string]any) (any, error)
}

// ArgsValidator is implemented by tools that check coerced arguments beyond type conversion
// (schema constraints such as enum). Coerce calls it after converting every argument.
type ArgsValidator interface {
	ValidateArgs(args map[string]any) error
}

// ToolMetadata is implemented by tools created with NewTool and NewDynamicTool.
// Registry uses Timeout() to override its default execution timeout when set.
type ToolMetadata interface {
	Timeout() time.Duration
}

// ToolCall is a single execution request (as produced by the model).
// Params values are raw: strings from a text wire format or native JSON scalars.
type ToolCall struct {
	ID     string
	Name   string
	Params map[string]any
}

// ToolResult is the output of one ToolCall. CallID and ToolName pair it with its request.
type ToolResult struct {
	CallID   string
	ToolName string
	Output   any
}

// ToolDescriptor is what the model sees of a tool.
type ToolDescriptor struct {
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

// Describe returns the model-facing descriptor of t.
func Describe(t Tool) ToolDescriptor {
	return ToolDescriptor{
		Name:        t.Name(),
		Description: t.Description(),
		Parameters:  t.Parameters(),
	}
}
