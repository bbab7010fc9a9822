package llmfn

import "context"

// Model is the provider capability a Function drives. Generate receives the full message
// history and the tools the model may call, and must return either *TextOutput or
// *ToolCallsOutput. Errors are returned to the caller of Function.Call unchanged.
type Model interface {
	Generate(ctx context.Context, messages []Message, tools []ToolDescriptor) (ModelOutput, error)
}

// ModelFunc adapts a function to the Model interface.
type ModelFunc func(ctx context.Context, messages []Message, tools []ToolDescriptor) (ModelOutput, error)

// Generate calls f.
func (f ModelFunc) Generate(ctx context.Context, messages []Message, tools []ToolDescriptor) (ModelOutput, error) {
	return f(ctx, messages, tools)
}

// OutputParser turns the final text into a structured value. FormatInstructions is appended
// to the rendered prompt so the model knows the expected shape. Parse failures should be
// *OutputParseError; see package structured for a JSON Schema implementation.
type OutputParser interface {
	FormatInstructions() string
	Parse(text string) (any, error)
}
