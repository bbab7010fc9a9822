package llmfn

import (
	"context"
	"log/slog"
	"time"
)

// toolOptions hold optional tool settings (strict schema, timeout).
type toolOptions struct {
	strict  bool
	timeout time.Duration
}

// ToolOption configures a tool (e.g. WithStrict, WithTimeout).
type ToolOption func(*toolOptions)

// WithStrict sets strict mode for schema: additionalProperties: false for all objects,
// and all properties become required. Use for OpenAI Structured Outputs compatibility.
func WithStrict() ToolOption {
	return func(o *toolOptions) {
		o.strict = true
	}
}

// WithTimeout sets a per-tool timeout. It overrides the registry default for this tool.
func WithTimeout(d time.Duration) ToolOption {
	return func(o *toolOptions) {
		o.timeout = d
	}
}

// RegistryOption configures a Registry.
type RegistryOption func(*registryOptions)

type registryOptions struct {
	timeout  time.Duration
	parallel int
	onBefore func(context.Context, ToolCall)
	onAfter  func(context.Context, ToolCall, ToolResult, error, time.Duration)
}

// WithDefaultTimeout sets the default execution timeout for each tool call.
// Zero (the default) means no timeout beyond the caller's context.
func WithDefaultTimeout(d time.Duration) RegistryOption {
	return func(o *registryOptions) {
		o.timeout = d
	}
}

// WithParallelCalls lets ResolveAll invoke up to n calls of one batch concurrently.
// Results keep request order. n <= 1 keeps sequential execution (the default).
func WithParallelCalls(n int) RegistryOption {
	return func(o *registryOptions) {
		o.parallel = n
	}
}

// WithOnBeforeExecute sets a hook called before each tool invocation.
func WithOnBeforeExecute(fn func(context.Context, ToolCall)) RegistryOption {
	return func(o *registryOptions) {
		o.onBefore = fn
	}
}

// WithOnAfterExecute sets a hook called after each tool invocation, successful or not.
func WithOnAfterExecute(fn func(context.Context, ToolCall, ToolResult, error, time.Duration)) RegistryOption {
	return func(o *registryOptions) {
		o.onAfter = fn
	}
}

// DefaultMaxTurns is the number of model calls a Function allows unless WithMaxTurns says otherwise.
const DefaultMaxTurns = 10

// Option configures a Function.
type Option func(*functionOptions)

type functionOptions struct {
	systemPrompt string
	tools        []Tool
	parser       OutputParser
	maxTurns     int
	logger       *slog.Logger
	registryOpts []RegistryOption
	middlewares  []Middleware
}

// WithSystemPrompt prepends a system message to every conversation.
func WithSystemPrompt(prompt string) Option {
	return func(o *functionOptions) {
		o.systemPrompt = prompt
	}
}

// WithTools makes tools available to the model. Names must be unique.
func WithTools(tools ...Tool) Option {
	return func(o *functionOptions) {
		o.tools = append(o.tools, tools...)
	}
}

// WithOutputParser appends the parser's format instructions to the prompt and
// parses the final text with it.
func WithOutputParser(p OutputParser) Option {
	return func(o *functionOptions) {
		o.parser = p
	}
}

// WithMaxTurns bounds the number of model calls per Call. Zero or negative removes the bound.
func WithMaxTurns(n int) Option {
	return func(o *functionOptions) {
		o.maxTurns = n
	}
}

// WithLogger sets the logger for turn-level debug logs. Defaults to slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(o *functionOptions) {
		o.logger = logger
	}
}

// WithRegistryOptions configures the Function's tool registry.
func WithRegistryOptions(opts ...RegistryOption) Option {
	return func(o *functionOptions) {
		o.registryOpts = append(o.registryOpts, opts...)
	}
}

// WithMiddleware wraps every tool of the Function (see Registry.Use).
func WithMiddleware(middlewares ...Middleware) Option {
	return func(o *functionOptions) {
		o.middlewares = append(o.middlewares, middlewares...)
	}
}
