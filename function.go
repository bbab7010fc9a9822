package llmfn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
)

// Function treats a model as a function: a Template plus named inputs in, text or a parsed
// value out. Tools are resolved by a Registry owned by the Function. A Function is safe for
// concurrent use; each Call owns its own message history.
type Function struct {
	tpl          *Template
	model        Model
	registry     *Registry
	systemPrompt string
	parser       OutputParser
	maxTurns     int
	logger       *slog.Logger
}

// Result is the outcome of a successful Call.
type Result struct {
	// Text is the model's final answer.
	Text string
	// Value is the parsed answer when an OutputParser is configured, otherwise nil.
	Value any
	// Messages is the full conversation, including the final prompt and tool turns.
	// The final text answer is not a Message; it is in Text.
	Messages []Message
	// Turns is the number of model calls made.
	Turns int
}

// New builds a Function. tpl and model must be non-nil. Tool names must be unique.
func New(tpl *Template, model Model, opts ...Option) (*Function, error) {
	if tpl == nil {
		return nil, errors.New("llmfn: template must not be nil")
	}
	if model == nil {
		return nil, errors.New("llmfn: model must not be nil")
	}
	o := functionOptions{maxTurns: DefaultMaxTurns}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	reg := NewRegistry(o.registryOpts...)
	if len(o.middlewares) > 0 {
		reg.Use(o.middlewares...)
	}
	for _, t := range o.tools {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	return &Function{
		tpl:          tpl,
		model:        model,
		registry:     reg,
		systemPrompt: o.systemPrompt,
		parser:       o.parser,
		maxTurns:     o.maxTurns,
		logger:       o.logger,
	}, nil
}

// Template returns the Function's prompt template.
func (f *Function) Template() *Template { return f.tpl }

// Registry returns the Function's tool registry.
func (f *Function) Registry() *Registry { return f.registry }

// loopState is the position of a Call in the model/tool turn cycle.
type loopState int

const (
	awaitingModel loopState = iota
	resolvingTools
	done
)

// Call renders the template with inputs and drives the conversation: the model is asked for
// output until it returns text; every tool-call turn is resolved through the registry and
// answered with a ToolOutputMessage. Any failure aborts the call with a typed error; model
// errors are returned unchanged.
func (f *Function) Call(ctx context.Context, inputs map[string]any) (*Result, error) {
	messages, err := f.initialMessages(inputs)
	if err != nil {
		return nil, err
	}
	tools := f.registry.Descriptors()

	var (
		state   = awaitingModel
		turns   int
		text    string
		pending *ToolCallMessage
	)
	for state != done {
		switch state {
		case awaitingModel:
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			if f.maxTurns > 0 && turns >= f.maxTurns {
				return nil, &MaxTurnsError{Limit: f.maxTurns}
			}
			turns++
			f.logger.DebugContext(ctx, "model turn", "turn", turns, "messages", len(messages), "tools", len(tools))
			out, err := f.model.Generate(ctx, messages, tools)
			if err != nil {
				return nil, err
			}
			switch o := out.(type) {
			case *TextOutput:
				text = o.Content
				state = done
			case *ToolCallsOutput:
				if len(o.Calls) == 0 {
					return nil, fmt.Errorf("%w: tool call turn without calls", ErrUnexpectedOutput)
				}
				pending = &ToolCallMessage{Calls: o.Calls, Native: o.Native}
				messages = append(messages, pending)
				state = resolvingTools
			default:
				return nil, fmt.Errorf("%w: %T", ErrUnexpectedOutput, out)
			}
		case resolvingTools:
			f.logger.DebugContext(ctx, "resolving tool calls", "turn", turns, "calls", len(pending.Calls))
			results, err := f.registry.ResolveAll(ctx, pending.Calls)
			if err != nil {
				return nil, err
			}
			messages = append(messages, &ToolOutputMessage{Request: pending, Results: results})
			pending = nil
			state = awaitingModel
		}
	}

	res := &Result{Text: text, Messages: messages, Turns: turns}
	if f.parser != nil {
		v, err := f.parser.Parse(text)
		if err != nil {
			var pe *OutputParseError
			if !errors.As(err, &pe) {
				err = &OutputParseError{Text: text, Err: err}
			}
			return nil, err
		}
		res.Value = v
	}
	f.logger.DebugContext(ctx, "function done", "turns", turns)
	return res, nil
}

// Text is like Call but returns only the final text.
func (f *Function) Text(ctx context.Context, inputs map[string]any) (string, error) {
	res, err := f.Call(ctx, inputs)
	if err != nil {
		return "", err
	}
	return res.Text, nil
}

// initialMessages builds the optional system message and the rendered user message.
func (f *Function) initialMessages(inputs map[string]any) ([]Message, error) {
	prompt, err := f.tpl.Render(inputs)
	if err != nil {
		return nil, err
	}
	if f.parser != nil {
		prompt += "\n" + f.parser.FormatInstructions()
	}
	messages := make([]Message, 0, 4)
	if f.systemPrompt != "" {
		messages = append(messages, &SystemMessage{Content: f.systemPrompt})
	}
	return append(messages, &UserMessage{Content: prompt}), nil
}
