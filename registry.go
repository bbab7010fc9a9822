package llmfn

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

// Registry holds the tools of one Function and resolves the model's tool calls against them.
// Tools keep registration order, which is the order they are described to the model.
type Registry struct {
	order       []string
	tools       map[string]Tool // wrapped with middlewares, used by ResolveAll
	rawTools    map[string]Tool // unwrapped, used by Use() to re-apply middlewares from scratch
	opts        registryOptions
	mu          sync.RWMutex
	middlewares []Middleware
}

// NewRegistry creates an empty Registry with the given options.
func NewRegistry(opts ...RegistryOption) *Registry {
	var o registryOptions
	for _, opt := range opts {
		opt(&o)
	}
	return &Registry{
		tools:    make(map[string]Tool),
		rawTools: make(map[string]Tool),
		opts:     o,
	}
}

// Register adds a tool. Stored middlewares (see Use) are applied to the tool before registration.
// A second tool with an existing name is rejected with *InvalidToolError.
func (r *Registry) Register(t Tool) error {
	if t == nil {
		return &InvalidToolError{Reason: "tool must not be nil"}
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	name := t.Name()
	if _, dup := r.rawTools[name]; dup {
		return &InvalidToolError{Tool: name, Reason: "a tool with this name is already registered"}
	}
	r.rawTools[name] = t
	r.order = append(r.order, name)
	r.tools[name] = chain(t, r.middlewares)
	return nil
}

// Tools returns all registered tools (after middlewares are applied) in registration order.
func (r *Registry) Tools() []Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.tools[name])
	}
	return out
}

// Tool returns the tool with the given name (after middlewares are applied), or (nil, false) if not found.
func (r *Registry) Tool(name string) (Tool, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	t, ok := r.tools[name]
	return t, ok
}

// Descriptors returns the model-facing description of every tool in registration order.
func (r *Registry) Descriptors() []ToolDescriptor {
	tools := r.Tools()
	out := make([]ToolDescriptor, len(tools))
	for i, t := range tools {
		out[i] = Describe(t)
	}
	return out
}

// Len returns the number of registered tools.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.order)
}

// resolvedCall is a ToolCall matched to its tool with coerced arguments.
type resolvedCall struct {
	call ToolCall
	tool Tool
	args map[string]any
}

// ResolveAll resolves and runs a batch of tool calls, returning one result per call in request
// order (not grouped by tool), so repeated calls to the same tool stay paired with their request.
//
// Every call is first looked up and coerced. If any call names an unregistered tool
// (*UnknownToolError) or carries bad arguments, the batch is aborted before any tool runs.
// Tools then run sequentially, or concurrently with WithParallelCalls; the first
// *ToolExecutionError aborts the batch. No partial results are returned on error.
func (r *Registry) ResolveAll(ctx context.Context, calls []ToolCall) ([]ToolResult, error) {
	if len(calls) == 0 {
		return nil, nil
	}
	resolved := make([]resolvedCall, len(calls))
	for i, call := range calls {
		rc, err := r.resolve(call)
		if err != nil {
			return nil, err
		}
		resolved[i] = rc
	}

	results := make([]ToolResult, len(resolved))
	if r.opts.parallel <= 1 || len(resolved) == 1 {
		for i, rc := range resolved {
			res, err := r.execute(ctx, rc)
			if err != nil {
				return nil, err
			}
			results[i] = res
		}
		return results, nil
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.opts.parallel)
	for i, rc := range resolved {
		g.Go(func() error {
			res, err := r.execute(gctx, rc)
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// Resolve resolves and runs a single tool call.
func (r *Registry) Resolve(ctx context.Context, call ToolCall) (ToolResult, error) {
	rc, err := r.resolve(call)
	if err != nil {
		return ToolResult{}, err
	}
	return r.execute(ctx, rc)
}

func (r *Registry) resolve(call ToolCall) (resolvedCall, error) {
	t, ok := r.Tool(call.Name)
	if !ok {
		return resolvedCall{}, &UnknownToolError{Name: call.Name, CallID: call.ID}
	}
	args, err := Coerce(t, call.Params)
	if err != nil {
		return resolvedCall{}, err
	}
	return resolvedCall{call: call, tool: t, args: args}, nil
}

// execute invokes one resolved call under the effective timeout and runs the hooks.
func (r *Registry) execute(ctx context.Context, rc resolvedCall) (ToolResult, error) {
	timeout := r.opts.timeout
	if tm, ok := rc.tool.(ToolMetadata); ok && tm.Timeout() > 0 {
		timeout = tm.Timeout()
	}
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	if r.opts.onBefore != nil {
		r.opts.onBefore(ctx, rc.call)
	}
	start := time.Now()
	out, err := Invoke(ctx, rc.tool, rc.args)
	res := ToolResult{CallID: rc.call.ID, ToolName: rc.call.Name, Output: out}
	if err != nil {
		if te, ok := err.(*ToolExecutionError); ok && te.CallID == "" {
			te.CallID = rc.call.ID
		}
		res.Output = nil
	}
	if r.opts.onAfter != nil {
		r.opts.onAfter(ctx, rc.call, res, err, time.Since(start))
	}
	return res, err
}
