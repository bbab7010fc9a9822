package llmfn

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// Middleware wraps a Tool with cross-cutting behavior (logging, recovery, timeout).
type Middleware func(Tool) Tool

// CallFunc is the signature of Tool.Call.
type CallFunc func(ctx context.Context, args map[string]any) (any, error)

// Wrap returns a Tool that describes, validates and times out exactly like next but runs call
// instead of next.Call. Middlewares are built on it.
func Wrap(next Tool, call CallFunc) Tool {
	return &wrappedTool{next: next, call: call}
}

type wrappedTool struct {
	next Tool
	call CallFunc
}

func (w *wrappedTool) Name() string               { return w.next.Name() }
func (w *wrappedTool) Description() string        { return w.next.Description() }
func (w *wrappedTool) Params() []Param            { return w.next.Params() }
func (w *wrappedTool) Parameters() map[string]any { return w.next.Parameters() }

func (w *wrappedTool) Call(ctx context.Context, args map[string]any) (any, error) {
	return w.call(ctx, args)
}

func (w *wrappedTool) Timeout() time.Duration {
	if tm, ok := w.next.(ToolMetadata); ok {
		return tm.Timeout()
	}
	return 0
}

func (w *wrappedTool) ValidateArgs(args map[string]any) error {
	if av, ok := w.next.(ArgsValidator); ok {
		return av.ValidateArgs(args)
	}
	return nil
}

// WithLogging logs every call of the wrapped tool with its argument names and duration.
// Failures are logged at error level.
func WithLogging(logger *slog.Logger) Middleware {
	if logger == nil {
		logger = slog.Default()
	}
	return func(next Tool) Tool {
		name := next.Name()
		return Wrap(next, func(ctx context.Context, args map[string]any) (any, error) {
			logger.InfoContext(ctx, "tool call started", "tool", name, "args", len(args))
			start := time.Now()
			out, err := next.Call(ctx, args)
			if err != nil {
				logger.ErrorContext(ctx, "tool call failed", "tool", name, "duration", time.Since(start), "error", err)
				return nil, err
			}
			logger.InfoContext(ctx, "tool call finished", "tool", name, "duration", time.Since(start))
			return out, nil
		})
	}
}

// WithRecovery reports a panic inside the wrapped tool as *ToolExecutionError.
// Invoke passes that error through without wrapping it again.
func WithRecovery() Middleware {
	return func(next Tool) Tool {
		name := next.Name()
		return Wrap(next, func(ctx context.Context, args map[string]any) (out any, err error) {
			defer func() {
				if p := recover(); p != nil {
					out, err = nil, &ToolExecutionError{Tool: name, Err: &panicError{p: p}}
				}
			}()
			return next.Call(ctx, args)
		})
	}
}

// WithTimeoutMiddleware caps each call of the wrapped tool at d. The cap can only shorten the
// deadline: a registry default or tool timeout that expires first still applies, so the
// effective limit is the smaller of the two. A non-positive d leaves calls untouched.
func WithTimeoutMiddleware(d time.Duration) Middleware {
	return func(next Tool) Tool {
		if d <= 0 {
			return next
		}
		return Wrap(next, func(ctx context.Context, args map[string]any) (any, error) {
			capped, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			out, err := next.Call(capped, args)
			if err != nil && ctx.Err() == nil && errors.Is(capped.Err(), context.DeadlineExceeded) {
				return nil, fmt.Errorf("exceeded %s call limit: %w", d, err)
			}
			return out, err
		})
	}
}

// chain applies middlewares to t, the first middleware outermost.
func chain(t Tool, middlewares []Middleware) Tool {
	for i := len(middlewares) - 1; i >= 0; i-- {
		t = middlewares[i](t)
	}
	return t
}

// Use replaces the registry's middleware chain and rewraps every registered tool from its
// unwrapped form. Tools registered later get the same chain.
func (r *Registry) Use(middlewares ...Middleware) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.middlewares = middlewares
	for name, raw := range r.rawTools {
		r.tools[name] = chain(raw, middlewares)
	}
}
