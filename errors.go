package llmfn

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for llmfn. Use errors.Is to check.
var (
	ErrMissingArgument  = errors.New("missing required argument")
	ErrValidation       = errors.New("validation failed")
	ErrUnexpectedOutput = errors.New("unexpected model output")
)

// InvalidTemplateError reports a template site that is not a bare identifier,
// or unbalanced braces.
type InvalidTemplateError struct {
	Pos    int    // byte offset of the offending brace
	Expr   string // text between the braces, if any
	Reason string
}

func (e *InvalidTemplateError) Error() string {
	if e.Expr != "" {
		return fmt.Sprintf("invalid template at offset %d: %s: {%s}", e.Pos, e.Reason, e.Expr)
	}
	return fmt.Sprintf("invalid template at offset %d: %s", e.Pos, e.Reason)
}

// MissingInputError is returned by Template.Render when required variables are absent.
// Names are in template order.
type MissingInputError struct {
	Names []string
}

func (e *MissingInputError) Error() string {
	return "missing input variables: " + strings.Join(e.Names, ", ")
}

// InvalidToolError is returned when a tool cannot be constructed or registered.
type InvalidToolError struct {
	Tool   string
	Reason string
}

func (e *InvalidToolError) Error() string {
	return fmt.Sprintf("invalid tool %q: %s", e.Tool, e.Reason)
}

// UnknownToolError is returned when the model requests a tool that is not registered.
type UnknownToolError struct {
	Name   string
	CallID string
}

func (e *UnknownToolError) Error() string {
	return fmt.Sprintf("model requested unknown tool %q", e.Name)
}

// UnknownToolArgumentError is returned when the model passes a parameter the tool does not declare.
type UnknownToolArgumentError struct {
	Tool     string
	Argument string
}

func (e *UnknownToolArgumentError) Error() string {
	return fmt.Sprintf("tool %q has no parameter %q", e.Tool, e.Argument)
}

// ArgumentCoercionError is returned when a raw argument cannot be converted to the declared type.
// Err optionally wraps a sentinel (ErrMissingArgument, ErrValidation) or the parse failure.
type ArgumentCoercionError struct {
	Tool     string
	Argument string
	Expected ArgType
	Raw      any
	Err      error
}

func (e *ArgumentCoercionError) Error() string {
	if errors.Is(e.Err, ErrMissingArgument) {
		return fmt.Sprintf("tool %q: %s %q", e.Tool, ErrMissingArgument, e.Argument)
	}
	if e.Argument == "" {
		return fmt.Sprintf("tool %q: arguments rejected: %v", e.Tool, e.Err)
	}
	return fmt.Sprintf("tool %q: cannot use %#v (%T) as %s for %q: %v",
		e.Tool, e.Raw, e.Raw, e.Expected, e.Argument, e.Err)
}

func (e *ArgumentCoercionError) Unwrap() error { return e.Err }

// ToolExecutionError wraps a failure returned (or panicked) by a tool's callable.
type ToolExecutionError struct {
	Tool   string
	CallID string
	Err    error
}

func (e *ToolExecutionError) Error() string {
	return fmt.Sprintf("tool %q failed: %v", e.Tool, e.Err)
}

func (e *ToolExecutionError) Unwrap() error { return e.Err }

// OutputParseError is returned when the final text does not conform to the output schema.
type OutputParseError struct {
	Text string
	Err  error
}

func (e *OutputParseError) Error() string {
	return fmt.Sprintf("failed to parse model output: %v", e.Err)
}

func (e *OutputParseError) Unwrap() error { return e.Err }

// MaxTurnsError is returned when the model keeps requesting tools past the turn limit.
type MaxTurnsError struct {
	Limit int
}

func (e *MaxTurnsError) Error() string {
	return fmt.Sprintf("model did not produce a text answer within %d turns", e.Limit)
}

// IsModelError reports whether err was caused by data the model supplied: an unknown tool,
// an undeclared argument, or an argument that could not be coerced. Callers may resubmit
// such calls; other failures are local or come from the tool itself.
func IsModelError(err error) bool {
	var (
		ut *UnknownToolError
		ua *UnknownToolArgumentError
		ac *ArgumentCoercionError
	)
	return errors.As(err, &ut) || errors.As(err, &ua) || errors.As(err, &ac)
}

// panicError wraps a recovered panic value for ToolExecutionError; used by Invoke and WithRecovery.
type panicError struct{ p any }

func (e *panicError) Error() string {
	return "panic: " + fmt.Sprint(e.p)
}
