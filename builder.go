package llmfn

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"regexp"
	"slices"
	"time"

	"github.com/google/jsonschema-go/jsonschema"
)

// toolNamePattern is the name rule shared by the major providers' function-calling APIs.
var toolNamePattern = regexp.MustCompile(`^[a-zA-Z0-9_-]{1,64}$`)

var (
	contextType = reflect.TypeFor[context.Context]()
	errorType   = reflect.TypeFor[error]()
)

// tool is the internal implementation of Tool built by NewTool or NewDynamicTool.
type tool struct {
	name        string
	description string
	params      []Param
	schema      map[string]any
	resolved    *jsonschema.Resolved
	goTypes     map[string]reflect.Type // NewTool only: Go parameter type per argument
	call        func(context.Context, map[string]any) (any, error)
	opts        toolOptions
}

// NewTool wraps a plain Go function as a Tool. fn may take a leading context.Context; its
// remaining parameters are matched to params by position and each must have a Go kind
// compatible with the declared ArgType (any int kind for TypeInt, float32/float64 for
// TypeFloat, and so on). fn may return nothing, a value, an error, or (value, error).
//
// Construction fails with *InvalidToolError if a function parameter has no Param, if a Param
// has no function parameter, or if a type descriptor is unknown or incompatible.
//
//	add, err := llmfn.NewTool("add", "Add two integers",
//	    func(x, y int) int { return x + y },
//	    []llmfn.Param{llmfn.Int("x", "first addend"), llmfn.Int("y", "second addend")})
func NewTool(name, description string, fn any, params []Param, opts ...ToolOption) (Tool, error) {
	fv := reflect.ValueOf(fn)
	if !fv.IsValid() || fv.Kind() != reflect.Func {
		return nil, &InvalidToolError{Tool: name, Reason: fmt.Sprintf("expected a function, got %T", fn)}
	}
	ft := fv.Type()
	if ft.IsVariadic() {
		return nil, &InvalidToolError{Tool: name, Reason: "variadic functions are not supported"}
	}
	wantsCtx := ft.NumIn() > 0 && ft.In(0) == contextType
	offset := 0
	if wantsCtx {
		offset = 1
	}
	if n := ft.NumIn() - offset; n != len(params) {
		if n > len(params) {
			return nil, &InvalidToolError{Tool: name, Reason: fmt.Sprintf(
				"function has %d parameters but only %d have a type descriptor", n, len(params))}
		}
		return nil, &InvalidToolError{Tool: name, Reason: fmt.Sprintf(
			"%d parameters declared but function takes %d", len(params), n)}
	}
	returnsErr, returnsValue, err := checkResults(ft)
	if err != nil {
		return nil, &InvalidToolError{Tool: name, Reason: err.Error()}
	}

	t, err := newTool(name, description, params, opts)
	if err != nil {
		return nil, err
	}
	t.goTypes = make(map[string]reflect.Type, len(t.params))
	for i, p := range t.params {
		in := ft.In(i + offset)
		if !p.Type.accepts(in.Kind()) {
			return nil, &InvalidToolError{Tool: name, Reason: fmt.Sprintf(
				"parameter %s: Go type %s is not compatible with %s", p.Name, in, p.Type)}
		}
		t.goTypes[p.Name] = in
	}

	inTypes := make([]reflect.Type, len(t.params))
	for i := range t.params {
		inTypes[i] = ft.In(i + offset)
	}
	t.call = func(ctx context.Context, args map[string]any) (any, error) {
		in := make([]reflect.Value, 0, ft.NumIn())
		if wantsCtx {
			in = append(in, reflect.ValueOf(&ctx).Elem())
		}
		for i, p := range t.params {
			v, ok := args[p.Name]
			if !ok || v == nil {
				in = append(in, reflect.Zero(inTypes[i]))
				continue
			}
			in = append(in, reflect.ValueOf(v).Convert(inTypes[i]))
		}
		out := fv.Call(in)
		var (
			res  any
			rerr error
		)
		if returnsValue {
			res = out[0].Interface()
		}
		if returnsErr {
			if e := out[len(out)-1]; !e.IsNil() {
				rerr = e.Interface().(error)
			}
		}
		return res, rerr
	}
	return t, nil
}

// checkResults validates fn's result list: (), (R), (error) or (R, error).
func checkResults(ft reflect.Type) (returnsErr, returnsValue bool, err error) {
	switch ft.NumOut() {
	case 0:
		return false, false, nil
	case 1:
		if ft.Out(0) == errorType {
			return true, false, nil
		}
		return false, true, nil
	case 2:
		if ft.Out(1) != errorType {
			return false, false, fmt.Errorf("second result must be error, got %s", ft.Out(1))
		}
		return true, true, nil
	default:
		return false, false, fmt.Errorf("function returns %d results; at most 2 supported", ft.NumOut())
	}
}

// Args holds coerced arguments for a dynamic tool. Getters return the zero value for absent
// optional parameters.
type Args map[string]any

// Has reports whether name has a non-nil value.
func (a Args) Has(name string) bool { return a[name] != nil }

// Int returns an integer argument.
func (a Args) Int(name string) int {
	v, _ := a[name].(int64)
	return int(v)
}

// Int64 returns an integer argument.
func (a Args) Int64(name string) int64 {
	v, _ := a[name].(int64)
	return v
}

// Float returns a number argument.
func (a Args) Float(name string) float64 {
	v, _ := a[name].(float64)
	return v
}

// String returns a string argument.
func (a Args) String(name string) string {
	v, _ := a[name].(string)
	return v
}

// Bool returns a boolean argument.
func (a Args) Bool(name string) bool {
	v, _ := a[name].(bool)
	return v
}

// NewDynamicTool creates a Tool that receives its coerced arguments as Args. Useful when the
// parameter list is only known at runtime (configuration files, remote catalogs).
// fn must be non-nil.
func NewDynamicTool(
	name, description string,
	params []Param,
	fn func(ctx context.Context, args Args) (any, error),
	opts ...ToolOption,
) (Tool, error) {
	if fn == nil {
		return nil, &InvalidToolError{Tool: name, Reason: "handler must not be nil"}
	}
	t, err := newTool(name, description, params, opts)
	if err != nil {
		return nil, err
	}
	t.call = func(ctx context.Context, args map[string]any) (any, error) {
		return fn(ctx, Args(args))
	}
	return t, nil
}

func newTool(name, description string, params []Param, opts []ToolOption) (*tool, error) {
	var o toolOptions
	for _, opt := range opts {
		opt(&o)
	}
	if !toolNamePattern.MatchString(name) {
		return nil, &InvalidToolError{Tool: name, Reason: "name must match " + toolNamePattern.String()}
	}
	normalized := make([]Param, len(params))
	seen := make(map[string]struct{}, len(params))
	for i, p := range params {
		if p.Name == "" {
			return nil, &InvalidToolError{Tool: name, Reason: fmt.Sprintf("parameter %d has no name", i)}
		}
		if _, dup := seen[p.Name]; dup {
			return nil, &InvalidToolError{Tool: name, Reason: "duplicate parameter " + p.Name}
		}
		seen[p.Name] = struct{}{}
		np, err := p.normalize(name)
		if err != nil {
			return nil, err
		}
		normalized[i] = np
	}
	schema, resolved, err := buildSchema(normalized, o.strict)
	if err != nil {
		return nil, &InvalidToolError{Tool: name, Reason: "schema: " + err.Error()}
	}
	return &tool{
		name:        name,
		description: description,
		params:      normalized,
		schema:      schema,
		resolved:    resolved,
		opts:        o,
	}, nil
}

func (t *tool) Name() string        { return t.name }
func (t *tool) Description() string { return t.description }
func (t *tool) Params() []Param     { return slices.Clone(t.params) }

// Parameters returns a deep copy of the JSON Schema.
func (t *tool) Parameters() map[string]any { return cloneSchema(t.schema) }

func (t *tool) Call(ctx context.Context, args map[string]any) (any, error) {
	return t.call(ctx, args)
}

func (t *tool) Timeout() time.Duration { return t.opts.timeout }

// ValidateArgs runs schema validation and, for function-backed tools, checks that each value
// fits the Go parameter type (e.g. 300 for a uint8).
func (t *tool) ValidateArgs(args map[string]any) error {
	if err := validateAgainstSchema(t.name, t.resolved, args, t.opts.strict); err != nil {
		return err
	}
	for name, gt := range t.goTypes {
		v := args[name]
		if v == nil {
			continue
		}
		if !fits(reflect.ValueOf(v), gt) {
			p, _ := t.param(name)
			return &ArgumentCoercionError{
				Tool: t.name, Argument: name, Expected: p.Type, Raw: v,
				Err: fmt.Errorf("value overflows %s", gt),
			}
		}
	}
	return nil
}

func (t *tool) param(name string) (Param, bool) {
	for _, p := range t.params {
		if p.Name == name {
			return p, true
		}
	}
	return Param{}, false
}

// fits reports whether v converts to gt without overflow.
func fits(v reflect.Value, gt reflect.Type) bool {
	z := reflect.Zero(gt)
	switch gt.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Kind() == reflect.Int64 && !z.OverflowInt(v.Int())
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Kind() == reflect.Int64 && v.Int() >= 0 && !z.OverflowUint(uint64(v.Int()))
	case reflect.Float32, reflect.Float64:
		return v.Kind() == reflect.Float64 && !z.OverflowFloat(v.Float())
	default:
		return v.Type().ConvertibleTo(gt)
	}
}

// Coerce converts raw model-supplied parameters to the types tool declares. A parameter the
// tool does not declare yields *UnknownToolArgumentError; a value that cannot be converted, or
// an absent required parameter, yields *ArgumentCoercionError. Absent optional parameters take
// their default (nil when none). The result is then checked by ArgsValidator when tool
// implements it.
func Coerce(t Tool, raw map[string]any) (map[string]any, error) {
	params := t.Params()
	byName := make(map[string]Param, len(params))
	for _, p := range params {
		byName[p.Name] = p
	}
	// Sorted so the reported error does not depend on map iteration order.
	for _, name := range slices.Sorted(maps.Keys(raw)) {
		if _, ok := byName[name]; !ok {
			return nil, &UnknownToolArgumentError{Tool: t.Name(), Argument: name}
		}
	}
	typed := make(map[string]any, len(params))
	for _, p := range params {
		v, ok := raw[p.Name]
		if !ok || v == nil {
			if p.Required {
				return nil, &ArgumentCoercionError{
					Tool: t.Name(), Argument: p.Name, Expected: p.Type, Err: ErrMissingArgument,
				}
			}
			typed[p.Name] = p.Default
			continue
		}
		cv, err := p.Type.Parse(v)
		if err != nil {
			return nil, &ArgumentCoercionError{
				Tool: t.Name(), Argument: p.Name, Expected: p.Type, Raw: v, Err: err,
			}
		}
		typed[p.Name] = cv
	}
	if av, ok := t.(ArgsValidator); ok {
		if err := av.ValidateArgs(typed); err != nil {
			return nil, err
		}
	}
	return typed, nil
}

// Invoke calls tool with coerced arguments. Any error returned by the tool, and any panic,
// is reported as *ToolExecutionError carrying the tool name and the original failure.
func Invoke(ctx context.Context, t Tool, args map[string]any) (res any, err error) {
	defer func() {
		if p := recover(); p != nil {
			res = nil
			err = &ToolExecutionError{Tool: t.Name(), Err: &panicError{p: p}}
		}
	}()
	res, err = t.Call(ctx, args)
	if err != nil {
		return nil, wrapExecutionError(t.Name(), err)
	}
	return res, nil
}

// wrapExecutionError passes through an existing *ToolExecutionError (e.g. from WithRecovery)
// and wraps everything else.
func wrapExecutionError(name string, err error) error {
	if te, ok := err.(*ToolExecutionError); ok {
		return te
	}
	return &ToolExecutionError{Tool: name, Err: err}
}

var (
	_ Tool          = (*tool)(nil)
	_ ToolMetadata  = (*tool)(nil)
	_ ArgsValidator = (*tool)(nil)
)
