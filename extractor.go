package llmfn

import (
	"context"
	"fmt"
	"reflect"
	"strings"
)

// Extractor derives tool parameters from the fields of struct type T and builds T values from
// coerced arguments. Use it in custom orchestrators that want struct-typed arguments without
// the Tool interface; NewStructTool uses it internally.
//
// Field rules: the parameter name is the json tag name (or the field name); json:"-" and
// unexported fields are skipped; ",omitempty" makes the parameter optional. The description,
// enum (comma-separated) and default struct tags fill the matching Param fields.
type Extractor[T any] struct {
	params []Param
	fields []int // struct field index per param
	types  []reflect.Type
}

// NewExtractor creates an Extractor for struct type T.
func NewExtractor[T any]() (*Extractor[T], error) {
	typ := reflect.TypeFor[T]()
	if typ.Kind() != reflect.Struct {
		return nil, fmt.Errorf("argument type %s is not a struct", typ)
	}
	e := &Extractor[T]{}
	for i := range typ.NumField() {
		field := typ.Field(i)
		if !field.IsExported() {
			continue
		}
		tag := strings.Split(field.Tag.Get("json"), ",")
		name := tag[0]
		if name == "-" {
			continue
		}
		if name == "" {
			name = field.Name
		}
		at, ok := argTypeForKind(field.Type.Kind())
		if !ok {
			return nil, fmt.Errorf("field %s: unsupported type %s", field.Name, field.Type)
		}
		var opts []ParamOption
		for _, part := range tag[1:] {
			if part == "omitempty" {
				opts = append(opts, Optional())
			}
		}
		if def, ok := field.Tag.Lookup("default"); ok {
			opts = append(opts, Default(def))
		}
		if enumStr := field.Tag.Get("enum"); enumStr != "" {
			parts := strings.Split(enumStr, ",")
			enum := make([]any, len(parts))
			for j, p := range parts {
				enum[j] = strings.TrimSpace(p)
			}
			opts = append(opts, Enum(enum...))
		}
		e.params = append(e.params, newParam(name, at, field.Tag.Get("description"), opts))
		e.fields = append(e.fields, i)
		e.types = append(e.types, field.Type)
	}
	return e, nil
}

// argTypeForKind maps a Go kind to the descriptor that accepts it.
func argTypeForKind(k reflect.Kind) (ArgType, bool) {
	for _, at := range []ArgType{TypeInt, TypeFloat, TypeString, TypeBool} {
		if at.accepts(k) {
			return at, true
		}
	}
	return "", false
}

// Params returns the parameters derived from T, in field order.
func (e *Extractor[T]) Params() []Param {
	return append([]Param(nil), e.params...)
}

// Build fills a T from coerced arguments (as returned by Coerce). Absent values leave the
// field at its zero value.
func (e *Extractor[T]) Build(args map[string]any) T {
	var out T
	rv := reflect.ValueOf(&out).Elem()
	for i, p := range e.params {
		v := args[p.Name]
		if v == nil {
			continue
		}
		rv.Field(e.fields[i]).Set(reflect.ValueOf(v).Convert(e.types[i]))
	}
	return out
}

// NewStructTool builds a Tool from a typed function whose arguments are a struct. Parameters,
// schema and coercion are derived from T by Extractor[T].
//
//	type AddArgs struct {
//	    X int `json:"x" description:"first addend"`
//	    Y int `json:"y" description:"second addend"`
//	}
//	add, err := llmfn.NewStructTool("add", "Add two integers",
//	    func(_ context.Context, a AddArgs) (int, error) { return a.X + a.Y, nil })
func NewStructTool[T any, R any](
	name, description string,
	fn func(ctx context.Context, args T) (R, error),
	opts ...ToolOption,
) (Tool, error) {
	if fn == nil {
		return nil, &InvalidToolError{Tool: name, Reason: "handler must not be nil"}
	}
	ext, err := NewExtractor[T]()
	if err != nil {
		return nil, &InvalidToolError{Tool: name, Reason: err.Error()}
	}
	t, err := newTool(name, description, ext.params, opts)
	if err != nil {
		return nil, err
	}
	t.goTypes = make(map[string]reflect.Type, len(ext.params))
	for i, p := range ext.params {
		t.goTypes[p.Name] = ext.types[i]
	}
	t.call = func(ctx context.Context, args map[string]any) (any, error) {
		return fn(ctx, ext.Build(args))
	}
	return t, nil
}
