// Package structured implements llmfn.OutputParser for JSON answers described by a Go type.
//
// The JSON Schema for T is reflected once (struct tags such as json, jsonschema and
// jsonschema_description are honored), shown to the model in the format instructions, and
// used to validate the model's answer before it is decoded into T.
//
//	type Sum struct {
//	    Total int `json:"total" jsonschema_description:"the computed sum"`
//	}
//	parser, err := structured.New[Sum]()
//	fn, err := llmfn.New(tpl, model, llmfn.WithOutputParser(parser))
//	res, err := fn.Call(ctx, inputs)
//	sum, err := parser.Value(res)
package structured

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"strings"

	invopop "github.com/invopop/jsonschema"
	"github.com/santhosh-tekuri/jsonschema/v6"

	"github.com/skosovsky/llmfn"
)

const schemaURL = "output.json"

// ErrNoValue is returned by Value when the result carries no value of type T.
var ErrNoValue = errors.New("result has no structured value")

// Adapter parses model text into T after validating it against T's JSON Schema.
type Adapter[T any] struct {
	schemaMap map[string]any
	compiled  *jsonschema.Schema
	guidance  string
	example   *T
}

// New reflects T's JSON Schema and compiles a validator for it.
// Object schemas reject properties T does not declare.
func New[T any]() (*Adapter[T], error) {
	typ := reflect.TypeFor[T]()
	// ExpandedStruct is only meaningful for structs; the reflector fails on other kinds.
	r := &invopop.Reflector{DoNotReference: true, ExpandedStruct: typ.Kind() == reflect.Struct}
	s := r.ReflectFromType(typ)
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal output schema: %w", err)
	}
	var schemaMap map[string]any
	if err := json.Unmarshal(data, &schemaMap); err != nil {
		return nil, fmt.Errorf("failed to parse output schema: %w", err)
	}
	// The reflector stamps a package-derived $id; resolution must only depend on schemaURL.
	delete(schemaMap, "$id")
	delete(schemaMap, "$schema")
	compiled, err := compile(schemaMap)
	if err != nil {
		return nil, err
	}
	return &Adapter[T]{
		schemaMap: schemaMap,
		compiled:  compiled,
		guidance:  "The output should be a JSON instance that conforms to the JSON schema below. Respond with the JSON only.",
	}, nil
}

// MustNew is like New but panics on error.
// Use this for parsers defined at init time.
func MustNew[T any]() *Adapter[T] {
	a, err := New[T]()
	if err != nil {
		panic(err)
	}
	return a
}

func compile(schemaMap map[string]any) (*jsonschema.Schema, error) {
	schemaJSON, err := json.Marshal(schemaMap)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(string(schemaJSON)))
	if err != nil {
		return nil, fmt.Errorf("failed to parse schema: %w", err)
	}
	c := jsonschema.NewCompiler()
	if err := c.AddResource(schemaURL, doc); err != nil {
		return nil, fmt.Errorf("failed to add schema resource: %w", err)
	}
	compiled, err := c.Compile(schemaURL)
	if err != nil {
		return nil, fmt.Errorf("failed to compile schema: %w", err)
	}
	return compiled, nil
}

// WithGuidance replaces the sentence that precedes the schema in FormatInstructions.
func (a *Adapter[T]) WithGuidance(guidance string) *Adapter[T] {
	a.guidance = guidance
	return a
}

// WithExample adds an example value, serialized after the schema in FormatInstructions.
func (a *Adapter[T]) WithExample(example T) *Adapter[T] {
	a.example = &example
	return a
}

// Schema returns a copy of the JSON Schema derived from T.
func (a *Adapter[T]) Schema() map[string]any {
	data, err := json.Marshal(a.schemaMap)
	if err != nil {
		return nil
	}
	var out map[string]any
	if err := json.Unmarshal(data, &out); err != nil {
		return nil
	}
	return out
}

// FormatInstructions tells the model how to shape its answer.
func (a *Adapter[T]) FormatInstructions() string {
	var sb strings.Builder
	if a.guidance != "" {
		sb.WriteString(a.guidance)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Schema:\n```json\n")
	schemaJSON, err := json.MarshalIndent(a.schemaMap, "", "  ")
	if err == nil {
		sb.Write(schemaJSON)
	}
	sb.WriteString("\n```")
	if a.example != nil {
		exampleJSON, err := json.MarshalIndent(a.example, "", "  ")
		if err == nil {
			sb.WriteString("\n\nExample:\n```json\n")
			sb.Write(exampleJSON)
			sb.WriteString("\n```")
		}
	}
	return sb.String()
}

// Parse implements llmfn.OutputParser. The returned value has type T.
func (a *Adapter[T]) Parse(text string) (any, error) {
	return a.Decode(text)
}

// Decode extracts the JSON document from text, validates it against the schema and decodes it
// into T. Every failure is an *llmfn.OutputParseError.
func (a *Adapter[T]) Decode(text string) (T, error) {
	var zero T
	content := ExtractJSON(text)
	if content == "" {
		return zero, &llmfn.OutputParseError{Text: text, Err: errors.New("no JSON found in output")}
	}
	doc, err := jsonschema.UnmarshalJSON(strings.NewReader(content))
	if err != nil {
		return zero, &llmfn.OutputParseError{Text: text, Err: fmt.Errorf("invalid JSON: %w", err)}
	}
	if err := a.compiled.Validate(doc); err != nil {
		return zero, &llmfn.OutputParseError{Text: text, Err: fmt.Errorf("%w: %v", llmfn.ErrValidation, err)}
	}
	var out T
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return zero, &llmfn.OutputParseError{Text: text, Err: err}
	}
	return out, nil
}

// Value returns the parsed value of res as T.
func (a *Adapter[T]) Value(res *llmfn.Result) (T, error) {
	var zero T
	if res == nil {
		return zero, ErrNoValue
	}
	v, ok := res.Value.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T", ErrNoValue, res.Value)
	}
	return v, nil
}

// ExtractJSON returns the JSON document inside text: the body of the first Markdown code fence
// if there is one, otherwise the first complete JSON value starting at a '{' or '['. Prose
// before and after the value is dropped. It returns "" when no candidate is found.
func ExtractJSON(text string) string {
	s := strings.TrimSpace(text)
	if start := strings.Index(s, "```"); start >= 0 {
		body := s[start+3:]
		// Skip an info string such as "json".
		if nl := strings.IndexByte(body, '\n'); nl >= 0 {
			if info := strings.TrimSpace(body[:nl]); !strings.ContainsAny(info, "{[") {
				body = body[nl+1:]
			}
		}
		if end := strings.Index(body, "```"); end >= 0 {
			body = body[:end]
		}
		return strings.TrimSpace(body)
	}
	if s == "" {
		return ""
	}
	for off := 0; off < len(s); {
		i := strings.IndexAny(s[off:], "{[")
		if i < 0 {
			break
		}
		open := off + i
		if end, ok := firstValueEnd(s[open:]); ok {
			return s[open : open+end]
		}
		off = open + 1
	}
	// Nothing decodes; hand back the widest bracketed span so the caller reports the JSON error.
	open := strings.IndexAny(s, "{[")
	if open < 0 {
		return ""
	}
	closer := byte('}')
	if s[open] == '[' {
		closer = ']'
	}
	end := strings.LastIndexByte(s, closer)
	if end < open {
		return s[open:]
	}
	return s[open : end+1]
}

// firstValueEnd reports the length of the JSON value at the start of s.
func firstValueEnd(s string) (int, bool) {
	dec := json.NewDecoder(strings.NewReader(s))
	var v json.RawMessage
	if err := dec.Decode(&v); err != nil {
		return 0, false
	}
	return int(dec.InputOffset()), true
}

var _ llmfn.OutputParser = (*Adapter[struct{}])(nil)
