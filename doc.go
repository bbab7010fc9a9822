// Package llmfn turns a large-language-model invocation into an ordinary function call:
// a prompt template plus named inputs, and optionally a set of typed tools the model may
// call, producing free text or a validated structured value.
//
// # Overview
//
// Models emit tool calls with stringly-typed arguments. This package turns those calls into
// concrete Go function calls: look up the tool → coerce each argument to its declared
// ArgType → validate against the same JSON Schema shown to the model → invoke → feed the
// result back to the model, until it answers with text.
//
// Pipeline: ParseTemplate → New(template, model, WithTools(...)) → Function.Call(inputs) →
// Template.Render → model turn → Registry.ResolveAll (Coerce, Invoke) → model turn → … →
// text → OutputParser (optional).
//
// # Key concepts
//
//   - Safe templates: a site is a bare identifier ("{name}"); anything else is rejected at
//     parse time and nothing in a template is ever evaluated.
//   - Closed type registry: arguments are converted by ArgType (integer, number, string,
//     boolean), never by evaluating a type name.
//   - Order-addressed results: ResolveAll returns one ToolResult per request, in request order.
//   - Fail fast: every failure aborts the call with a typed error (see errors.go); nothing is
//     retried.
//
// # Example
//
//	add, err := llmfn.NewTool("add", "Add two integers",
//	    func(x, y int) int { return x + y },
//	    []llmfn.Param{llmfn.Int("x", "first"), llmfn.Int("y", "second")})
//	if err != nil { ... }
//	fn, err := llmfn.New(llmfn.MustParseTemplate("Use add to add {a} and {b}"), model,
//	    llmfn.WithTools(add))
//	if err != nil { ... }
//	text, err := fn.Text(ctx, map[string]any{"a": 2, "b": 3})
package llmfn
