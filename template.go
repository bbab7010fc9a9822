package llmfn

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Template is a parsed prompt with brace-delimited variable sites, e.g. "Compute {a} plus {b}".
// Each site must be a bare identifier; "{{" and "}}" render as literal braces.
// A Template is immutable and safe for concurrent use.
type Template struct {
	text     string
	segments []segment
	vars     []string
}

// segment is either literal text or a variable reference.
type segment struct {
	text  string
	isVar bool
}

// ParseTemplate statically scans text and returns a Template whose required variables are the
// de-duplicated identifiers in first-occurrence order. Any site that is not a bare identifier
// (arithmetic, attribute access, calls, literals, subscripts, conversions, format specs)
// yields an *InvalidTemplateError.
func ParseTemplate(text string) (*Template, error) {
	var (
		segs []segment
		vars []string
		seen = make(map[string]struct{})
		lit  strings.Builder
	)
	flush := func() {
		if lit.Len() > 0 {
			segs = append(segs, segment{text: lit.String()})
			lit.Reset()
		}
	}
	for i := 0; i < len(text); {
		switch c := text[i]; c {
		case '{':
			if i+1 < len(text) && text[i+1] == '{' {
				lit.WriteByte('{')
				i += 2
				continue
			}
			end := strings.IndexByte(text[i+1:], '}')
			if end < 0 {
				return nil, &InvalidTemplateError{Pos: i, Reason: "unclosed '{'"}
			}
			expr := text[i+1 : i+1+end]
			if reason := checkIdentifier(expr); reason != "" {
				return nil, &InvalidTemplateError{Pos: i, Expr: expr, Reason: reason}
			}
			flush()
			segs = append(segs, segment{text: expr, isVar: true})
			if _, ok := seen[expr]; !ok {
				seen[expr] = struct{}{}
				vars = append(vars, expr)
			}
			i += end + 2
		case '}':
			if i+1 < len(text) && text[i+1] == '}' {
				lit.WriteByte('}')
				i += 2
				continue
			}
			return nil, &InvalidTemplateError{Pos: i, Reason: "single '}' must be escaped as '}}'"}
		default:
			lit.WriteByte(c)
			i++
		}
	}
	flush()
	return &Template{text: text, segments: segs, vars: vars}, nil
}

// MustParseTemplate is like ParseTemplate but panics on error.
// Use this for templates defined at init time.
func MustParseTemplate(text string) *Template {
	t, err := ParseTemplate(text)
	if err != nil {
		panic(err)
	}
	return t
}

// checkIdentifier returns "" when expr is a bare identifier, otherwise the reason it is rejected.
func checkIdentifier(expr string) string {
	if expr == "" {
		return "empty expression"
	}
	if strings.ContainsRune(expr, '{') {
		return "nested '{'"
	}
	if isIdentifier(expr) {
		return ""
	}
	trimmed := strings.TrimSpace(expr)
	switch {
	case isIdentifier(trimmed):
		return "whitespace around identifier"
	case strings.ContainsAny(expr, "!:"):
		return "conversions and format specs are not allowed"
	default:
		return "only bare identifiers are allowed"
	}
}

func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == utf8.RuneError {
			return false
		}
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}

// Text returns the raw template text.
func (t *Template) Text() string { return t.text }

// Variables returns the required variable names in first-occurrence order.
func (t *Template) Variables() []string { return append([]string(nil), t.vars...) }

// Render substitutes each site with fmt.Sprint of its input. Inputs not referenced by the
// template are ignored. If any required variable is absent it returns *MissingInputError
// naming exactly the absent variables.
func (t *Template) Render(inputs map[string]any) (string, error) {
	var missing []string
	for _, v := range t.vars {
		if _, ok := inputs[v]; !ok {
			missing = append(missing, v)
		}
	}
	if len(missing) > 0 {
		return "", &MissingInputError{Names: missing}
	}
	var sb strings.Builder
	sb.Grow(len(t.text))
	for _, s := range t.segments {
		if s.isVar {
			sb.WriteString(fmt.Sprint(inputs[s.text]))
			continue
		}
		sb.WriteString(s.text)
	}
	return sb.String(), nil
}

// String returns the raw template text.
func (t *Template) String() string { return t.text }
