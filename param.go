package llmfn

// Param declares one tool parameter: its name, type descriptor, and model-facing metadata.
// Params are matched to a function's arguments by position in NewTool.
type Param struct {
	Name        string
	Type        ArgType
	Description string
	// Required is true unless the Param was built with Optional or Default.
	Required bool
	// Default is used by Coerce when an optional parameter is absent. Nil means the Go zero value.
	Default any
	// Enum optionally restricts the accepted values; enforced by schema validation after coercion.
	Enum []any
}

// ParamOption configures a Param built with Int, Float, String or Bool.
type ParamOption func(*Param)

// Int declares a required integer parameter.
func Int(name, description string, opts ...ParamOption) Param {
	return newParam(name, TypeInt, description, opts)
}

// Float declares a required number parameter.
func Float(name, description string, opts ...ParamOption) Param {
	return newParam(name, TypeFloat, description, opts)
}

// String declares a required string parameter.
func String(name, description string, opts ...ParamOption) Param {
	return newParam(name, TypeString, description, opts)
}

// Bool declares a required boolean parameter.
func Bool(name, description string, opts ...ParamOption) Param {
	return newParam(name, TypeBool, description, opts)
}

func newParam(name string, typ ArgType, description string, opts []ParamOption) Param {
	p := Param{Name: name, Type: typ, Description: description, Required: true}
	for _, opt := range opts {
		opt(&p)
	}
	return p
}

// Optional marks the parameter as not required. An absent value becomes the Go zero value.
func Optional() ParamOption {
	return func(p *Param) {
		p.Required = false
	}
}

// Default marks the parameter as optional with the given default.
// The default is coerced to the declared type when the tool is built.
func Default(v any) ParamOption {
	return func(p *Param) {
		p.Required = false
		p.Default = v
	}
}

// Enum restricts the parameter to the given values.
func Enum(values ...any) ParamOption {
	return func(p *Param) {
		p.Enum = values
	}
}

// normalize coerces Default and Enum to the declared type so that schema export and
// validation see the same values the tool will receive.
func (p Param) normalize(tool string) (Param, error) {
	if !p.Type.Valid() {
		return p, &InvalidToolError{Tool: tool, Reason: "parameter " + p.Name + ": unknown type descriptor " + string(p.Type)}
	}
	if p.Default != nil {
		v, err := p.Type.Parse(p.Default)
		if err != nil {
			return p, &InvalidToolError{Tool: tool, Reason: "parameter " + p.Name + ": default: " + err.Error()}
		}
		p.Default = v
	}
	if len(p.Enum) > 0 {
		enum := make([]any, len(p.Enum))
		for i, e := range p.Enum {
			v, err := p.Type.Parse(e)
			if err != nil {
				return p, &InvalidToolError{Tool: tool, Reason: "parameter " + p.Name + ": enum: " + err.Error()}
			}
			enum[i] = v
		}
		p.Enum = enum
	}
	return p, nil
}
