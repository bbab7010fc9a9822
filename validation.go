package llmfn

import (
	"encoding/json"
	"fmt"
)

// schemaValidator validates a JSON-like value (e.g. map[string]any from json.Unmarshal).
// *jsonschema.Resolved implements it.
type schemaValidator interface {
	Validate(v any) error
}

// validateAgainstSchema checks coerced args against the tool schema. Args are passed through
// JSON first so the validator sees the same shapes it would for wire data. Nil values
// (absent optional parameters) are left out unless keepNull is set.
func validateAgainstSchema(tool string, validate schemaValidator, args map[string]any, keepNull bool) error {
	present := make(map[string]any, len(args))
	for k, v := range args {
		if v != nil || keepNull {
			present[k] = v
		}
	}
	data, err := json.Marshal(present)
	if err != nil {
		return &ArgumentCoercionError{Tool: tool, Err: fmt.Errorf("%w: %v", ErrValidation, err)}
	}
	var v any
	if err := json.Unmarshal(data, &v); err != nil {
		return &ArgumentCoercionError{Tool: tool, Err: fmt.Errorf("%w: %v", ErrValidation, err)}
	}
	if err := validate.Validate(v); err != nil {
		return &ArgumentCoercionError{Tool: tool, Err: fmt.Errorf("%w: %v", ErrValidation, err)}
	}
	return nil
}
