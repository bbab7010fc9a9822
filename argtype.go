package llmfn

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"reflect"
	"strconv"
	"strings"
)

// ArgType is a tool parameter type descriptor. Values match JSON Schema type names.
type ArgType string

const (
	TypeInt    ArgType = "integer"
	TypeFloat  ArgType = "number"
	TypeString ArgType = "string"
	TypeBool   ArgType = "boolean"
)

// argTypeInfo binds a descriptor to the Go type it produces and its parse function.
type argTypeInfo struct {
	goType reflect.Type
	kinds  []reflect.Kind // Go parameter kinds NewTool accepts for this descriptor
	parse  func(raw any) (any, error)
}

// argTypes is the closed set of supported descriptors. Coercion never evaluates a type name.
var argTypes = map[ArgType]argTypeInfo{
	TypeInt: {
		goType: reflect.TypeFor[int64](),
		kinds: []reflect.Kind{
			reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
			reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		},
		parse: parseInt,
	},
	TypeFloat: {
		goType: reflect.TypeFor[float64](),
		kinds:  []reflect.Kind{reflect.Float32, reflect.Float64},
		parse:  parseFloat,
	},
	TypeString: {
		goType: reflect.TypeFor[string](),
		kinds:  []reflect.Kind{reflect.String},
		parse:  parseString,
	},
	TypeBool: {
		goType: reflect.TypeFor[bool](),
		kinds:  []reflect.Kind{reflect.Bool},
		parse:  parseBool,
	},
}

// Valid reports whether t is a registered descriptor.
func (t ArgType) Valid() bool {
	_, ok := argTypes[t]
	return ok
}

// Parse converts a raw value (a string from a text wire format or a native scalar) to the
// Go value for t: int64, float64, string or bool.
func (t ArgType) Parse(raw any) (any, error) {
	info, ok := argTypes[t]
	if !ok {
		return nil, fmt.Errorf("unknown argument type %q", string(t))
	}
	return info.parse(raw)
}

// accepts reports whether a Go parameter of kind k can receive values of type t.
func (t ArgType) accepts(k reflect.Kind) bool {
	info, ok := argTypes[t]
	if !ok {
		return false
	}
	for _, kk := range info.kinds {
		if kk == k {
			return true
		}
	}
	return false
}

var (
	errNotInteger  = errors.New("not an integer")
	errNotNumber   = errors.New("not a number")
	errNotBoolean  = errors.New("not a boolean")
	errUnsupported = errors.New("unsupported value type")
)

func parseInt(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64)
		if err != nil {
			return nil, errNotInteger
		}
		return n, nil
	case json.Number:
		return parseInt(v.String())
	case int:
		return int64(v), nil
	case int8:
		return int64(v), nil
	case int16:
		return int64(v), nil
	case int32:
		return int64(v), nil
	case int64:
		return v, nil
	case uint:
		return uintToInt64(uint64(v))
	case uint8:
		return int64(v), nil
	case uint16:
		return int64(v), nil
	case uint32:
		return int64(v), nil
	case uint64:
		return uintToInt64(v)
	case float32:
		return floatToInt64(float64(v))
	case float64:
		return floatToInt64(v)
	default:
		return nil, errUnsupported
	}
}

func uintToInt64(v uint64) (any, error) {
	if v > math.MaxInt64 {
		return nil, errors.New("integer overflows int64")
	}
	return int64(v), nil
}

// floatToInt64 accepts only integral floats, which is how JSON decoders deliver integers.
func floatToInt64(f float64) (any, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return nil, errNotInteger
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, errors.New("integer overflows int64")
	}
	return int64(f), nil
}

func parseFloat(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return nil, errNotNumber
		}
		return f, nil
	case json.Number:
		return parseFloat(v.String())
	}
	f, ok := nativeFloat(raw)
	if !ok {
		return nil, errUnsupported
	}
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return nil, errNotNumber
	}
	return f, nil
}

// nativeFloat converts a Go numeric scalar to float64. ok is false for any other value.
func nativeFloat(raw any) (f float64, ok bool) {
	switch v := raw.(type) {
	case float64:
		return v, true
	case float32:
		return float64(v), true
	case int:
		return float64(v), true
	case int8:
		return float64(v), true
	case int16:
		return float64(v), true
	case int32:
		return float64(v), true
	case int64:
		return float64(v), true
	case uint:
		return float64(v), true
	case uint8:
		return float64(v), true
	case uint16:
		return float64(v), true
	case uint32:
		return float64(v), true
	case uint64:
		return float64(v), true
	}
	return 0, false
}

func parseString(raw any) (any, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case json.Number:
		return v.String(), nil
	case bool:
		return strconv.FormatBool(v), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32), nil
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprint(v), nil
	default:
		return nil, errUnsupported
	}
}

var (
	truthy = map[string]bool{"true": true, "1": true, "yes": true, "y": true, "on": true, "t": true}
	falsy  = map[string]bool{"false": true, "0": true, "no": true, "n": true, "off": true, "f": true}
)

func parseBool(raw any) (any, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		s := strings.ToLower(strings.TrimSpace(v))
		switch {
		case truthy[s]:
			return true, nil
		case falsy[s]:
			return false, nil
		}
		return nil, errNotBoolean
	case json.Number:
		return parseBool(v.String())
	}
	// Numbers count only as 0 or 1.
	f, ok := nativeFloat(raw)
	if !ok {
		return nil, errUnsupported
	}
	if f == 0 || f == 1 {
		return f == 1, nil
	}
	return nil, errNotBoolean
}
