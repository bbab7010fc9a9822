package llmfn

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addParams() []Param {
	return []Param{Int("x", "first addend"), Int("y", "second addend")}
}

func newAddTool(t *testing.T) Tool {
	t.Helper()
	tool, err := NewTool("addTool", "Add two integers", func(x, y int) int { return x + y }, addParams())
	require.NoError(t, err)
	return tool
}

func TestNewTool_Call(t *testing.T) {
	tool := newAddTool(t)
	assert.Equal(t, "addTool", tool.Name())
	assert.Equal(t, "Add two integers", tool.Description())
	args, err := Coerce(tool, map[string]any{"x": "2", "y": "3"})
	require.NoError(t, err)
	out, err := Invoke(context.Background(), tool, args)
	require.NoError(t, err)
	assert.Equal(t, 5, out)
}

func TestNewTool_Signatures(t *testing.T) {
	ctx := context.Background()
	errBoom := errors.New("boom")
	tests := []struct {
		name    string
		fn      any
		want    any
		wantErr error
	}{
		{"context and error", func(_ context.Context, n int64) (string, error) { return "ok", nil }, "ok", nil},
		{"error only nil", func(n int) error { return nil }, nil, nil},
		{"error only failing", func(n int) error { return errBoom }, nil, errBoom},
		{"no results", func(n int) {}, nil, nil},
		{"value and failing error", func(n int) (int, error) { return 0, errBoom }, nil, errBoom},
		{"narrow int kind", func(n int8) int8 { return n * 2 }, int8(8), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := NewTool("t", "d", tt.fn, []Param{Int("n", "")})
			require.NoError(t, err)
			args, err := Coerce(tool, map[string]any{"n": "4"})
			require.NoError(t, err)
			out, err := Invoke(ctx, tool, args)
			if tt.wantErr != nil {
				var te *ToolExecutionError
				require.ErrorAs(t, err, &te)
				assert.Equal(t, "t", te.Tool)
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, out)
		})
	}
}

func TestNewTool_PassesContext(t *testing.T) {
	type key struct{}
	tool, err := NewTool("ctx", "d", func(ctx context.Context) string {
		return ctx.Value(key{}).(string)
	}, nil)
	require.NoError(t, err)
	ctx := context.WithValue(context.Background(), key{}, "present")
	out, err := Invoke(ctx, tool, map[string]any{})
	require.NoError(t, err)
	assert.Equal(t, "present", out)
}

func TestNewTool_Invalid(t *testing.T) {
	tests := []struct {
		name   string
		tool   string
		fn     any
		params []Param
	}{
		{"not a function", "t", 42, nil},
		{"missing descriptor", "t", func(x, y int) int { return x + y }, []Param{Int("x", "")}},
		{"extra descriptor", "t", func(x int) int { return x }, addParams()},
		{"unknown descriptor", "t", func(x int) int { return x }, []Param{{Name: "x", Type: "list"}}},
		{"incompatible kind", "t", func(x string) string { return x }, []Param{Int("x", "")}},
		{"duplicate param", "t", func(x, y int) int { return x }, []Param{Int("x", ""), Int("x", "")}},
		{"empty param name", "t", func(x int) int { return x }, []Param{Int("", "")}},
		{"bad name", "has space", func() {}, nil},
		{"empty name", "", func() {}, nil},
		{"variadic", "t", func(xs ...int) {}, []Param{Int("xs", "")}},
		{"second result not error", "t", func() (int, int) { return 0, 0 }, nil},
		{"three results", "t", func() (int, int, error) { return 0, 0, nil }, nil},
		{"bad default", "t", func(x int) int { return x }, []Param{Int("x", "", Default("many"))}},
		{"bad enum", "t", func(x int) int { return x }, []Param{Int("x", "", Enum("a"))}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, err := NewTool(tt.tool, "d", tt.fn, tt.params)
			require.Error(t, err)
			assert.Nil(t, tool)
			var ite *InvalidToolError
			require.ErrorAs(t, err, &ite)
		})
	}
}

func TestNewTool_Parameters(t *testing.T) {
	tool, err := NewTool("weather", "Get weather", func(city, unit string, days int) string { return "" }, []Param{
		String("city", "City name"),
		String("unit", "Temperature unit", Enum("celsius", "fahrenheit"), Default("celsius")),
		Int("days", "Forecast days", Optional()),
	})
	require.NoError(t, err)
	schema := tool.Parameters()
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, []any{"city"}, schema["required"])
	props := schema["properties"].(map[string]any)
	city := props["city"].(map[string]any)
	assert.Equal(t, "string", city["type"])
	assert.Equal(t, "City name", city["description"])
	unit := props["unit"].(map[string]any)
	assert.Equal(t, []any{"celsius", "fahrenheit"}, unit["enum"])
	assert.Equal(t, "celsius", unit["default"])
	assert.Equal(t, "integer", props["days"].(map[string]any)["type"])
}

func TestTool_Parameters_ReturnsCopy(t *testing.T) {
	tool := newAddTool(t)
	params := tool.Parameters()
	params["mutated"] = true
	params["properties"].(map[string]any)["x"] = "mutated"
	params2 := tool.Parameters()
	_, ok := params2["mutated"]
	require.False(t, ok)
	assert.IsType(t, map[string]any{}, params2["properties"].(map[string]any)["x"])
}

func TestNewTool_Strict(t *testing.T) {
	tool, err := NewTool("t", "d", func(b, a int) int { return a }, []Param{
		Int("b", "", Optional()), Int("a", ""),
	}, WithStrict())
	require.NoError(t, err)
	schema := tool.Parameters()
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []any{"a", "b"}, schema["required"])
	b := schema["properties"].(map[string]any)["b"].(map[string]any)
	assert.Equal(t, []any{"integer", "null"}, b["type"])

	args, err := Coerce(tool, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Nil(t, args["b"])
	_, err = Coerce(tool, map[string]any{"a": 1, "b": 2})
	require.NoError(t, err)
}

func TestCoerce(t *testing.T) {
	tool, err := NewTool("mix", "d", func(i int, f float64, s string, b bool) string { return "" }, []Param{
		Int("i", ""), Float("f", ""), String("s", ""), Bool("b", ""),
	})
	require.NoError(t, err)
	args, err := Coerce(tool, map[string]any{"i": "3", "f": "3.5", "s": 12, "b": "yes"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"i": int64(3), "f": 3.5, "s": "12", "b": true}, args)
}

func TestCoerce_Errors(t *testing.T) {
	tool := newAddTool(t)

	_, err := Coerce(tool, map[string]any{"x": "2daughter", "y": "3"})
	var ace *ArgumentCoercionError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, "addTool", ace.Tool)
	assert.Equal(t, "x", ace.Argument)
	assert.Equal(t, TypeInt, ace.Expected)
	assert.Equal(t, "2daughter", ace.Raw)
	assert.True(t, IsModelError(err))

	_, err = Coerce(tool, map[string]any{"x": "2", "y": "3", "z": "4"})
	var uae *UnknownToolArgumentError
	require.ErrorAs(t, err, &uae)
	assert.Equal(t, "z", uae.Argument)

	_, err = Coerce(tool, map[string]any{"x": "2"})
	require.ErrorAs(t, err, &ace)
	assert.ErrorIs(t, err, ErrMissingArgument)
	assert.Equal(t, "y", ace.Argument)
}

func TestCoerce_DefaultsAndOptional(t *testing.T) {
	tool, err := NewTool("t", "d", func(a, b, c int) int { return a + b + c }, []Param{
		Int("a", ""), Int("b", "", Default(10)), Int("c", "", Optional()),
	})
	require.NoError(t, err)
	args, err := Coerce(tool, map[string]any{"a": 1})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": int64(1), "b": int64(10), "c": nil}, args)
	out, err := Invoke(context.Background(), tool, args)
	require.NoError(t, err)
	assert.Equal(t, 11, out)
}

func TestCoerce_EnumValidation(t *testing.T) {
	tool, err := NewTool("t", "d", func(unit string) string { return unit }, []Param{
		String("unit", "", Enum("celsius", "fahrenheit")),
	})
	require.NoError(t, err)
	_, err = Coerce(tool, map[string]any{"unit": "celsius"})
	require.NoError(t, err)
	_, err = Coerce(tool, map[string]any{"unit": "kelvin"})
	var ace *ArgumentCoercionError
	require.ErrorAs(t, err, &ace)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCoerce_Overflow(t *testing.T) {
	tool, err := NewTool("t", "d", func(n uint8) uint8 { return n }, []Param{Int("n", "")})
	require.NoError(t, err)
	_, err = Coerce(tool, map[string]any{"n": "300"})
	var ace *ArgumentCoercionError
	require.ErrorAs(t, err, &ace)
	assert.Equal(t, "n", ace.Argument)
	_, err = Coerce(tool, map[string]any{"n": "-1"})
	require.ErrorAs(t, err, &ace)
	args, err := Coerce(tool, map[string]any{"n": "255"})
	require.NoError(t, err)
	out, err := Invoke(context.Background(), tool, args)
	require.NoError(t, err)
	assert.Equal(t, uint8(255), out)
}

func TestInvoke_Panic(t *testing.T) {
	tool, err := NewTool("panic", "Panics", func() int { panic("oops") }, nil)
	require.NoError(t, err)
	out, err := Invoke(context.Background(), tool, map[string]any{})
	assert.Nil(t, out)
	var te *ToolExecutionError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, "panic", te.Tool)
	assert.Contains(t, te.Err.Error(), "oops")
}

func TestNewDynamicTool(t *testing.T) {
	tool, err := NewDynamicTool("greet", "Greet someone", []Param{
		String("name", ""), Int("times", "", Default(1)), Bool("shout", "", Optional()), Float("w", "", Optional()),
	}, func(_ context.Context, args Args) (any, error) {
		assert.False(t, args.Has("shout"))
		assert.Equal(t, 0.0, args.Float("w"))
		assert.Equal(t, int64(2), args.Int64("times"))
		return map[string]any{"name": args.String("name"), "times": args.Int("times"), "shout": args.Bool("shout")}, nil
	})
	require.NoError(t, err)
	args, err := Coerce(tool, map[string]any{"name": "Ann", "times": "2"})
	require.NoError(t, err)
	out, err := Invoke(context.Background(), tool, args)
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"name": "Ann", "times": 2, "shout": false}, out)
}

func TestNewDynamicTool_NilHandler(t *testing.T) {
	_, err := NewDynamicTool("t", "d", nil, nil)
	var ite *InvalidToolError
	require.ErrorAs(t, err, &ite)
}

func TestNewTool_Timeout(t *testing.T) {
	tool, err := NewTool("t", "d", func() {}, nil, WithTimeout(42))
	require.NoError(t, err)
	meta, ok := tool.(ToolMetadata)
	require.True(t, ok)
	assert.EqualValues(t, 42, meta.Timeout())
}
