package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/skosovsky/llmfn"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

const addYAML = `
name: add
system_prompt: You are a careful calculator.
template: Compute {a} plus {b}
max_turns: 4
tools: [calculator]
inputs:
  b: 3
model:
  name: gpt-4o-mini
  temperature: 0
`

func TestParse(t *testing.T) {
	def, err := Parse([]byte(addYAML))
	require.NoError(t, err)
	assert.Equal(t, "add", def.Name)
	assert.Equal(t, "Compute {a} plus {b}", def.Template)
	require.NotNil(t, def.MaxTurns)
	assert.Equal(t, 4, *def.MaxTurns)
	assert.Equal(t, []string{"calculator"}, def.Tools)
	assert.Equal(t, map[string]any{"b": 3}, def.Inputs)
	assert.Equal(t, "gpt-4o-mini", def.Model.Name)
	require.NotNil(t, def.Model.Temperature)
	assert.Zero(t, *def.Model.Temperature)

	tpl, err := def.ParsedTemplate()
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b"}, tpl.Variables())
	assert.Len(t, def.Options(), 2)
}

func TestParse_Errors(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no template", "name: x\n"},
		{"expression site", "template: '{a+1}'\n"},
		{"negative turns", "template: hi\nmax_turns: -1\n"},
		{"duplicate tool", "template: hi\ntools: [clock, clock]\n"},
		{"unknown key", "template: hi\ntemprature: 1\n"},
		{"not yaml", "template: [\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)
		})
	}
}

func TestParse_TemplateErrorType(t *testing.T) {
	_, err := Parse([]byte("template: 'Total {price*qty}'\n"))
	var ite *llmfn.InvalidTemplateError
	require.ErrorAs(t, err, &ite)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "add.yaml")
	require.NoError(t, os.WriteFile(path, []byte(addYAML), 0o600))
	def, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "add", def.Name)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}

func TestMergeInputs(t *testing.T) {
	def, err := Parse([]byte(addYAML))
	require.NoError(t, err)
	inputs, err := def.MergeInputs([]string{"a=2", "b = 7", "note=x=y"})
	require.NoError(t, err)
	assert.Equal(t, map[string]any{"a": "2", "b": " 7", "note": "x=y"}, inputs)
	assert.Equal(t, map[string]any{"b": 3}, def.Inputs)

	_, err = def.MergeInputs([]string{"novalue"})
	require.Error(t, err)
	_, err = def.MergeInputs([]string{"=v"})
	require.Error(t, err)
}

func TestOptions_Empty(t *testing.T) {
	def, err := Parse([]byte("template: hi\n"))
	require.NoError(t, err)
	assert.Empty(t, def.Options())
}
