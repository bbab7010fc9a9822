// Package config loads function definitions for the llmfn command.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"maps"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/skosovsky/llmfn"
)

// Definition describes one function: its prompt template and how the conversation is run.
//
//	name: add
//	system_prompt: You are a careful calculator.
//	template: Compute {a} plus {b}
//	max_turns: 4
//	tools: [calculator]
//	inputs:
//	  b: 3
type Definition struct {
	Name         string         `yaml:"name"`
	Description  string         `yaml:"description"`
	Template     string         `yaml:"template"`
	SystemPrompt string         `yaml:"system_prompt"`
	MaxTurns     *int           `yaml:"max_turns"`
	Tools        []string       `yaml:"tools"`
	Inputs       map[string]any `yaml:"inputs"`
	Model        ModelConfig    `yaml:"model"`
}

// ModelConfig holds per-function model settings. Empty fields fall back to CLI flags.
type ModelConfig struct {
	Name        string   `yaml:"name"`
	Temperature *float64 `yaml:"temperature"`
	MaxTokens   int      `yaml:"max_tokens"`
}

// Load reads and validates a definition file.
func Load(path string) (*Definition, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read function file: %w", err)
	}
	def, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return def, nil
}

// Parse decodes and validates a YAML definition. Unknown keys are rejected.
func Parse(data []byte) (*Definition, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	var def Definition
	if err := dec.Decode(&def); err != nil {
		return nil, fmt.Errorf("decode function file: %w", err)
	}
	if err := def.Validate(); err != nil {
		return nil, err
	}
	return &def, nil
}

// Validate checks that the template parses and the settings are in range.
func (d *Definition) Validate() error {
	if strings.TrimSpace(d.Template) == "" {
		return errors.New("template is required")
	}
	if _, err := llmfn.ParseTemplate(d.Template); err != nil {
		return err
	}
	if d.MaxTurns != nil && *d.MaxTurns < 0 {
		return fmt.Errorf("max_turns must not be negative, got %d", *d.MaxTurns)
	}
	seen := make(map[string]struct{}, len(d.Tools))
	for _, name := range d.Tools {
		if _, dup := seen[name]; dup {
			return fmt.Errorf("tool %q listed twice", name)
		}
		seen[name] = struct{}{}
	}
	return nil
}

// ParsedTemplate returns the definition's template. Validate has already checked it.
func (d *Definition) ParsedTemplate() (*llmfn.Template, error) {
	return llmfn.ParseTemplate(d.Template)
}

// Options converts the definition to Function options. Tools are not included; the caller
// resolves d.Tools against what it can provide.
func (d *Definition) Options() []llmfn.Option {
	var opts []llmfn.Option
	if d.SystemPrompt != "" {
		opts = append(opts, llmfn.WithSystemPrompt(d.SystemPrompt))
	}
	if d.MaxTurns != nil {
		opts = append(opts, llmfn.WithMaxTurns(*d.MaxTurns))
	}
	return opts
}

// MergeInputs returns the definition's default inputs overridden by key=value pairs.
// Values from pairs are strings.
func (d *Definition) MergeInputs(pairs []string) (map[string]any, error) {
	out := make(map[string]any, len(d.Inputs)+len(pairs))
	maps.Copy(out, d.Inputs)
	for _, pair := range pairs {
		key, value, ok := strings.Cut(pair, "=")
		key = strings.TrimSpace(key)
		if !ok || key == "" {
			return nil, fmt.Errorf("input %q: expected key=value", pair)
		}
		out[key] = value
	}
	return out, nil
}
