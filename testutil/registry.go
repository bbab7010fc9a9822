package testutil

import (
	"time"

	"github.com/skosovsky/llmfn"
)

// NewTestRegistry returns a Registry with a long timeout holding tools, suitable for tests.
// It panics if a tool cannot be registered.
func NewTestRegistry(tools ...llmfn.Tool) *llmfn.Registry {
	reg := llmfn.NewRegistry(
		llmfn.WithDefaultTimeout(30 * time.Second),
	)
	for _, t := range tools {
		if err := reg.Register(t); err != nil {
			panic(err)
		}
	}
	return reg
}
