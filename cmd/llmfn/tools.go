package main

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"
	"time"

	"github.com/skosovsky/llmfn"
)

// builtinTools lists the tools a function file may name, constructed on demand.
var builtinTools = map[string]func() (llmfn.Tool, error){
	"calculator": newCalculator,
	"clock":      newClock,
}

var errDivideByZero = errors.New("division by zero")

func newCalculator() (llmfn.Tool, error) {
	return llmfn.NewTool("calculator", "Apply an arithmetic operation to two numbers",
		func(op string, x, y float64) (float64, error) {
			switch op {
			case "add":
				return x + y, nil
			case "subtract":
				return x - y, nil
			case "multiply":
				return x * y, nil
			case "divide":
				if y == 0 {
					return 0, errDivideByZero
				}
				return x / y, nil
			}
			return 0, fmt.Errorf("unsupported operation %q", op)
		},
		[]llmfn.Param{
			llmfn.String("op", "Operation to apply", llmfn.Enum("add", "subtract", "multiply", "divide")),
			llmfn.Float("x", "Left operand"),
			llmfn.Float("y", "Right operand"),
		})
}

// now is replaced in tests.
var now = time.Now

func newClock() (llmfn.Tool, error) {
	return llmfn.NewTool("clock", "Current date and time, optionally in an IANA time zone",
		func(zone string) (string, error) {
			t := now()
			if zone != "" {
				loc, err := time.LoadLocation(zone)
				if err != nil {
					return "", err
				}
				t = t.In(loc)
			}
			return t.Format(time.RFC3339), nil
		},
		[]llmfn.Param{llmfn.String("zone", "IANA time zone such as Europe/Berlin", llmfn.Optional())})
}

// resolveTools builds the named built-in tools in order.
func resolveTools(names []string) ([]llmfn.Tool, error) {
	tools := make([]llmfn.Tool, 0, len(names))
	for _, name := range names {
		build, ok := builtinTools[name]
		if !ok {
			known := slices.Sorted(maps.Keys(builtinTools))
			return nil, fmt.Errorf("unknown tool %q (available: %s)", name, strings.Join(known, ", "))
		}
		t, err := build()
		if err != nil {
			return nil, err
		}
		tools = append(tools, t)
	}
	return tools, nil
}
