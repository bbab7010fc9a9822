// Command llmfn runs a prompt template defined in a YAML file against an OpenAI-compatible
// chat endpoint, resolving the model's tool calls with built-in tools.
//
//	llmfn run --input a=2 --input b=3 add.yaml
package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lmittmann/tint"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/urfave/cli/v3"

	"github.com/skosovsky/llmfn"
	"github.com/skosovsky/llmfn/internal/config"
	"github.com/skosovsky/llmfn/models"
)

const version = "0.1.0"

// modelSettings is the resolved model configuration for one run.
type modelSettings struct {
	Model       string
	BaseURL     string
	Token       string
	Temperature *float64
	MaxTokens   int
}

// modelFactory builds the model used by run. Replaced in tests.
type modelFactory func(s modelSettings, logger *slog.Logger) (llmfn.Model, error)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := newApp(openAIModel).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newApp(newModel modelFactory) *cli.Command {
	return &cli.Command{
		Name:    "llmfn",
		Usage:   "call language models like functions",
		Version: version,
		Flags: []cli.Flag{
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"V"}, Usage: "log model turns and tool calls", Sources: cli.EnvVars("LLMFN_VERBOSE")},
		},
		Commands: []*cli.Command{
			{
				Name:      "run",
				Usage:     "render a function file with inputs and print the model's answer",
				ArgsUsage: "FILE",
				Flags: []cli.Flag{
					&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Usage: "template input as key=value (repeatable)"},
					&cli.StringFlag{Name: "model", Aliases: []string{"m"}, Value: "gpt-4o-mini", Usage: "model name", Sources: cli.EnvVars("LLMFN_MODEL")},
					&cli.StringFlag{Name: "baseurl", Usage: "OpenAI-compatible API base URL", Sources: cli.EnvVars("LLMFN_BASEURL", "OPENAI_BASE_URL")},
					&cli.StringFlag{Name: "token", Usage: "API key", Sources: cli.EnvVars("LLMFN_TOKEN", "OPENAI_API_KEY")},
					&cli.DurationFlag{Name: "timeout", Aliases: []string{"t"}, Value: 2 * time.Minute, Usage: "timeout for the whole call", Sources: cli.EnvVars("LLMFN_TIMEOUT")},
					&cli.DurationFlag{Name: "tooltimeout", Value: 30 * time.Second, Usage: "timeout for each tool call", Sources: cli.EnvVars("LLMFN_TOOLTIMEOUT")},
					&cli.BoolFlag{Name: "json", Usage: "print the result with conversation metadata as JSON"},
				},
				Action: func(ctx context.Context, cmd *cli.Command) error {
					return runFunction(ctx, cmd, newModel)
				},
			},
			{
				Name:  "tools",
				Usage: "list built-in tools and their parameter schemas",
				Action: func(_ context.Context, cmd *cli.Command) error {
					return listTools(cmd)
				},
			},
		},
	}
}

func newLogger(verbose bool) *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(tint.NewHandler(os.Stderr, &tint.Options{Level: level, TimeFormat: time.Kitchen}))
}

func runFunction(ctx context.Context, cmd *cli.Command, newModel modelFactory) error {
	if cmd.Args().Len() != 1 {
		return errors.New("expected exactly one function file")
	}
	logger := newLogger(cmd.Root().Bool("verbose"))

	def, err := config.Load(cmd.Args().First())
	if err != nil {
		return err
	}
	inputs, err := def.MergeInputs(cmd.StringSlice("input"))
	if err != nil {
		return err
	}
	tpl, err := def.ParsedTemplate()
	if err != nil {
		return err
	}
	tools, err := resolveTools(def.Tools)
	if err != nil {
		return err
	}

	settings := modelSettings{
		Model:       cmd.String("model"),
		BaseURL:     cmd.String("baseurl"),
		Token:       cmd.String("token"),
		Temperature: def.Model.Temperature,
		MaxTokens:   def.Model.MaxTokens,
	}
	if def.Model.Name != "" && !cmd.IsSet("model") {
		settings.Model = def.Model.Name
	}
	model, err := newModel(settings, logger)
	if err != nil {
		return err
	}

	opts := append(def.Options(),
		llmfn.WithTools(tools...),
		llmfn.WithLogger(logger),
		llmfn.WithMiddleware(llmfn.WithLogging(logger)),
		llmfn.WithRegistryOptions(llmfn.WithDefaultTimeout(cmd.Duration("tooltimeout"))),
	)
	fn, err := llmfn.New(tpl, model, opts...)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, cmd.Duration("timeout"))
	defer cancel()
	res, err := fn.Call(ctx, inputs)
	if err != nil {
		return err
	}

	out := cmd.Root().Writer
	if cmd.Bool("json") {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			Function string `json:"function,omitempty"`
			Text     string `json:"text"`
			Turns    int    `json:"turns"`
		}{def.Name, res.Text, res.Turns})
	}
	_, err = fmt.Fprintln(out, res.Text)
	return err
}

func listTools(cmd *cli.Command) error {
	tools, err := resolveTools([]string{"calculator", "clock"})
	if err != nil {
		return err
	}
	descs := make([]llmfn.ToolDescriptor, len(tools))
	for i, t := range tools {
		descs[i] = llmfn.Describe(t)
	}
	enc := json.NewEncoder(cmd.Root().Writer)
	enc.SetIndent("", "  ")
	return enc.Encode(descs)
}

// openAIModel connects to an OpenAI-compatible endpoint through LangChainGo.
func openAIModel(s modelSettings, logger *slog.Logger) (llmfn.Model, error) {
	opts := []openai.Option{openai.WithModel(s.Model)}
	if s.Token != "" {
		opts = append(opts, openai.WithToken(s.Token))
	}
	if s.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(s.BaseURL))
	}
	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("create openai client: %w", err)
	}
	model := models.NewLCG(llm).WithLogger(logger)
	if s.Temperature != nil {
		model.WithCallOptions(llms.WithTemperature(*s.Temperature))
	}
	if s.MaxTokens > 0 {
		model.WithCallOptions(llms.WithMaxTokens(s.MaxTokens))
	}
	return model, nil
}
