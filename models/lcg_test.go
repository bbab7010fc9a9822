package models

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"

	"github.com/skosovsky/llmfn"
)

// fakeLLM records the last request and answers with a fixed response.
type fakeLLM struct {
	resp     *llms.ContentResponse
	err      error
	messages []llms.MessageContent
	options  llms.CallOptions
}

func (f *fakeLLM) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	options ...llms.CallOption,
) (*llms.ContentResponse, error) {
	f.messages = messages
	f.options = llms.CallOptions{}
	for _, opt := range options {
		opt(&f.options)
	}
	return f.resp, f.err
}

func (f *fakeLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, f, prompt, options...)
}

func textResponse(content string) *llms.ContentResponse {
	return &llms.ContentResponse{Choices: []*llms.ContentChoice{{Content: content, StopReason: "stop"}}}
}

func TestLCG_Text(t *testing.T) {
	llm := &fakeLLM{resp: textResponse("5")}
	model := NewLCG(llm).WithCallOptions(llms.WithTemperature(0.2))
	out, err := model.Generate(context.Background(), []llmfn.Message{
		&llmfn.SystemMessage{Content: "be brief"},
		&llmfn.UserMessage{Content: "Compute 2 plus 3"},
	}, nil)
	require.NoError(t, err)
	assert.Equal(t, &llmfn.TextOutput{Content: "5"}, out)

	require.Len(t, llm.messages, 2)
	assert.Equal(t, llms.TextParts(llms.ChatMessageTypeSystem, "be brief"), llm.messages[0])
	assert.Equal(t, llms.TextParts(llms.ChatMessageTypeHuman, "Compute 2 plus 3"), llm.messages[1])
	assert.InDelta(t, 0.2, llm.options.Temperature, 1e-9)
	assert.Empty(t, llm.options.Tools)
	assert.Same(t, llm, model.Unwrap())
}

func TestLCG_ToolCalls(t *testing.T) {
	native := []llms.ToolCall{{
		ID:           "call_1",
		Type:         "function",
		FunctionCall: &llms.FunctionCall{Name: "addTool", Arguments: `{"x":"2","y":3}`},
	}}
	llm := &fakeLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: native}}}}
	model := NewLCG(llm)
	tools := []llmfn.ToolDescriptor{{
		Name:        "addTool",
		Description: "Add two integers",
		Parameters:  map[string]any{"type": "object"},
	}}

	out, err := model.Generate(context.Background(), []llmfn.Message{&llmfn.UserMessage{Content: "hi"}}, tools)
	require.NoError(t, err)
	calls, ok := out.(*llmfn.ToolCallsOutput)
	require.True(t, ok)
	require.Len(t, calls.Calls, 1)
	assert.Equal(t, llmfn.ToolCall{ID: "call_1", Name: "addTool", Params: map[string]any{"x": "2", "y": float64(3)}}, calls.Calls[0])
	assert.Equal(t, native, calls.Native)

	require.Len(t, llm.options.Tools, 1)
	assert.Equal(t, "function", llm.options.Tools[0].Type)
	assert.Equal(t, "addTool", llm.options.Tools[0].Function.Name)
	assert.Equal(t, "Add two integers", llm.options.Tools[0].Function.Description)
}

func TestLCG_SkipsNonFunctionToolCalls(t *testing.T) {
	llm := &fakeLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		Content:   "5",
		ToolCalls: []llms.ToolCall{{ID: "c1", Type: "code_interpreter"}},
	}}}}
	out, err := NewLCG(llm).Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, &llmfn.TextOutput{Content: "5"}, out)

	fn := &llms.ToolCall{ID: "c2", Type: "function", FunctionCall: &llms.FunctionCall{Name: "t", Arguments: "{}"}}
	llm.resp.Choices[0].ToolCalls = append(llm.resp.Choices[0].ToolCalls, *fn)
	out, err = NewLCG(llm).Generate(context.Background(), nil, nil)
	require.NoError(t, err)
	calls, ok := out.(*llmfn.ToolCallsOutput)
	require.True(t, ok)
	require.Len(t, calls.Calls, 1)
	assert.Equal(t, []llms.ToolCall{*fn}, calls.Native)
}

func TestLCG_Errors(t *testing.T) {
	errProvider := errors.New("quota exceeded")
	model := NewLCG(&fakeLLM{err: errProvider})
	_, err := model.Generate(context.Background(), nil, nil)
	assert.Same(t, errProvider, err)

	model = NewLCG(&fakeLLM{resp: &llms.ContentResponse{}})
	_, err = model.Generate(context.Background(), nil, nil)
	require.ErrorIs(t, err, ErrNoChoices)

	model = NewLCG(&fakeLLM{resp: &llms.ContentResponse{Choices: []*llms.ContentChoice{{
		ToolCalls: []llms.ToolCall{{ID: "c", FunctionCall: &llms.FunctionCall{Name: "t", Arguments: "{bad"}}},
	}}}})
	_, err = model.Generate(context.Background(), nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid arguments JSON")
}

func TestToMessageContent_ToolTurn(t *testing.T) {
	request := &llmfn.ToolCallMessage{Calls: []llmfn.ToolCall{
		{ID: "a", Name: "addTool", Params: map[string]any{"x": 1, "y": 2}},
		{ID: "b", Name: "clock", Params: nil},
	}}
	msgs, err := ToMessageContent([]llmfn.Message{
		request,
		&llmfn.ToolOutputMessage{Request: request, Results: []llmfn.ToolResult{
			{CallID: "a", ToolName: "addTool", Output: 3},
			{CallID: "b", ToolName: "clock", Output: time.Duration(0)},
		}},
	})
	require.NoError(t, err)
	require.Len(t, msgs, 3)

	assert.Equal(t, llms.ChatMessageTypeAI, msgs[0].Role)
	require.Len(t, msgs[0].Parts, 2)
	first := msgs[0].Parts[0].(llms.ToolCall)
	assert.Equal(t, "a", first.ID)
	assert.JSONEq(t, `{"x":1,"y":2}`, first.FunctionCall.Arguments)
	assert.Equal(t, "{}", msgs[0].Parts[1].(llms.ToolCall).FunctionCall.Arguments)

	assert.Equal(t, llms.MessageContent{
		Role:  llms.ChatMessageTypeTool,
		Parts: []llms.ContentPart{llms.ToolCallResponse{ToolCallID: "a", Name: "addTool", Content: "3"}},
	}, msgs[1])
	assert.Equal(t, "0s", msgs[2].Parts[0].(llms.ToolCallResponse).Content)
}

func TestToMessageContent_ReplaysNative(t *testing.T) {
	native := []llms.ToolCall{{ID: "n1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "t", Arguments: `{"raw": "as sent"}`}}}
	msgs, err := ToMessageContent([]llmfn.Message{&llmfn.ToolCallMessage{
		Calls:  []llmfn.ToolCall{{ID: "n1", Name: "t", Params: map[string]any{"raw": "as sent"}}},
		Native: native,
	}})
	require.NoError(t, err)
	assert.Equal(t, `{"raw": "as sent"}`, msgs[0].Parts[0].(llms.ToolCall).FunctionCall.Arguments)
}

func TestFormatOutput(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{"plain", "plain"},
		{nil, "null"},
		{5, "5"},
		{map[string]any{"ok": true}, `{"ok":true}`},
		{[]int{1, 2}, "[1,2]"},
		{time.Second, "1s"},
	}
	for _, tt := range tests {
		got, err := FormatOutput(tt.in)
		require.NoError(t, err)
		assert.Equal(t, tt.want, got)
	}
	_, err := FormatOutput(func() {})
	require.Error(t, err)
}

func TestLCG_FunctionEndToEnd(t *testing.T) {
	turn := 0
	llm := &scriptedLLM{respond: func(messages []llms.MessageContent) *llms.ContentResponse {
		turn++
		if turn == 1 {
			return &llms.ContentResponse{Choices: []*llms.ContentChoice{{ToolCalls: []llms.ToolCall{{
				ID: "c1", Type: "function", FunctionCall: &llms.FunctionCall{Name: "addTool", Arguments: `{"x": 2, "y": 3}`},
			}}}}}
		}
		last := messages[len(messages)-1]
		return textResponse(last.Parts[0].(llms.ToolCallResponse).Content)
	}}
	add, err := llmfn.NewTool("addTool", "Add", func(x, y int) int { return x + y },
		[]llmfn.Param{llmfn.Int("x", ""), llmfn.Int("y", "")})
	require.NoError(t, err)
	fn, err := llmfn.New(llmfn.MustParseTemplate("Compute {a} plus {b}"), NewLCG(llm), llmfn.WithTools(add))
	require.NoError(t, err)
	out, err := fn.Text(context.Background(), map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Equal(t, "5", out)
}

type scriptedLLM struct {
	respond func([]llms.MessageContent) *llms.ContentResponse
}

func (s *scriptedLLM) GenerateContent(
	_ context.Context,
	messages []llms.MessageContent,
	_ ...llms.CallOption,
) (*llms.ContentResponse, error) {
	return s.respond(messages), nil
}

func (s *scriptedLLM) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	return llms.GenerateFromSinglePrompt(ctx, s, prompt, options...)
}

func TestLCG_OpenAI(t *testing.T) {
	apiKey := os.Getenv("LLMFN_TEST_OPENAI_KEY")
	if apiKey == "" {
		t.Skip("LLMFN_TEST_OPENAI_KEY not set")
	}
	llm, err := openai.New(openai.WithToken(apiKey), openai.WithModel("gpt-4o-mini"))
	require.NoError(t, err)
	add, err := llmfn.NewTool("addTool", "Add two integers", func(x, y int) int { return x + y },
		[]llmfn.Param{llmfn.Int("x", "first addend"), llmfn.Int("y", "second addend")})
	require.NoError(t, err)
	fn, err := llmfn.New(
		llmfn.MustParseTemplate("Use the tool to compute {a} plus {b}. Reply with the number only."),
		NewLCG(llm), llmfn.WithTools(add))
	require.NoError(t, err)
	out, err := fn.Text(context.Background(), map[string]any{"a": 2, "b": 3})
	require.NoError(t, err)
	assert.Contains(t, out, "5")
}
