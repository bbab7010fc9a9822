package llmfn

// Message is one entry of a conversation. The set of variants is closed:
// *SystemMessage, *UserMessage, *ToolCallMessage and *ToolOutputMessage.
type Message interface {
	isMessage()
}

// SystemMessage carries the leading system prompt.
type SystemMessage struct {
	Content string
}

// UserMessage carries the rendered prompt.
type UserMessage struct {
	Content string
}

// ToolCallMessage records a model turn that requested tools. Native is the provider's own
// representation of that turn, kept verbatim so the next request replays exactly what the
// model emitted. Only the Model implementation that produced it interprets Native.
type ToolCallMessage struct {
	Calls  []ToolCall
	Native any
}

// ToolOutputMessage answers a ToolCallMessage. Results[i] belongs to Request.Calls[i].
type ToolOutputMessage struct {
	Request *ToolCallMessage
	Results []ToolResult
}

func (*SystemMessage) isMessage()     {}
func (*UserMessage) isMessage()       {}
func (*ToolCallMessage) isMessage()   {}
func (*ToolOutputMessage) isMessage() {}

// ModelOutput is the result of one model turn: *TextOutput or *ToolCallsOutput.
type ModelOutput interface {
	isModelOutput()
}

// TextOutput is a final answer.
type TextOutput struct {
	Content string
}

// ToolCallsOutput requests tool execution. Native is copied into the ToolCallMessage.
type ToolCallsOutput struct {
	Calls  []ToolCall
	Native any
}

func (*TextOutput) isModelOutput()      {}
func (*ToolCallsOutput) isModelOutput() {}
