// Package llm provides reasoning-model client implementations.
package llm

// Message represents a chat message for the LLM.
//
// Images carry raw bytes; each provider encodes them at its wire boundary
// (base64 inline data for Gemini, base64 image blocks for Anthropic).
type Message struct {
	Role       string     `json:"role"` // system, user, assistant, tool
	Content    string     `json:"content"`
	Images     [][]byte   `json:"-"`
	ToolCalls  []ToolCall `json:"tool_calls,omitempty"`
	ToolCallID string     `json:"tool_call_id,omitempty"` // Anthropic correlates tool results by id
	ToolName   string     `json:"tool_name,omitempty"`    // Gemini correlates tool results by name
}

// ToolCall represents a tool invocation requested by the model.
type ToolCall struct {
	ID       string `json:"id,omitempty"`
	Function struct {
		Name      string         `json:"name"`
		Arguments map[string]any `json:"arguments"`
	} `json:"function"`
}

// NewToolCall builds a ToolCall. The inline struct literal for Function is
// awkward at call sites, so constructors and tests go through this helper.
func NewToolCall(id, name string, args map[string]any) ToolCall {
	var tc ToolCall
	tc.ID = id
	tc.Function.Name = name
	tc.Function.Arguments = args
	return tc
}

// ChatResponse is the unified response from any provider. All fields use
// provider-neutral Go types; wire format conversion happens at provider
// boundaries (gemini.go, anthropic.go).
type ChatResponse struct {
	Model        string
	Message      Message
	FinishReason string

	// Token usage (provider-neutral)
	InputTokens  int
	OutputTokens int
}
