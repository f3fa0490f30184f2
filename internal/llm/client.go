package llm

import "context"

// Client is the interface that all reasoning-model providers implement.
type Client interface {
	// Chat sends a chat completion request and returns the response.
	// Tool definitions use the registry's wire shape:
	// {"type":"function","function":{"name":...,"description":...,"parameters":...}}.
	Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error)

	// Ping checks if the provider is reachable with the configured credentials.
	Ping(ctx context.Context) error
}
