package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// unavailableNotice is what the model sees when the memory service is
// down. The turn continues without memories instead of failing.
const unavailableNotice = "Memory service is currently unavailable. Continue without stored memories."

// AddToolHandler returns the handler for the add_memories tool. The
// user identity comes from the turn, not from model-supplied arguments.
func AddToolHandler(c *Client, userID func(ctx context.Context) string) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		fact, _ := args["memory"].(string)
		if fact == "" {
			return "", fmt.Errorf("add_memories: memory is required")
		}

		if err := c.Add(ctx, fact, userID(ctx)); err != nil {
			if errors.Is(err, ErrUnavailable) {
				return unavailableNotice, nil
			}
			return "", err
		}
		return "Memory stored.", nil
	}
}

// SearchToolHandler returns the handler for the search_memories tool.
func SearchToolHandler(c *Client, userID func(ctx context.Context) string) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		query, _ := args["query"].(string)
		if query == "" {
			return "", fmt.Errorf("search_memories: query is required")
		}

		memories, err := c.Search(ctx, query, userID(ctx))
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return unavailableNotice, nil
			}
			return "", err
		}
		return FormatMemories(memories), nil
	}
}

// GetAllToolHandler returns the handler for the get_all_memories tool.
func GetAllToolHandler(c *Client, userID func(ctx context.Context) string) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, _ map[string]any) (string, error) {
		memories, err := c.GetAll(ctx, userID(ctx))
		if err != nil {
			if errors.Is(err, ErrUnavailable) {
				return unavailableNotice, nil
			}
			return "", err
		}
		return FormatMemories(memories), nil
	}
}

// FormatMemories renders memories as a bullet list for the model.
func FormatMemories(memories []Memory) string {
	if len(memories) == 0 {
		return "No memories found."
	}

	var b strings.Builder
	for _, m := range memories {
		b.WriteString("- ")
		b.WriteString(m.Text)
		b.WriteByte('\n')
	}
	return strings.TrimRight(b.String(), "\n")
}

// AddToolDefinition returns the JSON Schema parameters for add_memories.
func AddToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"memory": map[string]any{
				"type":        "string",
				"description": "A single durable fact about the user, e.g. 'Prefers minimalist style' or 'Name is Dana'.",
			},
		},
		"required": []string{"memory"},
	}
}

// SearchToolDefinition returns the JSON Schema parameters for search_memories.
func SearchToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to look for in stored memories, e.g. 'color preferences'.",
			},
		},
		"required": []string{"query"},
	}
}

// GetAllToolDefinition returns the JSON Schema parameters for get_all_memories.
func GetAllToolDefinition() map[string]any {
	return map[string]any{
		"type":       "object",
		"properties": map[string]any{},
	}
}
