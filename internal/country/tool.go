package country

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
)

// ToolHandler returns a function compatible with the tools.Tool Handler
// signature. Lookup failures for unknown names are reported as tool
// output rather than errors so the model can ask the user to clarify.
func ToolHandler(c *Client) func(ctx context.Context, args map[string]any) (string, error) {
	return func(ctx context.Context, args map[string]any) (string, error) {
		name, _ := args["country"].(string)
		if name == "" {
			return "", fmt.Errorf("user_country: country is required")
		}

		info, err := c.Lookup(ctx, name)
		if errors.Is(err, ErrNotFound) {
			return fmt.Sprintf("No country found matching %q. Ask the user to confirm the country name.", name), nil
		}
		if err != nil {
			return "", err
		}

		out, err := json.Marshal(info)
		if err != nil {
			return "", fmt.Errorf("user_country: encode result: %w", err)
		}
		return string(out), nil
	}
}

// ToolDefinition returns the JSON Schema parameters for the user_country tool.
func ToolDefinition() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"country": map[string]any{
				"type":        "string",
				"description": "Country name as the user stated it, e.g. 'Germany' or 'South Korea'.",
			},
		},
		"required": []string{"country"},
	}
}
