// Package tools defines the tools available to the stylist agent.
package tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/keynar/stylegenie/internal/country"
	"github.com/keynar/stylegenie/internal/imagegen"
	"github.com/keynar/stylegenie/internal/memory"
	"github.com/keynar/stylegenie/internal/search"
)

// Tool represents a callable tool.
type Tool struct {
	Name        string                                                         `json:"name"`
	Description string                                                         `json:"description"`
	Parameters  map[string]any                                                 `json:"parameters"`
	Handler     func(ctx context.Context, args map[string]any) (string, error) `json:"-"`
}

// Registry holds available tools.
type Registry struct {
	tools  map[string]*Tool
	editor *imagegen.Editor
}

// NewRegistry creates a tool registry wired to the stylist's backends.
// Any nil dependency leaves its tools unregistered, so the agent only
// advertises what is actually configured.
func NewRegistry(editor *imagegen.Editor, searchMgr *search.Manager, countries *country.Client, memories *memory.Client) *Registry {
	r := &Registry{
		tools:  make(map[string]*Tool),
		editor: editor,
	}
	r.registerBuiltins(searchMgr, countries, memories)
	return r
}

func (r *Registry) registerBuiltins(searchMgr *search.Manager, countries *country.Client, memories *memory.Client) {
	if r.editor != nil {
		r.Register(&Tool{
			Name:        "edit_image",
			Description: "Apply a styling change to the outfit photo the user shared in this turn. Describe the change precisely; the person's identity, pose and background are preserved.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"instruction": map[string]any{
						"type":        "string",
						"description": "The edit to apply, e.g. 'replace the jacket with a beige trench coat'.",
					},
				},
				"required": []string{"instruction"},
			},
			Handler: r.handleEditImage,
		})
	}

	if searchMgr != nil && searchMgr.Configured() {
		r.Register(&Tool{
			Name:        "web_search",
			Description: "Search the web for shopping links and fashion information. Use after user_country so results match where the user lives.",
			Parameters:  search.ToolDefinition(),
			Handler:     search.ToolHandler(searchMgr),
		})
	}

	if countries != nil {
		r.Register(&Tool{
			Name:        "user_country",
			Description: "Look up country facts (currency, languages, region) for the user's country before recommending shops or prices.",
			Parameters:  country.ToolDefinition(),
			Handler:     country.ToolHandler(countries),
		})
	}

	if memories != nil {
		r.Register(&Tool{
			Name:        "add_memories",
			Description: "Store a durable fact about the user (name, sizes, style preferences, location). Call whenever the user reveals something worth remembering.",
			Parameters:  memory.AddToolDefinition(),
			Handler:     memory.AddToolHandler(memories, UserIDFromContext),
		})
		r.Register(&Tool{
			Name:        "search_memories",
			Description: "Search stored facts about the user relevant to the current request.",
			Parameters:  memory.SearchToolDefinition(),
			Handler:     memory.SearchToolHandler(memories, UserIDFromContext),
		})
		r.Register(&Tool{
			Name:        "get_all_memories",
			Description: "List everything stored about the user. Use at the start of a conversation to recall who they are.",
			Parameters:  memory.GetAllToolDefinition(),
			Handler:     memory.GetAllToolHandler(memories, UserIDFromContext),
		})
	}
}

// Register adds a tool to the registry.
func (r *Registry) Register(t *Tool) {
	r.tools[t.Name] = t
}

// Get retrieves a tool by name.
func (r *Registry) Get(name string) *Tool {
	return r.tools[name]
}

// List returns all tools in the wire shape the LLM clients expect.
func (r *Registry) List() []map[string]any {
	var result []map[string]any
	for _, t := range r.tools {
		result = append(result, map[string]any{
			"type": "function",
			"function": map[string]any{
				"name":        t.Name,
				"description": t.Description,
				"parameters":  t.Parameters,
			},
		})
	}
	return result
}

// Execute runs a tool by name with given arguments.
func (r *Registry) Execute(ctx context.Context, name string, args map[string]any) (string, error) {
	tool := r.tools[name]
	if tool == nil {
		return "", fmt.Errorf("unknown tool: %s", name)
	}
	return tool.Handler(ctx, args)
}

// Tool handlers

func (r *Registry) handleEditImage(ctx context.Context, args map[string]any) (string, error) {
	instruction, _ := args["instruction"].(string)
	if instruction == "" {
		return "", fmt.Errorf("edit_image: instruction is required")
	}

	turn := TurnFromContext(ctx)
	if turn == nil || len(turn.SourceImage) == 0 {
		return "No outfit photo was shared in this conversation. Ask the user to attach one before editing.", nil
	}

	result, err := r.editor.Edit(ctx, turn.SourceImage, instruction)
	if errors.Is(err, imagegen.ErrNoSourceImage) {
		return "The attached file is not a usable image. Ask the user to re-upload the photo.", nil
	}
	if err != nil {
		return "", fmt.Errorf("edit_image: %w", err)
	}

	turn.SetPendingImage(result.Image)
	if result.Text != "" {
		return "Edited image is ready to show the user. Model notes: " + result.Text, nil
	}
	return "Edited image is ready to show the user.", nil
}
