// Package agent runs the stylist's conversation loop: it assembles the
// model context from stored history, iterates tool calls until the
// model produces a final answer, and reconciles the finished turn back
// into the store.
package agent

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/keynar/stylegenie/internal/llm"
	"github.com/keynar/stylegenie/internal/prompts"
	"github.com/keynar/stylegenie/internal/store"
	"github.com/keynar/stylegenie/internal/tools"
)

const (
	defaultMaxIterations = 8
	maxTurnDuration      = 3 * time.Minute
)

// failedTurnText is shown and persisted when a turn cannot complete.
const failedTurnText = "Sorry, something went wrong while putting your answer together. Please try again."

// TurnInput is one user message entering the loop.
type TurnInput struct {
	UserID         string
	ConversationID int64
	Text           string
	Image          []byte // optional outfit photo
}

// TurnResult is the outcome of a turn.
type TurnResult struct {
	Text  string
	Image []byte // optional edited outfit photo

	Iterations   int
	InputTokens  int
	OutputTokens int

	// Failed marks a turn that ended in an error message rather than a
	// real answer. The message is still persisted so the user sees what
	// happened when they return.
	Failed bool
}

// Agent owns the conversation loop.
type Agent struct {
	logger        *slog.Logger
	llm           llm.Client
	registry      *tools.Registry
	store         *store.Store
	model         string
	maxIterations int
}

// New creates an agent.
func New(logger *slog.Logger, client llm.Client, registry *tools.Registry, st *store.Store, model string, maxIterations int) *Agent {
	if maxIterations <= 0 {
		maxIterations = defaultMaxIterations
	}
	return &Agent{
		logger:        logger,
		llm:           client,
		registry:      registry,
		store:         st,
		model:         model,
		maxIterations: maxIterations,
	}
}

// Run executes one turn. The returned result is always usable: loop
// failures come back as a Failed result with an apology text, and both
// success and failure are written to the conversation history. A
// persistence failure is logged but never hides an answer the user has
// already been shown.
func (a *Agent) Run(ctx context.Context, input TurnInput) (*TurnResult, error) {
	if input.Text == "" && len(input.Image) == 0 {
		return nil, fmt.Errorf("agent: empty turn")
	}

	conv, err := a.store.Load(input.UserID, input.ConversationID)
	if err != nil {
		return nil, fmt.Errorf("agent: %w", err)
	}

	source := input.Image
	if len(source) == 0 {
		// No photo attached this turn: fall back to the most recent
		// image in the conversation so "now make the jacket white"
		// keeps working after the upload turn.
		source = latestImage(conv.Messages)
	}
	turn := tools.NewTurn(input.UserID, source)
	ctx = tools.WithTurn(ctx, turn)

	messages := a.buildContext(conv.Messages, input)

	result := a.loop(ctx, messages)
	if !result.Failed {
		// A failed turn carries only the apology text; an image edited
		// before the failure would be unexplained, so it is discarded.
		result.Image = turn.TakePendingImage()
	}

	a.reconcile(conv, input, result)
	return result, nil
}

// loop drives model calls and tool execution until the model answers in
// text, the iteration bound is hit, or the wall clock runs out.
func (a *Agent) loop(ctx context.Context, messages []llm.Message) *TurnResult {
	result := &TurnResult{}
	toolDefs := a.registry.List()
	start := time.Now()

	for i := range a.maxIterations {
		if err := ctx.Err(); err != nil {
			a.logger.Warn("turn cancelled", "iter", i, "error", err)
			result.Text = failedTurnText
			result.Failed = true
			return result
		}
		if time.Since(start) > maxTurnDuration {
			a.logger.Warn("turn wall clock exceeded",
				"iter", i, "elapsed", time.Since(start).Round(time.Millisecond))
			break
		}

		resp, err := a.llm.Chat(ctx, a.model, messages, toolDefs)
		if err != nil {
			a.logger.Error("llm call failed", "iter", i, "error", err)
			result.Iterations = i + 1
			result.Text = failedTurnText
			result.Failed = true
			return result
		}

		result.Iterations = i + 1
		result.InputTokens += resp.InputTokens
		result.OutputTokens += resp.OutputTokens

		if len(resp.Message.ToolCalls) == 0 {
			result.Text = resp.Message.Content
			return result
		}

		messages = append(messages, resp.Message)
		for _, tc := range resp.Message.ToolCalls {
			toolStart := time.Now()
			out, err := a.registry.Execute(ctx, tc.Function.Name, tc.Function.Arguments)
			if err != nil {
				out = "Error: " + err.Error()
				a.logger.Error("tool exec failed",
					"tool", tc.Function.Name, "iter", i, "error", err)
			} else {
				a.logger.Debug("tool exec done",
					"tool", tc.Function.Name, "iter", i,
					"result_len", len(out),
					"elapsed", time.Since(toolStart).Round(time.Millisecond))
			}

			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    out,
				ToolCallID: tc.ID,
				ToolName:   tc.Function.Name,
			})
		}
	}

	// Bounds exhausted. One last call without tools forces a text
	// answer out of whatever the model has gathered so far.
	a.logger.Warn("iteration bound reached, forcing text response",
		"max_iterations", a.maxIterations)

	resp, err := a.llm.Chat(ctx, a.model, messages, nil)
	if err != nil {
		a.logger.Error("forced text response failed", "error", err)
		result.Text = failedTurnText
		result.Failed = true
		return result
	}

	result.Iterations++
	result.InputTokens += resp.InputTokens
	result.OutputTokens += resp.OutputTokens
	result.Text = resp.Message.Content
	return result
}

// buildContext converts stored history into model messages and appends
// the current user message, with its photo attached.
func (a *Agent) buildContext(history []store.Message, input TurnInput) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: prompts.AgentSystemPrompt(),
	})
	messages = append(messages, a.convertHistory(history)...)

	current := llm.Message{Role: "user", Content: input.Text}
	if len(input.Image) > 0 {
		current.Images = [][]byte{input.Image}
	}
	return append(messages, current)
}

// reconcile appends the finished turn to the conversation and saves it.
func (a *Agent) reconcile(conv *store.Conversation, input TurnInput, result *TurnResult) {
	userMsg := store.Message{Role: "user", Content: input.Text}
	if len(input.Image) > 0 {
		userMsg.Images = []string{encodeImage(input.Image)}
	}

	assistantMsg := store.Message{Role: "assistant", Content: result.Text}
	if len(result.Image) > 0 {
		assistantMsg.Images = []string{encodeImage(result.Image)}
	}

	updated := append(conv.Messages, userMsg, assistantMsg)

	if err := a.store.Save(conv.UserID, conv.ID, updated); err != nil {
		a.logger.Error("failed to persist turn",
			"conversation", conv.ID, "error", err)
		return
	}

	// First exchange names the conversation.
	if conv.Title == store.DefaultTitle && len(conv.Messages) == 0 && input.Text != "" {
		if err := a.store.Rename(conv.UserID, conv.ID, store.TitleFromMessage(input.Text)); err != nil {
			a.logger.Warn("failed to title conversation",
				"conversation", conv.ID, "error", err)
		}
	}
}
