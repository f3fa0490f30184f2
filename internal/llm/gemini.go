package llm

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/keynar/stylegenie/internal/config"
	"github.com/keynar/stylegenie/internal/httpkit"
)

const geminiAPIBase = "https://generativelanguage.googleapis.com/v1beta/models"

// GeminiClient is a client for the Gemini generateContent API.
type GeminiClient struct {
	apiKey     string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewGeminiClient creates a new Gemini client.
func NewGeminiClient(apiKey string, logger *slog.Logger) *GeminiClient {
	if logger == nil {
		logger = slog.Default()
	}
	// Model responses can take significant time before sending headers,
	// especially with large inline images in the prompt. Use a custom
	// transport with a generous response header timeout.
	t := httpkit.NewTransport()
	t.ResponseHeaderTimeout = 120 * time.Second

	return &GeminiClient{
		apiKey: apiKey,
		logger: logger.With("provider", "gemini"),
		httpClient: httpkit.NewClient(
			// No global timeout — rely on ctx deadlines for timeout control.
			httpkit.WithTimeout(0),
			httpkit.WithTransport(t),
		),
	}
}

// Gemini request/response types

type geminiRequest struct {
	SystemInstruction *geminiContent  `json:"systemInstruction,omitempty"`
	Contents          []geminiContent `json:"contents"`
	Tools             []geminiTool    `json:"tools,omitempty"`
}

type geminiContent struct {
	Role  string       `json:"role,omitempty"` // user or model
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text             string                  `json:"text,omitempty"`
	InlineData       *geminiBlob             `json:"inlineData,omitempty"`
	FunctionCall     *geminiFunctionCall     `json:"functionCall,omitempty"`
	FunctionResponse *geminiFunctionResponse `json:"functionResponse,omitempty"`
}

type geminiBlob struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"` // base64
}

type geminiFunctionCall struct {
	Name string         `json:"name"`
	Args map[string]any `json:"args"`
}

type geminiFunctionResponse struct {
	Name     string         `json:"name"`
	Response map[string]any `json:"response"`
}

type geminiTool struct {
	FunctionDeclarations []geminiFunctionDecl `json:"functionDeclarations"`
}

type geminiFunctionDecl struct {
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Parameters  any    `json:"parameters,omitempty"`
}

type geminiResponse struct {
	Candidates []struct {
		Content      geminiContent `json:"content"`
		FinishReason string        `json:"finishReason"`
	} `json:"candidates"`
	UsageMetadata struct {
		PromptTokenCount     int `json:"promptTokenCount"`
		CandidatesTokenCount int `json:"candidatesTokenCount"`
	} `json:"usageMetadata"`
	Error *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Status  string `json:"status"`
	} `json:"error"`
}

// Chat sends a generateContent request to Gemini.
func (c *GeminiClient) Chat(ctx context.Context, model string, messages []Message, tools []map[string]any) (*ChatResponse, error) {
	contents, system := convertToGemini(messages)

	req := geminiRequest{
		Contents: contents,
		Tools:    convertToolsToGemini(tools),
	}
	if system != "" {
		req.SystemInstruction = &geminiContent{Parts: []geminiPart{{Text: system}}}
	}

	c.logger.Debug("preparing request",
		"model", model,
		"contents", len(contents),
		"tools", len(tools),
		"system_len", len(system),
	)

	jsonData, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}
	c.logger.Log(ctx, config.LevelTrace, "request payload", "json", string(jsonData))

	url := fmt.Sprintf("%s/%s:generateContent", geminiAPIBase, model)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 4096)
		c.logger.Error("API error", "status", resp.StatusCode, "body", errBody)
		return nil, fmt.Errorf("gemini API error %d: %s", resp.StatusCode, errBody)
	}

	var gr geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&gr); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if gr.Error != nil {
		return nil, fmt.Errorf("gemini error %s: %s", gr.Error.Status, gr.Error.Message)
	}
	if len(gr.Candidates) == 0 {
		return nil, fmt.Errorf("gemini returned no candidates")
	}

	result := convertFromGemini(&gr, model)
	c.logger.Debug("response received",
		"model", model,
		"input_tokens", result.InputTokens,
		"output_tokens", result.OutputTokens,
		"tool_calls", len(result.Message.ToolCalls),
	)
	c.logger.Log(ctx, config.LevelTrace, "response content", "content", result.Message.Content)

	return result, nil
}

// Ping verifies the API key by requesting model metadata.
func (c *GeminiClient) Ping(ctx context.Context) error {
	url := geminiAPIBase + "/gemini-2.5-flash"
	httpReq, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("x-goog-api-key", c.apiKey)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("invalid API key")
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("unexpected status from Gemini API: %d", resp.StatusCode)
	}
	return nil
}

// convertToGemini maps provider-neutral messages to Gemini contents.
// System messages are concatenated into the returned system instruction;
// tool results become functionResponse parts correlated by tool name.
func convertToGemini(messages []Message) ([]geminiContent, string) {
	var contents []geminiContent
	var system string

	for _, m := range messages {
		switch m.Role {
		case "system":
			if system != "" {
				system += "\n\n"
			}
			system += m.Content

		case "assistant":
			parts := []geminiPart{}
			if m.Content != "" {
				parts = append(parts, geminiPart{Text: m.Content})
			}
			for _, img := range m.Images {
				parts = append(parts, geminiPart{InlineData: &geminiBlob{
					MimeType: http.DetectContentType(img),
					Data:     base64.StdEncoding.EncodeToString(img),
				}})
			}
			for _, tc := range m.ToolCalls {
				parts = append(parts, geminiPart{FunctionCall: &geminiFunctionCall{
					Name: tc.Function.Name,
					Args: tc.Function.Arguments,
				}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, geminiContent{Role: "model", Parts: parts})

		case "tool":
			contents = append(contents, geminiContent{
				Role: "user",
				Parts: []geminiPart{{FunctionResponse: &geminiFunctionResponse{
					Name:     m.ToolName,
					Response: map[string]any{"result": m.Content},
				}}},
			})

		default: // user
			parts := []geminiPart{}
			if m.Content != "" {
				parts = append(parts, geminiPart{Text: m.Content})
			}
			for _, img := range m.Images {
				parts = append(parts, geminiPart{InlineData: &geminiBlob{
					MimeType: http.DetectContentType(img),
					Data:     base64.StdEncoding.EncodeToString(img),
				}})
			}
			if len(parts) == 0 {
				continue
			}
			contents = append(contents, geminiContent{Role: "user", Parts: parts})
		}
	}

	return contents, system
}

// convertToolsToGemini maps the registry wire shape to functionDeclarations.
func convertToolsToGemini(tools []map[string]any) []geminiTool {
	if len(tools) == 0 {
		return nil
	}

	decls := make([]geminiFunctionDecl, 0, len(tools))
	for _, t := range tools {
		fn, ok := t["function"].(map[string]any)
		if !ok {
			continue
		}
		decl := geminiFunctionDecl{}
		decl.Name, _ = fn["name"].(string)
		decl.Description, _ = fn["description"].(string)
		decl.Parameters = fn["parameters"]
		decls = append(decls, decl)
	}
	if len(decls) == 0 {
		return nil
	}
	return []geminiTool{{FunctionDeclarations: decls}}
}

// convertFromGemini maps a Gemini response to the unified shape.
func convertFromGemini(gr *geminiResponse, model string) *ChatResponse {
	cand := gr.Candidates[0]

	msg := Message{Role: "assistant"}
	for _, p := range cand.Content.Parts {
		if p.Text != "" {
			if msg.Content != "" {
				msg.Content += "\n"
			}
			msg.Content += p.Text
		}
		if p.FunctionCall != nil {
			msg.ToolCalls = append(msg.ToolCalls,
				NewToolCall("", p.FunctionCall.Name, p.FunctionCall.Args))
		}
	}

	return &ChatResponse{
		Model:        model,
		Message:      msg,
		FinishReason: cand.FinishReason,
		InputTokens:  gr.UsageMetadata.PromptTokenCount,
		OutputTokens: gr.UsageMetadata.CandidatesTokenCount,
	}
}
