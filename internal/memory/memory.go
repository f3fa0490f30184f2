// Package memory is a client for the mem0 long-term memory service.
//
// Unlike conversation history, which lives in the local store, memories
// are distilled user facts ("prefers earth tones", "lives in Lisbon")
// kept by an external service and shared across conversations. The
// agent reads and writes them through the three tool handlers in this
// package.
package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/keynar/stylegenie/internal/httpkit"
)

// DefaultPageSize bounds how many memories a single listing returns.
const DefaultPageSize = 50

// ErrUnavailable is returned when the memory service cannot be reached
// or answers with a server error. Callers must distinguish it from an
// empty result set: having no memories about a user is a normal state.
var ErrUnavailable = errors.New("memory service unavailable")

// Memory is a single stored fact about a user.
type Memory struct {
	ID        string    `json:"id"`
	Text      string    `json:"memory"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at,omitempty"`
	UpdatedAt time.Time `json:"updated_at,omitempty"`
}

// Client talks to a mem0-compatible memory service.
type Client struct {
	baseURL    string
	apiKey     string
	pageSize   int
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a memory client. baseURL is the service root
// (e.g. "https://api.mem0.ai"). pageSize caps listing results; zero
// selects DefaultPageSize.
func NewClient(baseURL, apiKey string, pageSize int, logger *slog.Logger) *Client {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:  baseURL,
		apiKey:   apiKey,
		pageSize: pageSize,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(20 * time.Second),
		),
		logger: logger,
	}
}

type addRequest struct {
	Messages []addMessage `json:"messages"`
	UserID   string       `json:"user_id"`
}

type addMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type searchRequest struct {
	Query  string `json:"query"`
	UserID string `json:"user_id"`
}

// listResponse covers both the paginated and the bare-array shapes the
// service returns depending on endpoint version.
type listResponse struct {
	Results []Memory `json:"results"`
}

// Add stores a new fact about the user.
func (c *Client) Add(ctx context.Context, fact, userID string) error {
	if fact == "" {
		return fmt.Errorf("memory: fact is required")
	}

	body, err := json.Marshal(addRequest{
		Messages: []addMessage{{Role: "user", Content: fact}},
		UserID:   userID,
	})
	if err != nil {
		return fmt.Errorf("memory: encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/memories/", body)
	if err != nil {
		return err
	}
	defer httpkit.DrainAndClose(resp.Body, 4096)

	if resp.StatusCode >= 300 {
		return c.statusError(resp)
	}

	c.logger.Debug("memory stored", "user", userID, "bytes", len(fact))
	return nil
}

// Search returns memories relevant to the query, most relevant first.
func (c *Client) Search(ctx context.Context, query, userID string) ([]Memory, error) {
	if query == "" {
		return nil, fmt.Errorf("memory: query is required")
	}

	body, err := json.Marshal(searchRequest{Query: query, UserID: userID})
	if err != nil {
		return nil, fmt.Errorf("memory: encode request: %w", err)
	}

	resp, err := c.do(ctx, http.MethodPost, "/v1/memories/search/", body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	return decodeMemories(resp)
}

// GetAll lists up to the configured page size of the user's memories.
func (c *Client) GetAll(ctx context.Context, userID string) ([]Memory, error) {
	params := url.Values{
		"user_id":   {userID},
		"page_size": {strconv.Itoa(c.pageSize)},
	}

	resp, err := c.do(ctx, http.MethodGet, "/v1/memories/?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.statusError(resp)
	}

	memories, err := decodeMemories(resp)
	if err != nil {
		return nil, err
	}
	if len(memories) > c.pageSize {
		memories = memories[:c.pageSize]
	}
	return memories, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var reader *bytes.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("memory: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Token "+c.apiKey)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

func (c *Client) statusError(resp *http.Response) error {
	body := httpkit.ReadErrorBody(resp.Body, 512)
	if resp.StatusCode >= 500 {
		return fmt.Errorf("%w: HTTP %d: %s", ErrUnavailable, resp.StatusCode, body)
	}
	return fmt.Errorf("memory: HTTP %d: %s", resp.StatusCode, body)
}

// decodeMemories handles both response shapes: a bare array and an
// object with a "results" key.
func decodeMemories(resp *http.Response) ([]Memory, error) {
	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("memory: decode response: %w", err)
	}

	var memories []Memory
	if err := json.Unmarshal(raw, &memories); err == nil {
		return memories, nil
	}

	var wrapped listResponse
	if err := json.Unmarshal(raw, &wrapped); err != nil {
		return nil, fmt.Errorf("memory: decode response: %w", err)
	}
	return wrapped.Results, nil
}
