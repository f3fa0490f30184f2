package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/keynar/stylegenie/internal/httpkit"
)

const linkupBaseURL = "https://api.linkup.so/v1"

// Linkup implements the Provider interface for the Linkup Search API.
// It serves as the fallback backend when Tavily is not configured.
type Linkup struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// NewLinkup creates a Linkup search provider.
func NewLinkup(apiKey string) *Linkup {
	return &Linkup{
		apiKey:  apiKey,
		baseURL: linkupBaseURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(15 * time.Second),
		),
	}
}

func (l *Linkup) Name() string { return "linkup" }

// linkupRequest is the JSON body for Linkup's /search endpoint.
type linkupRequest struct {
	Query      string `json:"q"`
	Depth      string `json:"depth"`
	OutputType string `json:"outputType"`
}

// linkupResponse is the JSON response from Linkup's /search endpoint.
type linkupResponse struct {
	Results []linkupResult `json:"results"`
}

type linkupResult struct {
	Name    string `json:"name"`
	URL     string `json:"url"`
	Content string `json:"content"`
}

func (l *Linkup) Search(ctx context.Context, query string, opts Options) ([]Result, error) {
	count := opts.Count
	if count == 0 {
		count = 5
	}

	body, err := json.Marshal(linkupRequest{
		Query:      query,
		Depth:      "standard",
		OutputType: "searchResults",
	})
	if err != nil {
		return nil, fmt.Errorf("linkup: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.baseURL+"/search", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("linkup: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+l.apiKey)

	resp, err := l.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("linkup: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		errBody := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("linkup: HTTP %d: %s", resp.StatusCode, errBody)
	}

	var lr linkupResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, fmt.Errorf("linkup: decode response: %w", err)
	}

	results := make([]Result, 0, count)
	for i, r := range lr.Results {
		if i >= count {
			break
		}
		results = append(results, Result{
			Title:   r.Name,
			URL:     r.URL,
			Snippet: r.Content,
		})
	}

	return results, nil
}
