// Package country resolves country names to reference metadata via the
// REST Countries API. The agent uses it to localize shopping advice:
// currency for price talk, languages and region for store selection.
package country

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"

	"github.com/keynar/stylegenie/internal/httpkit"
)

const restCountriesBaseURL = "https://restcountries.com/v3.1"

// ErrNotFound is returned when the API has no country matching the name.
var ErrNotFound = errors.New("country not found")

// Info is the metadata set returned for a resolved country.
type Info struct {
	Name         string   `json:"name"`
	Capital      []string `json:"capital,omitempty"`
	Region       string   `json:"region,omitempty"`
	Subregion    string   `json:"subregion,omitempty"`
	Currencies   []string `json:"currencies,omitempty"`
	Languages    []string `json:"languages,omitempty"`
	Borders      []string `json:"borders,omitempty"`
	CallingCodes []string `json:"calling_codes,omitempty"`
	Timezones    []string `json:"timezones,omitempty"`
	Area         float64  `json:"area,omitempty"`
	Population   int64    `json:"population,omitempty"`
}

// Client looks up country metadata over HTTP.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a REST Countries client.
func NewClient() *Client {
	return &Client{
		baseURL: restCountriesBaseURL,
		httpClient: httpkit.NewClient(
			httpkit.WithTimeout(10 * time.Second),
		),
	}
}

// restCountry mirrors the subset of the v3.1 payload we consume.
type restCountry struct {
	Name struct {
		Common   string `json:"common"`
		Official string `json:"official"`
	} `json:"name"`
	Capital    []string `json:"capital"`
	Region     string   `json:"region"`
	Subregion  string   `json:"subregion"`
	Currencies map[string]struct {
		Name   string `json:"name"`
		Symbol string `json:"symbol"`
	} `json:"currencies"`
	Languages map[string]string `json:"languages"`
	Borders   []string          `json:"borders"`
	IDD       struct {
		Root     string   `json:"root"`
		Suffixes []string `json:"suffixes"`
	} `json:"idd"`
	Timezones  []string `json:"timezones"`
	Area       float64  `json:"area"`
	Population int64    `json:"population"`
}

// Lookup resolves a country by common or official name. It returns
// ErrNotFound for unknown names; it never returns partial data.
func (c *Client) Lookup(ctx context.Context, name string) (*Info, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("country: name is required")
	}

	reqURL := fmt.Sprintf("%s/name/%s", c.baseURL, url.PathEscape(name))
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("country: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("country: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	if resp.StatusCode != http.StatusOK {
		body := httpkit.ReadErrorBody(resp.Body, 512)
		return nil, fmt.Errorf("country: HTTP %d: %s", resp.StatusCode, body)
	}

	var matches []restCountry
	if err := json.NewDecoder(resp.Body).Decode(&matches); err != nil {
		return nil, fmt.Errorf("country: decode response: %w", err)
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, name)
	}

	// Prefer an exact common-name match; the API returns fuzzy matches
	// ("India" also matches "British Indian Ocean Territory").
	best := matches[0]
	for _, m := range matches {
		if strings.EqualFold(m.Name.Common, name) || strings.EqualFold(m.Name.Official, name) {
			best = m
			break
		}
	}

	return convert(best), nil
}

func convert(rc restCountry) *Info {
	info := &Info{
		Name:       rc.Name.Common,
		Capital:    rc.Capital,
		Region:     rc.Region,
		Subregion:  rc.Subregion,
		Borders:    rc.Borders,
		Timezones:  rc.Timezones,
		Area:       rc.Area,
		Population: rc.Population,
	}

	for code, cur := range rc.Currencies {
		label := code
		if cur.Name != "" {
			label = fmt.Sprintf("%s (%s)", cur.Name, code)
		}
		info.Currencies = append(info.Currencies, label)
	}
	sort.Strings(info.Currencies)

	for _, lang := range rc.Languages {
		info.Languages = append(info.Languages, lang)
	}
	sort.Strings(info.Languages)

	for _, suffix := range rc.IDD.Suffixes {
		info.CallingCodes = append(info.CallingCodes, rc.IDD.Root+suffix)
	}
	sort.Strings(info.CallingCodes)

	return info
}
