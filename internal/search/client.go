// ABOUTME: DuckDuckGo Instant Answer API client with response normalization
// ABOUTME: Reduces the loosely-structured upstream JSON into a stable summary/sources shape

package search

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"time"
)

const (
	// DefaultBaseURL is the DuckDuckGo Instant Answer endpoint.
	DefaultBaseURL = "https://api.duckduckgo.com/"

	defaultUserAgent = "sai-gateway/1.0 (+https://github.com/Architdevpro/SAI.ai)"

	// maxSources caps the normalized source list.
	maxSources = 5

	// noSummaryFallback is returned when no field of the upstream response
	// yields a usable summary.
	noSummaryFallback = "No specific information found from search results."
)

// ErrNoInstantAnswer is returned by InstantAnswer when the upstream
// response carries neither a direct answer nor an abstract.
var ErrNoInstantAnswer = errors.New("No instant answer available")

// StatusError reports a non-2xx response from the search API.
type StatusError struct {
	StatusCode int
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("search API returned status %d", e.StatusCode)
}

// TransportError reports a network failure before a response was obtained.
type TransportError struct {
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("search request failed: %v", e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// DecodeError reports a response body that is not valid JSON. It surfaces
// in the same message form as a transport failure.
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("search request failed: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Topic is a single related topic or result entry in the upstream
// response.
type Topic struct {
	Result   string `json:"Result"`
	FirstURL string `json:"FirstURL"`
	Text     string `json:"Text"`
}

// InstantAnswerResponse mirrors the DuckDuckGo Instant Answer schema.
// Every field is optional upstream, so zero values mean "absent".
type InstantAnswerResponse struct {
	Abstract         string          `json:"Abstract"`
	AbstractText     string          `json:"AbstractText"`
	AbstractSource   string          `json:"AbstractSource"`
	AbstractURL      string          `json:"AbstractURL"`
	Answer           string          `json:"Answer"`
	AnswerType       string          `json:"AnswerType"`
	Definition       string          `json:"Definition"`
	DefinitionSource string          `json:"DefinitionSource"`
	DefinitionURL    string          `json:"DefinitionURL"`
	Heading          string          `json:"Heading"`
	Image            string          `json:"Image"`
	Infobox          json.RawMessage `json:"Infobox,omitempty"`
	Redirect         string          `json:"Redirect"`
	RelatedTopics    []Topic         `json:"RelatedTopics"`
	Results          []Topic         `json:"Results"`
	Type             string          `json:"Type"`
}

// SearchResult is the normalized output of a search: a best-effort summary
// and a short deduplicated source list, plus the raw upstream response for
// callers that need more.
type SearchResult struct {
	Summary string                 `json:"summary"`
	Sources []string               `json:"sources"`
	Raw     *InstantAnswerResponse `json:"rawData,omitempty"`
}

// InstantAnswer is the result of the direct-answer extraction mode.
type InstantAnswer struct {
	Answer string `json:"answer"`
	Type   string `json:"type"`
}

// Client calls the DuckDuckGo Instant Answer API. Calls are independent
// and carry no shared mutable state, so a Client is safe for concurrent
// use. There are no retries and no caching; cancellation comes from the
// caller's context.
type Client struct {
	baseURL    string
	userAgent  string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewClient creates a search client. Empty baseURL or userAgent fall back
// to the defaults; pass nil logger for slog.Default().
func NewClient(baseURL, userAgent string, logger *slog.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if userAgent == "" {
		userAgent = defaultUserAgent
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Client{
		baseURL:    baseURL,
		userAgent:  userAgent,
		httpClient: &http.Client{Timeout: 15 * time.Second},
		logger:     logger.With("component", "search"),
	}
}

// SetTimeout overrides the default HTTP request timeout. Zero and
// negative values are ignored.
func (c *Client) SetTimeout(d time.Duration) {
	if d > 0 {
		c.httpClient.Timeout = d
	}
}

// Search queries the Instant Answer API and normalizes the response.
// Failures are always returned as a typed error value (StatusError,
// TransportError, or DecodeError); nothing panics.
func (c *Client) Search(ctx context.Context, query string) (*SearchResult, error) {
	resp, err := c.fetch(ctx, query)
	if err != nil {
		return nil, err
	}

	result := &SearchResult{
		Summary: summarize(resp),
		Sources: collectSources(resp),
		Raw:     resp,
	}

	c.logger.Debug("search normalized",
		"query", query,
		"sources", len(result.Sources))

	return result, nil
}

// InstantAnswer runs a search and extracts a direct answer. Status and
// decode faults from the underlying search pass through unwrapped;
// transport faults gain instant-answer context.
func (c *Client) InstantAnswer(ctx context.Context, query string) (*InstantAnswer, error) {
	result, err := c.Search(ctx, query)
	if err != nil {
		var transportErr *TransportError
		if errors.As(err, &transportErr) {
			return nil, fmt.Errorf("instant answer: %w", err)
		}
		return nil, err
	}

	resp := result.Raw
	if resp.Answer != "" {
		answerType := resp.AnswerType
		if answerType == "" {
			answerType = "instant"
		}
		return &InstantAnswer{Answer: resp.Answer, Type: answerType}, nil
	}
	if resp.AbstractText != "" {
		return &InstantAnswer{Answer: resp.AbstractText, Type: "abstract"}, nil
	}

	return nil, ErrNoInstantAnswer
}

// fetch performs the GET request and decodes the body.
func (c *Client) fetch(ctx context.Context, query string) (*InstantAnswerResponse, error) {
	params := url.Values{}
	params.Set("q", query)
	params.Set("format", "json")
	params.Set("no_html", "1")
	params.Set("skip_disambig", "1")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	req.Header.Set("User-Agent", c.userAgent)

	httpResp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &TransportError{Err: err}
	}
	defer httpResp.Body.Close()

	if httpResp.StatusCode < 200 || httpResp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: httpResp.StatusCode}
	}

	var resp InstantAnswerResponse
	if err := json.NewDecoder(httpResp.Body).Decode(&resp); err != nil {
		return nil, &DecodeError{Err: err}
	}

	return &resp, nil
}

// summarize extracts a best-effort summary. First non-empty wins, in
// fixed priority order.
func summarize(resp *InstantAnswerResponse) string {
	if resp.Answer != "" {
		return resp.Answer
	}
	if resp.AbstractText != "" {
		return resp.AbstractText
	}
	if resp.Definition != "" {
		return resp.Definition
	}
	if len(resp.RelatedTopics) > 0 && resp.RelatedTopics[0].Text != "" {
		return resp.RelatedTopics[0].Text
	}
	if len(resp.Results) > 0 && resp.Results[0].Text != "" {
		return resp.Results[0].Text
	}
	return noSummaryFallback
}

// collectSources gathers source names and URLs in fixed order, skipping
// empties, deduplicating on first occurrence, and capping at maxSources.
func collectSources(resp *InstantAnswerResponse) []string {
	candidates := []string{
		resp.AbstractSource,
		resp.DefinitionSource,
		resp.AbstractURL,
		resp.DefinitionURL,
	}
	for _, topic := range resp.RelatedTopics {
		candidates = append(candidates, topic.FirstURL)
	}
	for _, topic := range resp.Results {
		candidates = append(candidates, topic.FirstURL)
	}

	sources := make([]string, 0, maxSources)
	seen := make(map[string]bool)
	for _, s := range candidates {
		if s == "" || seen[s] {
			continue
		}
		seen[s] = true
		sources = append(sources, s)
		if len(sources) == maxSources {
			break
		}
	}

	return sources
}
