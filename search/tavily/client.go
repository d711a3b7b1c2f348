// Package tavily implements search.Searcher against the Tavily search API.
package tavily

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/casualjim/tickertape/pkg/slogx"
	"github.com/casualjim/tickertape/search"
	"github.com/fogfish/opts"
	"github.com/goccy/go-json"
	"github.com/tidwall/gjson"
)

const DefaultBaseURL = "https://api.tavily.com"

var (
	// BaseURL points the client at another API root, mostly for tests.
	BaseURL = opts.ForName[Client, string]("baseURL")
	// HTTPClient replaces the http.Client used for requests.
	HTTPClient = opts.ForName[Client, *http.Client]("httpClient")
)

var _ search.Searcher = (*Client)(nil)

type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// New creates a Tavily client authenticating with apiKey.
func New(apiKey string, options ...opts.Option[Client]) (*Client, error) {
	c := &Client{
		apiKey:     apiKey,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
	if err := opts.Apply(c, options); err != nil {
		return nil, err
	}
	if strings.TrimSpace(c.apiKey) == "" {
		return nil, fmt.Errorf("tavily: api key is required")
	}
	c.baseURL = strings.TrimRight(c.baseURL, "/")
	return c, nil
}

type searchRequest struct {
	Query       string `json:"query"`
	SearchDepth string `json:"search_depth"`
	MaxResults  int    `json:"max_results"`
}

// APIError is a non-2xx answer from the API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("tavily: %s (status %d)", e.Message, e.StatusCode)
}

// Search runs the query and decodes the response with search.Decode.
func (c *Client) Search(ctx context.Context, query string, options search.Options) (search.Result, error) {
	options = options.WithDefaults()
	payload, err := json.Marshal(searchRequest{
		Query:       query,
		SearchDepth: string(options.Depth),
		MaxResults:  options.MaxResults,
	})
	if err != nil {
		return search.Result{}, fmt.Errorf("tavily: failed to encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(payload))
	if err != nil {
		return search.Result{}, fmt.Errorf("tavily: failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return search.Result{}, fmt.Errorf("tavily: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return search.Result{}, fmt.Errorf("tavily: failed to read response: %w", err)
	}

	slog.DebugContext(ctx, "search completed",
		slogx.LoggerName("tickertape.tavily"),
		slog.Int("status", resp.StatusCode),
		slogx.Elapsed(start),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		slog.DebugContext(ctx, "search rejected",
			slogx.LoggerName("tickertape.tavily"),
			slog.Int("status", resp.StatusCode),
			slogx.ByteString("body", body),
		)
		return search.Result{}, &APIError{StatusCode: resp.StatusCode, Message: errorMessage(body, resp.Status)}
	}

	return search.Decode(body)
}

func errorMessage(body []byte, fallback string) string {
	for _, path := range []string{"detail.error", "detail", "error", "message"} {
		if v := gjson.GetBytes(body, path); v.Exists() && v.Type == gjson.String && v.String() != "" {
			return v.String()
		}
	}
	return fallback
}
