// Package web provides the web research tools handed to scraping agents:
// Tavily backed search and a plain text page fetcher.
package web

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/tool"
)

// TavilyEndpoint is the production search endpoint.
const TavilyEndpoint = "https://api.tavily.com/search"

// ErrMissingAPIKey is returned by searches without a configured key.
var ErrMissingAPIKey = errors.New("tavily: API key is missing")

// SearchResult is one search hit handed back to the model.
type SearchResult struct {
	Title   string `json:"title"`
	URL     string `json:"url"`
	Snippet string `json:"snippet"`
}

// TavilyOptions configures the Tavily client.
type TavilyOptions struct {
	// Depth is sent as search_depth (basic or advanced).
	Depth string
	// MaxResults caps the returned hits.
	MaxResults int
	// Endpoint overrides the search URL.
	Endpoint string
	// RequestsPerSecond throttles outgoing calls (0 disables throttling).
	RequestsPerSecond float64
	// MaxBackoff bounds the 429 retry delay; retries stop once it is reached.
	MaxBackoff time.Duration
	// HTTPClient overrides the default client.
	HTTPClient *http.Client
}

// Tavily calls the Tavily search API.
type Tavily struct {
	apiKey  string
	opts    TavilyOptions
	limiter *rate.Limiter
}

// NewTavily constructs a Tavily search provider.
func NewTavily(apiKey string, optFns ...func(o *TavilyOptions)) *Tavily {
	opts := TavilyOptions{
		Depth:      "basic",
		MaxResults: 5,
		Endpoint:   TavilyEndpoint,
		MaxBackoff: 30 * time.Second,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	t := &Tavily{apiKey: apiKey, opts: opts}
	if opts.RequestsPerSecond > 0 {
		t.limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1)
	}

	return t
}

// Search posts a query to Tavily.
func (t *Tavily) Search(ctx context.Context, query string) ([]SearchResult, error) {
	if strings.TrimSpace(t.apiKey) == "" {
		return nil, ErrMissingAPIKey
	}

	payload, err := json.Marshal(map[string]any{
		"query":        query,
		"api_key":      t.apiKey,
		"search_depth": t.opts.Depth,
		"max_results":  t.opts.MaxResults,
	})
	if err != nil {
		return nil, err
	}

	var resp *http.Response
	delay := 1 * time.Second
	for {
		if t.limiter != nil {
			if err := t.limiter.Wait(ctx); err != nil {
				return nil, err
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.opts.Endpoint, bytes.NewReader(payload))
		if err != nil {
			return nil, err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err = t.opts.HTTPClient.Do(req)
		if err != nil {
			return nil, err
		}

		if resp.StatusCode != http.StatusTooManyRequests {
			break
		}
		resp.Body.Close()

		if delay > t.opts.MaxBackoff {
			return nil, fmt.Errorf("tavily http %d: retries exhausted", http.StatusTooManyRequests)
		}

		// Back off and retry on 429, doubling the delay each time.
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
		delay *= 2
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("tavily http %d", resp.StatusCode)
	}

	var response struct {
		Results []struct {
			Title   string `json:"title"`
			URL     string `json:"url"`
			Content string `json:"content"`
		} `json:"results"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&response); err != nil {
		return nil, err
	}

	results := make([]SearchResult, 0, len(response.Results))
	for _, r := range response.Results {
		results = append(results, SearchResult{Title: r.Title, URL: r.URL, Snippet: r.Content})
		if t.opts.MaxResults > 0 && len(results) >= t.opts.MaxResults {
			break
		}
	}

	return results, nil
}

type searchArgs struct {
	Query string `json:"query" description:"The web search query"`
}

// SearchTool exposes the client as the web_search tool.
func (t *Tavily) SearchTool() tool.Tool {
	return tool.NewTypedTool(
		"web_search",
		"Search the web and return the most relevant pages (title, url, snippet).",
		func(tc *core.ToolContext, args searchArgs) (any, error) {
			if strings.TrimSpace(args.Query) == "" {
				return nil, tool.NewToolError("web_search", "query must not be empty", tool.CodeValidation)
			}
			return t.Search(tc.Context(), args.Query)
		},
	)
}
