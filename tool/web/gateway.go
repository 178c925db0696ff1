package web

import (
	"context"
	"net/http"

	"github.com/hupe1980/beanmesh/logging"
	"github.com/hupe1980/beanmesh/tool"
)

// Config selects the web tools served by the gateway.
type Config struct {
	TavilyAPIKey      string
	Depth             string
	MaxResults        int
	RequestsPerSecond float64
	// TavilyEndpoint overrides the search URL.
	TavilyEndpoint string
	HTTPClient     *http.Client
	Logger         logging.Logger
}

// Gateway serves fetch_url always and web_search when an API key is set.
type Gateway struct {
	tools []tool.Tool
}

var _ tool.Gateway = (*Gateway)(nil)

// NewGateway builds the tool set from cfg.
func NewGateway(cfg Config) *Gateway {
	logger := logging.OrNoOp(cfg.Logger)

	tools := []tool.Tool{NewFetcher(cfg.HTTPClient).FetchTool()}

	if cfg.TavilyAPIKey == "" {
		logger.Warn("web.gateway.search_disabled", "reason", "no tavily api key")
	} else {
		tavily := NewTavily(cfg.TavilyAPIKey, func(o *TavilyOptions) {
			if cfg.Depth != "" {
				o.Depth = cfg.Depth
			}
			if cfg.MaxResults > 0 {
				o.MaxResults = cfg.MaxResults
			}
			if cfg.TavilyEndpoint != "" {
				o.Endpoint = cfg.TavilyEndpoint
			}
			if cfg.HTTPClient != nil {
				o.HTTPClient = cfg.HTTPClient
			}
			o.RequestsPerSecond = cfg.RequestsPerSecond
		})
		tools = append([]tool.Tool{tavily.SearchTool()}, tools...)
	}

	return &Gateway{tools: tools}
}

// Tools implements tool.Gateway.
func (g *Gateway) Tools(context.Context) ([]tool.Tool, error) {
	out := make([]tool.Tool, len(g.tools))
	copy(out, g.tools)
	return out, nil
}
