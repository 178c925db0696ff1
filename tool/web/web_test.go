package web

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/tool"
)

func tavilyServer(t *testing.T, handler http.HandlerFunc) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return srv
}

func TestTavily_Search(t *testing.T) {
	srv := tavilyServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)

		var body map[string]any
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "golang generics", body["query"])
		assert.Equal(t, "key", body["api_key"])
		assert.Equal(t, "advanced", body["search_depth"])
		assert.EqualValues(t, 2, body["max_results"])
		assert.NotContains(t, body, "depth")

		_, _ = w.Write([]byte(`{"results":[
			{"title":"A","url":"https://a","content":"a"},
			{"title":"B","url":"https://b","content":"b"},
			{"title":"C","url":"https://c","content":"c"}]}`))
	})

	tv := NewTavily("key", func(o *TavilyOptions) {
		o.Endpoint = srv.URL
		o.Depth = "advanced"
		o.MaxResults = 2
	})

	results, err := tv.Search(context.Background(), "golang generics")
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, SearchResult{Title: "A", URL: "https://a", Snippet: "a"}, results[0])
}

func TestTavily_MissingKey(t *testing.T) {
	_, err := NewTavily("").Search(context.Background(), "q")
	assert.ErrorIs(t, err, ErrMissingAPIKey)
}

func TestTavily_RetriesOn429(t *testing.T) {
	var calls atomic.Int32
	srv := tavilyServer(t, func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"results":[{"title":"ok","url":"u","content":"c"}]}`))
	})

	tv := NewTavily("key", func(o *TavilyOptions) { o.Endpoint = srv.URL })

	results, err := tv.Search(context.Background(), "q")
	require.NoError(t, err)
	assert.Len(t, results, 1)
	assert.Equal(t, int32(2), calls.Load())
}

func TestTavily_BackoffBounded(t *testing.T) {
	srv := tavilyServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	})

	tv := NewTavily("key", func(o *TavilyOptions) {
		o.Endpoint = srv.URL
		o.MaxBackoff = 500 * time.Millisecond
	})

	_, err := tv.Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "retries exhausted")
}

func TestTavily_HTTPError(t *testing.T) {
	srv := tavilyServer(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	})

	_, err := NewTavily("key", func(o *TavilyOptions) { o.Endpoint = srv.URL }).Search(context.Background(), "q")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "tavily http 401")
}

func TestStripHTML(t *testing.T) {
	html := `<html><head><style>body{}</style><script>alert(1)</script></head>
<body><nav>menu</nav><header>top</header>
<h1>Title &amp; more</h1>
<p>Hello   <b>world</b></p>
<footer>bottom</footer></body></html>`

	text := StripHTML(html)
	assert.Contains(t, text, "Title & more")
	assert.Contains(t, text, "Hello world")
	for _, gone := range []string{"alert", "menu", "top", "bottom", "body{}", "<"} {
		assert.NotContains(t, text, gone)
	}
}

func TestFetcher_Fetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NotEmpty(t, r.Header.Get("User-Agent"))
		if r.URL.Path == "/big" {
			_, _ = w.Write([]byte("<p>" + strings.Repeat("x", MaxFetchBytes+10) + "</p>"))
			return
		}
		if r.URL.Path == "/missing" {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte("<p>hello</p>"))
	}))
	defer srv.Close()

	f := NewFetcher(nil)

	text, err := f.Fetch(context.Background(), srv.URL)
	require.NoError(t, err)
	assert.Equal(t, "hello", text)

	big, err := f.Fetch(context.Background(), srv.URL+"/big")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(big, "\n[TRUNCATED]"))
	assert.Len(t, big, MaxFetchBytes+len("\n[TRUNCATED]"))

	_, err = f.Fetch(context.Background(), srv.URL+"/missing")
	assert.ErrorContains(t, err, "fetch http 404")

	_, err = f.Fetch(context.Background(), "  ")
	assert.Error(t, err)
}

func TestFetchTool_RejectsNonHTTP(t *testing.T) {
	tc := core.NewToolContext(context.Background(), "web-scraper-agent", "", "fc", nil)

	_, err := NewFetcher(nil).FetchTool().Call(tc, map[string]any{"url": "file:///etc/passwd"})

	var toolErr *tool.ToolError
	require.ErrorAs(t, err, &toolErr)
	assert.Equal(t, tool.CodeValidation, toolErr.Code)
}

func TestGateway(t *testing.T) {
	names := func(g *Gateway) []string {
		tools, err := g.Tools(context.Background())
		require.NoError(t, err)
		out := make([]string, 0, len(tools))
		for _, tl := range tools {
			out = append(out, tl.Name())
		}
		return out
	}

	assert.Equal(t, []string{"fetch_url"}, names(NewGateway(Config{})))
	assert.Equal(t, []string{"web_search", "fetch_url"}, names(NewGateway(Config{TavilyAPIKey: "k"})))
}
