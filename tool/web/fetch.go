package web

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/hupe1980/beanmesh/core"
	"github.com/hupe1980/beanmesh/tool"
)

// MaxFetchBytes bounds the text returned for one page.
const MaxFetchBytes = 32 * 1024

const userAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Fetcher retrieves a page as plain text.
type Fetcher struct {
	client *http.Client
}

// NewFetcher creates a fetcher. A nil client gets a 15 second timeout.
func NewFetcher(client *http.Client) *Fetcher {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Fetcher{client: client}
}

// Fetch downloads the URL content, strips HTML to plain text, and truncates.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	trimmed := strings.TrimSpace(url)
	if trimmed == "" {
		return "", errors.New("fetch url is empty")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, trimmed, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := f.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("fetch http %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}

	text := StripHTML(string(body))
	if len(text) > MaxFetchBytes {
		text = text[:MaxFetchBytes] + "\n[TRUNCATED]"
	}

	return text, nil
}

type fetchArgs struct {
	URL string `json:"url" description:"Absolute http(s) URL of the page to read"`
}

// FetchTool exposes the fetcher as the fetch_url tool.
func (f *Fetcher) FetchTool() tool.Tool {
	return tool.NewTypedTool(
		"fetch_url",
		"Download a web page and return its readable text content.",
		func(tc *core.ToolContext, args fetchArgs) (any, error) {
			if !strings.HasPrefix(args.URL, "http://") && !strings.HasPrefix(args.URL, "https://") {
				return nil, tool.NewToolError("fetch_url", "url must start with http:// or https://", tool.CodeValidation)
			}
			return f.Fetch(tc.Context(), args.URL)
		},
	)
}

var (
	reScript     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	reStyle      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	reNav        = regexp.MustCompile(`(?is)<nav[^>]*>.*?</nav>`)
	reHeader     = regexp.MustCompile(`(?is)<header[^>]*>.*?</header>`)
	reFooter     = regexp.MustCompile(`(?is)<footer[^>]*>.*?</footer>`)
	reTags       = regexp.MustCompile(`<[^>]+>`)
	reWhitespace = regexp.MustCompile(`[ \t]+`)
)

var entities = strings.NewReplacer(
	"&amp;", "&",
	"&lt;", "<",
	"&gt;", ">",
	"&quot;", "\"",
	"&#39;", "'",
	"&nbsp;", " ",
)

// StripHTML drops scripts, styles and page chrome, then all tags, and
// collapses whitespace into non-empty trimmed lines.
func StripHTML(html string) string {
	s := html
	for _, re := range []*regexp.Regexp{reScript, reStyle, reNav, reHeader, reFooter} {
		s = re.ReplaceAllString(s, "")
	}
	s = reTags.ReplaceAllString(s, " ")
	s = entities.Replace(s)
	s = reWhitespace.ReplaceAllString(s, " ")

	lines := strings.Split(s, "\n")
	out := make([]string, 0, len(lines))
	for _, line := range lines {
		if trimmed := strings.TrimSpace(line); trimmed != "" {
			out = append(out, trimmed)
		}
	}

	return strings.Join(out, "\n")
}
