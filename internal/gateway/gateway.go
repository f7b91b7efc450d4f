// Package gateway fronts the external research tools behind one interface
// with per-tool rate limits. Extraction tasks never talk to the tool APIs
// directly; every invocation flows through here.
package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"

	"github.com/sells-group/vc-research-engine/pkg/firecrawl"
	"github.com/sells-group/vc-research-engine/pkg/sandbox"
	"github.com/sells-group/vc-research-engine/pkg/serper"
)

// Tool identifies one external research capability.
type Tool string

const (
	ToolSearch   Tool = "search"
	ToolScrape   Tool = "scrape"
	ToolExecCode Tool = "exec_code"
)

// ErrToolUnavailable is returned when a tool has no configured backend.
var ErrToolUnavailable = eris.New("gateway: tool not configured")

// ToolError wraps a backend failure with the tool that produced it. Tool
// failures are expected operational events, not run-fatal errors.
type ToolError struct {
	Tool Tool
	Err  error
}

func (e *ToolError) Error() string {
	return fmt.Sprintf("gateway: %s: %v", e.Tool, e.Err)
}

func (e *ToolError) Unwrap() error {
	return e.Err
}

// SearchResult is one web search hit.
type SearchResult struct {
	Title   string `json:"title"`
	Link    string `json:"link"`
	Snippet string `json:"snippet"`
}

// ScrapeResult is the extracted content of one page.
type ScrapeResult struct {
	URL         string `json:"url"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Content     string `json:"content"`
}

// ExecResult is the outcome of one sandboxed code run. Error carries the
// interpreter failure text; stdout and stderr are captured either way.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ResultText string `json:"result_text"`
	Error      string `json:"error,omitempty"`
}

// Gateway is the tool surface exposed to extraction tasks.
type Gateway interface {
	Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error)
	Scrape(ctx context.Context, url, focusHint string) (*ScrapeResult, error)
	ExecCode(ctx context.Context, source string) (*ExecResult, error)
	// Tools reports which tools have a configured backend.
	Tools() []Tool
}

// Config sets per-tool rate limits and result caps. Zero RPS values disable
// limiting for that tool.
type Config struct {
	SearchRPS        float64
	ScrapeRPS        float64
	ExecRPS          float64
	MaxSearchResults int
}

// focusSelectors maps a scrape focus hint to the CSS selectors worth keeping.
var focusSelectors = map[string][]string{
	"team":      {".team", ".people", ".leadership", ".about-us"},
	"investors": {".investors", ".funding", ".backers"},
	"funding":   {".investors", ".funding", ".press"},
	"about":     {".about", ".company", ".mission"},
}

type toolGateway struct {
	search serper.Client
	scrape firecrawl.Client
	exec   sandbox.Client
	cfg    Config
	limits map[Tool]*rate.Limiter
}

// New builds a Gateway over the configured backend clients. A nil client
// leaves the corresponding tool unavailable rather than failing construction.
func New(search serper.Client, scrape firecrawl.Client, exec sandbox.Client, cfg Config) Gateway {
	if cfg.MaxSearchResults <= 0 {
		cfg.MaxSearchResults = 10
	}
	g := &toolGateway{
		search: search,
		scrape: scrape,
		exec:   exec,
		cfg:    cfg,
		limits: map[Tool]*rate.Limiter{},
	}
	for tool, rps := range map[Tool]float64{
		ToolSearch:   cfg.SearchRPS,
		ToolScrape:   cfg.ScrapeRPS,
		ToolExecCode: cfg.ExecRPS,
	} {
		if rps > 0 {
			g.limits[tool] = rate.NewLimiter(rate.Limit(rps), 1)
		}
	}
	return g
}

func (g *toolGateway) Tools() []Tool {
	var tools []Tool
	if g.search != nil {
		tools = append(tools, ToolSearch)
	}
	if g.scrape != nil {
		tools = append(tools, ToolScrape)
	}
	if g.exec != nil {
		tools = append(tools, ToolExecCode)
	}
	return tools
}

func (g *toolGateway) wait(ctx context.Context, tool Tool) error {
	lim, ok := g.limits[tool]
	if !ok {
		return nil
	}
	return lim.Wait(ctx)
}

func (g *toolGateway) Search(ctx context.Context, query string, maxResults int) ([]SearchResult, error) {
	if g.search == nil {
		return nil, &ToolError{Tool: ToolSearch, Err: ErrToolUnavailable}
	}
	if maxResults <= 0 || maxResults > g.cfg.MaxSearchResults {
		maxResults = g.cfg.MaxSearchResults
	}
	if err := g.wait(ctx, ToolSearch); err != nil {
		return nil, &ToolError{Tool: ToolSearch, Err: err}
	}

	resp, err := g.search.Search(ctx, query, maxResults)
	if err != nil {
		return nil, &ToolError{Tool: ToolSearch, Err: err}
	}

	results := make([]SearchResult, 0, len(resp.Organic))
	for _, r := range resp.Organic {
		results = append(results, SearchResult{
			Title:   r.Title,
			Link:    r.Link,
			Snippet: r.Snippet,
		})
		if len(results) == maxResults {
			break
		}
	}
	return results, nil
}

func (g *toolGateway) Scrape(ctx context.Context, url, focusHint string) (*ScrapeResult, error) {
	if g.scrape == nil {
		return nil, &ToolError{Tool: ToolScrape, Err: ErrToolUnavailable}
	}
	if err := g.wait(ctx, ToolScrape); err != nil {
		return nil, &ToolError{Tool: ToolScrape, Err: err}
	}

	req := firecrawl.ScrapeRequest{
		URL:             url,
		Formats:         []string{"markdown"},
		OnlyMainContent: true,
	}
	if tags, ok := focusSelectors[strings.ToLower(strings.TrimSpace(focusHint))]; ok {
		req.IncludeTags = tags
	}

	resp, err := g.scrape.Scrape(ctx, req)
	if err != nil {
		return nil, &ToolError{Tool: ToolScrape, Err: err}
	}
	if !resp.Success {
		return nil, &ToolError{Tool: ToolScrape, Err: eris.Errorf("scrape of %s unsuccessful", url)}
	}

	title := resp.Data.Title
	if title == "" {
		title = resp.Data.Metadata.Title
	}
	desc := resp.Data.Description
	if desc == "" {
		desc = resp.Data.Metadata.Description
	}
	return &ScrapeResult{
		URL:         url,
		Title:       title,
		Description: desc,
		Content:     resp.Data.Markdown,
	}, nil
}

func (g *toolGateway) ExecCode(ctx context.Context, source string) (*ExecResult, error) {
	if g.exec == nil {
		return nil, &ToolError{Tool: ToolExecCode, Err: ErrToolUnavailable}
	}
	if err := g.wait(ctx, ToolExecCode); err != nil {
		return nil, &ToolError{Tool: ToolExecCode, Err: err}
	}

	exec, err := g.exec.Execute(ctx, source)
	if err != nil {
		return nil, &ToolError{Tool: ToolExecCode, Err: err}
	}

	out := &ExecResult{
		Stdout:     exec.CombinedStdout(),
		Stderr:     exec.CombinedStderr(),
		ResultText: exec.ResultText,
	}
	if exec.Error != nil {
		out.Error = exec.Error.Error()
	}
	return out, nil
}
