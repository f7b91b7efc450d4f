package agent

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vc-research-engine/internal/gateway"
)

// Action is one step the model chose: a tool invocation or the final
// section payload.
type Action struct {
	Action     string          `json:"action"`
	Query      string          `json:"query,omitempty"`
	MaxResults int             `json:"max_results,omitempty"`
	URL        string          `json:"url,omitempty"`
	Focus      string          `json:"focus,omitempty"`
	Source     string          `json:"source,omitempty"`
	Output     json.RawMessage `json:"output,omitempty"`
}

const actionFinal = "final"

// parseAction extracts the action JSON from a model reply. Replies are
// routinely wrapped in markdown fences or prose, so parsing trims to the
// outermost JSON object first.
func parseAction(text string) (*Action, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("agent: reply contains no JSON object")
	}

	var act Action
	if err := json.Unmarshal([]byte(cleaned), &act); err != nil {
		return nil, eris.Wrap(err, "agent: decode action")
	}
	if act.Action == "" {
		return nil, eris.New("agent: action field missing")
	}
	return &act, nil
}

// cleanJSON strips markdown code fences and surrounding prose, returning the
// outermost {...} object, or empty when none is present.
func cleanJSON(text string) string {
	s := strings.TrimSpace(text)

	if idx := strings.Index(s, "```json"); idx >= 0 {
		s = s[idx+len("```json"):]
	} else if idx := strings.Index(s, "```"); idx >= 0 {
		s = s[idx+len("```"):]
	}
	if idx := strings.LastIndex(s, "```"); idx >= 0 {
		s = s[:idx]
	}

	start := strings.Index(s, "{")
	end := strings.LastIndex(s, "}")
	if start < 0 || end < start {
		return ""
	}
	return strings.TrimSpace(s[start : end+1])
}

// formatSearchResults renders search hits as the observation text fed back
// to the model.
func formatSearchResults(results []gateway.SearchResult) string {
	if len(results) == 0 {
		return "Search returned no results."
	}
	var b strings.Builder
	b.WriteString("Search results:\n")
	for i, r := range results {
		fmt.Fprintf(&b, "%d. %s\n   URL: %s\n   %s\n", i+1, r.Title, r.Link, r.Snippet)
	}
	return b.String()
}

// scrapeContentLimit bounds how much page content is fed back per scrape so
// a single large page cannot crowd out the rest of the conversation.
const scrapeContentLimit = 12000

func formatScrapeResult(res *gateway.ScrapeResult) string {
	content := res.Content
	if len(content) > scrapeContentLimit {
		// Back off to a rune boundary so the cut never splits a multi-byte
		// character.
		cut := scrapeContentLimit
		for cut > 0 && !utf8.RuneStart(content[cut]) {
			cut--
		}
		content = content[:cut] + "\n[content truncated]"
	}
	var b strings.Builder
	fmt.Fprintf(&b, "Scraped %s\n", res.URL)
	if res.Title != "" {
		fmt.Fprintf(&b, "Title: %s\n", res.Title)
	}
	if res.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", res.Description)
	}
	b.WriteString("\n")
	b.WriteString(content)
	return b.String()
}

func formatExecResult(res *gateway.ExecResult) string {
	var b strings.Builder
	b.WriteString("Code execution finished.\n")
	if res.Stdout != "" {
		fmt.Fprintf(&b, "stdout:\n%s\n", res.Stdout)
	}
	if res.Stderr != "" {
		fmt.Fprintf(&b, "stderr:\n%s\n", res.Stderr)
	}
	if res.ResultText != "" {
		fmt.Fprintf(&b, "result: %s\n", res.ResultText)
	}
	if res.Error != "" {
		fmt.Fprintf(&b, "error: %s\n", res.Error)
	}
	return b.String()
}

// formatToolError renders a failed tool call as an observation. Tool
// failures go back to the model as text so it can adjust or move on.
func formatToolError(tool gateway.Tool, err error) string {
	return fmt.Sprintf("Tool %s failed: %v\nAdjust your approach or continue with the information you already have.", tool, err)
}
