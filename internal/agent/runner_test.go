package agent

import (
	"context"
	"testing"

	"github.com/rotisserie/eris"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vc-research-engine/internal/gateway"
	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/progress"
	"github.com/sells-group/vc-research-engine/internal/registry"
	"github.com/sells-group/vc-research-engine/internal/schema"
	"github.com/sells-group/vc-research-engine/pkg/anthropic"
)

// scriptedClient replays canned model replies in order. A nil entry yields
// the configured error for that turn.
type scriptedClient struct {
	replies  []string
	errs     map[int]error
	calls    int
	requests []anthropic.MessageRequest
}

func (c *scriptedClient) CreateMessage(ctx context.Context, req anthropic.MessageRequest) (*anthropic.MessageResponse, error) {
	idx := c.calls
	c.calls++
	c.requests = append(c.requests, req)

	if err, ok := c.errs[idx]; ok {
		return nil, err
	}
	if idx >= len(c.replies) {
		return nil, eris.New("scripted client: no reply for turn")
	}
	return &anthropic.MessageResponse{
		Content: []anthropic.ContentBlock{{Type: "text", Text: c.replies[idx]}},
		Usage:   anthropic.TokenUsage{InputTokens: 100, OutputTokens: 20},
	}, nil
}

type fakeGateway struct {
	searchResults []gateway.SearchResult
	searchErr     error
	scrapeResult  *gateway.ScrapeResult
	execResult    *gateway.ExecResult
	searchCalls   int
	scrapeCalls   int
	execCalls     int
}

func (f *fakeGateway) Search(ctx context.Context, query string, maxResults int) ([]gateway.SearchResult, error) {
	f.searchCalls++
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	return f.searchResults, nil
}

func (f *fakeGateway) Scrape(ctx context.Context, url, focusHint string) (*gateway.ScrapeResult, error) {
	f.scrapeCalls++
	return f.scrapeResult, nil
}

func (f *fakeGateway) ExecCode(ctx context.Context, source string) (*gateway.ExecResult, error) {
	f.execCalls++
	return f.execResult, nil
}

func (f *fakeGateway) Tools() []gateway.Tool {
	return []gateway.Tool{gateway.ToolSearch, gateway.ToolScrape, gateway.ToolExecCode}
}

func testSpec() registry.SectionSpec {
	return registry.SectionSpec{
		ID:           "company_info",
		Instructions: "Find the basics.",
		AllowedTools: []gateway.Tool{gateway.ToolSearch, gateway.ToolScrape},
		Schema: schema.Record{
			Name: "company_info",
			Fields: []schema.Field{
				{Name: "name", Kind: schema.KindString},
				{Name: "founded_year", Kind: schema.KindInt},
			},
		},
		MaxTokens: 1024,
	}
}

func TestExecute_SearchThenFinal(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "search", "query": "Acme Corp", "max_results": 3}`,
		`{"action": "final", "output": {"name": "Acme Corp", "founded_year": 2019}}`,
	}}
	gw := &fakeGateway{searchResults: []gateway.SearchResult{
		{Title: "Acme", Link: "https://acme.example", Snippet: "Acme Corp, founded 2019"},
	}}

	r := NewRunner(client, gw, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme Corp", model.RunParams{Depth: model.DepthStandard}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	assert.Equal(t, "company_info", res.TaskID)
	assert.Equal(t, "Acme Corp", res.Payload["name"])
	assert.Equal(t, 1, res.ToolCalls)
	assert.Equal(t, 1, gw.searchCalls)
	assert.Nil(t, res.Err)
	assert.Equal(t, 200, res.Usage.InputTokens)

	// The observation must reach the model on the following turn.
	require.Len(t, client.requests, 2)
	lastMsg := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Equal(t, "user", lastMsg.Role)
	assert.Contains(t, lastMsg.Content, "acme.example")
}

func TestExecute_FinalWrappedInFences(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"Here is the result:\n```json\n{\"action\": \"final\", \"output\": {\"name\": \"Acme\", \"founded_year\": 2020}}\n```",
	}}

	r := NewRunner(client, &fakeGateway{}, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	assert.Equal(t, "Acme", res.Payload["name"])
	assert.Zero(t, res.ToolCalls)
}

func TestExecute_SchemaRepairSucceeds(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "final", "output": {"name": "Acme"}}`,
		`{"action": "final", "output": {"name": "Acme", "founded_year": 2019}}`,
	}}

	r := NewRunner(client, &fakeGateway{}, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	assert.Equal(t, float64(2019), res.Payload["founded_year"])
	require.Len(t, client.requests, 2)

	repair := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Contains(t, repair.Content, "did not match the required structure")
	assert.Contains(t, repair.Content, "founded_year")
}

func TestExecute_SchemaFailureAfterRepair(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "final", "output": {"name": "Acme"}}`,
		`{"action": "final", "output": {"name": "Acme", "founded_year": "twenty nineteen"}}`,
	}}

	r := NewRunner(client, &fakeGateway{}, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, model.ErrorKindSchema, res.Err.Kind)
	assert.Nil(t, res.Payload)
}

func TestExecute_ToolErrorFedBack(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "search", "query": "Acme"}`,
		`{"action": "final", "output": {"name": "Unknown", "founded_year": 0}}`,
	}}
	gw := &fakeGateway{searchErr: eris.New("upstream 503")}

	r := NewRunner(client, gw, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	require.Len(t, client.requests, 2)
	obs := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Contains(t, obs.Content, "failed")
	assert.Contains(t, obs.Content, "upstream 503")
}

func TestExecute_DisallowedToolRejected(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "exec_code", "source": "print(1)"}`,
		`{"action": "final", "output": {"name": "Acme", "founded_year": 2019}}`,
	}}
	gw := &fakeGateway{}

	r := NewRunner(client, gw, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	assert.Zero(t, res.ToolCalls)
	assert.Zero(t, gw.execCalls)

	obs := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Contains(t, obs.Content, "not available")
}

func TestExecute_BudgetExhaustionForcesFinal(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "search", "query": "a"}`,
		`{"action": "search", "query": "b"}`,
		`{"action": "search", "query": "c"}`,
		`{"action": "final", "output": {"name": "Acme", "founded_year": 2019}}`,
	}}
	gw := &fakeGateway{}

	r := NewRunner(client, gw, Config{StandardBudget: 2})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	assert.Equal(t, 2, res.ToolCalls)
	assert.Equal(t, 2, gw.searchCalls)

	obs := client.requests[3].Messages[len(client.requests[3].Messages)-1]
	assert.Contains(t, obs.Content, "budget exhausted")
}

func TestExecute_UnparseableReplyRepaired(t *testing.T) {
	client := &scriptedClient{replies: []string{
		"I will now search for information about the company.",
		`{"action": "final", "output": {"name": "Acme", "founded_year": 2019}}`,
	}}

	r := NewRunner(client, &fakeGateway{}, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskOK, res.Status)
	obs := client.requests[1].Messages[len(client.requests[1].Messages)-1]
	assert.Contains(t, obs.Content, "Could not parse")
}

func TestExecute_ModelErrorFailsTask(t *testing.T) {
	client := &scriptedClient{errs: map[int]error{0: eris.New("api unreachable")}}

	r := NewRunner(client, &fakeGateway{}, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskFailed, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, model.ErrorKindModel, res.Err.Kind)
}

func TestExecute_DeadlineExceededIsTimeout(t *testing.T) {
	client := &scriptedClient{errs: map[int]error{0: context.DeadlineExceeded}}

	r := NewRunner(client, &fakeGateway{}, Config{})
	res := r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, progress.Discard())

	assert.Equal(t, model.TaskTimedOut, res.Status)
	require.NotNil(t, res.Err)
	assert.Equal(t, model.ErrorKindTimeout, res.Err.Kind)
}

func TestExecute_DepthSelectsModelAndBudget(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "final", "output": {"name": "Acme", "founded_year": 2019}}`,
	}}

	cfg := Config{StandardModel: "model-std", DetailedModel: "model-deep", StandardBudget: 3, DetailedBudget: 9}
	r := NewRunner(client, &fakeGateway{}, cfg)
	r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{Depth: model.DepthDetailed}, progress.Discard())

	require.Len(t, client.requests, 1)
	assert.Equal(t, "model-deep", client.requests[0].Model)
	assert.Contains(t, client.requests[0].Messages[0].Content, "at most 9 tool calls")
}

func TestExecute_EmitsToolEvents(t *testing.T) {
	client := &scriptedClient{replies: []string{
		`{"action": "search", "query": "Acme funding"}`,
		`{"action": "final", "output": {"name": "Acme", "founded_year": 2019}}`,
	}}

	stream := progress.NewStream(16)
	r := NewRunner(client, &fakeGateway{}, Config{})

	go func() {
		r.Execute(context.Background(), testSpec(), "Acme", model.RunParams{}, stream)
		stream.Emit(progress.Event{Type: progress.RunCompleted})
	}()

	var toolEvents []progress.Event
	for ev := range stream.Events() {
		if ev.Type == progress.ToolInvoked {
			toolEvents = append(toolEvents, ev)
		}
	}
	require.Len(t, toolEvents, 1)
	assert.Equal(t, "search", toolEvents[0].Tool)
	assert.Equal(t, "Acme funding", toolEvents[0].Detail)
	assert.Equal(t, "company_info", toolEvents[0].Section)
}
