// Package agent runs one extraction task: a tool-using conversation with the
// model that ends in a schema-conformant section payload.
package agent

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/vc-research-engine/internal/gateway"
	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/progress"
	"github.com/sells-group/vc-research-engine/internal/registry"
	"github.com/sells-group/vc-research-engine/internal/resilience"
	"github.com/sells-group/vc-research-engine/pkg/anthropic"
)

// ErrSchema marks a task whose final output failed schema validation even
// after the repair round.
var ErrSchema = eris.New("agent: output failed schema validation")

// Runner executes extraction tasks.
type Runner interface {
	Execute(ctx context.Context, spec registry.SectionSpec, company string, params model.RunParams, stream *progress.Stream) model.ExtractionResult
}

// Config selects the model tier and tool budget per research depth.
type Config struct {
	StandardModel  string
	DetailedModel  string
	StandardBudget int
	DetailedBudget int
	Temperature    float64
}

func (c Config) withDefaults() Config {
	if c.StandardModel == "" {
		c.StandardModel = "claude-sonnet-4-5-20250929"
	}
	if c.DetailedModel == "" {
		c.DetailedModel = "claude-opus-4-6"
	}
	if c.StandardBudget <= 0 {
		c.StandardBudget = 6
	}
	if c.DetailedBudget <= 0 {
		c.DetailedBudget = 12
	}
	if c.Temperature <= 0 {
		c.Temperature = 0.2
	}
	return c
}

type runner struct {
	ai  anthropic.Client
	gw  gateway.Gateway
	cfg Config
}

// NewRunner builds a Runner over the model client and tool gateway.
func NewRunner(ai anthropic.Client, gw gateway.Gateway, cfg Config) Runner {
	return &runner{ai: ai, gw: gw, cfg: cfg.withDefaults()}
}

func (r *runner) depthSettings(depth model.Depth) (string, int) {
	if depth == model.DepthDetailed {
		return r.cfg.DetailedModel, r.cfg.DetailedBudget
	}
	return r.cfg.StandardModel, r.cfg.StandardBudget
}

func (r *runner) Execute(ctx context.Context, spec registry.SectionSpec, company string, params model.RunParams, stream *progress.Stream) model.ExtractionResult {
	start := time.Now()
	modelID, budget := r.depthSettings(params.Depth)

	payload, toolCalls, usage, err := r.loop(ctx, spec, company, modelID, budget, stream)

	res := model.ExtractionResult{
		TaskID:    spec.ID,
		Duration:  time.Since(start),
		ToolCalls: toolCalls,
		Usage:     usage,
	}
	switch {
	case err == nil:
		res.Status = model.TaskOK
		res.Payload = payload
	case errors.Is(err, context.DeadlineExceeded):
		res.Status = model.TaskTimedOut
		res.Err = &model.TaskError{Kind: model.ErrorKindTimeout, Message: "task exceeded its time budget"}
	case errors.Is(err, ErrSchema):
		res.Status = model.TaskFailed
		res.Err = &model.TaskError{Kind: model.ErrorKindSchema, Message: err.Error()}
	default:
		res.Status = model.TaskFailed
		res.Err = &model.TaskError{Kind: model.ErrorKindModel, Message: err.Error()}
	}

	zap.L().Debug("extraction task finished",
		zap.String("section", spec.ID),
		zap.String("status", string(res.Status)),
		zap.Int("tool_calls", res.ToolCalls),
		zap.Duration("duration", res.Duration),
	)
	return res
}

// loop drives the act/observe conversation until a valid final payload, a
// terminal error, or the turn limit. The turn limit leaves headroom beyond
// the tool budget for the final answer and one repair round.
func (r *runner) loop(ctx context.Context, spec registry.SectionSpec, company, modelID string, budget int, stream *progress.Stream) (map[string]any, int, model.TokenUsage, error) {
	var usage model.TokenUsage
	toolCalls := 0
	repaired := false
	maxTurns := budget + 4

	temp := r.cfg.Temperature
	system := []anthropic.SystemBlock{
		{Text: systemPrompt, CacheControl: &anthropic.CacheControl{TTL: "5m"}},
	}
	msgs := []anthropic.Message{
		{Role: "user", Content: taskPrompt(spec, company, budget)},
	}

	retryCfg := resilience.DefaultRetryConfig()
	retryCfg.OnRetry = resilience.RetryLogger("anthropic", "create_message")
	retryCfg.ShouldRetry = func(err error) bool {
		if code := anthropic.StatusCode(err); code != 0 {
			return resilience.IsTransientHTTPStatus(code)
		}
		return resilience.IsTransient(err)
	}

	for turn := 0; turn < maxTurns; turn++ {
		resp, err := resilience.DoVal(ctx, retryCfg, func(ctx context.Context) (*anthropic.MessageResponse, error) {
			return r.ai.CreateMessage(ctx, anthropic.MessageRequest{
				Model:       modelID,
				MaxTokens:   spec.MaxTokens,
				System:      system,
				Messages:    msgs,
				Temperature: &temp,
			})
		})
		if err != nil {
			return nil, toolCalls, usage, eris.Wrap(err, "agent: model call")
		}
		addUsage(&usage, resp.Usage, modelID)

		reply := resp.Text()
		msgs = append(msgs, anthropic.Message{Role: "assistant", Content: reply})

		act, perr := parseAction(reply)
		if perr != nil {
			msgs = append(msgs, userMsg(invalidReplyPrompt(perr)))
			continue
		}

		if act.Action == actionFinal {
			payload, valErr := decodeAndValidate(spec, act.Output)
			if valErr == nil {
				return payload, toolCalls, usage, nil
			}
			if repaired {
				return nil, toolCalls, usage, eris.Wrap(ErrSchema, valErr.Error())
			}
			repaired = true
			msgs = append(msgs, userMsg(repairPrompt(valErr)))
			continue
		}

		tool, ok := actionTool(act.Action)
		if !ok {
			msgs = append(msgs, userMsg(invalidReplyPrompt(eris.Errorf("unknown action %q", act.Action))))
			continue
		}
		if !toolAllowed(spec, tool) {
			msgs = append(msgs, userMsg(disallowedToolPrompt(tool)))
			continue
		}
		if toolCalls >= budget {
			msgs = append(msgs, userMsg(budgetExhaustedPrompt))
			continue
		}

		toolCalls++
		stream.Emit(progress.Event{
			Type:    progress.ToolInvoked,
			Section: spec.ID,
			Tool:    string(tool),
			Detail:  toolDetail(act),
		})
		msgs = append(msgs, userMsg(r.invoke(ctx, tool, act)))

		if ctx.Err() != nil {
			return nil, toolCalls, usage, ctx.Err()
		}
	}

	return nil, toolCalls, usage, eris.New("agent: turn limit reached without final output")
}

// invoke runs one tool call and renders the observation. Tool failures are
// fed back as text; only context expiry aborts the task.
func (r *runner) invoke(ctx context.Context, tool gateway.Tool, act *Action) string {
	switch tool {
	case gateway.ToolSearch:
		results, err := r.gw.Search(ctx, act.Query, act.MaxResults)
		if err != nil {
			return formatToolError(tool, err)
		}
		return formatSearchResults(results)
	case gateway.ToolScrape:
		res, err := r.gw.Scrape(ctx, act.URL, act.Focus)
		if err != nil {
			return formatToolError(tool, err)
		}
		return formatScrapeResult(res)
	default:
		res, err := r.gw.ExecCode(ctx, act.Source)
		if err != nil {
			return formatToolError(tool, err)
		}
		return formatExecResult(res)
	}
}

func decodeAndValidate(spec registry.SectionSpec, raw json.RawMessage) (map[string]any, error) {
	if len(raw) == 0 {
		return nil, eris.New("final action carries no output")
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, eris.Wrap(err, "output is not a JSON object")
	}
	if err := spec.Schema.Validate(payload); err != nil {
		return nil, err
	}
	return payload, nil
}

func actionTool(action string) (gateway.Tool, bool) {
	switch action {
	case string(gateway.ToolSearch):
		return gateway.ToolSearch, true
	case string(gateway.ToolScrape):
		return gateway.ToolScrape, true
	case string(gateway.ToolExecCode):
		return gateway.ToolExecCode, true
	default:
		return "", false
	}
}

func toolAllowed(spec registry.SectionSpec, tool gateway.Tool) bool {
	for _, t := range spec.AllowedTools {
		if t == tool {
			return true
		}
	}
	return false
}

func toolDetail(act *Action) string {
	switch act.Action {
	case string(gateway.ToolSearch):
		return act.Query
	case string(gateway.ToolScrape):
		return act.URL
	default:
		return ""
	}
}

func userMsg(content string) anthropic.Message {
	return anthropic.Message{Role: "user", Content: content}
}

func addUsage(total *model.TokenUsage, u anthropic.TokenUsage, modelID string) {
	total.Add(model.TokenUsage{
		InputTokens:         int(u.InputTokens),
		OutputTokens:        int(u.OutputTokens),
		CacheCreationTokens: int(u.CacheCreationInputTokens),
		CacheReadTokens:     int(u.CacheReadInputTokens),
		Cost:                u.EstimateCost(modelID),
	})
}
