package agent

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rotisserie/eris"

	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/pkg/anthropic"
)

// ChatAnswer is the reply to one question about a finished report.
// Visualization is present when the answer is best shown as chart data.
type ChatAnswer struct {
	Response      string         `json:"response"`
	Visualization map[string]any `json:"visualization,omitempty"`
}

const answerSystemPrompt = `You answer questions about a company research report. The full report is
provided as JSON. Answer only from the report; say so when the report does
not contain the answer.

Reply with exactly one JSON object:
{"response": "<your answer>", "visualization": <chart object from the report or null>}

Include a visualization only when the question asks about trends, growth, or
comparisons and the report carries matching chart data.`

// Answer runs a single-turn question over a composite report. The model gets
// one repair round when its reply is not valid JSON.
func Answer(ctx context.Context, ai anthropic.Client, modelID, question string, report *model.CompositeReport) (*ChatAnswer, error) {
	if report == nil {
		return nil, eris.New("agent: answer requires a report")
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return nil, eris.Wrap(err, "agent: marshal report")
	}

	temp := 0.2
	system := []anthropic.SystemBlock{
		{Text: answerSystemPrompt},
		{Text: string(reportJSON), CacheControl: &anthropic.CacheControl{TTL: "5m"}},
	}
	msgs := []anthropic.Message{
		{Role: "user", Content: fmt.Sprintf("Question about %s: %s", report.Company, question)},
	}

	for attempt := 0; attempt < 2; attempt++ {
		resp, err := ai.CreateMessage(ctx, anthropic.MessageRequest{
			Model:       modelID,
			MaxTokens:   2048,
			System:      system,
			Messages:    msgs,
			Temperature: &temp,
		})
		if err != nil {
			return nil, eris.Wrap(err, "agent: answer question")
		}

		reply := resp.Text()
		answer, perr := parseAnswer(reply)
		if perr == nil {
			return answer, nil
		}

		msgs = append(msgs,
			anthropic.Message{Role: "assistant", Content: reply},
			userMsg(fmt.Sprintf("Your reply was not valid JSON (%v). Reply with exactly one JSON object as instructed.", perr)),
		)
	}

	return nil, eris.New("agent: answer was not valid JSON after repair")
}

func parseAnswer(text string) (*ChatAnswer, error) {
	cleaned := cleanJSON(text)
	if cleaned == "" {
		return nil, eris.New("reply contains no JSON object")
	}
	var answer ChatAnswer
	if err := json.Unmarshal([]byte(cleaned), &answer); err != nil {
		return nil, eris.Wrap(err, "decode answer")
	}
	if answer.Response == "" {
		return nil, eris.New("answer has empty response field")
	}
	return &answer, nil
}
