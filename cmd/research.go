package main

import (
	"github.com/rotisserie/eris"

	"github.com/sells-group/vc-research-engine/internal/agent"
	"github.com/sells-group/vc-research-engine/internal/config"
	"github.com/sells-group/vc-research-engine/internal/gateway"
	"github.com/sells-group/vc-research-engine/internal/orchestrator"
	"github.com/sells-group/vc-research-engine/internal/registry"
	"github.com/sells-group/vc-research-engine/pkg/anthropic"
	"github.com/sells-group/vc-research-engine/pkg/firecrawl"
	"github.com/sells-group/vc-research-engine/pkg/sandbox"
	"github.com/sells-group/vc-research-engine/pkg/serper"
)

// researchEnv wires the clients, gateway, runner, and orchestrator shared by
// the run, ask, and serve commands.
type researchEnv struct {
	AI           anthropic.Client
	Orchestrator *orchestrator.Orchestrator
}

// initResearch builds the research environment from config. Every tool
// backend the section catalog names must be configured; a missing key
// surfaces here instead of mid-run.
func initResearch(c *config.Config) (*researchEnv, error) {
	if c.Anthropic.Key == "" {
		return nil, eris.New("anthropic api key is required (RESEARCH_ANTHROPIC_KEY)")
	}
	ai := anthropic.NewClient(c.Anthropic.Key)

	var searchClient serper.Client
	if c.Serper.Key != "" {
		searchClient = serper.NewClient(c.Serper.Key, serper.WithBaseURL(c.Serper.BaseURL))
	}
	var scrapeClient firecrawl.Client
	if c.Firecrawl.Key != "" {
		scrapeClient = firecrawl.NewClient(c.Firecrawl.Key, firecrawl.WithBaseURL(c.Firecrawl.BaseURL))
	}
	var execClient sandbox.Client
	if c.Sandbox.Key != "" {
		execClient = sandbox.NewClient(c.Sandbox.Key, sandbox.WithBaseURL(c.Sandbox.BaseURL))
	}

	gw := gateway.New(searchClient, scrapeClient, execClient, gateway.Config{
		SearchRPS:        c.Research.SearchRPS,
		ScrapeRPS:        c.Research.ScrapeRPS,
		ExecRPS:          c.Research.ExecRPS,
		MaxSearchResults: c.Research.MaxSearchResults,
	})

	runner := agent.NewRunner(ai, gw, agent.Config{
		StandardModel:  c.Anthropic.SonnetModel,
		DetailedModel:  c.Anthropic.OpusModel,
		StandardBudget: c.Research.StandardToolBudget,
		DetailedBudget: c.Research.DetailedToolBudget,
	})

	orch, err := orchestrator.New(registry.Specs(), gw, runner, orchestrator.Config{
		TaskTimeout:        c.Research.TaskTimeout(),
		MaxConcurrency:     c.Research.MaxConcurrency,
		RunTimeoutMultiple: c.Research.RunTimeoutMultiple,
	})
	if err != nil {
		return nil, err
	}

	return &researchEnv{AI: ai, Orchestrator: orch}, nil
}
