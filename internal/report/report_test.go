package report

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/registry"
	"github.com/sells-group/vc-research-engine/internal/schema"
)

func twoSpecs() []registry.SectionSpec {
	return []registry.SectionSpec{
		{
			ID: "company_info",
			Schema: schema.Record{
				Name: "company_info",
				Fields: []schema.Field{
					{Name: "name", Kind: schema.KindString},
				},
			},
		},
		{
			ID: "team_analysis",
			Schema: schema.Record{
				Name: "team_analysis",
				Fields: []schema.Field{
					{Name: "team_strength", Kind: schema.KindString},
				},
			},
		},
	}
}

func okResult(id string, data map[string]any) model.ExtractionResult {
	return model.ExtractionResult{
		TaskID:   id,
		Status:   model.TaskOK,
		Payload:  data,
		Duration: 2 * time.Second,
		Usage:    model.TokenUsage{InputTokens: 100, OutputTokens: 50, Cost: 0.01},
	}
}

func TestBuildComposite_AllOK(t *testing.T) {
	specs := twoSpecs()
	results := []model.ExtractionResult{
		okResult("company_info", map[string]any{"name": "Acme"}),
		okResult("team_analysis", map[string]any{"team_strength": "strong"}),
	}

	rep := BuildComposite("run-1", "Acme Corp", model.RunParams{Depth: model.DepthStandard}, specs, results)

	assert.Equal(t, "run-1", rep.RunID)
	assert.Equal(t, "Acme Corp", rep.Company)
	assert.True(t, rep.Complete)
	require.Len(t, rep.Sections, 2)
	assert.Equal(t, model.SectionOK, rep.Sections["company_info"].Status)
	assert.Equal(t, "Acme", rep.Sections["company_info"].Data["name"])
	assert.Equal(t, 200, rep.Usage.InputTokens)
	assert.InDelta(t, 0.02, rep.Usage.Cost, 1e-9)
	assert.False(t, rep.GeneratedAt.IsZero())
}

func TestBuildComposite_FailedTaskBecomesPlaceholder(t *testing.T) {
	specs := twoSpecs()
	results := []model.ExtractionResult{
		okResult("company_info", map[string]any{"name": "Acme"}),
		{
			TaskID: "team_analysis",
			Status: model.TaskTimedOut,
			Err:    &model.TaskError{Kind: model.ErrorKindTimeout, Message: "task exceeded its time budget"},
		},
	}

	rep := BuildComposite("run-1", "Acme", model.RunParams{}, specs, results)

	assert.False(t, rep.Complete)
	sec := rep.Sections["team_analysis"]
	assert.Equal(t, model.SectionUnavailable, sec.Status)
	assert.Nil(t, sec.Data)
	assert.Contains(t, sec.Cause, "timeout")
}

func TestBuildComposite_MissingResultBecomesPlaceholder(t *testing.T) {
	specs := twoSpecs()
	results := []model.ExtractionResult{
		okResult("company_info", map[string]any{"name": "Acme"}),
	}

	rep := BuildComposite("run-1", "Acme", model.RunParams{}, specs, results)

	assert.False(t, rep.Complete)
	assert.Equal(t, model.SectionUnavailable, rep.Sections["team_analysis"].Status)
	assert.Equal(t, "no result produced", rep.Sections["team_analysis"].Cause)
}

func TestBuildComposite_DurationIsLongestTask(t *testing.T) {
	specs := twoSpecs()
	fast := okResult("company_info", map[string]any{"name": "Acme"})
	fast.Duration = 1 * time.Second
	slow := okResult("team_analysis", map[string]any{"team_strength": "ok"})
	slow.Duration = 7 * time.Second

	rep := BuildComposite("run-1", "Acme", model.RunParams{}, specs, []model.ExtractionResult{fast, slow})
	assert.Equal(t, 7*time.Second, rep.Duration)
}

func TestValidate_Accepted(t *testing.T) {
	specs := twoSpecs()
	rep := BuildComposite("run-1", "Acme", model.RunParams{}, specs, []model.ExtractionResult{
		okResult("company_info", map[string]any{"name": "Acme"}),
		okResult("team_analysis", map[string]any{"team_strength": "strong"}),
	})

	verdict := Validate(rep, specs)
	assert.Equal(t, Accepted, verdict.Outcome)
	assert.Empty(t, verdict.Warnings)
}

func TestValidate_WarningsForPlaceholders(t *testing.T) {
	specs := twoSpecs()
	rep := BuildComposite("run-1", "Acme", model.RunParams{}, specs, []model.ExtractionResult{
		okResult("company_info", map[string]any{"name": "Acme"}),
		{
			TaskID: "team_analysis",
			Status: model.TaskFailed,
			Err:    &model.TaskError{Kind: model.ErrorKindSchema, Message: "bad output"},
		},
	})

	verdict := Validate(rep, specs)
	assert.Equal(t, AcceptedWithWarnings, verdict.Outcome)
	require.Len(t, verdict.Warnings, 1)
	assert.Contains(t, verdict.Warnings[0], "team_analysis")
	assert.Contains(t, verdict.Warnings[0], "schema")
}

func TestValidate_RejectsMissingSection(t *testing.T) {
	specs := twoSpecs()
	rep := &model.CompositeReport{
		Sections: map[string]model.Section{
			"company_info": {Status: model.SectionOK, Data: map[string]any{"name": "Acme"}},
		},
	}

	verdict := Validate(rep, specs)
	assert.Equal(t, Rejected, verdict.Outcome)
	assert.Contains(t, verdict.Reason, "missing section")
}

func TestValidate_RejectsUnexpectedSection(t *testing.T) {
	specs := twoSpecs()[:1]
	rep := &model.CompositeReport{
		Sections: map[string]model.Section{
			"company_info": {Status: model.SectionOK, Data: map[string]any{"name": "Acme"}},
			"surprise":     {Status: model.SectionOK, Data: map[string]any{}},
		},
	}

	verdict := Validate(rep, specs)
	assert.Equal(t, Rejected, verdict.Outcome)
	assert.Contains(t, verdict.Reason, "unexpected section")
}

func TestValidate_RejectsOKSectionWithoutData(t *testing.T) {
	specs := twoSpecs()[:1]
	rep := &model.CompositeReport{
		Sections: map[string]model.Section{
			"company_info": {Status: model.SectionOK},
		},
	}

	verdict := Validate(rep, specs)
	assert.Equal(t, Rejected, verdict.Outcome)
	assert.Contains(t, verdict.Reason, "without data")
}

func TestValidate_RejectsSchemaInvalidData(t *testing.T) {
	specs := twoSpecs()[:1]
	rep := &model.CompositeReport{
		Sections: map[string]model.Section{
			"company_info": {Status: model.SectionOK, Data: map[string]any{"name": 42}},
		},
	}

	verdict := Validate(rep, specs)
	assert.Equal(t, Rejected, verdict.Outcome)
	assert.Contains(t, verdict.Reason, "invalid data")
}

func TestValidate_RejectsPlaceholderWithoutCause(t *testing.T) {
	specs := twoSpecs()[:1]
	rep := &model.CompositeReport{
		Sections: map[string]model.Section{
			"company_info": {Status: model.SectionUnavailable},
		},
	}

	verdict := Validate(rep, specs)
	assert.Equal(t, Rejected, verdict.Outcome)
	assert.Contains(t, verdict.Reason, "without cause")
}

func TestValidate_NilReport(t *testing.T) {
	verdict := Validate(nil, twoSpecs())
	assert.Equal(t, Rejected, verdict.Outcome)
}
