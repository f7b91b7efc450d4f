// Package report assembles extraction results into a composite research
// report and validates the assembled document before release.
package report

import (
	"fmt"
	"time"

	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/registry"
)

// BuildComposite folds one result per dispatched section into a composite
// report. Failed or missing sections become explicit unavailable placeholders
// so the document shape stays fixed regardless of task outcomes.
func BuildComposite(runID, company string, params model.RunParams, specs []registry.SectionSpec, results []model.ExtractionResult) *model.CompositeReport {
	byID := make(map[string]model.ExtractionResult, len(results))
	for _, res := range results {
		byID[res.TaskID] = res
	}

	report := &model.CompositeReport{
		RunID:       runID,
		Company:     company,
		Depth:       params.Depth,
		GeneratedAt: time.Now().UTC(),
		Sections:    make(map[string]model.Section, len(specs)),
		Complete:    true,
	}

	for _, spec := range specs {
		res, ok := byID[spec.ID]
		if !ok {
			report.Sections[spec.ID] = model.Section{
				Status: model.SectionUnavailable,
				Cause:  "no result produced",
			}
			report.Complete = false
			continue
		}

		report.Usage.Add(res.Usage)
		if res.Duration > report.Duration {
			report.Duration = res.Duration
		}

		if res.Status == model.TaskOK {
			report.Sections[spec.ID] = model.Section{
				Status: model.SectionOK,
				Data:   res.Payload,
			}
			continue
		}

		cause := "task failed"
		if res.Err != nil {
			cause = res.Err.Error()
		}
		report.Sections[spec.ID] = model.Section{
			Status: model.SectionUnavailable,
			Cause:  cause,
		}
		report.Complete = false
	}

	return report
}

// SectionWarning renders the standard warning line for an unavailable section.
func SectionWarning(id string, sec model.Section) string {
	return fmt.Sprintf("section %s unavailable: %s", id, sec.Cause)
}
