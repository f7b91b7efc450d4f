package report

import (
	"fmt"
	"sort"

	"github.com/sells-group/vc-research-engine/internal/model"
	"github.com/sells-group/vc-research-engine/internal/registry"
)

// Outcome is the validation verdict for an assembled composite report.
type Outcome string

const (
	// Accepted means every section carries schema-valid data.
	Accepted Outcome = "accepted"
	// AcceptedWithWarnings means the document is well-formed but some
	// sections are unavailable placeholders.
	AcceptedWithWarnings Outcome = "accepted_with_warnings"
	// Rejected means the document itself is malformed. Rejection signals an
	// assembly bug, never a data-quality problem.
	Rejected Outcome = "rejected"
)

// Verdict is the result of validating a composite report.
type Verdict struct {
	Outcome  Outcome
	Warnings []string
	Reason   string
}

// Validate checks an assembled report against the dispatched section specs.
// Every dispatched section must be present; ok sections must carry data that
// validates against the section schema; placeholder sections must carry a
// cause. Sections that were never dispatched must not appear.
func Validate(rep *model.CompositeReport, specs []registry.SectionSpec) Verdict {
	if rep == nil {
		return Verdict{Outcome: Rejected, Reason: "report is nil"}
	}

	dispatched := make(map[string]registry.SectionSpec, len(specs))
	for _, spec := range specs {
		dispatched[spec.ID] = spec
	}

	for id := range rep.Sections {
		if _, ok := dispatched[id]; !ok {
			return Verdict{Outcome: Rejected, Reason: fmt.Sprintf("unexpected section %q", id)}
		}
	}

	var warnings []string
	for _, spec := range specs {
		sec, ok := rep.Sections[spec.ID]
		if !ok {
			return Verdict{Outcome: Rejected, Reason: fmt.Sprintf("missing section %q", spec.ID)}
		}

		switch sec.Status {
		case model.SectionOK:
			if sec.Data == nil {
				return Verdict{Outcome: Rejected, Reason: fmt.Sprintf("section %q marked ok without data", spec.ID)}
			}
			if err := spec.Schema.Validate(sec.Data); err != nil {
				return Verdict{Outcome: Rejected, Reason: fmt.Sprintf("section %q carries invalid data: %v", spec.ID, err)}
			}
		case model.SectionUnavailable:
			if sec.Cause == "" {
				return Verdict{Outcome: Rejected, Reason: fmt.Sprintf("section %q unavailable without cause", spec.ID)}
			}
			warnings = append(warnings, SectionWarning(spec.ID, sec))
		default:
			return Verdict{Outcome: Rejected, Reason: fmt.Sprintf("section %q has unknown status %q", spec.ID, sec.Status)}
		}
	}

	sort.Strings(warnings)
	if len(warnings) > 0 {
		return Verdict{Outcome: AcceptedWithWarnings, Warnings: warnings}
	}
	return Verdict{Outcome: Accepted}
}
