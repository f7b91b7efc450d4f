package model

import "github.com/rotisserie/eris"

// Depth selects how aggressively a research run digs into each section.
type Depth string

const (
	DepthStandard Depth = "standard"
	DepthDetailed Depth = "detailed"
)

// RunParams customizes a single research run. Validated once at run start
// and immutable afterwards.
type RunParams struct {
	Depth      Depth    `json:"depth"`
	FocusAreas []string `json:"focus_areas,omitempty"`
}

// Normalize applies defaults and checks the parameter domain. An empty depth
// defaults to standard.
func (p *RunParams) Normalize() error {
	if p.Depth == "" {
		p.Depth = DepthStandard
	}
	switch p.Depth {
	case DepthStandard, DepthDetailed:
	default:
		return eris.Errorf("params: unknown depth %q", p.Depth)
	}
	for _, fa := range p.FocusAreas {
		if fa == "" {
			return eris.New("params: empty focus area")
		}
	}
	return nil
}
