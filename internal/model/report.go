package model

import (
	"time"
)

// SectionStatus marks whether a composite section carries real data or an
// explicit unavailable placeholder.
type SectionStatus string

const (
	SectionOK          SectionStatus = "ok"
	SectionUnavailable SectionStatus = "unavailable"
)

// Section is one named slice of the composite report. Data is present iff
// Status is ok; Cause names the failure otherwise.
type Section struct {
	Status SectionStatus  `json:"status"`
	Data   map[string]any `json:"data,omitempty"`
	Cause  string         `json:"cause,omitempty"`
}

// CompositeReport is the aggregate research document handed to the caller.
// Sections holds one entry per dispatched task; Complete is true iff every
// section carries real data.
type CompositeReport struct {
	RunID       string             `json:"run_id"`
	Company     string             `json:"company"`
	Depth       Depth              `json:"depth"`
	GeneratedAt time.Time          `json:"generated_at"`
	Sections    map[string]Section `json:"sections"`
	Complete    bool               `json:"complete"`
	Warnings    []string           `json:"warnings,omitempty"`
	Usage       TokenUsage         `json:"usage"`
	Duration    time.Duration      `json:"duration"`
}
