package model

import (
	"fmt"
	"time"
)

// TaskStatus is the terminal state of one extraction task attempt.
type TaskStatus string

const (
	TaskOK       TaskStatus = "ok"
	TaskFailed   TaskStatus = "failed"
	TaskTimedOut TaskStatus = "timed_out"
)

// ErrorKind classifies why an extraction task did not produce a payload.
type ErrorKind string

const (
	// ErrorKindTimeout means the task exceeded its wall-clock budget.
	ErrorKindTimeout ErrorKind = "timeout"
	// ErrorKindSchema means the model output did not conform to the section
	// schema even after one repair attempt.
	ErrorKindSchema ErrorKind = "schema"
	// ErrorKindModel means the model backend itself failed.
	ErrorKindModel ErrorKind = "model"
)

// TaskError is the structured cause attached to a failed or timed-out task.
type TaskError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// ExtractionResult is the outcome of running one extraction task. Payload is
// present iff Status is ok; Err is present otherwise. Produced exactly once
// per task per run and owned by the run that created it.
type ExtractionResult struct {
	TaskID    string         `json:"task_id"`
	Status    TaskStatus     `json:"status"`
	Payload   map[string]any `json:"payload,omitempty"`
	Err       *TaskError     `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration"`
	ToolCalls int            `json:"tool_calls"`
	Usage     TokenUsage     `json:"usage"`
}
