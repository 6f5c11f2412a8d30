package pipeline

import (
	"time"

	"github.com/google/uuid"
)

// StageStatus is the outcome of one stage within a run.
type StageStatus string

const (
	StatusRan     StageStatus = "ran"
	StatusSkipped StageStatus = "skipped"
	StatusFailed  StageStatus = "failed"
)

// StageResult records one stage's outcome.
type StageResult struct {
	Name     string
	Status   StageStatus
	Duration time.Duration
	Err      error
}

// Report summarizes a pipeline invocation. The outcome is binary: either
// every applicable stage succeeded, or the first failure is reported and
// nothing after it ran.
type Report struct {
	RunID     uuid.UUID
	Cell      MatrixCell
	Results   []StageResult
	Final     State
	Artifacts []Artifact
}

// Failed returns the failing stage's result, if any.
func (r Report) Failed() *StageResult {
	for i := range r.Results {
		if r.Results[i].Status == StatusFailed {
			return &r.Results[i]
		}
	}
	return nil
}

// Executed returns the names of stages that actually ran.
func (r Report) Executed() []string {
	var names []string
	for _, res := range r.Results {
		if res.Status == StatusRan {
			names = append(names, res.Name)
		}
	}
	return names
}
