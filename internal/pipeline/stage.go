package pipeline

import "context"

// Predicate decides whether a stage applies to a cell. A false predicate
// skips the stage; skip is not failure.
type Predicate func(MatrixCell) bool

// Action performs a stage's work against the shared run state.
type Action func(ctx context.Context, run *Run) error

// Stage is one step of the pipeline, declared once in execution order.
// Stages share no state beyond the Run they receive.
type Stage struct {
	// Name identifies the stage in reports, logs, and spans.
	Name string
	// Kind classifies a failure of this stage.
	Kind FailureKind
	// Next is the state the machine holds after this stage runs or is
	// skipped.
	Next State
	// When gates execution; nil means always applicable.
	When Predicate
	// Run performs the stage's work.
	Run Action
}

// Applicable evaluates the stage's predicate against a cell.
func (s Stage) Applicable(cell MatrixCell) bool {
	return s.When == nil || s.When(cell)
}

// Common predicates for stage applicability.

// OnOS applies a stage only on the given platform.
func OnOS(os OS) Predicate {
	return func(cell MatrixCell) bool { return cell.OS == os }
}

// WhenSourceDist applies a stage only when the cell requests an sdist.
func WhenSourceDist(cell MatrixCell) bool { return cell.SourceDist }

// WhenPublish applies a stage only when the cell requests publishing.
func WhenPublish(cell MatrixCell) bool { return cell.Publish }

// WhenPublishSourceDist gates the sdist upload on both flags.
func WhenPublishSourceDist(cell MatrixCell) bool { return cell.Publish && cell.SourceDist }
