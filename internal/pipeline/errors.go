package pipeline

import "fmt"

// FailureKind classifies stage failures. Every kind is fatal to the
// invocation; the distinction drives reporting, not recovery.
type FailureKind string

const (
	// FailureConfig covers unresolvable inputs: unknown toolkit keys,
	// missing repository provenance.
	FailureConfig FailureKind = "configuration"
	// FailureToolchain covers toolchain and runtime install failures.
	FailureToolchain FailureKind = "toolchain"
	// FailureBuild covers native compilation and packaging failures.
	FailureBuild FailureKind = "build"
	// FailurePublish covers upload failures. Local artifacts produced
	// before the failure are preserved.
	FailurePublish FailureKind = "publish"
)

// StageFailure reports the first failing stage and its underlying cause.
type StageFailure struct {
	Stage string
	Kind  FailureKind
	Err   error
}

func (f *StageFailure) Error() string {
	return fmt.Sprintf("stage %s: %s error: %v", f.Stage, f.Kind, f.Err)
}

func (f *StageFailure) Unwrap() error {
	return f.Err
}
