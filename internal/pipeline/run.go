package pipeline

import (
	"errors"

	"github.com/google/uuid"

	"github.com/wheelsmith/wheelsmith/internal/toolkit"
)

// ResolvedEnv holds every fact derived from a matrix cell. It is computed
// exactly once, before any stage that reads it, and is read-only afterwards.
type ResolvedEnv struct {
	Toolkit      toolkit.Toolkit
	Archs        []string // ordered compute-capability tokens for the compiler
	BuildVersion string
	TorchPin     string // exact runtime version the manifest is pinned to
}

// ArtifactKind distinguishes the packaging forms a run produces.
type ArtifactKind string

const (
	ArtifactWheel      ArtifactKind = "wheel"
	ArtifactSourceDist ArtifactKind = "sdist"
)

// Artifact is one file produced by a packaging stage. Artifacts from
// successful stages stay on disk even when a later stage fails.
type Artifact struct {
	Kind ArtifactKind
	Path string
}

// ErrEnvAlreadyResolved guards the resolve-once invariant.
var ErrEnvAlreadyResolved = errors.New("environment already resolved")

// Run is the shared state of one pipeline invocation: the immutable cell,
// the resolved environment, and the artifacts produced so far. Stages
// receive a *Run and nothing else.
type Run struct {
	ID   uuid.UUID
	Cell MatrixCell

	env       *ResolvedEnv
	artifacts []Artifact
}

// NewRun creates a run for the given cell with a fresh correlation ID.
func NewRun(cell MatrixCell) *Run {
	return &Run{ID: uuid.New(), Cell: cell}
}

// SetEnv records the resolved environment. It may be called exactly once;
// no stage may re-derive or mutate the environment after that.
func (r *Run) SetEnv(env ResolvedEnv) error {
	if r.env != nil {
		return ErrEnvAlreadyResolved
	}
	r.env = &env
	return nil
}

// Env returns the resolved environment, or nil before resolution.
func (r *Run) Env() *ResolvedEnv {
	return r.env
}

// AddArtifact records a produced artifact.
func (r *Run) AddArtifact(a Artifact) {
	r.artifacts = append(r.artifacts, a)
}

// Artifacts returns a copy of the artifacts produced so far.
func (r *Run) Artifacts() []Artifact {
	return append([]Artifact(nil), r.artifacts...)
}

// ArtifactByKind returns the first artifact of the given kind, if any.
func (r *Run) ArtifactByKind(kind ArtifactKind) (Artifact, bool) {
	for _, a := range r.artifacts {
		if a.Kind == kind {
			return a, true
		}
	}
	return Artifact{}, false
}
