package tracing

// Span attribute keys for build tracing.
const (
	// Run attributes
	AttrRunID = "run.id"

	// Matrix cell attributes
	AttrOS        = "cell.os"
	AttrPython    = "cell.python"
	AttrTorch     = "cell.torch"
	AttrCUDAShort = "cell.cuda"

	// Stage attributes
	AttrStageName   = "stage.name"
	AttrStageStatus = "stage.status"

	// Resolved environment attributes
	AttrToolkitVersion = "toolkit.version"
	AttrBuildVersion   = "build.version"

	// Artifact attributes
	AttrArtifactKind = "artifact.kind"
	AttrArtifactPath = "artifact.path"

	// Error attributes
	AttrErrorMessage = "error.message"
)

// Span name prefixes for consistent naming.
const (
	SpanPrefixStage = "stage."
	SpanNameRun     = "pipeline.run"
)
