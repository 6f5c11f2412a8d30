package gitinfo

// Executor defines the interface for repository metadata queries.
// This abstraction allows for easy testing with mock implementations.
type Executor interface {
	// IsGitRepo checks if the working directory is inside a git repository.
	IsGitRepo() bool
	// HeadShortHash returns the abbreviated hash of HEAD.
	HeadShortHash() (string, error)
	// ExactTag returns the tag pointing exactly at HEAD, or "" if HEAD is untagged.
	ExactTag() (string, error)
	// RevCount returns the number of commits reachable from HEAD.
	RevCount() (int, error)
	// CurrentRef returns the symbolic name of the checked out ref.
	// Returns the short hash when HEAD is detached.
	CurrentRef() (string, error)
	// SubmoduleHash returns the HEAD hash of a checked out submodule at path,
	// relative to the repository root.
	SubmoduleHash(path string) (string, error)
}
