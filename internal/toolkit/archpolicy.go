package toolkit

import "slices"

// ArchPolicy derives the compute-capability target list for a toolkit
// short version. The base list, the exclusion set, and the high-end token
// are configuration: the exclusion set grows as toolkit support matures.
type ArchPolicy struct {
	// Base is the fixed ordered list every build targets. Tokens may carry
	// a "+ptx" suffix; order is preserved through to the compiler flags.
	Base []string
	// Exclude lists short versions too old to target HighEnd.
	Exclude []string
	// HighEnd is appended for toolkits not in Exclude.
	HighEnd string
}

// DefaultArchPolicy returns the policy used for current builds.
func DefaultArchPolicy() ArchPolicy {
	return ArchPolicy{
		Base:    []string{"5.0+ptx", "6.0", "6.1", "7.0", "7.5", "8.0+ptx"},
		Exclude: []string{"116", "117"},
		HighEnd: "9.0",
	}
}

// Derive returns the target list for the given short version: the base list,
// plus the high-end token appended at the end when the toolkit supports it.
// The returned slice is always a copy; the base list is never mutated.
func (p ArchPolicy) Derive(shortVersion string) []string {
	archs := make([]string, 0, len(p.Base)+1)
	archs = append(archs, p.Base...)
	if p.HighEnd != "" && !slices.Contains(p.Exclude, shortVersion) {
		archs = append(archs, p.HighEnd)
	}
	return archs
}
