// Package sourcecontrol provides domain types and ports for reading
// revision metadata from a repository.
package sourcecontrol

import "strings"

// CommitHash represents a git commit hash.
type CommitHash string

// Short returns the short (7 character) hash, or the whole hash when it is
// shorter than that.
func (h CommitHash) Short() string {
	if len(h) > 7 {
		return string(h[:7])
	}
	return string(h)
}

// String returns the full hash.
func (h CommitHash) String() string {
	return string(h)
}

// IsEmpty returns true if the hash is empty.
func (h CommitHash) IsEmpty() bool {
	return h == ""
}

// Revision is the commit a build runs against, as reported by a RevisionReader.
type Revision struct {
	Hash CommitHash
	// Parents holds every parent hash; merge commits have more than one.
	Parents []CommitHash
	Tree    CommitHash
	// CheckinCount is the number of commits reachable from Hash.
	CheckinCount int
}

// ParentHash returns the parent hashes joined by a space, the form git
// prints for %P.
func (r Revision) ParentHash() string {
	parents := make([]string, len(r.Parents))
	for i, p := range r.Parents {
		parents[i] = p.String()
	}
	return strings.Join(parents, " ")
}
