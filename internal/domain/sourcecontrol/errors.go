// Package sourcecontrol provides domain types and ports for reading
// revision metadata from a repository.
package sourcecontrol

import "errors"

// Domain errors for source control operations.
var (
	// ErrNotARepository indicates the path is not a git repository.
	ErrNotARepository = errors.New("not a git repository")

	// ErrRefNotFound indicates a reference could not be resolved.
	ErrRefNotFound = errors.New("reference not found")

	// ErrRemoteNotFound indicates the remote was not found.
	ErrRemoteNotFound = errors.New("remote not found")

	// ErrIncompleteRevision indicates the VCS returned fewer metadata
	// fields than a revision needs.
	ErrIncompleteRevision = errors.New("incomplete revision metadata")

	// ErrNoVersionTag indicates no semantic version tag was found.
	ErrNoVersionTag = errors.New("no version tag found")
)
