// Package sourcecontrol provides domain types and ports for reading
// revision metadata from a repository.
package sourcecontrol

import "context"

// RevisionReader reads the revision a build runs against.
// Implemented in the infrastructure layer.
type RevisionReader interface {
	// ReadRevision resolves ref and returns its commit, parents, tree and
	// reachable commit count.
	ReadRevision(ctx context.Context, ref string) (*Revision, error)
}

// RepositoryLocator reports where a repository's remote lives.
type RepositoryLocator interface {
	// RepositoryPath returns the location of remote. Local paths are
	// returned absolute.
	RepositoryPath(ctx context.Context, remote string) (string, error)
}

// TagReader lists the tags of a repository.
type TagReader interface {
	// ListTags returns all tags; prefix is stripped before version parsing.
	ListTags(ctx context.Context, prefix string) (TagList, error)
}

// Repository combines every read capability a labelling run needs.
type Repository interface {
	RevisionReader
	RepositoryLocator
	TagReader
}

// VersionDiscovery finds the base version of a project from its tags.
type VersionDiscovery struct {
	tagPrefix string
}

// NewVersionDiscovery creates a new VersionDiscovery.
func NewVersionDiscovery(tagPrefix string) *VersionDiscovery {
	return &VersionDiscovery{tagPrefix: tagPrefix}
}

// LatestVersionTag returns the highest version tag, or ErrNoVersionTag.
func (vd *VersionDiscovery) LatestVersionTag(ctx context.Context, repo TagReader) (*Tag, error) {
	tags, err := repo.ListTags(ctx, vd.tagPrefix)
	if err != nil {
		return nil, err
	}

	latest := tags.Latest()
	if latest == nil {
		return nil, ErrNoVersionTag
	}
	return latest, nil
}
