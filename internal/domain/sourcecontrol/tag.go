// Package sourcecontrol provides domain types and ports for reading
// revision metadata from a repository.
package sourcecontrol

import (
	"strings"

	"github.com/Masterminds/semver/v3"
)

// Tag represents a git tag.
type Tag struct {
	name    string
	hash    CommitHash
	version *semver.Version
}

// NewTag creates a Tag. prefix is stripped before the name is parsed as a
// semantic version.
func NewTag(name string, hash CommitHash, prefix string) *Tag {
	t := &Tag{name: name, hash: hash}
	if !strings.HasPrefix(name, prefix) {
		return t
	}
	if v, err := semver.StrictNewVersion(strings.TrimPrefix(name, prefix)); err == nil {
		t.version = v
	}
	return t
}

// Name returns the tag name.
func (t *Tag) Name() string {
	return t.name
}

// Hash returns the commit hash the tag points to.
func (t *Tag) Hash() CommitHash {
	return t.hash
}

// Version returns the semantic version, or nil when the tag is not one.
func (t *Tag) Version() *semver.Version {
	return t.version
}

// IsVersionTag returns true if this tag represents a version.
func (t *Tag) IsVersionTag() bool {
	return t.version != nil
}

// TagList is a list of tags.
type TagList []*Tag

// Latest returns the highest stable version tag, falling back to the
// highest prerelease when no stable version exists.
func (tl TagList) Latest() *Tag {
	var latest, latestPre *Tag
	for _, t := range tl {
		if !t.IsVersionTag() {
			continue
		}
		if t.version.Prerelease() != "" {
			if latestPre == nil || t.version.GreaterThan(latestPre.version) {
				latestPre = t
			}
			continue
		}
		if latest == nil || t.version.GreaterThan(latest.version) {
			latest = t
		}
	}
	if latest == nil {
		return latestPre
	}
	return latest
}

// VersionTags returns only version tags.
func (tl TagList) VersionTags() TagList {
	result := make(TagList, 0, len(tl))
	for _, t := range tl {
		if t.IsVersionTag() {
			result = append(result, t)
		}
	}
	return result
}
