package label

import (
	"fmt"
	"strconv"
	"strings"
)

// AbbreviationLength is the number of leading hash characters used as a
// compact revision fingerprint.
const AbbreviationLength = 7

// RawRevisionFacts holds the revision metadata queried from the repository
// for the current build.
type RawRevisionFacts struct {
	CommitHash   string
	ParentHash   string
	TreeHash     string
	CheckinCount int
}

// AbbreviatedHash returns the first AbbreviationLength characters of hash.
func AbbreviatedHash(hash string) (string, error) {
	if len(hash) < AbbreviationLength {
		return "", fmt.Errorf("%w: %q has %d characters", ErrHashTooShort, hash, len(hash))
	}
	return hash[:AbbreviationLength], nil
}

// ParseCheckinCount converts a commit count reported by the VCS.
// Missing or non-numeric input yields 0.
func ParseCheckinCount(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil || n < 0 {
		return 0
	}
	return n
}

// VersionFacts is the computed result of one labelling step.
// Immutable: it is only built by the Assembler.
type VersionFacts struct {
	commitHash       string
	abbreviatedHash  string
	parentHash       string
	treeHash         string
	checkinCount     int
	buildCycleNumber int
	major            int
	minor            int
	grammar          Grammar
	label            string
}

// CommitHash returns the full commit hash.
func (f VersionFacts) CommitHash() string {
	return f.commitHash
}

// AbbreviatedHash returns the abbreviated commit hash.
func (f VersionFacts) AbbreviatedHash() string {
	return f.abbreviatedHash
}

// ParentHash returns the parent hash as reported by the VCS.
func (f VersionFacts) ParentHash() string {
	return f.parentHash
}

// TreeHash returns the tree hash.
func (f VersionFacts) TreeHash() string {
	return f.treeHash
}

// CheckinCount returns the number of commits reachable from the head.
func (f VersionFacts) CheckinCount() int {
	return f.checkinCount
}

// BuildCycleNumber returns the count of consecutive builds of this revision.
func (f VersionFacts) BuildCycleNumber() int {
	return f.buildCycleNumber
}

// Major returns the configured major component.
func (f VersionFacts) Major() int {
	return f.major
}

// Minor returns the configured minor component.
func (f VersionFacts) Minor() int {
	return f.minor
}

// Grammar returns the grammar the label was rendered with.
func (f VersionFacts) Grammar() Grammar {
	return f.grammar
}

// Label returns the rendered label.
func (f VersionFacts) Label() string {
	return f.label
}

// String returns the rendered label.
func (f VersionFacts) String() string {
	return f.label
}
