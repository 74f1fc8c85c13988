// Package label computes build labels from repository revision facts.
//
// A previous label that splits into the right number of fields is
// recognized even when a numeric field is not a number; such a field
// reads as 0.
package label

import "fmt"

// SentinelLabel is the placeholder a host stores when no build has
// succeeded yet.
const SentinelLabel = "UNKNOWN"

// Policy fixes the configuration of an Assembler.
type Policy struct {
	Grammar Grammar
	Major   int
	Minor   int
	// IncrementOnFailure lets a failed previous build still advance the
	// build-cycle number.
	IncrementOnFailure bool
}

// Assembler computes the next VersionFacts for a build.
// It holds no mutable state and is safe for concurrent use.
type Assembler struct {
	policy Policy
	codec  Codec
}

// NewAssembler creates an Assembler for policy.
func NewAssembler(policy Policy) (*Assembler, error) {
	if policy.Major < 0 || policy.Minor < 0 {
		return nil, fmt.Errorf("%w: %d.%d", ErrNegativeVersion, policy.Major, policy.Minor)
	}
	codec, err := CodecFor(policy.Grammar)
	if err != nil {
		return nil, err
	}
	return &Assembler{policy: policy, codec: codec}, nil
}

// Policy returns the policy the assembler was built with.
func (a *Assembler) Policy() Policy {
	return a.policy
}

// Codec returns the codec used to parse and render labels.
func (a *Assembler) Codec() Codec {
	return a.codec
}

// Compute derives the facts and label for the current build from the
// revision facts, the previous label and the outcome of the last build.
//
// The build-cycle number advances by one only when the previous build is
// eligible (it succeeded, or the policy increments on failure) and the
// logical revision is unchanged. In every other case it restarts at 1,
// including an ineligible rebuild of an unchanged revision.
func (a *Assembler) Compute(raw RawRevisionFacts, previousLabel string, lastBuildSucceeded bool) (VersionFacts, error) {
	abbrev, err := AbbreviatedHash(raw.CommitHash)
	if err != nil {
		return VersionFacts{}, err
	}

	checkin := raw.CheckinCount
	if checkin < 0 {
		checkin = 0
	}

	facts := VersionFacts{
		commitHash:      raw.CommitHash,
		abbreviatedHash: abbrev,
		parentHash:      raw.ParentHash,
		treeHash:        raw.TreeHash,
		checkinCount:    checkin,
		major:           a.policy.Major,
		minor:           a.policy.Minor,
		grammar:         a.codec.Grammar(),
	}

	previous := a.codec.Parse(previousLabel)
	eligible := lastBuildSucceeded || a.policy.IncrementOnFailure

	facts.buildCycleNumber = 1
	if eligible && a.codec.Unchanged(facts, previous) {
		facts.buildCycleNumber = previous.BuildCycleNumber + 1
	}

	facts.label = a.codec.Format(facts)
	return facts, nil
}

// Compute is a convenience wrapper that builds an Assembler for policy and
// runs a single computation.
func Compute(raw RawRevisionFacts, policy Policy, previousLabel string, lastBuildSucceeded bool) (VersionFacts, error) {
	a, err := NewAssembler(policy)
	if err != nil {
		return VersionFacts{}, err
	}
	return a.Compute(raw, previousLabel, lastBuildSucceeded)
}
