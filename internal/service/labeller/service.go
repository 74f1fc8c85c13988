// Package labeller computes, records and publishes build labels.
package labeller

import (
	"context"

	"github.com/relicta-tech/revlabel/internal/domain/build"
	"github.com/relicta-tech/revlabel/internal/domain/label"
)

// Service defines the labelling operations of one project.
type Service interface {
	// Next computes the label of a new build, records it as the current
	// build and publishes its facts.
	Next(ctx context.Context, opts NextOptions) (*Result, error)

	// Preview computes the label Next would produce without recording or
	// publishing anything.
	Preview(ctx context.Context, opts NextOptions) (*Result, error)

	// Record stores the outcome of the current build.
	Record(ctx context.Context, status build.Status) (*build.Record, error)

	// State returns the stored build state.
	State(ctx context.Context) (*build.State, error)
}

// VersionSource selects where the major and minor components come from.
type VersionSource string

// Version sources.
const (
	// VersionSourceConfig uses the configured major and minor.
	VersionSourceConfig VersionSource = "config"
	// VersionSourceTag uses the newest semantic version tag.
	VersionSourceTag VersionSource = "tag"
)

// NextOptions overrides the stored history for one computation.
type NextOptions struct {
	// PreviousLabel replaces the last successful label from the state store.
	PreviousLabel *string
	// LastBuildSucceeded replaces the last build status from the state store.
	LastBuildSucceeded *bool
}

// Result is the outcome of a label computation.
type Result struct {
	// Facts holds the computed version facts.
	Facts label.VersionFacts
	// Published is the fact set handed to the publishers.
	Published label.FactSet
	// RepositoryPath is the resolved location of the configured remote.
	RepositoryPath string
	// PreviousLabel is the label the computation started from.
	PreviousLabel string
	// LastBuildSucceeded is the status the computation started from.
	LastBuildSucceeded bool
	// BaseVersion names the tag major and minor were taken from, if any.
	BaseVersion string
	// Record is the build recorded by Next; nil for Preview.
	Record *build.Record
}

// Label returns the computed label.
func (r *Result) Label() string {
	return r.Facts.Label()
}
