// Package build tracks the outcome of labelled builds so the next build can
// recover the previous label and status.
package build

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/felixgeelhaar/statekit"
	"github.com/google/uuid"

	"github.com/relicta-tech/revlabel/internal/domain/label"
)

// MaxHistory bounds the number of finished builds kept in a State.
const MaxHistory = 50

// Status is the outcome of a build.
type Status string

// Build statuses.
const (
	StatusUnknown Status = "unknown"
	StatusPending Status = "pending"
	StatusSuccess Status = "success"
	StatusFailure Status = "failure"
)

// Domain errors for build state.
var (
	// ErrNoBuildInProgress indicates Finish was called without Begin.
	ErrNoBuildInProgress = errors.New("no build in progress")

	// ErrInvalidStatus indicates a status that cannot finish a build.
	ErrInvalidStatus = errors.New("invalid build status")
)

// ParseStatus converts user input into a terminal Status.
func ParseStatus(s string) (Status, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "success", "succeeded", "ok", "pass", "passed":
		return StatusSuccess, nil
	case "failure", "failed", "fail", "error", "broken":
		return StatusFailure, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidStatus, s)
	}
}

// Record describes one labelled build.
type Record struct {
	ID               string    `json:"id"`
	Label            string    `json:"label"`
	Grammar          string    `json:"grammar"`
	CommitHash       string    `json:"commit_hash"`
	CheckinCount     int       `json:"checkin_count"`
	BuildCycleNumber int       `json:"build_cycle_number"`
	Status           Status    `json:"status"`
	StartedAt        time.Time `json:"started_at"`
	FinishedAt       time.Time `json:"finished_at,omitzero"`
}

// State is the persisted labelling history of one project.
type State struct {
	// LastSuccessfulLabel is the label of the most recent successful build.
	LastSuccessfulLabel string `json:"last_successful_label,omitempty"`
	// LastStatus is the outcome of the most recent finished build.
	LastStatus Status `json:"last_status,omitempty"`
	// Current is the build labelled but not yet finished.
	Current *Record `json:"current,omitempty"`
	// History holds finished builds, oldest first.
	History []Record `json:"history,omitempty"`
}

// PreviousLabel returns the label the next build is computed from, or
// sentinel when no build has succeeded yet.
func (s *State) PreviousLabel(sentinel string) string {
	if s == nil || s.LastSuccessfulLabel == "" {
		return sentinel
	}
	return s.LastSuccessfulLabel
}

// LastBuildSucceeded reports whether the most recent finished build succeeded.
func (s *State) LastBuildSucceeded() bool {
	return s != nil && s.LastStatus == StatusSuccess
}

// Begin starts a build labelled with facts. A build still pending is moved
// to the history with an unknown outcome.
func (s *State) Begin(facts label.VersionFacts, now time.Time) (Record, error) {
	m, err := s.machine()
	if err != nil {
		return Record{}, err
	}

	if m.CurrentState() == StateIDPending {
		ok, err := m.transition(EventAbandon, StateIDAbandoned)
		if err != nil {
			return Record{}, err
		}
		if ok {
			abandoned := *s.Current
			abandoned.Status = StatusUnknown
			s.Current = nil
			s.appendHistory(abandoned)
		}
	}

	ok, err := m.transition(EventBegin, StateIDPending)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, fmt.Errorf("cannot begin build from state %s", m.CurrentState())
	}

	rec := Record{
		ID:               uuid.NewString(),
		Label:            facts.Label(),
		Grammar:          facts.Grammar().String(),
		CommitHash:       facts.CommitHash(),
		CheckinCount:     facts.CheckinCount(),
		BuildCycleNumber: facts.BuildCycleNumber(),
		Status:           StatusPending,
		StartedAt:        now.UTC(),
	}
	s.Current = &rec
	return rec, nil
}

// Finish records the outcome of the current build.
func (s *State) Finish(status Status, now time.Time) (Record, error) {
	var (
		event  statekit.EventType
		target statekit.StateID
	)
	switch status {
	case StatusSuccess:
		event, target = EventSucceed, StateIDSucceeded
	case StatusFailure:
		event, target = EventFail, StateIDFailed
	default:
		return Record{}, fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	m, err := s.machine()
	if err != nil {
		return Record{}, err
	}
	if !guardHasCurrent(MachineContext{HasCurrent: func() bool { return s.Current != nil }}, statekit.Event{}) {
		return Record{}, ErrNoBuildInProgress
	}
	ok, err := m.transition(event, target)
	if err != nil {
		return Record{}, err
	}
	if !ok {
		return Record{}, ErrNoBuildInProgress
	}

	rec := *s.Current
	rec.Status = status
	rec.FinishedAt = now.UTC()

	s.LastStatus = status
	if status == StatusSuccess {
		s.LastSuccessfulLabel = rec.Label
	}
	s.Current = nil
	s.appendHistory(rec)
	return rec, nil
}

func (s *State) appendHistory(rec Record) {
	s.History = append(s.History, rec)
	if over := len(s.History) - MaxHistory; over > 0 {
		s.History = append([]Record(nil), s.History[over:]...)
	}
}

// Repository persists State.
// Implemented in the infrastructure layer.
type Repository interface {
	// Load returns the stored state, or an empty state when none exists.
	Load(ctx context.Context) (*State, error)
	// Save stores state.
	Save(ctx context.Context, state *State) error
}
