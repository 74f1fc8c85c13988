package build

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"
)

// Build lifecycle events.
const (
	EventBegin   statekit.EventType = "BEGIN"
	EventSucceed statekit.EventType = "SUCCEED"
	EventFail    statekit.EventType = "FAIL"
	EventAbandon statekit.EventType = "ABANDON"
)

// Guard names.
const (
	GuardHasCurrent statekit.GuardType = "hasCurrent"
)

// Build lifecycle states.
var (
	StateIDIdle      statekit.StateID = "idle"
	StateIDPending   statekit.StateID = "pending"
	StateIDSucceeded statekit.StateID = "succeeded"
	StateIDFailed    statekit.StateID = "failed"
	StateIDAbandoned statekit.StateID = "abandoned"
)

// MachineContext is the context carried by the build machine.
type MachineContext struct {
	// HasCurrent reports whether a build is labelled but not finished.
	HasCurrent func() bool
}

// BuildMachine drives one State through the build lifecycle.
//
//	idle|succeeded|failed|abandoned --BEGIN--> pending
//	pending --SUCCEED [hasCurrent]--> succeeded
//	pending --FAIL [hasCurrent]--> failed
//	pending --ABANDON--> abandoned
type BuildMachine struct {
	interpreter *statekit.Interpreter[MachineContext]
}

// NewBuildMachine creates a build machine whose hasCurrent guard consults
// hasCurrent.
func NewBuildMachine(hasCurrent func() bool) (*BuildMachine, error) {
	mctx := MachineContext{HasCurrent: hasCurrent}

	machine, err := statekit.NewMachine[MachineContext]("build").
		WithInitial(StateIDIdle).
		WithGuard(GuardHasCurrent, func(_ MachineContext, e statekit.Event) bool {
			return guardHasCurrent(mctx, e)
		}).
		State(StateIDIdle).
		On(EventBegin).Target(StateIDPending).
		Done().
		State(StateIDPending).
		On(EventSucceed).Target(StateIDSucceeded).Guard(GuardHasCurrent).
		On(EventFail).Target(StateIDFailed).Guard(GuardHasCurrent).
		On(EventAbandon).Target(StateIDAbandoned).
		Done().
		State(StateIDSucceeded).
		On(EventBegin).Target(StateIDPending).
		Done().
		State(StateIDFailed).
		On(EventBegin).Target(StateIDPending).
		Done().
		State(StateIDAbandoned).
		On(EventBegin).Target(StateIDPending).
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("failed to build state machine: %w", err)
	}

	return &BuildMachine{interpreter: statekit.NewInterpreter(machine)}, nil
}

func guardHasCurrent(ctx MachineContext, _ statekit.Event) bool {
	return ctx.HasCurrent != nil && ctx.HasCurrent()
}

// Start starts the machine in the idle state.
func (m *BuildMachine) Start() {
	m.interpreter.Start()
}

// Send sends an event to the machine.
func (m *BuildMachine) Send(event statekit.EventType) error {
	if m.interpreter == nil {
		return fmt.Errorf("interpreter not started")
	}
	m.interpreter.Send(statekit.Event{Type: event})
	return nil
}

// CurrentState returns the current state ID.
func (m *BuildMachine) CurrentState() statekit.StateID {
	if m.interpreter == nil {
		return ""
	}
	return m.interpreter.State().Value
}

// transition sends event and reports whether the machine reached target.
func (m *BuildMachine) transition(event statekit.EventType, target statekit.StateID) (bool, error) {
	if err := m.Send(event); err != nil {
		return false, err
	}
	return m.CurrentState() == target, nil
}

// machine returns a started build machine positioned at the lifecycle state
// of s.
func (s *State) machine() (*BuildMachine, error) {
	m, err := NewBuildMachine(func() bool { return s.Current != nil })
	if err != nil {
		return nil, err
	}
	m.Start()
	if s.Current != nil {
		if err := m.Send(EventBegin); err != nil {
			return nil, err
		}
	}
	return m, nil
}
