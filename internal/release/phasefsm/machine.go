// Package phasefsm defines the per-phase status machine shared by every
// package's build and publish phase. It is a thin statekit wrapper around
// the state.PhaseStatus vocabulary, giving the tree leaves a single place
// to validate that an observed transition is legal before it is written
// back into the persisted document.
package phasefsm

import (
	"fmt"

	"github.com/felixgeelhaar/statekit"

	"github.com/opsconductor/conductor/internal/release/state"
)

// Event names for the phase machine.
const (
	EventDispatch          statekit.EventType = "DISPATCH"
	EventObserveInProgress statekit.EventType = "OBSERVE_IN_PROGRESS"
	EventObserveSuccess    statekit.EventType = "OBSERVE_SUCCESS"
	EventObserveFailure    statekit.EventType = "OBSERVE_FAILURE"
	EventTimeout           statekit.EventType = "TIMEOUT"
	EventCancel            statekit.EventType = "CANCEL"
	EventRetry             statekit.EventType = "RETRY"
)

var (
	stateNotStarted statekit.StateID = statekit.StateID(state.PhaseNotStarted)
	stateTriggered  statekit.StateID = statekit.StateID(state.PhaseTriggered)
	stateInProgress statekit.StateID = statekit.StateID(state.PhaseInProgress)
	stateSucceeded  statekit.StateID = statekit.StateID(state.PhaseSucceeded)
	stateFailed     statekit.StateID = statekit.StateID(state.PhaseFailed)
	stateCancelled  statekit.StateID = statekit.StateID(state.PhaseCancelled)
	stateTimedOut   statekit.StateID = statekit.StateID(state.PhaseTimedOut)
)

// RunContext is the (currently unused) context type statekit's generic
// machine requires; the phase machine needs no guard state of its own.
// No tree leaf or decorator sends EventRetry, and the machine places no
// attempt budget on it.
type RunContext struct{}

// Machine wraps a statekit interpreter scoped to one phase's lifecycle.
type Machine struct {
	interpreter *statekit.Interpreter[RunContext]
}

// New builds and starts a fresh phase machine positioned at notStarted.
func New() (*Machine, error) {
	machine, err := statekit.NewMachine[RunContext]("release-phase").
		WithInitial(stateNotStarted).
		State(stateNotStarted).
		On(EventDispatch).Target(stateTriggered).
		Done().
		State(stateTriggered).
		On(EventObserveInProgress).Target(stateInProgress).
		On(EventObserveSuccess).Target(stateSucceeded).
		On(EventObserveFailure).Target(stateFailed).
		On(EventTimeout).Target(stateTimedOut).
		On(EventCancel).Target(stateCancelled).
		Done().
		State(stateInProgress).
		On(EventObserveInProgress).Target(stateInProgress).
		On(EventObserveSuccess).Target(stateSucceeded).
		On(EventObserveFailure).Target(stateFailed).
		On(EventTimeout).Target(stateTimedOut).
		On(EventCancel).Target(stateCancelled).
		Done().
		State(stateSucceeded).
		Final().
		Done().
		State(stateFailed).
		On(EventRetry).Target(stateTriggered).
		Done().
		State(stateTimedOut).
		On(EventRetry).Target(stateTriggered).
		Done().
		State(stateCancelled).
		Final().
		Done().
		Build()
	if err != nil {
		return nil, fmt.Errorf("build phase machine: %w", err)
	}
	interp := statekit.NewInterpreter(machine)
	interp.Start()
	return &Machine{interpreter: interp}, nil
}

// FromStatus rebuilds a machine positioned at an already-persisted status,
// used when resuming a run after the process restarted mid-release.
func FromStatus(status state.PhaseStatus) (*Machine, error) {
	m, err := New()
	if err != nil {
		return nil, err
	}
	switch status {
	case state.PhaseNotStarted:
		return m, nil
	case state.PhaseTriggered:
		if err := m.Send(EventDispatch); err != nil {
			return nil, err
		}
	case state.PhaseInProgress:
		if err := m.Send(EventDispatch); err != nil {
			return nil, err
		}
		if err := m.Send(EventObserveInProgress); err != nil {
			return nil, err
		}
	default:
		// Terminal states aren't resumable; callers reset the phase
		// before rebuilding a machine for it.
		return nil, fmt.Errorf("phasefsm: cannot resume from terminal status %q", status)
	}
	return m, nil
}

// Send advances the machine, returning an error if the event is not a
// legal transition from the current state.
func (m *Machine) Send(event statekit.EventType) error {
	before := m.interpreter.State().Value
	m.interpreter.Send(statekit.Event{Type: event})
	after := m.interpreter.State().Value
	if before == after && event != EventObserveInProgress {
		return fmt.Errorf("phasefsm: event %s not accepted from state %s", event, before)
	}
	return nil
}

// Status returns the current state translated back to a PhaseStatus.
func (m *Machine) Status() state.PhaseStatus {
	return state.PhaseStatus(m.interpreter.State().Value)
}

// Done reports whether the phase has reached a final state.
func (m *Machine) Done() bool {
	return m.interpreter.Done()
}
