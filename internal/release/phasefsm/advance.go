package phasefsm

import (
	"github.com/felixgeelhaar/statekit"

	"github.com/opsconductor/conductor/internal/release/state"
)

// Advance rebuilds a machine positioned at current, sends event, and
// returns the resulting status. The dispatch and run-discovery leaves
// call this so those transitions are checked against the machine's
// legal-transition table before they land in the persisted document;
// MonitorRun's timeout path and CollectOutcome assign state.PhaseStatus
// values directly, without that check.
func Advance(current state.PhaseStatus, event statekit.EventType) (state.PhaseStatus, error) {
	m, err := FromStatus(current)
	if err != nil {
		return current, err
	}
	if err := m.Send(event); err != nil {
		return current, err
	}
	return m.Status(), nil
}
