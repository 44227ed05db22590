package phasefsm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/release/phasefsm"
	"github.com/opsconductor/conductor/internal/release/state"
)

func TestNewMachineStartsNotStarted(t *testing.T) {
	m, err := phasefsm.New()
	require.NoError(t, err)
	assert.Equal(t, state.PhaseNotStarted, m.Status())
	assert.False(t, m.Done())
}

func TestHappyPathToSucceeded(t *testing.T) {
	m, err := phasefsm.New()
	require.NoError(t, err)

	require.NoError(t, m.Send(phasefsm.EventDispatch))
	assert.Equal(t, state.PhaseTriggered, m.Status())

	require.NoError(t, m.Send(phasefsm.EventObserveInProgress))
	assert.Equal(t, state.PhaseInProgress, m.Status())

	require.NoError(t, m.Send(phasefsm.EventObserveSuccess))
	assert.Equal(t, state.PhaseSucceeded, m.Status())
	assert.True(t, m.Done())
}

func TestFailureThenRetryReturnsToTriggered(t *testing.T) {
	m, err := phasefsm.New()
	require.NoError(t, err)

	require.NoError(t, m.Send(phasefsm.EventDispatch))
	require.NoError(t, m.Send(phasefsm.EventObserveFailure))
	assert.Equal(t, state.PhaseFailed, m.Status())

	require.NoError(t, m.Send(phasefsm.EventRetry))
	assert.Equal(t, state.PhaseTriggered, m.Status())
}

func TestIllegalTransitionFromTerminalStateErrors(t *testing.T) {
	m, err := phasefsm.New()
	require.NoError(t, err)

	require.NoError(t, m.Send(phasefsm.EventDispatch))
	require.NoError(t, m.Send(phasefsm.EventObserveSuccess))

	err = m.Send(phasefsm.EventDispatch)
	assert.Error(t, err)
}

func TestFromStatusResumesInProgress(t *testing.T) {
	m, err := phasefsm.FromStatus(state.PhaseInProgress)
	require.NoError(t, err)
	assert.Equal(t, state.PhaseInProgress, m.Status())
}

func TestFromStatusRejectsTerminalStatus(t *testing.T) {
	_, err := phasefsm.FromStatus(state.PhaseSucceeded)
	assert.Error(t, err)
}
