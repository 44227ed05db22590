package tree

import (
	"context"
	"time"

	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/release/phasefsm"
	"github.com/opsconductor/conductor/internal/release/state"
)

const (
	monitorInitialBackoff = 10 * time.Second
	monitorMaxBackoff     = 2 * time.Minute

	// correlateFallbackAfter is how many unsuccessful uuid-match polls
	// MonitorRun spends before it gives up on the listable-uuid
	// correlation strategy and falls back to "most recent run of this
	// workflow file since dispatch", per the resolved correlation open
	// question.
	correlateFallbackAfter = 3
)

// MonitorRun is a deferred leaf: it correlates the dispatched run (if not
// yet known) and then polls it on an exponential backoff until the
// workflow host reports a terminal run status. It does not interpret the
// conclusion — CollectOutcome does that — it only waits for completion.
type MonitorRun struct {
	bt.Leaf
	owner, repo, workflowFile string
	phase                     *state.PhaseState
	deps                      Deps
	rc                        *runContext
	dirty                     func()
	timeout                   time.Duration

	backoff         time.Duration
	nextPoll        time.Time
	correlateMisses int
}

// NewMonitorRun builds a MonitorRun leaf for one phase. timeout bounds
// how long the phase may stay running, measured from its dispatch
// timestamp; zero means no overall cap.
func NewMonitorRun(name, owner, repo string, phase *state.PhaseState, timeout time.Duration, deps Deps, rc *runContext, dirty func()) *MonitorRun {
	return &MonitorRun{
		Leaf:         bt.NewLeaf(name),
		owner:        owner,
		repo:         repo,
		workflowFile: phase.Workflow,
		phase:        phase,
		deps:         deps,
		rc:           rc,
		dirty:        dirty,
		timeout:      timeout,
		backoff:      monitorInitialBackoff,
	}
}

// Tick correlates and polls the run, returning Running until the
// workflow host reports it complete, or Failure once the overall
// per-phase timeout has elapsed.
func (m *MonitorRun) Tick(ctx context.Context) bt.Status {
	if m.timedOut() {
		m.phase.Status = state.PhaseTimedOut
		m.dirty()
		return bt.Failure
	}
	if m.phase.Run == nil {
		return m.correlate(ctx)
	}
	return m.poll(ctx)
}

func (m *MonitorRun) timedOut() bool {
	if m.timeout <= 0 || m.phase.DispatchedAt == nil {
		return false
	}
	return m.deps.Now().After(m.phase.DispatchedAt.Add(m.timeout))
}

func (m *MonitorRun) correlate(ctx context.Context) bt.Status {
	now := m.deps.Now()
	if now.Before(m.nextPoll) {
		return bt.Running
	}

	run, err := m.deps.Workflow.FindRunByDispatchID(ctx, m.owner, m.repo, m.workflowFile, m.phase.UUID, dispatchSince(m.phase))
	if err != nil {
		if nonTransient, reason := classifyClientError(err); nonTransient {
			m.rc.markNonTransient(reason)
		}
		m.scheduleNextPoll(now)
		return bt.Failure
	}
	if run == nil {
		m.correlateMisses++
		if m.correlateMisses >= correlateFallbackAfter {
			fallback, ferr := m.deps.Workflow.FindMostRecentRun(ctx, m.owner, m.repo, m.workflowFile, dispatchSince(m.phase))
			if ferr != nil {
				if nonTransient, reason := classifyClientError(ferr); nonTransient {
					m.rc.markNonTransient(reason)
				}
				m.scheduleNextPoll(now)
				return bt.Failure
			}
			run = fallback
		}
		if run == nil {
			m.scheduleNextPoll(now)
			return bt.Running
		}
	}

	m.phase.Run = workflow.ToWorkflowRun(run)
	if next, err := phasefsm.Advance(m.phase.Status, phasefsm.EventObserveInProgress); err == nil {
		m.phase.Status = next
	}
	m.dirty()
	m.backoff = monitorInitialBackoff
	if workflow.IsRunning(run.Status) {
		m.scheduleNextPoll(now)
		return bt.Running
	}
	return bt.Success
}

func (m *MonitorRun) poll(ctx context.Context) bt.Status {
	now := m.deps.Now()
	if now.Before(m.nextPoll) {
		return bt.Running
	}

	run, err := m.deps.Workflow.GetRun(ctx, m.owner, m.repo, m.phase.Run.ID)
	if err != nil {
		if nonTransient, reason := classifyClientError(err); nonTransient {
			m.rc.markNonTransient(reason)
		}
		m.scheduleNextPoll(now)
		return bt.Failure
	}

	m.phase.Run = workflow.ToWorkflowRun(run)
	m.dirty()

	if workflow.IsRunning(run.Status) {
		if next, err := phasefsm.Advance(m.phase.Status, phasefsm.EventObserveInProgress); err == nil {
			m.phase.Status = next
		}
		m.dirty()
		m.scheduleNextPoll(now)
		return bt.Running
	}
	return bt.Success
}

func (m *MonitorRun) scheduleNextPoll(now time.Time) {
	m.nextPoll = now.Add(m.backoff)
	m.backoff *= 2
	if m.backoff > monitorMaxBackoff {
		m.backoff = monitorMaxBackoff
	}
}

// Reset clears backoff state, used when the phase subtree restarts a
// fresh attempt.
func (m *MonitorRun) Reset() {
	m.backoff = monitorInitialBackoff
	m.nextPoll = time.Time{}
	m.correlateMisses = 0
}

// NewCollectOutcome builds the leaf that maps a completed run's
// conclusion onto the phase's terminal status, once MonitorRun has
// observed the run reach a terminal workflow-host status.
func NewCollectOutcome(name string, phase *state.PhaseState, dirty func()) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		if phase.Run == nil {
			return bt.Failure
		}
		switch phase.Run.Conclusion {
		case "success":
			phase.Status = state.PhaseSucceeded
			dirty()
			return bt.Success
		case "cancelled":
			phase.Status = state.PhaseCancelled
		case "timed_out":
			phase.Status = state.PhaseTimedOut
		default:
			phase.Status = state.PhaseFailed
		}
		dirty()
		return bt.Failure
	})
}
