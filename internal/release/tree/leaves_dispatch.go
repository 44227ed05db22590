package tree

import (
	"context"
	"time"

	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/release/phasefsm"
	"github.com/opsconductor/conductor/internal/release/state"
)

// NewDispatchIfNeeded fires the workflow dispatch exactly once per
// attempt: it checks the phase's persisted dispatch uuid rather than its
// run handle, so that a process that crashed after dispatching but before
// correlating a run id resumes by monitoring the existing dispatch
// instead of firing a duplicate one.
//
// This guard is keyed on persisted state, not bt-level reset, so it also
// short-circuits a bt.RetryIf-driven retry of an already-concluded phase:
// the retried attempt re-polls the same dispatch uuid rather than minting
// a fresh one. Automatic re-dispatch on retry is not implemented; only
// an explicit force-rebuild (state.PhaseState.Reset, which clears UUID
// and bumps Attempts) starts a phase over.
func NewDispatchIfNeeded(name string, owner, repo string, phase *state.PhaseState, inputsTemplate map[string]string, vars func() config.TemplateVars, extraInputs func() map[string]string, deps Deps, dirty func()) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		if phase.UUID != "" {
			return bt.Success
		}

		dispatchID := deps.NewUUID()
		inputs := config.RenderInputs(inputsTemplate, vars())
		for k, v := range extraInputs() {
			inputs[k] = v
		}

		err := deps.Workflow.Dispatch(ctx, workflow.DispatchRequest{
			Owner:      owner,
			Repo:       repo,
			Workflow:   phase.Workflow,
			Ref:        phase.Ref,
			Inputs:     inputs,
			DispatchID: dispatchID,
		})
		if err != nil {
			if deps.Metrics != nil {
				deps.Metrics.Inc("dispatch_failed_total")
			}
			return bt.Failure
		}

		next, fsmErr := phasefsm.Advance(phase.Status, phasefsm.EventDispatch)
		if fsmErr != nil {
			return bt.Failure
		}

		now := deps.Now()
		phase.UUID = dispatchID
		phase.Status = next
		phase.DispatchedAt = &now
		phase.Inputs = inputs
		dirty()

		if deps.Metrics != nil {
			deps.Metrics.Inc("dispatch_total")
		}
		return bt.Success
	})
}

// dispatchSince returns the timestamp to bound the recent-runs scan,
// falling back to a generous window if the dispatch timestamp was lost.
func dispatchSince(phase *state.PhaseState) time.Time {
	if phase.DispatchedAt != nil {
		return *phase.DispatchedAt
	}
	return time.Now().Add(-24 * time.Hour)
}
