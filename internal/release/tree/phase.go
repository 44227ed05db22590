package tree

import (
	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/release/state"
)

// PhaseOptions carries everything BuildPhaseSubtree needs beyond the
// phase's own persisted state.
type PhaseOptions struct {
	Name        string
	Owner, Repo string
	Phase       *state.PhaseState
	PhaseCfg    config.PhaseConfig
	Vars        func() config.TemplateVars
	Deps        Deps
	Dirty       func()
	// RetryBudget is the number of attempts the phase subtree gets
	// against transient failures before it gives up. Spec default: 2.
	RetryBudget int
	// ExtraInputs supplies inputs merged in at dispatch time that are
	// not part of the configured inputs_template: release_tag and the
	// pinned status-thread coordinates.
	ExtraInputs func() map[string]string
}

// BuildPhaseSubtree assembles one phase's pipeline: a Fallback that
// short-circuits on an already-succeeded phase, otherwise runs
// identify-ref, dispatch, monitor, and outcome-collection in order,
// wrapped in a conditional retry that spends its budget only on
// transient failures.
func BuildPhaseSubtree(opts PhaseOptions) bt.Node {
	rc := &runContext{}

	extraInputs := opts.ExtraInputs
	if extraInputs == nil {
		extraInputs = func() map[string]string { return nil }
	}

	identify := NewIdentifyTargetRef(opts.Name+".identify_ref", opts.Phase, opts.PhaseCfg.RefTemplate, opts.Vars, opts.Dirty)
	dispatch := NewDispatchIfNeeded(opts.Name+".dispatch", opts.Owner, opts.Repo, opts.Phase, opts.PhaseCfg.InputsTemplate, opts.Vars, extraInputs, opts.Deps, opts.Dirty)
	monitor := NewMonitorRun(opts.Name+".monitor", opts.Owner, opts.Repo, opts.Phase, opts.PhaseCfg.Timeout, opts.Deps, rc, opts.Dirty)
	outcome := NewCollectOutcome(opts.Name+".collect_outcome", opts.Phase, opts.Dirty)

	attemptSeq := bt.NewSequence(opts.Name+".attempt", identify, dispatch, monitor, outcome)

	budget := opts.RetryBudget
	if budget <= 0 {
		budget = 2
	}
	retried := bt.NewRetryIf(opts.Name+".retry", budget, attemptSeq, rc.shouldRetry)

	alreadyDone := NewPhaseAlreadySucceeded(opts.Name+".already_succeeded", opts.Phase)

	return bt.NewFallback(opts.Name, alreadyDone, retried)
}
