package tree

import (
	"context"

	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/release/state"
)

// NewPhaseAlreadySucceeded is the condition leaf that lets a resumed or
// re-run phase short-circuit the fallback's dispatch-and-monitor branch
// once it has already converged successfully.
func NewPhaseAlreadySucceeded(name string, phase *state.PhaseState) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		if phase.Status == state.PhaseSucceeded {
			return bt.Success
		}
		return bt.Failure
	})
}

// NewFinalizePackage builds the leaf that records a package's terminal
// success once both its phases have converged; it is the last step of a
// package's branch, reached only if every prior step succeeded.
func NewFinalizePackage(name string, pkg *state.PackageState, dirty func()) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		pkg.Result = state.ResultSuccess
		dirty()
		return bt.Success
	})
}

// NewWaitFor builds the leaf a dependent package's branch uses to block
// on another package's result before starting its own build. It fails
// (rather than hanging) once the dependency itself reaches a non-success
// terminal result, so a failed upstream package doesn't leave its
// dependents running forever under the root's all-success parallel
// barrier.
func NewWaitFor(name string, dependency *state.PackageState) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		switch dependency.Result {
		case state.ResultSuccess:
			return bt.Success
		case state.ResultFailed, state.ResultSkipped:
			return bt.Failure
		default:
			return bt.Running
		}
	})
}

// NewForceRebuildOnce resets a package's persisted build/publish/
// artifacts/result back to defaults when requested() is true at the
// time it is ticked, and always returns Success. Callers wrap it in
// bt.NewResetOnceGuard, which latches on that first Success, so the leaf
// is ticked only once per run even though it is stateless: requested()
// is consulted on the branch's first tick only.
func NewForceRebuildOnce(name string, pkgName string, doc *state.ReleaseState, requested func() bool) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		if requested() {
			doc.ResetPackage(pkgName)
		}
		return bt.Success
	})
}
