package bt

import (
	"context"
	"time"
)

// Inverter flips Success and Failure, passing Running and Invalid
// through unchanged.
type Inverter struct {
	Leaf
	child Node
}

// NewInverter wraps child in an Inverter.
func NewInverter(name string, child Node) *Inverter {
	return &Inverter{Leaf: NewLeaf(name), child: child}
}

// Tick ticks the child and inverts a converged result.
func (i *Inverter) Tick(ctx context.Context) Status {
	switch i.child.Tick(ctx) {
	case Success:
		return Failure
	case Failure:
		return Success
	case Running:
		return Running
	default:
		return Invalid
	}
}

// Reset resets the child.
func (i *Inverter) Reset() { i.child.Reset() }

// Retry re-ticks a failed child up to maxAttempts times, resetting it
// between attempts. It passes Running through, and gives up (returning
// Failure) once the attempt budget is exhausted.
type Retry struct {
	Leaf
	child       Node
	maxAttempts int
	attempts    int
}

// NewRetry wraps child with a bounded retry budget.
func NewRetry(name string, maxAttempts int, child Node) *Retry {
	return &Retry{Leaf: NewLeaf(name), child: child, maxAttempts: maxAttempts}
}

// Tick ticks the child, retrying on Failure until the budget is spent.
func (r *Retry) Tick(ctx context.Context) Status {
	status := r.child.Tick(ctx)
	if status != Failure {
		return status
	}

	r.attempts++
	if r.attempts >= r.maxAttempts {
		return Failure
	}
	r.child.Reset()
	return Running
}

// Reset clears the attempt counter and the child.
func (r *Retry) Reset() {
	r.attempts = 0
	r.child.Reset()
}

// Attempts reports how many failed attempts have been consumed so far.
func (r *Retry) Attempts() int { return r.attempts }

// RetryIf is Retry with an added classifier: a failure only consumes the
// retry budget when shouldRetry returns true, letting a leaf mark its own
// failure as non-transient (authentication, 404, bad config) and force
// immediate, unretried termination regardless of the budget remaining.
//
// child.Reset() between attempts clears only bt-level bookkeeping (a
// composite's child index, a leaf's own in-memory fields) — it never
// touches any state.PhaseState a leaf closes over. A phase leaf whose
// guard condition is keyed on persisted state (NewDispatchIfNeeded
// checking phase.UUID) therefore short-circuits the same way on a
// retried attempt as it did on the first one: retrying a phase that
// already concluded re-polls the same concluded run rather than
// dispatching a fresh one. The retry budget still protects against a
// flaky classification of a transient failure; it does not implement
// the automatic re-dispatch a literal reading of "a new attempt resets
// the phase to not_started" would suggest — that's out of scope here.
type RetryIf struct {
	Leaf
	child       Node
	maxAttempts int
	attempts    int
	shouldRetry func() bool
}

// NewRetryIf wraps child with a bounded, conditionally-consulted retry
// budget.
func NewRetryIf(name string, maxAttempts int, child Node, shouldRetry func() bool) *RetryIf {
	return &RetryIf{Leaf: NewLeaf(name), child: child, maxAttempts: maxAttempts, shouldRetry: shouldRetry}
}

// Tick ticks the child, retrying on Failure only while shouldRetry and the
// budget both allow it.
func (r *RetryIf) Tick(ctx context.Context) Status {
	status := r.child.Tick(ctx)
	if status != Failure {
		return status
	}
	if !r.shouldRetry() {
		return Failure
	}

	r.attempts++
	if r.attempts >= r.maxAttempts {
		return Failure
	}
	r.child.Reset()
	return Running
}

// Reset clears the attempt counter and the child.
func (r *RetryIf) Reset() {
	r.attempts = 0
	r.child.Reset()
}

// Attempts reports how many failed attempts have been consumed so far.
func (r *RetryIf) Attempts() int { return r.attempts }

// Timeout fails a still-Running child once a deadline relative to the
// decorator's first tick has elapsed, without the child's cooperation —
// from the first tick past the deadline it returns Failure without
// ticking the child, and keeps doing so until Reset clears the deadline.
type Timeout struct {
	Leaf
	child    Node
	duration time.Duration
	deadline time.Time
	started  bool
	now      func() time.Time
}

// NewTimeout wraps child with a wall-clock deadline.
func NewTimeout(name string, duration time.Duration, child Node) *Timeout {
	return &Timeout{Leaf: NewLeaf(name), child: child, duration: duration, now: time.Now}
}

// Tick starts the deadline on first tick, then fails once it has passed.
func (t *Timeout) Tick(ctx context.Context) Status {
	now := t.now()
	if !t.started {
		t.started = true
		t.deadline = now.Add(t.duration)
	}
	if now.After(t.deadline) {
		return Failure
	}
	return t.child.Tick(ctx)
}

// Reset clears the deadline and the child.
func (t *Timeout) Reset() {
	t.started = false
	t.child.Reset()
}

// Observe wraps a child and invokes onConverge exactly once, the first
// time the child reaches a terminal status, then passes that status
// through unchanged on every tick including the one that triggered it.
// It exists so callers can react to a subtree's convergence (stamping a
// package's terminal result, say) without threading that bookkeeping
// through every leaf of the subtree.
type Observe struct {
	Leaf
	child      Node
	onConverge func(Status)
	notified   bool
}

// NewObserve wraps child with a one-shot convergence callback.
func NewObserve(name string, child Node, onConverge func(Status)) *Observe {
	return &Observe{Leaf: NewLeaf(name), child: child, onConverge: onConverge}
}

// Tick ticks the child and fires onConverge the first time it converges.
func (o *Observe) Tick(ctx context.Context) Status {
	status := o.child.Tick(ctx)
	if status.Converged() && !o.notified {
		o.notified = true
		o.onConverge(status)
	}
	return status
}

// Reset clears the notified latch and the child.
func (o *Observe) Reset() {
	o.notified = false
	o.child.Reset()
}

// Guard ticks the child only while predicate returns true; otherwise it
// short-circuits to skipStatus without ticking the child at all. This is
// how the tree skips a disabled package's branches entirely.
type Guard struct {
	Leaf
	child      Node
	predicate  func() bool
	skipStatus Status
}

// NewGuard wraps child with a precondition.
func NewGuard(name string, predicate func() bool, skipStatus Status, child Node) *Guard {
	return &Guard{Leaf: NewLeaf(name), child: child, predicate: predicate, skipStatus: skipStatus}
}

// Tick evaluates the predicate before deciding whether to tick the child.
func (g *Guard) Tick(ctx context.Context) Status {
	if !g.predicate() {
		return g.skipStatus
	}
	return g.child.Tick(ctx)
}

// Reset resets the child.
func (g *Guard) Reset() { g.child.Reset() }

// ResetOnceGuard ticks its child normally until the child converges to a
// status in raiseOn, at which point it latches a flag and thereafter
// returns latchStatus on every subsequent tick without re-ticking the
// child — until something external calls Reset. The release tree wraps
// each package's force-rebuild leaf in one, so that leaf runs at most
// once per run.
type ResetOnceGuard struct {
	Leaf
	child       Node
	raiseOn     map[Status]bool
	latchStatus Status
	latched     bool
}

// NewResetOnceGuard wraps child with a latch-on-first-convergence guard.
func NewResetOnceGuard(name string, child Node, latchStatus Status, raiseOn ...Status) *ResetOnceGuard {
	set := make(map[Status]bool, len(raiseOn))
	for _, s := range raiseOn {
		set[s] = true
	}
	return &ResetOnceGuard{Leaf: NewLeaf(name), child: child, raiseOn: set, latchStatus: latchStatus}
}

// Tick returns the latched status once raised, otherwise delegates to the
// child and raises the latch if the child's result matches raiseOn.
func (g *ResetOnceGuard) Tick(ctx context.Context) Status {
	if g.latched {
		return g.latchStatus
	}
	status := g.child.Tick(ctx)
	if g.raiseOn[status] {
		g.latched = true
		return g.latchStatus
	}
	return status
}

// Reset clears the latch and the child, the only way back to ticking the
// child again.
func (g *ResetOnceGuard) Reset() {
	g.latched = false
	g.child.Reset()
}
