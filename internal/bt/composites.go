package bt

import "context"

// Sequence ticks children in order, stopping at the first child that is
// Running or Failure, and resuming the next tick from the earliest child
// that has not converged (memory semantics: converged children are
// skipped on subsequent ticks until the whole sequence is reset).
type Sequence struct {
	Leaf
	children []Node
	index    int
}

// NewSequence builds a Sequence over the given children, ticked in order.
func NewSequence(name string, children ...Node) *Sequence {
	return &Sequence{Leaf: NewLeaf(name), children: children}
}

// Tick advances the sequence.
func (s *Sequence) Tick(ctx context.Context) Status {
	for s.index < len(s.children) {
		status := s.children[s.index].Tick(ctx)
		switch status {
		case Success:
			s.index++
			continue
		case Running:
			return Running
		case Failure:
			return Failure
		default:
			return Invalid
		}
	}
	return Success
}

// Reset rewinds the sequence to its first child and resets every child.
func (s *Sequence) Reset() {
	s.index = 0
	for _, c := range s.children {
		c.Reset()
	}
}

// Fallback (a.k.a. selector) ticks children in order and succeeds as soon
// as one child succeeds, trying the next child on failure. It fails only
// if every child fails.
type Fallback struct {
	Leaf
	children []Node
	index    int
}

// NewFallback builds a Fallback over the given children.
func NewFallback(name string, children ...Node) *Fallback {
	return &Fallback{Leaf: NewLeaf(name), children: children}
}

// Tick advances the fallback.
func (f *Fallback) Tick(ctx context.Context) Status {
	for f.index < len(f.children) {
		status := f.children[f.index].Tick(ctx)
		switch status {
		case Failure:
			f.index++
			continue
		case Running:
			return Running
		case Success:
			return Success
		default:
			return Invalid
		}
	}
	return Failure
}

// Reset rewinds the fallback to its first child and resets every child.
func (f *Fallback) Reset() {
	f.index = 0
	for _, c := range f.children {
		c.Reset()
	}
}

// ParallelBarrier ticks every non-converged child on every tick and only
// changes its own status once all children have converged: Failure if
// any child failed, Success if every child succeeded, Running otherwise.
// It has no policy knob because this module only ever needs the
// all-must-succeed, wait-for-everyone shape — every package's build and
// publish branches run this way so one slow package never blocks the
// others, but the package-level result still waits for both phases.
type ParallelBarrier struct {
	Leaf
	children []Node
	statuses []Status
}

// NewParallelBarrier builds a ParallelBarrier over the given children.
func NewParallelBarrier(name string, children ...Node) *ParallelBarrier {
	return &ParallelBarrier{
		Leaf:     NewLeaf(name),
		children: children,
		statuses: make([]Status, len(children)),
	}
}

// Tick ticks every unconverged child and recomputes the aggregate status.
func (p *ParallelBarrier) Tick(ctx context.Context) Status {
	if len(p.children) == 0 {
		return Success
	}

	for i, c := range p.children {
		if p.statuses[i].Converged() {
			continue
		}
		p.statuses[i] = c.Tick(ctx)
	}

	anyFailure := false
	anyRunning := false
	for _, st := range p.statuses {
		switch st {
		case Failure:
			anyFailure = true
		case Running, Invalid:
			anyRunning = true
		}
	}

	switch {
	case anyRunning:
		return Running
	case anyFailure:
		return Failure
	default:
		return Success
	}
}

// Reset clears every child's converged memory.
func (p *ParallelBarrier) Reset() {
	for i, c := range p.children {
		c.Reset()
		p.statuses[i] = Invalid
	}
}
