package tree

import (
	"context"

	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/release/state"
)

// NewIdentifyTargetRef resolves a phase's concrete dispatch ref from its
// configured ref_template on every tick and writes it back into the
// persisted phase, so the resolved ref survives a resume without needing
// the template re-applied by hand. Rendering is a pure function of the
// tag and release type, so repeated ticks are idempotent.
func NewIdentifyTargetRef(name string, phase *state.PhaseState, refTemplate string, vars func() config.TemplateVars, dirty func()) *bt.ActionFunc {
	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		resolved := config.Render(refTemplate, vars())
		if phase.Ref != resolved {
			phase.Ref = resolved
			dirty()
		}
		return bt.Success
	})
}
