package tree

import (
	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/release/state"
)

// AssembleOptions carries everything Assemble needs to build the full
// release tree from a loaded config and a loaded (or freshly created)
// state document.
type AssembleOptions struct {
	Cfg  *config.Config
	Doc  *state.ReleaseState
	Deps Deps

	// OnlyPackages restricts the enabled set; empty means every
	// configured package is enabled.
	OnlyPackages []string
	// ForceRebuild selects packages that should reset their persisted
	// progress before this run. The coarse-grained selector is applied
	// here (to the document) before tree assembly, per the controller's
	// reset-then-tick sequencing; the in-tree ResetOnceGuard leaf is
	// still wired per package but its trigger defaults to false since
	// the reset has already happened by assembly time.
	ForceRebuild state.ResetSelector
}

// Assemble builds the root of the release tree: a Parallel(all_success)
// over every configured package's branch.
func Assemble(opts AssembleOptions) bt.Node {
	onlySet := make(map[string]bool, len(opts.OnlyPackages))
	for _, name := range opts.OnlyPackages {
		onlySet[name] = true
	}
	restrictEnabled := len(onlySet) > 0

	opts.Doc.Apply(opts.ForceRebuild)

	for _, pc := range opts.Cfg.Packages {
		pkg := opts.Doc.EnsurePackage(pc.Name)
		initializePhaseIfUnset(&pkg.Build, pc.Build.Workflow)
		initializePhaseIfUnset(&pkg.Publish, pc.Publish.Workflow)

		enabled := true
		if restrictEnabled {
			enabled = onlySet[pc.Name]
		}
		if pkg.Enabled != enabled {
			pkg.Enabled = enabled
			opts.Doc.MarkDirty()
		}
	}

	branches := make([]bt.Node, 0, len(opts.Cfg.Packages))
	for _, pc := range opts.Cfg.Packages {
		pkg := opts.Doc.Packages[pc.Name]

		var dep *state.PackageState
		if pc.DependsOn != "" {
			dep = opts.Doc.Packages[pc.DependsOn]
		}

		branches = append(branches, BuildPackageBranch("package."+pc.Name, PackageOptions{
			Cfg:           pc,
			Pkg:           pkg,
			Doc:           opts.Doc,
			Deps:          opts.Deps,
			Dirty:         opts.Doc.MarkDirty,
			ForceRebuild:  func() bool { return false },
			DependencyPkg: dep,
			TemplateVarsFn: func() config.TemplateVars {
				return config.TemplateVars{Tag: opts.Doc.Tag, ReleaseType: opts.Doc.ReleaseType}
			},
			ExtraInputs: func() map[string]string {
				extra := map[string]string{"release_tag": opts.Doc.Tag}
				if opts.Doc.Meta.Ephemeral.StatusChannel != "" {
					extra["status_channel"] = opts.Doc.Meta.Ephemeral.StatusChannel
					extra["status_ts"] = opts.Doc.Meta.Ephemeral.StatusThreadTS
				}
				return extra
			},
		}))
	}

	return bt.NewParallelBarrier("release", branches...)
}

func initializePhaseIfUnset(phase *state.PhaseState, workflow string) {
	if phase.Workflow == "" {
		phase.Workflow = workflow
		phase.Status = state.PhaseNotStarted
	}
}
