package tree

import (
	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/release/state"
)

// PackageOptions carries everything BuildPackageBranch needs to assemble
// one package's branch of the release tree.
type PackageOptions struct {
	Cfg            config.PackageConfig
	Pkg            *state.PackageState
	Doc            *state.ReleaseState
	Deps           Deps
	Dirty          func()
	ForceRebuild   func() bool
	DependencyPkg  *state.PackageState // nil if Cfg.DependsOn is unset
	TemplateVarsFn func() config.TemplateVars
	// ExtraInputs supplies release_tag and the pinned status-thread
	// coordinates, merged into every dispatch's inputs.
	ExtraInputs func() map[string]string
}

// BuildPackageBranch assembles one package's pipeline: an optional
// force-rebuild reset, an optional wait on a configured dependency, the
// build phase, artifact handoff, the publish phase, and finalization —
// all gated by a Guard so a disabled package trivially succeeds without
// ticking any of it.
func BuildPackageBranch(name string, opts PackageOptions) bt.Node {
	steps := make([]bt.Node, 0, 6)

	forceRebuild := bt.NewResetOnceGuard(
		name+".force_rebuild",
		NewForceRebuildOnce(name+".force_rebuild.once", opts.Cfg.Name, opts.Doc, opts.ForceRebuild),
		bt.Success,
		bt.Success,
	)
	steps = append(steps, forceRebuild)

	if opts.DependencyPkg != nil {
		steps = append(steps, NewWaitFor(name+".wait_for_"+opts.Cfg.DependsOn, opts.DependencyPkg))
	}

	build := BuildPhaseSubtree(PhaseOptions{
		Name:        name + ".build",
		Owner:       ownerOf(opts.Cfg.Repo),
		Repo:        repoOf(opts.Cfg.Repo),
		Phase:       &opts.Pkg.Build,
		PhaseCfg:    opts.Cfg.Build,
		Vars:        opts.TemplateVarsFn,
		Deps:        opts.Deps,
		Dirty:       opts.Dirty,
		RetryBudget: 2,
		ExtraInputs: opts.ExtraInputs,
	})
	steps = append(steps, build)

	steps = append(steps, NewCollectArtifacts(
		name+".collect_artifacts",
		ownerOf(opts.Cfg.Repo), repoOf(opts.Cfg.Repo),
		opts.Pkg, opts.Cfg.Build.ArtifactsWhitelist, opts.Deps, opts.Dirty,
	))

	publishVars := func() config.TemplateVars {
		v := opts.TemplateVarsFn()
		v.Artifacts = opts.Pkg.Artifacts
		return v
	}
	publish := BuildPhaseSubtree(PhaseOptions{
		Name:        name + ".publish",
		Owner:       ownerOf(opts.Cfg.Repo),
		Repo:        repoOf(opts.Cfg.Repo),
		Phase:       &opts.Pkg.Publish,
		PhaseCfg:    opts.Cfg.Publish,
		Vars:        publishVars,
		Deps:        opts.Deps,
		Dirty:       opts.Dirty,
		RetryBudget: 2,
		ExtraInputs: opts.ExtraInputs,
	})
	steps = append(steps, publish)

	steps = append(steps, NewFinalizePackage(name+".finalize", opts.Pkg, opts.Dirty))

	branch := bt.NewSequence(name, steps...)
	observed := bt.NewObserve(name+".observe_result", branch, func(status bt.Status) {
		if status == bt.Failure && opts.Pkg.Result != state.ResultSuccess {
			opts.Pkg.Result = state.ResultFailed
			opts.Dirty()
		}
	})
	return bt.NewGuard(name+".guard", func() bool { return opts.Pkg.Enabled }, bt.Success, observed)
}

func ownerOf(repo string) string {
	owner, _, _ := splitRepo(repo)
	return owner
}

func repoOf(repo string) string {
	_, name, _ := splitRepo(repo)
	return name
}
