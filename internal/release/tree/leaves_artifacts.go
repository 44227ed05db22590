package tree

import (
	"context"

	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/release/state"
)

// NewCollectArtifacts builds the leaf that enumerates a completed build
// run's artifacts, filters them by the configured whitelist (an empty
// whitelist collects everything), mints a fresh signed download URL for
// each survivor, and stamps it with its source run id. Re-invocation
// overwrites package.artifacts with the same computation, so it is safe
// to re-tick across resumes — each resume simply mints new URLs, since
// the upstream ones expire.
func NewCollectArtifacts(name, owner, repo string, pkg *state.PackageState, whitelist []string, deps Deps, dirty func()) *bt.ActionFunc {
	allowed := make(map[string]bool, len(whitelist))
	for _, n := range whitelist {
		allowed[n] = true
	}

	return bt.NewActionFunc(name, func(ctx context.Context) bt.Status {
		if pkg.Build.Status != state.PhaseSucceeded || pkg.Build.Run == nil {
			return bt.Failure
		}

		artifacts, err := deps.Workflow.ListArtifacts(ctx, owner, repo, pkg.Build.Run.ID)
		if err != nil {
			return bt.Failure
		}

		collected := make(map[string]state.ArtifactRef, len(artifacts))
		for _, a := range artifacts {
			if len(allowed) > 0 && !allowed[a.Name] {
				continue
			}
			downloadURL, err := deps.Workflow.DownloadArtifact(ctx, owner, repo, a.ID)
			if err != nil {
				return bt.Failure
			}
			collected[a.Name] = state.ArtifactRef{
				Name:        a.Name,
				SourceRunID: pkg.Build.Run.ID,
				DownloadURL: downloadURL,
				Size:        a.SizeBytes,
			}
		}

		pkg.Artifacts = collected
		dirty()
		return bt.Success
	})
}
