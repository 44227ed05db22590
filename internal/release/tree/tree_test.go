package tree_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/bttest"
	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/observability"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/tree"
)

func dockerConfig() *config.Config {
	return &config.Config{
		Packages: []config.PackageConfig{
			{
				Name: "docker",
				Repo: "acme/docker-release",
				Build: config.PhaseConfig{
					Workflow:    "build.yml",
					RefTemplate: "release/{tag}",
					Timeout:     time.Hour,
				},
				Publish: config.PhaseConfig{
					Workflow:    "publish.yml",
					RefTemplate: "release/{tag}",
					Timeout:     time.Hour,
				},
			},
		},
		Clients: config.ClientsConfig{ObjectStore: config.ObjectStoreClientConfig{Bucket: "releases"}},
	}
}

func deterministicDeps(wf workflow.Client, uuids []string) tree.Deps {
	i := 0
	now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)
	clock := func() time.Time {
		t := now
		now = now.Add(time.Minute)
		return t
	}
	return tree.Deps{
		Workflow: wf,
		Now:      clock,
		NewUUID: func() string {
			u := uuids[i%len(uuids)]
			i++
			return u
		},
		Metrics: observability.New(),
	}
}

func tickUntilConverged(t *testing.T, root bt.Node, maxTicks int) bt.Status {
	t.Helper()
	var status bt.Status
	for i := 0; i < maxTicks; i++ {
		status = root.Tick(context.Background())
		if status.Converged() {
			return status
		}
	}
	t.Fatalf("tree did not converge within %d ticks, last status=%s", maxTicks, status)
	return status
}

func TestHappyPathSinglePackage(t *testing.T) {
	cfg := dockerConfig()
	doc := state.New("8.2.0", state.ReleaseTypeGA)
	wf := bttest.NewFakeWorkflowClient()

	wf.ScriptDispatch("acme", "docker-release", "build.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 1001, Status: "in_progress"}},
	})
	wf.ScriptRun(1001, &bttest.RunScript{
		GetRunResults: []*workflow.Run{
			{ID: 1001, Status: "in_progress"},
			{ID: 1001, Status: "in_progress"},
			{ID: 1001, Status: "completed", Conclusion: "success"},
		},
		Artifacts: []workflow.Artifact{{Name: "pkg.tgz", DownloadURL: "https://example/pkg.tgz", SizeBytes: 42}},
	})
	wf.ScriptDispatch("acme", "docker-release", "publish.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 2002, Status: "in_progress"}},
	})
	wf.ScriptRun(2002, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 2002, Status: "completed", Conclusion: "success"}},
	})

	deps := deterministicDeps(wf, []string{"build-uuid", "publish-uuid"})
	root := tree.Assemble(tree.AssembleOptions{Cfg: cfg, Doc: doc, Deps: deps})

	status := tickUntilConverged(t, root, 50)
	require.Equal(t, bt.Success, status)

	pkg := doc.Packages["docker"]
	require.NotNil(t, pkg)
	assert.Equal(t, state.ResultSuccess, pkg.Result)
	assert.Equal(t, state.PhaseSucceeded, pkg.Build.Status)
	assert.Equal(t, state.PhaseSucceeded, pkg.Publish.Status)
	require.Contains(t, pkg.Artifacts, "pkg.tgz")
	assert.EqualValues(t, 1001, pkg.Artifacts["pkg.tgz"].SourceRunID)
}

func TestBuildFailureSkipsPublish(t *testing.T) {
	cfg := dockerConfig()
	doc := state.New("8.2.0", state.ReleaseTypeGA)
	wf := bttest.NewFakeWorkflowClient()

	wf.ScriptDispatch("acme", "docker-release", "build.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 1001, Status: "in_progress"}},
	})
	wf.ScriptRun(1001, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 1001, Status: "completed", Conclusion: "failure"}},
	})

	deps := deterministicDeps(wf, []string{"build-uuid"})
	root := tree.Assemble(tree.AssembleOptions{Cfg: cfg, Doc: doc, Deps: deps})

	status := tickUntilConverged(t, root, 50)
	require.Equal(t, bt.Failure, status)

	pkg := doc.Packages["docker"]
	assert.Equal(t, state.PhaseFailed, pkg.Build.Status)
	assert.Equal(t, state.PhaseNotStarted, pkg.Publish.Status)
	assert.Equal(t, state.ResultFailed, pkg.Result)
}

func TestCorrelationFallsBackToMostRecentRunAfterBoundedMisses(t *testing.T) {
	cfg := dockerConfig()
	doc := state.New("8.2.0", state.ReleaseTypeGA)
	wf := bttest.NewFakeWorkflowClient()

	wf.ScriptDispatch("acme", "docker-release", "build.yml", &bttest.DispatchScript{
		FindResults:    []*workflow.Run{nil, nil, nil},
		FallbackResult: &workflow.Run{ID: 5005, Status: "in_progress"},
	})
	wf.ScriptRun(5005, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 5005, Status: "completed", Conclusion: "success"}},
		Artifacts:     []workflow.Artifact{{Name: "pkg.tgz", DownloadURL: "https://example/pkg.tgz", SizeBytes: 42}},
	})
	wf.ScriptDispatch("acme", "docker-release", "publish.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 2002, Status: "in_progress"}},
	})
	wf.ScriptRun(2002, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 2002, Status: "completed", Conclusion: "success"}},
	})

	deps := deterministicDeps(wf, []string{"build-uuid", "publish-uuid"})
	root := tree.Assemble(tree.AssembleOptions{Cfg: cfg, Doc: doc, Deps: deps})

	status := tickUntilConverged(t, root, 50)
	require.Equal(t, bt.Success, status)

	pkg := doc.Packages["docker"]
	require.NotNil(t, pkg.Build.Run)
	assert.EqualValues(t, 5005, pkg.Build.Run.ID)
}

func TestForceRebuildScopingLeavesOtherPackagesUntouched(t *testing.T) {
	cfg := dockerConfig()
	cfg.Packages = append(cfg.Packages, config.PackageConfig{
		Name: "debian",
		Repo: "acme/debian-release",
		Build: config.PhaseConfig{Workflow: "build.yml", RefTemplate: "release/{tag}"},
		Publish: config.PhaseConfig{Workflow: "publish.yml", RefTemplate: "release/{tag}"},
	})

	doc := state.New("8.2.0", state.ReleaseTypeGA)
	docker := doc.EnsurePackage("docker")
	docker.Build = state.NewPhaseState("build.yml", "release/8.2.0", nil)
	docker.Build.Status = state.PhaseSucceeded
	docker.Build.Run = &state.WorkflowRun{ID: 42}

	debian := doc.EnsurePackage("debian")
	debian.Build = state.NewPhaseState("build.yml", "release/8.2.0", nil)
	debian.Build.Status = state.PhaseSucceeded
	debian.Build.Run = &state.WorkflowRun{ID: 99}

	doc.Apply(state.PackageSelector("docker"))

	assert.Equal(t, state.PhaseNotStarted, doc.Packages["docker"].Build.Status)
	assert.Equal(t, 1, doc.Packages["docker"].Build.Attempts)
	assert.Equal(t, state.PhaseSucceeded, doc.Packages["debian"].Build.Status)
	require.NotNil(t, doc.Packages["debian"].Build.Run)
	assert.EqualValues(t, 99, doc.Packages["debian"].Build.Run.ID)
}
