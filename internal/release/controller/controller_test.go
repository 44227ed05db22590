package controller_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/app"
	"github.com/opsconductor/conductor/internal/bt"
	"github.com/opsconductor/conductor/internal/bttest"
	"github.com/opsconductor/conductor/internal/clients/workflow"
	"github.com/opsconductor/conductor/internal/config"
	"github.com/opsconductor/conductor/internal/observability"
	"github.com/opsconductor/conductor/internal/release/controller"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/store"
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

func happyPathWorkflow() *bttest.FakeWorkflowClient {
	wf := bttest.NewFakeWorkflowClient()
	wf.ScriptDispatch("acme", "docker-release", "build.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 1001, Status: "completed", Conclusion: "success"}},
	})
	wf.ScriptRun(1001, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 1001, Status: "completed", Conclusion: "success"}},
		Artifacts:     []workflow.Artifact{{Name: "pkg.tgz", DownloadURL: "https://example/pkg.tgz", SizeBytes: 42}},
	})
	wf.ScriptDispatch("acme", "docker-release", "publish.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 2002, Status: "completed", Conclusion: "success"}},
	})
	wf.ScriptRun(2002, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 2002, Status: "completed", Conclusion: "success"}},
	})
	return wf
}

func testContainer(wf *bttest.FakeWorkflowClient, objs *bttest.FakeObjectStore) *app.Container {
	return &app.Container{
		Metrics:     observability.New(),
		Workflow:    wf,
		ObjectStore: objs,
		Store:       store.New(objs),
		Status:      nil,
	}
}

func TestRunHappyPathAcquiresLockAndPersistsState(t *testing.T) {
	wf := happyPathWorkflow()
	objs := bttest.NewFakeObjectStore()
	c := testContainer(wf, objs)
	cfg := dockerConfig()

	res := controller.Run(context.Background(), c, cfg, controller.Options{
		Tag:          "8.2.0",
		TickInterval: time.Millisecond,
		MaxTicks:     50,
	})

	require.NoError(t, res.Err)
	assert.Equal(t, bt.Success, res.Status)
	assert.Equal(t, controller.ExitSuccess, controller.ExitCode(res))
	assert.True(t, objs.Has("release-state/8.2.0.json"))
	assert.False(t, objs.Has("release-locks/8.2.0.lock"))

	pkg := res.Doc.Packages["docker"]
	require.NotNil(t, pkg)
	assert.Equal(t, state.ResultSuccess, pkg.Result)
}

func TestRunBuildFailureReportsBusinessFailure(t *testing.T) {
	wf := bttest.NewFakeWorkflowClient()
	wf.ScriptDispatch("acme", "docker-release", "build.yml", &bttest.DispatchScript{
		FindResults: []*workflow.Run{{ID: 1001, Status: "completed", Conclusion: "failure"}},
	})
	wf.ScriptRun(1001, &bttest.RunScript{
		GetRunResults: []*workflow.Run{{ID: 1001, Status: "completed", Conclusion: "failure"}},
	})

	objs := bttest.NewFakeObjectStore()
	c := testContainer(wf, objs)
	cfg := dockerConfig()

	res := controller.Run(context.Background(), c, cfg, controller.Options{
		Tag:          "8.2.0",
		TickInterval: time.Millisecond,
		MaxTicks:     50,
	})

	require.Error(t, res.Err)
	assert.Equal(t, bt.Failure, res.Status)
	assert.Equal(t, controller.ExitFailure, controller.ExitCode(res))
	assert.False(t, objs.Has("release-locks/8.2.0.lock"))
}

func TestRunRejectsUnknownOnlyPackage(t *testing.T) {
	objs := bttest.NewFakeObjectStore()
	c := testContainer(bttest.NewFakeWorkflowClient(), objs)
	cfg := dockerConfig()

	res := controller.Run(context.Background(), c, cfg, controller.Options{
		Tag:          "8.2.0",
		OnlyPackages: []string{"nonexistent"},
	})

	require.Error(t, res.Err)
	assert.Equal(t, controller.ExitUsage, controller.ExitCode(res))
	assert.False(t, objs.Has("release-locks/8.2.0.lock"))
}

func TestRunFailsFastWhenLockAlreadyHeld(t *testing.T) {
	objs := bttest.NewFakeObjectStore()
	c := testContainer(bttest.NewFakeWorkflowClient(), objs)
	cfg := dockerConfig()

	release, err := c.Store.AcquireLock(context.Background(), "8.2.0", "other-host:1")
	require.NoError(t, err)
	defer release(context.Background())

	res := controller.Run(context.Background(), c, cfg, controller.Options{
		Tag: "8.2.0",
	})

	require.Error(t, res.Err)
	assert.Equal(t, controller.ExitLockHeld, controller.ExitCode(res))
}

func TestRunDryRunNeverTouchesObjectStore(t *testing.T) {
	wf := happyPathWorkflow()
	objs := bttest.NewFakeObjectStore()
	c := testContainer(wf, objs)
	c.DryRun = true
	cfg := dockerConfig()

	res := controller.Run(context.Background(), c, cfg, controller.Options{
		Tag:          "8.2.0",
		DryRun:       true,
		TickInterval: time.Millisecond,
		MaxTicks:     50,
	})

	require.NoError(t, res.Err)
	assert.Equal(t, bt.Success, res.Status)
	assert.Equal(t, 0, objs.PutCalls)
}

func TestRunForceRebuildResetsTargetedPackage(t *testing.T) {
	wf := happyPathWorkflow()
	objs := bttest.NewFakeObjectStore()
	c := testContainer(wf, objs)
	cfg := dockerConfig()

	doc := state.New("8.2.0", state.ReleaseTypeGA)
	docker := doc.EnsurePackage("docker")
	docker.Build = state.NewPhaseState("build.yml", "release/8.2.0", nil)
	docker.Build.Status = state.PhaseFailed
	docker.Result = state.ResultFailed
	require.NoError(t, c.Store.SaveState(context.Background(), doc))

	res := controller.Run(context.Background(), c, cfg, controller.Options{
		Tag:          "8.2.0",
		ForceRebuild: state.PackageSelector("docker"),
		TickInterval: time.Millisecond,
		MaxTicks:     50,
	})

	require.NoError(t, res.Err)
	assert.Equal(t, state.ResultSuccess, res.Doc.Packages["docker"].Result)
}
