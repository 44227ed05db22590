package state_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/release/state"
)

func TestDeriveReleaseType(t *testing.T) {
	cases := map[string]state.ReleaseType{
		"8.2.0":        state.ReleaseTypeGA,
		"8.2.0-rc1":    state.ReleaseTypeRC,
		"8.2-rc3":      state.ReleaseTypeRC,
		"8.2-m1":       state.ReleaseTypeMilestone,
		"8.2.0-hotfix": state.ReleaseTypeMaintenance,
	}
	for tag, want := range cases {
		assert.Equal(t, want, state.DeriveReleaseType(tag), "tag=%s", tag)
	}
}

func TestResolveReleaseTypeOverride(t *testing.T) {
	got := state.ResolveReleaseType("8.2.0", state.ReleaseTypeMaintenance)
	assert.Equal(t, state.ReleaseTypeMaintenance, got)

	got = state.ResolveReleaseType("8.2.0", "")
	assert.Equal(t, state.ReleaseTypeGA, got)
}

func TestEnsurePackageCreatesOnceAndMarksDirty(t *testing.T) {
	s := state.New("8.2.0", state.ReleaseTypeGA)
	require.False(t, s.Dirty())

	pkg := s.EnsurePackage("docker")
	assert.True(t, s.Dirty())
	pkg.Enabled = true

	again := s.EnsurePackage("docker")
	assert.Same(t, pkg, again)
}

func TestPhaseResetBumpsAttemptsAndClearsRun(t *testing.T) {
	phase := state.NewPhaseState("build.yml", "8.2.0", nil)
	phase.Status = state.PhaseSucceeded
	phase.Run = &state.WorkflowRun{ID: 1001}
	phase.UUID = "abc"

	phase.Reset()

	assert.Equal(t, state.PhaseNotStarted, phase.Status)
	assert.Nil(t, phase.Run)
	assert.Empty(t, phase.UUID)
	assert.Equal(t, 1, phase.Attempts)
}

func TestValidateCatchesArtifactRunMismatch(t *testing.T) {
	s := state.New("8.2.0", state.ReleaseTypeGA)
	pkg := s.EnsurePackage("docker")
	pkg.Enabled = true
	pkg.Build.Status = state.PhaseSucceeded
	pkg.Build.Run = &state.WorkflowRun{ID: 1001}
	pkg.Artifacts = map[string]state.ArtifactRef{
		"pkg.tgz": {Name: "pkg.tgz", SourceRunID: 999},
	}

	err := state.Validate(s)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "does not match build.run.id")
}

func TestValidatePassesForConsistentSuccess(t *testing.T) {
	s := state.New("8.2.0", state.ReleaseTypeGA)
	pkg := s.EnsurePackage("docker")
	pkg.Enabled = true
	pkg.Build.Status = state.PhaseSucceeded
	pkg.Build.Run = &state.WorkflowRun{ID: 1001}
	pkg.Publish.Status = state.PhaseSucceeded
	pkg.Result = state.ResultSuccess
	pkg.Artifacts = map[string]state.ArtifactRef{
		"pkg.tgz": {Name: "pkg.tgz", SourceRunID: 1001},
	}

	assert.NoError(t, state.Validate(s))
	assert.True(t, state.PackageSucceeded(pkg))
}

func TestResetPackageScopingLeavesOthersUntouched(t *testing.T) {
	s := state.New("8.2.0", state.ReleaseTypeGA)
	docker := s.EnsurePackage("docker")
	docker.Build.Run = &state.WorkflowRun{ID: 1001}
	docker.Build.Status = state.PhaseSucceeded

	debian := s.EnsurePackage("debian")
	debian.Build.Run = &state.WorkflowRun{ID: 2002}
	debian.Build.Status = state.PhaseSucceeded

	s.Apply(state.PackageSelector("docker"))

	assert.Nil(t, docker.Build.Run)
	assert.Equal(t, state.PhaseNotStarted, docker.Build.Status)
	assert.Equal(t, 1, docker.Build.Attempts)

	assert.Equal(t, int64(2002), debian.Build.Run.ID)
	assert.Equal(t, state.PhaseSucceeded, debian.Build.Status)
}

func TestProjectionOrdersDeterministicallyAndRollsUp(t *testing.T) {
	s := state.New("8.2.0", state.ReleaseTypeGA)
	docker := s.EnsurePackage("docker")
	docker.Enabled = true
	docker.Result = state.ResultSuccess

	debian := s.EnsurePackage("debian")
	debian.Enabled = false

	summaries, rollup := s.Projection([]string{"docker", "debian"})
	require.Len(t, summaries, 2)
	assert.Equal(t, "docker", summaries[0].Name)
	assert.Equal(t, "debian", summaries[1].Name)
	assert.Equal(t, state.ResultSkipped, summaries[1].Result)

	assert.Equal(t, 2, rollup.Total)
	assert.Equal(t, 1, rollup.Succeeded)
	assert.Equal(t, 1, rollup.Skipped)
	assert.True(t, rollup.Done())
}
