package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/clients/objectstore"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/store"
)

type memStore struct {
	objects map[string][]byte
}

func newMemStore() *memStore { return &memStore{objects: make(map[string][]byte)} }

func (m *memStore) Get(_ context.Context, key string) ([]byte, error) {
	data, ok := m.objects[key]
	if !ok {
		return nil, objectstore.ErrNotExist
	}
	return data, nil
}

func (m *memStore) Put(_ context.Context, key string, data []byte) error {
	m.objects[key] = data
	return nil
}

func (m *memStore) PutIfNotExists(_ context.Context, key string, data []byte) error {
	if _, ok := m.objects[key]; ok {
		return objectstore.ErrAlreadyExists
	}
	m.objects[key] = data
	return nil
}

func (m *memStore) Delete(_ context.Context, key string) error {
	delete(m.objects, key)
	return nil
}

var _ objectstore.Client = (*memStore)(nil)

func TestLoadStateReturnsFreshDocumentWhenMissing(t *testing.T) {
	s := store.New(newMemStore())
	doc, err := s.LoadState(context.Background(), "8.2.0", state.ReleaseTypeGA)
	require.NoError(t, err)
	assert.Equal(t, "8.2.0", doc.Tag)
	assert.Empty(t, doc.Packages)
}

func TestSaveStateIsNoopWhenNotDirty(t *testing.T) {
	objects := newMemStore()
	s := store.New(objects)
	doc := state.New("8.2.0", state.ReleaseTypeGA)
	doc.ClearDirty()

	require.NoError(t, s.SaveState(context.Background(), doc))
	assert.Empty(t, objects.objects)
}

func TestSaveThenLoadRoundTripsAndStripsEphemeral(t *testing.T) {
	objects := newMemStore()
	s := store.New(objects)
	ctx := context.Background()

	doc := state.New("8.2.0", state.ReleaseTypeGA)
	doc.EnsurePackage("docker")
	doc.Meta.Ephemeral.StatusChannel = "C123"
	doc.MarkDirty()

	require.NoError(t, s.SaveState(ctx, doc))
	assert.False(t, doc.Dirty())

	loaded, err := s.LoadState(ctx, "8.2.0", state.ReleaseTypeGA)
	require.NoError(t, err)
	assert.Contains(t, loaded.Packages, "docker")
	assert.Empty(t, loaded.Meta.Ephemeral.StatusChannel)
}

func TestAcquireLockRefusesSecondOwner(t *testing.T) {
	s := store.New(newMemStore())
	ctx := context.Background()

	release, err := s.AcquireLock(ctx, "8.2.0", "owner-a")
	require.NoError(t, err)
	require.NotNil(t, release)

	_, err = s.AcquireLock(ctx, "8.2.0", "owner-b")
	assert.ErrorIs(t, err, store.ErrLockHeld)
}

func TestReleaseLockAllowsReacquisition(t *testing.T) {
	s := store.New(newMemStore())
	ctx := context.Background()

	release, err := s.AcquireLock(ctx, "8.2.0", "owner-a")
	require.NoError(t, err)
	require.NoError(t, release(ctx))

	_, err = s.AcquireLock(ctx, "8.2.0", "owner-b")
	assert.NoError(t, err)
}

func TestResetAppliesSelectorAndSaves(t *testing.T) {
	objects := newMemStore()
	s := store.New(objects)
	ctx := context.Background()

	doc := state.New("8.2.0", state.ReleaseTypeGA)
	pkg := doc.EnsurePackage("docker")
	pkg.Build.Status = state.PhaseSucceeded
	pkg.Build.Run = &state.WorkflowRun{ID: 1001}
	doc.MarkDirty()

	require.NoError(t, s.Reset(ctx, doc, state.PackageSelector("docker")))
	assert.Equal(t, state.PhaseNotStarted, pkg.Build.Status)
	assert.False(t, doc.Dirty())
}
