package status_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/bttest"
	"github.com/opsconductor/conductor/internal/release/state"
	"github.com/opsconductor/conductor/internal/release/status"
)

func TestSinkPostsThenUpdates(t *testing.T) {
	fake := bttest.NewFakeStatusClient()
	sink := status.NewSink(fake, "C123", nil)

	doc := state.New("8.2.0", state.ReleaseTypeGA)
	pkg := doc.EnsurePackage("docker")
	pkg.Enabled = true

	require.NoError(t, sink.Refresh(context.Background(), doc))
	require.Len(t, fake.Posted, 1)
	assert.Empty(t, fake.Updated)
	assert.NotEmpty(t, doc.Meta.Ephemeral.StatusMessageTS)

	pkg.Build.Status = state.PhaseInProgress
	require.NoError(t, sink.Refresh(context.Background(), doc))
	require.Len(t, fake.Posted, 1)
	require.Len(t, fake.Updated, 1)
}

func TestSinkSkipsUnchangedRendering(t *testing.T) {
	fake := bttest.NewFakeStatusClient()
	sink := status.NewSink(fake, "C123", nil)

	doc := state.New("8.2.0", state.ReleaseTypeGA)
	doc.EnsurePackage("docker").Enabled = true

	require.NoError(t, sink.Refresh(context.Background(), doc))
	require.NoError(t, sink.Refresh(context.Background(), doc))
	assert.Len(t, fake.Posted, 1)
	assert.Empty(t, fake.Updated)
}

func TestSinkNilClientIsNoop(t *testing.T) {
	sink := status.NewSink(nil, "C123", nil)
	doc := state.New("8.2.0", state.ReleaseTypeGA)
	require.NoError(t, sink.Refresh(context.Background(), doc))
}
