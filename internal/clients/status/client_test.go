package status_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/opsconductor/conductor/internal/clients/status"
)

// fakeClient is an in-memory status.Client used to pin the renderer's
// expected post-then-update contract without a live Slack workspace.
type fakeClient struct {
	posts   []status.Message
	updates []status.Message
	seq     int
}

func (f *fakeClient) Post(_ context.Context, msg status.Message) (string, string, error) {
	f.seq++
	f.posts = append(f.posts, msg)
	return msg.Channel, "ts-" + string(rune('0'+f.seq)), nil
}

func (f *fakeClient) Update(_ context.Context, msg status.Message) error {
	f.updates = append(f.updates, msg)
	return nil
}

var _ status.Client = (*fakeClient)(nil)

func TestPostReturnsCoordinatesForLaterUpdate(t *testing.T) {
	f := &fakeClient{}
	channel, ts, err := f.Post(context.Background(), status.Message{Channel: "C123", Text: "starting release 8.2.0"})
	require.NoError(t, err)
	assert.Equal(t, "C123", channel)
	assert.NotEmpty(t, ts)
	assert.Len(t, f.posts, 1)
}

func TestUpdateRewritesInPlace(t *testing.T) {
	f := &fakeClient{}
	require.NoError(t, f.Update(context.Background(), status.Message{
		Channel:   "C123",
		MessageTS: "ts-1",
		Text:      "docker: in progress",
	}))
	require.Len(t, f.updates, 1)
	assert.Equal(t, "ts-1", f.updates[0].MessageTS)
}
