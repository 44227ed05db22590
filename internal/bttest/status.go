package bttest

import (
	"context"
	"fmt"
	"sync"

	"github.com/opsconductor/conductor/internal/clients/status"
)

// FakeStatusClient is an in-memory status.Client recording every
// post/update call, used by the status renderer tests.
type FakeStatusClient struct {
	mu       sync.Mutex
	seq      int
	Posted   []status.Message
	Updated  []status.Message
}

// NewFakeStatusClient builds an empty fake status sink.
func NewFakeStatusClient() *FakeStatusClient {
	return &FakeStatusClient{}
}

// Post records the message and returns a synthetic channel/ts pair.
func (f *FakeStatusClient) Post(ctx context.Context, msg status.Message) (string, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.seq++
	ts := fmt.Sprintf("fake-ts-%d", f.seq)
	msg.MessageTS = ts
	f.Posted = append(f.Posted, msg)
	return msg.Channel, ts, nil
}

// Update records the message in place.
func (f *FakeStatusClient) Update(ctx context.Context, msg status.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Updated = append(f.Updated, msg)
	return nil
}
