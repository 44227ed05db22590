package bttest

import (
	"context"
	"sync"

	"github.com/opsconductor/conductor/internal/clients/objectstore"
)

// FakeObjectStore is an in-memory objectstore.Client backed by a map,
// used by the controller and store tests instead of a live minio server.
type FakeObjectStore struct {
	mu      sync.Mutex
	objects map[string][]byte

	// PutCalls counts every Put call and every PutIfNotExists call that
	// writes (a refused PutIfNotExists is not counted), for asserting
	// save_state short-circuits under dry-run.
	PutCalls int
}

// NewFakeObjectStore builds an empty fake object store.
func NewFakeObjectStore() *FakeObjectStore {
	return &FakeObjectStore{objects: make(map[string][]byte)}
}

// Get returns the stored bytes for key, or ErrNotExist.
func (f *FakeObjectStore) Get(ctx context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	data, ok := f.objects[key]
	if !ok {
		return nil, objectstore.ErrNotExist
	}
	out := make([]byte, len(data))
	copy(out, data)
	return out, nil
}

// Put writes data unconditionally.
func (f *FakeObjectStore) Put(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.PutCalls++
	stored := make([]byte, len(data))
	copy(stored, data)
	f.objects[key] = stored
	return nil
}

// PutIfNotExists fails with ErrAlreadyExists if key is occupied.
func (f *FakeObjectStore) PutIfNotExists(ctx context.Context, key string, data []byte) error {
	f.mu.Lock()
	if _, ok := f.objects[key]; ok {
		f.mu.Unlock()
		return objectstore.ErrAlreadyExists
	}
	f.mu.Unlock()
	return f.Put(ctx, key, data)
}

// Delete removes key, treating a missing key as success.
func (f *FakeObjectStore) Delete(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.objects, key)
	return nil
}

// Has reports whether key currently has a stored object, for test
// assertions about dry-run skipping persistence.
func (f *FakeObjectStore) Has(key string) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	_, ok := f.objects[key]
	return ok
}
