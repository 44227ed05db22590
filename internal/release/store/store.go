// Package store persists the release document and guards it with an
// exclusive lock object, mirroring the file-based lock adapter from the
// release-governance domain but backed by the object store client.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"time"

	"github.com/opsconductor/conductor/internal/clients/objectstore"
	cerrors "github.com/opsconductor/conductor/internal/errors"
	"github.com/opsconductor/conductor/internal/release/state"
)

const (
	stateKeyPrefix = "release-state/"
	lockKeyPrefix  = "release-locks/"
	lockSuffix     = ".lock"
	lockStale      = 10 * time.Minute
)

// ErrLockHeld is returned by AcquireLock when another owner holds a
// non-stale lock.
var ErrLockHeld = errors.New("store: lock already held")

// LockRecord is the persisted contents of a lock object.
type LockRecord struct {
	Tag        string    `json:"tag"`
	Owner      string    `json:"owner"`
	PID        int       `json:"pid"`
	Hostname   string    `json:"hostname"`
	AcquiredAt time.Time `json:"acquired_at"`
}

// Store loads, saves, locks, and resets release documents.
type Store struct {
	objects objectstore.Client
}

// New builds a Store over an object store client.
func New(objects objectstore.Client) *Store {
	return &Store{objects: objects}
}

func stateKey(tag string) string { return stateKeyPrefix + tag + ".json" }
func lockKey(tag string) string  { return lockKeyPrefix + tag + lockSuffix }

// LoadState returns the persisted document for tag, or a fresh default
// document (not yet saved) if none exists.
func (s *Store) LoadState(ctx context.Context, tag string, releaseType state.ReleaseType) (*state.ReleaseState, error) {
	data, err := s.objects.Get(ctx, stateKey(tag))
	if errors.Is(err, objectstore.ErrNotExist) {
		return state.New(tag, releaseType), nil
	}
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindState, "LoadState", "read state object")
	}

	var doc state.ReleaseState
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindState, "LoadState", "decode state document")
	}
	return &doc, nil
}

// SaveState persists the document, stripping ephemeral fields first, and
// is a no-op if the document has no unsaved mutations.
func (s *Store) SaveState(ctx context.Context, doc *state.ReleaseState) error {
	if !doc.Dirty() {
		return nil
	}

	persisted := *doc
	persisted.Meta.Ephemeral = state.Ephemeral{}

	data, err := json.MarshalIndent(&persisted, "", "  ")
	if err != nil {
		return cerrors.Wrap(err, cerrors.KindState, "SaveState", "encode state document")
	}

	if err := s.objects.Put(ctx, stateKey(doc.Tag), data); err != nil {
		return cerrors.Wrap(err, cerrors.KindState, "SaveState", "write state object")
	}
	doc.ClearDirty()
	return nil
}

// AcquireLock performs a conditional create of the lock object, refusing
// to overwrite a live lock but reclaiming one that has gone stale.
func (s *Store) AcquireLock(ctx context.Context, tag, owner string) (release func(context.Context) error, err error) {
	hostname, _ := os.Hostname()
	record := LockRecord{
		Tag:        tag,
		Owner:      owner,
		PID:        os.Getpid(),
		Hostname:   hostname,
		AcquiredAt: time.Now(),
	}
	data, err := json.MarshalIndent(&record, "", "  ")
	if err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindLock, "AcquireLock", "encode lock record")
	}

	err = s.objects.PutIfNotExists(ctx, lockKey(tag), data)
	if err == nil {
		return s.releaseFunc(tag, owner), nil
	}
	if !errors.Is(err, objectstore.ErrAlreadyExists) {
		return nil, cerrors.Wrap(err, cerrors.KindLock, "AcquireLock", "create lock object")
	}

	existing, readErr := s.readLock(ctx, tag)
	if readErr != nil {
		return nil, cerrors.Wrap(readErr, cerrors.KindLock, "AcquireLock", "read existing lock")
	}
	if existing != nil && time.Since(existing.AcquiredAt) < lockStale {
		return nil, cerrors.Wrapf(ErrLockHeld, cerrors.KindLock, "AcquireLock",
			"held by %s on %s since %s", existing.Owner, existing.Hostname, existing.AcquiredAt.Format(time.RFC3339))
	}

	// Stale lock: delete and retry once.
	if err := s.objects.Delete(ctx, lockKey(tag)); err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindLock, "AcquireLock", "remove stale lock")
	}
	if err := s.objects.PutIfNotExists(ctx, lockKey(tag), data); err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindLock, "AcquireLock", "create lock object after reclaiming stale lock")
	}
	return s.releaseFunc(tag, owner), nil
}

func (s *Store) releaseFunc(tag, owner string) func(context.Context) error {
	return func(ctx context.Context) error {
		existing, err := s.readLock(ctx, tag)
		if err != nil {
			return cerrors.Wrap(err, cerrors.KindLock, "ReleaseLock", "read lock before release")
		}
		if existing != nil && existing.Owner != owner {
			return cerrors.Newf(cerrors.KindLock, "cannot release lock owned by %s", existing.Owner)
		}
		if err := s.objects.Delete(ctx, lockKey(tag)); err != nil {
			return cerrors.Wrap(err, cerrors.KindLock, "ReleaseLock", "delete lock object")
		}
		return nil
	}
}

func (s *Store) readLock(ctx context.Context, tag string) (*LockRecord, error) {
	data, err := s.objects.Get(ctx, lockKey(tag))
	if errors.Is(err, objectstore.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var record LockRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, cerrors.Wrap(err, cerrors.KindLock, "readLock", "decode lock record")
	}
	return &record, nil
}

// Reset applies a reset selector to a loaded document and saves the
// result.
func (s *Store) Reset(ctx context.Context, doc *state.ReleaseState, sel state.ResetSelector) error {
	doc.Apply(sel)
	return s.SaveState(ctx, doc)
}
