// Package memory provides an in-process SystemStorage implementation backed
// by a guarded map, for tests and single-instance development deployments.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/goclaw/goclaw/pkg/model"
	"github.com/goclaw/goclaw/pkg/storage"
)

// record is the storage-internal state for a single path: its committed
// node (nil if the path has never been created) and the timestamp at which
// its lease currently expires.
type record struct {
	node        *model.Node
	lockedUntil time.Time
}

// MemoryStorage implements storage.SystemStorage with a mutex-guarded map.
// Every read and write returns a deep copy so callers can never mutate
// state out from under a concurrent lock holder.
type MemoryStorage struct {
	mu       sync.Mutex
	nodes    map[string]*record
	sessions map[string]struct{}
	counters map[int]int64
	lifetime time.Duration
}

// NewMemoryStorage creates an empty in-memory storage seeded with a root
// node at "/", matching the always-present root path a fresh deployment
// starts from.
func NewMemoryStorage() *MemoryStorage {
	root := model.NewNode("/")
	root.Created = model.NewVersion(0)
	root.Modified = model.NewVersion(0)

	return &MemoryStorage{
		nodes: map[string]*record{
			"/": {node: root},
		},
		sessions: make(map[string]struct{}),
		counters: make(map[int]int64),
		lifetime: storage.DefaultLockLifetime,
	}
}

// NewMemoryStorageWithLifetime is NewMemoryStorage with a caller-supplied
// lock lifetime, for deployments that tune the lease window away from
// storage.DefaultLockLifetime.
func NewMemoryStorageWithLifetime(lifetime time.Duration) *MemoryStorage {
	s := NewMemoryStorage()
	s.lifetime = lifetime
	return s
}

// LockLifetime implements storage.SystemStorage.
func (s *MemoryStorage) LockLifetime() time.Duration {
	return s.lifetime
}

// LockNode implements storage.SystemStorage.
func (s *MemoryStorage) LockNode(ctx context.Context, path string, timestamp time.Time) (bool, *model.Node, error) {
	if err := ctx.Err(); err != nil {
		return false, nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nodes[path]
	if !ok {
		rec = &record{}
		s.nodes[path] = rec
	}

	// lease doesn't exist, or has already expired
	if !rec.lockedUntil.IsZero() && timestamp.Before(rec.lockedUntil) {
		return false, nil, nil
	}

	rec.lockedUntil = timestamp.Add(s.lifetime)
	return true, rec.node.Clone(), nil
}

// UnlockNode implements storage.SystemStorage.
func (s *MemoryStorage) UnlockNode(ctx context.Context, path string, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nodes[path]
	if !ok {
		return nil
	}
	// only release the lease we actually hold; a lease stolen by another
	// writer after ours expired must not be torn down early
	if rec.lockedUntil.Equal(timestamp.Add(s.lifetime)) {
		rec.lockedUntil = time.Time{}
	}
	return nil
}

// CommitNode implements storage.SystemStorage.
func (s *MemoryStorage) CommitNode(ctx context.Context, node *model.Node, timestamp time.Time, attrs model.AttributeSet) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.nodes[node.Path]
	if !ok {
		rec = &record{}
		s.nodes[node.Path] = rec
	}

	if rec.lockedUntil.IsZero() || timestamp.Add(s.lifetime) != rec.lockedUntil {
		return false, nil
	}

	current := rec.node
	if current == nil {
		current = model.NewNode(node.Path)
	}
	merged := current.Clone()
	merged.Path = node.Path

	if attrs.Has(model.AttrCreated) {
		merged.Created = node.Created
	}
	if attrs.Has(model.AttrModified) {
		merged.Modified = node.Modified
	}
	if attrs.Has(model.AttrChildren) {
		children := make([]string, len(node.Children))
		copy(children, node.Children)
		merged.Children = children
	}
	if attrs.Has(model.AttrData) {
		merged.DataB64 = node.DataB64
	}

	rec.node = merged
	return true, nil
}

// DeleteNode implements storage.SystemStorage.
func (s *MemoryStorage) DeleteNode(ctx context.Context, node *model.Node, timestamp time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.nodes, node.Path)
	return nil
}

// IncreaseSystemCounter implements storage.SystemStorage.
func (s *MemoryStorage) IncreaseSystemCounter(ctx context.Context, shard int) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.counters[shard]++
	return s.counters[shard], nil
}

// DeleteUser implements storage.SystemStorage.
func (s *MemoryStorage) DeleteUser(ctx context.Context, sessionID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.sessions[sessionID]; !ok {
		return false, nil
	}
	delete(s.sessions, sessionID)
	return true, nil
}

// TouchSession implements storage.SystemStorage.
func (s *MemoryStorage) TouchSession(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.sessions[sessionID] = struct{}{}
	return nil
}

// Close implements storage.SystemStorage. It is a no-op: there is no
// underlying resource to release.
func (s *MemoryStorage) Close() error {
	return nil
}
