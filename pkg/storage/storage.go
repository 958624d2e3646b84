// Package storage provides the conditional-update storage abstraction the
// write-path coordinator locks, reads, and commits nodes through.
package storage

import (
	"context"
	"fmt"
	"time"

	"github.com/goclaw/goclaw/pkg/model"
)

// DefaultLockLifetime is the maximum duration a lease-held lock is honored
// before another writer may steal it. Clients are budgeted 5 seconds to
// complete their lock_and_read/commit_and_unlock round trip; the remaining
// 2 seconds absorb clock drift between coordinator instances.
const DefaultLockLifetime = 7 * time.Second

// SystemStorage is the conditional-update façade every executor phase reads
// and writes through. Implementations must make LockNode a compare-and-swap
// against a per-path lease so that two concurrent writers can never both
// believe they hold the same path.
type SystemStorage interface {
	// LockNode attempts to acquire (or steal, once expired) the lease on
	// path at the given timestamp. It reports whether the lease was
	// acquired and, if the path already exists, the node as currently
	// committed.
	LockNode(ctx context.Context, path string, timestamp time.Time) (acquired bool, node *model.Node, err error)

	// UnlockNode releases the lease on path if it is still held at
	// timestamp. Unlocking a lease that was stolen by another writer is a
	// no-op, not an error.
	UnlockNode(ctx context.Context, path string, timestamp time.Time) error

	// CommitNode writes the given attributes of node, replacing only the
	// fields named in attrs. It reports whether the node still held the
	// caller's lease at commit time.
	CommitNode(ctx context.Context, node *model.Node, timestamp time.Time, attrs model.AttributeSet) (bool, error)

	// DeleteNode removes node entirely. The caller must already hold its
	// lease.
	DeleteNode(ctx context.Context, node *model.Node, timestamp time.Time) error

	// IncreaseSystemCounter atomically advances the monotonic write
	// counter for the given shard and returns its new value.
	IncreaseSystemCounter(ctx context.Context, shard int) (int64, error)

	// DeleteUser removes all storage-side state for a client session. It
	// reports whether a session with that ID existed.
	DeleteUser(ctx context.Context, sessionID string) (bool, error)

	// TouchSession records that sessionID has submitted a request,
	// creating its session record if this is the first time it is seen.
	// The coordinator calls this ahead of every operation so that
	// DeleteUser has something real to report on.
	TouchSession(ctx context.Context, sessionID string) error

	// LockLifetime returns the duration a lease remains valid once
	// acquired.
	LockLifetime() time.Duration

	// Close releases any resources held by the storage backend.
	Close() error
}

// NotFoundError indicates that the requested entity was not found.
type NotFoundError struct {
	EntityType string
	ID         string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.EntityType, e.ID)
}

// DuplicateKeyError indicates that an entity with the given ID already exists.
type DuplicateKeyError struct {
	EntityType string
	ID         string
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.EntityType, e.ID)
}

// StorageUnavailableError indicates that the storage backend is unavailable.
type StorageUnavailableError struct {
	Cause error
}

func (e *StorageUnavailableError) Error() string {
	return fmt.Sprintf("storage unavailable: %v", e.Cause)
}

func (e *StorageUnavailableError) Unwrap() error { return e.Cause }

// SerializationError indicates a failure in data serialization/deserialization.
type SerializationError struct {
	Operation string
	Cause     error
}

func (e *SerializationError) Error() string {
	return fmt.Sprintf("serialization error during %s: %v", e.Operation, e.Cause)
}

func (e *SerializationError) Unwrap() error { return e.Cause }

// LockConflictError indicates a lease is currently held by another writer
// and has not yet expired.
type LockConflictError struct {
	Path string
}

func (e *LockConflictError) Error() string {
	return fmt.Sprintf("lock held on path: %s", e.Path)
}
