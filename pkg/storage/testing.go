package storage

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/goclaw/goclaw/pkg/model"
)

// SystemStorageTestSuite defines a test suite that can be run against any
// SystemStorage implementation, so memory and badger share one behavioral
// contract instead of duplicating assertions per backend.
type SystemStorageTestSuite struct {
	NewStorage func(t *testing.T) SystemStorage
}

// RunAllTests runs all storage tests against the provided implementation.
func (s *SystemStorageTestSuite) RunAllTests(t *testing.T) {
	t.Run("LockUnlockRoundTrip", s.TestLockUnlockRoundTrip)
	t.Run("LockConflictThenSteal", s.TestLockConflictThenSteal)
	t.Run("CommitNodePartialAttributes", s.TestCommitNodePartialAttributes)
	t.Run("DeleteNodeRemovesPath", s.TestDeleteNodeRemovesPath)
	t.Run("IncreaseSystemCounterMonotonic", s.TestIncreaseSystemCounterMonotonic)
	t.Run("DeleteUserLifecycle", s.TestDeleteUserLifecycle)
	t.Run("ConcurrentLockersOnlyOneWins", s.TestConcurrentLockersOnlyOneWins)
}

// TestLockUnlockRoundTrip verifies a lock can be acquired, released, and
// re-acquired immediately afterward.
func (s *SystemStorageTestSuite) TestLockUnlockRoundTrip(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	ok, node, err := store.LockNode(ctx, "/a", now)
	if err != nil || !ok {
		t.Fatalf("LockNode() = %v, %v, err=%v", ok, node, err)
	}
	if node != nil {
		t.Fatalf("expected nil node for never-committed path, got %+v", node)
	}

	if err := store.UnlockNode(ctx, "/a", now); err != nil {
		t.Fatalf("UnlockNode() error = %v", err)
	}

	ok, _, err = store.LockNode(ctx, "/a", now.Add(time.Millisecond))
	if err != nil || !ok {
		t.Fatalf("re-LockNode() = %v, err=%v", ok, err)
	}
}

// TestLockConflictThenSteal verifies a held lease refuses a second locker
// and becomes stealable only once it expires.
func (s *SystemStorageTestSuite) TestLockConflictThenSteal(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	ok, _, err := store.LockNode(ctx, "/a", now)
	if err != nil || !ok {
		t.Fatalf("LockNode() = %v, err=%v", ok, err)
	}

	ok, _, err = store.LockNode(ctx, "/a", now.Add(time.Second))
	if err != nil {
		t.Fatalf("LockNode() error = %v", err)
	}
	if ok {
		t.Fatal("expected conflicting lock to be refused")
	}

	ok, _, err = store.LockNode(ctx, "/a", now.Add(store.LockLifetime()+time.Second))
	if err != nil {
		t.Fatalf("LockNode() error = %v", err)
	}
	if !ok {
		t.Fatal("expected lock to be stealable once expired")
	}
}

// TestCommitNodePartialAttributes verifies committing a subset of
// attributes leaves the others untouched.
func (s *SystemStorageTestSuite) TestCommitNodePartialAttributes(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	if _, _, err := store.LockNode(ctx, "/a", now); err != nil {
		t.Fatalf("LockNode() error = %v", err)
	}

	node := model.NewNode("/a")
	node.Created = model.NewVersion(1)
	node.Modified = model.NewVersion(1)
	ok, err := store.CommitNode(ctx, node, now, model.NewAttributeSet(model.AttrCreated, model.AttrModified))
	if err != nil || !ok {
		t.Fatalf("CommitNode() = %v, err=%v", ok, err)
	}

	if err := store.UnlockNode(ctx, "/a", now); err != nil {
		t.Fatalf("UnlockNode() error = %v", err)
	}

	later := now.Add(time.Millisecond)
	_, committed, err := store.LockNode(ctx, "/a", later)
	if err != nil {
		t.Fatalf("LockNode() error = %v", err)
	}
	if committed == nil {
		t.Fatal("expected committed node to be visible")
	}
	if committed.DataB64 != "" {
		t.Fatalf("expected data to be untouched, got %q", committed.DataB64)
	}
	if committed.Created.SystemCounter != 1 {
		t.Fatalf("expected created counter 1, got %d", committed.Created.SystemCounter)
	}
}

// TestDeleteNodeRemovesPath verifies a deleted node is gone on the next lock.
func (s *SystemStorageTestSuite) TestDeleteNodeRemovesPath(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	if _, _, err := store.LockNode(ctx, "/a", now); err != nil {
		t.Fatalf("LockNode() error = %v", err)
	}
	node := model.NewNode("/a")
	if _, err := store.CommitNode(ctx, node, now, model.NewAttributeSet(model.AttrCreated)); err != nil {
		t.Fatalf("CommitNode() error = %v", err)
	}
	if err := store.DeleteNode(ctx, node, now); err != nil {
		t.Fatalf("DeleteNode() error = %v", err)
	}
	if err := store.UnlockNode(ctx, "/a", now); err != nil {
		t.Fatalf("UnlockNode() error = %v", err)
	}

	_, committed, err := store.LockNode(ctx, "/a", now.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("LockNode() error = %v", err)
	}
	if committed != nil {
		t.Fatalf("expected nil node after deletion, got %+v", committed)
	}
}

// TestIncreaseSystemCounterMonotonic verifies the counter strictly increases.
func (s *SystemStorageTestSuite) TestIncreaseSystemCounterMonotonic(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()

	prev, err := store.IncreaseSystemCounter(ctx, 0)
	if err != nil {
		t.Fatalf("IncreaseSystemCounter() error = %v", err)
	}
	for i := 0; i < 5; i++ {
		next, err := store.IncreaseSystemCounter(ctx, 0)
		if err != nil {
			t.Fatalf("IncreaseSystemCounter() error = %v", err)
		}
		if next != prev+1 {
			t.Fatalf("expected %d, got %d", prev+1, next)
		}
		prev = next
	}
}

// TestDeleteUserLifecycle verifies sessions can be touched, found, and
// removed exactly once.
func (s *SystemStorageTestSuite) TestDeleteUserLifecycle(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()

	existed, err := store.DeleteUser(ctx, "session-1")
	if err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if existed {
		t.Fatal("expected unknown session to report false")
	}

	if err := store.TouchSession(ctx, "session-1"); err != nil {
		t.Fatalf("TouchSession() error = %v", err)
	}

	existed, err = store.DeleteUser(ctx, "session-1")
	if err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if !existed {
		t.Fatal("expected touched session to be reported as existing")
	}
}

// TestConcurrentLockersOnlyOneWins verifies that under concurrent lock
// attempts on the same path and timestamp, exactly one caller succeeds.
func (s *SystemStorageTestSuite) TestConcurrentLockersOnlyOneWins(t *testing.T) {
	store := s.NewStorage(t)
	defer store.Close()
	ctx := context.Background()
	now := time.Now()

	const attempts = 16
	var wg sync.WaitGroup
	var mu sync.Mutex
	wins := 0

	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := store.LockNode(ctx, "/concurrent", now)
			if err != nil {
				t.Errorf("LockNode() error = %v", err)
				return
			}
			if ok {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	if wins != 1 {
		t.Fatalf("expected exactly one winner, got %d", wins)
	}
}
