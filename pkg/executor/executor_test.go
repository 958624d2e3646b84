package executor

import (
	"context"
	"testing"
	"time"

	memstorage "github.com/goclaw/goclaw/pkg/storage/memory"
)

func seedRoot(t *testing.T) *memstorage.MemoryStorage {
	t.Helper()
	return memstorage.NewMemoryStorage()
}

func TestCreateNodeExecutor_Success(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	exec := NewCreateNodeExecutor(createNodeOp("/a"))
	ok, reply := exec.LockAndRead(ctx, store)
	if !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}
	ok, reply = exec.CommitAndUnlock(ctx, store)
	if !ok {
		t.Fatalf("CommitAndUnlock() failed: %+v", reply)
	}
	if reply.Status != "success" {
		t.Fatalf("expected success, got %+v", reply)
	}
}

func TestCreateNodeExecutor_AlreadyExists(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	first := NewCreateNodeExecutor(createNodeOp("/a"))
	if ok, reply := first.LockAndRead(ctx, store); !ok {
		t.Fatalf("first LockAndRead() failed: %+v", reply)
	}
	if ok, reply := first.CommitAndUnlock(ctx, store); !ok {
		t.Fatalf("first CommitAndUnlock() failed: %+v", reply)
	}

	second := NewCreateNodeExecutor(createNodeOp("/a"))
	ok, reply := second.LockAndRead(ctx, store)
	if ok {
		t.Fatal("expected second create on the same path to fail")
	}
	if reply.Reason != ReasonNodeExists {
		t.Fatalf("expected reason %q, got %q", ReasonNodeExists, reply.Reason)
	}
}

func TestCreateNodeExecutor_ParentMissing(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	exec := NewCreateNodeExecutor(createNodeOp("/missing/child"))
	ok, reply := exec.LockAndRead(ctx, store)
	if ok {
		t.Fatal("expected create under a missing parent to fail")
	}
	if reply.Reason != ReasonNodeDoesntExist {
		t.Fatalf("expected reason %q, got %q", ReasonNodeDoesntExist, reply.Reason)
	}
}

func TestSetDataExecutor_MissingNode(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	exec := NewSetDataExecutor(setDataOp("/missing"))
	ok, reply := exec.LockAndRead(ctx, store)
	if ok {
		t.Fatal("expected set_data on a missing path to fail")
	}
	if reply.Reason != ReasonNodeDoesntExist {
		t.Fatalf("expected reason %q, got %q", ReasonNodeDoesntExist, reply.Reason)
	}
}

func TestSetDataExecutor_Success(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	create := NewCreateNodeExecutor(createNodeOp("/a"))
	if ok, reply := create.LockAndRead(ctx, store); !ok {
		t.Fatalf("create LockAndRead() failed: %+v", reply)
	}
	if ok, reply := create.CommitAndUnlock(ctx, store); !ok {
		t.Fatalf("create CommitAndUnlock() failed: %+v", reply)
	}

	set := NewSetDataExecutor(setDataOp("/a"))
	if ok, reply := set.LockAndRead(ctx, store); !ok {
		t.Fatalf("set LockAndRead() failed: %+v", reply)
	}
	ok, reply := set.CommitAndUnlock(ctx, store)
	if !ok {
		t.Fatalf("set CommitAndUnlock() failed: %+v", reply)
	}
	if reply.Status != "success" {
		t.Fatalf("expected success, got %+v", reply)
	}
}

func TestCreateNodeExecutor_ParentCommitLeaseLost(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	exec := NewCreateNodeExecutor(createNodeOp("/a"))
	if ok, reply := exec.LockAndRead(ctx, store); !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}

	// Simulate the parent lease expiring and being stolen by another
	// writer between lock_and_read and commit_and_unlock.
	if err := store.UnlockNode(ctx, "/", exec.parentTimestamp); err != nil {
		t.Fatalf("UnlockNode() error = %v", err)
	}
	if acquired, _, err := store.LockNode(ctx, "/", time.Now().Add(time.Hour)); err != nil || !acquired {
		t.Fatalf("failed to steal parent lease: acquired=%v err=%v", acquired, err)
	}

	ok, reply := exec.CommitAndUnlock(ctx, store)
	if ok {
		t.Fatal("expected commit to fail once the parent lease was lost")
	}
	if reply.Reason != ReasonUnknown {
		t.Fatalf("expected reason %q, got %q", ReasonUnknown, reply.Reason)
	}
}

func TestDeleteNodeExecutor_ParentCommitLeaseLost(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	create := NewCreateNodeExecutor(createNodeOp("/a"))
	if ok, reply := create.LockAndRead(ctx, store); !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}
	if ok, reply := create.CommitAndUnlock(ctx, store); !ok {
		t.Fatalf("CommitAndUnlock() failed: %+v", reply)
	}

	del := NewDeleteNodeExecutor(deleteNodeOp("/a"))
	if ok, reply := del.LockAndRead(ctx, store); !ok {
		t.Fatalf("delete LockAndRead() failed: %+v", reply)
	}

	if err := store.UnlockNode(ctx, "/", del.parentTimestamp); err != nil {
		t.Fatalf("UnlockNode() error = %v", err)
	}
	if acquired, _, err := store.LockNode(ctx, "/", time.Now().Add(time.Hour)); err != nil || !acquired {
		t.Fatalf("failed to steal parent lease: acquired=%v err=%v", acquired, err)
	}

	ok, reply := del.CommitAndUnlock(ctx, store)
	if ok {
		t.Fatal("expected commit to fail once the parent lease was lost")
	}
	if reply.Reason != ReasonUnknown {
		t.Fatalf("expected reason %q, got %q", ReasonUnknown, reply.Reason)
	}
}

func TestDeleteNodeExecutor_NotEmpty(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	parent := NewCreateNodeExecutor(createNodeOp("/a"))
	if ok, reply := parent.LockAndRead(ctx, store); !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}
	if ok, reply := parent.CommitAndUnlock(ctx, store); !ok {
		t.Fatalf("CommitAndUnlock() failed: %+v", reply)
	}

	child := NewCreateNodeExecutor(createNodeOp("/a/b"))
	if ok, reply := child.LockAndRead(ctx, store); !ok {
		t.Fatalf("child LockAndRead() failed: %+v", reply)
	}
	if ok, reply := child.CommitAndUnlock(ctx, store); !ok {
		t.Fatalf("child CommitAndUnlock() failed: %+v", reply)
	}

	del := NewDeleteNodeExecutor(deleteNodeOp("/a"))
	ok, reply := del.LockAndRead(ctx, store)
	if ok {
		t.Fatal("expected delete of a non-empty node to fail")
	}
	if reply.Reason != ReasonNotEmpty {
		t.Fatalf("expected reason %q, got %q", ReasonNotEmpty, reply.Reason)
	}
}

func TestDeleteNodeExecutor_Success(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	create := NewCreateNodeExecutor(createNodeOp("/a"))
	if ok, reply := create.LockAndRead(ctx, store); !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}
	if ok, reply := create.CommitAndUnlock(ctx, store); !ok {
		t.Fatalf("CommitAndUnlock() failed: %+v", reply)
	}

	del := NewDeleteNodeExecutor(deleteNodeOp("/a"))
	if ok, reply := del.LockAndRead(ctx, store); !ok {
		t.Fatalf("delete LockAndRead() failed: %+v", reply)
	}
	ok, reply := del.CommitAndUnlock(ctx, store)
	if !ok {
		t.Fatalf("delete CommitAndUnlock() failed: %+v", reply)
	}
	if reply.Status != "success" {
		t.Fatalf("expected success, got %+v", reply)
	}

	recreate := NewCreateNodeExecutor(createNodeOp("/a"))
	ok, reply = recreate.LockAndRead(ctx, store)
	if !ok {
		t.Fatalf("expected path to be recreatable after delete, got %+v", reply)
	}
}

func TestDeregisterSessionExecutor_UnknownSession(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	exec := NewDeregisterSessionExecutor(deregisterOp("session-1"))
	if ok, reply := exec.LockAndRead(ctx, store); !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}
	ok, reply := exec.CommitAndUnlock(ctx, store)
	if ok {
		t.Fatal("expected deregister of an unknown session to fail")
	}
	if reply.Reason != ReasonSessionNotExist {
		t.Fatalf("expected reason %q, got %q", ReasonSessionNotExist, reply.Reason)
	}
}

func TestDeregisterSessionExecutor_Success(t *testing.T) {
	ctx := context.Background()
	store := seedRoot(t)

	if err := store.TouchSession(ctx, "session-1"); err != nil {
		t.Fatalf("TouchSession() error = %v", err)
	}

	exec := NewDeregisterSessionExecutor(deregisterOp("session-1"))
	if ok, reply := exec.LockAndRead(ctx, store); !ok {
		t.Fatalf("LockAndRead() failed: %+v", reply)
	}
	ok, reply := exec.CommitAndUnlock(ctx, store)
	if !ok {
		t.Fatalf("CommitAndUnlock() failed: %+v", reply)
	}
	if reply.Status != "success" {
		t.Fatalf("expected success, got %+v", reply)
	}
}
