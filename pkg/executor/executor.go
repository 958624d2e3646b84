// Package executor implements the three-phase write path every client
// mutation goes through: lock_and_read, commit_and_unlock, and
// distributor_push.
package executor

import (
	"context"
	"path"
	"time"

	"github.com/goclaw/goclaw/pkg/distributor"
	"github.com/goclaw/goclaw/pkg/model"
	"github.com/goclaw/goclaw/pkg/request"
	"github.com/goclaw/goclaw/pkg/storage"
)

// lockRetryDelay is how long a lock_and_read phase waits before retrying a
// refused path lock. The parent-lock retry uses half this delay, matching
// the tighter backoff the original coordinator gives a (usually shorter-held)
// parent lease.
const lockRetryDelay = 2 * time.Second
const parentLockRetryDelay = 1 * time.Second

// Reply is the outcome reported back to the submitting client.
type Reply struct {
	Status    string `json:"status"`
	Path      string `json:"path,omitempty"`
	SessionID string `json:"session_id,omitempty"`
	Reason    string `json:"reason,omitempty"`
}

// Reason codes returned on failure, matching the front-end's known set of
// client-facing error reasons.
const (
	ReasonNodeExists        = "node_exists"
	ReasonNodeDoesntExist   = "node_doesnt_exist"
	ReasonNotEmpty          = "not_empty"
	ReasonSessionNotExist   = "session_does_not_exist"
	ReasonIncorrectRequest  = "incorrect_request"
	ReasonUnknown           = "unknown"
)

func okReply() Reply                       { return Reply{Status: "success"} }
func failReply(reason string) Reply        { return Reply{Status: "failure", Reason: reason} }
func failPathReply(path, reason string) Reply {
	return Reply{Status: "failure", Path: path, Reason: reason}
}

// Executor runs the three phases of a single client operation against a
// SystemStorage backend and pushes the resulting mutation to the
// distributor queue. Each phase's bool return reports whether processing
// should continue; false means the reply is already final and the
// remaining phases must be skipped.
type Executor interface {
	LockAndRead(ctx context.Context, store storage.SystemStorage) (bool, Reply)
	CommitAndUnlock(ctx context.Context, store storage.SystemStorage) (bool, Reply)
	DistributorPush(ctx context.Context, dist distributor.Distributor, sessionID string) error
}

// waitForLock polls LockNode until it is granted or ctx is canceled,
// sleeping delay between attempts exactly as the coordinator's retry loop
// does while a lease is contended.
func waitForLock(ctx context.Context, store storage.SystemStorage, path string, delay time.Duration) (bool, *model.Node, time.Time, error) {
	for {
		now := time.Now()
		acquired, node, err := store.LockNode(ctx, path, now)
		if err != nil {
			return false, nil, now, err
		}
		if acquired {
			return true, node, now, nil
		}
		select {
		case <-ctx.Done():
			return false, nil, now, ctx.Err()
		case <-time.After(delay):
		}
	}
}

// CreateNodeExecutor implements create_node: it locks the target and parent
// paths, verifies the target doesn't already exist and the parent does,
// then commits the new node and its parent's updated children list.
type CreateNodeExecutor struct {
	op *request.CreateNode

	timestamp       time.Time
	parentTimestamp time.Time
	parentNode      *model.Node
	node            *model.Node
	counter         int64
}

// NewCreateNodeExecutor returns an Executor for a create_node operation.
func NewCreateNodeExecutor(op *request.CreateNode) *CreateNodeExecutor {
	return &CreateNodeExecutor{op: op}
}

func (e *CreateNodeExecutor) LockAndRead(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	p := e.op.Path

	ok, node, ts, err := waitForLock(ctx, store, p, lockRetryDelay)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	_ = ok
	e.timestamp = ts

	if node != nil {
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failPathReply(p, ReasonNodeExists)
	}

	parentPath := model.ParentPath(p)
	pok, parentNode, pts, err := waitForLock(ctx, store, parentPath, parentLockRetryDelay)
	if err != nil {
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failReply(ReasonUnknown)
	}
	_ = pok
	e.parentTimestamp = pts

	if parentNode == nil {
		store.UnlockNode(ctx, parentPath, e.parentTimestamp)
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failPathReply(parentPath, ReasonNodeDoesntExist)
	}
	e.parentNode = parentNode

	return true, Reply{}
}

func (e *CreateNodeExecutor) CommitAndUnlock(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	counter, err := store.IncreaseSystemCounter(ctx, 0)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	e.counter = counter

	node := model.NewNode(e.op.Path)
	node.Created = model.NewVersion(counter)
	node.Modified = model.NewVersion(counter)
	node.DataB64 = e.op.DataB64
	e.node = node

	e.parentNode.Children = append(e.parentNode.Children, path.Base(e.op.Path))

	if ok, err := store.CommitNode(ctx, e.parentNode, e.parentTimestamp, model.NewAttributeSet(model.AttrChildren)); err != nil || !ok {
		return false, failReply(ReasonUnknown)
	}
	if ok, err := store.CommitNode(ctx, node, e.timestamp, model.NewAttributeSet(model.AttrCreated, model.AttrModified, model.AttrChildren)); err != nil || !ok {
		return false, failReply(ReasonUnknown)
	}

	store.UnlockNode(ctx, e.op.Path, e.timestamp)
	store.UnlockNode(ctx, model.ParentPath(e.op.Path), e.parentTimestamp)

	return true, okReply()
}

func (e *CreateNodeExecutor) DistributorPush(ctx context.Context, dist distributor.Distributor, sessionID string) error {
	return dist.Push(ctx, distributor.Event{
		Kind:      distributor.EventCreateNode,
		SessionID: sessionID,
		Counter:   e.counter,
		Node:      e.node,
		Parent:    e.parentNode,
	})
}

// SetDataExecutor implements set_data: it locks the target path, verifies
// it exists, then commits only its modified version and payload.
type SetDataExecutor struct {
	op *request.SetData

	timestamp time.Time
	node      *model.Node
	counter   int64
}

// NewSetDataExecutor returns an Executor for a set_data operation.
func NewSetDataExecutor(op *request.SetData) *SetDataExecutor {
	return &SetDataExecutor{op: op}
}

func (e *SetDataExecutor) LockAndRead(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	p := e.op.Path

	_, node, ts, err := waitForLock(ctx, store, p, lockRetryDelay)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	e.timestamp = ts

	if node == nil {
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failPathReply(p, ReasonNodeDoesntExist)
	}
	e.node = node

	return true, Reply{}
}

func (e *SetDataExecutor) CommitAndUnlock(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	counter, err := store.IncreaseSystemCounter(ctx, 0)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	e.counter = counter

	e.node.Modified = model.NewVersion(counter)
	e.node.DataB64 = e.op.DataB64

	ok, err := store.CommitNode(ctx, e.node, e.timestamp, model.NewAttributeSet(model.AttrModified))
	if err != nil || !ok {
		return false, failReply(ReasonUnknown)
	}

	store.UnlockNode(ctx, e.op.Path, e.timestamp)

	return true, okReply()
}

func (e *SetDataExecutor) DistributorPush(ctx context.Context, dist distributor.Distributor, sessionID string) error {
	return dist.Push(ctx, distributor.Event{
		Kind:      distributor.EventSetData,
		SessionID: sessionID,
		Counter:   e.counter,
		Node:      e.node,
	})
}

// DeleteNodeExecutor implements delete_node: it locks the target and
// (if the target is childless) its parent, then removes the target and
// commits the parent's updated children list.
type DeleteNodeExecutor struct {
	op *request.DeleteNode

	timestamp       time.Time
	parentTimestamp time.Time
	node            *model.Node
	parentNode      *model.Node
	counter         int64
}

// NewDeleteNodeExecutor returns an Executor for a delete_node operation.
func NewDeleteNodeExecutor(op *request.DeleteNode) *DeleteNodeExecutor {
	return &DeleteNodeExecutor{op: op}
}

func (e *DeleteNodeExecutor) LockAndRead(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	p := e.op.Path

	_, node, ts, err := waitForLock(ctx, store, p, lockRetryDelay)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	e.timestamp = ts

	if node == nil {
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failPathReply(p, ReasonNodeDoesntExist)
	}
	if len(node.Children) > 0 {
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failPathReply(p, ReasonNotEmpty)
	}
	e.node = node

	parentPath := model.ParentPath(p)
	_, parentNode, pts, err := waitForLock(ctx, store, parentPath, parentLockRetryDelay)
	if err != nil {
		store.UnlockNode(ctx, p, e.timestamp)
		return false, failReply(ReasonUnknown)
	}
	e.parentTimestamp = pts
	e.parentNode = parentNode

	return true, Reply{}
}

func (e *DeleteNodeExecutor) CommitAndUnlock(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	counter, err := store.IncreaseSystemCounter(ctx, 0)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	e.counter = counter

	name := path.Base(e.op.Path)
	children := make([]string, 0, len(e.parentNode.Children))
	for _, c := range e.parentNode.Children {
		if c != name {
			children = append(children, c)
		}
	}
	e.parentNode.Children = children

	if ok, err := store.CommitNode(ctx, e.parentNode, e.parentTimestamp, model.NewAttributeSet(model.AttrChildren)); err != nil || !ok {
		return false, failReply(ReasonUnknown)
	}
	if err := store.DeleteNode(ctx, e.node, e.timestamp); err != nil {
		return false, failReply(ReasonUnknown)
	}

	store.UnlockNode(ctx, e.op.Path, e.timestamp)
	store.UnlockNode(ctx, model.ParentPath(e.op.Path), e.parentTimestamp)

	return true, okReply()
}

func (e *DeleteNodeExecutor) DistributorPush(ctx context.Context, dist distributor.Distributor, sessionID string) error {
	return dist.Push(ctx, distributor.Event{
		Kind:      distributor.EventDeleteNode,
		SessionID: sessionID,
		Counter:   e.counter,
		Node:      e.node,
		Parent:    e.parentNode,
	})
}

// DeregisterSessionExecutor implements deregister_session: it removes a
// disconnected client's storage-side session record. It holds no lease and
// pushes nothing to the distributor, since no tree mutation results.
type DeregisterSessionExecutor struct {
	op *request.DeregisterSession
}

// NewDeregisterSessionExecutor returns an Executor for a
// deregister_session operation.
func NewDeregisterSessionExecutor(op *request.DeregisterSession) *DeregisterSessionExecutor {
	return &DeregisterSessionExecutor{op: op}
}

func (e *DeregisterSessionExecutor) LockAndRead(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	return true, Reply{}
}

func (e *DeregisterSessionExecutor) CommitAndUnlock(ctx context.Context, store storage.SystemStorage) (bool, Reply) {
	existed, err := store.DeleteUser(ctx, e.op.SessionID)
	if err != nil {
		return false, failReply(ReasonUnknown)
	}
	if !existed {
		return false, Reply{Status: "failure", SessionID: e.op.SessionID, Reason: ReasonSessionNotExist}
	}
	return true, Reply{Status: "success", SessionID: e.op.SessionID}
}

func (e *DeregisterSessionExecutor) DistributorPush(ctx context.Context, dist distributor.Distributor, sessionID string) error {
	return nil
}
