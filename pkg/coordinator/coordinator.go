// Package coordinator runs the three-phase write path — lock_and_read,
// commit_and_unlock, distributor_push — for a single submitted operation,
// timing each phase into the process-wide stats registry.
package coordinator

import (
	"context"
	"time"

	"encoding/json"

	"github.com/goclaw/goclaw/pkg/dispatch"
	"github.com/goclaw/goclaw/pkg/distributor"
	"github.com/goclaw/goclaw/pkg/executor"
	"github.com/goclaw/goclaw/pkg/logger"
	"github.com/goclaw/goclaw/pkg/stats"
	"github.com/goclaw/goclaw/pkg/storage"
)

// Coordinator wires a storage backend and a distributor queue into the
// fixed lock_and_read -> commit_and_unlock -> distributor_push pipeline.
type Coordinator struct {
	store storage.SystemStorage
	dist  distributor.Distributor
	stats *stats.TimingStatistics
	log   logger.Logger
}

// New returns a Coordinator backed by store and dist.
func New(store storage.SystemStorage, dist distributor.Distributor, log logger.Logger) *Coordinator {
	return &Coordinator{
		store: store,
		dist:  dist,
		stats: stats.Instance(),
		log:   log,
	}
}

// Submit deserializes raw according to operation, runs the three write-path
// phases in order, and returns the reply that should be sent back to the
// submitting client. When the operation cannot be dispatched at all
// (unknown operation or malformed envelope), Submit returns a failure reply
// with executor.ReasonIncorrectRequest. Exactly one outcome
// sample is recorded for the operation, regardless of which phase
// short-circuited it.
func (c *Coordinator) Submit(ctx context.Context, operation, sessionID string, raw json.RawMessage) (reply executor.Reply) {
	start := time.Now()
	defer func() {
		c.stats.AddResult("total", time.Since(start))
		c.stats.RecordOperation(operation, reply.Status, reply.Reason)
	}()

	exec, err := dispatch.Build(operation, raw)
	if err != nil {
		c.log.Warn("rejecting malformed operation", "operation", operation, "error", err)
		reply = executor.Reply{Status: "failure", Reason: executor.ReasonIncorrectRequest}
		return reply
	}

	if err := c.store.TouchSession(ctx, sessionID); err != nil {
		c.log.Warn("touch session failed", "operation", operation, "session_id", sessionID, "error", err)
	}

	lockStart := time.Now()
	ok, r := exec.LockAndRead(ctx, c.store)
	c.stats.AddResult("lock_and_read", time.Since(lockStart))
	if !ok {
		reply = r
		return reply
	}

	commitStart := time.Now()
	ok, r = exec.CommitAndUnlock(ctx, c.store)
	c.stats.AddResult("commit_and_unlock", time.Since(commitStart))
	if !ok {
		reply = r
		return reply
	}

	pushStart := time.Now()
	if err := exec.DistributorPush(ctx, c.dist, sessionID); err != nil {
		c.log.Error("distributor push failed", "operation", operation, "session_id", sessionID, "error", err)
	}
	c.stats.AddResult("distributor_push", time.Since(pushStart))
	c.stats.AddRepetition()

	reply = r
	return reply
}
