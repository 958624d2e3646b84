// Package distributor pushes committed mutations onto the outbound queue
// that fans them out to the data-plane readers, decoupling the commit
// latency a client waits on from the fan-out latency readers tolerate.
package distributor

import (
	"context"
	"fmt"

	"github.com/goclaw/goclaw/pkg/eventbus"
	"github.com/goclaw/goclaw/pkg/lane"
	"github.com/goclaw/goclaw/pkg/model"
)

// EventKind identifies the shape of a committed mutation event.
type EventKind string

const (
	EventCreateNode EventKind = "create_node"
	EventSetData    EventKind = "set_data"
	EventDeleteNode EventKind = "delete_node"
)

// Event is a single committed mutation ready to be pushed to the
// distributor queue, in system-counter order.
type Event struct {
	Kind      EventKind
	SessionID string
	Counter   int64
	Node      *model.Node
	Parent    *model.Node
}

// Distributor accepts committed mutation events in the order their system
// counter was assigned and publishes them downstream.
type Distributor interface {
	Push(ctx context.Context, event Event) error
}

// LanePublisher pushes distributor events through a worker-pooled Lane so
// that a burst of commits cannot block the write path waiting on a slow
// downstream publish; it then serializes each admitted event onto the
// event bus in the distributor domain.
type LanePublisher struct {
	lane      lane.Lane
	publisher *eventbus.Publisher
	shardKey  string
}

// NewLanePublisher builds a distributor that queues pushes onto l and
// publishes each one through publisher once a worker picks it up.
func NewLanePublisher(l lane.Lane, publisher *eventbus.Publisher, shardKey string) *LanePublisher {
	return &LanePublisher{lane: l, publisher: publisher, shardKey: shardKey}
}

// Push implements Distributor. It blocks according to the lane's
// backpressure strategy, not on the downstream publish itself; the actual
// publish happens asynchronously on a lane worker.
func (p *LanePublisher) Push(ctx context.Context, event Event) error {
	task := lane.NewTaskFunc(
		fmt.Sprintf("distributor-%d", event.Counter),
		p.lane.Name(),
		int(event.Counter),
		func(taskCtx context.Context) error {
			_, err := p.publisher.PublishWritePathEvent(taskCtx, eventbus.WritePathEvent{
				Domain:    eventbus.DomainDistributor,
				EventType: string(event.Kind),
				ShardKey:  p.shardKey,
				Path:      nodePath(event.Node),
				SessionID: event.SessionID,
				Payload:   event,
			})
			return err
		},
	)
	return p.lane.Submit(ctx, task)
}

func nodePath(n *model.Node) string {
	if n == nil {
		return ""
	}
	return n.Path
}
