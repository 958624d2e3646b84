package distributor

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/goclaw/goclaw/pkg/eventbus"
	"github.com/goclaw/goclaw/pkg/lane"
	"github.com/goclaw/goclaw/pkg/model"
)

func TestLanePublisher_Push(t *testing.T) {
	l, err := lane.New(&lane.Config{
		Name:           "distributor",
		Capacity:       8,
		MaxConcurrency: 1,
		Backpressure:   lane.Block,
	})
	if err != nil {
		t.Fatalf("lane.New() error = %v", err)
	}
	defer l.Close(context.Background())

	bus := eventbus.NewMemoryBus()
	sub, err := bus.Subscribe(eventbus.DomainWildcardSubject(eventbus.DomainDistributor), 4)
	if err != nil {
		t.Fatalf("Subscribe() error = %v", err)
	}
	defer sub.Close()

	publisher, err := eventbus.NewPublisher("node-1", bus, eventbus.DefaultRetryConfig(), nil)
	if err != nil {
		t.Fatalf("NewPublisher() error = %v", err)
	}

	dist := NewLanePublisher(l, publisher, "shard-a")

	node := model.NewNode("/a")
	err = dist.Push(context.Background(), Event{
		Kind:      EventCreateNode,
		SessionID: "session-1",
		Counter:   1,
		Node:      node,
	})
	if err != nil {
		t.Fatalf("Push() error = %v", err)
	}

	select {
	case msg := <-sub.C():
		var env eventbus.Envelope
		if err := json.Unmarshal(msg.Payload, &env); err != nil {
			t.Fatalf("Unmarshal() error = %v", err)
		}
		if env.Path != "/a" {
			t.Fatalf("expected path /a, got %q", env.Path)
		}
		if env.EventType != string(EventCreateNode) {
			t.Fatalf("expected event type %q, got %q", EventCreateNode, env.EventType)
		}
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for published distributor event")
	}
}
