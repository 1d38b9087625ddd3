package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/kiwari-pos/orderengine/internal/enum"
	"go.uber.org/zap"
)

func startHub(t *testing.T) *Hub {
	t.Helper()
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)
	return hub
}

// testClient is a client without a connection; tests read its send buffer.
func testClient(hub *Hub, topic string) *Client {
	return &Client{
		hub:   hub,
		topic: topic,
		send:  make(chan []byte, 256),
	}
}

func expectEvent(t *testing.T, c *Client, wantType string) Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var ev Event
		if err := json.Unmarshal(msg, &ev); err != nil {
			t.Fatalf("unmarshal: %v", err)
		}
		if ev.Type != wantType {
			t.Fatalf("type = %q, want %q", ev.Type, wantType)
		}
		return ev
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("no %s event received", wantType)
	}
	return Event{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("unexpected message: %s", msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegisterAndCleanup(t *testing.T) {
	hub := startHub(t)
	c1 := testClient(hub, enum.TopicOrders)
	c2 := testClient(hub, enum.TopicOrders)

	hub.register <- c1
	hub.register <- c2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	if len(hub.rooms[enum.TopicOrders]) != 2 {
		t.Fatalf("expected 2 clients, got %d", len(hub.rooms[enum.TopicOrders]))
	}
	hub.mu.RUnlock()

	hub.unregister <- c1
	hub.unregister <- c2
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[enum.TopicOrders] != nil {
		t.Fatal("room should be deleted when last client leaves")
	}
}

func TestHubBroadcastIsTopicScoped(t *testing.T) {
	hub := startHub(t)
	orders := testClient(hub, enum.TopicOrders)
	stock := testClient(hub, enum.TopicInventory)
	hub.register <- orders
	hub.register <- stock
	time.Sleep(10 * time.Millisecond)

	hub.Broadcast(enum.TopicOrders, Event{Type: "order.finalized", Payload: json.RawMessage(`{"order_number":3}`)})

	ev := expectEvent(t, orders, "order.finalized")
	if string(ev.Payload) != `{"order_number":3}` {
		t.Errorf("payload = %s", ev.Payload)
	}
	expectNothing(t, stock)
}

func TestHubPublishMarshalsPayload(t *testing.T) {
	hub := startHub(t)
	c := testClient(hub, enum.TopicInventory)
	hub.register <- c
	time.Sleep(10 * time.Millisecond)

	hub.Publish(enum.TopicInventory, "inventory.changed", map[string]string{"name": "Raw wings"})

	ev := expectEvent(t, c, "inventory.changed")
	var body map[string]string
	if err := json.Unmarshal(ev.Payload, &body); err != nil {
		t.Fatalf("payload: %v", err)
	}
	if body["name"] != "Raw wings" {
		t.Errorf("name = %q", body["name"])
	}
}

func TestHubRunStopsAndClosesClients(t *testing.T) {
	hub := NewHub(zap.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()

	c := testClient(hub, enum.TopicOrders)
	hub.register <- c
	time.Sleep(10 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if _, ok := <-c.send; ok {
		t.Fatal("client send channel should be closed")
	}
}
