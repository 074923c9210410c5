package websocket

import (
	"testing"
	"time"

	"trackpulse/models"
)

func testClient() *Client {
	return &Client{
		id:   "test-observer",
		send: make(chan WSMessage, 8),
	}
}

func receive(t *testing.T, client *Client) WSMessage {
	t.Helper()
	select {
	case msg := <-client.send:
		return msg
	case <-time.After(time.Second):
		t.Fatal("no frame arrived")
		return WSMessage{}
	}
}

func TestHubDeliversToSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	observer := testClient()
	hub.register <- observer
	hub.Subscribe(observer, "dev-1")

	hub.BroadcastPosition(models.PositionReport{ID: "r1", DeviceID: "dev-1"})

	msg := receive(t, observer)
	if msg.Type != WSTypePosition {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypePosition)
	}
	if msg.DeviceID != "dev-1" {
		t.Errorf("DeviceID = %q, want dev-1", msg.DeviceID)
	}
}

func TestHubSkipsNonSubscribers(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	subscribed := testClient()
	idle := testClient()
	hub.register <- subscribed
	hub.register <- idle
	hub.Subscribe(subscribed, "dev-1")

	hub.BroadcastPosition(models.PositionReport{ID: "r1", DeviceID: "dev-1"})
	receive(t, subscribed)

	select {
	case msg := <-idle.send:
		t.Errorf("unsubscribed observer received %q frame", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubUnsubscribeStopsDelivery(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	observer := testClient()
	hub.register <- observer
	hub.Subscribe(observer, "dev-1")
	hub.Unsubscribe(observer, "dev-1")

	hub.BroadcastPosition(models.PositionReport{ID: "r1", DeviceID: "dev-1"})

	select {
	case msg := <-observer.send:
		t.Errorf("unsubscribed observer received %q frame", msg.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubBoundaryEventsRouteByEntity(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	observer := testClient()
	hub.register <- observer
	hub.Subscribe(observer, "pet-1")

	hub.BroadcastBoundaryEvent(models.BoundaryEvent{
		ID:           "e1",
		DefinitionID: "gf-1",
		EntityID:     "pet-1",
		Type:         models.BoundaryEnter,
	})

	msg := receive(t, observer)
	if msg.Type != WSTypeBoundaryEvent {
		t.Errorf("Type = %q, want %q", msg.Type, WSTypeBoundaryEvent)
	}
}

func TestHubSlowObserverDropsFramesNotConnection(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Shutdown()

	slow := &Client{id: "slow", send: make(chan WSMessage)} // unbuffered, never read
	hub.register <- slow
	hub.Subscribe(slow, "dev-1")

	// None of these can be delivered; the hub must shrug them off.
	for i := 0; i < 10; i++ {
		hub.BroadcastPosition(models.PositionReport{DeviceID: "dev-1"})
	}

	time.Sleep(50 * time.Millisecond)
	stats := hub.GetStats()
	if stats.ActiveConnections != 1 {
		t.Errorf("ActiveConnections = %d, want the slow observer kept", stats.ActiveConnections)
	}
}
