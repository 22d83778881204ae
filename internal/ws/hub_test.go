package ws

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/auth"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
)

// mockClient creates a client for testing without a real WebSocket connection
func mockClient(hub *Hub, userID uuid.UUID, role string) *Client {
	return &Client{
		hub:    hub,
		userID: userID,
		role:   role,
		send:   make(chan []byte, 256),
	}
}

func expectEvent(t *testing.T, c *Client, wantType string) events.Event {
	t.Helper()
	select {
	case msg := <-c.send:
		var received events.Event
		if err := json.Unmarshal(msg, &received); err != nil {
			t.Fatalf("failed to unmarshal message: %v", err)
		}
		if received.Type != wantType {
			t.Errorf("expected type %q, got %q", wantType, received.Type)
		}
		return received
	case <-time.After(100 * time.Millisecond):
		t.Fatalf("client %s did not receive message", c.userID)
	}
	return events.Event{}
}

func expectNothing(t *testing.T, c *Client) {
	t.Helper()
	select {
	case msg := <-c.send:
		t.Fatalf("client %s should not have received %s", c.userID, msg)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestHubRegistration(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	client := mockClient(hub, userID, "waiter")

	hub.register <- client
	time.Sleep(10 * time.Millisecond)

	if got := hub.Connected(userID); got != 1 {
		t.Fatalf("expected 1 connection, got %d", got)
	}
}

func TestHubCleanupEmptyRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	phone := mockClient(hub, userID, "waiter")
	tablet := mockClient(hub, userID, "waiter")

	hub.register <- phone
	hub.register <- tablet
	time.Sleep(10 * time.Millisecond)
	if got := hub.Connected(userID); got != 2 {
		t.Fatalf("expected 2 connections, got %d", got)
	}

	hub.unregister <- phone
	time.Sleep(10 * time.Millisecond)
	if got := hub.Connected(userID); got != 1 {
		t.Fatalf("expected 1 connection after first unregister, got %d", got)
	}

	hub.unregister <- tablet
	time.Sleep(10 * time.Millisecond)

	hub.mu.RLock()
	defer hub.mu.RUnlock()
	if hub.rooms[userID] != nil {
		t.Fatal("room should be deleted when last client unregisters")
	}
}

func TestPublishToRecipientOnly(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	waiter := uuid.New()
	phone := mockClient(hub, waiter, "waiter")
	tablet := mockClient(hub, waiter, "waiter")
	other := mockClient(hub, uuid.New(), "waiter")

	hub.register <- phone
	hub.register <- tablet
	hub.register <- other
	time.Sleep(10 * time.Millisecond)

	err := hub.Publish(context.Background(), events.Event{
		Type:        events.TypeNotificationCreated,
		Key:         "n-1",
		RecipientID: &waiter,
		Payload:     map[string]any{"title": "Order ready for table 5"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	got := expectEvent(t, phone, events.TypeNotificationCreated)
	if got.RecipientID == nil || *got.RecipientID != waiter {
		t.Errorf("expected recipient %s, got %v", waiter, got.RecipientID)
	}
	expectEvent(t, tablet, events.TypeNotificationCreated)
	expectNothing(t, other)
}

func TestPublishWithoutRecipientReachesStaff(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	cook := mockClient(hub, uuid.New(), "kitchen")
	cashier := mockClient(hub, uuid.New(), "cashier")
	customer := mockClient(hub, uuid.New(), "customer")

	hub.register <- cook
	hub.register <- cashier
	hub.register <- customer
	time.Sleep(10 * time.Millisecond)

	err := hub.Publish(context.Background(), events.Event{
		Type:    events.TypeOrderStatusChanged,
		Key:     uuid.NewString(),
		Payload: map[string]any{"status": "ready"},
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}

	expectEvent(t, cook, events.TypeOrderStatusChanged)
	expectEvent(t, cashier, events.TypeOrderStatusChanged)
	expectNothing(t, customer)
}

func TestPublishToDisconnectedUser(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	online := mockClient(hub, uuid.New(), "waiter")
	hub.register <- online
	time.Sleep(10 * time.Millisecond)

	offline := uuid.New()
	err := hub.Publish(context.Background(), events.Event{
		Type:        events.TypeNotificationCreated,
		RecipientID: &offline,
	})
	if err != nil {
		t.Fatalf("publish: %v", err)
	}
	expectNothing(t, online)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := NewHub()
	go hub.Run()

	userID := uuid.New()
	slow := &Client{hub: hub, userID: userID, role: "waiter", send: make(chan []byte)}
	hub.register <- slow
	time.Sleep(10 * time.Millisecond)

	if err := hub.Publish(context.Background(), events.Event{Type: events.TypeTableStatusChanged, RecipientID: &userID}); err != nil {
		t.Fatalf("publish: %v", err)
	}
	time.Sleep(10 * time.Millisecond)

	if got := hub.Connected(userID); got != 0 {
		t.Fatalf("expected slow client to be dropped, still %d connected", got)
	}
	if _, ok := <-slow.send; ok {
		t.Fatal("expected send channel to be closed")
	}
}

func TestPublishHonoursContext(t *testing.T) {
	// no Run loop, so the buffer fills up
	hub := NewHub()
	for i := 0; i < cap(hub.broadcast); i++ {
		hub.broadcast <- &delivery{}
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := hub.Publish(ctx, events.Event{Type: events.TypeTableStatusChanged}); err == nil {
		t.Fatal("expected context error when the hub is backed up")
	}
}

func TestNewClientTakesIdentityFromClaims(t *testing.T) {
	hub := NewHub()
	id := uuid.New()

	c := newClient(hub, nil, &auth.Claims{UserID: id, Role: "customer"})
	if c.userID != id || c.role != "customer" {
		t.Fatalf("client: got %v/%s", c.userID, c.role)
	}
	if c.isStaff() {
		t.Error("customer should not hear staff-wide events")
	}
	if cap(c.send) != sendBuffer {
		t.Errorf("send buffer: got %d, want %d", cap(c.send), sendBuffer)
	}

	if !newClient(hub, nil, &auth.Claims{UserID: id, Role: "waiter"}).isStaff() {
		t.Error("waiter should hear staff-wide events")
	}
}
