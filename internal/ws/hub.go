package ws

import (
	"context"
	"fmt"
	"sync"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/events"
	"github.com/google/uuid"
)

// delivery is an encoded event on its way to one user's room, or to every
// connected staff member when userID is nil.
type delivery struct {
	userID  *uuid.UUID
	message []byte
}

// Hub maintains the set of active clients and pushes events to them.
// It satisfies events.Publisher.
type Hub struct {
	// Registered clients by user ID. A user may hold several connections.
	rooms map[uuid.UUID]map[*Client]bool

	register   chan *Client
	unregister chan *Client

	broadcast chan *delivery

	mu sync.RWMutex
}

func NewHub() *Hub {
	return &Hub{
		rooms:      make(map[uuid.UUID]map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *delivery, 256),
	}
}

// Run starts the hub's main loop. Call it as a goroutine: go hub.Run()
func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			if h.rooms[client.userID] == nil {
				h.rooms[client.userID] = make(map[*Client]bool)
			}
			h.rooms[client.userID][client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if clients, ok := h.rooms[client.userID]; ok {
				if _, exists := clients[client]; exists {
					h.drop(client)
				}
			}
			h.mu.Unlock()

		case d := <-h.broadcast:
			h.mu.Lock()
			if d.userID != nil {
				for client := range h.rooms[*d.userID] {
					h.send(client, d.message)
				}
			} else {
				for _, clients := range h.rooms {
					for client := range clients {
						if client.isStaff() {
							h.send(client, d.message)
						}
					}
				}
			}
			h.mu.Unlock()
		}
	}
}

// send must be called with h.mu held. A client whose buffer is full is
// dropped.
func (h *Hub) send(client *Client, message []byte) {
	select {
	case client.send <- message:
	default:
		h.drop(client)
	}
}

func (h *Hub) drop(client *Client) {
	clients := h.rooms[client.userID]
	delete(clients, client)
	close(client.send)
	if len(clients) == 0 {
		delete(h.rooms, client.userID)
	}
}

// Publish queues ev for the connected clients it concerns. Events with a
// recipient go to that user only; the rest go to all connected staff.
func (h *Hub) Publish(ctx context.Context, ev events.Event) error {
	message, err := ev.Encode()
	if err != nil {
		return fmt.Errorf("encode %s: %w", ev.Type, err)
	}
	select {
	case h.broadcast <- &delivery{userID: ev.RecipientID, message: message}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Connected reports how many connections a user has open.
func (h *Hub) Connected(userID uuid.UUID) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[userID])
}
