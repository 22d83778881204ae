package ws

import (
	"log"
	"net/http"
	"time"

	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/auth"
	"github.com/JuanPablitoxxz/RestauranteLaChinga-sub000/internal/enum"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = (pongWait * 9) / 10 // must stay below pongWait

	// The feed is one-way; inbound frames are only pongs and close frames.
	maxInboundSize = 512

	// Events buffered per connection before the hub gives up on it.
	sendBuffer = 64
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Browsers on the floor tablets connect from the POS origin; the token is
	// what authorizes the connection.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Client is one open feed of one signed-in user. A waiter with a phone and a
// tablet holds two clients in the same room.
type Client struct {
	hub    *Hub
	conn   *websocket.Conn
	userID uuid.UUID
	role   string
	send   chan []byte
}

func newClient(hub *Hub, conn *websocket.Conn, claims *auth.Claims) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		userID: claims.UserID,
		role:   claims.Role,
		send:   make(chan []byte, sendBuffer),
	}
}

// isStaff reports whether the client hears events that have no recipient,
// such as table status changes on a table nobody serves.
func (c *Client) isStaff() bool {
	return c.role != enum.RoleCustomer
}

// watchClose reads until the peer goes away, then leaves the room.
func (c *Client) watchClose() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxInboundSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("WARN: feed of %s user %s closed: %v", c.role, c.userID, err)
			}
			return
		}
	}
}

// deliver writes every queued event as its own text frame, so each frame is
// one JSON document, and pings the peer between events.
func (c *Client) deliver() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case event, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// dropped by the hub: slow reader or unregistered
				c.conn.WriteMessage(websocket.CloseMessage,
					websocket.FormatCloseMessage(websocket.CloseGoingAway, "feed closed"))
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, event); err != nil {
				log.Printf("WARN: feed of user %s: %v", c.userID, err)
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// ServeWS opens the realtime feed for the user named in ?token=. The user
// joins their own room and, unless they are a customer, hears floor-wide
// events too.
// Endpoint: WS /ws/notifications?token=JWT
func ServeWS(hub *Hub, jwtSecret string, w http.ResponseWriter, r *http.Request) {
	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	claims, err := auth.ValidateToken(jwtSecret, token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("ERROR: feed upgrade for user %s: %v", claims.UserID, err)
		return
	}

	client := newClient(hub, conn, claims)
	hub.register <- client

	go client.deliver()
	go client.watchClose()
}
