package hub

import (
	"encoding/json"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/yeremiapane/tablebook/models"
	"github.com/yeremiapane/tablebook/utils"
)

const (
	writeWait  = 5 * time.Second
	sendBuffer = 64
)

type Message struct {
	Event string      `json:"event"`
	Data  interface{} `json:"data"`
}

type client struct {
	conn *websocket.Conn
	role models.Role
	send chan []byte
}

// Hub holds the live-feed websocket clients and the role each connected with.
// Reservation events carry user data and only reach admins; availability,
// table and timeslot events reach everyone. Each client has its own writer
// goroutine, so Publish never waits on a connection.
type Hub struct {
	clients map[*websocket.Conn]*client
	mutex   sync.Mutex
}

func New() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

func (h *Hub) Register(conn *websocket.Conn, role models.Role) {
	cl := &client{conn: conn, role: role, send: make(chan []byte, sendBuffer)}

	h.mutex.Lock()
	h.clients[conn] = cl
	h.mutex.Unlock()

	go h.writePump(conn, cl.send)
}

func (h *Hub) Unregister(conn *websocket.Conn) {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if cl, ok := h.clients[conn]; ok {
		h.drop(cl)
	}
}

func (h *Hub) Count() int {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return len(h.clients)
}

// Publish queues the event for every client allowed to see it. A client
// whose queue is full is dropped.
func (h *Hub) Publish(event string, data interface{}) {
	payload, err := json.Marshal(Message{Event: event, Data: data})
	if err != nil {
		utils.ErrorLogger.Printf("Error marshaling %s message: %v", event, err)
		return
	}
	adminOnly := strings.HasPrefix(event, "reservation")

	h.mutex.Lock()
	defer h.mutex.Unlock()

	for _, cl := range h.clients {
		if adminOnly && cl.role != models.RoleAdmin {
			continue
		}
		select {
		case cl.send <- payload:
		default:
			utils.ErrorLogger.Printf("Client too slow, dropping it before %s", event)
			h.drop(cl)
		}
	}
}

// drop must be called with the mutex held.
func (h *Hub) drop(cl *client) {
	delete(h.clients, cl.conn)
	close(cl.send)
	cl.conn.Close()
}

func (h *Hub) writePump(conn *websocket.Conn, send <-chan []byte) {
	for payload := range send {
		conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			utils.ErrorLogger.Printf("Error sending to client: %v", err)
			h.Unregister(conn)
			return
		}
	}
}
