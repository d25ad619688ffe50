package hub

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/yeremiapane/tablebook/models"
)

// connect opens a client connection whose server side is registered with role.
func connect(t *testing.T, h *Hub, role models.Role) *websocket.Conn {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		h.Register(conn, role)
	}))
	t.Cleanup(srv.Close)

	before := h.Count()
	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })
	require.Eventually(t, func() bool { return h.Count() == before+1 }, time.Second, 10*time.Millisecond)
	return client
}

func read(t *testing.T, conn *websocket.Conn) (Message, bool) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	_, raw, err := conn.ReadMessage()
	if err != nil {
		return Message{}, false
	}
	var msg Message
	require.NoError(t, json.Unmarshal(raw, &msg))
	return msg, true
}

func TestPublishFiltersReservationEventsByRole(t *testing.T) {
	h := New()
	admin := connect(t, h, models.RoleAdmin)
	user := connect(t, h, models.RoleUser)

	h.Publish("reservation_created", map[string]interface{}{"id": 1})
	h.Publish("availability_changed", map[string]interface{}{"timeslot_id": 2})

	msg, ok := read(t, admin)
	require.True(t, ok)
	assert.Equal(t, "reservation_created", msg.Event)
	msg, ok = read(t, admin)
	require.True(t, ok)
	assert.Equal(t, "availability_changed", msg.Event)

	msg, ok = read(t, user)
	require.True(t, ok)
	assert.Equal(t, "availability_changed", msg.Event)
	_, ok = read(t, user)
	assert.False(t, ok)
}

func TestUnregister(t *testing.T) {
	h := New()
	connect(t, h, models.RoleUser)
	require.Equal(t, 1, h.Count())

	h.mutex.Lock()
	var conn *websocket.Conn
	for c := range h.clients {
		conn = c
	}
	h.mutex.Unlock()

	h.Unregister(conn)
	assert.Zero(t, h.Count())
	// unregistering twice is harmless
	h.Unregister(conn)
}

func TestPublishDropsClientWithFullQueue(t *testing.T) {
	h := New()
	stuck := connect(t, h, models.RoleAdmin)
	fine := connect(t, h, models.RoleAdmin)

	// antrean tanpa pembaca, seperti klien yang macet
	h.mutex.Lock()
	for _, cl := range h.clients {
		if cl.conn.RemoteAddr().String() == stuck.LocalAddr().String() {
			close(cl.send)
			cl.send = make(chan []byte)
		}
	}
	h.mutex.Unlock()

	done := make(chan struct{})
	go func() {
		h.Publish("availability_changed", map[string]interface{}{"timeslot_id": 1})
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Publish blocked on a stuck client")
	}

	assert.Equal(t, 1, h.Count())
	msg, ok := read(t, fine)
	require.True(t, ok)
	assert.Equal(t, "availability_changed", msg.Event)
	_, ok = read(t, stuck)
	assert.False(t, ok)
}
