package ws

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
)

var testUpgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// dialTestConn 建立一对真实的 websocket 连接，返回服务端侧
func dialTestConn(t *testing.T) (server *websocket.Conn, client *websocket.Conn) {
	t.Helper()

	serverCh := make(chan *websocket.Conn, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := testUpgrader.Upgrade(w, r, nil)
		if err != nil {
			t.Errorf("upgrade failed: %v", err)
			return
		}
		serverCh <- conn
	}))
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	client, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	select {
	case server = <-serverCh:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for server side connection")
	}
	t.Cleanup(func() { _ = server.Close() })

	return server, client
}

func readMessage(t *testing.T, conn *websocket.Conn) *Message {
	t.Helper()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return &msg
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub()

	serverConn, _ := dialTestConn(t)
	client := &Client{AdminID: 1, Conn: serverConn}

	assert.False(t, hub.IsOnline(1))

	hub.Register(client)
	assert.True(t, hub.IsOnline(1))
	assert.Equal(t, 1, hub.ConnectionCount())

	hub.Unregister(client)
	assert.False(t, hub.IsOnline(1))
	assert.Equal(t, 0, hub.ConnectionCount())
}

func TestHub_MultipleConnsPerAdmin(t *testing.T) {
	hub := NewHub()

	conn1, _ := dialTestConn(t)
	conn2, _ := dialTestConn(t)
	c1 := &Client{AdminID: 1, Conn: conn1}
	c2 := &Client{AdminID: 1, Conn: conn2}

	hub.Register(c1)
	hub.Register(c2)
	assert.Equal(t, 2, hub.ConnectionCount())

	// 关掉一个标签页仍在线
	hub.Unregister(c1)
	assert.True(t, hub.IsOnline(1))

	hub.Unregister(c2)
	assert.False(t, hub.IsOnline(1))
}

func TestHub_Broadcast(t *testing.T) {
	hub := NewHub()

	server1, client1 := dialTestConn(t)
	server2, client2 := dialTestConn(t)
	hub.Register(&Client{AdminID: 1, Conn: server1})
	hub.Register(&Client{AdminID: 2, Conn: server2})

	require.NoError(t, hub.Broadcast(&Message{
		Type: "payment_submitted",
		Data: map[string]interface{}{"payment_id": float64(7)},
	}))

	for _, conn := range []*websocket.Conn{client1, client2} {
		msg := readMessage(t, conn)
		assert.Equal(t, "payment_submitted", msg.Type)
		data := msg.Data.(map[string]interface{})
		assert.Equal(t, float64(7), data["payment_id"])
	}
}

func TestHub_SendToAdmin(t *testing.T) {
	hub := NewHub()

	server1, client1 := dialTestConn(t)
	server2, client2 := dialTestConn(t)
	hub.Register(&Client{AdminID: 1, Conn: server1})
	hub.Register(&Client{AdminID: 2, Conn: server2})

	require.NoError(t, hub.SendToAdmin(1, &Message{Type: "ping"}))

	msg := readMessage(t, client1)
	assert.Equal(t, "ping", msg.Type)

	// 另一个管理员收不到
	require.NoError(t, client2.SetReadDeadline(time.Now().Add(100*time.Millisecond)))
	_, _, err := client2.ReadMessage()
	assert.Error(t, err)
}

func TestHub_SendToAdmin_Offline(t *testing.T) {
	hub := NewHub()
	// 不在线时静默丢弃
	assert.NoError(t, hub.SendToAdmin(42, &Message{Type: "ping"}))
}
