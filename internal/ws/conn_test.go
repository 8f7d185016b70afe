package ws

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/BloggingApp/realtime-notifications/internal/hub"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newPair(t *testing.T, cfg Config) (*Conn, *websocket.Conn) {
	t.Helper()

	conns := make(chan *Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		conns <- New(zap.NewNop(), conn, cfg)
	}))
	t.Cleanup(srv.Close)

	client, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { client.Close() })

	select {
	case c := <-conns:
		t.Cleanup(func() { c.Close() })
		return c, client
	case <-time.After(5 * time.Second):
		t.Fatal("server side of the connection was not created")
		return nil, nil
	}
}

func TestConn_SendReachesClient(t *testing.T) {
	c, client := newPair(t, DefaultConfig())

	require.NoError(t, c.Send([]byte(`{"id":1}`)))
	require.NoError(t, c.SendWait(context.Background(), []byte(`{"id":2}`)))

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, first, err := client.ReadMessage()
	require.NoError(t, err)
	_, second, err := client.ReadMessage()
	require.NoError(t, err)

	assert.JSONEq(t, `{"id":1}`, string(first))
	assert.JSONEq(t, `{"id":2}`, string(second))
}

func TestConn_ReceiveInboundMessage(t *testing.T) {
	c, client := newPair(t, DefaultConfig())

	require.NoError(t, client.WriteMessage(websocket.TextMessage, []byte("ack 1")))

	msg, err := c.Receive()
	require.NoError(t, err)
	assert.Equal(t, "ack 1", string(msg))
}

func TestConn_PeerCloseIsReported(t *testing.T) {
	c, client := newPair(t, DefaultConfig())

	require.NoError(t, client.WriteMessage(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
	))

	_, err := c.Receive()
	assert.ErrorIs(t, err, hub.ErrPeerClosed)
}

func TestConn_SendAfterClose(t *testing.T) {
	c, client := newPair(t, DefaultConfig())

	require.NoError(t, c.Close())
	assert.NoError(t, c.Close())

	assert.ErrorIs(t, c.Send([]byte("late")), hub.ErrSessionClosed)
	assert.ErrorIs(t, c.SendWait(context.Background(), []byte("late")), hub.ErrSessionClosed)

	select {
	case <-c.Done():
	default:
		t.Fatal("done channel must be closed")
	}

	client.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, _, err := client.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure))
}

func TestConn_FullBufferFailsFast(t *testing.T) {
	c := &Conn{
		id:   "slow",
		send: make(chan []byte, 1),
		done: make(chan struct{}),
	}

	require.NoError(t, c.Send([]byte("1")))
	assert.ErrorIs(t, c.Send([]byte("2")), hub.ErrSendBufferFull)

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, c.SendWait(ctx, []byte("3")), context.DeadlineExceeded)
}
