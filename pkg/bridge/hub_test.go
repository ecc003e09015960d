package bridge

import (
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/plantguard/pkg/guard"
	"github.com/itohio/plantguard/pkg/telemetry"
)

type wireMessage struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Position string `json:"position"`
	Source   string `json:"source"`
	Error    string `json:"error"`
	Percent  int    `json:"percent"`
	Band     string `json:"band"`
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readMessage(t *testing.T, conn *websocket.Conn) wireMessage {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var msg wireMessage
	require.NoError(t, conn.ReadJSON(&msg))
	return msg
}

func startServer(t *testing.T, dev Commander) (*Server, *httptest.Server) {
	t.Helper()
	s := New(Config{Device: dev})
	srv := httptest.NewServer(s.Handler())
	t.Cleanup(func() {
		s.Hub().CloseAll()
		srv.Close()
	})
	return s, srv
}

func TestHub_Hello(t *testing.T) {
	s, srv := startServer(t, &fakeDevice{})
	conn := dial(t, srv)

	hello := readMessage(t, conn)
	assert.Equal(t, TypeHello, hello.Type)
	assert.Len(t, hello.ID, 36)

	assert.Eventually(t, func() bool { return s.Hub().Count() == 1 }, 5*time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return s.Hub().Count() == 0 }, 5*time.Second, 10*time.Millisecond)
}

func TestHub_CommandBroadcast(t *testing.T) {
	dev := &fakeDevice{}
	s, srv := startServer(t, dev)

	sender := dial(t, srv)
	hello := readMessage(t, sender)
	watcher := dial(t, srv)
	readMessage(t, watcher)

	require.NoError(t, sender.WriteJSON(InboundMessage{Type: TypeCommand, Action: "A"}))

	for _, conn := range []*websocket.Conn{sender, watcher} {
		msg := readMessage(t, conn)
		assert.Equal(t, TypeShade, msg.Type)
		assert.Equal(t, "open", msg.Position)
		assert.Equal(t, "ws:"+hello.ID, msg.Source)
	}
	assert.Equal(t, []guard.Command{guard.CommandOpen}, dev.Sent())
	assert.Equal(t, guard.Open, s.Position())
}

func TestHub_Errors(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		contain string
	}{
		{name: "bad json", payload: `{`, contain: "invalid message"},
		{name: "bad action", payload: `{"type":"command","action":"Z"}`, contain: "unrecognized command"},
		{name: "unknown type", payload: `{"type":"reboot"}`, contain: "unknown message type"},
	}

	_, srv := startServer(t, &fakeDevice{})
	conn := dial(t, srv)
	readMessage(t, conn)

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(tt.payload)))
			msg := readMessage(t, conn)
			assert.Equal(t, TypeError, msg.Type)
			assert.Contains(t, msg.Error, tt.contain)
		})
	}
}

func TestHub_NoDevice(t *testing.T) {
	_, srv := startServer(t, nil)
	conn := dial(t, srv)
	readMessage(t, conn)

	require.NoError(t, conn.WriteJSON(InboundMessage{Type: TypeCommand, Action: "F"}))
	msg := readMessage(t, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, ErrNoDevice.Error(), msg.Error)
}

func TestHub_PublishReading(t *testing.T) {
	s, srv := startServer(t, &fakeDevice{})
	conn := dial(t, srv)
	readMessage(t, conn)

	// Window messages produce no reply, so the next frame is the reading.
	require.NoError(t, conn.WriteJSON(InboundMessage{Type: TypeWindow, Status: "visible"}))
	require.Eventually(t, func() bool { return s.Hub().Count() == 1 }, 5*time.Second, 10*time.Millisecond)

	s.Publish(telemetry.Classify(time.Now(), 65))

	msg := readMessage(t, conn)
	assert.Equal(t, TypeReading, msg.Type)
	assert.Equal(t, 65, msg.Percent)
	assert.Equal(t, "ideal", msg.Band)
}
