package bridge

import (
	"context"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AdamManuel-dev/AutonomousTestingAgent-sub001/internal/capability"
)

func startBridge(t *testing.T) *Server {
	t.Helper()
	server := New(0)
	require.NoError(t, server.Start(context.Background()))
	t.Cleanup(server.Stop)
	return server
}

func dialBridge(t *testing.T, server *Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws://"+server.Addr()+"/events", nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) Event {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(5*time.Second)))
	var ev Event
	require.NoError(t, conn.ReadJSON(&ev))
	return ev
}

func TestBroadcast_ReachesEveryClient(t *testing.T) {
	server := startBridge(t)

	first := dialBridge(t, server)
	second := dialBridge(t, server)
	require.Eventually(t, func() bool { return server.ClientCount() == 2 },
		2*time.Second, 10*time.Millisecond)

	server.Broadcast(EventSuiteDecision, map[string]string{"rationale": "unit: pattern match"})

	for _, conn := range []*websocket.Conn{first, second} {
		ev := readEvent(t, conn)
		assert.Equal(t, EventSuiteDecision, ev.Type)
		assert.False(t, ev.SentAt.IsZero())

		payload, ok := ev.Payload.(map[string]interface{})
		require.True(t, ok)
		assert.Equal(t, "unit: pattern match", payload["rationale"])
	}
}

func TestBroadcast_OrderPreservedPerClient(t *testing.T) {
	server := startBridge(t)
	conn := dialBridge(t, server)
	require.Eventually(t, func() bool { return server.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	server.Broadcast(EventFileChanges, nil)
	server.Broadcast(EventSuiteDecision, nil)
	server.Broadcast(EventSuiteResults, nil)

	assert.Equal(t, EventFileChanges, readEvent(t, conn).Type)
	assert.Equal(t, EventSuiteDecision, readEvent(t, conn).Type)
	assert.Equal(t, EventSuiteResults, readEvent(t, conn).Type)
}

func TestBroadcast_BeforeStartIsDropped(t *testing.T) {
	server := New(0)
	server.Broadcast(EventFileChanges, nil)
	assert.Error(t, server.Ping(context.Background()))
}

func TestClientDisconnect_Unregisters(t *testing.T) {
	server := startBridge(t)
	conn := dialBridge(t, server)
	require.Eventually(t, func() bool { return server.ClientCount() == 1 },
		2*time.Second, 10*time.Millisecond)

	conn.Close()
	require.Eventually(t, func() bool { return server.ClientCount() == 0 },
		2*time.Second, 10*time.Millisecond)
}

func TestStop_DisconnectsClientsAndIsFinal(t *testing.T) {
	server := New(0)
	require.NoError(t, server.Start(context.Background()))
	conn := dialBridge(t, server)

	server.Stop()
	server.Stop()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.Error(t, err)

	assert.Error(t, server.Start(context.Background()))
	assert.Error(t, server.Ping(context.Background()))
}

func TestServer_Capability(t *testing.T) {
	server := startBridge(t)
	assert.Equal(t, "bridge", server.Name())
	assert.Equal(t, capability.KindBridge, server.Kind())
	assert.NoError(t, server.Ping(context.Background()))
}

func TestDoubleStartRejected(t *testing.T) {
	server := startBridge(t)
	assert.Error(t, server.Start(context.Background()))
}
