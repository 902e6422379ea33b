package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	ws "github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashishh18/bachelor-league/internal/config"
	"github.com/kashishh18/bachelor-league/internal/realtime"
	"github.com/kashishh18/bachelor-league/internal/scheduler"
)

// wsTestServer runs the full HTTP stack with a real clock so transport
// deadlines behave.
func wsTestServer(t *testing.T) (*Server, func(showID string) *ws.Conn) {
	t.Helper()

	clock := clockwork.NewRealClock()
	registry := realtime.NewRegistry(clock)
	broadcaster := realtime.NewBroadcaster(registry, clock)
	runner := scheduler.NewRunner(clock)
	t.Cleanup(runner.Shutdown)

	cfg := &config.Config{
		AppEnv:              "test",
		Port:                "0",
		MaxConnections:      100,
		MaxConnectionsPerIP: 5,
	}
	srv := NewServer(cfg, clock, registry, broadcaster, runner, &fakeSessions{}, nil, nil)

	httpSrv := httptest.NewServer(srv.echo)
	t.Cleanup(httpSrv.Close)
	t.Cleanup(registry.Close)

	dial := func(showID string) *ws.Conn {
		t.Helper()
		url := "ws" + strings.TrimPrefix(httpSrv.URL, "http") + "/ws/" + showID
		conn, _, err := ws.DefaultDialer.Dial(url, nil)
		require.NoError(t, err)
		t.Cleanup(func() { conn.Close() })
		return conn
	}

	return srv, dial
}

func readMessage(t *testing.T, conn *ws.Conn) realtime.Message {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg realtime.Message
	require.NoError(t, json.Unmarshal(data, &msg))
	return msg
}

func TestWebSocket_ConnectSubscribesToPathShow(t *testing.T) {
	srv, dial := wsTestServer(t)

	conn := dial("show-1")

	// Welcome message first, then the initial stats for the path show.
	welcome := readMessage(t, conn)
	assert.Equal(t, string(realtime.TypeConnected), welcome["type"])
	assert.NotEmpty(t, welcome["connection_id"])

	stats := readMessage(t, conn)
	assert.Equal(t, string(realtime.TypeLiveStats), stats["type"])
	assert.Equal(t, "show-1", stats["show_id"])

	require.Eventually(t, func() bool {
		return srv.registry.ViewerCounts()["show-1"] == 1
	}, time.Second, 5*time.Millisecond)
}

func TestWebSocket_PingPongAndDisconnect(t *testing.T) {
	srv, dial := wsTestServer(t)

	conn := dial("show-1")
	readMessage(t, conn) // connected
	readMessage(t, conn) // live_stats

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "ping"}))
	pong := readMessage(t, conn)
	assert.Equal(t, string(realtime.TypePong), pong["type"])

	require.NoError(t, conn.Close())
	require.Eventually(t, func() bool {
		return srv.registry.ConnectionCount() == 0
	}, time.Second, 5*time.Millisecond)

	// The connection's limiter slot was returned.
	require.Eventually(t, func() bool {
		return srv.limits.Global().Current() == 0
	}, time.Second, 5*time.Millisecond)
}

func TestWebSocket_BroadcastReachesClient(t *testing.T) {
	srv, dial := wsTestServer(t)

	conn := dial("show-1")
	readMessage(t, conn) // connected
	readMessage(t, conn) // live_stats

	srv.broadcaster.BroadcastToTopic("show-1", realtime.NewEpisodeEvent("rose_ceremony", "final rose", nil, 5, 10))

	got := readMessage(t, conn)
	assert.Equal(t, string(realtime.TypeEpisodeEvent), got["type"])
	assert.Equal(t, "show-1", got["show_id"])
}
