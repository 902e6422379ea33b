package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kashishh18/bachelor-league/internal/config"
	"github.com/kashishh18/bachelor-league/internal/realtime"
	"github.com/kashishh18/bachelor-league/internal/scheduler"
)

// fakeTransport stands in for a WebSocket connection in dispatch tests.
type fakeTransport struct {
	mu   sync.Mutex
	sent [][]byte
}

func (f *fakeTransport) Send(data []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent = append(f.sent, append([]byte(nil), data...))
	return nil
}

func (f *fakeTransport) Receive() ([]byte, error) { return nil, io.EOF }
func (f *fakeTransport) Close() error             { return nil }

// fakeSessions resolves tokens from a fixed table.
type fakeSessions struct {
	tokens map[string]string
	err    error
}

func (f *fakeSessions) Get(ctx context.Context, token string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.tokens[token], nil
}

func (f *fakeTransport) lastMessage(t *testing.T) realtime.Message {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.sent)

	var msg realtime.Message
	require.NoError(t, json.Unmarshal(f.sent[len(f.sent)-1], &msg))
	return msg
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	clock := clockwork.NewFakeClock()
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
	return NewServer(cfg, clock, registry, broadcaster, runner, &fakeSessions{}, nil, nil)
}

func doRequest(srv *Server, method, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, nil)
	rec := httptest.NewRecorder()
	srv.echo.ServeHTTP(rec, req)
	return rec
}

func TestTasksAPI(t *testing.T) {
	srv := newTestServer(t)

	slow := make(chan struct{})
	job := func(ctx context.Context) (any, error) {
		select {
		case <-slow:
		case <-ctx.Done():
		}
		return nil, nil
	}
	require.NoError(t, srv.runner.RegisterTask("demo", "Demo Task", job, scheduler.Every(time.Hour), scheduler.PriorityNormal, 3))

	rec := doRequest(srv, http.MethodGet, "/api/tasks")
	require.Equal(t, http.StatusOK, rec.Code)
	var listing struct {
		Tasks []scheduler.TaskStatus `json:"tasks"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listing))
	require.Len(t, listing.Tasks, 1)
	assert.Equal(t, "demo", listing.Tasks[0].ID)

	// Trigger, then a second trigger while running conflicts.
	rec = doRequest(srv, http.MethodPost, "/api/tasks/demo/run")
	assert.Equal(t, http.StatusAccepted, rec.Code)
	rec = doRequest(srv, http.MethodPost, "/api/tasks/demo/run")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Contains(t, rec.Body.String(), `"conflict"`)
	close(slow)

	rec = doRequest(srv, http.MethodPost, "/api/tasks/missing/run")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Contains(t, rec.Body.String(), `"not_found"`)

	rec = doRequest(srv, http.MethodPost, "/api/tasks/demo/disable")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv, http.MethodPost, "/api/tasks/demo/enable")
	assert.Equal(t, http.StatusOK, rec.Code)
	rec = doRequest(srv, http.MethodPost, "/api/tasks/missing/enable")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = doRequest(srv, http.MethodGet, "/api/tasks/results?limit=abc")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), `"validation"`)
	rec = doRequest(srv, http.MethodGet, "/api/tasks/results?limit=10")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRealtimeStatus(t *testing.T) {
	srv := newTestServer(t)

	conn := srv.registry.Register(&fakeTransport{})
	_, err := srv.registry.Subscribe(conn.ID(), "show-1")
	require.NoError(t, err)

	rec := doRequest(srv, http.MethodGet, "/api/realtime/status")
	require.Equal(t, http.StatusOK, rec.Code)

	var status map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &status))
	assert.EqualValues(t, 1, status["total_connections"])
	assert.EqualValues(t, 0, status["authenticated_connections"])
}

func TestLiveness(t *testing.T) {
	srv := newTestServer(t)

	rec := doRequest(srv, http.MethodGet, "/health/live")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"status":"ok"`)
}

func TestDispatch_Authenticate(t *testing.T) {
	srv := newTestServer(t)

	transport := &fakeTransport{}
	conn := srv.registry.Register(transport)

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"authenticate","user_id":"user-1","username":"alice"}`))
	got := transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeAuthenticationSuccess), got["type"])
	assert.Equal(t, "user-1", got["user_id"])
	assert.Equal(t, 1, srv.registry.AuthenticatedCount())

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"authenticate"}`))
	got = transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeError), got["type"])
}

func TestDispatch_AuthenticateWithSessionToken(t *testing.T) {
	srv := newTestServer(t)
	srv.sessions = &fakeSessions{tokens: map[string]string{"tok-1": "user-9"}}

	transport := &fakeTransport{}
	conn := srv.registry.Register(transport)

	// The user the token resolves to wins over whatever the client claims.
	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"authenticate","token":"tok-1","user_id":"imposter","username":"carol"}`))
	got := transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeAuthenticationSuccess), got["type"])
	assert.Equal(t, "user-9", got["user_id"])
	assert.Equal(t, 1, srv.registry.AuthenticatedCount())

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"authenticate","token":"expired"}`))
	got = transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeError), got["type"])
	assert.Equal(t, "invalid or expired session", got["message"])

	srv.sessions = &fakeSessions{err: errors.New("redis down")}
	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"authenticate","token":"tok-1"}`))
	got = transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeError), got["type"])
	assert.Equal(t, "authentication failed", got["message"])
}

func TestDispatch_SubscribeAndUnsubscribe(t *testing.T) {
	srv := newTestServer(t)

	transport := &fakeTransport{}
	conn := srv.registry.Register(transport)

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"subscribe_show","show_id":"show-1"}`))
	got := transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeLiveStats), got["type"])
	assert.Equal(t, map[string]int{"show-1": 1}, srv.registry.ViewerCounts())

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"unsubscribe_show","show_id":"show-1"}`))
	assert.Equal(t, map[string]int{"show-1": 0}, srv.registry.ViewerCounts())

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"subscribe_show"}`))
	got = transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeError), got["type"])
}

func TestDispatch_PingAndUnknown(t *testing.T) {
	srv := newTestServer(t)

	transport := &fakeTransport{}
	conn := srv.registry.Register(transport)

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"ping"}`))
	assert.Equal(t, string(realtime.TypePong), transport.lastMessage(t)["type"])

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"mystery"}`))
	assert.Equal(t, string(realtime.TypeError), transport.lastMessage(t)["type"])

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`not json`))
	assert.Equal(t, string(realtime.TypeError), transport.lastMessage(t)["type"])
}

func TestDispatch_UserPredictionEchoesToTopic(t *testing.T) {
	srv := newTestServer(t)

	transport := &fakeTransport{}
	conn := srv.registry.Register(transport)
	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"subscribe_show","show_id":"show-1"}`))

	srv.dispatchClientMessage(context.Background(), conn.ID(), []byte(`{"type":"user_prediction","show_id":"show-1","user_id":"user-1","username":"alice"}`))
	got := transport.lastMessage(t)
	assert.Equal(t, string(realtime.TypeUserPrediction), got["type"])
	assert.Equal(t, "show-1", got["show_id"])

	stats, ok := srv.registry.Stats("show-1")
	require.True(t, ok)
	assert.Equal(t, 1, stats.ActivePredictions)
}
