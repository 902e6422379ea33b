package server

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"

	apperrors "github.com/kashishh18/bachelor-league/internal/errors"
	"github.com/kashishh18/bachelor-league/internal/metrics"
	"github.com/kashishh18/bachelor-league/internal/realtime"
)

const writeTimeout = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // Browser clients connect from the app's own domains and dev hosts
	},
}

// wsTransport adapts a gorilla connection to the realtime transport
// contract. Write deadlines bound how long a slow client can hold a
// broadcast pass; a deadline miss surfaces as a delivery failure and the
// connection gets evicted.
type wsTransport struct {
	conn  *websocket.Conn
	clock clockwork.Clock
}

func (t *wsTransport) Send(data []byte) error {
	_ = t.conn.SetWriteDeadline(t.clock.Now().Add(writeTimeout))
	if err := t.conn.WriteMessage(websocket.TextMessage, data); err != nil {
		return apperrors.TransportError("websocket write failed", err)
	}
	return nil
}

func (t *wsTransport) Receive() ([]byte, error) {
	_, data, err := t.conn.ReadMessage()
	return data, err
}

func (t *wsTransport) Close() error {
	return t.conn.Close()
}

// inboundMessage is the client-to-server envelope. Fields beyond the ones a
// given type uses are ignored.
type inboundMessage struct {
	Type     string `json:"type"`
	Token    string `json:"token"`
	UserID   string `json:"user_id"`
	Username string `json:"username"`
	ShowID   string `json:"show_id"`
}

func (s *Server) handleWebSocket(c echo.Context) error {
	ip := c.RealIP()

	ok, reason := s.limits.Acquire(ip)
	if !ok {
		metrics.ConnectionsRejectedTotal.WithLabelValues(string(reason)).Inc()
		slog.Warn("WebSocket connection rejected", "ip", ip, "reason", string(reason))
		return c.JSON(http.StatusServiceUnavailable, map[string]string{"error": "connection limit reached"})
	}
	defer s.limits.Release(ip)

	wsConn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		metrics.WebSocketUpgradesTotal.WithLabelValues("failed").Inc()
		return apperrors.TransportError("failed to upgrade WebSocket", err)
	}
	metrics.WebSocketUpgradesTotal.WithLabelValues("success").Inc()

	transport := &wsTransport{conn: wsConn, clock: s.clock}
	conn := s.registry.Register(transport)
	defer s.registry.Deregister(conn.ID())

	s.broadcaster.SendToConnection(conn.ID(), realtime.NewConnected(conn.ID()))

	// The path parameter is the initial subscription; clients can follow
	// additional shows in-band.
	if showID := c.Param("show_id"); showID != "" {
		if stats, err := s.registry.Subscribe(conn.ID(), showID); err == nil {
			s.broadcaster.SendToConnection(conn.ID(), realtime.NewLiveStats(stats))
		}
	}

	// Read pump. Returns when the client closes or the transport errors.
	ctx := c.Request().Context()
	for {
		data, err := transport.Receive()
		if err != nil {
			break
		}
		s.registry.Touch(conn.ID())
		s.dispatchClientMessage(ctx, conn.ID(), data)
	}

	return nil
}

func (s *Server) dispatchClientMessage(ctx context.Context, connectionID uuid.UUID, data []byte) {
	var msg inboundMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("invalid message format"))
		return
	}

	switch realtime.MessageType(msg.Type) {
	case realtime.TypeAuthenticate:
		userID := msg.UserID
		if msg.Token != "" {
			resolved, err := s.sessions.Get(ctx, msg.Token)
			if err != nil {
				slog.Warn("Session lookup failed", "connection_id", connectionID.String(), "error", err)
				s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("authentication failed"))
				return
			}
			if resolved == "" {
				s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("invalid or expired session"))
				return
			}
			userID = resolved
		}
		if userID == "" {
			s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("user_id is required"))
			return
		}
		if err := s.registry.Authenticate(connectionID, userID, msg.Username); err != nil {
			slog.Warn("Authentication failed", "connection_id", connectionID.String(), "error", err)
			return
		}
		s.broadcaster.SendToConnection(connectionID, realtime.NewAuthenticationSuccess(userID, msg.Username))

	case realtime.TypeSubscribeShow:
		if msg.ShowID == "" {
			s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("show_id is required"))
			return
		}
		stats, err := s.registry.Subscribe(connectionID, msg.ShowID)
		if err != nil {
			return
		}
		s.broadcaster.SendToConnection(connectionID, realtime.NewLiveStats(stats))

	case realtime.TypeUnsubscribeShow:
		if msg.ShowID == "" {
			s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("show_id is required"))
			return
		}
		_ = s.registry.Unsubscribe(connectionID, msg.ShowID)

	case realtime.TypeUserPrediction:
		// Prediction activity is echoed to the room so viewer counts of
		// active predictions stay live.
		if msg.ShowID == "" {
			s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage("show_id is required"))
			return
		}
		s.broadcaster.BroadcastToTopic(msg.ShowID, realtime.Message{
			"type":     realtime.TypeUserPrediction,
			"user_id":  msg.UserID,
			"username": msg.Username,
		})

	case realtime.TypePing:
		s.broadcaster.SendToConnection(connectionID, realtime.NewPong(s.clock.Now()))

	default:
		s.broadcaster.SendToConnection(connectionID, realtime.NewErrorMessage(fmt.Sprintf("unknown message type: %s", msg.Type)))
	}
}
