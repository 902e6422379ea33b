package realtime

import (
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kashishh18/bachelor-league/internal/domain"
	"github.com/kashishh18/bachelor-league/internal/metrics"
)

// Broadcaster fans structured messages out to topic subscribers. Delivery
// failures evict the affected connection without aborting the pass for the
// remaining subscribers; rate-limited messages are dropped silently.
type Broadcaster struct {
	registry *Registry
	clock    clockwork.Clock
}

func NewBroadcaster(registry *Registry, clock clockwork.Clock) *Broadcaster {
	return &Broadcaster{registry: registry, clock: clock}
}

// BroadcastToTopic delivers the message to every current subscriber of the
// show. The message is stamped with the show ID and a send timestamp before
// transmission. Fan-out order across subscribers is unspecified; successive
// broadcasts to the same topic are not reordered relative to each other.
func (b *Broadcaster) BroadcastToTopic(showID string, msg Message) {
	start := b.clock.Now()

	stamped := b.stamp(msg)
	stamped["show_id"] = showID

	data, err := json.Marshal(stamped)
	if err != nil {
		slog.Error("Failed to marshal broadcast message", "show_id", showID, "error", err)
		return
	}

	subscribers := b.registry.subscribersSnapshot(showID)

	var failed []uuid.UUID
	sent := 0
	for _, conn := range subscribers {
		switch err := conn.deliver(data); {
		case err == nil:
			sent++
			metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
		case errors.Is(err, domain.ErrRateLimited):
			// Deliberate lossy policy: stats are idempotently re-sent
			// on the next heartbeat tick.
			metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
		default:
			metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
			failed = append(failed, conn.ID())
		}
	}

	for _, id := range failed {
		slog.Warn("Evicting connection after delivery failure", "connection_id", id.String(), "show_id", showID)
		b.registry.Deregister(id)
	}

	b.registry.applyToStats(showID, stamped)

	metrics.BroadcastsTotal.WithLabelValues(string(stamped.Type())).Inc()
	metrics.BroadcastDuration.Observe(b.clock.Since(start).Seconds())
	slog.Debug("Broadcast complete", "show_id", showID, "type", string(stamped.Type()), "subscribers", len(subscribers), "sent", sent, "evicted", len(failed))
}

// SendToUser delivers a message to the user's most recent connection.
// A user with no live connection is logged and skipped, not an error: the
// information is often stale by design.
func (b *Broadcaster) SendToUser(userID string, msg Message) {
	conn, ok := b.registry.userConnection(userID)
	if !ok {
		slog.Debug("User not connected, dropping message", "user_id", userID, "type", string(msg.Type()))
		return
	}
	b.send(conn, msg)
}

// SendToConnection delivers a message to one specific connection. Unknown
// connection IDs are a logged no-op.
func (b *Broadcaster) SendToConnection(connectionID uuid.UUID, msg Message) {
	conn, ok := b.registry.connection(connectionID)
	if !ok {
		slog.Debug("Connection gone, dropping message", "connection_id", connectionID.String(), "type", string(msg.Type()))
		return
	}
	b.send(conn, msg)
}

func (b *Broadcaster) send(conn *Connection, msg Message) {
	data, err := json.Marshal(b.stamp(msg))
	if err != nil {
		slog.Error("Failed to marshal message", "error", err)
		return
	}

	switch err := conn.deliver(data); {
	case err == nil:
		metrics.DeliveriesTotal.WithLabelValues("sent").Inc()
	case errors.Is(err, domain.ErrRateLimited):
		metrics.DeliveriesTotal.WithLabelValues("dropped").Inc()
	default:
		metrics.DeliveriesTotal.WithLabelValues("failed").Inc()
		slog.Warn("Evicting connection after delivery failure", "connection_id", conn.ID().String())
		b.registry.Deregister(conn.ID())
	}
}

func (b *Broadcaster) stamp(msg Message) Message {
	stamped := msg.clone()
	stamped["timestamp"] = b.clock.Now().UTC().Format(time.RFC3339Nano)
	return stamped
}
