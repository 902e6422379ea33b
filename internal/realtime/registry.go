package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"

	"github.com/kashishh18/bachelor-league/internal/domain"
	"github.com/kashishh18/bachelor-league/internal/metrics"
)

type topic struct {
	subscribers map[uuid.UUID]*Connection
	stats       *LiveStats
}

// Registry owns the set of live connections and the per-topic subscriber
// sets and statistics. A single mutex guards both sides so the
// subscription/subscriber bidirectional invariant is never observed broken.
type Registry struct {
	clock clockwork.Clock

	mu              sync.Mutex
	connections     map[uuid.UUID]*Connection
	topics          map[string]*topic
	userConnections map[string]uuid.UUID
}

func NewRegistry(clock clockwork.Clock) *Registry {
	return &Registry{
		clock:           clock,
		connections:     make(map[uuid.UUID]*Connection),
		topics:          make(map[string]*topic),
		userConnections: make(map[string]uuid.UUID),
	}
}

// Register allocates a connection record for an accepted transport and
// returns it. The transport handshake has already happened; this never
// fails under normal operation.
func (r *Registry) Register(transport domain.Transport) *Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := uuid.New()
	for _, taken := r.connections[id]; taken; _, taken = r.connections[id] {
		id = uuid.New()
	}

	conn := newConnection(id, transport, r.clock)
	r.connections[id] = conn

	metrics.ActiveConnections.Set(float64(len(r.connections)))
	slog.Info("Connection registered", "connection_id", id.String(), "total_connections", len(r.connections))
	return conn
}

// Authenticate attaches an identity to a connection. Idempotent: a repeat
// call overwrites the prior identity. The reverse user mapping is
// last-writer-wins when a user opens multiple connections.
func (r *Registry) Authenticate(connectionID uuid.UUID, userID, username string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrConnectionNotFound
	}

	if conn.userID != "" && conn.userID != userID {
		if mapped, ok := r.userConnections[conn.userID]; ok && mapped == connectionID {
			delete(r.userConnections, conn.userID)
		}
	}

	conn.userID = userID
	conn.username = username
	conn.authenticated = true
	r.userConnections[userID] = connectionID

	slog.Info("Connection authenticated", "connection_id", connectionID.String(), "user_id", userID, "username", username)
	return nil
}

// Subscribe adds the connection to the topic's subscriber set and the topic
// to the connection's subscription set atomically. Subscribing to an unseen
// topic creates its statistics record with zero counters. Returns a copy of
// the topic's current stats.
func (r *Registry) Subscribe(connectionID uuid.UUID, showID string) (LiveStats, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok {
		return LiveStats{}, domain.ErrConnectionNotFound
	}

	t, ok := r.topics[showID]
	if !ok {
		t = &topic{
			subscribers: make(map[uuid.UUID]*Connection),
			stats:       newLiveStats(showID, r.clock.Now()),
		}
		r.topics[showID] = t
	}

	conn.subscriptions[showID] = struct{}{}
	t.subscribers[connectionID] = conn
	t.stats.ViewerCount = len(t.subscribers)

	metrics.TopicSubscribers.WithLabelValues(showID).Set(float64(len(t.subscribers)))
	slog.Info("Subscribed to show", "connection_id", connectionID.String(), "show_id", showID, "viewers", len(t.subscribers))
	return *t.stats, nil
}

// Unsubscribe removes the topic/connection association from both sides.
func (r *Registry) Unsubscribe(connectionID uuid.UUID, showID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	conn, ok := r.connections[connectionID]
	if !ok {
		return domain.ErrConnectionNotFound
	}

	delete(conn.subscriptions, showID)

	t, ok := r.topics[showID]
	if !ok {
		return nil
	}
	delete(t.subscribers, connectionID)
	t.stats.ViewerCount = len(t.subscribers)

	metrics.TopicSubscribers.WithLabelValues(showID).Set(float64(len(t.subscribers)))
	slog.Info("Unsubscribed from show", "connection_id", connectionID.String(), "show_id", showID, "viewers", len(t.subscribers))
	return nil
}

// Deregister removes the connection from every topic it was subscribed to,
// drops its reverse user mapping, deletes the record, and closes the
// transport. Safe to call more than once: the second call is a no-op.
func (r *Registry) Deregister(connectionID uuid.UUID) {
	r.mu.Lock()

	conn, ok := r.connections[connectionID]
	if !ok {
		r.mu.Unlock()
		return
	}

	for showID := range conn.subscriptions {
		if t, ok := r.topics[showID]; ok {
			delete(t.subscribers, connectionID)
			t.stats.ViewerCount = len(t.subscribers)
			metrics.TopicSubscribers.WithLabelValues(showID).Set(float64(len(t.subscribers)))
		}
	}

	if conn.userID != "" {
		if mapped, ok := r.userConnections[conn.userID]; ok && mapped == connectionID {
			delete(r.userConnections, conn.userID)
		}
	}

	delete(r.connections, connectionID)
	metrics.ActiveConnections.Set(float64(len(r.connections)))
	remaining := len(r.connections)
	r.mu.Unlock()

	// Close outside the lock: transport teardown can block.
	conn.close()
	slog.Info("Connection deregistered", "connection_id", connectionID.String(), "total_connections", remaining)
}

// Touch updates the connection's last-activity timestamp (keep-alive).
func (r *Registry) Touch(connectionID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if conn, ok := r.connections[connectionID]; ok {
		conn.lastActive = r.clock.Now()
	}
}

// connection looks up a live connection record.
func (r *Registry) connection(connectionID uuid.UUID) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	conn, ok := r.connections[connectionID]
	return conn, ok
}

// userConnection resolves the most recent connection for a user.
func (r *Registry) userConnection(userID string) (*Connection, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	id, ok := r.userConnections[userID]
	if !ok {
		return nil, false
	}
	conn, ok := r.connections[id]
	return conn, ok
}

// subscribersSnapshot returns the topic's current subscribers. The slice is
// a snapshot: concurrent subscribe/unsubscribe during a fan-out never
// corrupts iteration, and mid-broadcast joiners may or may not receive the
// message in flight.
func (r *Registry) subscribersSnapshot(showID string) []*Connection {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[showID]
	if !ok {
		return nil
	}
	subs := make([]*Connection, 0, len(t.subscribers))
	for _, conn := range t.subscribers {
		subs = append(subs, conn)
	}
	return subs
}

// Stats returns a copy of the topic's live statistics record.
func (r *Registry) Stats(showID string) (LiveStats, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	t, ok := r.topics[showID]
	if !ok {
		return LiveStats{}, false
	}
	return *t.stats, true
}

// applyToStats folds a broadcast message into an existing topic's stats.
// Unknown topics are left untouched: stats records are created by
// subscription, not by broadcast.
func (r *Registry) applyToStats(showID string, msg Message) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if t, ok := r.topics[showID]; ok {
		t.stats.applyMessage(msg, r.clock.Now())
	}
}

// ActiveTopics returns the topics that currently have at least one subscriber.
func (r *Registry) ActiveTopics() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	active := make([]string, 0, len(r.topics))
	for showID, t := range r.topics {
		if len(t.subscribers) > 0 {
			active = append(active, showID)
		}
	}
	return active
}

// StaleConnections returns the IDs of connections whose last activity is
// older than the threshold.
func (r *Registry) StaleConnections(olderThan time.Duration) []uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff := r.clock.Now().Add(-olderThan)
	var stale []uuid.UUID
	for id, conn := range r.connections {
		if conn.lastActive.Before(cutoff) {
			stale = append(stale, id)
		}
	}
	return stale
}

// ConnectionCount returns the number of live connections.
func (r *Registry) ConnectionCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.connections)
}

// AuthenticatedCount returns the number of authenticated connections.
func (r *Registry) AuthenticatedCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	n := 0
	for _, conn := range r.connections {
		if conn.authenticated {
			n++
		}
	}
	return n
}

// ViewerCounts returns subscriber counts per topic for the health endpoint.
func (r *Registry) ViewerCounts() map[string]int {
	r.mu.Lock()
	defer r.mu.Unlock()

	counts := make(map[string]int, len(r.topics))
	for showID, t := range r.topics {
		counts[showID] = len(t.subscribers)
	}
	return counts
}

// Close deregisters every connection. Used at process shutdown after the
// maintenance loops and broadcast callers have stopped.
func (r *Registry) Close() {
	r.mu.Lock()
	ids := make([]uuid.UUID, 0, len(r.connections))
	for id := range r.connections {
		ids = append(ids, id)
	}
	r.mu.Unlock()

	for _, id := range ids {
		r.Deregister(id)
	}
}
