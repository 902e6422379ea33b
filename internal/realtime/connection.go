package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"golang.org/x/time/rate"

	"github.com/kashishh18/bachelor-league/internal/domain"
)

const (
	// Outbound budget per connection. Messages over budget are dropped,
	// not queued: live stats are re-sent on the next heartbeat anyway.
	outboundMessagesPerSecond = 10
	outboundBurst             = 10
)

// Connection is one live transport session. The registry owns the record;
// identity and subscription state are guarded by the registry's mutex.
type Connection struct {
	id        uuid.UUID
	transport domain.Transport
	clock     clockwork.Clock

	// Serializes writes to the borrowed transport.
	sendMu  sync.Mutex
	limiter *rate.Limiter

	closeOnce sync.Once

	// Guarded by the registry mutex.
	userID        string
	username      string
	authenticated bool
	subscriptions map[string]struct{}
	connectedAt   time.Time
	lastActive    time.Time
}

func newConnection(id uuid.UUID, transport domain.Transport, clock clockwork.Clock) *Connection {
	now := clock.Now()
	return &Connection{
		id:            id,
		transport:     transport,
		clock:         clock,
		limiter:       rate.NewLimiter(rate.Limit(outboundMessagesPerSecond), outboundBurst),
		subscriptions: make(map[string]struct{}),
		connectedAt:   now,
		lastActive:    now,
	}
}

// ID returns the process-unique connection identifier.
func (c *Connection) ID() uuid.UUID {
	return c.id
}

// deliver writes one serialized message to the transport. Returns
// domain.ErrRateLimited when the send budget is exhausted (silent drop
// policy; the caller must not treat that as a transport failure). The
// limiter runs on the injected clock so the refill window is testable.
func (c *Connection) deliver(data []byte) error {
	if !c.limiter.AllowN(c.clock.Now(), 1) {
		return domain.ErrRateLimited
	}
	c.sendMu.Lock()
	defer c.sendMu.Unlock()
	return c.transport.Send(data)
}

// close tears down the transport. Idempotent.
func (c *Connection) close() {
	c.closeOnce.Do(func() {
		_ = c.transport.Close()
	})
}
