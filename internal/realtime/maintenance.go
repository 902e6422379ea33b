package realtime

import (
	"log/slog"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kashishh18/bachelor-league/internal/metrics"
)

const (
	defaultSweepInterval     = 30 * time.Second
	defaultStaleThreshold    = 5 * time.Minute
	defaultHeartbeatInterval = 10 * time.Second
)

// Maintainer runs the two periodic self-maintenance routines: the
// stale-connection sweep and the live-statistics heartbeat. Both run until
// Stop; Stop waits for any in-flight iteration to finish before returning.
type Maintainer struct {
	registry    *Registry
	broadcaster *Broadcaster
	clock       clockwork.Clock

	sweepInterval     time.Duration
	staleThreshold    time.Duration
	heartbeatInterval time.Duration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

func NewMaintainer(registry *Registry, broadcaster *Broadcaster, clock clockwork.Clock) *Maintainer {
	return &Maintainer{
		registry:          registry,
		broadcaster:       broadcaster,
		clock:             clock,
		sweepInterval:     defaultSweepInterval,
		staleThreshold:    defaultStaleThreshold,
		heartbeatInterval: defaultHeartbeatInterval,
		stopCh:            make(chan struct{}),
	}
}

// Start launches the sweep and heartbeat loops.
func (m *Maintainer) Start() {
	m.wg.Add(2)
	go m.runSweep()
	go m.runHeartbeat()
	slog.Info("Maintenance loops started",
		"sweep_interval", m.sweepInterval,
		"stale_threshold", m.staleThreshold,
		"heartbeat_interval", m.heartbeatInterval,
	)
}

// Stop halts both loops. An iteration already in flight completes first.
func (m *Maintainer) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
	m.wg.Wait()
	slog.Info("Maintenance loops stopped")
}

func (m *Maintainer) runSweep() {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.sweepOnce()
		case <-m.stopCh:
			return
		}
	}
}

// sweepOnce evicts connections inactive beyond the staleness threshold.
// This bounds memory growth from clients that vanish without a clean close.
func (m *Maintainer) sweepOnce() {
	stale := m.registry.StaleConnections(m.staleThreshold)
	for _, id := range stale {
		slog.Info("Evicting stale connection", "connection_id", id.String(), "threshold", m.staleThreshold)
		m.registry.Deregister(id)
		metrics.StaleEvictionsTotal.Inc()
	}
	if len(stale) > 0 {
		slog.Info("Stale sweep complete", "evicted", len(stale))
	}
}

func (m *Maintainer) runHeartbeat() {
	defer m.wg.Done()

	ticker := m.clock.NewTicker(m.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.Chan():
			m.heartbeatOnce()
		case <-m.stopCh:
			return
		}
	}
}

// heartbeatOnce re-broadcasts each subscribed topic's current statistics.
// Late joiners and stats-only consumers converge here instead of polling.
func (m *Maintainer) heartbeatOnce() {
	for _, showID := range m.registry.ActiveTopics() {
		stats, ok := m.registry.Stats(showID)
		if !ok {
			continue
		}
		m.broadcaster.BroadcastToTopic(showID, NewLiveStats(stats))
	}
}
