package realtime

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLiveStats_ApplyScoreUpdate(t *testing.T) {
	now := time.Date(2026, 1, 12, 20, 0, 0, 0, time.UTC)
	stats := newLiveStats("show-1", now)

	msg := NewScoreUpdate("c-1", "Hannah", 25, "first impression rose", 1, TopPerformer{Username: "alice", Points: 25})
	stats.applyMessage(msg, now.Add(time.Minute))

	assert.Equal(t, 25, stats.TotalPointsAwarded)
	assert.Equal(t, 1, stats.RecentEvents)
	assert.Equal(t, TopPerformer{Username: "alice", Points: 25}, stats.TopPerformer)
	assert.Equal(t, now.Add(time.Minute), stats.UpdatedAt)
}

func TestLiveStats_TopPerformerUsernameFallback(t *testing.T) {
	stats := newLiveStats("show-1", time.Now())

	msg := NewScoreUpdate("c-1", "Hannah", 10, "date", 2, TopPerformer{})
	msg["user_total_points"] = 10
	stats.applyMessage(msg, time.Now())

	assert.Equal(t, "Unknown", stats.TopPerformer.Username)
}

func TestLiveStats_ApplyAfterJSONRoundTrip(t *testing.T) {
	// Broadcast folding happens on the stamped message; after a JSON round
	// trip numerics arrive as float64 and must still count.
	stats := newLiveStats("show-1", time.Now())

	data, err := json.Marshal(NewScoreUpdate("c-1", "Hannah", 15, "drama", 3, TopPerformer{}))
	require.NoError(t, err)
	var msg Message
	require.NoError(t, json.Unmarshal(data, &msg))

	stats.applyMessage(msg, time.Now())
	assert.Equal(t, 15, stats.TotalPointsAwarded)
}

func TestLiveStats_ApplyPredictionAndEvent(t *testing.T) {
	stats := newLiveStats("show-1", time.Now())

	stats.applyMessage(Message{"type": TypeUserPrediction}, time.Now())
	stats.applyMessage(NewPredictionUpdate("c-1", "Hannah", 0.2, 0.4, 0.1, nil), time.Now())
	stats.applyMessage(NewEpisodeEvent("rose_ceremony", "final rose", nil, 5, 20), time.Now())

	assert.Equal(t, 2, stats.ActivePredictions)
	assert.Equal(t, 1, stats.RecentEvents)
	assert.Zero(t, stats.TotalPointsAwarded)
}

func TestMessage_TypeAndClone(t *testing.T) {
	msg := NewPong(time.Now())
	assert.Equal(t, TypePong, msg.Type())

	var decoded Message
	data, err := json.Marshal(msg)
	require.NoError(t, err)
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, TypePong, decoded.Type())

	clone := msg.clone()
	clone["extra"] = "value"
	assert.NotContains(t, msg, "extra")

	assert.Equal(t, MessageType(""), Message{}.Type())
}
