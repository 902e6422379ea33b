package realtime

import (
	"time"

	"github.com/google/uuid"
)

// MessageType discriminates the transport-level message envelope.
type MessageType string

const (
	// Inbound from clients
	TypeAuthenticate    MessageType = "authenticate"
	TypeSubscribeShow   MessageType = "subscribe_show"
	TypeUnsubscribeShow MessageType = "unsubscribe_show"
	TypeUserPrediction  MessageType = "user_prediction"
	TypePing            MessageType = "ping"

	// Outbound to clients
	TypeConnected             MessageType = "connected"
	TypeAuthenticationSuccess MessageType = "authentication_success"
	TypeScoreUpdate           MessageType = "score_update"
	TypeEpisodeEvent          MessageType = "episode_event"
	TypePredictionUpdate      MessageType = "prediction_update"
	TypeLeaderboardUpdate     MessageType = "leaderboard_update"
	TypeLiveStats             MessageType = "live_stats"
	TypePong                  MessageType = "pong"
	TypeError                 MessageType = "error"
)

// Message is the transport-level envelope. Every message carries a "type"
// discriminator; the broadcaster stamps "timestamp" (and "show_id" for topic
// broadcasts) immediately before transmission.
type Message map[string]any

// Type returns the message's type discriminator, or "" if absent.
func (m Message) Type() MessageType {
	t, _ := m["type"].(MessageType)
	if t != "" {
		return t
	}
	s, _ := m["type"].(string)
	return MessageType(s)
}

// clone returns a shallow copy so stamping never mutates the caller's message.
func (m Message) clone() Message {
	out := make(Message, len(m)+2)
	for k, v := range m {
		out[k] = v
	}
	return out
}

// --- Message constructors ---

func NewConnected(connectionID uuid.UUID) Message {
	return Message{
		"type":          TypeConnected,
		"connection_id": connectionID.String(),
		"message":       "Connected to Bachelor Fantasy League real-time updates",
	}
}

func NewAuthenticationSuccess(userID, username string) Message {
	return Message{
		"type":     TypeAuthenticationSuccess,
		"user_id":  userID,
		"username": username,
	}
}

// NewScoreUpdate describes points landing on a contestant. The leading
// credited team rides along so the live-stats fold can move the show's top
// performer.
func NewScoreUpdate(contestantID, contestantName string, points int, reason string, episode int, leader TopPerformer) Message {
	m := Message{
		"type":            TypeScoreUpdate,
		"contestant_id":   contestantID,
		"contestant_name": contestantName,
		"points":          points,
		"reason":          reason,
		"episode":         episode,
	}
	if leader.Username != "" {
		m["username"] = leader.Username
		m["user_total_points"] = leader.Points
	}
	return m
}

func NewEpisodeEvent(eventType, description string, contestants []string, episode, points int) Message {
	return Message{
		"type":        TypeEpisodeEvent,
		"event_type":  eventType,
		"description": description,
		"contestants": contestants,
		"episode":     episode,
		"points":      points,
	}
}

func NewPredictionUpdate(contestantID, contestantName string, oldPrediction, newPrediction, confidence float64, factors []string) Message {
	return Message{
		"type":            TypePredictionUpdate,
		"contestant_id":   contestantID,
		"contestant_name": contestantName,
		"old_prediction":  oldPrediction,
		"new_prediction":  newPrediction,
		"confidence":      confidence,
		"factors":         factors,
	}
}

func NewLeaderboardUpdate(userID, showID string, oldRank, newRank, totalPoints int) Message {
	return Message{
		"type":         TypeLeaderboardUpdate,
		"user_id":      userID,
		"show_id":      showID,
		"old_rank":     oldRank,
		"new_rank":     newRank,
		"total_points": totalPoints,
	}
}

func NewLiveStats(stats LiveStats) Message {
	return Message{
		"type":    TypeLiveStats,
		"show_id": stats.ShowID,
		"stats":   stats,
	}
}

func NewPong(now time.Time) Message {
	return Message{
		"type":      TypePong,
		"timestamp": now.UTC().Format(time.RFC3339Nano),
	}
}

func NewErrorMessage(message string) Message {
	return Message{
		"type":    TypeError,
		"message": message,
	}
}

// asInt coerces a numeric message field. JSON round-trips produce float64;
// locally constructed messages carry int.
func asInt(v any) int {
	switch n := v.(type) {
	case int:
		return n
	case int64:
		return int(n)
	case float64:
		return int(n)
	default:
		return 0
	}
}
