package realtime

import "time"

// TopPerformer is the current leader of a show's live scoring.
// Replace-on-improve: only a strictly higher score displaces it.
type TopPerformer struct {
	Username string `json:"username"`
	Points   int    `json:"points"`
}

// LiveStats is the per-topic aggregate record. Created lazily on first
// subscription, never destroyed. Counters are monotonic for the process
// lifetime except TopPerformer.
type LiveStats struct {
	ShowID             string       `json:"show_id"`
	ViewerCount        int          `json:"viewers_count"`
	ActivePredictions  int          `json:"active_predictions"`
	TotalPointsAwarded int          `json:"total_points_awarded"`
	RecentEvents       int          `json:"recent_events"`
	TopPerformer       TopPerformer `json:"top_performer"`
	UpdatedAt          time.Time    `json:"updated_at"`
}

func newLiveStats(showID string, now time.Time) *LiveStats {
	return &LiveStats{
		ShowID:       showID,
		TopPerformer: TopPerformer{Username: "TBD", Points: 0},
		UpdatedAt:    now,
	}
}

// applyMessage folds one broadcast message into the stats record.
func (s *LiveStats) applyMessage(msg Message, now time.Time) {
	switch msg.Type() {
	case TypeScoreUpdate:
		s.TotalPointsAwarded += asInt(msg["points"])
		s.RecentEvents++
		if total := asInt(msg["user_total_points"]); total > s.TopPerformer.Points {
			username, _ := msg["username"].(string)
			if username == "" {
				username = "Unknown"
			}
			s.TopPerformer = TopPerformer{Username: username, Points: total}
		}
	case TypeEpisodeEvent:
		s.RecentEvents++
	case TypeUserPrediction, TypePredictionUpdate:
		s.ActivePredictions++
	}
	s.UpdatedAt = now
}
