// Package jobs implements the scheduled application jobs: prediction and
// sentiment refresh, leaderboard rebuild, episode event scanning, and the
// cleanup routines. Jobs publish their own topic-scoped messages; the task
// runner stays domain-agnostic.
package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"

	"github.com/kashishh18/bachelor-league/internal/domain"
	"github.com/kashishh18/bachelor-league/internal/realtime"
	"github.com/kashishh18/bachelor-league/internal/scheduler"
)

const (
	// A winner-probability shift above this is broadcast to subscribers.
	significantPredictionShift = 0.05
	// A sentiment shift above this counts as significant in the summary.
	significantSentimentShift = 0.2
	// A rank move of at least this many places is broadcast.
	significantRankMove = 5
	// Events and unresolved predictions older than this are pruned.
	staleDataAge = 30 * 24 * time.Hour
)

// Publisher is the slice of the broadcast engine the jobs need.
type Publisher interface {
	BroadcastToTopic(showID string, msg realtime.Message)
	SendToUser(userID string, msg realtime.Message)
}

// SessionPruner removes expired auth sessions.
type SessionPruner interface {
	DeleteExpired(ctx context.Context) (int64, error)
}

// Jobs bundles the collaborators the scheduled jobs run against.
type Jobs struct {
	store     domain.DataStore
	predictor domain.PredictionEngine
	publisher Publisher
	sessions  SessionPruner
	clock     clockwork.Clock
}

func New(store domain.DataStore, predictor domain.PredictionEngine, publisher Publisher, sessions SessionPruner, clock clockwork.Clock) *Jobs {
	return &Jobs{
		store:     store,
		predictor: predictor,
		publisher: publisher,
		sessions:  sessions,
		clock:     clock,
	}
}

// RegisterAll adds the default task table to the runner.
func (j *Jobs) RegisterAll(r *scheduler.Runner) error {
	type entry struct {
		id       string
		name     string
		job      scheduler.Job
		trigger  scheduler.Trigger
		priority scheduler.Priority
	}
	entries := []entry{
		{"ml_predictions_update", "Update ML Predictions", j.RefreshPredictions, scheduler.Every(30 * time.Minute), scheduler.PriorityHigh},
		{"sentiment_analysis", "Analyze Social Media Sentiment", j.AnalyzeSentiment, scheduler.Every(15 * time.Minute), scheduler.PriorityNormal},
		{"leaderboard_update", "Update Leaderboards", j.RebuildLeaderboards, scheduler.Every(10 * time.Minute), scheduler.PriorityNormal},
		{"episode_event_detection", "Detect Live Episode Events", j.ScanEpisodeEvents, scheduler.Every(2 * time.Minute), scheduler.PriorityCritical},
		{"user_stats_update", "Update User Statistics", j.RefreshUserStats, scheduler.Every(time.Hour), scheduler.PriorityLow},
		{"database_cleanup", "Clean Up Database", j.CleanupStaleData, scheduler.DailyAt(3, 0), scheduler.PriorityLow},
		{"session_cleanup", "Clean Expired Sessions", j.CleanupSessions, scheduler.Every(30 * time.Minute), scheduler.PriorityLow},
	}

	const maxFailures = 3
	for _, e := range entries {
		if err := r.RegisterTask(e.id, e.name, e.job, e.trigger, e.priority, maxFailures); err != nil {
			return err
		}
	}
	return nil
}
