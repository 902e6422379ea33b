package jobs

import (
	"context"
	"fmt"
	"log/slog"
)

// StatsSummary is the execution payload of the user statistics job.
type StatsSummary struct {
	UsersUpdated int `json:"users_updated"`
}

// RefreshUserStats recomputes prediction accuracy for every active user.
func (j *Jobs) RefreshUserStats(ctx context.Context) (any, error) {
	users, err := j.store.ActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active users: %w", err)
	}

	summary := StatsSummary{}
	for _, user := range users {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		predictions, err := j.store.PredictionsByUser(ctx, user.ID)
		if err != nil {
			slog.Warn("Failed to load predictions", "user_id", user.ID, "error", err)
			continue
		}

		resolved, correct := 0, 0
		for _, p := range predictions {
			if !p.Resolved {
				continue
			}
			resolved++
			if p.Correct {
				correct++
			}
		}
		if resolved == 0 {
			continue
		}

		accuracy := float64(correct) / float64(resolved)
		if err := j.store.UpdateUserAccuracy(ctx, user.ID, accuracy, resolved, correct); err != nil {
			slog.Warn("Failed to persist user stats", "user_id", user.ID, "error", err)
			continue
		}
		summary.UsersUpdated++
	}

	slog.Info("User stats refresh complete", "users_updated", summary.UsersUpdated)
	return summary, nil
}

// CleanupSummary is the execution payload of the stale data cleanup job.
type CleanupSummary struct {
	EventsPruned      int64 `json:"events_pruned"`
	PredictionsPruned int64 `json:"predictions_pruned"`
}

// CleanupStaleData prunes old episode events and expired unresolved
// predictions from the store.
func (j *Jobs) CleanupStaleData(ctx context.Context) (any, error) {
	cutoff := j.clock.Now().Add(-staleDataAge)

	events, err := j.store.PruneEvents(ctx, cutoff)
	if err != nil {
		return nil, fmt.Errorf("failed to prune events: %w", err)
	}

	predictions, err := j.store.PruneUnresolvedPredictions(ctx, cutoff)
	if err != nil {
		return CleanupSummary{EventsPruned: events}, fmt.Errorf("failed to prune predictions: %w", err)
	}

	summary := CleanupSummary{EventsPruned: events, PredictionsPruned: predictions}
	slog.Info("Stale data cleanup complete", "events_pruned", events, "predictions_pruned", predictions)
	return summary, nil
}

// SessionSummary is the execution payload of the session cleanup job.
type SessionSummary struct {
	SessionsPruned int64 `json:"sessions_pruned"`
}

// CleanupSessions prunes expired auth sessions from the session store.
func (j *Jobs) CleanupSessions(ctx context.Context) (any, error) {
	pruned, err := j.sessions.DeleteExpired(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to prune sessions: %w", err)
	}

	slog.Info("Session cleanup complete", "sessions_pruned", pruned)
	return SessionSummary{SessionsPruned: pruned}, nil
}
