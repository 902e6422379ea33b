package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kashishh18/bachelor-league/internal/realtime"
)

const leaderboardLimit = 1000

// LeaderboardSummary is the execution payload of the leaderboard rebuild job.
type LeaderboardSummary struct {
	UpdatedShows int `json:"updated_shows"`
	RankChanges  int `json:"rank_changes"`
}

// RebuildLeaderboards recomputes team ranks per active show and broadcasts
// significant rank moves to the show's subscribers.
func (j *Jobs) RebuildLeaderboards(ctx context.Context) (any, error) {
	shows, err := j.store.ActiveShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active shows: %w", err)
	}

	summary := LeaderboardSummary{}
	for _, show := range shows {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		standings, err := j.store.Leaderboard(ctx, show.ID, leaderboardLimit)
		if err != nil {
			return summary, fmt.Errorf("failed to load leaderboard for show %s: %w", show.ID, err)
		}

		for i, team := range standings {
			newRank := i + 1
			if team.Rank == newRank {
				continue
			}

			if err := j.store.UpdateTeamRank(ctx, team.TeamID, newRank); err != nil {
				slog.Warn("Failed to persist rank", "team_id", team.TeamID, "error", err)
				continue
			}

			// Only previously-ranked teams with a big move are news.
			if team.Rank == 0 || abs(team.Rank-newRank) < significantRankMove {
				continue
			}
			summary.RankChanges++

			j.publisher.BroadcastToTopic(show.ID, realtime.NewLeaderboardUpdate(
				team.UserID, show.ID, team.Rank, newRank, team.TotalPoints,
			))
		}
		summary.UpdatedShows++
	}

	slog.Info("Leaderboard rebuild complete", "shows", summary.UpdatedShows, "rank_changes", summary.RankChanges)
	return summary, nil
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
