package domain

import (
	"context"
	"time"
)

// DataStore is the persistence surface the scheduled jobs read and write
// through. Any call may fail; jobs must surface the error to the runner's
// execution wrapper instead of crashing.
type DataStore interface {
	ActiveShows(ctx context.Context) ([]Show, error)
	ContestantsByShow(ctx context.Context, showID string, includeEliminated bool) ([]Contestant, error)
	UpdateContestantForecast(ctx context.Context, contestantID string, f Forecast) error
	UpdateContestantSentiment(ctx context.Context, contestantID string, score float64) error

	Leaderboard(ctx context.Context, showID string, limit int) ([]TeamStanding, error)
	UpdateTeamRank(ctx context.Context, teamID string, rank int) error

	ActiveUsers(ctx context.Context) ([]User, error)
	PredictionsByUser(ctx context.Context, userID string) ([]Prediction, error)
	UpdateUserAccuracy(ctx context.Context, userID string, accuracy float64, total, correct int) error

	UnprocessedEvents(ctx context.Context) ([]EpisodeEvent, error)
	MarkEventProcessed(ctx context.Context, eventID string) error
	// AwardPoints credits every team fielding the contestant and returns the
	// credited standings with their new totals.
	AwardPoints(ctx context.Context, showID, contestantID string, points int) ([]TeamStanding, error)

	PruneEvents(ctx context.Context, before time.Time) (int64, error)
	PruneUnresolvedPredictions(ctx context.Context, before time.Time) (int64, error)
}
