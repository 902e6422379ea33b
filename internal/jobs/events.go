package jobs

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kashishh18/bachelor-league/internal/domain"
	"github.com/kashishh18/bachelor-league/internal/realtime"
)

// EventSummary is the execution payload of the episode event scan job.
type EventSummary struct {
	Processed     int `json:"events_processed"`
	PointsAwarded int `json:"points_awarded"`
}

// award is one contestant's credited scoring within an event, carrying the
// leading credited team for the score_update broadcast.
type award struct {
	contestantID string
	leader       domain.TeamStanding
}

// ScanEpisodeEvents processes newly-detected episode events: awards points
// to affected contestants, broadcasts the event and the resulting score
// updates, and marks each event processed. Any durable write completes
// before the broadcast describing it.
func (j *Jobs) ScanEpisodeEvents(ctx context.Context) (any, error) {
	events, err := j.store.UnprocessedEvents(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list unprocessed events: %w", err)
	}

	summary := EventSummary{}
	names := make(map[string]map[string]string)
	for _, ev := range events {
		if err := ctx.Err(); err != nil {
			return summary, err
		}

		var awards []award
		for _, contestantID := range ev.ContestantIDs {
			if ev.Points == 0 {
				continue
			}
			credited, err := j.store.AwardPoints(ctx, ev.ShowID, contestantID, ev.Points)
			if err != nil {
				slog.Warn("Failed to award points", "event_id", ev.ID, "contestant_id", contestantID, "error", err)
				continue
			}
			summary.PointsAwarded += ev.Points

			var leader domain.TeamStanding
			for _, st := range credited {
				if st.TotalPoints > leader.TotalPoints {
					leader = st
				}
			}
			awards = append(awards, award{contestantID: contestantID, leader: leader})
		}

		if err := j.store.MarkEventProcessed(ctx, ev.ID); err != nil {
			return summary, fmt.Errorf("failed to mark event %s processed: %w", ev.ID, err)
		}

		j.publisher.BroadcastToTopic(ev.ShowID, realtime.NewEpisodeEvent(
			ev.EventType, ev.Description, ev.ContestantIDs, ev.Episode, ev.Points,
		))
		for _, a := range awards {
			j.publisher.BroadcastToTopic(ev.ShowID, realtime.NewScoreUpdate(
				a.contestantID,
				j.contestantName(ctx, names, ev.ShowID, a.contestantID),
				ev.Points, ev.EventType, ev.Episode,
				realtime.TopPerformer{Username: a.leader.Username, Points: a.leader.TotalPoints},
			))
		}
		summary.Processed++
	}

	if summary.Processed > 0 {
		slog.Info("Episode event scan complete", "processed", summary.Processed, "points_awarded", summary.PointsAwarded)
	}
	return summary, nil
}

// contestantName resolves a contestant's display name, fetching each show's
// roster at most once per run. A failed lookup degrades to an empty name.
func (j *Jobs) contestantName(ctx context.Context, cache map[string]map[string]string, showID, contestantID string) string {
	byID, ok := cache[showID]
	if !ok {
		byID = make(map[string]string)
		contestants, err := j.store.ContestantsByShow(ctx, showID, true)
		if err != nil {
			slog.Warn("Failed to resolve contestant names", "show_id", showID, "error", err)
		}
		for _, c := range contestants {
			byID[c.ID] = c.Name
		}
		cache[showID] = byID
	}
	return byID[contestantID]
}
