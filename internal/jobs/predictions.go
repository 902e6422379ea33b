package jobs

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"github.com/kashishh18/bachelor-league/internal/realtime"
)

// PredictionSummary is the execution payload of the prediction refresh job.
type PredictionSummary struct {
	Updated            int `json:"updated_count"`
	SignificantChanges int `json:"significant_changes"`
}

// RefreshPredictions recomputes outcome forecasts for every active
// contestant and broadcasts significant winner-probability shifts to the
// show's subscribers.
func (j *Jobs) RefreshPredictions(ctx context.Context) (any, error) {
	shows, err := j.store.ActiveShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active shows: %w", err)
	}

	summary := PredictionSummary{}
	for _, show := range shows {
		contestants, err := j.store.ContestantsByShow(ctx, show.ID, false)
		if err != nil {
			return summary, fmt.Errorf("failed to list contestants for show %s: %w", show.ID, err)
		}

		for _, c := range contestants {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			forecast, err := j.predictor.PredictOutcomes(ctx, c)
			if err != nil {
				slog.Warn("Prediction failed, skipping contestant", "contestant_id", c.ID, "error", err)
				continue
			}

			if err := j.store.UpdateContestantForecast(ctx, c.ID, forecast); err != nil {
				slog.Warn("Failed to persist forecast", "contestant_id", c.ID, "error", err)
				continue
			}
			summary.Updated++

			shift := math.Abs(forecast.WinnerProbability - c.WinnerProbability)
			if shift <= significantPredictionShift {
				continue
			}
			summary.SignificantChanges++

			confidence := forecast.ConfidenceHigh - forecast.ConfidenceLow
			j.publisher.BroadcastToTopic(show.ID, realtime.NewPredictionUpdate(
				c.ID, c.Name, c.WinnerProbability, forecast.WinnerProbability, confidence, forecast.Factors,
			))
		}
	}

	slog.Info("Prediction refresh complete", "updated", summary.Updated, "significant_changes", summary.SignificantChanges)
	return summary, nil
}

// SentimentSummary is the execution payload of the sentiment sweep job.
type SentimentSummary struct {
	Analyzed           int `json:"analyzed_count"`
	SignificantChanges int `json:"significant_changes"`
}

// AnalyzeSentiment recomputes social sentiment per active contestant.
func (j *Jobs) AnalyzeSentiment(ctx context.Context) (any, error) {
	shows, err := j.store.ActiveShows(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list active shows: %w", err)
	}

	summary := SentimentSummary{}
	for _, show := range shows {
		contestants, err := j.store.ContestantsByShow(ctx, show.ID, false)
		if err != nil {
			return summary, fmt.Errorf("failed to list contestants for show %s: %w", show.ID, err)
		}

		for _, c := range contestants {
			if err := ctx.Err(); err != nil {
				return summary, err
			}

			score, err := j.predictor.AnalyzeSentiment(ctx, c)
			if err != nil {
				slog.Warn("Sentiment analysis failed, skipping contestant", "contestant_id", c.ID, "error", err)
				continue
			}

			if err := j.store.UpdateContestantSentiment(ctx, c.ID, score); err != nil {
				slog.Warn("Failed to persist sentiment", "contestant_id", c.ID, "error", err)
				continue
			}
			summary.Analyzed++

			if math.Abs(score-c.SentimentScore) > significantSentimentShift {
				summary.SignificantChanges++
			}
		}
	}

	slog.Info("Sentiment sweep complete", "analyzed", summary.Analyzed, "significant_changes", summary.SignificantChanges)
	return summary, nil
}
