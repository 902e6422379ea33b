package domain

import "context"

// PredictionEngine is the black-box ML collaborator. Calls may be slow and
// may fail; callers bound them with a context deadline.
type PredictionEngine interface {
	// PredictOutcomes computes the outcome forecast for one contestant.
	PredictOutcomes(ctx context.Context, c Contestant) (Forecast, error)

	// AnalyzeSentiment computes the current social sentiment score in [-1, 1].
	AnalyzeSentiment(ctx context.Context, c Contestant) (float64, error)
}
