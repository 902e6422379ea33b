// Package prediction is the HTTP client for the external prediction and
// sentiment service. The service is a black box: slow and fallible calls,
// bounded here by the request context.
package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kashishh18/bachelor-league/internal/domain"
	"github.com/kashishh18/bachelor-league/internal/errors"
)

const requestTimeout = 10 * time.Second

// Client implements domain.PredictionEngine against a remote model service.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

type contestantRequest struct {
	ContestantID      string  `json:"contestant_id"`
	ShowID            string  `json:"show_id"`
	Name              string  `json:"name"`
	WinnerProbability float64 `json:"winner_probability"`
	SentimentScore    float64 `json:"sentiment_score"`
}

type forecastResponse struct {
	EliminationProbability float64   `json:"elimination_probability"`
	WinnerProbability      float64   `json:"winner_probability"`
	NextEpisodeSafe        bool      `json:"next_episode_safe"`
	ConfidenceInterval     []float64 `json:"confidence_interval"`
	Trend                  string    `json:"trend"`
	Factors                []string  `json:"factors"`
}

func (c *Client) PredictOutcomes(ctx context.Context, contestant domain.Contestant) (domain.Forecast, error) {
	var resp forecastResponse
	if err := c.post(ctx, "/predict", contestant, &resp); err != nil {
		return domain.Forecast{}, err
	}

	f := domain.Forecast{
		EliminationProbability: resp.EliminationProbability,
		WinnerProbability:      resp.WinnerProbability,
		NextEpisodeSafe:        resp.NextEpisodeSafe,
		Trend:                  resp.Trend,
		Factors:                resp.Factors,
	}
	if len(resp.ConfidenceInterval) == 2 {
		f.ConfidenceLow = resp.ConfidenceInterval[0]
		f.ConfidenceHigh = resp.ConfidenceInterval[1]
	}
	return f, nil
}

func (c *Client) AnalyzeSentiment(ctx context.Context, contestant domain.Contestant) (float64, error) {
	var resp struct {
		Score float64 `json:"score"`
	}
	if err := c.post(ctx, "/sentiment", contestant, &resp); err != nil {
		return 0, err
	}
	return resp.Score, nil
}

func (c *Client) post(ctx context.Context, path string, contestant domain.Contestant, out any) error {
	body, err := json.Marshal(contestantRequest{
		ContestantID:      contestant.ID,
		ShowID:            contestant.ShowID,
		Name:              contestant.Name,
		WinnerProbability: contestant.WinnerProbability,
		SentimentScore:    contestant.SentimentScore,
	})
	if err != nil {
		return errors.InternalError("failed to marshal prediction request", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return errors.InternalError("failed to build prediction request", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.ExternalError("prediction service unreachable", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return errors.ExternalError(fmt.Sprintf("prediction service returned %d", resp.StatusCode), nil)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.ExternalError("failed to decode prediction response", err)
	}
	return nil
}
