package database

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/kashishh18/bachelor-league/internal/domain"
)

// Store is the PostgreSQL-backed domain.DataStore.
type Store struct {
	pool *pgxpool.Pool
}

func NewStore(pool *pgxpool.Pool) *Store {
	return &Store{pool: pool}
}

func (s *Store) ActiveShows(ctx context.Context) ([]domain.Show, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, name, season, status, is_active
		 FROM shows WHERE is_active AND status = 'airing'`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active shows: %w", err)
	}
	defer rows.Close()

	var shows []domain.Show
	for rows.Next() {
		var sh domain.Show
		if err := rows.Scan(&sh.ID, &sh.Name, &sh.Season, &sh.Status, &sh.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan show: %w", err)
		}
		shows = append(shows, sh)
	}
	return shows, rows.Err()
}

func (s *Store) ContestantsByShow(ctx context.Context, showID string, includeEliminated bool) ([]domain.Contestant, error) {
	query := `SELECT id, show_id, name, is_eliminated, winner_probability, sentiment_score
	          FROM contestants WHERE show_id = $1`
	if !includeEliminated {
		query += ` AND NOT is_eliminated`
	}

	rows, err := s.pool.Query(ctx, query, showID)
	if err != nil {
		return nil, fmt.Errorf("failed to query contestants: %w", err)
	}
	defer rows.Close()

	var contestants []domain.Contestant
	for rows.Next() {
		var c domain.Contestant
		if err := rows.Scan(&c.ID, &c.ShowID, &c.Name, &c.IsEliminated, &c.WinnerProbability, &c.SentimentScore); err != nil {
			return nil, fmt.Errorf("failed to scan contestant: %w", err)
		}
		contestants = append(contestants, c)
	}
	return contestants, rows.Err()
}

func (s *Store) UpdateContestantForecast(ctx context.Context, contestantID string, f domain.Forecast) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE contestants SET
		   elimination_probability = $2,
		   winner_probability = $3,
		   next_episode_safe = $4,
		   confidence_low = $5,
		   confidence_high = $6,
		   trend = $7
		 WHERE id = $1`,
		contestantID, f.EliminationProbability, f.WinnerProbability,
		f.NextEpisodeSafe, f.ConfidenceLow, f.ConfidenceHigh, f.Trend)
	if err != nil {
		return fmt.Errorf("failed to update forecast: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrShowNotFound
	}
	return nil
}

func (s *Store) UpdateContestantSentiment(ctx context.Context, contestantID string, score float64) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE contestants SET sentiment_score = $2 WHERE id = $1`,
		contestantID, score); err != nil {
		return fmt.Errorf("failed to update sentiment: %w", err)
	}
	return nil
}

func (s *Store) Leaderboard(ctx context.Context, showID string, limit int) ([]domain.TeamStanding, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT t.id, t.user_id, t.show_id, u.username, t.total_points, t.rank
		 FROM teams t JOIN users u ON u.id = t.user_id
		 WHERE t.show_id = $1
		 ORDER BY t.total_points DESC
		 LIMIT $2`, showID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query leaderboard: %w", err)
	}
	defer rows.Close()

	var standings []domain.TeamStanding
	for rows.Next() {
		var st domain.TeamStanding
		if err := rows.Scan(&st.TeamID, &st.UserID, &st.ShowID, &st.Username, &st.TotalPoints, &st.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan standing: %w", err)
		}
		standings = append(standings, st)
	}
	return standings, rows.Err()
}

func (s *Store) UpdateTeamRank(ctx context.Context, teamID string, rank int) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE teams SET rank = $2 WHERE id = $1`, teamID, rank); err != nil {
		return fmt.Errorf("failed to update rank: %w", err)
	}
	return nil
}

func (s *Store) ActiveUsers(ctx context.Context) ([]domain.User, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, username, is_active FROM users WHERE is_active`)
	if err != nil {
		return nil, fmt.Errorf("failed to query active users: %w", err)
	}
	defer rows.Close()

	var users []domain.User
	for rows.Next() {
		var u domain.User
		if err := rows.Scan(&u.ID, &u.Username, &u.IsActive); err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

func (s *Store) PredictionsByUser(ctx context.Context, userID string) ([]domain.Prediction, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, user_id, show_id, resolved, correct, created_at
		 FROM predictions WHERE user_id = $1`, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query predictions: %w", err)
	}
	defer rows.Close()

	var predictions []domain.Prediction
	for rows.Next() {
		var p domain.Prediction
		if err := rows.Scan(&p.ID, &p.UserID, &p.ShowID, &p.Resolved, &p.Correct, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan prediction: %w", err)
		}
		predictions = append(predictions, p)
	}
	return predictions, rows.Err()
}

func (s *Store) UpdateUserAccuracy(ctx context.Context, userID string, accuracy float64, total, correct int) error {
	if _, err := s.pool.Exec(ctx,
		`UPDATE users SET prediction_accuracy = $2, total_predictions = $3, correct_predictions = $4
		 WHERE id = $1`, userID, accuracy, total, correct); err != nil {
		return fmt.Errorf("failed to update user accuracy: %w", err)
	}
	return nil
}

func (s *Store) UnprocessedEvents(ctx context.Context) ([]domain.EpisodeEvent, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT id, show_id, event_type, description, contestant_ids, episode, points, processed, created_at
		 FROM episode_events WHERE NOT processed
		 ORDER BY created_at`)
	if err != nil {
		return nil, fmt.Errorf("failed to query unprocessed events: %w", err)
	}
	defer rows.Close()

	var events []domain.EpisodeEvent
	for rows.Next() {
		var ev domain.EpisodeEvent
		if err := rows.Scan(&ev.ID, &ev.ShowID, &ev.EventType, &ev.Description,
			&ev.ContestantIDs, &ev.Episode, &ev.Points, &ev.Processed, &ev.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan event: %w", err)
		}
		events = append(events, ev)
	}
	return events, rows.Err()
}

func (s *Store) MarkEventProcessed(ctx context.Context, eventID string) error {
	tag, err := s.pool.Exec(ctx,
		`UPDATE episode_events SET processed = TRUE WHERE id = $1`, eventID)
	if err != nil {
		return fmt.Errorf("failed to mark event processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

// AwardPoints credits every team fielding the contestant in the show and
// returns the credited standings with their post-award totals.
func (s *Store) AwardPoints(ctx context.Context, showID, contestantID string, points int) ([]domain.TeamStanding, error) {
	rows, err := s.pool.Query(ctx,
		`WITH credited AS (
		   UPDATE teams SET total_points = total_points + $3
		   WHERE show_id = $1
		     AND id IN (SELECT team_id FROM team_contestants WHERE contestant_id = $2)
		   RETURNING id, user_id, show_id, total_points, rank
		 )
		 SELECT c.id, c.user_id, c.show_id, u.username, c.total_points, c.rank
		 FROM credited c JOIN users u ON u.id = c.user_id`,
		showID, contestantID, points)
	if err != nil {
		return nil, fmt.Errorf("failed to award points: %w", err)
	}
	defer rows.Close()

	var credited []domain.TeamStanding
	for rows.Next() {
		var st domain.TeamStanding
		if err := rows.Scan(&st.TeamID, &st.UserID, &st.ShowID, &st.Username, &st.TotalPoints, &st.Rank); err != nil {
			return nil, fmt.Errorf("failed to scan credited team: %w", err)
		}
		credited = append(credited, st)
	}
	return credited, rows.Err()
}

func (s *Store) PruneEvents(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM episode_events WHERE created_at < $1`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune events: %w", err)
	}
	return tag.RowsAffected(), nil
}

func (s *Store) PruneUnresolvedPredictions(ctx context.Context, before time.Time) (int64, error) {
	tag, err := s.pool.Exec(ctx,
		`DELETE FROM predictions WHERE created_at < $1 AND NOT resolved`, before)
	if err != nil {
		return 0, fmt.Errorf("failed to prune predictions: %w", err)
	}
	return tag.RowsAffected(), nil
}
