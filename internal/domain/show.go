package domain

import "time"

// --- Model types ---

type Show struct {
	ID       string
	Name     string
	Season   int
	Status   string
	IsActive bool
}

type Contestant struct {
	ID                string
	ShowID            string
	Name              string
	IsEliminated      bool
	WinnerProbability float64
	SentimentScore    float64
}

// Forecast is the output contract of the prediction engine for one contestant.
type Forecast struct {
	EliminationProbability float64
	WinnerProbability      float64
	NextEpisodeSafe        bool
	ConfidenceLow          float64
	ConfidenceHigh         float64
	Trend                  string
	Factors                []string
}

type User struct {
	ID       string
	Username string
	IsActive bool
}

type Prediction struct {
	ID        string
	UserID    string
	ShowID    string
	Resolved  bool
	Correct   bool
	CreatedAt time.Time
}

// TeamStanding is one row of a show's leaderboard.
type TeamStanding struct {
	TeamID      string
	UserID      string
	ShowID      string
	Username    string
	TotalPoints int
	Rank        int
}

// EpisodeEvent is a scoring-relevant event detected during a live episode.
type EpisodeEvent struct {
	ID            string
	ShowID        string
	EventType     string
	Description   string
	ContestantIDs []string
	Episode       int
	Points        int
	Processed     bool
	CreatedAt     time.Time
}
