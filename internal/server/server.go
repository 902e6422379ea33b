package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/jonboulle/clockwork"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	goredis "github.com/redis/go-redis/v9"

	"github.com/kashishh18/bachelor-league/internal/config"
	apperrors "github.com/kashishh18/bachelor-league/internal/errors"
	"github.com/kashishh18/bachelor-league/internal/realtime"
	"github.com/kashishh18/bachelor-league/internal/scheduler"
)

// postgresPinger is the slice of the pgx pool the health checks need.
type postgresPinger interface {
	Ping(ctx context.Context) error
}

// SessionResolver resolves an auth session token to the user ID it was
// issued for. An empty user ID means the session is unknown or expired.
type SessionResolver interface {
	Get(ctx context.Context, token string) (string, error)
}

type Server struct {
	echo        *echo.Echo
	config      *config.Config
	clock       clockwork.Clock
	registry    *realtime.Registry
	broadcaster *realtime.Broadcaster
	runner      *scheduler.Runner
	sessions    SessionResolver
	db          postgresPinger
	redisClient *goredis.Client
	limits      *ConnectionLimits
	startTime   clockTime
}

// clockTime pins the process start for the liveness uptime report.
type clockTime struct {
	clock clockwork.Clock
	at    int64
}

func newClockTime(clock clockwork.Clock) clockTime {
	return clockTime{clock: clock, at: clock.Now().UnixNano()}
}

func (t clockTime) uptimeSeconds() float64 {
	return float64(t.clock.Now().UnixNano()-t.at) / 1e9
}

func NewServer(
	cfg *config.Config,
	clock clockwork.Clock,
	registry *realtime.Registry,
	broadcaster *realtime.Broadcaster,
	runner *scheduler.Runner,
	sessions SessionResolver,
	db postgresPinger,
	redisClient *goredis.Client,
) *Server {
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	// Middleware
	e.Use(middleware.Logger())
	e.Use(middleware.Recover())
	e.Use(apperrors.Middleware())

	srv := &Server{
		echo:        e,
		config:      cfg,
		clock:       clock,
		registry:    registry,
		broadcaster: broadcaster,
		runner:      runner,
		sessions:    sessions,
		db:          db,
		redisClient: redisClient,
		limits:      NewConnectionLimits(cfg.MaxConnections, cfg.MaxConnectionsPerIP),
		startTime:   newClockTime(clock),
	}

	srv.registerRoutes()

	return srv
}

func (s *Server) Start() error {
	slog.Info("Starting server", "port", s.config.Port)
	return s.echo.Start(fmt.Sprintf(":%s", s.config.Port))
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.echo.Shutdown(ctx)
}
